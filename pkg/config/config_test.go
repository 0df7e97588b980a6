package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `environment: test
edgar:
  user_agent: "fundlens-test admin@example.com"
finnhub:
  api_key: fh-key
openai:
  api_key: oa-key
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "https://data.sec.gov", cfg.Edgar.BaseURL)
	assert.Equal(t, 10.0, cfg.Edgar.RequestsPerSecond)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 12, cfg.Analysis.MaxTurns)
	assert.Equal(t, time.Minute, cfg.Analysis.ToolTimeout)
}

func TestLoadRejectsMissingUserAgent(t *testing.T) {
	_, err := Load(writeConfig(t, `environment: test
finnhub:
  api_key: fh-key
openai:
  api_key: oa-key
`))
	require.ErrorContains(t, err, "edgar.user_agent")
}

func TestLoadRejectsBadCacheBackend(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`cache:
  backend: memcached
`))
	require.ErrorContains(t, err, "cache.backend")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "env-fh")
	t.Setenv("OPENAI_API_KEY", "env-oa")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("EDGAR_USER_AGENT", "env-agent admin@example.com")

	// Credentials absent from the file must still validate after env overrides.
	cfg, err := LoadWithEnv(writeConfig(t, "environment: test\n"))
	require.NoError(t, err)
	assert.Equal(t, "env-fh", cfg.Finnhub.APIKey)
	assert.Equal(t, "env-oa", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "env-agent admin@example.com", cfg.Edgar.UserAgent)
}
