package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundLens/internal/domain/models"
	domrepo "FundLens/internal/domain/repository"
	"FundLens/internal/usecase"
	xlogger "FundLens/pkg/logger"
)

const stubReport = `## Capital Structure
x
## Income Statement
x
## Cash Flow
x
## Balance Sheet
x
## Qualitative
x`

type stubModel struct{}

func (stubModel) Complete(context.Context, string, *models.Transcript, []models.ToolSpec) (*models.ModelReply, error) {
	return &models.ModelReply{Text: stubReport}, nil
}

type stubRegistry struct{}

func (stubRegistry) ListTools() []models.ToolSpec { return nil }

func (stubRegistry) Invoke(_ context.Context, call models.ToolCall) models.ToolCall {
	call.Result = json.RawMessage(`{}`)
	return call
}

type stubSource struct{}

func (stubSource) ResolveFiler(_ context.Context, ticker string) (*models.Company, error) {
	if ticker != "AAPL" {
		return nil, domrepo.ErrNotFound
	}
	return &models.Company{Ticker: ticker, CIK: "0000320193"}, nil
}

func (stubSource) FetchFacts(context.Context, string, []string) (map[string][]models.FactPoint, []string, error) {
	return nil, nil, nil
}

func (stubSource) LatestFiling(context.Context, string, string) (*models.Filing, error) {
	return nil, domrepo.ErrNotFound
}

func (stubSource) FetchQuote(_ context.Context, ticker string) (*models.Quote, error) {
	if ticker != "AAPL" {
		return nil, domrepo.ErrNotFound
	}
	return &models.Quote{Ticker: ticker}, nil
}

func (stubSource) FetchProfile(_ context.Context, ticker string) (*models.CompanyProfile, error) {
	if ticker != "AAPL" {
		return nil, domrepo.ErrNotFound
	}
	return &models.CompanyProfile{Ticker: ticker}, nil
}

func (stubSource) FetchStatements(_ context.Context, ticker string, st models.StatementType, pt models.PeriodType) (*models.StatementSeries, error) {
	return &models.StatementSeries{Ticker: ticker, Type: st, PeriodType: pt}, nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	analyzer := usecase.NewAnalyzer(stubModel{}, stubRegistry{}, stubSource{}, stubSource{},
		xlogger.NewNop(), nil, usecase.Config{MaxTurns: 3})
	h := NewAnalyzeHandler(xlogger.NewNop(), analyzer)

	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func TestAnalyzeEndpoint(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"ticker":"AAPL"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status int           `json:"status"`
		Data   models.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, body.Status)
	assert.Equal(t, "AAPL", body.Data.Ticker)
	assert.Empty(t, models.MissingPhases(body.Data.Text))
}

func TestAnalyzeEndpointRejectsMissingTicker(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
}

func TestAnalyzeEndpointUnknownTicker(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"ticker":"ZZZZZ9"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
}

func TestAnalyzeStreamEmitsProgressAndReport(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/stream?ticker=AAPL", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	body := rec.Body.String()
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"stage":"resolving"`)
	assert.Contains(t, body, "event: report")
	assert.Contains(t, body, `"ticker":"AAPL"`)
}

func TestAnalyzeStreamUnknownTicker(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/stream?ticker=ZZZZZ9", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, "ERR_NOT_FOUND")
}
