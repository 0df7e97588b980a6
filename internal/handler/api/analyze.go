package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"FundLens/internal/domain/models"
	domrepo "FundLens/internal/domain/repository"
	"FundLens/internal/usecase"
	xhttp "FundLens/pkg/http"
	xlogger "FundLens/pkg/logger"
)

// AnalyzeHandler exposes the analysis usecase over HTTP.
type AnalyzeHandler struct {
	logger   *xlogger.Logger
	analyzer *usecase.Analyzer
}

func NewAnalyzeHandler(logger *xlogger.Logger, analyzer *usecase.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{logger: logger, analyzer: analyzer}
}

func (h *AnalyzeHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/analyze", h.Analyze)
	g.GET("/analyze/stream", h.AnalyzeStream)
}

// Analyze runs a full analysis and returns the finished report.
func (h *AnalyzeHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.analyzer.Analyze(c.Request().Context(), req.Ticker)
	if err != nil {
		h.logger.Error("analysis failed",
			xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, asAppError(req.Ticker, err))
	}
	return xhttp.SuccessResponse(c, report)
}

// AnalyzeStream runs the analysis and streams progress as server-sent events,
// ending with either a "report" or an "error" event.
func (h *AnalyzeHandler) AnalyzeStream(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)

	events := make(chan usecase.ProgressEvent, 16)
	type outcome struct {
		report *models.Report
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		report, err := h.analyzer.AnalyzeWithProgress(c.Request().Context(), req.Ticker,
			func(e usecase.ProgressEvent) { events <- e })
		close(events)
		done <- outcome{report: report, err: err}
	}()

	for event := range events {
		writeSSE(resp, "progress", event)
	}

	result := <-done
	if result.err != nil {
		h.logger.Error("streamed analysis failed",
			xlogger.String("ticker", req.Ticker), xlogger.Error(result.err))
		writeSSE(resp, "error", asAppError(req.Ticker, result.err))
		return nil
	}
	writeSSE(resp, "report", result.report)
	return nil
}

func writeSSE(resp *echo.Response, event string, payload interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event, b)
	resp.Flush()
}

// asAppError maps the error taxonomy onto HTTP statuses.
func asAppError(ticker string, err error) error {
	var verr *domrepo.ValidationError
	switch {
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundErrorf("ticker %s is unknown to all data sources", ticker).WithError(err)
	case errors.Is(err, domrepo.ErrIncomplete):
		return xhttp.NewAppError("ERR_INCOMPLETE", "",
			"analysis did not converge to a complete report", http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, domrepo.ErrUpstreamUnavailable):
		return xhttp.NewAppError("ERR_UPSTREAM_UNAVAILABLE", "",
			"an upstream data source is unavailable, retry later", http.StatusServiceUnavailable).WithError(err)
	case errors.As(err, &verr):
		return xhttp.NewAppError("ERR_VALIDATION", verr.Field, verr.Reason, http.StatusBadRequest).WithError(err)
	default:
		return err
	}
}
