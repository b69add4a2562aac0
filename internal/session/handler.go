package session

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eleven-am/voice-relay/internal/shared"
	"github.com/labstack/echo/v4"
)

type StatsResponse struct {
	Hours   int        `json:"hours"`
	Metrics []*Metrics `json:"metrics"`
}

type SummaryResponse struct {
	Period             string  `json:"period"`
	Connections        int64   `json:"connections"`
	TranscriptsPartial int64   `json:"transcripts_partial"`
	TranscriptsFinal   int64   `json:"transcripts_final"`
	SilenceFrames      int64   `json:"silence_frames"`
	ClientFrames       int64   `json:"client_frames"`
	Completions        int64   `json:"completions"`
	CompletionErrorPct float64 `json:"completion_error_pct"`
	FailedConnections  int64   `json:"failed_connections"`
}

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/sessions/:id", h.GetSession)
	g.GET("/stats", h.GetStats)
	g.GET("/stats/summary", h.GetSummary)
}

func (h *Handler) GetSession(c echo.Context) error {
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("session_not_found", "session not found")
		}
		h.logger.Error("failed to get session", "error", err, "conn_id", id)
		return shared.InternalError("get_failed", "failed to get session")
	}

	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetStats(c echo.Context) error {
	hours := 24
	if hoursStr := c.QueryParam("hours"); hoursStr != "" {
		if hr, err := strconv.Atoi(hoursStr); err == nil && hr > 0 && hr <= 168 {
			hours = hr
		}
	}

	metrics, err := h.store.GetMetrics(c.Request().Context(), hours)
	if err != nil {
		h.logger.Error("failed to get metrics", "error", err)
		return shared.InternalError("get_metrics_failed", "failed to get metrics")
	}
	if metrics == nil {
		metrics = []*Metrics{}
	}

	return c.JSON(http.StatusOK, StatsResponse{
		Hours:   hours,
		Metrics: metrics,
	})
}

func (h *Handler) GetSummary(c echo.Context) error {
	metrics, err := h.store.GetMetrics(c.Request().Context(), 7*24)
	if err != nil {
		h.logger.Error("failed to get metrics summary", "error", err)
		return shared.InternalError("get_metrics_failed", "failed to get metrics")
	}

	summary := SummaryResponse{Period: "7d"}
	var completionErrors int64

	for _, m := range metrics {
		summary.Connections += m.Connections
		summary.TranscriptsPartial += m.TranscriptsPartial
		summary.TranscriptsFinal += m.TranscriptsFinal
		summary.SilenceFrames += m.SilenceFrames
		summary.ClientFrames += m.ClientFrames
		summary.Completions += m.Completions
		summary.FailedConnections += m.StartFailures + m.StreamFailures
		completionErrors += m.CompletionErrors
	}

	if summary.Completions > 0 {
		summary.CompletionErrorPct = float64(completionErrors) / float64(summary.Completions) * 100
	}

	return c.JSON(http.StatusOK, summary)
}
