package vision

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const maxDocumentBody = 20 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	extractor *Extractor
	logger    *slog.Logger
}

func NewHandler(extractor *Extractor, logger *slog.Logger) *Handler {
	return &Handler{
		extractor: extractor,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/textract", h.Extract)
}

// Extract answers with {text, lines, rawBlocks}. Failures use the
// {"error": "..."} shape clients of this endpoint expect.
func (h *Handler) Extract(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxDocumentBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
	}

	res, err := h.extractor.Extract(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidDocument) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: clientMessage(err)})
		}
		h.logger.Error("text extraction failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, res)
}

func clientMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidDocument.Error()+": ")
}
