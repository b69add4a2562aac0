package gateway

import (
	"log/slog"

	"github.com/eleven-am/voice-relay/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	registry *Registry
	deps     Deps
	cfg      Config
	logger   *slog.Logger
}

func NewHandler(registry *Registry, deps Deps, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, path string) {
	e.GET(path, h.HandleConnection)
}

// HandleConnection upgrades the request and relays audio until the
// connection is torn down.
func (h *Handler) HandleConnection(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return nil
	}

	conn := NewWSConnection(ws, h.cfg.MaxMessageSize)
	ctrl := NewController(shared.NewID("conn_"), conn, h.deps, h.cfg, h.logger)

	h.registry.Add(ctrl)
	defer h.registry.Remove(ctrl.ID())

	ctrl.Run(c.Request().Context())
	return nil
}
