package bootstrap

import (
	"github.com/eleven-am/voice-relay/internal/gateway"
	"github.com/eleven-am/voice-relay/internal/metrics"
	"github.com/eleven-am/voice-relay/internal/session"
	"github.com/eleven-am/voice-relay/internal/vision"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	RelayHandler   *gateway.Handler
	VisionHandler  *vision.Handler
	SessionHandler *session.Handler
	Config         *Config
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	params.RelayHandler.RegisterRoutes(e, params.Config.RelayPath)
	params.VisionHandler.RegisterRoutes(e)

	api := e.Group("/v1")
	params.SessionHandler.RegisterRoutes(api)

	e.GET("/metrics", metrics.Handler())
}

var HandlersModule = fx.Options(
	fx.Invoke(RegisterRoutes),
)
