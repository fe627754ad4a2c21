// Package http provides the HTTP server of the assistant.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/service"
	v1 "github.com/xiaot623/gogo/assistant/internal/transport/http/v1"
)

// VoicePath is the websocket endpoint of the voice gateway.
const VoicePath = "/v1/voice"

// NewServer creates the HTTP server. voice serves websocket upgrades on
// VoicePath and may be nil.
func NewServer(svc *service.Service, voice http.Handler, logger *zap.Logger) *echo.Echo {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			}
			if v.Error != nil {
				logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Debug("request", fields...)
			return nil
		},
	}))

	// Handlers
	v1.NewHandler(svc).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if voice != nil {
		e.GET(VoicePath, echo.WrapHandler(voice))
	}

	return e
}
