package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) health(ctx echo.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthPingTimeout)
	defer cancel()

	if err := s.db.PingContext(pingCtx); err != nil {
		s.logger.Error("health check: database unreachable", err)
		return ctx.JSON(http.StatusInternalServerError, healthResponse{Status: "error", DB: "disconnected", Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, healthResponse{Status: "ok", DB: "connected"})
}
