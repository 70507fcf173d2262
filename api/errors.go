package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	statex "github.com/tanpawarit/outreach-orchestrator/agent/state"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrEscalationNotFound),
		errors.Is(err, contractx.ErrRecordNotFound),
		errors.Is(err, statex.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, contractx.ErrSessionTerminal):
		return http.StatusConflict
	case errors.Is(err, contractx.ErrPlanning):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Int("status", status).
			Msg("request failed")
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}
