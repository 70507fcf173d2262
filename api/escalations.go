package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	escalationx "github.com/tanpawarit/outreach-orchestrator/agent/escalation"
)

// ListEscalations returns open items, oldest first.
// GET /v1/escalations
func (h *Handler) ListEscalations(c echo.Context) error {
	items, err := h.escalations.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []contractx.EscalationItem{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// ResolveEscalation applies a reviewer decision.
// POST /v1/escalations/:session_id/resolve
func (h *Handler) ResolveEscalation(c echo.Context) error {
	var decision escalationx.Decision
	if err := c.Bind(&decision); err != nil {
		return badRequest(c, "invalid request body")
	}
	if decision.Kind == "" {
		return badRequest(c, "decision is required")
	}

	res, err := h.escalations.Resolve(c.Request().Context(), c.Param("session_id"), decision)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
