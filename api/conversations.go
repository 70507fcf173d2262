package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	conversationx "github.com/tanpawarit/outreach-orchestrator/agent/agents/conversation"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

// VoiceTurn generates one stateless agent reply with audio.
// POST /v1/voice/turn
func (h *Handler) VoiceTurn(c echo.Context) error {
	var req contractx.VoiceTurnRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.conversations.VoiceTurn(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// AnalyzeEmail drafts a reply for a whole email thread.
// POST /v1/email/analyze
func (h *Handler) AnalyzeEmail(c echo.Context) error {
	var req contractx.EmailAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.conversations.AnalyzeEmail(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// StartSession opens a conversation session with one lead.
// POST /v1/sessions
func (h *Handler) StartSession(c echo.Context) error {
	var req conversationx.StartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.OwnerID == "" {
		req.OwnerID = ownerID(c)
	}

	session, err := h.conversations.StartSession(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// GetSession returns the stored session.
// GET /v1/sessions/:id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.conversations.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// AdvanceTurn feeds counterparty input and runs one turn.
// POST /v1/sessions/:id/turns
func (h *Handler) AdvanceTurn(c echo.Context) error {
	var in conversationx.TurnInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.conversations.AdvanceTurn(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		if errors.Is(err, contractx.ErrSessionTerminal) && res.Session != nil {
			return c.JSON(http.StatusConflict, map[string]any{"error": err.Error(), "session": res.Session})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Hangup ends a call on behalf of the counterparty.
// POST /v1/sessions/:id/hangup
func (h *Handler) Hangup(c echo.Context) error {
	session, err := h.conversations.Hangup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// LeadSessions lists a lead's sessions by attempt.
// GET /v1/leads/:lead_id/sessions
func (h *Handler) LeadSessions(c echo.Context) error {
	sessions, err := h.conversations.LeadSessions(c.Request().Context(), c.Param("lead_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": sessions})
}
