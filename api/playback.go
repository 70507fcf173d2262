package api

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type playbackFrame struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Audio *string `json:"audio"`
}

// wsSink writes agent turns to the counterparty leg as JSON frames.
type wsSink struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (s *wsSink) Play(_ context.Context, turn contractx.ConversationTurn) error {
	frame := playbackFrame{Index: turn.Index, Text: turn.Text}
	if len(turn.Audio) > 0 {
		enc := base64.StdEncoding.EncodeToString(turn.Audio)
		frame.Audio = &enc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteJSON(frame)
}

// Playback streams agent turns of a session in turn order over a websocket.
// GET /v1/sessions/:id/playback
func (h *Handler) Playback(c echo.Context) error {
	sessionID := c.Param("id")
	if _, err := h.conversations.Session(c.Request().Context(), sessionID); err != nil {
		return writeError(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("playback upgrade failed")
		return err
	}
	defer conn.Close()

	sink := &wsSink{conn: conn, writeTimeout: h.writeTimeout}
	p, err := h.conversations.AttachPlayback(c.Request().Context(), sessionID, sink)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("playback attach failed")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "attach failed"))
		return nil
	}
	defer h.conversations.DetachPlayback(sessionID, p)

	log.Info().Str("session_id", sessionID).Int("from", p.Next()).Msg("playback attached")

	// Inbound frames are ignored; reading only detects the peer closing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("playback connection closed")
			}
			return nil
		}
	}
}
