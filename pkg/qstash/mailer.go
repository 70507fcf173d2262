package qstash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Mailer hands approved email replies to the mail transport through QStash.
type Mailer struct {
	client      *Client
	destination string
}

type mailMessage struct {
	SessionID string `json:"session_id"`
	To        string `json:"to"`
	Body      string `json:"body"`
}

func NewMailer(client *Client, destination string) (*Mailer, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("mail transport url is required")
	}
	return &Mailer{client: client, destination: destination}, nil
}

func (m *Mailer) Dispatch(ctx context.Context, sessionID, to, body string) error {
	payload, err := json.Marshal(mailMessage{SessionID: sessionID, To: to, Body: body})
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	id, err := m.client.Publish(ctx, m.destination, payload, map[string]string{
		"Upstash-Deduplication-Id": "reply-" + sessionID,
	})
	if err != nil {
		return fmt.Errorf("dispatch reply for session %s: %w", sessionID, err)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("message_id", id).
		Msg("reply handed to mail transport")
	return nil
}
