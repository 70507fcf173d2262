package qstash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMailerDispatchPublishesToTransport(t *testing.T) {
	t.Parallel()

	var (
		gotPath  string
		gotAuth  string
		gotDedup string
		gotBody  mailMessage
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"messageId":"msg_1"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "tok", Retries: 2})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	mailer, err := NewMailer(client, "https://mail.example.com/send")
	if err != nil {
		t.Fatalf("NewMailer() error = %v", err)
	}

	if err := mailer.Dispatch(context.Background(), "s-1", "ada@acme.io", "Hello Ada"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if gotPath != "/v2/publish/https://mail.example.com/send" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer tok" || gotDedup != "reply-s-1" {
		t.Fatalf("unexpected headers auth=%q dedup=%q", gotAuth, gotDedup)
	}
	if gotBody.To != "ada@acme.io" || gotBody.Body != "Hello Ada" || gotBody.SessionID != "s-1" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
}

func TestPublishSurfacesUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid token"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "bad"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.Publish(context.Background(), "https://mail.example.com/send", []byte(`{}`), nil); err == nil {
		t.Fatal("expected error but got nil")
	}
}

func TestNewClientValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewClient(Config{Token: "t"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewMailer(nil, "https://x"); err == nil {
		t.Fatal("expected error for nil client")
	}
}
