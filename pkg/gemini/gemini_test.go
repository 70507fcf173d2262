package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	"google.golang.org/genai"
)

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "timeout net err" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return false }

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name          string
		in            error
		wantTransient bool
	}{
		{name: "api_429", in: genai.APIError{Code: 429}, wantTransient: true},
		{name: "api_503", in: genai.APIError{Code: 503}, wantTransient: true},
		{name: "api_400", in: genai.APIError{Code: 400}, wantTransient: false},
		{name: "net_timeout", in: timeoutNetErr{}, wantTransient: true},
		{name: "plain", in: errors.New("boom"), wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyErr(tt.in)
			var te *contractx.TransientError
			if errors.As(got, &te) != tt.wantTransient {
				t.Fatalf("transient=%v want=%v (err=%T %v)", !tt.wantTransient, tt.wantTransient, got, got)
			}
		})
	}
}

func TestGroundedJSONReturnsCandidateText(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":true}"}]}}]}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Config{APIKey: "key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	text, err := GroundedJSON(context.Background(), client, "gemini-test", "find leads", &genai.Schema{Type: genai.TypeObject})
	if err != nil {
		t.Fatalf("GroundedJSON() error = %v", err)
	}
	if text != `{"ok":true}` {
		t.Fatalf("unexpected text: %q", text)
	}
	if !strings.Contains(gotPath, "gemini-test:generateContent") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
