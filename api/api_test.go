package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	conversationx "github.com/tanpawarit/outreach-orchestrator/agent/agents/conversation"
	orchestratorx "github.com/tanpawarit/outreach-orchestrator/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	escalationx "github.com/tanpawarit/outreach-orchestrator/agent/escalation"
	statex "github.com/tanpawarit/outreach-orchestrator/agent/state"
)

type fakeCampaigns struct {
	discoverResp contractx.DiscoveryResponse
	plan         contractx.OutreachPlan
	result       orchestratorx.CampaignResult
	err          error
	lastOwner    string
}

func (f *fakeCampaigns) Discover(ctx context.Context, profile string) (contractx.DiscoveryResponse, error) {
	return f.discoverResp, f.err
}

func (f *fakeCampaigns) PlanLeads(ctx context.Context, ownerID string, req contractx.PlanningRequest) (contractx.OutreachPlan, error) {
	f.lastOwner = ownerID
	return f.plan, f.err
}

func (f *fakeCampaigns) RunCampaign(ctx context.Context, req orchestratorx.CampaignRequest) (orchestratorx.CampaignResult, error) {
	f.lastOwner = req.OwnerID
	return f.result, f.err
}

func (f *fakeCampaigns) AcceptLeads(ctx context.Context, ownerID string, leads []contractx.Lead) ([]contractx.Record, error) {
	f.lastOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return make([]contractx.Record, len(leads)), nil
}

type fakeConversations struct {
	session   *statex.Session
	turn      conversationx.TurnResult
	voice     contractx.VoiceTurnResponse
	analysis  contractx.EmailAnalysisResponse
	err       error
	lastStart conversationx.StartRequest
	hub       *conversationx.PlaybackHub
}

func (f *fakeConversations) StartSession(ctx context.Context, req conversationx.StartRequest) (*statex.Session, error) {
	f.lastStart = req
	return f.session, f.err
}

func (f *fakeConversations) AdvanceTurn(ctx context.Context, id string, in conversationx.TurnInput) (conversationx.TurnResult, error) {
	return f.turn, f.err
}

func (f *fakeConversations) Hangup(ctx context.Context, id string) (*statex.Session, error) {
	return f.session, f.err
}

func (f *fakeConversations) Session(ctx context.Context, id string) (*statex.Session, error) {
	if f.session == nil || f.session.ID != id {
		return nil, fmt.Errorf("%w: %s", statex.ErrSessionNotFound, id)
	}
	return f.session, nil
}

func (f *fakeConversations) LeadSessions(ctx context.Context, leadID string) ([]*statex.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.session == nil || f.session.LeadID != leadID {
		return []*statex.Session{}, nil
	}
	return []*statex.Session{f.session}, nil
}

func (f *fakeConversations) VoiceTurn(ctx context.Context, req contractx.VoiceTurnRequest) (contractx.VoiceTurnResponse, error) {
	return f.voice, f.err
}

func (f *fakeConversations) AnalyzeEmail(ctx context.Context, req contractx.EmailAnalysisRequest) (contractx.EmailAnalysisResponse, error) {
	return f.analysis, f.err
}

func (f *fakeConversations) AttachPlayback(ctx context.Context, id string, sink conversationx.Sink) (*conversationx.Playback, error) {
	session, err := f.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.hub.Attach(id, sink, session.NextIndex()), nil
}

func (f *fakeConversations) DetachPlayback(id string, p *conversationx.Playback) {
	f.hub.Detach(id, p)
}

type fakeEscalations struct {
	items []contractx.EscalationItem
	res   escalationx.Resolution
	err   error
	last  escalationx.Decision
}

func (f *fakeEscalations) List(ctx context.Context) ([]contractx.EscalationItem, error) {
	return f.items, f.err
}

func (f *fakeEscalations) Resolve(ctx context.Context, sessionID string, d escalationx.Decision) (escalationx.Resolution, error) {
	f.last = d
	return f.res, f.err
}

type testServer struct {
	echo          *echo.Echo
	campaigns     *fakeCampaigns
	conversations *fakeConversations
	escalations   *fakeEscalations
	playback      *conversationx.PlaybackHub
}

func newTestServer() *testServer {
	hub := conversationx.NewPlaybackHub()
	ts := &testServer{
		echo:          echo.New(),
		campaigns:     &fakeCampaigns{},
		conversations: &fakeConversations{hub: hub},
		escalations:   &fakeEscalations{},
		playback:      hub,
	}
	NewHandler(Deps{
		Campaigns:     ts.campaigns,
		Conversations: ts.conversations,
		Escalations:   ts.escalations,
	}).RegisterRoutes(ts.echo)
	return ts
}

func (ts *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func TestDiscoverValidation(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	rec := ts.do(http.MethodPost, "/v1/discovery", `{"searchProfile":"  "}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDiscoverReturnsLeadsAndErrors(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.campaigns.discoverResp = contractx.DiscoveryResponse{
		Leads:  []contractx.Lead{{ID: "a", Name: "A", Contact: "a@x.com"}},
		Errors: []string{"source search failed: quota"},
	}

	rec := ts.do(http.MethodPost, "/v1/discovery", `{"searchProfile":"fintech CFOs, NYC"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got contractx.DiscoveryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Leads) != 1 || len(got.Errors) != 1 {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestPlanErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: fmt.Errorf("%w: duplicate lead", contractx.ErrValidation), want: http.StatusBadRequest},
		{name: "planning", err: fmt.Errorf("%w: schema", contractx.ErrPlanning), want: http.StatusBadGateway},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.campaigns.err = tt.err
			rec := ts.do(http.MethodPost, "/v1/plans", `{"campaignId":"c","leadProfile":[]}`, nil)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestPlanPassesOwnerHeader(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.campaigns.plan = contractx.OutreachPlan{CampaignID: "c", Steps: []contractx.OutreachPlanStep{}}
	rec := ts.do(http.MethodPost, "/v1/plans", `{"campaignId":"c","leadProfile":[]}`, map[string]string{OwnerHeader: "acme"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ts.campaigns.lastOwner != "acme" {
		t.Fatalf("owner not forwarded: %q", ts.campaigns.lastOwner)
	}
	if !strings.Contains(rec.Body.String(), `"steps":[]`) {
		t.Fatalf("expected empty steps array, got %s", rec.Body.String())
	}
}

func TestRunCampaignFlattensAdvisoryErrors(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.campaigns.result = orchestratorx.CampaignResult{
		Leads:            []contractx.Lead{},
		SourceErrors:     []*contractx.SourceError{{ProviderID: "search", Cause: errors.New("quota")}},
		EnrichmentErrors: []*contractx.EnrichmentError{},
	}

	rec := ts.do(http.MethodPost, "/v1/campaigns", `{"campaignId":"c","searchProfile":"p"}`, map[string]string{OwnerHeader: "acme"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got campaignResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.SourceErrors) != 1 || got.SourceErrors[0] != "source search failed: quota" {
		t.Fatalf("unexpected source errors %v", got.SourceErrors)
	}
	if ts.campaigns.lastOwner != "acme" {
		t.Fatalf("owner header not used, got %q", ts.campaigns.lastOwner)
	}
}

func TestVoiceTurnNullAudio(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.conversations.voice = contractx.VoiceTurnResponse{ReplyText: "Hi, this is Alex.", Warning: "speech synthesis failed"}

	rec := ts.do(http.MethodPost, "/v1/voice/turn", `{"latestUtterance":"hello"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"replyAudio":null`) {
		t.Fatalf("expected null audio, got %s", rec.Body.String())
	}
}

func TestStartSessionUsesOwnerHeader(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.conversations.session = statex.NewSession("s-1", "lead-1", contractx.ChannelEmail, 1, time.Now())

	rec := ts.do(http.MethodPost, "/v1/sessions", `{"leadId":"lead-1","channel":"EMAIL"}`, map[string]string{OwnerHeader: "acme"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ts.conversations.lastStart.OwnerID != "acme" {
		t.Fatalf("owner not forwarded: %+v", ts.conversations.lastStart)
	}
}

func TestAdvanceTurnTerminalConflict(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	s := statex.NewSession("s-1", "lead-1", contractx.ChannelCall, 1, time.Now())
	_ = s.Transition(statex.StatusEndedNormal, "done", time.Now())
	ts.conversations.turn = conversationx.TurnResult{Session: s, Terminal: true}
	ts.conversations.err = contractx.ErrSessionTerminal

	rec := ts.do(http.MethodPost, "/v1/sessions/s-1/turns", `{"text":"hello?"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	rec := ts.do(http.MethodGet, "/v1/sessions/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLeadSessions(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.conversations.session = statex.NewSession("s-1", "ada--acme", contractx.ChannelCall, 1, time.Now())

	rec := ts.do(http.MethodGet, "/v1/leads/ada--acme/sessions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Sessions []statex.Session `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sessions) != 1 || body.Sessions[0].ID != "s-1" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/v1/leads/nobody/sessions", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"sessions":[]`) {
		t.Fatalf("unexpected empty response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestResolveEscalation(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.escalations.res = escalationx.Resolution{SessionID: "s-1", Decision: escalationx.DecisionSendDraft, Resolved: true}

	rec := ts.do(http.MethodPost, "/v1/escalations/s-1/resolve", `{"decision":"SEND_DRAFT","body":"Edited reply"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ts.escalations.last.Kind != escalationx.DecisionSendDraft || ts.escalations.last.Body != "Edited reply" {
		t.Fatalf("unexpected decision %+v", ts.escalations.last)
	}
}

func TestResolveEscalationNotFound(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.escalations.err = fmt.Errorf("%w: s-9", contractx.ErrEscalationNotFound)

	rec := ts.do(http.MethodPost, "/v1/escalations/s-9/resolve", `{"decision":"MARK_NOT_INTERESTED"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListEscalationsEmpty(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	rec := ts.do(http.MethodGet, "/v1/escalations", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty items array, got %s", rec.Body.String())
	}
}

func TestPlaybackStreamsTurnsInOrder(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.conversations.session = statex.NewSession("s-1", "lead-1", contractx.ChannelCall, 1, time.Now())

	server := httptest.NewServer(ts.echo)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/sessions/s-1/playback"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for !ts.playback.Attached("s-1") {
		if time.Now().After(deadline) {
			t.Fatal("playback leg never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx := context.Background()
	_ = ts.playback.Deliver(ctx, "s-1", contractx.ConversationTurn{Index: 2, Role: contractx.RoleAgent, Text: "second", Audio: []byte("b")})
	_ = ts.playback.Deliver(ctx, "s-1", contractx.ConversationTurn{Index: 0, Role: contractx.RoleAgent, Text: "first"})
	_ = ts.playback.Deliver(ctx, "s-1", contractx.ConversationTurn{Index: 1, Role: contractx.RoleCounterparty, Text: "hi"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frames []playbackFrame
	for len(frames) < 2 {
		var f playbackFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		frames = append(frames, f)
	}
	if frames[0].Index != 0 || frames[0].Audio != nil {
		t.Fatalf("unexpected first frame %+v", frames[0])
	}
	if frames[1].Index != 2 || frames[1].Audio == nil || *frames[1].Audio != "Yg==" {
		t.Fatalf("unexpected second frame %+v", frames[1])
	}
}
