package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	conversationx "github.com/tanpawarit/outreach-orchestrator/agent/agents/conversation"
	orchestratorx "github.com/tanpawarit/outreach-orchestrator/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	escalationx "github.com/tanpawarit/outreach-orchestrator/agent/escalation"
	statex "github.com/tanpawarit/outreach-orchestrator/agent/state"
)

// OwnerHeader scopes persisted records to one account.
const OwnerHeader = "X-Owner-ID"

type Campaigns interface {
	Discover(ctx context.Context, profile string) (contractx.DiscoveryResponse, error)
	PlanLeads(ctx context.Context, ownerID string, req contractx.PlanningRequest) (contractx.OutreachPlan, error)
	RunCampaign(ctx context.Context, req orchestratorx.CampaignRequest) (orchestratorx.CampaignResult, error)
	AcceptLeads(ctx context.Context, ownerID string, leads []contractx.Lead) ([]contractx.Record, error)
}

type Conversations interface {
	StartSession(ctx context.Context, req conversationx.StartRequest) (*statex.Session, error)
	AdvanceTurn(ctx context.Context, sessionID string, input conversationx.TurnInput) (conversationx.TurnResult, error)
	Hangup(ctx context.Context, sessionID string) (*statex.Session, error)
	Session(ctx context.Context, sessionID string) (*statex.Session, error)
	LeadSessions(ctx context.Context, leadID string) ([]*statex.Session, error)
	VoiceTurn(ctx context.Context, req contractx.VoiceTurnRequest) (contractx.VoiceTurnResponse, error)
	AnalyzeEmail(ctx context.Context, req contractx.EmailAnalysisRequest) (contractx.EmailAnalysisResponse, error)
	AttachPlayback(ctx context.Context, sessionID string, sink conversationx.Sink) (*conversationx.Playback, error)
	DetachPlayback(sessionID string, p *conversationx.Playback)
}

type Escalations interface {
	List(ctx context.Context) ([]contractx.EscalationItem, error)
	Resolve(ctx context.Context, sessionID string, decision escalationx.Decision) (escalationx.Resolution, error)
}

type Deps struct {
	Campaigns     Campaigns
	Conversations Conversations
	Escalations   Escalations
	Records       contractx.RecordStore
}

type Handler struct {
	campaigns     Campaigns
	conversations Conversations
	escalations   Escalations
	records       contractx.RecordStore

	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		campaigns:     deps.Campaigns,
		conversations: deps.Conversations,
		escalations:   deps.Escalations,
		records:       deps.Records,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		writeTimeout: 10 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")

	v1.POST("/discovery", h.Discover)
	v1.POST("/plans", h.Plan)
	v1.POST("/campaigns", h.RunCampaign)
	v1.POST("/leads/accept", h.AcceptLeads)
	v1.GET("/records/:kind", h.ListRecords)

	v1.POST("/voice/turn", h.VoiceTurn)
	v1.POST("/email/analyze", h.AnalyzeEmail)

	v1.POST("/sessions", h.StartSession)
	v1.GET("/sessions/:id", h.GetSession)
	v1.POST("/sessions/:id/turns", h.AdvanceTurn)
	v1.POST("/sessions/:id/hangup", h.Hangup)
	v1.GET("/sessions/:id/playback", h.Playback)
	v1.GET("/leads/:lead_id/sessions", h.LeadSessions)

	v1.GET("/escalations", h.ListEscalations)
	v1.POST("/escalations/:session_id/resolve", h.ResolveEscalation)
}

func ownerID(c echo.Context) string {
	return c.Request().Header.Get(OwnerHeader)
}
