package contract

import (
	"regexp"
	"strings"
	"time"
)

type AgentType string

const (
	AgentTypePlanner AgentType = "planner"
	AgentTypeCaller  AgentType = "caller"
	AgentTypeEmail   AgentType = "email"
	AgentTypeScout   AgentType = "scout"
)

/* --------------------------------- Leads --------------------------------- */

// RawLead is a single candidate record as returned by one lead source.
type RawLead struct {
	ProviderID string `json:"provider_id"`
	Name       string `json:"name"`
	Company    string `json:"company"`
	Contact    string `json:"contact"`
	JobTitle   string `json:"job_title,omitempty"`
}

// ContactKey is the dedup key: the contact value trimmed and lowercased.
func (r RawLead) ContactKey() string {
	return strings.ToLower(strings.TrimSpace(r.Contact))
}

type Enrichment struct {
	LinkedIn   string   `json:"linkedin,omitempty"`
	JobTitle   string   `json:"job_title,omitempty"`
	Interests  []string `json:"interests,omitempty"`
	RecentNews string   `json:"recent_news,omitempty"`
}

func (e *Enrichment) IsEmpty() bool {
	return e == nil || (e.LinkedIn == "" && e.JobTitle == "" && len(e.Interests) == 0 && e.RecentNews == "")
}

// FillFrom copies values from other into fields that are still empty.
func (e *Enrichment) FillFrom(other *Enrichment) {
	if e == nil || other == nil {
		return
	}
	if e.LinkedIn == "" {
		e.LinkedIn = strings.TrimSpace(other.LinkedIn)
	}
	if e.JobTitle == "" {
		e.JobTitle = strings.TrimSpace(other.JobTitle)
	}
	if len(e.Interests) == 0 && len(other.Interests) > 0 {
		e.Interests = append([]string(nil), other.Interests...)
	}
	if e.RecentNews == "" {
		e.RecentNews = strings.TrimSpace(other.RecentNews)
	}
}

func (e *Enrichment) Clone() *Enrichment {
	if e == nil {
		return nil
	}
	out := *e
	out.Interests = append([]string(nil), e.Interests...)
	return &out
}

type Lead struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Company    string      `json:"company"`
	Contact    string      `json:"contact"`
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

func (l Lead) Clone() Lead {
	l.Enrichment = l.Enrichment.Clone()
	return l
}

var leadIDInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// LeadID derives a lead id from name and company.
func LeadID(name, company string) string {
	slug := func(s string) string {
		return strings.Trim(leadIDInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
	}
	n, c := slug(name), slug(company)
	switch {
	case n == "" && c == "":
		return "lead"
	case c == "":
		return n
	case n == "":
		return c
	}
	return n + "--" + c
}

/* --------------------------------- Plans --------------------------------- */

type Action string

const (
	ActionEmail     Action = "EMAIL"
	ActionCall      Action = "CALL"
	ActionFollowUp  Action = "FOLLOW_UP"
	ActionDoNothing Action = "DO_NOTHING"
)

func (a Action) Valid() bool {
	switch a {
	case ActionEmail, ActionCall, ActionFollowUp, ActionDoNothing:
		return true
	}
	return false
}

type OutreachPlanStep struct {
	LeadID     string      `json:"lead_id"`
	Action     Action      `json:"action"`
	Reasoning  string      `json:"reasoning"`
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

type OutreachPlan struct {
	ID         string             `json:"id,omitempty"`
	CampaignID string             `json:"campaign_id"`
	Steps      []OutreachPlanStep `json:"steps"`
	CreatedAt  time.Time          `json:"created_at"`
}

/* ----------------------------- Conversations ----------------------------- */

type Role string

const (
	RoleAgent        Role = "AGENT"
	RoleCounterparty Role = "COUNTERPARTY"
)

type Channel string

const (
	ChannelCall  Channel = "CALL"
	ChannelEmail Channel = "EMAIL"
)

func (c Channel) Valid() bool {
	return c == ChannelCall || c == ChannelEmail
}

type ConversationTurn struct {
	Index int    `json:"index"`
	Role  Role   `json:"role"`
	Text  string `json:"text"`
	Audio []byte `json:"audio,omitempty"`
}

type SuggestedAction string

const (
	SuggestedRepliedAutomatically SuggestedAction = "REPLIED_AUTOMATICALLY"
	SuggestedMeetingScheduled     SuggestedAction = "MEETING_SCHEDULED"
	SuggestedNotInterested        SuggestedAction = "MARK_AS_NOT_INTERESTED"
	SuggestedNeedsAttention       SuggestedAction = "NEEDS_ATTENTION"
)

func (a SuggestedAction) Valid() bool {
	switch a {
	case SuggestedRepliedAutomatically, SuggestedMeetingScheduled, SuggestedNotInterested, SuggestedNeedsAttention:
		return true
	}
	return false
}

type EscalationItem struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	LeadID          string          `json:"lead_id,omitempty"`
	Contact         string          `json:"contact,omitempty"`
	Reason          string          `json:"reason"`
	SuggestedAction SuggestedAction `json:"suggested_action,omitempty"`
	DraftReply      string          `json:"draft_reply,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

/* ------------------------------ Requests ------------------------------ */

type DiscoveryRequest struct {
	SearchProfile string `json:"searchProfile"`
}

type DiscoveryResponse struct {
	Leads  []Lead   `json:"leads"`
	Errors []string `json:"errors"`
}

type PlanningRequest struct {
	CampaignID          string `json:"campaignId"`
	SolutionDescription string `json:"solutionDescription"`
	LeadProfile         []Lead `json:"leadProfile"`
}

// LeadProfile is the lead context handed to the conversational agents.
type LeadProfile struct {
	Name       string      `json:"name"`
	Company    string      `json:"company"`
	Contact    string      `json:"contact,omitempty"`
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

func ProfileOf(l Lead) LeadProfile {
	return LeadProfile{Name: l.Name, Company: l.Company, Contact: l.Contact, Enrichment: l.Enrichment}
}

type VoiceTurnRequest struct {
	SolutionDescription string             `json:"solutionDescription"`
	LeadProfile         LeadProfile        `json:"leadProfile"`
	CallScript          string             `json:"callScript"`
	History             []ConversationTurn `json:"history"`
	LatestUtterance     string             `json:"latestUtterance"`
}

// VoiceReply is the generation result for one agent turn on a call.
type VoiceReply struct {
	Text    string `json:"text"`
	EndCall bool   `json:"end_call"`
}

type VoiceTurnResponse struct {
	ReplyText  string  `json:"replyText"`
	ReplyAudio *string `json:"replyAudio"`
	EndCall    bool    `json:"endCall,omitempty"`
	Warning    string  `json:"warning,omitempty"`
}

type EmailMessage struct {
	From    string `json:"from"`
	Content string `json:"content"`
}

type EmailAnalysisRequest struct {
	SolutionDescription string         `json:"solutionDescription"`
	LeadProfile         LeadProfile    `json:"leadProfile"`
	Thread              []EmailMessage `json:"thread"`
}

type EmailAnalysisResponse struct {
	DraftReplyBody  string          `json:"draftReplyBody"`
	SuggestedAction SuggestedAction `json:"suggestedAction"`
	Reason          string          `json:"reason,omitempty"`
}

/* ------------------------------ Persistence ------------------------------ */

type CollectionKind string

const (
	CollectionLeads     CollectionKind = "leads"
	CollectionPlans     CollectionKind = "plans"
	CollectionCallLogs  CollectionKind = "call_logs"
	CollectionEmailLogs CollectionKind = "email_logs"
)

type Record struct {
	ID        string         `json:"id"`
	Kind      CollectionKind `json:"kind"`
	OwnerID   string         `json:"owner_id"`
	Data      []byte         `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}
