package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	orchestratorx "github.com/tanpawarit/outreach-orchestrator/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

// Discover runs every lead source for a search profile.
// POST /v1/discovery
func (h *Handler) Discover(c echo.Context) error {
	var req contractx.DiscoveryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.SearchProfile) == "" {
		return badRequest(c, "searchProfile is required")
	}

	resp, err := h.campaigns.Discover(c.Request().Context(), req.SearchProfile)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Plan enriches and plans a supplied lead batch.
// POST /v1/plans
func (h *Handler) Plan(c echo.Context) error {
	var req contractx.PlanningRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		return badRequest(c, "campaignId is required")
	}

	plan, err := h.campaigns.PlanLeads(c.Request().Context(), ownerID(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

type campaignResponse struct {
	Leads            []contractx.Lead        `json:"leads"`
	Plan             *contractx.OutreachPlan `json:"plan"`
	SourceErrors     []string                `json:"sourceErrors"`
	EnrichmentErrors []string                `json:"enrichmentErrors"`
}

// RunCampaign runs discovery, enrichment and planning in one call.
// POST /v1/campaigns
func (h *Handler) RunCampaign(c echo.Context) error {
	var req orchestratorx.CampaignRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		req.OwnerID = ownerID(c)
	}

	out, err := h.campaigns.RunCampaign(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	resp := campaignResponse{
		Leads:            out.Leads,
		Plan:             out.Plan,
		SourceErrors:     make([]string, 0, len(out.SourceErrors)),
		EnrichmentErrors: make([]string, 0, len(out.EnrichmentErrors)),
	}
	for _, e := range out.SourceErrors {
		resp.SourceErrors = append(resp.SourceErrors, e.Error())
	}
	for _, e := range out.EnrichmentErrors {
		resp.EnrichmentErrors = append(resp.EnrichmentErrors, e.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

type acceptLeadsRequest struct {
	Leads []contractx.Lead `json:"leads"`
}

// AcceptLeads stores leads the operator accepted.
// POST /v1/leads/accept
func (h *Handler) AcceptLeads(c echo.Context) error {
	var req acceptLeadsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	recs, err := h.campaigns.AcceptLeads(c.Request().Context(), ownerID(c), req.Leads)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"accepted": len(recs)})
}

// ListRecords returns the caller's records of one collection.
// GET /v1/records/:kind
func (h *Handler) ListRecords(c echo.Context) error {
	owner := strings.TrimSpace(ownerID(c))
	if owner == "" {
		return badRequest(c, OwnerHeader+" header is required")
	}
	if h.records == nil {
		return c.JSON(http.StatusOK, map[string]any{"records": []contractx.Record{}})
	}

	recs, err := h.records.QueryRecords(c.Request().Context(), contractx.CollectionKind(c.Param("kind")), owner)
	if err != nil {
		return writeError(c, err)
	}
	if recs == nil {
		recs = []contractx.Record{}
	}
	return c.JSON(http.StatusOK, map[string]any{"records": recs})
}
