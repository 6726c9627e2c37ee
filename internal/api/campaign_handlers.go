package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lensdesk/lensdesk/internal/campaign"
	"github.com/lensdesk/lensdesk/internal/drip"
	"github.com/lensdesk/lensdesk/internal/segment"

	"github.com/google/uuid"
)

// CreateCampaignRequest is the request body for creating a campaign.
type CreateCampaignRequest struct {
	Name    string              `json:"name"`
	Type    campaign.Type       `json:"campaign_type"`
	Segment *segment.Definition `json:"segment,omitempty"`
}

// CreateCampaign creates a new campaign in DRAFT status.
//
//	POST /api/campaigns
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, ok := drip.ConfigFor(req.Type); !ok {
		respondError(w, http.StatusBadRequest, "unknown campaign type: "+string(req.Type))
		return
	}

	var segmentJSON []byte
	if req.Segment != nil {
		var err error
		segmentJSON, err = json.Marshal(req.Segment)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid segment definition")
			return
		}
	}

	c, err := h.store.Create(r.Context(), req.Name, req.Type, segmentJSON)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// ListCampaigns returns campaigns, optionally filtered by status.
//
//	GET /api/campaigns?status=ACTIVE
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	status := campaign.Status(r.URL.Query().Get("status"))
	if status == "" {
		// Default to the working set: everything that isn't archived.
		var all []*campaign.Campaign
		for _, s := range []campaign.Status{campaign.StatusDraft, campaign.StatusActive, campaign.StatusPaused} {
			cs, err := h.store.ListByStatus(r.Context(), s)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			all = append(all, cs...)
		}
		if all == nil {
			all = []*campaign.Campaign{}
		}
		respondJSON(w, http.StatusOK, all)
		return
	}

	cs, err := h.store.ListByStatus(r.Context(), status)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cs == nil {
		cs = []*campaign.Campaign{}
	}
	respondJSON(w, http.StatusOK, cs)
}

// GetCampaign returns a single campaign with its counters.
//
//	GET /api/campaigns/{campaignID}
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	c, err := h.store.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// transition applies a guarded status change. The guard statuses mirror the
// Campaign.Can* predicates so a concurrent change cannot skip a state.
func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, to campaign.Status, from ...campaign.Status) {
	id, ok := urlUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	if err := h.store.UpdateStatus(r.Context(), id, to, from...); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(to)})
}

// ActivateCampaign moves a DRAFT or PAUSED campaign to ACTIVE.
//
//	POST /api/campaigns/{campaignID}/activate
func (h *Handlers) ActivateCampaign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, campaign.StatusActive, campaign.StatusDraft, campaign.StatusPaused)
}

// PauseCampaign moves an ACTIVE campaign to PAUSED.
//
//	POST /api/campaigns/{campaignID}/pause
func (h *Handlers) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, campaign.StatusPaused, campaign.StatusActive)
}

// ArchiveCampaign moves any non-archived campaign to ARCHIVED.
//
//	POST /api/campaigns/{campaignID}/archive
func (h *Handlers) ArchiveCampaign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, campaign.StatusArchived,
		campaign.StatusDraft, campaign.StatusActive, campaign.StatusPaused)
}

// RunCampaign triggers an immediate processing pass for one campaign.
//
//	POST /api/campaigns/{campaignID}/run
func (h *Handlers) RunCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	result, err := h.processor.ProcessCampaign(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// EnrollRequest is the request body for manual enrollment.
type EnrollRequest struct {
	CustomerIDs []uuid.UUID `json:"customer_ids"`
}

// EnrollCustomers manually enrolls customers into a campaign. Customers
// already enrolled are skipped.
//
//	POST /api/campaigns/{campaignID}/enroll
func (h *Handlers) EnrollCustomers(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.CustomerIDs) == 0 {
		respondError(w, http.StatusBadRequest, "customer_ids is required")
		return
	}

	c, err := h.store.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	enrolled, err := h.store.Enroll(r.Context(), id, req.CustomerIDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"enrolled": enrolled,
		"skipped":  len(req.CustomerIDs) - enrolled,
	})
}

// ListCampaignRuns returns the most recent runs for a campaign.
//
//	GET /api/campaigns/{campaignID}/runs?limit=20
func (h *Handlers) ListCampaignRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	runs, err := h.store.ListRuns(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*campaign.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// campaignTypeInfo describes one preset for the catalog endpoint.
type campaignTypeInfo struct {
	Type             campaign.Type       `json:"campaign_type"`
	Steps            int                 `json:"steps"`
	Channels         []campaign.Channel  `json:"channels"`
	StopOnConversion bool                `json:"stop_on_conversion"`
	EnrollmentMode   drip.EnrollmentMode `json:"enrollment_mode"`
}

// ListCampaignTypes returns the catalog of preset campaign types.
//
//	GET /api/campaign-types
func (h *Handlers) ListCampaignTypes(w http.ResponseWriter, r *http.Request) {
	types := drip.Types()
	out := make([]campaignTypeInfo, 0, len(types))
	for _, t := range types {
		cfg, _ := drip.ConfigFor(t)
		channels := make([]campaign.Channel, 0, len(cfg.Steps))
		for _, s := range cfg.Steps {
			channels = append(channels, s.Channel)
		}
		out = append(out, campaignTypeInfo{
			Type:             t,
			Steps:            len(cfg.Steps),
			Channels:         channels,
			StopOnConversion: cfg.StopOnConversion,
			EnrollmentMode:   cfg.EnrollmentMode,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// ListNotifications returns recent engine notifications.
//
//	GET /api/notifications?limit=50
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	notifs, err := h.notifier.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, notifs)
}
