package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/lensdesk/lensdesk/internal/campaign"
	"github.com/lensdesk/lensdesk/internal/consent"
	"github.com/lensdesk/lensdesk/internal/notify"
	"github.com/lensdesk/lensdesk/internal/segment"
)

// CampaignProcessor runs a single campaign's drip pass on demand.
type CampaignProcessor interface {
	ProcessCampaign(ctx context.Context, campaignID uuid.UUID) (*campaign.RunResult, error)
}

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	db        *sql.DB
	store     *campaign.Store
	evaluator *segment.Evaluator
	processor CampaignProcessor
	gate      *consent.Gate
	notifier  *notify.PGNotifier
}

// NewHandlers creates the handler set.
func NewHandlers(
	db *sql.DB,
	store *campaign.Store,
	evaluator *segment.Evaluator,
	processor CampaignProcessor,
	gate *consent.Gate,
	notifier *notify.PGNotifier,
) *Handlers {
	return &Handlers{
		db:        db,
		store:     store,
		evaluator: evaluator,
		processor: processor,
		gate:      gate,
		notifier:  notifier,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// urlUUID parses a uuid path parameter, writing a 400 on failure.
func urlUUID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
