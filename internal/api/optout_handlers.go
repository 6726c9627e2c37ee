package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lensdesk/lensdesk/internal/metrics"
	"github.com/lensdesk/lensdesk/internal/pkg/logger"
)

// OptOutRequest is the request body for an explicit opt-out.
type OptOutRequest struct {
	Reason string `json:"reason,omitempty"`
}

// OptOutCustomer records a marketing opt-out for a customer and cancels
// their active enrollments.
//
//	POST /api/customers/{customerID}/opt-out
func (h *Handlers) OptOutCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, chi.URLParam(r, "customerID"))
	if !ok {
		return
	}
	var req OptOutRequest
	if r.Body != nil {
		// Body is optional; a bare POST opts out with no reason.
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.gate.ProcessOptOut(r.Context(), id, "API", req.Reason); err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, "customer not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.OptOutsTotal.WithLabelValues("API").Inc()
	respondJSON(w, http.StatusOK, map[string]string{"status": "opted_out"})
}

// stopKeywords are the inbound SMS bodies treated as opt-out requests,
// matching carrier-mandated keyword handling.
var stopKeywords = map[string]bool{
	"STOP":        true,
	"STOPALL":     true,
	"UNSUBSCRIBE": true,
	"CANCEL":      true,
	"END":         true,
	"QUIT":        true,
}

// InboundSMS handles the Twilio inbound message webhook. STOP-family
// keywords opt the sender out; everything else is acknowledged and dropped.
// Always responds with empty TwiML so Twilio does not auto-reply.
//
//	POST /webhooks/sms
func (h *Handlers) InboundSMS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	from := r.PostFormValue("From")
	body := strings.ToUpper(strings.TrimSpace(r.PostFormValue("Body")))

	if from != "" && stopKeywords[body] {
		h.processSMSStop(r, from, body)
	}

	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
}

func (h *Handlers) processSMSStop(r *http.Request, from, keyword string) {
	var customerID uuid.UUID
	err := h.db.QueryRowContext(r.Context(),
		`SELECT id FROM customers WHERE phone = $1`, from).Scan(&customerID)
	if err == sql.ErrNoRows {
		logger.Info("sms stop from unknown number", "phone", from)
		return
	}
	if err != nil {
		log.Printf("[InboundSMS] Customer lookup failed: %v", err)
		return
	}

	if err := h.gate.ProcessOptOut(r.Context(), customerID, "SMS_STOP", keyword); err != nil {
		log.Printf("[InboundSMS] Opt-out failed for %s: %v", customerID, err)
		return
	}
	metrics.OptOutsTotal.WithLabelValues("SMS_STOP").Inc()
}
