// Package dispatch persists and sends individual campaign messages.
// A message row is written PENDING before any network call so every send
// attempt leaves an audit trail, then flipped to SENT or FAILED.
package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/lensdesk/lensdesk/internal/campaign"
	"github.com/lensdesk/lensdesk/internal/metrics"
	"github.com/lensdesk/lensdesk/internal/transport"
)

// Request describes one message to deliver.
type Request struct {
	CampaignID *uuid.UUID
	CustomerID uuid.UUID
	Channel    campaign.Channel
	To         string
	Subject    string
	Body       string
}

// Dispatcher routes messages to the right transport with a circuit breaker
// per channel. There is no retry here: the campaign engine simply does not
// advance a recipient whose send failed, so the next run retries naturally.
type Dispatcher struct {
	db       *sql.DB
	senders  map[campaign.Channel]transport.Sender
	breakers map[campaign.Channel]*gobreaker.CircuitBreaker
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher over the given channel senders.
func NewDispatcher(db *sql.DB, senders map[campaign.Channel]transport.Sender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	breakers := make(map[campaign.Channel]*gobreaker.CircuitBreaker, len(senders))
	for ch := range senders {
		breakers[ch] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(ch),
			MaxRequests: 3,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 10 },
		})
	}
	return &Dispatcher{db: db, senders: senders, breakers: breakers, timeout: timeout}
}

// Dispatch records and sends one message. The returned message ID is valid
// even when the send failed; err carries the transport failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (uuid.UUID, error) {
	msgID := uuid.New()

	sender, ok := d.senders[req.Channel]
	if !ok {
		return msgID, fmt.Errorf("no sender configured for channel %s", req.Channel)
	}

	var campaignID interface{}
	if req.CampaignID != nil {
		campaignID = *req.CampaignID
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO messages (id, campaign_id, customer_id, channel, recipient, subject, body, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'PENDING')`,
		msgID, campaignID, req.CustomerID, req.Channel, req.To, req.Subject, req.Body)
	if err != nil {
		return msgID, fmt.Errorf("insert message: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ref, sendErr := d.breakers[req.Channel].Execute(func() (interface{}, error) {
		return sender.Send(sendCtx, transport.Message{To: req.To, Subject: req.Subject, Body: req.Body})
	})

	if sendErr != nil {
		metrics.MessagesTotal.WithLabelValues(string(req.Channel), "failed").Inc()
		if _, uerr := d.db.ExecContext(ctx,
			`UPDATE messages SET status = 'FAILED', error = $1 WHERE id = $2`,
			sendErr.Error(), msgID); uerr != nil {
			return msgID, fmt.Errorf("send failed (%v) and mark failed: %w", sendErr, uerr)
		}
		return msgID, sendErr
	}

	providerRef, _ := ref.(string)
	metrics.MessagesTotal.WithLabelValues(string(req.Channel), "sent").Inc()
	_, err = d.db.ExecContext(ctx,
		`UPDATE messages SET status = 'SENT', provider_ref = $1, sent_at = NOW() WHERE id = $2`,
		providerRef, msgID)
	if err != nil {
		return msgID, fmt.Errorf("mark sent: %w", err)
	}
	return msgID, nil
}
