// Package notify records operational notifications for the practice staff
// dashboard (campaign completions and failures).
package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the campaign engine.
const (
	CampaignCompleted = "CAMPAIGN_COMPLETED"
	CampaignError     = "CAMPAIGN_ERROR"
)

// Notifier records notifications.
type Notifier interface {
	Notify(ctx context.Context, notifType string, refID uuid.UUID, detail string)
}

// PGNotifier writes notifications to the notifications table. Failures are
// logged and swallowed: a lost notification must never fail a campaign run.
type PGNotifier struct {
	db *sql.DB
}

// NewPGNotifier creates a Postgres-backed notifier.
func NewPGNotifier(db *sql.DB) *PGNotifier {
	return &PGNotifier{db: db}
}

// Notify inserts one notification row.
func (n *PGNotifier) Notify(ctx context.Context, notifType string, refID uuid.UUID, detail string) {
	_, err := n.db.ExecContext(ctx,
		`INSERT INTO notifications (id, notif_type, ref_id, detail) VALUES ($1, $2, $3, $4)`,
		uuid.New(), notifType, refID, detail)
	if err != nil {
		log.Printf("[Notifier] Failed to record %s for %s: %v", notifType, refID, err)
	}
}

// Recent returns the latest notifications, newest first.
func (n *PGNotifier) Recent(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := n.db.QueryContext(ctx,
		`SELECT id, notif_type, ref_id, COALESCE(detail, ''), created_at
		 FROM notifications ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var item Notification
		var ref sql.NullString
		if err := rows.Scan(&item.ID, &item.Type, &ref, &item.Detail, &item.CreatedAt); err != nil {
			return nil, err
		}
		if ref.Valid {
			if id, perr := uuid.Parse(ref.String); perr == nil {
				item.RefID = &id
			}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Notification is one recorded event.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	RefID     *uuid.UUID `json:"ref_id,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
