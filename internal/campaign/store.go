package campaign

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store handles campaign persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a campaign store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const campaignColumns = `id, name, campaign_type, status, segment_json,
	total_enrolled, total_sent, total_delivered, total_converted, total_revenue,
	last_run_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*Campaign, error) {
	var c Campaign
	var segment sql.NullString
	var lastRun sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Status, &segment,
		&c.TotalEnrolled, &c.TotalSent, &c.TotalDelivered, &c.TotalConverted, &c.TotalRevenue,
		&lastRun, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if segment.Valid {
		c.SegmentJSON = []byte(segment.String)
	}
	if lastRun.Valid {
		c.LastRunAt = &lastRun.Time
	}
	return &c, nil
}

// Get returns a campaign by ID, or (nil, nil) if it does not exist.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// Create inserts a new campaign in DRAFT status.
func (s *Store) Create(ctx context.Context, name string, ctype Type, segmentJSON []byte) (*Campaign, error) {
	c := &Campaign{
		ID:     uuid.New(),
		Name:   name,
		Type:   ctype,
		Status: StatusDraft,
	}
	var segment interface{}
	if len(segmentJSON) > 0 {
		c.SegmentJSON = segmentJSON
		segment = string(segmentJSON)
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO campaigns (id, name, campaign_type, status, segment_json)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Type, c.Status, segment).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return c, nil
}

// ListByStatus returns campaigns in the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []*Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a campaign's status. The fromStatuses guard keeps
// concurrent transitions from clobbering each other; a zero-row update means
// the campaign was not in an allowed source state.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, fromStatuses ...Status) error {
	from := make([]string, len(fromStatuses))
	for i, st := range fromStatuses {
		from[i] = string(st)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = ANY($3)`,
		to, id, pq.Array(from))
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("campaign %s: transition to %s not allowed", id, to)
	}
	return nil
}

// CreateRun inserts a new run row for a campaign.
func (s *Store) CreateRun(ctx context.Context, campaignID uuid.UUID) (*Run, error) {
	r := &Run{ID: uuid.New(), CampaignID: campaignID}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO campaign_runs (id, campaign_id) VALUES ($1, $2) RETURNING started_at`,
		r.ID, r.CampaignID).Scan(&r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return r, nil
}

// FinalizeRun records the final counters, elapsed time and finish time of a run.
func (s *Store) FinalizeRun(ctx context.Context, r *Run) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaign_runs
		 SET finished_at = NOW(), recipients_found = $1, enrolled_count = $2,
		     sent_count = $3, failed_count = $4, converted_count = $5, duration_ms = $6
		 WHERE id = $7`,
		r.RecipientsFound, r.EnrolledCount, r.SentCount, r.FailedCount, r.ConvertedCount, r.DurationMs, r.ID)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	return nil
}

// AnnotateRunError stamps an error message and finish time on a run.
func (s *Store) AnnotateRunError(ctx context.Context, runID uuid.UUID, msg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaign_runs SET finished_at = NOW(), error = $1 WHERE id = $2`,
		msg, runID)
	return err
}

// ListRuns returns the most recent runs for a campaign.
func (s *Store) ListRuns(ctx context.Context, campaignID uuid.UUID, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, campaign_id, started_at, finished_at, recipients_found,
		        enrolled_count, sent_count, failed_count, converted_count,
		        duration_ms, COALESCE(error, '')
		 FROM campaign_runs WHERE campaign_id = $1
		 ORDER BY started_at DESC LIMIT $2`, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.CampaignID, &r.StartedAt, &finished, &r.RecipientsFound,
			&r.EnrolledCount, &r.SentCount, &r.FailedCount, &r.ConvertedCount,
			&r.DurationMs, &r.Error); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Enroll inserts recipients for the given customers, skipping any customer
// already enrolled in this campaign. Returns the number of new enrollments.
func (s *Store) Enroll(ctx context.Context, campaignID uuid.UUID, customerIDs []uuid.UUID) (int, error) {
	if len(customerIDs) == 0 {
		return 0, nil
	}

	// Multi-row VALUES insert; ON CONFLICT keeps re-enrollment idempotent.
	var sb strings.Builder
	sb.WriteString(`INSERT INTO campaign_recipients (id, campaign_id, customer_id, status, current_step) VALUES `)
	args := make([]interface{}, 0, len(customerIDs)*3)
	n := 0
	for i, custID := range customerIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, 'ACTIVE', 0)", n+1, n+2, n+3))
		args = append(args, uuid.New(), campaignID, custID)
		n += 3
	}
	sb.WriteString(` ON CONFLICT (campaign_id, customer_id) DO NOTHING`)

	res, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("enroll recipients: %w", err)
	}
	inserted64, _ := res.RowsAffected()
	inserted := int(inserted64)

	if inserted > 0 {
		_, err = s.db.ExecContext(ctx,
			`UPDATE campaigns SET total_enrolled = total_enrolled + $1, updated_at = NOW() WHERE id = $2`,
			inserted, campaignID)
		if err != nil {
			return inserted, fmt.Errorf("bump enrolled counter: %w", err)
		}
	}
	return inserted, nil
}

// ListActiveRecipients returns all ACTIVE recipients of a campaign, oldest
// enrollment first.
func (s *Store) ListActiveRecipients(ctx context.Context, campaignID uuid.UUID) ([]*Recipient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, campaign_id, customer_id, status, current_step,
		        last_message_at, enrolled_at
		 FROM campaign_recipients
		 WHERE campaign_id = $1 AND status = 'ACTIVE'
		 ORDER BY enrolled_at`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []*Recipient
	for rows.Next() {
		var r Recipient
		var lastMsg sql.NullTime
		if err := rows.Scan(&r.ID, &r.CampaignID, &r.CustomerID, &r.Status,
			&r.CurrentStep, &lastMsg, &r.EnrolledAt); err != nil {
			return nil, err
		}
		if lastMsg.Valid {
			r.LastMessageAt = &lastMsg.Time
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// AdvanceRecipient moves an ACTIVE recipient to the next step after a
// successful send.
func (s *Store) AdvanceRecipient(ctx context.Context, recipientID uuid.UUID, nextStep int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaign_recipients
		 SET current_step = $1, last_message_at = NOW()
		 WHERE id = $2 AND status = 'ACTIVE'`,
		nextStep, recipientID)
	if err != nil {
		return fmt.Errorf("advance recipient: %w", err)
	}
	return nil
}

// CompleteRecipient marks an ACTIVE recipient COMPLETED after its final step.
func (s *Store) CompleteRecipient(ctx context.Context, recipientID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaign_recipients
		 SET status = 'COMPLETED', completed_at = NOW(), last_message_at = NOW()
		 WHERE id = $1 AND status = 'ACTIVE'`,
		recipientID)
	if err != nil {
		return fmt.Errorf("complete recipient: %w", err)
	}
	return nil
}

// ConvertRecipient marks an ACTIVE recipient CONVERTED with the order value
// that triggered the conversion. Returns false if the recipient was already
// in a terminal state.
func (s *Store) ConvertRecipient(ctx context.Context, recipientID uuid.UUID, value float64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaign_recipients
		 SET status = 'CONVERTED', converted_at = NOW(), conversion_value = $1
		 WHERE id = $2 AND status = 'ACTIVE'`,
		value, recipientID)
	if err != nil {
		return false, fmt.Errorf("convert recipient: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// FindConversion looks for the earliest qualifying order a customer placed
// after enrollment. Draft and cancelled orders never qualify.
func (s *Store) FindConversion(ctx context.Context, customerID uuid.UUID, enrolledAt time.Time) (float64, bool, error) {
	var value float64
	err := s.db.QueryRowContext(ctx,
		`SELECT total FROM orders
		 WHERE customer_id = $1
		   AND status NOT IN ('DRAFT', 'CANCELLED')
		   AND created_at > $2
		 ORDER BY created_at
		 LIMIT 1`, customerID, enrolledAt).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find conversion: %w", err)
	}
	return value, true, nil
}

// TouchLastRun stamps a campaign's last_run_at. Runs that dispatch nothing
// still count as runs.
func (s *Store) TouchLastRun(ctx context.Context, campaignID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET last_run_at = NOW(), updated_at = NOW() WHERE id = $1`,
		campaignID)
	if err != nil {
		return fmt.Errorf("touch last run: %w", err)
	}
	return nil
}

// AddSendCounters bumps a campaign's send aggregates.
func (s *Store) AddSendCounters(ctx context.Context, campaignID uuid.UUID, sent int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaigns
		 SET total_sent = total_sent + $1,
		     total_delivered = total_delivered + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		sent, campaignID)
	if err != nil {
		return fmt.Errorf("add send counters: %w", err)
	}
	return nil
}

// AddConversion bumps a campaign's conversion aggregates by one conversion.
func (s *Store) AddConversion(ctx context.Context, campaignID uuid.UUID, value float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaigns
		 SET total_converted = total_converted + 1,
		     total_revenue = total_revenue + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		value, campaignID)
	if err != nil {
		return fmt.Errorf("add conversion: %w", err)
	}
	return nil
}
