package segment

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Evaluator runs segment definitions against the customer base.
//
// Every public method is fail-soft: a malformed definition or database error
// yields an empty result, never an error. An over-broad campaign send is far
// more costly than an empty one, so the only fail-open path is the unknown
// field inside the query builder; everything else fails closed to zero.
type Evaluator struct {
	db          *sql.DB
	sampleLimit int
}

// NewEvaluator creates an evaluator. sampleLimit caps PreviewSample rows.
func NewEvaluator(db *sql.DB, sampleLimit int) *Evaluator {
	if sampleLimit <= 0 {
		sampleLimit = 25
	}
	return &Evaluator{db: db, sampleLimit: sampleLimit}
}

// Execute returns the IDs of all customers matching the definition.
func (e *Evaluator) Execute(ctx context.Context, def Definition) []uuid.UUID {
	where, args, err := NewQueryBuilder().BuildWhere(def)
	if err != nil {
		log.Printf("[SegmentEvaluator] Build failed: %v", err)
		return nil
	}

	rows, err := e.db.QueryContext(ctx,
		`SELECT c.id FROM customers c WHERE `+where+` ORDER BY c.created_at`, args...)
	if err != nil {
		log.Printf("[SegmentEvaluator] Query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			log.Printf("[SegmentEvaluator] Scan failed: %v", err)
			return nil
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[SegmentEvaluator] Rows failed: %v", err)
		return nil
	}
	return ids
}

// PreviewCount returns the number of matching customers, or 0 on any failure.
func (e *Evaluator) PreviewCount(ctx context.Context, def Definition) int {
	where, args, err := NewQueryBuilder().BuildWhere(def)
	if err != nil {
		log.Printf("[SegmentEvaluator] Build failed: %v", err)
		return 0
	}

	var count int
	err = e.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM customers c WHERE `+where, args...).Scan(&count)
	if err != nil {
		log.Printf("[SegmentEvaluator] Count failed: %v", err)
		return 0
	}
	return count
}

// PreviewSample returns up to the configured limit of matching customers.
func (e *Evaluator) PreviewSample(ctx context.Context, def Definition) []CustomerPreview {
	where, args, err := NewQueryBuilder().BuildWhere(def)
	if err != nil {
		log.Printf("[SegmentEvaluator] Build failed: %v", err)
		return nil
	}

	query := fmt.Sprintf(`SELECT c.id, c.first_name, c.last_name, COALESCE(c.email, ''), COALESCE(c.phone, '')
		FROM customers c WHERE %s ORDER BY c.created_at LIMIT $%d`, where, len(args)+1)

	rows, err := e.db.QueryContext(ctx, query, append(args, e.sampleLimit)...)
	if err != nil {
		log.Printf("[SegmentEvaluator] Sample failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []CustomerPreview
	for rows.Next() {
		var p CustomerPreview
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone); err != nil {
			log.Printf("[SegmentEvaluator] Scan failed: %v", err)
			return nil
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[SegmentEvaluator] Rows failed: %v", err)
		return nil
	}
	return out
}

// Preview runs count and sample together and reports timing.
func (e *Evaluator) Preview(ctx context.Context, def Definition) Preview {
	start := time.Now()
	count := e.PreviewCount(ctx, def)
	sample := e.PreviewSample(ctx, def)
	return Preview{
		Count:      count,
		Sample:     sample,
		DurationMs: time.Since(start).Milliseconds(),
		Truncated:  count > len(sample),
	}
}
