package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/lensdesk/lensdesk/internal/campaign"
	"github.com/lensdesk/lensdesk/internal/consent"
	"github.com/lensdesk/lensdesk/internal/dispatch"
	"github.com/lensdesk/lensdesk/internal/notify"
	"github.com/lensdesk/lensdesk/internal/pkg/runlock"
	"github.com/lensdesk/lensdesk/internal/segment"
	"github.com/lensdesk/lensdesk/internal/template"
)

// fakeDispatcher records dispatch requests and fails on demand.
type fakeDispatcher struct {
	mu       sync.Mutex
	requests []dispatch.Request
	err      error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req dispatch.Request) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return uuid.New(), f.err
	}
	return uuid.New(), nil
}

func (f *fakeDispatcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	types []string
}

func (f *fakeNotifier) Notify(ctx context.Context, notifType string, refID uuid.UUID, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, notifType)
}

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	mock.MatchExpectationsInOrder(false)
	return db, mock, func() { db.Close() }
}

func newTestEngine(db *sql.DB, d Dispatcher, n notify.Notifier) *Engine {
	return New(
		campaign.NewStore(db),
		segment.NewEvaluator(db, 25),
		template.NewResolver(db, "Main Street Optical", "+15555550199"),
		consent.NewGate(db),
		d,
		n,
		runlock.NewFactory(nil, db, time.Minute),
	)
}

func campaignRows(id uuid.UUID, ctype campaign.Type, segmentJSON interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "campaign_type", "status", "segment_json",
		"total_enrolled", "total_sent", "total_delivered", "total_converted", "total_revenue",
		"last_run_at", "created_at", "updated_at",
	}).AddRow(id.String(), "Test Campaign", string(ctype), "ACTIVE", segmentJSON,
		0, 0, 0, 0, 0.0, nil, now, now)
}

func recipientRows(rs ...*campaign.Recipient) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "campaign_id", "customer_id", "status", "current_step",
		"last_message_at", "enrolled_at",
	})
	for _, r := range rs {
		var lastMsg interface{}
		if r.LastMessageAt != nil {
			lastMsg = *r.LastMessageAt
		}
		rows.AddRow(r.ID.String(), r.CampaignID.String(), r.CustomerID.String(),
			string(r.Status), r.CurrentStep, lastMsg, r.EnrolledAt)
	}
	return rows
}

func customerRows(id uuid.UUID, email, phone string, emailOptIn, smsOptIn, optOut bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "email", "phone",
		"email_opt_in", "sms_opt_in", "marketing_opt_out",
	}).AddRow(id.String(), "Maria", "Lopez", email, phone, emailOptIn, smsOptIn, optOut)
}

func expectRunCreated(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("INSERT INTO campaign_runs").
		WillReturnRows(sqlmock.NewRows([]string{"started_at"}).AddRow(time.Now()))
}

func TestProcessCampaignNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnError(sql.ErrNoRows)

	e := newTestEngine(db, &fakeDispatcher{}, &fakeNotifier{})
	_, err := e.ProcessCampaign(context.Background(), campID)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got: %v", err)
	}
}

func TestProcessCampaignFatalErrorAnnotatesRun(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnRows(campaignRows(campID, campaign.TypeReferralThankYou, nil))
	expectRunCreated(mock)
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnError(fmt.Errorf("DB down"))
	mock.ExpectExec("UPDATE campaign_runs SET finished_at = NOW\\(\\), error").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := newTestEngine(db, &fakeDispatcher{}, &fakeNotifier{})
	_, err := e.ProcessCampaign(context.Background(), campID)
	if err == nil || !strings.Contains(err.Error(), "DB down") {
		t.Fatalf("expected DB down error surfaced, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("run error was not annotated: %v", err)
	}
}

func TestDispatchFailureDoesNotAdvance(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	custID := uuid.New()
	rec := &campaign.Recipient{
		ID: uuid.New(), CampaignID: campID, CustomerID: custID,
		Status: campaign.RecipientActive, CurrentStep: 0,
		EnrolledAt: time.Now().Add(-time.Hour),
	}

	// WELCOME_NEW_PATIENT: 2 steps, no conversion tracking, step 0 email.
	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnRows(campaignRows(campID, campaign.TypeWelcomeNewPatient, nil))
	expectRunCreated(mock)
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectQuery("SELECT id, first_name, last_name").
		WithArgs(custID).
		WillReturnRows(customerRows(custID, "maria@example.com", "", true, false, false))
	mock.ExpectExec("UPDATE campaign_runs\\s+SET finished_at").
		WithArgs(1, 0, 0, 1, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_run_at").
		WithArgs(campID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	d := &fakeDispatcher{err: fmt.Errorf("provider timeout")}
	e := newTestEngine(db, d, &fakeNotifier{})
	result, err := e.ProcessCampaign(context.Background(), campID)
	if err != nil {
		t.Fatalf("ProcessCampaign failed: %v", err)
	}
	if result.Failed != 1 || result.Sent != 0 {
		t.Errorf("expected failed=1 sent=0, got failed=%d sent=%d", result.Failed, result.Sent)
	}
	// No advance, no complete, no campaign counter updates were expected;
	// unordered sqlmock would have errored the engine had they run.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSuccessfulSendAdvancesStep(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	custID := uuid.New()
	rec := &campaign.Recipient{
		ID: uuid.New(), CampaignID: campID, CustomerID: custID,
		Status: campaign.RecipientActive, CurrentStep: 0,
		EnrolledAt: time.Now().Add(-time.Hour),
	}

	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnRows(campaignRows(campID, campaign.TypeWelcomeNewPatient, nil))
	expectRunCreated(mock)
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectQuery("SELECT id, first_name, last_name").
		WithArgs(custID).
		WillReturnRows(customerRows(custID, "maria@example.com", "", true, false, false))
	mock.ExpectExec("SET current_step").
		WithArgs(1, rec.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaign_runs\\s+SET finished_at").
		WithArgs(1, 0, 1, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_run_at").
		WithArgs(campID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET total_sent").
		WithArgs(1, campID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	d := &fakeDispatcher{}
	e := newTestEngine(db, d, &fakeNotifier{})
	result, err := e.ProcessCampaign(context.Background(), campID)
	if err != nil {
		t.Fatalf("ProcessCampaign failed: %v", err)
	}
	if result.Sent != 1 {
		t.Errorf("expected sent=1, got %d", result.Sent)
	}
	if d.calls() != 1 {
		t.Errorf("expected 1 dispatch, got %d", d.calls())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFinalStepCompletesRecipient(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	custID := uuid.New()
	lastMsg := time.Now().Add(-4 * 24 * time.Hour)
	// WELCOME_NEW_PATIENT step 1 (final) is SMS with a 3-day delay.
	rec := &campaign.Recipient{
		ID: uuid.New(), CampaignID: campID, CustomerID: custID,
		Status: campaign.RecipientActive, CurrentStep: 1,
		LastMessageAt: &lastMsg,
		EnrolledAt:    time.Now().Add(-10 * 24 * time.Hour),
	}

	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnRows(campaignRows(campID, campaign.TypeWelcomeNewPatient, nil))
	expectRunCreated(mock)
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectQuery("SELECT id, first_name, last_name").
		WithArgs(custID).
		WillReturnRows(customerRows(custID, "", "+15555550101", false, true, false))
	mock.ExpectExec("SET status = 'COMPLETED'").
		WithArgs(rec.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaign_runs\\s+SET finished_at").
		WithArgs(1, 0, 1, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_run_at").
		WithArgs(campID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET total_sent").
		WithArgs(1, campID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := newTestEngine(db, &fakeDispatcher{}, &fakeNotifier{})
	if _, err := e.ProcessCampaign(context.Background(), campID); err != nil {
		t.Fatalf("ProcessCampaign failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDelayGateSkipsEarlyStep(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	custID := uuid.New()
	lastMsg := time.Now().Add(-24 * time.Hour)
	// Step 1 is due 3 days after enrollment; only 2 days have passed.
	rec := &campaign.Recipient{
		ID: uuid.New(), CampaignID: campID, CustomerID: custID,
		Status: campaign.RecipientActive, CurrentStep: 1,
		LastMessageAt: &lastMsg,
		EnrolledAt:    time.Now().Add(-2 * 24 * time.Hour),
	}

	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnRows(campaignRows(campID, campaign.TypeWelcomeNewPatient, nil))
	expectRunCreated(mock)
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectExec("UPDATE campaign_runs\\s+SET finished_at").
		WithArgs(1, 0, 0, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_run_at").
		WithArgs(campID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	d := &fakeDispatcher{}
	e := newTestEngine(db, d, &fakeNotifier{})
	if _, err := e.ProcessCampaign(context.Background(), campID); err != nil {
		t.Fatalf("ProcessCampaign failed: %v", err)
	}
	if d.calls() != 0 {
		t.Errorf("expected no dispatches before delay elapsed, got %d", d.calls())
	}
}

func TestZeroSendRunStillStampsLastRun(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	custID := uuid.New()
	// One recipient waiting on its 3-day delay with only a day elapsed: the
	// pass sends nothing, yet the campaign must still record that it ran.
	rec := &campaign.Recipient{
		ID: uuid.New(), CampaignID: campID, CustomerID: custID,
		Status: campaign.RecipientActive, CurrentStep: 1,
		EnrolledAt: time.Now().Add(-24 * time.Hour),
	}

	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnRows(campaignRows(campID, campaign.TypeWelcomeNewPatient, nil))
	expectRunCreated(mock)
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectExec("UPDATE campaign_runs\\s+SET finished_at").
		WithArgs(1, 0, 0, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_run_at").
		WithArgs(campID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := newTestEngine(db, &fakeDispatcher{}, &fakeNotifier{})
	result, err := e.ProcessCampaign(context.Background(), campID)
	if err != nil {
		t.Fatalf("ProcessCampaign failed: %v", err)
	}
	if result.Sent != 0 {
		t.Errorf("expected sent=0, got %d", result.Sent)
	}
	// The send counters stay put on a zero-send pass; unordered sqlmock
	// would have errored the engine had that update run.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("last_run_at was not stamped: %v", err)
	}
}

func TestOptedOutCustomerNotContacted(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	custID := uuid.New()
	rec := &campaign.Recipient{
		ID: uuid.New(), CampaignID: campID, CustomerID: custID,
		Status: campaign.RecipientActive, CurrentStep: 0,
		EnrolledAt: time.Now().Add(-time.Hour),
	}

	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnRows(campaignRows(campID, campaign.TypeWelcomeNewPatient, nil))
	expectRunCreated(mock)
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectQuery("SELECT id, first_name, last_name").
		WithArgs(custID).
		WillReturnRows(customerRows(custID, "maria@example.com", "+15555550101", true, true, true))
	mock.ExpectExec("UPDATE campaign_runs\\s+SET finished_at").
		WithArgs(1, 0, 0, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_run_at").
		WithArgs(campID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	d := &fakeDispatcher{}
	e := newTestEngine(db, d, &fakeNotifier{})
	if _, err := e.ProcessCampaign(context.Background(), campID); err != nil {
		t.Fatalf("ProcessCampaign failed: %v", err)
	}
	if d.calls() != 0 {
		t.Errorf("opted-out customer must not be dispatched to, got %d calls", d.calls())
	}
}

func TestConversionDetection(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	custID := uuid.New()
	lastMsg := time.Now().Add(-time.Hour)
	// EXAM_RECALL_ANNUAL stops on conversion; recipient mid-sequence and
	// not yet due, so the pass only runs conversion detection.
	rec := &campaign.Recipient{
		ID: uuid.New(), CampaignID: campID, CustomerID: custID,
		Status: campaign.RecipientActive, CurrentStep: 1,
		LastMessageAt: &lastMsg,
		EnrolledAt:    time.Now().Add(-2 * 24 * time.Hour),
	}

	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnRows(campaignRows(campID, campaign.TypeExamRecallAnnual, nil))
	expectRunCreated(mock)
	// Once for the send loop, once fresh for conversion detection.
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectQuery("SELECT total FROM orders").
		WithArgs(custID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(349.50))
	mock.ExpectExec("SET status = 'CONVERTED'").
		WithArgs(349.50, rec.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET total_converted").
		WithArgs(349.50, campID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaign_runs\\s+SET finished_at").
		WithArgs(1, 0, 0, 0, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_run_at").
		WithArgs(campID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := newTestEngine(db, &fakeDispatcher{}, &fakeNotifier{})
	result, err := e.ProcessCampaign(context.Background(), campID)
	if err != nil {
		t.Fatalf("ProcessCampaign failed: %v", err)
	}
	if result.Converted != 1 {
		t.Errorf("expected converted=1, got %d", result.Converted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConversionGuardSkipsAlreadyTerminal(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	campID := uuid.New()
	custID := uuid.New()
	lastMsg := time.Now().Add(-time.Hour)
	rec := &campaign.Recipient{
		ID: uuid.New(), CampaignID: campID, CustomerID: custID,
		Status: campaign.RecipientActive, CurrentStep: 1,
		LastMessageAt: &lastMsg,
		EnrolledAt:    time.Now().Add(-2 * 24 * time.Hour),
	}

	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(campID).
		WillReturnRows(campaignRows(campID, campaign.TypeExamRecallAnnual, nil))
	expectRunCreated(mock)
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows(rec))
	mock.ExpectQuery("SELECT total FROM orders").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(100.0))
	// Guarded update affects zero rows: someone else already transitioned
	// this recipient, so no aggregates move.
	mock.ExpectExec("SET status = 'CONVERTED'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE campaign_runs\\s+SET finished_at").
		WithArgs(1, 0, 0, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_run_at").
		WithArgs(campID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := newTestEngine(db, &fakeDispatcher{}, &fakeNotifier{})
	result, err := e.ProcessCampaign(context.Background(), campID)
	if err != nil {
		t.Fatalf("ProcessCampaign failed: %v", err)
	}
	if result.Converted != 0 {
		t.Errorf("expected converted=0 when guard loses, got %d", result.Converted)
	}
}

func TestProcessAllCampaignsIsolatesFailures(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	badID := uuid.New()
	goodID := uuid.New()

	now := time.Now()
	listRows := sqlmock.NewRows([]string{
		"id", "name", "campaign_type", "status", "segment_json",
		"total_enrolled", "total_sent", "total_delivered", "total_converted", "total_revenue",
		"last_run_at", "created_at", "updated_at",
	}).
		AddRow(badID.String(), "Bad", "NOT_A_REAL_TYPE", "ACTIVE", nil, 0, 0, 0, 0, 0.0, nil, now, now).
		AddRow(goodID.String(), "Good", string(campaign.TypeReferralThankYou), "ACTIVE", nil, 0, 0, 0, 0, 0.0, nil, now, now)

	mock.ExpectQuery("FROM campaigns WHERE status").
		WillReturnRows(listRows)

	// Advisory lock round-trips for both campaigns.
	for i := 0; i < 2; i++ {
		mock.ExpectQuery("pg_try_advisory_lock").
			WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
		mock.ExpectExec("pg_advisory_unlock").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	// Bad campaign: loaded, then rejected for its unknown type.
	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(badID).
		WillReturnRows(campaignRows(badID, campaign.Type("NOT_A_REAL_TYPE"), nil))

	// Good campaign: no recipients, clean run.
	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs(goodID).
		WillReturnRows(campaignRows(goodID, campaign.TypeReferralThankYou, nil))
	expectRunCreated(mock)
	mock.ExpectQuery("FROM campaign_recipients").
		WillReturnRows(recipientRows())
	mock.ExpectExec("UPDATE campaign_runs\\s+SET finished_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_run_at").
		WithArgs(goodID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := &fakeNotifier{}
	e := newTestEngine(db, &fakeDispatcher{}, n)
	results := e.ProcessAllCampaigns(context.Background())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Error("expected error result for campaign with unknown type")
	}
	if results[1].Err != nil {
		t.Errorf("good campaign should succeed, got: %v", results[1].Err)
	}

	if len(n.types) != 2 || n.types[0] != notify.CampaignError || n.types[1] != notify.CampaignCompleted {
		t.Errorf("expected [CAMPAIGN_ERROR CAMPAIGN_COMPLETED], got %v", n.types)
	}
}

func TestProcessAllCampaignsEmptyWhenNoneActive(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("FROM campaigns WHERE status").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "campaign_type", "status", "segment_json",
			"total_enrolled", "total_sent", "total_delivered", "total_converted", "total_revenue",
			"last_run_at", "created_at", "updated_at",
		}))

	e := newTestEngine(db, &fakeDispatcher{}, &fakeNotifier{})
	results := e.ProcessAllCampaigns(context.Background())
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", results)
	}
}
