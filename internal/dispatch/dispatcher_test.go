package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/lensdesk/lensdesk/internal/campaign"
	"github.com/lensdesk/lensdesk/internal/transport"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func okSender(ref string) transport.Sender {
	return transport.SenderFunc(func(ctx context.Context, msg transport.Message) (string, error) {
		return ref, nil
	})
}

func failSender(err error) transport.Sender {
	return transport.SenderFunc(func(ctx context.Context, msg transport.Message) (string, error) {
		return "", err
	})
}

func TestDispatchSuccess(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO messages").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE messages SET status = 'SENT'").
		WillReturnResult(sqlmock.NewResult(0, 1))

	d := NewDispatcher(db, map[campaign.Channel]transport.Sender{
		campaign.ChannelSMS: okSender("SM999"),
	}, time.Second)

	_, err := d.Dispatch(context.Background(), Request{
		CustomerID: uuid.New(),
		Channel:    campaign.ChannelSMS,
		To:         "+15555550101",
		Body:       "hello",
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDispatchTransportFailureMarksFailed(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO messages").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE messages SET status = 'FAILED'").
		WillReturnResult(sqlmock.NewResult(0, 1))

	d := NewDispatcher(db, map[campaign.Channel]transport.Sender{
		campaign.ChannelEmail: failSender(fmt.Errorf("mailbox unavailable")),
	}, time.Second)

	_, err := d.Dispatch(context.Background(), Request{
		CustomerID: uuid.New(),
		Channel:    campaign.ChannelEmail,
		To:         "a@example.com",
		Subject:    "hi",
		Body:       "hello",
	})
	if err == nil {
		t.Fatal("expected transport error to propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDispatchUnknownChannel(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	d := NewDispatcher(db, map[campaign.Channel]transport.Sender{}, time.Second)
	_, err := d.Dispatch(context.Background(), Request{
		CustomerID: uuid.New(),
		Channel:    campaign.ChannelSMS,
		To:         "+15555550101",
		Body:       "hello",
	})
	if err == nil {
		t.Fatal("expected error for unconfigured channel")
	}
}

func TestDispatchBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < 12; i++ {
		mock.ExpectExec("INSERT INTO messages").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE messages SET status = 'FAILED'").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	d := NewDispatcher(db, map[campaign.Channel]transport.Sender{
		campaign.ChannelSMS: failSender(fmt.Errorf("provider down")),
	}, time.Second)

	var lastErr error
	for i := 0; i < 12; i++ {
		_, lastErr = d.Dispatch(context.Background(), Request{
			CustomerID: uuid.New(),
			Channel:    campaign.ChannelSMS,
			To:         "+15555550101",
			Body:       "hello",
		})
	}
	if lastErr == nil {
		t.Fatal("expected failure")
	}
	// After 10 consecutive failures the breaker short-circuits the sender.
	if lastErr.Error() != "circuit breaker is open" {
		t.Errorf("expected open breaker, got: %v", lastErr)
	}
}
