// Package consent enforces the contact rules that sit between a campaign
// and a customer's phone or inbox. Nothing sends without passing CanContact.
package consent

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/lensdesk/lensdesk/internal/campaign"
)

// Customer carries the contact and consent fields the gate needs.
type Customer struct {
	ID              uuid.UUID
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	EmailOptIn      bool
	SMSOptIn        bool
	MarketingOptOut bool
}

// Address returns the delivery address for a channel.
func (c *Customer) Address(ch campaign.Channel) string {
	if ch == campaign.ChannelSMS {
		return c.Phone
	}
	return c.Email
}

// CanContact reports whether a customer may be messaged on a channel.
// The global marketing opt-out is a kill switch checked before anything
// else; after that the channel needs its opt-in flag and a usable address.
func CanContact(c *Customer, ch campaign.Channel) bool {
	if c == nil || c.MarketingOptOut {
		return false
	}
	switch ch {
	case campaign.ChannelSMS:
		return c.SMSOptIn && c.Phone != ""
	case campaign.ChannelEmail:
		return c.EmailOptIn && c.Email != ""
	default:
		return false
	}
}

// Gate handles opt-out persistence.
type Gate struct {
	db *sql.DB
}

// NewGate creates a consent gate.
func NewGate(db *sql.DB) *Gate {
	return &Gate{db: db}
}

// LoadCustomer fetches the consent view of a customer, or (nil, nil) when
// the customer does not exist.
func (g *Gate) LoadCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	var c Customer
	var email, phone sql.NullString
	err := g.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, phone,
		        email_opt_in, sms_opt_in, marketing_opt_out
		 FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.FirstName, &c.LastName, &email, &phone,
			&c.EmailOptIn, &c.SMSOptIn, &c.MarketingOptOut)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	if email.Valid {
		c.Email = email.String
	}
	if phone.Valid {
		c.Phone = phone.String
	}
	return &c, nil
}

// ProcessOptOut flips the customer's global marketing opt-out, records who
// asked and why, and exits the customer from every active campaign
// enrollment. All writes happen in one transaction so a crash can't leave a
// customer opted out but still enrolled.
func (g *Gate) ProcessOptOut(ctx context.Context, customerID uuid.UUID, source, reason string) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin opt-out tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE customers
		 SET marketing_opt_out = TRUE, opt_out_by = $1, opt_out_reason = $2,
		     opt_out_at = NOW(), updated_at = NOW()
		 WHERE id = $3`,
		source, reason, customerID)
	if err != nil {
		return fmt.Errorf("mark customer opted out: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("customer %s not found", customerID)
	}

	exited, err := tx.ExecContext(ctx,
		`UPDATE campaign_recipients
		 SET status = 'OPTED_OUT'
		 WHERE customer_id = $1 AND status = 'ACTIVE'`,
		customerID)
	if err != nil {
		return fmt.Errorf("exit active enrollments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit opt-out: %w", err)
	}

	if n, _ := exited.RowsAffected(); n > 0 {
		log.Printf("[ConsentGate] Customer %s opted out via %s, exited %d active enrollments", customerID, source, n)
	} else {
		log.Printf("[ConsentGate] Customer %s opted out via %s", customerID, source)
	}
	return nil
}
