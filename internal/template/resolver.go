package template

import (
	"context"
	"database/sql"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// placeholderRegex matches {{name}} tokens with optional inner whitespace.
var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Interpolate substitutes {{name}} placeholders from vars. Placeholders with
// no entry in vars are left verbatim so a bad template is visible in the
// message rather than silently blanked.
func Interpolate(text string, vars map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderRegex.FindStringSubmatch(match)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})
}

// Resolver assembles per-customer template variables from the customer's
// purchase and clinical history.
type Resolver struct {
	db         *sql.DB
	storeName  string
	storePhone string
}

// NewResolver creates a resolver. storeName and storePhone are injected into
// every variable map.
func NewResolver(db *sql.DB, storeName, storePhone string) *Resolver {
	return &Resolver{db: db, storeName: storeName, storePhone: storePhone}
}

// Variables returns the template variable map for a customer. Lookups are
// best-effort: missing history resolves to empty strings and an unknown
// customer yields just the store variables. It never returns an error so a
// half-resolved message beats an aborted run.
func (r *Resolver) Variables(ctx context.Context, customerID uuid.UUID) map[string]string {
	vars := map[string]string{
		"firstName":         "",
		"lastName":          "",
		"fullName":          "",
		"phone":             "",
		"email":             "",
		"frameBrand":        "",
		"frameModel":        "",
		"pickupDate":        "",
		"rxExpiryDate":      "",
		"insuranceProvider": "",
		"renewalMonth":      "",
		"lastExamDate":      "",
		"referralCode":      "",
		"storeName":         r.storeName,
		"storePhone":        r.storePhone,
	}

	r.resolveCustomer(ctx, customerID, vars)
	r.resolveLastPickup(ctx, customerID, vars)
	r.resolveActiveRx(ctx, customerID, vars)
	r.resolveInsurance(ctx, customerID, vars)
	r.resolveLastExam(ctx, customerID, vars)

	return vars
}

func (r *Resolver) resolveCustomer(ctx context.Context, customerID uuid.UUID, vars map[string]string) {
	var first, last string
	var email, phone, referral sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT first_name, last_name, email, phone, referral_code
		 FROM customers WHERE id = $1`, customerID).
		Scan(&first, &last, &email, &phone, &referral)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		log.Printf("[TemplateResolver] customer lookup failed for %s: %v", customerID, err)
		return
	}
	vars["firstName"] = first
	vars["lastName"] = last
	vars["fullName"] = first
	if last != "" {
		if first != "" {
			vars["fullName"] = first + " " + last
		} else {
			vars["fullName"] = last
		}
	}
	if email.Valid {
		vars["email"] = email.String
	}
	if phone.Valid {
		vars["phone"] = phone.String
	}
	if referral.Valid {
		vars["referralCode"] = referral.String
	}
}

func (r *Resolver) resolveLastPickup(ctx context.Context, customerID uuid.UUID, vars map[string]string) {
	var brand, model sql.NullString
	var pickedUp sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT frame_brand, frame_model, picked_up_at FROM orders
		 WHERE customer_id = $1 AND picked_up_at IS NOT NULL
		 ORDER BY picked_up_at DESC LIMIT 1`, customerID).
		Scan(&brand, &model, &pickedUp)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		log.Printf("[TemplateResolver] pickup lookup failed for %s: %v", customerID, err)
		return
	}
	if brand.Valid {
		vars["frameBrand"] = brand.String
	}
	if model.Valid {
		vars["frameModel"] = model.String
	}
	if pickedUp.Valid {
		vars["pickupDate"] = pickedUp.Time.Format(dateLayout)
	}
}

func (r *Resolver) resolveActiveRx(ctx context.Context, customerID uuid.UUID, vars map[string]string) {
	var expires sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT expires_at FROM prescriptions
		 WHERE customer_id = $1 AND status = 'ACTIVE'
		 ORDER BY expires_at DESC LIMIT 1`, customerID).
		Scan(&expires)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		log.Printf("[TemplateResolver] rx lookup failed for %s: %v", customerID, err)
		return
	}
	if expires.Valid {
		vars["rxExpiryDate"] = expires.Time.Format(dateLayout)
	}
}

func (r *Resolver) resolveInsurance(ctx context.Context, customerID uuid.UUID, vars map[string]string) {
	var provider string
	var renewalMonth sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT provider, renewal_month FROM insurance_policies
		 WHERE customer_id = $1 AND status = 'ACTIVE'
		 ORDER BY created_at DESC LIMIT 1`, customerID).
		Scan(&provider, &renewalMonth)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		log.Printf("[TemplateResolver] insurance lookup failed for %s: %v", customerID, err)
		return
	}
	vars["insuranceProvider"] = provider
	if renewalMonth.Valid && renewalMonth.Int64 >= 1 && renewalMonth.Int64 <= 12 {
		vars["renewalMonth"] = time.Month(renewalMonth.Int64).String()
	}
}

func (r *Resolver) resolveLastExam(ctx context.Context, customerID uuid.UUID, vars map[string]string) {
	var examDate sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(exam_date) FROM exams WHERE customer_id = $1`, customerID).
		Scan(&examDate)
	if err != nil {
		log.Printf("[TemplateResolver] exam lookup failed for %s: %v", customerID, err)
		return
	}
	if examDate.Valid {
		vars["lastExamDate"] = examDate.Time.Format(dateLayout)
	}
}
