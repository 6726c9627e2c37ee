package campaign

import (
	"time"

	"github.com/google/uuid"
)

// Status is the campaign lifecycle state.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusArchived Status = "ARCHIVED"
)

// RecipientStatus is the per-customer enrollment state. ACTIVE is the only
// non-terminal state; COMPLETED, CONVERTED and OPTED_OUT are final.
type RecipientStatus string

const (
	RecipientActive    RecipientStatus = "ACTIVE"
	RecipientCompleted RecipientStatus = "COMPLETED"
	RecipientConverted RecipientStatus = "CONVERTED"
	RecipientOptedOut  RecipientStatus = "OPTED_OUT"
)

// MessageStatus tracks a single outbound message.
type MessageStatus string

const (
	MessagePending MessageStatus = "PENDING"
	MessageSent    MessageStatus = "SENT"
	MessageFailed  MessageStatus = "FAILED"
)

// Channel is the delivery medium for a drip step.
type Channel string

const (
	ChannelSMS   Channel = "SMS"
	ChannelEmail Channel = "EMAIL"
)

// Type identifies a campaign archetype. Each type maps to a preset drip
// sequence in the drip package.
type Type string

const (
	TypeWelcomeNewPatient Type = "WELCOME_NEW_PATIENT"
	TypeExamRecallAnnual  Type = "EXAM_RECALL_ANNUAL"
	TypeExamRecallOverdue Type = "EXAM_RECALL_OVERDUE"
	TypeRxExpiringSoon    Type = "RX_EXPIRING_SOON"
	TypeRxExpired         Type = "RX_EXPIRED"
	TypePickupFollowup    Type = "PICKUP_FOLLOWUP"
	TypeContactLensRefill Type = "CONTACT_LENS_REFILL"
	TypeInsuranceRenewal  Type = "INSURANCE_RENEWAL"
	TypeBenefitsYearEnd   Type = "BENEFITS_YEAR_END"
	TypeBirthday          Type = "BIRTHDAY"
	TypeWinback12Month    Type = "WINBACK_12_MONTH"
	TypeWinback24Month    Type = "WINBACK_24_MONTH"
	TypeSecondPairOffer   Type = "SECOND_PAIR_OFFER"
	TypeSunglassSeasonal  Type = "SUNGLASSES_SEASONAL"
	TypeReferralInvite    Type = "REFERRAL_INVITE"
	TypeReferralThankYou  Type = "REFERRAL_THANK_YOU"
	TypeReviewRequest     Type = "REVIEW_REQUEST"
	TypeAbandonedQuote    Type = "ABANDONED_QUOTE"
	TypeNoShowRebook      Type = "NO_SHOW_REBOOK"
	TypeBackToSchool      Type = "BACK_TO_SCHOOL"
	TypeWarrantyExpiring  Type = "WARRANTY_EXPIRING"
)

// Campaign is an authored marketing campaign with its aggregate counters.
type Campaign struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Type           Type       `json:"campaign_type"`
	Status         Status     `json:"status"`
	SegmentJSON    []byte     `json:"segment,omitempty"`
	TotalEnrolled  int64      `json:"total_enrolled"`
	TotalSent      int64      `json:"total_sent"`
	TotalDelivered int64      `json:"total_delivered"`
	TotalConverted int64      `json:"total_converted"`
	TotalRevenue   float64    `json:"total_revenue"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CanActivate reports whether the campaign may move to ACTIVE.
func (c *Campaign) CanActivate() bool {
	return c.Status == StatusDraft || c.Status == StatusPaused
}

// CanPause reports whether the campaign may move to PAUSED.
func (c *Campaign) CanPause() bool {
	return c.Status == StatusActive
}

// CanArchive reports whether the campaign may move to ARCHIVED.
func (c *Campaign) CanArchive() bool {
	return c.Status != StatusArchived
}

// Recipient is a customer enrolled in a campaign's drip sequence.
type Recipient struct {
	ID              uuid.UUID       `json:"id"`
	CampaignID      uuid.UUID       `json:"campaign_id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Status          RecipientStatus `json:"status"`
	CurrentStep     int             `json:"current_step"`
	LastMessageAt   *time.Time      `json:"last_message_at,omitempty"`
	EnrolledAt      time.Time       `json:"enrolled_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	ConvertedAt     *time.Time      `json:"converted_at,omitempty"`
	ConversionValue *float64        `json:"conversion_value,omitempty"`
}

// Run records one execution of a campaign's processing pass.
type Run struct {
	ID              uuid.UUID  `json:"id"`
	CampaignID      uuid.UUID  `json:"campaign_id"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	RecipientsFound int        `json:"recipients_found"`
	EnrolledCount   int        `json:"enrolled_count"`
	SentCount       int        `json:"sent_count"`
	FailedCount     int        `json:"failed_count"`
	ConvertedCount  int        `json:"converted_count"`
	DurationMs      int64      `json:"duration_ms"`
	Error           string     `json:"error,omitempty"`
}

// Message is an outbound SMS or email row.
type Message struct {
	ID          uuid.UUID     `json:"id"`
	CampaignID  *uuid.UUID    `json:"campaign_id,omitempty"`
	CustomerID  uuid.UUID     `json:"customer_id"`
	Channel     Channel       `json:"channel"`
	Recipient   string        `json:"recipient"`
	Subject     string        `json:"subject,omitempty"`
	Body        string        `json:"body"`
	Status      MessageStatus `json:"status"`
	ProviderRef string        `json:"provider_ref,omitempty"`
	Error       string        `json:"error,omitempty"`
	SentAt      *time.Time    `json:"sent_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RunResult summarizes a processing pass for callers and notifications.
type RunResult struct {
	CampaignID    uuid.UUID     `json:"campaign_id"`
	RunID         uuid.UUID     `json:"run_id"`
	Enrolled      int           `json:"enrolled"`
	Sent          int           `json:"sent"`
	Failed        int           `json:"failed"`
	Converted     int           `json:"converted"`
	Duration      time.Duration `json:"duration_ms"`
	Err           error         `json:"-"`
}
