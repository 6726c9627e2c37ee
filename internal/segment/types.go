package segment

import (
	"github.com/google/uuid"
)

// Logic joins the top-level conditions of a definition.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Operator is the comparison applied by a single condition.
type Operator string

const (
	OpEquals  Operator = "eq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpBetween Operator = "between"
	OpIn      Operator = "in"
)

// Channel names a delivery medium for the requireChannel filter.
type Channel string

const (
	ChannelSMS   Channel = "SMS"
	ChannelEmail Channel = "EMAIL"
)

// Condition is a single field comparison. Value2 is only used by between.
// For in, Value holds a slice.
type Condition struct {
	Field    string      `json:"field"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
	Value2   interface{} `json:"value2,omitempty"`
	Negate   bool        `json:"negate,omitempty"`
}

// Definition describes a customer segment. Conditions are joined by Logic;
// the exclusion filters are always ANDed on top regardless of Logic.
type Definition struct {
	Logic                        Logic       `json:"logic"`
	Conditions                   []Condition `json:"conditions"`
	ExcludeMarketingOptOut       bool        `json:"exclude_marketing_opt_out"`
	RequireChannel               Channel     `json:"require_channel,omitempty"`
	ExcludeRecentlyContactedDays int         `json:"exclude_recently_contacted_days,omitempty"`
}

// CustomerPreview is one row of a segment sample.
type CustomerPreview struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
}

// Preview summarizes a segment evaluation for the authoring UI.
type Preview struct {
	Count      int               `json:"count"`
	Sample     []CustomerPreview `json:"sample"`
	DurationMs int64             `json:"duration_ms"`
	Truncated  bool              `json:"truncated"`
}
