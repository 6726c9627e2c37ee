package segment

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// QueryBuilder compiles a segment Definition into a parameterized WHERE
// clause over the customers table (aliased c). All user values go through
// positional parameters; field names are resolved against a fixed map and
// never interpolated from input.
type QueryBuilder struct {
	args       []interface{}
	argCounter int
}

// NewQueryBuilder creates a new QueryBuilder.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{
		args:       make([]interface{}, 0),
		argCounter: 1,
	}
}

// nextArg returns the next argument placeholder
func (qb *QueryBuilder) nextArg(value interface{}) string {
	qb.args = append(qb.args, value)
	placeholder := fmt.Sprintf("$%d", qb.argCounter)
	qb.argCounter++
	return placeholder
}

// plain customer columns addressable by segment conditions
var fieldColumns = map[string]string{
	"firstName": "c.first_name",
	"lastName":  "c.last_name",
	"city":      "c.city",
	"state":     "c.state",
	"zip":       "c.zip",
	"source":    "c.source",
}

// correlated subqueries for computed fields
const (
	sqlLifetimeOrderCount = `(SELECT COUNT(*) FROM orders o
		WHERE o.customer_id = c.id AND o.status NOT IN ('DRAFT', 'CANCELLED'))`
	sqlLifetimeSpend = `(SELECT COALESCE(SUM(o.total), 0) FROM orders o
		WHERE o.customer_id = c.id AND o.status NOT IN ('DRAFT', 'CANCELLED'))`
	sqlDaysSinceLastExam = `(SELECT CURRENT_DATE - MAX(e.exam_date) FROM exams e
		WHERE e.customer_id = c.id)`
	sqlRxExpiresInDays = `(SELECT MIN(p.expires_at) - CURRENT_DATE FROM prescriptions p
		WHERE p.customer_id = c.id AND p.status = 'ACTIVE')`
	sqlHasExam = `(SELECT 1 FROM exams e WHERE e.customer_id = c.id)`
)

// BuildWhere builds the WHERE body and argument list for a definition.
// The recency-exclusion lookback, when set, is always the first positional
// parameter; condition parameters follow in declaration order.
func (qb *QueryBuilder) BuildWhere(def Definition) (string, []interface{}, error) {
	qb.args = make([]interface{}, 0)
	qb.argCounter = 1

	var clauses []string

	if def.ExcludeRecentlyContactedDays > 0 {
		clauses = append(clauses, fmt.Sprintf(`c.id NOT IN (
			SELECT m.customer_id FROM messages m
			WHERE m.created_at >= NOW() - make_interval(days => %s))`,
			qb.nextArg(def.ExcludeRecentlyContactedDays)))
	}

	var parts []string
	for _, cond := range def.Conditions {
		sql, err := qb.buildCondition(cond)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
	}
	if len(parts) > 0 {
		joiner := " AND "
		if def.Logic == LogicOr {
			joiner = " OR "
		}
		clauses = append(clauses, "("+strings.Join(parts, joiner)+")")
	}

	if def.ExcludeMarketingOptOut {
		clauses = append(clauses, "c.marketing_opt_out = FALSE")
	}

	switch def.RequireChannel {
	case ChannelSMS:
		clauses = append(clauses, "c.sms_opt_in = TRUE AND c.phone IS NOT NULL AND c.phone != ''")
	case ChannelEmail:
		clauses = append(clauses, "c.email_opt_in = TRUE AND c.email IS NOT NULL AND c.email != ''")
	}

	if len(clauses) == 0 {
		return "1=1", qb.args, nil
	}
	return strings.Join(clauses, "\n  AND "), qb.args, nil
}

// buildCondition builds SQL for a single condition
func (qb *QueryBuilder) buildCondition(cond Condition) (string, error) {
	var expr string

	switch cond.Field {
	case "age":
		expr = "EXTRACT(YEAR FROM AGE(c.date_of_birth))"
	case "birthMonth":
		expr = "EXTRACT(MONTH FROM c.date_of_birth)"
	case "lifetimeOrderCount":
		expr = sqlLifetimeOrderCount
	case "lifetimeSpend":
		expr = sqlLifetimeSpend
	case "daysSinceLastExam":
		expr = sqlDaysSinceLastExam
	case "rxExpiresInDays":
		expr = sqlRxExpiresInDays
	case "hasExam":
		return qb.buildHasExam(cond)
	default:
		col, ok := fieldColumns[cond.Field]
		if !ok {
			// Unrecognized field: match everything rather than silently
			// excluding customers from a campaign.
			return "1=1", nil
		}
		expr = col
	}

	sql, err := qb.buildComparison(expr, cond)
	if err != nil {
		return "", err
	}
	if cond.Negate {
		sql = "NOT (" + sql + ")"
	}
	return sql, nil
}

func (qb *QueryBuilder) buildComparison(expr string, cond Condition) (string, error) {
	switch cond.Operator {
	case OpEquals:
		return fmt.Sprintf("%s = %s", expr, qb.nextArg(cond.Value)), nil
	case OpGt:
		return fmt.Sprintf("%s > %s", expr, qb.nextArg(cond.Value)), nil
	case OpGte:
		return fmt.Sprintf("%s >= %s", expr, qb.nextArg(cond.Value)), nil
	case OpLt:
		return fmt.Sprintf("%s < %s", expr, qb.nextArg(cond.Value)), nil
	case OpLte:
		return fmt.Sprintf("%s <= %s", expr, qb.nextArg(cond.Value)), nil
	case OpBetween:
		return fmt.Sprintf("%s BETWEEN %s AND %s", expr,
			qb.nextArg(cond.Value), qb.nextArg(cond.Value2)), nil
	case OpIn:
		return fmt.Sprintf("%s = ANY(%s)", expr, qb.nextArg(pq.Array(toSlice(cond.Value)))), nil
	default:
		return "", fmt.Errorf("unsupported operator: %s", cond.Operator)
	}
}

// buildHasExam turns the boolean hasExam field into an existence check.
// Negation wraps the whole subquery, not the inner predicate.
func (qb *QueryBuilder) buildHasExam(cond Condition) (string, error) {
	if cond.Operator != OpEquals {
		return "", fmt.Errorf("hasExam supports only eq, got %s", cond.Operator)
	}
	want := truthy(cond.Value)
	if cond.Negate {
		want = !want
	}
	if want {
		return "EXISTS " + sqlHasExam, nil
	}
	return "NOT EXISTS " + sqlHasExam, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1" || t == "yes"
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

// toSlice normalizes the in operator's value. JSON decoding yields
// []interface{} with float64 numbers; an all-numeric list stays numeric so
// the array parameter compares against numeric expressions like order
// counts. Callers constructing definitions in Go may pass typed slices,
// which pq.Array handles directly.
func toSlice(v interface{}) interface{} {
	switch t := v.(type) {
	case []interface{}:
		nums := make([]float64, 0, len(t))
		for _, e := range t {
			n, ok := e.(float64)
			if !ok {
				break
			}
			nums = append(nums, n)
		}
		if len(nums) == len(t) {
			return nums
		}
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = fmt.Sprintf("%v", e)
		}
		return out
	case nil:
		return []string{}
	default:
		return v
	}
}
