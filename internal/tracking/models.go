package tracking

import (
	"fmt"
	"time"
)

// Event is one recorded UI interaction.
//
// Invariants:
// - Events are append-only: no update or delete path exists anywhere in this module.
// - componentName and action are always present; action is restricted to the enum below.
// - Caller-supplied timestamps are accepted verbatim (backfill/batched delivery is allowed).
//
// Storage recommendation (Postgres):
// - Table events with an INSERT-only policy.
// - Indexes: (component_name, timestamp DESC), (component_name, action), (project_id, timestamp DESC).
// - metadata is JSONB; no schema is enforced on it.
type Event struct {
	ID            string         `json:"id" db:"id"`
	ComponentName string         `json:"componentName" db:"component_name"`
	Variant       string         `json:"variant" db:"variant"`
	Action        Action         `json:"action" db:"action"`
	ProjectID     string         `json:"projectId,omitempty" db:"project_id"`
	UserID        string         `json:"userId,omitempty" db:"user_id"`
	Metadata      map[string]any `json:"metadata,omitempty" db:"metadata"`
	Timestamp     time.Time      `json:"timestamp" db:"timestamp"`
}

type Action string

const (
	ActionRender  Action = "render"
	ActionClick   Action = "click"
	ActionHover   Action = "hover"
	ActionMount   Action = "mount"
	ActionUnmount Action = "unmount"
)

func (a Action) Valid() bool {
	switch a {
	case ActionRender, ActionClick, ActionHover, ActionMount, ActionUnmount:
		return true
	default:
		return false
	}
}

// Field limits. Keep these stable; they are part of the ingestion contract.
const (
	MaxComponentNameLen = 120
	MaxVariantLen       = 80
	MaxIdentifierLen    = 120

	DefaultVariant = "default"
)

// Filter selects events by time range and optional dimensions.
// From/To are inclusive bounds on Event.Timestamp; zero values mean unbounded.
type Filter struct {
	From          time.Time
	To            time.Time
	ComponentName string
	ProjectID     string
}

// Validate rejects inverted time ranges before any store access.
func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return &ValidationError{Field: "to", Message: "to must not precede from"}
	}
	return nil
}

// ComponentStats is the per-component rollup entry.
type ComponentStats struct {
	ComponentName    string         `json:"componentName"`
	Total            int            `json:"total"`
	LastUsed         time.Time      `json:"lastUsed"`
	VariantBreakdown map[string]int `json:"variantBreakdown"`
	ActionBreakdown  map[string]int `json:"actionBreakdown"`
}

// Rollup is the aggregated response for the stats endpoint.
type Rollup struct {
	GeneratedAt   time.Time        `json:"generatedAt"`
	Filters       FilterEcho       `json:"filters"`
	TotalEvents   int              `json:"totalEvents"`
	TopComponents []ComponentStats `json:"topComponents"`
}

// FilterEcho mirrors the caller's filter inputs back in responses.
// Empty values are omitted, matching the query-string shape.
type FilterEcho struct {
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	ComponentName string `json:"componentName,omitempty"`
	ProjectID     string `json:"projectId,omitempty"`
}

// ValidationError names the first offending field of a rejected payload.
// Validation fails fast: one error per response, no partial report.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
