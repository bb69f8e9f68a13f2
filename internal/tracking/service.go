package tracking

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Repository is the persistence contract for tracking events.
//
// It MUST be append-only. No Update/Delete methods are provided;
// retention is an external operational concern.
type Repository interface {
	Insert(ctx context.Context, e Event) error

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, f Filter) (int, error)

	// Stream yields matching events ordered by timestamp descending, one at a
	// time. It stops early and returns fn's error if fn fails, and must honor
	// ctx cancellation so a disconnected client releases the cursor.
	Stream(ctx context.Context, f Filter, fn func(Event) error) error
}

// Stats responses are capped; callers who need the full set use export.
const maxTopComponents = 50

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// TrackRequest is one ingestion payload before validation.
// Timestamp is the raw caller-supplied string; empty means "now".
type TrackRequest struct {
	ComponentName string         `json:"componentName"`
	Variant       string         `json:"variant"`
	Action        string         `json:"action"`
	ProjectID     string         `json:"projectId"`
	UserID        string         `json:"userId"`
	Metadata      map[string]any `json:"metadata"`
	Timestamp     string         `json:"timestamp"`
}

// Track validates one payload and appends it to the store.
// Validation fails fast on the first offending field; nothing is written on
// failure. Repeated identical payloads each create a new row; ingestion is
// deliberately not idempotent.
func (s *Service) Track(ctx context.Context, req TrackRequest) (Event, error) {
	if s.repo == nil {
		return Event{}, errors.New("tracking: repository not configured")
	}

	e, err := s.buildEvent(req)
	if err != nil {
		return Event{}, err
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Event{}, err
	}
	return e, nil
}

func (s *Service) buildEvent(req TrackRequest) (Event, error) {
	name := strings.TrimSpace(req.ComponentName)
	if name == "" {
		return Event{}, &ValidationError{Field: "componentName", Message: "componentName is required"}
	}
	if utf8.RuneCountInString(name) > MaxComponentNameLen {
		return Event{}, &ValidationError{Field: "componentName", Message: "componentName must be at most 120 characters"}
	}

	variant := strings.TrimSpace(req.Variant)
	if variant == "" {
		variant = DefaultVariant
	}
	if utf8.RuneCountInString(variant) > MaxVariantLen {
		return Event{}, &ValidationError{Field: "variant", Message: "variant must be at most 80 characters"}
	}

	action := Action(strings.TrimSpace(req.Action))
	if !action.Valid() {
		return Event{}, &ValidationError{Field: "action", Message: "action must be one of render, click, hover, mount, unmount"}
	}

	projectID := strings.TrimSpace(req.ProjectID)
	if utf8.RuneCountInString(projectID) > MaxIdentifierLen {
		return Event{}, &ValidationError{Field: "projectId", Message: "projectId must be at most 120 characters"}
	}
	userID := strings.TrimSpace(req.UserID)
	if utf8.RuneCountInString(userID) > MaxIdentifierLen {
		return Event{}, &ValidationError{Field: "userId", Message: "userId must be at most 120 characters"}
	}

	// Caller-supplied timestamps are accepted verbatim, including past and
	// future dates; backdating is an intentional backfill allowance.
	ts := s.clock().UTC()
	if raw := strings.TrimSpace(req.Timestamp); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Event{}, &ValidationError{Field: "timestamp", Message: "timestamp must be an ISO-8601 date"}
		}
		ts = parsed
	}

	return Event{
		ID:            uuid.NewString(),
		ComponentName: name,
		Variant:       variant,
		Action:        action,
		ProjectID:     projectID,
		UserID:        userID,
		Metadata:      req.Metadata,
		Timestamp:     ts,
	}, nil
}

// Stats computes the per-component rollup over the filtered event set.
//
// The grouping is an explicit two-pass fold (group by componentName, then
// tally variants and actions within each group) over a streamed cursor, so the
// logic stays portable across storage engines and testable without one.
func (s *Service) Stats(ctx context.Context, f Filter) (Rollup, error) {
	if s.repo == nil {
		return Rollup{}, errors.New("tracking: repository not configured")
	}
	if err := f.Validate(); err != nil {
		return Rollup{}, err
	}

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return Rollup{}, err
	}

	groups := make(map[string]*ComponentStats)
	err = s.repo.Stream(ctx, f, func(e Event) error {
		g, ok := groups[e.ComponentName]
		if !ok {
			g = &ComponentStats{
				ComponentName:    e.ComponentName,
				VariantBreakdown: map[string]int{},
				ActionBreakdown:  map[string]int{},
			}
			groups[e.ComponentName] = g
		}
		g.Total++
		if e.Timestamp.After(g.LastUsed) {
			g.LastUsed = e.Timestamp
		}
		g.VariantBreakdown[e.Variant]++
		g.ActionBreakdown[string(e.Action)]++
		return nil
	})
	if err != nil {
		return Rollup{}, err
	}

	top := make([]ComponentStats, 0, len(groups))
	for _, g := range groups {
		top = append(top, *g)
	}
	// Ties on total are broken by name so the ordering is deterministic for a
	// fixed input set.
	sort.Slice(top, func(i, j int) bool {
		if top[i].Total != top[j].Total {
			return top[i].Total > top[j].Total
		}
		return top[i].ComponentName < top[j].ComponentName
	})
	if len(top) > maxTopComponents {
		top = top[:maxTopComponents]
	}

	return Rollup{
		GeneratedAt:   s.clock().UTC(),
		Filters:       f.Echo(),
		TotalEvents:   total,
		TopComponents: top,
	}, nil
}

// Echo renders the filter back into its response form.
func (f Filter) Echo() FilterEcho {
	out := FilterEcho{
		ComponentName: f.ComponentName,
		ProjectID:     f.ProjectID,
	}
	if !f.From.IsZero() {
		out.From = f.From.Format(time.RFC3339)
	}
	if !f.To.IsZero() {
		out.To = f.To.Format(time.RFC3339)
	}
	return out
}
