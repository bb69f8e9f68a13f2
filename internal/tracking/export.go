package tracking

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Export column order is a wire contract; do not reorder.
var csvHeader = []string{"componentName", "variant", "action", "projectId", "userId", "timestamp", "metadata"}

// Export result sets are unbounded, so both formats write row-by-row off the
// store cursor instead of materializing the result first. Flushing every few
// rows keeps slow clients from buffering the whole response; a client
// disconnect cancels ctx and closes the cursor.
const exportFlushEvery = 64

// ExportCSV streams the filtered events as RFC 4180 CSV, ordered by timestamp
// descending. Cells containing commas, quotes or newlines are quoted with
// internal quotes doubled; missing fields render as empty cells; metadata is
// serialized as a compact JSON string in its cell.
func (s *Service) ExportCSV(ctx context.Context, f Filter, w io.Writer) error {
	if s.repo == nil {
		return errors.New("tracking: repository not configured")
	}
	if err := f.Validate(); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	n := 0
	err := s.repo.Stream(ctx, f, func(e Event) error {
		row, err := csvRow(e)
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return err
		}
		n++
		if n%exportFlushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			flush(w)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(e Event) ([]string, error) {
	meta := ""
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		meta = string(b)
	}
	return []string{
		e.ComponentName,
		e.Variant,
		string(e.Action),
		e.ProjectID,
		e.UserID,
		e.Timestamp.Format(time.RFC3339),
		meta,
	}, nil
}

// ExportJSON streams a single JSON document with the filtered events, ordered
// by timestamp descending. totalEvents is written after the array so the
// document can stream without counting up front.
func (s *Service) ExportJSON(ctx context.Context, f Filter, w io.Writer) error {
	if s.repo == nil {
		return errors.New("tracking: repository not configured")
	}
	if err := f.Validate(); err != nil {
		return err
	}

	filters, err := json.Marshal(f.Echo())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `{"generatedAt":%q,"filters":%s,"events":[`,
		s.clock().UTC().Format(time.RFC3339), filters); err != nil {
		return err
	}

	n := 0
	err = s.repo.Stream(ctx, f, func(e Event) error {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if n > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		n++
		if n%exportFlushEvery == 0 {
			flush(w)
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, `],"totalEvents":%d}`, n)
	return err
}

func flush(w io.Writer) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
