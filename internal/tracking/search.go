package tracking

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// SearchOptions controls a historical search over tracking records.
type SearchOptions struct {
	// FromMs/ToMs bound publish time; zero ToMs means now.
	FromMs int64
	ToMs   int64
	// Limit caps results after filtering; 0 means 100.
	Limit int
	// Filter is an optional CEL expression evaluated per record, e.g.
	// `status == "FAILED" && retry_count >= 2`.
	Filter string
}

// celFilter wraps a compiled CEL program; disabled filters accept all.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("event_id", cel.StringType),
		cel.Variable("tenant", cel.StringType),
		cel.Variable("event_type", cel.StringType),
		cel.Variable("consumer_app", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("retry_count", cel.IntType),
		cel.Variable("last_error", cel.StringType),
		cel.Variable("published_ms", cel.IntType),
		cel.Variable("acknowledged_ms", cel.IntType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

func (f celFilter) eval(rec Record, nowMs int64) bool {
	if !f.enabled {
		return true
	}
	var ackedMs int64
	if rec.AcknowledgedAt != nil {
		ackedMs = rec.AcknowledgedAt.UnixMilli()
	}
	out, _, err := f.prog.Eval(map[string]any{
		"event_id":        rec.EventID,
		"tenant":          rec.TenantID,
		"event_type":      rec.EventType,
		"consumer_app":    rec.ConsumerApplication,
		"status":          string(rec.Status),
		"retry_count":     int64(rec.RetryCount),
		"last_error":      rec.LastError,
		"published_ms":    rec.PublishedAt.UnixMilli(),
		"acknowledged_ms": ackedMs,
		"now_ms":          nowMs,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Search returns tenant records matching opts, oldest first.
func (s *Store) Search(tenant string, opts SearchOptions) ([]Record, error) {
	filter, err := newCELFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	toMs := opts.ToMs
	if toMs <= 0 {
		toMs = time.Now().UnixMilli()
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	recs, err := s.ScanWindow(tenant, opts.FromMs, toMs, 0)
	if err != nil {
		return nil, err
	}
	nowMs := time.Now().UnixMilli()
	out := make([]Record, 0, limit)
	for _, rec := range recs {
		if !filter.eval(rec, nowMs) {
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
