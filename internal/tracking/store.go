package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/event"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/metrics"
	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

// ErrNotFound is returned when no record exists for an eventId.
var ErrNotFound = errors.New("tracking: record not found")

const lockStripes = 256

// Store persists tracking records. Updates to a given eventId are
// serialized through striped locks; everything else is concurrent.
type Store struct {
	db     *pebblestore.DB
	logger logpkg.Logger
	locks  [lockStripes]sync.Mutex
}

// NewStore returns a Store over db.
func NewStore(db *pebblestore.DB, logger logpkg.Logger) *Store {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("tracking"))
	}
	return &Store{db: db, logger: logger}
}

func (s *Store) lockFor(eventID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(eventID))
	return &s.locks[h.Sum32()%lockStripes]
}

// Create writes the PUBLISHED record for a fresh eventId. Re-creating an
// existing record is a no-op so the publisher can retry after a partial
// failure without clobbering later transitions.
func (s *Store) Create(rec Record) error {
	if rec.EventID == "" {
		return errors.New("tracking: record requires eventId")
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("tracking: invalid status %q", rec.Status)
	}
	mu := s.lockFor(rec.EventID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.db.Get(recordKey(rec.EventID)); err == nil {
		return nil
	} else if !errors.Is(err, pebblestore.ErrNotFound) {
		return err
	}

	val, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	ms := rec.PublishedAt.UnixMilli()
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(recordKey(rec.EventID), val, nil); err != nil {
		return err
	}
	if rec.Status == StatusPublished {
		if err := b.Set(pendingKey(ms, rec.EventID), nil, nil); err != nil {
			return err
		}
	}
	if err := b.Set(tenantIdxKey(rec.TenantID, ms, rec.EventID), nil, nil); err != nil {
		return err
	}
	return s.db.CommitBatch(context.Background(), b)
}

// Get loads the record for eventID.
func (s *Store) Get(eventID string) (Record, error) {
	val, err := s.db.Get(recordKey(eventID))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ApplyAck applies one acknowledgment to its record. An ack whose tenant
// or consumer application does not match the record is rejected as
// malformed. Terminal records are left untouched, which makes
// re-processing the same ack idempotent and shields FAILED records from
// stale late acks. The bool return reports whether the record changed.
func (s *Store) ApplyAck(ack event.Ack, retryBudget int) (Record, bool, error) {
	mu := s.lockFor(ack.EventID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.Get(ack.EventID)
	if err != nil {
		return Record{}, false, err
	}
	if ack.TenantID != rec.TenantID {
		return rec, false, fmt.Errorf("%w: ack tenant %q does not own event %s",
			event.ErrMalformed, ack.TenantID, ack.EventID)
	}
	if ack.ConsumerApplication != rec.ConsumerApplication {
		return rec, false, fmt.Errorf("%w: ack from %q for event %s published to %q",
			event.ErrMalformed, ack.ConsumerApplication, ack.EventID, rec.ConsumerApplication)
	}
	if rec.Status.Terminal() {
		return rec, false, nil
	}

	switch ack.Result {
	case event.AckOK:
		ts := ack.AckTimestamp
		rec.Status = StatusAcknowledged
		rec.AcknowledgedAt = &ts
	case event.AckError:
		rec.RetryCount++
		rec.LastError = ack.ErrorDetail
		if rec.RetryCount >= retryBudget {
			rec.Status = StatusFailed
		}
	default:
		return rec, false, fmt.Errorf("%w: result %q", event.ErrMalformed, ack.Result)
	}

	if err := s.write(rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// write persists rec and drops the pending index entry once the record
// leaves PUBLISHED. Callers hold the stripe lock.
func (s *Store) write(rec Record) error {
	val, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(recordKey(rec.EventID), val, nil); err != nil {
		return err
	}
	if rec.Status.Terminal() {
		if err := b.Delete(pendingKey(rec.PublishedAt.UnixMilli(), rec.EventID), nil); err != nil {
			return err
		}
	}
	return s.db.CommitBatch(context.Background(), b)
}

// expire moves one record from PUBLISHED to EXPIRED. Records that moved
// on since the sweeper scanned them are skipped.
func (s *Store) expire(eventID string) (bool, error) {
	mu := s.lockFor(eventID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.Get(eventID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if rec.Status != StatusPublished {
		return false, nil
	}
	rec.Status = StatusExpired
	if err := s.write(rec); err != nil {
		return false, err
	}
	return true, nil
}

// SweepExpired expires PUBLISHED records older than cutoffMs, up to max.
// It returns the number of records transitioned.
func (s *Store) SweepExpired(ctx context.Context, cutoffMs int64, max int) (int, error) {
	lo := append([]byte{}, pendPrefix...)
	hi := append([]byte{}, pendPrefix...)
	hi = appendBE8(hi, uint64(cutoffMs))
	hi = append(hi, 0xFF)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return 0, err
	}

	// collect first; expire() writes under stripe locks and deletes the
	// pend keys we are iterating
	ids := make([]string, 0, 64)
	for ok := iter.First(); ok; ok = iter.Next() {
		k := iter.Key()
		if len(k) < len(pendPrefix)+8+1 {
			continue
		}
		ids = append(ids, string(k[len(pendPrefix)+8+1:]))
		if max > 0 && len(ids) >= max {
			break
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		ok, err := s.expire(id)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
			metrics.TrackingExpired()
			s.logger.Warn("tracking record expired without ack", logpkg.Str("event_id", id))
		} else {
			// record moved on; drop the stale pend entry
			rec, err := s.Get(id)
			if err == nil {
				_ = s.db.Delete(pendingKey(rec.PublishedAt.UnixMilli(), rec.EventID))
			}
		}
	}
	return expired, nil
}

// ScanWindow returns records for tenant published in [fromMs, toMs],
// oldest first. limit of 0 means no cap.
func (s *Store) ScanWindow(tenant string, fromMs, toMs int64, limit int) ([]Record, error) {
	lo := tenantIdxPrefix(tenant)
	lo = appendBE8(lo, uint64(fromMs))
	hi := tenantIdxPrefix(tenant)
	hi = appendBE8(hi, uint64(toMs))
	hi = append(hi, 0xFF)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	prefixLen := len(tenantIdxPrefix(tenant))
	out := make([]Record, 0, 64)
	for ok := iter.First(); ok && (limit == 0 || len(out) < limit); ok = iter.Next() {
		k := iter.Key()
		if len(k) < prefixLen+8+1 {
			continue
		}
		eventID := string(k[prefixLen+8+1:])
		rec, err := s.Get(eventID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
