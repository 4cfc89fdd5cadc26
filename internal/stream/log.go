package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("stream: entry not found")

// AppendRecord is a single appendable entry.
type AppendRecord struct {
	Header  []byte
	Payload []byte
}

// Log is an append-only, per-(tenant, stream key) ordered log with durable
// consumer group cursors.
type Log struct {
	db     *pebblestore.DB
	tenant string
	stream string

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
}

// OpenLog initializes a Log, restoring the last sequence from metadata.
func OpenLog(db *pebblestore.DB, tenant, streamKey string) (*Log, error) {
	l := &Log{db: db, tenant: tenant, stream: streamKey, notifyCh: make(chan struct{})}
	meta, err := db.Get(KeyLogMeta(tenant, streamKey))
	if err == nil && len(meta) >= 8 {
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return l, nil
}

// Tenant returns the owning tenant id.
func (l *Log) Tenant() string { return l.tenant }

// StreamKey returns the stream key this log serves.
func (l *Log) StreamKey() string { return l.stream }

// Append writes recs as one atomic batch and returns the assigned
// sequence numbers. Waiters blocked in WaitForAppend are woken.
func (l *Log) Append(ctx context.Context, recs []AppendRecord) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	seqs := make([]uint64, len(recs))
	for i, r := range recs {
		l.lastSeq++
		val := EncodeEntry(r.Header, r.Payload)
		if err := b.Set(KeyLogEntry(l.tenant, l.stream, l.lastSeq), val, nil); err != nil {
			return nil, err
		}
		seqs[i] = l.lastSeq
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], l.lastSeq)
	if err := b.Set(KeyLogMeta(l.tenant, l.stream), meta[:], nil); err != nil {
		return nil, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}

	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return seqs, nil
}

// LastSeq returns the highest assigned sequence.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// WaitForAppend blocks until a new append occurs, the timeout elapses, or
// ctx is done. It returns true only when woken by an append.
func (l *Log) WaitForAppend(ctx context.Context, timeout time.Duration) bool {
	l.mu.Lock()
	ch := l.notifyCh
	l.mu.Unlock()

	if timeout <= 0 {
		select {
		case <-ch:
			return true
		case <-ctx.Done():
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}
