package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	cfgpkg "github.com/Cdineshreddy12/Wrapper-sub015/internal/config"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/metrics"
	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/stream"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/taskqueue"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/tenant"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Runtime wires storage and config for a single-node instance. Logs and
// queues are cached per key: concurrent components must share instances
// because append sequence state lives in memory.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config

	mu     sync.Mutex
	logs   map[string]*stream.Log
	queues map[string]*taskqueue.Queue
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       metrics.StorageHook{},
	})
	if err != nil {
		return nil, err
	}
	return &Runtime{
		db:     db,
		config: opts.Config,
		logs:   map[string]*stream.Log{},
		queues: map[string]*taskqueue.Queue{},
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth verifies the storage layer responds.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("runtime: db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// EnsureTenant creates tenant metadata if absent.
func (r *Runtime) EnsureTenant(id string) (tenant.Meta, error) {
	return tenant.Ensure(r.db, id)
}

// Log returns the shared stream log for (tenant, streamKey).
func (r *Runtime) Log(tenantID, streamKey string) (*stream.Log, error) {
	key := tenantID + "|" + streamKey
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.logs[key]; ok {
		return l, nil
	}
	l, err := stream.OpenLog(r.db, tenantID, streamKey)
	if err != nil {
		return nil, err
	}
	r.logs[key] = l
	return l, nil
}

// TaskQueue returns the shared task queue with the given name.
func (r *Runtime) TaskQueue(name string) (*taskqueue.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[name]; ok {
		return q, nil
	}
	q, err := taskqueue.OpenQueue(r.db, name)
	if err != nil {
		return nil, err
	}
	r.queues[name] = q
	return q, nil
}

// DB exposes the underlying store for components owning their keyspace.
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
