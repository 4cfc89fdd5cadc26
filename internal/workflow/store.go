package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
)

// ErrNotFound is returned for unknown workflow ids.
var ErrNotFound = errors.New("workflow: execution not found")

// Keyspace:
//
//	wf/{workflowId}     execution record (JSON)
//	wfrun/{workflowId}  running index, scanned on startup to resume
var (
	execPrefix    = []byte("wf/")
	runningPrefix = []byte("wfrun/")
)

func execKey(id string) []byte {
	return append(append([]byte{}, execPrefix...), id...)
}

func runningKey(id string) []byte {
	return append(append([]byte{}, runningPrefix...), id...)
}

// execStore persists executions. put holds mu so a handler update and a
// driver finalization cannot interleave their read-modify-write cycles.
type execStore struct {
	db *pebblestore.DB
	mu sync.Mutex
}

func (s *execStore) put(exec *Execution) error {
	val, err := json.Marshal(exec)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(execKey(exec.WorkflowID), val, nil); err != nil {
		return err
	}
	if exec.State == StateRunning {
		if err := b.Set(runningKey(exec.WorkflowID), nil, nil); err != nil {
			return err
		}
	} else {
		if err := b.Delete(runningKey(exec.WorkflowID), nil); err != nil {
			return err
		}
	}
	return s.db.CommitBatch(context.Background(), b)
}

func (s *execStore) get(id string) (Execution, error) {
	val, err := s.db.Get(execKey(id))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return Execution{}, ErrNotFound
		}
		return Execution{}, err
	}
	var exec Execution
	if err := json.Unmarshal(val, &exec); err != nil {
		return Execution{}, err
	}
	return exec, nil
}

// update applies fn to the stored execution under the store lock.
func (s *execStore) update(id string, fn func(*Execution) error) (Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, err := s.get(id)
	if err != nil {
		return Execution{}, err
	}
	if err := fn(&exec); err != nil {
		return exec, err
	}
	if err := s.put(&exec); err != nil {
		return Execution{}, err
	}
	return exec, nil
}

func (s *execStore) listRunning() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: runningPrefix,
		UpperBound: append(append([]byte{}, runningPrefix...), 0xFF),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []string
	for ok := iter.First(); ok; ok = iter.Next() {
		k := iter.Key()
		if len(k) <= len(runningPrefix) {
			continue
		}
		ids = append(ids, string(k[len(runningPrefix):]))
	}
	return ids, nil
}
