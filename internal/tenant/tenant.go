// Package tenant stores per-tenant metadata records. Tenants are the
// scoping unit for event streams, tracking records and health metrics.
package tenant

import (
	"encoding/json"
	"time"

	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
)

// Meta holds tenant metadata.
type Meta struct {
	ID          string `json:"id"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

var metaPrefix = []byte("tenantmeta/")

func metaKey(id string) []byte {
	k := make([]byte, 0, len(metaPrefix)+len(id))
	k = append(k, metaPrefix...)
	k = append(k, id...)
	return k
}

// Ensure creates the tenant record if absent and returns the effective
// meta. Idempotent.
func Ensure(db *pebblestore.DB, id string) (Meta, error) {
	key := metaKey(id)
	if b, err := db.Get(key); err == nil && len(b) > 0 {
		var m Meta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
		// corrupted record: fall through and rewrite
	}
	m := Meta{ID: id, CreatedAtMs: time.Now().UnixMilli()}
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := db.Set(key, b); err != nil {
		return Meta{}, err
	}
	return m, nil
}
