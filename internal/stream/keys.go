package stream

import (
	"encoding/binary"
	"strings"
)

// Pebble keyspace, lexicographically sortable:
//
//	t/{tenant}/log/{stream}/m            partition metadata (last seq)
//	t/{tenant}/log/{stream}/e/{seq_be8}  entries
//	t/{tenant}/cur/{stream}/{group}      consumer group cursor
var (
	sep          = byte('/')
	tenantPrefix = []byte("t/")
	logSeg       = []byte("/log/")
	curSeg       = []byte("/cur/")
	metaSuffix   = []byte("/m")
	entrySeg     = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyLogMeta builds the log metadata key.
func KeyLogMeta(tenant, streamKey string) []byte {
	k := make([]byte, 0, len(tenant)+len(streamKey)+16)
	k = append(k, tenantPrefix...)
	k = append(k, tenant...)
	k = append(k, logSeg...)
	k = append(k, streamKey...)
	k = append(k, metaSuffix...)
	return k
}

// KeyLogEntry builds an entry key with a big-endian sequence so iteration
// order equals append order.
func KeyLogEntry(tenant, streamKey string, seq uint64) []byte {
	k := make([]byte, 0, len(tenant)+len(streamKey)+24)
	k = append(k, tenantPrefix...)
	k = append(k, tenant...)
	k = append(k, logSeg...)
	k = append(k, streamKey...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// KeyCursor builds the durable cursor key for a consumer group.
func KeyCursor(tenant, streamKey, group string) []byte {
	k := make([]byte, 0, len(tenant)+len(streamKey)+len(group)+16)
	k = append(k, tenantPrefix...)
	k = append(k, tenant...)
	k = append(k, curSeg...)
	k = append(k, streamKey...)
	k = append(k, sep)
	k = append(k, group...)
	return k
}

// EventStreamKey returns the stream key for events of eventType destined
// for app, per the external naming contract: dots in the event type become
// underscores ("credit.allocated" -> "crm:sync:credit_allocated").
func EventStreamKey(app, eventType string) string {
	return app + ":sync:" + strings.ReplaceAll(eventType, ".", "_")
}

// AckStreamKey returns the acknowledgment stream key for app.
func AckStreamKey(app string) string {
	return app + ":sync:ack"
}
