package tracking

import "encoding/binary"

// Keyspace:
//
//	track/{eventId}                          record (global lookup by eventId)
//	pend/{published_ms_be8}/{eventId}        pending-by-time index, removed on
//	                                         any terminal transition
//	t/{tenant}/trackidx/{published_ms_be8}/{eventId}
//	                                         per-tenant time index for health
//	                                         windows and search
var (
	trackPrefix  = []byte("track/")
	pendPrefix   = []byte("pend/")
	tenantPrefix = []byte("t/")
	idxSeg       = []byte("/trackidx/")
	sep          = byte('/')
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func recordKey(eventID string) []byte {
	k := make([]byte, 0, len(trackPrefix)+len(eventID))
	k = append(k, trackPrefix...)
	k = append(k, eventID...)
	return k
}

func pendingKey(publishedMs int64, eventID string) []byte {
	k := make([]byte, 0, len(pendPrefix)+8+1+len(eventID))
	k = append(k, pendPrefix...)
	k = appendBE8(k, uint64(publishedMs))
	k = append(k, sep)
	k = append(k, eventID...)
	return k
}

func tenantIdxKey(tenant string, publishedMs int64, eventID string) []byte {
	k := tenantIdxPrefix(tenant)
	k = appendBE8(k, uint64(publishedMs))
	k = append(k, sep)
	k = append(k, eventID...)
	return k
}

func tenantIdxPrefix(tenant string) []byte {
	k := make([]byte, 0, len(tenantPrefix)+len(tenant)+len(idxSeg)+16)
	k = append(k, tenantPrefix...)
	k = append(k, tenant...)
	k = append(k, idxSeg...)
	return k
}
