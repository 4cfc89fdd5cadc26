package taskqueue

import "encoding/binary"

// Pebble keyspace, lexicographically sortable:
//
//	q/{name}/meta                      lastSeq (8B) | availableCount (4B)
//	q/{name}/task/{seq_be8}            task payload
//	q/{name}/avail/{seq_be8}           ready-to-dequeue index
//	q/{name}/delay/{fire_be8}/{seq_be8}  delayed until fire (unix ms)
//	q/{name}/lease/{seq_be8}           lease expiry (8B unix ms)
//	q/{name}/lexp/{exp_be8}/{seq_be8}  lease expiry index for the sweeper
const (
	segMeta     = "/meta"
	segTask     = "/task/"
	segAvail    = "/avail/"
	segDelay    = "/delay/"
	segLease    = "/lease/"
	segLeaseExp = "/lexp/"
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func queuePrefix(name, seg string) []byte {
	k := make([]byte, 0, 2+len(name)+len(seg)+16)
	k = append(k, "q/"...)
	k = append(k, name...)
	k = append(k, seg...)
	return k
}

func metaKey(name string) []byte { return queuePrefix(name, segMeta) }

func taskKey(name string, seq uint64) []byte {
	return appendBE8(queuePrefix(name, segTask), seq)
}

func availKey(name string, seq uint64) []byte {
	return appendBE8(queuePrefix(name, segAvail), seq)
}

func delayKey(name string, fireMs uint64, seq uint64) []byte {
	return appendBE8(appendBE8(queuePrefix(name, segDelay), fireMs), seq)
}

func leaseKey(name string, seq uint64) []byte {
	return appendBE8(queuePrefix(name, segLease), seq)
}

func leaseExpKey(name string, expMs uint64, seq uint64) []byte {
	return appendBE8(appendBE8(queuePrefix(name, segLeaseExp), expMs), seq)
}

// upperBound returns the exclusive end key for a prefix scan.
func upperBound(prefix []byte) []byte {
	return append(append([]byte{}, prefix...), 0xFF)
}
