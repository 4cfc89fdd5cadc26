package stream

import (
	"encoding/binary"

	"github.com/Cdineshreddy12/Wrapper-sub015/pkg/id"
)

// Entry headers carry a fixed 24-byte prefix: the 16-byte transport record
// id followed by the publish timestamp in unix ms. The envelope itself
// travels in the payload and stays opaque to this package.

const headerLen = 24

// EncodeHeader builds an entry header.
func EncodeHeader(recordID id.ID, publishedMs int64) []byte {
	out := make([]byte, headerLen)
	copy(out[0:16], recordID[:])
	binary.BigEndian.PutUint64(out[16:24], uint64(publishedMs))
	return out
}

// DecodeHeader splits an entry header. False when the header is too short.
func DecodeHeader(b []byte) (id.ID, int64, bool) {
	var rid id.ID
	if len(b) < headerLen {
		return rid, 0, false
	}
	copy(rid[:], b[0:16])
	return rid, int64(binary.BigEndian.Uint64(b[16:24])), true
}
