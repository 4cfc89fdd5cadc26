package stream

import (
	"encoding/binary"
	"hash/crc32"
)

// Entry encoding: uvarint header length | header | payload | crc32c over
// header and payload. A failed checksum means the entry is skipped on read.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeEntry frames header and payload into a single value.
func EncodeEntry(header, payload []byte) []byte {
	out := make([]byte, 0, 10+len(header)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

// DecodeEntry splits a framed value back into header and payload. The
// second return is false for truncated or corrupted values.
func DecodeEntry(b []byte) ([]byte, []byte, bool) {
	if len(b) < 1+4 {
		return nil, nil, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || n+int(hlen)+4 > len(b) {
		return nil, nil, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	want := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != want {
		return nil, nil, false
	}
	return append([]byte(nil), header...), append([]byte(nil), payload...), true
}
