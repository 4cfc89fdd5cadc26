package id

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"sync"
	"time"
)

// ID is a 16-byte big-endian identifier: [8B ms timestamp][8B sequence].
type ID [16]byte

// Bytes returns a copy of the raw 16 bytes.
func (i ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, i[:])
	return b
}

// String returns the lowercase hex encoding.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// TimeMs returns the embedded millisecond timestamp.
func (i ID) TimeMs() int64 { return int64(binary.BigEndian.Uint64(i[0:8])) }

// Compare orders IDs bytewise: -1, 0 or 1.
func (i ID) Compare(other ID) int {
	for n := 0; n < 16; n++ {
		switch {
		case i[n] < other[n]:
			return -1
		case i[n] > other[n]:
			return 1
		}
	}
	return 0
}

// Parse decodes a 32-character hex string into an ID.
func Parse(s string) (ID, error) {
	var out ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 16 {
		return out, errors.New("id: expected 16 bytes")
	}
	copy(out[:], b)
	return out, nil
}

// NowMs is the clock used by Generator; overridable in tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Generator produces strictly increasing IDs for a single process.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
	seq    uint64
}

// NewGenerator returns a ready Generator.
func NewGenerator() *Generator { return &Generator{} }

// Next returns the next ID. A clock moving backwards keeps the previous
// millisecond and bumps the sequence; sequence exhaustion within one
// millisecond waits for the clock to advance.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	if ms == g.lastMs {
		if g.seq == math.MaxUint64 {
			for ms <= g.lastMs {
				time.Sleep(100 * time.Microsecond)
				ms = NowMs()
			}
			g.seq = 0
		} else {
			g.seq++
		}
	} else {
		g.seq = 0
	}
	g.lastMs = ms

	var out ID
	binary.BigEndian.PutUint64(out[0:8], uint64(ms))
	binary.BigEndian.PutUint64(out[8:16], g.seq)
	return out
}
