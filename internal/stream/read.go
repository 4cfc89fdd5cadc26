package stream

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// Token is a read position: the sequence to start from, big-endian.
type Token [8]byte

// TokenFromSeq builds a Token positioned at seq.
func TokenFromSeq(seq uint64) Token {
	var t Token
	binary.BigEndian.PutUint64(t[:], seq)
	return t
}

// Seq returns the sequence the token points at.
func (t Token) Seq() uint64 { return binary.BigEndian.Uint64(t[:]) }

// Next returns the token one position past t.
func (t Token) Next() Token { return TokenFromSeq(t.Seq() + 1) }

// ReadOptions controls a single Read call.
type ReadOptions struct {
	// Start is inclusive; the zero token starts at the first entry.
	Start Token
	// Limit caps returned items; 0 means no cap.
	Limit int
}

// Item is one decoded log entry.
type Item struct {
	Seq     uint64
	Header  []byte
	Payload []byte
}

// Read returns up to Limit items beginning at Start. Corrupted entries are
// skipped. The returned token points at the next unread position; on error
// it is opts.Start so callers never advance past unread entries.
func (l *Log) Read(opts ReadOptions) ([]Item, Token, error) {
	low := KeyLogEntry(l.tenant, l.stream, 0)
	hi := KeyLogEntry(l.tenant, l.stream, ^uint64(0))
	items := make([]Item, 0, 16)

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return nil, opts.Start, err
	}
	defer iter.Close()

	startSeq := opts.Start.Seq()
	ok := false
	if startSeq == 0 {
		ok = iter.First()
	} else {
		ok = iter.SeekGE(KeyLogEntry(l.tenant, l.stream, startSeq))
	}

	var lastSeq uint64
	for ; ok && (opts.Limit == 0 || len(items) < opts.Limit); ok = iter.Next() {
		k := iter.Key()
		seq := binary.BigEndian.Uint64(k[len(k)-8:])
		lastSeq = seq
		header, payload, decOK := DecodeEntry(iter.Value())
		if !decOK {
			continue
		}
		items = append(items, Item{Seq: seq, Header: header, Payload: payload})
	}
	if err := iter.Error(); err != nil {
		return nil, opts.Start, err
	}
	if lastSeq == 0 {
		return items, opts.Start, nil
	}
	return items, TokenFromSeq(lastSeq+1), nil
}
