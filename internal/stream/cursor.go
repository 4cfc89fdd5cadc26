package stream

import "encoding/binary"

// CommitCursor durably stores the last processed sequence for a consumer
// group. Commits never move backwards: a token at or below the stored
// position is ignored, which makes replayed commits after a crash no-ops.
func (l *Log) CommitCursor(group string, tok Token) error {
	key := KeyCursor(l.tenant, l.stream, group)
	cur, err := l.db.Get(key)
	if err == nil && len(cur) >= 8 {
		prev := binary.BigEndian.Uint64(cur[:8])
		if tok.Seq() <= prev {
			return nil
		}
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], tok.Seq())
	return l.db.Set(key, b[:])
}

// GetCursor loads the stored cursor for a consumer group. The second
// return is false when the group has never committed.
func (l *Log) GetCursor(group string) (Token, bool) {
	cur, err := l.db.Get(KeyCursor(l.tenant, l.stream, group))
	if err != nil || len(cur) < 8 {
		return Token{}, false
	}
	var t Token
	copy(t[:], cur[:8])
	return t, true
}
