package stream

import (
	"context"
	"testing"
)

func TestCursorCommitAndLoad(t *testing.T) {
	l := newTestLog(t)
	if _, ok := l.GetCursor("tracker"); ok {
		t.Fatal("cursor should be absent before first commit")
	}
	if err := l.CommitCursor("tracker", TokenFromSeq(5)); err != nil {
		t.Fatalf("commit: %v", err)
	}
	tok, ok := l.GetCursor("tracker")
	if !ok || tok.Seq() != 5 {
		t.Fatalf("cursor = %d ok=%v", tok.Seq(), ok)
	}
}

func TestCursorNeverMovesBackwards(t *testing.T) {
	l := newTestLog(t)
	if err := l.CommitCursor("tracker", TokenFromSeq(9)); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// re-applying an earlier position is a no-op
	if err := l.CommitCursor("tracker", TokenFromSeq(3)); err != nil {
		t.Fatalf("stale commit: %v", err)
	}
	tok, _ := l.GetCursor("tracker")
	if tok.Seq() != 9 {
		t.Fatalf("cursor regressed to %d", tok.Seq())
	}
}

func TestCursorsIndependentPerGroup(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.Append(context.Background(), []AppendRecord{{Payload: []byte("x")}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.CommitCursor("a", TokenFromSeq(1)); err != nil {
		t.Fatalf("commit a: %v", err)
	}
	if _, ok := l.GetCursor("b"); ok {
		t.Fatal("group b should have no cursor")
	}
}
