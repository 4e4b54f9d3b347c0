package session

import "testing"

func TestBufferSetRawKeepsOtherSlots(t *testing.T) {
	b := NewBuffer(3)
	b.SetRaw(0, "print(1)")
	b.SetRaw(2, "B")

	if got := b.Get(0).Raw; got != "print(1)" {
		t.Errorf("slot 0 = %q", got)
	}
	if got := b.Get(1).Raw; got != "" {
		t.Errorf("slot 1 = %q, want empty", got)
	}
	if got := b.Get(2).Raw; got != "B" {
		t.Errorf("slot 2 = %q", got)
	}
}

func TestBufferSetScoreTriState(t *testing.T) {
	b := NewBuffer(2)
	if b.Get(0).IsCorrect != nil {
		t.Fatal("fresh slot should be unscored")
	}

	b.SetScore(0, true, 10)
	entry := b.Get(0)
	if entry.IsCorrect == nil || !*entry.IsCorrect || entry.PointsEarned != 10 {
		t.Errorf("slot 0 = %+v, want correct with 10 points", entry)
	}

	// Last write wins.
	b.SetScore(0, false, 0)
	entry = b.Get(0)
	if entry.IsCorrect == nil || *entry.IsCorrect || entry.PointsEarned != 0 {
		t.Errorf("slot 0 = %+v after rescore, want incorrect zero", entry)
	}
}

func TestBufferOutOfBounds(t *testing.T) {
	b := NewBuffer(1)
	b.SetRaw(-1, "x")
	b.SetRaw(5, "y")
	b.SetScore(5, true, 1)
	if got := b.Get(-1); got != (Entry{}) {
		t.Errorf("Get(-1) = %+v, want zero entry", got)
	}
	if got := b.Get(0).Raw; got != "" {
		t.Errorf("slot 0 = %q after out-of-bounds writes", got)
	}
}

func TestBufferClear(t *testing.T) {
	b := NewBuffer(2)
	b.SetRaw(0, "x")
	b.SetScore(0, true, 5)
	b.Clear()
	if b.Len() != 2 {
		t.Errorf("Len = %d after Clear, want 2", b.Len())
	}
	if got := b.Get(0); got != (Entry{}) {
		t.Errorf("slot 0 = %+v after Clear, want zero entry", got)
	}
}

func TestCursorBounds(t *testing.T) {
	c := NewCursor(3)

	c.Previous()
	if c.Index() != 0 {
		t.Errorf("Previous at lower bound moved to %d", c.Index())
	}

	c.Next()
	c.Next()
	c.Next()
	if c.Index() != 2 {
		t.Errorf("Next at upper bound moved to %d", c.Index())
	}

	c.Seek(-4)
	if c.Index() != 0 {
		t.Errorf("Seek(-4) = %d, want 0", c.Index())
	}
	c.Seek(99)
	if c.Index() != 2 {
		t.Errorf("Seek(99) = %d, want 2", c.Index())
	}

	c.Reset()
	if c.Index() != 0 {
		t.Errorf("Reset = %d, want 0", c.Index())
	}
}
