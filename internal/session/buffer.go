package session

// Entry is one slot of the answer buffer: the learner's latest raw answer
// (code text or selected option value) and the latest evaluation result.
// IsCorrect stays nil until the scorer has run at least once for the slot.
type Entry struct {
	Raw          string
	IsCorrect    *bool
	PointsEarned int
}

// Buffer is the per-attempt, per-question scratch store. Slots are
// independent and indexed by question position; entries survive cursor
// movement and are discarded only on commit.
type Buffer struct {
	entries []Entry
}

func NewBuffer(size int) *Buffer {
	return &Buffer{entries: make([]Entry, size)}
}

func (b *Buffer) Len() int {
	return len(b.entries)
}

// Get returns the entry at index, or a zero entry when out of bounds.
func (b *Buffer) Get(index int) Entry {
	if index < 0 || index >= len(b.entries) {
		return Entry{}
	}
	return b.entries[index]
}

// SetRaw stores the latest raw answer for a slot. Out-of-bounds writes are
// dropped; the previous evaluation result is kept until the slot is re-run.
func (b *Buffer) SetRaw(index int, raw string) {
	if index < 0 || index >= len(b.entries) {
		return
	}
	b.entries[index].Raw = raw
}

// SetScore records an evaluation result for a slot, last-write-wins.
func (b *Buffer) SetScore(index int, isCorrect bool, pointsEarned int) {
	if index < 0 || index >= len(b.entries) {
		return
	}
	b.entries[index].IsCorrect = &isCorrect
	b.entries[index].PointsEarned = pointsEarned
}

// Seed pre-populates a slot from a previously saved answer.
func (b *Buffer) Seed(index int, raw string, isCorrect *bool, pointsEarned int) {
	if index < 0 || index >= len(b.entries) {
		return
	}
	b.entries[index] = Entry{Raw: raw, IsCorrect: isCorrect, PointsEarned: pointsEarned}
}

// Clear discards all entries, keeping the slot count.
func (b *Buffer) Clear() {
	for i := range b.entries {
		b.entries[i] = Entry{}
	}
}
