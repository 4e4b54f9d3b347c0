package session

// Cursor tracks the currently displayed question index. Movement is clamped
// to [0, count-1]; Next and Previous are no-ops at the bounds.
type Cursor struct {
	index int
	count int
}

func NewCursor(count int) *Cursor {
	return &Cursor{count: count}
}

func (c *Cursor) Index() int {
	return c.index
}

func (c *Cursor) Next() {
	if c.index < c.count-1 {
		c.index++
	}
}

func (c *Cursor) Previous() {
	if c.index > 0 {
		c.index--
	}
}

// Seek jumps to target, clamping into range.
func (c *Cursor) Seek(target int) {
	if target < 0 {
		target = 0
	}
	if target > c.count-1 {
		target = c.count - 1
	}
	if target < 0 {
		target = 0
	}
	c.index = target
}

// Reset returns the cursor to the first question.
func (c *Cursor) Reset() {
	c.index = 0
}
