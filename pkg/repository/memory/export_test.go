package memory

import "time"

// SetNow replaces the clock used to stamp CreatedAt, so tests can create
// notes at specific times.
func (m *Memory) SetNow(fn func() time.Time) {
	m.note.now = fn
}
