package memory

import (
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
)

// Memory is an in-memory Repository implementation for development and
// tests
type Memory struct {
	note *noteRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		note: newNoteRepository(),
	}
}

func (m *Memory) Note() interfaces.NoteRepository {
	return m.note
}

func (m *Memory) Close() error {
	return nil
}
