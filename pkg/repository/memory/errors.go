package memory

import "github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"

// ErrNotFound is returned when a requested note does not exist for the
// owner
var ErrNotFound = interfaces.ErrNotFound
