package types

import (
	"fmt"
	"strconv"
	"strings"
)

// OwnerID identifies the user that submitted a note. The core treats it as
// an opaque partition key; the transport layer decides its actual shape
// (Slack user IDs in the bundled adapter).
type OwnerID string

// String returns the string representation of the owner ID
func (id OwnerID) String() string {
	return string(id)
}

// ReferenceID is the stable, human-legible identifier of a persisted note.
// Format: "NOTE" followed by a positive ordinal (e.g. NOTE17). Reference IDs
// are never reused, even after the note is deleted.
type ReferenceID string

const referenceIDPrefix = "NOTE"

// NewReferenceID formats a repository sequence number into a reference ID
func NewReferenceID(seq int64) ReferenceID {
	return ReferenceID(fmt.Sprintf("%s%d", referenceIDPrefix, seq))
}

// String returns the string representation of the reference ID
func (id ReferenceID) String() string {
	return string(id)
}

// IsValid checks that the reference ID has the expected prefix and a
// positive ordinal
func (id ReferenceID) IsValid() bool {
	s := string(id)
	if !strings.HasPrefix(s, referenceIDPrefix) {
		return false
	}
	n, err := strconv.ParseInt(s[len(referenceIDPrefix):], 10, 64)
	return err == nil && n > 0
}

// ParseReferenceID normalizes user input (case, surrounding whitespace) into
// a ReferenceID
func ParseReferenceID(s string) (ReferenceID, error) {
	id := ReferenceID(strings.ToUpper(strings.TrimSpace(s)))
	if !id.IsValid() {
		return "", fmt.Errorf("invalid reference ID: %s", s)
	}
	return id, nil
}
