package ids

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a random 32-character hex identifier.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Prefixed returns New with a short type prefix, e.g. "tr_" for transcripts.
func Prefixed(prefix string) string {
	return prefix + New()
}
