package sqlexec

import "github.com/google/uuid"

// NameGenerator names the shared-cache databases behind in-memory sessions.
// Implemented by UUIDv7Generator (production) and testutil.FixedNameGenerator.
type NameGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 names.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
