package store

import "github.com/google/uuid"

// newRowID returns a random version 4 UUID identifying a stored row independently of its position.
func newRowID() string {
	return uuid.NewString()
}
