package util

import "github.com/google/uuid"

// NewID returns a random, globally unique row id.
func NewID() string {
	return uuid.NewString()
}
