package models

import (
	"github.com/google/uuid"
)

// NewUUID generates a new UUID string
func NewUUID() string {
	return uuid.New().String()
}

// NewRunID returns the identifier attached to every log line and event of one pipeline run.
func NewRunID() string {
	return uuid.NewString()[:8]
}
