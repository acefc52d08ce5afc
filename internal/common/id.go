package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique processing-run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewRequestID generates a unique request correlation ID
func NewRequestID() string {
	return uuid.New().String()
}
