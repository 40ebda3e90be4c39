package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSignatureMismatch  = errors.New("signature verification failed")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context for query")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrLockNotAcquired    = errors.New("could not acquire lock")
)

// UpstreamError carries the gateway's own HTTP status and message so the API
// layer can propagate them verbatim.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway error: status=%d message=%s", e.StatusCode, e.Message)
}

// AsUpstream unwraps err into an *UpstreamError if one is in the chain.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
