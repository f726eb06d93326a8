package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingReferenceData marks a snapshot whose article is not in the master feed.
	ErrMissingReferenceData = errors.New("missing reference data")
	// ErrInvalidQuantity marks an input record with a negative or non-numeric quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrUnavailable is returned by read models for tenants without published output.
	ErrUnavailable = errors.New("output unavailable for tenant")
)

// PartitionError reports a tenant partition that failed after all retries.
type PartitionError struct {
	TenantID string
	Attempts int
	Err      error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("tenant %s failed after %d attempt(s): %v", e.TenantID, e.Attempts, e.Err)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}
