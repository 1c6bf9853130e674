package domain

import (
	"fmt"
	"strings"
)

// Error taxonomy shared by repositories, services and the HTTP layer.
// Batch validations aggregate every offending id into one error so a
// caller can fix all problems in a single round-trip.

// NotFoundError a referenced id does not exist (HTTP 404)
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// NewTargetsNotFoundError all missing target_uids of a batch in one message
func NewTargetsNotFoundError(targetUIDs []string) *NotFoundError {
	return &NotFoundError{
		Message: fmt.Sprintf("The following target_uid's were not found for this form: %s",
			strings.Join(targetUIDs, ", ")),
	}
}

// NewEnumeratorsNotFoundError all missing enumerator_uids of a batch in one message
func NewEnumeratorsNotFoundError(enumeratorUIDs []string) *NotFoundError {
	return &NotFoundError{
		Message: fmt.Sprintf("The following enumerator_uid's were not found for this form: %s",
			strings.Join(enumeratorUIDs, ", ")),
	}
}

// ConfigurationError survey configuration required by an operation is
// missing: criteria set, prime geo level, roles (HTTP 422)
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// UnassignableTargetError targets with target_assignable = false block the
// entire batch, including unassignment of those targets (HTTP 422)
type UnassignableTargetError struct {
	TargetIDs []string
}

func (e *UnassignableTargetError) Error() string {
	return fmt.Sprintf("The following targets are not assignable: %s",
		strings.Join(e.TargetIDs, ", "))
}

// IneligibleEnumeratorError enumerators with form status Dropout cannot
// receive assignments (HTTP 422)
type IneligibleEnumeratorError struct {
	EnumeratorIDs []string
}

func (e *IneligibleEnumeratorError) Error() string {
	return fmt.Sprintf("The following enumerators have status Dropout and cannot be assigned: %s",
		strings.Join(e.EnumeratorIDs, ", "))
}

// IntegrityError stored data violates a structural invariant, e.g. a
// malformed location tree (HTTP 500)
type IntegrityError struct {
	Message string
}

func (e *IntegrityError) Error() string { return e.Message }
