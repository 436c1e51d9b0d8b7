package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrPlanNotFound indicates no plan exists with the given identifier.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrResultNotFound indicates no run result exists with the given identifier.
	ErrResultNotFound = errors.New("run result not found")

	// ErrInvalidPlanDocument indicates a stored plan failed schema validation.
	ErrInvalidPlanDocument = errors.New("invalid plan document")
)

// PlanError wraps plan storage errors with the operation and target id.
type PlanError struct {
	Op     string
	PlanID string
	Err    error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("%s operation failed for plan %s: %v", e.Op, e.PlanID, e.Err)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

func (e *PlanError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPlanError creates a plan error with context.
func NewPlanError(op, planID string, err error) *PlanError {
	return &PlanError{Op: op, PlanID: planID, Err: err}
}

// IsPlanNotFound checks whether an error indicates a missing plan.
func IsPlanNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound)
}

// IsResultNotFound checks whether an error indicates a missing run result.
func IsResultNotFound(err error) bool {
	return errors.Is(err, ErrResultNotFound)
}
