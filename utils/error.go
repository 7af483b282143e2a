package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// InvalidStateError is returned when an operation is attempted from a status
// that does not permit it (e.g. approving an already-approved commission).
type InvalidStateError struct {
	Entity   string
	Id       int
	Status   string
	Expected string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d is %s; expected %s", e.Entity, e.Id, e.Status, e.Expected)
}

func NewInvalidState(entity string, id int, status string, expected string) error {
	return &InvalidStateError{Entity: entity, Id: id, Status: status, Expected: expected}
}

// BadRequestError is returned when the input selection is empty or malformed
// (e.g. no eligible commissions for a payout batch).
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return e.Reason
}

func NewBadRequest(reason string) error {
	return &BadRequestError{Reason: reason}
}

// ConcurrencyConflictError is returned when a conditional update claims zero
// rows because another request got there first.
type ConcurrencyConflictError struct {
	Entity string
	Id     int
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently", e.Entity, e.Id)
}

func NewConcurrencyConflict(entity string, id int) error {
	return &ConcurrencyConflictError{Entity: entity, Id: id}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrorRecordNotFound)
}

func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

func IsBadRequest(err error) bool {
	var e *BadRequestError
	return errors.As(err, &e)
}

func IsConcurrencyConflict(err error) bool {
	var e *ConcurrencyConflictError
	return errors.As(err, &e)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
