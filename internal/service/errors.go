package service

import (
	"fmt"
)

type ErrInvalidSequence struct {
	error
}

func NewErrInvalidSequence(message string) *ErrInvalidSequence {
	return &ErrInvalidSequence{fmt.Errorf("%s", message)}
}

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s not found", resourceType)}
}

func NewErrJobNotFound() *ErrResourceNotFound {
	return NewErrResourceNotFound("Job")
}

// ErrStorageUnavailable is a storage failure other than a missing object.
type ErrStorageUnavailable struct {
	error
}

func NewErrStorageUnavailable(err error) *ErrStorageUnavailable {
	return &ErrStorageUnavailable{fmt.Errorf("storage unavailable: %w", err)}
}

func (e *ErrStorageUnavailable) Unwrap() error {
	return e.error
}

// ErrPredictorDispatch is recorded on the job when the predictor refused or missed the request.
type ErrPredictorDispatch struct {
	error
}

func NewErrPredictorDispatch(err error) *ErrPredictorDispatch {
	return &ErrPredictorDispatch{fmt.Errorf("failed to dispatch prediction: %w", err)}
}

func (e *ErrPredictorDispatch) Unwrap() error {
	return e.error
}
