package activities

import (
	"fmt"

	"go.temporal.io/sdk/temporal"
)

// Error types surfaced to the workflow and, through it, to the trigger
// endpoint. All pipeline failures are non-retryable: the only retry is an
// operator re-triggering the run.
const (
	ErrTypeNotFound        = "NotFound"
	ErrTypeValidation      = "ValidationError"
	ErrTypeExternalService = "ExternalServiceError"
	ErrTypePersistence     = "PersistenceError"
)

func notFoundError(format string, args ...any) error {
	return temporal.NewNonRetryableApplicationError(fmt.Sprintf(format, args...), ErrTypeNotFound, nil)
}

func validationError(format string, args ...any) error {
	return temporal.NewNonRetryableApplicationError(fmt.Sprintf(format, args...), ErrTypeValidation, nil)
}

func externalServiceError(msg string, cause error) error {
	return temporal.NewNonRetryableApplicationError(msg, ErrTypeExternalService, cause)
}

func persistenceError(msg string, cause error) error {
	return temporal.NewNonRetryableApplicationError(msg, ErrTypePersistence, cause)
}
