// Package errors contains helper functions and types to categorize failures
// of a playbook run.
package errors

import (
	"errors"
)

// Category defines error category
type Category int

const (
	// CategoryNoError is reported for a run that finished without error.
	CategoryNoError Category = iota
	// CategoryDataError Invalid input: configuration, amounts or addresses
	CategoryDataError
	// CategoryConnectivity The node is unreachable or answered with a malformed payload
	CategoryConnectivity
	// CategoryAuthorization The node refused to impersonate the requested account
	CategoryAuthorization
	// CategoryExecution A transaction could not be signed, was rejected, or reverted
	CategoryExecution
	// CategoryConfirmation A failure surfaced while waiting for a transaction to be mined
	CategoryConfirmation
	// CategoryGeneralError The run failed in an unexpected way
	CategoryGeneralError
)

func (c Category) String() string {
	switch c {
	case CategoryNoError:
		return "CategoryNoError"
	case CategoryDataError:
		return "CategoryDataError"
	case CategoryConnectivity:
		return "CategoryConnectivity"
	case CategoryAuthorization:
		return "CategoryAuthorization"
	case CategoryExecution:
		return "CategoryExecution"
	case CategoryConfirmation:
		return "CategoryConfirmation"
	default:
		return "CategoryGeneralError"
	}
}

// ServiceError carries a category next to the underlying error.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err == nil {
		return err.Message
	}
	if err.Message == "" {
		return err.Err.Error()
	}
	return err.Message + ": " + err.Err.Error()
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category == cat {
		return true
	}
	return false
}

// CategoryOf returns the category of the outermost ServiceError in the chain,
// CategoryNoError for nil and CategoryGeneralError for uncategorized errors.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNoError
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Category
	}
	return CategoryGeneralError
}

// ExitCode maps a run result to a process exit status. Every failure is fatal
// to the run regardless of category.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func newError(cat Category, err error, message string) error {
	if err == nil {
		err = errors.New(message)
		message = ""
	}
	return &ServiceError{
		Category: cat,
		Message:  message,
		Err:      err,
	}
}

// GeneralError returns an error with category GeneralError
func GeneralError(err error) error {
	if err == nil {
		err = errors.New("unexpected failure")
	}
	return &ServiceError{
		Category: CategoryGeneralError,
		Err:      err,
	}
}

// BadRequestError returns an error with category DataError
func BadRequestError(err error, message string) error {
	return newError(CategoryDataError, err, message)
}

// ConnectivityError returns an error with category Connectivity
func ConnectivityError(err error, message string) error {
	return newError(CategoryConnectivity, err, message)
}

// AuthorizationError returns an error with category Authorization
func AuthorizationError(err error, message string) error {
	return newError(CategoryAuthorization, err, message)
}

// ExecutionError returns an error with category Execution
func ExecutionError(err error, message string) error {
	return newError(CategoryExecution, err, message)
}

// ConfirmationError returns an error with category Confirmation
func ConfirmationError(err error, message string) error {
	return newError(CategoryConfirmation, err, message)
}
