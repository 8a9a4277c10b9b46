package environment

import (
	"fmt"
	"strings"
)

const (
	notManagedTemplateConstant     = "repository %s is not in the list of managed repositories"
	localStateTemplateConstant     = "local state error (%s) at %s: %v"
	resetFailuresTemplateConstant  = "%d of %d repositories failed to synchronize: %s"
	resetFailuresSeparatorConstant = ", "
	setupFailuresTemplateConstant  = "%d repositories failed to clone: %s"
)

// Local operations reported by LocalStateError.
const (
	LocalOperationCreateDestination = "create-destination"
	LocalOperationOpenRepository    = "open-repository"
	LocalOperationWriteSetupFile    = "write-setup-file"
)

// NotManagedError reports an operation on a repository missing from the registry.
type NotManagedError struct {
	RepositoryName string
}

// Error describes the unknown repository.
func (notManagedError NotManagedError) Error() string {
	return fmt.Sprintf(notManagedTemplateConstant, notManagedError.RepositoryName)
}

// LocalStateError reports a problem with the environment on disk.
type LocalStateError struct {
	Operation string
	Path      string
	Cause     error
}

// Error describes the failure.
func (localStateError LocalStateError) Error() string {
	return fmt.Sprintf(localStateTemplateConstant, localStateError.Operation, localStateError.Path, localStateError.Cause)
}

// Unwrap exposes the underlying cause.
func (localStateError LocalStateError) Unwrap() error {
	return localStateError.Cause
}

// ResetFailuresError summarizes the repositories that failed a fleet reset.
type ResetFailuresError struct {
	Failures  []CheckoutOutcome
	Attempted int
}

// Error lists the failing repositories.
func (failuresError ResetFailuresError) Error() string {
	names := make([]string, 0, len(failuresError.Failures))
	for _, failure := range failuresError.Failures {
		names = append(names, failure.RepositoryName)
	}
	return fmt.Sprintf(resetFailuresTemplateConstant, len(failuresError.Failures), failuresError.Attempted, strings.Join(names, resetFailuresSeparatorConstant))
}

// CloneFailuresError summarizes the repositories that could not be cloned.
type CloneFailuresError struct {
	Failures []CloneOutcome
}

// Error lists the failing repositories.
func (failuresError CloneFailuresError) Error() string {
	names := make([]string, 0, len(failuresError.Failures))
	for _, failure := range failuresError.Failures {
		names = append(names, failure.RepositoryName)
	}
	return fmt.Sprintf(setupFailuresTemplateConstant, len(failuresError.Failures), strings.Join(names, resetFailuresSeparatorConstant))
}
