package baseline

import (
	"errors"
	"fmt"
)

const (
	baselineUnavailableTemplateConstant        = "baseline unavailable on branch %s (%s): %v"
	baselineRepositoryRequiredMessageConstant  = "baseline repository settings are incomplete"
	repositoryOperationsMissingMessageConstant = "repository operations not configured"
)

// Stages of a baseline load reported by BaselineUnavailableError.
const (
	LoadStageClone   = "clone"
	LoadStageFetch   = "fetch"
	LoadStageResolve = "resolve"
	LoadStageReset   = "reset"
	LoadStageRead    = "read"
)

// ErrSettingsIncomplete indicates a blank origin, repository name, definitions file, or destination.
var ErrSettingsIncomplete = errors.New(baselineRepositoryRequiredMessageConstant)

// ErrRepositoryOperationsNotConfigured indicates the git backend dependency was missing.
var ErrRepositoryOperationsNotConfigured = errors.New(repositoryOperationsMissingMessageConstant)

// BaselineUnavailableError reports that the definitions could not be refreshed or read.
// Callers treat it as fatal for the whole synchronization.
type BaselineUnavailableError struct {
	Branch string
	Stage  string
	Cause  error
}

// Error describes the failure.
func (unavailableError BaselineUnavailableError) Error() string {
	return fmt.Sprintf(baselineUnavailableTemplateConstant, unavailableError.Branch, unavailableError.Stage, unavailableError.Cause)
}

// Unwrap exposes the underlying cause.
func (unavailableError BaselineUnavailableError) Unwrap() error {
	return unavailableError.Cause
}
