package checkout

import (
	"errors"
	"fmt"
)

const (
	repositoryPathRequiredMessageConstant      = "repository path must be provided"
	revisionRequiredMessageConstant            = "revision must be provided"
	repositoryOperationsMissingMessageConstant = "repository operations not configured"
	revisionResolutionFailedTemplateConstant   = "could not check out %s (tag %s) in %s at stage %s: %v"
	branchResolutionFailedTemplateConstant     = "could not check out branch %s in %s at stage %s: %v"
)

// ErrRepositoryPathRequired indicates the repository path option was empty.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrRevisionRequired indicates the version or branch option was empty.
var ErrRevisionRequired = errors.New(revisionRequiredMessageConstant)

// ErrRepositoryOperationsNotConfigured indicates the git backend dependency was missing.
var ErrRepositoryOperationsNotConfigured = errors.New(repositoryOperationsMissingMessageConstant)

// RevisionResolutionError reports that neither a tag nor a branch could be checked out.
type RevisionResolutionError struct {
	RepositoryPath string
	Revision       string
	TagName        string
	Stage          Stage
	Cause          error
}

// Error describes the failed resolution.
func (resolutionError RevisionResolutionError) Error() string {
	if len(resolutionError.TagName) == 0 {
		return fmt.Sprintf(branchResolutionFailedTemplateConstant, resolutionError.Revision, resolutionError.RepositoryPath, resolutionError.Stage, resolutionError.Cause)
	}
	return fmt.Sprintf(revisionResolutionFailedTemplateConstant, resolutionError.Revision, resolutionError.TagName, resolutionError.RepositoryPath, resolutionError.Stage, resolutionError.Cause)
}

// Unwrap exposes the underlying cause.
func (resolutionError RevisionResolutionError) Unwrap() error {
	return resolutionError.Cause
}
