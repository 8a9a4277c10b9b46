package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/obsenv/internal/execshell"
)

const (
	executorNotConfiguredMessageConstant      = "git executor not configured"
	referenceNotFoundMessageConstant          = "reference not found"
	operationErrorTemplateConstant            = "git %s failed in %s: %v"
	operationErrorWithoutPathTemplateConstant = "git %s failed: %v"
	defaultRemoteNameConstant                 = "origin"
	gitDirectoryNameConstant                  = ".git"
	tagsReferencePrefixConstant               = "refs/tags/"
	headsReferencePrefixConstant              = "refs/heads/"
	remotesReferencePrefixConstant            = "refs/remotes/"
	commitPeelSuffixConstant                  = "^{commit}"
	headReferenceConstant                     = "HEAD"
	refspecForcePrefixConstant                = "+"
	refspecSeparatorConstant                  = ":"
	referencePathSeparatorConstant            = "/"
	missingRemoteReferenceMarkerConstant      = "couldn't find remote ref"
	gitCloneSubcommandConstant                = "clone"
	gitFetchSubcommandConstant                = "fetch"
	gitRevParseSubcommandConstant             = "rev-parse"
	gitUpdateRefSubcommandConstant            = "update-ref"
	gitSymbolicRefSubcommandConstant          = "symbolic-ref"
	gitResetSubcommandConstant                = "reset"
	gitDescribeSubcommandConstant             = "describe"
	gitQuietFlagConstant                      = "--quiet"
	gitVerifyFlagConstant                     = "--verify"
	gitTagsFlagConstant                       = "--tags"
	gitForceFlagConstant                      = "--force"
	gitHardFlagConstant                       = "--hard"
	gitShortFlagConstant                      = "--short"
	revisionNotFoundExitCodeConstant          = 1
)

// Operation names a git operation performed by RepositoryManager.
type Operation string

// Operations surfaced in OperationError.
const (
	OperationClone           Operation = Operation(gitCloneSubcommandConstant)
	OperationFetch           Operation = Operation(gitFetchSubcommandConstant)
	OperationResolve         Operation = Operation(gitRevParseSubcommandConstant)
	OperationUpdateReference Operation = Operation(gitUpdateRefSubcommandConstant)
	OperationSetHead         Operation = Operation(gitSymbolicRefSubcommandConstant)
	OperationReset           Operation = Operation(gitResetSubcommandConstant)
	OperationDescribe        Operation = Operation(gitDescribeSubcommandConstant)
)

// ErrExecutorNotConfigured indicates that NewRepositoryManager received a nil executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrReferenceNotFound reports a tag or branch absent locally or on the remote.
var ErrReferenceNotFound = errors.New(referenceNotFoundMessageConstant)

// OperationError describes a git operation that failed for reasons other than a missing reference.
type OperationError struct {
	Operation      Operation
	RepositoryPath string
	Cause          error
}

// Error describes the failed operation.
func (operationError OperationError) Error() string {
	if len(operationError.RepositoryPath) == 0 {
		return fmt.Sprintf(operationErrorWithoutPathTemplateConstant, operationError.Operation, operationError.Cause)
	}
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.RepositoryPath, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// RepositoryManager performs git operations against working copies on disk.
type RepositoryManager struct {
	executor execshell.GitExecutor
}

// NewRepositoryManager constructs a manager backed by the provided executor.
func NewRepositoryManager(executor execshell.GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// IsRepository reports whether repositoryPath holds a git working copy.
func (manager *RepositoryManager) IsRepository(repositoryPath string) bool {
	_, statError := os.Stat(filepath.Join(repositoryPath, gitDirectoryNameConstant))
	return statError == nil
}

// Clone clones remoteLocation into destinationPath.
func (manager *RepositoryManager) Clone(executionContext context.Context, remoteLocation string, destinationPath string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCloneSubcommandConstant, gitQuietFlagConstant, remoteLocation, destinationPath},
		WorkingDirectory: filepath.Dir(destinationPath),
	})
	if executionError != nil {
		return OperationError{Operation: OperationClone, RepositoryPath: destinationPath, Cause: executionError}
	}
	return nil
}

// FetchTags fetches every branch and tag from origin, overwriting moved tags.
func (manager *RepositoryManager) FetchTags(executionContext context.Context, repositoryPath string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitFetchSubcommandConstant, gitTagsFlagConstant, gitForceFlagConstant, defaultRemoteNameConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return OperationError{Operation: OperationFetch, RepositoryPath: repositoryPath, Cause: executionError}
	}
	return nil
}

// FetchBranch updates the remote-tracking reference of branchName and returns
// its name. A branch missing on origin yields ErrReferenceNotFound.
func (manager *RepositoryManager) FetchBranch(executionContext context.Context, repositoryPath string, branchName string) (string, error) {
	remoteTrackingReference := RemoteTrackingReference(branchName)
	refspec := refspecForcePrefixConstant + BranchReference(branchName) + refspecSeparatorConstant + remoteTrackingReference
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitFetchSubcommandConstant, defaultRemoteNameConstant, refspec},
		WorkingDirectory: repositoryPath,
	})
	if executionError == nil {
		return remoteTrackingReference, nil
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) && strings.Contains(failedError.Result.StandardError, missingRemoteReferenceMarkerConstant) {
		return "", fmt.Errorf("%w: %s", ErrReferenceNotFound, BranchReference(branchName))
	}
	return "", OperationError{Operation: OperationFetch, RepositoryPath: repositoryPath, Cause: executionError}
}

// ResolveCommit returns the commit a reference points to, peeling annotated tags.
func (manager *RepositoryManager) ResolveCommit(executionContext context.Context, repositoryPath string, reference string) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, reference + commitPeelSuffixConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		var failedError execshell.CommandFailedError
		if errors.As(executionError, &failedError) && failedError.Result.ExitCode == revisionNotFoundExitCodeConstant {
			return "", fmt.Errorf("%w: %s", ErrReferenceNotFound, reference)
		}
		return "", OperationError{Operation: OperationResolve, RepositoryPath: repositoryPath, Cause: executionError}
	}

	commitIdentifier := strings.TrimSpace(executionResult.StandardOutput)
	if len(commitIdentifier) == 0 {
		return "", fmt.Errorf("%w: %s", ErrReferenceNotFound, reference)
	}
	return commitIdentifier, nil
}

// UpdateReference force-moves reference to commitIdentifier, creating it when absent.
func (manager *RepositoryManager) UpdateReference(executionContext context.Context, repositoryPath string, reference string, commitIdentifier string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitUpdateRefSubcommandConstant, reference, commitIdentifier},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return OperationError{Operation: OperationUpdateReference, RepositoryPath: repositoryPath, Cause: executionError}
	}
	return nil
}

// SetHead points HEAD at reference without touching the working tree.
func (manager *RepositoryManager) SetHead(executionContext context.Context, repositoryPath string, reference string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitSymbolicRefSubcommandConstant, headReferenceConstant, reference},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return OperationError{Operation: OperationSetHead, RepositoryPath: repositoryPath, Cause: executionError}
	}
	return nil
}

// ResetHard resets index and working tree to commitIdentifier, discarding local changes.
func (manager *RepositoryManager) ResetHard(executionContext context.Context, repositoryPath string, commitIdentifier string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitResetSubcommandConstant, gitHardFlagConstant, gitQuietFlagConstant, commitIdentifier},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return OperationError{Operation: OperationReset, RepositoryPath: repositoryPath, Cause: executionError}
	}
	return nil
}

// DescribeHead describes HEAD using the nearest tag, falling back to the abbreviated commit.
func (manager *RepositoryManager) DescribeHead(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitDescribeSubcommandConstant, gitTagsFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError == nil {
		return strings.TrimSpace(executionResult.StandardOutput), nil
	}

	fallbackResult, fallbackError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitShortFlagConstant, headReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if fallbackError != nil {
		return "", OperationError{Operation: OperationDescribe, RepositoryPath: repositoryPath, Cause: fallbackError}
	}
	return strings.TrimSpace(fallbackResult.StandardOutput), nil
}

// TagReference returns the fully qualified reference of a tag.
func TagReference(tagName string) string {
	return tagsReferencePrefixConstant + tagName
}

// BranchReference returns the fully qualified reference of a local branch.
func BranchReference(branchName string) string {
	return headsReferencePrefixConstant + branchName
}

// RemoteTrackingReference returns the origin remote-tracking reference of a branch.
func RemoteTrackingReference(branchName string) string {
	return remotesReferencePrefixConstant + defaultRemoteNameConstant + referencePathSeparatorConstant + branchName
}
