package checkout

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/obsenv/internal/gitrepo"
	"github.com/temirov/obsenv/internal/versioning"
)

const (
	tagCheckedOutMessageConstant    = "Checked out release tag"
	tagMissingMessageConstant       = "Release tag not found, trying branch"
	branchCheckedOutMessageConstant = "Checked out branch"
	resolutionFailedMessageConstant = "Revision resolution failed"
	repositoryPathLogFieldConstant  = "repository_path"
	revisionLogFieldConstant        = "revision"
	tagNameLogFieldConstant         = "tag"
	commitLogFieldConstant          = "commit"
	stageLogFieldConstant           = "stage"
)

// RepositoryOperations lists the git primitives the resolver needs.
// gitrepo.RepositoryManager satisfies it.
type RepositoryOperations interface {
	FetchTags(executionContext context.Context, repositoryPath string) error
	FetchBranch(executionContext context.Context, repositoryPath string, branchName string) (string, error)
	ResolveCommit(executionContext context.Context, repositoryPath string, reference string) (string, error)
	UpdateReference(executionContext context.Context, repositoryPath string, reference string, commitIdentifier string) error
	SetHead(executionContext context.Context, repositoryPath string, reference string) error
	ResetHard(executionContext context.Context, repositoryPath string, commitIdentifier string) error
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	Logger     *zap.Logger
	Repository RepositoryOperations
}

// Options identify the working copy and the revision to check out.
type Options struct {
	RepositoryPath string
	Revision       string
}

// Result captures a successful resolution.
type Result struct {
	RepositoryPath string
	Revision       string
	TagName        string
	Commit         string
	Stage          Stage
	Transitions    []Stage
}

// Service resolves revisions to commits and checks them out.
type Service struct {
	logger     *zap.Logger
	repository RepositoryOperations
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Repository == nil {
		return nil, ErrRepositoryOperationsNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, repository: dependencies.Repository}, nil
}

type resolution struct {
	options     Options
	tagName     string
	stage       Stage
	transitions []Stage
}

func (state *resolution) advance(stage Stage) {
	state.stage = stage
	state.transitions = append(state.transitions, stage)
}

// ResetToVersion checks out the release tag derived from options.Revision and
// falls back to a branch of the same name when the tag does not exist. The
// local branch named after the revision is moved to the resolved commit.
func (service *Service) ResetToVersion(executionContext context.Context, options Options) (Result, error) {
	state, validationError := newResolution(options)
	if validationError != nil {
		return Result{}, validationError
	}
	state.tagName = versioning.ExpandVersionToTag(state.options.Revision)

	if fetchError := service.repository.FetchTags(executionContext, state.options.RepositoryPath); fetchError != nil {
		return Result{}, service.fail(state, fetchError)
	}

	state.advance(StageTagAttempted)
	tagCommit, resolveError := service.repository.ResolveCommit(executionContext, state.options.RepositoryPath, gitrepo.TagReference(state.tagName))
	switch {
	case resolveError == nil:
		if moveError := service.moveBranch(executionContext, state.options.RepositoryPath, state.options.Revision, tagCommit); moveError != nil {
			return Result{}, service.fail(state, moveError)
		}
		state.advance(StageTagSucceeded)
		service.logger.Info(tagCheckedOutMessageConstant, service.resolutionFields(state, tagCommit)...)
		return state.result(tagCommit), nil
	case errors.Is(resolveError, gitrepo.ErrReferenceNotFound):
		service.logger.Debug(tagMissingMessageConstant, service.resolutionFields(state, "")...)
	default:
		return Result{}, service.fail(state, resolveError)
	}

	return service.checkoutBranch(executionContext, state)
}

// CheckoutBranch checks out a branch from origin without trying a release tag first.
func (service *Service) CheckoutBranch(executionContext context.Context, options Options) (Result, error) {
	state, validationError := newResolution(options)
	if validationError != nil {
		return Result{}, validationError
	}
	return service.checkoutBranch(executionContext, state)
}

func (service *Service) checkoutBranch(executionContext context.Context, state *resolution) (Result, error) {
	state.advance(StageBranchAttempted)
	remoteTrackingReference, fetchError := service.repository.FetchBranch(executionContext, state.options.RepositoryPath, state.options.Revision)
	if fetchError != nil {
		return Result{}, service.fail(state, fetchError)
	}

	branchCommit, resolveError := service.repository.ResolveCommit(executionContext, state.options.RepositoryPath, remoteTrackingReference)
	if resolveError != nil {
		return Result{}, service.fail(state, resolveError)
	}

	if moveError := service.moveBranch(executionContext, state.options.RepositoryPath, state.options.Revision, branchCommit); moveError != nil {
		return Result{}, service.fail(state, moveError)
	}
	state.advance(StageBranchSucceeded)
	service.logger.Info(branchCheckedOutMessageConstant, service.resolutionFields(state, branchCommit)...)
	return state.result(branchCommit), nil
}

func (service *Service) moveBranch(executionContext context.Context, repositoryPath string, branchName string, commitIdentifier string) error {
	branchReference := gitrepo.BranchReference(branchName)
	if updateError := service.repository.UpdateReference(executionContext, repositoryPath, branchReference, commitIdentifier); updateError != nil {
		return updateError
	}
	if headError := service.repository.SetHead(executionContext, repositoryPath, branchReference); headError != nil {
		return headError
	}
	return service.repository.ResetHard(executionContext, repositoryPath, commitIdentifier)
}

func (service *Service) fail(state *resolution, cause error) error {
	failedStage := state.stage
	state.advance(StageFailed)
	resolutionError := RevisionResolutionError{
		RepositoryPath: state.options.RepositoryPath,
		Revision:       state.options.Revision,
		TagName:        state.tagName,
		Stage:          failedStage,
		Cause:          cause,
	}
	service.logger.Warn(resolutionFailedMessageConstant, append(service.resolutionFields(state, ""), zap.Error(cause))...)
	return resolutionError
}

func (service *Service) resolutionFields(state *resolution, commitIdentifier string) []zap.Field {
	fields := []zap.Field{
		zap.String(repositoryPathLogFieldConstant, state.options.RepositoryPath),
		zap.String(revisionLogFieldConstant, state.options.Revision),
		zap.Stringer(stageLogFieldConstant, state.stage),
	}
	if len(state.tagName) > 0 {
		fields = append(fields, zap.String(tagNameLogFieldConstant, state.tagName))
	}
	if len(commitIdentifier) > 0 {
		fields = append(fields, zap.String(commitLogFieldConstant, commitIdentifier))
	}
	return fields
}

func newResolution(options Options) (*resolution, error) {
	trimmedRepositoryPath := strings.TrimSpace(options.RepositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return nil, ErrRepositoryPathRequired
	}
	trimmedRevision := strings.TrimSpace(options.Revision)
	if len(trimmedRevision) == 0 {
		return nil, ErrRevisionRequired
	}
	return &resolution{
		options:     Options{RepositoryPath: trimmedRepositoryPath, Revision: trimmedRevision},
		stage:       StageStart,
		transitions: []Stage{StageStart},
	}, nil
}

func (state *resolution) result(commitIdentifier string) Result {
	return Result{
		RepositoryPath: state.options.RepositoryPath,
		Revision:       state.options.Revision,
		TagName:        state.tagName,
		Commit:         commitIdentifier,
		Stage:          state.stage,
		Transitions:    append([]Stage{}, state.transitions...),
	}
}
