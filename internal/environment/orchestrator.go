package environment

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/obsenv/internal/baseline"
	"github.com/temirov/obsenv/internal/checkout"
	"github.com/temirov/obsenv/internal/gitrepo"
)

const (
	rootPathRequiredMessageConstant         = "environment path must be provided"
	checkoutServiceMissingMessageConstant   = "checkout service not configured"
	baselineSourceMissingMessageConstant    = "baseline source not configured"
	repositoryOpsMissingMessageConstant     = "repository operations not configured"
	repositoryMissingMessageConstant        = "repository is not cloned"
	summaryTemplateConstant                 = "Environment path: %s.\nNumber of repositories: %d"
	destinationDirectoryPermissionsConstant = 0o755
	cloningRepositoryMessageConstant        = "Cloning repository"
	cloneFailedMessageConstant              = "Clone failed"
	overrideMissedMessageConstant           = "Override branch unavailable, using baseline version"
	repositorySyncedMessageConstant         = "Repository synchronized"
	repositorySyncFailedMessageConstant     = "Repository synchronization failed"
	baselineResetCompletedMessageConstant   = "Baseline reset finished"
	describeFailedMessageConstant           = "Could not describe repository"
	repositoryLogFieldConstant              = "repository"
	revisionLogFieldConstant                = "revision"
	sourceLogFieldConstant                  = "source"
	pathLogFieldConstant                    = "path"
	failureCountLogFieldConstant            = "failures"
	attemptedCountLogFieldConstant          = "attempted"
	baselineBranchLogFieldConstant          = "baseline_branch"
	overrideBranchLogFieldConstant          = "override_branch"
)

// ErrRootPathRequired indicates the environment path setting was empty.
var ErrRootPathRequired = errors.New(rootPathRequiredMessageConstant)

// ErrCheckoutServiceNotConfigured indicates the checkout dependency was missing.
var ErrCheckoutServiceNotConfigured = errors.New(checkoutServiceMissingMessageConstant)

// ErrBaselineSourceNotConfigured indicates the baseline dependency was missing.
var ErrBaselineSourceNotConfigured = errors.New(baselineSourceMissingMessageConstant)

// ErrRepositoryOperationsNotConfigured indicates the git backend dependency was missing.
var ErrRepositoryOperationsNotConfigured = errors.New(repositoryOpsMissingMessageConstant)

var errRepositoryMissing = errors.New(repositoryMissingMessageConstant)

// CheckoutService moves one working copy to a revision. checkout.Service satisfies it.
type CheckoutService interface {
	ResetToVersion(executionContext context.Context, options checkout.Options) (checkout.Result, error)
	CheckoutBranch(executionContext context.Context, options checkout.Options) (checkout.Result, error)
}

// BaselineSource loads published versions. baseline.Loader satisfies it.
type BaselineSource interface {
	Load(executionContext context.Context, branch string, managedRepositoryNames []string) (baseline.Map, error)
}

// RepositoryOperations lists the git primitives used directly by the orchestrator.
type RepositoryOperations interface {
	IsRepository(repositoryPath string) bool
	Clone(executionContext context.Context, remoteLocation string, destinationPath string) error
	DescribeHead(executionContext context.Context, repositoryPath string) (string, error)
}

// Settings configure the environment layout.
type Settings struct {
	RootPath          string
	SetupRepositories []string
}

// Dependencies enumerates collaborators required by the orchestrator.
type Dependencies struct {
	Logger     *zap.Logger
	Registry   Registry
	Checkout   CheckoutService
	Baseline   BaselineSource
	Repository RepositoryOperations
	FileSystem FileSystem
	Clock      func() time.Time
}

// Orchestrator performs fleet operations over the managed repositories. Calls
// are sequential; callers must not run two fleet operations concurrently.
type Orchestrator struct {
	logger            *zap.Logger
	registry          Registry
	checkout          CheckoutService
	baseline          BaselineSource
	repository        RepositoryOperations
	fileSystem        FileSystem
	clock             func() time.Time
	rootPath          string
	setupRepositories []string
}

// NewOrchestrator validates settings and dependencies and constructs an Orchestrator.
func NewOrchestrator(settings Settings, dependencies Dependencies) (*Orchestrator, error) {
	trimmedRootPath := strings.TrimSpace(settings.RootPath)
	if len(trimmedRootPath) == 0 {
		return nil, ErrRootPathRequired
	}
	if dependencies.Checkout == nil {
		return nil, ErrCheckoutServiceNotConfigured
	}
	if dependencies.Baseline == nil {
		return nil, ErrBaselineSourceNotConfigured
	}
	if dependencies.Repository == nil {
		return nil, ErrRepositoryOperationsNotConfigured
	}

	orchestrator := &Orchestrator{
		logger:            dependencies.Logger,
		registry:          dependencies.Registry,
		checkout:          dependencies.Checkout,
		baseline:          dependencies.Baseline,
		repository:        dependencies.Repository,
		fileSystem:        dependencies.FileSystem,
		clock:             dependencies.Clock,
		rootPath:          filepath.Clean(trimmedRootPath),
		setupRepositories: append([]string{}, settings.SetupRepositories...),
	}
	if orchestrator.logger == nil {
		orchestrator.logger = zap.NewNop()
	}
	if orchestrator.fileSystem == nil {
		orchestrator.fileSystem = OSFileSystem{}
	}
	if orchestrator.clock == nil {
		orchestrator.clock = time.Now
	}
	return orchestrator, nil
}

// RootPath returns the environment root directory.
func (orchestrator *Orchestrator) RootPath() string {
	return orchestrator.rootPath
}

// Registry returns the managed repositories.
func (orchestrator *Orchestrator) Registry() Registry {
	return orchestrator.registry
}

// RepositoryPath returns the working copy path of a repository.
func (orchestrator *Orchestrator) RepositoryPath(repositoryName string) string {
	return filepath.Join(orchestrator.rootPath, repositoryName)
}

// Summarize describes the environment in two lines.
func (orchestrator *Orchestrator) Summarize() string {
	return fmt.Sprintf(summaryTemplateConstant, orchestrator.rootPath, orchestrator.registry.Len())
}

// CreateDestination creates the environment root when it does not exist.
func (orchestrator *Orchestrator) CreateDestination() error {
	if _, statError := orchestrator.fileSystem.Stat(orchestrator.rootPath); statError == nil {
		return nil
	}
	if mkdirError := orchestrator.fileSystem.MkdirAll(orchestrator.rootPath, destinationDirectoryPermissionsConstant); mkdirError != nil {
		return LocalStateError{Operation: LocalOperationCreateDestination, Path: orchestrator.rootPath, Cause: mkdirError}
	}
	return nil
}

// CloneMissing clones every managed repository whose path does not exist yet.
// Existing paths are left untouched.
func (orchestrator *Orchestrator) CloneMissing(executionContext context.Context) []CloneOutcome {
	outcomes := make([]CloneOutcome, 0)
	for _, reference := range orchestrator.registry.References() {
		repositoryPath := orchestrator.RepositoryPath(reference.Name)
		if _, statError := orchestrator.fileSystem.Stat(repositoryPath); statError == nil {
			continue
		}

		outcome := CloneOutcome{RepositoryName: reference.Name, Path: repositoryPath}
		remoteLocation, locationError := gitrepo.JoinRemoteLocation(reference.Origin, reference.Name)
		if locationError != nil {
			outcome.Error = locationError
		} else {
			orchestrator.logger.Info(cloningRepositoryMessageConstant, zap.String(repositoryLogFieldConstant, reference.Name), zap.String(pathLogFieldConstant, repositoryPath))
			outcome.Error = orchestrator.repository.Clone(executionContext, remoteLocation, repositoryPath)
		}
		if outcome.Error != nil {
			orchestrator.logger.Warn(cloneFailedMessageConstant, zap.String(repositoryLogFieldConstant, reference.Name), zap.Error(outcome.Error))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// CheckoutBranch checks out a branch from origin in one managed repository.
func (orchestrator *Orchestrator) CheckoutBranch(executionContext context.Context, repositoryName string, branchName string) error {
	_, checkoutError := orchestrator.checkoutBranch(executionContext, repositoryName, branchName)
	return checkoutError
}

// ResetIndexToVersion checks out the release tag of version in one managed
// repository, falling back to a branch named version.
func (orchestrator *Orchestrator) ResetIndexToVersion(executionContext context.Context, repositoryName string, version string) error {
	_, resetError := orchestrator.resetIndexToVersion(executionContext, repositoryName, version)
	return resetError
}

// ResetBaseline loads the baseline from baselineBranch and moves every
// repository with a baseline entry to its version. When overrideBranch is set
// each repository tries that branch first and uses its baseline version only
// when the branch cannot be checked out. A baseline that cannot be loaded
// aborts before any repository is touched.
func (orchestrator *Orchestrator) ResetBaseline(executionContext context.Context, baselineBranch string, overrideBranch string) (ResetReport, error) {
	trimmedOverrideBranch := strings.TrimSpace(overrideBranch)
	report := ResetReport{BaselineBranch: baselineBranch, OverrideBranch: trimmedOverrideBranch}

	if destinationError := orchestrator.CreateDestination(); destinationError != nil {
		return report, destinationError
	}
	baselineMap, loadError := orchestrator.baseline.Load(executionContext, baselineBranch, orchestrator.registry.Names())
	if loadError != nil {
		return report, loadError
	}

	for _, entry := range baselineMap.Entries() {
		outcome := orchestrator.synchronizeRepository(executionContext, entry, trimmedOverrideBranch)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	orchestrator.logger.Info(baselineResetCompletedMessageConstant,
		zap.String(baselineBranchLogFieldConstant, baselineBranch),
		zap.String(overrideBranchLogFieldConstant, trimmedOverrideBranch),
		zap.Int(attemptedCountLogFieldConstant, len(report.Outcomes)),
		zap.Int(failureCountLogFieldConstant, len(report.Failures())),
	)
	return report, nil
}

// OriginalVersions loads the baseline versions without touching any repository.
func (orchestrator *Orchestrator) OriginalVersions(executionContext context.Context, baselineBranch string) (baseline.Map, error) {
	if destinationError := orchestrator.CreateDestination(); destinationError != nil {
		return baseline.Map{}, destinationError
	}
	return orchestrator.baseline.Load(executionContext, baselineBranch, orchestrator.registry.Names())
}

// CurrentVersions describes the checked out revision of every managed repository.
func (orchestrator *Orchestrator) CurrentVersions(executionContext context.Context) []VersionReport {
	reports := make([]VersionReport, 0, orchestrator.registry.Len())
	for _, repositoryName := range orchestrator.registry.Names() {
		report := VersionReport{RepositoryName: repositoryName}
		repositoryPath, openError := orchestrator.openRepository(repositoryName)
		if openError != nil {
			report.Error = openError
		} else {
			report.Description, report.Error = orchestrator.repository.DescribeHead(executionContext, repositoryPath)
		}
		if report.Error != nil {
			orchestrator.logger.Debug(describeFailedMessageConstant, zap.String(repositoryLogFieldConstant, repositoryName), zap.Error(report.Error))
		}
		reports = append(reports, report)
	}
	return reports
}

// Setup creates the environment root, clones missing repositories, and
// writes the setup file.
func (orchestrator *Orchestrator) Setup(executionContext context.Context, user string) (SetupReport, error) {
	if destinationError := orchestrator.CreateDestination(); destinationError != nil {
		return SetupReport{}, destinationError
	}
	report := SetupReport{Clones: orchestrator.CloneMissing(executionContext)}
	setupFilePath, setupFileError := orchestrator.CreateSetupFile(user)
	if setupFileError != nil {
		return report, setupFileError
	}
	report.SetupFilePath = setupFilePath
	return report, nil
}

func (orchestrator *Orchestrator) synchronizeRepository(executionContext context.Context, entry baseline.Entry, overrideBranch string) CheckoutOutcome {
	if len(overrideBranch) > 0 {
		result, overrideError := orchestrator.checkoutBranch(executionContext, entry.RepositoryName, overrideBranch)
		if overrideError == nil {
			return orchestrator.recordOutcome(CheckoutOutcome{RepositoryName: entry.RepositoryName, Revision: overrideBranch, Source: CheckoutSourceOverrideBranch, Stage: result.Stage})
		}
		orchestrator.logger.Info(overrideMissedMessageConstant,
			zap.String(repositoryLogFieldConstant, entry.RepositoryName),
			zap.String(overrideBranchLogFieldConstant, overrideBranch),
			zap.Error(overrideError),
		)
	}

	outcome := CheckoutOutcome{RepositoryName: entry.RepositoryName, Revision: entry.Version, Source: CheckoutSourceBaselineVersion}
	result, resetError := orchestrator.resetIndexToVersion(executionContext, entry.RepositoryName, entry.Version)
	outcome.Stage = result.Stage
	outcome.Error = resetError
	if resetError != nil {
		outcome.Stage = checkout.StageFailed
	}
	return orchestrator.recordOutcome(outcome)
}

func (orchestrator *Orchestrator) recordOutcome(outcome CheckoutOutcome) CheckoutOutcome {
	fields := []zap.Field{
		zap.String(repositoryLogFieldConstant, outcome.RepositoryName),
		zap.String(revisionLogFieldConstant, outcome.Revision),
		zap.String(sourceLogFieldConstant, string(outcome.Source)),
	}
	if outcome.Succeeded() {
		orchestrator.logger.Info(repositorySyncedMessageConstant, fields...)
	} else {
		orchestrator.logger.Warn(repositorySyncFailedMessageConstant, append(fields, zap.Error(outcome.Error))...)
	}
	return outcome
}

func (orchestrator *Orchestrator) checkoutBranch(executionContext context.Context, repositoryName string, branchName string) (checkout.Result, error) {
	repositoryPath, openError := orchestrator.openRepository(repositoryName)
	if openError != nil {
		return checkout.Result{}, openError
	}
	return orchestrator.checkout.CheckoutBranch(executionContext, checkout.Options{RepositoryPath: repositoryPath, Revision: branchName})
}

func (orchestrator *Orchestrator) resetIndexToVersion(executionContext context.Context, repositoryName string, version string) (checkout.Result, error) {
	repositoryPath, openError := orchestrator.openRepository(repositoryName)
	if openError != nil {
		return checkout.Result{}, openError
	}
	return orchestrator.checkout.ResetToVersion(executionContext, checkout.Options{RepositoryPath: repositoryPath, Revision: version})
}

func (orchestrator *Orchestrator) openRepository(repositoryName string) (string, error) {
	if !orchestrator.registry.Contains(repositoryName) {
		return "", NotManagedError{RepositoryName: repositoryName}
	}
	repositoryPath := orchestrator.RepositoryPath(repositoryName)
	if !orchestrator.repository.IsRepository(repositoryPath) {
		return "", LocalStateError{Operation: LocalOperationOpenRepository, Path: repositoryPath, Cause: errRepositoryMissing}
	}
	return repositoryPath, nil
}
