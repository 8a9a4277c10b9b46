package baseline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/obsenv/internal/gitrepo"
	"github.com/temirov/obsenv/internal/versioning"
)

const (
	definitionAssignmentConstant           = "="
	openDefinitionsFailureTemplateConstant = "failed to open definitions file %s: %w"
	scanDefinitionsFailureTemplateConstant = "failed to read definitions file %s: %w"
	cloningBaselineMessageConstant         = "Cloning baseline repository"
	loadedBaselineMessageConstant          = "Loaded baseline versions"
	missingBaselineEntryMessageConstant    = "Repository has no baseline version"
	baselineBranchLogFieldConstant         = "baseline_branch"
	baselinePathLogFieldConstant           = "baseline_path"
	baselineCommitLogFieldConstant         = "commit"
	repositoryNameLogFieldConstant         = "repository"
	resolvedEntryCountLogFieldConstant     = "resolved_entries"
)

// RepositoryOperations lists the git primitives the loader needs.
type RepositoryOperations interface {
	IsRepository(repositoryPath string) bool
	Clone(executionContext context.Context, remoteLocation string, destinationPath string) error
	FetchBranch(executionContext context.Context, repositoryPath string, branchName string) (string, error)
	ResolveCommit(executionContext context.Context, repositoryPath string, reference string) (string, error)
	ResetHard(executionContext context.Context, repositoryPath string, commitIdentifier string) error
}

// Settings locate the definitions repository and file.
type Settings struct {
	Origin          string
	RepositoryName  string
	DefinitionsFile string
	DestinationRoot string
}

// RepositoryPath returns the local path of the definitions repository.
func (settings Settings) RepositoryPath() string {
	return filepath.Join(settings.DestinationRoot, settings.RepositoryName)
}

// LoaderDependencies enumerates collaborators required by the loader.
type LoaderDependencies struct {
	Logger     *zap.Logger
	Repository RepositoryOperations
}

// Loader refreshes the definitions repository and extracts baseline versions.
type Loader struct {
	logger     *zap.Logger
	repository RepositoryOperations
	settings   Settings
}

// NewLoader validates settings and dependencies and constructs a Loader.
func NewLoader(settings Settings, dependencies LoaderDependencies) (*Loader, error) {
	if dependencies.Repository == nil {
		return nil, ErrRepositoryOperationsNotConfigured
	}
	trimmedSettings := Settings{
		Origin:          strings.TrimSpace(settings.Origin),
		RepositoryName:  strings.TrimSpace(settings.RepositoryName),
		DefinitionsFile: strings.TrimSpace(settings.DefinitionsFile),
		DestinationRoot: strings.TrimSpace(settings.DestinationRoot),
	}
	if len(trimmedSettings.Origin) == 0 || len(trimmedSettings.RepositoryName) == 0 || len(trimmedSettings.DefinitionsFile) == 0 || len(trimmedSettings.DestinationRoot) == 0 {
		return nil, ErrSettingsIncomplete
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger, repository: dependencies.Repository, settings: trimmedSettings}, nil
}

// Settings returns the loader settings.
func (loader *Loader) Settings() Settings {
	return loader.settings
}

// Load refreshes the definitions repository to origin/branch and returns the
// first published version of every managed repository. Any failure is
// reported as BaselineUnavailableError and nothing is cached.
func (loader *Loader) Load(executionContext context.Context, branch string, managedRepositoryNames []string) (Map, error) {
	repositoryPath := loader.settings.RepositoryPath()

	if !loader.repository.IsRepository(repositoryPath) {
		remoteLocation, locationError := gitrepo.JoinRemoteLocation(loader.settings.Origin, loader.settings.RepositoryName)
		if locationError != nil {
			return Map{}, BaselineUnavailableError{Branch: branch, Stage: LoadStageClone, Cause: locationError}
		}
		loader.logger.Info(cloningBaselineMessageConstant, zap.String(baselinePathLogFieldConstant, repositoryPath))
		if cloneError := loader.repository.Clone(executionContext, remoteLocation, repositoryPath); cloneError != nil {
			return Map{}, BaselineUnavailableError{Branch: branch, Stage: LoadStageClone, Cause: cloneError}
		}
	}

	remoteTrackingReference, fetchError := loader.repository.FetchBranch(executionContext, repositoryPath, branch)
	if fetchError != nil {
		return Map{}, BaselineUnavailableError{Branch: branch, Stage: LoadStageFetch, Cause: fetchError}
	}
	commitIdentifier, resolveError := loader.repository.ResolveCommit(executionContext, repositoryPath, remoteTrackingReference)
	if resolveError != nil {
		return Map{}, BaselineUnavailableError{Branch: branch, Stage: LoadStageResolve, Cause: resolveError}
	}
	if resetError := loader.repository.ResetHard(executionContext, repositoryPath, commitIdentifier); resetError != nil {
		return Map{}, BaselineUnavailableError{Branch: branch, Stage: LoadStageReset, Cause: resetError}
	}

	definitionsPath := filepath.Join(repositoryPath, loader.settings.DefinitionsFile)
	baselineMap, readError := readDefinitions(definitionsPath, managedRepositoryNames)
	if readError != nil {
		return Map{}, BaselineUnavailableError{Branch: branch, Stage: LoadStageRead, Cause: readError}
	}

	for _, repositoryName := range managedRepositoryNames {
		if _, exists := baselineMap.Version(repositoryName); !exists {
			loader.logger.Debug(missingBaselineEntryMessageConstant, zap.String(repositoryNameLogFieldConstant, repositoryName))
		}
	}
	loader.logger.Info(loadedBaselineMessageConstant,
		zap.String(baselineBranchLogFieldConstant, branch),
		zap.String(baselineCommitLogFieldConstant, commitIdentifier),
		zap.Int(resolvedEntryCountLogFieldConstant, baselineMap.Len()),
	)
	return baselineMap, nil
}

func readDefinitions(definitionsPath string, managedRepositoryNames []string) (Map, error) {
	definitionsFile, openError := os.Open(definitionsPath)
	if openError != nil {
		return Map{}, fmt.Errorf(openDefinitionsFailureTemplateConstant, definitionsPath, openError)
	}
	defer definitionsFile.Close()

	var lines []string
	scanner := bufio.NewScanner(definitionsFile)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if scanError := scanner.Err(); scanError != nil {
		return Map{}, fmt.Errorf(scanDefinitionsFailureTemplateConstant, definitionsPath, scanError)
	}

	return ExtractVersions(lines, managedRepositoryNames), nil
}

// ExtractVersions scans definitions lines for NAME=VERSION assignments of the
// managed repositories. The first line per repository wins.
func ExtractVersions(lines []string, managedRepositoryNames []string) Map {
	entries := make([]Entry, 0, len(managedRepositoryNames))
	for _, repositoryName := range managedRepositoryNames {
		assignmentPrefix := repositoryName + definitionAssignmentConstant
		for _, line := range lines {
			if !strings.HasPrefix(line, assignmentPrefix) {
				continue
			}
			if _, version, parsed := versioning.ParseDefinitionLine(line); parsed && len(version) > 0 {
				entries = append(entries, Entry{RepositoryName: repositoryName, Version: version})
			}
			break
		}
	}
	return NewMap(entries)
}
