package environment

import (
	"time"

	"go.uber.org/zap"

	"github.com/temirov/obsenv/internal/baseline"
	"github.com/temirov/obsenv/internal/checkout"
	"github.com/temirov/obsenv/internal/execshell"
	"github.com/temirov/obsenv/internal/gitrepo"
)

// AssemblyDependencies supplies optional collaborators for Assemble. Nil values
// are replaced by the operating system backed defaults.
type AssemblyDependencies struct {
	Logger          *zap.Logger
	GitExecutor     execshell.GitExecutor
	CommandObserver execshell.CommandEventObserver
	FileSystem      FileSystem
	Clock           func() time.Time
}

// Assemble wires an Orchestrator from configuration: git executor, repository
// manager, checkout service, baseline loader and registry.
func Assemble(configuration Configuration, dependencies AssemblyDependencies) (*Orchestrator, error) {
	sanitized := configuration.Sanitize()
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gitExecutor := dependencies.GitExecutor
	if gitExecutor == nil {
		executorOptions := []execshell.ShellExecutorOption{}
		if dependencies.CommandObserver != nil {
			executorOptions = append(executorOptions, execshell.WithCommandEventObserver(dependencies.CommandObserver))
		}
		shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), executorOptions...)
		if executorError != nil {
			return nil, executorError
		}
		gitExecutor = shellExecutor
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(gitExecutor)
	if managerError != nil {
		return nil, managerError
	}

	checkoutService, checkoutError := checkout.NewService(checkout.ServiceDependencies{Logger: logger, Repository: repositoryManager})
	if checkoutError != nil {
		return nil, checkoutError
	}

	baselineLoader, loaderError := baseline.NewLoader(baseline.Settings{
		Origin:          sanitized.Baseline.Origin,
		RepositoryName:  sanitized.Baseline.Repository,
		DefinitionsFile: sanitized.Baseline.DefinitionsFile,
		DestinationRoot: sanitized.Path,
	}, baseline.LoaderDependencies{Logger: logger, Repository: repositoryManager})
	if loaderError != nil {
		return nil, loaderError
	}

	registry, registryError := NewRegistry(sanitized.Repositories)
	if registryError != nil {
		return nil, registryError
	}

	return NewOrchestrator(
		Settings{RootPath: sanitized.Path, SetupRepositories: sanitized.SetupRepositories},
		Dependencies{
			Logger:     logger,
			Registry:   registry,
			Checkout:   checkoutService,
			Baseline:   baselineLoader,
			Repository: repositoryManager,
			FileSystem: dependencies.FileSystem,
			Clock:      dependencies.Clock,
		},
	)
}
