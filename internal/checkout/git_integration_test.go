package checkout_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/obsenv/internal/checkout"
	"github.com/temirov/obsenv/internal/execshell"
	"github.com/temirov/obsenv/internal/gitrepo"
)

func runGit(testInstance *testing.T, workingDirectory string, arguments ...string) string {
	testInstance.Helper()
	command := exec.Command("git", append([]string{"-c", "user.name=Observer", "-c", "user.email=observer@example.com", "-c", "init.defaultBranch=main"}, arguments...)...)
	command.Dir = workingDirectory
	command.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, runError := command.CombinedOutput()
	require.NoErrorf(testInstance, runError, "git %s: %s", strings.Join(arguments, " "), output)
	return strings.TrimSpace(string(output))
}

func commitFile(testInstance *testing.T, repositoryPath string, content string) string {
	testInstance.Helper()
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, "VERSION"), []byte(content), 0o644))
	runGit(testInstance, repositoryPath, "add", "VERSION")
	runGit(testInstance, repositoryPath, "commit", "-q", "-m", content)
	return runGit(testInstance, repositoryPath, "rev-parse", "HEAD")
}

func TestResetToVersionAgainstRealRepository(testInstance *testing.T) {
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}

	workspace := testInstance.TempDir()
	originPath := filepath.Join(workspace, "origin")
	require.NoError(testInstance, os.MkdirAll(originPath, 0o755))
	runGit(testInstance, originPath, "init", "-q")
	taggedCommit := commitFile(testInstance, originPath, "1.0.0")
	runGit(testInstance, originPath, "tag", "-a", "v1.0.0.rc.1", "-m", "release candidate")
	runGit(testInstance, originPath, "checkout", "-q", "-b", "develop")
	developCommit := commitFile(testInstance, originPath, "develop")
	runGit(testInstance, originPath, "checkout", "-q", "main")

	shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	require.NoError(testInstance, executorError)
	manager, managerError := gitrepo.NewRepositoryManager(shellExecutor)
	require.NoError(testInstance, managerError)

	clonePath := filepath.Join(workspace, "ts_observatory_control")
	require.NoError(testInstance, manager.Clone(context.Background(), originPath, clonePath))

	service, serviceError := checkout.NewService(checkout.ServiceDependencies{Logger: zap.NewNop(), Repository: manager})
	require.NoError(testInstance, serviceError)

	tagResult, tagError := service.ResetToVersion(context.Background(), checkout.Options{RepositoryPath: clonePath, Revision: "1.0.0rc1"})
	require.NoError(testInstance, tagError)
	require.Equal(testInstance, checkout.StageTagSucceeded, tagResult.Stage)
	require.Equal(testInstance, taggedCommit, tagResult.Commit)
	require.Equal(testInstance, taggedCommit, runGit(testInstance, clonePath, "rev-parse", "HEAD"))
	require.Equal(testInstance, "refs/heads/1.0.0rc1", runGit(testInstance, clonePath, "symbolic-ref", "HEAD"))

	branchResult, branchError := service.ResetToVersion(context.Background(), checkout.Options{RepositoryPath: clonePath, Revision: "develop"})
	require.NoError(testInstance, branchError)
	require.Equal(testInstance, checkout.StageBranchSucceeded, branchResult.Stage)
	require.Equal(testInstance, developCommit, runGit(testInstance, clonePath, "rev-parse", "HEAD"))
	require.Equal(testInstance, "refs/heads/develop", runGit(testInstance, clonePath, "symbolic-ref", "HEAD"))
	contents, readError := os.ReadFile(filepath.Join(clonePath, "VERSION"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "develop", string(contents))

	_, missingError := service.ResetToVersion(context.Background(), checkout.Options{RepositoryPath: clonePath, Revision: "ticket/DM-0"})
	var resolutionError checkout.RevisionResolutionError
	require.ErrorAs(testInstance, missingError, &resolutionError)
	require.Equal(testInstance, checkout.StageBranchAttempted, resolutionError.Stage)
	require.ErrorIs(testInstance, missingError, gitrepo.ErrReferenceNotFound)
	require.Equal(testInstance, developCommit, runGit(testInstance, clonePath, "rev-parse", "HEAD"))
}
