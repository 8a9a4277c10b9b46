package environment

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	setupFileNameConstant                   = "auto_env_setup.sh"
	setupFilePermissionsConstant            = 0o644
	setupFileTimestampLayoutConstant        = "2006-01-02 15:04:05"
	setupFileHeaderTemplateConstant         = "#!/usr/bin/env bash\n# This file is auto generated by obsenv.\n# It is sourced by the ~/notebooks/.user_setups file\n# Do not modify!\n# Created at %s UTC by %s\n\n"
	setupFileLineTemplateConstant           = "setup -j %s -r %s\n"
	setupFileWrittenMessageConstant         = "Wrote setup file"
	unmanagedSetupRepositoryMessageConstant = "Setup repository is not managed, skipping"
)

// SetupFilePath returns the location of the generated setup file.
func (orchestrator *Orchestrator) SetupFilePath() string {
	return filepath.Join(orchestrator.rootPath, setupFileNameConstant)
}

// CreateSetupFile writes the shell script that registers the setup
// repositories with the package manager. An existing file is replaced.
func (orchestrator *Orchestrator) CreateSetupFile(user string) (string, error) {
	setupFilePath := orchestrator.SetupFilePath()
	contents := orchestrator.RenderSetupFile(user)
	if writeError := orchestrator.fileSystem.WriteFile(setupFilePath, []byte(contents), setupFilePermissionsConstant); writeError != nil {
		return "", LocalStateError{Operation: LocalOperationWriteSetupFile, Path: setupFilePath, Cause: writeError}
	}
	orchestrator.logger.Info(setupFileWrittenMessageConstant, zap.String(pathLogFieldConstant, setupFilePath))
	return setupFilePath, nil
}

// RenderSetupFile returns the setup file contents.
func (orchestrator *Orchestrator) RenderSetupFile(user string) string {
	var builder strings.Builder
	createdAt := orchestrator.clock().UTC().Format(setupFileTimestampLayoutConstant)
	builder.WriteString(fmt.Sprintf(setupFileHeaderTemplateConstant, createdAt, user))
	for _, repositoryName := range orchestrator.setupRepositories {
		if !orchestrator.registry.Contains(repositoryName) {
			orchestrator.logger.Warn(unmanagedSetupRepositoryMessageConstant, zap.String(repositoryLogFieldConstant, repositoryName))
			continue
		}
		builder.WriteString(fmt.Sprintf(setupFileLineTemplateConstant, repositoryName, orchestrator.RepositoryPath(repositoryName)))
	}
	return builder.String()
}
