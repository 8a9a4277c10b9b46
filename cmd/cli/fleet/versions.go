package fleet

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	currentVersionsUseConstant               = "show-current-versions"
	currentVersionsShortDescriptionConstant  = "Describe the revision checked out in every repository"
	originalVersionsUseConstant              = "show-original-versions"
	originalVersionsShortDescriptionConstant = "Print the baseline version of every repository"
	versionOutputTemplateConstant            = "%s: %s\n"
	versionUnavailableOutputTemplateConstant = "%s: unavailable (%v)\n"
)

// CurrentVersionsCommandBuilder assembles the show-current-versions command.
type CurrentVersionsCommandBuilder struct {
	Dependencies
}

// Build constructs the show-current-versions command.
func (builder *CurrentVersionsCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   currentVersionsUseConstant,
		Short: currentVersionsShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CurrentVersionsCommandBuilder) run(command *cobra.Command, _ []string) error {
	session, sessionError := builder.openSession(command.Context())
	if sessionError != nil {
		return sessionError
	}

	output := command.OutOrStdout()
	for _, report := range session.orchestrator.CurrentVersions(command.Context()) {
		if report.Error != nil {
			fmt.Fprintf(output, versionUnavailableOutputTemplateConstant, report.RepositoryName, report.Error)
			continue
		}
		fmt.Fprintf(output, versionOutputTemplateConstant, report.RepositoryName, report.Description)
	}
	return nil
}

// OriginalVersionsCommandBuilder assembles the show-original-versions command.
type OriginalVersionsCommandBuilder struct {
	Dependencies
}

// Build constructs the show-original-versions command.
func (builder *OriginalVersionsCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   originalVersionsUseConstant,
		Short: originalVersionsShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().String(baselineBranchFlagNameConstant, "", baselineBranchFlagUsageConstant)
	return command, nil
}

func (builder *OriginalVersionsCommandBuilder) run(command *cobra.Command, _ []string) error {
	session, sessionError := builder.openSession(command.Context())
	if sessionError != nil {
		return sessionError
	}

	baselineMap, loadError := session.orchestrator.OriginalVersions(command.Context(), resolveBaselineBranch(command, session.configuration.Environment))
	if loadError != nil {
		return loadError
	}

	output := command.OutOrStdout()
	for _, entry := range baselineMap.Entries() {
		fmt.Fprintf(output, versionOutputTemplateConstant, entry.RepositoryName, entry.Version)
	}
	return nil
}
