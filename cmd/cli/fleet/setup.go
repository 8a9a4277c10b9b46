package fleet

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/obsenv/internal/events"
)

const (
	setupUseConstant                = "setup"
	setupShortDescriptionConstant   = "Create the environment, clone missing repositories and write the setup file"
	setupLongDescriptionConstant    = "setup creates the environment path when needed, clones every managed repository that is not present yet, and writes auto_env_setup.sh for the configured setup repositories. Existing clones are left untouched."
	setupStartedMessageConstant     = "Setting up environment"
	summaryLogFieldConstant         = "summary"
	clonedOutputTemplateConstant    = "cloned %s into %s\n"
	cloneFailedTemplateConstant     = "failed to clone %s: %v\n"
	setupFileOutputTemplateConstant = "setup file: %s\n"
)

// SetupCommandBuilder assembles the setup command.
type SetupCommandBuilder struct {
	Dependencies
}

// Build constructs the setup command.
func (builder *SetupCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   setupUseConstant,
		Short: setupShortDescriptionConstant,
		Long:  setupLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *SetupCommandBuilder) run(command *cobra.Command, _ []string) error {
	session, sessionError := builder.openSession(command.Context())
	if sessionError != nil {
		return sessionError
	}

	session.logger.Info(setupStartedMessageConstant, zap.String(summaryLogFieldConstant, session.orchestrator.Summarize()))
	report, setupError := session.orchestrator.Setup(command.Context(), session.user())
	if setupError != nil {
		return setupError
	}

	output := command.OutOrStdout()
	for _, clone := range report.Clones {
		if clone.Error != nil {
			fmt.Fprintf(output, cloneFailedTemplateConstant, clone.RepositoryName, clone.Error)
			continue
		}
		fmt.Fprintf(output, clonedOutputTemplateConstant, clone.RepositoryName, clone.Path)
	}
	fmt.Fprintf(output, setupFileOutputTemplateConstant, report.SetupFilePath)

	session.publish(command.Context(), events.ChangeEvent{Action: events.ActionSetup})
	return report.Err()
}
