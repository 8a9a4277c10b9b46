package fleet

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/obsenv/internal/environment"
	"github.com/temirov/obsenv/internal/events"
)

const (
	resetUseConstant                = "reset"
	resetShortDescriptionConstant   = "Move every repository to its baseline version"
	resetLongDescriptionConstant    = "reset loads the baseline definitions from the baseline branch and checks out the published version of every repository listed there. With --run-branch each repository tries that branch first and falls back to its baseline version. Failures in one repository do not stop the others; the command exits non-zero when any repository failed."
	resetExampleConstant            = "obsenv reset --baseline-branch main --run-branch tickets/DM-42"
	baselineBranchFlagNameConstant  = "baseline-branch"
	baselineBranchFlagUsageConstant = "Branch of the baseline definitions repository. Defaults to the configured branch."
	runBranchFlagNameConstant       = "run-branch"
	runBranchFlagUsageConstant      = "Branch to try in every repository before its baseline version."
	outcomeOutputTemplateConstant   = "%s: %s (%s)\n"
	failureOutputTemplateConstant   = "%s: failed: %v\n"
)

// ResetCommandBuilder assembles the reset command.
type ResetCommandBuilder struct {
	Dependencies
}

// Build constructs the reset command.
func (builder *ResetCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     resetUseConstant,
		Short:   resetShortDescriptionConstant,
		Long:    resetLongDescriptionConstant,
		Example: resetExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.run,
	}
	command.Flags().String(baselineBranchFlagNameConstant, "", baselineBranchFlagUsageConstant)
	command.Flags().String(runBranchFlagNameConstant, "", runBranchFlagUsageConstant)
	return command, nil
}

func (builder *ResetCommandBuilder) run(command *cobra.Command, _ []string) error {
	session, sessionError := builder.openSession(command.Context())
	if sessionError != nil {
		return sessionError
	}

	baselineBranch := resolveBaselineBranch(command, session.configuration.Environment)
	runBranch, _ := command.Flags().GetString(runBranchFlagNameConstant)

	report, resetError := session.orchestrator.ResetBaseline(command.Context(), baselineBranch, runBranch)
	if resetError != nil {
		return resetError
	}

	printResetReport(command, report)
	session.publish(command.Context(), events.ChangeEvent{
		Action:         events.ActionReset,
		TargetRevision: report.OverrideBranch,
		BaselineBranch: baselineBranch,
	})
	return report.Err()
}

func printResetReport(command *cobra.Command, report environment.ResetReport) {
	output := command.OutOrStdout()
	for _, outcome := range report.Outcomes {
		if outcome.Error != nil {
			fmt.Fprintf(output, failureOutputTemplateConstant, outcome.RepositoryName, outcome.Error)
			continue
		}
		fmt.Fprintf(output, outcomeOutputTemplateConstant, outcome.RepositoryName, outcome.Revision, outcome.Source)
	}
}

func resolveBaselineBranch(command *cobra.Command, configuration environment.Configuration) string {
	if command.Flags().Changed(baselineBranchFlagNameConstant) {
		if flagValue, _ := command.Flags().GetString(baselineBranchFlagNameConstant); len(flagValue) > 0 {
			return flagValue
		}
	}
	return configuration.Baseline.Branch
}
