package fleet

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/obsenv/internal/events"
)

const (
	checkoutBranchUseConstant              = "checkout-branch <repository> <branch>"
	checkoutBranchShortDescriptionConstant = "Check out a branch from origin in one repository"
	checkoutBranchExampleConstant          = "obsenv checkout-branch ts_wep tickets/DM-42"
	resetVersionUseConstant                = "reset-version <repository> <version>"
	resetVersionShortDescriptionConstant   = "Check out the release tag of a version in one repository"
	resetVersionLongDescriptionConstant    = "reset-version checks out the tag of the version (v1.2.3, or v1.2.3.rc1 for pre-releases) and falls back to a branch with the same name when no such tag exists."
	resetVersionExampleConstant            = "obsenv reset-version ts_wep 1.2.3"
	revisionOutputTemplateConstant         = "%s: %s\n"
)

// CheckoutBranchCommandBuilder assembles the checkout-branch command.
type CheckoutBranchCommandBuilder struct {
	Dependencies
}

// Build constructs the checkout-branch command.
func (builder *CheckoutBranchCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     checkoutBranchUseConstant,
		Short:   checkoutBranchShortDescriptionConstant,
		Example: checkoutBranchExampleConstant,
		Args:    cobra.ExactArgs(2),
		RunE:    builder.run,
	}
	return command, nil
}

func (builder *CheckoutBranchCommandBuilder) run(command *cobra.Command, arguments []string) error {
	session, sessionError := builder.openSession(command.Context())
	if sessionError != nil {
		return sessionError
	}

	repositoryName, branchName := arguments[0], arguments[1]
	if checkoutError := session.orchestrator.CheckoutBranch(command.Context(), repositoryName, branchName); checkoutError != nil {
		return checkoutError
	}

	fmt.Fprintf(command.OutOrStdout(), revisionOutputTemplateConstant, repositoryName, branchName)
	session.publish(command.Context(), events.ChangeEvent{
		Action:         events.ActionCheckoutBranch,
		Repository:     repositoryName,
		TargetRevision: branchName,
	})
	return nil
}

// ResetVersionCommandBuilder assembles the reset-version command.
type ResetVersionCommandBuilder struct {
	Dependencies
}

// Build constructs the reset-version command.
func (builder *ResetVersionCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     resetVersionUseConstant,
		Short:   resetVersionShortDescriptionConstant,
		Long:    resetVersionLongDescriptionConstant,
		Example: resetVersionExampleConstant,
		Args:    cobra.ExactArgs(2),
		RunE:    builder.run,
	}
	return command, nil
}

func (builder *ResetVersionCommandBuilder) run(command *cobra.Command, arguments []string) error {
	session, sessionError := builder.openSession(command.Context())
	if sessionError != nil {
		return sessionError
	}

	repositoryName, version := arguments[0], arguments[1]
	if resetError := session.orchestrator.ResetIndexToVersion(command.Context(), repositoryName, version); resetError != nil {
		return resetError
	}

	fmt.Fprintf(command.OutOrStdout(), revisionOutputTemplateConstant, repositoryName, version)
	session.publish(command.Context(), events.ChangeEvent{
		Action:         events.ActionResetVersion,
		Repository:     repositoryName,
		TargetRevision: version,
	})
	return nil
}
