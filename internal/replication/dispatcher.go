package replication

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/obsenv/internal/environment"
	"github.com/temirov/obsenv/internal/events"
)

const (
	fleetMissingMessageConstant       = "fleet operations not configured"
	unsupportedActionTemplateConstant = "unsupported action %q"
	replayFailedTemplateConstant      = "%s %s: %w"
	replayFleetFailedTemplateConstant = "%s: %w"
)

// ErrFleetNotConfigured indicates the orchestrator dependency was missing.
var ErrFleetNotConfigured = errors.New(fleetMissingMessageConstant)

// FleetOperations lists the orchestrator calls a ChangeEvent can trigger.
// environment.Orchestrator satisfies it.
type FleetOperations interface {
	Setup(executionContext context.Context, user string) (environment.SetupReport, error)
	ResetBaseline(executionContext context.Context, baselineBranch string, overrideBranch string) (environment.ResetReport, error)
	CheckoutBranch(executionContext context.Context, repositoryName string, branchName string) error
	ResetIndexToVersion(executionContext context.Context, repositoryName string, version string) error
}

// OrchestratorDispatcher translates ChangeEvents into orchestrator calls.
type OrchestratorDispatcher struct {
	fleet                 FleetOperations
	defaultBaselineBranch string
}

// NewOrchestratorDispatcher constructs a dispatcher. defaultBaselineBranch is
// used for reset events that do not name a baseline branch.
func NewOrchestratorDispatcher(fleet FleetOperations, defaultBaselineBranch string) (*OrchestratorDispatcher, error) {
	if fleet == nil {
		return nil, ErrFleetNotConfigured
	}
	return &OrchestratorDispatcher{fleet: fleet, defaultBaselineBranch: strings.TrimSpace(defaultBaselineBranch)}, nil
}

// Dispatch runs the orchestrator operation named by the event. Partial fleet
// failures are returned as environment.ResetFailuresError or environment.CloneFailuresError.
func (dispatcher *OrchestratorDispatcher) Dispatch(executionContext context.Context, event events.ChangeEvent) error {
	switch event.Action {
	case events.ActionSetup:
		report, setupError := dispatcher.fleet.Setup(executionContext, event.User)
		if setupError != nil {
			return fmt.Errorf(replayFleetFailedTemplateConstant, event.Action, setupError)
		}
		return report.Err()
	case events.ActionReset:
		baselineBranch := event.BaselineBranch
		if len(baselineBranch) == 0 {
			baselineBranch = dispatcher.defaultBaselineBranch
		}
		report, resetError := dispatcher.fleet.ResetBaseline(executionContext, baselineBranch, event.TargetRevision)
		if resetError != nil {
			return fmt.Errorf(replayFleetFailedTemplateConstant, event.Action, resetError)
		}
		return report.Err()
	case events.ActionCheckoutBranch:
		if checkoutError := dispatcher.fleet.CheckoutBranch(executionContext, event.Repository, event.TargetRevision); checkoutError != nil {
			return fmt.Errorf(replayFailedTemplateConstant, event.Action, event.Repository, checkoutError)
		}
		return nil
	case events.ActionResetVersion:
		if resetError := dispatcher.fleet.ResetIndexToVersion(executionContext, event.Repository, event.TargetRevision); resetError != nil {
			return fmt.Errorf(replayFailedTemplateConstant, event.Action, event.Repository, resetError)
		}
		return nil
	default:
		return fmt.Errorf(unsupportedActionTemplateConstant, event.Action)
	}
}
