package events

import (
	"errors"
	"fmt"
	"strings"
)

const (
	actionSetupConstant                = "setup"
	actionResetConstant                = "reset"
	actionCheckoutBranchConstant       = "checkout-branch"
	actionResetVersionConstant         = "reset-version"
	unknownActionTemplateConstant      = "unknown action %q"
	repositoryRequiredTemplateConstant = "action %s requires a repository"
	revisionRequiredTemplateConstant   = "action %s requires a target revision"
	actionRequiredMessageConstant      = "action must be provided"
)

// ActionKind names a fleet operation carried by a ChangeEvent.
type ActionKind string

// Supported actions.
const (
	ActionSetup          ActionKind = ActionKind(actionSetupConstant)
	ActionReset          ActionKind = ActionKind(actionResetConstant)
	ActionCheckoutBranch ActionKind = ActionKind(actionCheckoutBranchConstant)
	ActionResetVersion   ActionKind = ActionKind(actionResetVersionConstant)
)

// ErrActionRequired indicates an event without an action.
var ErrActionRequired = errors.New(actionRequiredMessageConstant)

var knownActions = map[ActionKind]struct{}{
	ActionSetup:          {},
	ActionReset:          {},
	ActionCheckoutBranch: {},
	ActionResetVersion:   {},
}

// ParseActionKind normalizes an action name and rejects unknown values.
func ParseActionKind(rawAction string) (ActionKind, error) {
	candidate := ActionKind(strings.ToLower(strings.TrimSpace(rawAction)))
	if len(candidate) == 0 {
		return "", ErrActionRequired
	}
	if _, known := knownActions[candidate]; !known {
		return "", fmt.Errorf(unknownActionTemplateConstant, rawAction)
	}
	return candidate, nil
}

// TargetsRepository reports whether the action operates on a single repository.
func (action ActionKind) TargetsRepository() bool {
	return action == ActionCheckoutBranch || action == ActionResetVersion
}

// ChangeEvent is the flattened record of one fleet operation. For reset
// events TargetRevision carries the optional run branch and BaselineBranch the
// baseline branch used by the publisher.
type ChangeEvent struct {
	Identifier     string     `mapstructure:"id"`
	Timestamp      int64      `mapstructure:"timestamp"`
	Action         ActionKind `mapstructure:"action"`
	Repository     string     `mapstructure:"repository"`
	TargetRevision string     `mapstructure:"target_revision"`
	BaselineBranch string     `mapstructure:"baseline_branch"`
	User           string     `mapstructure:"user"`
}

// Validate checks that the event names a known action and carries the fields that action needs.
func (event ChangeEvent) Validate() error {
	action, actionError := ParseActionKind(string(event.Action))
	if actionError != nil {
		return actionError
	}
	if !action.TargetsRepository() {
		return nil
	}
	if len(strings.TrimSpace(event.Repository)) == 0 {
		return fmt.Errorf(repositoryRequiredTemplateConstant, action)
	}
	if len(strings.TrimSpace(event.TargetRevision)) == 0 {
		return fmt.Errorf(revisionRequiredTemplateConstant, action)
	}
	return nil
}
