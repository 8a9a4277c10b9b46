package environment

import "github.com/temirov/obsenv/internal/checkout"

// CheckoutSource identifies which revision a fleet reset tried last for a repository.
type CheckoutSource string

// Checkout sources.
const (
	CheckoutSourceOverrideBranch  CheckoutSource = CheckoutSource("override-branch")
	CheckoutSourceBaselineVersion CheckoutSource = CheckoutSource("baseline-version")
)

// CheckoutOutcome is the result of synchronizing one repository.
type CheckoutOutcome struct {
	RepositoryName string
	Revision       string
	Source         CheckoutSource
	Stage          checkout.Stage
	Error          error
}

// Succeeded reports whether the repository reached its target revision.
func (outcome CheckoutOutcome) Succeeded() bool {
	return outcome.Error == nil
}

// ResetReport lists one outcome per attempted repository in registry order.
type ResetReport struct {
	BaselineBranch string
	OverrideBranch string
	Outcomes       []CheckoutOutcome
}

// Failures returns the failed outcomes in order. An empty result means success.
func (report ResetReport) Failures() []CheckoutOutcome {
	failures := make([]CheckoutOutcome, 0)
	for _, outcome := range report.Outcomes {
		if !outcome.Succeeded() {
			failures = append(failures, outcome)
		}
	}
	return failures
}

// Err returns ResetFailuresError when any repository failed.
func (report ResetReport) Err() error {
	failures := report.Failures()
	if len(failures) == 0 {
		return nil
	}
	return ResetFailuresError{Failures: failures, Attempted: len(report.Outcomes)}
}

// CloneOutcome is the result of cloning one missing repository.
type CloneOutcome struct {
	RepositoryName string
	Path           string
	Error          error
}

// SetupReport describes an environment setup.
type SetupReport struct {
	Clones        []CloneOutcome
	SetupFilePath string
}

// Err returns CloneFailuresError when any clone failed.
func (report SetupReport) Err() error {
	var failures []CloneOutcome
	for _, outcome := range report.Clones {
		if outcome.Error != nil {
			failures = append(failures, outcome)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return CloneFailuresError{Failures: failures}
}

// VersionReport describes the revision currently checked out in a repository.
type VersionReport struct {
	RepositoryName string
	Description    string
	Error          error
}
