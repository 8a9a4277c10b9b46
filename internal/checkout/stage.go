package checkout

// Stage enumerates the states of a revision resolution.
type Stage int

// Stages of the resolution state machine. Start leads to TagAttempted, which
// ends in TagSucceeded or falls through to BranchAttempted when the tag is
// missing. BranchAttempted ends in BranchSucceeded. Any other failure ends in
// Failed and is never retried.
const (
	StageStart Stage = iota
	StageTagAttempted
	StageTagSucceeded
	StageBranchAttempted
	StageBranchSucceeded
	StageFailed
)

var stageNames = map[Stage]string{
	StageStart:           "start",
	StageTagAttempted:    "tag-attempted",
	StageTagSucceeded:    "tag-succeeded",
	StageBranchAttempted: "branch-attempted",
	StageBranchSucceeded: "branch-succeeded",
	StageFailed:          "failed",
}

// String returns the stage name used in logs.
func (stage Stage) String() string {
	if name, known := stageNames[stage]; known {
		return name
	}
	return stageNames[StageFailed]
}

// Succeeded reports whether the stage is a terminal success.
func (stage Stage) Succeeded() bool {
	return stage == StageTagSucceeded || stage == StageBranchSucceeded
}
