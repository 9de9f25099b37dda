package workflow

type transition struct {
	onSuccess Stage
	onFailure Stage
}

// transitions is the run state machine. Every stage before COMMITTED fails
// into COMPENSATING, and COMPENSATING ends in FAILED whatever its outcome.
// COMMITTED has no failure edge: once the record is written the run can only
// succeed.
var transitions = map[Stage]transition{
	StageStarted:      {onSuccess: StageMetadataDone, onFailure: StageCompensating},
	StageMetadataDone: {onSuccess: StageParallel, onFailure: StageCompensating},
	StageParallel:     {onSuccess: StageMerged, onFailure: StageCompensating},
	StageMerged:       {onSuccess: StageCommitted, onFailure: StageCompensating},
	StageCommitted:    {onSuccess: StageSucceeded},
	StageCompensating: {onSuccess: StageFailed, onFailure: StageFailed},
}
