package domain

// JobState is the orchestrator state machine.
type JobState int

const (
	JobIdle JobState = iota
	JobUploading
	JobFinalizing
	JobSucceeded
	JobFailed
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobIdle:
		return "idle"
	case JobUploading:
		return "uploading"
	case JobFinalizing:
		return "finalizing"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Active reports whether periodic ticks may run in this state.
func (s JobState) Active() bool {
	return s == JobUploading || s == JobFinalizing
}

// Terminal reports whether the job has finished.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCancelled
}

const (
	// StageMax is the last stage the stage ticker reaches on its own.
	StageMax = 3
	// StageDone is shown once the result is in.
	StageDone = 4
)

// Progress is one observed sample of a running job.
type Progress struct {
	Percent float64
	Stage   int
	State   JobState
}
