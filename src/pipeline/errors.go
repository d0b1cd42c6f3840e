package pipeline

import "fmt"

// Phase names the step of a run that failed.
type Phase string

const (
	PhaseResolve Phase = "resolve"
	PhaseList    Phase = "list"
	PhaseStage   Phase = "stage"
	PhaseLog     Phase = "log"
	PhaseWrite   Phase = "write"
)

// PhaseError reports which phase failed and, once builds are being processed, for which build.
type PhaseError struct {
	Phase   Phase
	BuildID int64
	Err     error
}

func (e *PhaseError) Error() string {
	if e.BuildID != 0 {
		return fmt.Sprintf("%s build %d: %v", e.Phase, e.BuildID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
