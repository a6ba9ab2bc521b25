package constants

// RunStatus is the lifecycle status of one extraction run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"    // waiting for a batch worker
	RunStatusRunning   RunStatus = "RUNNING"   // page loop in progress
	RunStatusTextOK    RunStatus = "TEXT_OK"   // all pages recognized
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure
	RunStatusCancelled RunStatus = "CANCELLED" // stopped on caller request
)

// Outcome is the terminal kind of an extraction result.
type Outcome string

const (
	OutcomeText      Outcome = "TEXT"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeCancelled Outcome = "CANCELLED"
)

// Status maps a terminal outcome to the run status recorded for it.
func (o Outcome) Status() RunStatus {
	switch o {
	case OutcomeText:
		return RunStatusTextOK
	case OutcomeCancelled:
		return RunStatusCancelled
	default:
		return RunStatusFailed
	}
}
