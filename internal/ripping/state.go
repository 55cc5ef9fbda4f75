package ripping

import (
	"time"

	"discrip/internal/hooks"
	"discrip/internal/services"
)

// State is a pipeline state.
type State string

const (
	StateInit       State = "init"
	StateScanning   State = "scanning"
	StatePreparing  State = "preparing"
	StateRipping    State = "ripping"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Outcome is the terminal classification of a run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartialFailure
	OutcomeHardFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialFailure:
		return "partial_failure"
	case OutcomeHardFailure:
		return "hard_failure"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome takes the failure branch.
func (o Outcome) Failed() bool { return o != OutcomeSuccess }

// TitleResult is one title's outcome. SizeBytes is -1 when unknown.
type TitleResult struct {
	Index     int
	Path      string
	Success   bool
	SizeBytes int64
	Message   string
}

// HookFailure records a hook that exited nonzero or timed out.
type HookFailure struct {
	Point hooks.Point
	Err   error
}

// Result summarizes a completed run.
type Result struct {
	RunID        string
	Device       string
	Label        string
	OutputDir    string
	Outcome      Outcome
	States       []State
	Titles       []TitleResult
	HookFailures []HookFailure
	Ejected      bool
	Err          error
	Started      time.Time
	Duration     time.Duration
}

// State returns the last state reached.
func (r Result) State() State {
	if len(r.States) == 0 {
		return StateInit
	}
	return r.States[len(r.States)-1]
}

// ExitCode maps the run error to a process exit status.
func (r Result) ExitCode() int {
	return services.ExitCode(r.Err)
}

// TitlesOK counts successful titles.
func (r Result) TitlesOK() int {
	n := 0
	for _, t := range r.Titles {
		if t.Success {
			n++
		}
	}
	return n
}

// TitlesFailed counts failed titles.
func (r Result) TitlesFailed() int {
	return len(r.Titles) - r.TitlesOK()
}
