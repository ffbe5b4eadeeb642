package domain

import "fmt"

// OutcomeKind tags the result of one execution attempt. The retry/DLQ
// decision in the executor is a pure function of the kind plus
// (attempts, max_retries); Outcome.Reason renders the diagnostic per kind.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNonZeroExit
	OutcomeTimeout
	OutcomeCommandNotFound
	OutcomeOther
)

// String is the short label used for metric label values and non-DLQ log
// lines, as distinct from Reason's DLQ-oriented diagnostic sentence.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNonZeroExit:
		return "non_zero_exit"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeCommandNotFound:
		return "command_not_found"
	default:
		return "other"
	}
}

// Outcome replaces a cascade of typed error handlers with a single tagged
// result. ExitCode is only meaningful for OutcomeNonZeroExit; TimeoutSecs
// only for OutcomeTimeout; Detail carries the free-form diagnostic for
// OutcomeCommandNotFound and OutcomeOther.
type Outcome struct {
	Kind        OutcomeKind
	ExitCode    int
	TimeoutSecs int
	Detail      string
}

// Reason renders the DLQ diagnostic string for a failing outcome, matching
// the wording callers (CLI, logs) expect for each failure kind.
func (o Outcome) Reason() string {
	switch o.Kind {
	case OutcomeTimeout:
		return fmt.Sprintf("Timeout after %ds", o.TimeoutSecs)
	case OutcomeCommandNotFound:
		return fmt.Sprintf("Command not found: %s", o.Detail)
	case OutcomeNonZeroExit:
		return fmt.Sprintf("Exit code %d, retries exhausted", o.ExitCode)
	case OutcomeOther:
		return fmt.Sprintf("Unhandled error: %s", o.Detail)
	default:
		return ""
	}
}
