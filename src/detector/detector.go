package detector

import (
	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------

// Reasons reported with a Decision, also used as metric labels.
const (
	ReasonFirst      = "first"
	ReasonChanged    = "changed"
	ReasonRecovered  = "recovered"
	ReasonUnchanged  = "unchanged"
	ReasonRetrying   = "retrying"
	ReasonFailing    = "failing"
	ReasonFailureRun = "failure_run"
)

// Decision is the outcome of comparing two snapshots of one source.
type Decision struct {
	Broadcast  bool // payload update worth pushing
	Diagnostic bool // entering a failure run, emit one error event
	Reason     string
}

// -----------------------------------------------------------------------------

// Evaluate compares the stored snapshot before and after a merge. It is a
// pure function of its inputs; timestamps never take part in equality.
func Evaluate(old, new models.MSnapshot) Decision {
	switch new.Status {
	case models.StatusOK:
		switch {
		case old.Status == models.StatusError:
			return Decision{Broadcast: true, Reason: ReasonRecovered}
		case !old.HasPayload():
			return Decision{Broadcast: true, Reason: ReasonFirst}
		case old.Payload.Equal(new.Payload):
			return Decision{Reason: ReasonUnchanged}
		default:
			return Decision{Broadcast: true, Reason: ReasonChanged}
		}

	case models.StatusError:
		if old.Status == models.StatusError {
			return Decision{Reason: ReasonFailing}
		}
		return Decision{Diagnostic: true, Reason: ReasonFailureRun}

	default:
		return Decision{Reason: ReasonRetrying}
	}
}
