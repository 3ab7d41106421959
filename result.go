package radiosync

import "time"

// Outcome classifies how one operation on one device ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// OperationKind names one of the fixed business operations. The set is closed;
// dispatch happens via Engine.Execute.
type OperationKind string

const (
	OpStatus        OperationKind = "status"
	OpDefaultConfig OperationKind = "default"
	OpSpeedTest     OperationKind = "speedtest"
	OpDelete        OperationKind = "delete"
	OpReclaim       OperationKind = "reclaim"
	OpDeploy        OperationKind = "deploy"
	OpUpgrade       OperationKind = "upgrade"
	OpRefurbish     OperationKind = "refurb"
)

// Operation selects an operation kind plus its modifiers.
type Operation struct {
	Kind OperationKind
	// Force applies to delete: reset configuration first, then delete
	// regardless of the reset outcome.
	Force bool
}

// OperationResult is the immutable record of one (device, operation)
// invocation. A retry produces a new result rather than mutating a prior one.
type OperationResult struct {
	SerialNumber string
	Kind         OperationKind
	Outcome      Outcome
	Detail       string
	StartedAt    time.Time
	FinishedAt   time.Time
	// Payload carries operation-specific data: *tarana.Radio for status,
	// *SpeedTestSummary for speedtest, *RefurbishmentReport for refurb.
	Payload any
}

// Succeeded reports whether the operation ended in Success.
func (r OperationResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
