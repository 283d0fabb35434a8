package metrics

import "time"

// OutcomeLabel enumerates the final status of a regeneration run.
type OutcomeLabel string

const (
	OutcomeSuccess OutcomeLabel = "success"
	OutcomeFailed  OutcomeLabel = "failed"
)

// Recorder defines the metrics operations used by the coordinator and the
// preview server.
type Recorder interface {
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome OutcomeLabel)
	IncCoalescedRequest()
	SetPushClients(n int)
	IncBroadcast(kind string)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveRunDuration(time.Duration) {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)       {}
func (NoopRecorder) IncCoalescedRequest()             {}
func (NoopRecorder) SetPushClients(int)               {}
func (NoopRecorder) IncBroadcast(string)              {}
