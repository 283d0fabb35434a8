package metrics

import (
	"testing"
	"time"
)

// Ensures NoopRecorder satisfies the interface and methods are callable.
func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveRunDuration(10 * time.Millisecond)
	r.IncRunOutcome(OutcomeSuccess)
	r.IncCoalescedRequest()
	r.SetPushClients(3)
	r.IncBroadcast("onDidJsDocComputed")
}
