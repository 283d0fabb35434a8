package relay

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jsdocpreview/internal/push"
)

type fakePublisher struct {
	subjects []string
	bodies   [][]byte
	err      error
	drained  bool
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, data)
	return f.err
}

func (f *fakePublisher) Drain() error {
	f.drained = true
	return nil
}

func TestBroadcastPublishesMessage(t *testing.T) {
	pub := &fakePublisher{}
	r := newRelay(pub, "jsdocpreview.events", "/ws", nil)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	r.Broadcast(push.LogError("boom"))

	require.Len(t, pub.bodies, 1)
	assert.Equal(t, "jsdocpreview.events", pub.subjects[0])

	var msg Message
	require.NoError(t, json.Unmarshal(pub.bodies[0], &msg))
	assert.Equal(t, "reload-jsdoc", msg.Event)
	assert.Equal(t, "onDidJsDocLogError:boom", msg.Payload)
	assert.Equal(t, push.KindLogError, msg.Kind)
	assert.Equal(t, "/ws", msg.Workspace)
}

func TestBroadcastSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	r := newRelay(pub, "s", "", nil)

	assert.NotPanics(t, func() { r.Broadcast(push.DidCompute()) })
	require.NoError(t, r.Close())
	assert.True(t, pub.drained)
}

func TestNilRelayClose(t *testing.T) {
	var r *Relay
	assert.NoError(t, r.Close())
}
