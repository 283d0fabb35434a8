// Package relay mirrors push events onto a NATS subject so tools outside the
// browser can follow regeneration progress.
package relay

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/push"
)

// Message is the JSON body published for each event.
type Message struct {
	Event     string    `json:"event"`
	Payload   string    `json:"payload"`
	Kind      push.Kind `json:"kind"`
	Value     string    `json:"value,omitempty"`
	Workspace string    `json:"workspace,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Relay publishes push events to NATS. It implements push.Broadcaster.
type Relay struct {
	pub       publisher
	subject   string
	workspace string
	logger    *slog.Logger
	now       func() time.Time
}

// Connect dials url and returns a Relay publishing to subject. The
// connection retries in the background when the server is not yet up.
func Connect(url, subject, workspace string, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("jsdocpreview"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS relay disconnected", logfields.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, ferrors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	logger.Info("NATS relay enabled", logfields.URL(url), slog.String("subject", subject))
	return newRelay(conn, subject, workspace, logger), nil
}

func newRelay(pub publisher, subject, workspace string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{pub: pub, subject: subject, workspace: workspace, logger: logger, now: time.Now}
}

// Broadcast publishes e. Publish failures are logged and dropped.
func (r *Relay) Broadcast(e push.Event) {
	data, err := json.Marshal(Message{
		Event:     push.FrameEvent,
		Payload:   e.Encode(),
		Kind:      e.Kind,
		Value:     e.Value,
		Workspace: r.workspace,
		Timestamp: r.now(),
	})
	if err != nil {
		r.logger.Warn("Failed to encode relay message", logfields.Error(err))
		return
	}
	if err := r.pub.Publish(r.subject, data); err != nil {
		r.logger.Debug("NATS publish failed", logfields.Error(err))
	}
}

// Close flushes pending messages and closes the connection.
func (r *Relay) Close() error {
	if r == nil || r.pub == nil {
		return nil
	}
	return r.pub.Drain()
}
