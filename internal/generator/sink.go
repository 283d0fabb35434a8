package generator

import (
	"log/slog"

	"git.home.luguber.info/inful/jsdocpreview/internal/push"
)

// SlogSink writes generator output to a logger.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) Info(msg string)  { s.Logger.Info(msg) }
func (s SlogSink) Error(msg string) { s.Logger.Error(msg) }

// PushSink forwards generator output as push log events.
type PushSink struct {
	Broadcaster push.Broadcaster
}

func (s PushSink) Info(msg string)  { s.Broadcaster.Broadcast(push.LogInfo(msg)) }
func (s PushSink) Error(msg string) { s.Broadcaster.Broadcast(push.LogError(msg)) }

// Tee duplicates every line to each sink.
type Tee []LogSink

func (t Tee) Info(msg string) {
	for _, s := range t {
		s.Info(msg)
	}
}

func (t Tee) Error(msg string) {
	for _, s := range t {
		s.Error(msg)
	}
}
