// Package regen serializes regeneration requests.
//
// At most one run executes at a time. Requests that arrive while a run is in
// progress collapse into a single follow-up run that uses the most recently
// requested target.
package regen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/jsdocpreview/internal/generator"
	"git.home.luguber.info/inful/jsdocpreview/internal/history"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/metrics"
)

// State is the coordinator's externally visible state.
type State int

const (
	Idle State = iota
	Running
	RunningQueued
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case RunningQueued:
		return "running_queued"
	default:
		return "unknown"
	}
}

// maxPending is one running request plus one queued.
const maxPending = 2

// RunInfo describes a finished run.
type RunInfo struct {
	ScanDir string
}

// Runner performs the work of one regeneration.
type Runner interface {
	// Setup runs once per turn, before the first run.
	Setup(ctx context.Context) error
	// Run regenerates documentation for target.
	Run(ctx context.Context, target string) (RunInfo, error)
}

// Notifier is told when a turn begins and ends.
type Notifier interface {
	NotifyWillCompute()
	NotifyDidCompute()
}

// HistoryRecorder persists runs.
type HistoryRecorder interface {
	Start(ctx context.Context, target string) (history.RunRecord, error)
	Finish(ctx context.Context, id string, f history.Finish) error
}

// Coordinator implements the Idle / Running / RunningQueued machine.
type Coordinator struct {
	runner   Runner
	notifier Notifier
	sink     generator.LogSink
	recorder metrics.Recorder
	history  HistoryRecorder
	logger   *slog.Logger

	mu        sync.Mutex
	pending   int
	latest    string
	coalesced int
	// idle is closed when the current turn returns the machine to Idle.
	idle chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithHistory records every run to h.
func WithHistory(h HistoryRecorder) Option {
	return func(c *Coordinator) { c.history = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns an idle Coordinator.
func New(runner Runner, notifier Notifier, sink generator.LogSink, opts ...Option) *Coordinator {
	c := &Coordinator{
		runner:   runner,
		notifier: notifier,
		sink:     sink,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stateFor(c.pending)
}

// Pending reports the current pending count.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func stateFor(pending int) State {
	switch {
	case pending <= 0:
		return Idle
	case pending == 1:
		return Running
	default:
		return RunningQueued
	}
}

// Request asks for a regeneration of target.
//
// When idle the caller takes the turn: Request blocks while setup and every
// run (including follow-ups queued meanwhile) execute, and returns the first
// error. Otherwise the request is queued and Request returns nil at once.
func (c *Coordinator) Request(ctx context.Context, target string) error {
	c.mu.Lock()
	c.latest = target
	if c.pending > 0 {
		if c.pending < maxPending {
			c.pending++
		}
		c.coalesced++
		c.mu.Unlock()
		c.recorder.IncCoalescedRequest()
		c.logger.Debug("Regeneration queued", logfields.Target(target), logfields.Pending(c.Pending()))
		return nil
	}
	c.pending = 1
	c.coalesced = 0
	c.idle = make(chan struct{})
	c.mu.Unlock()

	return c.turn(ctx)
}

// WaitIdle blocks until no turn is in progress or ctx is done.
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) markIdleLocked() {
	c.pending = 0
	if c.idle != nil {
		close(c.idle)
		c.idle = nil
	}
}

// turn is executed only by the request that moved the machine out of Idle.
// The machine stays non-Idle until DidCompute has been sent, so a new turn
// never announces itself before the previous one finished.
func (c *Coordinator) turn(ctx context.Context) error {
	for {
		c.notifier.NotifyWillCompute()

		if err := c.runner.Setup(ctx); err != nil {
			return c.fail(err)
		}
		if err := c.runPending(ctx); err != nil {
			return c.fail(err)
		}

		c.notifier.NotifyDidCompute()

		c.mu.Lock()
		c.pending--
		again := c.pending > 0
		if !again {
			c.markIdleLocked()
		}
		c.mu.Unlock()
		if !again {
			return nil
		}
	}
}

// runPending runs until only the holder's own pending slot is left.
func (c *Coordinator) runPending(ctx context.Context) error {
	for {
		c.mu.Lock()
		target := c.latest
		coalesced := c.coalesced
		c.coalesced = 0
		c.mu.Unlock()

		if err := c.runOnce(ctx, target, coalesced); err != nil {
			return err
		}

		c.mu.Lock()
		last := c.pending <= 1
		if !last {
			c.pending--
		}
		c.mu.Unlock()
		if last {
			return nil
		}
	}
}

func (c *Coordinator) runOnce(ctx context.Context, target string, coalesced int) error {
	var runID string
	if c.history != nil {
		rec, err := c.history.Start(context.WithoutCancel(ctx), target)
		if err != nil {
			c.logger.Warn("Failed to record run start", logfields.Error(err))
		}
		runID = rec.ID
	}

	logger := c.logger.With(logfields.RunID(runID), logfields.Target(target))
	logger.Info("Regeneration started")

	start := time.Now()
	info, err := c.runner.Run(ctx, target)
	elapsed := time.Since(start)
	c.recorder.ObserveRunDuration(elapsed)

	outcome := history.OutcomeSuccess
	if err != nil {
		outcome = history.OutcomeFailed
		c.recorder.IncRunOutcome(metrics.OutcomeFailed)
		logger.Error("Regeneration failed", logfields.Error(err), logfields.DurationMS(float64(elapsed.Milliseconds())))
	} else {
		c.recorder.IncRunOutcome(metrics.OutcomeSuccess)
		logger.Info("Regeneration finished", logfields.ScanDir(info.ScanDir), logfields.DurationMS(float64(elapsed.Milliseconds())))
	}

	if c.history != nil && runID != "" {
		// The generator is not cancelled with ctx, so its outcome is recorded regardless.
		if herr := c.history.Finish(context.WithoutCancel(ctx), runID, history.Finish{
			ScanDir:   info.ScanDir,
			Outcome:   outcome,
			Err:       err,
			Coalesced: coalesced,
		}); herr != nil {
			logger.Warn("Failed to record run finish", logfields.Error(herr))
		}
	}
	return err
}

// fail drops any queued request and returns the machine to Idle.
func (c *Coordinator) fail(err error) error {
	c.sink.Error(err.Error())
	c.notifier.NotifyDidCompute()

	c.mu.Lock()
	c.markIdleLocked()
	c.coalesced = 0
	c.mu.Unlock()
	return err
}
