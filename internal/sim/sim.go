// Package sim drives the frame/tick loop: it owns the simulated clock,
// advances every registered body in relative-to depth order, and publishes
// immutable state snapshots for the API and stream layers.
package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/theaklair/jsorrery/internal/body"
	"github.com/theaklair/jsorrery/internal/metrics"
)

// Config holds simulation loop parameters.
type Config struct {
	// Step is the wall-clock interval between ticks.
	Step time.Duration
	// Speed is the simulated-to-wall time ratio: one wall second advances
	// the simulated clock by Speed seconds.
	Speed float64
	// Workers bounds the per-level propagation parallelism.
	Workers int
}

// Simulation advances a body registry through simulated time.
type Simulation struct {
	reg    *body.Registry
	config Config
	logger *slog.Logger

	mu      sync.Mutex // guards current
	current time.Time

	// stateMu serializes body mutation: Tick and SetEpoch both reposition
	// bodies and rewrite their bookkeeping, so only one of them may run at
	// a time.
	stateMu sync.Mutex

	snapshots Store
}

// New creates a simulation over the registry, starting at epoch. Revolution
// signals from every body are wired to logging and metrics.
func New(reg *body.Registry, epoch time.Time, config Config, logger *slog.Logger) *Simulation {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Speed == 0 {
		config.Speed = 1
	}

	s := &Simulation{
		reg:     reg,
		config:  config,
		logger:  logger,
		current: epoch,
	}

	for _, b := range reg.Ordered() {
		b := b
		b.OnRevolution = func(count int) {
			metrics.RecordRevolution(b.Name)
			logger.Info("revolution completed",
				"body", b.Name,
				"count", count,
				"sim_time", s.Current().UTC().Format(time.RFC3339),
			)
		}
	}

	s.SetEpoch(epoch)
	return s
}

// Registry returns the simulation's body registry.
func (s *Simulation) Registry() *body.Registry { return s.reg }

// Current returns the current simulated time.
func (s *Simulation) Current() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Snapshot returns the most recently published state snapshot, or nil before
// the first tick.
func (s *Simulation) Snapshot() *Snapshot {
	return s.snapshots.Get()
}

// SetEpoch resets every body's accumulated bookkeeping and repositions it at
// t, so an epoch jump is never counted as orbital movement. It is safe to
// call while the tick loop is running.
func (s *Simulation) SetEpoch(t time.Time) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.mu.Lock()
	s.current = t
	s.mu.Unlock()

	for _, b := range s.reg.Ordered() {
		b.Reset()
		b.SetPositionFromDate(t, true)
		b.PositionRelativeTo(s.reg)
		// Prime the previous-position cache so the first tick after an
		// epoch change measures real displacement instead of zero.
		b.Tick(s.reg, 0, false)
	}
	s.snapshots.Set(s.capture(t))
	s.logger.Info("epoch set", "sim_time", t.UTC().Format(time.RFC3339))
}

// Tick advances the simulated clock by Step*Speed and updates every body.
// Bodies are processed level by level in relative-to depth order so frame
// composition only ever reads finalized parent state; bodies within one
// level are independent and propagate in parallel.
func (s *Simulation) Tick() {
	start := time.Now()

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	simDelta := time.Duration(float64(s.config.Step) * s.config.Speed)

	s.mu.Lock()
	s.current = s.current.Add(simDelta)
	target := s.current
	s.mu.Unlock()

	deltaSeconds := simDelta.Seconds()
	for _, level := range s.reg.Levels() {
		s.tickLevel(level, target, deltaSeconds)
	}

	s.snapshots.Set(s.capture(target))
	metrics.RecordTick(time.Since(start))
}

// Run ticks at the configured wall-clock step until ctx is cancelled.
func (s *Simulation) Run(ctx context.Context) {
	s.logger.Info("simulation started",
		"step", s.config.Step.String(),
		"speed", s.config.Speed,
		"workers", s.config.Workers,
		"bodies", s.reg.Len(),
	)

	ticker := time.NewTicker(s.config.Step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulation stopped", "sim_time", s.Current().UTC().Format(time.RFC3339))
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}
