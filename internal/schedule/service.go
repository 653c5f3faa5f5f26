package schedule

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/jihopark/mathshorts/internal/config"
)

// SlotHandler is called when a slot's cron expression fires.
type SlotHandler func(slot config.SlotConfig) error

// SweepFunc is called on the sweep interval to resolve expired approvals.
type SweepFunc func(now time.Time) error

// slotState tracks one configured slot inside the polling loop.
type slotState struct {
	slot    config.SlotConfig
	nextRun time.Time
}

// Service fires slot runs from cron expressions and drives the periodic
// approval-deadline sweep. Slots come from configuration; there is no
// runtime mutation surface.
type Service struct {
	slots         []*slotState
	onSlot        SlotHandler
	onSweep       SweepFunc
	sweepInterval time.Duration

	now func() time.Time

	mu       sync.RWMutex
	stopChan chan struct{}
	stopped  chan struct{}
	running  bool
}

// NewService builds a scheduler over the enabled slots.
func NewService(slots []config.SlotConfig, sweepInterval time.Duration, onSlot SlotHandler, onSweep SweepFunc) (*Service, error) {
	if sweepInterval <= 0 {
		sweepInterval = 3 * time.Minute
	}

	parser := gronx.New()
	states := make([]*slotState, 0, len(slots))
	for _, slot := range slots {
		if !slot.Enabled {
			continue
		}
		if !parser.IsValid(slot.Cron) {
			return nil, fmt.Errorf("slot %q: invalid cron expression %q", slot.Name, slot.Cron)
		}
		states = append(states, &slotState{slot: slot})
	}

	return &Service{
		slots:         states,
		onSlot:        onSlot,
		onSweep:       onSweep,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}, nil
}

// Start computes initial fire times and begins the polling loop.
func (s *Service) Start() error {
	for _, state := range s.slots {
		if err := s.computeNextRun(state); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.stopChan = make(chan struct{})
	s.stopped = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	go s.loop()

	slog.Info("scheduler started", "slots", len(s.slots), "sweep_interval", s.sweepInterval)
	return nil
}

// Stop gracefully shuts down the polling loop.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.stopped
	slog.Info("scheduler stopped")
}

func (s *Service) loop() {
	defer close(s.stopped)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	sweeper := time.NewTicker(s.sweepInterval)
	defer sweeper.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick()
		case <-sweeper.C:
			s.sweep()
		}
	}
}

func (s *Service) tick() {
	now := s.now()

	var due []config.SlotConfig
	s.mu.Lock()
	for _, state := range s.slots {
		if state.nextRun.IsZero() || state.nextRun.After(now) {
			continue
		}
		// Advance before firing so a slow run cannot re-fire the slot.
		if err := s.computeNextRun(state); err != nil {
			slog.Warn("failed to reschedule slot", "slot", state.slot.Name, "error", err)
			state.nextRun = time.Time{}
		}
		due = append(due, state.slot)
	}
	s.mu.Unlock()

	for _, slot := range due {
		s.fire(slot)
	}
}

func (s *Service) fire(slot config.SlotConfig) {
	slog.Info("slot fired", "slot", slot.Name, "topic", slot.Topic)

	if s.onSlot == nil {
		return
	}
	if err := s.onSlot(slot); err != nil {
		slog.Warn("slot run not started", "slot", slot.Name, "error", err)
	}
}

func (s *Service) sweep() {
	if s.onSweep == nil {
		return
	}
	if err := s.onSweep(s.now()); err != nil {
		slog.Warn("approval sweep failed", "error", err)
	}
}

func (s *Service) computeNextRun(state *slotState) error {
	next, err := gronx.NextTickAfter(state.slot.Cron, s.now(), false)
	if err != nil {
		return fmt.Errorf("slot %q: compute next run: %w", state.slot.Name, err)
	}
	state.nextRun = next
	return nil
}

// NextRuns reports the upcoming fire time per slot, for the status surface.
func (s *Service) NextRuns() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]time.Time, len(s.slots))
	for _, state := range s.slots {
		out[state.slot.Name] = state.nextRun
	}
	return out
}

// Running reports whether the polling loop is active.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
