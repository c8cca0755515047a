package usecase

import (
	"sync"
	"time"

	"ContractGuard/internal/clock"
	"ContractGuard/internal/domain"
)

// Meter synthesizes a percentage that creeps toward a ceiling below 100
// while no real progress is known. The value never decreases.
type Meter struct {
	mu      sync.Mutex
	percent float64
	stage   int
	ceiling float64
	step    float64
	rnd     func() float64
}

// MaxCeiling bounds the synthetic value so that Complete is always a rise.
const MaxCeiling = 99

// NewMeter returns a meter at 0. The ceiling is clamped to 0..MaxCeiling.
// rnd must return values in [0, 1).
func NewMeter(ceiling, step float64, rnd func() float64) *Meter {
	ceiling = max(0, min(ceiling, MaxCeiling))
	return &Meter{ceiling: ceiling, step: max(0, step), rnd: rnd}
}

// Tick advances by a random amount up to step, capped at the ceiling.
func (m *Meter) Tick() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.percent < m.ceiling {
		m.percent = min(m.ceiling, m.percent+m.rnd()*m.step)
	}
	return m.percent
}

// Raise lifts the value to target, capped at the ceiling. Lower targets
// are ignored.
func (m *Meter) Raise(target float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	target = min(target, m.ceiling)
	if target > m.percent {
		m.percent = target
	}
	return m.percent
}

// NextStage moves the coarse stage forward, stopping at domain.StageMax.
func (m *Meter) NextStage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage < domain.StageMax {
		m.stage++
	}
	return m.stage
}

// JumpStage moves the stage forward to s; earlier stages are ignored.
func (m *Meter) JumpStage(s int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s > m.stage {
		m.stage = min(s, domain.StageMax)
	}
	return m.stage
}

// Complete pins the meter at 100 and the terminal stage.
func (m *Meter) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.percent = 100
	m.ceiling = 100
	m.stage = domain.StageDone
}

// Snapshot returns the current percentage and stage.
func (m *Meter) Snapshot() (float64, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.percent, m.stage
}

// BatchTarget is the progress floor implied by processed of total pages.
func BatchTarget(processed, total int) float64 {
	if total <= 0 || processed <= 0 {
		return 0
	}
	ratio := float64(processed) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	return min(90, 10+ratio*80)
}

// Ticks runs the progress and stage tickers of one job. The zero value is
// stopped.
type Ticks struct {
	progress *clock.Periodic
	stage    *clock.Periodic
}

// StartTicks starts both tickers. onProgress and onStage run on ticker
// goroutines.
func StartTicks(c clock.Clock, progressEvery, stageEvery time.Duration, onProgress, onStage func()) *Ticks {
	return &Ticks{
		progress: clock.StartPeriodic(c, progressEvery, func(time.Time) { onProgress() }),
		stage:    clock.StartPeriodic(c, stageEvery, func(time.Time) { onStage() }),
	}
}

// Stop halts both tickers and waits for in-flight callbacks. Safe to call
// more than once and on nil.
func (t *Ticks) Stop() {
	if t == nil {
		return
	}
	t.progress.Stop()
	t.stage.Stop()
}
