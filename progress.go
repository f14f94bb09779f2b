package toolkit

import "time"

// ProgressTicker drives the cosmetic percentage shown while a backend call is
// in flight. Ticks are for UI responsiveness only and never gate the real
// operation: the queue stops the ticker the moment the backend resolves.
type ProgressTicker interface {
	// Run emits coarse percentages via emit until done is closed. Emitted
	// values must stay below 100; the queue sets 100 on completion itself.
	Run(done <-chan struct{}, emit func(percent int))
}

// IntervalTicker emits synthetic progress at a fixed cadence, stepping from
// zero up to a ceiling just short of completion.
type IntervalTicker struct {
	// Interval is the tick cadence. Zero means 100ms.
	Interval time.Duration
	// Step is the percentage increment per tick. Zero means 10.
	Step int
}

// Run implements ProgressTicker.
func (t IntervalTicker) Run(done <-chan struct{}, emit func(percent int)) {
	interval := t.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	step := t.Step
	if step <= 0 {
		step = 10
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	p := 0
	emit(p)
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			if p+step < 100 {
				p += step
				emit(p)
			}
		}
	}
}

// NopTicker emits nothing. Use it in tests or when only terminal transitions matter.
type NopTicker struct{}

// Run implements ProgressTicker.
func (NopTicker) Run(done <-chan struct{}, emit func(percent int)) { <-done }
