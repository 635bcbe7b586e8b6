// Package animation runs time based interpolations that are advanced by an
// external frame loop.
package animation

import (
	"sync"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Easing curves accepted by Spec.
var (
	Linear     ease.TweenFunc = ease.Linear
	ElasticOut ease.TweenFunc = ease.OutElastic
)

// Spec describes one tween. From and To must have equal length.
type Spec struct {
	From     []float64
	To       []float64
	Duration time.Duration
	Delay    time.Duration
	Easing   ease.TweenFunc // nil means Linear

	// OnUpdate receives the interpolated values. The slice is reused between
	// frames and must not be retained.
	OnUpdate   func(values []float64)
	OnComplete func()
}

// Handle addresses a started tween.
type Handle struct {
	mu        sync.Mutex
	cancelled bool
	done      bool
}

// Cancel stops the tween. No callback runs after Cancel returns, provided
// Cancel is called from the goroutine that ticks the scheduler.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
}

// Cancelled reports whether Cancel was called.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Done reports whether the tween ran to completion.
func (h *Handle) Done() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

func (h *Handle) finish() {
	h.mu.Lock()
	h.done = true
	h.mu.Unlock()
}

type tween struct {
	spec     Spec
	handle   *Handle
	progress *gween.Tween
	elapsed  time.Duration
	values   []float64
}

// Scheduler owns the set of running tweens.
type Scheduler struct {
	mu      sync.Mutex
	active  []*tween
	pending []*tween
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Start registers a tween. It begins moving on the next Tick.
func (s *Scheduler) Start(spec Spec) *Handle {
	if spec.Easing == nil {
		spec.Easing = Linear
	}

	n := len(spec.From)
	if len(spec.To) < n {
		n = len(spec.To)
	}

	t := &tween{
		spec:   spec,
		handle: &Handle{},
		values: make([]float64, n),
	}

	// gween only yields the eased progress; values are mixed in float64
	// so the final frame lands exactly on To.
	secs := float32(spec.Duration.Seconds())
	if secs > 0 {
		t.progress = gween.New(0, 1, secs, spec.Easing)
	}

	s.mu.Lock()
	s.pending = append(s.pending, t)
	s.mu.Unlock()

	return t.handle
}

// Tick advances every tween by dt and fires their callbacks.
func (s *Scheduler) Tick(dt time.Duration) {
	s.mu.Lock()
	s.active = append(s.active, s.pending...)
	s.pending = nil
	running := make([]*tween, len(s.active))
	copy(running, s.active)
	s.mu.Unlock()

	finished := make(map[*tween]struct{})

	for _, t := range running {
		if t.handle.Cancelled() {
			finished[t] = struct{}{}
			continue
		}

		t.elapsed += dt
		if t.elapsed < t.spec.Delay {
			continue
		}

		p, complete := t.advance()
		for i := range t.values {
			t.values[i] = t.spec.From[i] + (t.spec.To[i]-t.spec.From[i])*p
		}
		if complete {
			copy(t.values, t.spec.To)
		}

		if t.spec.OnUpdate != nil {
			t.spec.OnUpdate(t.values)
		}

		if !complete {
			continue
		}

		finished[t] = struct{}{}
		if t.handle.Cancelled() {
			continue
		}
		t.handle.finish()
		if t.spec.OnComplete != nil {
			t.spec.OnComplete()
		}
	}

	if len(finished) == 0 {
		return
	}

	s.mu.Lock()
	kept := s.active[:0]
	for _, t := range s.active {
		if _, ok := finished[t]; !ok {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(s.active); i++ {
		s.active[i] = nil
	}
	s.active = kept
	s.mu.Unlock()
}

// advance returns eased progress in [0..1] and whether the tween is complete.
func (t *tween) advance() (float64, bool) {
	if t.progress == nil {
		return 1, true
	}

	p, complete := t.progress.Set(float32((t.elapsed - t.spec.Delay).Seconds()))
	if complete {
		return 1, true
	}
	return float64(p), false
}

// Len returns the number of registered tweens, including ones not yet ticked.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active) + len(s.pending)
}

// Clear cancels and drops every tween.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.active {
		t.handle.Cancel()
	}
	for _, t := range s.pending {
		t.handle.Cancel()
	}
	s.active = nil
	s.pending = nil
}
