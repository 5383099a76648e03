package sequencer

import (
	"sync"

	"klangroom/audio"
	"klangroom/debug"
)

// Recorder captures pad hits into a loop-length track, either snapped to
// the step grid or in raw seconds. Quantized and free events are kept in
// separate lists; switching modes never converts between them.
type Recorder struct {
	clock    audio.Clock
	settings *Settings

	mu       sync.Mutex
	mode     Mode
	armed    bool
	origin   float64
	steps    []StepEvent
	free     []FreeEvent
	onChange func()
	onDisarm func()
}

// NewRecorder creates an idle recorder in quantized mode. A nil clock makes
// it inert.
func NewRecorder(clock audio.Clock, settings *Settings) *Recorder {
	return &Recorder{clock: clock, settings: settings}
}

// SetOnChange sets a callback invoked after events or arm state change.
func (r *Recorder) SetOnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// SetOnDisarm sets a callback invoked when recording disarms itself
// because a hit arrived past the end of the loop.
func (r *Recorder) SetOnDisarm(fn func()) {
	r.mu.Lock()
	r.onDisarm = fn
	r.mu.Unlock()
}

// Arm starts recording at the current clock time and clears the events of
// the current mode. It returns false when there is no clock.
func (r *Recorder) Arm() bool {
	if r.clock == nil {
		return false
	}
	r.mu.Lock()
	r.armed = true
	r.origin = r.clock.Now()
	if r.mode == Free {
		r.free = nil
	} else {
		r.steps = nil
	}
	debug.Log("rec", "armed (%s) at %.3f", r.mode, r.origin)
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// Disarm stops recording and keeps the captured events.
func (r *Recorder) Disarm() {
	r.mu.Lock()
	changed := r.armed
	r.armed = false
	r.origin = 0
	fn := r.onChange
	r.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
}

// IsArmed reports whether hits are being captured.
func (r *Recorder) IsArmed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// Origin returns the clock time recording was armed at.
func (r *Recorder) Origin() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.origin, r.armed
}

// Record captures a hit on pad that sounds for observed seconds. It
// returns whether the hit was stored. A hit at or past the end of the loop
// is dropped and disarms recording.
func (r *Recorder) Record(pad int, observed float64) bool {
	if r.clock == nil {
		return false
	}
	r.mu.Lock()
	if !r.armed {
		r.mu.Unlock()
		return false
	}

	now := r.clock.Now()
	elapsed := max(now-r.origin, 0)
	if elapsed >= r.settings.TrackDuration() {
		return r.overrun(elapsed)
	}

	switch r.mode {
	case Free:
		r.free = append(r.free, FreeEvent{Pad: pad, Start: elapsed, Duration: observed, CapturedAt: now})
		debug.Log("rec", "pad %d free @%.3f len %.3f", pad, elapsed, observed)
	default:
		g := r.settings.Grid()
		total := r.settings.TotalSteps()
		start := g.Steps(elapsed)
		if start == total {
			// still inside the loop, rounded onto its end
			start = total - 1
		}
		if start >= total {
			// unreachable while elapsed < TrackDuration, since the clamp
			// above catches the only rounding that lands on total
			return r.overrun(elapsed)
		}
		length := max(g.Steps(observed), 1)
		length = min(length, total-start)
		r.steps = append(r.steps, StepEvent{Pad: pad, Start: start, Duration: length})
		debug.Log("rec", "pad %d step %d len %d (elapsed %.3f)", pad, start, length, elapsed)
	}
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// overrun disarms after a hit past the loop end. r.mu must be held; it is
// released before callbacks run.
func (r *Recorder) overrun(elapsed float64) bool {
	r.armed = false
	r.origin = 0
	debug.Log("rec", "hit at %.3f past loop end, disarmed", elapsed)
	changed, disarmed := r.onChange, r.onDisarm
	r.mu.Unlock()

	if disarmed != nil {
		disarmed()
	}
	if changed != nil {
		changed()
	}
	return false
}

// Clear drops all events of both modes and disarms.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.steps = nil
	r.free = nil
	r.armed = false
	r.origin = 0
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Mode returns the capture mode.
func (r *Recorder) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// SetMode switches the capture mode. Switching while armed abandons the
// recording in progress: it disarms and clears the list being recorded.
func (r *Recorder) SetMode(m Mode) {
	r.mu.Lock()
	if m == r.mode {
		r.mu.Unlock()
		return
	}
	if r.armed {
		if r.mode == Free {
			r.free = nil
		} else {
			r.steps = nil
		}
		r.armed = false
		r.origin = 0
		debug.Log("rec", "mode switched while armed, recording discarded")
	}
	r.mode = m
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Steps returns a copy of the quantized events.
func (r *Recorder) Steps() []StepEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StepEvent(nil), r.steps...)
}

// Free returns a copy of the free-timing events.
func (r *Recorder) Free() []FreeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FreeEvent(nil), r.free...)
}

// Track returns a snapshot of the recorded loop in the current mode.
func (r *Recorder) Track() Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Track{
		Mode:  r.mode,
		Steps: append([]StepEvent(nil), r.steps...),
		Free:  append([]FreeEvent(nil), r.free...),
	}
}

// TrackDuration returns the loop length in seconds.
func (r *Recorder) TrackDuration() float64 {
	return r.settings.TrackDuration()
}
