// Package audiotest provides a manually advanced audio clock for tests.
package audiotest

import (
	"sync"
	"time"

	"klangroom/audio"
)

// Start records one Voice.StartAt call.
type Start struct {
	Voice    *Voice
	When     float64
	Offset   float64
	Duration float64
}

// Clock implements audio.Clock and audio.Waker. Time only moves on Advance.
type Clock struct {
	mu     sync.Mutex
	now    float64
	seq    int
	timers []*timer
	voices []*Voice
	starts []Start
}

var (
	_ audio.Clock = (*Clock)(nil)
	_ audio.Waker = (*Clock)(nil)
)

// New returns a clock at time zero.
func New() *Clock { return &Clock{} }

// Now returns the current time in seconds.
func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewVoice returns a recording voice.
func (c *Clock) NewVoice(buf *audio.Buffer) audio.Voice {
	v := &Voice{c: c, Buffer: buf}
	c.mu.Lock()
	c.voices = append(c.voices, v)
	c.mu.Unlock()
	return v
}

// AfterFunc registers fn to run once Advance passes now+d.
func (c *Clock) AfterFunc(d time.Duration, fn func()) audio.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{c: c, at: c.now + d.Seconds(), seq: c.seq, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Starts returns every StartAt call so far, in call order.
func (c *Clock) Starts() []Start {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Start(nil), c.starts...)
}

// Pending returns the number of armed timers.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Sounding returns voices that are started and neither stopped nor ended.
func (c *Clock) Sounding() []*Voice {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Voice
	for _, v := range c.voices {
		if v.started && !v.stopped && !v.ended {
			out = append(out, v)
		}
	}
	return out
}

// Advance moves time forward by d seconds, firing timers and natural voice
// ends in time order. Callbacks run without the clock lock held and may
// register new timers, which fire within the same Advance when due.
func (c *Clock) Advance(d float64) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	c.AdvanceTo(target)
}

// AdvanceTo moves time forward to t.
func (c *Clock) AdvanceTo(t float64) {
	for {
		fns, ok := c.next(t)
		if !ok {
			break
		}
		for _, fn := range fns {
			fn()
		}
	}
	c.mu.Lock()
	if t > c.now {
		c.now = t
	}
	c.mu.Unlock()
}

// next pops the earliest event due at or before t. Voice ends win ties
// with timers, like an audio thread finishing a block before timers run.
func (c *Clock) next(t float64) ([]func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var bestVoice *Voice
	for _, v := range c.voices {
		if !v.started || v.stopped || v.ended {
			continue
		}
		if end := v.endTime(); end <= t && (bestVoice == nil || end < bestVoice.endTime()) {
			bestVoice = v
		}
	}
	bestTimer := -1
	for i, tm := range c.timers {
		if tm.at > t {
			continue
		}
		if bestTimer < 0 || tm.at < c.timers[bestTimer].at ||
			(tm.at == c.timers[bestTimer].at && tm.seq < c.timers[bestTimer].seq) {
			bestTimer = i
		}
	}

	if bestVoice != nil && (bestTimer < 0 || bestVoice.endTime() <= c.timers[bestTimer].at) {
		if end := bestVoice.endTime(); end > c.now {
			c.now = end
		}
		bestVoice.ended = true
		return append([]func(){}, bestVoice.onEnded...), true
	}
	if bestTimer >= 0 {
		tm := c.timers[bestTimer]
		c.timers = append(c.timers[:bestTimer], c.timers[bestTimer+1:]...)
		if tm.at > c.now {
			c.now = tm.at
		}
		return []func(){tm.fn}, true
	}
	return nil, false
}

type timer struct {
	c   *Clock
	at  float64
	seq int
	fn  func()
}

func (t *timer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	for i, o := range t.c.timers {
		if o == t {
			t.c.timers = append(t.c.timers[:i], t.c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Voice is a fake voice that ends at When + Duration, or at the end of its
// buffer when Duration is zero.
type Voice struct {
	c      *Clock
	Buffer *audio.Buffer

	started  bool
	stopped  bool
	ended    bool
	released bool
	when     float64
	begin    float64
	offset   float64
	duration float64
	onEnded  []func()
}

func (v *Voice) StartAt(when, offset, duration float64) {
	v.c.mu.Lock()
	defer v.c.mu.Unlock()
	if v.started || v.stopped {
		return
	}
	v.started = true
	v.when, v.offset, v.duration = when, offset, duration
	v.begin = max(when, v.c.now) // a start in the past begins now
	v.c.starts = append(v.c.starts, Start{Voice: v, When: when, Offset: offset, Duration: duration})
}

func (v *Voice) Stop() {
	v.c.mu.Lock()
	v.stopped = true
	v.c.mu.Unlock()
}

func (v *Voice) OnEnded(fn func()) {
	v.c.mu.Lock()
	v.onEnded = append(v.onEnded, fn)
	v.c.mu.Unlock()
}

func (v *Voice) Release() {
	v.c.mu.Lock()
	v.stopped = true
	v.released = true
	v.onEnded = nil
	v.c.mu.Unlock()
}

// Stopped reports whether Stop or Release was called.
func (v *Voice) Stopped() bool {
	v.c.mu.Lock()
	defer v.c.mu.Unlock()
	return v.stopped
}

// Released reports whether Release was called.
func (v *Voice) Released() bool {
	v.c.mu.Lock()
	defer v.c.mu.Unlock()
	return v.released
}

// Ended reports whether the voice reached its natural end.
func (v *Voice) Ended() bool {
	v.c.mu.Lock()
	defer v.c.mu.Unlock()
	return v.ended
}

func (v *Voice) endTime() float64 {
	d := v.Buffer.Duration() - v.offset
	if v.duration > 0 && v.duration < d {
		d = v.duration
	}
	if d < 0 {
		d = 0
	}
	return v.begin + d
}
