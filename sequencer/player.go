package sequencer

import (
	"math"
	"sync"
	"time"

	"klangroom/audio"
	"klangroom/debug"
)

const (
	// Lookahead is how far ahead of the clock a loop iteration is handed to
	// the audio clock.
	Lookahead = 0.1
	// PollInterval is the position update rate.
	PollInterval = 50 * time.Millisecond

	// timerSlack absorbs wake-ups that land a hair early.
	timerSlack = 0.001
)

// Player replays a recorded track against the audio clock, looping it
// until stopped. Every event is handed to the clock with its exact start
// time; software timers only decide when to hand over the next iteration.
type Player struct {
	clock    audio.Clock
	waker    audio.Waker
	engine   *Engine
	settings *Settings

	mu         sync.Mutex
	playing    bool
	loop       bool
	gen        int // invalidates wake-ups from earlier runs
	track      Track
	loopStart  float64
	iteration  int
	position   float64
	voices     map[*scheduled]struct{}
	boundary   audio.Timer
	poll       audio.Timer
	onPosition func(pos float64)
	onChange   func()
	onStop     func()
}

type scheduled struct {
	voice audio.Voice
}

// NewPlayer creates a stopped player with looping enabled. A nil clock or
// waker makes Play a no-op.
func NewPlayer(clock audio.Clock, waker audio.Waker, engine *Engine, settings *Settings) *Player {
	return &Player{
		clock:    clock,
		waker:    waker,
		engine:   engine,
		settings: settings,
		loop:     true,
		voices:   make(map[*scheduled]struct{}),
	}
}

// SetOnPosition sets the position callback, called about every
// PollInterval while playing.
func (p *Player) SetOnPosition(fn func(pos float64)) {
	p.mu.Lock()
	p.onPosition = fn
	p.mu.Unlock()
}

// SetOnChange sets a callback for start, stop, loop wrap and loop toggle.
func (p *Player) SetOnChange(fn func()) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// SetOnStop sets a callback invoked when a playback run ends, whether
// stopped or run off the end of a non-looping track.
func (p *Player) SetOnStop(fn func()) {
	p.mu.Lock()
	p.onStop = fn
	p.mu.Unlock()
}

// Play starts track from its beginning. A running playback is stopped
// first. An empty track does nothing.
func (p *Player) Play(track Track) {
	p.PlayFrom(track, 0)
}

// PlayFrom plays the events at or after from seconds, with from moved to
// the start of the loop.
func (p *Player) PlayFrom(track Track, from float64) {
	if p.clock == nil || p.waker == nil {
		return
	}
	t := track.From(from, p.settings.Grid())
	if t.Len() == 0 {
		debug.Log("player", "nothing to play")
		return
	}
	p.Stop()

	p.mu.Lock()
	p.gen++
	gen := p.gen
	now := p.clock.Now()
	p.playing = true
	p.track = t
	p.loopStart = now
	p.iteration = 0
	p.position = 0
	n := p.scheduleLocked(now)
	p.armBoundaryLocked(gen, now)
	p.armPollLocked(gen)
	fn := p.onChange
	p.mu.Unlock()

	debug.Log("player", "play %s track, %d event(s) scheduled from %.3f", t.Mode, n, now)
	if fn != nil {
		fn()
	}
}

// scheduleLocked hands the events of the iteration starting at loopStart
// to the clock. Events whose start is more than Lookahead in the past are
// skipped. p.mu must be held.
func (p *Player) scheduleLocked(now float64) int {
	dur := p.settings.TrackDuration()
	n := 0
	for _, h := range p.track.hits(p.settings.Grid()) {
		if h.offset >= dur {
			// the loop got shorter since this was recorded
			continue
		}
		chop, ok := p.engine.Chop(h.pad)
		if !ok {
			continue
		}
		at := p.loopStart + h.offset
		if at <= now-Lookahead {
			continue
		}
		length := min(h.length, chop.Length)
		if length <= 0 {
			continue
		}

		ref := &scheduled{}
		v := p.engine.Schedule(chop.SampleID, at, chop.Offset, length, func() { p.forget(ref) })
		if v == nil {
			continue
		}
		// forget needs p.mu, so it cannot see ref before this assignment
		ref.voice = v
		p.voices[ref] = struct{}{}
		n++
	}
	return n
}

// forget drops a voice that ended naturally.
func (p *Player) forget(ref *scheduled) {
	p.mu.Lock()
	_, ok := p.voices[ref]
	delete(p.voices, ref)
	p.mu.Unlock()

	if ok {
		safely(ref.voice.Release)
	}
}

func (p *Player) armBoundaryLocked(gen int, now float64) {
	wake := p.loopStart + p.settings.TrackDuration()
	if p.loop {
		wake -= Lookahead
	}
	p.boundary = p.waker.AfterFunc(audio.Seconds(wake-now), func() { p.onBoundary(gen) })
}

func (p *Player) armPollLocked(gen int) {
	p.poll = p.waker.AfterFunc(PollInterval, func() { p.onPoll(gen) })
}

// onBoundary runs near the end of an iteration. It trusts the clock, not
// the timer: an early wake-up just re-arms.
func (p *Player) onBoundary(gen int) {
	p.mu.Lock()
	if !p.playing || gen != p.gen {
		p.mu.Unlock()
		return
	}
	now := p.clock.Now()
	dur := p.settings.TrackDuration()
	end := p.loopStart + dur

	if !p.loop {
		if now < end-timerSlack {
			p.armBoundaryLocked(gen, now)
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
		debug.Log("player", "reached loop end with looping off")
		p.stop(gen)
		return
	}

	if now < end-Lookahead-timerSlack {
		p.armBoundaryLocked(gen, now)
		p.mu.Unlock()
		return
	}

	next := end
	if now-next >= dur {
		// stalled for a whole loop, restart from now rather than replay
		// iterations that are already in the past
		debug.Log("player", "fell %.3fs behind, resyncing", now-next)
		next = now
	}
	p.loopStart = next
	p.iteration++
	n := p.scheduleLocked(now)
	p.armBoundaryLocked(gen, now)
	it := p.iteration
	fn := p.onChange
	p.mu.Unlock()

	debug.Log("player", "iteration %d at %.3f, %d event(s)", it, next, n)
	if fn != nil {
		fn()
	}
}

func (p *Player) onPoll(gen int) {
	p.mu.Lock()
	if !p.playing || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.position = p.positionLocked(p.clock.Now())
	pos := p.position
	p.armPollLocked(gen)
	fn := p.onPosition
	p.mu.Unlock()

	debug.LogEvery(100, "player", "position %.3f", pos)
	if fn != nil {
		fn(pos)
	}
}

// positionLocked wraps the time since loopStart into [0, duration). Right
// after an iteration is handed over early, now is still before loopStart.
func (p *Player) positionLocked(now float64) float64 {
	dur := p.settings.TrackDuration()
	if dur <= 0 {
		return 0
	}
	pos := math.Mod(now-p.loopStart, dur)
	if pos < 0 {
		pos += dur
	}
	if pos >= dur {
		// -tiny + dur rounds up to dur
		pos = 0
	}
	return pos
}

// Stop cancels playback and silences everything the player started. It is
// safe to call at any time.
func (p *Player) Stop() {
	p.stop(-1)
}

// stop stops the run gen, or any run when gen is negative.
func (p *Player) stop(gen int) {
	p.mu.Lock()
	if gen >= 0 && gen != p.gen {
		p.mu.Unlock()
		return
	}
	wasPlaying := p.playing
	p.playing = false
	p.gen++
	if p.boundary != nil {
		p.boundary.Stop()
		p.boundary = nil
	}
	if p.poll != nil {
		p.poll.Stop()
		p.poll = nil
	}
	voices := make([]audio.Voice, 0, len(p.voices))
	for ref := range p.voices {
		voices = append(voices, ref.voice)
	}
	clear(p.voices)
	p.position = 0
	p.iteration = 0
	fn, stopped := p.onChange, p.onStop
	p.mu.Unlock()

	for _, v := range voices {
		safely(v.Stop)
		safely(v.Release)
	}
	if wasPlaying {
		debug.Log("player", "stopped, %d voice(s) silenced", len(voices))
		if stopped != nil {
			stopped()
		}
		if fn != nil {
			fn()
		}
	}
}

// ToggleLoop flips looping and returns the new setting. It takes effect at
// the next boundary check.
func (p *Player) ToggleLoop() bool {
	p.mu.Lock()
	p.loop = !p.loop
	loop := p.loop
	fn := p.onChange
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
	return loop
}

// SetLoop sets looping.
func (p *Player) SetLoop(loop bool) {
	p.mu.Lock()
	p.loop = loop
	p.mu.Unlock()
}

// LoopEnabled reports whether playback loops.
func (p *Player) LoopEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop
}

// IsPlaying reports whether a track is playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Position returns the last polled position within the loop, in seconds.
// It is 0 when stopped.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Iteration returns how many times the loop has wrapped.
func (p *Player) Iteration() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.iteration
}

// Scheduled returns the number of voices handed to the clock that have not
// ended yet.
func (p *Player) Scheduled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.voices)
}

// TrackDuration returns the loop length in seconds.
func (p *Player) TrackDuration() float64 {
	return p.settings.TrackDuration()
}
