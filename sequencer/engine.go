package sequencer

import (
	"sync"

	"klangroom/audio"
	"klangroom/debug"
	"klangroom/sample"
)

// SampleSource resolves sample ids to decoded samples.
type SampleSource interface {
	Get(id string) (*sample.Sample, bool)
}

// PlayOptions selects the region to play. Offset 0 starts at the beginning,
// Duration 0 plays to the end of the sample.
type PlayOptions struct {
	Offset   float64
	Duration float64
	OnEnded  func()
}

// Playback is one sounding instance of a sample.
type Playback struct {
	SampleID  string
	Pad       int // -1 when not triggered from a pad
	StartedAt float64

	voice   audio.Voice
	onEnded func()
	done    chan struct{}
}

// Done is closed when the instance ends or is stopped.
func (p *Playback) Done() <-chan struct{} { return p.done }

// Chop is a pad resolved to a playable region.
type Chop struct {
	SampleID string
	Offset   float64
	Length   float64
}

// Engine starts and stops sample playback and tracks which samples and pads
// are sounding.
type Engine struct {
	clock   audio.Clock
	samples SampleSource
	pads    PadSource

	mu          sync.Mutex
	active      map[string][]*Playback
	padCount    [NumPads]int
	onPadChange func(pad int, playing bool)
}

// NewEngine creates an engine. A nil clock makes every operation a no-op.
func NewEngine(clock audio.Clock, samples SampleSource, pads PadSource) *Engine {
	return &Engine{
		clock:   clock,
		samples: samples,
		pads:    pads,
		active:  make(map[string][]*Playback),
	}
}

// SetOnPadChange sets a callback for pad playing-state changes. It is
// called without engine locks held.
func (e *Engine) SetOnPadChange(fn func(pad int, playing bool)) {
	e.mu.Lock()
	e.onPadChange = fn
	e.mu.Unlock()
}

// Play starts sampleID now. It returns nil if the sample or clock is missing.
func (e *Engine) Play(sampleID string, opts PlayOptions) *Playback {
	return e.play(-1, sampleID, opts)
}

// PlayPad is Play with the instance attributed to pad.
func (e *Engine) PlayPad(pad int, sampleID string, opts PlayOptions) *Playback {
	if pad < 0 || pad >= NumPads {
		pad = -1
	}
	return e.play(pad, sampleID, opts)
}

func (e *Engine) play(pad int, sampleID string, opts PlayOptions) *Playback {
	if e.clock == nil {
		return nil
	}
	smp, ok := e.samples.Get(sampleID)
	if !ok {
		debug.Log("engine", "play %s: unknown sample", sampleID)
		return nil
	}

	v := e.clock.NewVoice(smp.Buffer)
	pb := &Playback{
		SampleID: sampleID,
		Pad:      pad,
		voice:    v,
		onEnded:  opts.OnEnded,
		done:     make(chan struct{}),
	}
	v.OnEnded(func() { e.finish(pb) })

	e.mu.Lock()
	pb.StartedAt = e.clock.Now()
	e.active[sampleID] = append(e.active[sampleID], pb)
	first := false
	if pad >= 0 {
		e.padCount[pad]++
		first = e.padCount[pad] == 1
	}
	notify := e.onPadChange
	e.mu.Unlock()

	v.StartAt(pb.StartedAt, opts.Offset, opts.Duration)
	debug.Log("engine", "play %s pad=%d at %.3f (+%.3f, %.3f)", smp.Name, pad, pb.StartedAt, opts.Offset, opts.Duration)

	if first && notify != nil {
		notify(pad, true)
	}
	return pb
}

// finish handles a natural end.
func (e *Engine) finish(pb *Playback) {
	e.mu.Lock()
	list := e.active[pb.SampleID]
	found := false
	for i, o := range list {
		if o == pb {
			list = append(list[:i], list[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		// already stopped
		e.mu.Unlock()
		return
	}
	if len(list) == 0 {
		delete(e.active, pb.SampleID)
	} else {
		e.active[pb.SampleID] = list
	}
	cleared := e.releasePad(pb.Pad)
	notify := e.onPadChange
	e.mu.Unlock()

	safely(pb.voice.Release)
	close(pb.done)
	if cleared && notify != nil {
		notify(pb.Pad, false)
	}
	if pb.onEnded != nil {
		pb.onEnded()
	}
}

// releasePad drops one instance from pad and reports whether it went idle.
// e.mu must be held.
func (e *Engine) releasePad(pad int) bool {
	if pad < 0 || e.padCount[pad] == 0 {
		return false
	}
	e.padCount[pad]--
	return e.padCount[pad] == 0
}

// Stop halts every instance of sampleID and clears the playing flag of all
// pads assigned to it. Stopping an idle sample does nothing.
func (e *Engine) Stop(sampleID string) {
	e.mu.Lock()
	list := e.active[sampleID]
	delete(e.active, sampleID)

	var cleared []int
	for _, pb := range list {
		if e.releasePad(pb.Pad) {
			cleared = append(cleared, pb.Pad)
		}
	}
	for _, pad := range e.pads.PadsFor(sampleID) {
		if e.padCount[pad] > 0 {
			e.padCount[pad] = 0
			cleared = append(cleared, pad)
		}
	}
	notify := e.onPadChange
	e.mu.Unlock()

	for _, pb := range list {
		safely(pb.voice.Stop)
		safely(pb.voice.Release)
		close(pb.done)
	}
	if len(list) > 0 {
		debug.Log("engine", "stop %s (%d instance(s))", sampleID, len(list))
	}
	if notify != nil {
		for _, pad := range cleared {
			notify(pad, false)
		}
	}
}

// StopAll stops every sounding sample.
func (e *Engine) StopAll() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.Stop(id)
	}
}

// IsPlaying reports whether any instance of sampleID is sounding.
func (e *Engine) IsPlaying(sampleID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active[sampleID]) > 0
}

// PlaybackStartTime returns the start time of the most recent instance of
// sampleID.
func (e *Engine) PlaybackStartTime(sampleID string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.active[sampleID]
	if len(list) == 0 {
		return 0, false
	}
	latest := list[0].StartedAt
	for _, pb := range list[1:] {
		if pb.StartedAt >= latest {
			latest = pb.StartedAt
		}
	}
	return latest, true
}

// IsPadPlaying reports whether pad has a sounding instance.
func (e *Engine) IsPadPlaying(pad int) bool {
	if pad < 0 || pad >= NumPads {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.padCount[pad] > 0
}

// ActivePads returns the playing flag of every pad.
func (e *Engine) ActivePads() [NumPads]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out [NumPads]bool
	for i, n := range e.padCount {
		out[i] = n > 0
	}
	return out
}

// Chop resolves pad to the region it plays. It fails when the pad is empty
// or its sample is gone.
func (e *Engine) Chop(pad int) (Chop, bool) {
	a, ok := e.pads.Get(pad)
	if !ok {
		return Chop{}, false
	}
	smp, ok := e.samples.Get(a.SampleID)
	if !ok {
		return Chop{}, false
	}
	length := smp.Duration() - a.Start
	if a.Duration > 0 && a.Duration < length {
		length = a.Duration
	}
	if length <= 0 {
		return Chop{}, false
	}
	return Chop{SampleID: a.SampleID, Offset: a.Start, Length: length}, true
}

// Schedule starts sampleID at clock time when without tracking it as an
// active instance. The caller owns the returned voice; onEnded may be nil.
// It returns nil if the sample or clock is missing.
func (e *Engine) Schedule(sampleID string, when, offset, duration float64, onEnded func()) audio.Voice {
	if e.clock == nil {
		return nil
	}
	smp, ok := e.samples.Get(sampleID)
	if !ok {
		return nil
	}
	v := e.clock.NewVoice(smp.Buffer)
	if onEnded != nil {
		v.OnEnded(onEnded)
	}
	v.StartAt(when, offset, duration)
	return v
}

// safely runs a best-effort voice operation, swallowing panics from
// implementations that reject stopping a finished voice.
func safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			debug.Log("engine", "voice cleanup panicked: %v", r)
		}
	}()
	fn()
}
