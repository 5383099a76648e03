package sequencer

import (
	"math"
	"sync"
	"time"

	"klangroom/audio"
	"klangroom/debug"
)

const (
	// MetronomeAhead is how far ahead clicks are handed to the clock.
	MetronomeAhead = 0.1
	// MetronomeInterval is how often the click queue is topped up.
	MetronomeInterval = 25 * time.Millisecond
)

// Metronome clicks on every beat, accenting the first beat of each bar. It
// follows tempo changes from the next beat on.
type Metronome struct {
	clock    audio.Clock
	waker    audio.Waker
	settings *Settings
	click    *audio.Buffer
	accent   *audio.Buffer

	mu      sync.Mutex
	running bool
	gen     int
	next    float64 // clock time of the next unscheduled beat
	beat    int
	timer   audio.Timer
	voices  map[audio.Voice]struct{}
}

// NewMetronome creates a stopped metronome rendering clicks at sampleRate.
func NewMetronome(clock audio.Clock, waker audio.Waker, settings *Settings, sampleRate int) *Metronome {
	return &Metronome{
		clock:    clock,
		waker:    waker,
		settings: settings,
		click:    Click(sampleRate, 1000),
		accent:   Click(sampleRate, 1500),
		voices:   make(map[audio.Voice]struct{}),
	}
}

// Start begins clicking on the next clock instant.
func (m *Metronome) Start() {
	if m.clock == nil || m.waker == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.gen++
	m.next = m.clock.Now()
	m.beat = 0
	m.fillLocked(m.gen)
	debug.Log("metro", "started at %.1f bpm", m.settings.BPM())
}

// Stop silences the metronome, including clicks already queued.
func (m *Metronome) Stop() {
	m.mu.Lock()
	m.running = false
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	voices := make([]audio.Voice, 0, len(m.voices))
	for v := range m.voices {
		voices = append(voices, v)
	}
	clear(m.voices)
	m.mu.Unlock()

	for _, v := range voices {
		safely(v.Stop)
		safely(v.Release)
	}
}

// Toggle starts or stops the metronome and returns whether it now runs.
func (m *Metronome) Toggle() bool {
	if m.Running() {
		m.Stop()
		return false
	}
	m.Start()
	return m.Running()
}

// Running reports whether the metronome is on.
func (m *Metronome) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Metronome) tick(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || gen != m.gen {
		return
	}
	m.fillLocked(gen)
}

// fillLocked schedules every beat inside the lookahead window and re-arms
// the wake-up. m.mu must be held.
func (m *Metronome) fillLocked(gen int) {
	now := m.clock.Now()
	if m.next < now-MetronomeAhead {
		// woke up late, skip the beats we missed
		m.next = now
	}
	for m.next < now+MetronomeAhead {
		buf := m.click
		if m.beat%BeatsPerBar == 0 {
			buf = m.accent
		}
		v := m.clock.NewVoice(buf)
		v.OnEnded(func() { m.forget(v) })
		m.voices[v] = struct{}{}
		v.StartAt(m.next, 0, 0)

		m.next += 60 / m.settings.BPM()
		m.beat++
	}
	m.timer = m.waker.AfterFunc(MetronomeInterval, func() { m.tick(gen) })
}

func (m *Metronome) forget(v audio.Voice) {
	m.mu.Lock()
	_, ok := m.voices[v]
	delete(m.voices, v)
	m.mu.Unlock()
	if ok {
		safely(v.Release)
	}
}

// Click renders a short decaying sine blip at freq Hz.
func Click(sampleRate int, freq float64) *audio.Buffer {
	const length = 0.03
	frames := int(float64(sampleRate) * length)
	data := make([]float32, frames)
	for i := range data {
		t := float64(i) / float64(sampleRate)
		env := math.Exp(-t * 150)
		data[i] = float32(0.6 * env * math.Sin(2*math.Pi*freq*t))
	}
	return &audio.Buffer{SampleRate: sampleRate, Channels: 1, Data: data}
}
