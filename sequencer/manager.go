package sequencer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"klangroom/audio"
	"klangroom/debug"
	"klangroom/midi"
	"klangroom/sample"
)

// Options configures a Manager.
type Options struct {
	Clock      audio.Clock // nil runs without sound
	Waker      audio.Waker // defaults to audio.SystemWaker
	Samples    *sample.Store
	SampleRate int
	Kit        string
	Gate       bool      // pad-up and note-off stop the pad's sample
	Closer     io.Closer // released exactly once by Close, usually the audio device
}

// Manager is one instrument session: the sample store, pad table, live
// playback, recording and loop playback, plus MIDI input and LED feedback.
type Manager struct {
	Samples   *sample.Store
	Pads      *PadTable
	Settings  *Settings
	Engine    *Engine
	Recorder  *Recorder
	Player    *Player
	Metronome *Metronome

	clock     audio.Clock
	closer    io.Closer
	closeOnce sync.Once
	closeErr  error

	mu         sync.Mutex
	kit        DrumKit
	gate       bool
	controller midi.Controller
	ledDirty   bool
	prevLEDs   map[int][3]uint8
	stopChan   chan struct{}

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// LED refresh rate
const ledFPS = 30

// Pad LED colors, also used by the terminal pad grid
var (
	LEDEmpty    = [3]uint8{0, 0, 0}
	LEDAssigned = [3]uint8{40, 60, 120}
	LEDPlaying  = [3]uint8{0, 255, 0}
	LEDArmed    = [3]uint8{255, 0, 0}
)

// NewManager creates a session and wires component callbacks to
// UpdateChan.
func NewManager(opts Options) *Manager {
	if opts.Waker == nil {
		opts.Waker = audio.SystemWaker{}
	}
	if opts.Samples == nil {
		opts.Samples = sample.NewStore(opts.SampleRate)
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = opts.Samples.SampleRate()
	}

	settings := NewSettings()
	pads := NewPadTable()
	engine := NewEngine(opts.Clock, opts.Samples, pads)

	m := &Manager{
		Samples:    opts.Samples,
		Pads:       pads,
		Settings:   settings,
		Engine:     engine,
		Recorder:   NewRecorder(opts.Clock, settings),
		Player:     NewPlayer(opts.Clock, opts.Waker, engine, settings),
		Metronome:  NewMetronome(opts.Clock, opts.Waker, settings, opts.SampleRate),
		clock:      opts.Clock,
		closer:     opts.Closer,
		kit:        GetKit(opts.Kit),
		gate:       opts.Gate,
		prevLEDs:   make(map[int][3]uint8),
		stopChan:   make(chan struct{}),
		UpdateChan: make(chan struct{}, 1),
	}

	settings.SetOnChange(m.notifyUpdate)
	pads.SetOnChange(func(int) { m.notifyUpdate() })
	engine.SetOnPadChange(func(int, bool) { m.notifyUpdate() })
	m.Recorder.SetOnChange(m.notifyUpdate)
	m.Recorder.SetOnDisarm(func() { debug.Log("manager", "recording stopped at loop end") })
	m.Player.SetOnChange(m.notifyUpdate)
	m.Player.SetOnPosition(func(float64) { m.notifyUpdate() })
	return m
}

// StartRuntime starts the LED loop (called once at startup)
func (m *Manager) StartRuntime() {
	go m.ledLoop()
}

// TriggerPad plays pad now and, if recording, captures the hit with the
// chop's length. It returns nil for an empty pad.
func (m *Manager) TriggerPad(pad int) *Playback {
	chop, ok := m.Engine.Chop(pad)
	if !ok {
		return nil
	}
	m.Recorder.Record(pad, chop.Length)
	return m.Engine.PlayPad(pad, chop.SampleID, PlayOptions{Offset: chop.Offset, Duration: chop.Length})
}

// ReleasePad stops the sample assigned to pad, on every pad that shares it.
func (m *Manager) ReleasePad(pad int) {
	if a, ok := m.Pads.Get(pad); ok {
		m.Engine.Stop(a.SampleID)
	}
}

// LoadSample decodes a file into the store.
func (m *Manager) LoadSample(path string) (*sample.Sample, error) {
	smp, err := m.Samples.Load(path)
	if err != nil {
		return nil, err
	}
	m.notifyUpdate()
	return smp, nil
}

// AssignChop binds pad to a region of a loaded sample. Duration 0 plays to
// the end of the sample.
func (m *Manager) AssignChop(pad int, sampleID string, start, duration float64) error {
	smp, ok := m.Samples.Get(sampleID)
	if !ok {
		return fmt.Errorf("assign pad %d: %w", pad, ErrUnknownSample)
	}
	if start < 0 || start >= smp.Duration() {
		return fmt.Errorf("chop start %.3fs outside %.3fs sample: %w", start, smp.Duration(), ErrInvalidSetting)
	}
	if start+duration > smp.Duration() {
		duration = smp.Duration() - start
	}
	return m.Pads.Assign(pad, PadAssignment{SampleID: sampleID, Start: start, Duration: duration})
}

// ToggleRecording arms or disarms recording and returns whether it is armed.
func (m *Manager) ToggleRecording() bool {
	if m.Recorder.IsArmed() {
		m.Recorder.Disarm()
		return false
	}
	return m.Recorder.Arm()
}

// TogglePlayback plays the recorded track or stops it, and returns whether
// it is playing.
func (m *Manager) TogglePlayback() bool {
	if m.Player.IsPlaying() {
		m.Player.Stop()
		return false
	}
	m.Player.Play(m.Recorder.Track())
	return m.Player.IsPlaying()
}

// PlayFrom plays the recorded track starting from seconds into the loop.
// It returns whether playback started.
func (m *Manager) PlayFrom(seconds float64) bool {
	m.Player.PlayFrom(m.Recorder.Track(), seconds)
	return m.Player.IsPlaying()
}

// TogglePreview auditions a region of a loaded sample outside the pads, or
// stops it when the sample is already sounding. It returns whether the
// sample is now playing.
func (m *Manager) TogglePreview(sampleID string, start, duration float64) bool {
	if m.Engine.IsPlaying(sampleID) {
		m.Engine.Stop(sampleID)
		m.notifyUpdate()
		return false
	}
	pb := m.Engine.Play(sampleID, PlayOptions{
		Offset:   start,
		Duration: duration,
		OnEnded:  m.notifyUpdate,
	})
	m.notifyUpdate()
	return pb != nil
}

// Elapsed returns how long the most recent instance of sampleID has been
// playing.
func (m *Manager) Elapsed(sampleID string) (float64, bool) {
	started, ok := m.Engine.PlaybackStartTime(sampleID)
	if !ok || m.clock == nil {
		return 0, false
	}
	return max(m.clock.Now()-started, 0), true
}

// ToggleLoop flips loop playback.
func (m *Manager) ToggleLoop() bool {
	return m.Player.ToggleLoop()
}

// ToggleMetronome starts or stops the click.
func (m *Manager) ToggleMetronome() bool {
	on := m.Metronome.Toggle()
	m.notifyUpdate()
	return on
}

// ToggleMode switches between quantized and free recording.
func (m *Manager) ToggleMode() Mode {
	next := Free
	if m.Recorder.Mode() == Free {
		next = Quantized
	}
	m.Recorder.SetMode(next)
	return next
}

// ClearTrack stops loop playback and drops all recorded events.
func (m *Manager) ClearTrack() {
	m.Player.Stop()
	m.Recorder.Clear()
}

// StopAll silences loop playback and every live pad.
func (m *Manager) StopAll() {
	m.Player.Stop()
	m.Engine.StopAll()
}

// SetTempo sets the bpm.
func (m *Manager) SetTempo(bpm float64) error {
	return m.Settings.SetBPM(bpm)
}

// SetBars sets the loop length in bars.
func (m *Manager) SetBars(bars int) error {
	return m.Settings.SetBars(bars)
}

// SetQuantization sets the step grid resolution.
func (m *Manager) SetQuantization(q int) error {
	return m.Settings.SetQuantization(q)
}

// SetMode selects the recording mode. Switching while armed discards the
// recording in progress.
func (m *Manager) SetMode(mode Mode) {
	m.Recorder.SetMode(mode)
}

// Kit returns the current keyboard note mapping.
func (m *Manager) Kit() DrumKit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kit
}

// SetKit selects the note mapping for MIDI keyboards.
func (m *Manager) SetKit(name string) {
	m.mu.Lock()
	m.kit = GetKit(name)
	m.mu.Unlock()
}

// SetGate selects whether releasing a pad or key stops its sample. Pads
// are one-shot when gate is off.
func (m *Manager) SetGate(on bool) {
	m.mu.Lock()
	m.gate = on
	m.mu.Unlock()
}

func (m *Manager) gated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gate
}

// HandleNote handles a note from a MIDI keyboard.
func (m *Manager) HandleNote(ev midi.NoteEvent) {
	m.mu.Lock()
	pad, ok := m.kit.PadForNote(ev.Note)
	m.mu.Unlock()
	if !ok {
		return
	}
	if ev.On {
		m.TriggerPad(pad)
	} else if m.gated() {
		m.ReleasePad(pad)
	}
}

// HandlePad handles a pad or transport button from a grid controller.
func (m *Manager) HandlePad(ev midi.PadEvent) {
	if ev.Pad >= 0 {
		if ev.Down {
			m.TriggerPad(ev.Pad)
		} else if m.gated() {
			m.ReleasePad(ev.Pad)
		}
		return
	}

	switch ev.Button {
	case midi.ButtonPlay:
		m.TogglePlayback()
	case midi.ButtonStop:
		m.StopAll()
	case midi.ButtonRecord:
		m.ToggleRecording()
	case midi.ButtonLoop:
		m.ToggleLoop()
	case midi.ButtonMode:
		m.ToggleMode()
	case midi.ButtonMetronome:
		m.ToggleMetronome()
	case midi.ButtonClear:
		m.ClearTrack()
	}
}

// SetController attaches a controller: its pads and notes drive the
// session and, for grid controllers, pad LEDs mirror the pad state. Input
// stops when the controller's channels close.
func (m *Manager) SetController(c midi.Controller) {
	if c == nil {
		return
	}
	go func() {
		for ev := range c.PadEvents() {
			m.HandlePad(ev)
		}
	}()
	go func() {
		for ev := range c.NoteEvents() {
			m.HandleNote(ev)
		}
	}()

	if c.Type() != midi.ControllerLaunchpad {
		return
	}
	m.mu.Lock()
	m.controller = c
	m.prevLEDs = make(map[int][3]uint8) // reset, diff handles clearing
	m.ledDirty = true
	m.mu.Unlock()
	debug.Log("manager", "LED feedback on %s", c.ID())
}

// RemoveController detaches LED feedback from the controller with id.
func (m *Manager) RemoveController(id string) {
	m.mu.Lock()
	if m.controller != nil && m.controller.ID() == id {
		m.controller = nil
	}
	m.mu.Unlock()
}

// PadColors returns the LED color of every pad.
func (m *Manager) PadColors() [NumPads][3]uint8 {
	active := m.Engine.ActivePads()
	armed := m.Recorder.IsArmed()
	var out [NumPads][3]uint8
	for pad := range out {
		_, assigned := m.Pads.Get(pad)
		switch {
		case active[pad] && armed:
			out[pad] = LEDArmed
		case active[pad]:
			out[pad] = LEDPlaying
		case assigned:
			out[pad] = LEDAssigned
		default:
			out[pad] = LEDEmpty
		}
	}
	return out
}

// ledLoop runs at fixed FPS and flushes LED updates
func (m *Manager) ledLoop() {
	ticker := time.NewTicker(time.Second / ledFPS)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.mu.Lock()
			dirty := m.ledDirty
			m.ledDirty = false
			m.mu.Unlock()

			if dirty {
				m.flushLEDs()
			}
		}
	}
}

// flushLEDs sends only changed pad colors to the controller
func (m *Manager) flushLEDs() {
	colors := m.PadColors()

	m.mu.Lock()
	c := m.controller
	var updates []midi.LEDUpdate
	for pad, color := range colors {
		if prev, ok := m.prevLEDs[pad]; !ok || prev != color {
			updates = append(updates, midi.LEDUpdate{Pad: pad, Color: color})
			m.prevLEDs[pad] = color
		}
	}
	m.mu.Unlock()

	if c == nil || len(updates) == 0 {
		return
	}
	if err := c.SetLEDBatch(updates); err != nil {
		debug.Log("manager", "LED flush: %v", err)
	}
}

// notifyUpdate marks LEDs dirty and notifies the TUI
func (m *Manager) notifyUpdate() {
	m.mu.Lock()
	m.ledDirty = true
	m.mu.Unlock()

	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}

// Close stops everything and releases the audio output. Only the first
// call has an effect.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.Metronome.Stop()
		m.Player.Stop()
		m.Engine.StopAll()
		m.Recorder.Disarm()
		if m.closer != nil {
			m.closeErr = m.closer.Close()
		}
		debug.Log("manager", "session closed")
	})
	return m.closeErr
}
