package audio

import (
	"encoding/binary"
	"math"
	"sync"

	"klangroom/debug"
)

type voiceState int

const (
	voiceIdle voiceState = iota
	voiceActive
	voiceStopped
	voiceEnded
)

// Mixer sums started voices into interleaved stereo float32 frames. Its
// clock is the number of frames rendered so far, so every voice lands on the
// exact frame it was scheduled for.
type Mixer struct {
	rate int

	mu      sync.Mutex
	frame   int64
	gain    float32
	voices  []*voice
	readBuf []float32 // Read is driven by a single consumer
}

// NewMixer creates a mixer rendering at sampleRate frames per second.
func NewMixer(sampleRate int) *Mixer {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &Mixer{rate: sampleRate, gain: 1}
}

// SampleRate returns the output rate.
func (m *Mixer) SampleRate() int { return m.rate }

// Now returns the clock time in seconds.
func (m *Mixer) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.frame) / float64(m.rate)
}

// NewVoice creates an idle voice for buf.
func (m *Mixer) NewVoice(buf *Buffer) Voice {
	return &voice{m: m, buf: buf}
}

// SetGain sets the master gain.
func (m *Mixer) SetGain(g float32) {
	m.mu.Lock()
	m.gain = g
	m.mu.Unlock()
}

// Active returns the number of scheduled or sounding voices.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Render mixes the next len(out)/Channels frames into out and advances the
// clock. Ended callbacks run after the mixer lock is released.
func (m *Mixer) Render(out []float32) {
	frames := len(out) / Channels
	clear(out)

	m.mu.Lock()
	var ended []func()
	live := m.voices[:0]
	for _, v := range m.voices {
		if v.mix(out, m.frame, frames) {
			live = append(live, v)
			continue
		}
		v.state = voiceEnded
		ended = append(ended, v.ended...)
	}
	for i := len(live); i < len(m.voices); i++ {
		m.voices[i] = nil
	}
	m.voices = live
	m.frame += int64(frames)
	gain := m.gain
	m.mu.Unlock()

	for i, s := range out[:frames*Channels] {
		s *= gain
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = s
	}

	if len(ended) > 0 {
		debug.LogEvery(50, "mixer", "%d voice(s) ended", len(ended))
	}
	for _, fn := range ended {
		fn()
	}
}

// Read renders float32 little-endian stereo frames, for oto.
func (m *Mixer) Read(p []byte) (int, error) {
	samples := len(p) / 4 / Channels * Channels
	if cap(m.readBuf) < samples {
		m.readBuf = make([]float32, samples)
	}
	buf := m.readBuf[:samples]
	m.Render(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return samples * 4, nil
}

type voice struct {
	m          *Mixer
	buf        *Buffer
	state      voiceState
	startFrame int64
	pos        float64 // source frame
	end        float64
	step       float64
	ended      []func()
}

func (v *voice) StartAt(when, offset, duration float64) {
	m := v.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if v.state != voiceIdle || v.buf == nil || v.buf.SampleRate <= 0 {
		return
	}
	src := float64(v.buf.SampleRate)
	v.startFrame = int64(math.Round(when * float64(m.rate)))
	v.step = src / float64(m.rate)
	v.pos = math.Max(offset, 0) * src
	v.end = float64(v.buf.Frames())
	if duration > 0 {
		v.end = math.Min(v.end, v.pos+duration*src)
	}
	v.state = voiceActive
	m.voices = append(m.voices, v)
}

func (v *voice) Stop() {
	m := v.m
	m.mu.Lock()
	defer m.mu.Unlock()

	switch v.state {
	case voiceActive:
		for i, o := range m.voices {
			if o == v {
				m.voices = append(m.voices[:i], m.voices[i+1:]...)
				break
			}
		}
		v.state = voiceStopped
	case voiceIdle:
		v.state = voiceStopped
	}
}

func (v *voice) OnEnded(fn func()) {
	v.m.mu.Lock()
	v.ended = append(v.ended, fn)
	v.m.mu.Unlock()
}

func (v *voice) Release() {
	v.Stop()
	v.m.mu.Lock()
	v.ended = nil
	v.buf = nil
	v.m.mu.Unlock()
}

// mix adds this voice into out, whose first frame is clock frame base.
// It reports whether the voice is still alive afterwards.
func (v *voice) mix(out []float32, base int64, frames int) bool {
	first := 0
	if v.startFrame > base {
		if v.startFrame-base >= int64(frames) {
			return true
		}
		first = int(v.startFrame - base)
	}

	data := v.buf.Data
	ch := v.buf.Channels
	n := v.buf.Frames()
	for i := first; i < frames; i++ {
		idx := int(v.pos)
		if v.pos >= v.end || idx >= n {
			return false
		}
		l := data[idx*ch]
		r := l
		if ch > 1 {
			r = data[idx*ch+1]
		}
		out[i*Channels] += l
		out[i*Channels+1] += r
		v.pos += v.step
	}
	return v.pos < v.end
}
