package audio

import (
	"math"
	"testing"
)

// ramp returns a mono buffer whose frame i has value (i+1)/100.
func ramp(rate, frames int) *Buffer {
	b := &Buffer{SampleRate: rate, Channels: 1, Data: make([]float32, frames)}
	for i := range b.Data {
		b.Data[i] = float32(i+1) / 100
	}
	return b
}

func TestBufferDuration(t *testing.T) {
	b := &Buffer{SampleRate: 4, Channels: 2, Data: make([]float32, 16)}
	if got := b.Frames(); got != 8 {
		t.Errorf("Frames() = %d, want 8", got)
	}
	if got := b.Duration(); got != 2 {
		t.Errorf("Duration() = %v, want 2", got)
	}
	var nilBuf *Buffer
	if got := nilBuf.Duration(); got != 0 {
		t.Errorf("nil Duration() = %v, want 0", got)
	}
}

func TestMixerStartsOnExactFrame(t *testing.T) {
	m := NewMixer(10)
	v := m.NewVoice(ramp(10, 5))
	v.StartAt(0.3, 0, 0)

	out := make([]float32, 10*Channels)
	m.Render(out)

	for i := 0; i < 10; i++ {
		want := float32(0)
		if i >= 3 && i < 8 {
			want = float32(i-2) / 100
		}
		if l, r := out[i*2], out[i*2+1]; l != want || r != want {
			t.Errorf("frame %d = (%v, %v), want %v", i, l, r, want)
		}
	}
	if got := m.Now(); got != 1 {
		t.Errorf("Now() = %v, want 1", got)
	}
}

func TestMixerOffsetAndDuration(t *testing.T) {
	m := NewMixer(10)
	v := m.NewVoice(ramp(10, 10))
	ended := 0
	v.OnEnded(func() { ended++ })
	v.StartAt(0, 0.2, 0.3)

	out := make([]float32, 6*Channels)
	m.Render(out)

	want := []float32{0.03, 0.04, 0.05, 0, 0, 0}
	for i, w := range want {
		if math.Abs(float64(out[i*2]-w)) > 1e-6 {
			t.Errorf("frame %d = %v, want %v", i, out[i*2], w)
		}
	}
	if ended != 1 {
		t.Errorf("ended fired %d times, want 1", ended)
	}
	if m.Active() != 0 {
		t.Errorf("Active() = %d after end, want 0", m.Active())
	}
}

func TestMixerStopSkipsEnded(t *testing.T) {
	m := NewMixer(10)
	v := m.NewVoice(ramp(10, 10))
	ended := false
	v.OnEnded(func() { ended = true })
	v.StartAt(0, 0, 0)

	out := make([]float32, 2*Channels)
	m.Render(out)
	v.Stop()
	v.Stop()
	m.Render(out)
	m.Render(make([]float32, 20*Channels))

	if ended {
		t.Error("ended callback fired after Stop")
	}
	for i, s := range out {
		if s != 0 {
			t.Fatalf("sample %d = %v after Stop, want silence", i, s)
		}
	}
}

func TestMixerStartInPastPlaysImmediately(t *testing.T) {
	m := NewMixer(10)
	m.Render(make([]float32, 10*Channels))

	v := m.NewVoice(ramp(10, 2))
	v.StartAt(0.5, 0, 0)
	out := make([]float32, 2*Channels)
	m.Render(out)
	if out[0] != 0.01 || out[2] != 0.02 {
		t.Errorf("late voice rendered %v, want [0.01 0.02]", out)
	}
}

func TestMixerResamplesByStep(t *testing.T) {
	m := NewMixer(10)
	v := m.NewVoice(ramp(20, 8)) // twice the output rate
	v.StartAt(0, 0, 0)
	out := make([]float32, 4*Channels)
	m.Render(out)

	want := []float32{0.01, 0.03, 0.05, 0.07}
	for i, w := range want {
		if out[i*2] != w {
			t.Errorf("frame %d = %v, want %v", i, out[i*2], w)
		}
	}
}

func TestMixerReadEncodesFloat32(t *testing.T) {
	m := NewMixer(10)
	v := m.NewVoice(&Buffer{SampleRate: 10, Channels: 2, Data: []float32{0.5, -0.5}})
	v.StartAt(0, 0, 0)

	p := make([]byte, 4*Channels*2+3) // trailing partial frame is left alone
	n, err := m.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 16 {
		t.Errorf("Read() n = %d, want 16", n)
	}
	l := math.Float32frombits(uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24)
	if l != 0.5 {
		t.Errorf("left sample = %v, want 0.5", l)
	}
	if got := m.Now(); got != 0.2 {
		t.Errorf("Now() = %v, want 0.2", got)
	}
}

func TestMixerClipsAndGain(t *testing.T) {
	m := NewMixer(10)
	for i := 0; i < 3; i++ {
		m.NewVoice(&Buffer{SampleRate: 10, Channels: 1, Data: []float32{0.6}}).StartAt(0, 0, 0)
	}
	out := make([]float32, Channels)
	m.Render(out)
	if out[0] != 1 {
		t.Errorf("summed sample = %v, want clipped 1", out[0])
	}

	m.SetGain(0.5)
	m.NewVoice(&Buffer{SampleRate: 10, Channels: 1, Data: []float32{0.6}}).StartAt(0, 0, 0)
	m.Render(out)
	if math.Abs(float64(out[0])-0.3) > 1e-6 {
		t.Errorf("gained sample = %v, want 0.3", out[0])
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(-1); got != 0 {
		t.Errorf("Seconds(-1) = %v, want 0", got)
	}
	if got := Seconds(0.05); got.Milliseconds() != 50 {
		t.Errorf("Seconds(0.05) = %v, want 50ms", got)
	}
}
