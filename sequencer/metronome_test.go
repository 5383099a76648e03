package sequencer

import (
	"testing"

	"klangroom/audio/audiotest"
)

func TestMetronomeClicksOnBeats(t *testing.T) {
	clock := audiotest.New()
	m := NewMetronome(clock, clock, NewSettings(), 100) // 120 bpm

	m.Start()
	clock.AdvanceTo(2.05)

	starts := clock.Starts()
	want := []float64{0, 0.5, 1.0, 1.5, 2.0}
	if len(starts) != len(want) {
		t.Fatalf("%d clicks, want %d", len(starts), len(want))
	}
	for i, w := range want {
		if !near(starts[i].When, w) {
			t.Errorf("click %d at %v, want %v", i, starts[i].When, w)
		}
		accent := starts[i].Voice.Buffer == m.accent
		if accent != (i%BeatsPerBar == 0) {
			t.Errorf("click %d accent = %v", i, accent)
		}
	}
}

func TestMetronomeStop(t *testing.T) {
	clock := audiotest.New()
	m := NewMetronome(clock, clock, NewSettings(), 100)

	if !m.Toggle() {
		t.Fatal("Toggle() = false, want running")
	}
	clock.AdvanceTo(0.45) // next click at 0.5 is queued
	if m.Toggle() {
		t.Fatal("Toggle() = true, want stopped")
	}
	n := len(clock.Starts())

	clock.AdvanceTo(3)
	if got := len(clock.Starts()); got != n {
		t.Errorf("%d clicks after Stop, want %d", got, n)
	}
	if len(clock.Sounding()) != 0 || clock.Pending() != 0 {
		t.Error("metronome left voices or timers behind")
	}
}

func TestMetronomeFollowsTempo(t *testing.T) {
	clock := audiotest.New()
	settings := NewSettings()
	m := NewMetronome(clock, clock, settings, 100)

	m.Start()
	clock.AdvanceTo(0.2) // click at 0.5 not yet queued
	if err := settings.SetBPM(60); err != nil {
		t.Fatal(err)
	}
	clock.AdvanceTo(1.55)

	starts := clock.Starts()
	if len(starts) != 3 || !near(starts[1].When, 0.5) || !near(starts[2].When, 1.5) {
		t.Errorf("clicks at %v, want 0 0.5 1.5", starts)
	}
}

func TestClickShape(t *testing.T) {
	b := Click(48000, 1000)
	if b.Channels != 1 || b.Frames() != 1440 {
		t.Fatalf("click = %d ch, %d frames", b.Channels, b.Frames())
	}
	var peak float32
	for _, s := range b.Data {
		if s > peak {
			peak = s
		}
		if s > 1 || s < -1 {
			t.Fatalf("sample %v out of range", s)
		}
	}
	if peak == 0 {
		t.Error("click is silent")
	}
}
