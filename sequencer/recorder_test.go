package sequencer

import (
	"testing"

	"klangroom/audio/audiotest"
)

func TestRecordQuantizedScenarios(t *testing.T) {
	clock := audiotest.New()
	rec := NewRecorder(clock, NewSettings()) // 120 bpm, 8ths, 4 bars

	if !rec.Arm() {
		t.Fatal("Arm() = false with a clock")
	}

	clock.AdvanceTo(1.0)
	if !rec.Record(2, 0.6) {
		t.Fatal("Record at 1.0s rejected")
	}

	clock.AdvanceTo(7.9)
	if !rec.Record(5, 1.0) {
		t.Fatal("Record at 7.9s rejected")
	}

	want := []StepEvent{
		{Pad: 2, Start: 4, Duration: 2},
		{Pad: 5, Start: 31, Duration: 1},
	}
	got := rec.Steps()
	if len(got) != len(want) {
		t.Fatalf("Steps() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Steps()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	clock.AdvanceTo(8.0)
	if rec.Record(3, 0.1) {
		t.Error("Record at 8.0s accepted")
	}
	if rec.IsArmed() {
		t.Error("recorder still armed after overrun")
	}
	if n := len(rec.Steps()); n != 2 {
		t.Errorf("overrun changed events: %d, want 2", n)
	}
}

func TestRecordJustInsideLoopEnd(t *testing.T) {
	clock := audiotest.New()
	rec := NewRecorder(clock, NewSettings())
	rec.Arm()

	clock.AdvanceTo(8 - 1e-6)
	if !rec.Record(0, 0.25) {
		t.Fatal("hit just before the loop end rejected")
	}
	got := rec.Steps()[0]
	if got.Start != 31 || got.Duration != 1 {
		t.Errorf("event = %+v, want start 31 duration 1", got)
	}
	if !rec.IsArmed() {
		t.Error("accepted hit disarmed the recorder")
	}
}

func TestRecordMinimumDuration(t *testing.T) {
	clock := audiotest.New()
	rec := NewRecorder(clock, NewSettings())
	rec.Arm()
	rec.Record(0, 0.01)
	if got := rec.Steps()[0].Duration; got != 1 {
		t.Errorf("Duration = %d, want at least 1", got)
	}
}

func TestRecordOverrunCallsOnDisarm(t *testing.T) {
	clock := audiotest.New()
	rec := NewRecorder(clock, NewSettings())
	disarmed := 0
	rec.SetOnDisarm(func() { disarmed++ })
	rec.Arm()

	clock.AdvanceTo(9)
	rec.Record(0, 0.5)
	rec.Record(0, 0.5)
	if disarmed != 1 {
		t.Errorf("onDisarm fired %d times, want 1", disarmed)
	}
}

func TestRecordFreeMode(t *testing.T) {
	clock := audiotest.New()
	rec := NewRecorder(clock, NewSettings())
	rec.SetMode(Free)

	clock.AdvanceTo(2)
	rec.Arm()
	clock.AdvanceTo(3.337)
	if !rec.Record(7, 0.42) {
		t.Fatal("free Record rejected")
	}

	got := rec.Free()
	if len(got) != 1 {
		t.Fatalf("Free() = %+v, want one event", got)
	}
	e := got[0]
	if e.Pad != 7 || !near(e.Start, 1.337) || e.Duration != 0.42 || e.CapturedAt != 3.337 {
		t.Errorf("free event = %+v, want pad 7 start 1.337 duration 0.42 at 3.337", e)
	}
	if len(rec.Steps()) != 0 {
		t.Error("free hit landed in the quantized list")
	}
	if tr := rec.Track(); tr.Mode != Free || tr.Len() != 1 {
		t.Errorf("Track() = %+v", tr)
	}
}

func TestRecordIgnoredWhenDisarmed(t *testing.T) {
	clock := audiotest.New()
	rec := NewRecorder(clock, NewSettings())
	if rec.Record(0, 0.5) {
		t.Error("Record accepted while idle")
	}

	rec.Arm()
	rec.Record(0, 0.5)
	rec.Disarm()
	if rec.Record(1, 0.5) {
		t.Error("Record accepted after Disarm")
	}
	if n := len(rec.Steps()); n != 1 {
		t.Errorf("Disarm dropped events: %d left, want 1", n)
	}
	if _, armed := rec.Origin(); armed {
		t.Error("Origin() still set after Disarm")
	}
}

func TestRecorderWithoutClock(t *testing.T) {
	rec := NewRecorder(nil, NewSettings())
	if rec.Arm() {
		t.Error("Arm() = true without a clock")
	}
	if rec.IsArmed() || rec.Record(0, 1) {
		t.Error("recorder without clock captured a hit")
	}
}

func TestArmClearsOnlyCurrentMode(t *testing.T) {
	clock := audiotest.New()
	rec := NewRecorder(clock, NewSettings())

	rec.Arm()
	rec.Record(0, 0.5)
	rec.Disarm()

	rec.SetMode(Free)
	rec.Arm()
	rec.Record(1, 0.5)
	rec.Disarm()

	rec.Arm() // free again
	if len(rec.Free()) != 0 {
		t.Error("Arm kept free events of the current mode")
	}
	if len(rec.Steps()) != 1 {
		t.Error("Arm in free mode cleared quantized events")
	}
}

func TestSetModeWhileArmedDiscards(t *testing.T) {
	clock := audiotest.New()
	rec := NewRecorder(clock, NewSettings())
	rec.Arm()
	rec.Record(0, 0.5)

	rec.SetMode(Free)
	if rec.IsArmed() {
		t.Error("still armed after switching mode")
	}
	if len(rec.Steps()) != 0 {
		t.Error("in-progress quantized recording survived the switch")
	}
	if rec.Mode() != Free {
		t.Errorf("Mode() = %v, want free", rec.Mode())
	}
}

func TestClearEmptiesBothLists(t *testing.T) {
	clock := audiotest.New()
	rec := NewRecorder(clock, NewSettings())
	rec.Arm()
	rec.Record(0, 0.5)
	rec.Disarm()
	rec.SetMode(Free)
	rec.Arm()
	rec.Record(0, 0.5)
	if len(rec.Steps()) != 1 || len(rec.Free()) != 1 {
		t.Fatalf("setup: steps=%d free=%d, want 1 and 1", len(rec.Steps()), len(rec.Free()))
	}

	rec.Clear()
	if len(rec.Steps())+len(rec.Free()) != 0 || rec.IsArmed() {
		t.Errorf("Clear left steps=%d free=%d armed=%v", len(rec.Steps()), len(rec.Free()), rec.IsArmed())
	}
}
