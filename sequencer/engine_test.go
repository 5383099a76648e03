package sequencer

import (
	"testing"

	"klangroom/audio"
)

func TestPlayUnknownSampleIsNoop(t *testing.T) {
	r := newRig(t)
	if pb := r.engine.Play("missing", PlayOptions{}); pb != nil {
		t.Errorf("Play(missing) = %+v, want nil", pb)
	}
	if len(r.clock.Starts()) != 0 {
		t.Error("Play(missing) started a voice")
	}

	silent := NewEngine(nil, r.store, r.pads)
	if pb := silent.Play(r.a.ID, PlayOptions{}); pb != nil {
		t.Error("Play without a clock returned a handle")
	}
	silent.Stop(r.a.ID) // must not panic
}

func TestPlayRegions(t *testing.T) {
	r := newRig(t)
	r.clock.AdvanceTo(2)

	r.engine.Play(r.a.ID, PlayOptions{})
	r.engine.Play(r.a.ID, PlayOptions{Offset: 0.25})
	r.engine.Play(r.a.ID, PlayOptions{Offset: 0.25, Duration: 0.5})

	starts := r.clock.Starts()
	want := []struct{ offset, duration float64 }{{0, 0}, {0.25, 0}, {0.25, 0.5}}
	if len(starts) != len(want) {
		t.Fatalf("got %d starts, want %d", len(starts), len(want))
	}
	for i, w := range want {
		s := starts[i]
		if s.When != 2 || s.Offset != w.offset || s.Duration != w.duration {
			t.Errorf("start %d = %+v, want at 2 offset %v duration %v", i, s, w.offset, w.duration)
		}
	}
}

func TestNaturalEndClearsState(t *testing.T) {
	r := newRig(t)
	var changes []bool
	r.engine.SetOnPadChange(func(pad int, playing bool) {
		if pad == 0 {
			changes = append(changes, playing)
		}
	})
	ended := false
	pb := r.engine.PlayPad(0, r.a.ID, PlayOptions{Duration: 0.5, OnEnded: func() { ended = true }})

	if !r.engine.IsPlaying(r.a.ID) || !r.engine.IsPadPlaying(0) {
		t.Fatal("sample not playing after PlayPad")
	}
	if start, ok := r.engine.PlaybackStartTime(r.a.ID); !ok || start != 0 {
		t.Errorf("PlaybackStartTime() = %v, %v, want 0, true", start, ok)
	}

	r.clock.Advance(0.6)

	if r.engine.IsPlaying(r.a.ID) || r.engine.IsPadPlaying(0) {
		t.Error("still playing after the natural end")
	}
	if !ended {
		t.Error("OnEnded not called")
	}
	select {
	case <-pb.Done():
	default:
		t.Error("Done() not closed after the natural end")
	}
	if _, ok := r.engine.PlaybackStartTime(r.a.ID); ok {
		t.Error("PlaybackStartTime() still reports a start")
	}
	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Errorf("pad changes = %v, want [true false]", changes)
	}
}

func TestLatestStartWins(t *testing.T) {
	r := newRig(t)
	r.engine.Play(r.a.ID, PlayOptions{})
	r.clock.Advance(0.4)
	r.engine.Play(r.a.ID, PlayOptions{})

	if start, _ := r.engine.PlaybackStartTime(r.a.ID); start != 0.4 {
		t.Errorf("PlaybackStartTime() = %v, want 0.4", start)
	}
}

func TestStopHaltsEveryPadSharingTheSample(t *testing.T) {
	r := newRig(t)
	if err := r.pads.Assign(2, PadAssignment{SampleID: r.a.ID, Start: 0.5}); err != nil {
		t.Fatal(err)
	}
	p0 := r.engine.PlayPad(0, r.a.ID, PlayOptions{})
	p2 := r.engine.PlayPad(2, r.a.ID, PlayOptions{Offset: 0.5})
	pb := r.engine.PlayPad(1, r.b.ID, PlayOptions{})

	r.engine.Stop(r.a.ID)

	if r.engine.IsPlaying(r.a.ID) {
		t.Error("IsPlaying(a) after Stop")
	}
	active := r.engine.ActivePads()
	if active[0] || active[2] {
		t.Errorf("pads 0/2 still flagged: %v", active)
	}
	if !active[1] || !r.engine.IsPlaying(r.b.ID) {
		t.Error("Stop(a) touched sample b")
	}
	for _, p := range []*Playback{p0, p2} {
		select {
		case <-p.Done():
		default:
			t.Error("stopped instance not done")
		}
	}
	for _, v := range r.clock.Sounding() {
		if v.Buffer == r.a.Buffer {
			t.Error("a voice of sample a is still sounding")
		}
	}

	// stopped voices never report a natural end
	r.clock.Advance(2)
	r.engine.Stop(r.a.ID)
	select {
	case <-pb.Done():
	default:
		t.Error("sample b did not end naturally")
	}
}

func TestSharedSamplePlaysUntilLastPadEnds(t *testing.T) {
	r := newRig(t)
	if err := r.pads.Assign(2, PadAssignment{SampleID: r.a.ID}); err != nil {
		t.Fatal(err)
	}
	r.engine.PlayPad(0, r.a.ID, PlayOptions{Duration: 0.3})
	r.engine.PlayPad(2, r.a.ID, PlayOptions{Duration: 0.6})

	r.clock.Advance(0.4)
	if !r.engine.IsPlaying(r.a.ID) {
		t.Error("IsPlaying(a) = false while pad 2 still sounds")
	}
	if r.engine.IsPadPlaying(0) {
		t.Error("pad 0 still flagged after its end")
	}
	if !r.engine.IsPadPlaying(2) {
		t.Error("pad 2 cleared by the end of pad 0")
	}

	r.clock.Advance(0.3)
	if r.engine.IsPlaying(r.a.ID) || r.engine.IsPadPlaying(0) || r.engine.IsPadPlaying(2) {
		t.Error("still playing after both natural ends")
	}
}

func TestPadsFor(t *testing.T) {
	r := newRig(t)
	if err := r.pads.Assign(5, PadAssignment{SampleID: r.a.ID}); err != nil {
		t.Fatal(err)
	}
	got := r.pads.PadsFor(r.a.ID)
	if len(got) != 2 || got[0] != 0 || got[1] != 5 {
		t.Errorf("PadsFor(a) = %v, want [0 5]", got)
	}
	r.pads.Clear(5)
	if got := r.pads.PadsFor(r.a.ID); len(got) != 1 {
		t.Errorf("PadsFor(a) after Clear = %v, want [0]", got)
	}
	if got := r.pads.PadsFor("missing"); len(got) != 0 {
		t.Errorf("PadsFor(missing) = %v", got)
	}
}

func TestStopToleratesPanickingVoices(t *testing.T) {
	r := newRig(t)
	e := NewEngine(panicClock{r.clock}, r.store, r.pads)
	e.PlayPad(0, r.a.ID, PlayOptions{})

	e.Stop(r.a.ID)
	if e.IsPlaying(r.a.ID) || e.IsPadPlaying(0) {
		t.Error("state not cleared when voice cleanup panicked")
	}
}

func TestChopResolution(t *testing.T) {
	r := newRig(t)
	r.pads.Assign(3, PadAssignment{SampleID: r.a.ID, Start: 0.25, Duration: 0.5})
	r.pads.Assign(4, PadAssignment{SampleID: r.a.ID, Start: 0.75, Duration: 2})
	r.pads.Assign(5, PadAssignment{SampleID: "gone"})

	tests := []struct {
		pad    int
		ok     bool
		offset float64
		length float64
	}{
		{0, true, 0, 1},
		{3, true, 0.25, 0.5},
		{4, true, 0.75, 0.25},
		{5, false, 0, 0},
		{9, false, 0, 0},
		{-1, false, 0, 0},
	}
	for _, tt := range tests {
		c, ok := r.engine.Chop(tt.pad)
		if ok != tt.ok || c.Offset != tt.offset || c.Length != tt.length {
			t.Errorf("Chop(%d) = %+v, %v, want offset %v length %v ok %v", tt.pad, c, ok, tt.offset, tt.length, tt.ok)
		}
	}
}

// panicClock hands out voices whose cleanup panics.
type panicClock struct{ audio.Clock }

func (c panicClock) NewVoice(buf *audio.Buffer) audio.Voice {
	return panicVoice{c.Clock.NewVoice(buf)}
}

type panicVoice struct{ audio.Voice }

func (panicVoice) Stop()    { panic("stop on finished voice") }
func (panicVoice) Release() { panic("release twice") }
