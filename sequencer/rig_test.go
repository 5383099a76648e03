package sequencer

import (
	"testing"

	"klangroom/audio"
	"klangroom/audio/audiotest"
	"klangroom/sample"
)

// rig is a session on a fake clock with two 1s samples, "a" on pad 0 and
// "b" on pad 1.
type rig struct {
	clock    *audiotest.Clock
	store    *sample.Store
	pads     *PadTable
	settings *Settings
	engine   *Engine
	a, b     *sample.Sample
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		clock:    audiotest.New(),
		store:    sample.NewStore(100),
		pads:     NewPadTable(),
		settings: NewSettings(),
	}
	r.a = r.store.Add("a", silence(100, 1))
	r.b = r.store.Add("b", silence(100, 1))
	if err := r.pads.Assign(0, PadAssignment{SampleID: r.a.ID}); err != nil {
		t.Fatalf("assign pad 0: %v", err)
	}
	if err := r.pads.Assign(1, PadAssignment{SampleID: r.b.ID}); err != nil {
		t.Fatalf("assign pad 1: %v", err)
	}
	r.engine = NewEngine(r.clock, r.store, r.pads)
	return r
}

func (r *rig) player() *Player {
	return NewPlayer(r.clock, r.clock, r.engine, r.settings)
}

func silence(rate int, seconds float64) *audio.Buffer {
	return &audio.Buffer{SampleRate: rate, Channels: 1, Data: make([]float32, int(float64(rate)*seconds))}
}

// startsOf returns the StartAt calls made for sample s.
func startsOf(c *audiotest.Clock, s *sample.Sample) []audiotest.Start {
	var out []audiotest.Start
	for _, st := range c.Starts() {
		if st.Voice.Buffer == s.Buffer {
			out = append(out, st)
		}
	}
	return out
}

func near(a, b float64) bool {
	const eps = 1e-9
	return a-b < eps && b-a < eps
}
