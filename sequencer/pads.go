package sequencer

import (
	"errors"
	"fmt"
	"sync"
)

// NumPads is the number of trigger pads.
const NumPads = 16

var (
	ErrInvalidPad    = errors.New("invalid pad")
	ErrUnknownSample = errors.New("unknown sample")
)

// PadAssignment binds a pad to a region of a sample. Start and Duration are
// in seconds; Duration 0 plays to the end of the sample.
type PadAssignment struct {
	SampleID string  `json:"sampleId"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// PadSource resolves pads to their assignments.
type PadSource interface {
	Get(pad int) (PadAssignment, bool)
	PadsFor(sampleID string) []int
}

// PadTable holds the assignment of each pad.
type PadTable struct {
	mu       sync.RWMutex
	pads     [NumPads]PadAssignment
	assigned [NumPads]bool
	onChange func(pad int)
}

// NewPadTable returns a table with every pad empty.
func NewPadTable() *PadTable {
	return &PadTable{}
}

// SetOnChange sets a callback invoked after a pad is assigned or cleared.
func (t *PadTable) SetOnChange(fn func(pad int)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Get returns the assignment of pad.
func (t *PadTable) Get(pad int) (PadAssignment, bool) {
	if pad < 0 || pad >= NumPads {
		return PadAssignment{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pads[pad], t.assigned[pad]
}

// Assign binds pad to a. Start and Duration must not be negative.
func (t *PadTable) Assign(pad int, a PadAssignment) error {
	if pad < 0 || pad >= NumPads {
		return fmt.Errorf("pad %d: %w", pad, ErrInvalidPad)
	}
	if a.SampleID == "" || a.Start < 0 || a.Duration < 0 {
		return fmt.Errorf("pad %d region %.3f+%.3f: %w", pad, a.Start, a.Duration, ErrInvalidSetting)
	}
	t.update(pad, func() {
		t.pads[pad] = a
		t.assigned[pad] = true
	})
	return nil
}

// Clear empties pad.
func (t *PadTable) Clear(pad int) {
	if pad < 0 || pad >= NumPads {
		return
	}
	t.update(pad, func() {
		t.pads[pad] = PadAssignment{}
		t.assigned[pad] = false
	})
}

// PadsFor returns the pads assigned to sampleID.
func (t *PadTable) PadsFor(sampleID string) []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var pads []int
	for i := range t.pads {
		if t.assigned[i] && t.pads[i].SampleID == sampleID {
			pads = append(pads, i)
		}
	}
	return pads
}

func (t *PadTable) update(pad int, apply func()) {
	t.mu.Lock()
	apply()
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn(pad)
	}
}
