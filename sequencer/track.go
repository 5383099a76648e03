package sequencer

// Mode selects how pad hits are captured.
type Mode int

const (
	Quantized Mode = iota // snapped to the step grid
	Free                  // raw seconds
)

func (m Mode) String() string {
	if m == Free {
		return "free"
	}
	return "quantized"
}

// ParseMode parses "quantized" or "free"; anything else is Quantized.
func ParseMode(s string) Mode {
	if s == "free" {
		return Free
	}
	return Quantized
}

// StepEvent is a quantized hit. Start is 0-based, Duration at least 1.
type StepEvent struct {
	Pad      int `json:"pad"`
	Start    int `json:"start"`
	Duration int `json:"duration"`
}

// FreeEvent is a hit in seconds from the recording origin.
type FreeEvent struct {
	Pad        int     `json:"pad"`
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	CapturedAt float64 `json:"capturedAt"`
}

// Track is a recorded loop. Only the list matching Mode is played.
type Track struct {
	Mode  Mode
	Steps []StepEvent
	Free  []FreeEvent
}

// Len returns the number of events in the active list.
func (t Track) Len() int {
	if t.Mode == Free {
		return len(t.Free)
	}
	return len(t.Steps)
}

// Clone returns a deep copy.
func (t Track) Clone() Track {
	return Track{
		Mode:  t.Mode,
		Steps: append([]StepEvent(nil), t.Steps...),
		Free:  append([]FreeEvent(nil), t.Free...),
	}
}

// hit is one event of a track, resolved to seconds within the loop.
type hit struct {
	pad    int
	offset float64
	length float64
}

// hits resolves the active list against g.
func (t Track) hits(g Grid) []hit {
	out := make([]hit, 0, t.Len())
	if t.Mode == Free {
		for _, e := range t.Free {
			out = append(out, hit{pad: e.Pad, offset: e.Start, length: e.Duration})
		}
		return out
	}
	for _, e := range t.Steps {
		out = append(out, hit{pad: e.Pad, offset: g.Seconds(e.Start), length: g.Seconds(e.Duration)})
	}
	return out
}

// From returns the events at or after from seconds, shifted so that from
// becomes zero. Quantized events land on the nearest step of the shifted
// time, never before zero.
func (t Track) From(from float64, g Grid) Track {
	if from <= 0 {
		return t.Clone()
	}
	out := Track{Mode: t.Mode}
	if t.Mode == Free {
		for _, e := range t.Free {
			if e.Start >= from {
				e.Start -= from
				out.Free = append(out.Free, e)
			}
		}
		return out
	}
	for _, e := range t.Steps {
		at := g.Seconds(e.Start)
		if at < from {
			continue
		}
		e.Start = max(g.Steps(at-from), 0)
		out.Steps = append(out.Steps, e)
	}
	return out
}
