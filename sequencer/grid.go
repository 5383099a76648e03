package sequencer

import "math"

// BeatsPerBar is fixed: every track is in 4/4.
const BeatsPerBar = 4

// Grid converts between seconds and quantization steps. A quantization of 8
// means eighth notes, i.e. Quantization/4 steps per beat.
type Grid struct {
	BPM          float64
	Quantization int
}

// SecondsPerStep returns the length of one step.
func (g Grid) SecondsPerStep() float64 {
	return 60 / g.BPM / (float64(g.Quantization) / BeatsPerBar)
}

// Steps converts seconds to the nearest whole step, rounding halves away
// from zero.
func (g Grid) Steps(seconds float64) int {
	return int(math.Round(seconds / g.SecondsPerStep()))
}

// Seconds converts steps to seconds.
func (g Grid) Seconds(steps int) float64 {
	return float64(steps) * g.SecondsPerStep()
}

// TrackDuration returns the loop length in seconds.
func TrackDuration(bpm float64, bars int) float64 {
	return float64(bars) * BeatsPerBar * 60 / bpm
}

// TotalSteps returns the number of steps in a loop.
func TotalSteps(bars, quantization int) int {
	return bars * quantization
}
