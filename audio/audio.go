// Package audio provides the sample-accurate clock the sequencer schedules
// against, plus the software mixer and output device behind it.
package audio

import "time"

// Channels is the output channel count of the mixer and device.
const Channels = 2

// Buffer holds decoded interleaved float32 PCM.
type Buffer struct {
	SampleRate int
	Channels   int
	Data       []float32
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration returns the length of the buffer in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Clock is a monotonic audio clock that can start voices at exact times.
type Clock interface {
	// Now returns the current clock time in seconds.
	Now() float64
	// NewVoice creates a one-shot voice for buf.
	NewVoice(buf *Buffer) Voice
}

// Voice is a one-shot playback of a buffer.
//
// StartAt may be called once. A duration of zero or less plays to the end of
// the buffer. A start time in the past starts as soon as possible. Stop halts
// the voice without firing ended callbacks and may be called repeatedly.
type Voice interface {
	StartAt(when, offset, duration float64)
	Stop()
	OnEnded(fn func())
	Release()
}

// Timer is a pending wake-up.
type Timer interface {
	Stop() bool
}

// Waker schedules coarse software wake-ups. Callbacks must re-read the
// Clock, the delay is only a hint.
type Waker interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemWaker wakes through time.AfterFunc.
type SystemWaker struct{}

func (SystemWaker) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Seconds converts clock seconds to a wake-up delay, clamped at zero.
func Seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
