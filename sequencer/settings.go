package sequencer

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var ErrInvalidSetting = errors.New("invalid setting")

// Quantizations lists the grid resolutions offered by the UI.
var Quantizations = []int{4, 8, 16, 32}

const (
	DefaultBPM          = 120.0
	DefaultBars         = 4
	DefaultQuantization = 8

	MinBPM  = 20.0
	MaxBPM  = 300.0
	MaxBars = 64
)

// Settings holds the live track timing. Any change re-times recorded
// quantized events on their next replay.
type Settings struct {
	mu           sync.RWMutex
	bpm          float64
	bars         int
	quantization int
	onChange     func()
}

// NewSettings returns settings at 120 bpm, 4 bars, eighth notes.
func NewSettings() *Settings {
	return &Settings{bpm: DefaultBPM, bars: DefaultBars, quantization: DefaultQuantization}
}

// SetOnChange sets a callback invoked after every accepted change.
func (s *Settings) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Settings) BPM() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bpm
}

func (s *Settings) Bars() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bars
}

func (s *Settings) Quantization() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quantization
}

// Grid returns a converter for the current tempo and quantization.
func (s *Settings) Grid() Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Grid{BPM: s.bpm, Quantization: s.quantization}
}

// TrackDuration returns the current loop length in seconds.
func (s *Settings) TrackDuration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TrackDuration(s.bpm, s.bars)
}

// TotalSteps returns the current loop length in steps.
func (s *Settings) TotalSteps() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TotalSteps(s.bars, s.quantization)
}

// SetBPM sets the tempo. Values outside MinBPM..MaxBPM are rejected.
func (s *Settings) SetBPM(bpm float64) error {
	if math.IsNaN(bpm) || bpm < MinBPM || bpm > MaxBPM {
		return fmt.Errorf("bpm %v: %w", bpm, ErrInvalidSetting)
	}
	s.set(func() { s.bpm = bpm })
	return nil
}

// SetBars sets the loop length in bars.
func (s *Settings) SetBars(bars int) error {
	if bars <= 0 || bars > MaxBars {
		return fmt.Errorf("bars %d: %w", bars, ErrInvalidSetting)
	}
	s.set(func() { s.bars = bars })
	return nil
}

// SetQuantization sets the grid resolution in notes per bar.
func (s *Settings) SetQuantization(q int) error {
	if q <= 0 {
		return fmt.Errorf("quantization %d: %w", q, ErrInvalidSetting)
	}
	s.set(func() { s.quantization = q })
	return nil
}

func (s *Settings) set(apply func()) {
	s.mu.Lock()
	apply()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
