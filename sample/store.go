// Package sample loads audio files into decoded buffers and keeps them by id.
package sample

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"klangroom/audio"
	"klangroom/debug"
)

var (
	ErrUnknownFormat = errors.New("unknown audio format")
	ErrEmpty         = errors.New("no audio frames")
)

// Sample is a decoded audio file. It is never mutated after load.
type Sample struct {
	ID     string
	Name   string
	Path   string
	Buffer *audio.Buffer
}

// Duration returns the sample length in seconds.
func (s *Sample) Duration() float64 {
	if s == nil {
		return 0
	}
	return s.Buffer.Duration()
}

// Store holds decoded samples, resampled to one output rate.
type Store struct {
	rate int

	mu      sync.RWMutex
	samples map[string]*Sample
	byPath  map[string]string
	loads   singleflight.Group
}

// NewStore creates a store that resamples everything to sampleRate.
func NewStore(sampleRate int) *Store {
	return &Store{
		rate:    sampleRate,
		samples: make(map[string]*Sample),
		byPath:  make(map[string]string),
	}
}

// SampleRate returns the rate buffers are converted to.
func (s *Store) SampleRate() int { return s.rate }

// Get returns the sample with the given id.
func (s *Store) Get(id string) (*Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	smp, ok := s.samples[id]
	return smp, ok
}

// Add stores an already decoded buffer under a fresh id.
func (s *Store) Add(name string, buf *audio.Buffer) *Sample {
	smp := &Sample{ID: uuid.NewString(), Name: name, Buffer: buf}
	s.mu.Lock()
	s.samples[smp.ID] = smp
	s.mu.Unlock()
	return smp
}

// Load decodes the file at path, or returns the sample already loaded from
// it. Concurrent loads of one path share a single decode.
func (s *Store) Load(path string) (*Sample, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	s.mu.RLock()
	id, ok := s.byPath[abs]
	s.mu.RUnlock()
	if ok {
		if smp, ok := s.Get(id); ok {
			return smp, nil
		}
	}

	v, err, shared := s.loads.Do(abs, func() (any, error) {
		buf, err := DecodeFile(abs, s.rate)
		if err != nil {
			return nil, err
		}
		smp := &Sample{
			ID:     uuid.NewString(),
			Name:   strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
			Path:   abs,
			Buffer: buf,
		}
		s.mu.Lock()
		s.samples[smp.ID] = smp
		s.byPath[abs] = smp.ID
		s.mu.Unlock()
		debug.Log("store", "loaded %s as %s (%.2fs)", smp.Name, smp.ID, smp.Duration())
		return smp, nil
	})
	if err != nil {
		debug.Log("store", "load %s failed: %v", abs, err)
		return nil, err
	}
	if shared {
		debug.Log("store", "load %s shared with a concurrent caller", abs)
	}
	return v.(*Sample), nil
}

// Remove drops a sample. Pads referring to it become silent.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	smp, ok := s.samples[id]
	if !ok {
		return
	}
	delete(s.samples, id)
	if smp.Path != "" {
		delete(s.byPath, smp.Path)
	}
}

// List returns all samples ordered by name.
func (s *Store) List() []*Sample {
	s.mu.RLock()
	out := make([]*Sample, 0, len(s.samples))
	for _, smp := range s.samples {
		out = append(out, smp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of stored samples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}
