package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"klangroom/sequencer"
)

// AudioConfig selects the output device format
type AudioConfig struct {
	SampleRate int `json:"sampleRate"`
	BufferMs   int `json:"bufferMs"`
}

// TrackConfig holds the loop settings restored at startup
type TrackConfig struct {
	BPM          float64 `json:"bpm"`
	Bars         int     `json:"bars"`
	Quantization int     `json:"quantization"`
	Loop         bool    `json:"loop"`
	Mode         string  `json:"mode"` // "quantized" or "free"
}

// MIDIConfig controls device discovery
type MIDIConfig struct {
	InputPort   string `json:"inputPort,omitempty"` // substring filter, empty matches all
	Kit         string `json:"kit,omitempty"`
	AutoConnect bool   `json:"autoConnect"`
	Keyboards   bool   `json:"keyboards"`
	Gate        bool   `json:"gate,omitempty"` // release stops the pad's sample
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // path to a GIMP .gpl file
}

// Config is the main configuration structure
type Config struct {
	Audio AudioConfig `json:"audio"`
	Track TrackConfig `json:"track"`
	MIDI  MIDIConfig  `json:"midi"`
	UI    UIConfig    `json:"ui,omitempty"`
	Debug bool        `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 48000,
			BufferMs:   20,
		},
		Track: TrackConfig{
			BPM:          sequencer.DefaultBPM,
			Bars:         sequencer.DefaultBars,
			Quantization: sequencer.DefaultQuantization,
			Loop:         true,
			Mode:         sequencer.Quantized.String(),
		},
		MIDI: MIDIConfig{
			Kit:         sequencer.DefaultKit,
			AutoConnect: true,
			Keyboards:   true,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "klangroom"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Environment overrides are applied on top.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Missing keys keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// SaveTrack stores the loop settings of a session for the next start,
// leaving the rest of the file as it is on disk.
func SaveTrack(t TrackConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	cfg, err := readFile(path)
	if err != nil {
		return err
	}
	cfg.Track = t
	return cfg.Save()
}

// ApplyEnv overrides fields from KLANGROOM_* variables. Unparsable values
// are ignored.
func (c *Config) ApplyEnv() {
	c.Track.BPM = envFloat("KLANGROOM_BPM", c.Track.BPM)
	c.Track.Bars = envInt("KLANGROOM_BARS", c.Track.Bars)
	c.Track.Quantization = envInt("KLANGROOM_QUANTIZATION", c.Track.Quantization)
	c.Audio.SampleRate = envInt("KLANGROOM_SAMPLE_RATE", c.Audio.SampleRate)
	c.MIDI.InputPort = envStr("KLANGROOM_MIDI_INPUT", c.MIDI.InputPort)
	c.Debug = envBool("KLANGROOM_DEBUG", c.Debug)
}

// Validate checks the values the session would reject.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("audio.sampleRate %d out of range", c.Audio.SampleRate)
	}
	if c.Audio.BufferMs <= 0 {
		return fmt.Errorf("audio.bufferMs must be positive, got %d", c.Audio.BufferMs)
	}
	if c.Track.BPM < sequencer.MinBPM || c.Track.BPM > sequencer.MaxBPM {
		return fmt.Errorf("track.bpm %v outside %v-%v", c.Track.BPM, sequencer.MinBPM, sequencer.MaxBPM)
	}
	if c.Track.Bars <= 0 || c.Track.Bars > sequencer.MaxBars {
		return fmt.Errorf("track.bars %d outside 1-%d", c.Track.Bars, sequencer.MaxBars)
	}
	if !slices.Contains(sequencer.Quantizations, c.Track.Quantization) {
		return fmt.Errorf("track.quantization %d not one of %v", c.Track.Quantization, sequencer.Quantizations)
	}
	if c.Track.Mode != "" && c.Track.Mode != sequencer.Quantized.String() && c.Track.Mode != sequencer.Free.String() {
		return fmt.Errorf("track.mode %q unknown", c.Track.Mode)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
