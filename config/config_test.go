package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if cfg.Track != def.Track || cfg.Audio != def.Audio {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, def)
	}
	if cfg.MIDI.Gate {
		t.Error("gate mode on by default, pads should be one-shot")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Track.BPM = 92
	cfg.Track.Mode = "free"
	cfg.MIDI.InputPort = "Launchpad"
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Track.BPM != 92 || got.Track.Mode != "free" || got.MIDI.InputPort != "Launchpad" {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"track":{"bars":8}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Track.Bars != 8 {
		t.Errorf("Bars = %d, want 8", cfg.Track.Bars)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want default 48000", cfg.Audio.SampleRate)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KLANGROOM_BPM", "140.5")
	t.Setenv("KLANGROOM_BARS", "2")
	t.Setenv("KLANGROOM_QUANTIZATION", "16")
	t.Setenv("KLANGROOM_SAMPLE_RATE", "44100")
	t.Setenv("KLANGROOM_MIDI_INPUT", "MPK")
	t.Setenv("KLANGROOM_DEBUG", "true")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Track.BPM != 140.5 || cfg.Track.Bars != 2 || cfg.Track.Quantization != 16 {
		t.Errorf("track = %+v", cfg.Track)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.MIDI.InputPort != "MPK" || !cfg.Debug {
		t.Errorf("config = %+v", cfg)
	}
}

func TestEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("KLANGROOM_BPM", "fast")
	t.Setenv("KLANGROOM_BARS", "")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Track.BPM != 120 || cfg.Track.Bars != 4 {
		t.Errorf("track = %+v, want defaults", cfg.Track)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"slow", func(c *Config) { c.Track.BPM = 10 }, false},
		{"no bars", func(c *Config) { c.Track.Bars = 0 }, false},
		{"odd grid", func(c *Config) { c.Track.Quantization = 12 }, false},
		{"mode", func(c *Config) { c.Track.Mode = "swing" }, false},
		{"rate", func(c *Config) { c.Audio.SampleRate = 0 }, false},
		{"buffer", func(c *Config) { c.Audio.BufferMs = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"track":{"bpm":1000}}`), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile accepted bpm 1000")
	}
	os.WriteFile(path, []byte(`{`), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile accepted broken JSON")
	}
}

func TestSaveTrackIgnoresEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KLANGROOM_SAMPLE_RATE", "44100")

	track := DefaultConfig().Track
	track.BPM = 100
	if err := SaveTrack(track); err != nil {
		t.Fatal(err)
	}

	path, _ := ConfigPath()
	saved, err := readFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Track.BPM != 100 {
		t.Errorf("saved bpm = %v, want 100", saved.Track.BPM)
	}
	if saved.Audio.SampleRate != 48000 {
		t.Errorf("env override leaked into the file: %d", saved.Audio.SampleRate)
	}
}
