package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"klangroom/audio"
	"klangroom/config"
	"klangroom/debug"
	"klangroom/midi"
	"klangroom/sample"
	"klangroom/sequencer"
	"klangroom/theme"
	"klangroom/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Debug {
		if err := debug.Enable(); err != nil {
			fmt.Printf("Debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	// Load theme
	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		fmt.Printf("Palette: %v, using default\n", err)
	}
	th := theme.New(palette)

	// Audio output; without a device the session still runs, silently
	mixer := audio.NewMixer(cfg.Audio.SampleRate)
	var clock audio.Clock
	var closer io.Closer
	dev, err := audio.OpenDevice(mixer, time.Duration(cfg.Audio.BufferMs)*time.Millisecond)
	if err != nil {
		fmt.Printf("Audio unavailable (%v), running without sound\n", err)
	} else {
		clock = mixer
		closer = dev
	}

	manager := sequencer.NewManager(sequencer.Options{
		Clock:      clock,
		Samples:    sample.NewStore(mixer.SampleRate()),
		SampleRate: mixer.SampleRate(),
		Kit:        cfg.MIDI.Kit,
		Gate:       cfg.MIDI.Gate,
		Closer:     closer,
	})
	defer manager.Close()
	applyTrack(manager, cfg.Track)

	// Samples from the command line go onto pads in order
	for i, path := range os.Args[1:] {
		smp, err := manager.LoadSample(path)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", path, err)
			continue
		}
		if i < sequencer.NumPads {
			manager.AssignChop(i, smp.ID, 0, 0)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create MIDI device manager (handles hot-plug)
	var deviceMgr *midi.DeviceManager
	if cfg.MIDI.AutoConnect {
		deviceMgr = midi.NewDeviceManager(cfg.MIDI.InputPort, cfg.MIDI.Keyboards)
		go deviceMgr.Run(ctx)
	}

	manager.StartRuntime()

	// Create and run TUI
	m := tui.NewModel(manager, deviceMgr, th)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		manager.Close()
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.SaveTrack(trackConfig(manager)); err != nil {
		debug.Log("main", "save track settings: %v", err)
	}
}

func applyTrack(m *sequencer.Manager, t config.TrackConfig) {
	// config.Load validated these
	m.SetTempo(t.BPM)
	m.SetBars(t.Bars)
	m.SetQuantization(t.Quantization)
	m.Player.SetLoop(t.Loop)
	m.SetMode(sequencer.ParseMode(t.Mode))
}

func trackConfig(m *sequencer.Manager) config.TrackConfig {
	return config.TrackConfig{
		BPM:          m.Settings.BPM(),
		Bars:         m.Settings.Bars(),
		Quantization: m.Settings.Quantization(),
		Loop:         m.Player.LoopEnabled(),
		Mode:         m.Recorder.Mode().String(),
	}
}
