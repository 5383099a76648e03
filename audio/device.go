//go:build !headless

package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"klangroom/debug"
)

// Device plays a Mixer through the system audio output.
type Device struct {
	ctx    *oto.Context
	player *oto.Player
	mixer  *Mixer
	once   sync.Once
}

// OpenDevice opens the default output and starts pulling frames from m.
// bufferSize is the driver buffer; zero picks the driver default.
func OpenDevice(m *Mixer, bufferSize time.Duration) (*Device, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   m.SampleRate(),
		ChannelCount: Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}
	<-ready

	d := &Device{ctx: ctx, mixer: m}
	d.player = ctx.NewPlayer(m)
	d.player.Play()
	debug.Log("mixer", "oto output open: %d Hz, buffer %v", m.SampleRate(), bufferSize)
	return d, nil
}

// Mixer returns the mixer feeding the device.
func (d *Device) Mixer() *Mixer { return d.mixer }

// Close stops output. Only the first call has an effect.
func (d *Device) Close() error {
	var err error
	d.once.Do(func() {
		d.player.Pause()
		err = d.player.Close()
		if serr := d.ctx.Suspend(); err == nil {
			err = serr
		}
		debug.Log("mixer", "oto output closed")
	})
	return err
}
