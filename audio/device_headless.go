//go:build headless

package audio

import (
	"sync"
	"time"

	"klangroom/debug"
)

// Device renders a Mixer in real time and discards the output. Used on
// machines without a sound card.
type Device struct {
	mixer *Mixer
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// OpenDevice starts a pump rendering m at its sample rate in blocks of
// bufferSize (10ms when zero).
func OpenDevice(m *Mixer, bufferSize time.Duration) (*Device, error) {
	if bufferSize <= 0 {
		bufferSize = 10 * time.Millisecond
	}
	d := &Device{mixer: m, stop: make(chan struct{}), done: make(chan struct{})}
	go d.run(bufferSize)
	debug.Log("mixer", "headless output: %d Hz, block %v", m.SampleRate(), bufferSize)
	return d, nil
}

func (d *Device) run(block time.Duration) {
	defer close(d.done)

	frames := int(float64(d.mixer.SampleRate()) * block.Seconds())
	buf := make([]float32, frames*Channels)
	start := time.Now()
	var rendered int64

	ticker := time.NewTicker(block)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			// catch up on wall time instead of counting ticks
			due := int64(time.Since(start).Seconds() * float64(d.mixer.SampleRate()))
			for rendered < due {
				d.mixer.Render(buf)
				rendered += int64(frames)
			}
		}
	}
}

// Mixer returns the mixer feeding the device.
func (d *Device) Mixer() *Mixer { return d.mixer }

// Close stops the pump. Only the first call has an effect.
func (d *Device) Close() error {
	d.once.Do(func() {
		close(d.stop)
		<-d.done
	})
	return nil
}
