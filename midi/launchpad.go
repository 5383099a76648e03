package midi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"klangroom/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var ledSendCount uint64

// LaunchpadController handles a Novation Launchpad X in programmer mode.
// The bottom-left 4x4 block plays pads 0-15 laid out like the computer
// keyboard map, and the top control row drives transport.
type LaunchpadController struct {
	id       string
	outPort  drivers.Out
	inPort   drivers.In
	send     func(msg gomidi.Message) error
	stopFunc func()

	padChan  chan PadEvent
	noteChan chan NoteEvent
	once     sync.Once
}

// topButtons maps the control row (CC 91-98) to transport buttons.
var topButtons = [8]Button{
	ButtonPlay, ButtonStop, ButtonRecord, ButtonLoop,
	ButtonMode, ButtonMetronome, ButtonNone, ButtonClear,
}

// NewLaunchpadController creates and configures a Launchpad
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:       id,
		inPort:   inPort,
		outPort:  outPort,
		padChan:  make(chan PadEvent, 32),
		noteChan: make(chan NoteEvent, 32),
	}

	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send

		// Programmer mode: F0 00 20 29 02 0C 00 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))
		// Full brightness: F0 00 20 29 02 0C 08 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}))
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, lp.handle)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	debug.Log("midi", "launchpad %s ready", id)
	return lp, nil
}

func (lp *LaunchpadController) handle(msg gomidi.Message, timestampms int32) {
	var channel, note, velocity, cc, value uint8

	switch {
	case msg.GetNoteOn(&channel, &note, &velocity):
		if pad := noteToPad(note); pad >= 0 {
			lp.emit(PadEvent{Pad: pad, Velocity: velocity, Down: velocity > 0})
		}
	case msg.GetNoteOff(&channel, &note, &velocity):
		if pad := noteToPad(note); pad >= 0 {
			lp.emit(PadEvent{Pad: pad})
		}
	case msg.GetControlChange(&channel, &cc, &value):
		if b := ccToButton(cc); b != ButtonNone && value > 0 {
			lp.emit(PadEvent{Pad: -1, Button: b, Velocity: value, Down: true})
		}
	}
}

func (lp *LaunchpadController) emit(ev PadEvent) {
	select {
	case lp.padChan <- ev:
	default:
		debug.Log("midi", "launchpad %s: pad event dropped", lp.id)
	}
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) PadEvents() <-chan PadEvent {
	return lp.padChan
}

func (lp *LaunchpadController) NoteEvents() <-chan NoteEvent {
	return lp.noteChan // no keyboard notes
}

func (lp *LaunchpadController) SetPadLED(pad int, rgb [3]uint8) error {
	return lp.SetLEDBatch([]LEDUpdate{{Pad: pad, Color: rgb}})
}

// SetLEDBatch sends one NoteOn per LED. Pads outside 0-15 are skipped.
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}

	sent := 0
	for _, u := range updates {
		note, ok := padToNote(u.Pad)
		if !ok {
			continue
		}
		if err := lp.send(gomidi.NoteOn(u.Channel, note, mapRGBToLaunchpad(u.Color))); err != nil {
			return fmt.Errorf("set LED %d: %w", u.Pad, err)
		}
		sent++
	}

	count := atomic.AddUint64(&ledSendCount, uint64(sent))
	if count%100 < uint64(sent) {
		debug.Log("midi", "LED sends=%d (this batch=%d)", count, sent)
	}
	return nil
}

func (lp *LaunchpadController) Close() error {
	lp.once.Do(func() {
		if lp.send != nil {
			var updates []LEDUpdate
			for pad := 0; pad < 16; pad++ {
				updates = append(updates, LEDUpdate{Pad: pad})
			}
			lp.SetLEDBatch(updates)
		}
		if lp.stopFunc != nil {
			lp.stopFunc()
		}
		close(lp.padChan)
		close(lp.noteChan)
	})
	return nil
}

// mapRGBToLaunchpad finds the nearest Launchpad X palette color
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	// {velocity, R, G, B}
	palette := [][4]uint8{
		{0, 0, 0, 0},         // off
		{5, 255, 0, 0},       // red
		{7, 180, 60, 60},     // dim red
		{9, 255, 100, 0},     // orange
		{13, 255, 200, 0},    // yellow
		{19, 0, 100, 0},      // dim green
		{21, 0, 255, 0},      // bright green
		{37, 0, 200, 200},    // cyan
		{43, 40, 60, 120},    // dim blue
		{45, 0, 100, 255},    // blue
		{49, 150, 0, 200},    // purple
		{53, 255, 80, 180},   // pink
		{97, 180, 180, 60},   // dim yellow
		{119, 255, 255, 255}, // white
	}

	best := uint8(0)
	bestDist := 1 << 30
	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range palette {
		dr, dg, db := r-int(p[1]), g-int(p[2]), b-int(p[3])
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			bestDist = d
			best = p[0]
		}
	}
	return best
}

// Launchpad X programmer layout: row 0 (bottom) is notes 11-18, row 7 is
// 81-88. Pads use rows 0-3, cols 0-3, with pad 0 at the top-left.

func padToNote(pad int) (uint8, bool) {
	if pad < 0 || pad >= 16 {
		return 0, false
	}
	row := 3 - pad/4
	col := pad % 4
	return uint8((row+1)*10 + col + 1), true
}

func noteToPad(note uint8) int {
	row := int(note/10) - 1
	col := int(note%10) - 1
	if row < 0 || row > 3 || col < 0 || col > 3 {
		return -1
	}
	return (3-row)*4 + col
}

func ccToButton(cc uint8) Button {
	if cc < 91 || cc > 98 {
		return ButtonNone
	}
	return topButtons[cc-91]
}
