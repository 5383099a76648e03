package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

func (t ControllerType) String() string {
	switch t {
	case ControllerLaunchpad:
		return "launchpad"
	case ControllerKeyboard:
		return "keyboard"
	}
	return "unknown"
}

// Button is a transport button on a grid controller.
type Button int

const (
	ButtonNone Button = iota
	ButtonPlay
	ButtonRecord
	ButtonLoop
	ButtonMode
	ButtonMetronome
	ButtonClear
	ButtonStop
)

// PadEvent is sent when a pad or transport button is pressed or released
// on a grid controller. Pad is -1 for transport buttons.
type PadEvent struct {
	Pad      int
	Button   Button
	Velocity uint8
	Down     bool
}

// NoteEvent is sent when a note is played on a keyboard
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
	On       bool
}

// LEDUpdate sets one pad LED.
type LEDUpdate struct {
	Pad     int
	Color   [3]uint8
	Channel uint8
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	PadEvents() <-chan PadEvent   // grid controllers
	NoteEvents() <-chan NoteEvent // keyboards

	// LED feedback, no-ops on keyboards
	SetPadLED(pad int, rgb [3]uint8) error
	SetLEDBatch(updates []LEDUpdate) error

	Close() error
}

// Channel modes for LED updates
const (
	ChannelStatic uint8 = 0 // solid color
	ChannelFlash  uint8 = 1 // flashing A/B alternating
	ChannelPulse  uint8 = 2 // pulsing (fades)
)
