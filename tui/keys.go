package tui

import (
	"klangroom/sequencer"
	"klangroom/widgets"
)

// padKeys maps the left hand block of a QWERTY keyboard onto the 4x4 pads,
// top row first.
var padKeys = [sequencer.NumPads]string{
	"1", "2", "3", "4",
	"q", "w", "e", "r",
	"a", "s", "d", "f",
	"z", "x", "c", "v",
}

// PadForKey returns the pad a key triggers.
func PadForKey(key string) (int, bool) {
	for pad, k := range padKeys {
		if k == key {
			return pad, true
		}
	}
	return 0, false
}

// KeyForPad returns the key label of pad.
func KeyForPad(pad int) string {
	if pad < 0 || pad >= len(padKeys) {
		return ""
	}
	return padKeys[pad]
}

func helpSections() []widgets.KeySection {
	return []widgets.KeySection{
		{Title: "Pads", Keys: []widgets.KeyBinding{
			{Key: "1234 qwer", Desc: "trigger pads (top two rows)"},
			{Key: "asdf zxcv", Desc: "trigger pads (bottom two rows)"},
			{Key: "esc", Desc: "stop all sound"},
		}},
		{Title: "Transport", Keys: []widgets.KeyBinding{
			{Key: "space", Desc: "play / stop the recording"},
			{Key: ", .", Desc: "move the cue point by a bar"},
			{Key: "g", Desc: "play from the cue point"},
			{Key: "tab", Desc: "arm / disarm recording"},
			{Key: "L", Desc: "toggle loop"},
			{Key: "M", Desc: "quantized / free recording"},
			{Key: "C", Desc: "clear the recording"},
			{Key: "K", Desc: "metronome"},
		}},
		{Title: "Timing", Keys: []widgets.KeyBinding{
			{Key: "+ -", Desc: "tempo"},
			{Key: "[ ]", Desc: "bars"},
			{Key: "< >", Desc: "quantization"},
		}},
		{Title: "Chops", Keys: []widgets.KeyBinding{
			{Key: "n p", Desc: "next / previous sample"},
			{Key: "h l", Desc: "move chop start"},
			{Key: "j k", Desc: "shorter / longer chop"},
			{Key: "P", Desc: "play / stop the chop of the selected sample"},
			{Key: "A + pad", Desc: "assign chop to pad"},
		}},
		{Keys: []widgets.KeyBinding{
			{Key: "?", Desc: "toggle this help"},
			{Key: "Q ctrl+c", Desc: "quit"},
		}},
	}
}
