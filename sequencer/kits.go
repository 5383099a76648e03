package sequencer

// DrumKit maps the 16 pads to the MIDI notes a drum controller sends.
type DrumKit struct {
	Name  string
	Notes [NumPads]uint8
}

// Kits contains all available note mappings
var Kits = map[string]DrumKit{
	"chromatic": {
		Name: "Chromatic from C2",
		Notes: [NumPads]uint8{
			48, 49, 50, 51,
			44, 45, 46, 47,
			40, 41, 42, 43,
			36, 37, 38, 39,
		},
	},
	"gm": {
		Name: "General MIDI",
		Notes: [NumPads]uint8{
			36, // Kick
			38, // Snare
			42, // Closed HH
			46, // Open HH
			41, // Low Tom
			43, // Mid Tom
			45, // High Tom
			49, // Crash
			51, // Ride
			39, // Clap
			37, // Rimshot
			56, // Cowbell
			75, // Clave
			70, // Maracas
			64, // Low Conga
			63, // High Conga
		},
	},
	"rd8": {
		Name: "Behringer RD-8",
		Notes: [NumPads]uint8{
			36, // Kick (BD)
			40, // Snare (SD) - note: RD-8 uses 40, not 38!
			42, // Closed HH (CH)
			46, // Open HH (OH)
			45, // Low Tom (LT)
			48, // Mid Tom (MT)
			50, // High Tom (HT)
			49, // Crash (CY)
			51, // Ride (RC)
			39, // Clap (CP)
			37, // Rimshot (RS)
			56, // Cowbell (CB)
			75, // Clave (CL)
			70, // Maracas (MA)
			64, // Low Conga (LC)
			63, // High Conga (HC)
		},
	},
	"tr8s": {
		Name: "Roland TR-8S",
		Notes: [NumPads]uint8{
			36, // Kick
			38, // Snare
			42, // Closed HH
			46, // Open HH
			41, // Low Tom
			43, // Mid Tom
			45, // High Tom
			49, // Crash
			51, // Ride
			39, // Clap
			37, // Rimshot
			56, // Cowbell
			75, // Clave
			70, // Maracas
			62, // Low Conga
			63, // High Conga
		},
	},
	"er1": {
		Name: "Korg ER-1",
		Notes: [NumPads]uint8{
			36, // Perc Synth 1 (Kick)
			38, // Perc Synth 2 (Snare)
			42, // Closed HH (PCM)
			46, // Open HH (PCM)
			40, // Perc Synth 3 (Tom)
			41, // Perc Synth 4 (Zap/Cowbell)
			43, // Audio In 1
			49, // Crash (PCM)
			45, // Audio In 2
			39, // Hand Clap (PCM)
			37, // (unused - rimshot placeholder)
			56, // (unused - cowbell placeholder)
			75, // (unused)
			70, // (unused)
			64, // (unused)
			63, // (unused)
		},
	},
}

// KitNames returns the list of available kit names
func KitNames() []string {
	return []string{"chromatic", "gm", "rd8", "tr8s", "er1"}
}

// GetKit returns a kit by name, falling back to DefaultKit
func GetKit(name string) DrumKit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKit]
}

// DefaultKit is the default kit name
const DefaultKit = "chromatic"

// PadForNote returns the pad a note plays. When a kit lists a note twice
// the lower pad wins.
func (k DrumKit) PadForNote(note uint8) (int, bool) {
	for pad, n := range k.Notes {
		if n == note {
			return pad, true
		}
	}
	return -1, false
}
