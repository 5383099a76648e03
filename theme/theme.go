package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Pads
	PadEmpty    rune // □ nothing assigned
	PadAssigned rune // ■ has a chop
	PadPlaying  rune // ● sounding

	// Step grid
	StepEmpty    rune // · no hit
	StepActive   rune // ● hit starts here
	StepHeld     rune // ─ hit still sounding
	StepPlayhead rune // ▶ current step

	// Position bar
	BarFull  rune // █
	BarEmpty rune // ░
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			PadEmpty:    '□',
			PadAssigned: '■',
			PadPlaying:  '●',

			StepEmpty:    '·',
			StepActive:   '●',
			StepHeld:     '─',
			StepPlayhead: '▶',

			BarFull:  '█',
			BarEmpty: '░',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // near black
	RoleSurface = 0.1 // dark indigo
	RoleMuted   = 0.2 // slate purple
	RoleFG      = 0.4 // pale lavender (readable)
	RoleAccent  = 0.5 // sky blue
	RoleCursor  = 0.6 // mint
	RoleActive  = 0.7 // red, recording
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // pale yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// Hex returns the lipgloss color for a raw RGB value (pad LED colors)
func (t *Theme) Hex(c [3]uint8) lipgloss.Color {
	return rgbToLipgloss(RGB(c))
}

// RGB returns raw RGB for any normalized value (for Launchpad)
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
