package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPad renders a single colored pad
func RenderPad(color [3]uint8, symbol rune) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render(string(symbol))
}

// Pad is one cell of a pad grid
type Pad struct {
	Color    [3]uint8
	Symbol   rune
	Label    string // key or note name shown next to the pad
	Selected bool
}

// RenderPadGrid renders pads in rows of cols, first pad at the top left
func RenderPadGrid(pads []Pad, cols int) string {
	if cols <= 0 {
		cols = 4
	}
	var lines []string
	for start := 0; start < len(pads); start += cols {
		var line strings.Builder
		for i := start; i < start+cols && i < len(pads); i++ {
			p := pads[i]
			l, r := " ", " "
			if p.Selected {
				l, r = "[", "]"
			}
			line.WriteString(l)
			line.WriteString(RenderPad(p.Color, p.Symbol))
			line.WriteString(fmt.Sprintf(" %-2s", p.Label))
			line.WriteString(r)
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// StepSymbols are the runes used by RenderSteps
type StepSymbols struct {
	Empty, Active, Held, Playhead rune
}

// RenderSteps renders one row of a step grid. hits[i] is the length in
// steps of a hit starting at step i, 0 for none. playhead < 0 hides it.
func RenderSteps(hits []int, playhead int, sym StepSymbols) string {
	var out strings.Builder
	held := 0
	for i, n := range hits {
		if i > 0 && i%4 == 0 {
			out.WriteByte(' ')
		}
		switch {
		case i == playhead:
			out.WriteRune(sym.Playhead)
		case n > 0:
			out.WriteRune(sym.Active)
		case held > 0:
			out.WriteRune(sym.Held)
		default:
			out.WriteRune(sym.Empty)
		}
		if n > held {
			held = n
		}
		if held > 0 {
			held--
		}
	}
	return out.String()
}

// RenderProgress renders a bar of width cells filled to frac (0-1)
func RenderProgress(frac float64, width int, full, empty rune) string {
	if width <= 0 {
		return ""
	}
	frac = max(0, min(1, frac))
	n := int(frac*float64(width) + 0.5)
	return strings.Repeat(string(full), n) + strings.Repeat(string(empty), width-n)
}

// RenderLegendItem renders a single legend item: "■ Name - description"
func RenderLegendItem(color [3]uint8, symbol rune, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderPad(color, symbol), name, desc)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
