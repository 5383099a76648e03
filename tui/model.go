package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"klangroom/midi"
	"klangroom/sample"
	"klangroom/sequencer"
	"klangroom/theme"
	"klangroom/widgets"
)

// how many free events the list shows
const freeListLen = 8

type Model struct {
	Manager   *sequencer.Manager
	DeviceMgr *midi.DeviceManager // nil runs without MIDI
	Theme     *theme.Theme

	selected  int     // index into the sorted sample list
	chopStart float64 // seconds
	chopLen   float64 // seconds, 0 plays to the end
	assigning bool    // next pad key assigns the chop
	cue       float64 // seconds into the loop that g plays from
	showHelp  bool
	status    string
	devices   []string
	quitting  bool
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(manager *sequencer.Manager, deviceMgr *midi.DeviceManager, th *theme.Theme) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Manager:   manager,
		DeviceMgr: deviceMgr,
		Theme:     th,
	}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event := <-deviceMgr.Events()
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Manager),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			m.Manager.SetController(event.Controller)
			m.devices = append(m.devices, event.ID)
			m.status = "connected " + event.ID
		case midi.DeviceDisconnected:
			m.Manager.RemoveController(event.ID)
			m.devices = slices.DeleteFunc(m.devices, func(id string) bool { return id == event.ID })
			m.status = "disconnected " + event.ID
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	mgr := m.Manager
	m.status = ""

	if m.assigning {
		m.assigning = false
		if pad, ok := PadForKey(key); ok {
			m.assignChop(pad)
		}
		return m, nil
	}
	if pad, ok := PadForKey(key); ok {
		if mgr.TriggerPad(pad) == nil {
			m.status = fmt.Sprintf("pad %s is empty", KeyForPad(pad))
		}
		return m, nil
	}

	switch key {
	case "ctrl+c", "Q":
		m.quitting = true
		return m, tea.Quit

	case " ":
		if !mgr.TogglePlayback() && mgr.Recorder.Track().Len() == 0 {
			m.status = "nothing recorded"
		}

	case "g":
		if !mgr.PlayFrom(m.cue) {
			m.status = fmt.Sprintf("nothing recorded after %.2fs", m.cue)
		}
	case ",", ".":
		m.moveCue(key == ".")

	case "tab":
		wasArmed := mgr.Recorder.IsArmed()
		if !mgr.ToggleRecording() && !wasArmed {
			m.status = "recording needs an audio clock"
		}

	case "L":
		mgr.ToggleLoop()
	case "M":
		mgr.ToggleMode()
	case "C":
		mgr.ClearTrack()
	case "K":
		mgr.ToggleMetronome()
	case "esc":
		mgr.StopAll()

	case "+", "=":
		m.report(mgr.SetTempo(mgr.Settings.BPM() + 5))
	case "-", "_":
		m.report(mgr.SetTempo(mgr.Settings.BPM() - 5))
	case "]":
		m.report(mgr.SetBars(mgr.Settings.Bars() + 1))
	case "[":
		m.report(mgr.SetBars(mgr.Settings.Bars() - 1))
	case ">", "<":
		m.report(mgr.SetQuantization(cycleQuantization(mgr.Settings.Quantization(), key == ">")))

	case "n", "p":
		if n := mgr.Samples.Len(); n > 0 {
			step := 1
			if key == "p" {
				step = n - 1
			}
			m.selected = (m.selected + step) % n
			m.chopStart, m.chopLen = 0, 0
		}
	case "h", "l":
		m.moveChop(key == "l")
	case "j", "k":
		m.resizeChop(key == "k")

	case "P":
		smp := m.currentSample()
		if smp == nil {
			m.status = "no sample loaded"
			break
		}
		mgr.TogglePreview(smp.ID, m.chopStart, m.chopLen)

	case "A":
		if m.currentSample() == nil {
			m.status = "no sample loaded"
		} else {
			m.assigning = true
		}

	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// moveCue steps the cue point by one bar, staying inside the loop.
func (m *Model) moveCue(forward bool) {
	s := m.Manager.Settings
	bar := s.TrackDuration() / float64(s.Bars())
	next := m.cue - bar
	if forward {
		next = m.cue + bar
	}
	if next < 0 || next >= s.TrackDuration()-1e-9 {
		return
	}
	m.cue = next
}

func (m *Model) report(err error) {
	if err != nil {
		m.status = err.Error()
	}
}

// cycleQuantization steps through the offered grid resolutions.
func cycleQuantization(q int, up bool) int {
	qs := sequencer.Quantizations
	i := slices.Index(qs, q)
	switch {
	case i < 0:
		return sequencer.DefaultQuantization
	case up:
		return qs[min(i+1, len(qs)-1)]
	default:
		return qs[max(i-1, 0)]
	}
}

func (m Model) currentSample() *sample.Sample {
	list := m.Manager.Samples.List()
	if len(list) == 0 {
		return nil
	}
	return list[min(m.selected, len(list)-1)]
}

// chopStep is one grid step, so chops line up with recorded steps.
func (m Model) chopStep() float64 {
	return m.Manager.Settings.Grid().SecondsPerStep()
}

func (m *Model) moveChop(forward bool) {
	smp := m.currentSample()
	if smp == nil {
		return
	}
	step := m.chopStep()
	if !forward {
		step = -step
	}
	start := m.chopStart + step
	if start < 0 || start >= smp.Duration() {
		return
	}
	m.chopStart = start
	if m.chopLen > 0 && m.chopStart+m.chopLen > smp.Duration() {
		m.chopLen = smp.Duration() - m.chopStart
	}
}

func (m *Model) resizeChop(longer bool) {
	smp := m.currentSample()
	if smp == nil {
		return
	}
	rest := smp.Duration() - m.chopStart
	length := m.chopLen
	if length == 0 {
		length = rest
	}
	if longer {
		length += m.chopStep()
	} else {
		length -= m.chopStep()
	}
	switch {
	case length >= rest:
		m.chopLen = 0
	case length <= 0:
		// keep the shortest chop
	default:
		m.chopLen = length
	}
}

func (m *Model) assignChop(pad int) {
	smp := m.currentSample()
	if smp == nil {
		return
	}
	if err := m.Manager.AssignChop(pad, smp.ID, m.chopStart, m.chopLen); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("%s -> pad %s", smp.Name, KeyForPad(pad))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	th := m.Theme
	mgr := m.Manager

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	recStyle := lipgloss.NewStyle().Foreground(th.Active()).Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(th.Warning())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(m.header(headerStyle, recStyle))
	out.WriteString("\n")
	out.WriteString(m.positionBar(dimStyle))
	out.WriteString("\n\n")
	out.WriteString(m.padGrid())
	out.WriteString("\n\n")
	if mgr.Recorder.Mode() == sequencer.Free {
		out.WriteString(m.freeList(dimStyle))
	} else {
		out.WriteString(m.stepGrid(dimStyle))
	}
	out.WriteString("\n\n")
	out.WriteString(m.sampleList(dimStyle))

	if m.status != "" {
		out.WriteString("\n\n")
		out.WriteString(statusStyle.Render(m.status))
	}
	out.WriteString("\n\n")
	if m.showHelp {
		out.WriteString(m.padLegend())
		out.WriteString("\n\n")
		out.WriteString(widgets.RenderKeyHelp(helpSections()))
	} else {
		out.WriteString(dimStyle.Render("pads:1234/qwer/asdf/zxcv  space:play  P:preview  tab:rec  L:loop  M:mode  +/-:tempo  A:assign  ?:help  Q:quit"))
	}
	return out.String()
}

func (m Model) header(style, rec lipgloss.Style) string {
	mgr := m.Manager
	transport := "STOP"
	if mgr.Player.IsPlaying() {
		transport = "PLAY"
	}
	loop := "once"
	if mgr.Player.LoopEnabled() {
		loop = "loop"
	}
	line := style.Render(fmt.Sprintf("klangroom  %s  %s  %s  %.0fbpm  %d bars  1/%d",
		transport, loop, mgr.Recorder.Mode(),
		mgr.Settings.BPM(), mgr.Settings.Bars(), mgr.Settings.Quantization()))
	if mgr.Recorder.IsArmed() {
		line += "  " + rec.Render("REC")
	}
	if mgr.Metronome.Running() {
		line += "  " + style.Render("click")
	}
	if len(m.devices) > 0 {
		line += "  " + style.Render(strings.Join(m.devices, ", "))
	}
	return line
}

func (m Model) positionBar(dim lipgloss.Style) string {
	p := m.Manager.Player
	dur := p.TrackDuration()
	pos := p.Position()
	frac := 0.0
	if dur > 0 {
		frac = pos / dur
	}
	bar := widgets.RenderProgress(frac, 32, m.Theme.Symbols.BarFull, m.Theme.Symbols.BarEmpty)
	line := fmt.Sprintf("%s %5.2fs / %.2fs", bar, pos, dur)
	if m.cue > 0 {
		line += fmt.Sprintf("  cue %.2fs", m.cue)
	}
	return dim.Render(line)
}

func (m Model) padLegend() string {
	sym := m.Theme.Symbols
	return strings.Join([]string{
		widgets.RenderLegendItem(m.Theme.RGB(theme.RoleMuted), sym.PadEmpty, "empty", "no chop assigned"),
		widgets.RenderLegendItem(sequencer.LEDAssigned, sym.PadAssigned, "assigned", "chop ready"),
		widgets.RenderLegendItem(sequencer.LEDPlaying, sym.PadPlaying, "playing", "sounding now"),
		widgets.RenderLegendItem(sequencer.LEDArmed, sym.PadPlaying, "recording", "sounding while armed"),
	}, "\n")
}

func (m Model) padGrid() string {
	mgr := m.Manager
	colors := mgr.PadColors()
	active := mgr.Engine.ActivePads()
	sym := m.Theme.Symbols
	current := m.currentSample()

	pads := make([]widgets.Pad, sequencer.NumPads)
	for i := range pads {
		a, assigned := mgr.Pads.Get(i)
		p := widgets.Pad{Color: colors[i], Symbol: sym.PadEmpty, Label: KeyForPad(i)}
		switch {
		case active[i]:
			p.Symbol = sym.PadPlaying
		case assigned:
			p.Symbol = sym.PadAssigned
		default:
			p.Color = m.Theme.RGB(theme.RoleMuted)
		}
		p.Selected = assigned && current != nil && a.SampleID == current.ID
		pads[i] = p
	}
	return widgets.RenderPadGrid(pads, 4)
}

func (m Model) stepGrid(dim lipgloss.Style) string {
	mgr := m.Manager
	total := mgr.Settings.TotalSteps()
	steps := mgr.Recorder.Steps()
	if len(steps) == 0 {
		return dim.Render("no quantized events")
	}

	playhead := -1
	if mgr.Player.IsPlaying() {
		playhead = int(mgr.Player.Position() / mgr.Settings.Grid().SecondsPerStep())
	}
	sym := widgets.StepSymbols{
		Empty:    m.Theme.Symbols.StepEmpty,
		Active:   m.Theme.Symbols.StepActive,
		Held:     m.Theme.Symbols.StepHeld,
		Playhead: m.Theme.Symbols.StepPlayhead,
	}

	rows := make(map[int][]int)
	for _, e := range steps {
		if e.Start >= total {
			continue
		}
		if rows[e.Pad] == nil {
			rows[e.Pad] = make([]int, total)
		}
		rows[e.Pad][e.Start] = max(rows[e.Pad][e.Start], e.Duration)
	}
	pads := make([]int, 0, len(rows))
	for pad := range rows {
		pads = append(pads, pad)
	}
	slices.Sort(pads)

	lines := make([]string, 0, len(pads))
	for _, pad := range pads {
		lines = append(lines, fmt.Sprintf("%-2s %s", KeyForPad(pad), widgets.RenderSteps(rows[pad], playhead, sym)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) freeList(dim lipgloss.Style) string {
	events := m.Manager.Recorder.Free()
	if len(events) == 0 {
		return dim.Render("no free events")
	}
	var lines []string
	if len(events) > freeListLen {
		lines = append(lines, dim.Render(fmt.Sprintf("... %d earlier", len(events)-freeListLen)))
		events = events[len(events)-freeListLen:]
	}
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("pad %-2s %7.3fs  %.3fs", KeyForPad(e.Pad), e.Start, e.Duration))
	}
	return strings.Join(lines, "\n")
}

func (m Model) sampleList(dim lipgloss.Style) string {
	list := m.Manager.Samples.List()
	if len(list) == 0 {
		return dim.Render("no samples loaded, pass audio files on the command line")
	}
	sel := min(m.selected, len(list)-1)
	var lines []string
	for i, s := range list {
		marker := "  "
		if i == sel {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s (%.2fs)", marker, s.Name, s.Duration())
		if elapsed, ok := m.Manager.Elapsed(s.ID); ok {
			line += fmt.Sprintf("  %s %.2fs", string(m.Theme.Symbols.StepPlayhead), elapsed)
		}
		lines = append(lines, line)
	}

	length := "to end"
	if m.chopLen > 0 {
		length = fmt.Sprintf("%.3fs", m.chopLen)
	}
	preview := "P:play"
	if smp := list[sel]; m.Manager.Engine.IsPlaying(smp.ID) {
		preview = "P:stop"
	}
	chop := fmt.Sprintf("chop %.3fs + %s  %s", m.chopStart, length, preview)
	if m.assigning {
		chop += "  press a pad key to assign"
	}
	lines = append(lines, dim.Render(chop))
	return strings.Join(lines, "\n")
}
