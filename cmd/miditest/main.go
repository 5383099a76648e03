package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	kmidi "klangroom/midi"
	"klangroom/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		filter := ""
		if len(os.Args) > 2 {
			filter = os.Args[2]
		}
		monitor(filter)
	case "leds":
		testLEDs()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("klangroom MIDI test")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list             - List all MIDI ports")
	fmt.Println("  monitor [filter] - Print pad, button and note events from connected controllers")
	fmt.Println("  leds             - Light the Launchpad pad area")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

// monitor prints what the instrument would see, with keyboard notes
// resolved through the default kit.
func monitor(filter string) {
	fmt.Println("Waiting for controllers. Ctrl+C to exit.")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dm := kmidi.NewDeviceManager(filter, true)
	go dm.Run(ctx)

	kit := sequencer.GetKit(sequencer.DefaultKit)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-dm.Events():
			if ev.Type == kmidi.DeviceDisconnected {
				fmt.Printf("[%s] disconnected %s\n", stamp(), ev.ID)
				continue
			}
			c := ev.Controller
			fmt.Printf("[%s] connected %s (%s)\n", stamp(), c.ID(), c.Type())
			go func() {
				for p := range c.PadEvents() {
					if p.Pad < 0 {
						fmt.Printf("[%s] %s button %d\n", stamp(), c.ID(), p.Button)
						continue
					}
					state := "up"
					if p.Down {
						state = fmt.Sprintf("down vel=%d", p.Velocity)
					}
					fmt.Printf("[%s] %s pad %2d %s\n", stamp(), c.ID(), p.Pad, state)
				}
			}()
			go func() {
				for n := range c.NoteEvents() {
					pad := "-"
					if i, ok := kit.PadForNote(n.Note); ok {
						pad = fmt.Sprint(i)
					}
					fmt.Printf("[%s] %s ch=%d note=%3d on=%v vel=%3d pad=%s\n",
						stamp(), c.ID(), n.Channel, n.Note, n.On, n.Velocity, pad)
				}
			}()
		}
	}
}

func testLEDs() {
	fmt.Println("Testing LED control...")

	var inPort drivers.In
	var outPort drivers.Out
	for _, p := range midi.GetInPorts() {
		if isLaunchpad(p.String()) {
			inPort = p
			break
		}
	}
	for _, p := range midi.GetOutPorts() {
		if isLaunchpad(p.String()) {
			outPort = p
			break
		}
	}
	if inPort == nil || outPort == nil {
		fmt.Println("No Launchpad found")
		return
	}

	lp, err := kmidi.NewLaunchpadController("launchpad", inPort, outPort)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer lp.Close()

	fmt.Println("Lighting the 4x4 pad area...")
	for pad := 0; pad < sequencer.NumPads; pad++ {
		color := [3]uint8{0, 255, 0}
		if pad%5 == 0 {
			color = [3]uint8{255, 0, 0}
		}
		if err := lp.SetPadLED(pad, color); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		time.Sleep(50 * time.Millisecond)
	}

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()

	// Close blanks the pads
	fmt.Println("Done!")
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

func stamp() string {
	return time.Now().Format("15:04:05.000")
}
