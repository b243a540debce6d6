package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"drumding/config"
	"drumding/midi"
)

var (
	portName string
	channel  int
	velocity int
	length   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "miditest",
	Short: "MIDI output checks for drumding",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all MIDI output ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("=== MIDI Output Ports ===")
		fmt.Println("(waiting up to 3 seconds...)")

		ch := make(chan []drivers.Out, 1)
		go func() {
			ch <- gomidi.GetOutPorts()
		}()

		select {
		case outs := <-ch:
			names := make([]string, len(outs))
			for i, p := range outs {
				names[i] = p.String()
			}
			match := midi.MatchPort(names, portName)
			for i, p := range outs {
				mark := " "
				if i == match {
					mark = "*"
				}
				fmt.Printf(" %s%d: %s\n", mark, i, p.String())
			}
		case <-time.After(3 * time.Second):
			fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
			fmt.Println("Fix: sudo killall coreaudiod midiserver")
		}
		return nil
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <number>",
	Short: "Send one note to the output port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var note int
		if _, err := fmt.Sscan(args[0], &note); err != nil || note < 0 || note > 127 {
			return fmt.Errorf("note must be 0-127, got %q", args[0])
		}
		out, err := open()
		if err != nil {
			return err
		}
		defer out.Close()

		fmt.Printf("note %d vel %d on %s ch %d\n", note, velocity, out.Name(), channel)
		if err := out.NoteOn(uint8(note), uint8(velocity)); err != nil {
			return err
		}
		time.Sleep(length)
		return out.NoteOff(uint8(note), uint8(velocity))
	},
}

var panicCmd = &cobra.Command{
	Use:   "panic",
	Short: "Send all-notes-off on all 16 channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := open()
		if err != nil {
			return err
		}
		defer out.Close()

		for ch := uint8(0); ch < midi.NumChannels; ch++ {
			if err := out.ControlChange(ch, midi.ControllerAllNotesOff, 0); err != nil {
				return err
			}
		}
		fmt.Println("all notes off sent to", out.Name())
		return nil
	},
}

func open() (*midi.Output, error) {
	if channel < 1 || channel > midi.NumChannels {
		return nil, fmt.Errorf("channel must be 1-16, got %d", channel)
	}
	port, err := midi.FindOutPort(portName)
	if err != nil {
		return nil, err
	}
	return midi.OpenOutput(port, uint8(channel-1))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", config.DefaultPortName,
		"MIDI output port name (exact or prefix)")
	rootCmd.PersistentFlags().IntVarP(&channel, "channel", "c", 1, "MIDI channel 1-16")
	noteCmd.Flags().IntVar(&velocity, "velocity", 100, "note velocity")
	noteCmd.Flags().DurationVar(&length, "length", 200*time.Millisecond, "time between note-on and note-off")

	rootCmd.AddCommand(listCmd, noteCmd, panicCmd)
}

func main() {
	err := rootCmd.Execute()
	gomidi.CloseDriver()
	if err != nil {
		os.Exit(1)
	}
}
