package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"drumding/config"
	"drumding/debug"
	"drumding/midi"
	"drumding/sequencer"
	"drumding/theme"
	"drumding/tui"
)

var (
	Version = "dev"

	// Command-line configuration
	flags struct {
		config   string
		port     string
		channel  int
		bpm      int
		policy   string
		log      string
		palette  string
		headless bool
		dryRun   bool
		full     bool
	}
)

var rootCmd = &cobra.Command{
	Use:   "drumding",
	Short: "A 16-track MIDI drum step sequencer for the terminal",
	Long: `drumding plays a grid of drum tracks, each a 64-step pattern in four
16-step segments, to an external MIDI sound module.

Output ports are watched continuously: plug the module in at any time and
playback picks it up. Without a port the sequencer keeps running visually.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDrumding,
}

var initFlags struct {
	port    string
	channel int
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default configuration (YAML or JSON by extension)",
	Long: `Writes the default configuration to path, or to the user config file
(~/.config/drumding/config.yaml if present, else config.json).
--port adds an output, or changes the channel of one already listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		if initFlags.port != "" {
			cfg.AddOutput(config.OutputConfig{PortName: initFlags.port, Channel: initFlags.channel})
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		path := ""
		if len(args) == 1 {
			path = args[0]
			if err := cfg.SaveFile(path); err != nil {
				return err
			}
		} else {
			if err := cfg.Save(); err != nil {
				return err
			}
			path, _ = config.ConfigPath()
		}
		fmt.Println("wrote", path)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flags.config, "config", "c", "",
		"Config file (.json, .yaml); default ~/.config/drumding/config.{yaml,json}")
	rootCmd.Flags().StringVarP(&flags.port, "port", "p", "",
		"MIDI output port name, replaces the configured outputs")
	rootCmd.Flags().IntVar(&flags.channel, "channel", 1,
		"MIDI channel (1-16) for --port")
	rootCmd.Flags().IntVarP(&flags.bpm, "bpm", "b", 0,
		"Starting tempo in BPM")
	rootCmd.Flags().StringVar(&flags.policy, "policy", "",
		"Step cursor policy: track (per-track cursors) or global (shared counter)")
	rootCmd.Flags().StringVarP(&flags.log, "log", "l", "",
		"Write debug logs to specified file (empty disables)")
	rootCmd.Flags().StringVar(&flags.palette, "palette", "",
		"GIMP .gpl palette to color the grid")
	rootCmd.Flags().BoolVar(&flags.headless, "headless", false,
		"Play without the UI until interrupted")
	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false,
		"Do not open MIDI ports; log messages instead")
	rootCmd.Flags().BoolVar(&flags.full, "full", false,
		"Start in full (64-step) view")

	initConfigCmd.Flags().StringVarP(&initFlags.port, "port", "p", "",
		"Output port to add to the written config")
	initConfigCmd.Flags().IntVar(&initFlags.channel, "channel", 1,
		"MIDI channel (1-16) for --port")

	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	err := rootCmd.Execute()
	gomidi.CloseDriver()
	if err != nil {
		issue := fmsg.GetIssue(err)
		if issue == "" {
			issue = err.Error()
		}
		fmt.Fprintln(os.Stderr, "drumding:", issue)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.config != "" {
		cfg, err = config.LoadFile(flags.config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if flags.port != "" {
		out := config.OutputConfig{PortName: flags.port, Channel: flags.channel}
		// A port already in the config keeps its channel unless --channel says otherwise
		if known := cfg.FindOutput(flags.port); known != nil && !cmd.Flags().Changed("channel") {
			out.Channel = known.Channel
		}
		cfg.Outputs = []config.OutputConfig{out}
	} else if cmd.Flags().Changed("channel") {
		for i := range cfg.Outputs {
			cfg.Outputs[i].Channel = flags.channel
		}
	}
	if cmd.Flags().Changed("bpm") {
		cfg.Tempo = flags.bpm
	}
	if flags.policy != "" {
		cfg.Policy = flags.policy
	}
	if flags.palette != "" {
		cfg.UI.Palette = flags.palette
	}
	if flags.full {
		cfg.UI.FullView = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fault.Wrap(err, fmsg.With("command line"))
	}
	return cfg, nil
}

func runDrumding(cmd *cobra.Command, args []string) error {
	if flags.log != "" {
		if err := debug.Enable(flags.log); err != nil {
			return err
		}
		defer debug.Disable()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts, err := cfg.SequencerOptions()
	if err != nil {
		return err
	}
	seq, err := sequencer.New(cfg.InstrumentList(), opts)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create MIDI device manager (handles hot-plug)
	var deviceMgr *midi.DeviceManager
	if flags.dryRun {
		seq.SetSink(midi.LogSink{})
	} else {
		deviceMgr = midi.NewDeviceManager(cfg.OutputSpecs())
		seq.SetSink(deviceMgr.Sink())
		go deviceMgr.Run(ctx)
		// Deferred before seq.Stop so the ports close after its burst
		defer deviceMgr.Close()
	}
	debug.Log("config", "%d tracks, %d bpm, policy %s", seq.Len(), seq.Tempo(), seq.Policy())

	// Stop always sends all-notes-off, so nothing is left hanging on exit
	defer seq.Stop()

	if flags.headless {
		seq.Play()
		fmt.Printf("drumding: playing %d tracks at %d bpm, ctrl+c to stop\n", seq.Len(), seq.Tempo())
		<-ctx.Done()
		return nil
	}

	palette := theme.DefaultPalette()
	if cfg.UI.Palette != "" {
		if palette, err = theme.LoadGPL(cfg.UI.Palette); err != nil {
			return err
		}
	}

	m := tui.NewModel(seq, deviceMgr, theme.New(palette), cfg.UI.FullView)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fault.Wrap(err, fmsg.With("run ui"))
	}
	return nil
}
