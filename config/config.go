package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gopkg.in/yaml.v3"

	"drumding/midi"
	"drumding/sequencer"
)

// DefaultPortName is the output the original rig is wired to.
const DefaultPortName = "gord 1"

// InstrumentConfig is one track. A nil Note starts the track unbound.
type InstrumentConfig struct {
	Name string `json:"name" yaml:"name"`
	Note *int   `json:"note,omitempty" yaml:"note,omitempty"`
}

// OutputConfig defines a MIDI output and the channel notes go out on
type OutputConfig struct {
	PortName string `json:"portName" yaml:"portName"`
	Channel  int    `json:"channel" yaml:"channel"` // 1-16
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette  string `json:"palette,omitempty" yaml:"palette,omitempty"` // GIMP .gpl file
	FullView bool   `json:"fullView,omitempty" yaml:"fullView,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Kit         string             `json:"kit" yaml:"kit"`
	Instruments []InstrumentConfig `json:"instruments,omitempty" yaml:"instruments,omitempty"`
	Outputs     []OutputConfig     `json:"outputs" yaml:"outputs"`
	Tempo       int                `json:"tempo" yaml:"tempo"`
	MinTempo    int                `json:"minTempo" yaml:"minTempo"`
	MaxTempo    int                `json:"maxTempo" yaml:"maxTempo"`
	Sections    int                `json:"sections" yaml:"sections"`
	Policy      string             `json:"policy" yaml:"policy"`
	UI          UIConfig           `json:"ui,omitempty" yaml:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Kit: sequencer.DefaultKit,
		Outputs: []OutputConfig{
			{PortName: DefaultPortName, Channel: 1},
		},
		Tempo:    sequencer.DefaultTempo,
		MinTempo: sequencer.DefaultMinTempo,
		MaxTempo: sequencer.DefaultMaxTempo,
		Sections: sequencer.DefaultSections,
		Policy:   "track",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "drumding"), nil
}

// ConfigPath returns the path of the user config: config.yaml when it
// exists, config.json otherwise.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	yml := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(yml); err == nil {
		return yml, nil
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the user config, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a config file. Fields the file leaves out keep their
// defaults. YAML is used for .yaml and .yml, JSON for anything else.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(err,
			fmsg.WithDesc("read config", "Could not read config file "+path),
			ftag.With(ftag.NotFound))
	}

	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fault.Wrap(err,
			fmsg.WithDesc("parse config", "Config file "+path+" is not valid"),
			ftag.With(ftag.InvalidArgument))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fault.Wrap(err, fmsg.With("config "+path))
	}
	return cfg, nil
}

// Save writes the config to the user config path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path in the format its extension implies
func (c *Config) SaveFile(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.With("create config dir"))
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fault.Wrap(err, fmsg.With("encode config"))
	}

	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	if _, ok := sequencer.Kits[c.Kit]; !ok && len(c.Instruments) == 0 {
		return invalid("unknown kit "+c.Kit,
			"Kit must be one of "+strings.Join(sequencer.KitNames(), ", "))
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, inst := range c.Instruments {
		if inst.Name == "" {
			return invalid("empty instrument name", "Every instrument needs a name")
		}
		if seen[inst.Name] {
			return invalid("duplicate instrument "+inst.Name,
				"Instrument \""+inst.Name+"\" is listed twice")
		}
		seen[inst.Name] = true
		if inst.Note != nil && (*inst.Note < 0 || *inst.Note > 127) {
			return invalid("note out of range for "+inst.Name,
				"Note for \""+inst.Name+"\" must be between 0 and 127")
		}
	}
	for _, out := range c.Outputs {
		if out.Channel < 1 || out.Channel > midi.NumChannels {
			return invalid("channel out of range for "+out.PortName,
				"Channel for \""+out.PortName+"\" must be between 1 and 16")
		}
	}
	if c.MinTempo < 0 || c.MinTempo > c.MaxTempo {
		return invalid("bad tempo range",
			"Tempo range "+strconv.Itoa(c.MinTempo)+"-"+strconv.Itoa(c.MaxTempo)+" is not valid")
	}
	if c.Tempo < c.MinTempo || c.Tempo > c.MaxTempo {
		return invalid("tempo out of range",
			"Tempo "+strconv.Itoa(c.Tempo)+" is outside "+strconv.Itoa(c.MinTempo)+"-"+strconv.Itoa(c.MaxTempo))
	}
	if c.Sections < 0 || c.Sections > sequencer.NumSegments {
		return invalid("sections out of range", "Sections must be between 0 and 4")
	}
	if _, err := sequencer.ParsePolicy(c.Policy); err != nil {
		return err
	}
	return nil
}

func invalid(msg, issue string) error {
	return fault.New(msg, fmsg.WithDesc(msg, issue), ftag.With(ftag.InvalidArgument))
}

// InstrumentList returns the track list: the configured instruments when
// any are given, the kit otherwise. A configured instrument without a note
// takes the kit's note for the same name, if there is one.
func (c *Config) InstrumentList() []sequencer.Instrument {
	kit, _ := sequencer.GetKit(c.Kit)
	if len(c.Instruments) == 0 {
		return kit
	}
	defaults := make(map[string]int, len(kit))
	for _, inst := range kit {
		defaults[inst.Name] = inst.Note
	}

	out := make([]sequencer.Instrument, 0, len(c.Instruments))
	for _, ic := range c.Instruments {
		inst := sequencer.Instrument{Name: ic.Name, Note: sequencer.NoNote}
		if ic.Note != nil {
			inst.Note = *ic.Note
		} else if n, ok := defaults[ic.Name]; ok {
			inst.Note = n
		}
		out = append(out, inst)
	}
	return out
}

// OutputSpecs converts the outputs for the port manager (channels 0-15).
func (c *Config) OutputSpecs() []midi.OutputSpec {
	specs := make([]midi.OutputSpec, 0, len(c.Outputs))
	for _, out := range c.Outputs {
		specs = append(specs, midi.OutputSpec{PortName: out.PortName, Channel: uint8(out.Channel - 1)})
	}
	return specs
}

// SequencerOptions builds sequencer options from the config.
func (c *Config) SequencerOptions() (sequencer.Options, error) {
	policy, err := sequencer.ParsePolicy(c.Policy)
	if err != nil {
		return sequencer.Options{}, err
	}
	return sequencer.Options{
		Policy:   policy,
		Tempo:    c.Tempo,
		MinTempo: c.MinTempo,
		MaxTempo: c.MaxTempo,
		Sections: c.Sections,
	}, nil
}

// FindOutput finds an output config by port name
func (c *Config) FindOutput(portName string) *OutputConfig {
	for i := range c.Outputs {
		if c.Outputs[i].PortName == portName {
			return &c.Outputs[i]
		}
	}
	return nil
}

// AddOutput adds or updates an output config
func (c *Config) AddOutput(out OutputConfig) {
	for i := range c.Outputs {
		if c.Outputs[i].PortName == out.PortName {
			c.Outputs[i] = out
			return
		}
	}
	c.Outputs = append(c.Outputs, out)
}
