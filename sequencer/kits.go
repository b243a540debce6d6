package sequencer

// Kit is a named instrument list with default notes, in track order.
type Kit struct {
	Name        string
	Instruments []Instrument
}

// Kits contains all built-in instrument sets
var Kits = map[string]Kit{
	"drumding": {
		Name: "Drumding 16",
		Instruments: []Instrument{
			{"crash1", 48},
			{"china", 51},
			{"tom3", 46},
			{"tom2", 45},
			{"tom 1", 44},
			{"ghosties", 39},
			{"snare", 38},
			{"kick", 36},
			{"crash2", 50},
			{"bell ride", 42},
			{"ping ride", 41},
			{"wash ride", 40},
			{"clamp", NoNote}, // bound by hand
			{"closed hat", 43},
			{"open hat", 47},
			{"aux", NoNote},
		},
	},
	"gm": {
		Name: "General MIDI",
		Instruments: []Instrument{
			{"kick", 36},
			{"snare", 38},
			{"closed hat", 42},
			{"open hat", 46},
			{"low tom", 41},
			{"mid tom", 43},
			{"high tom", 45},
			{"crash", 49},
			{"ride", 51},
			{"clap", 39},
			{"rimshot", 37},
			{"cowbell", 56},
			{"clave", 75},
			{"maracas", 70},
			{"low conga", 64},
			{"high conga", 63},
		},
	},
}

// KitNames returns the list of available kit names
func KitNames() []string {
	return []string{"drumding", "gm"}
}

// GetKit returns a copy of the named kit's instruments.
func GetKit(name string) ([]Instrument, bool) {
	kit, ok := Kits[name]
	if !ok {
		return nil, false
	}
	out := make([]Instrument, len(kit.Instruments))
	copy(out, kit.Instruments)
	return out, true
}

// DefaultKit is the default kit name
const DefaultKit = "drumding"
