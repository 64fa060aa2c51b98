package gammaimg

import (
	"fmt"
	"os"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"
)

// Vec3 is a vector written as a three element YAML sequence.
type Vec3 [3]Real

func (v Vec3) Vector() r3.Vector { return r3.Vector{X: v[0], Y: v[1], Z: v[2]} }

type GridCfg struct {
	Min  Vec3   `yaml:"min"`
	Max  Vec3   `yaml:"max"`
	Bins [3]int `yaml:"bins"`
}

// TableCfg holds measured response curves; angles in degrees.
type TableCfg struct {
	TransDeg    []Real `yaml:"transDeg"`
	TransValues []Real `yaml:"transValues"`
	LongDeg     []Real `yaml:"longDeg,omitempty"`
	LongValues  []Real `yaml:"longValues,omitempty"`
	PairDeg     []Real `yaml:"pairDeg,omitempty"`
	PairValues  []Real `yaml:"pairValues,omitempty"`
}

type ResponseCfg struct {
	Kind          string   `yaml:"kind"` // gaussian | band | tabulated
	TransSigmaDeg Real     `yaml:"transSigmaDeg,omitempty"`
	LongSigmaDeg  Real     `yaml:"longSigmaDeg,omitempty"`
	PairSigmaDeg  Real     `yaml:"pairSigmaDeg,omitempty"`
	Cutoff        Real     `yaml:"cutoff,omitempty"`
	BandMinDeg    Real     `yaml:"bandMinDeg,omitempty"`
	BandMaxDeg    Real     `yaml:"bandMaxDeg,omitempty"`
	PairMaxDeg    Real     `yaml:"pairMaxDeg,omitempty"`
	Value         Real     `yaml:"value,omitempty"`
	Table         TableCfg `yaml:"table,omitempty"`
}

type ComptonCfg struct {
	Axis   Vec3  `yaml:"axis"`
	Apex   Vec3  `yaml:"apex"`
	PhiDeg Real  `yaml:"phiDeg"`
	Origin *Vec3 `yaml:"origin,omitempty"` // present => tracked event
}

type PairCfg struct {
	Position Vec3 `yaml:"position"`
	Origin   Vec3 `yaml:"origin"`
}

type EventsCfg struct {
	Compton []ComptonCfg `yaml:"compton"`
	Pair    []PairCfg    `yaml:"pair"`
}

type SkyCfg struct {
	Enabled   bool   `yaml:"enabled"`
	Bins      int    `yaml:"bins,omitempty"`
	ShiftDeg  Real   `yaml:"shiftDeg,omitempty"`
	FISBELOut string `yaml:"fisbelOut,omitempty"`
	MapOut    string `yaml:"mapOut,omitempty"`
	PNGOut    string `yaml:"pngOut,omitempty"`
	Width     int    `yaml:"width,omitempty"`
	Height    int    `yaml:"height,omitempty"`
}

type OutputCfg struct {
	Raw       string `yaml:"raw,omitempty"`
	PNGPrefix string `yaml:"pngPrefix,omitempty"`
	GIF       string `yaml:"gif,omitempty"`
	GIFDelay  int    `yaml:"gifDelay,omitempty"`
	Gamma     Real   `yaml:"gamma,omitempty"`
}

type Config struct {
	Grid      GridCfg     `yaml:"grid"`
	Response  ResponseCfg `yaml:"response"`
	Mode      string      `yaml:"mode,omitempty"`
	SkipAhead *bool       `yaml:"skipAhead,omitempty"`
	Workers   int         `yaml:"workers,omitempty"`
	Sky       SkyCfg      `yaml:"sky"`
	Events    EventsCfg   `yaml:"events"`
	Output    OutputCfg   `yaml:"output"`
}

// Build validates the grid section.
func (c GridCfg) Build() (*Grid, error) {
	return NewGrid(c.Min.Vector(), c.Max.Vector(), c.Bins[0], c.Bins[1], c.Bins[2])
}

// Build constructs the response model; widths are converted to radians.
func (c ResponseCfg) Build() (Response, error) {
	switch c.Kind {
	case "", "gaussian":
		cutoff := c.Cutoff
		if cutoff <= 0 {
			cutoff = 3
		}
		return NewGaussianResponse(deg2rad(c.TransSigmaDeg), deg2rad(c.LongSigmaDeg), deg2rad(c.PairSigmaDeg), cutoff)
	case "band":
		return NewBandResponse(deg2rad(c.BandMinDeg), deg2rad(c.BandMaxDeg), deg2rad(c.PairMaxDeg), c.Value)
	case "tabulated":
		t := c.Table
		return NewTabulatedResponse(degs(t.TransDeg), t.TransValues, degs(t.LongDeg), t.LongValues, degs(t.PairDeg), t.PairValues)
	}
	return nil, fmt.Errorf("unknown response kind %q", c.Kind)
}

func degs(in []Real) []Real {
	if len(in) == 0 {
		return nil
	}
	out := make([]Real, len(in))
	for i, d := range in {
		out[i] = deg2rad(d)
	}
	return out
}

// Build converts the event list; Compton cones come first, then pair events.
func (c EventsCfg) Build() ([]Event, error) {
	events := make([]Event, 0, len(c.Compton)+len(c.Pair))
	for i, ec := range c.Compton {
		ev, err := NewComptonEvent(ec.Axis.Vector(), ec.Apex.Vector(), deg2rad(ec.PhiDeg))
		if err != nil {
			return nil, fmt.Errorf("compton event #%d: %w", i, err)
		}
		if ec.Origin != nil {
			ev.WithTrack(ec.Origin.Vector())
			if err := ev.Validate(); err != nil {
				return nil, fmt.Errorf("compton event #%d: %w", i, err)
			}
		}
		events = append(events, ev)
	}
	for i, pc := range c.Pair {
		ev, err := NewPairEvent(pc.Position.Vector(), pc.Origin.Vector())
		if err != nil {
			return nil, fmt.Errorf("pair event #%d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Options resolves the raster mode and skip-ahead flag.
func (c *Config) Options() (Options, error) {
	mode, err := ParseRasterMode(c.Mode)
	if err != nil {
		return Options{}, err
	}
	skip := true
	if c.SkipAhead != nil {
		skip = *c.SkipAhead
	}
	return Options{Mode: mode, SkipAhead: skip}, nil
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if len(cfg.Events.Compton)+len(cfg.Events.Pair) == 0 {
		return nil, fmt.Errorf("config has no events")
	}
	DebugLog("Loaded config: grid=%v, mode=%q, events=%d compton + %d pair", cfg.Grid.Bins, cfg.Mode, len(cfg.Events.Compton), len(cfg.Events.Pair))
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Grid.Bins == ([3]int{}) {
		cfg.Grid.Bins = [3]int{GridBins, GridBins, GridBins}
	}
	if cfg.Grid.Min == (Vec3{}) && cfg.Grid.Max == (Vec3{}) {
		cfg.Grid.Min = Vec3{-GridHalfSize, -GridHalfSize, -GridHalfSize}
		cfg.Grid.Max = Vec3{GridHalfSize, GridHalfSize, GridHalfSize}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = Workers
	}
	if cfg.Sky.Bins <= 0 {
		cfg.Sky.Bins = SkyBins
	}
	if cfg.Sky.PNGOut == "" {
		cfg.Sky.PNGOut = SkyOut
	}
	if cfg.Sky.Width <= 0 {
		cfg.Sky.Width = SkyWidth
	}
	if cfg.Sky.Height <= 0 {
		cfg.Sky.Height = SkyHeight
	}
	if cfg.Output.Raw == "" {
		cfg.Output.Raw = RawOut
	}
	if cfg.Output.PNGPrefix == "" {
		cfg.Output.PNGPrefix = PNGPrefix
	}
	if cfg.Output.GIF == "" {
		cfg.Output.GIF = GIFOut
	}
	if cfg.Output.GIFDelay <= 0 {
		cfg.Output.GIFDelay = GIFDelay
	}
	if cfg.Output.Gamma <= 0 {
		cfg.Output.Gamma = Gamma
	}
}
