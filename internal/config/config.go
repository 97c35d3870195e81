// Package config loads the run configuration of the boids binaries from a
// JSON or YAML file, validated against an embedded JSON Schema.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

//go:embed boids.schema.json
var schemaJSON string

const schemaURL = "boids.schema.json"

// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Config is the full configuration of one run: the flocking rules plus the
// settings of the binaries that drive them.
type Config struct {
	Flock flock.Config `json:"flock"`

	// Seed of the random source. 0 asks the binaries for a time-based seed.
	Seed        uint64 `json:"seed"`
	SpatialGrid bool   `json:"spatialGrid"`
	FixedTPS    int    `json:"fixedTps"` // 0 ticks once per frame

	Display   Display   `json:"display"`
	Telemetry Telemetry `json:"telemetry"`
	Stream    Stream    `json:"stream"`
}

// Display configures the window or terminal the flock is drawn in.
type Display struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FPS        int    `json:"fps"`
	Title      string `json:"title"`
	Debug      bool   `json:"debug"`
	Background string `json:"background"` // "#rrggbb", empty for none
}

// Telemetry configures the per-window flock statistics.
type Telemetry struct {
	Path   string `json:"path"`   // CSV output, empty to disable
	Window int    `json:"window"` // Ticks per row
}

// Stream configures the websocket frame server.
type Stream struct {
	Addr       string `json:"addr"`
	SendBuffer int    `json:"sendBuffer"` // Frames queued per client before dropping
}

// Default returns a runnable configuration.
func Default() *Config {
	return &Config{
		Flock: flock.DefaultConfig(),
		Display: Display{
			Width:  1024,
			Height: 768,
			FPS:    60,
			Title:  "Boids",
		},
		Telemetry: Telemetry{Window: 60},
		Stream:    Stream{Addr: ":8080", SendBuffer: 4},
	}
}

// Load reads configFile over Default. The format follows the extension:
// .json, .yaml or .yml.
func Load(configFile string) (*Config, error) {
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(b, filepath.Ext(configFile))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configFile, err)
	}
	return cfg, nil
}

// Parse decodes data of the given format (".json", ".yaml", ".yml") over
// Default and validates the result.
func Parse(data []byte, format string) (*Config, error) {
	// 1. Normalise to JSON
	var raw []byte
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		raw = data
	case "yaml", "yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode config yaml: %w", err)
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert yaml to json: %w", err)
		}
		raw = b
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	// 2. Schema
	sch, err := jsonschema.CompileString(schemaURL, schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 3. Over the defaults
	cfg := Default()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the rules the schema cannot express, plus everything a
// command-line override may have broken.
func (c *Config) Validate() error {
	err := c.Flock.Validate()
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: display must be at least 1x1, got %dx%d",
			flock.ErrInvalidConfig, c.Display.Width, c.Display.Height))
	}
	if c.Display.FPS <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: display.fps must be > 0, got %d", flock.ErrInvalidConfig, c.Display.FPS))
	}
	if _, _, bgErr := c.Display.BackgroundColor(); bgErr != nil {
		err = multierr.Append(err, bgErr)
	}
	if c.FixedTPS < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: fixedTps must be >= 0, got %d", flock.ErrInvalidConfig, c.FixedTPS))
	}
	if c.Telemetry.Window <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: telemetry.window must be > 0, got %d", flock.ErrInvalidConfig, c.Telemetry.Window))
	}
	if c.Stream.SendBuffer <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: stream.sendBuffer must be > 0, got %d", flock.ErrInvalidConfig, c.Stream.SendBuffer))
	}
	return err
}

// BackgroundColor parses Background. ok is false when no background is set.
func (d Display) BackgroundColor() (c color.NRGBA, ok bool, err error) {
	if d.Background == "" {
		return color.NRGBA{}, false, nil
	}
	hex, found := strings.CutPrefix(d.Background, "#")
	if !found || len(hex) != 6 {
		return color.NRGBA{}, false, fmt.Errorf("%w: display.background %q is not #rrggbb", flock.ErrInvalidConfig, d.Background)
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false, fmt.Errorf("%w: display.background %q: %v", flock.ErrInvalidConfig, d.Background, err)
	}
	return color.NRGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff}, true, nil
}

// String renders the configuration as indented JSON for logs.
func (c *Config) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("config(%v)", err)
	}
	return string(b)
}
