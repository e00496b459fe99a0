// Package config loads the camera server settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingName       = errors.New("general.name is required")
	ErrMissingPort       = errors.New("stream.port is required")
	ErrMissingResolution = errors.New("stream.resolution.width and stream.resolution.height are required")
)

type General struct {
	Name string `yaml:"name"`
}

type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Stream struct {
	Port       int        `yaml:"port"`
	Resolution Resolution `yaml:"resolution"`
	Framerate  int        `yaml:"framerate"`
}

// Theme colors are optional, empty values fall back to the defaults.
type Theme struct {
	Background string `yaml:"background"`
	Border     string `yaml:"border"`
}

type Camera struct {
	VideoDevice   string `yaml:"video_device"`
	VideoFilename string `yaml:"video_filename"`
	Encoder       string `yaml:"encoder"`
	Quality       int    `yaml:"quality"`
	Brightness    int    `yaml:"brightness"`
}

// Infrared describes the pin driving the IR illuminator. A negative GPIO
// disables it.
type Infrared struct {
	GPIO      int  `yaml:"gpio"`
	ActiveLow bool `yaml:"active_low"`
}

type HomeKit struct {
	Enabled bool   `yaml:"enabled"`
	Pin     string `yaml:"pin"`
	DataDir string `yaml:"data_dir"`
}

type Storage struct {
	Database      string        `yaml:"database"`
	SnapshotCache time.Duration `yaml:"snapshot_cache"`
}

// Config is the top-level structure of settings.yaml.
type Config struct {
	General  General  `yaml:"general"`
	Stream   Stream   `yaml:"stream"`
	Theme    Theme    `yaml:"theme"`
	Camera   Camera   `yaml:"camera"`
	Infrared Infrared `yaml:"infrared"`
	HomeKit  HomeKit  `yaml:"homekit"`
	Storage  Storage  `yaml:"storage"`
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	cfg := &Config{
		Stream: Stream{Framerate: 24},
		Theme: Theme{
			Background: "rgb(34,34,59)",
			Border:     "rgb(74,78,105)",
		},
		Camera: Camera{
			VideoDevice:   "v4l2",
			VideoFilename: "/dev/video0",
			Encoder:       "mjpeg",
			Quality:       5,
			Brightness:    50,
		},
		Infrared: Infrared{GPIO: -1, ActiveLow: true},
		HomeKit: HomeKit{
			Pin:     "00102003",
			DataDir: "PiStream",
		},
		Storage: Storage{
			Database:      "pistream.sqlite",
			SnapshotCache: 2 * time.Second,
		},
	}

	if runtime.GOOS == "darwin" {
		cfg.Camera.VideoDevice = "avfoundation"
		cfg.Camera.VideoFilename = "default"
	}
	return cfg
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// an explicit empty color in the file means "use the default"
	def := Default()
	if cfg.Theme.Background == "" {
		cfg.Theme.Background = def.Theme.Background
	}
	if cfg.Theme.Border == "" {
		cfg.Theme.Border = def.Theme.Border
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.General.Name == "" {
		return ErrMissingName
	}
	if c.Stream.Port <= 0 || c.Stream.Port > 65535 {
		return ErrMissingPort
	}
	if c.Stream.Resolution.Width <= 0 || c.Stream.Resolution.Height <= 0 {
		return ErrMissingResolution
	}
	if c.Stream.Framerate <= 0 {
		return fmt.Errorf("stream.framerate must be positive, got %d", c.Stream.Framerate)
	}
	if c.Camera.Brightness < 0 || c.Camera.Brightness > 100 {
		return fmt.Errorf("camera.brightness must be in 0..100, got %d", c.Camera.Brightness)
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Stream.Port)
}

// NeedsRestart reports whether switching from c to next changes something
// that is only read at startup.
func (c *Config) NeedsRestart(next *Config) bool {
	return c.Stream != next.Stream ||
		c.Camera != next.Camera ||
		c.Infrared != next.Infrared ||
		c.HomeKit != next.HomeKit ||
		c.Storage != next.Storage
}
