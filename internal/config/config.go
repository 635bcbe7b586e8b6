// Package config handles configuration loading and shared data structures.
package config

import (
	"os"
	"time"

	"github.com/woozymasta/globepins/internal/pin"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Globe     Globe       `yaml:"globe" json:"globe"`
	Render    Render      `yaml:"render" json:"render"`
	Server    Server      `yaml:"server,omitempty" json:"-"`
	Store     Store       `yaml:"store,omitempty" json:"-"`
	Defaults  pin.Options `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Locations *Locations  `yaml:"locations,omitempty" json:"-"`
	Pins      []Pin       `yaml:"pins,omitempty" json:"pins,omitempty"`
}

// Globe describes the globe the pins are planted on.
type Globe struct {
	Radius     float64       `yaml:"radius,omitempty" json:"radius"`
	Color      string        `yaml:"color,omitempty" json:"color"`
	Background string        `yaml:"background,omitempty" json:"background"`
	SmokeColor string        `yaml:"smoke_color,omitempty" json:"smoke_color"`
	Rotation   float64       `yaml:"rotation,omitempty" json:"rotation"` // degrees about the polar axis
	Spin       float64       `yaml:"spin,omitempty" json:"spin"`         // degrees per second
	MaxAge     time.Duration `yaml:"max_age,omitempty" json:"max_age,omitempty"`
}

// Render holds output frame settings.
type Render struct {
	Width   int `yaml:"width,omitempty" json:"width"`
	Height  int `yaml:"height,omitempty" json:"height"`
	FPS     int `yaml:"fps,omitempty" json:"fps"`
	Quality int `yaml:"quality,omitempty" json:"quality"`
}

// Server holds HTTP listener settings.
type Server struct {
	Addr string `yaml:"addr,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// Store points at the pin database. An empty path keeps pins in memory.
type Store struct {
	Path string `yaml:"path,omitempty"`
}

// Locations seeds pins from a GeoJSON point collection (file path or URL).
type Locations struct {
	Source   string  `yaml:"source"`
	Altitude float64 `yaml:"altitude,omitempty"`
}

// Pin is one configured marker.
type Pin struct {
	Options  *pin.Options `yaml:"options,omitempty" json:"options,omitempty"`
	Text     string       `yaml:"text,omitempty" json:"text,omitempty"`
	Lat      float64      `yaml:"lat" json:"lat"`
	Lon      float64      `yaml:"lon" json:"lon"`
	Altitude float64      `yaml:"altitude,omitempty" json:"altitude,omitempty"`
}

// Defaults used when a value is missing from the file.
const (
	DefaultRadius     = 200.0
	DefaultAltitude   = 1.2
	DefaultColor      = "#0B1F2A"
	DefaultBackground = "#000000"
	DefaultSmokeColor = pin.DefaultSmokeColor
	DefaultWidth      = 800
	DefaultHeight     = 800
	DefaultFPS        = 30
	DefaultQuality    = 85
	DefaultAddr       = "0.0.0.0"
	DefaultPort       = 8080
)

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes YAML and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Globe.Radius <= 0 {
		c.Globe.Radius = DefaultRadius
	}
	if c.Globe.Color == "" {
		c.Globe.Color = DefaultColor
	}
	if c.Globe.Background == "" {
		c.Globe.Background = DefaultBackground
	}
	if c.Globe.SmokeColor == "" {
		c.Globe.SmokeColor = DefaultSmokeColor
	}

	if c.Render.Width <= 0 {
		c.Render.Width = DefaultWidth
	}
	if c.Render.Height <= 0 {
		c.Render.Height = DefaultHeight
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = DefaultFPS
	}
	if c.Render.Quality <= 0 || c.Render.Quality > 100 {
		c.Render.Quality = DefaultQuality
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.Port <= 0 {
		c.Server.Port = DefaultPort
	}

	if c.Locations != nil && c.Locations.Altitude == 0 {
		c.Locations.Altitude = DefaultAltitude
	}

	for i := range c.Pins {
		if c.Pins[i].Altitude == 0 {
			c.Pins[i].Altitude = DefaultAltitude
		}
	}
}
