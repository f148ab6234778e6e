package config

import (
	"encoding/json"
	"os"
)

// Config holds runtime configuration for flow processing and app behavior.
// Fields may be loaded from a JSON file and overridden by command-line flags.
type Config struct {
	Debug bool `json:"debug"`

	// Frame geometry and sampling
	Width     int `json:"width"`
	Height    int `json:"height"`
	ScaleDown int `json:"scaledown"`
	MoveStep  int `json:"move_step"`

	// Optics for meters/second reporting. PerspectiveAngle is the camera
	// field-of-view in radians; 0 keeps velocities in pixels/second.
	PerspectiveAngle float64 `json:"perspective_angle"`
	Distance         float64 `json:"distance"`

	// Display
	ShowWindow bool   `json:"show_window"`
	FlowColorR uint8  `json:"flow_color_r"`
	FlowColorG uint8  `json:"flow_color_g"`
	FlowColorB uint8  `json:"flow_color_b"`
	WindowName string `json:"window_name"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:            false,
		Width:            640,
		Height:           480,
		ScaleDown:        1,
		MoveStep:         16,
		PerspectiveAngle: 0,
		Distance:         0,
		ShowWindow:       false,
		FlowColorR:       0,
		FlowColorG:       255,
		FlowColorB:       0,
		WindowName:       "Optical Flow",
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.Width <= 0 {
		c.Width = 640
	}
	if c.Height <= 0 {
		c.Height = 480
	}
	if c.ScaleDown < 1 {
		c.ScaleDown = 1
	}
	if c.MoveStep < 1 {
		c.MoveStep = 16
	}
	if c.PerspectiveAngle < 0 {
		c.PerspectiveAngle = 0
	}
	if c.Distance < 0 {
		c.Distance = 0
	}
	if c.WindowName == "" {
		c.WindowName = "Optical Flow"
	}
	return nil
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return cfg, err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
