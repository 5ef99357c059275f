// Package config loads projector settings and UI preferences.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pattern-projector/pkg/geometry"

	"github.com/caarlos0/env/v11"
)

const (
	appDir     = "pattern-projector"
	configFile = "config.json"
)

// ErrNoProjector means projection was requested but no output is configured.
var ErrNoProjector = errors.New("no projector found")

// Config holds the projector and pipeline settings. Values come from
// defaults, then the JSON file, then PATTERN_PROJECTOR_* environment variables.
type Config struct {
	// Projector output size in device pixels.
	ProjectorWidth  int `json:"projector_width" env:"PATTERN_PROJECTOR_WIDTH"`
	ProjectorHeight int `json:"projector_height" env:"PATTERN_PROJECTOR_HEIGHT"`

	// Projector resolution on the projection surface, per axis.
	ProjectorDPIX float64 `json:"projector_dpi_x" env:"PATTERN_PROJECTOR_DPI_X"`
	ProjectorDPIY float64 `json:"projector_dpi_y" env:"PATTERN_PROJECTOR_DPI_Y"`

	// RenderDPI is the page rasterization resolution; 0 uses the projector DPI.
	RenderDPI float64 `json:"render_dpi" env:"PATTERN_PROJECTOR_RENDER_DPI"`

	// Fullscreen shows the projector window full screen on the output.
	Fullscreen bool `json:"fullscreen" env:"PATTERN_PROJECTOR_FULLSCREEN"`

	// NudgeCM is the physical arrow-key step.
	NudgeCM float64 `json:"nudge_cm" env:"PATTERN_PROJECTOR_NUDGE_CM"`

	// TickInterval is how often the UI polls the recompute worker.
	TickInterval time.Duration `json:"tick_interval" env:"PATTERN_PROJECTOR_TICK"`
	// RedrawDelay coalesces bursts of redraw requests.
	RedrawDelay time.Duration `json:"redraw_delay" env:"PATTERN_PROJECTOR_REDRAW_DELAY"`
	// WatchInterval is how often the open document is checked for changes; 0 disables.
	WatchInterval time.Duration `json:"watch_interval" env:"PATTERN_PROJECTOR_WATCH"`

	path string
}

// Defaults returns a windowed 1080p projector at 96 DPI.
func Defaults() Config {
	return Config{
		ProjectorWidth:  1920,
		ProjectorHeight: 1080,
		ProjectorDPIX:   96,
		ProjectorDPIY:   96,
		NudgeCM:         0.5,
		TickInterval:    5 * time.Millisecond,
		RedrawDelay:     10 * time.Millisecond,
		WatchInterval:   2 * time.Second,
	}
}

// DefaultPath returns ~/.config/pattern-projector/config.json.
func DefaultPath() string {
	return filepath.Join(configDir(), configFile)
}

// Load reads path (a missing file is not an error) and applies environment
// overrides. An empty path uses DefaultPath.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Defaults()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Save writes the config back to the file it was loaded from.
func (c Config) Save() error {
	path := c.path
	if path == "" {
		path = DefaultPath()
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EnsureFile writes the defaults to path when no config file exists there,
// reporting whether it did. An empty path uses DefaultPath.
func EnsureFile(path string) (bool, error) {
	if path == "" {
		path = DefaultPath()
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("failed to check config: %w", err)
	}
	cfg := Defaults()
	cfg.path = path
	if err := cfg.Save(); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}

// Validate checks the settings the pipeline cannot run without.
func (c Config) Validate() error {
	if c.ProjectorWidth <= 0 || c.ProjectorHeight <= 0 {
		if c.Fullscreen {
			return ErrNoProjector
		}
		return fmt.Errorf("projector size %dx%d must be positive", c.ProjectorWidth, c.ProjectorHeight)
	}
	if c.ProjectorDPIX <= 0 || c.ProjectorDPIY <= 0 {
		return fmt.Errorf("projector DPI %vx%v must be positive", c.ProjectorDPIX, c.ProjectorDPIY)
	}
	if c.RenderDPI < 0 {
		return fmt.Errorf("render DPI %v must not be negative", c.RenderDPI)
	}
	if c.TickInterval <= 0 || c.RedrawDelay < 0 {
		return fmt.Errorf("tick interval %v and redraw delay %v are invalid", c.TickInterval, c.RedrawDelay)
	}
	return nil
}

// RenderDPIs returns the page rasterization DPI per axis.
func (c Config) RenderDPIs() (float64, float64) {
	if c.RenderDPI > 0 {
		return c.RenderDPI, c.RenderDPI
	}
	return c.ProjectorDPIX, c.ProjectorDPIY
}

// DeviceScale is projector pixels per rendered page pixel.
func (c Config) DeviceScale() geometry.DeviceScale {
	rx, ry := c.RenderDPIs()
	return geometry.NewDeviceScale(c.ProjectorDPIX, c.ProjectorDPIY, rx, ry)
}

// OutputSize is the projector surface in device pixels.
func (c Config) OutputSize() geometry.Size {
	return geometry.NewSize(float64(c.ProjectorWidth), float64(c.ProjectorHeight))
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, appDir)
}
