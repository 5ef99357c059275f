package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	if cfg.ProjectorWidth != want.ProjectorWidth || cfg.NudgeCM != want.NudgeCM || cfg.TickInterval != want.TickInterval {
		t.Errorf("cfg = %+v; want defaults", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"projector_width": 1280, "projector_height": 800, "render_dpi": 150}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATTERN_PROJECTOR_HEIGHT", "720")
	t.Setenv("PATTERN_PROJECTOR_TICK", "20ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectorWidth != 1280 {
		t.Errorf("width = %d; want 1280 from file", cfg.ProjectorWidth)
	}
	if cfg.ProjectorHeight != 720 {
		t.Errorf("height = %d; want 720 from env", cfg.ProjectorHeight)
	}
	if cfg.TickInterval != 20*time.Millisecond {
		t.Errorf("tick = %v; want 20ms", cfg.TickInterval)
	}
	if cfg.ProjectorDPIX != 96 {
		t.Errorf("dpi = %v; want default 96", cfg.ProjectorDPIX)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed JSON")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ProjectorDPIY = 120
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.ProjectorDPIY != 120 {
		t.Errorf("DPIY = %v; want 120", again.ProjectorDPIY)
	}
}

func TestEnsureFileWritesDefaultsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pattern-projector", "config.json")
	t.Setenv("PATTERN_PROJECTOR_WIDTH", "640")

	created, err := EnsureFile(path)
	if err != nil || !created {
		t.Fatalf("EnsureFile = %v, %v; want a new file", created, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"projector_width": 1920`) {
		t.Errorf("written config ignores defaults:\n%s", data)
	}

	if err := os.WriteFile(path, []byte(`{"projector_dpi_x": 110}`), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = EnsureFile(path)
	if err != nil || created {
		t.Fatalf("EnsureFile on existing file = %v, %v", created, err)
	}
	if again, _ := os.ReadFile(path); string(again) != `{"projector_dpi_x": 110}` {
		t.Errorf("existing config was overwritten: %s", again)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		ok      bool
	}{
		{"defaults", func(*Config) {}, nil, true},
		{"fullscreen without output", func(c *Config) { c.Fullscreen = true; c.ProjectorWidth = 0 }, ErrNoProjector, false},
		{"windowed without output", func(c *Config) { c.ProjectorHeight = 0 }, nil, false},
		{"zero dpi", func(c *Config) { c.ProjectorDPIY = 0 }, nil, false},
		{"negative render dpi", func(c *Config) { c.RenderDPI = -1 }, nil, false},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok != (err == nil) {
				t.Fatalf("Validate() = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v; want %v", err, tt.wantErr)
			}
			if tt.name == "windowed without output" && errors.Is(err, ErrNoProjector) {
				t.Error("windowed mode should not report a missing projector")
			}
		})
	}
}

func TestDeviceScale(t *testing.T) {
	cfg := Defaults()
	cfg.ProjectorDPIX, cfg.ProjectorDPIY = 100, 50
	if d := cfg.DeviceScale(); d.X != 1 || d.Y != 1 {
		t.Errorf("render at projector DPI: scale = %+v; want {1 1}", d)
	}
	cfg.RenderDPI = 200
	if d := cfg.DeviceScale(); d.X != 0.5 || d.Y != 0.25 {
		t.Errorf("scale = %+v; want {0.5 0.25}", d)
	}
}

func TestPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	p := LoadPrefsFrom(path)
	if p.String(PrefLastDir) != "" || p.Int(PrefLastPage, 7) != 7 || !p.Bool(PrefInvertBoth, true) {
		t.Fatal("fresh prefs should return fallbacks")
	}
	p.SetString(PrefLastDir, "/tmp/patterns")
	p.SetInt(PrefLastPage, 3)
	p.SetBool(PrefInvertBoth, false)
	if err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	q := LoadPrefsFrom(path)
	if q.String(PrefLastDir) != "/tmp/patterns" || q.Int(PrefLastPage, 0) != 3 || q.Bool(PrefInvertBoth, true) {
		t.Errorf("reloaded prefs = %q %d %v", q.String(PrefLastDir), q.Int(PrefLastPage, 0), q.Bool(PrefInvertBoth, true))
	}
}
