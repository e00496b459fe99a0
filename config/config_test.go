package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
general:
  name: Nursery
stream:
  port: 8000
  resolution:
    width: 640
    height: 480
camera:
  brightness: 60
infrared:
  gpio: 18
storage:
  snapshot_cache: 5s
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.General.Name != "Nursery" {
		t.Errorf("name: %q", cfg.General.Name)
	}
	if cfg.Stream.Framerate != 24 {
		t.Errorf("framerate default: %d", cfg.Stream.Framerate)
	}
	if cfg.Theme.Background != "rgb(34,34,59)" || cfg.Theme.Border != "rgb(74,78,105)" {
		t.Errorf("theme defaults: %+v", cfg.Theme)
	}
	if cfg.Camera.Brightness != 60 {
		t.Errorf("brightness: %d", cfg.Camera.Brightness)
	}
	if cfg.Infrared.GPIO != 18 || !cfg.Infrared.ActiveLow {
		t.Errorf("infrared: %+v", cfg.Infrared)
	}
	if cfg.Storage.SnapshotCache != 5*time.Second {
		t.Errorf("snapshot cache: %v", cfg.Storage.SnapshotCache)
	}
	if cfg.Addr() != ":8000" {
		t.Errorf("addr: %q", cfg.Addr())
	}
}

func TestParseRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"no name", "stream: {port: 1, resolution: {width: 1, height: 1}}", ErrMissingName},
		{"no port", "general: {name: a}\nstream: {resolution: {width: 1, height: 1}}", ErrMissingPort},
		{"no height", "general: {name: a}\nstream: {port: 80, resolution: {width: 1}}", ErrMissingResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("general: [")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestNeedsRestart(t *testing.T) {
	a, _ := Parse([]byte(sample))
	b, _ := Parse([]byte(sample))

	b.General.Name = "Garden"
	b.Theme.Border = "red"
	if a.NeedsRestart(b) {
		t.Error("page values must not need a restart")
	}

	b.Stream.Port = 9000
	if !a.NeedsRestart(b) {
		t.Error("port change needs a restart")
	}
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(c *Config) { changed <- c })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	updated := sample + "theme:\n  border: \"rgb(1,2,3)\"\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.Theme.Border != "rgb(1,2,3)" {
			t.Errorf("border: %q", cfg.Theme.Border)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file changed")
	}
}
