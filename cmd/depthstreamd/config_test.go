package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Link.TargetName != "BT24" {
		t.Fatalf("unexpected target name: %q", cfg.Link.TargetName)
	}
	if cfg.Stream.GridRows != 1 || cfg.Stream.GridCols != 4 {
		t.Fatalf("unexpected grid: %dx%d", cfg.Stream.GridRows, cfg.Stream.GridCols)
	}
	if cfg.FrameInterval != 100*time.Millisecond {
		t.Fatalf("unexpected frame interval: %v", cfg.FrameInterval)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
target_name = "HM10-LAB"
connect_timeout = "3s"
grid_rows = 2
grid_cols = 8
frame_interval = "250ms"
frame_width = 320
frame_height = 240
log_level = "debug"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Link.TargetName != "HM10-LAB" {
		t.Fatalf("unexpected target name: %q", cfg.Link.TargetName)
	}
	if cfg.Link.ConnectTimeout != 3*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cfg.Link.ConnectTimeout)
	}
	if cfg.Stream.GridRows != 2 || cfg.Stream.GridCols != 8 {
		t.Fatalf("unexpected grid: %dx%d", cfg.Stream.GridRows, cfg.Stream.GridCols)
	}
	if cfg.FrameInterval != 250*time.Millisecond {
		t.Fatalf("unexpected frame interval: %v", cfg.FrameInterval)
	}
	if cfg.FrameWidth != 320 || cfg.FrameHeight != 240 {
		t.Fatalf("unexpected frame size: %dx%d", cfg.FrameWidth, cfg.FrameHeight)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
}

func TestLoadConfigBlankTargetName(t *testing.T) {
	path := writeConfig(t, `target_name = "  "`)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected error for blank target_name")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := writeConfig(t, `frame_interval = "soon"`)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigTinyMTU(t *testing.T) {
	path := writeConfig(t, `preferred_mtu = 3`)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected error for unusable mtu")
	}
}
