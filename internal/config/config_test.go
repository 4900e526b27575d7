package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/everforgeworks/roadnav/internal/geo"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roadnav.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_port: 3000
accept_timeout: 250ms
world: Makuri Islands
sport: running
route_path: routes/loop.yaml
loop_route: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenPort != 3000 || cfg.AcceptTimeout != 250*time.Millisecond {
		t.Errorf("unexpected listener settings: %+v", cfg)
	}
	if cfg.DataTimeout != DefaultDataTimeout {
		t.Errorf("expected default data timeout, got %s", cfg.DataTimeout)
	}
	if cfg.WorldID() != geo.WorldMakuriIslands {
		t.Errorf("expected Makuri Islands, got %s", cfg.WorldID())
	}
	if !cfg.LoopRoute || cfg.RoutePath != "routes/loop.yaml" {
		t.Errorf("route settings not loaded: %+v", cfg)
	}

	lc := cfg.Listener()
	if lc.Port != 3000 || lc.AcceptTimeout != 250*time.Millisecond {
		t.Errorf("unexpected listener config %+v", lc)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.ListenPort = 70000
	cfg.DataTimeout = 0
	cfg.World = "atlantis"
	cfg.Sport = "swimming"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"listen_port", "data_timeout", "atlantis", "swimming"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}
