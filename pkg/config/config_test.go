package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "city.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
seed: 42
preset_db: /tmp/presets.db
mesh_cells: 32
subdivide_min: 4
subdivide_max: 6.5
eval_timeout: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 42 || cfg.PresetDB != "/tmp/presets.db" || cfg.MeshCells != 32 {
		t.Errorf("got %+v", cfg)
	}
	if cfg.SubdivideMin != 4 || cfg.SubdivideMax != 6.5 {
		t.Errorf("subdivide = [%g, %g]", cfg.SubdivideMin, cfg.SubdivideMax)
	}
	if cfg.EvalTimeout != 2*time.Second {
		t.Errorf("eval timeout = %s", cfg.EvalTimeout)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "seed: 7\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 7 || cfg.MeshCells != 64 || cfg.SubdivideMax != 16 {
		t.Errorf("got %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CITY_SEED", "9")
	t.Setenv("CITY_MESH_CELLS", "16")
	t.Setenv("CITY_SUBDIVIDE_MIN", "2.5")
	t.Setenv("CITY_EVAL_TIMEOUT", "250ms")
	t.Setenv("CITY_PRESET_DB", "env.db")

	cfg, err := Load(writeFile(t, "seed: 1\nmesh_cells: 32\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 9 || cfg.MeshCells != 16 || cfg.SubdivideMin != 2.5 {
		t.Errorf("got %+v", cfg)
	}
	if cfg.EvalTimeout != 250*time.Millisecond || cfg.PresetDB != "env.db" {
		t.Errorf("got %+v", cfg)
	}
}

func TestMalformedEnvIgnored(t *testing.T) {
	t.Setenv("CITY_MESH_CELLS", "many")
	t.Setenv("CITY_EVAL_TIMEOUT", "soon")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MeshCells != 64 || cfg.EvalTimeout != 5*time.Second {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "seed: [", "parsing config"},
		{"few cells", "mesh_cells: 2\n", "mesh_cells"},
		{"inverted range", "subdivide_min: 10\nsubdivide_max: 5\n", "subdivide range"},
		{"zero timeout", "eval_timeout: 0s\n", "eval_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
