package config

import (
	"os"
	"path/filepath"
	"testing"

	"rig-merger/internal/metadata"
	"rig-merger/internal/scene"
)

func TestResolveDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{SceneDir: dir}
	if err := cfg.Resolve(Flags{}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if want := filepath.Join(dir, "Temp"); cfg.OutputDir != want {
		t.Errorf("OutputDir = %s, want %s", cfg.OutputDir, want)
	}
	if want := filepath.Join(dir, "Temp", "merged_avatar.json"); cfg.OutputPath() != want {
		t.Errorf("OutputPath = %s, want %s", cfg.OutputPath(), want)
	}
	if cfg.Policy != scene.OrphanReparent || cfg.Units != metadata.Degrees {
		t.Errorf("Policy = %v, Units = %v", cfg.Policy, cfg.Units)
	}
	if cfg.PreviewSize != 512 || cfg.Supersample != 2 {
		t.Errorf("PreviewSize = %d, Supersample = %d", cfg.PreviewSize, cfg.Supersample)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("LogLevel = %s, LogFormat = %s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rigmerge.yaml")
	file := "scene_dir: " + dir + "\noutput_name: from_file.json\norphan_policy: detach\nrotation_units: radians\n"
	if err := os.WriteFile(path, []byte(file), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	t.Setenv("RIGMERGE_OUTPUT_NAME", "from_env.json")
	t.Setenv("RIGMERGE_PREVIEW_SIZE", "128")
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.OrphanPolicy != "detach" {
		t.Errorf("unset env var cleared file value: %q", cfg.OrphanPolicy)
	}

	if err := cfg.Resolve(Flags{RotationUnits: "degrees", Report: "report.json"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.OutputName != "from_env.json" {
		t.Errorf("OutputName = %s, want from_env.json", cfg.OutputName)
	}
	if cfg.PreviewSize != 128 {
		t.Errorf("PreviewSize = %d, want 128", cfg.PreviewSize)
	}
	if cfg.Policy != scene.OrphanDetach {
		t.Errorf("Policy = %v, want detach", cfg.Policy)
	}
	if cfg.Units != metadata.Degrees {
		t.Errorf("flag did not override rotation units")
	}
	if want := filepath.Join(dir, "Temp", "report.json"); cfg.Report != want {
		t.Errorf("Report = %s, want %s", cfg.Report, want)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rigmerge.json")
	if err := os.WriteFile(path, []byte(`{"output_dir": "out", "supersample": 3}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "out" || cfg.Supersample != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestResolveRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
	}{
		{"orphan policy", Flags{OrphanPolicy: "adopt"}},
		{"rotation units", Flags{RotationUnits: "gradians"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{SceneDir: t.TempDir()}
			if err := cfg.Resolve(tt.flags); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestScenePath(t *testing.T) {
	cfg := Config{SceneDir: filepath.FromSlash("/avatars")}
	if got, want := cfg.ScenePath("head.yaml"), filepath.FromSlash("/avatars/head.yaml"); got != want {
		t.Errorf("ScenePath = %s, want %s", got, want)
	}
	abs := filepath.Join(t.TempDir(), "body.yaml")
	if got := cfg.ScenePath(abs); got != abs {
		t.Errorf("ScenePath(abs) = %s", got)
	}
}
