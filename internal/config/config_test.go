package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/sim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Plant != "first_order" {
		t.Errorf("expected plant first_order, got %s", cfg.Plant)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if cfg.ControllerParams.Kp != 1.0 || cfg.ControllerParams.Ki != 0.1 || cfg.ControllerParams.Kd != 0.05 {
		t.Errorf("unexpected default gains %+v", cfg.ControllerParams)
	}
	if cfg.Tuning.RelayAmplitude != 80 || cfg.Tuning.Hysteresis != 0.5 {
		t.Errorf("unexpected relay defaults %+v", cfg.Tuning)
	}
}

func TestSimConfig(t *testing.T) {
	cfg := DefaultConfig()
	sc, err := cfg.SimConfig()
	if err != nil {
		t.Fatal(err)
	}
	if sc.Dt != 0.05 || sc.Setpoint != 5 || sc.Input != sim.Step || sc.MinSamples != 10 {
		t.Errorf("unexpected sim config %+v", sc)
	}

	cfg.Input.Mode = "sine"
	sc, err = cfg.SimConfig()
	if err != nil || sc.Input != sim.Sine {
		t.Errorf("expected sine input, got %v %v", sc.Input, err)
	}

	cfg.Input.Mode = "square"
	if _, err := cfg.SimConfig(); !errors.Is(err, sim.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Dt = 0
	if _, err := cfg.SimConfig(); !errors.Is(err, sim.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestTuneConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.Mode = "sine"
	tc, err := cfg.TuneConfig()
	if err != nil {
		t.Fatal(err)
	}
	if tc.Duration != DefaultTuneDuration {
		t.Errorf("expected tuning duration, got %f", tc.Duration)
	}

	rule, err := cfg.Rule()
	if err != nil || rule != control.NoOvershoot {
		t.Errorf("unexpected rule %v %v", rule, err)
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.yaml")

	cfg := DefaultConfig()
	cfg.Plant = "tank"
	cfg.Tuning.Rule = "classic-zn"
	cfg.PlantParams.DeadTime = 0.3
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n%+v\n%+v", loaded, cfg)
	}
}

func TestLoad_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "plant: second_order\ncontroller_params:\n  kp: 3\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Plant != "second_order" || cfg.ControllerParams.Kp != 3 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ControllerParams.Ki != 0.1 || cfg.Dt != DefaultDt {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("second_order", "underdamped")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.PlantParams.Zeta != 0.2 {
		t.Errorf("expected zeta 0.2, got %f", cfg.PlantParams.Zeta)
	}

	// presets are copies
	cfg.PlantParams.Zeta = 9
	if GetPreset("second_order", "underdamped").PlantParams.Zeta != 0.2 {
		t.Error("preset mutated through returned config")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("first_order", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "default") != nil {
		t.Error("expected nil for nonexistent group")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("first_order")
	if len(presets) != 3 || presets[0] != "default" {
		t.Errorf("unexpected presets %v", presets)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent group")
	}
	if len(ListGroups()) != len(Presets) {
		t.Error("group count mismatch")
	}
}

func TestSetGet(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Set("kp", 4.2); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Set("dead_time", 0.5); err != nil {
		t.Fatal(err)
	}
	if cfg.ControllerParams.Kp != 4.2 || cfg.PlantParams.DeadTime != 0.5 {
		t.Errorf("values not set: %+v", cfg)
	}
	if v, ok := cfg.Get("kp"); !ok || v != 4.2 {
		t.Errorf("Get(kp) = %v, %v", v, ok)
	}
	if err := cfg.Set("Kp", 1); err == nil {
		t.Error("keys are case sensitive")
	}
	if _, ok := cfg.Get("theta"); ok {
		t.Error("expected unknown key")
	}
}
