package config

import "sort"

var Presets = map[string]map[string]*Config{
	"first_order": {
		"default":   withPlant("first_order", PlantConfig{TimeConstant: 1.0, Gain: 1.0}, 20.0),
		"slow":      withPlant("first_order", PlantConfig{TimeConstant: 5.0, Gain: 1.0}, 60.0),
		"high_gain": withPlant("first_order", PlantConfig{TimeConstant: 2.0, Gain: 4.0}, 30.0),
	},
	"second_order": {
		"underdamped": withPlant("second_order", PlantConfig{Wn: 2.0, Zeta: 0.2, Gain: 1.0}, 20.0),
		"critical":    withPlant("second_order", PlantConfig{Wn: 1.0, Zeta: 1.0, Gain: 1.0}, 20.0),
		"overdamped":  withPlant("second_order", PlantConfig{Wn: 1.0, Zeta: 2.0, Gain: 1.0}, 30.0),
	},
	"tank": {
		"default": withPlant("tank", PlantConfig{Area: 1.0, InflowK: 0.1, Discharge: 0.5}, 60.0),
		"wide":    withPlant("tank", PlantConfig{Area: 4.0, InflowK: 0.1, Discharge: 0.5}, 120.0),
	},
	"dead_time": {
		"short": withPlant("first_order", PlantConfig{TimeConstant: 1.0, Gain: 1.0, DeadTime: 0.2}, 30.0),
		"long":  withPlant("first_order", PlantConfig{TimeConstant: 1.0, Gain: 1.0, DeadTime: 1.0}, 60.0),
	},
}

func withPlant(name string, p PlantConfig, duration float64) *Config {
	cfg := DefaultConfig()
	cfg.Plant = name
	cfg.PlantParams = p
	cfg.Duration = duration
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(group, preset string) *Config {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	cfg, ok := groupPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(group string) []string {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(groupPresets))
	for name := range groupPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListGroups() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
