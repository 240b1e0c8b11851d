package config

import "sort"

// Presets are named variations of the default configuration.
var Presets = map[string]func(*Config){
	"r2d2": func(c *Config) {},
	"slow": func(c *Config) {
		c.Speeds.Linear, c.Speeds.Angular = 0.5, 0.3
	},
	"fast": func(c *Config) {
		c.Speeds.Linear, c.Speeds.Angular = 5.0, 2.5
	},
	"husky": func(c *Config) {
		c.Robot.Asset = "husky.urdf"
		c.Robot.StartPosition = [3]float64{0, 0, 0.5}
		c.Speeds.Linear = 1.0
	},
	"moon": func(c *Config) {
		c.World.Gravity = 1.62
	},
	"precise": func(c *Config) {
		c.World.Integrator = "rk4"
		c.World.TimeStep = 1.0 / 1000.0
	},
}

// GetPreset returns the default configuration with the named preset
// applied, or nil if there is no such preset.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
