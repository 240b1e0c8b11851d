package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/teleop/internal/control"
	"github.com/san-kum/teleop/internal/integrators"
)

const (
	DefaultRobotAsset   = "r2d2.urdf"
	DefaultPlaneAsset   = "plane.urdf"
	DefaultGravity      = 10.0
	DefaultTimeStep     = 1.0 / 240.0
	DefaultIntegrator   = "euler"
	DefaultLinear       = 2.0
	DefaultAngular      = 1.0
	DefaultSleep        = 10 * time.Millisecond
	DefaultRepeatWindow = 600 * time.Millisecond
	DefaultReport       = time.Second
	DefaultLogLevel     = "info"
)

type Config struct {
	Robot     RobotConfig       `yaml:"robot"`
	World     WorldConfig       `yaml:"world"`
	Speeds    SpeedConfig       `yaml:"speeds"`
	Loop      LoopConfig        `yaml:"loop"`
	Report    ReportConfig      `yaml:"report"`
	Keymap    map[string]string `yaml:"keymap,omitempty"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
	Log       LogConfig         `yaml:"log"`
}

type RobotConfig struct {
	Asset         string     `yaml:"asset"`
	StartPosition [3]float64 `yaml:"start_position"`
	// StartEuler is roll, pitch, yaw in radians.
	StartEuler [3]float64 `yaml:"start_euler"`
}

type WorldConfig struct {
	Plane string `yaml:"plane"`
	// Gravity is the magnitude of the downward (-Z) acceleration.
	Gravity    float64 `yaml:"gravity"`
	TimeStep   float64 `yaml:"time_step"`
	Integrator string  `yaml:"integrator"`
	// Catalog is an optional extra asset catalog file.
	Catalog string `yaml:"catalog,omitempty"`
}

type SpeedConfig struct {
	Linear  float64 `yaml:"linear"`
	Angular float64 `yaml:"angular"`
}

type LoopConfig struct {
	Sleep        time.Duration `yaml:"sleep"`
	RepeatWindow time.Duration `yaml:"repeat_window"`
}

type ReportConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type TelemetryConfig struct {
	// Addr is the websocket listen address; empty disables telemetry.
	Addr string `yaml:"addr,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Robot: RobotConfig{
			Asset:         DefaultRobotAsset,
			StartPosition: [3]float64{0, 0, 1},
		},
		World: WorldConfig{
			Plane:      DefaultPlaneAsset,
			Gravity:    DefaultGravity,
			TimeStep:   DefaultTimeStep,
			Integrator: DefaultIntegrator,
		},
		Speeds: SpeedConfig{
			Linear:  DefaultLinear,
			Angular: DefaultAngular,
		},
		Loop: LoopConfig{
			Sleep:        DefaultSleep,
			RepeatWindow: DefaultRepeatWindow,
		},
		Report: ReportConfig{
			Interval: DefaultReport,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting the loop cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Robot.Asset == "":
		return fmt.Errorf("robot asset must be set")
	case c.World.Plane == "":
		return fmt.Errorf("plane asset must be set")
	case c.Speeds.Linear <= 0:
		return fmt.Errorf("linear speed must be positive, got %f", c.Speeds.Linear)
	case c.Speeds.Angular <= 0:
		return fmt.Errorf("angular speed must be positive, got %f", c.Speeds.Angular)
	case c.World.TimeStep <= 0:
		return fmt.Errorf("time step must be positive, got %f", c.World.TimeStep)
	case c.World.Gravity < 0:
		return fmt.Errorf("gravity must not be negative, got %f", c.World.Gravity)
	case c.Loop.Sleep < 0:
		return fmt.Errorf("sleep must not be negative, got %s", c.Loop.Sleep)
	case c.Report.Interval <= 0:
		return fmt.Errorf("report interval must be positive, got %s", c.Report.Interval)
	case c.World.Integrator != "" && !slices.Contains(integrators.Names(), c.World.Integrator):
		return fmt.Errorf("unknown integrator: %s (available: %v)", c.World.Integrator, integrators.Names())
	}

	keymap, err := control.DefaultKeymap().With(c.Keymap)
	if err != nil {
		return fmt.Errorf("keymap: %w", err)
	}
	if len(keymap.Keys(control.Quit)) == 0 {
		return fmt.Errorf("keymap: no key is bound to %s", control.Quit)
	}
	return nil
}
