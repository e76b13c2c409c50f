// Package config loads and validates the controller's runtime configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full controller configuration. Every section mirrors a
// table in spec.md §6; Framework, MQTT, Log and Telemetry are ambient
// additions carried over from the teacher's config layering.
type Config struct {
	Framework FrameworkConfig `yaml:"framework"`
	Vehicle   VehicleConfig   `yaml:"vehicle"`
	Filter    FilterConfig    `yaml:"filter"`
	PID       PIDConfig       `yaml:"pid"`
	Noise     NoiseConfig     `yaml:"noise"`
	Fault     FaultConfig     `yaml:"fault"`
	Timing    TimingConfig    `yaml:"timing"`
	Buffer    BufferConfig    `yaml:"buffer"`
	Route     RouteConfig     `yaml:"route"`
	Avoidance AvoidanceConfig `yaml:"avoidance"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// FrameworkConfig carries process-wide ambient settings.
type FrameworkConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// VehicleConfig bounds the physical vehicle model.
type VehicleConfig struct {
	MaxVelocity        float64 `yaml:"max_velocity"`
	MaxAngularVelocity float64 `yaml:"max_angular_velocity"`
	TauVelocity        float64 `yaml:"tau_velocity"`
	TauAngular         float64 `yaml:"tau_angular"`
	MineWidth          float64 `yaml:"mine_width"`
	MineHeight         float64 `yaml:"mine_height"`
}

// FilterConfig configures the moving-average filter order used for every
// numeric sensor channel.
type FilterConfig struct {
	Order int `yaml:"order"`
}

// PIDGains is one controller's proportional/integral/derivative gains.
type PIDGains struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// PIDConfig holds the two cascaded controllers' gains.
type PIDConfig struct {
	Velocity PIDGains `yaml:"velocity"`
	Angular  PIDGains `yaml:"angular"`
}

// NoiseConfig is the per-channel standard deviation used by the reference
// simulator; a real sensor source ignores this section.
type NoiseConfig struct {
	PositionX   float64 `yaml:"position_x"`
	PositionY   float64 `yaml:"position_y"`
	Theta       float64 `yaml:"theta"`
	Velocity    float64 `yaml:"velocity"`
	Temperature float64 `yaml:"temperature"`
}

// FaultConfig is the critical-temperature threshold.
type FaultConfig struct {
	TemperatureThreshold float64 `yaml:"temperature_threshold"`
}

// TimingConfig lists every periodic task's nominal period, in seconds.
type TimingConfig struct {
	Simulation         float64 `yaml:"simulation_period"`
	SensorProcessing   float64 `yaml:"sensor_processing_period"`
	Control            float64 `yaml:"control_period"`
	CommandLogic       float64 `yaml:"command_logic_period"`
	FaultMonitoring    float64 `yaml:"fault_monitoring_period"`
	DataCollection     float64 `yaml:"data_collection_period"`
	RoutePlanning      float64 `yaml:"route_planning_period"`
	CollisionAvoidance float64 `yaml:"collision_avoidance_period"`
	InterfaceUpdate    float64 `yaml:"interface_update_period"`
}

// BufferConfig sizes the circular sensor buffer.
type BufferConfig struct {
	Size int `yaml:"size"`
}

// RouteConfig configures the waypoint planner.
type RouteConfig struct {
	WaypointThreshold float64 `yaml:"waypoint_threshold"`
}

// AvoidanceConfig configures the collision-avoidance task.
type AvoidanceConfig struct {
	SafetyDistance  float64 `yaml:"safety_distance"`
	WarningDistance float64 `yaml:"warning_distance"`
}

// MQTTConfig configures the message-bus client.
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	QoS       byte   `yaml:"qos"`
}

// LogConfig configures the append-only CSV log sink.
type LogConfig struct {
	Dir string `yaml:"dir"`
}

// TelemetryConfig configures the Prometheus exporter.
type TelemetryConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Periods converts every TimingConfig field to a time.Duration, keyed by
// the task name it governs.
func (t TimingConfig) Periods() map[string]time.Duration {
	return map[string]time.Duration{
		"simulation":          durationOf(t.Simulation),
		"sensor_processing":   durationOf(t.SensorProcessing),
		"control":             durationOf(t.Control),
		"command_logic":       durationOf(t.CommandLogic),
		"fault_monitoring":    durationOf(t.FaultMonitoring),
		"data_collection":     durationOf(t.DataCollection),
		"route_planning":      durationOf(t.RoutePlanning),
		"collision_avoidance": durationOf(t.CollisionAvoidance),
		"interface_update":    durationOf(t.InterfaceUpdate),
	}
}

func durationOf(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Default returns the configuration with every default named in spec.md §6.
func Default() *Config {
	return &Config{
		Framework: FrameworkConfig{LogLevel: "info", LogFormat: "text"},
		Vehicle: VehicleConfig{
			MaxVelocity:        10.0,
			MaxAngularVelocity: 1.0,
			TauVelocity:        0.5,
			TauAngular:         0.3,
			MineWidth:          100.0,
			MineHeight:         75.0,
		},
		Filter: FilterConfig{Order: 5},
		PID: PIDConfig{
			Velocity: PIDGains{Kp: 0.5, Ki: 0.1, Kd: 0.05},
			Angular:  PIDGains{Kp: 1.0, Ki: 0.05, Kd: 0.2},
		},
		Noise: NoiseConfig{
			PositionX:   0.05,
			PositionY:   0.05,
			Theta:       0.02,
			Velocity:    0.1,
			Temperature: 2.0,
		},
		Fault: FaultConfig{TemperatureThreshold: 100.0},
		Timing: TimingConfig{
			Simulation:         0.05,
			SensorProcessing:   0.1,
			Control:            0.05,
			CommandLogic:       0.1,
			FaultMonitoring:    0.5,
			DataCollection:     1.0,
			RoutePlanning:      0.5,
			CollisionAvoidance: 0.1,
			InterfaceUpdate:    0.5,
		},
		Buffer:    BufferConfig{Size: 100},
		Route:     RouteConfig{WaypointThreshold: 1.0},
		Avoidance: AvoidanceConfig{SafetyDistance: 5.0, WarningDistance: 10.0},
		MQTT: MQTTConfig{
			BrokerURL: "tcp://localhost:1883",
			ClientID:  "haultruck",
			QoS:       1,
		},
		Log:       LogConfig{Dir: "data/logs"},
		Telemetry: TelemetryConfig{ListenAddr: ":9400"},
	}
}

// Load reads a YAML file and overlays it on top of Default(). A missing
// path is not an error: the caller gets Default() back.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects configurations that would make the controller's
// invariants unsatisfiable before any task starts.
func (c *Config) Validate() error {
	if c.Vehicle.MineWidth <= 0 || c.Vehicle.MineHeight <= 0 {
		return fmt.Errorf("vehicle: mine bounds must be positive (got %gx%g)", c.Vehicle.MineWidth, c.Vehicle.MineHeight)
	}
	if c.Filter.Order < 1 {
		return fmt.Errorf("filter: order must be >= 1 (got %d)", c.Filter.Order)
	}
	if c.Buffer.Size < 1 {
		return fmt.Errorf("buffer: size must be >= 1 (got %d)", c.Buffer.Size)
	}
	if c.Route.WaypointThreshold <= 0 {
		return fmt.Errorf("route: waypoint_threshold must be positive (got %g)", c.Route.WaypointThreshold)
	}
	if c.Avoidance.SafetyDistance <= 0 || c.Avoidance.WarningDistance <= c.Avoidance.SafetyDistance {
		return fmt.Errorf("avoidance: warning_distance (%g) must exceed safety_distance (%g) > 0",
			c.Avoidance.WarningDistance, c.Avoidance.SafetyDistance)
	}
	for name, d := range c.Timing.Periods() {
		if d <= 0 {
			return fmt.Errorf("timing: %s period must be positive (got %v)", name, d)
		}
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1, or 2 (got %d)", c.MQTT.QoS)
	}
	return nil
}
