// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/boids/steering"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed schema.json
var schemaJSON string

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Agents     AgentsConfig     `yaml:"agents"`
	Demo       DemoConfig       `yaml:"demo"`
	Behaviours BehavioursConfig `yaml:"behaviours"`
	Obstacles  ObstaclesConfig  `yaml:"obstacles"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Stream     StreamConfig     `yaml:"stream"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig is the rectangle agents and random obstacles are spawned in.
// The plane itself is unbounded.
type WorldConfig struct {
	Width  int `yaml:"width"`  // 0 = use screen width
	Height int `yaml:"height"` // 0 = use screen height
}

// PhysicsConfig holds tick and neighbour-index parameters.
type PhysicsConfig struct {
	DT                float64 `yaml:"dt"`
	NeighbourIndex    string  `yaml:"neighbour_index"` // "grid" or "scan"
	GridCellSize      float64 `yaml:"grid_cell_size"`
	ParallelThreshold int     `yaml:"parallel_threshold"` // agent count below which a tick runs single-threaded
}

// AgentsConfig holds population and kinematic defaults.
type AgentsConfig struct {
	Count               int     `yaml:"count"`
	Seed                uint64  `yaml:"seed"`
	MaxVelocity         float64 `yaml:"max_velocity"`
	MaxForce            float64 `yaml:"max_force"`
	ForceMultiplier     float64 `yaml:"force_multiplier"`
	PredatorRatio       float64 `yaml:"predator_ratio"`        // fraction tagged predator in flocking_with_predators
	PredatorSpeedFactor float64 `yaml:"predator_speed_factor"` // predator max velocity = max_velocity * this
}

// DemoConfig selects the initial demo mode.
type DemoConfig struct {
	Mode string `yaml:"mode"`
}

// WanderConfig mirrors steering.WanderParams.
type WanderConfig struct {
	CircleRadius   float64 `yaml:"circle_radius"`
	CircleDistance float64 `yaml:"circle_distance"`
	Jitter         float64 `yaml:"jitter"` // radians per tick
	Force          float64 `yaml:"force"`
}

// ApproachConfig mirrors steering.ApproachParams.
type ApproachConfig struct {
	IgnoreDistance float64 `yaml:"ignore_distance"`
	Ignore         string  `yaml:"ignore"` // inside, beyond or never
	Force          float64 `yaml:"force"`
}

// ArrivalConfig mirrors steering.ArrivalParams.
type ArrivalConfig struct {
	IgnoreDistance float64 `yaml:"ignore_distance"`
	Ignore         string  `yaml:"ignore"`
	SlowingRadius  float64 `yaml:"slowing_radius"`
	Force          float64 `yaml:"force"`
}

// PursuitConfig mirrors steering.PursuitParams.
type PursuitConfig struct {
	IgnoreDistance float64 `yaml:"ignore_distance"`
	Ignore         string  `yaml:"ignore"`
	MaxPrediction  float64 `yaml:"max_prediction"` // seconds
	Force          float64 `yaml:"force"`
}

// GroupConfig mirrors steering.GroupParams. Tag filters are set per demo mode.
type GroupConfig struct {
	NeighbourRange float64 `yaml:"neighbour_range"`
	Force          float64 `yaml:"force"`
}

// SeparationConfig mirrors steering.SeparationParams.
type SeparationConfig struct {
	NeighbourRange float64 `yaml:"neighbour_range"`
	Force          float64 `yaml:"force"`
	MinDistance    float64 `yaml:"min_distance"`
	MaxMagnitude   float64 `yaml:"max_magnitude"`
}

// AvoidanceConfig mirrors steering.AvoidanceParams.
type AvoidanceConfig struct {
	TraceLength float64 `yaml:"trace_length"`
	Force       float64 `yaml:"force"`
}

// BehavioursConfig holds the tuning for every steering behaviour.
type BehavioursConfig struct {
	Wander            WanderConfig     `yaml:"wander"`
	Seek              ApproachConfig   `yaml:"seek"`
	Arrival           ArrivalConfig    `yaml:"arrival"`
	Flee              ApproachConfig   `yaml:"flee"`
	Pursue            PursuitConfig    `yaml:"pursue"`
	Evade             PursuitConfig    `yaml:"evade"`
	Alignment         GroupConfig      `yaml:"alignment"`
	Cohesion          GroupConfig      `yaml:"cohesion"`
	Separation        SeparationConfig `yaml:"separation"`
	ObstacleAvoidance AvoidanceConfig  `yaml:"obstacle_avoidance"`
}

// ObstacleConfig is one fixed obstacle.
type ObstacleConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius"`
}

// ObstaclesConfig holds fixed and randomly placed obstacles.
type ObstaclesConfig struct {
	RandomCount int              `yaml:"random_count"`
	MinRadius   float64          `yaml:"min_radius"`
	MaxRadius   float64          `yaml:"max_radius"`
	List        []ObstacleConfig `yaml:"list"`
}

// TelemetryConfig holds stats and perf window sizes.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds
	PerfWindow  int     `yaml:"perf_window"`  // ticks
}

// StreamConfig holds websocket frame streaming settings.
type StreamConfig struct {
	Addr          string `yaml:"addr"` // empty disables the stream server
	IntervalTicks int    `yaml:"interval_ticks"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	WorldW           float64               // effective world width
	WorldH           float64               // effective world height
	StatsWindowTicks int                   // Telemetry.StatsWindow in ticks
	Behaviours       steering.BehaviourSet // template built from Behaviours, nothing enabled
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse overlays data on the embedded defaults, validates the result against
// the embedded schema and computes derived values.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		// Only overwrites fields present in data
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

var schema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	sch, err := jsonschema.CompileString("schema.json", schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}
	return sch, nil
})

// Validate checks the config against the embedded JSON schema.
func (c *Config) Validate() error {
	sch, err := schema()
	if err != nil {
		return err
	}
	doc, err := c.document()
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Obstacles.MaxRadius < c.Obstacles.MinRadius {
		return fmt.Errorf("config validation failed: obstacles.max_radius %v < min_radius %v",
			c.Obstacles.MaxRadius, c.Obstacles.MinRadius)
	}
	return nil
}

// document converts the config into the generic JSON form the validator expects.
func (c *Config) document() (any, error) {
	y, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	var generic map[string]any
	if err := yaml.Unmarshal(y, &generic); err != nil {
		return nil, fmt.Errorf("re-reading config: %w", err)
	}
	j, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encoding config as json: %w", err)
	}
	var doc any
	if err := json.Unmarshal(j, &doc); err != nil {
		return nil, fmt.Errorf("decoding config json: %w", err)
	}
	return doc, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	// World dimensions default to screen size if not specified
	worldW := c.World.Width
	if worldW == 0 {
		worldW = c.Screen.Width
	}
	worldH := c.World.Height
	if worldH == 0 {
		worldH = c.Screen.Height
	}
	c.Derived.WorldW = float64(worldW)
	c.Derived.WorldH = float64(worldH)

	c.Derived.StatsWindowTicks = max(1, int(c.Telemetry.StatsWindow/c.Physics.DT+0.5))
	c.Derived.Behaviours = c.Behaviours.BehaviourSet()
}

// ignoreMode parses an ignore policy, falling back to def for empty or unknown values.
func ignoreMode(s string, def steering.IgnoreMode) steering.IgnoreMode {
	if m, ok := steering.ParseIgnoreMode(s); ok {
		return m
	}
	return def
}

// BehaviourSet converts the tuning into a behaviour set with nothing enabled.
func (b BehavioursConfig) BehaviourSet() steering.BehaviourSet {
	s := steering.DefaultBehaviourSet()
	s.Wander = steering.WanderParams{
		CircleRadius:   b.Wander.CircleRadius,
		CircleDistance: b.Wander.CircleDistance,
		Jitter:         b.Wander.Jitter,
		Force:          b.Wander.Force,
	}
	s.Seek = steering.ApproachParams{
		IgnoreDistance: b.Seek.IgnoreDistance,
		Ignore:         ignoreMode(b.Seek.Ignore, steering.IgnoreInside),
		Force:          b.Seek.Force,
	}
	s.Arrival = steering.ArrivalParams{
		IgnoreDistance: b.Arrival.IgnoreDistance,
		Ignore:         ignoreMode(b.Arrival.Ignore, steering.IgnoreInside),
		SlowingRadius:  b.Arrival.SlowingRadius,
		Force:          b.Arrival.Force,
	}
	s.Flee = steering.ApproachParams{
		IgnoreDistance: b.Flee.IgnoreDistance,
		Ignore:         ignoreMode(b.Flee.Ignore, steering.IgnoreBeyond),
		Force:          b.Flee.Force,
	}
	s.Pursue = steering.PursuitParams{
		IgnoreDistance: b.Pursue.IgnoreDistance,
		Ignore:         ignoreMode(b.Pursue.Ignore, steering.IgnoreInside),
		MaxPrediction:  b.Pursue.MaxPrediction,
		Force:          b.Pursue.Force,
	}
	s.Evade = steering.PursuitParams{
		IgnoreDistance: b.Evade.IgnoreDistance,
		Ignore:         ignoreMode(b.Evade.Ignore, steering.IgnoreBeyond),
		MaxPrediction:  b.Evade.MaxPrediction,
		Force:          b.Evade.Force,
	}
	s.Alignment = steering.GroupParams{NeighbourRange: b.Alignment.NeighbourRange, Force: b.Alignment.Force}
	s.Cohesion = steering.GroupParams{NeighbourRange: b.Cohesion.NeighbourRange, Force: b.Cohesion.Force}
	s.Separation = steering.SeparationParams{
		NeighbourRange: b.Separation.NeighbourRange,
		Force:          b.Separation.Force,
		MinDistance:    b.Separation.MinDistance,
		MaxMagnitude:   b.Separation.MaxMagnitude,
	}
	s.ObstacleAvoidance = steering.AvoidanceParams{
		TraceLength: b.ObstacleAvoidance.TraceLength,
		Force:       b.ObstacleAvoidance.Force,
	}
	return s
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ModeName normalizes a demo mode name as written in config files.
func ModeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
