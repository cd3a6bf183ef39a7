// Package sim is the tick driver: it stores agents in an ark ECS world and
// advances them one fixed step at a time through the steering engine.
package sim

import (
	"log/slog"
	"math/rand/v2"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/steering"
	"github.com/pthm-cable/boids/systems"
	"github.com/pthm-cable/boids/telemetry"
)

// MaxAgents bounds SetCount.
const MaxAgents = 10000

// Options configures a Sim beyond what the config file carries.
type Options struct {
	Seed          uint64 // overrides agents.seed when non-zero
	Workers       int    // worker goroutines; 0 = GOMAXPROCS
	LogStats      bool
	Output        *telemetry.OutputManager
	StatsCallback func(telemetry.WindowStats)
	OnBookmark    func(telemetry.Bookmark)
}

// Sim owns the agent population and runs the per-tick pipeline.
// Its methods are not safe for concurrent use.
type Sim struct {
	cfg *config.Config

	// ECS
	world      *ecs.World
	boidMapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Boid,
		components.Wander,
		components.Steering,
		components.Target,
	]
	boidFilter *ecs.Filter7[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Boid,
		components.Wander,
		components.Steering,
		components.Target,
	]
	posMap    *ecs.Map1[components.Position]
	velMap    *ecs.Map1[components.Velocity]
	rotMap    *ecs.Map1[components.Rotation]
	boidMap   *ecs.Map1[components.Boid]
	wanderMap *ecs.Map1[components.Wander]
	steerMap  *ecs.Map1[components.Steering]
	targetMap *ecs.Map1[components.Target]

	// Lifecycle
	entities map[steering.Handle]ecs.Entity
	order    []steering.Handle // spawn order
	pending  []steering.Handle // despawns applied at the next tick boundary
	nextID   steering.Handle
	rng      *rand.Rand

	tick uint64
	dt   float64

	// Demo mode and shared tunables
	mode        Mode
	base        steering.BehaviourSet
	maxVelocity float64
	pointer     r2.Vec
	leader      steering.Handle
	dirty       bool // templates must be re-applied before the next tick

	// Per-tick infrastructure
	neighbours systems.NeighbourIndex
	obstacles  *systems.ObstacleField
	parallel   *parallelState
	resolver   snapshotResolver

	// Telemetry
	collector        *telemetry.Collector
	perf             *telemetry.PerfCollector
	bookmarks        *telemetry.BookmarkDetector
	logStats         bool
	output           *telemetry.OutputManager
	statsCallback    func(telemetry.WindowStats)
	bookmarkCallback func(telemetry.Bookmark)
}

// New creates a simulation from cfg, builds the obstacle field and spawns
// agents.count agents in the configured demo mode.
func New(cfg *config.Config, opts Options) (*Sim, error) {
	world := ecs.NewWorld()

	seed := cfg.Agents.Seed
	if opts.Seed != 0 {
		seed = opts.Seed
	}

	s := &Sim{
		cfg:   cfg,
		world: world,
		boidMapper: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Boid,
			components.Wander,
			components.Steering,
			components.Target,
		](world),
		boidFilter: ecs.NewFilter7[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Boid,
			components.Wander,
			components.Steering,
			components.Target,
		](world),
		posMap:    ecs.NewMap1[components.Position](world),
		velMap:    ecs.NewMap1[components.Velocity](world),
		rotMap:    ecs.NewMap1[components.Rotation](world),
		boidMap:   ecs.NewMap1[components.Boid](world),
		wanderMap: ecs.NewMap1[components.Wander](world),
		steerMap:  ecs.NewMap1[components.Steering](world),
		targetMap: ecs.NewMap1[components.Target](world),

		entities: make(map[steering.Handle]ecs.Entity),
		nextID:   1,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		dt:       cfg.Physics.DT,

		base:        cfg.Derived.Behaviours,
		maxVelocity: cfg.Agents.MaxVelocity,
		pointer:     r2.Vec{X: cfg.Derived.WorldW / 2, Y: cfg.Derived.WorldH / 2},

		parallel: newParallelState(opts.Workers, cfg.Physics.ParallelThreshold),

		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		perf:             telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarks:        telemetry.NewBookmarkDetector(10),
		logStats:         opts.LogStats,
		output:           opts.Output,
		statsCallback:    opts.StatsCallback,
		bookmarkCallback: opts.OnBookmark,
	}

	neighbours, err := systems.NewNeighbourIndex(cfg.Physics.NeighbourIndex, cfg.Physics.GridCellSize)
	if err != nil {
		return nil, err
	}
	s.neighbours = neighbours

	obstacles, err := s.buildObstacles()
	if err != nil {
		return nil, err
	}
	s.obstacles = obstacles

	mode, ok := ParseMode(cfg.Demo.Mode)
	if !ok {
		slog.Warn("unknown demo mode, using custom", "mode", cfg.Demo.Mode)
	}
	s.mode = mode
	s.dirty = true

	s.SetCount(cfg.Agents.Count)
	s.applyTemplates()

	slog.Info("simulation created",
		"agents", s.Count(),
		"mode", s.mode.String(),
		"obstacles", s.obstacles.Len(),
		"workers", s.parallel.numWorkers,
		"neighbour_index", cfg.Physics.NeighbourIndex,
		"seed", seed,
	)
	return s, nil
}

// Step advances the simulation by one tick of physics.dt seconds.
func (s *Sim) Step() {
	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseLifecycle)
	s.flushDespawns()
	if s.dirty {
		s.applyTemplates()
	}

	s.perf.StartPhase(telemetry.PhaseSnapshot)
	s.buildSnapshot()

	s.perf.StartPhase(telemetry.PhaseSpatialGrid)
	s.neighbours.Rebuild(s.parallel.agents)
	s.resolver.rebuild(s.parallel.agents)

	s.perf.StartPhase(telemetry.PhaseCompute)
	s.run(phaseCompute)

	s.perf.StartPhase(telemetry.PhaseIntegrate)
	s.run(phaseIntegrate)

	s.perf.StartPhase(telemetry.PhaseApply)
	s.applyIntents()
	s.tick++

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()

	s.perf.EndTick()
}

// Tick returns the number of completed ticks.
func (s *Sim) Tick() uint64 { return s.tick }

// DT returns the tick length in seconds.
func (s *Sim) DT() float64 { return s.dt }

// Count returns the number of agents not queued for removal.
func (s *Sim) Count() int { return len(s.order) - len(s.pending) }

// Alive reports whether h refers to an agent that still exists.
func (s *Sim) Alive(h steering.Handle) bool {
	e, ok := s.entities[h]
	return ok && s.world.Alive(e)
}

// Agent returns the current state of h.
func (s *Sim) Agent(h steering.Handle) (steering.Agent, bool) {
	e, ok := s.entities[h]
	if !ok || !s.world.Alive(e) {
		return steering.Agent{}, false
	}
	return s.agentOf(e), true
}

func (s *Sim) agentOf(e ecs.Entity) steering.Agent {
	pos := s.posMap.Get(e)
	vel := s.velMap.Get(e)
	rot := s.rotMap.Get(e)
	boid := s.boidMap.Get(e)
	w := s.wanderMap.Get(e)
	return steering.Agent{
		Handle:          boid.ID,
		Tag:             boid.Tag,
		Position:        pos.Vec(),
		Velocity:        vel.Vec(),
		Orientation:     rot.Angle,
		MaxVelocity:     boid.MaxVelocity,
		MaxForce:        boid.MaxForce,
		ForceMultiplier: boid.ForceMultiplier,
		Wander:          w.State,
	}
}

// AppendAgents appends the state of every agent in spawn order to dst.
func (s *Sim) AppendAgents(dst []steering.Agent) []steering.Agent {
	for _, h := range s.order {
		if e, ok := s.entities[h]; ok {
			dst = append(dst, s.agentOf(e))
		}
	}
	return dst
}

// Handles returns the live agent handles in spawn order.
func (s *Sim) Handles() []steering.Handle {
	out := make([]steering.Handle, len(s.order))
	copy(out, s.order)
	return out
}

// Obstacles returns the static obstacles.
func (s *Sim) Obstacles() []systems.Obstacle { return s.obstacles.Obstacles() }

// Pointer returns the fixed-point target used by pointer-driven modes.
func (s *Sim) Pointer() r2.Vec { return s.pointer }

// Leader returns the agent other agents pursue or evade, if any.
func (s *Sim) Leader() steering.Handle { return s.leader }

// PerfStats returns timing averaged over the perf window.
func (s *Sim) PerfStats() telemetry.PerfStats { return s.perf.Stats() }

// RecordFrame marks a rendered frame for FPS reporting.
func (s *Sim) RecordFrame() { s.perf.RecordFrame() }

// Close stops the worker pool.
func (s *Sim) Close() {
	s.parallel.stopWorkers()
}
