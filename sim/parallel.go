package sim

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/steering"
)

// phase selects what a worker does with a chunk.
type phase uint8

const (
	phaseCompute phase = iota
	phaseIntegrate
)

// entitySnapshot captures the per-agent configuration read during a tick.
// Kinematic state lives in the parallel agents slice so the neighbour index
// can be built straight from it.
type entitySnapshot struct {
	Entity     ecs.Entity
	Behaviours steering.BehaviourSet
	Target     steering.TargetRef
}

// intent captures computed outputs to apply after the parallel phases.
type intent struct {
	Force r2.Vec
	Next  steering.Agent
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	Neighbours []steering.Neighbour
}

// workChunk represents a range of agents for a worker to process.
type workChunk struct {
	start, end int
	phase      phase
}

// parallelState holds resources for parallel force computation and integration.
type parallelState struct {
	snapshots  []entitySnapshot
	agents     []steering.Agent
	intents    []intent
	scratches  []workerScratch
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(workers, threshold int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]workerScratch, workers)
	for i := range scratches {
		scratches[i].Neighbours = make([]steering.Neighbour, 0, 64)
	}
	return &parallelState{
		numWorkers: workers,
		threshold:  threshold,
		scratches:  scratches,
		snapshots:  make([]entitySnapshot, 0, 512),
		agents:     make([]steering.Agent, 0, 512),
		intents:    make([]intent, 0, 512),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Sim) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(s *Sim, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.processChunk(chunk, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// buildSnapshot copies every agent out of the ECS world. Nothing computed
// during the tick reads the world again until applyIntents.
func (s *Sim) buildSnapshot() {
	p := s.parallel
	p.snapshots = p.snapshots[:0]
	p.agents = p.agents[:0]

	query := s.boidFilter.Query()
	for query.Next() {
		pos, vel, rot, boid, w, st, target := query.Get()
		p.snapshots = append(p.snapshots, entitySnapshot{
			Entity:     query.Entity(),
			Behaviours: st.Set,
			Target:     target.Ref,
		})
		p.agents = append(p.agents, steering.Agent{
			Handle:          boid.ID,
			Tag:             boid.Tag,
			Position:        pos.Vec(),
			Velocity:        vel.Vec(),
			Orientation:     rot.Angle,
			MaxVelocity:     boid.MaxVelocity,
			MaxForce:        boid.MaxForce,
			ForceMultiplier: boid.ForceMultiplier,
			Wander:          w.State,
		})
	}

	n := len(p.snapshots)
	if cap(p.intents) < n {
		p.intents = make([]intent, n)
	}
	p.intents = p.intents[:n]
}

// run executes ph over every agent and returns once all of them are done,
// which is the barrier between compute and integrate.
func (s *Sim) run(ph phase) {
	p := s.parallel
	n := len(p.agents)
	if n == 0 {
		return
	}

	// Single-threaded for small populations
	if n < p.threshold || p.numWorkers == 1 {
		s.processChunk(workChunk{start: 0, end: n, phase: ph}, &p.scratches[0])
		return
	}

	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	// Dispatch chunks to workers
	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, phase: ph}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

func (s *Sim) processChunk(c workChunk, scratch *workerScratch) {
	switch c.phase {
	case phaseCompute:
		s.computeChunk(c.start, c.end, scratch)
	case phaseIntegrate:
		s.integrateChunk(c.start, c.end)
	}
}

// computeChunk computes steering for a range of agents. It reads only the
// snapshot, the neighbour index, the resolver and the obstacle field.
func (s *Sim) computeChunk(i0, i1 int, scratch *workerScratch) {
	p := s.parallel
	hasObstacles := s.obstacles.Len() > 0

	for i := i0; i < i1; i++ {
		snap := &p.snapshots[i]
		self := p.agents[i]
		set := &snap.Behaviours

		ctx := steering.Context{Tick: s.tick, DT: s.dt}
		if r := set.NeighbourRange(); r > 0 {
			scratch.Neighbours = s.neighbours.Query(scratch.Neighbours[:0], self.Position, r, self.Handle, set.NeighbourTags())
			ctx.Neighbours = scratch.Neighbours
		}
		if set.NeedsTarget() {
			ctx.Target = snap.Target.Resolve(&s.resolver)
		}
		if hasObstacles && set.IsSet(steering.ObstacleAvoidance) {
			ctx.Obstacles = s.obstacles
		}

		out := steering.ComputeForce(self, set, ctx)
		in := &p.intents[i]
		in.Force = out.Force
		in.Next = self
		in.Next.Wander = out.Wander
	}
}

// integrateChunk advances a range of agents by their computed forces.
func (s *Sim) integrateChunk(i0, i1 int) {
	p := s.parallel
	for i := i0; i < i1; i++ {
		in := &p.intents[i]
		in.Next = steering.Integrate(in.Next, in.Force, s.dt)
	}
}

// applyIntents writes integrated state back to ECS components.
func (s *Sim) applyIntents() {
	p := s.parallel
	for i := range p.snapshots {
		e := p.snapshots[i].Entity
		next := &p.intents[i].Next

		// Get live component pointers
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		rot := s.rotMap.Get(e)
		w := s.wanderMap.Get(e)
		if pos == nil || vel == nil || rot == nil || w == nil {
			continue
		}

		pos.X, pos.Y = next.Position.X, next.Position.Y
		vel.X, vel.Y = next.Velocity.X, next.Velocity.Y
		rot.Angle = next.Orientation
		w.State = next.Wander
	}
}
