package sim

import "github.com/pthm-cable/boids/steering"

// snapshotResolver resolves agent handles against the current tick's snapshot.
// It is rebuilt once per tick and only read while workers run.
type snapshotResolver struct {
	index  map[steering.Handle]int32
	agents []steering.Agent
}

func (r *snapshotResolver) rebuild(agents []steering.Agent) {
	if r.index == nil {
		r.index = make(map[steering.Handle]int32, len(agents))
	}
	clear(r.index)
	for i := range agents {
		r.index[agents[i].Handle] = int32(i)
	}
	r.agents = agents
}

// Resolve implements steering.Resolver.
func (r *snapshotResolver) Resolve(h steering.Handle) (steering.Target, bool) {
	i, ok := r.index[h]
	if !ok {
		return steering.NoTarget, false
	}
	a := &r.agents[i]
	return steering.Target{Position: a.Position, Velocity: a.Velocity}, true
}
