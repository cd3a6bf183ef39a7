package stream

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/steering"
)

// AgentFrame is one agent as sent to renderers.
type AgentFrame struct {
	ID    uint32  `json:"id"`
	Tag   uint8   `json:"tag"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	Angle float64 `json:"angle"`
}

// Frame is the state of the simulation after one tick.
type Frame struct {
	Tick    uint64       `json:"tick"`
	Mode    string       `json:"mode"`
	Pointer [2]float64   `json:"pointer"`
	Agents  []AgentFrame `json:"agents"`
}

// NewFrame builds a frame from agent state.
func NewFrame(tick uint64, mode string, pointer r2.Vec, agents []steering.Agent) Frame {
	f := Frame{
		Tick:    tick,
		Mode:    mode,
		Pointer: [2]float64{pointer.X, pointer.Y},
		Agents:  make([]AgentFrame, len(agents)),
	}
	for i := range agents {
		a := &agents[i]
		f.Agents[i] = AgentFrame{
			ID:    uint32(a.Handle),
			Tag:   uint8(a.Tag),
			X:     a.Position.X,
			Y:     a.Position.Y,
			VX:    a.Velocity.X,
			VY:    a.Velocity.Y,
			Angle: a.Orientation,
		}
	}
	return f
}

// Control is a message from a client. Unset fields are left alone.
type Control struct {
	Mode    string      `json:"mode,omitempty"`
	Pointer *[2]float64 `json:"pointer,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Reset   bool        `json:"reset,omitempty"`

	// Behaviours toggles named behaviours on every agent, e.g.
	// {"seek": true, "wander": false}. Toggling leaves the demo modes.
	Behaviours map[string]bool `json:"behaviours,omitempty"`
}

// Controller is what a Control acts on.
type Controller interface {
	SetModeName(name string) bool
	SetPointer(p r2.Vec)
	SetCount(n int)
	Reset()
	SetBehaviour(k steering.Kind, on bool)
}

// Apply performs every change c carries, in field order. Unknown mode or
// behaviour names are reported after the other fields are applied.
func (c Control) Apply(ctl Controller) error {
	var errs []error
	if c.Mode != "" && !ctl.SetModeName(c.Mode) {
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if c.Pointer != nil {
		ctl.SetPointer(r2.Vec{X: c.Pointer[0], Y: c.Pointer[1]})
	}
	if c.Count != nil {
		ctl.SetCount(*c.Count)
	}
	if c.Reset {
		ctl.Reset()
	}
	// Sorted so toggles that exclude each other resolve the same way every time.
	for _, name := range slices.Sorted(maps.Keys(c.Behaviours)) {
		k, ok := steering.ParseKind(name)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown behaviour %q", name))
			continue
		}
		ctl.SetBehaviour(k, c.Behaviours[name])
	}
	return errors.Join(errs...)
}
