package game

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/boids/sim"
	"github.com/pthm-cable/boids/steering"
)

const (
	panelWidth  = 280
	panelMargin = 10
	sliderWidth = panelWidth - 2*panelMargin - 60
)

// panelLayout stacks widgets down the control panel.
type panelLayout struct {
	x, y float32
}

func (p *panelLayout) label(text string, color rl.Color) {
	rl.DrawText(text, int32(p.x), int32(p.y), 14, color)
	p.y += 20
}

// slider draws a labelled slider and returns the possibly changed value.
func (p *panelLayout) slider(name string, value, lo, hi float32) float32 {
	rl.DrawText(name, int32(p.x), int32(p.y), 14, rl.LightGray)
	p.y += 18
	v := gui.SliderBar(rl.Rectangle{X: p.x, Y: p.y, Width: sliderWidth, Height: 18}, "", "", value, lo, hi)
	rl.DrawText(fmt.Sprintf("%.1f", v), int32(p.x+sliderWidth+8), int32(p.y+2), 14, rl.White)
	p.y += 28
	return v
}

func (p *panelLayout) button(text string, width float32) bool {
	clicked := gui.Button(rl.Rectangle{X: p.x, Y: p.y, Width: width, Height: 24}, text)
	p.y += 30
	return clicked
}

// tune edits one shared float parameter when its slider moved.
func (g *Game) tune(p *panelLayout, name string, field func(*steering.BehaviourSet) *float64, lo, hi float32) {
	set := g.sim.Behaviours()
	cur := float32(*field(&set))
	if v := p.slider(name, cur, lo, hi); v != cur {
		g.sim.Tune(func(b *steering.BehaviourSet) { *field(b) = float64(v) })
	}
}

// drawPanel renders the raygui control panel on the right edge.
func (g *Game) drawPanel() {
	x := g.screenWidth - panelWidth
	bounds := rl.Rectangle{X: x, Y: 0, Width: panelWidth, Height: g.screenHeight}
	g.overPanel = rl.CheckCollisionPointRec(rl.GetMousePosition(), bounds)

	rl.DrawRectangleRec(bounds, rl.Color{R: 0, G: 0, B: 0, A: 190})
	p := &panelLayout{x: x + panelMargin, y: panelMargin}

	p.label("MODE", rl.Yellow)
	for _, m := range sim.Modes() {
		text := m.String()
		if m == g.sim.Mode() {
			text = "> " + text
		}
		if p.button(text, panelWidth-2*panelMargin) {
			g.sim.SetMode(m)
		}
	}
	p.y += 6

	p.label("POPULATION", rl.Yellow)
	count := float32(g.sim.Count())
	if v := p.slider("Count", count, 0, sim.MaxAgents); int(v) != int(count) {
		g.sim.SetCount(int(v))
	}
	speed := float32(g.sim.MaxVelocity())
	if v := p.slider("Max velocity", speed, 0, 1000); v != speed {
		g.sim.SetMaxVelocity(float64(v))
	}
	if p.button("Reset", 100) {
		g.sim.Reset()
	}

	g.drawModeSliders(p)
}

// drawModeSliders shows the tunables the current mode actually uses.
func (g *Game) drawModeSliders(p *panelLayout) {
	m := g.sim.Mode()
	p.label(m.String(), rl.Yellow)

	switch m {
	case sim.ModeSeek:
		g.tune(p, "Slowing radius", func(b *steering.BehaviourSet) *float64 { return &b.Arrival.SlowingRadius }, 0, 1000)
	case sim.ModeFlee:
		g.tune(p, "Flee distance", func(b *steering.BehaviourSet) *float64 { return &b.Flee.IgnoreDistance }, 0, 3000)
	case sim.ModePursue:
		g.tune(p, "Max prediction", func(b *steering.BehaviourSet) *float64 { return &b.Pursue.MaxPrediction }, 0, 10)
	case sim.ModeEvade:
		g.tune(p, "Evade distance", func(b *steering.BehaviourSet) *float64 { return &b.Evade.IgnoreDistance }, 0, 3000)
	case sim.ModeAlignment:
		g.tune(p, "Alignment range", func(b *steering.BehaviourSet) *float64 { return &b.Alignment.NeighbourRange }, 0, 3000)
	case sim.ModeCohesion:
		g.tune(p, "Cohesion range", func(b *steering.BehaviourSet) *float64 { return &b.Cohesion.NeighbourRange }, 0, 3000)
	case sim.ModeSeparation:
		g.tune(p, "Separation range", func(b *steering.BehaviourSet) *float64 { return &b.Separation.NeighbourRange }, 0, 3000)
	case sim.ModeFlocking, sim.ModeFlockingWithPredators:
		g.tune(p, "Alignment force", func(b *steering.BehaviourSet) *float64 { return &b.Alignment.Force }, 0, 100)
		g.tune(p, "Cohesion force", func(b *steering.BehaviourSet) *float64 { return &b.Cohesion.Force }, 0, 100)
		g.tune(p, "Separation force", func(b *steering.BehaviourSet) *float64 { return &b.Separation.Force }, 0, 100)
	case sim.ModeCollisionAvoidance:
		g.tune(p, "Trace length", func(b *steering.BehaviourSet) *float64 { return &b.ObstacleAvoidance.TraceLength }, 0, 3000)
	}

	if m != sim.ModeSeek {
		g.tune(p, "Wander radius", func(b *steering.BehaviourSet) *float64 { return &b.Wander.CircleRadius }, 1, 1000)
		g.tune(p, "Wander distance", func(b *steering.BehaviourSet) *float64 { return &b.Wander.CircleDistance }, 0, 1000)
		g.tuneJitterDegrees(p)
	}
}

// tuneJitterDegrees shows wander jitter in degrees and stores radians.
func (g *Game) tuneJitterDegrees(p *panelLayout) {
	set := g.sim.Behaviours()
	deg := float32(set.Wander.Jitter * 180 / math.Pi)
	if v := p.slider("Wander angle (deg)", deg, 0, 180); v != deg {
		g.sim.Tune(func(b *steering.BehaviourSet) { b.Wander.Jitter = float64(v) * math.Pi / 180 })
	}
}
