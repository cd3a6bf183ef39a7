package game

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/boids/steering"
)

// Boid triangle in world units, pointing along +X before rotation.
const (
	boidLength = 9
	boidTail   = 4
	boidWidth  = 8
)

var (
	preyColor          = rl.SkyBlue
	predatorColor      = rl.Red
	leaderColor        = rl.Gold
	pointerColor       = rl.Green
	obstacleColor      = rl.Color{R: 90, G: 90, B: 110, A: 255}
	inertObstacleColor = rl.Color{R: 90, G: 90, B: 110, A: 70} // mode ignores obstacles
)

// Draw renders the game.
func (g *Game) Draw() {
	g.sim.RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 18, G: 20, B: 28, A: 255})

	g.drawObstacles()
	g.drawBoids()
	if g.sim.Mode().UsesPointer() {
		g.drawPointer()
	}

	g.drawHUD()
	g.overPanel = false
	if g.showPanel {
		g.drawPanel()
	}

	rl.EndDrawing()
}

func (g *Game) drawObstacles() {
	color := inertObstacleColor
	if g.sim.Mode().UsesObstacles() {
		color = obstacleColor
	}
	for _, o := range g.sim.Obstacles() {
		if !g.camera.IsVisible(o.Centre.X, o.Centre.Y, o.Radius) {
			continue
		}
		sx, sy := g.camera.WorldToScreen(o.Centre.X, o.Centre.Y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, g.camera.Scale(o.Radius), color)
	}
}

func (g *Game) drawBoids() {
	leader := g.sim.Leader()
	g.agents = g.sim.AppendAgents(g.agents[:0])
	for i := range g.agents {
		a := &g.agents[i]
		if !g.camera.IsVisible(a.Position.X, a.Position.Y, boidLength) {
			continue
		}
		color := preyColor
		switch {
		case a.Handle == leader:
			color = leaderColor
		case a.Tag&steering.TagPredator != 0:
			color = predatorColor
		}
		g.drawBoid(a, color)
	}
}

// drawBoid draws a triangle pointing along the agent's orientation.
func (g *Game) drawBoid(a *steering.Agent, color rl.Color) {
	cos, sin := math.Cos(a.Orientation), math.Sin(a.Orientation)
	point := func(fwd, side float64) rl.Vector2 {
		x := a.Position.X + fwd*cos - side*sin
		y := a.Position.Y + fwd*sin + side*cos
		sx, sy := g.camera.WorldToScreen(x, y)
		return rl.Vector2{X: sx, Y: sy}
	}

	nose := point(boidLength, 0)
	left := point(-boidTail, -boidWidth/2)
	right := point(-boidTail, boidWidth/2)

	// DrawTriangle requires counter-clockwise winding on screen (y down)
	rl.DrawTriangle(nose, left, right, color)
}

func (g *Game) drawPointer() {
	p := g.sim.Pointer()
	sx, sy := g.camera.WorldToScreen(p.X, p.Y)
	rl.DrawCircleLines(int32(sx), int32(sy), 8, pointerColor)
	rl.DrawLine(int32(sx)-12, int32(sy), int32(sx)+12, int32(sy), pointerColor)
	rl.DrawLine(int32(sx), int32(sy)-12, int32(sx), int32(sy)+12, pointerColor)
}

func (g *Game) drawHUD() {
	perf := g.sim.PerfStats()
	rl.DrawText(fmt.Sprintf("Tick: %d  Mode: %s", g.sim.Tick(), g.sim.Mode()), 10, 10, 20, rl.White)
	rl.DrawText(fmt.Sprintf("Agents: %d  TPS: %.0f  FPS: %d", g.sim.Count(), perf.TicksPerSecond, rl.GetFPS()), 10, 35, 20, rl.White)
	rl.DrawText(fmt.Sprintf("Speed: %dx  [</>]", g.stepsPerUpdate), 10, 60, 20, rl.White)
	if g.paused {
		rl.DrawText("PAUSED", 10, 85, 20, rl.Yellow)
	}
	rl.DrawText("[Space] pause  [R] reset  [Tab] panel  [Home] camera", 10, int32(g.screenHeight)-24, 14, rl.Gray)
}
