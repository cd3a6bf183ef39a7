// Package game drives a simulation for the interactive viewer and for
// headless runs, forwarding frames and controls through the stream hub.
package game

import (
	"log/slog"

	"github.com/pthm-cable/boids/camera"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/sim"
	"github.com/pthm-cable/boids/steering"
	"github.com/pthm-cable/boids/stream"
)

// Options configures a Game.
type Options struct {
	Hub            *stream.Hub // nil disables streaming
	StreamInterval int         // ticks between broadcast frames
	StepsPerUpdate int
	Headless       bool
}

// Game owns a simulation plus the viewer state around it.
type Game struct {
	sim *sim.Sim
	cfg *config.Config

	hub            *stream.Hub
	streamInterval uint64

	// Viewer state
	camera         *camera.Camera
	paused         bool
	stepsPerUpdate int
	showPanel      bool
	overPanel      bool
	screenWidth    float32
	screenHeight   float32

	// Scratch reused between frames
	agents []steering.Agent
}

// NewGame wraps s. The camera is only created for graphical runs.
func NewGame(s *sim.Sim, cfg *config.Config, opts Options) *Game {
	g := &Game{
		sim:            s,
		cfg:            cfg,
		hub:            opts.Hub,
		streamInterval: uint64(max(1, opts.StreamInterval)),
		stepsPerUpdate: max(1, opts.StepsPerUpdate),
		showPanel:      true,
		screenWidth:    float32(cfg.Screen.Width),
		screenHeight:   float32(cfg.Screen.Height),
	}
	if !opts.Headless {
		g.camera = camera.New(g.screenWidth, g.screenHeight, cfg.Derived.WorldW, cfg.Derived.WorldH)
	}
	return g
}

// Tick returns the simulation tick.
func (g *Game) Tick() uint64 { return g.sim.Tick() }

// Sim returns the driven simulation.
func (g *Game) Sim() *sim.Sim { return g.sim }

// UpdateHeadless applies pending stream controls and advances the simulation.
func (g *Game) UpdateHeadless() {
	g.applyControls()
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.step()
	}
}

// Update handles input and advances the simulation unless paused.
func (g *Game) Update() {
	g.handleInput()
	g.applyControls()
	if g.paused {
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.step()
	}
}

func (g *Game) step() {
	g.sim.Step()
	g.broadcast()
}

// applyControls drains control messages received since the last update.
func (g *Game) applyControls() {
	if g.hub == nil {
		return
	}
	for {
		select {
		case c := <-g.hub.Controls():
			if err := c.Apply(g.sim); err != nil {
				slog.Warn("control rejected", "error", err)
			}
		default:
			return
		}
	}
}

// broadcast sends the current state to stream clients every streamInterval ticks.
func (g *Game) broadcast() {
	if g.hub == nil || g.sim.Tick()%g.streamInterval != 0 || g.hub.Clients() == 0 {
		return
	}
	g.agents = g.sim.AppendAgents(g.agents[:0])
	frame := stream.NewFrame(g.sim.Tick(), g.sim.Mode().String(), g.sim.Pointer(), g.agents)
	if err := g.hub.Broadcast(frame); err != nil {
		slog.Error("failed to broadcast frame", "error", err)
	}
}

// Unload stops the simulation's workers.
func (g *Game) Unload() {
	g.sim.Close()
}
