package game

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/sim"
	"github.com/pthm-cable/boids/stream"
)

func newHeadless(t *testing.T, hub *stream.Hub) *Game {
	t.Helper()
	cfg, err := config.Parse([]byte("agents:\n  count: 20\nobstacles:\n  random_count: 0\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	s, err := sim.New(cfg, sim.Options{Workers: 1})
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	g := NewGame(s, cfg, Options{Hub: hub, StreamInterval: 1, StepsPerUpdate: 2, Headless: true})
	t.Cleanup(g.Unload)
	return g
}

func TestHeadlessSteps(t *testing.T) {
	g := newHeadless(t, nil)
	g.UpdateHeadless()
	g.UpdateHeadless()
	if g.Tick() != 4 {
		t.Errorf("Tick() = %d, want 4", g.Tick())
	}
}

func TestStreamRoundTrip(t *testing.T) {
	hub := stream.NewHub()
	g := newHeadless(t, hub)

	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(stream.Control{Mode: "wander"}); err != nil {
		t.Fatalf("write control: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for g.Sim().Mode() != sim.ModeWander {
		if time.Now().After(deadline) {
			t.Fatal("control never applied")
		}
		time.Sleep(5 * time.Millisecond)
		g.UpdateHeadless()
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f stream.Frame
	for f.Mode != "wander" {
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read frame: %v", err)
		}
	}
	if len(f.Agents) != 20 {
		t.Errorf("frame has %d agents, want 20", len(f.Agents))
	}
}
