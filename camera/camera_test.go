package camera

import (
	"math"
	"testing"
)

func TestNewFitsWorld(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)

	// Should be centered on world
	if cam.X != 1280 || cam.Y != 720 {
		t.Errorf("expected camera at (1280, 720), got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 0.5 {
		t.Errorf("expected zoom 0.5, got %f", cam.Zoom)
	}

	minX, minY, maxX, maxY := cam.VisibleWorldBounds()
	if minX != 0 || minY != 0 || maxX != 2560 || maxY != 1440 {
		t.Errorf("visible bounds = (%v,%v)-(%v,%v), want whole world", minX, minY, maxX, maxY)
	}
}

func TestFitUsesTighterAxis(t *testing.T) {
	cam := New(1000, 500, 1000, 500)
	cam.Fit(0, 0, 100, 100)
	if cam.Zoom != 5 {
		t.Errorf("zoom = %v, want 5 (height limited)", cam.Zoom)
	}
	if cam.X != 50 || cam.Y != 50 {
		t.Errorf("center = (%v,%v), want (50,50)", cam.X, cam.Y)
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)

	// Camera center should map to screen center
	sx, sy := cam.WorldToScreen(1280, 720)
	if math.Abs(float64(sx-640)) > 0.01 || math.Abs(float64(sy-360)) > 0.01 {
		t.Errorf("expected screen center (640, 360), got (%f, %f)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.SetZoom(1.7)

	testCases := []struct{ sx, sy float32 }{
		{640, 360},  // center
		{100, 100},  // top-left
		{1200, 600}, // near bottom-right
	}

	for _, tc := range testCases {
		wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wy)
		if math.Abs(float64(sx-tc.sx)) > 0.01 || math.Abs(float64(sy-tc.sy)) > 0.01 {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
				tc.sx, tc.sy, wx, wy, sx, sy)
		}
	}
}

func TestNoWrapOutsideWorld(t *testing.T) {
	cam := New(1280, 720, 1280, 720)
	cam.X = 100

	// Points beyond the spawn rectangle stay where they are on the plane
	sx, _ := cam.WorldToScreen(-700, 360)
	if sx >= 0 {
		t.Errorf("expected point left of the screen, got x=%f", sx)
	}
	wx, _ := cam.ScreenToWorld(0, 360)
	if wx != -540 {
		t.Errorf("ScreenToWorld x = %v, want -540", wx)
	}
}

func TestPan(t *testing.T) {
	cam := New(1280, 720, 1280, 720)
	cam.SetZoom(2)
	cam.Pan(-2000, 100)
	if cam.X != 640-1000 || cam.Y != 360+50 {
		t.Errorf("after pan camera at (%v,%v), want (-360,410)", cam.X, cam.Y)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1280, 720, 1280, 720)

	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MaxZoom, cam.Zoom)
	}

	cam.SetZoom(0)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MinZoom, cam.Zoom)
	}
}

func TestZoomAtKeepsCursorPoint(t *testing.T) {
	cam := New(1280, 720, 1280, 720)
	wx, wy := cam.ScreenToWorld(200, 150)

	cam.ZoomAt(2.5, 200, 150)

	sx, sy := cam.WorldToScreen(wx, wy)
	if math.Abs(float64(sx-200)) > 0.01 || math.Abs(float64(sy-150)) > 0.01 {
		t.Errorf("cursor point moved to (%f,%f)", sx, sy)
	}
	if cam.Zoom != 2.5 {
		t.Errorf("zoom = %v, want 2.5", cam.Zoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(1280, 720, 1280, 720)

	tests := []struct {
		name   string
		x, y   float64
		radius float64
		want   bool
	}{
		{"center", 640, 360, 0, true},
		{"corner", 0, 0, 0, true},
		{"far outside", -500, 360, 10, false},
		{"just outside, radius overlaps", -5, 360, 10, true},
	}
	for _, tt := range tests {
		if got := cam.IsVisible(tt.x, tt.y, tt.radius); got != tt.want {
			t.Errorf("%s: IsVisible(%v,%v,%v) = %v, want %v", tt.name, tt.x, tt.y, tt.radius, got, tt.want)
		}
	}
}

func TestReset(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.Pan(500, -300)
	cam.SetZoom(3)

	cam.Reset()

	if cam.X != 1280 || cam.Y != 720 || cam.Zoom != 0.5 {
		t.Errorf("after reset: (%v,%v) zoom %v", cam.X, cam.Y, cam.Zoom)
	}
}
