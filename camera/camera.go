// Package camera provides a 2D camera for viewing the unbounded simulation plane.
package camera

// Camera controls the viewport into the simulation world. World coordinates
// are float64 like the simulation; screen coordinates are float32 like raylib.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float64

	// Zoom level (1.0 = 1:1, 2.0 = 2x magnification)
	Zoom float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Zoom constraints
	MinZoom, MaxZoom float64

	// Home view restored by Reset
	homeX, homeY, homeZoom float64
}

// New creates a camera framing the rectangle (0,0)-(worldW,worldH).
func New(viewportW, viewportH float32, worldW, worldH float64) *Camera {
	c := &Camera{
		Zoom:      1,
		ViewportW: viewportW,
		ViewportH: viewportH,
		MinZoom:   0.05,
		MaxZoom:   8,
	}
	c.Fit(0, 0, worldW, worldH)
	c.homeX, c.homeY, c.homeZoom = c.X, c.Y, c.Zoom
	return c
}

// Fit centers the camera on a world rectangle and zooms so it fills the viewport.
func (c *Camera) Fit(minX, minY, maxX, maxY float64) {
	c.X = (minX + maxX) / 2
	c.Y = (minY + maxY) / 2
	w, h := maxX-minX, maxY-minY
	if w <= 0 || h <= 0 {
		return
	}
	c.SetZoom(min(float64(c.ViewportW)/w, float64(c.ViewportH)/h))
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float32) {
	sx = c.ViewportW/2 + float32((wx-c.X)*c.Zoom)
	sy = c.ViewportH/2 + float32((wy-c.Y)*c.Zoom)
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float64) {
	wx = c.X + float64(sx-c.ViewportW/2)/c.Zoom
	wy = c.Y + float64(sy-c.ViewportH/2)/c.Zoom
	return wx, wy
}

// Scale converts a world length to screen pixels.
func (c *Camera) Scale(d float64) float32 {
	return float32(d * c.Zoom)
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float64) bool {
	halfW := float64(c.ViewportW)/(2*c.Zoom) + radius
	halfH := float64(c.ViewportH)/(2*c.Zoom) + radius
	return abs(wx-c.X) <= halfW && abs(wy-c.Y) <= halfH
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	c.X += float64(dx) / c.Zoom
	c.Y += float64(dy) / c.Zoom
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = max(c.MinZoom, min(zoom, c.MaxZoom))
}

// ZoomAt multiplies the zoom by factor, keeping the world point under the
// screen position (sx, sy) fixed.
func (c *Camera) ZoomAt(factor float64, sx, sy float32) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.SetZoom(c.Zoom * factor)
	nx, ny := c.ScreenToWorld(sx, sy)
	c.X += wx - nx
	c.Y += wy - ny
}

// Reset returns the camera to the view it was created with.
func (c *Camera) Reset() {
	c.X, c.Y, c.Zoom = c.homeX, c.homeY, c.homeZoom
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float64) {
	halfW := float64(c.ViewportW) / (2 * c.Zoom)
	halfH := float64(c.ViewportH) / (2 * c.Zoom)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
