package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/citadel/engine/math"
)

func TestInitialPosition(t *testing.T) {
	c := NewOrbitCamera(1.0)

	pos := c.Position()
	assert.InDelta(t, 0.0, pos.X, 1e-4)
	assert.InDelta(t, 12.13525, pos.Y, 1e-4)
	assert.InDelta(t, -8.81678, pos.Z, 1e-4)
}

func TestOrbitQuarterDegreePerPixel(t *testing.T) {
	c := NewOrbitCamera(1.0)
	start := c.Theta()

	c.Orbit(40, 0)
	assert.InDelta(t, 0.1745, c.Theta()-start, 1e-3)
}

func TestOrbitClampsPhi(t *testing.T) {
	c := NewOrbitCamera(1.0)

	c.Orbit(0, -10000)
	assert.InDelta(t, 0.1, c.Phi(), 1e-6)

	c.Orbit(0, 10000)
	assert.InDelta(t, math.Pi-0.1, c.Phi(), 1e-5)
}

func TestZoomClampsRadius(t *testing.T) {
	c := NewOrbitCamera(1.0)

	c.Zoom(-10000, 0)
	assert.InDelta(t, 5.0, c.Radius(), 1e-6)

	c.Zoom(10000, 0)
	assert.InDelta(t, 150.0, c.Radius(), 1e-6)

	// Upward drag pulls the camera in.
	c.Zoom(0, 20)
	assert.InDelta(t, 149.0, c.Radius(), 1e-4)
}

func TestViewMatrixMapsEyeToOrigin(t *testing.T) {
	c := NewOrbitCamera(1.0)
	view := c.ViewMatrix()
	eye := c.Position()

	// Transforming the eye point into view space lands on the origin.
	x := eye.X*view.Data[0] + eye.Y*view.Data[4] + eye.Z*view.Data[8] + view.Data[12]
	y := eye.X*view.Data[1] + eye.Y*view.Data[5] + eye.Z*view.Data[9] + view.Data[13]
	z := eye.X*view.Data[2] + eye.Y*view.Data[6] + eye.Z*view.Data[10] + view.Data[14]
	assert.InDelta(t, 0.0, x, 1e-4)
	assert.InDelta(t, 0.0, y, 1e-4)
	assert.InDelta(t, 0.0, z, 1e-4)
}
