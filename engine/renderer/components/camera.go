package components

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/citadel/engine/math"
)

const (
	// orbitRadiansPerPixel makes one pixel of left drag a quarter degree.
	orbitRadiansPerPixel = 0.25 * math.RadPerDegree
	// zoomUnitsPerPixel scales right drag into radius change.
	zoomUnitsPerPixel = 0.05

	minPhi    = 0.1
	maxPhi    = math.Pi - 0.1
	minRadius = 5.0
	maxRadius = 150.0
)

// OrbitCamera circles the scene origin on a sphere described by two angles
// and a radius. Theta sweeps the horizontal plane, phi the polar angle from
// the +Y axis.
type OrbitCamera struct {
	theta  float32
	phi    float32
	radius float32

	fov      float32
	aspect   float32
	nearClip float32
	farClip  float32
}

// NewOrbitCamera starts slightly above the horizon looking at the origin
// from fifteen units out.
func NewOrbitCamera(aspect float32) *OrbitCamera {
	return &OrbitCamera{
		theta:    1.5 * math.Pi,
		phi:      0.2 * math.Pi,
		radius:   15.0,
		fov:      0.25 * math.Pi,
		aspect:   aspect,
		nearClip: 1.0,
		farClip:  1000.0,
	}
}

// Orbit applies a left-button drag in pixels. Phi is clamped short of the
// poles to keep the view basis well defined.
func (c *OrbitCamera) Orbit(dxPixels, dyPixels float32) {
	c.theta += dxPixels * orbitRadiansPerPixel
	c.phi += dyPixels * orbitRadiansPerPixel
	c.phi = math.Clamp(c.phi, minPhi, maxPhi)
}

// Zoom applies a right-button drag in pixels, moving the camera along its
// boom. Rightward and upward drag both pull the camera closer.
func (c *OrbitCamera) Zoom(dxPixels, dyPixels float32) {
	c.radius += dxPixels*zoomUnitsPerPixel - dyPixels*zoomUnitsPerPixel
	c.radius = math.Clamp(c.radius, minRadius, maxRadius)
}

func (c *OrbitCamera) SetAspect(aspect float32) {
	c.aspect = aspect
}

func (c *OrbitCamera) Theta() float32    { return c.theta }
func (c *OrbitCamera) Phi() float32      { return c.phi }
func (c *OrbitCamera) Radius() float32   { return c.radius }
func (c *OrbitCamera) NearClip() float32 { return c.nearClip }
func (c *OrbitCamera) FarClip() float32  { return c.farClip }

// Position converts the spherical coordinates to the cartesian eye point.
func (c *OrbitCamera) Position() math.Vec3 {
	sinPhi, cosPhi := math32.Sincos(c.phi)
	sinTheta, cosTheta := math32.Sincos(c.theta)
	return math.NewVec3(
		c.radius*sinPhi*cosTheta,
		c.radius*cosPhi,
		c.radius*sinPhi*sinTheta,
	)
}

// ViewMatrix looks from the eye point at the origin with +Y up.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.NewMat4LookAt(c.Position(), math.NewVec3Zero(), math.NewVec3Up())
}

func (c *OrbitCamera) ProjectionMatrix() math.Mat4 {
	return math.NewMat4Perspective(c.fov, c.aspect, c.nearClip, c.farClip)
}
