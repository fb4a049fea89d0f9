package math

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMat4MulIdentity(t *testing.T) {
	m := NewMat4Scale(NewVec3(2, 3, 4)).Mul(NewMat4Translation(NewVec3(1, -2, 5)))
	assert.True(t, m.Mul(NewMat4Identity()).Compare(m, 0))
	assert.True(t, NewMat4Identity().Mul(m).Compare(m, 0))
}

func TestMat4TransposedTwiceIsOriginal(t *testing.T) {
	m := NewMat4EulerXYZ(0.3, -1.2, 2.1).Mul(NewMat4Translation(NewVec3(4, 5, 6)))
	assert.True(t, m.Transposed().Transposed().Compare(m, 0))
}

func TestMat4InverseRoundTrip(t *testing.T) {
	m := NewMat4Scale(NewVec3(1.5, 0.5, 2)).
		Mul(NewMat4EulerY(0.7)).
		Mul(NewMat4Translation(NewVec3(-3, 8, 1)))

	identity := m.Mul(m.Inverse())
	assert.True(t, identity.Compare(NewMat4Identity(), 1e-4))
}

func TestViewProjInverseRoundTrip(t *testing.T) {
	// Any non-degenerate camera placement must compose with its computed
	// inverse to the identity within tolerance.
	view := NewMat4LookAt(NewVec3(8.8, 12.1, -8.8), NewVec3Zero(), NewVec3Up())
	proj := NewMat4Perspective(0.25*Pi, 1.0, 1.0, 1000.0)
	viewProj := view.Mul(proj)

	roundTrip := viewProj.Mul(viewProj.Inverse())
	assert.True(t, roundTrip.Compare(NewMat4Identity(), 1e-4))
}

func TestMat4Determinant(t *testing.T) {
	assert.InDelta(t, 1.0, float64(NewMat4Identity().Determinant()), 1e-6)
	// Scale determinant is the product of the diagonal.
	assert.InDelta(t, 24.0, float64(NewMat4Scale(NewVec3(2, 3, 4)).Determinant()), 1e-4)
}

func TestVec3CrossDot(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	z := x.Cross(y)
	require.True(t, z.Compare(NewVec3(0, 0, 1), 1e-6))
	assert.InDelta(t, 0.0, float64(z.Dot(x)), 1e-6)
}

func TestSphericalToCartesian(t *testing.T) {
	// theta=1.5*pi, phi=0.2*pi, radius=15 places the eye at the literal
	// expected coordinates.
	theta := 1.5 * Pi
	phi := 0.2 * Pi
	radius := float32(15)

	x := radius * math32.Sin(phi) * math32.Cos(theta)
	y := radius * math32.Cos(phi)
	z := radius * math32.Sin(phi) * math32.Sin(theta)

	assert.InDelta(t, 0.0, float64(x), 1e-4)
	assert.InDelta(t, 12.13525, float64(y), 1e-3)
	assert.InDelta(t, -8.81678, float64(z), 1e-3)
}
