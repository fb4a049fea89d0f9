package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

// Mat4 is a 4x4 matrix stored row-major with a row-vector convention:
// composition reads left to right (scale.Mul(rotation).Mul(translation))
// and the translation lives in elements 12..14.
type Mat4 struct {
	Data [16]float32
}

// Vertex3D is a single vertex of the concatenated scene geometry:
// a position and a flat colour, matching the demo's vertex layout.
type Vertex3D struct {
	Position Vec3
	Colour   Vec4
}
