package scene

import (
	"fmt"

	"github.com/spaghettifunk/citadel/engine/geometry"
	"github.com/spaghettifunk/citadel/engine/math"
	"github.com/spaghettifunk/citadel/engine/systems"
)

// Castle layout constants. All item transforms compose scale, rotation and
// translation in that order.
const (
	castleWidth = 15.0
	castleDepth = 20.0
	wallHeight  = 5.0
	wallDepth   = 1.5
)

var (
	colourDarkOrange  = math.NewVec4(1.0, 0.549019635, 0.0, 1.0)
	colourForestGreen = math.NewVec4(0.133333340, 0.545098066, 0.133333340, 1.0)
	colourAliceBlue   = math.NewVec4(0.941176534, 0.972549081, 1.0, 1.0)
	colourBlack       = math.NewVec4(0.0, 0.0, 0.0, 1.0)
	colourBrown       = math.NewVec4(0.647058845, 0.164705887, 0.164705887, 1.0)
	colourCoral       = math.NewVec4(1.0, 0.498039246, 0.313725501, 1.0)
	colourDarkViolet  = math.NewVec4(0.580392182, 0.0, 0.827451050, 1.0)
	colourSteelBlue   = math.NewVec4(0.274509817, 0.509803951, 0.705882370, 1.0)
	colourNavy        = math.NewVec4(0.0, 0.0, 0.501960814, 1.0)
)

// RegisterCastleGeometry fills the store with the nine shapes the castle is
// assembled from, each tinted with its own colour.
func RegisterCastleGeometry(gs *systems.GeometrySystem) error {
	shapes := []struct {
		name   string
		mesh   *geometry.MeshData
		colour math.Vec4
	}{
		{"box", geometry.NewBox(1, 1, 1), colourDarkOrange},
		{"wedge", geometry.NewWedge(1, 1, 1), colourForestGreen},
		{"triPrism", geometry.NewTriangularPrism(1, 1), colourAliceBlue},
		{"pentaPrism", geometry.NewPentagonalPrism(2, 1), colourBlack},
		{"pyramid", geometry.NewPyramid(1, 1), colourBrown},
		{"cone", geometry.NewCone(3, 2, 16), colourCoral},
		{"diamond", geometry.NewDiamond(2.5, 0.6), colourDarkViolet},
		{"cylinder", geometry.NewCylinder(2.5, 1, 1, 20, 20), colourSteelBlue},
		{"grid", geometry.NewGrid(40, 35, 60, 40), colourNavy},
	}
	for _, s := range shapes {
		if err := gs.Register(s.name, s.mesh, s.colour); err != nil {
			return fmt.Errorf("castle geometry: %w", err)
		}
	}
	return nil
}

func srt(scale, rotation, translation math.Mat4) math.Mat4 {
	return scale.Mul(rotation).Mul(translation)
}

// BuildCastle populates the scene with the castle: a ground grid, three
// long walls, two short front walls flanking the gate, two wedge doors, a
// triangular gate top, four corner towers capped with cones, a pentagonal
// centre base carrying a diamond, and pyramid spikes along the side walls.
func BuildCastle(s *Scene, gs *systems.GeometrySystem) error {
	const (
		halfWidth  = castleWidth / 2
		halfDepth  = castleDepth / 2
		halfHeight = wallHeight / 2
	)
	identity := math.NewMat4Identity()
	quarterTurn := math.Pi / 2

	type placement struct {
		name  string
		shape string
		world math.Mat4
	}
	var items []placement

	add := func(name, shape string, world math.Mat4) {
		items = append(items, placement{name, shape, world})
	}

	add("ground", "grid", identity)

	// Long walls: the side walls are a depth-long box turned a quarter
	// turn, the back wall spans the width.
	wallScale := math.NewMat4Scale(math.NewVec3(castleDepth, wallHeight, wallDepth))
	wallTurn := math.NewMat4EulerY(quarterTurn)
	add("wall-left", "box", srt(wallScale, wallTurn, math.NewMat4Translation(math.NewVec3(-halfWidth, halfHeight, 0))))
	add("wall-right", "box", srt(wallScale, wallTurn, math.NewMat4Translation(math.NewVec3(+halfWidth, halfHeight, 0))))
	add("wall-back", "box", srt(
		math.NewMat4Scale(math.NewVec3(castleWidth, wallHeight, wallDepth)),
		identity,
		math.NewMat4Translation(math.NewVec3(0, halfHeight, halfDepth))))

	// Short front walls either side of the gate opening.
	shortWallScale := math.NewMat4Scale(math.NewVec3(castleWidth/4, wallHeight, wallDepth))
	add("wall-front-left", "box", srt(shortWallScale, identity,
		math.NewMat4Translation(math.NewVec3(-castleWidth*5.0/16.0, halfHeight, -halfDepth))))
	add("wall-front-right", "box", srt(shortWallScale, identity,
		math.NewMat4Translation(math.NewVec3(+castleWidth*5.0/16.0, halfHeight, -halfDepth))))

	// Wedge doors hang tilted in the gate opening. Rotation order follows
	// roll, then pitch, then yaw.
	doorScale := math.NewMat4Scale(math.NewVec3(wallDepth, castleWidth/6, wallHeight))
	leftDoorRot := math.NewMat4EulerX(-quarterTurn).Mul(math.NewMat4EulerY(-quarterTurn))
	rightDoorRot := math.NewMat4EulerX(-quarterTurn).Mul(math.NewMat4EulerY(quarterTurn))
	add("door-left", "wedge", srt(doorScale, leftDoorRot,
		math.NewMat4Translation(math.NewVec3(-castleWidth*3.0/16.0, wallHeight, -(halfDepth+wallDepth/2)))))
	add("door-right", "wedge", srt(doorScale, rightDoorRot,
		math.NewMat4Translation(math.NewVec3(+castleWidth*3.0/16.0, wallHeight, -(halfDepth-wallDepth/2)))))

	// Gate top.
	gateTopRot := math.NewMat4EulerZ(quarterTurn).Mul(math.NewMat4EulerY(quarterTurn))
	add("gate-top", "triPrism", srt(
		math.NewMat4Scale(math.NewVec3(1.5, wallDepth, 4)),
		gateTopRot,
		math.NewMat4Translation(math.NewVec3(0, wallHeight+0.75, -halfDepth))))

	// Corner towers, each a cylinder base with a cone roof.
	towerHeight := float32(wallHeight) * 1.3
	towerScale := math.NewMat4Scale(math.NewVec3(1, towerHeight, 1))
	corners := []math.Vec3{
		{X: -halfWidth, Z: -halfDepth},
		{X: -halfWidth, Z: +halfDepth},
		{X: +halfWidth, Z: -halfDepth},
		{X: +halfWidth, Z: +halfDepth},
	}
	for i, c := range corners {
		add(fmt.Sprintf("tower-%d", i), "cylinder", srt(towerScale, identity,
			math.NewMat4Translation(math.NewVec3(c.X, towerHeight/2, c.Z))))
		add(fmt.Sprintf("tower-roof-%d", i), "cone",
			math.NewMat4Translation(math.NewVec3(c.X, towerHeight, c.Z)))
	}

	// Centre plinth and the diamond floating above it.
	add("centre-base", "pentaPrism", srt(
		math.NewMat4Scale(math.NewVec3(2.5, 0.5, 2.5)),
		identity,
		math.NewMat4Translation(math.NewVec3(0, 0.5, 0))))
	add("centre-diamond", "diamond", srt(
		math.NewMat4Scale(math.NewVec3(1, 1.5, 1)),
		identity,
		math.NewMat4Translation(math.NewVec3(0, 3.5, 0))))

	// Pyramid spikes spaced along the top of both side walls.
	spikeScale := math.NewMat4Scale(math.NewVec3(wallDepth, 2.5, castleDepth/7))
	spike := 0
	addSpike := func(x, z float32) {
		add(fmt.Sprintf("spike-%d", spike), "pyramid", srt(spikeScale, identity,
			math.NewMat4Translation(math.NewVec3(x, wallHeight, z))))
		spike++
	}
	addSpike(-halfWidth, 0)
	for i := 0; i < 2; i++ {
		step := float32(i+1) * (castleDepth / 7)
		addSpike(-halfWidth, +step)
		addSpike(-halfWidth, -step)
		addSpike(+halfWidth, +step)
		addSpike(+halfWidth, -step)
	}
	addSpike(+halfWidth, 0)

	for _, p := range items {
		if _, err := s.AddItem(gs, p.name, p.shape, p.world); err != nil {
			return err
		}
	}
	return nil
}
