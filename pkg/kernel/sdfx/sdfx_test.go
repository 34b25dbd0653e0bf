package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/citybuilder/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func square(size, y float64) []v3.Vec {
	return []v3.Vec{
		{X: 0, Y: y, Z: 0},
		{X: size, Y: y, Z: 0},
		{X: size, Y: y, Z: size},
		{X: 0, Y: y, Z: size},
	}
}

func TestSlabBoundingBox(t *testing.T) {
	r := New(32)
	s, err := r.Slab(square(10, 12), 12)
	if err != nil {
		t.Fatalf("Slab failed: %v", err)
	}
	bb := s.BoundingBox()

	// Square footprint 0..10 in X and Z, slab from 12 to 12+thickness in Y.
	const tol = 0.01
	expectMin := [3]float64{0, 12, 0}
	expectMax := [3]float64{10, 12 + DefaultThickness, 10}
	gotMin := [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	gotMax := [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	for i := 0; i < 3; i++ {
		if math.Abs(gotMin[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, gotMin[i], expectMin[i])
		}
		if math.Abs(gotMax[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, gotMax[i], expectMax[i])
		}
	}
}

func TestBuildRoof(t *testing.T) {
	r := New(32)
	mesh, err := r.BuildRoof(kernel.RoofRequest{
		Name:    "block",
		Outline: square(20, 9),
		Height:  9,
		Texture: "tiles",
	})
	if err != nil {
		t.Fatalf("BuildRoof failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.UVs) != 2*mesh.VertexCount() {
		t.Fatalf("uvs length %d != 2*vertex count %d", len(mesh.UVs), 2*mesh.VertexCount())
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
	if mesh.Name != "block" || mesh.Texture != "tiles" {
		t.Errorf("mesh tagged %q/%q, want block/tiles", mesh.Name, mesh.Texture)
	}
	t.Logf("roof triangle count: %d", triCount)
}

func TestBuildRoofClosedOutline(t *testing.T) {
	// Repeated closing point and duplicate vertices are tolerated.
	outline := append(square(10, 5), v3.Vec{X: 0, Y: 5, Z: 0})
	outline = append([]v3.Vec{{X: 0, Y: 5, Z: 0}}, outline...)
	if _, err := New(16).BuildRoof(kernel.RoofRequest{Outline: outline, Height: 5}); err != nil {
		t.Fatalf("BuildRoof failed: %v", err)
	}
}

func TestBuildRoofDegenerate(t *testing.T) {
	r := New(0)
	if r.Cells != DefaultMeshCells {
		t.Errorf("cells = %d, want default %d", r.Cells, DefaultMeshCells)
	}
	_, err := r.BuildRoof(kernel.RoofRequest{
		Name:    "thin",
		Outline: []v3.Vec{{X: 0}, {X: 1}, {X: 1}},
	})
	if err == nil {
		t.Fatal("expected error for outline with two distinct points")
	}
}
