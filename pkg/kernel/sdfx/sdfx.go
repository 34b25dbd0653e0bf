// Package sdfx implements kernel.RoofBuilder using the
// github.com/deadsy/sdfx SDF-based CAD library: the roof outline becomes a
// 2D polygon, is extruded into a slab and tessellated with marching cubes.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/citybuilder/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.RoofBuilder = (*RoofBuilder)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 64

// DefaultThickness is the slab thickness of a roof.
const DefaultThickness = 0.3

// RoofBuilder builds flat roof slabs.
type RoofBuilder struct {
	Cells     int
	Thickness float64
}

// New returns a RoofBuilder. cells <= 0 selects DefaultMeshCells.
func New(cells int) *RoofBuilder {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &RoofBuilder{Cells: cells, Thickness: DefaultThickness}
}

// Slab returns the roof solid: the outline polygon (taken in the XZ plane)
// extruded upward by the builder's thickness, its underside at height.
func (r *RoofBuilder) Slab(outline []v3.Vec, height float64) (sdf.SDF3, error) {
	pts := make([]v2.Vec, 0, len(outline))
	for _, p := range outline {
		q := v2.Vec{X: p.X, Y: -p.Z}
		if n := len(pts); n > 0 && pts[n-1].Sub(q).Length() < 1e-6 {
			continue
		}
		pts = append(pts, q)
	}
	if n := len(pts); n > 1 && pts[0].Sub(pts[n-1]).Length() < 1e-6 {
		pts = pts[:n-1]
	}
	if len(pts) < 3 {
		return nil, fmt.Errorf("roof outline needs 3 distinct points, got %d", len(pts))
	}
	poly, err := sdf.Polygon2D(pts)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Polygon2D: %w", err)
	}
	t := r.Thickness
	if t <= 0 {
		t = DefaultThickness
	}
	slab := sdf.Extrude3D(poly, t)
	// Extrusion runs along local Z; tip it so Z becomes world Y, then lift
	// the slab so its underside sits at height.
	m := sdf.Translate3d(v3.Vec{X: 0, Y: height + t/2, Z: 0}).Mul(sdf.RotateX(-math.Pi / 2))
	return sdf.Transform3D(slab, m), nil
}

// BuildRoof implements kernel.RoofBuilder.
func (r *RoofBuilder) BuildRoof(req kernel.RoofRequest) (*kernel.Mesh, error) {
	s, err := r.Slab(req.Outline, req.Height)
	if err != nil {
		return nil, fmt.Errorf("roof of %q: %w", req.Name, err)
	}
	m := r.ToMesh(s, req.UMult, req.VMult)
	m.Name = req.Name
	m.Texture = req.Texture
	return m, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes. UVs are
// planar XZ coordinates scaled by umult and vmult.
func (r *RoofBuilder) ToMesh(s sdf.SDF3, umult, vmult float64) *kernel.Mesh {
	if umult == 0 {
		umult = 1
	}
	if vmult == 0 {
		vmult = 1
	}
	renderer := render.NewMarchingCubesUniform(r.Cells)
	triangles := render.ToTriangles(s, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	m := &kernel.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		UVs:      make([]float32, 0, numVerts*2),
		Indices:  make([]uint32, 0, numVerts),
	}
	for _, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		a := m.AddVertex(tri[0], n, tri[0].X*umult, tri[0].Z*vmult)
		b := m.AddVertex(tri[1], n, tri[1].X*umult, tri[1].Z*vmult)
		c := m.AddVertex(tri[2], n, tri[2].X*umult, tri[2].Z*vmult)
		m.AddTriangle(a, b, c)
	}
	return m
}
