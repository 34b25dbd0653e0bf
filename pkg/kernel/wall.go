package kernel

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ FacadeBuilder = (*WallBuilder)(nil)

// WallBuilder extrudes each facade segment into a vertical quad from the
// ground point up to the requested height. Faces point to the left of the
// spline's travel direction, which is outside the building for every side
// of a building ring.
type WallBuilder struct{}

// NewWallBuilder returns a WallBuilder.
func NewWallBuilder() *WallBuilder {
	return &WallBuilder{}
}

// BuildFacade implements FacadeBuilder.
func (w *WallBuilder) BuildFacade(req FacadeRequest) (*Mesh, error) {
	if len(req.Spline) < 2 {
		return nil, fmt.Errorf("facade %s of %q: need at least 2 points, got %d", req.Side, req.Name, len(req.Spline))
	}
	if math.IsNaN(req.Height) || math.IsInf(req.Height, 0) {
		return nil, fmt.Errorf("facade %s of %q: invalid height %v", req.Side, req.Name, req.Height)
	}
	umult := orOne(req.UMult)
	vmult := orOne(req.VMult)

	m := &Mesh{Name: req.Name, Texture: req.Texture}
	up := v3.Vec{Y: 1}
	u := 0.0
	for i := 0; i+1 < len(req.Spline); i++ {
		a, b := req.Spline[i], req.Spline[i+1]
		d := b.Sub(a)
		flat := v3.Vec{X: d.X, Z: d.Z}
		segLen := flat.Length()
		if segLen < 1e-9 {
			continue
		}
		n := up.Cross(flat).DivScalar(segLen)

		aTop := v3.Vec{X: a.X, Y: req.Height, Z: a.Z}
		bTop := v3.Vec{X: b.X, Y: req.Height, Z: b.Z}
		u2 := u + segLen

		a0 := m.AddVertex(a, n, u*umult, a.Y*vmult)
		b0 := m.AddVertex(b, n, u2*umult, b.Y*vmult)
		b1 := m.AddVertex(bTop, n, u2*umult, req.Height*vmult)
		a1 := m.AddVertex(aTop, n, u*umult, req.Height*vmult)
		m.AddTriangle(a0, b1, b0)
		m.AddTriangle(a0, a1, b1)
		u = u2
	}
	return m, nil
}

func orOne(x float64) float64 {
	if x == 0 {
		return 1
	}
	return x
}
