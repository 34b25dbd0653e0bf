package line

import (
	"math"

	"github.com/chazu/citybuilder/pkg/building"
	"github.com/chazu/citybuilder/pkg/geom"
	"github.com/chazu/citybuilder/pkg/kernel"
	"github.com/chazu/citybuilder/pkg/spline"
	"github.com/chazu/citybuilder/pkg/tessellate"
	"github.com/chazu/citybuilder/pkg/topology"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// refreshPoints drops deleted points and resolves the position of the
// others for this frame.
func (l *Line) refreshPoints() {
	kept := l.points[:0]
	for _, p := range l.points {
		if p.Deleted() {
			continue
		}
		p.UpdatePosition(l.Ground)
		kept = append(kept, p)
	}
	clear(l.points[len(kept):])
	l.points = kept
}

// DidChange refreshes the points and reports whether the structure of the
// line changed since the last UpdateOlds: a point moved, the dividing
// points differ, the building count differs, a building changed, or the
// line state changed.
func (l *Line) DidChange() bool {
	l.refreshPoints()
	if len(l.oldPoints) != len(l.points) {
		return true
	}
	for i, p := range l.points {
		if !geom.Equal(p.Position(), l.oldPoints[i]) {
			return true
		}
	}
	var dividing []*topology.ControlPoint
	for _, p := range l.points {
		if p.Dividing {
			dividing = append(dividing, p)
		}
	}
	if len(dividing) != len(l.oldDividing) {
		return true
	}
	for i, p := range dividing {
		if p != l.oldDividing[i] {
			return true
		}
	}
	if l.oldBuildingCount != len(l.buildings) {
		return true
	}
	for _, b := range l.buildings {
		if b.DidChange() {
			return true
		}
	}
	return l.state.HasChanged()
}

// UpdateOlds records the current structure as built.
func (l *Line) UpdateOlds() {
	l.oldPoints = l.oldPoints[:0]
	l.oldDividing = l.oldDividing[:0]
	for _, p := range l.points {
		p.UpdateOlds()
		l.oldPoints = append(l.oldPoints, p.Position())
		if p.Dividing {
			l.oldDividing = append(l.oldDividing, p)
		}
	}
	l.oldBuildingCount = len(l.buildings)
	l.state.FlagUnchanged()
}

// Update is the per-frame entry point. A structural change re-segments the
// line and forces every building through a rebuild check; otherwise only
// buildings that changed themselves are rebuilt. It returns the number of
// meshes regenerated.
func (l *Line) Update() int {
	if l.deleted {
		return 0
	}
	if l.DidChange() {
		l.Segment()
		res := l.UpdateBuildings(true)
		l.UpdateOlds()
		return res
	}
	return l.UpdateBuildings(false)
}

// FullSpline derives the spline of the whole line. Points on a chain
// anchor carry the anchor's outward direction as a provisional normal.
func (l *Line) FullSpline() spline.Full {
	in := make([]spline.Vertex, len(l.points))
	for i, p := range l.points {
		in[i].Point = p.Position()
		if a := p.TerrainAnchor(); a != nil {
			in[i].Normal = a.InsideDirection.Neg()
		}
	}
	return spline.Derive(in, l.state.Bool(KeyInvertDirection, false))
}

// Clockwise reports whether buildings run clockwise, judged from the first
// spline vertex of the first two buildings. Fewer than two buildings, or a
// degenerate direction between them, count as counterclockwise.
func (l *Line) Clockwise() bool {
	if len(l.buildings) < 2 {
		return false
	}
	s0, s1 := l.buildings[0].Spline, l.buildings[1].Spline
	if len(s0) == 0 || len(s1) == 0 {
		return false
	}
	dir := geom.Normalize(s1[0].Point.Sub(s0[0].Point))
	n := geom.Normalize(s0[0].Normal)
	return dir.Cross(n).Y > 0
}

// setBoolIfDiffers writes a building flag only when it changes, so a
// front-only line does not dirty its buildings every frame.
func setBoolIfDiffers(b *building.Building, key string, v bool) {
	st := b.State()
	if cur, ok := st.Get(key); ok {
		if x, ok := cur.AsBool(); ok && x == v {
			return
		}
	}
	st.SetBool(key, v)
}

func setFloatIfDiffers(b *building.Building, key string, v float64) {
	st := b.State()
	if cur, ok := st.Get(key); ok {
		if x, ok := cur.AsFloat(); ok && x == v {
			return
		}
	}
	st.SetFloat(key, v)
}

// UpdateBuildings runs both update phases over every building. With force
// set the building splines are recomputed from the line first.
func (l *Line) UpdateBuildings(force bool) int {
	if len(l.points) == 0 {
		return 0
	}
	count := 0
	full := l.FullSpline()
	frontOnly := l.state.Bool(KeyFrontOnly, false)

	if !frontOnly {
		l.roof = nil
	} else if l.roof == nil {
		l.roof = &building.Roof{}
	}

	var ext building.External
	if frontOnly {
		maxH := math.Inf(-1)
		for _, v := range full.Spline {
			maxH = math.Max(maxH, v.Point.Y)
		}
		height := l.state.Float(KeyHeight, DefaultHeight)
		ext = building.External{Forced: true, Height: maxH + height, MaxHeight: maxH}
		if len(full.Spline) > 2 && force {
			outline := make([]v3.Vec, len(full.Spline))
			for i, v := range full.Spline {
				outline[i] = v3.Vec{X: v.Point.X, Y: ext.Height, Z: v.Point.Z}
			}
			n, err := l.roof.Update(l.builders.Roof, kernel.RoofRequest{
				Name:    l.Name(),
				Outline: outline,
				Height:  ext.Height,
				Texture: l.state.Str(KeyRoofTexture, ""),
				UMult:   l.state.Float(KeyRoofUMult, 1),
				VMult:   l.state.Float(KeyRoofVMult, 1),
			})
			if err != nil {
				l.logger().Printf("mesh generation failed on line %s: %v", l.Name(), err)
			}
			count += n
		}
	}

	for _, b := range l.buildings {
		if frontOnly {
			setBoolIfDiffers(b, building.KeyBack, false)
			setBoolIfDiffers(b, building.KeyLeft, false)
			setBoolIfDiffers(b, building.KeyRight, false)
			setBoolIfDiffers(b, building.KeyTop, false)
			setFloatIfDiffers(b, building.KeyHeight, l.state.Float(KeyHeight, DefaultHeight))
		}
		if force {
			b.Spline = full.Building(l.IndexOf(b.FirstPoint), l.IndexOf(b.LastPoint), len(l.points))
		}
	}

	for i, b := range l.buildings {
		switch {
		case len(l.ForcedBuildingStates) == len(l.buildings):
			b.SetState(l.ForcedBuildingStates[i])
		case len(l.ForcedSideStates) == len(l.buildings):
			b.State().SetChild(building.SideStateKey(kernel.SideFront), l.ForcedSideStates[i].Clone())
		}
		b.PreUpdate(ext, force)
	}

	clockwise := l.Clockwise()
	loop := l.state.Bool(KeyLoop, false)
	for i, b := range l.buildings {
		var prev, next *building.Building
		if i > 0 {
			prev = l.buildings[i-1]
		} else if loop {
			prev = l.buildings[len(l.buildings)-1]
		}
		if i < len(l.buildings)-1 {
			next = l.buildings[i+1]
		} else if loop {
			next = l.buildings[0]
		}
		if clockwise {
			prev, next = next, prev
		}
		if prev == b {
			prev = nil
		}
		if next == b {
			next = nil
		}
		count += b.UpdateMesh(neighbor(prev), neighbor(next))
	}

	l.ForcedBuildingStates = nil
	l.ForcedSideStates = nil
	if count > 0 || force {
		l.reloadMesh()
	}
	return count
}

func neighbor(b *building.Building) *building.Neighbor {
	if b == nil {
		return nil
	}
	return b.AsNeighbor()
}

// reloadMesh merges every building mesh and the shared roof.
func (l *Line) reloadMesh() {
	var meshes []*kernel.Mesh
	for _, b := range l.buildings {
		meshes = append(meshes, b.Meshes()...)
	}
	if l.roof != nil {
		meshes = append(meshes, l.roof.Mesh())
	}
	l.mesh = tessellate.Merge(l.Name(), meshes...)
}
