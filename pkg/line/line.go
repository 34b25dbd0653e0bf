// Package line implements building lines: an editable sequence of control
// points cut into buildings at its dividing points. Update runs once per
// frame and regenerates only what changed since the previous pass.
package line

import (
	"log"
	"slices"

	"github.com/google/uuid"

	"github.com/chazu/citybuilder/pkg/building"
	"github.com/chazu/citybuilder/pkg/kernel"
	"github.com/chazu/citybuilder/pkg/state"
	"github.com/chazu/citybuilder/pkg/topology"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// State keys read by a line.
const (
	KeyLoop            = "loop"
	KeyInvertDirection = "invertDirection"
	KeyFrontOnly       = "frontOnly"
	KeyProjectToGround = "projectToGround"
	KeyHeight          = "height"
	KeyRoofTexture     = "roofTex"
	KeyRoofUMult       = "roofUMult"
	KeyRoofVMult       = "roofVMult"
)

// DefaultHeight is the front-only height when the state has none.
const DefaultHeight = 10.0

var _ topology.Owner = (*Line)(nil)

// Line is a building line.
type Line struct {
	ID uuid.UUID

	// BuildingTemplate is the state new buildings start from.
	BuildingTemplate *state.Node

	// Ground snaps free points when the line projects to ground.
	Ground topology.Ground

	// Logger receives geometry failures. nil means log.Default().
	Logger *log.Logger

	// ForcedBuildingStates, when its length matches the building count,
	// replaces every building's state on the next update pass.
	// ForcedSideStates does the same for the front side states. Both are
	// cleared by the pass.
	ForcedBuildingStates []*state.Node
	ForcedSideStates     []*state.Node

	state     *state.Node
	builders  kernel.Builders
	points    []*topology.ControlPoint
	buildings []*building.Building
	roof      *building.Roof
	mesh      *kernel.Mesh
	curAnchor *topology.TerrainAnchor
	deleted   bool

	oldPoints        []v3.Vec
	oldDividing      []*topology.ControlPoint
	oldBuildingCount int
}

// New returns an empty line configured by a copy of st. Buildings start
// from a copy of buildingTmpl.
func New(st, buildingTmpl *state.Node, builders kernel.Builders) *Line {
	ls := state.New()
	if st != nil {
		ls = st.Clone()
	}
	ls.FlagChanged()
	bt := state.New()
	if buildingTmpl != nil {
		bt = buildingTmpl.Clone()
	}
	return &Line{
		ID:               uuid.New(),
		BuildingTemplate: bt,
		state:            ls,
		builders:         builders,
		mesh:             &kernel.Mesh{},
	}
}

func (l *Line) logger() *log.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return log.Default()
}

// Name is the state's name, or the short form of the ID.
func (l *Line) Name() string {
	if n := l.state.Name(); n != "" {
		return n
	}
	return l.ID.String()[:8]
}

// State returns the live line state.
func (l *Line) State() *state.Node { return l.state }

// SetState replaces the line state with a copy of st.
func (l *Line) SetState(st *state.Node) {
	l.state = st.Clone()
	l.state.FlagChanged()
}

// SetBuilders swaps the mesh builders of the line and its buildings.
func (l *Line) SetBuilders(b kernel.Builders) {
	l.builders = b
	for _, bld := range l.buildings {
		bld.SetBuilders(b)
	}
	l.state.FlagChanged()
}

// Points returns the control points in order.
func (l *Line) Points() []*topology.ControlPoint {
	return slices.Clone(l.points)
}

func (l *Line) PointCount() int { return len(l.points) }

// Buildings returns the buildings sorted by first point.
func (l *Line) Buildings() []*building.Building {
	return slices.Clone(l.buildings)
}

// Roof returns the shared roof of a front-only line, or nil.
func (l *Line) Roof() *building.Roof { return l.roof }

// Mesh returns the merged mesh of the last pass that rebuilt anything.
func (l *Line) Mesh() *kernel.Mesh { return l.mesh }

func (l *Line) Deleted() bool { return l.deleted }

// Contains reports whether p is part of the line.
func (l *Line) Contains(p *topology.ControlPoint) bool {
	return slices.Contains(l.points, p)
}

// IndexOf returns the position of p in the line, or -1.
func (l *Line) IndexOf(p *topology.ControlPoint) int {
	return slices.Index(l.points, p)
}

// ProjectedToGround implements topology.Owner.
func (l *Line) ProjectedToGround() bool {
	return l.state.Bool(KeyProjectToGround, false)
}

// RemovePoint implements topology.Owner. It drops p from the sequence
// without touching p's ownership.
func (l *Line) RemovePoint(p *topology.ControlPoint) bool {
	i := l.IndexOf(p)
	if i < 0 {
		return false
	}
	l.points = slices.Delete(l.points, i, i+1)
	return true
}

// ---------------------------------------------------------------------------
// Editing
// ---------------------------------------------------------------------------

func (l *Line) anchorPresent(a *topology.TerrainAnchor) bool {
	for _, p := range l.points {
		if p.TerrainAnchor() == a {
			return true
		}
	}
	return false
}

func (l *Line) appendPoint(p *topology.ControlPoint) {
	l.points = append(l.points, p)
	l.curAnchor = p.TerrainAnchor()
}

// AddPoint appends a free point at pos.
func (l *Line) AddPoint(pos v3.Vec) *topology.ControlPoint {
	if l.deleted {
		return nil
	}
	p := topology.NewControlPoint(pos, l, nil)
	l.appendPoint(p)
	return p
}

// AddAnchor appends a point following a. When the last added point was on
// a chain anchor and pointOnly is not set, the chain between the two is
// filled in, walking the other way round when the short way starts on an
// anchor the line already uses. An anchor already in the line is refused.
func (l *Line) AddAnchor(a *topology.TerrainAnchor, pointOnly bool) *topology.ControlPoint {
	if l.deleted || a == nil || l.anchorPresent(a) {
		return nil
	}
	if pointOnly || l.curAnchor == nil {
		p := topology.NewControlPoint(a.Position(), l, a)
		l.appendPoint(p)
		return p
	}
	path := l.curAnchor.PathTo(a, false)
	if len(path) > 0 && l.anchorPresent(path[0]) {
		path = l.curAnchor.PathTo(a, true)
	}
	var res *topology.ControlPoint
	for _, item := range path {
		res = topology.NewControlPoint(item.Position(), l, item)
		l.appendPoint(res)
	}
	return res
}

// AddLinkPoint adds a point on the link from start to end, at the spot
// closest to pos. When both ends are points of this line the new point is
// inserted between them.
func (l *Line) AddLinkPoint(start, end topology.Endpoint, pos v3.Vec) *topology.ControlPoint {
	if l.deleted || start == nil || end == nil {
		return nil
	}
	la := topology.NewLineAnchor(start, end, pos)
	p := topology.NewControlPoint(la.Position(), l, la)
	index := -1
	if ps, ok := start.(*topology.ControlPoint); ok {
		if pe, ok := end.(*topology.ControlPoint); ok {
			i1, i2 := l.IndexOf(ps), l.IndexOf(pe)
			if i1 >= 0 && i2 >= 0 {
				index = max(i1, i2)
			}
		}
	}
	if index >= 0 && index < len(l.points)-1 {
		l.points = slices.Insert(l.points, index, p)
		return p
	}
	l.appendPoint(p)
	return p
}

// AddSharedPoint appends a point owned by another sequence; the line
// becomes one of its owners.
func (l *Line) AddSharedPoint(p *topology.ControlPoint) *topology.ControlPoint {
	if l.deleted || p == nil || p.Deleted() || l.Contains(p) {
		return nil
	}
	if a := p.TerrainAnchor(); a != nil && l.anchorPresent(a) {
		return nil
	}
	p.AddOwner(l)
	l.appendPoint(p)
	return p
}

// RemoveLastPoint releases the last point of the line.
func (l *Line) RemoveLastPoint() {
	if len(l.points) == 0 {
		return
	}
	p := l.points[len(l.points)-1]
	if !p.Release(l) {
		l.RemovePoint(p)
	}
	p.Dividing = false
	l.curAnchor = nil
	if n := len(l.points); n > 0 {
		l.curAnchor = l.points[n-1].TerrainAnchor()
	}
}

// Clear releases every point and deletes every building.
func (l *Line) Clear() {
	for _, p := range slices.Clone(l.points) {
		if !p.Release(l) {
			l.RemovePoint(p)
		}
	}
	l.points = nil
	for _, b := range l.buildings {
		b.Delete()
	}
	l.buildings = nil
	l.curAnchor = nil
	l.mesh = &kernel.Mesh{}
}

// Delete clears the line for good.
func (l *Line) Delete() {
	l.Clear()
	l.roof = nil
	l.deleted = true
}
