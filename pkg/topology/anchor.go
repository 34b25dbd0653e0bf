// Package topology models the control points a building line is edited
// through and the anchors that give those points their position
// indirectly.
//
// Two anchor kinds exist. A TerrainAnchor is a node in a doubly-linked
// chain (the outline of a block, for instance) and supports path
// queries between nodes. A LineAnchor is a point interpolated between two
// endpoints by a percentage.
package topology

import (
	"github.com/google/uuid"

	"github.com/chazu/citybuilder/pkg/geom"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// maxChainSteps bounds every chain walk so a malformed cyclic chain cannot
// hang the caller.
const maxChainSteps = 65535

// Endpoint is anything with a position that can disappear.
type Endpoint interface {
	Position() v3.Vec
	Deleted() bool
}

// Anchor is a position source a ControlPoint can follow.
type Anchor interface {
	Endpoint
	// Moveable reports whether a point following this anchor may be
	// dragged by the user.
	Moveable() bool
}

var (
	_ Anchor = (*TerrainAnchor)(nil)
	_ Anchor = (*LineAnchor)(nil)
)

// ---------------------------------------------------------------------------
// TerrainAnchor
// ---------------------------------------------------------------------------

// TerrainAnchor is a node of an anchor chain.
type TerrainAnchor struct {
	ID   uuid.UUID
	Prev *TerrainAnchor
	Next *TerrainAnchor

	// InsideDirection points into the area the chain encloses. Points
	// following this anchor take its negation as their provisional
	// outward normal.
	InsideDirection v3.Vec

	pos      v3.Vec
	moveable bool
	deleted  bool
}

// NewTerrainAnchor creates an unlinked anchor.
func NewTerrainAnchor(pos v3.Vec, moveable bool) *TerrainAnchor {
	return &TerrainAnchor{ID: uuid.New(), pos: pos, moveable: moveable}
}

// Link makes b follow a in the chain.
func Link(a, b *TerrainAnchor) {
	a.Next = b
	b.Prev = a
}

// NewChain creates fixed anchors at positions, linked in order. When loop
// is set the last anchor links back to the first. Each inside direction is
// Up × (travel direction), so a line following the chain in order derives
// outward normals that agree with its anchors.
func NewChain(positions []v3.Vec, loop bool) []*TerrainAnchor {
	res := make([]*TerrainAnchor, len(positions))
	for i, p := range positions {
		res[i] = NewTerrainAnchor(p, false)
		if i > 0 {
			Link(res[i-1], res[i])
		}
	}
	if loop && len(res) > 2 {
		Link(res[len(res)-1], res[0])
	}
	for _, a := range res {
		var in, out v3.Vec
		if a.Prev != nil {
			in = geom.Normalize(a.pos.Sub(a.Prev.pos))
		}
		if a.Next != nil {
			out = geom.Normalize(a.Next.pos.Sub(a.pos))
		}
		if a.Prev == nil {
			in = out
		}
		if a.Next == nil {
			out = in
		}
		dir := geom.Normalize(in.Add(out))
		a.InsideDirection = geom.Normalize(geom.Up.Cross(dir))
	}
	return res
}

func (a *TerrainAnchor) Position() v3.Vec { return a.pos }

// SetPosition moves the anchor. Points following it pick the change up on
// their next UpdatePosition.
func (a *TerrainAnchor) SetPosition(p v3.Vec) { a.pos = p }

func (a *TerrainAnchor) Moveable() bool { return a.moveable }
func (a *TerrainAnchor) Deleted() bool  { return a.deleted }

// Delete marks the anchor deleted. Neighbour links are left alone; walks
// simply stop treating it specially.
func (a *TerrainAnchor) Delete() { a.deleted = true }

// SameAs reports whether two anchors sit at the same place.
func (a *TerrainAnchor) SameAs(o *TerrainAnchor) bool {
	return a.pos.Sub(o.pos).Length() < 0.01
}

// walk follows the chain from a away from origin looking for target.
// It returns the anchors visited (target included when found) and whether
// the walk ended on target. Reaching origin again ends the walk, which
// counts as found only when origin is the target. If the walk is about to
// step straight back to where it came from (a two-node ring) it turns
// around.
func (a *TerrainAnchor) walk(origin, target *TerrainAnchor, forward bool) ([]*TerrainAnchor, bool) {
	var path []*TerrainAnchor
	caller := origin
	cur := a
	for i := 0; i < maxChainSteps; i++ {
		next := cur.step(forward)
		if next == caller {
			forward = !forward
			next = cur.step(forward)
		}
		switch {
		case cur == origin:
			path = append(path, cur)
			return path, origin == target
		case cur == target:
			path = append(path, cur)
			return path, true
		case next == nil:
			return path, false
		}
		path = append(path, cur)
		caller = cur
		cur = next
	}
	return path, false
}

func (a *TerrainAnchor) step(forward bool) *TerrainAnchor {
	if forward {
		return a.Next
	}
	return a.Prev
}

// PathTo returns the anchors between a (exclusive) and other (inclusive),
// walking in whichever direction is shorter. With preferAlternate set and
// both directions reaching other, the longer path is returned instead.
// When other cannot be reached the result is the single element [other];
// callers treat that as "no connection".
func (a *TerrainAnchor) PathTo(other *TerrainAnchor, preferAlternate bool) []*TerrainAnchor {
	var fwd, back []*TerrainAnchor
	var okFwd, okBack bool
	if a.Next != nil {
		fwd, okFwd = a.Next.walk(a, other, true)
	}
	if a.Prev != nil {
		back, okBack = a.Prev.walk(a, other, false)
	}
	var res []*TerrainAnchor
	switch {
	case okFwd && okBack:
		shortFwd := len(fwd) < len(back)
		if shortFwd != preferAlternate {
			res = fwd
		} else {
			res = back
		}
	case okFwd:
		res = fwd
	case okBack:
		res = back
	}
	if len(res) == 0 {
		res = []*TerrainAnchor{other}
	}
	return res
}

// Connected reports whether other can be reached from a along the chain.
func (a *TerrainAnchor) Connected(other *TerrainAnchor) bool {
	if a.Next != nil {
		if _, ok := a.Next.walk(a, other, true); ok {
			return true
		}
	}
	if a.Prev != nil {
		if _, ok := a.Prev.walk(a, other, false); ok {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// LineAnchor
// ---------------------------------------------------------------------------

// LineAnchor positions a point at Percent of the way from Start to End.
type LineAnchor struct {
	Start   Endpoint
	End     Endpoint
	Percent float64
}

// NewLineAnchor anchors to the point of [start,end] closest to p.
func NewLineAnchor(start, end Endpoint, p v3.Vec) *LineAnchor {
	la := &LineAnchor{Start: start, End: end}
	la.UpdatePercent(p)
	return la
}

// NewLineAnchorAt anchors at a fixed percentage.
func NewLineAnchorAt(start, end Endpoint, percent float64) *LineAnchor {
	return &LineAnchor{Start: start, End: end, Percent: percent}
}

// Deleted reports whether either endpoint is gone.
func (l *LineAnchor) Deleted() bool {
	return l.Start == nil || l.End == nil || l.Start.Deleted() || l.End.Deleted()
}

func (l *LineAnchor) Moveable() bool { return true }

// UpdatePercent recomputes Percent from an explicitly moved position.
// Moving the endpoints does not change Percent.
func (l *LineAnchor) UpdatePercent(p v3.Vec) {
	l.Percent = geom.ClosestPointFactor(p, l.Start.Position(), l.End.Position())
}

func (l *LineAnchor) Position() v3.Vec {
	return geom.Lerp(l.Start.Position(), l.End.Position(), l.Percent)
}
