package topology

import (
	"github.com/google/uuid"

	"github.com/chazu/citybuilder/pkg/geom"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Owner is a point sequence that holds control points. A point may be
// shared by several owners and is deleted once the last one lets go.
type Owner interface {
	// ProjectedToGround reports whether unanchored points of this owner
	// snap to the ground surface.
	ProjectedToGround() bool
	// RemovePoint removes p from the owner's sequence, reporting whether
	// the owner accepted the removal.
	RemovePoint(p *ControlPoint) bool
}

// Ground snaps a ground-plane position to the terrain surface.
type Ground interface {
	ProjectToGround(x, z float64) v3.Vec
}

// FlatGround is a horizontal ground plane at Height.
type FlatGround struct{ Height float64 }

func (g FlatGround) ProjectToGround(x, z float64) v3.Vec {
	return v3.Vec{X: x, Y: g.Height, Z: z}
}

// GroundFunc adapts a height function to the Ground interface.
type GroundFunc func(x, z float64) float64

func (f GroundFunc) ProjectToGround(x, z float64) v3.Vec {
	return v3.Vec{X: x, Y: f(x, z), Z: z}
}

// ControlPoint is a user-editable point of one or more sequences.
type ControlPoint struct {
	ID uuid.UUID

	// Anchor, when set, dictates the point's position.
	Anchor Anchor

	// Dividing forces a building boundary at this point.
	Dividing bool

	pos     v3.Vec
	old     v3.Vec
	owners  []Owner
	deleted bool

	// updatedCount defers the old-position refresh until every owner has
	// consumed the current move.
	updatedCount int
}

// NewControlPoint creates a point owned by owner (which may be nil) and
// following anchor (which may be nil).
func NewControlPoint(pos v3.Vec, owner Owner, anchor Anchor) *ControlPoint {
	p := &ControlPoint{ID: uuid.New(), Anchor: anchor, pos: pos, old: pos}
	if owner != nil {
		p.owners = append(p.owners, owner)
	}
	p.dropDeletedAnchor()
	return p
}

func (p *ControlPoint) Position() v3.Vec { return p.pos }

// OldPosition is the position every owner last built from.
func (p *ControlPoint) OldPosition() v3.Vec { return p.old }

func (p *ControlPoint) Deleted() bool { return p.deleted }

// OnSegment reports whether the point is anchored along a link.
func (p *ControlPoint) OnSegment() bool {
	_, ok := p.Anchor.(*LineAnchor)
	return ok
}

// TerrainAnchor returns the chain anchor the point follows, or nil.
func (p *ControlPoint) TerrainAnchor() *TerrainAnchor {
	ta, _ := p.Anchor.(*TerrainAnchor)
	return ta
}

// Moveable reports whether the user may drag the point.
func (p *ControlPoint) Moveable() bool {
	return p.Anchor == nil || p.Anchor.Moveable()
}

// Owners returns the sequences currently holding the point.
func (p *ControlPoint) Owners() []Owner {
	return append([]Owner(nil), p.owners...)
}

// HasOwner reports whether o holds the point.
func (p *ControlPoint) HasOwner(o Owner) bool {
	for _, x := range p.owners {
		if x == o {
			return true
		}
	}
	return false
}

// AddOwner registers another sequence sharing the point.
func (p *ControlPoint) AddOwner(o Owner) {
	if p.deleted || o == nil {
		return
	}
	p.owners = append(p.owners, o)
	p.updatedCount = len(p.owners)
}

// RemoveOwner unregisters o. The point is deleted when no owner remains.
func (p *ControlPoint) RemoveOwner(o Owner) {
	if p.deleted {
		return
	}
	for i, x := range p.owners {
		if x == o {
			p.owners = append(p.owners[:i], p.owners[i+1:]...)
			break
		}
	}
	p.updatedCount = len(p.owners)
	if len(p.owners) == 0 {
		p.Delete()
	}
}

// Release asks o to drop the point from its sequence. On success o stops
// owning the point, and the point is deleted when it was the last owner.
func (p *ControlPoint) Release(o Owner) bool {
	if p.deleted || o == nil || !p.HasOwner(o) {
		return false
	}
	if !o.RemovePoint(p) {
		return false
	}
	p.RemoveOwner(o)
	return true
}

// Delete marks the point deleted regardless of owners.
func (p *ControlPoint) Delete() { p.deleted = true }

// ProjectedToGround reports whether any owner wants the point on the
// ground.
func (p *ControlPoint) ProjectedToGround() bool {
	for _, o := range p.owners {
		if o.ProjectedToGround() {
			return true
		}
	}
	return false
}

// MoveTo sets an explicit position. A point on a link recomputes its
// percentage from the new position; a point fixed to a chain anchor does
// not move.
func (p *ControlPoint) MoveTo(pos v3.Vec) bool {
	if p.deleted || !p.Moveable() {
		return false
	}
	if la, ok := p.Anchor.(*LineAnchor); ok && !la.Deleted() {
		la.UpdatePercent(pos)
		p.pos = la.Position()
		return true
	}
	p.pos = pos
	return true
}

// UpdatePosition resolves the point's position for this frame and reports
// whether it moved since the owners last built from it. Anchored points
// follow their anchor; free points are snapped to g when an owner asks for
// it.
func (p *ControlPoint) UpdatePosition(g Ground) bool {
	if p.Anchor != nil {
		if p.Anchor.Deleted() {
			return true
		}
		ap := p.Anchor.Position()
		if geom.Equal(ap, p.old) {
			return false
		}
		p.pos = ap
		return true
	}
	if g != nil && p.ProjectedToGround() {
		p.pos = g.ProjectToGround(p.pos.X, p.pos.Z)
	}
	return !geom.Equal(p.pos, p.old)
}

// UpdateOlds is called by each owner once it has rebuilt from the current
// position. The old position is refreshed after the last owner's call.
func (p *ControlPoint) UpdateOlds() {
	p.updatedCount--
	if p.updatedCount <= 0 {
		p.updatedCount = len(p.owners)
		p.old = p.pos
	}
	p.dropDeletedAnchor()
}

func (p *ControlPoint) dropDeletedAnchor() {
	if p.Anchor != nil && p.Anchor.Deleted() {
		p.Anchor = nil
	}
}
