// Package building turns a span of a building line into facade and roof
// meshes. Every frame the owning line runs PreUpdate on all of its
// buildings and then UpdateMesh on each, since a building's side walls
// depend on the heights its neighbours computed in the first phase.
package building

import (
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/chazu/citybuilder/pkg/geom"
	"github.com/chazu/citybuilder/pkg/kernel"
	"github.com/chazu/citybuilder/pkg/spline"
	"github.com/chazu/citybuilder/pkg/state"
	"github.com/chazu/citybuilder/pkg/topology"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Pending is the PreUpdate result when UpdateMesh has work to do.
const Pending = -1

// State keys read by a building.
const (
	KeyFront          = "front"
	KeyLeft           = "left"
	KeyRight          = "right"
	KeyBack           = "back"
	KeyTop            = "top"
	KeyHeight         = "height"
	KeyDepth          = "depth"
	KeyFixAcuteAngles = "fixAcuteAngles"
	KeyAllSidesEqual  = "allSidesEqual"
	KeyTopTexture     = "topTexture"
	KeyTopUMult       = "topUMult"
	KeyTopVMult       = "topVMult"
)

// Default values for keys missing from a building state.
const (
	DefaultHeight = 10.0
	DefaultDepth  = 10.0
)

// SideStateKey returns the key of the state node that configures side s.
func SideStateKey(s kernel.Side) string {
	return s.String() + "State"
}

func enableKey(s kernel.Side) string {
	return s.String()
}

// External carries the height a front-only line imposes on its buildings.
type External struct {
	Forced    bool
	Height    float64
	MaxHeight float64
}

// Neighbor describes the building before or after this one in line order.
type Neighbor struct {
	Active         bool
	Height         float64
	Depth          float64
	FixAcuteAngles bool
}

// permits reports whether a building of the given shape may build the wall
// it shares with n. An active neighbour that is at least as tall and as
// deep, with the same acute angle setting, owns the wall.
func (n *Neighbor) permits(height, depth float64, fix bool) bool {
	return n == nil || !n.Active || n.Height < height || n.Depth < depth || n.FixAcuteAngles != fix
}

// Building is a contiguous span of a line between two split points.
type Building struct {
	ID uuid.UUID

	FirstPoint *topology.ControlPoint
	LastPoint  *topology.ControlPoint

	// Spline is the front boundary, set by the owning line.
	Spline spline.Spline

	Enabled bool

	// Height is the absolute roof height computed by the last PreUpdate.
	Height     float64
	MaxHeight  float64
	TrueHeight float64

	// Logger receives geometry failures. nil means log.Default().
	Logger *log.Logger

	state      *state.Node
	builders   kernel.Builders
	changed    bool
	oldEnabled bool
	deleted    bool

	sides [4]*Side
	roof  *Roof

	result  int
	normals []v3.Vec
	front   []v3.Vec
	back    []v3.Vec
	left    []v3.Vec
	right   []v3.Vec
	top     []v3.Vec
}

// New returns an enabled building spanning first..last, configured by a
// copy of tmpl.
func New(first, last *topology.ControlPoint, tmpl *state.Node, builders kernel.Builders) *Building {
	st := state.New()
	if tmpl != nil {
		st = tmpl.Clone()
	}
	st.FlagChanged()
	return &Building{
		ID:         uuid.New(),
		FirstPoint: first,
		LastPoint:  last,
		Enabled:    true,
		state:      st,
		builders:   builders,
		changed:    true,
		oldEnabled: true,
		result:     Pending,
	}
}

func (b *Building) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

// Name is the state's name, or the short form of the ID.
func (b *Building) Name() string {
	if n := b.state.Name(); n != "" {
		return n
	}
	return b.ID.String()[:8]
}

// State returns the live state node. Mutations are picked up by the next
// update pass through the node's dirty flag.
func (b *Building) State() *state.Node { return b.state }

// SetState replaces the state with a copy of st and forces a rebuild of
// every enabled side.
func (b *Building) SetState(st *state.Node) {
	b.state = st.Clone()
	b.state.FlagChanged()
	for _, s := range kernel.Sides {
		if b.state.Bool(enableKey(s), true) {
			if c := b.state.Child(SideStateKey(s)); c != nil {
				c.FlagChanged()
			}
		}
	}
	b.changed = true
}

// SetBuilders swaps the mesh builders and forces a rebuild.
func (b *Building) SetBuilders(builders kernel.Builders) {
	b.builders = builders
	for i := range b.sides {
		if b.sides[i] != nil {
			b.sides[i].built = false
		}
	}
	b.changed = true
}

// Depth is the configured distance from the front to the back wall.
func (b *Building) Depth() float64 { return b.state.Float(KeyDepth, DefaultDepth) }

// FixAcuteAngles reports whether back walls are trimmed at sharp corners.
func (b *Building) FixAcuteAngles() bool { return b.state.Bool(KeyFixAcuteAngles, false) }

// AsNeighbor describes b to the buildings next to it.
func (b *Building) AsNeighbor() *Neighbor {
	return &Neighbor{
		Active:         b.Enabled && !b.deleted,
		Height:         b.Height,
		Depth:          b.Depth(),
		FixAcuteAngles: b.FixAcuteAngles(),
	}
}

// DidChange reports whether the building must be rebuilt.
func (b *Building) DidChange() bool {
	return b.changed || b.oldEnabled != b.Enabled || b.state.HasChanged()
}

// MarkChanged forces the next update pass to rebuild b.
func (b *Building) MarkChanged() { b.changed = true }

func (b *Building) Deleted() bool { return b.deleted }

// Delete drops every generator. A deleted building never builds again.
func (b *Building) Delete() {
	b.teardown()
	b.deleted = true
}

func (b *Building) teardown() {
	b.sides = [4]*Side{}
	b.roof = nil
}

// Side returns the generator of side s, or nil when it does not exist.
func (b *Building) Side(s kernel.Side) *Side {
	if int(s) < 0 || int(s) >= len(b.sides) {
		return nil
	}
	return b.sides[s]
}

// Roof returns the roof generator, or nil.
func (b *Building) Roof() *Roof { return b.roof }

// Meshes returns the built facades followed by the roof.
func (b *Building) Meshes() []*kernel.Mesh {
	var res []*kernel.Mesh
	for _, s := range b.sides {
		if s != nil && !s.mesh.IsEmpty() {
			res = append(res, s.mesh)
		}
	}
	if b.roof != nil && !b.roof.mesh.IsEmpty() {
		res = append(res, b.roof.mesh)
	}
	return res
}

func (b *Building) anySideChanged() bool {
	for _, s := range b.sides {
		if s != nil && s.state != nil && s.state.HasChanged() {
			return true
		}
	}
	return false
}

// FrontSpline, BackSpline, LeftSpline, RightSpline and TopSpline expose the
// outlines computed by the last PreUpdate. They are released by UpdateMesh.
func (b *Building) FrontSpline() []v3.Vec { return b.front }
func (b *Building) BackSpline() []v3.Vec  { return b.back }
func (b *Building) LeftSpline() []v3.Vec  { return b.left }
func (b *Building) RightSpline() []v3.Vec { return b.right }
func (b *Building) TopSpline() []v3.Vec   { return b.top }

// SegmentNormals returns the per-point normals of the front spline taken
// from its segment directions, as computed by the last PreUpdate and released with the outlines. Unlike
// the spline normals they ignore the neighbouring spans.
func (b *Building) SegmentNormals() []v3.Vec { return b.normals }

// PreUpdate is the first phase of an update pass. It computes the outlines
// and the height of the building and returns Pending when UpdateMesh has
// work to do. Any other value is the final result of the pass: 0 when
// nothing changed, 1 when a disabled building dropped its meshes.
func (b *Building) PreUpdate(ext External, force bool) int {
	b.result = Pending
	if b.deleted {
		b.result = 0
		return b.result
	}
	if !force && !b.DidChange() && !b.anySideChanged() {
		b.result = 0
		return b.result
	}
	if !b.Enabled {
		b.teardown()
		b.oldEnabled = b.Enabled
		b.changed = false
		b.state.FlagUnchanged()
		b.result = 1
		return b.result
	}
	if len(b.Spline) < 2 {
		b.teardown()
		b.oldEnabled = b.Enabled
		b.changed = false
		b.state.FlagUnchanged()
		b.result = 0
		return b.result
	}

	depth := b.Depth()
	front := b.Spline.Points()
	n := len(b.Spline)
	b.normals = segmentNormals(front)
	back := make([]v3.Vec, n)
	for i, v := range b.Spline {
		back[n-1-i] = v.Point.Add(v.Normal.MulScalar(depth))
	}
	left := []v3.Vec{front[n-1], back[0]}
	right := []v3.Vec{back[n-1], front[0]}

	back = geom.WithoutIntersections(back)

	if b.FixAcuteAngles() {
		back = trimBack(front, back, left, right, depth)
		left[1] = back[0]
		right[0] = back[len(back)-1]
	}

	if ext.Forced {
		b.Height = ext.Height
		b.MaxHeight = ext.MaxHeight
	} else {
		maxH := math.Inf(-1)
		for _, p := range front {
			maxH = math.Max(maxH, p.Y)
		}
		for _, p := range back {
			maxH = math.Max(maxH, p.Y)
		}
		b.Height = maxH + b.state.Float(KeyHeight, DefaultHeight)
		b.MaxHeight = maxH
	}
	b.TrueHeight = b.Height - b.MaxHeight

	top := make([]v3.Vec, 0, len(front)+len(back))
	for _, p := range append(append([]v3.Vec(nil), front...), back...) {
		top = append(top, v3.Vec{X: p.X, Y: b.Height, Z: p.Z})
	}

	b.front, b.back, b.left, b.right, b.top = front, back, left, right, top
	return b.result
}

// segmentNormals returns, per front point, the direction of the segment
// leaving it crossed with Up. The last point takes its incoming segment.
func segmentNormals(front []v3.Vec) []v3.Vec {
	res := make([]v3.Vec, len(front))
	for i := range front {
		j, k := i, i+1
		if k == len(front) {
			j, k = i-1, i
		}
		res[i] = geom.Normalize(front[k].Sub(front[j]).Cross(geom.Up))
	}
	return res
}

// trimBack drops back points that lie outside the wedge between the two
// connector walls and moves the back corners along their offsets so that
// a corner sharper than 90° keeps the wall depth at depth. At wider
// corners the back corners are never pushed out.
func trimBack(front, back, left, right []v3.Vec, depth float64) []v3.Vec {
	plane0 := geom.VerticalPlane(left[0], left[1])
	plane1 := geom.VerticalPlane(right[1], right[0])

	res := []v3.Vec{back[0]}
	for i := 1; i < len(back)-1; i++ {
		p := back[i]
		d0 := plane0.Distance(p)
		d1 := plane1.Distance(p)
		include := d0*d1 <= 0 || math.Min(math.Abs(d0), math.Abs(d1)) < geom.Epsilon
		if include && geom.Find(res, p) == -1 {
			res = append(res, p)
		}
	}
	res = append(res, back[len(back)-1])

	last := len(res) - 1
	fl := front[len(front)-1]
	ff := front[0]
	f0 := cornerRescale(depth, fl, front[len(front)-2], res[0], front)
	f1 := cornerRescale(depth, ff, front[1], res[last], front)
	res[0] = fl.Add(res[0].Sub(fl).MulScalar(f0))
	res[last] = ff.Add(res[last].Sub(ff).MulScalar(f1))
	return res
}

// cornerRescale is RescaleFactor for the back corner p of the front end
// point corner, whose own wall runs towards inward. It is capped at 1 when
// the corner is 90° or wider.
func cornerRescale(depth float64, corner, inward, p v3.Vec, front []v3.Vec) float64 {
	f := RescaleFactor(depth, p, front)
	if CornerAngle(corner, inward, p) >= 90-1e-6 {
		return math.Min(1, f)
	}
	return f
}

// CornerAngle returns, in degrees, the ground-plane angle of the line
// corner at corner, given the building's own wall towards inward and the
// back offset p of the corner. The offset bisects the corner, so the
// corner is twice the angle between wall and offset. A corner on the
// outside of a turn comes out above 180.
func CornerAngle(corner, inward, p v3.Vec) float64 {
	flat := func(v v3.Vec) v3.Vec { return v3.Vec{X: v.X, Z: v.Z} }
	return 2 * geom.Angle(flat(inward.Sub(corner)), flat(p.Sub(corner)))
}

// RescaleFactor is the ratio between depth and the ground distance from p
// to the front polyline. A point on the front gives 1. At a concave corner
// the offset corner lies closer than depth to the front, so the raw
// factor exceeds 1 there; trimBack caps it for corners of 90° or more.
func RescaleFactor(depth float64, p v3.Vec, front []v3.Vec) float64 {
	d2 := geom.PointPolylineDist2(p, front, false)
	if d2 < geom.Epsilon*geom.Epsilon || math.IsInf(d2, 0) {
		return 1
	}
	return depth / math.Sqrt(d2)
}

// UpdateMesh is the second phase of an update pass. prev and next describe
// the neighbours in line order, nil when there is none. It returns the
// number of side and roof meshes rebuilt.
func (b *Building) UpdateMesh(prev, next *Neighbor) int {
	if b.result != Pending {
		return b.result
	}
	st := b.state
	depth := b.Depth()
	fix := b.FixAcuteAngles()
	rightOkay := prev.permits(b.Height, depth, fix)
	leftOkay := next.permits(b.Height, depth, fix)

	enabled := map[kernel.Side]bool{
		kernel.SideFront: st.Bool(KeyFront, true),
		kernel.SideLeft:  st.Bool(KeyLeft, true) && leftOkay,
		kernel.SideRight: st.Bool(KeyRight, true) && rightOkay,
		kernel.SideBack:  st.Bool(KeyBack, true),
	}
	for _, s := range kernel.Sides {
		switch {
		case !enabled[s]:
			b.sides[s] = nil
		case b.sides[s] == nil:
			b.sides[s] = &Side{Kind: s}
		}
	}
	if !st.Bool(KeyTop, true) {
		b.roof = nil
	} else if b.roof == nil {
		b.roof = &Roof{}
	}

	splines := map[kernel.Side][]v3.Vec{
		kernel.SideFront: b.front,
		kernel.SideLeft:  b.left,
		kernel.SideRight: b.right,
		kernel.SideBack:  b.back,
	}
	fs := st.EnsureChild(SideStateKey(kernel.SideFront))
	frontChanged := fs.HasChanged()
	allEqual := st.Bool(KeyAllSidesEqual, false)

	res := 0
	for _, s := range kernel.Sides {
		side := b.sides[s]
		if side == nil {
			continue
		}
		ss := fs
		if s != kernel.SideFront && !allEqual {
			ss = st.EnsureChild(SideStateKey(s))
		}
		if s != kernel.SideFront && allEqual && frontChanged {
			fs.FlagChanged()
		}
		n, err := side.update(b, splines[s], b.Height, b.TrueHeight, b.MaxHeight, ss)
		if err != nil {
			b.logger().Printf("mesh generation failed on building %s: %v", b.Name(), err)
		}
		res += n
	}

	if b.roof != nil {
		n, err := b.roof.Update(b.builders.Roof, kernel.RoofRequest{
			Name:    b.Name(),
			Outline: b.top,
			Height:  b.Height,
			Texture: st.Str(KeyTopTexture, ""),
			UMult:   st.Float(KeyTopUMult, 1),
			VMult:   st.Float(KeyTopVMult, 1),
		})
		if err != nil {
			b.logger().Printf("mesh generation failed on building %s: %v", b.Name(), err)
		}
		res += n
	}

	b.oldEnabled = b.Enabled
	b.changed = false
	st.FlagUnchanged()
	b.front, b.back, b.left, b.right, b.top = nil, nil, nil, nil, nil
	b.normals = nil
	return res
}
