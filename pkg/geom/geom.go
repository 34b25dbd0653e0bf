// Package geom holds the small vector helpers shared by the spline and
// building code. Everything works on sdfx vectors; "2D" routines project
// onto the ground (XZ) plane with Y up.
package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Epsilon is the shared tolerance for position and plane comparisons.
const Epsilon = 1e-4

// Up is the world up axis.
var Up = v3.Vec{X: 0, Y: 1, Z: 0}

// Equal reports whether a and b are the same position within Epsilon
// (squared distance).
func Equal(a, b v3.Vec) bool {
	return b.Sub(a).Length2() <= Epsilon
}

// Find returns the index of the first element of list equal to p, or -1.
func Find(list []v3.Vec, p v3.Vec) int {
	for i, q := range list {
		if Equal(q, p) {
			return i
		}
	}
	return -1
}

// Normalize returns v scaled to unit length, or the zero vector when v is
// too short to have a direction.
func Normalize(v v3.Vec) v3.Vec {
	l := v.Length()
	if l < 1e-12 {
		return v3.Vec{}
	}
	return v.DivScalar(l)
}

// Lerp interpolates between a and b.
func Lerp(a, b v3.Vec, t float64) v3.Vec {
	return a.Add(b.Sub(a).MulScalar(t))
}

// Flat drops the Y component.
func Flat(v v3.Vec) v2.Vec { return v2.Vec{X: v.X, Y: v.Z} }

// ClosestPointFactor returns the clamped [0,1] parameter of the point on
// segment [start,end] closest to p. A degenerate segment yields 0.
func ClosestPointFactor(p, start, end v3.Vec) float64 {
	d := end.Sub(start)
	l2 := d.Length2()
	if l2 == 0 {
		return 0
	}
	return clamp01(p.Sub(start).Dot(d) / l2)
}

// ClosestPoint returns the point on segment [start,end] closest to p.
func ClosestPoint(p, start, end v3.Vec) v3.Vec {
	return Lerp(start, end, ClosestPointFactor(p, start, end))
}

// Angle returns the unsigned angle in degrees between a and b, 0 when
// either is zero length.
func Angle(a, b v3.Vec) float64 {
	la, lb := a.Length(), b.Length()
	if la < 1e-12 || lb < 1e-12 {
		return 0
	}
	c := a.Dot(b) / (la * lb)
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * 180 / math.Pi
}

// PathLength sums the segment lengths of path.
func PathLength(path []v3.Vec) float64 {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		total += path[i+1].Sub(path[i]).Length()
	}
	return total
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// ---------------------------------------------------------------------------
// Planes
// ---------------------------------------------------------------------------

// Plane is an oriented plane: Normal·p + D = 0.
type Plane struct {
	Normal v3.Vec
	D      float64
}

// PlaneFrom3 builds the plane through a, b, c with normal
// normalize((b-a)×(c-a)).
func PlaneFrom3(a, b, c v3.Vec) Plane {
	n := Normalize(b.Sub(a).Cross(c.Sub(a)))
	return Plane{Normal: n, D: -n.Dot(a)}
}

// Distance returns the signed distance from p to the plane.
func (pl Plane) Distance(p v3.Vec) float64 {
	return pl.Normal.Dot(p) + pl.D
}

// VerticalPlane builds the vertical plane containing segment [a,b].
func VerticalPlane(a, b v3.Vec) Plane {
	return PlaneFrom3(a, b, a.Add(Up))
}

// ---------------------------------------------------------------------------
// Polylines
// ---------------------------------------------------------------------------

func pointSegmentDist2(p, s0, s1 v2.Vec) float64 {
	d := s1.Sub(s0)
	l2 := d.Length2()
	if l2 == 0 {
		return p.Sub(s0).Length2()
	}
	t := clamp01(p.Sub(s0).Dot(d) / l2)
	return p.Sub(s0.Add(d.MulScalar(t))).Length2()
}

// PointPolylineDist2 returns the squared XZ distance from p to the nearest
// segment of poly. With loop set the closing segment last->first counts.
// An empty or single-point poly returns +Inf unless loop closes it.
func PointPolylineDist2(p v3.Vec, poly []v3.Vec, loop bool) float64 {
	best := math.Inf(1)
	q := Flat(p)
	for i := range poly {
		if !loop && i == 0 {
			continue
		}
		i0 := i - 1
		if i == 0 {
			i0 = len(poly) - 1
		}
		if d := pointSegmentDist2(q, Flat(poly[i0]), Flat(poly[i])); d < best {
			best = d
		}
	}
	return best
}

// SegmentIntersection2D intersects segments [a0,a1] and [b0,b1] in the XZ
// plane. Parallel segments never intersect.
func SegmentIntersection2D(a0, a1, b0, b1 v2.Vec) (v2.Vec, bool) {
	r := a1.Sub(a0)
	s := b1.Sub(b0)
	den := cross2(r, s)
	if den == 0 {
		return v2.Vec{}, false
	}
	qp := b0.Sub(a0)
	t := cross2(qp, s) / den
	u := cross2(qp, r) / den
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return v2.Vec{}, false
	}
	return a0.Add(r.MulScalar(t)), true
}

func cross2(a, b v2.Vec) float64 { return a.X*b.Y - a.Y*b.X }

// WithoutIntersections removes self-intersecting loops from line. Whenever
// segment i crosses a later non-adjacent segment j, the points between them
// are replaced by the crossing point, whose height is the mean of the four
// segment endpoints. Lines of three points or fewer are returned as a copy.
func WithoutIntersections(line []v3.Vec) []v3.Vec {
	res := append([]v3.Vec(nil), line...)
	if len(res) <= 3 {
		return res
	}
	for i := 0; i < len(res)-1; i++ {
		hit := -1
		var at v3.Vec
		for j := i + 2; j < len(res)-1; j++ {
			p, ok := SegmentIntersection2D(Flat(res[i]), Flat(res[i+1]), Flat(res[j]), Flat(res[j+1]))
			if ok {
				hit = j
				y := (res[i].Y + res[i+1].Y + res[j].Y + res[j+1].Y) / 4
				at = v3.Vec{X: p.X, Y: y, Z: p.Y}
				break
			}
		}
		if hit > -1 {
			tail := append([]v3.Vec{at}, res[hit+1:]...)
			res = append(res[:i+1], tail...)
		}
	}
	return res
}
