// Package spline derives the normal-bearing boundary of a building line
// from its control points and cuts per-building pieces out of it.
package spline

import (
	"github.com/chazu/citybuilder/pkg/geom"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vertex is a spline point with its outward normal.
type Vertex struct {
	Point  v3.Vec
	Normal v3.Vec
}

// Spline is an ordered run of vertices.
type Spline []Vertex

// Points returns the positions of s.
func (s Spline) Points() []v3.Vec {
	res := make([]v3.Vec, len(s))
	for i, v := range s {
		res[i] = v.Point
	}
	return res
}

// Reversed returns a reversed copy of s.
func (s Spline) Reversed() Spline {
	res := make(Spline, len(s))
	for i, v := range s {
		res[len(s)-1-i] = v
	}
	return res
}

// Dedupe drops every point closer than geom.Epsilon to the last kept one.
// The returned map sends each input index to the index of the kept point
// that absorbed it.
func Dedupe(in []Vertex) (Spline, []int) {
	res := make(Spline, 0, len(in))
	index := make([]int, len(in))
	for i, v := range in {
		if i == 0 || v.Point.Sub(res[len(res)-1].Point).Length() > geom.Epsilon {
			res = append(res, v)
		}
		index[i] = len(res) - 1
	}
	return res, index
}

// FillNormals replaces every normal of s with the bisector of its incoming
// and outgoing directions crossed with the up axis. Vertices that carried a
// provisional normal vote on orientation: the result is true when more of
// them pointed against the computed normal than with it.
func FillNormals(s Spline) bool {
	against, with := 0, 0
	for i := range s {
		var d1, d2 v3.Vec
		if i > 0 {
			d1 = geom.Normalize(s[i].Point.Sub(s[i-1].Point))
		}
		if i < len(s)-1 {
			d2 = geom.Normalize(s[i+1].Point.Sub(s[i].Point))
		}
		d := geom.Normalize(d1.Add(d2))
		n := geom.Normalize(d.Cross(geom.Up))
		if s[i].Normal != (v3.Vec{}) {
			if s[i].Normal.Dot(n) < 0 {
				against++
			} else {
				with++
			}
		}
		s[i].Normal = n
	}
	return against > with
}

// Full is the derived spline of a whole line.
type Full struct {
	Spline Spline
	// IndexMap sends a control point index to its Spline index.
	IndexMap []int
	// Reversed is the orientation vote of FillNormals.
	Reversed bool
	// Invert is the line's invertDirection setting.
	Invert bool
}

// flipped reports whether output should be turned around.
func (f Full) flipped() bool { return f.Reversed != f.Invert }

// Derive builds the full spline from projected control points. Points
// following a chain anchor carry a provisional normal; all others carry
// zero. Fewer than two inputs yield an empty spline.
func Derive(in []Vertex, invert bool) Full {
	if len(in) < 2 {
		return Full{Invert: invert}
	}
	cp := append([]Vertex(nil), in...)
	s, index := Dedupe(cp)
	reversed := FillNormals(s)
	f := Full{Spline: s, IndexMap: index, Reversed: reversed, Invert: invert}
	if f.flipped() {
		for i := range s {
			s[i].Normal = s[i].Normal.Neg()
		}
	}
	return f
}

// Building cuts the span [start,end] of control point indices out of the
// full spline. lineLen is the number of control points. A span from the
// last point back to the first is the closing segment of a loop. Repeated
// positions inside the span are merged by summing their normals. The result
// runs in building order, which is reversed from line order when the line
// is flipped. Invalid indices yield nil.
func (f Full) Building(start, end, lineLen int) Spline {
	if len(f.Spline) == 0 {
		return nil
	}
	var res Spline
	if end == 0 && start == lineLen-1 {
		res = Spline{f.Spline[len(f.Spline)-1], f.Spline[0]}
	} else {
		if start < 0 || end >= len(f.IndexMap) || start > end {
			return nil
		}
		var seen []v3.Vec
		for i := start; i <= end; i++ {
			v := f.Spline[f.IndexMap[i]]
			if idx := geom.Find(seen, v.Point); idx != -1 {
				res[idx].Normal = res[idx].Normal.Add(v.Normal)
				continue
			}
			res = append(res, v)
			seen = append(seen, v.Point)
		}
	}
	for i := range res {
		res[i].Normal = geom.Normalize(res[i].Normal)
	}
	if f.flipped() {
		res = res.Reversed()
	}
	return res
}
