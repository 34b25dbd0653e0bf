package line

import (
	"slices"

	"github.com/chazu/citybuilder/pkg/geom"
	"github.com/chazu/citybuilder/pkg/random"
	"github.com/chazu/citybuilder/pkg/state"
	"github.com/chazu/citybuilder/pkg/topology"
)

// AutoCloseResult is the outcome of AutoClose.
type AutoCloseResult int

const (
	// AutoCloseInvalid: the line is not a single point on a link.
	AutoCloseInvalid AutoCloseResult = -1
	// AutoCloseNoTopology: no closed chain could be followed.
	AutoCloseNoTopology AutoCloseResult = 0
	// AutoCloseOK: the line now loops around the chain.
	AutoCloseOK AutoCloseResult = 1
)

// CornerAngle is the turn, in degrees, at which AutoClose splits buildings.
const CornerAngle = 45.0

// AutoCloseOptions configures AutoClose.
type AutoCloseOptions struct {
	// Subdivide inserts dividing points along the chain, spaced by random
	// lengths drawn from [MinLength, MaxLength).
	Subdivide bool
	MinLength float64
	MaxLength float64

	// Presets are building states; each new building gets a random one.
	Presets []*state.Node

	Rand random.Source
}

type autoCloser struct {
	l    *Line
	opts AutoCloseOptions
}

// randomDistances splits total into random steps and returns the
// cumulative fractions, without the final 1.
func (c *autoCloser) randomDistances(total float64) []float64 {
	var res []float64
	acc := 0.0
	for acc < total {
		acc += random.Range(c.opts.Rand, c.opts.MinLength, c.opts.MaxLength)
		res = append(res, acc)
	}
	for i := range res {
		res[i] /= acc
	}
	if len(res) > 0 {
		res = res[:len(res)-1]
	}
	return res
}

// addLinkPoint appends a point at percent along the link from start to
// end.
func (c *autoCloser) addLinkPoint(start, end *topology.TerrainAnchor, percent float64, dividing bool) {
	la := topology.NewLineAnchorAt(start, end, percent)
	p := topology.NewControlPoint(la.Position(), c.l, la)
	p.Dividing = dividing
	c.l.appendPoint(p)
}

// subdivideMiddle adds points on the link joining from and to, ordered
// from from to to.
func (c *autoCloser) subdivideMiddle(from, to *topology.TerrainAnchor) {
	start, end := from, to
	if from.Next != to {
		if to.Next != from {
			return
		}
		start, end = to, from
	}
	dist := from.Position().Sub(to.Position()).Length()
	ds := c.randomDistances(dist)
	if start != from {
		slices.Reverse(ds)
	}
	for _, d := range ds {
		c.addLinkPoint(start, end, d, true)
	}
}

// subdivideEnd adds points on the link between two percentages. With
// keepLast set at least one point is added.
func (c *autoCloser) subdivideEnd(start, end *topology.TerrainAnchor, from, to float64, keepLast bool) {
	p1, p2 := start.Position(), end.Position()
	dist := geom.Lerp(p1, p2, to).Sub(geom.Lerp(p1, p2, from)).Length()
	ds := c.randomDistances(dist)
	if keepLast && len(ds) == 0 {
		ds = append(ds, 0.5)
	}
	for _, d := range ds {
		c.addLinkPoint(start, end, from+(to-from)*d, true)
	}
}

// cornerTurn is how far the line turns at point i, in degrees.
func (l *Line) cornerTurn(i int) float64 {
	cur := l.points[i].Position()
	to := l.points[i+1].Position().Sub(cur)
	from := l.points[i-1].Position().Sub(cur)
	return 180 - geom.Angle(from, to)
}

func (l *Line) dropPoints(ps []*topology.ControlPoint) {
	for _, p := range ps {
		l.RemovePoint(p)
		p.Delete()
	}
}

// AutoClose turns a line made of a single point on a link of a closed
// anchor chain into a loop around the whole chain. The link runs from the
// point's start anchor to its end anchor; the loop follows the chain the
// long way from the end anchor back to the start anchor. Duplicate and
// straight-through points are removed afterwards, and every corner
// turning by CornerAngle or more becomes a dividing point. The anchors
// walked are returned with AutoCloseOK.
func (l *Line) AutoClose(opts AutoCloseOptions) (AutoCloseResult, []*topology.TerrainAnchor) {
	if len(l.points) != 1 || !l.points[0].OnSegment() {
		return AutoCloseInvalid, nil
	}
	if opts.Subdivide && (opts.MinLength <= 0 || opts.MaxLength <= 0 || opts.MaxLength < opts.MinLength) {
		return AutoCloseNoTopology, nil
	}
	if opts.Rand == nil {
		opts.Rand = random.New(0)
	}
	la := l.points[0].Anchor.(*topology.LineAnchor)
	start, ok1 := la.Start.(*topology.TerrainAnchor)
	end, ok2 := la.End.(*topology.TerrainAnchor)
	if !ok1 || !ok2 || !end.Connected(start) {
		return AutoCloseNoTopology, nil
	}
	list := append([]*topology.TerrainAnchor{end}, end.PathTo(start, true)...)
	if len(list) <= 1 {
		return AutoCloseNoTopology, nil
	}

	c := &autoCloser{l: l, opts: opts}
	var cur *topology.TerrainAnchor
	for _, item := range list {
		if opts.Subdivide {
			if cur == nil {
				c.subdivideEnd(start, end, la.Percent, 1, false)
			} else if !geom.Equal(cur.Position(), item.Position()) {
				c.subdivideMiddle(cur, item)
			}
		}
		p := topology.NewControlPoint(item.Position(), l, item)
		l.appendPoint(p)
		cur = item
	}
	if opts.Subdivide {
		c.subdivideEnd(start, end, 0, la.Percent, true)
	} else {
		c.addLinkPoint(start, end, la.Percent*0.5, false)
	}
	l.state.SetBool(KeyLoop, true)

	var drop []*topology.ControlPoint
	for i := 1; i < len(l.points)-1; i++ {
		if geom.Equal(l.points[i-1].Position(), l.points[i].Position()) {
			drop = append(drop, l.points[i])
		}
	}
	l.dropPoints(drop)

	drop = drop[:0]
	for i := 1; i < len(l.points)-1; i++ {
		if l.cornerTurn(i) <= geom.Epsilon && !l.points[i].Dividing {
			drop = append(drop, l.points[i])
		}
	}
	l.dropPoints(drop)

	for i := 1; i < len(l.points)-1; i++ {
		if l.cornerTurn(i) >= CornerAngle {
			l.points[i].Dividing = true
		}
	}

	l.Segment()
	if len(opts.Presets) > 0 {
		for _, b := range l.buildings {
			b.SetState(opts.Presets[opts.Rand.Intn(len(opts.Presets))])
		}
	}
	return AutoCloseOK, list
}
