package line

import (
	"slices"

	"github.com/chazu/citybuilder/pkg/building"
	"github.com/chazu/citybuilder/pkg/topology"
)

// looping reports whether the line closes on itself.
func (l *Line) looping() bool {
	return l.state.Bool(KeyLoop, false) && len(l.points) > 2
}

// SplitPoints returns the first point, every interior dividing point and
// the last point.
func (l *Line) SplitPoints() []*topology.ControlPoint {
	n := len(l.points)
	if n == 0 {
		return nil
	}
	res := []*topology.ControlPoint{l.points[0]}
	for i := 1; i < n-1; i++ {
		if l.points[i].Dividing {
			res = append(res, l.points[i])
		}
	}
	if n > 1 {
		res = append(res, l.points[n-1])
	}
	return res
}

// Segment reconciles the buildings with the current split points. A
// building whose two points are still adjacent split points is kept as is;
// every other building is deleted, and each uncovered pair of adjacent
// split points gets a new building. The result is sorted by the position
// of each building's first point.
func (l *Line) Segment() {
	if len(l.points) < 2 {
		for _, b := range l.buildings {
			b.Delete()
		}
		l.buildings = nil
		return
	}
	looping := l.looping()
	split := l.SplitPoints()

	done := make(map[int]bool)
	kept := l.buildings[:0]
	for _, b := range l.buildings {
		i1 := slices.Index(split, b.FirstPoint)
		i2 := slices.Index(split, b.LastPoint)
		adjacent := i1 == i2-1 || (looping && i2 == 0 && i1 == len(split)-1)
		if adjacent && i1 != -1 && i2 != -1 && !done[i1] {
			done[i1] = true
			kept = append(kept, b)
			continue
		}
		b.Delete()
	}
	l.buildings = kept

	spans := len(split) - 1
	if looping {
		spans++
	}
	for i := 0; i < spans; i++ {
		if done[i] {
			continue
		}
		i2 := i + 1
		if i2 >= len(split) {
			i2 = 0
		}
		l.buildings = append(l.buildings, l.newBuilding(split[i], split[i2]))
	}
	slices.SortStableFunc(l.buildings, func(a, b *building.Building) int {
		return l.IndexOf(a.FirstPoint) - l.IndexOf(b.FirstPoint)
	})
}

func (l *Line) newBuilding(first, last *topology.ControlPoint) *building.Building {
	b := building.New(first, last, l.BuildingTemplate, l.builders)
	b.Logger = l.Logger
	return b
}
