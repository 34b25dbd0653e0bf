package building

import (
	"fmt"
	"runtime/debug"

	"github.com/chazu/citybuilder/pkg/geom"
	"github.com/chazu/citybuilder/pkg/kernel"
	"github.com/chazu/citybuilder/pkg/state"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Side is one facade of a building. It remembers what it was last built
// from and only calls the facade builder when that input changes.
type Side struct {
	Kind kernel.Side

	state *state.Node
	mesh  *kernel.Mesh

	built         bool
	oldSpline     []v3.Vec
	oldHeight     float64
	oldTrueHeight float64
	oldMaxHeight  float64
}

// State returns the side's state node. It is a child of the building's
// state, or the front state when all sides are equal.
func (s *Side) State() *state.Node { return s.state }

// Mesh returns the last successfully built facade, or nil.
func (s *Side) Mesh() *kernel.Mesh { return s.mesh }

func (s *Side) didChange(spl []v3.Vec, height, trueHeight, maxHeight float64) bool {
	if !s.built {
		return true
	}
	if height != s.oldHeight || trueHeight != s.oldTrueHeight || maxHeight != s.oldMaxHeight {
		return true
	}
	if len(spl) != len(s.oldSpline) {
		return true
	}
	for i := range spl {
		if !geom.Equal(spl[i], s.oldSpline[i]) {
			return true
		}
	}
	return s.state != nil && s.state.HasChanged()
}

func (s *Side) updateOlds(spl []v3.Vec, height, trueHeight, maxHeight float64) {
	s.built = true
	s.oldSpline = append(s.oldSpline[:0], spl...)
	s.oldHeight = height
	s.oldTrueHeight = trueHeight
	s.oldMaxHeight = maxHeight
	if s.state != nil {
		s.state.FlagUnchanged()
	}
}

// update rebuilds the facade when its input changed. It returns 1 when a
// new mesh was produced. Builder failures are returned, leaving the side
// without a mesh.
func (s *Side) update(b *Building, spl []v3.Vec, height, trueHeight, maxHeight float64, st *state.Node) (int, error) {
	s.state = st
	if !s.didChange(spl, height, trueHeight, maxHeight) {
		return 0, nil
	}
	s.updateOlds(spl, height, trueHeight, maxHeight)
	s.mesh = nil
	if len(spl) < 2 || b.builders.Facade == nil {
		return 0, nil
	}
	req := kernel.FacadeRequest{
		Name:       b.Name(),
		Side:       s.Kind,
		Spline:     spl,
		Height:     height,
		TrueHeight: trueHeight,
		MaxHeight:  maxHeight,
		Texture:    st.Str("texture", ""),
		UMult:      st.Float("uMult", 1),
		VMult:      st.Float("vMult", 1),
	}
	m, err := guard(func() (*kernel.Mesh, error) { return b.builders.Facade.BuildFacade(req) })
	if err != nil {
		return 0, fmt.Errorf("%s side: %w", s.Kind, err)
	}
	s.mesh = m
	return 1, nil
}

// Roof is the top of a building, or the shared roof of a front-only line.
type Roof struct {
	mesh *kernel.Mesh
}

// Mesh returns the last successfully built roof, or nil.
func (r *Roof) Mesh() *kernel.Mesh { return r.mesh }

// Update rebuilds the roof over outline. The roof is always rebuilt when
// asked to; callers gate it on change detection.
func (r *Roof) Update(rb kernel.RoofBuilder, req kernel.RoofRequest) (int, error) {
	r.mesh = nil
	if rb == nil {
		return 0, nil
	}
	m, err := guard(func() (*kernel.Mesh, error) { return rb.BuildRoof(req) })
	if err != nil {
		return 0, fmt.Errorf("roof: %w", err)
	}
	r.mesh = m
	return 1, nil
}

// guard runs a builder call, turning a panic into an error carrying the
// stack.
func guard(fn func() (*kernel.Mesh, error)) (m *kernel.Mesh, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}
