// Package preset keeps the named state templates that new lines and
// buildings start from. Each kind has an ordered list whose first entry is
// the default; the rest are kept sorted by name.
package preset

import (
	"slices"
	"strings"

	"github.com/chazu/citybuilder/pkg/random"
	"github.com/chazu/citybuilder/pkg/state"
)

// Preset kinds.
const (
	KindBuilding = "building"
	KindLine     = "buildingLine"
)

// Library holds the preset lists of every kind.
type Library struct {
	lists map[string][]*state.Node
}

// NewLibrary returns a library with the built-in defaults for buildings
// and lines.
func NewLibrary() *Library {
	return &Library{lists: map[string][]*state.Node{
		KindBuilding: {DefaultBuilding()},
		KindLine:     {DefaultLine()},
	}}
}

// list returns the presets of kind, creating a list holding only a default
// when the kind is new.
func (l *Library) list(kind string) []*state.Node {
	if ps, ok := l.lists[kind]; ok && len(ps) > 0 {
		return ps
	}
	ps := []*state.Node{defaultFor(kind)}
	l.lists[kind] = ps
	return ps
}

func defaultFor(kind string) *state.Node {
	switch kind {
	case KindBuilding:
		return DefaultBuilding()
	case KindLine:
		return DefaultLine()
	default:
		return state.New()
	}
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Kinds returns the kinds present in the library, sorted.
func (l *Library) Kinds() []string {
	res := make([]string, 0, len(l.lists))
	for k := range l.lists {
		res = append(res, k)
	}
	slices.Sort(res)
	return res
}

// Len returns the number of presets of kind, default included.
func (l *Library) Len(kind string) int { return len(l.list(kind)) }

// Get returns a changed-flagged copy of preset i of kind, or nil when i is
// out of range.
func (l *Library) Get(kind string, i int) *state.Node {
	ps := l.list(kind)
	if i < 0 || i >= len(ps) {
		return nil
	}
	res := ps[i].Clone()
	res.FlagChanged()
	return res
}

// Default is Get(kind, 0).
func (l *Library) Default(kind string) *state.Node { return l.Get(kind, 0) }

// SetDefault replaces the default preset of kind with a copy of st.
func (l *Library) SetDefault(kind string, st *state.Node) {
	ps := l.list(kind)
	ps[0] = st.Clone()
	ps[0].FlagUnchanged()
}

// ByName returns the live preset called name, or nil. Callers must not
// modify it.
func (l *Library) ByName(kind, name string) *state.Node {
	for _, p := range l.list(kind) {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// CloneByName returns a changed-flagged copy of the preset called name,
// or nil.
func (l *Library) CloneByName(kind, name string) *state.Node {
	p := l.ByName(kind, name)
	if p == nil {
		return nil
	}
	res := p.Clone()
	res.FlagChanged()
	return res
}

// Names lists the preset names of kind in library order.
func (l *Library) Names(kind string) []string {
	ps := l.list(kind)
	res := make([]string, len(ps))
	for i, p := range ps {
		res[i] = p.Name()
	}
	return res
}

// Exists reports whether a preset of kind is called exactly name.
func (l *Library) Exists(kind, name string) bool {
	return l.ByName(kind, name) != nil
}

// Presets returns the live presets of kind after the default.
func (l *Library) Presets(kind string) []*state.Node {
	return slices.Clone(l.list(kind)[1:])
}

// Save stores a copy of p. A preset whose name matches ignoring case and
// surrounding space is replaced in place; otherwise p is inserted and the
// entries after the default are re-sorted by name.
func (l *Library) Save(kind string, p *state.Node) {
	p = p.Clone()
	p.FlagUnchanged()
	ps := l.list(kind)
	for i, old := range ps {
		if sameName(old.Name(), p.Name()) {
			ps[i] = p
			return
		}
	}
	ps = append(ps, p)
	slices.SortStableFunc(ps[1:], func(a, b *state.Node) int {
		return strings.Compare(a.Name(), b.Name())
	})
	l.lists[kind] = ps
}

// Delete removes the preset called name, ignoring case. The default is
// never removed.
func (l *Library) Delete(kind, name string) bool {
	ps := l.list(kind)
	for i := 1; i < len(ps); i++ {
		if sameName(ps[i].Name(), name) {
			l.lists[kind] = slices.Delete(ps, i, i+1)
			return true
		}
	}
	return false
}

// Random returns a changed-flagged copy of a preset of kind picked by rng,
// default included.
func (l *Library) Random(kind string, rng random.Source) *state.Node {
	return l.Get(kind, rng.Intn(l.Len(kind)))
}

// Merge saves every non-default preset of o into l. A default of o
// replaces the default of l unless it is unnamed or the built-in one.
func (l *Library) Merge(o *Library) {
	for _, kind := range o.Kinds() {
		ps := o.list(kind)
		if n := ps[0].Name(); n != "" && n != DefaultName {
			l.SetDefault(kind, ps[0])
		}
		for _, p := range ps[1:] {
			l.Save(kind, p)
		}
	}
}

// set installs ps as the list of kind without sorting; used when loading.
func (l *Library) set(kind string, ps []*state.Node) {
	if len(ps) == 0 {
		delete(l.lists, kind)
		return
	}
	l.lists[kind] = ps
}
