package engine

import (
	"fmt"
	"slices"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/citybuilder/pkg/preset"
	"github.com/chazu/citybuilder/pkg/state"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a vector returned by vec3.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpProps wraps a state node built by props, extend or preset.
type sexpProps struct {
	node *state.Node
}

func (p *sexpProps) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(props %s)", strings.Join(p.node.Keys(), " "))
}
func (p *sexpProps) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. Keyword
// order is kept so errors come out in source order.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if _, dup := result.kw[name]; !dup {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// A trailing keyword is a true flag.
			result.kw[name] = &zygo.SexpBool{Val: true}
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_building) and plain strings.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toProps extracts the node of a sexpProps.
func toProps(s zygo.Sexp) (*state.Node, error) {
	if p, ok := s.(*sexpProps); ok {
		return p.node, nil
	}
	return nil, fmt.Errorf("expected props, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toValue converts a Sexp into a state value. Numbers are stored as floats,
// which is what every city key reads.
func toValue(s zygo.Sexp) (state.Value, error) {
	switch v := s.(type) {
	case *zygo.SexpInt, *zygo.SexpFloat:
		f, _ := toFloat64(v)
		return state.OfFloat(f), nil
	case *zygo.SexpBool:
		return state.OfBool(v.Val), nil
	case *zygo.SexpStr:
		return state.OfString(strings.TrimPrefix(v.S, kwPrefix)), nil
	case *sexpVec3:
		return state.OfVector(v.vec), nil
	case *sexpProps:
		return state.OfNode(v.node.Clone()), nil
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(v)
		if err != nil {
			return state.Value{}, err
		}
		return toArray(items)
	}
	if s == zygo.SexpNull {
		return state.Value{}, fmt.Errorf("empty list has no element type")
	}
	return state.Value{}, fmt.Errorf("unsupported value %T (%s)", s, s.SexpString(nil))
}

// toArray builds a homogeneous array value. The first element decides the
// element kind.
func toArray(items []zygo.Sexp) (state.Value, error) {
	if len(items) == 0 {
		return state.Value{}, fmt.Errorf("empty array has no element type")
	}
	vals := make([]state.Value, len(items))
	for i, it := range items {
		v, err := toValue(it)
		if err != nil {
			return state.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		if v.Kind() == state.KindArray {
			return state.Value{}, fmt.Errorf("element %d: nested arrays are not supported", i)
		}
		if i > 0 && v.Kind() != vals[0].Kind() {
			return state.Value{}, fmt.Errorf("element %d: %s in an array of %s", i, v.Kind(), vals[0].Kind())
		}
		vals[i] = v
	}
	switch vals[0].Kind() {
	case state.KindFloat:
		xs := make([]float64, len(vals))
		for i, v := range vals {
			xs[i], _ = v.AsFloat()
		}
		return state.OfFloats(xs), nil
	case state.KindBool:
		xs := make([]bool, len(vals))
		for i, v := range vals {
			xs[i], _ = v.AsBool()
		}
		return state.OfBools(xs), nil
	case state.KindString:
		xs := make([]string, len(vals))
		for i, v := range vals {
			xs[i], _ = v.AsString()
		}
		return state.OfStrings(xs), nil
	case state.KindVector:
		xs := make([]v3.Vec, len(vals))
		for i, v := range vals {
			xs[i], _ = v.AsVector()
		}
		return state.OfVectors(xs), nil
	default:
		xs := make([]*state.Node, len(vals))
		for i, v := range vals {
			xs[i], _ = v.AsNode()
		}
		return state.OfNodes(xs), nil
	}
}

// applyKW stores every keyword argument of pa on n.
func applyKW(fn string, n *state.Node, pa kwArgs) error {
	for _, k := range pa.order {
		v, err := toValue(pa.kw[k])
		if err != nil {
			return fmt.Errorf("%s: %s: %w", fn, k, err)
		}
		n.Set(stateKey(k), v, true)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// collector gathers the presets defined by one evaluation.
type collector struct {
	lib      *preset.Library
	defined  map[string]bool
	warnings []EvalWarning
}

func newCollector() *collector {
	return &collector{lib: preset.NewLibrary(), defined: make(map[string]bool)}
}

func (c *collector) warn(kind, name, format string, args ...any) {
	c.warnings = append(c.warnings, EvalWarning{
		Message: fmt.Sprintf(format, args...),
		Kind:    kind,
		Preset:  name,
	})
}

// knownKeys returns the keys of the built-in default of kind, or nil for
// kinds without one.
func knownKeys(kind string) []string {
	switch kind {
	case preset.KindBuilding:
		return preset.DefaultBuilding().Keys()
	case preset.KindLine:
		return preset.DefaultLine().Keys()
	}
	return nil
}

// define records st as a preset of kind, warning about redefinitions and
// keys the city code never reads.
func (c *collector) define(kind, name string, st *state.Node, asDefault bool) {
	id := kind + "/" + strings.ToLower(strings.TrimSpace(name))
	if c.defined[id] {
		c.warn(kind, name, "preset %q redefined", name)
	}
	c.defined[id] = true
	if known := knownKeys(kind); known != nil {
		for _, k := range st.Keys() {
			if !slices.Contains(known, k) {
				c.warn(kind, name, "unknown key %q for %s presets", k, kind)
			}
		}
	}
	st.SetName(name)
	if asDefault {
		c.lib.SetDefault(kind, st)
	} else {
		c.lib.Save(kind, st)
	}
}

// kindAndName reads the leading (kind name) arguments of defpreset,
// defdefault and preset.
func kindAndName(fn string, args []zygo.Sexp) (string, string, error) {
	if len(args) < 2 {
		return "", "", fmt.Errorf("%s requires a kind and a name", fn)
	}
	kind, err := toKeywordString(args[0])
	if err != nil {
		return "", "", fmt.Errorf("%s: kind: %w", fn, err)
	}
	name, err := toKeywordString(args[1])
	if err != nil {
		return "", "", fmt.Errorf("%s: name: %w", fn, err)
	}
	if strings.TrimSpace(name) == "" {
		return "", "", fmt.Errorf("%s: empty name", fn)
	}
	return kind, name, nil
}

// registerBuiltins installs the preset DSL into a zygomys environment. The
// builtins fill c.lib during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, c *collector) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (props :height 12 :fix-acute-angles true :front-state (props ...))
	// -----------------------------------------------------------------------
	env.AddFunction("props", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("props: unexpected positional argument %s", pa.positional[0].SexpString(nil))
		}
		n := state.New()
		if err := applyKW("props", n, pa); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpProps{node: n}, nil
	})

	// -----------------------------------------------------------------------
	// (extend base :height 40)
	// -----------------------------------------------------------------------
	env.AddFunction("extend", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("extend requires exactly one base props argument")
		}
		base, err := toProps(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extend: base: %w", err)
		}
		n := base.Clone()
		if err := applyKW("extend", n, pa); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpProps{node: n}, nil
	})

	// -----------------------------------------------------------------------
	// (preset :building "tower")
	// -----------------------------------------------------------------------
	env.AddFunction("preset", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		kind, pname, err := kindAndName("preset", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		n := c.lib.CloneByName(kind, pname)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("preset: no %s preset named %q", kind, pname)
		}
		return &sexpProps{node: n}, nil
	})

	// -----------------------------------------------------------------------
	// (defpreset :building "tower" (props ...))
	// (defdefault :building "plain" (props ...))
	// -----------------------------------------------------------------------
	def := func(asDefault bool) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, fn string, args []zygo.Sexp) (zygo.Sexp, error) {
			kind, pname, err := kindAndName(fn, args)
			if err != nil {
				return zygo.SexpNull, err
			}
			if len(args) != 3 {
				return zygo.SexpNull, fmt.Errorf("%s requires a kind, a name and a props body", fn)
			}
			body, err := toProps(args[2])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: body: %w", fn, err)
			}
			st := body.Clone()
			c.define(kind, pname, st, asDefault)
			return &sexpProps{node: st}, nil
		}
	}
	env.AddFunction("defpreset", def(false))
	env.AddFunction("defdefault", def(true))
}
