package state

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind enumerates the value types a Node can hold.
type Kind int

const (
	KindNone   Kind = iota // zero Value, absent key
	KindInt                // int
	KindFloat              // float64
	KindBool               // bool
	KindString             // string
	KindVector             // v3.Vec
	KindNode               // *Node
	KindArray              // homogeneous array, see Value.Elem
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindNode:
		return "node"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// parseKind is the inverse of Kind.String for scalar and node kinds.
func parseKind(s string) (Kind, bool) {
	switch s {
	case "int":
		return KindInt, true
	case "float":
		return KindFloat, true
	case "bool":
		return KindBool, true
	case "string":
		return KindString, true
	case "vector":
		return KindVector, true
	case "node":
		return KindNode, true
	}
	return KindNone, false
}

// Value is a tagged union over the kinds a Node can store.
// The zero Value has KindNone.
type Value struct {
	kind  Kind
	elem  Kind // element kind when kind == KindArray
	i     int
	f     float64
	b     bool
	s     string
	v     v3.Vec
	n     *Node
	items []Value
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Elem returns the element kind of an array value, KindNone otherwise.
func (v Value) Elem() Kind { return v.elem }

// Len returns the number of elements of an array value, 0 otherwise.
func (v Value) Len() int { return len(v.items) }

// IsZero reports whether v is the zero Value.
func (v Value) IsZero() bool { return v.kind == KindNone }

func OfInt(i int) Value { return Value{kind: KindInt, i: i} }
func OfFloat(f float64) Value { return Value{kind: KindFloat, f: f} }
func OfBool(b bool) Value { return Value{kind: KindBool, b: b} }
func OfString(s string) Value { return Value{kind: KindString, s: s} }
func OfVector(vec v3.Vec) Value { return Value{kind: KindVector, v: vec} }

// OfNode wraps a child node. A nil node yields the zero Value.
func OfNode(n *Node) Value {
	if n == nil {
		return Value{}
	}
	return Value{kind: KindNode, n: n}
}

func OfInts(xs []int) Value {
	items := make([]Value, len(xs))
	for i, x := range xs {
		items[i] = OfInt(x)
	}
	return Value{kind: KindArray, elem: KindInt, items: items}
}

func OfFloats(xs []float64) Value {
	items := make([]Value, len(xs))
	for i, x := range xs {
		items[i] = OfFloat(x)
	}
	return Value{kind: KindArray, elem: KindFloat, items: items}
}

func OfBools(xs []bool) Value {
	items := make([]Value, len(xs))
	for i, x := range xs {
		items[i] = OfBool(x)
	}
	return Value{kind: KindArray, elem: KindBool, items: items}
}

func OfStrings(xs []string) Value {
	items := make([]Value, len(xs))
	for i, x := range xs {
		items[i] = OfString(x)
	}
	return Value{kind: KindArray, elem: KindString, items: items}
}

func OfVectors(xs []v3.Vec) Value {
	items := make([]Value, len(xs))
	for i, x := range xs {
		items[i] = OfVector(x)
	}
	return Value{kind: KindArray, elem: KindVector, items: items}
}

// OfNodes wraps an array of child nodes. Nil entries are dropped.
func OfNodes(xs []*Node) Value {
	items := make([]Value, 0, len(xs))
	for _, x := range xs {
		if x != nil {
			items = append(items, OfNode(x))
		}
	}
	return Value{kind: KindArray, elem: KindNode, items: items}
}

// arrayOf builds an array value from already-typed items. It reports false
// when the items are not homogeneous. Mixed int/float arrays are promoted
// to float.
func arrayOf(elem Kind, items []Value) (Value, bool) {
	numeric := elem == KindInt || elem == KindFloat
	hasFloat := false
	hasInt := false
	for _, it := range items {
		switch {
		case numeric && it.kind == KindFloat:
			hasFloat = true
		case numeric && it.kind == KindInt:
			hasInt = true
		case it.kind != elem:
			return Value{}, false
		}
	}
	if hasInt && hasFloat {
		for i, it := range items {
			if it.kind == KindInt {
				items[i] = OfFloat(float64(it.i))
			}
		}
		elem = KindFloat
	} else if len(items) > 0 {
		elem = items[0].kind
	}
	return Value{kind: KindArray, elem: elem, items: items}, true
}

// AsInt returns the int payload and whether v holds an int.
func (v Value) AsInt() (int, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload and whether v holds a float.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the bool payload and whether v holds a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string payload and whether v holds a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsVector returns the vector payload and whether v holds a vector.
func (v Value) AsVector() (v3.Vec, bool) { return v.v, v.kind == KindVector }

// AsNode returns the child node and whether v holds one.
func (v Value) AsNode() (*Node, bool) { return v.n, v.kind == KindNode }

// equal compares two values deeply. Dirty flags are ignored.
func (v Value) equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindVector:
		return v.v == o.v
	case KindNode:
		return v.n.Equal(o.n)
	case KindArray:
		if v.elem != o.elem || len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].equal(o.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// clone deep-copies v. Child nodes are cloned and left parentless; the
// caller re-parents them.
func (v Value) clone() Value {
	switch v.kind {
	case KindNode:
		return Value{kind: KindNode, n: v.n.cloneTree()}
	case KindArray:
		items := make([]Value, len(v.items))
		for i, it := range v.items {
			items[i] = it.clone()
		}
		return Value{kind: KindArray, elem: v.elem, items: items}
	}
	return v
}

// nodes returns every child node directly referenced by v.
func (v Value) nodes() []*Node {
	switch {
	case v.kind == KindNode:
		return []*Node{v.n}
	case v.kind == KindArray && v.elem == KindNode:
		res := make([]*Node, 0, len(v.items))
		for _, it := range v.items {
			res = append(res, it.n)
		}
		return res
	}
	return nil
}
