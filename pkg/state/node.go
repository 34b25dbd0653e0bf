package state

import (
	"sort"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Node is a property bag with a parent link and a dirty flag.
// The zero value is not usable; create nodes with New.
type Node struct {
	props  map[string]Value
	parent *Node
	dirty  bool
}

// New creates an empty, unchanged node.
func New() *Node {
	return &Node{props: make(map[string]Value)}
}

// FromTemplate returns an independent copy of tmpl flagged as changed, so
// the first update pass builds everything it describes. A nil template
// yields an empty changed node.
func FromTemplate(tmpl *Node) *Node {
	var n *Node
	if tmpl == nil {
		n = New()
	} else {
		n = tmpl.Clone()
	}
	n.FlagChanged()
	return n
}

// Parent returns the node this one is stored under, or nil.
func (n *Node) Parent() *Node { return n.parent }

// Keys returns the property keys in sorted order.
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.props))
	for k := range n.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of properties.
func (n *Node) Len() int { return len(n.props) }

// Has reports whether key is present.
func (n *Node) Has(key string) bool {
	_, ok := n.props[key]
	return ok
}

// Get returns the raw value stored under key.
func (n *Node) Get(key string) (Value, bool) {
	v, ok := n.props[key]
	return v, ok
}

// Set stores v under key. Any child node previously stored under key is
// unlinked, child nodes inside v are re-parented to n. When markDirty is
// true n and all its ancestors are flagged changed; a changed child
// propagates its status upward regardless.
func (n *Node) Set(key string, v Value, markDirty bool) {
	if old, ok := n.props[key]; ok {
		n.unlink(old)
	}
	if v.kind == KindNone {
		delete(n.props, key)
	} else {
		v = n.link(v)
		n.props[key] = v
	}
	if markDirty || v.hasDirtyNode() {
		n.FlagChanged()
	}
}

// Delete removes key and flags n changed if it was present.
func (n *Node) Delete(key string) {
	old, ok := n.props[key]
	if !ok {
		return
	}
	n.unlink(old)
	delete(n.props, key)
	n.FlagChanged()
}

// Detach removes n from its parent. The parent is flagged changed.
func (n *Node) Detach() {
	if n.parent == nil {
		return
	}
	p := n.parent
	p.forget(n)
	n.parent = nil
	p.FlagChanged()
}

// link re-parents the child nodes of v to n. A node that is already an
// ancestor of n (or n itself) is stored as a copy so the tree stays acyclic.
func (n *Node) link(v Value) Value {
	switch {
	case v.kind == KindNode:
		v.n = n.adopt(v.n)
	case v.kind == KindArray && v.elem == KindNode:
		items := make([]Value, len(v.items))
		for i, it := range v.items {
			items[i] = Value{kind: KindNode, n: n.adopt(it.n)}
		}
		v.items = items
	}
	return v
}

func (n *Node) adopt(c *Node) *Node {
	if c == n || c.isAncestorOf(n) {
		c = c.Clone()
	}
	if old := c.parent; old != nil && old != n {
		old.forget(c)
		old.FlagChanged()
	}
	c.parent = n
	return c
}

func (n *Node) unlink(v Value) {
	for _, c := range v.nodes() {
		if c.parent == n {
			c.parent = nil
		}
	}
}

// forget drops every reference n holds to child c without touching c.
func (n *Node) forget(c *Node) {
	for k, v := range n.props {
		switch {
		case v.kind == KindNode && v.n == c:
			delete(n.props, k)
		case v.kind == KindArray && v.elem == KindNode:
			kept := v.items[:0:0]
			for _, it := range v.items {
				if it.n != c {
					kept = append(kept, it)
				}
			}
			if len(kept) != len(v.items) {
				v.items = kept
				n.props[k] = v
			}
		}
	}
}

func (n *Node) isAncestorOf(o *Node) bool {
	for p := o.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

func (v Value) hasDirtyNode() bool {
	for _, c := range v.nodes() {
		if c.dirty {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Dirty tracking
// ---------------------------------------------------------------------------

// HasChanged reports whether n or anything below it changed since the last
// FlagUnchanged.
func (n *Node) HasChanged() bool { return n.dirty }

// FlagChanged marks n and every ancestor as changed.
func (n *Node) FlagChanged() {
	for p := n; p != nil; p = p.parent {
		p.dirty = true
	}
}

// FlagUnchanged clears the dirty flag of n and every descendant.
func (n *Node) FlagUnchanged() {
	n.dirty = false
	for _, v := range n.props {
		for _, c := range v.nodes() {
			c.FlagUnchanged()
		}
	}
}

// ---------------------------------------------------------------------------
// Clone / equality
// ---------------------------------------------------------------------------

// Clone returns a deep, parentless copy of n. Dirty flags are copied node by
// node; no child is shared with n.
func (n *Node) Clone() *Node {
	return n.cloneTree()
}

func (n *Node) cloneTree() *Node {
	res := &Node{props: make(map[string]Value, len(n.props)), dirty: n.dirty}
	for k, v := range n.props {
		c := v.clone()
		for _, child := range c.nodes() {
			child.parent = res
		}
		res.props[k] = c
	}
	return res
}

// Equal reports whether n and o hold the same keys and deeply equal values.
// Dirty flags and parents are not compared.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if len(n.props) != len(o.props) {
		return false
	}
	for k, v := range n.props {
		ov, ok := o.props[k]
		if !ok || !v.equal(ov) {
			return false
		}
	}
	return true
}

// ReplaceWith replaces the properties of n with a deep copy of o's and flags
// n changed. n keeps its own parent.
func (n *Node) ReplaceWith(o *Node) {
	for _, v := range n.props {
		n.unlink(v)
	}
	tmp := o.Clone()
	n.props = tmp.props
	for _, v := range n.props {
		for _, c := range v.nodes() {
			c.parent = n
		}
	}
	n.FlagChanged()
}

// ---------------------------------------------------------------------------
// Typed getters. A missing key or a value of another kind returns def.
// ---------------------------------------------------------------------------

func (n *Node) Int(key string, def int) int {
	if x, ok := n.props[key].AsInt(); ok {
		return x
	}
	return def
}

func (n *Node) Float(key string, def float64) float64 {
	if x, ok := n.props[key].AsFloat(); ok {
		return x
	}
	return def
}

func (n *Node) Bool(key string, def bool) bool {
	if x, ok := n.props[key].AsBool(); ok {
		return x
	}
	return def
}

func (n *Node) Str(key string, def string) string {
	if x, ok := n.props[key].AsString(); ok {
		return x
	}
	return def
}

func (n *Node) Vector(key string, def v3.Vec) v3.Vec {
	if x, ok := n.props[key].AsVector(); ok {
		return x
	}
	return def
}

// Child returns the node stored under key, or nil.
func (n *Node) Child(key string) *Node {
	if x, ok := n.props[key].AsNode(); ok {
		return x
	}
	return nil
}

// EnsureChild returns the node stored under key, creating and attaching an
// empty one without flagging n changed when absent.
func (n *Node) EnsureChild(key string) *Node {
	if c := n.Child(key); c != nil {
		return c
	}
	c := New()
	n.Set(key, OfNode(c), false)
	return c
}

func (n *Node) array(key string, elem Kind) ([]Value, bool) {
	v, ok := n.props[key]
	if !ok || v.kind != KindArray || v.elem != elem {
		return nil, false
	}
	return v.items, true
}

func (n *Node) Ints(key string, def []int) []int {
	items, ok := n.array(key, KindInt)
	if !ok {
		return def
	}
	res := make([]int, len(items))
	for i, it := range items {
		res[i] = it.i
	}
	return res
}

func (n *Node) Floats(key string, def []float64) []float64 {
	items, ok := n.array(key, KindFloat)
	if !ok {
		return def
	}
	res := make([]float64, len(items))
	for i, it := range items {
		res[i] = it.f
	}
	return res
}

func (n *Node) Bools(key string, def []bool) []bool {
	items, ok := n.array(key, KindBool)
	if !ok {
		return def
	}
	res := make([]bool, len(items))
	for i, it := range items {
		res[i] = it.b
	}
	return res
}

func (n *Node) Strs(key string, def []string) []string {
	items, ok := n.array(key, KindString)
	if !ok {
		return def
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.s
	}
	return res
}

func (n *Node) Vectors(key string, def []v3.Vec) []v3.Vec {
	items, ok := n.array(key, KindVector)
	if !ok {
		return def
	}
	res := make([]v3.Vec, len(items))
	for i, it := range items {
		res[i] = it.v
	}
	return res
}

// Children returns the child nodes stored as an array under key, or nil.
func (n *Node) Children(key string) []*Node {
	items, ok := n.array(key, KindNode)
	if !ok {
		return nil
	}
	res := make([]*Node, len(items))
	for i, it := range items {
		res[i] = it.n
	}
	return res
}

// ---------------------------------------------------------------------------
// Typed setters. All of them flag n changed.
// ---------------------------------------------------------------------------

func (n *Node) SetInt(key string, x int) { n.Set(key, OfInt(x), true) }
func (n *Node) SetFloat(key string, x float64) { n.Set(key, OfFloat(x), true) }
func (n *Node) SetBool(key string, x bool) { n.Set(key, OfBool(x), true) }
func (n *Node) SetStr(key string, x string) { n.Set(key, OfString(x), true) }
func (n *Node) SetVector(key string, x v3.Vec) { n.Set(key, OfVector(x), true) }
func (n *Node) SetInts(key string, xs []int) { n.Set(key, OfInts(xs), true) }
func (n *Node) SetFloats(key string, xs []float64) { n.Set(key, OfFloats(xs), true) }
func (n *Node) SetBools(key string, xs []bool) { n.Set(key, OfBools(xs), true) }
func (n *Node) SetStrs(key string, xs []string) { n.Set(key, OfStrings(xs), true) }
func (n *Node) SetVectors(key string, xs []v3.Vec) { n.Set(key, OfVectors(xs), true) }
func (n *Node) SetChildren(key string, xs []*Node) { n.Set(key, OfNodes(xs), true) }

// SetChild stores c under key, unlinking whatever child was there and
// detaching c from its previous parent. A nil c removes the key.
func (n *Node) SetChild(key string, c *Node) { n.Set(key, OfNode(c), true) }

// Name is the conventional "name" property.
func (n *Node) Name() string { return n.Str("name", "") }

func (n *Node) SetName(name string) { n.SetStr("name", name) }

// ---------------------------------------------------------------------------
// Prefixed containers
// ---------------------------------------------------------------------------

// Container collects every "prefix_key" property into a new parentless node
// keyed by "key". Values are deep copies.
func (n *Node) Container(prefix string) *Node {
	res := New()
	for k, v := range n.props {
		head, rest, ok := strings.Cut(k, "_")
		if ok && head == prefix {
			res.Set(rest, v.clone(), false)
		}
	}
	return res
}

// SetContainer stores every property of in as "prefix_key" on n.
func (n *Node) SetContainer(in *Node, prefix string) {
	for k, v := range in.props {
		n.Set(prefix+"_"+k, v.clone(), true)
	}
}
