package state

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestNewNodeIsEmptyAndClean(t *testing.T) {
	n := New()
	if n.Len() != 0 {
		t.Errorf("new node has %d keys, want 0", n.Len())
	}
	if n.HasChanged() {
		t.Error("new node should not be dirty")
	}
	if n.Parent() != nil {
		t.Error("new node should have no parent")
	}
}

// ---------------------------------------------------------------------------
// Typed access
// ---------------------------------------------------------------------------

func TestGettersReturnStoredValues(t *testing.T) {
	n := New()
	n.SetInt("floors", 3)
	n.SetFloat("height", 12.5)
	n.SetBool("active", true)
	n.SetStr("name", "corner")
	n.SetVector("offset", v3.Vec{X: 1, Y: 2, Z: 3})
	n.SetFloats("widths", []float64{1, 2})

	if got := n.Int("floors", 0); got != 3 {
		t.Errorf("Int = %d, want 3", got)
	}
	if got := n.Float("height", 0); got != 12.5 {
		t.Errorf("Float = %f, want 12.5", got)
	}
	if !n.Bool("active", false) {
		t.Error("Bool = false, want true")
	}
	if got := n.Name(); got != "corner" {
		t.Errorf("Name = %q, want %q", got, "corner")
	}
	if got := n.Vector("offset", v3.Vec{}); got != (v3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("Vector = %v", got)
	}
	if got := n.Floats("widths", nil); len(got) != 2 || got[1] != 2 {
		t.Errorf("Floats = %v", got)
	}
}

func TestGettersFallBackOnMissingOrMismatchedKind(t *testing.T) {
	n := New()
	n.SetInt("height", 7)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"missing int", n.Int("depth", 4), 4},
		{"int read as float", n.Float("height", 1.5), 1.5},
		{"int read as bool", n.Bool("height", true), true},
		{"int read as string", n.Str("height", "x"), "x"},
		{"missing child", n.Child("front") == nil, true},
		{"int read as children", n.Children("height") == nil, true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if got := n.Ints("height", []int{9}); len(got) != 1 || got[0] != 9 {
		t.Errorf("scalar read as array should return default, got %v", got)
	}
}

func TestArrayKindIsChecked(t *testing.T) {
	n := New()
	n.SetInts("counts", []int{1, 2, 3})
	if got := n.Floats("counts", nil); got != nil {
		t.Errorf("int array read as floats = %v, want default", got)
	}
	if got := n.Ints("counts", nil); len(got) != 3 {
		t.Errorf("Ints = %v, want 3 elements", got)
	}
}

// ---------------------------------------------------------------------------
// Dirty propagation
// ---------------------------------------------------------------------------

func TestFlagChangedPropagatesToAncestors(t *testing.T) {
	root := New()
	mid := New()
	leaf := New()
	root.SetChild("mid", mid)
	mid.SetChild("leaf", leaf)
	root.FlagUnchanged()

	leaf.FlagChanged()

	if !leaf.HasChanged() || !mid.HasChanged() || !root.HasChanged() {
		t.Errorf("dirty = leaf %v mid %v root %v, want all true",
			leaf.HasChanged(), mid.HasChanged(), root.HasChanged())
	}
}

func TestFlagUnchangedClearsDescendantsOnly(t *testing.T) {
	root := New()
	mid := New()
	leaf := New()
	arr := []*Node{New(), New()}
	root.SetChild("mid", mid)
	mid.SetChild("leaf", leaf)
	mid.SetChildren("sides", arr)
	leaf.FlagChanged()
	arr[1].FlagChanged()

	mid.FlagUnchanged()

	if mid.HasChanged() || leaf.HasChanged() || arr[1].HasChanged() {
		t.Error("FlagUnchanged should clear the node and all descendants")
	}
	if !root.HasChanged() {
		t.Error("FlagUnchanged must not clear ancestors")
	}
}

func TestSetMarksDirtyOnlyWhenAsked(t *testing.T) {
	n := New()
	n.Set("quiet", OfInt(1), false)
	if n.HasChanged() {
		t.Error("Set with markDirty=false should not flag the node")
	}
	n.Set("loud", OfInt(1), true)
	if !n.HasChanged() {
		t.Error("Set with markDirty=true should flag the node")
	}
}

func TestSetDirtyChildPropagatesUpward(t *testing.T) {
	root := New()
	c := New()
	c.FlagChanged()
	root.Set("c", OfNode(c), false)
	if !root.HasChanged() {
		t.Error("attaching a dirty child should flag the parent")
	}
}

// ---------------------------------------------------------------------------
// Parent links
// ---------------------------------------------------------------------------

func TestSetChildRelinks(t *testing.T) {
	a := New()
	b := New()
	c := New()
	a.SetChild("x", c)
	if c.Parent() != a {
		t.Fatal("child parent should be a")
	}

	b.SetChild("y", c)
	if c.Parent() != b {
		t.Error("child should move to b")
	}
	if a.Child("x") != nil {
		t.Error("a should no longer reference the moved child")
	}

	old := b.Child("y")
	b.SetChild("y", New())
	if old.Parent() != nil {
		t.Error("replaced child should be unlinked")
	}
}

func TestMovingChildDirtiesFormerAncestors(t *testing.T) {
	root := New()
	a := New()
	root.SetChild("a", a)
	c := New()
	a.SetChild("x", c)
	root.FlagUnchanged()

	b := New()
	b.SetChild("y", c)
	if !a.HasChanged() || !root.HasChanged() {
		t.Error("losing a child should flag the old parent and its ancestors")
	}
	if !b.HasChanged() {
		t.Error("new parent should be changed")
	}
}

func TestSetChildRejectsCycles(t *testing.T) {
	root := New()
	child := New()
	root.SetChild("c", child)
	child.SetChild("loop", root)

	stored := child.Child("loop")
	if stored == root {
		t.Fatal("storing an ancestor must not create a cycle")
	}
	if root.Parent() != nil {
		t.Error("root should keep no parent")
	}
	stored.FlagChanged() // must terminate
}

func TestDetach(t *testing.T) {
	p := New()
	c := New()
	p.SetChildren("list", []*Node{New(), c})
	p.FlagUnchanged()

	c.Detach()

	if c.Parent() != nil {
		t.Error("detached node should have no parent")
	}
	if got := len(p.Children("list")); got != 1 {
		t.Errorf("parent array has %d entries, want 1", got)
	}
	if !p.HasChanged() {
		t.Error("detaching should flag the parent")
	}
}

// ---------------------------------------------------------------------------
// Clone / Equal
// ---------------------------------------------------------------------------

func TestCloneIsDeepAndIndependent(t *testing.T) {
	src := New()
	front := New()
	front.SetFloat("height", 10)
	src.SetChild("front", front)
	src.SetChildren("sides", []*Node{New()})
	src.FlagUnchanged()
	front.FlagChanged()

	cp := src.Clone()

	if !cp.Equal(src) {
		t.Fatal("clone should equal source")
	}
	if cp.Parent() != nil {
		t.Error("clone root should have no parent")
	}
	cf := cp.Child("front")
	if cf == front {
		t.Fatal("clone shares child with source")
	}
	if cf.Parent() != cp {
		t.Error("cloned child should point at the clone")
	}
	if !cf.HasChanged() || !cp.HasChanged() {
		t.Error("clone should preserve dirty flags")
	}
	if cp.Children("sides")[0].Parent() != cp {
		t.Error("cloned array child should point at the clone")
	}

	cf.SetFloat("height", 20)
	if front.Float("height", 0) != 10 {
		t.Error("mutating the clone changed the source")
	}
	if cp.Equal(src) {
		t.Error("clone should differ after mutation")
	}
}

func TestEqualIgnoresDirtyFlags(t *testing.T) {
	a := New()
	b := New()
	a.SetInt("n", 1)
	b.SetInt("n", 1)
	b.FlagUnchanged()
	if !a.Equal(b) {
		t.Error("nodes with same content should be equal regardless of dirty state")
	}
	b.SetInt("m", 2)
	if a.Equal(b) {
		t.Error("different key sets should not be equal")
	}
}

func TestFromTemplate(t *testing.T) {
	tmpl := New()
	tmpl.SetFloat("height", 9)
	tmpl.FlagUnchanged()

	n := FromTemplate(tmpl)
	if !n.HasChanged() {
		t.Error("instance from template should start dirty")
	}
	if tmpl.HasChanged() {
		t.Error("template should stay clean")
	}
	n.SetFloat("height", 1)
	if tmpl.Float("height", 0) != 9 {
		t.Error("instance shares storage with template")
	}
}

func TestReplaceWithKeepsParent(t *testing.T) {
	p := New()
	n := New()
	p.SetChild("n", n)
	p.FlagUnchanged()

	src := New()
	src.SetStr("texture", "brick")
	n.ReplaceWith(src)

	if n.Parent() != p {
		t.Error("ReplaceWith must keep the parent link")
	}
	if n.Str("texture", "") != "brick" {
		t.Error("ReplaceWith did not copy properties")
	}
	if !p.HasChanged() {
		t.Error("ReplaceWith should flag ancestors")
	}
}

// ---------------------------------------------------------------------------
// Containers
// ---------------------------------------------------------------------------

func TestContainerRoundTrip(t *testing.T) {
	in := New()
	in.SetFloat("height", 4)
	in.SetStr("texture", "glass")

	n := New()
	n.SetInt("unrelated", 1)
	n.SetContainer(in, "roof")

	if !n.Has("roof_height") || !n.Has("roof_texture") {
		t.Fatalf("keys = %v, want prefixed entries", n.Keys())
	}
	out := n.Container("roof")
	if !out.Equal(in) {
		t.Errorf("Container = %v, want %v", out.Keys(), in.Keys())
	}
	if got := n.Container("none"); got.Len() != 0 {
		t.Errorf("missing prefix yields %d keys, want 0", got.Len())
	}
}
