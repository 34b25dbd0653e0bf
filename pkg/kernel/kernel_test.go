package kernel

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("nil mesh", func(t *testing.T) {
		var m *Mesh
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for nil mesh, want true")
		}
	})
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshAppendOffsetsIndices(t *testing.T) {
	a := &Mesh{}
	a.AddVertex(v3.Vec{}, v3.Vec{Y: 1}, 0, 0)
	a.AddVertex(v3.Vec{X: 1}, v3.Vec{Y: 1}, 1, 0)
	a.AddVertex(v3.Vec{Z: 1}, v3.Vec{Y: 1}, 0, 1)
	a.AddTriangle(0, 1, 2)

	b := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 0, 1},
		Normals:  []float32{0, 1, 0, 0, 1, 0, 0, 1, 0},
		Indices:  []uint32{0, 2, 1},
	}
	a.Append(b)

	if a.VertexCount() != 6 || a.TriangleCount() != 2 {
		t.Fatalf("merged counts = %d verts, %d tris; want 6, 2", a.VertexCount(), a.TriangleCount())
	}
	if got := a.Indices[3:]; got[0] != 3 || got[1] != 5 || got[2] != 4 {
		t.Errorf("appended indices = %v, want [3 5 4]", got)
	}
	if len(a.UVs) != 2*a.VertexCount() {
		t.Errorf("uv array length %d, want %d", len(a.UVs), 2*a.VertexCount())
	}

	a.Append(nil)
	a.Append(&Mesh{})
	if a.VertexCount() != 6 {
		t.Error("appending empty meshes should be a no-op")
	}
}

// --- WallBuilder ---

func TestWallBuilderQuadPerSegment(t *testing.T) {
	w := NewWallBuilder()
	m, err := w.BuildFacade(FacadeRequest{
		Name:   "b",
		Side:   SideFront,
		Spline: []v3.Vec{{X: 0}, {X: 10}, {X: 10, Z: 10}},
		Height: 12,
	})
	if err != nil {
		t.Fatalf("BuildFacade: %v", err)
	}
	if m.TriangleCount() != 4 || m.VertexCount() != 8 {
		t.Errorf("got %d tris, %d verts; want 4, 8", m.TriangleCount(), m.VertexCount())
	}
	maxY := float32(math.Inf(-1))
	for i := 1; i < len(m.Vertices); i += 3 {
		if m.Vertices[i] > maxY {
			maxY = m.Vertices[i]
		}
	}
	if maxY != 12 {
		t.Errorf("wall top = %f, want 12", maxY)
	}
	// First segment runs along +X, so the face points along -Z.
	if m.Normals[2] != -1 {
		t.Errorf("first face normal z = %f, want -1", m.Normals[2])
	}
}

func TestWallBuilderWindingMatchesNormal(t *testing.T) {
	m, err := NewWallBuilder().BuildFacade(FacadeRequest{
		Spline: []v3.Vec{{X: 0}, {X: 4}},
		Height: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	vert := func(i uint32) v3.Vec {
		return v3.Vec{X: float64(m.Vertices[3*i]), Y: float64(m.Vertices[3*i+1]), Z: float64(m.Vertices[3*i+2])}
	}
	for tri := 0; tri < m.TriangleCount(); tri++ {
		a, b, c := vert(m.Indices[3*tri]), vert(m.Indices[3*tri+1]), vert(m.Indices[3*tri+2])
		face := b.Sub(a).Cross(c.Sub(a))
		n := v3.Vec{X: float64(m.Normals[0]), Y: float64(m.Normals[1]), Z: float64(m.Normals[2])}
		if face.Dot(n) <= 0 {
			t.Errorf("triangle %d winds against its normal", tri)
		}
	}
}

func TestWallBuilderRejectsBadInput(t *testing.T) {
	w := NewWallBuilder()
	if _, err := w.BuildFacade(FacadeRequest{Spline: []v3.Vec{{}}}); err == nil {
		t.Error("expected error for single-point spline")
	}
	if _, err := w.BuildFacade(FacadeRequest{Spline: []v3.Vec{{}, {X: 1}}, Height: math.NaN()}); err == nil {
		t.Error("expected error for NaN height")
	}
}

func TestSideString(t *testing.T) {
	want := []string{"front", "left", "right", "back"}
	for i, s := range Sides {
		if s.String() != want[i] {
			t.Errorf("Side(%d).String() = %q, want %q", s, s.String(), want[i])
		}
	}
	if Side(42).String() != "unknown" {
		t.Error("out of range side should be unknown")
	}
}

// --- Compile-time interface check with stub builders ---

type stubFacade struct{ calls int }

func (s *stubFacade) BuildFacade(FacadeRequest) (*Mesh, error) {
	s.calls++
	return &Mesh{}, nil
}

type stubRoof struct{}

func (stubRoof) BuildRoof(RoofRequest) (*Mesh, error) { return &Mesh{}, nil }

var _ FacadeBuilder = (*stubFacade)(nil)
var _ RoofBuilder = stubRoof{}

func TestBuildersBundle(t *testing.T) {
	f := &stubFacade{}
	b := Builders{Facade: f, Roof: stubRoof{}}
	if _, err := b.Facade.BuildFacade(FacadeRequest{}); err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Errorf("facade calls = %d, want 1", f.calls)
	}
}
