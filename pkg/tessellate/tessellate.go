// Package tessellate combines the facade and roof meshes of a building line
// into the single mesh the line displays.
package tessellate

import (
	"github.com/chazu/citybuilder/pkg/kernel"
)

// Merge concatenates meshes into one mesh called name. Empty and nil
// meshes are skipped. The result takes the texture of the first non-empty
// input. Merging nothing yields an empty, non-nil mesh.
func Merge(name string, meshes ...*kernel.Mesh) *kernel.Mesh {
	res := &kernel.Mesh{Name: name}
	total, tris := 0, 0
	for _, m := range meshes {
		if !m.IsEmpty() {
			total += m.VertexCount()
			tris += m.TriangleCount()
		}
	}
	if total == 0 {
		return res
	}
	res.Vertices = make([]float32, 0, total*3)
	res.Normals = make([]float32, 0, total*3)
	res.UVs = make([]float32, 0, total*2)
	res.Indices = make([]uint32, 0, tris*3)
	for _, m := range meshes {
		if m.IsEmpty() {
			continue
		}
		if res.Texture == "" {
			res.Texture = m.Texture
		}
		res.Append(m)
	}
	return res
}

// Stats summarizes a set of meshes.
type Stats struct {
	Meshes    int
	Vertices  int
	Triangles int
}

// Count returns the totals over the non-empty meshes.
func Count(meshes ...*kernel.Mesh) Stats {
	var s Stats
	for _, m := range meshes {
		if m.IsEmpty() {
			continue
		}
		s.Meshes++
		s.Vertices += m.VertexCount()
		s.Triangles += m.TriangleCount()
	}
	return s
}
