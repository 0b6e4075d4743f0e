// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package polymesh

import (
	"errors"
	"math"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/unixpickle/model3d/model3d"
)

// SignedDistancer reports the signed distance to a closed surface, positive inside.
type SignedDistancer interface {
	SignedDistance(p r3.Vector) float64
}

// ClipScalar keeps the part of m where the linearly interpolated point values are
// non-negative. Polygons crossing zero are cut at the interpolated crossing, and cut
// points are shared between neighboring faces so connectivity survives. NaN counts as
// outside.
func ClipScalar(m *Mesh, values []float64) *Mesh {
	values = slices.Clone(values)
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = -math.MaxFloat64
		}
	}

	out := &Mesh{FaceData: make(map[string][][3]float64, len(m.FaceData))}
	kept := make(map[int]int)
	cuts := make(map[[2]int]int)
	var parents []int

	inside := func(v int) bool {
		return values[v] >= 0
	}
	keep := func(v int) int {
		nv, ok := kept[v]
		if !ok {
			nv = len(out.Points)
			kept[v] = nv
			out.Points = append(out.Points, m.Points[v])
		}
		return nv
	}
	cut := func(a, b int) int {
		key := [2]int{min(a, b), max(a, b)}
		nv, ok := cuts[key]
		if !ok {
			// Step from the inside end; the outside end may be far away.
			in, ex := key[0], key[1]
			if !inside(in) {
				in, ex = ex, in
			}
			t := values[in] / (values[in] - values[ex])
			p := m.Points[in].Add(m.Points[ex].Sub(m.Points[in]).Mul(t))
			nv = len(out.Points)
			cuts[key] = nv
			out.Points = append(out.Points, p)
		}
		return nv
	}

	var poly []int
	for i := range m.NumFaces() {
		face := m.Face(i)
		poly = poly[:0]
		for k, a := range face {
			b := face[(k+1)%len(face)]
			if inside(a) {
				poly = append(poly, keep(a))
			}
			if inside(a) != inside(b) {
				poly = append(poly, cut(a, b))
			}
		}
		if len(poly) < 3 {
			continue
		}
		out.Faces = append(out.Faces, len(poly))
		out.Faces = append(out.Faces, poly...)
		parents = append(parents, i)
	}

	out.offsets, _ = faceOffsets(out.Faces, len(out.Points))
	for name, data := range m.FaceData {
		out.FaceData[name] = pick(data, parents)
	}
	return out
}

// Clip keeps the part of m inside the volume described by sd.
func Clip(m *Mesh, sd SignedDistancer) *Mesh {
	values := make([]float64, len(m.Points))
	for i, p := range m.Points {
		values[i] = sd.SignedDistance(p)
	}
	return ClipScalar(m, values)
}

type sdf interface {
	SDF(c model3d.Coord3D) float64
}

// SurfaceDistance is the signed distance to a closed triangle surface.
type SurfaceDistance struct {
	sdf sdf
}

// NewSurfaceDistance builds a signed distance function for the surface of m.
// Non-triangular faces are triangulated first.
func NewSurfaceDistance(m *Mesh) (*SurfaceDistance, error) {
	if m.NumFaces() == 0 {
		return nil, errors.New("polymesh: surface has no faces")
	}
	return &SurfaceDistance{sdf: model3d.MeshToSDF(ToModel3D(m))}, nil
}

func (s *SurfaceDistance) SignedDistance(p r3.Vector) float64 {
	return s.sdf.SDF(model3d.Coord3D{X: p.X, Y: p.Y, Z: p.Z})
}

// ToModel3D converts m to a model3d triangle mesh.
func ToModel3D(m *Mesh) *model3d.Mesh {
	if !m.IsTriangular() {
		m = m.Triangulate()
	}
	out := model3d.NewMesh()
	for i := range m.NumFaces() {
		f := m.Face(i)
		out.Add(&model3d.Triangle{coord(m.Points[f[0]]), coord(m.Points[f[1]]), coord(m.Points[f[2]])})
	}
	return out
}

// FromModel3D welds the triangles of a model3d mesh into a Mesh.
func FromModel3D(m *model3d.Mesh) *Mesh {
	var tris [][3]r3.Vector
	m.Iterate(func(t *model3d.Triangle) {
		tris = append(tris, [3]r3.Vector{vector(t[0]), vector(t[1]), vector(t[2])})
	})
	return FromTriangles(tris, 0)
}

func coord(p r3.Vector) model3d.Coord3D {
	return model3d.Coord3D{X: p.X, Y: p.Y, Z: p.Z}
}

func vector(c model3d.Coord3D) r3.Vector {
	return r3.Vector{X: c.X, Y: c.Y, Z: c.Z}
}

// SurfaceClipper clips meshes to the volume enclosed by a triangle surface.
type SurfaceClipper struct{}

// Clip keeps the part of m inside surface.
func (SurfaceClipper) Clip(m, surface *Mesh) (*Mesh, error) {
	sd, err := NewSurfaceDistance(surface)
	if err != nil {
		return nil, err
	}
	return Clip(m, sd), nil
}
