// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package polymesh implements a polygon mesh stored as points plus a flattened face
// buffer, where every face is prefixed by its vertex count.

package polymesh

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/golang/geo/r3"
)

var ErrInvalidFaces = errors.New("polymesh: invalid face buffer")

// Mesh is a polygon mesh. Faces is a flattened buffer [n0, i0, i1, ..., n1, j0, ...].
// FaceData holds per-face attributes, each with one entry per face.
type Mesh struct {
	Points   []r3.Vector
	Faces    []int
	FaceData map[string][][3]float64

	offsets []int
}

// NewMesh builds a mesh from points and a flattened face buffer. Both are copied.
// Every face needs at least three vertices, all referencing existing points.
func NewMesh(points []r3.Vector, faces []int) (*Mesh, error) {
	offsets, err := faceOffsets(faces, len(points))
	if err != nil {
		return nil, err
	}
	return &Mesh{
		Points:   slices.Clone(points),
		Faces:    slices.Clone(faces),
		FaceData: make(map[string][][3]float64),
		offsets:  offsets,
	}, nil
}

func faceOffsets(faces []int, numPoints int) ([]int, error) {
	var offsets []int
	for i := 0; i < len(faces); {
		n := faces[i]
		if n < 3 {
			return nil, fmt.Errorf("%w: face at %d has %d vertices", ErrInvalidFaces, i, n)
		}
		if i+1+n > len(faces) {
			return nil, fmt.Errorf("%w: face at %d overruns buffer", ErrInvalidFaces, i)
		}
		for _, v := range faces[i+1 : i+1+n] {
			if v < 0 || v >= numPoints {
				return nil, fmt.Errorf("%w: face at %d references point %d of %d", ErrInvalidFaces,
					i, v, numPoints)
			}
		}
		offsets = append(offsets, i)
		i += 1 + n
	}
	return offsets, nil
}

func (m *Mesh) NumPoints() int {
	return len(m.Points)
}

func (m *Mesh) NumFaces() int {
	return len(m.offsets)
}

// Face returns the point indices of face i. The slice aliases the mesh buffer.
func (m *Mesh) Face(i int) []int {
	if i < 0 || i >= len(m.offsets) {
		panic("Face: index out of range")
	}
	start := m.offsets[i]
	return m.Faces[start+1 : start+1+m.Faces[start]]
}

// FaceCenter returns the mean of the points of face i.
func (m *Mesh) FaceCenter(i int) r3.Vector {
	var c r3.Vector
	face := m.Face(i)
	for _, v := range face {
		c = c.Add(m.Points[v])
	}
	return c.Mul(1 / float64(len(face)))
}

// FaceNormal returns the unit normal of face i (Newell's method), or the zero vector
// for degenerate faces.
func (m *Mesh) FaceNormal(i int) r3.Vector {
	var n r3.Vector
	face := m.Face(i)
	for k, v := range face {
		a := m.Points[v]
		b := m.Points[face[(k+1)%len(face)]]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	if n.Norm2() == 0 {
		return n
	}
	return n.Normalize()
}

// IsTriangular reports whether every face is a triangle.
func (m *Mesh) IsTriangular() bool {
	for _, start := range m.offsets {
		if m.Faces[start] != 3 {
			return false
		}
	}
	return true
}

// Bounds returns the corners of the axis-aligned bounding box of the points.
func (m *Mesh) Bounds() (lo, hi r3.Vector) {
	if len(m.Points) == 0 {
		return lo, hi
	}
	lo, hi = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		lo = r3.Vector{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vector{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return lo, hi
}

// SetFaceData attaches a per-face attribute. values must have one entry per face.
func (m *Mesh) SetFaceData(name string, values [][3]float64) error {
	if len(values) != m.NumFaces() {
		return fmt.Errorf("polymesh: face data %q has %d values, want %d", name, len(values),
			m.NumFaces())
	}
	if m.FaceData == nil {
		m.FaceData = make(map[string][][3]float64)
	}
	m.FaceData[name] = values
	return nil
}

// Triangulate returns a mesh whose polygons are split into triangle fans.
// Face data is repeated for every triangle of a polygon.
func (m *Mesh) Triangulate() *Mesh {
	var faces []int
	var parents []int
	for i := range m.NumFaces() {
		face := m.Face(i)
		for k := 1; k+1 < len(face); k++ {
			faces = append(faces, 3, face[0], face[k], face[k+1])
			parents = append(parents, i)
		}
	}

	out := &Mesh{
		Points:   slices.Clone(m.Points),
		Faces:    faces,
		FaceData: make(map[string][][3]float64, len(m.FaceData)),
	}
	out.offsets, _ = faceOffsets(faces, len(out.Points))
	for name, values := range m.FaceData {
		out.FaceData[name] = pick(values, parents)
	}
	return out
}

// ExtractFaces returns a mesh holding only the listed faces and the points they use.
func (m *Mesh) ExtractFaces(ids []int) *Mesh {
	remap := make(map[int]int)
	out := &Mesh{FaceData: make(map[string][][3]float64, len(m.FaceData))}
	for _, f := range ids {
		face := m.Face(f)
		out.Faces = append(out.Faces, len(face))
		for _, v := range face {
			nv, ok := remap[v]
			if !ok {
				nv = len(out.Points)
				remap[v] = nv
				out.Points = append(out.Points, m.Points[v])
			}
			out.Faces = append(out.Faces, nv)
		}
	}
	out.offsets, _ = faceOffsets(out.Faces, len(out.Points))
	for name, values := range m.FaceData {
		out.FaceData[name] = pick(values, ids)
	}
	return out
}

// FromTriangles welds a triangle soup into an indexed mesh. Corners closer than tol
// along every axis are merged; triangles collapsing to fewer than three points are dropped.
func FromTriangles(tris [][3]r3.Vector, tol float64) *Mesh {
	index := make(map[[3]int64]int)
	out := &Mesh{FaceData: make(map[string][][3]float64)}
	key := func(p r3.Vector) [3]int64 {
		if tol <= 0 {
			return [3]int64{int64(math.Float64bits(p.X)), int64(math.Float64bits(p.Y)),
				int64(math.Float64bits(p.Z))}
		}
		return [3]int64{int64(math.Round(p.X / tol)), int64(math.Round(p.Y / tol)),
			int64(math.Round(p.Z / tol))}
	}

	for _, tri := range tris {
		var ids [3]int
		for k, p := range tri {
			kp := key(p)
			id, ok := index[kp]
			if !ok {
				id = len(out.Points)
				index[kp] = id
				out.Points = append(out.Points, p)
			}
			ids[k] = id
		}
		if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
			continue
		}
		out.Faces = append(out.Faces, 3, ids[0], ids[1], ids[2])
	}
	out.offsets, _ = faceOffsets(out.Faces, len(out.Points))
	return out
}

// Box returns the closed triangulated surface of the box [lo, hi] with outward facing
// triangles.
func Box(lo, hi r3.Vector) *Mesh {
	points := make([]r3.Vector, 8)
	for i := range points {
		p := lo
		if i&1 != 0 {
			p.X = hi.X
		}
		if i&2 != 0 {
			p.Y = hi.Y
		}
		if i&4 != 0 {
			p.Z = hi.Z
		}
		points[i] = p
	}
	faces := []int{
		3, 0, 2, 3, 3, 0, 3, 1, // -z
		3, 4, 5, 7, 3, 4, 7, 6, // +z
		3, 0, 1, 5, 3, 0, 5, 4, // -y
		3, 2, 6, 7, 3, 2, 7, 3, // +y
		3, 0, 4, 6, 3, 0, 6, 2, // -x
		3, 1, 3, 7, 3, 1, 7, 5, // +x
	}
	m, err := NewMesh(points, faces)
	if err != nil {
		panic(err)
	}
	return m
}

func pick(values [][3]float64, ids []int) [][3]float64 {
	out := make([][3]float64, len(ids))
	for i, id := range ids {
		out[i] = values[id]
	}
	return out
}
