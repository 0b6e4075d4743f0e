// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package r3delaunay implements Delaunay tetrahedralization of points in R³.
//
// Points are inserted incrementally (Bowyer-Watson). The hull is closed by
// ghost tetrahedra sharing a single vertex at infinity, so no bounding
// super-simplex is needed and every input hull face is kept.
package r3delaunay

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
)

const (
	defaultEps    = 1e-12
	defaultJoggle = 1e-9
	maxJoggle     = 1e-3

	// maxJoggles bounds the attempts of NewTriangulation; each retry joggles ten
	// times harder.
	maxJoggles = 6

	// infinite is the vertex index of the point at infinity in ghost tetrahedra.
	infinite = -1
)

var (
	ErrInsufficientVertices = errors.New(
		"r3delaunay: insufficient vertices for triangulation (minimum 4 distinct required)")
	ErrDegenerateInput = errors.New("r3delaunay: vertices are coplanar")
)

type Triangulation struct {
	Vertices []r3.Vector
	// NOTE: Positively oriented, see Orient.
	Tetrahedra [][4]int
	// Neighbors[t][i] is the tetrahedron sharing the face opposite Tetrahedra[t][i],
	// or -1 if that face lies on the convex hull.
	Neighbors                  [][4]int
	IncidentTetrahedronIndices []int
	IncidentTetrahedronOffsets []int

	// points are the joggled coordinates the triangulation was computed on.
	points []r3.Vector
}

func (dt *Triangulation) NumTetrahedra() int {
	return len(dt.Tetrahedra)
}

func (dt *Triangulation) IncidentTetrahedra(vIdx int) []int {
	if vIdx < 0 || vIdx+1 >= len(dt.IncidentTetrahedronOffsets) {
		panic("IncidentTetrahedra: vIdx out of range")
	}
	start := dt.IncidentTetrahedronOffsets[vIdx]
	end := dt.IncidentTetrahedronOffsets[vIdx+1]
	return dt.IncidentTetrahedronIndices[start:end]
}

func (dt *Triangulation) TetrahedronVertices(tIdx int) (r3.Vector, r3.Vector, r3.Vector, r3.Vector) {
	if tIdx < 0 || tIdx >= len(dt.Tetrahedra) {
		panic("TetrahedronVertices: tIdx out of bounds")
	}
	t := dt.Tetrahedra[tIdx]
	return dt.Vertices[t[0]], dt.Vertices[t[1]], dt.Vertices[t[2]], dt.Vertices[t[3]]
}

// Circumcenter returns the center of the sphere through the vertices of tetrahedron tIdx.
func (dt *Triangulation) Circumcenter(tIdx int) r3.Vector {
	if tIdx < 0 || tIdx >= len(dt.Tetrahedra) {
		panic("Circumcenter: tIdx out of bounds")
	}
	t := dt.Tetrahedra[tIdx]
	cc, _ := circumsphere(dt.points[t[0]], dt.points[t[1]], dt.points[t[2]], dt.points[t[3]])
	return cc
}

// Volume returns the volume of tetrahedron tIdx.
func (dt *Triangulation) Volume(tIdx int) float64 {
	if tIdx < 0 || tIdx >= len(dt.Tetrahedra) {
		panic("Volume: tIdx out of bounds")
	}
	t := dt.Tetrahedra[tIdx]
	return Orient(dt.points[t[0]], dt.points[t[1]], dt.points[t[2]], dt.points[t[3]]) / 6
}

// EdgeRing returns the tetrahedra around the edge (a, b) of tetrahedron tIdx, in rotation
// order starting at tIdx. closed is false when the edge lies on the convex hull; the ring
// then runs from one hull face to the other.
func (dt *Triangulation) EdgeRing(tIdx, a, b int) (ring []int, closed bool) {
	if tIdx < 0 || tIdx >= len(dt.Tetrahedra) {
		panic("EdgeRing: tIdx out of bounds")
	}
	c, d := otherVertices(dt.Tetrahedra[tIdx], a, b)

	ring = append(ring, tIdx)
	if dt.walkEdge(tIdx, a, b, c, d, &ring) {
		return ring, true
	}

	var back []int
	dt.walkEdge(tIdx, a, b, d, c, &back)
	slices.Reverse(back)
	return append(back, ring...), false
}

// walkEdge rotates around edge (a, b) crossing the face opposite c, appending visited
// tetrahedra to ring. It reports whether the walk returned to start.
func (dt *Triangulation) walkEdge(start, a, b, c, d int, ring *[]int) bool {
	cur := start
	for range len(dt.Tetrahedra) {
		next := dt.Neighbors[cur][slot(dt.Tetrahedra[cur], c)]
		if next == start {
			return true
		}
		if next < 0 {
			return false
		}
		_, nd := otherVertices(dt.Tetrahedra[next], a, b)
		if nd == d {
			nd, _ = otherVertices(dt.Tetrahedra[next], a, b)
		}
		c, d = d, nd
		cur = next
		*ring = append(*ring, cur)
	}
	panic("walkEdge: inconsistent neighbors")
}

type TriangulationOptions struct {
	Eps    float64
	Joggle float64
	Seed   int64
}

type TriangulationOption func(*TriangulationOptions) error

func WithEps(eps float64) TriangulationOption {
	return func(o *TriangulationOptions) error {
		if eps <= 0 {
			return errors.New("WithEps: eps must be positive")
		}
		o.Eps = eps
		return nil
	}
}

// WithJoggle sets the relative magnitude of the random perturbation applied to the
// vertices before triangulating. Zero disables it.
func WithJoggle(joggle float64) TriangulationOption {
	return func(o *TriangulationOptions) error {
		if joggle < 0 || joggle >= 1 {
			return errors.New("WithJoggle: joggle must be in [0, 1)")
		}
		o.Joggle = joggle
		return nil
	}
}

func WithSeed(seed int64) TriangulationOption {
	return func(o *TriangulationOptions) error {
		o.Seed = seed
		return nil
	}
}

// NewTriangulation computes the Delaunay tetrahedralization of vertices.
// Duplicate vertices are kept in Vertices but belong to no tetrahedron.
//
// Predicates are exact on the joggled coordinates. The result is checked and
// recomputed with a larger joggle if it is not a valid tetrahedralization.
func NewTriangulation(vertices []r3.Vector, setters ...TriangulationOption) (*Triangulation, error) {
	opts := TriangulationOptions{
		Eps:    defaultEps,
		Joggle: defaultJoggle,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}

	unique := uniqueIndices(vertices)
	if len(unique) < 4 {
		return nil, ErrInsufficientVertices
	}

	lo, hi := bounds(vertices)
	diag := hi.Sub(lo).Norm()
	if HullVolume(vertices, opts.Eps) <= opts.Eps*diag*diag*diag {
		return nil, ErrDegenerateInput
	}

	scale := opts.Joggle
	for attempt := range maxJoggles {
		b := newBuilder(vertices, diag, scale, opts.Seed+int64(attempt), opts.Eps)
		err := b.run(unique)
		switch {
		case errors.Is(err, errBrokenCavity):
		case err != nil:
			return nil, err
		case b.valid(unique):
			return b.triangulation(vertices), nil
		}
		scale = min(max(10*scale, defaultJoggle), maxJoggle)
	}
	return nil, fmt.Errorf("%w: no valid tetrahedralization after %d joggles", ErrDegenerateInput,
		maxJoggles)
}

// HullVolume returns the volume enclosed by the convex hull of vertices.
func HullVolume(vertices []r3.Vector, eps float64) float64 {
	if len(vertices) < 4 {
		return 0
	}

	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(vertices, true, true, eps)

	var o r3.Vector
	for _, v := range vertices {
		o = o.Add(v)
	}
	o = o.Mul(1 / float64(len(vertices)))

	var vol float64
	for i := 0; i+2 < len(ch.Indices); i += 3 {
		a := vertices[ch.Indices[i]].Sub(o)
		b := vertices[ch.Indices[i+1]].Sub(o)
		c := vertices[ch.Indices[i+2]].Sub(o)
		vol += a.Dot(b.Cross(c))
	}
	return math.Abs(vol) / 6
}

// Orient returns six times the signed volume of the tetrahedron (a, b, c, d).
// It is positive when d lies on the side of plane abc that (b-a)×(c-a) points to.
func Orient(a, b, c, d r3.Vector) float64 {
	u := b.Sub(a)
	v := c.Sub(a)
	w := d.Sub(a)
	return u.Dot(v.Cross(w))
}

func circumsphere(a, b, c, d r3.Vector) (r3.Vector, float64) {
	u := b.Sub(a)
	v := c.Sub(a)
	w := d.Sub(a)

	den := 2 * u.Dot(v.Cross(w))
	num := v.Cross(w).Mul(u.Norm2()).
		Add(w.Cross(u).Mul(v.Norm2())).
		Add(u.Cross(v).Mul(w.Norm2()))

	off := num.Mul(1 / den)
	return a.Add(off), off.Norm2()
}

func slot(t [4]int, v int) int {
	for i, tv := range t {
		if tv == v {
			return i
		}
	}
	panic(fmt.Sprintf("slot: vertex %d not in tetrahedron %v", v, t))
}

// otherVertices returns the two vertices of t other than a and b, in slot order.
func otherVertices(t [4]int, a, b int) (int, int) {
	var rest [2]int
	n := 0
	for _, v := range t {
		if v != a && v != b {
			if n == 2 {
				panic(fmt.Sprintf("otherVertices: edge (%d, %d) not in tetrahedron %v", a, b, t))
			}
			rest[n] = v
			n++
		}
	}
	if n != 2 {
		panic(fmt.Sprintf("otherVertices: edge (%d, %d) not in tetrahedron %v", a, b, t))
	}
	return rest[0], rest[1]
}

func uniqueIndices(vertices []r3.Vector) []int {
	seen := make(map[r3.Vector]struct{}, len(vertices))
	unique := make([]int, 0, len(vertices))
	for i, v := range vertices {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, i)
	}
	return unique
}

func bounds(vertices []r3.Vector) (lo, hi r3.Vector) {
	if len(vertices) == 0 {
		return lo, hi
	}
	lo, hi = vertices[0], vertices[0]
	for _, v := range vertices[1:] {
		lo = r3.Vector{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vector{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return lo, hi
}

func joggle(vertices []r3.Vector, scale float64, seed int64) []r3.Vector {
	points := make([]r3.Vector, len(vertices))
	copy(points, vertices)
	if scale == 0 {
		return points
	}

	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	for i := range points {
		points[i] = points[i].Add(r3.Vector{
			X: (2*random.Float64() - 1) * scale,
			Y: (2*random.Float64() - 1) * scale,
			Z: (2*random.Float64() - 1) * scale,
		})
	}
	return points
}
