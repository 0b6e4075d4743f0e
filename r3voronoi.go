// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3voronoi

import (
	"errors"
	"fmt"
	"slices"

	"github.com/2dChan/r3voronoi/r3delaunay"
	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
)

const (
	defaultEps    = 1e-12
	defaultJoggle = 1e-9

	// Infinity is the vertex index marking the open end of an unbounded ridge.
	Infinity = -1
)

// Diagram is a Voronoi diagram of sites in R³, the dual of their Delaunay
// tetrahedralization. Vertex i is the circumcenter of tetrahedron i.
type Diagram struct {
	Sites    []r3.Vector
	Vertices []r3.Vector

	// RidgeSites holds the pair of sites separated by each ridge.
	RidgeSites [][2]int
	// RidgeVertices holds the polygon of each ridge in rotation order. Unbounded
	// ridges start with Infinity.
	RidgeVertices [][]int

	CellRidges  []int
	CellOffsets []int
}

type DiagramOptions struct {
	Eps    float64
	Joggle float64
	Seed   int64
}

type DiagramOption func(*DiagramOptions) error

func WithEps(eps float64) DiagramOption {
	return func(o *DiagramOptions) error {
		if eps <= 0 {
			return errors.New("WithEps: eps must be positive")
		}
		o.Eps = eps
		return nil
	}
}

// WithJoggle sets the relative perturbation applied to sites before triangulating.
func WithJoggle(joggle float64) DiagramOption {
	return func(o *DiagramOptions) error {
		if joggle < 0 || joggle >= 1 {
			return errors.New("WithJoggle: joggle must be in [0, 1)")
		}
		o.Joggle = joggle
		return nil
	}
}

func WithSeed(seed int64) DiagramOption {
	return func(o *DiagramOptions) error {
		o.Seed = seed
		return nil
	}
}

func NewDiagram(sites []r3.Vector, setters ...DiagramOption) (*Diagram, error) {
	opts := DiagramOptions{
		Eps:    defaultEps,
		Joggle: defaultJoggle,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}

	dt, err := r3delaunay.NewTriangulation(sites,
		r3delaunay.WithEps(opts.Eps),
		r3delaunay.WithJoggle(opts.Joggle),
		r3delaunay.WithSeed(opts.Seed),
	)
	if err != nil {
		return nil, err
	}

	numTetrahedra := dt.NumTetrahedra()
	vd := &Diagram{
		Sites:       sites,
		Vertices:    make([]r3.Vector, numTetrahedra),
		CellOffsets: make([]int, len(sites)+1),
	}
	for i := range numTetrahedra {
		vd.Vertices[i] = dt.Circumcenter(i)
	}

	// Every Delaunay edge is dual to one ridge.
	seen := make(map[[2]int]struct{}, numTetrahedra*2)
	for tIdx, tet := range dt.Tetrahedra {
		for i := range 3 {
			for j := i + 1; j < 4; j++ {
				a, b := min(tet[i], tet[j]), max(tet[i], tet[j])
				if _, ok := seen[[2]int{a, b}]; ok {
					continue
				}
				seen[[2]int{a, b}] = struct{}{}

				ring, closed := dt.EdgeRing(tIdx, a, b)
				vertices := make([]int, 0, len(ring)+1)
				if !closed {
					vertices = append(vertices, Infinity)
				}
				vertices = append(vertices, ring...)

				vd.RidgeSites = append(vd.RidgeSites, [2]int{a, b})
				vd.RidgeVertices = append(vd.RidgeVertices, vertices)
			}
		}
	}

	for _, rs := range vd.RidgeSites {
		vd.CellOffsets[rs[0]+1]++
		vd.CellOffsets[rs[1]+1]++
	}
	for i := range len(sites) {
		vd.CellOffsets[i+1] += vd.CellOffsets[i]
	}
	vd.CellRidges = make([]int, vd.CellOffsets[len(sites)])
	nxt := make([]int, len(sites))
	copy(nxt, vd.CellOffsets[:len(sites)])
	for rIdx, rs := range vd.RidgeSites {
		for _, s := range rs {
			vd.CellRidges[nxt[s]] = rIdx
			nxt[s]++
		}
	}

	return vd, nil
}

func (vd *Diagram) NumCells() int {
	return len(vd.Sites)
}

func (vd *Diagram) NumRidges() int {
	return len(vd.RidgeSites)
}

// Cell returns the cell at the specified index.
// It returns an error if the index is out of range.
func (vd *Diagram) Cell(i int) (Cell, error) {
	if i < 0 || i >= vd.NumCells() {
		return Cell{}, fmt.Errorf("Cell: index %d out of range [0 %d)", i, vd.NumCells())
	}
	return Cell{idx: i, d: vd}, nil
}

// Ridge returns the ridge at the specified index.
// It returns an error if the index is out of range.
func (vd *Diagram) Ridge(i int) (Ridge, error) {
	if i < 0 || i >= vd.NumRidges() {
		return Ridge{}, fmt.Errorf("Ridge: index %d out of range [0 %d)", i, vd.NumRidges())
	}
	return Ridge{idx: i, d: vd}, nil
}

// HullSites returns the sorted indices of sites on the convex hull. Their cells are unbounded.
func (vd *Diagram) HullSites() []int {
	if len(vd.Sites) < 4 {
		return nil
	}

	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(vd.Sites, true, true, defaultEps)

	hull := slices.Clone(ch.Indices)
	slices.Sort(hull)
	return slices.Compact(hull)
}

// Tessellator computes Voronoi vertices and ridge polygons for a seed set.
type Tessellator struct {
	setters []DiagramOption
}

func NewTessellator(setters ...DiagramOption) *Tessellator {
	return &Tessellator{setters: setters}
}

// Tessellate returns the Voronoi vertices of seeds and the vertex indices of every
// ridge, with Infinity marking unbounded ridges.
func (t *Tessellator) Tessellate(seeds []r3.Vector) ([]r3.Vector, [][]int, error) {
	vd, err := NewDiagram(seeds, t.setters...)
	if err != nil {
		return nil, nil, err
	}
	return vd.Vertices, vd.RidgeVertices, nil
}
