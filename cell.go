// Package r3voronoi implements Voronoi diagrams in R³, built on Delaunay tetrahedralization.

package r3voronoi

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Cell represents a Voronoi cell. It is a view structure for accessing a cell in a Diagram.
// The cell's index corresponds to the index of its site in the Diagram's Sites.
type Cell struct {
	idx int
	d   *Diagram
}

// SiteIndex returns the index of the site in the Diagram's Sites.
func (c Cell) SiteIndex() int {
	return c.idx
}

// Site returns the site point of the cell.
func (c Cell) Site() r3.Vector {
	return c.d.Sites[c.idx]
}

// NumRidges returns the number of ridges bounding the cell.
// This equals the number of neighbors.
func (c Cell) NumRidges() int {
	return c.d.CellOffsets[c.idx+1] - c.d.CellOffsets[c.idx]
}

// RidgeIndices returns the indices of the ridges bounding the cell in the Diagram's ridges.
func (c Cell) RidgeIndices() []int {
	return c.d.CellRidges[c.d.CellOffsets[c.idx]:c.d.CellOffsets[c.idx+1]]
}

// Ridge returns the ridge at the specified index.
// It returns an error if the index is out of range.
func (c Cell) Ridge(i int) (Ridge, error) {
	start := c.d.CellOffsets[c.idx]
	end := c.d.CellOffsets[c.idx+1]
	if i < 0 || i >= end-start {
		return Ridge{}, fmt.Errorf("Ridge: index %d out of range [0 %d)", i, end-start)
	}
	return c.d.Ridge(c.d.CellRidges[start+i])
}

// NeighborIndices returns the indices of the neighboring cells, in the order of RidgeIndices.
func (c Cell) NeighborIndices() []int {
	ridges := c.RidgeIndices()
	neighbors := make([]int, len(ridges))
	for i, r := range ridges {
		rs := c.d.RidgeSites[r]
		neighbors[i] = rs[0]
		if rs[0] == c.idx {
			neighbors[i] = rs[1]
		}
	}
	return neighbors
}

// Bounded reports whether every ridge of the cell is bounded.
// A cell without ridges (a duplicate site) is not bounded.
func (c Cell) Bounded() bool {
	ridges := c.RidgeIndices()
	if len(ridges) == 0 {
		return false
	}
	for _, r := range ridges {
		if !c.d.ridgeBounded(r) {
			return false
		}
	}
	return true
}

// Ridge represents a Voronoi ridge, the polygon separating two neighboring cells.
type Ridge struct {
	idx int
	d   *Diagram
}

// Index returns the index of the ridge in the Diagram.
func (r Ridge) Index() int {
	return r.idx
}

// SiteIndices returns the indices of the two sites the ridge separates.
func (r Ridge) SiteIndices() [2]int {
	return r.d.RidgeSites[r.idx]
}

// VertexIndices returns the indices of the ridge's vertices in the Diagram's Vertices,
// in rotation order. Unbounded ridges start with Infinity.
func (r Ridge) VertexIndices() []int {
	return r.d.RidgeVertices[r.idx]
}

// Bounded reports whether the ridge is a closed polygon.
func (r Ridge) Bounded() bool {
	return r.d.ridgeBounded(r.idx)
}

// Vertex returns the vertex at the specified index.
// It returns an error if the index is out of range or refers to Infinity.
func (r Ridge) Vertex(i int) (r3.Vector, error) {
	vertices := r.d.RidgeVertices[r.idx]
	if i < 0 || i >= len(vertices) {
		return r3.Vector{}, fmt.Errorf("Vertex: index %d out of range [0 %d)", i, len(vertices))
	}
	if vertices[i] == Infinity {
		return r3.Vector{}, fmt.Errorf("Vertex: index %d is at infinity", i)
	}
	return r.d.Vertices[vertices[i]], nil
}

func (vd *Diagram) ridgeBounded(r int) bool {
	for _, v := range vd.RidgeVertices[r] {
		if v < 0 {
			return false
		}
	}
	return true
}
