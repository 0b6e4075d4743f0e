// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package remesh resamples triangle surfaces uniformly by clustering their points
// into regions of equal area (approximated centroidal Voronoi diagram) and taking
// the dual of the clustering.
package remesh

import (
	"errors"
	"fmt"
	"maps"
	"math/rand"
	"slices"

	"github.com/2dChan/r3voronoi/polymesh"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"
)

const (
	defaultMaxIterations = 100

	// maxSubdivisions bounds how often Remesh refines a surface that is too coarse.
	maxSubdivisions = 8

	unassigned = -1
)

var (
	ErrEmptySurface    = errors.New("remesh: surface has no faces")
	ErrInvalidClusters = errors.New("remesh: invalid number of clusters")
	ErrNotClustered    = errors.New("remesh: surface is not clustered")
)

type ClusteringOptions struct {
	MaxIterations int
	Seed          int64
	Logger        *zap.Logger
}

type ClusteringOption func(*ClusteringOptions) error

// WithMaxIterations bounds the number of point exchange sweeps in Cluster.
func WithMaxIterations(n int) ClusteringOption {
	return func(o *ClusteringOptions) error {
		if n < 0 {
			return errors.New("WithMaxIterations: n must be non-negative")
		}
		o.MaxIterations = n
		return nil
	}
}

// WithSeed sets the seed used to place the initial clusters.
func WithSeed(seed int64) ClusteringOption {
	return func(o *ClusteringOptions) error {
		o.Seed = seed
		return nil
	}
}

func WithLogger(logger *zap.Logger) ClusteringOption {
	return func(o *ClusteringOptions) error {
		if logger == nil {
			return errors.New("WithLogger: logger must not be nil")
		}
		o.Logger = logger
		return nil
	}
}

// Clustering partitions the points of a triangle surface into clusters of similar
// area. Every point carries a third of the area of its incident triangles.
type Clustering struct {
	mesh      *polymesh.Mesh
	weights   []float64
	neighbors [][]int

	labels  []int
	sums    []r3.Vector
	mass    []float64
	members []int

	opts ClusteringOptions
}

// NewClustering prepares m for clustering. Non-triangular faces are triangulated.
func NewClustering(m *polymesh.Mesh, setters ...ClusteringOption) (*Clustering, error) {
	opts := ClusteringOptions{
		MaxIterations: defaultMaxIterations,
		Logger:        zap.NewNop(),
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	if m.NumFaces() == 0 {
		return nil, ErrEmptySurface
	}
	if !m.IsTriangular() {
		m = m.Triangulate()
	}

	c := &Clustering{
		mesh:      m,
		weights:   make([]float64, m.NumPoints()),
		neighbors: make([][]int, m.NumPoints()),
		opts:      opts,
	}
	for i := range m.NumFaces() {
		f := m.Face(i)
		a, b, d := m.Points[f[0]], m.Points[f[1]], m.Points[f[2]]
		area := b.Sub(a).Cross(d.Sub(a)).Norm() / 2
		for k, v := range f {
			c.weights[v] += area / 3
			c.neighbors[v] = append(c.neighbors[v], f[(k+1)%3], f[(k+2)%3])
		}
	}
	for v, nbrs := range c.neighbors {
		slices.Sort(nbrs)
		c.neighbors[v] = slices.Compact(nbrs)
	}
	return c, nil
}

func (c *Clustering) NumPoints() int {
	return c.mesh.NumPoints()
}

// NumClusters returns the number of clusters of the last Cluster call.
func (c *Clustering) NumClusters() int {
	return len(c.sums)
}

// Labels returns the cluster of every point. Points that no cluster could reach are
// labeled -1.
func (c *Clustering) Labels() []int {
	return slices.Clone(c.labels)
}

// Cluster partitions the points into n clusters. Clusters are grown from randomly
// chosen points by breadth-first search over the surface and then refined by moving
// boundary points between neighboring clusters while that lowers the energy.
func (c *Clustering) Cluster(n int) error {
	if n < 1 || n > c.NumPoints() {
		return fmt.Errorf("%w: %d clusters for %d points", ErrInvalidClusters, n, c.NumPoints())
	}

	c.grow(n)
	iterations, moves := 0, 0
	for iterations < c.opts.MaxIterations {
		iterations++
		m := c.sweep()
		moves += m
		if m == 0 {
			break
		}
	}
	c.opts.Logger.Debug("clustered surface",
		zap.Int("points", c.NumPoints()),
		zap.Int("clusters", n),
		zap.Int("iterations", iterations),
		zap.Int("moves", moves))
	return nil
}

func (c *Clustering) grow(n int) {
	//nolint:gosec
	random := rand.New(rand.NewSource(c.opts.Seed))
	c.labels = make([]int, c.NumPoints())
	for i := range c.labels {
		c.labels[i] = unassigned
	}
	c.sums = make([]r3.Vector, n)
	c.mass = make([]float64, n)
	c.members = make([]int, n)

	queue := random.Perm(c.NumPoints())[:n]
	for l, v := range queue {
		c.labels[v] = l
	}
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		for _, u := range c.neighbors[v] {
			if c.labels[u] == unassigned {
				c.labels[u] = c.labels[v]
				queue = append(queue, u)
			}
		}
	}

	for v, l := range c.labels {
		if l != unassigned {
			c.add(v, l)
		}
	}
}

func (c *Clustering) add(v, l int) {
	w := c.weights[v]
	c.sums[l] = c.sums[l].Add(c.mesh.Points[v].Mul(w))
	c.mass[l] += w
	c.members[l]++
}

func (c *Clustering) remove(v, l int) {
	w := c.weights[v]
	c.sums[l] = c.sums[l].Sub(c.mesh.Points[v].Mul(w))
	c.mass[l] -= w
	c.members[l]--
}

// sweep moves every boundary point to the neighboring cluster with the largest
// energy gain and returns the number of moves.
func (c *Clustering) sweep() int {
	moves := 0
	for v, from := range c.labels {
		if from == unassigned || c.members[from] == 1 {
			continue
		}
		w := c.weights[v]
		p := c.mesh.Points[v].Mul(w)
		left := energy(c.sums[from].Sub(p), c.mass[from]-w) - energy(c.sums[from], c.mass[from])

		best, bestGain := from, 0.0
		for _, u := range c.neighbors[v] {
			to := c.labels[u]
			if to == from || to == unassigned {
				continue
			}
			gain := left + energy(c.sums[to].Add(p), c.mass[to]+w) - energy(c.sums[to], c.mass[to])
			if gain > bestGain {
				best, bestGain = to, gain
			}
		}
		if best != from {
			c.remove(v, from)
			c.add(v, best)
			c.labels[v] = best
			moves++
		}
	}
	return moves
}

// energy is the term |S|²/W of a cluster with weighted point sum S and weight W.
// Maximizing the total is equivalent to minimizing the centroidal Voronoi energy.
func energy(sum r3.Vector, mass float64) float64 {
	if mass <= 0 {
		return 0
	}
	return sum.Norm2() / mass
}

// CreateMesh returns the dual of the clustering: one point per cluster at its
// area-weighted centroid, and one triangle for every surface triangle whose corners
// belong to three different clusters. Triangles keep the orientation of the surface.
//
// Where four or more clusters meet the dual may overlap itself or leave a gap. Such
// spots are repaired by dropping triangles that hang off an overfull edge and by
// closing small holes, see repairManifold.
func (c *Clustering) CreateMesh() (*polymesh.Mesh, error) {
	if c.labels == nil {
		return nil, ErrNotClustered
	}

	points := make([]r3.Vector, len(c.sums))
	counts := make([]int, len(c.sums))
	for v, l := range c.labels {
		if l == unassigned {
			continue
		}
		points[l] = points[l].Add(c.mesh.Points[v])
		counts[l]++
	}
	for l := range points {
		if c.mass[l] > 0 {
			points[l] = c.sums[l].Mul(1 / c.mass[l])
		} else {
			points[l] = points[l].Mul(1 / float64(counts[l]))
		}
	}

	seen := make(map[[3]int]bool)
	var tris [][3]int
	for i := range c.mesh.NumFaces() {
		f := c.mesh.Face(i)
		tri := [3]int{c.labels[f[0]], c.labels[f[1]], c.labels[f[2]]}
		if tri[0] == unassigned || tri[1] == unassigned || tri[2] == unassigned ||
			tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			continue
		}
		key := tri
		slices.Sort(key[:])
		if seen[key] {
			continue
		}
		seen[key] = true
		tris = append(tris, tri)
	}

	tris = repairManifold(tris)
	faces := make([]int, 0, 4*len(tris))
	for _, tri := range tris {
		faces = append(faces, 3, tri[0], tri[1], tri[2])
	}
	return polymesh.NewMesh(points, faces)
}

// maxHoleSize is the longest boundary loop repairManifold closes.
const maxHoleSize = 8

// repairManifold drops triangles that have both an edge used by more than two
// triangles and an edge used by only one, then fan fills boundary loops of up to
// maxHoleSize edges. Fill triangles follow the winding of their neighbors.
func repairManifold(tris [][3]int) [][3]int {
	edgeCount := func(tris [][3]int) map[[2]int]int {
		counts := make(map[[2]int]int, 3*len(tris)/2)
		for _, t := range tris {
			for k := range 3 {
				a, b := t[k], t[(k+1)%3]
				counts[[2]int{min(a, b), max(a, b)}]++
			}
		}
		return counts
	}

	for {
		counts := edgeCount(tris)
		kept := tris[:0:0]
		for _, t := range tris {
			open, over := false, false
			for k := range 3 {
				a, b := t[k], t[(k+1)%3]
				switch n := counts[[2]int{min(a, b), max(a, b)}]; {
				case n == 1:
					open = true
				case n > 2:
					over = true
				}
			}
			if !open || !over {
				kept = append(kept, t)
			}
		}
		if len(kept) == len(tris) {
			break
		}
		tris = kept
	}

	counts := edgeCount(tris)
	faces := make(map[[3]int]bool, len(tris))
	for _, t := range tris {
		slices.Sort(t[:])
		faces[t] = true
	}
	// next follows the boundary loops against the winding of their triangles.
	next := make(map[int]int)
	branching := make(map[int]bool)
	for _, t := range tris {
		for k := range 3 {
			a, b := t[k], t[(k+1)%3]
			if counts[[2]int{min(a, b), max(a, b)}] != 1 {
				continue
			}
			if _, ok := next[b]; ok {
				branching[b] = true
			}
			next[b] = a
		}
	}

	visited := make(map[int]bool)
	for _, start := range slices.Sorted(maps.Keys(next)) {
		if visited[start] {
			continue
		}
		loop := []int{start}
		visited[start] = true
		closed := false
		for v := next[start]; len(loop) <= maxHoleSize; v = next[v] {
			if v == start {
				closed = true
				break
			}
			if visited[v] {
				break
			}
			visited[v] = true
			loop = append(loop, v)
			if _, ok := next[v]; !ok {
				break
			}
		}
		if !closed || len(loop) < 3 ||
			slices.ContainsFunc(loop, func(v int) bool { return branching[v] }) {
			continue
		}
		// Diagonals of the fan must be new edges.
		fresh := true
		for i := 2; i < len(loop)-1; i++ {
			if counts[[2]int{min(loop[0], loop[i]), max(loop[0], loop[i])}] > 0 {
				fresh = false
				break
			}
		}
		if !fresh {
			continue
		}
		if len(loop) == 3 {
			key := [3]int{loop[0], loop[1], loop[2]}
			slices.Sort(key[:])
			if faces[key] {
				continue
			}
		}
		for i := 1; i+1 < len(loop); i++ {
			tris = append(tris, [3]int{loop[0], loop[i], loop[i+1]})
		}
	}
	return tris
}

// Subdivide splits every triangle of m into four at its edge midpoints.
// Non-triangular faces are triangulated first.
func Subdivide(m *polymesh.Mesh) *polymesh.Mesh {
	if !m.IsTriangular() {
		m = m.Triangulate()
	}
	points := slices.Clone(m.Points)
	mids := make(map[[2]int]int)
	mid := func(a, b int) int {
		key := [2]int{min(a, b), max(a, b)}
		v, ok := mids[key]
		if !ok {
			v = len(points)
			mids[key] = v
			points = append(points, m.Points[a].Add(m.Points[b]).Mul(0.5))
		}
		return v
	}

	faces := make([]int, 0, 16*m.NumFaces())
	for i := range m.NumFaces() {
		f := m.Face(i)
		ab, bc, ca := mid(f[0], f[1]), mid(f[1], f[2]), mid(f[2], f[0])
		faces = append(faces,
			3, f[0], ab, ca,
			3, ab, f[1], bc,
			3, ca, bc, f[2],
			3, ab, bc, ca)
	}
	out, err := polymesh.NewMesh(points, faces)
	if err != nil {
		panic(err)
	}
	for name, data := range m.FaceData {
		repeated := make([][3]float64, 0, 4*len(data))
		for _, d := range data {
			repeated = append(repeated, d, d, d, d)
		}
		out.FaceData[name] = repeated
	}
	return out
}

// Clusterer remeshes surfaces through a Clustering.
type Clusterer struct {
	setters []ClusteringOption
}

func NewClusterer(setters ...ClusteringOption) *Clusterer {
	return &Clusterer{setters: setters}
}

// Remesh returns a uniform triangle surface approximating m with n points. Surfaces
// with fewer than n points are subdivided first.
func (cl *Clusterer) Remesh(m *polymesh.Mesh, n int) (*polymesh.Mesh, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d clusters", ErrInvalidClusters, n)
	}
	for range maxSubdivisions {
		if m.NumPoints() >= n || m.NumFaces() == 0 {
			break
		}
		m = Subdivide(m)
	}

	c, err := NewClustering(m, cl.setters...)
	if err != nil {
		return nil, err
	}
	if err := c.Cluster(n); err != nil {
		return nil, err
	}
	return c.CreateMesh()
}
