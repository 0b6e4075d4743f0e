// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3delaunay

import (
	"errors"
	"math"
	"slices"

	"github.com/golang/geo/r3"
)

var errBrokenCavity = errors.New("r3delaunay: cavity boundary is not a closed surface")

type face struct {
	tet, slot int
}

type builder struct {
	points []r3.Vector

	tets [][4]int
	nbrs [][4]int
	dead []bool

	// mark[t] is stamp for cavity members and -stamp for rejected neighbors.
	mark  []int
	stamp int
	last  int

	// flatness tolerance of the initial simplex
	tol float64
}

func newBuilder(vertices []r3.Vector, diag, joggleScale float64, seed int64, eps float64) *builder {
	return &builder{
		points: joggle(vertices, joggleScale*diag, seed),
		tol:    eps * diag * diag * diag,
	}
}

func (b *builder) run(unique []int) error {
	first, ok := b.initialSimplex(unique)
	if !ok {
		return ErrDegenerateInput
	}

	rest := make([]int, 0, len(unique)-4)
	for _, v := range unique {
		if !slices.Contains(first[:], v) {
			rest = append(rest, v)
		}
	}
	b.sortSpatially(rest)

	for _, v := range rest {
		if !b.insert(v) {
			return errBrokenCavity
		}
	}
	return nil
}

// initialSimplex picks four well spread vertices and creates the first tetrahedron
// together with its four ghosts.
func (b *builder) initialSimplex(unique []int) ([4]int, bool) {
	p := b.points
	i0 := unique[0]

	i1, best := -1, 0.0
	for _, v := range unique {
		if d := p[v].Sub(p[i0]).Norm2(); d > best {
			i1, best = v, d
		}
	}
	if i1 < 0 {
		return [4]int{}, false
	}

	axis := p[i1].Sub(p[i0])
	i2, best := -1, 0.0
	for _, v := range unique {
		if d := axis.Cross(p[v].Sub(p[i0])).Norm2(); d > best {
			i2, best = v, d
		}
	}
	if i2 < 0 {
		return [4]int{}, false
	}

	i3, best := -1, 0.0
	for _, v := range unique {
		if d := math.Abs(Orient(p[i0], p[i1], p[i2], p[v])); d > best {
			i3, best = v, d
		}
	}
	if i3 < 0 || best <= b.tol {
		return [4]int{}, false
	}

	first := [4]int{i0, i1, i2, i3}
	if orientSign(p[i0], p[i1], p[i2], p[i3]) < 0 {
		first[2], first[3] = first[3], first[2]
	}

	t := b.newTet(first)
	for i := range 4 {
		ghost := first
		ghost[i] = infinite
		// Flip parity so that the point at infinity lies outside face i.
		j, k := (i+1)%4, (i+2)%4
		ghost[j], ghost[k] = ghost[k], ghost[j]
		g := b.newTet(ghost)
		b.nbrs[t][i] = g
		b.nbrs[g][i] = t
	}
	// Ghosts share the faces containing the point at infinity.
	for g := 1; g <= 4; g++ {
		b.linkGhost(g)
	}
	b.last = t
	return first, true
}

// linkGhost connects the faces of an initial ghost that contain the point at infinity.
func (b *builder) linkGhost(g int) {
	for i := range 4 {
		if b.tets[g][i] == infinite || b.nbrs[g][i] >= 0 {
			continue
		}
		key := faceKey(b.tets[g], i)
		for h := 1; h <= 4; h++ {
			if h == g {
				continue
			}
			for j := range 4 {
				if b.tets[h][j] != infinite && faceKey(b.tets[h], j) == key {
					b.nbrs[g][i] = h
					b.nbrs[h][j] = g
				}
			}
		}
	}
}

func (b *builder) newTet(verts [4]int) int {
	t := len(b.tets)
	b.tets = append(b.tets, verts)
	b.nbrs = append(b.nbrs, [4]int{-1, -1, -1, -1})
	b.dead = append(b.dead, false)
	b.mark = append(b.mark, 0)
	return t
}

// insert adds vertex v. It reports false if the cavity boundary is not a closed
// surface, which leaves the builder unusable.
func (b *builder) insert(v int) bool {
	p := b.points[v]
	t := b.locate(p)
	if t < 0 {
		return true
	}

	b.stamp++
	cavity := []int{t}
	b.mark[t] = b.stamp
	for k := 0; k < len(cavity); k++ {
		for _, n := range b.nbrs[cavity[k]] {
			if b.mark[n] == b.stamp || b.mark[n] == -b.stamp {
				continue
			}
			if b.conflict(n, p) {
				b.mark[n] = b.stamp
				cavity = append(cavity, n)
			} else {
				b.mark[n] = -b.stamp
			}
		}
	}

	// Every new finite tetrahedron must be positively oriented. A boundary face that
	// v does not see strictly from inside pulls its outer neighbor into the cavity.
	var boundary []face
	for {
		boundary = boundary[:0]
		grown := false
		for _, c := range cavity {
			for i, n := range b.nbrs[c] {
				if b.mark[n] == b.stamp {
					continue
				}
				verts := b.tets[c]
				verts[i] = v
				if !isGhost(verts) && b.orient(verts) <= 0 {
					b.mark[n] = b.stamp
					cavity = append(cavity, n)
					grown = true
					continue
				}
				boundary = append(boundary, face{c, i})
			}
		}
		if !grown {
			break
		}
	}

	type half struct{ tet, slot int }
	open := make(map[[2]int]half, len(boundary)*3/2)
	for _, f := range boundary {
		verts := b.tets[f.tet]
		verts[f.slot] = v
		nt := b.newTet(verts)

		out := b.nbrs[f.tet][f.slot]
		b.nbrs[nt][f.slot] = out
		for j := range 4 {
			if b.nbrs[out][j] == f.tet {
				b.nbrs[out][j] = nt
				break
			}
		}

		for j := range 4 {
			if j == f.slot {
				continue
			}
			key := edgeKey(verts, j, f.slot)
			if h, ok := open[key]; ok {
				b.nbrs[nt][j] = h.tet
				b.nbrs[h.tet][h.slot] = nt
				delete(open, key)
			} else {
				open[key] = half{nt, j}
			}
		}
		b.last = nt
	}

	for _, c := range cavity {
		b.dead[c] = true
	}
	return len(open) == 0
}

// locate returns a tetrahedron whose circumsphere contains p, or -1 if p duplicates
// an existing vertex.
func (b *builder) locate(p r3.Vector) int {
	t := b.last
	for t >= 0 && b.dead[t] {
		t--
	}

	for step := range len(b.tets) {
		verts := b.tets[t]
		if isGhost(verts) {
			if b.conflict(t, p) {
				return t
			}
			t = b.nbrs[t][slot(verts, infinite)]
			continue
		}

		moved := false
		for k := range 4 {
			i := (step + k) % 4
			if b.orientWith(verts, i, p) < 0 {
				t = b.nbrs[t][i]
				moved = true
				break
			}
		}
		if !moved {
			if b.conflict(t, p) {
				return t
			}
			break
		}
	}

	for t := range b.tets {
		if !b.dead[t] && b.conflict(t, p) {
			return t
		}
	}
	return -1
}

// conflict reports whether p violates the empty sphere property of tetrahedron t.
// A ghost conflicts when p lies strictly outside its hull face, or in the plane of
// the face and strictly inside its circumcircle.
func (b *builder) conflict(t int, p r3.Vector) bool {
	verts := b.tets[t]
	if !isGhost(verts) {
		q := b.corners(verts)
		return inSphereSign(q[0], q[1], q[2], q[3], p) > 0
	}

	k := slot(verts, infinite)
	switch o := b.orientWith(verts, k, p); {
	case o > 0:
		return true
	case o < 0:
		return false
	}

	var tri [3]r3.Vector
	n := 0
	for _, v := range verts {
		if v != infinite {
			tri[n] = b.points[v]
			n++
		}
	}
	// Any sphere through the face cuts its plane in the circumcircle, so lift the
	// test off the plane along the first axis that leaves it.
	for axis := range 3 {
		apex := tri[0]
		switch axis {
		case 0:
			apex.X += 1 + math.Abs(apex.X)
		case 1:
			apex.Y += 1 + math.Abs(apex.Y)
		default:
			apex.Z += 1 + math.Abs(apex.Z)
		}
		if o := orientSign(tri[0], tri[1], tri[2], apex); o != 0 {
			return o*inSphereSign(tri[0], tri[1], tri[2], apex, p) > 0
		}
	}
	return false
}

// orient returns the orientation sign of a finite tetrahedron.
func (b *builder) orient(verts [4]int) int {
	q := b.corners(verts)
	return orientSign(q[0], q[1], q[2], q[3])
}

// orientWith returns the orientation sign of verts with slot i replaced by p.
func (b *builder) orientWith(verts [4]int, i int, p r3.Vector) int {
	q := b.corners(verts)
	q[i] = p
	return orientSign(q[0], q[1], q[2], q[3])
}

// corners returns the points of verts. The point at infinity maps to the zero vector.
func (b *builder) corners(verts [4]int) [4]r3.Vector {
	var q [4]r3.Vector
	for j, v := range verts {
		if v != infinite {
			q[j] = b.points[v]
		}
	}
	return q
}

// valid reports whether the live tetrahedra form a Delaunay tetrahedralization of
// the vertices in unique: neighbors are mutual across shared faces, finite
// tetrahedra are positively oriented and locally Delaunay, the hull is locally
// convex and every vertex is used.
func (b *builder) valid(unique []int) bool {
	used := make([]bool, len(b.points))
	for t, verts := range b.tets {
		if b.dead[t] {
			continue
		}
		ghost := isGhost(verts)
		if !ghost && b.orient(verts) <= 0 {
			return false
		}

		for i, n := range b.nbrs[t] {
			if n < 0 || b.dead[n] || slices.Contains(b.nbrs[t][i+1:], n) {
				return false
			}
			j := slices.Index(b.nbrs[n][:], t)
			if j < 0 || faceKey(verts, i) != faceKey(b.tets[n], j) {
				return false
			}

			far := b.tets[n][j]
			switch {
			case far == infinite:
			case !ghost:
				q := b.corners(verts)
				if inSphereSign(q[0], q[1], q[2], q[3], b.points[far]) > 0 {
					return false
				}
			case verts[i] != infinite:
				// Both ghosts: the far hull vertex must not lie outside this hull face.
				if b.orientWith(verts, slot(verts, infinite), b.points[far]) > 0 {
					return false
				}
			}
		}

		for _, v := range verts {
			if v != infinite {
				used[v] = true
			}
		}
	}

	for _, v := range unique {
		if !used[v] {
			return false
		}
	}
	return true
}

// sortSpatially orders vertices along a Morton curve so consecutive insertions stay close.
func (b *builder) sortSpatially(vertices []int) {
	if len(vertices) == 0 {
		return
	}
	lo, hi := bounds(b.points)
	span := hi.Sub(lo)
	scale := func(x, s float64) uint64 {
		if s == 0 {
			return 0
		}
		return uint64(math.Min(1023, math.Max(0, (x/s)*1023)))
	}

	codes := make(map[int]uint64, len(vertices))
	for _, v := range vertices {
		d := b.points[v].Sub(lo)
		codes[v] = morton(scale(d.X, span.X), scale(d.Y, span.Y), scale(d.Z, span.Z))
	}
	slices.SortStableFunc(vertices, func(a, c int) int {
		switch {
		case codes[a] < codes[c]:
			return -1
		case codes[a] > codes[c]:
			return 1
		}
		return 0
	})
}

func morton(x, y, z uint64) uint64 {
	var code uint64
	for i := range 10 {
		code |= (x>>i&1)<<(3*i) | (y>>i&1)<<(3*i+1) | (z>>i&1)<<(3*i+2)
	}
	return code
}

// triangulation compacts the live finite tetrahedra.
func (b *builder) triangulation(vertices []r3.Vector) *Triangulation {
	index := make([]int, len(b.tets))
	n := 0
	for t, verts := range b.tets {
		if b.dead[t] || isGhost(verts) {
			index[t] = -1
			continue
		}
		index[t] = n
		n++
	}

	dt := &Triangulation{
		Vertices:                   vertices,
		Tetrahedra:                 make([][4]int, 0, n),
		Neighbors:                  make([][4]int, 0, n),
		IncidentTetrahedronIndices: make([]int, n*4),
		IncidentTetrahedronOffsets: make([]int, len(vertices)+1),
		points:                     b.points,
	}
	for t, verts := range b.tets {
		if index[t] < 0 {
			continue
		}
		var nb [4]int
		for i, o := range b.nbrs[t] {
			nb[i] = index[o]
		}
		dt.Tetrahedra = append(dt.Tetrahedra, verts)
		dt.Neighbors = append(dt.Neighbors, nb)
	}

	for _, verts := range dt.Tetrahedra {
		for _, v := range verts {
			dt.IncidentTetrahedronOffsets[v+1]++
		}
	}
	for i := range len(vertices) {
		dt.IncidentTetrahedronOffsets[i+1] += dt.IncidentTetrahedronOffsets[i]
	}
	nxt := make([]int, len(vertices))
	copy(nxt, dt.IncidentTetrahedronOffsets[:len(vertices)])
	for t, verts := range dt.Tetrahedra {
		for _, v := range verts {
			dt.IncidentTetrahedronIndices[nxt[v]] = t
			nxt[v]++
		}
	}

	return dt
}

func isGhost(verts [4]int) bool {
	return verts[0] == infinite || verts[1] == infinite || verts[2] == infinite ||
		verts[3] == infinite
}

// faceKey returns the sorted vertices of the face opposite slot i.
func faceKey(verts [4]int, i int) [3]int {
	var k [3]int
	n := 0
	for j, v := range verts {
		if j != i {
			k[n] = v
			n++
		}
	}
	slices.Sort(k[:])
	return k
}

// edgeKey returns the sorted vertices of verts other than slots i and j.
func edgeKey(verts [4]int, i, j int) [2]int {
	var k [2]int
	n := 0
	for s, v := range verts {
		if s != i && s != j {
			k[n] = v
			n++
		}
	}
	if k[0] > k[1] {
		k[0], k[1] = k[1], k[0]
	}
	return k
}
