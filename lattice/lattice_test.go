// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package lattice

import (
	"errors"
	"testing"

	"github.com/2dChan/r3voronoi/asset"
	"github.com/2dChan/r3voronoi/polymesh"
	"github.com/2dChan/r3voronoi/r3delaunay"
	"github.com/2dChan/r3voronoi/utils"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

// clipTolerance bounds how far cut points may land outside a box surface. Cuts
// interpolate the sampled signed distance linearly along each edge, so they sit on
// the surface only up to the rounding of the distance evaluation.
const clipTolerance = 1e-7

var (
	unitMin  = r3.Vector{X: 0, Y: 0, Z: 0}
	unitMax  = r3.Vector{X: 1, Y: 1, Z: 1}
	innerMin = r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}
	innerMax = r3.Vector{X: 0.9, Y: 0.9, Z: 0.9}
)

// boxRemesher ignores the requested count and returns a fixed box surface.
type boxRemesher struct {
	lo, hi r3.Vector
}

func (r boxRemesher) Remesh(*polymesh.Mesh, int) (*polymesh.Mesh, error) {
	return polymesh.Box(r.lo, r.hi), nil
}

type failingRemesher struct{}

func (failingRemesher) Remesh(*polymesh.Mesh, int) (*polymesh.Mesh, error) {
	return nil, errors.New("boom")
}

// fixedTessellator returns the same diagram for every seed set and records the seeds.
type fixedTessellator struct {
	vertices []r3.Vector
	ridges   [][]int
	err      error
	seeds    []r3.Vector
}

func (f *fixedTessellator) Tessellate(seeds []r3.Vector) ([]r3.Vector, [][]int, error) {
	f.seeds = seeds
	return f.vertices, f.ridges, f.err
}

type emptyClipper struct{}

func (emptyClipper) Clip(*polymesh.Mesh, *polymesh.Mesh) (*polymesh.Mesh, error) {
	return &polymesh.Mesh{}, nil
}

func TestNewBuilder_Options(t *testing.T) {
	tests := []struct {
		name    string
		setter  BuilderOption
		wantErr bool
	}{
		{"density", WithDensity(5), false},
		{"density too small", WithDensity(1), true},
		{"clusters", WithClusters(10), false},
		{"clusters default", WithClusters(0), false},
		{"negative clusters", WithClusters(-1), true},
		{"remesher", WithRemesher(boxRemesher{}), false},
		{"nil remesher", WithRemesher(nil), true},
		{"tessellator", WithTessellator(&fixedTessellator{}), false},
		{"nil tessellator", WithTessellator(nil), true},
		{"clipper", WithClipper(emptyClipper{}), false},
		{"nil clipper", WithClipper(nil), true},
		{"logger", WithLogger(zap.NewNop()), false},
		{"nil logger", WithLogger(nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(tt.setter)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBuilder(%s) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}

	if _, err := NewBuilder(WithDensity(1)); !errors.Is(err, ErrInvalidDensity) {
		t.Errorf("NewBuilder(WithDensity(1)) error = %v, want %v", err, ErrInvalidDensity)
	}
}

func TestBuilder_Lattice_DegenerateSeeds(t *testing.T) {
	tests := []struct {
		name  string
		seeds []r3.Vector
	}{
		{"three points", []r3.Vector{{X: 0}, {X: 1}, {Y: 1}}},
		{"coplanar", []r3.Vector{{X: 0}, {X: 1}, {Y: 1}, {X: 1, Y: 1}, {X: 0.5, Y: 0.3}}},
		{"tetrahedron", []r3.Vector{{X: 0}, {X: 1}, {Y: 1}, {Z: 1}}},
		{"empty", nil},
	}
	b := mustNewBuilder(t)
	surface := polymesh.Box(unitMin, unitMax)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Lattice(tt.seeds, surface)
			if !errors.Is(err, ErrDegenerateTessellation) {
				t.Errorf("b.Lattice(%v) error = %v, want %v", tt.seeds, err, ErrDegenerateTessellation)
			}
			if got != nil {
				t.Errorf("b.Lattice(%v) = %v, want nil", tt.seeds, got)
			}
		})
	}
}

func TestBuilder_Lattice_KeepsCause(t *testing.T) {
	b := mustNewBuilder(t)
	_, err := b.Lattice([]r3.Vector{{X: 0}, {X: 1}, {Y: 1}}, polymesh.Box(unitMin, unitMax))
	if !errors.Is(err, r3delaunay.ErrInsufficientVertices) {
		t.Errorf("b.Lattice(3 points) error = %v, want %v", err, r3delaunay.ErrInsufficientVertices)
	}
}

func TestBuilder_Lattice_AllRidgesUnbounded(t *testing.T) {
	tess := &fixedTessellator{
		vertices: []r3.Vector{{X: 0.5, Y: 0.5, Z: 0.5}},
		ridges:   [][]int{{-1, 0}, {-1, 0}},
	}
	b := mustNewBuilder(t, WithTessellator(tess))
	if _, err := b.Lattice(nil, polymesh.Box(unitMin, unitMax)); !errors.Is(err, ErrDegenerateTessellation) {
		t.Errorf("b.Lattice(...) error = %v, want %v", err, ErrDegenerateTessellation)
	}
}

func TestBuilder_Lattice_TessellatorError(t *testing.T) {
	cause := errors.New("boom")
	b := mustNewBuilder(t, WithTessellator(&fixedTessellator{err: cause}))
	_, err := b.Lattice(nil, polymesh.Box(unitMin, unitMax))
	if !errors.Is(err, cause) || errors.Is(err, ErrDegenerateTessellation) {
		t.Errorf("b.Lattice(...) error = %v, want wrapped %v", err, cause)
	}
}

func TestBuilder_Lattice_InvalidRidge(t *testing.T) {
	tess := &fixedTessellator{
		vertices: []r3.Vector{
			{X: 0.2, Y: 0.2, Z: 0.5}, {X: 0.8, Y: 0.2, Z: 0.5}, {X: 0.5, Y: 0.8, Z: 0.5},
		},
		ridges: [][]int{{0, 1, 2}, {0, 1}},
	}
	b := mustNewBuilder(t, WithTessellator(tess))
	_, err := b.Lattice(nil, polymesh.Box(unitMin, unitMax))
	if !errors.Is(err, ErrInvalidRidge) {
		t.Errorf("b.Lattice(...) error = %v, want %v", err, ErrInvalidRidge)
	}
}

func TestBuilder_Lattice_Empty(t *testing.T) {
	tess := &fixedTessellator{
		vertices: []r3.Vector{{X: 0}, {X: 1}, {Y: 1}},
		ridges:   [][]int{{0, 1, 2}},
	}
	b := mustNewBuilder(t, WithTessellator(tess), WithClipper(emptyClipper{}))
	if _, err := b.Lattice(nil, polymesh.Box(unitMin, unitMax)); !errors.Is(err, ErrEmptyLattice) {
		t.Errorf("b.Lattice(...) error = %v, want %v", err, ErrEmptyLattice)
	}
}

func TestBuilder_Lattice_FiltersAndClips(t *testing.T) {
	// Two squares at z = 0.5, one inside the unit box and one outside it, plus an
	// unbounded ridge that must be dropped.
	tess := &fixedTessellator{
		vertices: []r3.Vector{
			{X: 0.2, Y: 0.2, Z: 0.5}, {X: 0.8, Y: 0.2, Z: 0.5},
			{X: 0.8, Y: 0.8, Z: 0.5}, {X: 0.2, Y: 0.8, Z: 0.5},
			{X: 3, Y: 3, Z: 0.5}, {X: 4, Y: 3, Z: 0.5},
			{X: 4, Y: 4, Z: 0.5}, {X: 3, Y: 4, Z: 0.5},
		},
		ridges: [][]int{{0, 1, 2, 3}, {-1, 0, 1}, {4, 5, 6, 7}},
	}
	b := mustNewBuilder(t, WithTessellator(tess))
	got, err := b.Lattice(nil, polymesh.Box(unitMin, unitMax))
	if err != nil {
		t.Fatalf("b.Lattice(...) error = %v, want nil", err)
	}
	want := []r3.Vector{
		{X: 0.2, Y: 0.2, Z: 0.5}, {X: 0.8, Y: 0.2, Z: 0.5},
		{X: 0.8, Y: 0.8, Z: 0.5}, {X: 0.2, Y: 0.8, Z: 0.5},
	}
	if diff := cmp.Diff(want, got.Points); diff != "" {
		t.Errorf("b.Lattice(...).Points mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4, 0, 1, 2, 3}, got.Faces); diff != "" {
		t.Errorf("b.Lattice(...).Faces mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_Lattice_InnerBox(t *testing.T) {
	boundary, err := BoundaryPoints(unitBounds, 5)
	if err != nil {
		t.Fatal(err)
	}
	surface := polymesh.Box(innerMin, innerMax)
	seeds := append(utils.GenerateRandomPoints(40, 0, innerMin, innerMax), boundary...)

	got, err := mustNewBuilder(t).Lattice(seeds, surface)
	if err != nil {
		t.Fatalf("b.Lattice(...) error = %v, want nil", err)
	}
	assertLattice(t, got, innerMin, innerMax, clipTolerance)
}

func TestBuilder_Build_SeedOrder(t *testing.T) {
	tess := &fixedTessellator{err: errors.New("stop")}
	b := mustNewBuilder(t, WithRemesher(boxRemesher{lo: innerMin, hi: innerMax}),
		WithTessellator(tess), WithDensity(3))
	if _, err := b.Build(polymesh.Box(unitMin, unitMax)); err == nil {
		t.Fatalf("b.Build(...) error = nil, want non-nil")
	}

	boundary, err := BoundaryPoints(unitBounds, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := append(polymesh.Box(innerMin, innerMax).Points, boundary...)
	if diff := cmp.Diff(want, tess.seeds); diff != "" {
		t.Errorf("seeds mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_Build_RemeshError(t *testing.T) {
	b := mustNewBuilder(t, WithRemesher(failingRemesher{}))
	if _, err := b.Build(polymesh.Box(unitMin, unitMax)); err == nil {
		t.Errorf("b.Build(...) error = nil, want non-nil")
	}
}

func TestBuilder_Build_FakeRemesher(t *testing.T) {
	b := mustNewBuilder(t, WithRemesher(boxRemesher{lo: innerMin, hi: innerMax}), WithDensity(5))
	got, err := b.Build(polymesh.Box(unitMin, unitMax))
	if err != nil {
		t.Fatalf("b.Build(...) error = %v, want nil", err)
	}
	assertLattice(t, got, innerMin, innerMax, clipTolerance)
}

func TestBuilder_Build(t *testing.T) {
	b := mustNewBuilder(t, WithDensity(4), WithLogger(zap.NewExample()))
	got, err := b.Build(polymesh.Box(unitMin, unitMax))
	if err != nil {
		t.Fatalf("b.Build(box) error = %v, want nil", err)
	}
	// The remeshed surface is not convex, so cut points may overshoot it slightly.
	assertLattice(t, got, unitMin, unitMax, 0.1)
}

func TestBuilder_Build_Cow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full pipeline in short mode")
	}
	cow, err := asset.Cow(asset.DefaultCells)
	if err != nil {
		t.Fatalf("asset.Cow(%d) error = %v, want nil", asset.DefaultCells, err)
	}
	got, err := mustNewBuilder(t).Build(cow.Triangulate())
	if err != nil {
		t.Fatalf("b.Build(cow) error = %v, want nil", err)
	}
	lo, hi := cow.Bounds()
	assertLattice(t, got, lo, hi, 0.05*hi.Sub(lo).Norm())
}

func BenchmarkBuilder_Build(b *testing.B) {
	builder, err := NewBuilder(WithDensity(6))
	if err != nil {
		b.Fatal(err)
	}
	m := polymesh.Box(unitMin, unitMax)
	for b.Loop() {
		if _, err := builder.Build(m); err != nil {
			b.Fatal(err)
		}
	}
}

// Helpers

func mustNewBuilder(t *testing.T, setters ...BuilderOption) *Builder {
	t.Helper()
	b, err := NewBuilder(setters...)
	if err != nil {
		t.Fatalf("NewBuilder(...) error = %v, want nil", err)
	}
	return b
}

func assertLattice(t *testing.T, m *polymesh.Mesh, lo, hi r3.Vector, eps float64) {
	t.Helper()
	if m.NumFaces() == 0 {
		t.Fatalf("lattice has no faces")
	}
	if n := m.NumComponents(); n != 1 {
		t.Errorf("lattice has %d components, want 1", n)
	}
	for _, p := range m.Points {
		if p.X < lo.X-eps || p.Y < lo.Y-eps || p.Z < lo.Z-eps ||
			p.X > hi.X+eps || p.Y > hi.Y+eps || p.Z > hi.Z+eps {
			t.Errorf("lattice point %v outside [%v, %v]", p, lo, hi)
		}
	}
	for i := range m.NumFaces() {
		for _, v := range m.Face(i) {
			if v < 0 {
				t.Errorf("face %d has negative index", i)
			}
		}
	}
}
