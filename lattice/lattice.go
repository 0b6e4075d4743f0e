// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package lattice builds Voronoi lattices: the finite ridges of the Voronoi diagram
// of a resampled surface plus its bounding box, clipped to the volume the surface
// encloses.
package lattice

import (
	"errors"
	"fmt"

	"github.com/2dChan/r3voronoi"
	"github.com/2dChan/r3voronoi/polymesh"
	"github.com/2dChan/r3voronoi/r3delaunay"
	"github.com/2dChan/r3voronoi/remesh"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"
)

var (
	ErrInvalidBounds          = errors.New("lattice: bounds must satisfy min <= max on every axis")
	ErrInvalidDensity         = errors.New("lattice: density must be at least 2")
	ErrDegenerateTessellation = errors.New(
		"lattice: insufficient seed points to form a bounded Voronoi diagram")
	ErrEmptyLattice = errors.New("lattice: no ridges inside the surface")
	ErrInvalidRidge = errors.New("lattice: finite ridge with fewer than 3 vertices")
)

// Remesher resamples a triangle surface to n points.
type Remesher interface {
	Remesh(m *polymesh.Mesh, n int) (*polymesh.Mesh, error)
}

// Tessellator computes the Voronoi vertices of seeds and the vertex indices of
// every ridge. Negative indices mark unbounded ridges.
type Tessellator interface {
	Tessellate(seeds []r3.Vector) (vertices []r3.Vector, ridges [][]int, err error)
}

// Clipper keeps the part of m inside the volume enclosed by surface.
type Clipper interface {
	Clip(m, surface *polymesh.Mesh) (*polymesh.Mesh, error)
}

type BuilderOptions struct {
	Density     int
	Clusters    int
	Remesher    Remesher
	Tessellator Tessellator
	Clipper     Clipper
	Logger      *zap.Logger
}

type BuilderOption func(*BuilderOptions) error

// WithDensity sets the number of grid samples per axis for the boundary seeds.
func WithDensity(density int) BuilderOption {
	return func(o *BuilderOptions) error {
		if density < 2 {
			return fmt.Errorf("WithDensity: %w", ErrInvalidDensity)
		}
		o.Density = density
		return nil
	}
}

// WithClusters sets the number of points the surface is resampled to. Zero uses the
// face count of the input surface.
func WithClusters(n int) BuilderOption {
	return func(o *BuilderOptions) error {
		if n < 0 {
			return errors.New("WithClusters: n must be non-negative")
		}
		o.Clusters = n
		return nil
	}
}

func WithRemesher(r Remesher) BuilderOption {
	return func(o *BuilderOptions) error {
		if r == nil {
			return errors.New("WithRemesher: remesher must not be nil")
		}
		o.Remesher = r
		return nil
	}
}

func WithTessellator(t Tessellator) BuilderOption {
	return func(o *BuilderOptions) error {
		if t == nil {
			return errors.New("WithTessellator: tessellator must not be nil")
		}
		o.Tessellator = t
		return nil
	}
}

func WithClipper(c Clipper) BuilderOption {
	return func(o *BuilderOptions) error {
		if c == nil {
			return errors.New("WithClipper: clipper must not be nil")
		}
		o.Clipper = c
		return nil
	}
}

func WithLogger(logger *zap.Logger) BuilderOption {
	return func(o *BuilderOptions) error {
		if logger == nil {
			return errors.New("WithLogger: logger must not be nil")
		}
		o.Logger = logger
		return nil
	}
}

type Builder struct {
	opts BuilderOptions
}

func NewBuilder(setters ...BuilderOption) (*Builder, error) {
	opts := BuilderOptions{
		Density:     DefaultDensity,
		Tessellator: r3voronoi.NewTessellator(),
		Clipper:     polymesh.SurfaceClipper{},
		Logger:      zap.NewNop(),
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	if opts.Remesher == nil {
		opts.Remesher = remesh.NewClusterer(remesh.WithLogger(opts.Logger))
	}
	return &Builder{opts: opts}, nil
}

// Build returns the Voronoi lattice of the closed triangle surface m.
//
// The surface is resampled, the resampled points followed by the boundary points of
// the bounding box of m seed the Voronoi diagram, and its finite ridges are clipped
// to the resampled surface. Only the largest connected piece is returned.
func (b *Builder) Build(m *polymesh.Mesh) (*polymesh.Mesh, error) {
	n := b.opts.Clusters
	if n == 0 {
		n = m.NumFaces()
	}
	surface, err := b.opts.Remesher.Remesh(m, n)
	if err != nil {
		return nil, fmt.Errorf("lattice: remesh: %w", err)
	}

	boundary, err := BoundaryPoints(BoundsOf(m), b.opts.Density)
	if err != nil {
		return nil, err
	}
	seeds := make([]r3.Vector, 0, surface.NumPoints()+len(boundary))
	seeds = append(seeds, surface.Points...)
	seeds = append(seeds, boundary...)

	b.opts.Logger.Debug("seeded lattice",
		zap.Int("surface_points", surface.NumPoints()),
		zap.Int("boundary_points", len(boundary)))
	return b.Lattice(seeds, surface)
}

// Lattice returns the largest connected piece of the finite Voronoi ridges of seeds
// that lies inside surface.
func (b *Builder) Lattice(seeds []r3.Vector, surface *polymesh.Mesh) (*polymesh.Mesh, error) {
	vertices, ridges, err := b.opts.Tessellator.Tessellate(seeds)
	if err != nil {
		if errors.Is(err, r3delaunay.ErrInsufficientVertices) ||
			errors.Is(err, r3delaunay.ErrDegenerateInput) {
			return nil, fmt.Errorf("%w: %w", ErrDegenerateTessellation, err)
		}
		return nil, fmt.Errorf("lattice: tessellate: %w", err)
	}

	finite := FiniteRidges(ridges)
	b.opts.Logger.Debug("tessellated seeds",
		zap.Int("seeds", len(seeds)),
		zap.Int("vertices", len(vertices)),
		zap.Int("ridges", len(ridges)),
		zap.Int("finite_ridges", len(finite)))
	if len(finite) == 0 {
		return nil, ErrDegenerateTessellation
	}
	for i, r := range finite {
		if len(r) < 3 {
			return nil, fmt.Errorf("%w: ridge %d has %d", ErrInvalidRidge, i, len(r))
		}
	}

	m, err := polymesh.NewMesh(vertices, FlattenFaces(finite))
	if err != nil {
		return nil, fmt.Errorf("lattice: %w", err)
	}
	clipped, err := b.opts.Clipper.Clip(m, surface)
	if err != nil {
		return nil, fmt.Errorf("lattice: clip: %w", err)
	}
	if clipped.NumFaces() == 0 {
		return nil, ErrEmptyLattice
	}

	largest := clipped.LargestComponent()
	b.opts.Logger.Debug("clipped lattice",
		zap.Int("faces", clipped.NumFaces()),
		zap.Int("components", clipped.NumComponents()),
		zap.Int("largest_faces", largest.NumFaces()))
	return largest, nil
}
