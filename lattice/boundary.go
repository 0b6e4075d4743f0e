// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package lattice

import (
	"fmt"

	"github.com/2dChan/r3voronoi/polymesh"
	"github.com/2dChan/r3voronoi/utils"
	"github.com/golang/geo/r3"
)

// DefaultDensity is the number of grid samples per axis used by BoundaryPoints.
const DefaultDensity = 20

// Bounds is an axis-aligned box.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
}

// BoundsOf returns the bounding box of the points of m.
func BoundsOf(m *polymesh.Mesh) Bounds {
	lo, hi := m.Bounds()
	return Bounds{
		XMin: lo.X, XMax: hi.X,
		YMin: lo.Y, YMax: hi.Y,
		ZMin: lo.Z, ZMax: hi.Z,
	}
}

// Valid reports whether min <= max holds on every axis.
func (b Bounds) Valid() bool {
	return b.XMin <= b.XMax && b.YMin <= b.YMax && b.ZMin <= b.ZMax
}

func (b Bounds) Min() r3.Vector {
	return r3.Vector{X: b.XMin, Y: b.YMin, Z: b.ZMin}
}

func (b Bounds) Max() r3.Vector {
	return r3.Vector{X: b.XMax, Y: b.YMax, Z: b.ZMax}
}

// OnBoundary reports whether p lies exactly on one of the six planes of the box.
func (b Bounds) OnBoundary(p r3.Vector) bool {
	return p.X == b.XMin || p.X == b.XMax ||
		p.Y == b.YMin || p.Y == b.YMax ||
		p.Z == b.ZMin || p.Z == b.ZMax
}

// BoundaryPoints samples a density×density×density grid over b and returns the
// samples lying on the faces of the box. Samples are enumerated with y varying
// fastest, then x, then z.
//
// Boundary membership uses exact float equality against the grid endpoints, which
// are exact by construction.
func BoundaryPoints(b Bounds, density int) ([]r3.Vector, error) {
	if density < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDensity, density)
	}
	if !b.Valid() {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidBounds, b)
	}

	xs := utils.Linspace(b.XMin, b.XMax, density)
	ys := utils.Linspace(b.YMin, b.YMax, density)
	zs := utils.Linspace(b.ZMin, b.ZMax, density)

	inner := density - 2
	points := make([]r3.Vector, 0, density*density*density-inner*inner*inner)
	for _, z := range zs {
		for _, x := range xs {
			for _, y := range ys {
				p := r3.Vector{X: x, Y: y, Z: z}
				if b.OnBoundary(p) {
					points = append(points, p)
				}
			}
		}
	}
	return points, nil
}
