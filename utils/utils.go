// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package utils provides utility functions for generating point sets, grids and colors
// used by the Voronoi lattice pipeline.

package utils

import (
	"math/rand"

	"github.com/golang/geo/r3"
)

// GenerateRandomPoints generates cnt random points uniformly distributed in the
// axis-aligned box [lo, hi]. The seed parameter ensures reproducibility.
func GenerateRandomPoints(cnt int, seed int64, lo, hi r3.Vector) []r3.Vector {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	points := make([]r3.Vector, cnt)

	span := hi.Sub(lo)
	for i := range cnt {
		points[i] = r3.Vector{
			X: lo.X + random.Float64()*span.X,
			Y: lo.Y + random.Float64()*span.Y,
			Z: lo.Z + random.Float64()*span.Z,
		}
	}

	return points
}

// Linspace returns n evenly spaced samples over [start, stop].
// The first sample is exactly start and, for n > 1, the last is exactly stop.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	samples := make([]float64, n)
	samples[0] = start
	if n == 1 {
		return samples
	}

	step := (stop - start) / float64(n-1)
	for i := 1; i < n-1; i++ {
		samples[i] = start + float64(i)*step
	}
	samples[n-1] = stop

	return samples
}

// RandomColors returns n RGB triples with components in [0, 1).
// The seed parameter ensures reproducibility.
func RandomColors(n int, seed int64) [][3]float64 {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	colors := make([][3]float64, n)
	for i := range colors {
		colors[i] = [3]float64{random.Float64(), random.Float64(), random.Float64()}
	}
	return colors
}
