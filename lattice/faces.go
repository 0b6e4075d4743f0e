// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package lattice

import (
	"fmt"
	"slices"

	"github.com/2dChan/r3voronoi/polymesh"
)

// FiniteRidges returns copies of the ridges whose vertex indices are all
// non-negative. Negative indices mark ridges reaching infinity.
func FiniteRidges(ridges [][]int) [][]int {
	var finite [][]int
	for _, r := range ridges {
		if slices.ContainsFunc(r, func(v int) bool { return v < 0 }) {
			continue
		}
		finite = append(finite, slices.Clone(r))
	}
	return finite
}

// FlattenFaces encodes faces as a single buffer where every face is prefixed by its
// vertex count.
func FlattenFaces(faces [][]int) []int {
	size := 0
	for _, f := range faces {
		size += 1 + len(f)
	}
	buffer := make([]int, 0, size)
	for _, f := range faces {
		buffer = append(buffer, len(f))
		buffer = append(buffer, f...)
	}
	return buffer
}

// UnflattenFaces decodes a buffer built by FlattenFaces.
func UnflattenFaces(buffer []int) ([][]int, error) {
	var faces [][]int
	for i := 0; i < len(buffer); {
		n := buffer[i]
		if n < 1 || i+1+n > len(buffer) {
			return nil, fmt.Errorf("%w: bad vertex count %d at %d", polymesh.ErrInvalidFaces, n, i)
		}
		faces = append(faces, slices.Clone(buffer[i+1:i+1+n]))
		i += 1 + n
	}
	return faces, nil
}
