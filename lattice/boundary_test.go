// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package lattice

import (
	"errors"
	"slices"
	"testing"

	"github.com/2dChan/r3voronoi/polymesh"
	"github.com/2dChan/r3voronoi/utils"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
)

var unitBounds = Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1, ZMin: 0, ZMax: 1}

func TestBoundaryPoints_UnitCubeCorners(t *testing.T) {
	got, err := BoundaryPoints(unitBounds, 2)
	if err != nil {
		t.Fatalf("BoundaryPoints(unit, 2) error = %v, want nil", err)
	}
	want := []r3.Vector{
		{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BoundaryPoints(unit, 2) mismatch (-want +got):\n%s", diff)
	}
}

func TestBoundaryPoints_Count(t *testing.T) {
	b := Bounds{XMin: -1.5, XMax: 2.25, YMin: 0.1, YMax: 0.7, ZMin: -3, ZMax: 10}
	for _, n := range []int{2, 3, 4, 5, 7, DefaultDensity} {
		got, err := BoundaryPoints(b, n)
		if err != nil {
			t.Fatalf("BoundaryPoints(b, %d) error = %v, want nil", n, err)
		}
		inner := n - 2
		if want := n*n*n - inner*inner*inner; len(got) != want {
			t.Errorf("len(BoundaryPoints(b, %d)) = %d, want %d", n, len(got), want)
		}
	}
}

func TestBoundaryPoints_OnBoundaryAndOnGrid(t *testing.T) {
	const n = 6
	b := Bounds{XMin: 0.3, XMax: 1.7, YMin: -2, YMax: 2, ZMin: 5, ZMax: 5.5}
	got, err := BoundaryPoints(b, n)
	if err != nil {
		t.Fatalf("BoundaryPoints(b, %d) error = %v, want nil", n, err)
	}
	xs := utils.Linspace(b.XMin, b.XMax, n)
	ys := utils.Linspace(b.YMin, b.YMax, n)
	zs := utils.Linspace(b.ZMin, b.ZMax, n)
	for _, p := range got {
		if !b.OnBoundary(p) {
			t.Errorf("point %v is not on the boundary", p)
		}
		if !slices.Contains(xs, p.X) || !slices.Contains(ys, p.Y) || !slices.Contains(zs, p.Z) {
			t.Errorf("point %v is not a grid point", p)
		}
	}
}

func TestBoundaryPoints_FlatBox(t *testing.T) {
	const n = 4
	b := Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1, ZMin: 2, ZMax: 2}
	got, err := BoundaryPoints(b, n)
	if err != nil {
		t.Fatalf("BoundaryPoints(flat, %d) error = %v, want nil", n, err)
	}
	if len(got) != n*n*n {
		t.Errorf("len(BoundaryPoints(flat, %d)) = %d, want %d", n, len(got), n*n*n)
	}
}

func TestBoundaryPoints_Errors(t *testing.T) {
	tests := []struct {
		name    string
		b       Bounds
		density int
		wantErr error
	}{
		{"density one", unitBounds, 1, ErrInvalidDensity},
		{"density zero", unitBounds, 0, ErrInvalidDensity},
		{"negative density", unitBounds, -3, ErrInvalidDensity},
		{"reversed x", Bounds{XMin: 1, XMax: 0, YMax: 1, ZMax: 1}, 3, ErrInvalidBounds},
		{"reversed y", Bounds{XMax: 1, YMin: 1, YMax: 0, ZMax: 1}, 3, ErrInvalidBounds},
		{"reversed z", Bounds{XMax: 1, YMax: 1, ZMin: 1, ZMax: 0}, 3, ErrInvalidBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BoundaryPoints(tt.b, tt.density)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("BoundaryPoints(%+v, %d) error = %v, want %v", tt.b, tt.density, err,
					tt.wantErr)
			}
			if got != nil {
				t.Errorf("BoundaryPoints(%+v, %d) = %v, want nil", tt.b, tt.density, got)
			}
		})
	}
}

func TestBoundsOf(t *testing.T) {
	m := polymesh.Box(r3.Vector{X: -1, Y: 2, Z: 3}, r3.Vector{X: 4, Y: 5, Z: 6})
	want := Bounds{XMin: -1, XMax: 4, YMin: 2, YMax: 5, ZMin: 3, ZMax: 6}
	if diff := cmp.Diff(want, BoundsOf(m)); diff != "" {
		t.Errorf("BoundsOf(box) mismatch (-want +got):\n%s", diff)
	}
	if !want.Valid() {
		t.Errorf("%+v.Valid() = false, want true", want)
	}
	if got := want.Min(); got != (r3.Vector{X: -1, Y: 2, Z: 3}) {
		t.Errorf("Min() = %v, want (-1, 2, 3)", got)
	}
	if got := want.Max(); got != (r3.Vector{X: 4, Y: 5, Z: 6}) {
		t.Errorf("Max() = %v, want (4, 5, 6)", got)
	}
}

func BenchmarkBoundaryPoints(b *testing.B) {
	for b.Loop() {
		if _, err := BoundaryPoints(unitBounds, DefaultDensity); err != nil {
			b.Fatal(err)
		}
	}
}
