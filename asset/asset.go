// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package asset provides reference surfaces: a bundled procedural cow and STL
// loading from files or URLs.
package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/2dChan/r3voronoi/polymesh"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/geo/r3"
	"github.com/unixpickle/model3d/model3d"
)

const (
	// DefaultCells is the marching cubes resolution along the longest axis of Cow.
	DefaultCells = 48

	minCells = 8

	// weldTolerance merges marching cubes corners that differ by rounding only.
	weldTolerance = 1e-7
)

var ErrDownload = errors.New("asset: download failed")

// Cow returns a closed triangle surface of a stylized cow: a rounded body on four
// legs with a head, snout, horns and tail. cells sets the marching cubes resolution.
func Cow(cells int) (*polymesh.Mesh, error) {
	if cells < minCells {
		return nil, fmt.Errorf("asset: cells must be at least %d, got %d", minCells, cells)
	}
	solid, err := cow()
	if err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}
	return Tessellate(solid, cells), nil
}

func cow() (sdf.SDF3, error) {
	body, err := sdf.Box3D(v3.Vec{X: 2.0, Y: 0.9, Z: 0.9}, 0.3)
	if err != nil {
		return nil, err
	}
	head, err := sdf.Sphere3D(0.34)
	if err != nil {
		return nil, err
	}
	snout, err := sdf.Box3D(v3.Vec{X: 0.32, Y: 0.36, Z: 0.3}, 0.1)
	if err != nil {
		return nil, err
	}
	leg, err := sdf.Cylinder3D(0.8, 0.12, 0.04)
	if err != nil {
		return nil, err
	}
	horn, err := sdf.Cylinder3D(0.25, 0.05, 0.02)
	if err != nil {
		return nil, err
	}
	tail, err := sdf.Cylinder3D(0.6, 0.05, 0.02)
	if err != nil {
		return nil, err
	}

	parts := []sdf.SDF3{
		body,
		translate(head, 1.15, 0, 0.4),
		translate(snout, 1.45, 0, 0.3),
		translate(horn, 1.1, 0.18, 0.78),
		translate(horn, 1.1, -0.18, 0.78),
		sdf.Transform3D(tail, sdf.Translate3d(v3.Vec{X: -1.1, Y: 0, Z: 0}).Mul(sdf.RotateY(0.5))),
	}
	for _, x := range []float64{-0.7, 0.7} {
		for _, y := range []float64{-0.27, 0.27} {
			parts = append(parts, translate(leg, x, y, -0.7))
		}
	}
	return sdf.Union3D(parts...), nil
}

func translate(s sdf.SDF3, x, y, z float64) sdf.SDF3 {
	return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))
}

// Tessellate renders solid to a welded triangle surface with marching cubes.
func Tessellate(solid sdf.SDF3, cells int) *polymesh.Mesh {
	triangles := render.ToTriangles(solid, render.NewMarchingCubesUniform(cells))
	tris := make([][3]r3.Vector, 0, len(triangles))
	for _, t := range triangles {
		tris = append(tris, [3]r3.Vector{vector(t[0]), vector(t[1]), vector(t[2])})
	}
	return polymesh.FromTriangles(tris, weldTolerance)
}

func vector(v v3.Vec) r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// Load reads an STL file.
func Load(path string) (*polymesh.Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadSTL(file)
}

// ReadSTL reads a binary or ASCII STL stream and welds identical corners.
func ReadSTL(r io.Reader) (*polymesh.Mesh, error) {
	tris, err := model3d.ReadSTL(r)
	if err != nil {
		return nil, fmt.Errorf("asset: read stl: %w", err)
	}
	return polymesh.FromModel3D(model3d.NewMeshTriangles(tris)), nil
}

// WriteSTL writes the triangulated surface of m as binary STL.
func WriteSTL(w io.Writer, m *polymesh.Mesh) error {
	return model3d.WriteSTL(w, polymesh.ToModel3D(m).TriangleSlice())
}

// Download fetches and reads an STL file from url.
func Download(ctx context.Context, url string) (*polymesh.Mesh, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %s", ErrDownload, url, resp.Status)
	}
	return ReadSTL(resp.Body)
}
