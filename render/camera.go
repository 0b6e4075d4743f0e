// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package render

import (
	"math"

	"github.com/golang/geo/r3"
)

// Camera is an orthographic camera looking at the origin from the direction given by
// azimuth (around +z, from +x) and elevation (above the xy plane), both in degrees.
type Camera struct {
	right   r3.Vector
	up      r3.Vector
	forward r3.Vector
}

func NewCamera(azimuth, elevation float64) Camera {
	az := azimuth * math.Pi / 180
	el := elevation * math.Pi / 180
	sinAz, cosAz := math.Sincos(az)
	sinEl, cosEl := math.Sincos(el)
	return Camera{
		right:   r3.Vector{X: -sinAz, Y: cosAz},
		up:      r3.Vector{X: -sinEl * cosAz, Y: -sinEl * sinAz, Z: cosEl},
		forward: r3.Vector{X: cosEl * cosAz, Y: cosEl * sinAz, Z: sinEl},
	}
}

// Project returns the view plane coordinates of p and its depth. Larger depths are
// closer to the viewer.
func (c Camera) Project(p r3.Vector) (x, y, depth float64) {
	return p.Dot(c.right), p.Dot(c.up), p.Dot(c.forward)
}

// Facing reports how much a surface with unit normal n faces the viewer, in [-1, 1].
func (c Camera) Facing(n r3.Vector) float64 {
	return n.Dot(c.forward)
}

// viewport maps view plane coordinates onto a width×height image with a margin.
type viewport struct {
	scale  float64
	cx, cy float64
	width  int
	height int
}

func newViewport(xs, ys []float64, width, height, margin int) viewport {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := range xs {
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}
	vp := viewport{scale: 1, width: width, height: height}
	if len(xs) == 0 {
		return vp
	}
	vp.cx, vp.cy = (minX+maxX)/2, (minY+maxY)/2

	spanX, spanY := maxX-minX, maxY-minY
	w, h := float64(width-2*margin), float64(height-2*margin)
	switch {
	case spanX > 0 && spanY > 0:
		vp.scale = math.Min(w/spanX, h/spanY)
	case spanX > 0:
		vp.scale = w / spanX
	case spanY > 0:
		vp.scale = h / spanY
	}
	return vp
}

// toScreen flips y so that up in the view plane is up in the image.
func (vp viewport) toScreen(x, y float64) (int, int) {
	sx := float64(vp.width)/2 + (x-vp.cx)*vp.scale
	sy := float64(vp.height)/2 - (y-vp.cy)*vp.scale
	return int(math.Round(sx)), int(math.Round(sy))
}
