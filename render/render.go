// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package render draws polygon meshes as SVG images through an orthographic camera.
// Faces are painted back to front and may be colored from per-face RGB data.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/2dChan/r3voronoi/polymesh"
	"github.com/2dChan/r3voronoi/utils"
	svg "github.com/ajstarks/svgo"
	"github.com/golang/geo/r3"
)

const (
	defaultWidth     = 1200
	defaultHeight    = 900
	defaultMargin    = 60
	defaultAzimuth   = -60
	defaultElevation = 30
	defaultTicks     = 5

	backgroundStyle = "fill:rgb(255,255,255)"
	edgeStyle       = "stroke:rgb(40,40,40);stroke-width:0.5;stroke-opacity:0.6"
	gridStyle       = "stroke:rgb(170,170,170);stroke-width:1;fill:none"
	axisStyle       = "stroke:rgb(0,0,0);stroke-width:1.5"
	labelStyle      = "font-family:sans-serif;font-size:12px;fill:rgb(0,0,0)"
)

var defaultColor = [3]float64{0.9, 0.9, 0.9}

type RendererOptions struct {
	Width     int
	Height    int
	Azimuth   float64
	Elevation float64
	// Scalars names the per-face RGB data used to fill faces.
	Scalars  string
	ShowGrid bool
	Ticks    int
}

type RendererOption func(*RendererOptions) error

func WithSize(width, height int) RendererOption {
	return func(o *RendererOptions) error {
		if width <= 2*defaultMargin || height <= 2*defaultMargin {
			return fmt.Errorf("WithSize: size must exceed %d in both dimensions", 2*defaultMargin)
		}
		o.Width, o.Height = width, height
		return nil
	}
}

// WithCamera sets the view direction in degrees.
func WithCamera(azimuth, elevation float64) RendererOption {
	return func(o *RendererOptions) error {
		if elevation < -90 || elevation > 90 {
			return errors.New("WithCamera: elevation must be in [-90, 90]")
		}
		o.Azimuth, o.Elevation = azimuth, elevation
		return nil
	}
}

func WithScalars(name string) RendererOption {
	return func(o *RendererOptions) error {
		o.Scalars = name
		return nil
	}
}

// ShowGrid draws the bounding box of the mesh with ruled back walls and labeled axes.
func ShowGrid() RendererOption {
	return func(o *RendererOptions) error {
		o.ShowGrid = true
		return nil
	}
}

// WithTicks sets the number of grid lines per axis.
func WithTicks(n int) RendererOption {
	return func(o *RendererOptions) error {
		if n < 2 {
			return errors.New("WithTicks: n must be at least 2")
		}
		o.Ticks = n
		return nil
	}
}

type Renderer struct {
	opts   RendererOptions
	camera Camera
}

func NewRenderer(setters ...RendererOption) (*Renderer, error) {
	opts := RendererOptions{
		Width:     defaultWidth,
		Height:    defaultHeight,
		Azimuth:   defaultAzimuth,
		Elevation: defaultElevation,
		Ticks:     defaultTicks,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	return &Renderer{opts: opts, camera: NewCamera(opts.Azimuth, opts.Elevation)}, nil
}

// RenderFile renders m into the SVG file at path.
func (r *Renderer) RenderFile(path string, m *polymesh.Mesh) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return r.Render(file, m)
}

// Render writes m as an SVG image to w.
func (r *Renderer) Render(w io.Writer, m *polymesh.Mesh) error {
	colors := m.FaceData[r.opts.Scalars]
	if r.opts.Scalars != "" && colors == nil {
		return fmt.Errorf("render: mesh has no face data %q", r.opts.Scalars)
	}

	lo, hi := m.Bounds()
	corners := boxCorners(lo, hi)
	xs := make([]float64, 0, len(m.Points)+len(corners))
	ys := make([]float64, 0, len(m.Points)+len(corners))
	depths := make([]float64, len(m.Points))
	for i, p := range m.Points {
		x, y, d := r.camera.Project(p)
		xs, ys = append(xs, x), append(ys, y)
		depths[i] = d
	}
	for _, p := range corners {
		x, y, _ := r.camera.Project(p)
		xs, ys = append(xs, x), append(ys, y)
	}
	vp := newViewport(xs, ys, r.opts.Width, r.opts.Height, defaultMargin)

	canvas := svg.New(w)
	canvas.Start(r.opts.Width, r.opts.Height)
	canvas.Rect(0, 0, r.opts.Width, r.opts.Height, backgroundStyle)
	if r.opts.ShowGrid && m.NumPoints() > 0 {
		r.drawWalls(canvas, vp, lo, hi)
	}

	order := make([]int, m.NumFaces())
	faceDepth := make([]float64, m.NumFaces())
	for i := range order {
		order[i] = i
		for _, v := range m.Face(i) {
			faceDepth[i] += depths[v]
		}
		faceDepth[i] /= float64(len(m.Face(i)))
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case faceDepth[a] < faceDepth[b]:
			return -1
		case faceDepth[a] > faceDepth[b]:
			return 1
		}
		return 0
	})

	var px, py []int
	for _, f := range order {
		px, py = px[:0], py[:0]
		for _, v := range m.Face(f) {
			x, y := vp.toScreen(xs[v], ys[v])
			px, py = append(px, x), append(py, y)
		}
		color := defaultColor
		if colors != nil {
			color = colors[f]
		}
		shade := 0.55 + 0.45*math.Abs(r.camera.Facing(m.FaceNormal(f)))
		canvas.Polygon(px, py, "fill:"+RGB(scale(color, shade))+";"+edgeStyle)
	}

	if r.opts.ShowGrid && m.NumPoints() > 0 {
		r.drawAxes(canvas, vp, lo, hi)
	}
	canvas.End()
	return nil
}

// drawWalls rules the three faces of the bounding box facing away from the viewer.
func (r *Renderer) drawWalls(canvas *svg.SVG, vp viewport, lo, hi r3.Vector) {
	ticks := [3][]float64{
		utils.Linspace(lo.X, hi.X, r.opts.Ticks),
		utils.Linspace(lo.Y, hi.Y, r.opts.Ticks),
		utils.Linspace(lo.Z, hi.Z, r.opts.Ticks),
	}
	for axis := range 3 {
		normal := r3.Vector{}
		set(&normal, axis, 1)
		wall := lo
		if r.camera.Facing(normal) < 0 {
			wall = hi
		}
		// The wall lies in the plane where axis is fixed; rule it along the other two.
		for k := 1; k <= 2; k++ {
			along := (axis + k) % 3
			across := (axis + 3 - k) % 3
			for _, t := range ticks[along] {
				a, b := wall, wall
				set(&a, along, t)
				set(&b, along, t)
				set(&a, across, get(lo, across))
				set(&b, across, get(hi, across))
				r.line(canvas, vp, a, b, gridStyle)
			}
		}
	}
}

// drawAxes draws the bounding box edges through lo with tick labels.
func (r *Renderer) drawAxes(canvas *svg.SVG, vp viewport, lo, hi r3.Vector) {
	names := [3]string{"X", "Y", "Z"}
	for axis := range 3 {
		end := lo
		set(&end, axis, get(hi, axis))
		r.line(canvas, vp, lo, end, axisStyle)

		for _, t := range utils.Linspace(get(lo, axis), get(hi, axis), r.opts.Ticks) {
			p := lo
			set(&p, axis, t)
			x, y, _ := r.camera.Project(p)
			sx, sy := vp.toScreen(x, y)
			canvas.Text(sx+4, sy+14, fmt.Sprintf("%.3g", t), labelStyle)
		}
		x, y, _ := r.camera.Project(lo.Add(end.Sub(lo).Mul(1.08)))
		sx, sy := vp.toScreen(x, y)
		canvas.Text(sx, sy, names[axis], labelStyle)
	}
}

func (r *Renderer) line(canvas *svg.SVG, vp viewport, a, b r3.Vector, style string) {
	ax, ay, _ := r.camera.Project(a)
	bx, by, _ := r.camera.Project(b)
	x1, y1 := vp.toScreen(ax, ay)
	x2, y2 := vp.toScreen(bx, by)
	canvas.Line(x1, y1, x2, y2, style)
}

// RGB formats a color with components in [0, 1] as an SVG rgb() value.
func RGB(c [3]float64) string {
	var b [3]int
	for i, v := range c {
		if math.IsNaN(v) {
			continue
		}
		b[i] = int(math.Round(255 * math.Max(0, math.Min(1, v))))
	}
	return fmt.Sprintf("rgb(%d,%d,%d)", b[0], b[1], b[2])
}

func scale(c [3]float64, s float64) [3]float64 {
	return [3]float64{c[0] * s, c[1] * s, c[2] * s}
}

func boxCorners(lo, hi r3.Vector) []r3.Vector {
	corners := make([]r3.Vector, 8)
	for i := range corners {
		p := lo
		if i&1 != 0 {
			p.X = hi.X
		}
		if i&2 != 0 {
			p.Y = hi.Y
		}
		if i&4 != 0 {
			p.Z = hi.Z
		}
		corners[i] = p
	}
	return corners
}

func get(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

func set(v *r3.Vector, axis int, value float64) {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
}
