package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
)

const (
	fitPadding        = 1.05
	minCameraDistance = 18.0
	pivotOffsetZ      = 20.0
)

func finite(p r3.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsNaN(p.Z) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) && !math.IsInf(p.Z, 0)
}

// bounds returns the bounding box of the finite points, and false when there are none.
func bounds(pts map[int]r3.Vec) (r3.Box, bool) {
	var (
		box   r3.Box
		found bool
	)

	for _, p := range pts {
		if !finite(p) {
			continue
		}

		if !found {
			box = r3.Box{Min: p, Max: p}
			found = true

			continue
		}

		box.Min = r3.Vec{X: math.Min(box.Min.X, p.X), Y: math.Min(box.Min.Y, p.Y), Z: math.Min(box.Min.Z, p.Z)}
		box.Max = r3.Vec{X: math.Max(box.Max.X, p.X), Y: math.Max(box.Max.Y, p.Y), Z: math.Max(box.Max.Z, p.Z)}
	}

	return box, found
}

// normalize centres the layout on its bounding-box midpoint and scales it so
// the largest extent equals size. Non-finite nodes keep their position and
// are excluded from the bounds.
func normalize(g *graph.Graph, skip bool, size float64) map[int]r3.Vec {
	out := make(map[int]r3.Vec, len(g.Nodes))

	for _, n := range g.Nodes {
		out[n.ID] = r3.Vec{X: n.X, Y: n.Y, Z: n.Z}
	}

	if skip {
		for id, p := range out {
			out[id] = r3.Scale(NodeScale, p)
		}

		return out
	}

	box, ok := bounds(out)
	if !ok {
		return out
	}

	mid := r3.Scale(0.5, r3.Add(box.Min, box.Max))
	ext := r3.Sub(box.Max, box.Min)

	scale := 1.0
	if largest := math.Max(ext.X, math.Max(ext.Y, ext.Z)); largest > 0 {
		scale = size / largest
	}

	for id, p := range out {
		if finite(p) {
			out[id] = r3.Scale(scale, r3.Sub(p, mid))
		}
	}

	return out
}

// restLocked returns the positions for the active condition before any wiggle.
func (v *Viewer) restLocked() map[int]r3.Vec {
	out := make(map[int]r3.Vec, len(v.base))

	for id, p := range v.base {
		if v.condition == models.ConditionA {
			p.Z = 0
		}

		out[id] = p
	}

	return out
}

// worldLocked returns the drawn positions with the wiggle applied.
func (v *Viewer) worldLocked() map[int]r3.Vec {
	pts := v.restLocked()
	if v.angle == 0 {
		return pts
	}

	axis := r3.Vec{Y: 1}

	for id, p := range pts {
		if finite(p) {
			pts[id] = r3.Add(v.pivot, r3.Rotate(r3.Sub(p, v.pivot), v.angle, axis))
		}
	}

	return pts
}

func centroid(pts map[int]r3.Vec) (r3.Vec, int) {
	var (
		sum r3.Vec
		n   int
	)

	for _, p := range pts {
		if finite(p) {
			sum = r3.Add(sum, p)
			n++
		}
	}

	if n == 0 {
		return r3.Vec{}, 0
	}

	return r3.Scale(1/float64(n), sum), n
}

// refitLocked recomputes the pivot and frames the camera on the rest
// positions. With no finite nodes the previous fit is kept.
func (v *Viewer) refitLocked() {
	pts := v.restLocked()

	c, n := centroid(pts)
	if n == 0 {
		return
	}

	v.pivot = c
	if v.offset == 1 {
		v.pivot.Z += pivotOffsetZ
	}

	radius := 0.0
	for _, p := range pts {
		if finite(p) {
			radius = math.Max(radius, r3.Norm(r3.Sub(p, c)))
		}
	}

	radius += NodeRadius

	v.camera.Target = c
	v.camera.Aspect = v.aspect()

	if v.camera.Projection == Orthographic {
		v.camera.HalfHeight = math.Max(radius*fitPadding, 1)
		v.camera.Position = r3.Add(c, r3.Vec{Z: defaultCameraZ})

		return
	}

	half := FieldOfView / 2 * math.Pi / 180
	dist := math.Max(radius*2*fitPadding/(2*math.Tan(half)), minCameraDistance)
	v.camera.Position = r3.Add(c, r3.Vec{Z: dist})
}
