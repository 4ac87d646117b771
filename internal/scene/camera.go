package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/persistorai/depthcue/internal/models"
)

// Projection is the camera projection kind.
type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

func (p Projection) String() string {
	if p == Orthographic {
		return "orthographic"
	}

	return "perspective"
}

const (
	defaultCameraZ    = 50.0
	defaultHalfHeight = 100.0
	minZoomDistance   = 1.0
	maxZoomDistance   = 1000.0
	maxElevation      = math.Pi/2 - 0.01
)

// Camera is a look-at camera. HalfHeight is only used by orthographic cameras.
type Camera struct {
	Projection Projection `json:"projection"`
	Position   r3.Vec     `json:"position"`
	Target     r3.Vec     `json:"target"`
	FOV        float64    `json:"fov"`
	HalfHeight float64    `json:"half_height,omitempty"`
	Aspect     float64    `json:"aspect"`
}

func defaultCamera(c models.Condition, aspect float64) Camera {
	cam := Camera{
		Projection: Perspective,
		Position:   r3.Vec{Z: defaultCameraZ},
		FOV:        FieldOfView,
		Aspect:     aspect,
	}

	if c == models.ConditionA {
		cam.Projection = Orthographic
		cam.HalfHeight = defaultHalfHeight
	}

	return cam
}

// basis returns the camera's forward, right and up unit vectors.
func (c Camera) basis() (fwd, right, up r3.Vec) {
	fwd = r3.Unit(r3.Sub(c.Target, c.Position))
	worldUp := r3.Vec{Y: 1}

	right = r3.Cross(fwd, worldUp)
	if r3.Norm(right) < 1e-9 {
		right = r3.Vec{X: 1}
	}

	right = r3.Unit(right)
	up = r3.Cross(right, fwd)

	return fwd, right, up
}

func (c Camera) tanHalf() float64 {
	return math.Tan(c.FOV / 2 * math.Pi / 180)
}

// Project maps a world point to pixel coordinates. depth is the distance
// along the view axis; ok is false for points behind a perspective camera.
func (c Camera) Project(p r3.Vec, width, height int) (x, y, depth float64, ok bool) {
	fwd, right, up := c.basis()
	d := r3.Sub(p, c.Position)
	depth = r3.Dot(d, fwd)

	var nx, ny float64

	if c.Projection == Orthographic {
		nx = r3.Dot(d, right) / (c.HalfHeight * c.Aspect)
		ny = r3.Dot(d, up) / c.HalfHeight
	} else {
		if depth <= 0 {
			return 0, 0, depth, false
		}

		t := c.tanHalf()
		nx = r3.Dot(d, right) / (depth * t * c.Aspect)
		ny = r3.Dot(d, up) / (depth * t)
	}

	x = (nx + 1) / 2 * float64(width)
	y = (1 - ny) / 2 * float64(height)

	return x, y, depth, true
}

// Ray returns the pick ray through pixel (px, py).
func (c Camera) Ray(px, py float64, width, height int) (origin, dir r3.Vec) {
	fwd, right, up := c.basis()
	nx := px/float64(width)*2 - 1
	ny := 1 - py/float64(height)*2

	if c.Projection == Orthographic {
		origin = r3.Add(c.Position, r3.Add(
			r3.Scale(nx*c.HalfHeight*c.Aspect, right),
			r3.Scale(ny*c.HalfHeight, up),
		))

		return origin, fwd
	}

	t := c.tanHalf()
	dir = r3.Unit(r3.Add(fwd, r3.Add(
		r3.Scale(nx*t*c.Aspect, right),
		r3.Scale(ny*t, up),
	)))

	return c.Position, dir
}

// meshScale is the distance-based node size factor of perspective views.
func (c Camera) meshScale(p r3.Vec) float64 {
	if c.Projection == Orthographic {
		return 1
	}

	dist := r3.Norm(r3.Sub(p, c.Position))
	if dist <= 0 {
		return 1.2
	}

	return math.Min(math.Max(40/dist, 0.8), 1.2)
}

func (v *Viewer) controlsLocked() error {
	if v.destroyed {
		return ErrDestroyed
	}

	if v.condition != models.ConditionD {
		return ErrControlsDisabled
	}

	return nil
}

// Orbit rotates the camera around its target by the given azimuth and
// elevation deltas in radians.
func (v *Viewer) Orbit(dAzimuth, dElevation float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.controlsLocked(); err != nil {
		return err
	}

	off := r3.Sub(v.camera.Position, v.camera.Target)
	dist := r3.Norm(off)

	az := math.Atan2(off.X, off.Z) + dAzimuth
	el := math.Asin(off.Y/dist) + dElevation
	el = math.Max(-maxElevation, math.Min(maxElevation, el))

	v.camera.Position = r3.Add(v.camera.Target, r3.Vec{
		X: dist * math.Cos(el) * math.Sin(az),
		Y: dist * math.Sin(el),
		Z: dist * math.Cos(el) * math.Cos(az),
	})

	return nil
}

// Zoom divides the camera distance by factor, within fixed limits.
func (v *Viewer) Zoom(factor float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.controlsLocked(); err != nil {
		return err
	}

	if factor <= 0 {
		return nil
	}

	off := r3.Sub(v.camera.Position, v.camera.Target)
	dist := math.Max(minZoomDistance, math.Min(maxZoomDistance, r3.Norm(off)/factor))
	v.camera.Position = r3.Add(v.camera.Target, r3.Scale(dist, r3.Unit(off)))

	return nil
}

// Pan translates camera and target along the view plane.
func (v *Viewer) Pan(dx, dy float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.controlsLocked(); err != nil {
		return err
	}

	_, right, up := v.camera.basis()
	delta := r3.Add(r3.Scale(dx, right), r3.Scale(dy, up))
	v.camera.Position = r3.Add(v.camera.Position, delta)
	v.camera.Target = r3.Add(v.camera.Target, delta)

	return nil
}
