// Package scene is a headless model of the trial renderer: layout
// normalization, camera framing, the rotation wiggle, picking and node
// colouring for one graph under one presentation condition.
package scene

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
)

// Layout and camera constants.
const (
	TargetSize  = 40.0
	NodeScale   = 10.0
	NodeRadius  = 0.8
	FieldOfView = 60.0

	DefaultWiggleInterval = 250 * time.Millisecond
	DefaultWidth          = 800
	DefaultHeight         = 600
)

var (
	// ErrDestroyed is returned by every operation on a destroyed viewer.
	ErrDestroyed = errors.New("viewer destroyed")
	// ErrControlsDisabled is returned by camera controls outside condition D.
	ErrControlsDisabled = errors.New("camera controls only available in condition D")
	// ErrInvalidViewport is returned for non-positive viewport sizes.
	ErrInvalidViewport = errors.New("viewport width and height must be positive")
)

// Options configure a Viewer.
type Options struct {
	Width  int
	Height int
	// SkipNormalization keeps authoring coordinates, multiplied by NodeScale.
	SkipNormalization bool
	// ScaleFactor multiplies TargetSize. Zero means 1.
	ScaleFactor    float64
	WiggleInterval time.Duration
	Scheduler      Scheduler
	Log            logrus.FieldLogger
}

// Viewer holds the full state of one rendered graph. All methods are safe
// for concurrent use; callbacks run without the viewer lock held.
type Viewer struct {
	mu sync.Mutex

	opts Options
	log  logrus.FieldLogger

	width, height int

	g     *graph.Graph
	base  map[int]r3.Vec // normalized positions before condition and wiggle
	order []int          // node ids in file order

	condition models.Condition
	offset    models.AxisOffset
	camera    Camera
	pivot     r3.Vec

	angle      float64
	wiggleSign float64
	paused     bool
	wiggle     Task
	wiggleGen  uint64

	start, target       int
	hasStart, hasTarget bool
	hovered             int
	hasHover            bool
	highlighted         map[int]bool
	selected            map[int]bool
	correct             map[int]bool

	onClick func(int)
	onHover func(int)

	destroyed bool
}

// New returns an empty viewer in condition B.
func New(opts Options) *Viewer {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}

	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	if opts.ScaleFactor <= 0 {
		opts.ScaleFactor = 1
	}

	if opts.WiggleInterval <= 0 {
		opts.WiggleInterval = DefaultWiggleInterval
	}

	if opts.Scheduler == nil {
		opts.Scheduler = TickerScheduler{}
	}

	if opts.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Log = l
	}

	v := &Viewer{
		opts:        opts,
		log:         opts.Log,
		width:       opts.Width,
		height:      opts.Height,
		condition:   models.ConditionB,
		wiggleSign:  1,
		highlighted: make(map[int]bool),
		selected:    make(map[int]bool),
		correct:     make(map[int]bool),
	}
	v.camera = defaultCamera(models.ConditionB, v.aspect())

	return v
}

func (v *Viewer) aspect() float64 {
	return float64(v.width) / float64(v.height)
}

// LoadGraph replaces the displayed graph and resets per-graph state.
func (v *Viewer) LoadGraph(g *graph.Graph) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrDestroyed
	}

	if g == nil {
		g = &graph.Graph{}
	}

	v.g = g
	v.order = v.order[:0]
	v.base = normalize(g, v.opts.SkipNormalization, TargetSize*v.opts.ScaleFactor)

	for _, n := range g.Nodes {
		v.order = append(v.order, n.ID)
	}

	if !g.Finite() {
		v.log.WithField("nodes", len(g.Nodes)).Warn("graph has non-finite coordinates; affected nodes are not drawn")
	}

	v.hasStart, v.hasTarget, v.hasHover = false, false, false
	clear(v.highlighted)
	clear(v.selected)
	clear(v.correct)

	v.refitLocked()

	v.log.WithFields(logrus.Fields{
		"nodes": len(g.Nodes),
		"edges": len(g.Edges),
	}).Debug("graph loaded")

	return nil
}

// SetCondition switches the presentation condition and pivot offset.
func (v *Viewer) SetCondition(c models.Condition, offset models.AxisOffset) error {
	if !c.Valid() {
		return models.ErrInvalidCondition
	}

	if !offset.Valid() {
		return models.ErrInvalidAxisOffset
	}

	v.mu.Lock()

	if v.destroyed {
		v.mu.Unlock()
		return ErrDestroyed
	}

	v.condition = c
	v.offset = offset
	v.camera = defaultCamera(c, v.aspect())
	v.refitLocked()

	stop := v.detachWiggleLocked()
	if c.Oscillates() && !v.paused {
		v.startWiggleLocked()
	}

	v.mu.Unlock()
	stop()

	return nil
}

// Condition returns the active condition.
func (v *Viewer) Condition() models.Condition {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.condition
}

// Camera returns a copy of the current camera.
func (v *Viewer) Camera() Camera {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.camera
}

// Pivot returns the current rotation pivot.
func (v *Viewer) Pivot() r3.Vec {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.pivot
}

// Resize changes the viewport and refits the camera.
func (v *Viewer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidViewport
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrDestroyed
	}

	v.width, v.height = width, height
	v.camera.Aspect = v.aspect()
	v.refitLocked()

	return nil
}

// Destroy stops the wiggle, drops callbacks and releases the graph. It
// returns once the wiggle task has exited. Later calls do nothing.
func (v *Viewer) Destroy() {
	v.mu.Lock()

	if v.destroyed {
		v.mu.Unlock()
		return
	}

	v.destroyed = true
	stop := v.detachWiggleLocked()
	v.onClick, v.onHover = nil, nil
	v.g, v.base, v.order = nil, nil, nil

	v.mu.Unlock()
	stop()
}

// Destroyed reports whether Destroy has been called.
func (v *Viewer) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.destroyed
}
