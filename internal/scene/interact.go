package scene

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Color is a 24-bit RGB value.
type Color uint32

// Node colours.
const (
	ColorDefault     Color = 0x000000
	ColorStart       Color = 0x00ff00
	ColorTarget      Color = 0x0000ff
	ColorHighlighted Color = 0x00ff00
	ColorCorrect     Color = 0x0000ff
	ColorSelected    Color = 0xffaa00
	ColorHovered     Color = 0xff0000
)

// String renders the colour as #rrggbb.
func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for #rrggbb values.
func (c *Color) UnmarshalText(b []byte) error {
	v, err := strconv.ParseUint(strings.TrimPrefix(string(b), "#"), 16, 32)
	if err != nil {
		return fmt.Errorf("parsing colour %q: %w", b, err)
	}

	*c = Color(v)

	return nil
}

// colorLocked derives a node's colour from state: hovered, start, target,
// highlighted or practice answer, selected, then default.
func (v *Viewer) colorLocked(id int) Color {
	switch {
	case v.hasHover && v.hovered == id:
		return ColorHovered
	case v.hasStart && v.start == id:
		return ColorStart
	case v.hasTarget && v.target == id:
		return ColorTarget
	case v.highlighted[id]:
		return ColorHighlighted
	case v.correct[id]:
		return ColorCorrect
	case v.selected[id]:
		return ColorSelected
	default:
		return ColorDefault
	}
}

// NodeColor returns the current colour of a node.
func (v *Viewer) NodeColor(id int) Color {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.colorLocked(id)
}

func (v *Viewer) hasNodeLocked(id int) bool {
	_, ok := v.base[id]
	return ok
}

// SetStartNode marks the start node of the pair.
func (v *Viewer) SetStartNode(id int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrDestroyed
	}

	v.start, v.hasStart = id, v.hasNodeLocked(id)

	return nil
}

// SetTargetNode marks the target node of the pair.
func (v *Viewer) SetTargetNode(id int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrDestroyed
	}

	v.target, v.hasTarget = id, v.hasNodeLocked(id)

	return nil
}

// HighlightNode toggles the highlight of one node.
func (v *Viewer) HighlightNode(id int, on bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrDestroyed
	}

	if on {
		v.highlighted[id] = true
	} else {
		delete(v.highlighted, id)
	}

	return nil
}

func replaceSet(dst map[int]bool, ids []int) {
	clear(dst)

	for _, id := range ids {
		dst[id] = true
	}
}

// SetSelectedNodes replaces the Task B selection.
func (v *Viewer) SetSelectedNodes(ids []int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrDestroyed
	}

	replaceSet(v.selected, ids)

	return nil
}

// SetCorrectAnswerNodes marks the nodes revealed as correct in practice feedback.
func (v *Viewer) SetCorrectAnswerNodes(ids []int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrDestroyed
	}

	replaceSet(v.correct, ids)

	return nil
}

// OnNodeClick registers the click callback, replacing any previous one.
func (v *Viewer) OnNodeClick(fn func(id int)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.destroyed {
		v.onClick = fn
	}
}

// OnNodeHover registers the hover callback, replacing any previous one.
func (v *Viewer) OnNodeHover(fn func(id int)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.destroyed {
		v.onHover = fn
	}
}

// raySphere returns the nearest non-negative hit distance.
func raySphere(origin, dir, center r3.Vec, radius float64) (float64, bool) {
	oc := r3.Sub(origin, center)
	b := r3.Dot(oc, dir)
	c := r3.Dot(oc, oc) - radius*radius

	disc := b*b - c
	if disc < 0 {
		return 0, false
	}

	sq := math.Sqrt(disc)

	t := -b - sq
	if t < 0 {
		t = -b + sq
	}

	if t < 0 {
		return 0, false
	}

	return t, true
}

// pickLocked returns the nearest node under pixel (px, py).
func (v *Viewer) pickLocked(px, py float64) (int, bool) {
	if v.base == nil {
		return 0, false
	}

	origin, dir := v.camera.Ray(px, py, v.width, v.height)
	world := v.worldLocked()

	var (
		best    int
		bestT   = math.Inf(1)
		hitSome bool
	)

	for _, id := range v.order {
		p := world[id]
		if !finite(p) {
			continue
		}

		t, ok := raySphere(origin, dir, p, NodeRadius*v.camera.meshScale(p))
		if ok && t < bestT {
			best, bestT, hitSome = id, t, true
		}
	}

	return best, hitSome
}

// Pick returns the node under a pixel without side effects.
func (v *Viewer) Pick(px, py float64) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return 0, false
	}

	return v.pickLocked(px, py)
}

// Click hit-tests the pixel and calls the click callback for a hit.
func (v *Viewer) Click(px, py float64) (int, bool) {
	v.mu.Lock()

	if v.destroyed {
		v.mu.Unlock()
		return 0, false
	}

	id, ok := v.pickLocked(px, py)
	cb := v.onClick

	v.mu.Unlock()

	if ok && cb != nil {
		cb(id)
	}

	return id, ok
}

// Hover moves the hover highlight to the node under the pixel, clearing it
// when nothing is hit. The hover callback fires when a new node is entered.
func (v *Viewer) Hover(px, py float64) (int, bool) {
	v.mu.Lock()

	if v.destroyed {
		v.mu.Unlock()
		return 0, false
	}

	id, ok := v.pickLocked(px, py)
	entered := ok && (!v.hasHover || v.hovered != id)
	v.hovered, v.hasHover = id, ok
	cb := v.onHover

	v.mu.Unlock()

	if entered && cb != nil {
		cb(id)
	}

	return id, ok
}

// Leave clears the hover highlight.
func (v *Viewer) Leave() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.hasHover = false
}
