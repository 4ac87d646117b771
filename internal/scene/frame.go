package scene

import (
	"github.com/persistorai/depthcue/internal/models"
)

// NodeView is one drawn node in screen space.
type NodeView struct {
	ID      int     `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Depth   float64 `json:"depth"`
	Radius  float64 `json:"radius"`
	Scale   float64 `json:"scale"`
	Color   Color   `json:"color"`
	Visible bool    `json:"visible"`
}

// EdgeView is one drawn edge in screen space.
type EdgeView struct {
	From int     `json:"from"`
	To   int     `json:"to"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
}

// Frame is a projected snapshot of the scene.
type Frame struct {
	Condition  models.Condition  `json:"condition"`
	AxisOffset models.AxisOffset `json:"axis_offset"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Camera     Camera            `json:"camera"`
	Angle      float64           `json:"angle"`
	Nodes      []NodeView        `json:"nodes"`
	Edges      []EdgeView        `json:"edges"`
}

// Frame projects the current state. Nodes with non-finite positions or
// behind the camera are reported invisible; edges touching them are omitted.
func (v *Viewer) Frame() (*Frame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return nil, ErrDestroyed
	}

	f := &Frame{
		Condition:  v.condition,
		AxisOffset: v.offset,
		Width:      v.width,
		Height:     v.height,
		Camera:     v.camera,
		Angle:      v.angle,
		Nodes:      make([]NodeView, 0, len(v.order)),
	}

	if v.g == nil {
		return f, nil
	}

	world := v.worldLocked()
	visible := make(map[int]NodeView, len(v.order))

	for _, id := range v.order {
		p := world[id]
		nv := NodeView{ID: id, Color: v.colorLocked(id)}

		if finite(p) {
			x, y, depth, ok := v.camera.Project(p, v.width, v.height)
			nv.X, nv.Y, nv.Depth, nv.Visible = x, y, depth, ok
			nv.Scale = v.camera.meshScale(p)
			nv.Radius = NodeRadius * nv.Scale
		}

		if nv.Visible {
			visible[id] = nv
		}

		f.Nodes = append(f.Nodes, nv)
	}

	for _, e := range v.g.Edges {
		a, okA := visible[e.From]
		b, okB := visible[e.To]

		if !okA || !okB {
			continue
		}

		f.Edges = append(f.Edges, EdgeView{From: e.From, To: e.To, X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y})
	}

	return f, nil
}

// Positions returns the drawn world positions keyed by node id.
func (v *Viewer) Positions() map[int][3]float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[int][3]float64, len(v.base))
	for id, p := range v.worldLocked() {
		out[id] = [3]float64{p.X, p.Y, p.Z}
	}

	return out
}
