package scene_test

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/scene"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

type fakeTask struct {
	fn      func()
	every   time.Duration
	stopped bool
}

func (t *fakeTask) Stop() { t.stopped = true }

// fakeScheduler records tasks and runs them only when Tick is called.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

func (s *fakeScheduler) Every(d time.Duration, fn func()) scene.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &fakeTask{fn: fn, every: d}
	s.tasks = append(s.tasks, t)

	return t
}

func (s *fakeScheduler) Tick() {
	s.mu.Lock()
	live := make([]*fakeTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.mu.Unlock()

	for _, t := range live {
		t.fn()
	}
}

func (s *fakeScheduler) running() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}

	return n
}

func newViewer(t *testing.T, sched scene.Scheduler) *scene.Viewer {
	t.Helper()

	v := scene.New(scene.Options{Width: 800, Height: 600, Scheduler: sched, Log: testLogger()})
	t.Cleanup(v.Destroy)

	return v
}

func boxGraph() *graph.Graph {
	return &graph.Graph{
		Nodes: []graph.Node{
			{ID: 0, X: 0, Y: 0, Z: 0},
			{ID: 1, X: 2, Y: 0, Z: 0},
			{ID: 2, X: 0, Y: 1, Z: 0},
			{ID: 3, X: 2, Y: 1, Z: 0.5},
		},
		Edges: []graph.Edge{{From: 0, To: 1}, {From: 1, To: 3}, {From: 2, To: 3}},
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNormalization(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})
	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	pos := v.Positions()
	want := map[int][3]float64{
		0: {-20, -10, -5},
		1: {20, -10, -5},
		2: {-20, 10, -5},
		3: {20, 10, 5},
	}

	for id, w := range want {
		p := pos[id]
		if !near(p[0], w[0]) || !near(p[1], w[1]) || !near(p[2], w[2]) {
			t.Errorf("node %d = %v, want %v", id, p, w)
		}
	}
}

func TestNormalization_Idempotent(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})
	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	first := v.Positions()

	again := &graph.Graph{}
	for _, id := range []int{0, 1, 2, 3} {
		p := first[id]
		again.Nodes = append(again.Nodes, graph.Node{ID: id, X: p[0], Y: p[1], Z: p[2]})
	}

	if err := v.LoadGraph(again); err != nil {
		t.Fatal(err)
	}

	for id, p := range v.Positions() {
		q := first[id]
		if !near(p[0], q[0]) || !near(p[1], q[1]) || !near(p[2], q[2]) {
			t.Errorf("node %d moved from %v to %v", id, q, p)
		}
	}
}

func TestSkipNormalization(t *testing.T) {
	t.Parallel()

	v := scene.New(scene.Options{SkipNormalization: true, Scheduler: &fakeScheduler{}, Log: testLogger()})
	defer v.Destroy()

	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	if p := v.Positions()[3]; !near(p[0], 20) || !near(p[1], 10) || !near(p[2], 5) {
		t.Errorf("node 3 = %v, want authoring coordinates x10", p)
	}
}

func TestNonFiniteNodesIgnoredForBounds(t *testing.T) {
	t.Parallel()

	g := boxGraph()
	g.Nodes = append(g.Nodes, graph.Node{ID: 9, X: math.NaN(), Y: 1000, Z: 1000})

	v := newViewer(t, &fakeScheduler{})
	if err := v.LoadGraph(g); err != nil {
		t.Fatal(err)
	}

	if p := v.Positions()[1]; !near(p[0], 20) {
		t.Errorf("non-finite node affected bounds: node 1 = %v", p)
	}

	f, err := v.Frame()
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range f.Nodes {
		if n.ID == 9 && n.Visible {
			t.Error("non-finite node reported visible")
		}
	}
}

func TestCondition2DIsFlatAndOrthographic(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})
	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	if err := v.SetCondition(models.ConditionA, 0); err != nil {
		t.Fatal(err)
	}

	for id, p := range v.Positions() {
		if p[2] != 0 {
			t.Errorf("node %d z = %v in 2D", id, p[2])
		}
	}

	cam := v.Camera()
	if cam.Projection != scene.Orthographic {
		t.Fatalf("projection = %v, want orthographic", cam.Projection)
	}

	// Farthest corner from the centroid (0,0) is sqrt(20^2+10^2) away.
	want := (math.Sqrt(500) + scene.NodeRadius) * 1.05
	if !near(cam.HalfHeight, want) {
		t.Errorf("half height = %v, want %v", cam.HalfHeight, want)
	}

	if v.Rotating() {
		t.Error("2D condition started the wiggle")
	}
}

func TestPerspectiveFit(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})

	g := &graph.Graph{Nodes: []graph.Node{{ID: 0}, {ID: 1, X: 1}}}
	if err := v.LoadGraph(g); err != nil {
		t.Fatal(err)
	}

	want := (20 + scene.NodeRadius) * 2 * 1.05 / (2 * math.Tan(math.Pi/6))
	if cam := v.Camera(); !near(cam.Position.Z, want) {
		t.Errorf("camera z = %v, want %v", cam.Position.Z, want)
	}

	tiny := &graph.Graph{Nodes: []graph.Node{{ID: 0}}}
	if err := v.LoadGraph(tiny); err != nil {
		t.Fatal(err)
	}

	if cam := v.Camera(); !near(cam.Position.Z, 18) {
		t.Errorf("camera z = %v, want the minimum distance 18", cam.Position.Z)
	}
}

func TestEmptyGraphKeepsLastFit(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})
	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	before := v.Camera()

	if err := v.LoadGraph(&graph.Graph{}); err != nil {
		t.Fatal(err)
	}

	if after := v.Camera(); after != before {
		t.Errorf("camera changed on empty graph: %+v -> %+v", before, after)
	}
}

func TestLoadNilGraph(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})
	before := v.Camera()

	if err := v.LoadGraph(nil); err != nil {
		t.Fatalf("LoadGraph(nil) = %v", err)
	}

	f, err := v.Frame()
	if err != nil {
		t.Fatal(err)
	}

	if len(f.Nodes) != 0 || len(f.Edges) != 0 {
		t.Errorf("nil graph drew %d nodes, %d edges", len(f.Nodes), len(f.Edges))
	}

	if after := v.Camera(); after != before {
		t.Errorf("camera changed on nil graph: %+v -> %+v", before, after)
	}
}

func TestPivotOffset(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})
	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	if err := v.SetCondition(models.ConditionC, 0); err != nil {
		t.Fatal(err)
	}
	base := v.Pivot()

	if err := v.SetCondition(models.ConditionC, 1); err != nil {
		t.Fatal(err)
	}

	if got := v.Pivot(); !near(got.Z-base.Z, 20) || !near(got.X, base.X) {
		t.Errorf("pivot = %v, want %v shifted +20 on z", got, base)
	}
}

func TestWiggleLifecycle(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	v := newViewer(t, sched)

	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	if err := v.SetCondition(models.ConditionC, 0); err != nil {
		t.Fatal(err)
	}

	if sched.running() != 1 || sched.tasks[0].every != scene.DefaultWiggleInterval {
		t.Fatalf("expected one task at the default interval, got %d", sched.running())
	}

	amp := 2 * math.Pi / 180

	sched.Tick()
	if !near(v.Angle(), amp) {
		t.Errorf("first tick angle = %v, want %v", v.Angle(), amp)
	}

	sched.Tick()
	if !near(v.Angle(), -amp) {
		t.Errorf("second tick angle = %v, want %v", v.Angle(), -amp)
	}

	stale := sched.tasks[0].fn

	if err := v.SetCondition(models.ConditionB, 0); err != nil {
		t.Fatal(err)
	}

	if sched.running() != 0 || v.Rotating() || v.Angle() != 0 {
		t.Fatal("switching to B did not stop the wiggle")
	}

	stale()
	if v.Angle() != 0 {
		t.Error("a stale tick moved the scene")
	}

	if err := v.SetCondition(models.ConditionD, 0); err != nil {
		t.Fatal(err)
	}

	sched.Tick()
	if !near(v.Angle(), 5*math.Pi/180) {
		t.Errorf("condition D angle = %v, want 5 degrees", v.Angle())
	}
}

func TestWiggleRotatesAboutPivot(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	v := newViewer(t, sched)

	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	if err := v.SetCondition(models.ConditionD, 1); err != nil {
		t.Fatal(err)
	}

	pivot := v.Pivot()
	rest := v.Positions()

	sched.Tick()

	for id, p := range v.Positions() {
		r := rest[id]
		d0 := r3.Norm(r3.Sub(r3.Vec{X: r[0], Y: r[1], Z: r[2]}, pivot))
		d1 := r3.Norm(r3.Sub(r3.Vec{X: p[0], Y: p[1], Z: p[2]}, pivot))

		if !near(d0, d1) || !near(p[1], r[1]) {
			t.Errorf("node %d not rotated about the pivot y axis: %v -> %v", id, r, p)
		}
	}
}

func TestPauseAndResume(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	v := newViewer(t, sched)

	if err := v.SetCondition(models.ConditionD, 0); err != nil {
		t.Fatal(err)
	}

	if err := v.PauseRotation(); err != nil {
		t.Fatal(err)
	}

	if err := v.SetCondition(models.ConditionC, 0); err != nil {
		t.Fatal(err)
	}

	if v.Rotating() {
		t.Fatal("paused viewer started rotating on condition change")
	}

	if err := v.ResumeRotation(); err != nil {
		t.Fatal(err)
	}

	if !v.Rotating() || sched.running() != 1 {
		t.Error("resume did not restart the wiggle")
	}

	if err := v.SetWiggleInterval(100 * time.Millisecond); err != nil {
		t.Fatal(err)
	}

	if sched.running() != 1 || sched.tasks[len(sched.tasks)-1].every != 100*time.Millisecond {
		t.Error("interval change did not restart the task")
	}
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	v := scene.New(scene.Options{Scheduler: sched, Log: testLogger()})

	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	if err := v.SetCondition(models.ConditionC, 0); err != nil {
		t.Fatal(err)
	}

	clicked := false
	v.OnNodeClick(func(int) { clicked = true })

	v.Destroy()
	v.Destroy()

	if sched.running() != 0 {
		t.Error("destroy left the wiggle running")
	}

	if _, ok := v.Click(400, 300); ok || clicked {
		t.Error("click reached a destroyed viewer")
	}

	if _, err := v.Frame(); !errors.Is(err, scene.ErrDestroyed) {
		t.Errorf("Frame err = %v, want ErrDestroyed", err)
	}

	if err := v.SetCondition(models.ConditionD, 0); !errors.Is(err, scene.ErrDestroyed) {
		t.Errorf("SetCondition err = %v, want ErrDestroyed", err)
	}
}

func TestDestroyWithRealTicker(t *testing.T) {
	t.Parallel()

	v := scene.New(scene.Options{WiggleInterval: time.Millisecond, Log: testLogger()})

	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	if err := v.SetCondition(models.ConditionD, 0); err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	v.Destroy()

	if v.Angle() != 0 {
		t.Errorf("angle = %v after destroy", v.Angle())
	}

	time.Sleep(5 * time.Millisecond)

	if v.Angle() != 0 {
		t.Error("a tick ran after destroy returned")
	}
}

func TestClickNearestHitWins(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})

	// Two nodes on the view axis, 40 units apart in depth after normalization.
	g := &graph.Graph{Nodes: []graph.Node{{ID: 1}, {ID: 2, Z: 1}}}
	if err := v.LoadGraph(g); err != nil {
		t.Fatal(err)
	}

	var got []int
	v.OnNodeClick(func(id int) { got = append(got, id) })

	if id, ok := v.Click(400, 300); !ok || id != 2 {
		t.Errorf("Click centre = %d, %v; want the nearer node 2", id, ok)
	}

	if _, ok := v.Click(1, 1); ok {
		t.Error("corner click hit a node")
	}

	if len(got) != 1 || got[0] != 2 {
		t.Errorf("callback calls = %v, want [2]", got)
	}
}

func TestClickAtProjectedPosition(t *testing.T) {
	t.Parallel()

	for _, c := range []models.Condition{models.ConditionA, models.ConditionB} {
		v := newViewer(t, &fakeScheduler{})
		if err := v.LoadGraph(boxGraph()); err != nil {
			t.Fatal(err)
		}

		if err := v.SetCondition(c, 0); err != nil {
			t.Fatal(err)
		}

		f, err := v.Frame()
		if err != nil {
			t.Fatal(err)
		}

		for _, n := range f.Nodes {
			if id, ok := v.Pick(n.X, n.Y); !ok || id != n.ID {
				t.Errorf("condition %s: pick at node %d screen position got %d, %v", c, n.ID, id, ok)
			}
		}

		if len(f.Edges) != 3 {
			t.Errorf("condition %s: edges = %d, want 3", c, len(f.Edges))
		}
	}
}

func TestColourPriority(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})
	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	if err := v.SetSelectedNodes([]int{0, 1, 2}); err != nil {
		t.Fatal(err)
	}

	if got := v.NodeColor(2); got != scene.ColorSelected {
		t.Errorf("selected colour = %v", got)
	}

	if err := v.SetTargetNode(1); err != nil {
		t.Fatal(err)
	}

	if err := v.SetStartNode(0); err != nil {
		t.Fatal(err)
	}

	if err := v.SetCorrectAnswerNodes([]int{2}); err != nil {
		t.Fatal(err)
	}

	if got := v.NodeColor(0); got != scene.ColorStart {
		t.Errorf("start over selected = %v", got)
	}

	if got := v.NodeColor(1); got != scene.ColorTarget {
		t.Errorf("target over selected = %v", got)
	}

	if got := v.NodeColor(2); got != scene.ColorCorrect {
		t.Errorf("correct answer over selected = %v", got)
	}

	f, err := v.Frame()
	if err != nil {
		t.Fatal(err)
	}

	var hovered int
	v.OnNodeHover(func(id int) { hovered = id })

	start := f.Nodes[0]
	if id, ok := v.Hover(start.X, start.Y); !ok || id != 0 {
		t.Fatalf("hover = %d, %v", id, ok)
	}

	if got := v.NodeColor(0); got != scene.ColorHovered || hovered != 0 {
		t.Errorf("hovered colour = %v, callback id %d", got, hovered)
	}

	v.Leave()

	if got := v.NodeColor(0); got != scene.ColorStart {
		t.Errorf("after leave colour = %v, want start colour restored", got)
	}

	// Highlight sits between target and selected.
	if err := v.SetSelectedNodes([]int{0, 1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	if err := v.HighlightNode(3, true); err != nil {
		t.Fatal(err)
	}

	if got := v.NodeColor(3); got != scene.ColorHighlighted {
		t.Errorf("highlighted over selected = %v", got)
	}

	var plain scene.NodeView
	for _, n := range f.Nodes {
		if n.ID == 3 {
			plain = n
		}
	}

	if id, ok := v.Hover(plain.X, plain.Y); !ok || id != 3 {
		t.Fatalf("hover = %d, %v", id, ok)
	}

	if got := v.NodeColor(3); got != scene.ColorHovered {
		t.Errorf("hovered over highlighted = %v", got)
	}

	v.Leave()

	if got := v.NodeColor(3); got != scene.ColorHighlighted {
		t.Errorf("after leave colour = %v, want highlight restored", got)
	}

	if err := v.HighlightNode(3, false); err != nil {
		t.Fatal(err)
	}

	if got := v.NodeColor(3); got != scene.ColorSelected {
		t.Errorf("after unhighlight colour = %v, want selected", got)
	}
}

func TestCameraControlsOnlyInConditionD(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})
	if err := v.LoadGraph(boxGraph()); err != nil {
		t.Fatal(err)
	}

	for _, c := range []models.Condition{models.ConditionA, models.ConditionB, models.ConditionC} {
		if err := v.SetCondition(c, 0); err != nil {
			t.Fatal(err)
		}

		if err := v.Orbit(0.1, 0); !errors.Is(err, scene.ErrControlsDisabled) {
			t.Errorf("condition %s Orbit err = %v", c, err)
		}
	}

	if err := v.SetCondition(models.ConditionD, 0); err != nil {
		t.Fatal(err)
	}

	cam := v.Camera()
	dist := r3.Norm(r3.Sub(cam.Position, cam.Target))

	if err := v.Orbit(math.Pi/2, 0.2); err != nil {
		t.Fatal(err)
	}

	cam = v.Camera()
	if got := r3.Norm(r3.Sub(cam.Position, cam.Target)); !near(got, dist) {
		t.Errorf("orbit changed distance %v -> %v", dist, got)
	}

	if err := v.Zoom(2); err != nil {
		t.Fatal(err)
	}

	cam = v.Camera()
	if got := r3.Norm(r3.Sub(cam.Position, cam.Target)); !near(got, dist/2) {
		t.Errorf("zoom distance = %v, want %v", got, dist/2)
	}

	if err := v.Pan(1, 0); err != nil {
		t.Fatal(err)
	}
}

func TestResize(t *testing.T) {
	t.Parallel()

	v := newViewer(t, &fakeScheduler{})

	if err := v.Resize(0, 10); !errors.Is(err, scene.ErrInvalidViewport) {
		t.Errorf("err = %v, want ErrInvalidViewport", err)
	}

	if err := v.Resize(1000, 500); err != nil {
		t.Fatal(err)
	}

	if got := v.Camera().Aspect; got != 2 {
		t.Errorf("aspect = %v, want 2", got)
	}
}
