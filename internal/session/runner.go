package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/metrics"
	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/scene"
	"github.com/persistorai/depthcue/internal/scoring"
)

// DefaultCountdown is the delay between graph load and stimulus reveal.
const DefaultCountdown = 3 * time.Second

// practiceScale shrinks practice graphs to leave room for the feedback panel.
const practiceScale = 0.85

// ErrAlreadyAnswered is returned for a second committing action on one trial.
var ErrAlreadyAnswered = errors.New("trial already answered")

// GraphSource loads a graph file referenced by a trial. *graph.Library reads
// local files; the HTTP client fetches them from the collection service.
type GraphSource interface {
	Graph(ctx context.Context, file string) (*graph.Graph, error)
}

// RunnerOptions tune trial presentation.
type RunnerOptions struct {
	Countdown time.Duration
	Viewer    scene.Options
	Now       func() time.Time
}

// Runner presents one trial at a time on a fresh viewer.
type Runner struct {
	src    GraphSource
	scorer *scoring.Scorer
	opts   RunnerOptions
	log    logrus.FieldLogger
}

// NewRunner returns a Runner. A zero Countdown uses DefaultCountdown; a
// negative one disables it.
func NewRunner(src GraphSource, opts RunnerOptions, log logrus.FieldLogger) *Runner {
	if opts.Countdown == 0 {
		opts.Countdown = DefaultCountdown
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Viewer.Log == nil {
		opts.Viewer.Log = log
	}

	return &Runner{
		src:    src,
		scorer: &scoring.Scorer{Now: opts.Now},
		opts:   opts,
		log:    log,
	}
}

// Present loads the trial's graph, builds and colours the viewer, waits out
// the countdown and reveals the stimulus. The reaction clock starts at reveal.
func (r *Runner) Present(ctx context.Context, participantID string, t models.Trial) (*Presentation, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("trial %s: %w", t.TrialID, err)
	}

	g, err := r.src.Graph(ctx, t.GraphFile)
	if err != nil {
		return nil, fmt.Errorf("loading graph %s: %w", t.GraphFile, err)
	}

	vopts := r.opts.Viewer
	if t.IsPractice {
		vopts.ScaleFactor = practiceScale
	}

	v := scene.New(vopts)
	metrics.ActiveViewers.Inc()

	p := &Presentation{
		runner:        r,
		participantID: participantID,
		trial:         t,
		graph:         g,
		viewer:        v,
		sel:           scoring.NewSelection(t.Node1, t.Node2),
	}

	if err := p.setup(); err != nil {
		p.Close()
		return nil, err
	}

	if r.opts.Countdown > 0 {
		timer := time.NewTimer(r.opts.Countdown)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			p.Close()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	p.clock.Reveal(r.opts.Now())
	p.mu.Unlock()

	return p, nil
}

// Presentation is one trial on screen.
type Presentation struct {
	runner        *Runner
	participantID string
	trial         models.Trial
	graph         *graph.Graph

	mu      sync.Mutex
	viewer  *scene.Viewer
	sel     *scoring.Selection
	clock   scoring.ReactionClock
	outcome *scoring.Outcome
	closed  bool
}

func (p *Presentation) setup() error {
	v := p.viewer
	t := p.trial

	if err := v.LoadGraph(p.graph); err != nil {
		return err
	}

	if err := v.SetCondition(t.Condition, t.AxisOffset); err != nil {
		return err
	}

	for _, step := range []func() error{
		func() error { return v.SetStartNode(t.Node1) },
		func() error { return v.SetTargetNode(t.Node2) },
		func() error { return v.HighlightNode(t.Node1, true) },
		func() error { return v.HighlightNode(t.Node2, true) },
	} {
		if err := step(); err != nil {
			return err
		}
	}

	if t.Task == models.TaskB {
		v.OnNodeClick(func(id int) { _ = p.SelectNode(id) })
	}

	return nil
}

// Trial returns the trial being presented.
func (p *Presentation) Trial() models.Trial { return p.trial }

// Graph returns the stimulus graph.
func (p *Presentation) Graph() *graph.Graph { return p.graph }

// Viewer exposes the scene for pointer input and frames.
func (p *Presentation) Viewer() *scene.Viewer { return p.viewer }

// SelectNode toggles a node in the Task B selection. Input before reveal
// or after the answer is ignored.
func (p *Presentation) SelectNode(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.trial.Task != models.TaskB {
		return scoring.ErrWrongTask
	}

	if !p.clock.Revealed() || p.outcome != nil {
		return nil
	}

	p.sel.Toggle(id)

	return p.viewer.SetSelectedNodes(p.sel.IDs())
}

// Selected returns the current Task B selection.
func (p *Presentation) Selected() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.sel.IDs()
}

// Answer commits a Task A answer.
func (p *Presentation) Answer(a models.DistanceAnswer) (*scoring.Outcome, error) {
	return p.commit(func() (*scoring.Outcome, error) {
		return p.runner.scorer.TaskA(p.participantID, p.trial, p.graph, a, &p.clock)
	})
}

// Proceed commits the Task B selection.
func (p *Presentation) Proceed() (*scoring.Outcome, error) {
	return p.commit(func() (*scoring.Outcome, error) {
		return p.runner.scorer.TaskB(p.participantID, p.trial, p.graph, p.sel, &p.clock)
	})
}

func (p *Presentation) commit(score func() (*scoring.Outcome, error)) (*scoring.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outcome != nil {
		return nil, ErrAlreadyAnswered
	}

	if err := p.clock.Stop(p.runner.opts.Now()); err != nil {
		return nil, err
	}

	out, err := score()
	if err != nil {
		return nil, err
	}

	p.outcome = out

	if p.trial.IsPractice && p.trial.Task == models.TaskB {
		if err := p.viewer.SetCorrectAnswerNodes(graph.CommonNeighbors(p.graph, p.trial.Node1, p.trial.Node2)); err != nil {
			return nil, err
		}
	}

	if !p.trial.IsPractice {
		metrics.ReactionTime.WithLabelValues(string(out.Result.Task), string(out.Result.Condition)).
			Observe(float64(out.Result.ReactionTimeMS) / 1000)
	}

	p.runner.log.WithFields(logrus.Fields{
		"trial_id": p.trial.TrialID,
		"correct":  out.Result.Correct,
		"rt_ms":    out.Result.ReactionTimeMS,
		"practice": p.trial.IsPractice,
	}).Debug("trial answered")

	return out, nil
}

// Close destroys the viewer. It is safe to call more than once.
func (p *Presentation) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	p.closed = true
	p.mu.Unlock()

	p.viewer.Destroy()
	metrics.ActiveViewers.Dec()
}
