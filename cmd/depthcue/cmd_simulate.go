package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/depthcue/internal/counterbalance"
	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/recorder"
	"github.com/persistorai/depthcue/internal/scoring"
	"github.com/persistorai/depthcue/internal/session"
	"github.com/persistorai/depthcue/internal/trialset"
)

var errUnexpectedPhase = errors.New("simulated session stalled")

func newSimulateCmd() *cobra.Command {
	var (
		remote    bool
		submit    bool
		method    string
		strict    bool
		errorRate float64
		think     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate <participant-id>",
		Short: "Run a scripted participant through a full session",
		Long: `Drive the session state machine end to end with a scripted participant.
Every trial is presented on a headless viewer and answered from the graph's
ground truth, with --error-rate of the answers deliberately wrong. Records go
to the local backup and, with --submit, to the collection server.

Use it to pilot a trial set before running real participants.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger()

			if errorRate < 0 || errorRate > 1 {
				return fmt.Errorf("--error-rate must be between 0 and 1, got %g", errorRate)
			}

			planner, src, err := simulationSources(ctx, remote, counterbalance.Options{
				Method: counterbalance.Method(method),
				Strict: strict,
			}, log)
			if err != nil {
				return err
			}

			store, err := openBackup()
			if err != nil {
				return err
			}
			defer store.Close()

			clock := &simClock{now: time.Now().UTC()}

			var worker *recorder.SubmitWorker
			flush := func() {}
			if submit {
				worker = recorder.NewSubmitWorker(apiClient, log, recorder.WorkerOptions{RatePerSecond: -1})
				wctx, stop := context.WithCancel(ctx)
				done := make(chan struct{})
				go func() {
					worker.Run(wctx)
					close(done)
				}()
				flush = func() {
					stop()
					<-done
				}
			}

			rec := recorder.New(store, worker, log)
			rec.Now = clock.Now

			p := &pilot{
				runner:  session.NewRunner(src, session.RunnerOptions{Countdown: -1, Now: clock.Now}, log),
				clock:   clock,
				rng:     counterbalance.NewLCG(counterbalance.HashString(args[0])),
				errRate: errorRate,
				think:   think,
				log:     log,
			}

			data, err := p.run(ctx, session.NewController(planner, rec, log), args[0])
			// Queued submissions drain before the summary is printed.
			flush()
			if err != nil {
				return err
			}

			headers, rows := accuracyRows(data)
			output(data, data.ParticipantID, headers, rows)

			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the plan and graphs from the collection server")
	cmd.Flags().BoolVar(&submit, "submit", false, "Submit records to the collection server as well as the backup")
	cmd.Flags().StringVar(&method, "method", string(counterbalance.MethodLatinSquare), "Assignment method: latin-square|hash")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a trial has no resolvable set")
	cmd.Flags().Float64Var(&errorRate, "error-rate", 0.2, "Share of answers given wrong on purpose")
	cmd.Flags().DurationVar(&think, "think", 2*time.Second, "Mean simulated reaction time")

	return cmd
}

func simulationSources(
	ctx context.Context, remote bool, opts counterbalance.Options, log logrus.FieldLogger,
) (session.Planner, session.GraphSource, error) {
	if remote {
		planner := func(id string) (*counterbalance.Plan, error) { return apiClient.Plan(ctx, id) }
		return planner, apiClient, nil
	}

	def, err := trialset.ParseFile(flagTrialSet, log)
	if err != nil {
		return nil, nil, err
	}

	planner := func(id string) (*counterbalance.Plan, error) {
		return counterbalance.BuildPlan(def, id, opts, log)
	}

	return planner, graph.NewLibrary(flagGraphDir, log), nil
}

// simClock only moves when advanced, so reaction times are the scripted ones.
type simClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *simClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// pilot is the scripted participant.
type pilot struct {
	runner  *session.Runner
	clock   *simClock
	rng     *counterbalance.LCG
	errRate float64
	think   time.Duration
	log     logrus.FieldLogger
}

func (p *pilot) run(ctx context.Context, c *session.Controller, participantID string) (*models.ParticipantData, error) {
	for _, step := range []func() error{
		c.AcceptInfo,
		func() error { return c.Consent(true) },
		func() error { return c.Start(participantID) },
	} {
		if err := step(); err != nil {
			return nil, err
		}
	}

	for c.Phase() != session.PhaseSummary {
		if err := p.step(ctx, c); err != nil {
			return nil, err
		}
	}

	if c.Summary() == nil {
		return nil, fmt.Errorf("%w: no summary for %s", errUnexpectedPhase, participantID)
	}

	return c.Summary(), nil
}

func (p *pilot) step(ctx context.Context, c *session.Controller) error {
	switch c.Phase() {
	case session.PhaseInstructionA, session.PhaseInstructionB:
		return c.ContinueInstruction()
	case session.PhasePracticeA, session.PhasePracticeB:
		if t, ok := c.CurrentPractice(); ok {
			if _, err := p.answer(ctx, c.ParticipantID(), t); err != nil {
				// Practice graphs ship with the experiment, not every trial set.
				p.log.WithError(err).WithField("trial_id", t.TrialID).Warn("skipping practice trial")
			}
		}
		return c.CompletePractice()
	case session.PhaseReadyA, session.PhaseReadyB:
		return c.ContinueReady()
	case session.PhaseTrial:
		t, _ := c.CurrentTrial()
		out, err := p.answer(ctx, c.ParticipantID(), t)
		if err != nil {
			return err
		}
		return c.CompleteTrial(ctx, out.Result)
	case session.PhaseSurvey:
		return c.SubmitSurvey(ctx, models.SurveyResponse{Task: c.Task(), PreferredCondition: p.preference()})
	default:
		return fmt.Errorf("%w in %s", errUnexpectedPhase, c.Phase())
	}
}

func (p *pilot) answer(ctx context.Context, participantID string, t models.Trial) (*scoring.Outcome, error) {
	pres, err := p.runner.Present(ctx, participantID, t)
	if err != nil {
		return nil, err
	}
	defer pres.Close()

	p.clock.Advance(time.Duration(float64(p.think) * (0.5 + p.rng.Next())))
	wrong := p.rng.Next() < p.errRate
	g := pres.Graph()

	if t.Task == models.TaskA {
		a := models.AnswerThreeOrMore
		if graph.ShortestPathDistance(g, t.Node1, t.Node2) == 2 {
			a = models.AnswerTwo
		}
		if wrong {
			a = flip(a)
		}
		return pres.Answer(a)
	}

	for _, id := range p.selection(g, t, wrong) {
		if err := pres.SelectNode(id); err != nil {
			return nil, err
		}
	}

	return pres.Proceed()
}

// selection is the set of nodes a Task B answer clicks. A wrong answer
// drops one common neighbour, or adds a stray node when there are none.
func (p *pilot) selection(g *graph.Graph, t models.Trial, wrong bool) []int {
	truth := graph.CommonNeighbors(g, t.Node1, t.Node2)
	if !wrong {
		return truth
	}

	if len(truth) > 0 {
		return truth[1:]
	}

	for _, n := range g.Nodes {
		if n.ID != t.Node1 && n.ID != t.Node2 {
			return []int{n.ID}
		}
	}

	return nil
}

func (p *pilot) preference() models.Condition {
	i := int(p.rng.Next() * float64(len(models.Conditions)))
	return models.Conditions[min(i, len(models.Conditions)-1)]
}

func flip(a models.DistanceAnswer) models.DistanceAnswer {
	if a == models.AnswerTwo {
		return models.AnswerThreeOrMore
	}
	return models.AnswerTwo
}

func accuracyRows(d *models.ParticipantData) ([]string, [][]string) {
	headers := []string{"TASK", "TRIALS", "ACCURACY"}
	var rows [][]string
	for _, task := range []models.TaskType{models.TaskA, models.TaskB} {
		acc, n := d.Accuracy(task)
		rows = append(rows, []string{string(task), strconv.Itoa(n), strconv.FormatFloat(acc, 'f', 2, 64)})
	}
	return headers, rows
}
