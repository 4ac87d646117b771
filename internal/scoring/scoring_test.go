package scoring_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/scoring"
)

func TestScoreTaskA(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dist   int
		answer models.DistanceAnswer
		want   bool
	}{
		{2, models.AnswerTwo, true},
		{2, models.AnswerThreeOrMore, false},
		{3, models.AnswerTwo, false},
		{3, models.AnswerThreeOrMore, true},
		{5, models.AnswerThreeOrMore, true},
		{5, models.AnswerTwo, false},
	}

	for _, tt := range tests {
		got, err := scoring.ScoreTaskA(tt.dist, tt.answer)
		if err != nil {
			t.Fatalf("ScoreTaskA(%d, %s): %v", tt.dist, tt.answer, err)
		}

		if got != tt.want {
			t.Errorf("ScoreTaskA(%d, %s) = %v, want %v", tt.dist, tt.answer, got, tt.want)
		}
	}
}

func TestScoreTaskA_RejectsUngradedDistances(t *testing.T) {
	t.Parallel()

	for _, d := range []int{graph.NoPath, 0, 1} {
		for _, a := range []models.DistanceAnswer{models.AnswerTwo, models.AnswerThreeOrMore} {
			if _, err := scoring.ScoreTaskA(d, a); !errors.Is(err, scoring.ErrInvalidGroundTruth) {
				t.Errorf("ScoreTaskA(%d, %s) err = %v, want ErrInvalidGroundTruth", d, a, err)
			}
		}
	}

	if _, err := scoring.ScoreTaskA(2, "4"); !errors.Is(err, models.ErrInvalidAnswer) {
		t.Errorf("err = %v, want ErrInvalidAnswer", err)
	}
}

func TestScoreTaskB(t *testing.T) {
	t.Parallel()

	truth := []int{2, 3}

	tests := []struct {
		selected []int
		want     bool
	}{
		{[]int{2, 3}, true},
		{[]int{3, 2}, true},
		{[]int{2}, false},
		{[]int{2, 3, 5}, false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := scoring.ScoreTaskB(tt.selected, truth); got != tt.want {
			t.Errorf("ScoreTaskB(%v) = %v, want %v", tt.selected, got, tt.want)
		}
	}

	if !scoring.ScoreTaskB(nil, nil) {
		t.Error("empty selection against empty truth should be correct")
	}
}

func TestSelection(t *testing.T) {
	t.Parallel()

	s := scoring.NewSelection(1, 4)

	if s.Toggle(1) {
		t.Error("pair node was selectable")
	}

	s.Toggle(3)
	s.Toggle(2)
	s.Toggle(5)
	s.Toggle(5)

	if got := s.IDs(); !slices.Equal(got, []int{2, 3}) {
		t.Errorf("IDs = %v, want [2 3]", got)
	}

	if s.Clicks() != 5 {
		t.Errorf("clicks = %d, want 5", s.Clicks())
	}
}

func TestReactionClock(t *testing.T) {
	t.Parallel()

	var c scoring.ReactionClock
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := c.Stop(t0); !errors.Is(err, scoring.ErrNotRevealed) {
		t.Fatalf("Stop before reveal err = %v", err)
	}

	c.Reveal(t0)
	c.Reveal(t0.Add(time.Second))

	if _, err := c.Elapsed(); !errors.Is(err, scoring.ErrNotStopped) {
		t.Errorf("Elapsed while running err = %v", err)
	}

	if err := c.Stop(t0.Add(1500 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	if err := c.Stop(t0.Add(9 * time.Second)); err != nil {
		t.Fatal(err)
	}

	if got, _ := c.Elapsed(); got != 1500*time.Millisecond {
		t.Errorf("elapsed = %v, want 1.5s", got)
	}
}

func diamond() *graph.Graph {
	return &graph.Graph{
		Nodes: []graph.Node{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}},
		Edges: []graph.Edge{{From: 1, To: 2}, {From: 1, To: 3}, {From: 4, To: 2}, {From: 4, To: 3}, {From: 4, To: 5}},
	}
}

func stoppedClock(rt time.Duration) *scoring.ReactionClock {
	var c scoring.ReactionClock

	t0 := time.Unix(1_700_000_000, 0)
	c.Reveal(t0)
	_ = c.Stop(t0.Add(rt))

	return &c
}

func fixedScorer() *scoring.Scorer {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &scoring.Scorer{Now: func() time.Time { return ts }}
}

func TestScorer_TaskA(t *testing.T) {
	t.Parallel()

	trial := models.Trial{
		TrialID:    "a1",
		Task:       models.TaskA,
		GraphFile:  "g.csv",
		Condition:  models.ConditionC,
		AxisOffset: 1,
		Node1:      1,
		Node2:      5,
	}.WithSet(2)

	out, err := fixedScorer().TaskA("P01", trial, diamond(), models.AnswerTwo, stoppedClock(1234*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	r := out.Result
	if r.Correct {
		t.Error("distance 3 answered 2 graded correct")
	}

	if r.SubjectID != "P01" || r.Answer != "2" || r.ClickCount != 1 || r.ReactionTimeMS != 1234 {
		t.Errorf("unexpected result %+v", r)
	}

	if !slices.Equal(r.HighlightedNodes, []int{1, 5}) || *r.SetID != 2 || r.AxisOffset != 1 {
		t.Errorf("trial metadata not echoed: %+v", r)
	}

	if out.Feedback.CorrectAnswer != "3 or more edges" || out.Feedback.UserAnswer != "2 edges" {
		t.Errorf("feedback = %+v", out.Feedback)
	}
}

func TestScorer_TaskARejectsAdjacentPair(t *testing.T) {
	t.Parallel()

	trial := models.Trial{TrialID: "a2", Task: models.TaskA, GraphFile: "g", Node1: 1, Node2: 2}

	_, err := fixedScorer().TaskA("P01", trial, diamond(), models.AnswerTwo, stoppedClock(time.Second))
	if !errors.Is(err, scoring.ErrInvalidGroundTruth) {
		t.Errorf("err = %v, want ErrInvalidGroundTruth", err)
	}
}

func TestScorer_TaskB(t *testing.T) {
	t.Parallel()

	trial := models.Trial{TrialID: "b1", Task: models.TaskB, GraphFile: "g", Condition: models.ConditionA, Node1: 1, Node2: 4}

	sel := scoring.NewSelection(1, 4)
	sel.Toggle(3)
	sel.Toggle(4)
	sel.Toggle(2)

	out, err := fixedScorer().TaskB("P01", trial, diamond(), sel, stoppedClock(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}

	if !out.Result.Correct || out.Result.Answer != "2,3" || out.Result.ClickCount != 3 {
		t.Errorf("unexpected result %+v", out.Result)
	}

	if out.Feedback.CorrectAnswer != "2 nodes" {
		t.Errorf("feedback = %+v", out.Feedback)
	}

	if _, err := fixedScorer().TaskA("P01", trial, diamond(), models.AnswerTwo, stoppedClock(time.Second)); !errors.Is(err, scoring.ErrWrongTask) {
		t.Errorf("err = %v, want ErrWrongTask", err)
	}
}

func TestScorer_RequiresStoppedClock(t *testing.T) {
	t.Parallel()

	trial := models.Trial{TrialID: "b1", Task: models.TaskB, GraphFile: "g", Node1: 1, Node2: 4}

	var c scoring.ReactionClock
	if _, err := fixedScorer().TaskB("P01", trial, diamond(), scoring.NewSelection(1, 4), &c); !errors.Is(err, scoring.ErrNotRevealed) {
		t.Errorf("err = %v, want ErrNotRevealed", err)
	}
}
