// Package scoring grades participant answers against graph ground truth and
// packages the result records.
package scoring

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
)

var (
	// ErrInvalidGroundTruth is returned for Task A pairs closer than two edges
	// or not connected at all. Such pairs must never reach a participant.
	ErrInvalidGroundTruth = errors.New("ground truth distance outside the graded range")
	// ErrWrongTask is returned when a trial is scored with the other task's scorer.
	ErrWrongTask = errors.New("trial belongs to a different task")
)

// ScoreTaskA grades a distance-class answer. Distance 2 must be answered
// "2"; any distance of 3 or more must be answered "3".
func ScoreTaskA(distance int, answer models.DistanceAnswer) (bool, error) {
	if distance < 2 {
		return false, fmt.Errorf("%w: %d", ErrInvalidGroundTruth, distance)
	}

	if !answer.Valid() {
		return false, models.ErrInvalidAnswer
	}

	return (distance == 2 && answer == models.AnswerTwo) ||
		(distance >= 3 && answer == models.AnswerThreeOrMore), nil
}

// ScoreTaskB is all-or-nothing: the selection must equal the truth as a set.
func ScoreTaskB(selected, truth []int) bool {
	a := slices.Clone(selected)
	b := slices.Clone(truth)

	slices.Sort(a)
	slices.Sort(b)

	return slices.Equal(slices.Compact(a), slices.Compact(b))
}

// Feedback is what a practice trial shows after the answer.
type Feedback struct {
	CorrectAnswer string `json:"correct_answer"`
	UserAnswer    string `json:"user_answer"`
	Correct       bool   `json:"correct"`
}

func distanceLabel(a models.DistanceAnswer) string {
	if a == models.AnswerTwo {
		return "2 edges"
	}

	return "3 or more edges"
}

func countLabel(n int) string {
	if n == 1 {
		return "1 node"
	}

	return fmt.Sprintf("%d nodes", n)
}

// Outcome is a scored trial.
type Outcome struct {
	Result   models.TrialResult `json:"result"`
	Feedback Feedback           `json:"feedback"`
}

// Scorer builds result records. Now stamps the result timestamp.
type Scorer struct {
	Now func() time.Time
}

// NewScorer returns a Scorer using the wall clock.
func NewScorer() *Scorer {
	return &Scorer{Now: time.Now}
}

func (s *Scorer) baseResult(participantID string, t models.Trial) models.TrialResult {
	return models.TrialResult{
		SubjectID:        participantID,
		Task:             t.Task,
		Condition:        t.Condition,
		AxisOffset:       t.AxisOffset,
		GraphFile:        t.GraphFile,
		TrialID:          t.TrialID,
		NodePairID:       t.NodePairID,
		SetID:            t.SetID,
		Node1:            t.Node1,
		Node2:            t.Node2,
		HighlightedNodes: []int{t.Node1, t.Node2},
		Timestamp:        s.Now().UTC(),
	}
}

// TaskA scores a distance answer. The clock must already be stopped.
func (s *Scorer) TaskA(participantID string, t models.Trial, g *graph.Graph, answer models.DistanceAnswer, clock *ReactionClock) (*Outcome, error) {
	if t.Task != models.TaskA {
		return nil, ErrWrongTask
	}

	rt, err := clock.Elapsed()
	if err != nil {
		return nil, err
	}

	dist := graph.ShortestPathDistance(g, t.Node1, t.Node2)

	correct, err := ScoreTaskA(dist, answer)
	if err != nil {
		return nil, fmt.Errorf("trial %s: %w", t.TrialID, err)
	}

	truth := models.AnswerTwo
	if dist >= 3 {
		truth = models.AnswerThreeOrMore
	}

	res := s.baseResult(participantID, t)
	res.Answer = string(answer)
	res.Correct = correct
	res.ReactionTimeMS = rt.Milliseconds()
	res.ClickCount = 1

	return &Outcome{
		Result: res,
		Feedback: Feedback{
			CorrectAnswer: distanceLabel(truth),
			UserAnswer:    distanceLabel(answer),
			Correct:       correct,
		},
	}, nil
}

// TaskB scores a common-neighbour selection. The clock must already be stopped.
func (s *Scorer) TaskB(participantID string, t models.Trial, g *graph.Graph, sel *Selection, clock *ReactionClock) (*Outcome, error) {
	if t.Task != models.TaskB {
		return nil, ErrWrongTask
	}

	rt, err := clock.Elapsed()
	if err != nil {
		return nil, err
	}

	truth := graph.CommonNeighbors(g, t.Node1, t.Node2)
	picked := sel.IDs()
	correct := ScoreTaskB(picked, truth)

	res := s.baseResult(participantID, t)
	res.Answer = models.JoinNodeIDs(picked)
	res.Correct = correct
	res.ReactionTimeMS = rt.Milliseconds()
	res.ClickCount = sel.Clicks()

	return &Outcome{
		Result: res,
		Feedback: Feedback{
			CorrectAnswer: countLabel(len(truth)),
			UserAnswer:    countLabel(len(picked)),
			Correct:       correct,
		},
	}, nil
}
