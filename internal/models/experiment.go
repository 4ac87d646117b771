// Package models defines the data types shared by the experiment engine,
// the result recorder and the collection service.
package models

import (
	"slices"
	"strconv"
	"strings"
)

// TaskType identifies one of the two judgment tasks.
type TaskType string

const (
	// TaskA is shortest-path distance classification.
	TaskA TaskType = "A"
	// TaskB is common-neighbour selection.
	TaskB TaskType = "B"
)

// Valid reports whether t is a known task.
func (t TaskType) Valid() bool { return t == TaskA || t == TaskB }

// Condition is one of the four presentation modes.
type Condition string

const (
	ConditionA Condition = "A" // 2D orthographic
	ConditionB Condition = "B" // fixed 3D
	ConditionC Condition = "C" // small-rotation 3D
	ConditionD Condition = "D" // large-rotation 3D with free orbit
)

// Conditions lists every condition in label order.
var Conditions = []Condition{ConditionA, ConditionB, ConditionC, ConditionD}

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool { return slices.Contains(Conditions, c) }

// Oscillates reports whether the condition runs the wiggle animation.
func (c Condition) Oscillates() bool { return c == ConditionC || c == ConditionD }

// AxisOffset moves the rotation pivot along the depth axis when set to 1.
type AxisOffset int

// Valid reports whether a is 0 or 1.
func (a AxisOffset) Valid() bool { return a == 0 || a == 1 }

// DistanceAnswer is the coarse distance class chosen in Task A.
type DistanceAnswer string

const (
	AnswerTwo         DistanceAnswer = "2"
	AnswerThreeOrMore DistanceAnswer = "3"
)

// Valid reports whether d is one of the two classes.
func (d DistanceAnswer) Valid() bool { return d == AnswerTwo || d == AnswerThreeOrMore }

// Trial is one presentation unit. Values are copied, never shared.
type Trial struct {
	TrialID    string     `json:"trial_id"`
	Task       TaskType   `json:"task"`
	GraphFile  string     `json:"graph_file"`
	Condition  Condition  `json:"condition,omitempty"`
	AxisOffset AxisOffset `json:"axis_offset"`
	Node1      int        `json:"node1"`
	Node2      int        `json:"node2"`
	NodePairID string     `json:"node_pair_id,omitempty"`
	SetID      *int       `json:"set_id,omitempty"`
	IsPractice bool       `json:"is_practice,omitempty"`
}

// WithCondition returns a copy of t carrying condition c.
func (t Trial) WithCondition(c Condition) Trial {
	t.Condition = c
	return t
}

// WithSet returns a copy of t carrying set id n.
func (t Trial) WithSet(n int) Trial {
	t.SetID = &n
	return t
}

// Set returns the set id and whether one is present.
func (t Trial) Set() (int, bool) {
	if t.SetID == nil {
		return 0, false
	}

	return *t.SetID, true
}

// Validate checks the fields every trial needs before it can be presented.
func (t Trial) Validate() error {
	if t.TrialID == "" {
		return ErrMissingTrialID
	}

	if !t.Task.Valid() {
		return ErrInvalidTask
	}

	if t.GraphFile == "" {
		return ErrMissingGraphFile
	}

	if t.Condition != "" && !t.Condition.Valid() {
		return ErrInvalidCondition
	}

	if !t.AxisOffset.Valid() {
		return ErrInvalidAxisOffset
	}

	return nil
}

// JoinNodeIDs renders ids as an ascending comma-separated list.
func JoinNodeIDs(ids []int) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}

	return strings.Join(parts, ",")
}
