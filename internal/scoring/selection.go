package scoring

import (
	"errors"
	"slices"
	"time"
)

// Selection is the Task B toggle set. The two nodes of the pair cannot be
// selected, but clicks on them still count.
type Selection struct {
	node1, node2 int
	picked       map[int]bool
	clicks       int
}

// NewSelection returns an empty selection for the pair (node1, node2).
func NewSelection(node1, node2 int) *Selection {
	return &Selection{node1: node1, node2: node2, picked: make(map[int]bool)}
}

// Toggle flips id in or out of the selection and counts the click. It
// reports whether the selection changed.
func (s *Selection) Toggle(id int) bool {
	s.clicks++

	if s.picked[id] {
		delete(s.picked, id)
		return true
	}

	if id == s.node1 || id == s.node2 {
		return false
	}

	s.picked[id] = true

	return true
}

// IDs returns the selection in ascending order.
func (s *Selection) IDs() []int {
	ids := make([]int, 0, len(s.picked))
	for id := range s.picked {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Clicks returns every toggle attempt so far.
func (s *Selection) Clicks() int { return s.clicks }

var (
	// ErrNotRevealed is returned when the clock is read before the stimulus was shown.
	ErrNotRevealed = errors.New("stimulus not revealed yet")
	// ErrNotStopped is returned when the clock is read before the committing action.
	ErrNotStopped = errors.New("reaction clock still running")
)

// ReactionClock measures from stimulus reveal to the committing action.
// Only the first Reveal and the first Stop count.
type ReactionClock struct {
	revealed, stopped time.Time
}

// Reveal starts the clock.
func (c *ReactionClock) Reveal(at time.Time) {
	if c.revealed.IsZero() {
		c.revealed = at
	}
}

// Revealed reports whether the stimulus is visible.
func (c *ReactionClock) Revealed() bool { return !c.revealed.IsZero() }

// Stop freezes the clock at the committing action.
func (c *ReactionClock) Stop(at time.Time) error {
	if c.revealed.IsZero() {
		return ErrNotRevealed
	}

	if c.stopped.IsZero() {
		c.stopped = at
	}

	return nil
}

// Elapsed returns the reaction time of a stopped clock.
func (c *ReactionClock) Elapsed() (time.Duration, error) {
	if c.revealed.IsZero() {
		return 0, ErrNotRevealed
	}

	if c.stopped.IsZero() {
		return 0, ErrNotStopped
	}

	return max(c.stopped.Sub(c.revealed), 0), nil
}
