// Package counterbalance maps participant identifiers to Latin-square
// condition assignments and reproducible trial orders.
package counterbalance

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/trialset"
)

// Method selects how sets are mapped to conditions.
type Method string

const (
	// MethodLatinSquare balances conditions across every four participants.
	MethodLatinSquare Method = "latin-square"
	// MethodRandom uses a per-participant seeded permutation of the four conditions.
	MethodRandom Method = "random"
)

// ErrSetOutOfRange is returned for set ids outside 1-4.
var ErrSetOutOfRange = errors.New("set id must be between 1 and 4")

// LatinSquare is the fixed 4x4 pattern table. Row = pattern index, column = set id - 1.
var LatinSquare = [4][4]models.Condition{
	{models.ConditionA, models.ConditionB, models.ConditionC, models.ConditionD},
	{models.ConditionB, models.ConditionC, models.ConditionD, models.ConditionA},
	{models.ConditionC, models.ConditionD, models.ConditionA, models.ConditionB},
	{models.ConditionD, models.ConditionA, models.ConditionB, models.ConditionC},
}

// Options tune condition assignment.
type Options struct {
	Method Method
	// Strict fails the whole assignment when a trial's set cannot be resolved
	// instead of excluding that trial.
	Strict bool
}

// Pattern returns the condition for each of the four sets for a participant.
func Pattern(participantID string, method Method) []models.Condition {
	if method == MethodRandom {
		pattern := slices.Clone(models.Conditions)
		rng := NewLCG(HashString(participantID) + 2)

		for i := len(pattern) - 1; i > 0; i-- {
			j := int(math.Floor(rng.Next() * float64(i+1)))
			pattern[i], pattern[j] = pattern[j], pattern[i]
		}

		return pattern
	}

	row := LatinSquare[PatternIndex(participantID)]

	return row[:]
}

// ConditionFor looks up the condition of a set in a pattern.
func ConditionFor(pattern []models.Condition, setID int) (models.Condition, error) {
	if setID < 1 || setID > len(pattern) {
		return "", fmt.Errorf("%w: got %d", ErrSetOutOfRange, setID)
	}

	return pattern[setID-1], nil
}

// AssignConditions gives every trial the condition of its set. Trials whose
// set cannot be resolved are returned as excluded, or abort the call in strict mode.
func AssignConditions(
	trials []models.Trial,
	participantID string,
	opts Options,
	log logrus.FieldLogger,
) (assigned, excluded []models.Trial, err error) {
	pattern := Pattern(participantID, opts.Method)
	assigned = make([]models.Trial, 0, len(trials))

	for _, t := range trials {
		set, err := trialset.ResolveSet(t.SetID, t.NodePairID)
		if err == nil {
			var cond models.Condition

			cond, err = ConditionFor(pattern, set)
			if err == nil {
				assigned = append(assigned, t.WithSet(set).WithCondition(cond))

				continue
			}
		}

		if opts.Strict {
			return nil, nil, fmt.Errorf("trial %s: %w", t.TrialID, err)
		}

		log.WithFields(logrus.Fields{
			"trial_id":     t.TrialID,
			"node_pair_id": t.NodePairID,
		}).WithError(err).Warn("excluding trial without a usable set")

		excluded = append(excluded, t)
	}

	return assigned, excluded, nil
}
