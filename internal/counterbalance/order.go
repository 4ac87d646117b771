package counterbalance

import (
	"fmt"
	"math"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/trialset"
)

// Shuffle returns a Fisher-Yates permutation of trials driven by an LCG
// seeded with seed. The input is not modified.
func Shuffle(trials []models.Trial, seed int64) []models.Trial {
	out := slices.Clone(trials)
	rng := NewLCG(seed)

	for i := len(out) - 1; i > 0; i-- {
		j := int(math.Floor(rng.Next() * float64(i+1)))
		out[i], out[j] = out[j], out[i]
	}

	return out
}

// OrderTrials shuffles each task block independently and concatenates them,
// Task A first. Block A is seeded with the participant hash, block B with hash+1.
func OrderTrials(taskA, taskB []models.Trial, participantID string, log logrus.FieldLogger) []models.Trial {
	if len(taskA) == 0 || len(taskB) == 0 {
		log.WithFields(logrus.Fields{
			"participant_id": participantID,
			"task_a":         len(taskA),
			"task_b":         len(taskB),
		}).Warn("one or both task blocks have no trials")
	}

	seed := HashString(participantID)

	ordered := make([]models.Trial, 0, len(taskA)+len(taskB))
	ordered = append(ordered, Shuffle(taskA, seed)...)
	ordered = append(ordered, Shuffle(taskB, seed+1)...)

	return ordered
}

// Plan is a participant's full, immutable trial sequence.
type Plan struct {
	ParticipantID string             `json:"participant_id"`
	Method        Method             `json:"method"`
	PatternIndex  int                `json:"pattern_index"`
	Pattern       []models.Condition `json:"pattern"`
	Trials        []models.Trial     `json:"trials"`
	Excluded      []models.Trial     `json:"excluded,omitempty"`
}

// Block returns the trials of one task in presentation order.
func (p *Plan) Block(task models.TaskType) []models.Trial {
	var out []models.Trial

	for _, t := range p.Trials {
		if t.Task == task {
			out = append(out, t)
		}
	}

	return out
}

// BuildPlan assigns conditions (when the definition carries sets) and orders
// the trials for one participant. It is a pure function of its inputs.
func BuildPlan(def *trialset.Definition, participantID string, opts Options, log logrus.FieldLogger) (*Plan, error) {
	if participantID == "" {
		return nil, models.ErrMissingParticipantID
	}

	if opts.Method == "" {
		opts.Method = MethodLatinSquare
	}

	plan := &Plan{
		ParticipantID: participantID,
		Method:        opts.Method,
		PatternIndex:  PatternIndex(participantID),
		Pattern:       Pattern(participantID, opts.Method),
	}

	trials := def.Trials

	if def.Schema == trialset.SchemaLatinSquare || def.HasSets() {
		assigned, excluded, err := AssignConditions(def.Trials, participantID, opts, log)
		if err != nil {
			return nil, fmt.Errorf("assigning conditions: %w", err)
		}

		trials = assigned
		plan.Excluded = excluded
	}

	taskA, taskB := trialset.SplitByTask(trials)
	plan.Trials = OrderTrials(taskA, taskB, participantID, log)

	return plan, nil
}

// Assigner builds plans from one loaded trial-set definition. Its Plan
// method satisfies session.Planner.
type Assigner struct {
	Def  *trialset.Definition
	Opts Options
	Log  logrus.FieldLogger
}

// Plan builds the plan for participantID.
func (a *Assigner) Plan(participantID string) (*Plan, error) {
	return BuildPlan(a.Def, participantID, a.Opts, a.Log)
}
