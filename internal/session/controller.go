// Package session drives one participant through the experiment: phase
// transitions, practice and main trial blocks, surveys and completion.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/counterbalance"
	"github.com/persistorai/depthcue/internal/models"
)

// Phase names the active screen.
type Phase string

const (
	PhaseInfo             Phase = "experiment-info"
	PhaseConsent          Phase = "consent"
	PhaseParticipantInput Phase = "participant-input"
	PhaseInstructionA     Phase = "instruction-taskA"
	PhaseInstructionB     Phase = "instruction-taskB"
	PhasePracticeA        Phase = "practice-taskA"
	PhasePracticeB        Phase = "practice-taskB"
	PhaseReadyA           Phase = "ready-for-main-taskA"
	PhaseReadyB           Phase = "ready-for-main-taskB"
	PhaseTrial            Phase = "trial"
	PhaseSurvey           Phase = "survey"
	PhaseSummary          Phase = "summary"
)

var (
	// ErrWrongPhase is returned when an action does not belong to the active phase.
	ErrWrongPhase = errors.New("action not allowed in the current phase")
	// ErrConsentDeclined is returned when the participant does not agree; the phase is unchanged.
	ErrConsentDeclined = errors.New("consent declined")
	// ErrTrialMismatch is returned when a result does not belong to the current trial.
	ErrTrialMismatch = errors.New("result does not match the current trial")
)

// Planner builds the trial plan for a participant.
type Planner func(participantID string) (*counterbalance.Plan, error)

// Recorder persists session data. Implementations must not block on the network.
type Recorder interface {
	Begin(participantID string) error
	RecordTrial(ctx context.Context, r models.TrialResult) error
	RecordSurvey(ctx context.Context, s models.SurveyResponse) error
	Complete(ctx context.Context) (*models.ParticipantData, error)
}

// Controller is the phase state machine. It is not safe for concurrent use.
type Controller struct {
	planner Planner
	rec     Recorder
	log     logrus.FieldLogger

	phase         Phase
	task          models.TaskType
	participantID string
	plan          *counterbalance.Plan

	practice    []models.Trial
	practiceIdx int
	block       []models.Trial
	trialIdx    int

	summary *models.ParticipantData
}

// NewController returns a controller on the experiment-info screen.
func NewController(planner Planner, rec Recorder, log logrus.FieldLogger) *Controller {
	return &Controller{planner: planner, rec: rec, log: log, phase: PhaseInfo}
}

// Phase returns the active phase.
func (c *Controller) Phase() Phase { return c.phase }

// Task returns the task of the active block.
func (c *Controller) Task() models.TaskType { return c.task }

// ParticipantID returns the id given to Start.
func (c *Controller) ParticipantID() string { return c.participantID }

// Plan returns the participant's plan, or nil before Start.
func (c *Controller) Plan() *counterbalance.Plan { return c.plan }

// Summary returns the finalised data once the summary phase is reached.
func (c *Controller) Summary() *models.ParticipantData { return c.summary }

// CurrentTrial returns the main trial being presented.
func (c *Controller) CurrentTrial() (models.Trial, bool) {
	if c.phase != PhaseTrial || c.trialIdx >= len(c.block) {
		return models.Trial{}, false
	}

	return c.block[c.trialIdx], true
}

// CurrentPractice returns the practice trial being presented.
func (c *Controller) CurrentPractice() (models.Trial, bool) {
	if (c.phase != PhasePracticeA && c.phase != PhasePracticeB) || c.practiceIdx >= len(c.practice) {
		return models.Trial{}, false
	}

	return c.practice[c.practiceIdx], true
}

// Progress returns the 1-based position and size of the active block.
func (c *Controller) Progress() (int, int) {
	switch c.phase {
	case PhasePracticeA, PhasePracticeB:
		return c.practiceIdx + 1, len(c.practice)
	case PhaseTrial:
		return c.trialIdx + 1, len(c.block)
	default:
		return 0, 0
	}
}

func (c *Controller) expect(p Phase) error {
	if c.phase != p {
		return fmt.Errorf("%w: in %s, want %s", ErrWrongPhase, c.phase, p)
	}

	return nil
}

func (c *Controller) transition(p Phase) {
	c.log.WithFields(logrus.Fields{
		"participant_id": c.participantID,
		"from":           c.phase,
		"to":             p,
		"task":           c.task,
	}).Debug("phase transition")

	c.phase = p
}

func instructionPhase(t models.TaskType) Phase {
	if t == models.TaskA {
		return PhaseInstructionA
	}

	return PhaseInstructionB
}

func practicePhase(t models.TaskType) Phase {
	if t == models.TaskA {
		return PhasePracticeA
	}

	return PhasePracticeB
}

func readyPhase(t models.TaskType) Phase {
	if t == models.TaskA {
		return PhaseReadyA
	}

	return PhaseReadyB
}

// AcceptInfo leaves the information screen.
func (c *Controller) AcceptInfo() error {
	if err := c.expect(PhaseInfo); err != nil {
		return err
	}

	c.transition(PhaseConsent)

	return nil
}

// Consent records the consent decision. Declining keeps the consent screen.
func (c *Controller) Consent(agree bool) error {
	if err := c.expect(PhaseConsent); err != nil {
		return err
	}

	if !agree {
		return ErrConsentDeclined
	}

	c.transition(PhaseParticipantInput)

	return nil
}

// Start builds the plan for participantID and opens the Task A instructions.
// The plan is fixed for the rest of the session.
func (c *Controller) Start(participantID string) error {
	if err := c.expect(PhaseParticipantInput); err != nil {
		return err
	}

	if participantID == "" {
		return models.ErrMissingParticipantID
	}

	plan, err := c.planner(participantID)
	if err != nil {
		return fmt.Errorf("building plan: %w", err)
	}

	if err := c.rec.Begin(participantID); err != nil {
		return fmt.Errorf("starting recorder: %w", err)
	}

	c.participantID = participantID
	c.plan = plan
	c.task = models.TaskA

	c.log.WithFields(logrus.Fields{
		"participant_id": participantID,
		"pattern_index":  plan.PatternIndex,
		"trials":         len(plan.Trials),
		"excluded":       len(plan.Excluded),
	}).Info("session started")

	c.transition(PhaseInstructionA)

	return nil
}

// ContinueInstruction starts the practice block of the current task.
func (c *Controller) ContinueInstruction() error {
	if err := c.expect(instructionPhase(c.task)); err != nil {
		return err
	}

	c.practice = PracticeTrials(c.task)
	c.practiceIdx = 0
	c.transition(practicePhase(c.task))

	return nil
}

// CompletePractice advances past the current practice trial. Practice
// outcomes are never recorded.
func (c *Controller) CompletePractice() error {
	if err := c.expect(practicePhase(c.task)); err != nil {
		return err
	}

	c.practiceIdx++
	if c.practiceIdx >= len(c.practice) {
		c.transition(readyPhase(c.task))
	}

	return nil
}

// ContinueReady starts the main block. An empty block goes straight to the survey.
func (c *Controller) ContinueReady() error {
	if err := c.expect(readyPhase(c.task)); err != nil {
		return err
	}

	c.block = c.plan.Block(c.task)
	c.trialIdx = 0

	if len(c.block) == 0 {
		c.log.WithField("task", c.task).Warn("no main trials for task")
		c.transition(PhaseSurvey)

		return nil
	}

	c.transition(PhaseTrial)

	return nil
}

// CompleteTrial records the result of the current main trial and moves on.
// Recording failures are logged; they never stop the session.
func (c *Controller) CompleteTrial(ctx context.Context, r models.TrialResult) error {
	cur, ok := c.CurrentTrial()
	if !ok {
		return fmt.Errorf("%w: in %s, want %s", ErrWrongPhase, c.phase, PhaseTrial)
	}

	if r.TrialID != cur.TrialID {
		return fmt.Errorf("%w: got %s, current %s", ErrTrialMismatch, r.TrialID, cur.TrialID)
	}

	r.SubjectID = c.participantID

	if err := c.rec.RecordTrial(ctx, r); err != nil {
		c.log.WithFields(logrus.Fields{
			"participant_id": c.participantID,
			"trial_id":       r.TrialID,
		}).WithError(err).Error("recording trial result")
	}

	c.trialIdx++
	if c.trialIdx >= len(c.block) {
		c.transition(PhaseSurvey)
	}

	return nil
}

// SubmitSurvey records the block survey, then opens Task B or finishes.
func (c *Controller) SubmitSurvey(ctx context.Context, s models.SurveyResponse) error {
	if err := c.expect(PhaseSurvey); err != nil {
		return err
	}

	if err := s.Validate(); err != nil {
		return err
	}

	if s.Task != c.task {
		return fmt.Errorf("%w: survey for task %s during task %s", models.ErrInvalidTask, s.Task, c.task)
	}

	if err := c.rec.RecordSurvey(ctx, s); err != nil {
		c.log.WithField("participant_id", c.participantID).WithError(err).Error("recording survey")
	}

	if c.task == models.TaskA && len(c.plan.Block(models.TaskB)) > 0 {
		c.task = models.TaskB
		c.transition(PhaseInstructionB)

		return nil
	}

	data, err := c.rec.Complete(ctx)
	if err != nil {
		c.log.WithField("participant_id", c.participantID).WithError(err).Error("completing session")
	}

	c.summary = data
	c.transition(PhaseSummary)

	return nil
}
