// Package recorder logs experiment results: every record is written to the
// local backup first, then queued for delivery to the collection service.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/metrics"
	"github.com/persistorai/depthcue/internal/models"
)

// ErrNotStarted is returned when a record arrives before Begin.
var ErrNotStarted = errors.New("recorder has no active participant")

// Backup stores the whole participant aggregate. *backup.Store satisfies it.
type Backup interface {
	Save(ctx context.Context, data *models.ParticipantData) error
}

// Recorder keeps the running ParticipantData for one session.
type Recorder struct {
	mu     sync.Mutex
	data   *models.ParticipantData
	backup Backup
	worker *SubmitWorker
	log    logrus.FieldLogger

	// Now is the clock used for start, end and survey timestamps.
	Now func() time.Time
}

// New creates a Recorder. A nil worker keeps records local only.
func New(backup Backup, worker *SubmitWorker, log logrus.FieldLogger) *Recorder {
	return &Recorder{
		backup: backup,
		worker: worker,
		log:    log,
		Now:    time.Now,
	}
}

// Begin starts a fresh aggregate for participantID and writes the first backup.
func (r *Recorder) Begin(participantID string) error {
	if participantID == "" {
		return models.ErrMissingParticipantID
	}

	r.mu.Lock()
	r.data = models.NewParticipantData(participantID, r.Now().UTC())
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.save(context.Background(), snap)

	return nil
}

// RecordTrial appends a main-trial result, backs it up and queues it.
func (r *Recorder) RecordTrial(ctx context.Context, res models.TrialResult) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("trial %s: %w", res.TrialID, err)
	}

	res.HighlightedNodes = slices.Clone(res.HighlightedNodes)

	r.mu.Lock()
	if r.data == nil {
		r.mu.Unlock()
		return ErrNotStarted
	}

	if err := r.data.AppendTrial(res); err != nil {
		r.mu.Unlock()
		return err
	}

	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.save(ctx, snap)
	metrics.TrialsRecorded.WithLabelValues(string(res.Task), string(res.Condition)).Inc()
	r.enqueue(&SubmitJob{Kind: KindTrial, ParticipantID: res.SubjectID, Trial: &res})

	return nil
}

// RecordSurvey appends a survey response, backs it up and queues it.
func (r *Recorder) RecordSurvey(ctx context.Context, s models.SurveyResponse) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.data == nil {
		r.mu.Unlock()
		return ErrNotStarted
	}

	if s.Timestamp.IsZero() {
		s.Timestamp = r.Now().UTC()
	}

	if err := r.data.AppendSurvey(s); err != nil {
		r.mu.Unlock()
		return err
	}

	pid := r.data.ParticipantID
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.save(ctx, snap)
	metrics.SurveysRecorded.Inc()
	r.enqueue(&SubmitJob{Kind: KindSurvey, ParticipantID: pid, Survey: &s})

	return nil
}

// Complete sets the end time, backs up and queues the final aggregate.
func (r *Recorder) Complete(ctx context.Context) (*models.ParticipantData, error) {
	r.mu.Lock()
	if r.data == nil {
		r.mu.Unlock()
		return nil, ErrNotStarted
	}

	if err := r.data.Complete(r.Now().UTC()); err != nil {
		r.mu.Unlock()
		return nil, err
	}

	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.save(ctx, snap)
	metrics.SessionsCompleted.Inc()
	r.enqueue(&SubmitJob{Kind: KindComplete, ParticipantID: snap.ParticipantID, Data: snap})

	r.log.WithFields(logrus.Fields{
		"participant_id": snap.ParticipantID,
		"trials":         len(snap.Trials),
		"surveys":        len(snap.TaskSurveys),
	}).Info("session completed")

	return Snapshot(snap), nil
}

// Data returns a copy of the current aggregate, or nil before Begin.
func (r *Recorder) Data() *models.ParticipantData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil {
		return nil
	}

	return r.snapshotLocked()
}

func (r *Recorder) snapshotLocked() *models.ParticipantData {
	return Snapshot(r.data)
}

// Snapshot deep-copies a ParticipantData.
func Snapshot(d *models.ParticipantData) *models.ParticipantData {
	out := *d
	out.Trials = make([]models.TrialResult, len(d.Trials))

	for i, t := range d.Trials {
		t.HighlightedNodes = slices.Clone(t.HighlightedNodes)
		if t.SetID != nil {
			set := *t.SetID
			t.SetID = &set
		}

		out.Trials[i] = t
	}

	out.TaskSurveys = slices.Clone(d.TaskSurveys)
	if out.TaskSurveys == nil {
		out.TaskSurveys = []models.SurveyResponse{}
	}

	if d.EndTime != nil {
		end := *d.EndTime
		out.EndTime = &end
	}

	return &out
}

// save writes the backup. Failures are logged and counted, never returned.
func (r *Recorder) save(ctx context.Context, snap *models.ParticipantData) {
	if r.backup == nil {
		return
	}

	if err := r.backup.Save(ctx, snap); err != nil {
		metrics.BackupFailures.Inc()
		r.log.WithError(err).WithField("participant_id", snap.ParticipantID).Warn("local backup failed")
	}
}

func (r *Recorder) enqueue(job *SubmitJob) {
	if r.worker == nil {
		return
	}

	r.worker.Enqueue(job)
}
