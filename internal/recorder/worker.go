package recorder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/persistorai/depthcue/internal/metrics"
	"github.com/persistorai/depthcue/internal/models"
)

// Job kinds.
const (
	KindTrial    = "trial"
	KindSurvey   = "survey"
	KindComplete = "complete"
)

const (
	defaultQueueSize     = 1000
	defaultSubmitTimeout = 10 * time.Second
	defaultRateLimit     = 10.0
)

// Submitter delivers records to the collection service. *client.Client satisfies it.
type Submitter interface {
	SaveTrial(ctx context.Context, r *models.TrialResult) error
	SaveSurvey(ctx context.Context, participantID string, s *models.SurveyResponse) error
	CompleteExperiment(ctx context.Context, d *models.ParticipantData) error
}

// SubmitJob is one pending network submission.
type SubmitJob struct {
	ID            string
	Kind          string
	ParticipantID string
	Trial         *models.TrialResult
	Survey        *models.SurveyResponse
	Data          *models.ParticipantData
}

// WorkerOptions tune a SubmitWorker. Zero values use defaults.
type WorkerOptions struct {
	QueueSize int
	Timeout   time.Duration
	// RatePerSecond caps submissions per second. Negative disables limiting.
	RatePerSecond float64
}

// SubmitWorker buffers submissions and sends them via a single worker goroutine.
type SubmitWorker struct {
	sub     Submitter
	log     logrus.FieldLogger
	jobs    chan *SubmitJob
	timeout time.Duration
	limiter *rate.Limiter
}

// NewSubmitWorker creates a SubmitWorker.
func NewSubmitWorker(sub Submitter, log logrus.FieldLogger, opts WorkerOptions) *SubmitWorker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultSubmitTimeout
	}

	if opts.RatePerSecond == 0 {
		opts.RatePerSecond = defaultRateLimit
	}

	w := &SubmitWorker{
		sub:     sub,
		log:     log,
		jobs:    make(chan *SubmitJob, opts.QueueSize),
		timeout: opts.Timeout,
	}

	if opts.RatePerSecond > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	return w
}

// Enqueue adds a job. Non-blocking; drops the job if the queue is full.
func (w *SubmitWorker) Enqueue(job *SubmitJob) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	select {
	case w.jobs <- job:
		metrics.SubmitQueueDepth.Set(float64(len(w.jobs)))
	default:
		metrics.SubmitFailures.WithLabelValues(job.Kind, "queue_full").Inc()
		w.log.WithFields(logrus.Fields{
			"kind":           job.Kind,
			"participant_id": job.ParticipantID,
		}).Warn("submit queue full, dropping record")
	}
}

// Pending returns the number of queued jobs.
func (w *SubmitWorker) Pending() int { return len(w.jobs) }

// Run processes jobs until the context is cancelled, then drains remaining jobs.
func (w *SubmitWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case job := <-w.jobs:
			w.process(job)
		}
	}
}

func (w *SubmitWorker) drain() {
	for {
		select {
		case job := <-w.jobs:
			w.process(job)
		default:
			return
		}
	}
}

func (w *SubmitWorker) process(job *SubmitJob) {
	metrics.SubmitQueueDepth.Set(float64(len(w.jobs)))

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	log := w.log.WithFields(logrus.Fields{
		"job_id":         job.ID,
		"kind":           job.Kind,
		"participant_id": job.ParticipantID,
	})

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			metrics.SubmitFailures.WithLabelValues(job.Kind, "rate_limit").Inc()
			log.WithError(err).Warn("submit rate limit wait failed")

			return
		}
	}

	var err error

	switch job.Kind {
	case KindTrial:
		err = w.sub.SaveTrial(ctx, job.Trial)
	case KindSurvey:
		err = w.sub.SaveSurvey(ctx, job.ParticipantID, job.Survey)
	case KindComplete:
		err = w.sub.CompleteExperiment(ctx, job.Data)
	default:
		log.Warn("unknown submit kind")
		return
	}

	if err != nil {
		metrics.SubmitFailures.WithLabelValues(job.Kind, "error").Inc()
		log.WithError(err).Warn("submit failed, local backup retained")

		return
	}

	log.Debug("record submitted")
}
