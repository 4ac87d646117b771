package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/metrics"
	"github.com/persistorai/depthcue/internal/middleware"
	"github.com/persistorai/depthcue/internal/models"
)

// ResultHandler serves the result collection and read-back endpoints.
type ResultHandler struct {
	results  ResultRepository
	surveys  SurveyRepository
	sessions SessionRepository
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewResultHandler creates a ResultHandler with the given repositories and logger.
func NewResultHandler(results ResultRepository, surveys SurveyRepository, sessions SessionRepository, log logrus.FieldLogger) *ResultHandler {
	return &ResultHandler{results: results, surveys: surveys, sessions: sessions, log: log, now: time.Now}
}

// SaveTrial handles POST /api/v1/trials. A trial already stored for the same
// participant answers 200 instead of 201 so clients can resubmit safely.
func (h *ResultHandler) SaveTrial(c *gin.Context) {
	var req models.TrialResult
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	if req.Timestamp.IsZero() {
		req.Timestamp = h.now().UTC()
	}

	created, err := h.results.SaveTrial(c.Request.Context(), &req)
	if err != nil {
		middleware.Logger(c, h.log).WithError(err).WithField("participant_id", req.SubjectID).Error("saving trial")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		metrics.TrialsRecorded.WithLabelValues(string(req.Task), string(req.Condition)).Inc()
	}

	middleware.Logger(c, h.log).WithFields(logrus.Fields{
		"action":         "trial.save",
		"participant_id": req.SubjectID,
		"trial_id":       req.TrialID,
		"created":        created,
	}).Info("audit")

	c.JSON(status, gin.H{"success": true, "created": created, "trial_id": req.TrialID})
}

// SaveSurvey handles POST /api/v1/surveys.
func (h *ResultHandler) SaveSurvey(c *gin.Context) {
	var req models.SaveSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	if req.SurveyResponse.Timestamp.IsZero() {
		req.SurveyResponse.Timestamp = h.now().UTC()
	}

	if err := h.surveys.SaveSurvey(c.Request.Context(), req.ParticipantID, req.SurveyResponse); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			respondError(c, http.StatusConflict, ErrCodeConflict, "survey for this task already recorded")

			return
		}

		middleware.Logger(c, h.log).WithError(err).WithField("participant_id", req.ParticipantID).Error("saving survey")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	metrics.SurveysRecorded.Inc()

	middleware.Logger(c, h.log).WithFields(logrus.Fields{
		"action":         "survey.save",
		"participant_id": req.ParticipantID,
		"task":           req.SurveyResponse.Task,
	}).Info("audit")

	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// Complete handles POST /api/v1/complete. Trials and surveys in the aggregate
// that never arrived individually are stored as part of the completion.
func (h *ResultHandler) Complete(c *gin.Context) {
	var req models.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	d := &req.ParticipantData

	for i := range d.Trials {
		if d.Trials[i].SubjectID == "" {
			d.Trials[i].SubjectID = d.ParticipantID
		}

		if d.Trials[i].SubjectID != d.ParticipantID {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, "trial "+strconv.Itoa(i)+" belongs to another participant")

			return
		}

		if err := d.Trials[i].Validate(); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, "trial "+strconv.Itoa(i)+": "+err.Error())

			return
		}
	}

	for i := range d.TaskSurveys {
		if err := d.TaskSurveys[i].Validate(); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, "survey "+strconv.Itoa(i)+": "+err.Error())

			return
		}
	}

	if d.StartTime.IsZero() {
		d.StartTime = h.now().UTC()
	}

	if d.EndTime == nil {
		end := h.now().UTC()
		d.EndTime = &end
	}

	res, err := h.sessions.Complete(c.Request.Context(), d)
	if err != nil {
		middleware.Logger(c, h.log).WithError(err).WithField("participant_id", d.ParticipantID).Error("completing session")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	metrics.SessionsCompleted.Inc()

	middleware.Logger(c, h.log).WithFields(logrus.Fields{
		"action":             "session.complete",
		"participant_id":     d.ParticipantID,
		"trials":             len(d.Trials),
		"trials_backfilled":  res.TrialsBackfilled,
		"surveys_backfilled": res.SurveysBackfilled,
	}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

// Results handles GET /api/v1/participants/:id/results.
func (h *ResultHandler) Results(c *gin.Context) {
	participantID := c.Param("id")
	if err := validatePathID(participantID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	data, err := h.sessions.Results(c.Request.Context(), participantID)
	if err != nil {
		if errors.Is(err, models.ErrParticipantNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "participant not found")

			return
		}

		middleware.Logger(c, h.log).WithError(err).WithField("participant_id", participantID).Error("reading results")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, data)
}

// Sessions handles GET /api/v1/participants.
func (h *ResultHandler) Sessions(c *gin.Context) {
	limit := parseInt(c.DefaultQuery("limit", "100"), 100)

	sessions, err := h.sessions.ListSessions(c.Request.Context(), limit)
	if err != nil {
		middleware.Logger(c, h.log).WithError(err).Error("listing sessions")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
