package models

import "time"

// TrialResult is the scored outcome of one presented trial.
type TrialResult struct {
	SubjectID        string     `json:"subject_id"`
	Task             TaskType   `json:"task"`
	Condition        Condition  `json:"condition"`
	AxisOffset       AxisOffset `json:"axis_offset"`
	GraphFile        string     `json:"graph_file"`
	TrialID          string     `json:"trial_id"`
	NodePairID       string     `json:"node_pair_id,omitempty"`
	SetID            *int       `json:"set_id,omitempty"`
	Node1            int        `json:"node1"`
	Node2            int        `json:"node2"`
	HighlightedNodes []int      `json:"highlighted_nodes"`
	Answer           string     `json:"answer"`
	Correct          bool       `json:"correct"`
	ReactionTimeMS   int64      `json:"reaction_time_ms"`
	ClickCount       int        `json:"click_count"`
	Timestamp        time.Time  `json:"timestamp"`
}

// Validate checks that a submitted result is well formed.
func (r *TrialResult) Validate() error {
	if r.SubjectID == "" {
		return ErrMissingParticipantID
	}

	if len(r.SubjectID) > 255 {
		return ErrFieldTooLong("subject_id", 255)
	}

	if r.TrialID == "" {
		return ErrMissingTrialID
	}

	if !r.Task.Valid() {
		return ErrInvalidTask
	}

	if !r.Condition.Valid() {
		return ErrInvalidCondition
	}

	if !r.AxisOffset.Valid() {
		return ErrInvalidAxisOffset
	}

	if r.GraphFile == "" {
		return ErrMissingGraphFile
	}

	if r.Task == TaskA && !DistanceAnswer(r.Answer).Valid() {
		return ErrInvalidAnswer
	}

	if r.ReactionTimeMS < 0 {
		return ErrNegativeReaction
	}

	return nil
}

// SurveyResponse is the post-task preference answer.
type SurveyResponse struct {
	Task               TaskType  `json:"task"`
	PreferredCondition Condition `json:"preferredCondition"`
	Timestamp          time.Time `json:"timestamp"`
}

// Validate checks task and condition labels.
func (s *SurveyResponse) Validate() error {
	if !s.Task.Valid() {
		return ErrInvalidTask
	}

	if !s.PreferredCondition.Valid() {
		return ErrInvalidCondition
	}

	return nil
}

// SaveSurveyRequest is the payload accepted by the survey endpoint.
type SaveSurveyRequest struct {
	ParticipantID  string          `json:"participantId"`
	SurveyResponse *SurveyResponse `json:"surveyResponse"`
}

// Validate checks that both the participant and the response are present.
func (r *SaveSurveyRequest) Validate() error {
	if r.ParticipantID == "" {
		return ErrMissingParticipantID
	}

	if len(r.ParticipantID) > 255 {
		return ErrFieldTooLong("participantId", 255)
	}

	if r.SurveyResponse == nil {
		return ErrMissingSurvey
	}

	return r.SurveyResponse.Validate()
}

// ParticipantData is the running aggregate of one session.
type ParticipantData struct {
	ParticipantID string           `json:"participant_id"`
	Trials        []TrialResult    `json:"trials"`
	TaskSurveys   []SurveyResponse `json:"task_surveys"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       *time.Time       `json:"end_time,omitempty"`
}

// NewParticipantData starts an aggregate for id at the given time.
func NewParticipantData(id string, start time.Time) *ParticipantData {
	return &ParticipantData{
		ParticipantID: id,
		Trials:        []TrialResult{},
		TaskSurveys:   []SurveyResponse{},
		StartTime:     start,
	}
}

// AppendTrial records one result. Completed sessions reject appends.
func (p *ParticipantData) AppendTrial(r TrialResult) error {
	if p.EndTime != nil {
		return ErrAlreadyCompleted
	}

	p.Trials = append(p.Trials, r)

	return nil
}

// AppendSurvey records one survey response. Completed sessions reject appends.
func (p *ParticipantData) AppendSurvey(s SurveyResponse) error {
	if p.EndTime != nil {
		return ErrAlreadyCompleted
	}

	p.TaskSurveys = append(p.TaskSurveys, s)

	return nil
}

// Complete sets the end time. It may be called once.
func (p *ParticipantData) Complete(end time.Time) error {
	if p.EndTime != nil {
		return ErrAlreadyCompleted
	}

	p.EndTime = &end

	return nil
}

// Completed reports whether the end time is set.
func (p *ParticipantData) Completed() bool { return p.EndTime != nil }

// Accuracy returns the share of correct results for task t and how many results it covers.
func (p *ParticipantData) Accuracy(t TaskType) (float64, int) {
	var total, correct int

	for i := range p.Trials {
		if p.Trials[i].Task != t {
			continue
		}

		total++

		if p.Trials[i].Correct {
			correct++
		}
	}

	if total == 0 {
		return 0, 0
	}

	return float64(correct) / float64(total), total
}

// CompleteRequest is the payload accepted by the completion endpoint.
type CompleteRequest struct {
	ParticipantData
}

// Validate checks that the aggregate names a participant.
func (r *CompleteRequest) Validate() error {
	if r.ParticipantID == "" {
		return ErrMissingParticipantID
	}

	if len(r.ParticipantID) > 255 {
		return ErrFieldTooLong("participant_id", 255)
	}

	return nil
}

// SessionSummary is one row of the operator session list.
type SessionSummary struct {
	ParticipantID string     `json:"participant_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	TrialCount    int        `json:"trial_count"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CompleteResult reports what a completion wrote beyond the session row.
type CompleteResult struct {
	TrialsBackfilled  int `json:"trials_backfilled"`
	SurveysBackfilled int `json:"surveys_backfilled"`
}
