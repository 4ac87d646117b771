package models_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/persistorai/depthcue/internal/models"
)

func ptr[T any](v T) *T { return &v }

func assertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func assertErrorContains(t *testing.T, err error, want string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}

	if !strings.Contains(err.Error(), want) {
		t.Errorf("expected error containing %q, got %q", want, err.Error())
	}
}

func validResult() models.TrialResult {
	return models.TrialResult{
		SubjectID:      "P-01",
		Task:           models.TaskA,
		Condition:      models.ConditionB,
		GraphFile:      "graphs/g.csv",
		TrialID:        "pair_1",
		SetID:          ptr(1),
		Node1:          4,
		Node2:          9,
		Answer:         "3",
		ReactionTimeMS: 2100,
	}
}

func TestTrialResult_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *models.TrialResult)
		wantErr string
	}{
		{name: "valid task A", mutate: func(*models.TrialResult) {}},
		{name: "valid task B with node list", mutate: func(r *models.TrialResult) {
			r.Task, r.Answer = models.TaskB, "1,5,7"
		}},
		{name: "task B with empty answer", mutate: func(r *models.TrialResult) {
			r.Task, r.Answer = models.TaskB, ""
		}},
		{name: "missing subject", mutate: func(r *models.TrialResult) { r.SubjectID = "" }, wantErr: "participant id is required"},
		{name: "subject too long", mutate: func(r *models.TrialResult) { r.SubjectID = strings.Repeat("x", 256) }, wantErr: "subject_id exceeds maximum length"},
		{name: "missing trial", mutate: func(r *models.TrialResult) { r.TrialID = "" }, wantErr: "trial id is required"},
		{name: "bad task", mutate: func(r *models.TrialResult) { r.Task = "C" }, wantErr: "task must be A or B"},
		{name: "bad condition", mutate: func(r *models.TrialResult) { r.Condition = "E" }, wantErr: "condition must be"},
		{name: "bad offset", mutate: func(r *models.TrialResult) { r.AxisOffset = 2 }, wantErr: "axis offset"},
		{name: "missing graph", mutate: func(r *models.TrialResult) { r.GraphFile = "" }, wantErr: "graph file is required"},
		{name: "task A numeric answer", mutate: func(r *models.TrialResult) { r.Answer = "4" }, wantErr: "answer is not valid"},
		{name: "negative reaction", mutate: func(r *models.TrialResult) { r.ReactionTimeMS = -1 }, wantErr: "reaction time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validResult()
			tt.mutate(&r)

			err := r.Validate()
			if tt.wantErr == "" {
				assertNoError(t, err)
				return
			}

			assertErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSaveSurveyRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.SaveSurveyRequest
		wantErr error
	}{
		{name: "valid", req: models.SaveSurveyRequest{ParticipantID: "P", SurveyResponse: &models.SurveyResponse{Task: models.TaskB, PreferredCondition: models.ConditionD}}},
		{name: "missing participant", req: models.SaveSurveyRequest{SurveyResponse: &models.SurveyResponse{}}, wantErr: models.ErrMissingParticipantID},
		{name: "missing response", req: models.SaveSurveyRequest{ParticipantID: "P"}, wantErr: models.ErrMissingSurvey},
		{name: "bad preference", req: models.SaveSurveyRequest{ParticipantID: "P", SurveyResponse: &models.SurveyResponse{Task: models.TaskA, PreferredCondition: "none"}}, wantErr: models.ErrInvalidCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParticipantData_Lifecycle(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	d := models.NewParticipantData("P-01", start)

	if d.Trials == nil || d.TaskSurveys == nil {
		t.Fatal("new aggregate must carry empty, non-nil lists")
	}

	a := validResult()
	assertNoError(t, d.AppendTrial(a))

	a.TrialID, a.Correct = "pair_2", true
	assertNoError(t, d.AppendTrial(a))

	b := validResult()
	b.Task, b.TrialID, b.Answer, b.Correct = models.TaskB, "pair_3", "1,2", true
	assertNoError(t, d.AppendTrial(b))

	assertNoError(t, d.AppendSurvey(models.SurveyResponse{Task: models.TaskA, PreferredCondition: models.ConditionC}))

	if acc, n := d.Accuracy(models.TaskA); n != 2 || acc != 0.5 {
		t.Errorf("task A accuracy = %v over %d, want 0.5 over 2", acc, n)
	}

	if acc, n := d.Accuracy(models.TaskB); n != 1 || acc != 1 {
		t.Errorf("task B accuracy = %v over %d, want 1 over 1", acc, n)
	}

	if d.Completed() {
		t.Fatal("completed before Complete")
	}

	assertNoError(t, d.Complete(start.Add(40*time.Minute)))

	if err := d.Complete(start.Add(time.Hour)); !errors.Is(err, models.ErrAlreadyCompleted) {
		t.Errorf("second Complete = %v", err)
	}

	if err := d.AppendTrial(a); !errors.Is(err, models.ErrAlreadyCompleted) {
		t.Errorf("append after completion = %v", err)
	}

	if err := d.AppendSurvey(models.SurveyResponse{}); !errors.Is(err, models.ErrAlreadyCompleted) {
		t.Errorf("survey after completion = %v", err)
	}

	if len(d.Trials) != 3 || len(d.TaskSurveys) != 1 {
		t.Errorf("aggregate changed after completion: %d trials, %d surveys", len(d.Trials), len(d.TaskSurveys))
	}
}

func TestParticipantData_AccuracyEmpty(t *testing.T) {
	d := models.NewParticipantData("P", time.Now())

	if acc, n := d.Accuracy(models.TaskB); acc != 0 || n != 0 {
		t.Errorf("empty accuracy = %v, %d", acc, n)
	}
}

func TestCompleteRequest_Validate(t *testing.T) {
	r := models.CompleteRequest{}
	if err := r.Validate(); !errors.Is(err, models.ErrMissingParticipantID) {
		t.Errorf("empty request = %v", err)
	}

	r.ParticipantID = strings.Repeat("p", 256)
	assertErrorContains(t, r.Validate(), "participant_id exceeds maximum length")

	r.ParticipantID = "P-01"
	assertNoError(t, r.Validate())
}

func TestTrial_Validate(t *testing.T) {
	base := models.Trial{TrialID: "t1", Task: models.TaskB, GraphFile: "g.csv"}
	assertNoError(t, base.Validate())

	withCond := base.WithCondition(models.ConditionC)
	assertNoError(t, withCond.Validate())

	if base.Condition != "" {
		t.Error("WithCondition modified the original trial")
	}

	if err := base.WithCondition("Z").Validate(); !errors.Is(err, models.ErrInvalidCondition) {
		t.Errorf("bad condition = %v", err)
	}

	if _, ok := base.Set(); ok {
		t.Error("Set() reported a set on a trial without one")
	}

	if n, ok := base.WithSet(3).Set(); !ok || n != 3 {
		t.Errorf("WithSet(3).Set() = %d, %v", n, ok)
	}

	missing := base
	missing.GraphFile = ""
	if err := missing.Validate(); !errors.Is(err, models.ErrMissingGraphFile) {
		t.Errorf("missing graph = %v", err)
	}
}

func TestConditionLabels(t *testing.T) {
	for _, c := range models.Conditions {
		if !c.Valid() {
			t.Errorf("%s not valid", c)
		}
	}

	if models.ConditionA.Oscillates() || models.ConditionB.Oscillates() {
		t.Error("static conditions report oscillation")
	}

	if !models.ConditionC.Oscillates() || !models.ConditionD.Oscillates() {
		t.Error("oscillating conditions do not report it")
	}

	if got := models.JoinNodeIDs([]int{9, 2, 14}); got != "2,9,14" {
		t.Errorf("JoinNodeIDs = %q", got)
	}
}
