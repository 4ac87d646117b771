package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/persistorai/depthcue/internal/counterbalance"
	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
)

// HealthResponse is returned by the liveness endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// SaveTrial stores one main-trial result.
func (c *Client) SaveTrial(ctx context.Context, r *models.TrialResult) error {
	return c.post(ctx, "/api/v1/trials", r, nil)
}

// SaveSurvey stores one post-task survey response.
func (c *Client) SaveSurvey(ctx context.Context, participantID string, s *models.SurveyResponse) error {
	return c.post(ctx, "/api/v1/surveys", models.SaveSurveyRequest{
		ParticipantID:  participantID,
		SurveyResponse: s,
	}, nil)
}

// CompleteExperiment stores the final aggregate and marks the session complete.
func (c *Client) CompleteExperiment(ctx context.Context, d *models.ParticipantData) error {
	return c.post(ctx, "/api/v1/complete", d, nil)
}

// Results reads back everything stored for a participant.
func (c *Client) Results(ctx context.Context, participantID string) (*models.ParticipantData, error) {
	var resp models.ParticipantData
	if err := c.get(ctx, "/api/v1/participants/"+url.PathEscape(participantID)+"/results", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sessions lists stored sessions, newest first.
func (c *Client) Sessions(ctx context.Context, limit int) ([]models.SessionSummary, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Sessions []models.SessionSummary `json:"sessions"`
	}
	if err := c.get(ctx, "/api/v1/participants", params, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// Plan fetches the server-computed trial plan for a participant.
func (c *Client) Plan(ctx context.Context, participantID string) (*counterbalance.Plan, error) {
	var resp counterbalance.Plan
	if err := c.get(ctx, "/api/v1/participants/"+url.PathEscape(participantID)+"/plan", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Graph fetches a parsed graph file. It makes a Client usable as the
// session graph source.
func (c *Client) Graph(ctx context.Context, file string) (*graph.Graph, error) {
	var g graph.Graph
	if err := c.get(ctx, "/api/v1/graphs/"+strings.TrimLeft(file, "/"), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
