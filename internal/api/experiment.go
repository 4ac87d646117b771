package api

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/middleware"
	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/scene"
)

// maxViewport caps the frame size a caller may request.
const maxViewport = 4096

// ExperimentHandler serves trial plans, graph files and rendered frames.
type ExperimentHandler struct {
	plans  PlanSource
	graphs GraphSource
	log    logrus.FieldLogger
}

// NewExperimentHandler creates an ExperimentHandler. A nil plans source
// makes the plan endpoint answer 503.
func NewExperimentHandler(plans PlanSource, graphs GraphSource, log logrus.FieldLogger) *ExperimentHandler {
	return &ExperimentHandler{plans: plans, graphs: graphs, log: log}
}

// Plan handles GET /api/v1/participants/:id/plan.
func (h *ExperimentHandler) Plan(c *gin.Context) {
	participantID := c.Param("id")
	if err := validatePathID(participantID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	if h.plans == nil {
		respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "trial set not loaded")

		return
	}

	plan, err := h.plans.Plan(participantID)
	if err != nil {
		middleware.Logger(c, h.log).WithError(err).WithField("participant_id", participantID).Warn("building plan")
		respondError(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, err.Error())

		return
	}

	middleware.Logger(c, h.log).WithFields(logrus.Fields{
		"action":         "plan.get",
		"participant_id": participantID,
		"pattern_index":  plan.PatternIndex,
		"trials":         len(plan.Trials),
		"excluded":       len(plan.Excluded),
	}).Info("audit")

	c.JSON(http.StatusOK, plan)
}

// Graph handles GET /api/v1/graphs/*file.
func (h *ExperimentHandler) Graph(c *gin.Context) {
	g, ok := h.loadGraph(c, strings.TrimPrefix(c.Param("file"), "/"))
	if !ok {
		return
	}

	// NaN coordinates have no JSON encoding.
	if !g.Finite() {
		respondError(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, "graph has non-finite coordinates")

		return
	}

	c.JSON(http.StatusOK, g)
}

// Scene handles GET /api/v1/scene. It renders one frame of a graph under a
// condition, optionally colouring start and target nodes.
func (h *ExperimentHandler) Scene(c *gin.Context) {
	cond := models.Condition(strings.ToUpper(c.DefaultQuery("condition", string(models.ConditionB))))
	if !cond.Valid() {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, models.ErrInvalidCondition.Error())

		return
	}

	offset, err := strconv.Atoi(c.DefaultQuery("axis_offset", "0"))
	if err != nil || !models.AxisOffset(offset).Valid() {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, models.ErrInvalidAxisOffset.Error())

		return
	}

	width := parseDimension(c.Query("width"), scene.DefaultWidth)
	height := parseDimension(c.Query("height"), scene.DefaultHeight)

	g, ok := h.loadGraph(c, c.Query("graph"))
	if !ok {
		return
	}

	v := scene.New(scene.Options{Width: width, Height: height, Log: h.log})
	defer v.Destroy()

	if err := v.LoadGraph(g); err != nil {
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	if err := v.SetCondition(cond, models.AxisOffset(offset)); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	if err := markNode(c, "start", v.SetStartNode, v.HighlightNode); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	if err := markNode(c, "target", v.SetTargetNode, v.HighlightNode); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	frame, err := v.Frame()
	if err != nil {
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, frame)
}

func (h *ExperimentHandler) loadGraph(c *gin.Context, file string) (*graph.Graph, bool) {
	if file == "" || len(file) > 255 {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "graph file must be 1 to 255 characters")

		return nil, false
	}

	g, err := h.graphs.Graph(c.Request.Context(), file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "graph file not found")

			return nil, false
		}

		middleware.Logger(c, h.log).WithError(err).WithField("graph_file", file).Error("loading graph")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return nil, false
	}

	return g, true
}

// markNode applies the optional node id in query parameter name.
func markNode(c *gin.Context, name string, set func(int) error, highlight func(int, bool) error) error {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return errors.New(name + " must be an integer node id")
	}

	if err := set(id); err != nil {
		return err
	}

	return highlight(id, true)
}

func parseDimension(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}

	return min(v, maxViewport)
}
