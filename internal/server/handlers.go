package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/ai"
	"github.com/spigell/job-recommender/internal/filtering"
	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/profile"
	"github.com/spigell/job-recommender/internal/recommend"
)

const serviceName = "job-recommender"

// Ranker is the ranking engine the handlers delegate to.
type Ranker interface {
	Rank(ctx context.Context, candidate recommend.Candidate, jobs []recommend.Job, liked recommend.LikedSet, weights recommend.Weights) ([]recommend.ScoredJob, error)
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// InitialRequest asks for a first ranking of jobs.
type InitialRequest struct {
	Resume map[string]any `json:"resume" binding:"required"`
	Jobs   []any          `json:"jobs" binding:"required"`
	// Weights overrides the configured weights field by field.
	Weights json.RawMessage `json:"weights,omitempty"`
}

// UpdateRequest re-ranks jobs after the candidate liked some of them.
type UpdateRequest struct {
	InitialRequest
	LikedJobTitles []string `json:"liked_job_titles" binding:"required"`
}

type Handler struct {
	ranker    Ranker
	weights   recommend.Weights
	filters   *filtering.Config
	explainer ai.Explainer
	logger    *zap.Logger
}

// Options configure a Handler. Ranker is required.
type Options struct {
	Ranker    Ranker
	Weights   recommend.Weights
	Filters   *filtering.Config
	Explainer ai.Explainer
	Logger    *zap.Logger
}

func NewHandler(opts Options) *Handler {
	return &Handler{
		ranker:    opts.Ranker,
		weights:   opts.Weights,
		filters:   opts.Filters,
		explainer: opts.Explainer,
		logger:    logger.OrNop(opts.Logger),
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
	})
}

// InitialRecommend handles POST /initial_recommend_jobs/
func (h *Handler) InitialRecommend(c *gin.Context) {
	var req InitialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	h.recommend(c, req, nil)
}

// UpdateRecommend handles POST /update_recommend_jobs/
func (h *Handler) UpdateRecommend(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	h.recommend(c, req.InitialRequest, req.LikedJobTitles)
}

func (h *Handler) recommend(c *gin.Context, req InitialRequest, likedTitles []string) {
	ctx := c.Request.Context()
	log := h.logger.With(zap.String(logger.FieldRequestID, RequestID(c)))

	resume, err := profile.DecodeResume(req.Resume)
	if err != nil {
		badRequest(c, "Invalid resume", err)
		return
	}

	jobs, err := profile.DecodeJobs(req.Jobs)
	if err != nil && !errors.Is(err, profile.ErrNoJobs) {
		badRequest(c, "Invalid jobs", err)
		return
	}

	weights, err := h.requestWeights(req.Weights)
	if err != nil {
		badRequest(c, "Invalid weights", err)
		return
	}

	jobs, err = filtering.Run(ctx, h.filters, filtering.Deps{Logger: log}, filtering.Default(), jobs)
	if err != nil {
		log.Error("filtering jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to filter jobs",
			Code:    "FILTERING_ERROR",
			Details: err.Error(),
		})
		return
	}

	candidate := resume.Candidate()
	ranked, err := h.ranker.Rank(ctx, candidate, jobs, recommend.NewLikedSet(likedTitles...), weights)
	if err != nil {
		log.Error("ranking jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to rank jobs",
			Code:    "RANKING_ERROR",
			Details: err.Error(),
		})
		return
	}

	ranked = ai.Annotate(ctx, h.explainer, candidate, ranked, log)

	log.Info("jobs ranked",
		zap.Int("jobs", len(jobs)),
		zap.Int("liked", len(likedTitles)),
		zap.Int("returned", len(ranked)),
	)

	c.JSON(http.StatusOK, recommend.Recommendations(ranked))
}

// requestWeights overlays the weights sent with a request on the configured ones.
func (h *Handler) requestWeights(raw json.RawMessage) (recommend.Weights, error) {
	weights := h.weights
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &weights); err != nil {
			return weights, err
		}
	}

	return weights, weights.Validate()
}

func badRequest(c *gin.Context, msg string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   msg,
		Code:    "INVALID_REQUEST",
		Details: err.Error(),
	})
}
