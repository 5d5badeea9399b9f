package recommend

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/fuzzy"
	"github.com/spigell/job-recommender/internal/geo"
	"github.com/spigell/job-recommender/internal/logger"
)

// DistanceFunc measures kilometers between two positions.
type DistanceFunc func(a, b geo.Coordinates) float64

// Recommender ranks jobs for a candidate. It holds no per-request state and is
// safe for concurrent use.
type Recommender struct {
	geocoder   geo.Geocoder
	distance   DistanceFunc
	similarity Similarity
	logger     *zap.Logger
}

// Option customizes a Recommender.
type Option func(*Recommender)

// WithDistance replaces the great-circle distance.
func WithDistance(fn DistanceFunc) Option {
	return func(r *Recommender) {
		if fn != nil {
			r.distance = fn
		}
	}
}

// WithSimilarity replaces the token-set skill similarity.
func WithSimilarity(sim Similarity) Option {
	return func(r *Recommender) {
		if sim != nil {
			r.similarity = sim
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Recommender) {
		r.logger = logger.OrNop(log)
	}
}

// New creates a Recommender resolving locations with geocoder.
func New(geocoder geo.Geocoder, opts ...Option) *Recommender {
	r := &Recommender{
		geocoder:   geocoder,
		distance:   geo.Distance,
		similarity: fuzzy.TokenSet{},
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Rank scores every job, sorts them by aggregate score, highest first, and
// returns at most weights.TopN of them. Equal scores keep the input order.
// Only invalid weights produce an error; a job that cannot be scored on some
// criterion gets 0 for it and stays in the ranking.
func (r *Recommender) Rank(ctx context.Context, candidate Candidate, jobs []Job, liked LikedSet, weights Weights) ([]ScoredJob, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	locations := r.LocationScores(ctx, jobs, candidate.Location)

	scored := make([]ScoredJob, 0, len(jobs))
	for _, job := range jobs {
		s := ScoredJob{
			Job:          job,
			Skills:       SkillScore(r.similarity, candidate.Skills, job.Skills),
			Experience:   ExperienceScore(candidate.TotalExperience, job.Experience),
			Location:     locations[job.Location],
			Salary:       SalaryScore(job.Salary, candidate.ExpectedSalary),
			NoticePeriod: NoticePeriodScore(candidate.NoticePeriod, job.RequiredJoiningTime),
			Liked:        liked.Has(job),
		}

		s.Score = weights.Skills*s.Skills +
			weights.Experience*s.Experience +
			weights.Location*s.Location +
			weights.Salary*s.Salary +
			weights.NoticePeriod*s.NoticePeriod

		if s.Liked {
			s.Score += weights.LikedBonus
		}

		r.logger.Debug("job scored", append(logger.JobFields(job.Title, job.Company),
			zap.Float64("score", s.Score),
			zap.Float64("skills", s.Skills),
			zap.Float64("experience", s.Experience),
			zap.Float64("location", s.Location),
			zap.Float64("salary", s.Salary),
			zap.Float64("notice_period", s.NoticePeriod),
			zap.Bool("liked", s.Liked),
		)...)

		scored = append(scored, s)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > weights.TopN {
		scored = scored[:weights.TopN]
	}

	return scored, nil
}

// LocationScores maps each job location to 1 - distance/total, where total is
// the sum of the candidate-to-job distances over the whole batch. Scores are
// therefore relative to the batch: adding a far-away job raises everyone
// else's score. Locations that cannot be resolved, or every location when the
// candidate's cannot, score 0.
func (r *Recommender) LocationScores(ctx context.Context, jobs []Job, candidateLocation string) map[string]float64 {
	scores := make(map[string]float64, len(jobs))
	for _, job := range jobs {
		scores[job.Location] = 0
	}

	if len(jobs) == 0 || r.geocoder == nil {
		return scores
	}

	home, ok := r.resolve(ctx, candidateLocation)
	if !ok {
		r.logger.Warn("candidate location not resolved, location scores are zero",
			zap.String(logger.FieldLocation, candidateLocation))
		return scores
	}

	distances := make(map[string]float64, len(jobs))
	unresolved := make(map[string]struct{})
	total := 0.0

	for _, job := range jobs {
		if _, failed := unresolved[job.Location]; failed {
			continue
		}

		d, known := distances[job.Location]
		if !known {
			coords, ok := r.resolve(ctx, job.Location)
			if !ok {
				unresolved[job.Location] = struct{}{}
				continue
			}
			d = r.distance(home, coords)
			distances[job.Location] = d
		}

		// every job counts, also when it shares a location with another one
		total += d
	}

	for location, d := range distances {
		if total == 0 {
			scores[location] = 1
			continue
		}
		scores[location] = clamp01(1 - d/total)
	}

	return scores
}

func (r *Recommender) resolve(ctx context.Context, location string) (geo.Coordinates, bool) {
	if strings.TrimSpace(location) == "" {
		return geo.Coordinates{}, false
	}

	lookup, err := r.geocoder.Geocode(ctx, location)
	if err != nil {
		r.logger.Warn("geocoding failed", zap.String(logger.FieldLocation, location), zap.Error(err))
		return geo.Coordinates{}, false
	}

	if !lookup.Found {
		r.logger.Info("location not found", zap.String(logger.FieldLocation, location))
		return geo.Coordinates{}, false
	}

	return lookup.Coordinates, true
}
