package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/recommend"
)

// Explainer writes a short rationale for why a job was recommended.
type Explainer interface {
	Explain(ctx context.Context, candidate recommend.Candidate, job recommend.ScoredJob) (string, error)
}

// Annotate fills Explanation for every ranked job. Failures are logged and
// leave the explanation empty; scores and ordering are never touched.
func Annotate(ctx context.Context, explainer Explainer, candidate recommend.Candidate, ranked []recommend.ScoredJob, log *zap.Logger) []recommend.ScoredJob {
	if explainer == nil {
		return ranked
	}

	log = logger.OrNop(log)
	for i := range ranked {
		if ctx.Err() != nil {
			log.Warn("explanations interrupted", zap.Error(ctx.Err()))
			break
		}

		text, err := explainer.Explain(ctx, candidate, ranked[i])
		if err != nil {
			log.Warn("explanation failed", append(logger.JobFields(ranked[i].Job.Title, ranked[i].Job.Company), zap.Error(err))...)
			continue
		}
		ranked[i].Explanation = text
	}

	return ranked
}
