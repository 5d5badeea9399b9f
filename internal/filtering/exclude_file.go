package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/recommend"
)

type excludeFileFilter struct {
	switchable
	path string
}

// NewExcludeFile creates a filter that removes jobs dismissed earlier and
// recorded in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, jobs []recommend.Job) ([]recommend.Job, Step, error) {
	initial := len(jobs)
	if f.path == "" {
		return jobs, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	excluded, err := LoadExcludedJobs(f.path)
	if err != nil {
		return jobs, Step{}, fmt.Errorf("getting excluded jobs from file: %w", err)
	}

	keys := excluded.Keys()
	kept, dropped := keep(jobs, func(job recommend.Job) bool {
		_, ok := keys[JobKey(job.Title, job.Company)]
		return ok
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding jobs based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{
		"configured": strconv.FormatBool(f.path != ""),
	}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
