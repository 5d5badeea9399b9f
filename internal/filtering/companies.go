package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/recommend"
)

type companiesFilter struct {
	switchable
	companies map[string]struct{}
	names     []string
}

// NewCompanies creates a filter that removes jobs of companies configured in the config.
// Company names match case-insensitively.
func NewCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = make(map[string]struct{})
	f.names = nil
	if cfg == nil {
		return nil
	}

	for _, name := range cfg.Companies {
		key := companyKey(name)
		if key == "" {
			continue
		}
		if _, dup := f.companies[key]; dup {
			continue
		}
		f.companies[key] = struct{}{}
		f.names = append(f.names, strings.TrimSpace(name))
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, jobs []recommend.Job) ([]recommend.Job, Step, error) {
	initial := len(jobs)
	if len(f.companies) == 0 {
		return jobs, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept, dropped := keep(jobs, func(job recommend.Job) bool {
		_, excluded := f.companies[companyKey(job.Company)]
		return excluded
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding jobs by companies",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

func companyKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
