package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/recommend"
)

// Filter represents a single step that removes jobs before ranking.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, jobs []recommend.Job) ([]recommend.Job, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	Companies   []string
	ExcludeFile string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// switchable carries the enabled state shared by all filters.
type switchable struct {
	disabled bool
	reason   string
}

func (s *switchable) Disable(reason string) {
	s.disabled = true
	s.reason = reason
}

func (s *switchable) IsEnabled() bool { return !s.disabled }

// Default returns the filters applied to every batch, in order.
func Default() []Filter {
	return []Filter{
		NewCompanies(),
		NewExcludeFile(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the jobs left.
// The input slice is never modified.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, jobs []recommend.Job) ([]recommend.Job, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Info("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, jobs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		jobs = next
	}

	return jobs, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns the jobs for which drop is false, in their original order.
func keep(jobs []recommend.Job, drop func(recommend.Job) bool) (kept []recommend.Job, dropped []string) {
	kept = make([]recommend.Job, 0, len(jobs))
	for _, job := range jobs {
		if drop(job) {
			dropped = append(dropped, job.Title)
			continue
		}
		kept = append(kept, job)
	}
	return kept, dropped
}
