package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/ai"
	"github.com/spigell/job-recommender/internal/filtering"
	"github.com/spigell/job-recommender/internal/profile"
	"github.com/spigell/job-recommender/internal/recommend"
)

const (
	PromptLike              = "Like a job and re-rank"
	PromptExclude           = "Exclude a job"
	PromptReportByCompanies = "Report by companies"
	PromptToFile            = "Dump recommendations to file"
	PromptExit              = "Exit"
	PromptBack              = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptLike, PromptExclude, PromptReportByCompanies, PromptToFile, PromptExit},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank jobs from a file against a resume",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringP("resume", "r", "", "resume file (json or yaml)")
	rankCmd.Flags().StringP("jobs", "J", "", "jobs file (json or yaml)")
	rankCmd.Flags().StringArrayP("liked", "l", nil, "title of a liked job, may be repeated")
	rankCmd.Flags().BoolP("interactive", "i", false, "choose follow-up actions after ranking")
	rankCmd.Flags().StringP("exclude-file", "e", "", "special file with jobs to exclude. Default is unset.")

	_ = rankCmd.MarkFlagRequired("resume")
	_ = rankCmd.MarkFlagRequired("jobs")
}

// session holds one candidate's ranking state across interactive actions.
type session struct {
	env         *environment
	recommender *recommend.Recommender
	explainer   ai.Explainer
	candidate   recommend.Candidate
	jobs        []recommend.Job
	liked       recommend.LikedSet
	ranked      []recommend.ScoredJob
	filters     *filtering.Config
}

func rank(cmd *cobra.Command) {
	ctx := context.Background()

	env := newEnvironment()
	defer env.Close()
	logger := env.logger

	if file, _ := cmd.Flags().GetString("exclude-file"); file != "" {
		env.config.ExcludeFile = file
	}

	logger.Info("starting the job-recommender", zap.String("version", version))

	resumePath, _ := cmd.Flags().GetString("resume")
	resume, err := profile.LoadResume(resumePath)
	if err != nil {
		logger.Fatal("loading resume", zap.Error(err))
	}

	jobsPath, _ := cmd.Flags().GetString("jobs")
	jobs, err := profile.LoadJobs(jobsPath)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}

	if err := env.config.Weights.Validate(); err != nil {
		logger.Fatal("checking weights", zap.Error(err))
	}

	geocoder, err := env.geocoder(ctx)
	if err != nil {
		logger.Fatal("creating geocoder", zap.Error(err))
	}

	explainer, err := env.explainer(ctx)
	if err != nil {
		logger.Fatal("creating ai explainer", zap.Error(err))
	}

	likedTitles, _ := cmd.Flags().GetStringArray("liked")

	s := &session{
		env:         env,
		recommender: recommend.New(geocoder, recommend.WithLogger(logger)),
		explainer:   explainer,
		candidate:   resume.Candidate(),
		jobs:        jobs,
		liked:       recommend.LikedFromTitles(jobs, likedTitles),
		filters:     env.filters(),
	}

	if unmatched := unmatchedTitles(s.liked, likedTitles); len(unmatched) > 0 {
		logger.Warn("some liked titles match no job", zap.Strings("unmatched", unmatched))
	}

	if err := s.rank(ctx); err != nil {
		logger.Fatal("ranking jobs", zap.Error(err))
	}

	if len(s.ranked) == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left to recommend"))
		return
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	if !interactive {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := s.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// rank filters the batch, ranks it and prints the result to stdout.
func (s *session) rank(ctx context.Context) error {
	logger := s.env.logger

	jobs, err := filtering.Run(ctx, s.filters, filtering.Deps{Logger: logger}, filtering.Default(), s.jobs)
	if err != nil {
		return fmt.Errorf("filtering: %w", err)
	}

	ranked, err := s.recommender.Rank(ctx, s.candidate, jobs, s.liked, s.env.config.Weights)
	if err != nil {
		return err
	}

	s.ranked = ai.Annotate(ctx, s.explainer, s.candidate, ranked, logger)

	logger.Info("current list of recommendations",
		zap.Int("count", len(s.ranked)),
		zap.Int("candidates", len(jobs)),
		zap.Int("liked", len(s.liked)),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(recommend.Recommendations(s.ranked))
}

func (s *session) handleAction(ctx context.Context, action string) error {
	logger := s.env.logger

	switch action {
	case PromptLike:
		job, err := s.chooseJob("Choose a job you like")
		if err != nil || job == nil {
			return err
		}
		s.liked[job.Title] = struct{}{}
		logger.Info("liked a job", zap.String("job_title", job.Title))
		return s.rank(ctx)
	case PromptExclude:
		return s.exclude(ctx)
	case PromptReportByCompanies:
		pretty, _ := json.MarshalIndent(recommend.ReportByCompany(s.ranked), "", "  ")
		logger.Info(string(pretty), zap.Int("recommendations count", len(s.ranked)))
		return nil
	case PromptToFile:
		filename, err := recommend.DumpToTmpFile(s.ranked)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *session) exclude(ctx context.Context) error {
	excludeFile := strings.TrimSpace(s.filters.ExcludeFile)
	if excludeFile == "" {
		s.env.logger.Warn("exclude file is not configured", zap.String("hint", "set exclude-file in the config or pass --exclude-file"))
		return nil
	}

	job, err := s.chooseJob("Choose a job to exclude")
	if err != nil || job == nil {
		return err
	}

	excluded, err := filtering.AddToFile(excludeFile, *job)
	if err != nil {
		return err
	}

	s.env.logger.Info("appended to exclude file",
		zap.String("filename", excludeFile),
		zap.String("job_title", job.Title),
		zap.Int("excluded", excluded.Len()),
	)

	return s.rank(ctx)
}

// unmatchedTitles lists each distinct title that is not in liked, in input order.
func unmatchedTitles(liked recommend.LikedSet, titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	var unmatched []string
	for _, title := range titles {
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		if _, ok := liked[title]; !ok {
			unmatched = append(unmatched, title)
		}
	}
	return unmatched
}

// chooseJob returns nil when the user goes back.
func (s *session) chooseJob(label string) (*recommend.Job, error) {
	items := make([]string, 0, len(s.ranked)+1)
	for i, sj := range s.ranked {
		items = append(items, fmt.Sprintf("%d. %s / %s / %s (%.3f)",
			i+1, sj.Job.Title, sj.Job.Company, sj.Job.Location, sj.Score,
		))
	}

	jobPrompt := promptui.Select{
		Label: label + " and press ENTER",
		Items: append(items, PromptBack),
	}

	idx, _, err := jobPrompt.Run()
	if err != nil {
		return nil, err
	}

	if idx >= len(s.ranked) {
		return nil, nil
	}

	job := s.ranked[idx].Job
	return &job, nil
}
