package filtering

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spigell/job-recommender/internal/recommend"
)

// ExcludedJobs is the content of the exclude file.
type ExcludedJobs struct {
	Items []*ExcludedJob
}

type ExcludedJob struct {
	Title      string
	Company    string
	URL        string `json:",omitempty"`
	ExcludedAt time.Time
}

// JobKey identifies a job across batches. Postings carry no stable id, so the
// title and company stand in for one.
func JobKey(title, company string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(company))
}

// NewExcludedJobs records jobs as excluded now.
func NewExcludedJobs(jobs ...recommend.Job) *ExcludedJobs {
	excluded := &ExcludedJobs{}
	now := time.Now().UTC()
	for _, job := range jobs {
		excluded.Items = append(excluded.Items, &ExcludedJob{
			Title:      job.Title,
			Company:    job.Company,
			ExcludedAt: now,
		})
	}
	return excluded
}

// LoadExcludedJobs reads the exclude file. A missing or empty file holds no jobs.
func LoadExcludedJobs(path string) (*ExcludedJobs, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ExcludedJobs{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedJobs{}, nil
	}

	var excluded ExcludedJobs
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds the items of s that are not excluded yet.
func (e *ExcludedJobs) Append(s *ExcludedJobs) {
	keys := e.Keys()
	for _, item := range s.Items {
		key := JobKey(item.Title, item.Company)
		if _, ok := keys[key]; ok {
			continue
		}
		keys[key] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

func (e *ExcludedJobs) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		keys[JobKey(item.Title, item.Company)] = struct{}{}
	}
	return keys
}

func (e *ExcludedJobs) Len() int {
	return len(e.Items)
}

func (e *ExcludedJobs) ToFile(path string) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close exclude file: %w", cerr)
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// AddToFile appends jobs to the exclude file at path, creating it when needed.
func AddToFile(path string, jobs ...recommend.Job) (*ExcludedJobs, error) {
	excluded, err := LoadExcludedJobs(path)
	if err != nil {
		return nil, err
	}

	excluded.Append(NewExcludedJobs(jobs...))
	if err := excluded.ToFile(path); err != nil {
		return nil, err
	}

	return excluded, nil
}
