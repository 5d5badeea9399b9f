package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.yaml.in/yaml/v3"

	"github.com/spigell/job-recommender/internal/recommend"
)

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNoJobs        = errors.New("no jobs found")
)

// LoadResume reads a resume from a JSON or YAML file.
func LoadResume(path string) (*Resume, error) {
	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	resume, err := DecodeResume(raw)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", path, err)
	}

	return resume, nil
}

// LoadJobs reads jobs from a JSON or YAML file holding either a list or an
// object with a "jobs" list.
func LoadJobs(path string) ([]recommend.Job, error) {
	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	jobs, err := DecodeJobs(raw)
	if err != nil {
		return nil, fmt.Errorf("jobs %s: %w", path, err)
	}

	return jobs, nil
}

// DecodeResume converts a generic document into a Resume. Numbers and strings
// are accepted interchangeably.
func DecodeResume(raw any) (*Resume, error) {
	if raw == nil {
		return nil, ErrEmptyDocument
	}

	var resume Resume
	if err := decode(raw, &resume); err != nil {
		return nil, err
	}

	return &resume, nil
}

// DecodeJobs converts a generic document into jobs.
func DecodeJobs(raw any) ([]recommend.Job, error) {
	if m, ok := raw.(map[string]any); ok {
		raw = m["jobs"]
	}

	if raw == nil {
		return nil, ErrNoJobs
	}

	var jobs []recommend.Job
	if err := decode(raw, &jobs); err != nil {
		return nil, err
	}

	return jobs, nil
}

func decode(input, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func readDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyDocument)
	}

	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return raw, nil
}
