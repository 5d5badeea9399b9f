package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "key")
	if err := os.WriteFile(file, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}

	t.Setenv("JOB_RECOMMENDER_TEST_SECRET", " from-env ")

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{
			name:   "file wins over env and value",
			src:    Source{File: file, Env: "JOB_RECOMMENDER_TEST_SECRET", Value: "inline"},
			expect: "from-file",
		},
		{
			name:   "env wins over value",
			src:    Source{Env: "JOB_RECOMMENDER_TEST_SECRET", Value: "inline"},
			expect: "from-env",
		},
		{
			name:   "inline value",
			src:    Source{Env: "JOB_RECOMMENDER_UNSET_SECRET", Value: " inline "},
			expect: "inline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("   "), 0o600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}

	if _, err := Load(Source{Name: "gemini api key", File: empty}); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}

	if _, err := Load(Source{Name: "gemini api key", File: filepath.Join(dir, "missing")}); err == nil {
		t.Fatalf("expected error for missing file")
	}

	_, err := Load(Source{})
	if err == nil || err.Error() != "secret is not configured" {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "redis password", Env: "JOB_RECOMMENDER_UNSET_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty secret, got %q", got)
	}

	got, err = Optional(Source{Value: "pw"})
	if err != nil || got != "pw" {
		t.Fatalf("expected inline secret, got %q (%v)", got, err)
	}
}
