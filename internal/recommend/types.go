// Package recommend ranks job postings against a candidate profile.
package recommend

// Candidate is the part of a resume the ranking looks at.
type Candidate struct {
	Name            string
	Skills          []string
	TotalExperience float64
	Location        string
	// ExpectedSalary and NoticePeriod are optional; nil means no constraint.
	ExpectedSalary *float64
	NoticePeriod   *int
}

// Job is a job posting. Fields beyond the scored ones are carried through untouched.
type Job struct {
	Title               string   `json:"job_title" mapstructure:"job_title"`
	Role                string   `json:"job_role" mapstructure:"job_role"`
	WorkMode            string   `json:"work_mode" mapstructure:"work_mode"`
	Skills              []string `json:"skills" mapstructure:"skills"`
	EmploymentType      string   `json:"employment_type" mapstructure:"employment_type"`
	Company             string   `json:"company_name" mapstructure:"company_name"`
	Location            string   `json:"location" mapstructure:"location"`
	Experience          string   `json:"experience" mapstructure:"experience"`
	Salary              string   `json:"salary" mapstructure:"salary"`
	PreferredDegree     string   `json:"preferred_degree" mapstructure:"preferred_degree"`
	Industry            string   `json:"industry_type" mapstructure:"industry_type"`
	Description         string   `json:"job_description" mapstructure:"job_description"`
	RequiredJoiningTime *int     `json:"required_joining_time,omitempty" mapstructure:"required_joining_time"`
}

// ScoredJob is a job with its aggregate score and the sub-scores it was built from.
type ScoredJob struct {
	Job          Job
	Score        float64
	Skills       float64
	Experience   float64
	Location     float64
	Salary       float64
	NoticePeriod float64
	Liked        bool
	// Explanation is an optional free-text rationale attached after ranking.
	Explanation string
}

// Range is an inclusive numeric range parsed from a posting.
type Range struct {
	Min float64
	Max float64
}

// LikedSet holds the titles of jobs the candidate liked before.
type LikedSet map[string]struct{}

// NewLikedSet builds a set from titles.
func NewLikedSet(titles ...string) LikedSet {
	set := make(LikedSet, len(titles))
	for _, title := range titles {
		set[title] = struct{}{}
	}
	return set
}

// Has reports whether job is liked. A nil set likes nothing.
func (l LikedSet) Has(job Job) bool {
	_, ok := l[job.Title]
	return ok
}

// LikedFromTitles keeps the titles that name a job of the batch. Matching is
// exact and case-sensitive.
func LikedFromTitles(jobs []Job, titles []string) LikedSet {
	wanted := NewLikedSet(titles...)
	liked := make(LikedSet)
	for _, job := range jobs {
		if wanted.Has(job) {
			liked[job.Title] = struct{}{}
		}
	}
	return liked
}
