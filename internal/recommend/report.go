package recommend

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Recommendation is the flat, serialized form of a ScoredJob.
type Recommendation struct {
	Title             string   `json:"job_title"`
	Role              string   `json:"job_role"`
	Company           string   `json:"company_name"`
	Location          string   `json:"location"`
	Skills            []string `json:"skills"`
	Salary            string   `json:"salary"`
	Experience        string   `json:"experience"`
	Score             float64  `json:"overall_similarity_score"`
	SkillScore        float64  `json:"skill_score"`
	ExperienceScore   float64  `json:"experience_score"`
	LocationScore     float64  `json:"location_score"`
	SalaryScore       float64  `json:"salary_score"`
	NoticePeriodScore float64  `json:"notice_period_score"`
	Liked             bool     `json:"liked,omitempty"`
	Explanation       string   `json:"explanation,omitempty"`
}

// Recommendations converts a ranking, keeping its order.
func Recommendations(scored []ScoredJob) []Recommendation {
	out := make([]Recommendation, 0, len(scored))
	for _, s := range scored {
		skills := s.Job.Skills
		if skills == nil {
			skills = []string{}
		}

		out = append(out, Recommendation{
			Title:             s.Job.Title,
			Role:              s.Job.Role,
			Company:           s.Job.Company,
			Location:          s.Job.Location,
			Skills:            skills,
			Salary:            s.Job.Salary,
			Experience:        s.Job.Experience,
			Score:             s.Score,
			SkillScore:        s.Skills,
			ExperienceScore:   s.Experience,
			LocationScore:     s.Location,
			SalaryScore:       s.Salary,
			NoticePeriodScore: s.NoticePeriod,
			Liked:             s.Liked,
			Explanation:       s.Explanation,
		})
	}
	return out
}

// ReportByCompany groups a ranking by company for a quick overview.
func ReportByCompany(scored []ScoredJob) map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for rank, s := range scored {
		key := s.Job.Company
		if key == "" {
			key = "(unknown company)"
		}

		entry := map[string]string{
			"rank":     strconv.Itoa(rank + 1),
			"title":    s.Job.Title,
			"location": s.Job.Location,
			"salary":   s.Job.Salary,
			"score":    strconv.FormatFloat(s.Score, 'f', 3, 64),
		}
		if s.Liked {
			entry["liked"] = "true"
		}
		if s.Explanation != "" {
			entry["explanation"] = s.Explanation
		}

		report[key] = append(report[key], entry)
	}
	return report
}

// DumpToTmpFile writes the ranking as indented JSON to a new temporary file and
// returns its name.
func DumpToTmpFile(scored []ScoredJob) (string, error) {
	file, err := os.CreateTemp("", "recommendations_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Recommendations(scored)); err != nil {
		return "", fmt.Errorf("encode recommendations: %w", err)
	}

	return file.Name(), nil
}
