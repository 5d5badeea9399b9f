// Package profile reads resumes and job lists as they arrive from users: JSON
// or YAML documents with loosely typed values.
package profile

import (
	"strings"

	"github.com/spigell/job-recommender/internal/recommend"
)

type Education struct {
	Degree         string `json:"Degree" mapstructure:"Degree"`
	Specialization string `json:"Specialization" mapstructure:"Specialization"`
	Institute      string `json:"Institute" mapstructure:"Institute"`
	// Start and End are years or free text such as "Present".
	Start string `json:"Start" mapstructure:"Start"`
	End   string `json:"End" mapstructure:"End"`
}

type Experience struct {
	Company     string `json:"Company Name" mapstructure:"Company Name"`
	Designation string `json:"Designation" mapstructure:"Designation"`
	Start       string `json:"Start" mapstructure:"Start"`
	End         string `json:"End" mapstructure:"End"`
	Description string `json:"Description" mapstructure:"Description"`
}

type Resume struct {
	Name                string              `json:"Name" mapstructure:"Name"`
	Email               string              `json:"Email" mapstructure:"Email"`
	PhoneNumber         string              `json:"Phone-Number" mapstructure:"Phone-Number"`
	Summary             string              `json:"Summary" mapstructure:"Summary"`
	CurrentLocation     string              `json:"Current-Location" mapstructure:"Current-Location"`
	CurrentCompany      string              `json:"Current-Company" mapstructure:"Current-Company"`
	Skills              []string            `json:"Skills" mapstructure:"Skills"`
	LinkedinID          string              `json:"Linkedin-Id" mapstructure:"Linkedin-Id"`
	GithubID            string              `json:"Github-Id" mapstructure:"Github-Id"`
	TotalExperience     float64             `json:"Total-Experience" mapstructure:"Total-Experience"`
	Education           []Education         `json:"Education" mapstructure:"Education"`
	EducationYear       []string            `json:"Education-Year" mapstructure:"Education-Year"`
	Experiences         []Experience        `json:"Experiences" mapstructure:"Experiences"`
	Projects            []map[string]string `json:"Projects" mapstructure:"Projects"`
	RolesResponsibility []string            `json:"Roles-Responsibility" mapstructure:"Roles-Responsibility"`
	Certifications      []string            `json:"Certifications" mapstructure:"Certifications"`
	ExpectedSalary      *float64            `json:"Expected-Salary,omitempty" mapstructure:"Expected-Salary"`
	// NoticePeriod is in days.
	NoticePeriod *int `json:"Notice_Period,omitempty" mapstructure:"Notice_Period"`
}

// Candidate extracts the fields the ranking uses.
func (r *Resume) Candidate() recommend.Candidate {
	skills := make([]string, 0, len(r.Skills))
	for _, s := range r.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}

	return recommend.Candidate{
		Name:            r.Name,
		Skills:          skills,
		TotalExperience: r.TotalExperience,
		Location:        strings.TrimSpace(r.CurrentLocation),
		ExpectedSalary:  r.ExpectedSalary,
		NoticePeriod:    r.NoticePeriod,
	}
}
