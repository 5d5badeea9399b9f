package recommend

import "math"

// RangeFitness is 1 inside r. Outside it falls linearly with the gap relative
// to the violated bound and bottoms out at 0. A violated bound of 0 scores 0.
func RangeFitness(value float64, r Range) float64 {
	switch {
	case math.IsNaN(value):
		return 0
	case value >= r.Min && value <= r.Max:
		return 1
	case value < r.Min:
		return relativePenalty(r.Min-value, r.Min)
	default:
		return relativePenalty(value-r.Max, r.Max)
	}
}

func relativePenalty(gap, bound float64) float64 {
	if bound == 0 {
		return 0
	}
	return clamp01(1 - gap/bound)
}

// ExperienceScore rates years of experience against a requirement such as "3-5 years".
func ExperienceScore(years float64, requirement string) float64 {
	return RangeFitness(years, ParseExperience(requirement))
}

// SalaryScore rates the expected salary against a salary text. No expectation scores 1.
func SalaryScore(salary string, expected *float64) float64 {
	if expected == nil {
		return 1
	}
	return RangeFitness(*expected, ParseSalary(salary))
}

// NoticePeriodScore rates how soon the candidate can join against the days the
// employer can wait. A missing value on either side scores 1.
func NoticePeriodScore(candidate, required *int) float64 {
	if candidate == nil || required == nil {
		return 1
	}

	c, r := float64(*candidate), float64(*required)
	if c < r {
		return 1
	}

	longest := math.Max(c, r)
	if longest == 0 {
		return 1
	}

	return clamp01(1 - math.Abs(c-r)/longest)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
