package recommend

import "strings"

// Similarity scores two phrases from 0 (unrelated) to 100 (same), ignoring case.
type Similarity interface {
	Ratio(a, b string) int
}

// SkillScore averages, over the job's required skills, the best similarity of
// each to any candidate skill. Either list empty scores 0.
func SkillScore(sim Similarity, candidate, required []string) float64 {
	if len(candidate) == 0 || len(required) == 0 {
		return 0
	}

	total := 0.0
	for _, req := range required {
		best := 0
		for _, have := range candidate {
			if r := sim.Ratio(strings.ToLower(req), strings.ToLower(have)); r > best {
				best = r
			}
		}
		total += clamp01(float64(best) / 100)
	}

	return total / float64(len(required))
}
