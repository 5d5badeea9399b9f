package recommend

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	experienceRangeRe  = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)
	experienceSingleRe = regexp.MustCompile(`\d+`)
	// salaryRe reads numbers written in three digit groups, "10,00,000" or "1500000".
	salaryRe = regexp.MustCompile(`(\d+),?(\d+),?(\d+)`)
)

// ParseExperience reads "3-5 years" as 3..5 and "4+ years" as 4..4.
// Text without digits gives the zero Range.
func ParseExperience(s string) Range {
	if m := experienceRangeRe.FindStringSubmatch(s); m != nil {
		lo, errLo := strconv.Atoi(m[1])
		hi, errHi := strconv.Atoi(m[2])
		if errLo != nil || errHi != nil {
			return Range{}
		}
		return Range{Min: float64(lo), Max: float64(hi)}
	}

	if m := experienceSingleRe.FindString(s); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			return Range{}
		}
		return Range{Min: float64(n), Max: float64(n)}
	}

	return Range{}
}

// ParseSalary takes the first number of s as the minimum and the last as the
// maximum, dropping thousands separators. Text without a match gives the zero Range.
func ParseSalary(s string) Range {
	matches := salaryRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return Range{}
	}

	lo, errLo := strconv.ParseFloat(strings.Join(matches[0][1:], ""), 64)
	hi, errHi := strconv.ParseFloat(strings.Join(matches[len(matches)-1][1:], ""), 64)
	if errLo != nil || errHi != nil {
		return Range{}
	}

	return Range{Min: lo, Max: hi}
}
