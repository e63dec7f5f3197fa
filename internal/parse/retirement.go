package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// RetirementEstimate is what could be extracted from a free-text retirement
// estimate such as "Retiring Q3 2025 (+12% pop)". Known is false when no year
// was found; in that case Year and Quarter are zero and nothing is guessed.
type RetirementEstimate struct {
	Year       int
	Quarter    int // 1-4, 0 when only the year is known
	Percent    float64
	HasPercent bool
	Known      bool
}

var (
	yearPattern      = regexp.MustCompile(`\b(20\d{2})\b`)
	yearMonthPattern = regexp.MustCompile(`\b20\d{2}[-/](0[1-9]|1[0-2])\b`)
	quarterPattern   = regexp.MustCompile(`(?i)\bQ([1-4])\b`)
	qualifierPattern = regexp.MustCompile(`(?i)\b(early|mid|middle|late|end)\b`)
	percentPattern   = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?\s*%`)
)

// Retirement extracts a year, quarter and embedded percentage from text.
func Retirement(s string) RetirementEstimate {
	var est RetirementEstimate
	s = strings.TrimSpace(s)
	if s == "" {
		return est
	}

	if m := percentPattern.FindString(s); m != "" {
		est.Percent = Percent(m)
		est.HasPercent = true
		// keep "+20%" from being read as part of a year
		s = strings.Replace(s, m, " ", 1)
	}

	m := yearPattern.FindStringSubmatch(s)
	if m == nil {
		return est
	}
	est.Year, _ = strconv.Atoi(m[1])
	est.Known = true

	switch {
	case quarterPattern.MatchString(s):
		q := quarterPattern.FindStringSubmatch(s)
		est.Quarter, _ = strconv.Atoi(q[1])
	case yearMonthPattern.MatchString(s):
		mm := yearMonthPattern.FindStringSubmatch(s)
		month, _ := strconv.Atoi(mm[1])
		est.Quarter = (month-1)/3 + 1
	case qualifierPattern.MatchString(s):
		switch strings.ToLower(qualifierPattern.FindStringSubmatch(s)[1]) {
		case "early":
			est.Quarter = 1
		case "mid", "middle":
			est.Quarter = 2
		case "late", "end":
			est.Quarter = 4
		}
	}
	return est
}
