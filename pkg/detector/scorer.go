package detector

import "strings"

// FilenameWeight is what a keyword found in the filename is worth relative to
// a header token match (1). It is a tuning knob for the heuristic.
const FilenameWeight = 0.7

// ScoreTable holds one score per dataset for a single detection call.
type ScoreTable map[Dataset]float64

// Score counts every (token, keyword) containment pair per dataset and adds
// FilenameWeight for each keyword present in the filename.
func Score(tokens []string, filename string) ScoreTable {
	lowerName := strings.ToLower(filename)
	scores := make(ScoreTable, len(catalog))

	for _, d := range All() {
		var total float64
		for _, keyword := range catalog[d] {
			for _, token := range tokens {
				if strings.Contains(token, keyword) {
					total++
				}
			}

			stripped := strings.ReplaceAll(keyword, "_", "")
			if stripped != "" && strings.Contains(lowerName, stripped) {
				total += FilenameWeight
			}
		}
		scores[d] = total
	}

	return scores
}

// Leader returns the highest scoring dataset, first in catalog order on ties.
func (s ScoreTable) Leader() (Dataset, float64) {
	leader, best := Default, -1.0
	for _, d := range All() {
		if s[d] > best {
			leader, best = d, s[d]
		}
	}
	return leader, best
}

// Best returns the dataset with the strictly highest score. A zero maximum or
// a tie for the maximum yields (Default, false).
func (s ScoreTable) Best() (Dataset, bool) {
	leader, best := s.Leader()
	if best <= 0 {
		return Default, false
	}

	for _, d := range All() {
		if d != leader && s[d] == best {
			return Default, false
		}
	}

	return leader, true
}
