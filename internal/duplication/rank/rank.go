// Package rank implements the ranker (C9): a pure scoring and sorting
// function over duplication candidates.
package rank

import "sort"

// Candidate is one scored duplication group, ready for ranking.
type Candidate struct {
	GroupID       string
	MemberCount   int
	AvgBodyLines  int
	AvgCyclomatic float64
	FilesAffected int
	HasTests      bool
	CallSiteCount int

	Savings    float64
	Complexity float64
	Risk       float64
	Effort     float64
	Score      float64
}

// Weights are the ranker's component weights:
// 0.40*savings + 0.20*complexity + 0.25*risk + 0.15*effort.
type Weights struct {
	Savings    float64
	Complexity float64
	Risk       float64
	Effort     float64
}

// DefaultWeights is the documented default weighting.
var DefaultWeights = Weights{Savings: 0.40, Complexity: 0.20, Risk: 0.25, Effort: 0.15}

// manyCallSitesThreshold is the call-site count above which the risk
// component's "many call sites" penalty applies.
const manyCallSitesThreshold = 10

// Rank scores every candidate, sorts descending by Score (ties broken
// by savings descending, then files_affected ascending), and truncates
// to maxResults if it is > 0.
func Rank(candidates []Candidate, weights Weights, maxResults int) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		score(&out[i], weights)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Savings != out[j].Savings {
			return out[i].Savings > out[j].Savings
		}
		return out[i].FilesAffected < out[j].FilesAffected
	})

	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func score(c *Candidate, w Weights) {
	linesSaved := float64(c.MemberCount-1) * float64(c.AvgBodyLines)
	c.Savings = clamp((linesSaved/500)*100, 0, 100)

	cyclomatic := c.AvgCyclomatic
	if cyclomatic > 10 {
		cyclomatic = 10
	}
	c.Complexity = 100 - cyclomatic*10

	risk := 100.0
	if !c.HasTests {
		risk -= 30
	}
	if c.CallSiteCount > manyCallSitesThreshold {
		risk -= 20
	}
	c.Risk = clamp(risk, 0, 100)

	effort := 100.0 - float64(c.FilesAffected)*5
	c.Effort = clamp(effort, 0, 100)

	c.Score = w.Savings*c.Savings + w.Complexity*c.Complexity + w.Risk*c.Risk + w.Effort*c.Effort
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
