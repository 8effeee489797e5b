package duplication

import (
	"sort"
	"strconv"

	"github.com/astgrepmcp/astgrepmcp/internal/similarity"
)

// DefaultThreshold is the minimum pairwise similarity an edge needs to
// participate in group formation.
const DefaultThreshold = 0.6

// Group is a set of constructs judged mutually similar, within a merge
// guard of DefaultThreshold (or a caller-supplied threshold).
type Group struct {
	Members       []Construct
	Representative int
	MinSimilarity  float64
	AvgSimilarity  float64
}

type pairEdge struct {
	i, j       int
	similarity float64
}

// BuildGroups computes pairwise similarity within items sharing a
// bucket key, then forms groups via transitive closure of edges with
// similarity >= threshold, enforcing a merge guard: a merge is only
// accepted if the resulting group's minimum pairwise similarity stays
// >= threshold. A union-find assignment means every construct ends up
// in at most one group by construction, so every construct appears in
// at most one final group without a separate reconciliation pass.
func BuildGroups(items []Construct, threshold float64) []Group {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	buckets := make(map[uint64][]int)
	features := make([]Features, len(items))
	for i, c := range items {
		f := Extract(c)
		features[i] = f
		buckets[f.BucketKey] = append(buckets[f.BucketKey], i)
	}

	var groups []Group
	for _, indices := range buckets {
		if len(indices) < 2 {
			continue
		}
		groups = append(groups, buildBucketGroups(items, features, indices, threshold)...)
	}
	return groups
}

func buildBucketGroups(items []Construct, features []Features, indices []int, threshold float64) []Group {
	n := len(indices)
	// sim[a][b] is the full pairwise similarity matrix for this bucket,
	// indexed by position within `indices` (small by construction, since
	// bucketing is designed to keep bucket sizes tiny). Positions an LSH
	// candidate query never surfaces are left at their zero value, which
	// is safe: they never clear threshold in the edge scan or the merge
	// guard below, so an LSH false-negative just costs a missed edge
	// rather than a wrong one.
	sim := make([][]float64, n)
	for a := range sim {
		sim[a] = make([]float64, n)
	}

	idx := similarity.NewIndex(similarity.DefaultBands, similarity.DefaultRows)
	for a := 0; a < n; a++ {
		idx.Insert(strconv.Itoa(a), features[indices[a]].Comparable.Signature)
	}

	var edges []pairEdge
	compared := make(map[[2]int]bool)
	for a := 0; a < n; a++ {
		candidates := idx.QueryCandidates(strconv.Itoa(a), features[indices[a]].Comparable.Signature)
		for _, candidate := range candidates {
			c, err := strconv.Atoi(candidate)
			if err != nil {
				continue
			}
			lo, hi := a, c
			if hi < lo {
				lo, hi = hi, lo
			}
			if lo == hi || compared[[2]int{lo, hi}] {
				continue
			}
			compared[[2]int{lo, hi}] = true

			res, err := similarity.Compare(features[indices[lo]].Comparable, features[indices[hi]].Comparable, nil)
			if err != nil {
				continue
			}
			sim[lo][hi] = res.Similarity
			sim[hi][lo] = res.Similarity
			if res.Similarity >= threshold {
				edges = append(edges, pairEdge{i: lo, j: hi, similarity: res.Similarity})
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].similarity > edges[j].similarity })

	uf := newUnionFind(n)
	clusters := make(map[int][]int) // root -> member positions
	for i := 0; i < n; i++ {
		clusters[i] = []int{i}
	}

	for _, e := range edges {
		ra, rb := uf.find(e.i), uf.find(e.j)
		if ra == rb {
			continue
		}
		membersA, membersB := clusters[ra], clusters[rb]
		if minPairwise(sim, membersA, membersB) < threshold {
			continue
		}
		merged := append(append([]int{}, membersA...), membersB...)
		newRoot := uf.union(ra, rb)
		delete(clusters, ra)
		delete(clusters, rb)
		clusters[newRoot] = merged
	}

	var groups []Group
	for _, members := range clusters {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, buildGroup(items, indices, sim, members))
	}
	return groups
}

// minPairwise returns the minimum similarity across every pair crossing
// the two candidate member sets, the guard a group merge requires.
func minPairwise(sim [][]float64, membersA, membersB []int) float64 {
	min := 1.0
	for _, a := range membersA {
		for _, b := range membersB {
			if sim[a][b] < min {
				min = sim[a][b]
			}
		}
	}
	return min
}

func buildGroup(items []Construct, indices []int, sim [][]float64, members []int) Group {
	g := Group{}
	for _, m := range members {
		g.Members = append(g.Members, items[indices[m]])
	}

	bestAvg := -1.0
	bestLocal := members[0]
	var total float64
	var pairCount int
	minSim := 1.0
	for _, a := range members {
		var avg float64
		var n int
		for _, b := range members {
			if a == b {
				continue
			}
			avg += sim[a][b]
			n++
			if a < b {
				total += sim[a][b]
				pairCount++
				if sim[a][b] < minSim {
					minSim = sim[a][b]
				}
			}
		}
		if n > 0 {
			avg /= float64(n)
		}
		if avg > bestAvg {
			bestAvg = avg
			bestLocal = a
		}
	}

	for i, m := range members {
		if m == bestLocal {
			g.Representative = i
			break
		}
	}
	g.MinSimilarity = minSim
	if pairCount > 0 {
		g.AvgSimilarity = total / float64(pairCount)
	}
	return g
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) int {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return ra
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	return ra
}
