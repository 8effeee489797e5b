package similarity

import "github.com/cespare/xxhash/v2"

// NumPermutations is the MinHash signature width (128 permutations).
const NumPermutations = 128

// KGramSize is the default shingle length tokens are grouped into
// before hashing.
const KGramSize = 3

// Signature is a MinHash sketch of a token sequence.
type Signature [NumPermutations]uint64

// permutationSalts seeds NumPermutations independent hash functions,
// one salt per permutation drawn from a 64-bit linear congruential
// sequence, avoiding a
// dependency on a dedicated MinHash library (none exists in the
// example corpus).
var permutationSalts = func() [NumPermutations]uint64 {
	var salts [NumPermutations]uint64
	seed := uint64(0x9E3779B97F4A7C15)
	for i := range salts {
		seed = seed*6364136223846793005 + 1442695040888963407
		salts[i] = seed
	}
	return salts
}()

// KGrams groups tokens into overlapping windows of size k, the unit
// MinHash hashes over. Token sequences shorter than k produce a single
// k-gram of the whole sequence.
func KGrams(tokens []string, k int) []string {
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) <= k {
		return []string{joinTokens(tokens)}
	}
	grams := make([]string, 0, len(tokens)-k+1)
	for i := 0; i+k <= len(tokens); i++ {
		grams = append(grams, joinTokens(tokens[i:i+k]))
	}
	return grams
}

func joinTokens(tokens []string) string {
	total := 0
	for _, t := range tokens {
		total += len(t) + 1
	}
	buf := make([]byte, 0, total)
	for i, t := range tokens {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, t...)
	}
	return string(buf)
}

// ComputeSignature builds a MinHash signature over the given k-grams:
// for each of the 128 permutations, the minimum salted hash across all
// k-grams.
func ComputeSignature(kgrams []string) Signature {
	var sig Signature
	for i := range sig {
		sig[i] = ^uint64(0)
	}
	if len(kgrams) == 0 {
		return sig
	}

	base := make([]uint64, len(kgrams))
	for i, g := range kgrams {
		base[i] = xxhash.Sum64String(g)
	}

	for p := 0; p < NumPermutations; p++ {
		salt := permutationSalts[p]
		min := ^uint64(0)
		for _, h := range base {
			v := h ^ salt
			v *= 0xff51afd7ed558ccd
			v ^= v >> 33
			if v < min {
				min = v
			}
		}
		sig[p] = min
	}
	return sig
}

// EstimateJaccard returns the fraction of agreeing signature slots, an
// unbiased estimator of the Jaccard similarity between the two
// underlying k-gram sets.
func EstimateJaccard(a, b Signature) float64 {
	agree := 0
	for i := range a {
		if a[i] == b[i] {
			agree++
		}
	}
	return float64(agree) / float64(NumPermutations)
}
