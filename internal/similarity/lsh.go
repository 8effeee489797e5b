package similarity

import "github.com/cespare/xxhash/v2"

// DefaultBands and DefaultRows partition the 128-wide signature into
// bands for LSH bucketing: items sharing any band's hash are inserted
// into the same bucket, giving query_candidates near-O(1) lookup
// instead of an O(n) pairwise scan.
const (
	DefaultBands = 32
	DefaultRows  = NumPermutations / DefaultBands
)

type bucketKey struct {
	band uint64
	hash uint64
}

// Index is an LSH index over inserted MinHash signatures.
type Index struct {
	bands   int
	rows    int
	buckets map[bucketKey][]string
	sigs    map[string]Signature
}

// NewIndex builds an empty LSH index with the given band/row split.
func NewIndex(bands, rows int) *Index {
	if bands <= 0 {
		bands = DefaultBands
	}
	if rows <= 0 {
		rows = DefaultRows
	}
	return &Index{
		bands:   bands,
		rows:    rows,
		buckets: make(map[bucketKey][]string),
		sigs:    make(map[string]Signature),
	}
}

// Insert adds id's signature to every band bucket it falls into.
func (ix *Index) Insert(id string, sig Signature) {
	ix.sigs[id] = sig
	for b := 0; b < ix.bands; b++ {
		key := bucketKey{band: uint64(b), hash: bandHash(sig, b, ix.rows)}
		ix.buckets[key] = append(ix.buckets[key], id)
	}
}

// QueryCandidates returns every previously-inserted id sharing at
// least one band bucket with sig, deduplicated, excluding id itself.
func (ix *Index) QueryCandidates(id string, sig Signature) []string {
	seen := map[string]bool{id: true}
	var out []string
	for b := 0; b < ix.bands; b++ {
		key := bucketKey{band: uint64(b), hash: bandHash(sig, b, ix.rows)}
		for _, candidate := range ix.buckets[key] {
			if !seen[candidate] {
				seen[candidate] = true
				out = append(out, candidate)
			}
		}
	}
	return out
}

func bandHash(sig Signature, band, rows int) uint64 {
	start := band * rows
	end := start + rows
	if end > len(sig) {
		end = len(sig)
	}
	var h xxhash.Digest
	h.Reset()
	buf := make([]byte, 8)
	for i := start; i < end; i++ {
		v := sig[i]
		for j := 0; j < 8; j++ {
			buf[j] = byte(v >> (8 * j))
		}
		h.Write(buf)
	}
	return h.Sum64()
}
