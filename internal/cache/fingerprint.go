// Package cache implements the query result cache (C2): a bounded,
// TTL-expiring map from query fingerprint to structural match list,
// shared across output formats.
package cache

import (
	"crypto/sha256"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/astgrepmcp/astgrepmcp/internal/langs"
)

// Fingerprint is the canonical identity of a structural query: command
// kind, pattern/rule text, language, target-path set, and any filters
// that affect result identity. It is shared across output formats;
// presentation is derived from the stored match list, never part of
// the key.
type Fingerprint struct {
	Command       string // "find" or "find-by-rule"
	PatternOrRule string
	Language      langs.Language
	Paths         []string
	MaxFileSize   int64
	ExcludeGlobs  []string
}

// Digest returns the SHA-256 over the canonicalized fingerprint fields,
// used as the strong identity for the (rare) case of a 64-bit Key
// collision, and Key, a cheap xxhash-derived map key for the common
// path.
func (f Fingerprint) Digest() [32]byte {
	paths := append([]string(nil), f.Paths...)
	sort.Strings(paths)
	globs := append([]string(nil), f.ExcludeGlobs...)
	sort.Strings(globs)

	var b strings.Builder
	b.WriteString(f.Command)
	b.WriteByte('\x00')
	b.WriteString(f.PatternOrRule)
	b.WriteByte('\x00')
	b.WriteString(string(f.Language))
	b.WriteByte('\x00')
	b.WriteString(strings.Join(paths, "\x1f"))
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatInt(f.MaxFileSize, 10))
	b.WriteByte('\x00')
	b.WriteString(strings.Join(globs, "\x1f"))

	return sha256.Sum256([]byte(b.String()))
}

// Key is the map key used by QueryCache: a cheap 64-bit hash of the
// digest bytes. Ties (extremely unlikely at this scale) are broken by
// comparing the full digest stored alongside the entry.
func (f Fingerprint) Key() uint64 {
	d := f.Digest()
	return xxhash.Sum64(d[:])
}
