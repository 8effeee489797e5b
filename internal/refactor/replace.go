package refactor

import (
	"sort"

	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
	"github.com/astgrepmcp/astgrepmcp/internal/refactor/scope"
)

// replaceReferences rewrites content, substituting new for every
// reference's matched span. Replacements are applied right-to-left so
// earlier byte offsets stay valid as later ones shift the content.
func replaceReferences(content []byte, refs []scope.Reference, new string) []byte {
	offsets := lineStartOffsets(content)

	ordered := make([]scope.Reference, len(refs))
	copy(ordered, refs)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Range.Start.Line != ordered[j].Range.Start.Line {
			return ordered[i].Range.Start.Line > ordered[j].Range.Start.Line
		}
		return ordered[i].Range.Start.Column > ordered[j].Range.Start.Column
	})

	out := append([]byte(nil), content...)
	for _, ref := range ordered {
		start := byteOffset(offsets, ref.Range.Start)
		end := byteOffset(offsets, ref.Range.End)
		if start < 0 || end < 0 || start > len(out) || end > len(out) || start > end {
			continue
		}
		rebuilt := make([]byte, 0, len(out)-(end-start)+len(new))
		rebuilt = append(rebuilt, out[:start]...)
		rebuilt = append(rebuilt, []byte(new)...)
		rebuilt = append(rebuilt, out[end:]...)
		out = rebuilt
	}
	return out
}

// lineStartOffsets returns, for each 1-based line number, the byte
// offset its first column begins at.
func lineStartOffsets(content []byte) []int {
	offsets := []int{0, 0} // index 0 unused, line 1 starts at 0
	for i, b := range content {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func byteOffset(lineStarts []int, pos matcher.Position) int {
	if pos.Line < 1 || pos.Line >= len(lineStarts) {
		return -1
	}
	return lineStarts[pos.Line] + (pos.Column - 1)
}
