package scope

import (
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
)

// ConflictReason names why a rename was refused.
type ConflictReason int

const (
	ReasonReservedWord ConflictReason = iota
	ReasonShadow
	ReasonCollision
)

// Conflict describes one rename-blocking condition: some scope
// contains a definition of new that would shadow a reference to old,
// or renaming would collapse two distinct bindings into one in some
// scope, or new is a reserved word.
type Conflict struct {
	Reason ConflictReason
	Path   string
	Detail string
}

// DetectConflicts checks the three rename-blocking conditions. oldRefs
// and newRefs are the resolved references (via FindReferences) for the
// old and new names respectively; trees maps file path to that file's
// scope tree, used to find the innermost scope for each reference.
func DetectConflicts(oldRefs, newRefs []Reference, trees map[string]*Tree, old, new string, lang langs.Language) []Conflict {
	var conflicts []Conflict

	if langs.IsReserved(lang, new) {
		conflicts = append(conflicts, Conflict{
			Reason: ReasonReservedWord,
			Detail: new + " is a reserved word in " + string(lang),
		})
	}

	oldScopes := scopeIDsByRef(oldRefs, trees)
	newDefs := defsByScope(newRefs, trees)

	for i, ref := range oldRefs {
		scopeID := oldScopes[i]
		tree, ok := trees[ref.Path]
		if !ok {
			continue
		}
		node := findNode(tree, scopeID)
		if node == nil {
			continue
		}
		for _, ancestor := range node.Ancestors() {
			key := scopeKey(ref.Path, ancestor.ID)
			if newDefs[key] {
				conflicts = append(conflicts, Conflict{
					Reason: ReasonShadow,
					Path:   ref.Path,
					Detail: "existing definition of " + new + " would shadow renamed reference to " + old,
				})
				break
			}
		}
	}

	// Collision: two distinct old-definitions in the same scope would
	// both become `new`, colliding with each other.
	defScopeCounts := map[string]int{}
	for i, ref := range oldRefs {
		if ref.Kind != Definition {
			continue
		}
		key := scopeKey(ref.Path, oldScopes[i])
		defScopeCounts[key]++
	}
	for key, n := range defScopeCounts {
		if n > 1 {
			conflicts = append(conflicts, Conflict{
				Reason: ReasonCollision,
				Detail: "multiple distinct bindings of " + old + " in the same scope would collapse into one " + new,
				Path:   key,
			})
		}
	}

	return conflicts
}

func scopeIDsByRef(refs []Reference, trees map[string]*Tree) []int {
	ids := make([]int, len(refs))
	for i, ref := range refs {
		tree, ok := trees[ref.Path]
		if !ok {
			ids[i] = -1
			continue
		}
		node := tree.InnermostAt(ref.Range.Start)
		ids[i] = node.ID
	}
	return ids
}

func defsByScope(refs []Reference, trees map[string]*Tree) map[string]bool {
	out := map[string]bool{}
	for _, ref := range refs {
		if ref.Kind != Definition {
			continue
		}
		tree, ok := trees[ref.Path]
		if !ok {
			continue
		}
		node := tree.InnermostAt(ref.Range.Start)
		out[scopeKey(ref.Path, node.ID)] = true
	}
	return out
}

func scopeKey(path string, scopeID int) string {
	return path + "#" + itoaScope(scopeID)
}

func findNode(t *Tree, id int) *Node {
	for _, n := range t.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func itoaScope(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
