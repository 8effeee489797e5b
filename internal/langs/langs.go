// Package langs holds the small set of language-specific facts the core
// needs without itself parsing source: file extensions, test-file glob
// patterns, and reserved-word sets used by conflict detection.
package langs

// Language identifies a source language ast-grep understands.
type Language string

const (
	Go         Language = "go"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	Rust       Language = "rust"
	CSharp     Language = "csharp"
)

// Extensions returns the file extensions (with leading dot) considered
// part of this language, used by the executor's path filter.
func Extensions(lang Language) []string {
	switch lang {
	case Go:
		return []string{".go"}
	case Python:
		return []string{".py", ".pyi"}
	case JavaScript:
		return []string{".js", ".jsx", ".mjs", ".cjs"}
	case TypeScript:
		return []string{".ts", ".tsx"}
	case Java:
		return []string{".java"}
	case Rust:
		return []string{".rs"}
	case CSharp:
		return []string{".cs"}
	default:
		return nil
	}
}

// TestGlobs returns the glob patterns (doublestar syntax) this
// language's test-file convention uses, for the coverage/impact
// component's has_tests lookup.
func TestGlobs(lang Language) []string {
	switch lang {
	case Go:
		return []string{"**/*_test.go"}
	case Python:
		return []string{"**/test_*.py", "**/*_test.py", "**/tests/**/*.py"}
	case JavaScript:
		return []string{"**/*.test.js", "**/*.spec.js", "**/__tests__/**/*.js"}
	case TypeScript:
		return []string{"**/*.test.ts", "**/*.spec.ts", "**/__tests__/**/*.ts"}
	case Java:
		return []string{"**/*Test.java", "**/*Tests.java"}
	case Rust:
		return []string{"**/tests/**/*.rs"}
	case CSharp:
		return []string{"**/*Tests.cs", "**/*Test.cs"}
	default:
		return nil
	}
}

// SameDirTestSuffix reports the in-package test-file convention some
// languages use (Go's _test.go living next to the source file), needed
// because TestGlobs alone would miss test files that never reference
// the source file by import path.
func SameDirTestSuffix(lang Language) (suffix string, ok bool) {
	if lang == Go {
		return "_test.go", true
	}
	return "", false
}

// reservedWords is the set consulted by rename conflict detection to
// reject a new name that is a reserved word in the language.
var reservedWords = map[Language]map[string]bool{
	Go: setOf("break", "case", "chan", "const", "continue", "default",
		"defer", "else", "fallthrough", "for", "func", "go", "goto",
		"if", "import", "interface", "map", "package", "range", "return",
		"select", "struct", "switch", "type", "var"),
	Python: setOf("False", "None", "True", "and", "as", "assert", "async",
		"await", "break", "class", "continue", "def", "del", "elif",
		"else", "except", "finally", "for", "from", "global", "if",
		"import", "in", "is", "lambda", "nonlocal", "not", "or", "pass",
		"raise", "return", "try", "while", "with", "yield"),
	JavaScript: setOf("break", "case", "catch", "class", "const",
		"continue", "debugger", "default", "delete", "do", "else",
		"export", "extends", "finally", "for", "function", "if",
		"import", "in", "instanceof", "new", "return", "super", "switch",
		"this", "throw", "try", "typeof", "var", "void", "while", "with",
		"yield", "let", "static", "async", "await"),
}

func init() {
	reservedWords[TypeScript] = reservedWords[JavaScript]
}

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsReserved reports whether name is a reserved word in lang.
func IsReserved(lang Language, name string) bool {
	return reservedWords[lang][name]
}
