package rewrite

import (
	"testing"

	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/stretchr/testify/assert"
)

func TestDefaultValidatorAcceptsBalanced(t *testing.T) {
	src := `func foo() { return bar(1, []int{2, 3}) }`
	result := DefaultValidator(langs.Go, []byte(src))
	assert.True(t, result.OK)
}

func TestDefaultValidatorRejectsUnclosedBrace(t *testing.T) {
	src := `func foo() { return 1`
	result := DefaultValidator(langs.Go, []byte(src))
	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Errors)
}

func TestDefaultValidatorRejectsMismatchedDelimiter(t *testing.T) {
	src := `func foo() { return bar(1] }`
	result := DefaultValidator(langs.Go, []byte(src))
	assert.False(t, result.OK)
}

func TestDefaultValidatorIgnoresDelimitersInsideStrings(t *testing.T) {
	src := `msg := "unbalanced ( bracket [ here"`
	result := DefaultValidator(langs.Go, []byte(src))
	assert.True(t, result.OK)
}

func TestDefaultValidatorRejectsUnterminatedString(t *testing.T) {
	src := `msg := "never closed`
	result := DefaultValidator(langs.Go, []byte(src))
	assert.False(t, result.OK)
}
