// Package matcher defines the data consumed from and sent to the
// external ast-grep process: the match JSON schema, rule documents, and
// the 0-based -> 1-based line/column conversion boundary.
package matcher

import (
	"encoding/json"
	"fmt"

	"github.com/astgrepmcp/astgrepmcp/internal/langs"
)

// Position is a 1-indexed line/column pair, inclusive of start and
// exclusive of end per the data model.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range spans from Start (inclusive) to End (exclusive).
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// BindingKind distinguishes the two observed forms a metavariable
// binding takes on the wire: a bare bound-text string, or a full
// sub-match record with its own range. Collapsing this dynamic,
// duck-typed shape into a tagged union is one of the re-architecture
// points the design calls out explicitly.
type BindingKind int

const (
	BindingText BindingKind = iota
	BindingFullMatch
)

// Binding is a metavariable's bound content.
type Binding struct {
	Kind  BindingKind
	Text  string
	Range Range
}

// UnmarshalJSON accepts both {"text": "..."} and a full match object
// ({"text":..., "range":...}), matching the two shapes ast-grep emits
// depending on whether the metavariable was given a `range` or not.
func (b *Binding) UnmarshalJSON(data []byte) error {
	var full struct {
		Text  string `json:"text"`
		Range *Range `json:"range"`
	}
	if err := json.Unmarshal(data, &full); err != nil {
		return fmt.Errorf("decode metavariable binding: %w", err)
	}
	b.Text = full.Text
	if full.Range != nil {
		b.Kind = BindingFullMatch
		b.Range = *full.Range
	} else {
		b.Kind = BindingText
	}
	return nil
}

// MatchRecord is the core's canonical, immutable representation of a
// single structural match, already converted to 1-based positions.
type MatchRecord struct {
	File     string
	Range    Range
	Text     string
	MetaVars map[string]Binding
}

// wireMatch mirrors the matcher's on-the-wire JSON shape, 0-indexed.
type wireMatch struct {
	File          string             `json:"file"`
	Range         wireRange          `json:"range"`
	Text          string             `json:"text"`
	MetaVariables map[string]Binding `json:"metaVariables"`
}

type wirePosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type wireRange struct {
	Start wirePosition `json:"start"`
	End   wirePosition `json:"end"`
}

// DecodeMatch parses a single JSON match document (one line of
// streaming output, or one element of a non-streaming array) and
// converts its 0-based positions to the 1-based convention the rest of
// the core uses.
func DecodeMatch(data []byte) (MatchRecord, error) {
	var w wireMatch
	if err := json.Unmarshal(data, &w); err != nil {
		return MatchRecord{}, fmt.Errorf("decode match: %w", err)
	}
	return MatchRecord{
		File: w.File,
		Range: Range{
			Start: Position{Line: w.Range.Start.Line + 1, Column: w.Range.Start.Column + 1},
			End:   Position{Line: w.Range.End.Line + 1, Column: w.Range.End.Column + 1},
		},
		Text:     w.Text,
		MetaVars: w.MetaVariables,
	}, nil
}

// DecodeMatches parses a non-streaming `--json` array response.
func DecodeMatches(data []byte) ([]MatchRecord, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode match array: %w", err)
	}
	out := make([]MatchRecord, 0, len(raws))
	for _, raw := range raws {
		m, err := DecodeMatch(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Rule is the subset of an ast-grep rule document the core constructs
// and forwards unchanged, per the consumed rule format: at least
// {id, language, rule}, with relational rules optionally adding `kind`
// and `stopBy: end`.
type Rule struct {
	ID       string         `yaml:"id"`
	Language langs.Language `yaml:"language"`
	Rule     map[string]any `yaml:"rule"`
	Kind     string         `yaml:"kind,omitempty"`
	StopBy   string         `yaml:"stopBy,omitempty"`
}
