// Package normalize decodes raw configuration text into a Document and
// renders the canonical text form that detectors pattern-match against.
//
// Decoding is attempted in three stages:
//
//  1. Strict JSON. Object key order is preserved.
//  2. The minimal flattening decoder below.
//  3. Raw text. The document keeps the input verbatim and reports Degraded.
//
// Flattening grammar (line oriented, not YAML):
//
//	blank lines and lines starting with '#' are skipped
//	key: value        at column 0 sets a top-level scalar
//	key:              at column 0 opens a block map ("key: {}" is the same)
//	key: []           at column 0 opens an empty block sequence
//	  key: value      indented, sets a key in the open block map
//	  - value         appends a scalar to the open block sequence
//	  - key: value    appends a map item; lines indented deeper than its
//	                  dash add keys to that item
//	    key:          inside a block map or item, opens a nested key whose
//	      - value     deeper (or level) list items form its sequence
//
// A block map turns into a sequence when its first line is a list item.
// Any other nesting below one level is flattened into the nearest open
// container.
// Scalars are coerced: integers, floats, true, false and null; a value
// wrapped in matching quotes is unquoted; anything else stays a string.
// Any other line fails the decoder.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// Format names the decoder that produced a Document.
type Format string

const (
	FormatJSON Format = "json"
	FormatFlat Format = "flat"
	FormatRaw  Format = "raw"
)

// Document is a decoded configuration. It is immutable once produced; callers
// must not modify values returned by Value or Lookup.
type Document struct {
	source    string
	value     any
	format    Format
	canonical string
	err       error
}

// Decode never fails: input that neither decoder accepts becomes a raw-text
// document.
func Decode(text string) *Document {
	v, jsonErr := decodeJSON(text)
	if jsonErr == nil {
		return structured(text, v, FormatJSON)
	}
	obj, flatErr := decodeFlat(text)
	if flatErr == nil {
		return structured(text, obj, FormatFlat)
	}
	return &Document{
		source:    text,
		value:     text,
		format:    FormatRaw,
		canonical: text,
		err:       flatErr,
	}
}

func structured(text string, v any, f Format) *Document {
	canonical, err := pretty(v)
	if err != nil {
		return &Document{source: text, value: text, format: FormatRaw, canonical: text, err: err}
	}
	return &Document{source: text, value: v, format: f, canonical: canonical}
}

// ParseJSON strictly decodes text with the same order-preserving decoder used
// for documents.
func ParseJSON(text string) (any, error) {
	return decodeJSON(text)
}

// Structured reports whether the document is a decoded tree.
func (d *Document) Structured() bool { return d.format != FormatRaw }

// Degraded reports whether both decoders rejected the input.
func (d *Document) Degraded() bool { return d.format == FormatRaw }

// DecodeError returns the reason the last decoder rejected the input. It is
// nil for structured documents.
func (d *Document) DecodeError() error { return d.err }

func (d *Document) Format() Format { return d.format }

// Source returns the input text exactly as received.
func (d *Document) Source() string { return d.source }

// Value returns the decoded tree, or the raw text for degraded documents.
func (d *Document) Value() any { return d.value }

// Canonical returns the text detectors match against: two-space indented JSON
// for structured documents, the unchanged input otherwise.
func (d *Document) Canonical() string { return d.canonical }

// Lookup walks nested objects along path.
func (d *Document) Lookup(path ...string) (any, bool) {
	if !d.Structured() {
		return nil, false
	}
	cur := d.value
	for _, key := range path {
		obj, ok := cur.(*Object)
		if !ok {
			return nil, false
		}
		if cur, ok = obj.Get(key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// MarshalJSON renders structured documents as ordered JSON and raw documents
// as a JSON string.
func (d *Document) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(d.value)
}

// Truthy reports whether v would count as set in a loosely typed config:
// nil, false, empty strings and zero numbers are not; containers always are.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	}
	return true
}

func pretty(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
