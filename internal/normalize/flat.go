package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	intPattern   = regexp.MustCompile(`^-?\d+$`)
	floatPattern = regexp.MustCompile(`^-?\d+\.\d+$`)

	errOutsideGrammar = errors.New("line is neither a key/value pair nor a list item")
	errNoOpenBlock    = errors.New("indented line without an open block")
)

// flatDecoder holds the state of the line-oriented decoder. Only one block
// (a top-level key whose value is a map or a sequence) is open at a time and
// only the most recent "- key: value" item of that block accepts
// continuation lines. The last nested key (in the block map or in the open
// item) accepts deeper "- value" lines as its sequence.
type flatDecoder struct {
	root       *Object
	block      string
	item       *Object
	itemIndent int

	lastObj    *Object
	lastKey    string
	lastIndent int
}

// decodeFlat decodes text with the minimal flattening grammar documented in
// the package comment. It fails on the first line outside the grammar and
// when no key was decoded at all.
func decodeFlat(text string) (*Object, error) {
	d := &flatDecoder{root: NewObject()}
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if err := d.line(indent, trimmed); err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
	}
	if d.root.Len() == 0 {
		return nil, errors.New("no key/value pairs found")
	}
	return d.root, nil
}

func (d *flatDecoder) line(indent int, s string) error {
	if s == "-" || strings.HasPrefix(s, "- ") {
		return d.listItem(indent, strings.TrimSpace(s[1:]))
	}
	key, value, ok := splitPair(s)
	if !ok {
		return errOutsideGrammar
	}
	if indent == 0 {
		d.topLevel(key, value)
		return nil
	}
	return d.nested(indent, key, value)
}

func (d *flatDecoder) topLevel(key, value string) {
	d.block, d.item, d.lastObj = "", nil, nil
	switch value {
	case "", "{}":
		d.root.Set(key, NewObject())
		d.block = key
	case "[]":
		d.root.Set(key, []any{})
		d.block = key
	default:
		d.root.Set(key, coerceScalar(value))
	}
}

func (d *flatDecoder) nested(indent int, key, value string) error {
	if d.block == "" {
		return errNoOpenBlock
	}
	v := coerceNested(value)
	if d.item != nil && indent > d.itemIndent {
		d.setLast(d.item, key, v, indent)
		return nil
	}
	cur, _ := d.root.Get(d.block)
	if obj, ok := cur.(*Object); ok {
		d.setLast(obj, key, v, indent)
		return nil
	}
	return fmt.Errorf("key %q inside sequence %q without a list marker", key, d.block)
}

func (d *flatDecoder) setLast(obj *Object, key string, v any, indent int) {
	obj.Set(key, v)
	d.lastObj, d.lastKey, d.lastIndent = obj, key, indent
}

// nestedList reports whether a list item at indent belongs to the last nested
// key: it must be indented deeper than that key, or level with it when the
// key holds an empty container or a sequence.
func (d *flatDecoder) nestedList(indent int) bool {
	if d.lastObj == nil || indent < d.lastIndent {
		return false
	}
	if indent > d.lastIndent {
		return true
	}
	v, _ := d.lastObj.Get(d.lastKey)
	switch c := v.(type) {
	case []any:
		return true
	case *Object:
		return c.Len() == 0
	}
	return false
}

// appendNested adds a list item to the sequence under the last nested key.
// A "- key: value" item becomes a one-key map; lines below it flatten into
// the open container.
func (d *flatDecoder) appendNested(body string) error {
	var seq []any
	cur, _ := d.lastObj.Get(d.lastKey)
	switch c := cur.(type) {
	case []any:
		seq = c
	case *Object:
		if c.Len() > 0 {
			return fmt.Errorf("list item inside map %q", d.lastKey)
		}
	default:
		return fmt.Errorf("list item under scalar %q", d.lastKey)
	}
	if key, value, ok := splitPair(body); ok {
		item := NewObject()
		item.Set(key, coerceNested(value))
		seq = append(seq, item)
	} else {
		seq = append(seq, coerceScalar(body))
	}
	d.lastObj.Set(d.lastKey, seq)
	return nil
}

func (d *flatDecoder) listItem(indent int, body string) error {
	if d.block == "" {
		return errNoOpenBlock
	}
	if d.nestedList(indent) {
		return d.appendNested(body)
	}
	var seq []any
	cur, _ := d.root.Get(d.block)
	switch c := cur.(type) {
	case []any:
		seq = c
	case *Object:
		if c.Len() > 0 {
			return fmt.Errorf("list item inside map %q", d.block)
		}
		seq = []any{}
	default:
		return fmt.Errorf("list item under scalar %q", d.block)
	}

	d.item, d.lastObj = nil, nil
	if key, value, ok := splitPair(body); ok {
		item := NewObject()
		d.item, d.itemIndent = item, indent
		d.setLast(item, key, coerceNested(value), indent+2)
		seq = append(seq, item)
	} else {
		seq = append(seq, coerceScalar(body))
	}
	d.root.Set(d.block, seq)
	return nil
}

// splitPair splits "key: value" at the first colon that is followed by
// whitespace or ends the line. Keys may be quoted. Lines that start like a
// JSON container are never pairs.
func splitPair(s string) (key, value string, ok bool) {
	if s == "" || s[0] == '{' || s[0] == '[' {
		return "", "", false
	}
	if q := s[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(s[1:], q)
		if end < 0 {
			return "", "", false
		}
		colon := end + 2
		if colon >= len(s) || s[colon] != ':' || !pairBoundary(s, colon) {
			return "", "", false
		}
		return s[1 : end+1], strings.TrimSpace(s[colon+1:]), true
	}
	for i := 0; i < len(s); i++ {
		if s[i] != ':' || !pairBoundary(s, i) {
			continue
		}
		key = strings.TrimSpace(s[:i])
		if key == "" {
			return "", "", false
		}
		return key, strings.TrimSpace(s[i+1:]), true
	}
	return "", "", false
}

func pairBoundary(s string, colon int) bool {
	return colon+1 == len(s) || s[colon+1] == ' ' || s[colon+1] == '\t'
}

// coerceNested is coerceScalar plus the empty-container spellings allowed for
// nested keys. Nested containers are never filled; deeper lines flatten into
// the enclosing block.
func coerceNested(v string) any {
	switch v {
	case "", "{}":
		return NewObject()
	case "[]":
		return []any{}
	}
	return coerceScalar(v)
}

func coerceScalar(v string) any {
	switch {
	case intPattern.MatchString(v):
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case floatPattern.MatchString(v):
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case v == "true":
		return true
	case v == "false":
		return false
	case v == "null":
		return nil
	}
	return unquote(v)
}

func unquote(v string) string {
	if len(v) >= 2 {
		if q := v[0]; (q == '"' || q == '\'') && v[len(v)-1] == q {
			return v[1 : len(v)-1]
		}
	}
	return v
}
