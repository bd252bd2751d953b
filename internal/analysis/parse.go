package analysis

import (
	"encoding/json"
	"strings"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/normalize"
)

const (
	parseFailedMisconfig = "parsing failed"
	parseFailedThreat    = "response could not be parsed"
)

// ParseResponse turns upstream content into a fully populated result. It never
// fails: content that holds no JSON object yields a degraded result.
//
// Candidates are tried in order: the whole content as a JSON object, then
// every balanced {...} span from left to right.
func ParseResponse(content string, doc *normalize.Document) models.AnalysisResult {
	obj, ok := extractObject(content)
	if !ok {
		return degraded(doc)
	}
	return fromObject(obj, doc)
}

func degraded(doc *normalize.Document) models.AnalysisResult {
	return models.AnalysisResult{
		RiskLevel:        models.SeverityMedium,
		KeyMisconfigs:    []string{parseFailedMisconfig},
		PotentialThreats: []string{parseFailedThreat},
		PatchedConfig:    originalDocument(doc),
		Degraded:         true,
	}
}

func extractObject(content string) (*normalize.Object, bool) {
	if obj, ok := parseObject(strings.TrimSpace(content)); ok {
		return obj, true
	}
	for start := strings.IndexByte(content, '{'); start >= 0; {
		if end := balancedEnd(content, start); end > start {
			if obj, ok := parseObject(content[start : end+1]); ok {
				return obj, true
			}
		}
		next := strings.IndexByte(content[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func parseObject(s string) (*normalize.Object, bool) {
	v, err := normalize.ParseJSON(s)
	if err != nil {
		return nil, false
	}
	obj, ok := v.(*normalize.Object)
	return obj, ok
}

// balancedEnd returns the index of the brace closing the one at start, or -1.
// Braces inside JSON strings are ignored.
func balancedEnd(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func fromObject(obj *normalize.Object, doc *normalize.Document) models.AnalysisResult {
	res := models.AnalysisResult{
		RiskLevel:        riskLevel(obj),
		KeyMisconfigs:    stringList(obj, "keyMisconfigs"),
		PotentialThreats: stringList(obj, "potentialThreats"),
	}
	if v, _ := obj.Get("patchedConfig"); normalize.Truthy(v) {
		if raw, err := normalize.Marshal(v); err == nil {
			res.PatchedConfig = raw
		}
	}
	if res.PatchedConfig == nil {
		res.PatchedConfig = originalDocument(doc)
	}
	return res
}

func riskLevel(obj *normalize.Object) models.Severity {
	v, _ := obj.Get("riskLevel")
	if s, ok := v.(string); ok {
		if sev, ok := models.ParseSeverity(s); ok {
			return sev
		}
	}
	return models.SeverityMedium
}

// stringList reads key as a list of strings. A single string is wrapped;
// non-string elements are rendered as compact JSON; null and empty elements
// are dropped.
func stringList(obj *normalize.Object, key string) []string {
	out := []string{}
	v, _ := obj.Get(key)
	switch t := v.(type) {
	case string:
		if t != "" {
			out = append(out, t)
		}
	case []any:
		for _, el := range t {
			if s := elementString(el); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func elementString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	b, err := normalize.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// originalDocument is the scanned document as a JSON value; raw text becomes
// a JSON string.
func originalDocument(doc *normalize.Document) json.RawMessage {
	if doc == nil {
		return json.RawMessage(`""`)
	}
	b, err := doc.MarshalJSON()
	if err != nil {
		return json.RawMessage(`""`)
	}
	return b
}
