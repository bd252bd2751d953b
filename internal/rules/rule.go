package rules

import (
	"strings"
	"unicode"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/normalize"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
)

// RuleContext carries one decoded document and its derived text forms.
// It is the sole input to Rule.Evaluate and must contain everything a rule
// needs; rules must never make network calls or read external state.
type RuleContext struct {
	// ConfigType is the classified dialect of the document.
	ConfigType models.ConfigType

	// Document is the decoded input. Never nil once built by NewRuleContext.
	Document *normalize.Document

	// Text is the canonical serialisation detectors match against.
	Text string

	// Compact is Text with every whitespace character removed.
	Compact string

	// Policy holds the active PolicyConfig for threshold overrides. May be nil
	// when no policy file is loaded; rules must treat nil as "use defaults".
	Policy *policy.PolicyConfig

	// RuleID is set by the evaluating rule so predicates can resolve
	// per-rule policy params.
	RuleID string
}

// NewRuleContext derives the text forms of doc once so that every rule in a
// scan shares them. A nil doc is treated as empty raw input.
func NewRuleContext(t models.ConfigType, doc *normalize.Document, cfg *policy.PolicyConfig) RuleContext {
	if doc == nil {
		doc = normalize.Decode("")
	}
	text := doc.Canonical()
	return RuleContext{
		ConfigType: t,
		Document:   doc,
		Text:       text,
		Compact:    stripSpace(text),
		Policy:     cfg,
	}
}

// Source returns the input text exactly as received.
func (c RuleContext) Source() string {
	if c.Document == nil {
		return ""
	}
	return c.Document.Source()
}

// Param returns the policy override for key on the current rule, or def.
func (c RuleContext) Param(key string, def float64) float64 {
	return policy.GetThreshold(c.RuleID, key, def, c.Policy)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Rule is a single deterministic misconfiguration detector.
// Rules must be stateless and safe to call concurrently.
// They must never call a cloud SDK, LLM, or any external service.
type Rule interface {
	// ID returns the unique, stable identifier for this rule (e.g. "IAM_FULL_ACCESS").
	ID() string

	// Name returns the finding type tag the rule emits.
	Name() string

	// Evaluate inspects the provided context and returns zero or more findings.
	// An empty slice means no issue was detected.
	Evaluate(ctx RuleContext) []models.Finding
}

// RuleRegistry manages the set of active rules and drives evaluation.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// EvaluateAll runs every registered rule against ctx and merges results.
	EvaluateAll(ctx RuleContext) []models.Finding
}
