package rules

import (
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

// Detector group names. Each group is one rule pack and one policy domain.
const (
	DomainAWSS3    = "aws_s3"
	DomainAWSIAM   = "aws_iam"
	DomainGCP      = "gcp"
	DomainAzure    = "azure"
	DomainCommon   = "common"
	DomainFallback = "fallback"
)

// PatternRule is a declarative detector: when Scope and When both hold it
// emits exactly one finding built from its metadata.
type PatternRule struct {
	RuleID      string
	Domain      string
	Type        string
	Severity    models.Severity
	Description string
	Location    string

	// Scope is the group trigger shared by every detector of a group.
	// Nil means always in scope.
	Scope Predicate

	// When is the detector signature. A nil When never fires.
	When Predicate

	// Describe, when set, replaces Description with text computed from the
	// matched document.
	Describe func(ctx RuleContext) string
}

func (r PatternRule) ID() string   { return r.RuleID }
func (r PatternRule) Name() string { return r.Type }

// Evaluate returns one finding when the rule fires and nil otherwise.
func (r PatternRule) Evaluate(ctx RuleContext) []models.Finding {
	ctx.RuleID = r.RuleID
	if r.Scope != nil && !r.Scope(ctx) {
		return nil
	}
	if r.When == nil || !r.When(ctx) {
		return nil
	}
	desc := r.Description
	if r.Describe != nil {
		desc = r.Describe(ctx)
	}
	return []models.Finding{{
		RuleID:      r.RuleID,
		Domain:      r.Domain,
		Type:        r.Type,
		Description: desc,
		Location:    r.Location,
		Severity:    r.Severity,
	}}
}

// group stamps domain and scope onto every rule of a detector group.
func group(domain string, scope Predicate, defs []PatternRule) []Rule {
	out := make([]Rule, 0, len(defs))
	for _, d := range defs {
		d.Domain = domain
		d.Scope = scope
		out = append(out, d)
	}
	return out
}
