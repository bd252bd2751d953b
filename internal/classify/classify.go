// Package classify infers the dialect of a configuration document.
package classify

import (
	"strings"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/normalize"
)

type hintRule struct {
	needles []string
	typ     models.ConfigType
}

// Evaluated in order; the first hint rule with a matching needle wins.
var hintRules = []hintRule{
	{[]string{"s3", "bucket"}, models.ConfigTypeAWSS3},
	{[]string{"iam", "policy"}, models.ConfigTypeAWSIAM},
	{[]string{"gcp", "service-account"}, models.ConfigTypeGCP},
	{[]string{"azure", "nsg"}, models.ConfigTypeAzure},
}

// Classify returns the config type for doc. The filename hint is checked
// first, then structural signatures of the decoded document. Raw documents
// with an unhelpful hint are always unknown.
func Classify(hint string, doc *normalize.Document) models.ConfigType {
	if t, ok := FromHint(hint); ok {
		return t
	}
	return FromStructure(doc)
}

// FromHint matches the lower-cased hint against the known filename needles.
func FromHint(hint string) (models.ConfigType, bool) {
	h := strings.ToLower(hint)
	if h == "" {
		return models.ConfigTypeUnknown, false
	}
	for _, r := range hintRules {
		for _, n := range r.needles {
			if strings.Contains(h, n) {
				return r.typ, true
			}
		}
	}
	return models.ConfigTypeUnknown, false
}

// FromStructure inspects top-level fields of a structured document.
func FromStructure(doc *normalize.Document) models.ConfigType {
	if doc == nil || !doc.Structured() {
		return models.ConfigTypeUnknown
	}
	if isSet(doc, "Version") && isSet(doc, "Statement") {
		return models.ConfigTypeAWSIAM
	}
	if isSet(doc, "Bucket") {
		return models.ConfigTypeAWSS3
	}
	if v, ok := doc.Lookup("type"); ok && v == "service_account" {
		return models.ConfigTypeGCP
	}
	if isSet(doc, "properties", "securityRules") {
		return models.ConfigTypeAzure
	}
	return models.ConfigTypeUnknown
}

func isSet(doc *normalize.Document, path ...string) bool {
	v, ok := doc.Lookup(path...)
	return ok && normalize.Truthy(v)
}
