package analysis

import (
	"strings"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/llm"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/normalize"
)

// SystemPrompt fixes the analyst role and the mandated output schema.
const SystemPrompt = `You are a cloud security expert. Analyze the provided cloud configuration file, identify security weaknesses and propose an improved configuration.

Respond with JSON only, in exactly this format:
{
  "riskLevel": "Critical" | "High" | "Medium" | "Low",
  "keyMisconfigs": ["issue 1", "issue 2", ...],
  "potentialThreats": ["threat 1", "threat 2", ...],
  "patchedConfig": { ... the improved configuration ... }
}`

const closingInstruction = "Return a JSON response with the risk level, the key misconfigurations, the potential threats and the improved, secure configuration."

// BuildMessages returns the system and user messages for one analysis.
func BuildMessages(t models.ConfigType, doc *normalize.Document, findings []models.Finding) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: UserPrompt(t, doc, findings)},
	}
}

// UserPrompt renders the config type label, the pretty-printed document and
// one "- type: description" line per finding.
func UserPrompt(t models.ConfigType, doc *normalize.Document, findings []models.Finding) string {
	var b strings.Builder
	b.WriteString("Analyze the following ")
	b.WriteString(t.String())
	b.WriteString(" configuration file:\n\n")
	b.WriteString(documentText(doc))
	b.WriteString("\n\nIssues found by the first-pass filter:\n")
	for _, f := range findings {
		b.WriteString("- ")
		b.WriteString(f.Type)
		b.WriteString(": ")
		b.WriteString(f.Description)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(closingInstruction)
	return b.String()
}

// documentText is the canonical form for structured documents and a quoted
// JSON string for raw text.
func documentText(doc *normalize.Document) string {
	if doc == nil {
		return `""`
	}
	if doc.Structured() {
		return doc.Canonical()
	}
	out, err := normalize.Marshal(doc.Source())
	if err != nil {
		return doc.Source()
	}
	return string(out)
}
