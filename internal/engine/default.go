package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/classify"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/normalize"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rulepacks/aws_iam"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rulepacks/aws_s3"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rulepacks/azure"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rulepacks/common"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rulepacks/fallback"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rulepacks/gcp"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rules"
)

// DefaultConcurrency bounds ScanAll when no explicit limit is configured.
const DefaultConcurrency = 4

// Pack is one detector group registered with the engine.
type Pack struct {
	Domain string
	Rules  []rules.Rule
}

// DefaultPacks returns the built-in rule packs in evaluation order.
func DefaultPacks() []Pack {
	return []Pack{
		{Domain: rules.DomainAWSS3, Rules: aws_s3.New()},
		{Domain: rules.DomainAWSIAM, Rules: aws_iam.New()},
		{Domain: rules.DomainGCP, Rules: gcp.New()},
		{Domain: rules.DomainAzure, Rules: azure.New()},
		{Domain: rules.DomainCommon, Rules: common.New()},
		{Domain: rules.DomainFallback, Rules: fallback.New()},
	}
}

// DefaultEngine is the production implementation of Engine.
// It never calls a cloud SDK, LLM, or any external service.
type DefaultEngine struct {
	packs       []Pack
	registry    *rules.DefaultRuleRegistry
	policy      *policy.PolicyConfig
	logger      zerolog.Logger
	concurrency int
	now         func() time.Time
	newID       func() string
}

// Option configures a DefaultEngine.
type Option func(*DefaultEngine)

// WithPolicy applies rule toggles, severity overrides and thresholds.
func WithPolicy(cfg *policy.PolicyConfig) Option {
	return func(e *DefaultEngine) { e.policy = cfg }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *DefaultEngine) { e.logger = l }
}

// WithPacks replaces the built-in rule packs.
func WithPacks(packs ...Pack) Option {
	return func(e *DefaultEngine) { e.packs = packs }
}

// WithConcurrency bounds the number of inputs ScanAll evaluates at once.
func WithConcurrency(n int) Option {
	return func(e *DefaultEngine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *DefaultEngine) { e.now = now }
}

// NewDefaultEngine builds an engine over the built-in packs. Every rule is
// registered once in a shared registry; a duplicate rule ID panics.
func NewDefaultEngine(opts ...Option) *DefaultEngine {
	e := &DefaultEngine{
		packs:       DefaultPacks(),
		logger:      zerolog.Nop(),
		concurrency: DefaultConcurrency,
		now:         time.Now,
		newID:       func() string { return "scan-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = rules.NewDefaultRuleRegistry()
	for _, p := range e.packs {
		for _, r := range p.Rules {
			e.registry.Register(r)
		}
	}
	return e
}

// RuleIDs lists every registered rule ID in evaluation order.
func (e *DefaultEngine) RuleIDs() []string {
	return e.registry.IDs()
}

// Prepare decodes and classifies one input.
func Prepare(in ingest.Input) (*normalize.Document, models.ConfigType) {
	doc := normalize.Decode(in.Text)
	return doc, classify.Classify(in.Name, doc)
}

// Scan implements Engine.
func (e *DefaultEngine) Scan(in ingest.Input) *Result {
	doc, typ := Prepare(in)
	log := e.logger.With().Str("source", in.Label()).Logger()

	if doc.Degraded() {
		log.Warn().Err(doc.DecodeError()).Msg("input is not structured; using string-only detectors")
	}

	findings := e.Evaluate(typ, doc)

	log.Debug().
		Str("config_type", typ.String()).
		Str("format", string(doc.Format())).
		Int("findings", len(findings)).
		Msg("scan complete")

	return &Result{
		Input:    in,
		Document: doc,
		Type:     typ,
		Report: &models.ScanReport{
			ReportID:    e.newID(),
			GeneratedAt: e.now().UTC(),
			Source:      in.Label(),
			ConfigType:  typ,
			Format:      string(doc.Format()),
			Summary:     computeSummary(findings),
			Findings:    findings,
		},
	}
}

// Evaluate runs every pack against doc and returns the policy-filtered
// findings, sorted by severity. The same document always yields the same
// list in the same order.
func (e *DefaultEngine) Evaluate(typ models.ConfigType, doc *normalize.Document) []models.Finding {
	rctx := rules.NewRuleContext(typ, doc, e.policy)
	findings := []models.Finding{}
	for _, p := range e.packs {
		if !policy.DomainEnabled(p.Domain, e.policy) {
			continue
		}
		var packFindings []models.Finding
		for _, r := range p.Rules {
			packFindings = append(packFindings, r.Evaluate(rctx)...)
		}
		stampDomain(packFindings, p.Domain)
		findings = append(findings, policy.ApplyPolicy(packFindings, p.Domain, e.policy)...)
	}
	sortFindings(findings)
	return findings
}

// ScanAll scans inputs concurrently. Results keep the order of inputs. The
// only error is cancellation of ctx.
func (e *DefaultEngine) ScanAll(ctx context.Context, inputs []ingest.Input) ([]*Result, error) {
	results := make([]*Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.Scan(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// stampDomain writes domain onto every finding so that policy resolution
// always sees the pack the finding came from.
func stampDomain(findings []models.Finding, domain string) {
	for i := range findings {
		findings[i].Domain = domain
	}
}

// sortFindings sorts findings in-place by severity, Critical first. Ties keep
// emission order.
func sortFindings(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() < findings[j].Severity.Rank()
	})
}

// computeSummary aggregates finding counts across all severity levels.
// Unrecognised severities are counted as Medium.
func computeSummary(findings []models.Finding) models.ScanSummary {
	var s models.ScanSummary
	s.TotalFindings = len(findings)
	for _, f := range findings {
		switch f.Severity.Rank() {
		case 0:
			s.CriticalFindings++
		case 1:
			s.HighFindings++
		case 2:
			s.MediumFindings++
		case 3:
			s.LowFindings++
		}
	}
	return s
}
