// Package analysis builds the deep-analysis request from a scanned document,
// sends it through an llm.LLMClient and normalizes whatever comes back into a
// fully populated models.AnalysisResult.
package analysis

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/llm"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/normalize"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2000
)

// Request is one document to analyze together with its scanner findings.
type Request struct {
	Type     models.ConfigType
	Document *normalize.Document
	Findings []models.Finding
}

// Analyzer runs the deep-analysis protocol. Model, temperature and token
// ceiling are fixed per Analyzer.
type Analyzer struct {
	client      llm.LLMClient
	model       string
	temperature float64
	maxTokens   int
}

type Option func(*Analyzer)

func WithModel(model string) Option {
	return func(a *Analyzer) {
		if model != "" {
			a.model = model
		}
	}
}

func WithTemperature(t float64) Option {
	return func(a *Analyzer) { a.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

func NewAnalyzer(client llm.LLMClient, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:      client,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Available reports whether an analysis can be attempted at all.
func (a *Analyzer) Available() bool {
	return a != nil && a.client != nil && a.client.IsAvailable()
}

// Analyze makes exactly one upstream call. It returns llm.ErrServiceNotConfigured,
// an *llm.UpstreamError or llm.ErrEmptyContent (all wrapped); any content that
// does arrive yields a result, degraded if it could not be parsed.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	if !a.Available() {
		return nil, llm.ErrServiceNotConfigured
	}
	log := zerolog.Ctx(ctx)

	content, err := a.client.Complete(ctx, llm.ChatRequest{
		Model:       a.model,
		Messages:    BuildMessages(req.Type, req.Document, req.Findings),
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s config: %w", req.Type, err)
	}

	res := ParseResponse(content, req.Document)
	if res.Degraded {
		log.Warn().Int("content_bytes", len(content)).Msg("analysis response could not be parsed; using degraded result")
	} else {
		log.Debug().
			Str("risk_level", string(res.RiskLevel)).
			Int("misconfigs", len(res.KeyMisconfigs)).
			Int("threats", len(res.PotentialThreats)).
			Msg("analysis complete")
	}
	return &res, nil
}
