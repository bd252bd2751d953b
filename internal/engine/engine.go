package engine

import (
	"context"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/normalize"
)

// ReportFormat controls the CLI output format.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatTable ReportFormat = "table"
)

// Result is one scanned input: the decoded document, its classification and
// the report. The document is kept so that deep analysis can run on exactly
// what was scanned.
type Result struct {
	Input    ingest.Input
	Document *normalize.Document
	Type     models.ConfigType
	Report   *models.ScanReport
}

// Engine is the central orchestration interface.
// It normalizes, classifies and evaluates every registered rule pack,
// returning a fully populated ScanReport.
//
// Engine never fails on malformed input: undecodable text is scanned by the
// fallback pack.
type Engine interface {
	Scan(in ingest.Input) *Result
	ScanAll(ctx context.Context, inputs []ingest.Input) ([]*Result, error)
}
