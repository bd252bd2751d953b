// Package session sequences scan and deep analysis for one input at a time.
//
// State is a value; Transition is a pure function from (State, Event) to the
// next State. Callers that own the state (the TUI model, the Session driver)
// are the only writers.
package session

import (
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/analysis"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/engine"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

// Phase is the lifecycle position of a session.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseFiltering Phase = "filtering"
	PhaseReady     Phase = "ready"
	PhaseAnalyzing Phase = "analyzing"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// State is an immutable snapshot. Generation increases on every Load and
// Reset so that results produced for an earlier input can be recognised.
type State struct {
	Phase      Phase
	Generation uint64
	Input      ingest.Input
	Scan       *engine.Result
	Analysis   *models.AnalysisResult
	Err        error
}

// CanAnalyze reports whether an analyze action would start a request.
// A failed analysis can be retried.
func (s State) CanAnalyze() bool {
	switch s.Phase {
	case PhaseReady, PhaseCompleted, PhaseFailed:
		return s.Scan != nil
	}
	return false
}

// Findings returns the scanner findings of the current input.
func (s State) Findings() []models.Finding {
	if s.Scan == nil || s.Scan.Report == nil {
		return nil
	}
	return s.Scan.Report.Findings
}

// AnalysisRequest builds the request for the current input.
func (s State) AnalysisRequest() analysis.Request {
	if s.Scan == nil {
		return analysis.Request{}
	}
	return analysis.Request{
		Type:     s.Scan.Type,
		Document: s.Scan.Document,
		Findings: s.Findings(),
	}
}

// Event is an input to Transition.
type Event interface {
	apply(State) State
}

// Load replaces the input and starts filtering.
type Load struct{ Input ingest.Input }

// Scanned delivers the scan of the input loaded at Generation.
type Scanned struct {
	Generation uint64
	Result     *engine.Result
}

// AnalyzeRequested is the explicit user action. It is a no-op while a request
// is in flight or before a scan is available.
type AnalyzeRequested struct{}

type AnalysisSucceeded struct {
	Generation uint64
	Result     *models.AnalysisResult
}

type AnalysisFailed struct {
	Generation uint64
	Err        error
}

// Reset discards the input from any phase.
type Reset struct{}

// Transition returns the state after e. It never mutates s.
func Transition(s State, e Event) State {
	if e == nil {
		return s
	}
	return e.apply(s)
}

func (e Load) apply(s State) State {
	return State{
		Phase:      PhaseFiltering,
		Generation: s.Generation + 1,
		Input:      e.Input,
	}
}

func (e Scanned) apply(s State) State {
	if s.Phase != PhaseFiltering || e.Generation != s.Generation || e.Result == nil {
		return s
	}
	s.Phase = PhaseReady
	s.Scan = e.Result
	return s
}

func (AnalyzeRequested) apply(s State) State {
	if !s.CanAnalyze() {
		return s
	}
	s.Phase = PhaseAnalyzing
	s.Analysis = nil
	s.Err = nil
	return s
}

func (e AnalysisSucceeded) apply(s State) State {
	if s.Phase != PhaseAnalyzing || e.Generation != s.Generation || e.Result == nil {
		return s
	}
	s.Phase = PhaseCompleted
	s.Analysis = e.Result
	return s
}

func (e AnalysisFailed) apply(s State) State {
	if s.Phase != PhaseAnalyzing || e.Generation != s.Generation {
		return s
	}
	s.Phase = PhaseFailed
	s.Err = e.Err
	return s
}

func (Reset) apply(s State) State {
	return State{Phase: PhaseIdle, Generation: s.Generation + 1}
}
