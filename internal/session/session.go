package session

import (
	"context"
	"errors"
	"sync"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/analysis"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/engine"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

var (
	// ErrInFlight is returned when Analyze is called while a request is
	// outstanding. The state is left untouched.
	ErrInFlight = errors.New("an analysis is already in progress")

	// ErrNotReady is returned when Analyze is called before any input was
	// scanned.
	ErrNotReady = errors.New("no scanned input to analyze")
)

// Scanner runs the offline detectors. *engine.DefaultEngine satisfies it.
type Scanner interface {
	Scan(in ingest.Input) *engine.Result
}

// Analyst runs the deep analysis. *analysis.Analyzer satisfies it.
type Analyst interface {
	Analyze(ctx context.Context, req analysis.Request) (*models.AnalysisResult, error)
}

// Session drives Transition for callers without their own event loop.
// It is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	state   State
	scanner Scanner
	analyst Analyst
}

func New(scanner Scanner, analyst Analyst) *Session {
	return &Session{
		state:   State{Phase: PhaseIdle},
		scanner: scanner,
		analyst: analyst,
	}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies e and returns the new state.
func (s *Session) Dispatch(e Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Transition(s.state, e)
	return s.state
}

// Load replaces the input and scans it synchronously.
func (s *Session) Load(in ingest.Input) State {
	st := s.Dispatch(Load{Input: in})
	return s.Dispatch(Scanned{Generation: st.Generation, Result: s.scanner.Scan(in)})
}

func (s *Session) Reset() State {
	return s.Dispatch(Reset{})
}

// Analyze runs one deep analysis of the current input. The returned error is
// the analysis failure, also recorded in the state; a result that arrives
// after the input was replaced is dropped.
func (s *Session) Analyze(ctx context.Context) (State, error) {
	s.mu.Lock()
	before := s.state
	if before.Phase == PhaseAnalyzing {
		s.mu.Unlock()
		return before, ErrInFlight
	}
	s.state = Transition(before, AnalyzeRequested{})
	started := s.state
	s.mu.Unlock()

	if started.Phase != PhaseAnalyzing {
		return started, ErrNotReady
	}

	res, err := s.analyst.Analyze(ctx, started.AnalysisRequest())
	if err != nil {
		return s.Dispatch(AnalysisFailed{Generation: started.Generation, Err: err}), err
	}
	return s.Dispatch(AnalysisSucceeded{Generation: started.Generation, Result: res}), nil
}
