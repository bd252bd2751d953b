package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/analysis"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/engine"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

const adminPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"*","Resource":"*"}]}`

type fakeAnalyst struct {
	started chan struct{}
	release chan struct{}
	result  *models.AnalysisResult
	err     error
	got     []analysis.Request
}

func (f *fakeAnalyst) Analyze(_ context.Context, req analysis.Request) (*models.AnalysisResult, error) {
	f.got = append(f.got, req)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func TestSession_LoadScansSynchronously(t *testing.T) {
	s := New(engine.NewDefaultEngine(), &fakeAnalyst{})

	st := s.Load(ingest.Input{Name: "policy.json", Text: adminPolicy})

	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, models.ConfigTypeAWSIAM, st.Scan.Type)
	assert.NotEmpty(t, st.Findings())
}

func TestSession_AnalyzeSuccess(t *testing.T) {
	fa := &fakeAnalyst{result: &models.AnalysisResult{RiskLevel: models.SeverityHigh}}
	s := New(engine.NewDefaultEngine(), fa)
	s.Load(ingest.Input{Name: "policy.json", Text: adminPolicy})

	st, err := s.Analyze(context.Background())

	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, st.Phase)
	assert.Equal(t, models.SeverityHigh, st.Analysis.RiskLevel)
	require.Len(t, fa.got, 1)
	assert.Equal(t, models.ConfigTypeAWSIAM, fa.got[0].Type)
	assert.Equal(t, st.Findings(), fa.got[0].Findings)
}

func TestSession_AnalyzeFailure(t *testing.T) {
	boom := errors.New("upstream down")
	s := New(engine.NewDefaultEngine(), &fakeAnalyst{err: boom})
	s.Load(ingest.Input{Name: "policy.json", Text: adminPolicy})

	st, err := s.Analyze(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.True(t, st.CanAnalyze())
}

func TestSession_AnalyzeBeforeLoad(t *testing.T) {
	fa := &fakeAnalyst{}
	s := New(engine.NewDefaultEngine(), fa)

	st, err := s.Analyze(context.Background())

	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, fa.got)
}

func TestSession_SecondAnalyzeWhileInFlight(t *testing.T) {
	fa := &fakeAnalyst{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  &models.AnalysisResult{RiskLevel: models.SeverityLow},
	}
	s := New(engine.NewDefaultEngine(), fa)
	s.Load(ingest.Input{Name: "policy.json", Text: adminPolicy})

	done := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		done <- err
	}()
	<-fa.started

	st, err := s.Analyze(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, PhaseAnalyzing, st.Phase)

	close(fa.release)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseCompleted, s.State().Phase)
	assert.Len(t, fa.got, 1)
}

func TestSession_ResultDroppedAfterReload(t *testing.T) {
	fa := &fakeAnalyst{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  &models.AnalysisResult{RiskLevel: models.SeverityLow},
	}
	s := New(engine.NewDefaultEngine(), fa)
	s.Load(ingest.Input{Name: "policy.json", Text: adminPolicy})

	done := make(chan struct{})
	go func() {
		_, _ = s.Analyze(context.Background())
		close(done)
	}()
	<-fa.started

	s.Load(ingest.Input{Name: "other.json", Text: `{"name":"x"}`})
	close(fa.release)
	<-done

	st := s.State()
	assert.Equal(t, PhaseReady, st.Phase)
	assert.Nil(t, st.Analysis)
	assert.Equal(t, "other.json", st.Input.Name)
}

func TestSession_Reset(t *testing.T) {
	s := New(engine.NewDefaultEngine(), &fakeAnalyst{})
	s.Load(ingest.Input{Name: "policy.json", Text: adminPolicy})

	st := s.Reset()

	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Nil(t, st.Scan)
}
