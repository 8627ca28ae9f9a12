package verify

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

type mockRunner struct {
	hashes []string
	err    error
	calls  int
}

func (m *mockRunner) Run(context.Context) (domain.ScoredRecord, error) {
	if m.err != nil {
		return domain.ScoredRecord{}, m.err
	}
	hash := m.hashes[m.calls%len(m.hashes)]
	m.calls++
	return domain.ScoredRecord{DeterminismHash: hash, Alpha: 0.6, K: 50}, nil
}

func TestVerify_IdenticalRuns(t *testing.T) {
	runner := &mockRunner{hashes: []string{"h1"}}
	h := NewHarness(runner, 3, zap.NewNop())

	rep, err := h.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !rep.Identical || rep.Status != StatusPass {
		t.Errorf("report = %+v, want identical pass", rep)
	}
	if rep.Runs != 3 || len(rep.Hashes) != 3 {
		t.Errorf("expected 3 recorded runs, got %+v", rep)
	}
	if runner.calls != 3 {
		t.Errorf("runner called %d times, want 3", runner.calls)
	}
	if rep.Alpha != 0.6 || rep.K != 50 {
		t.Errorf("tuning surface not carried into report: %+v", rep)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	runner := &mockRunner{hashes: []string{"h1", "h2"}}
	h := NewHarness(runner, 3, zap.NewNop())

	rep, err := h.Verify(context.Background())
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	if !errors.Is(err, domain.ErrDeterminismMismatch) {
		t.Errorf("expected ErrDeterminismMismatch, got %v", err)
	}
	if rep.Status != StatusRevise || rep.Identical {
		t.Errorf("report = %+v, want revise", rep)
	}
}

func TestVerify_RunFailureAborts(t *testing.T) {
	runner := &mockRunner{err: &domain.CacheMissError{Key: "k1"}}
	h := NewHarness(runner, 3, zap.NewNop())

	_, err := h.Verify(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss in chain, got %v", err)
	}
}

func TestNewHarness_DefaultRuns(t *testing.T) {
	h := NewHarness(&mockRunner{hashes: []string{"h"}}, 0, zap.NewNop())
	if h.runs != DefaultRuns {
		t.Errorf("runs = %d, want %d", h.runs, DefaultRuns)
	}
}
