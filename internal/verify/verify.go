// Package verify repeats a scoring pass against the frozen cache and checks
// that every run produces a byte-identical determinism hash.
package verify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/domain"
	"github.com/kailas-cloud/stagegate/internal/report"
)

// DefaultRuns is the number of replay runs the harness performs.
const DefaultRuns = 3

// Statuses of the verification outcome.
const (
	StatusPass   = "pass"
	StatusRevise = "revise"
)

// Runner executes one full scoring pass.
type Runner interface {
	Run(ctx context.Context) (domain.ScoredRecord, error)
}

// Harness drives repeated runs and compares their hashes.
type Harness struct {
	runner Runner
	runs   int
	logger *zap.Logger
}

// NewHarness creates a harness; runs < 2 falls back to DefaultRuns.
func NewHarness(runner Runner, runs int, logger *zap.Logger) *Harness {
	if runs < 2 {
		runs = DefaultRuns
	}
	return &Harness{runner: runner, runs: runs, logger: logger}
}

// Verify executes the configured number of runs. Any divergence yields a
// "revise" report plus a DeterminismMismatchError; a failed run aborts
// verification outright.
func (h *Harness) Verify(ctx context.Context) (report.DeterminismReport, error) {
	hashes := make([]string, 0, h.runs)
	var alpha float64
	var k int

	for i := 0; i < h.runs; i++ {
		record, err := h.runner.Run(ctx)
		if err != nil {
			return report.DeterminismReport{}, fmt.Errorf("verification run %d: %w", i+1, err)
		}
		hashes = append(hashes, record.DeterminismHash)
		alpha, k = record.Alpha, record.K
	}

	identical := true
	for _, hash := range hashes[1:] {
		if hash != hashes[0] {
			identical = false
			break
		}
	}

	rep := report.DeterminismReport{
		Runs:      h.runs,
		Hashes:    hashes,
		Identical: identical,
		Status:    StatusPass,
		Alpha:     alpha,
		K:         k,
	}
	if !identical {
		rep.Status = StatusRevise
		h.logger.Error("Determinism check failed", zap.Strings("hashes", hashes))
		return rep, &domain.DeterminismMismatchError{Hashes: hashes}
	}

	h.logger.Info("Determinism check passed",
		zap.Int("runs", h.runs),
		zap.String("hash", hashes[0]),
	)
	return rep, nil
}
