// Package pipeline drives one scoring pass: fused retrieval (a barrier shared
// across themes), then per-theme evidence extraction, parity validation, and
// rubric scoring in parallel.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/stagegate/internal/canonical"
	"github.com/kailas-cloud/stagegate/internal/domain"
	"github.com/kailas-cloud/stagegate/internal/evidence"
	"github.com/kailas-cloud/stagegate/internal/fusion"
	"github.com/kailas-cloud/stagegate/internal/metrics"
)

// Service sequences retrieval, extraction, validation, and scoring.
type Service struct {
	lex     Lexical
	sem     Semantic
	extract Extractor
	score   Scorer
	params  fusion.Params
	logger  *zap.Logger
}

// Outcome is the assembled result of one pass, with the fused top-k kept for
// audit reports.
type Outcome struct {
	Record domain.ScoredRecord
	TopK   []domain.RetrievalResult
}

// New creates the orchestrator. Fusion params are validated once here.
func New(lex Lexical, sem Semantic, extract Extractor, score Scorer,
	params fusion.Params, logger *zap.Logger,
) (*Service, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("fusion params: %w", err)
	}
	return &Service{lex: lex, sem: sem, extract: extract, score: score, params: params, logger: logger}, nil
}

// Run executes one scoring pass for a query over the corpus.
//
// The fused top-k is computed fully before any theme starts (synchronization
// barrier); themes then run in parallel and the first fatal error (parity
// violation, cache miss, missing rubric) cancels the rest. Partial results
// are discarded, never returned as success.
func (s *Service) Run(
	ctx context.Context, query string, themes []string, chunks []domain.Chunk,
) (Outcome, error) {
	outcome, err := s.run(ctx, query, themes, chunks)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		return Outcome{}, err
	}
	metrics.PipelineRunsTotal.WithLabelValues("ok").Inc()
	return outcome, nil
}

func (s *Service) run(
	ctx context.Context, query string, themes []string, chunks []domain.Chunk,
) (Outcome, error) {
	chunkByID := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ChunkID] = c
	}

	lexHits := s.lex.Search(query, s.params.K)

	semHits, err := s.sem.Search(ctx, query, s.params.K)
	if err != nil {
		return Outcome{}, fmt.Errorf("semantic retrieval: %w", err)
	}

	topk, err := fusion.Fuse(lexHits, semHits, s.params)
	if err != nil {
		return Outcome{}, fmt.Errorf("fuse rankings: %w", err)
	}

	s.logger.Debug("Fused top-k computed",
		zap.String("query", query),
		zap.Int("lexical_hits", len(lexHits)),
		zap.Int("semantic_hits", len(semHits)),
		zap.Int("topk", len(topk)),
	)

	sortedThemes := make([]string, len(themes))
	copy(sortedThemes, themes)
	sort.Strings(sortedThemes)

	dims := make([]domain.DimensionScore, len(sortedThemes))
	g, ctx := errgroup.WithContext(ctx)
	for i, theme := range sortedThemes {
		i, theme := i, theme
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()

			ev := s.extract.Extract(theme, topk, chunkByID)
			if err := evidence.ValidateParity(theme, ev, topk); err != nil {
				return err
			}
			score, err := s.score.Score(theme, ev)
			if err != nil {
				return err
			}

			metrics.ThemeScoreDuration.WithLabelValues(theme).Observe(time.Since(start).Seconds())
			dims[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}

	record, err := assemble(dims, s.params)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Record: record, TopK: topk}, nil
}

// assemble sorts dimensions by theme, derives the overall maturity, and
// fingerprints the result. The hash covers the theme-sorted dimension scores
// only, so identical inputs always produce identical hashes.
func assemble(dims []domain.DimensionScore, params fusion.Params) (domain.ScoredRecord, error) {
	sort.Slice(dims, func(i, j int) bool { return dims[i].ThemeCode < dims[j].ThemeCode })

	var sum float64
	for _, d := range dims {
		sum += float64(d.Stage)
	}
	var overall float64
	if len(dims) > 0 {
		overall = sum / float64(len(dims))
	}

	hash, err := canonical.Hash(dims)
	if err != nil {
		return domain.ScoredRecord{}, fmt.Errorf("determinism hash: %w", err)
	}

	return domain.ScoredRecord{
		Dimensions:      dims,
		OverallMaturity: overall,
		DeterminismHash: hash,
		Alpha:           params.Alpha,
		K:               params.K,
	}, nil
}
