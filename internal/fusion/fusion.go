// Package fusion blends lexical and semantic rankings into the authoritative
// top-k: fused = alpha*minmax(semantic) + (1-alpha)*minmax(lexical).
//
// The min-max window is the per-query candidate set (the union of both hit
// lists), recomputed per query. A global window was deliberately rejected: it
// would make scores depend on corpus-wide state invisible to the recorded
// (alpha, k) tuning surface.
package fusion

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// Defaults for the tuning surface.
const (
	DefaultAlpha = 0.6
	DefaultK     = 50
)

// Params is the caller-supplied tuning surface. Both values affect the
// determinism hash and are recorded alongside it.
type Params struct {
	Alpha float64 // semantic weight in [0,1]
	K     int     // top-k size, >= 1
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{Alpha: DefaultAlpha, K: DefaultK}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Alpha < 0 || p.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0,1], got %v", p.Alpha)
	}
	if p.K < 1 {
		return fmt.Errorf("k must be >= 1, got %d", p.K)
	}
	return nil
}

// Fuse combines the two hit lists into the ordered top-k. A chunk missing
// from one list contributes 0 for that signal after normalization. Order:
// fused score descending, ties broken by chunk ID ascending; rank 1 is best.
func Fuse(lexical, semantic []domain.Hit, p Params) ([]domain.RetrievalResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	lexNorm := minMax(lexical)
	semNorm := minMax(semantic)

	type candidate struct {
		lexRaw, semRaw   float64
		lexNorm, semNorm float64
	}
	merged := make(map[string]*candidate)
	for _, h := range lexical {
		merged[h.ChunkID] = &candidate{lexRaw: h.Score, lexNorm: lexNorm[h.ChunkID]}
	}
	for _, h := range semantic {
		c, ok := merged[h.ChunkID]
		if !ok {
			c = &candidate{}
			merged[h.ChunkID] = c
		}
		c.semRaw = h.Score
		c.semNorm = semNorm[h.ChunkID]
	}

	results := make([]domain.RetrievalResult, 0, len(merged))
	for id, c := range merged {
		results = append(results, domain.RetrievalResult{
			ChunkID:       id,
			LexicalScore:  c.lexRaw,
			SemanticScore: c.semRaw,
			FusedScore:    p.Alpha*c.semNorm + (1-p.Alpha)*c.lexNorm,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FusedScore != results[j].FusedScore {
			return results[i].FusedScore > results[j].FusedScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > p.K {
		results = results[:p.K]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// minMax normalizes the scores present in one list to [0,1]. When all scores
// are equal every present entry normalizes to 1 (presence still signals).
func minMax(hits []domain.Hit) map[string]float64 {
	norm := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return norm
	}

	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < lo {
			lo = h.Score
		}
		if h.Score > hi {
			hi = h.Score
		}
	}

	for _, h := range hits {
		if hi == lo {
			norm[h.ChunkID] = 1
			continue
		}
		norm[h.ChunkID] = (h.Score - lo) / (hi - lo)
	}
	return norm
}
