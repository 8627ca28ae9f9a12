// Package semantic scores chunks by cosine similarity between the query
// embedding and per-chunk vectors. All vectors arrive through the determinism
// cache, so REPLAY-mode scoring has no network path.
package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

type entry struct {
	chunkID string
	vector  []float32
}

// Index holds per-chunk vectors, immutable after construction, sorted by
// chunk ID for deterministic iteration.
type Index struct {
	entries []entry
	embed   domain.Embedder
	logger  *zap.Logger
}

// Build resolves a vector for every chunk through the embedder and constructs
// the index. A chunk whose vector cannot be supplied aborts the build with
// EmbeddingUnavailableError (a replay cache miss propagates through it).
func Build(ctx context.Context, chunks []domain.Chunk, embed domain.Embedder, logger *zap.Logger) (*Index, error) {
	sorted := make([]domain.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ChunkID < sorted[j].ChunkID })

	idx := &Index{
		entries: make([]entry, 0, len(sorted)),
		embed:   embed,
		logger:  logger,
	}
	for _, c := range sorted {
		res, err := embed.Embed(ctx, c.Text)
		if err != nil {
			return nil, &domain.EmbeddingUnavailableError{ChunkID: c.ChunkID, Err: err}
		}
		idx.entries = append(idx.entries, entry{chunkID: c.ChunkID, vector: res.Embedding})
	}

	logger.Debug("Semantic index built", zap.Int("vectors", len(idx.entries)))
	return idx, nil
}

// Search embeds the query and returns up to limit hits ordered by cosine
// similarity descending, ties broken by chunk ID ascending.
func (idx *Index) Search(ctx context.Context, query string, limit int) ([]domain.Hit, error) {
	if len(idx.entries) == 0 {
		return nil, nil
	}

	res, err := idx.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits := make([]domain.Hit, 0, len(idx.entries))
	for _, e := range idx.entries {
		hits = append(hits, domain.Hit{ChunkID: e.chunkID, Score: Cosine(res.Embedding, e.vector)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Cosine computes cosine similarity with float64 accumulation.
// Mismatched lengths or zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
