// Package lexical implements deterministic BM25 scoring over chunk text.
// All internal structures are built from stably sorted inputs, so scores and
// ranking never depend on map iteration order.
package lexical

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// Default BM25 parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

type document struct {
	chunkID string
	length  int
	tf      map[string]int
}

// Index is an in-memory BM25 index, immutable after construction.
type Index struct {
	k1     float64
	b      float64
	docs   []document // sorted by chunk ID
	df     map[string]int
	avgLen float64
	logger *zap.Logger
}

// New builds the index over the corpus. k1 and b are fixed at construction;
// non-positive values fall back to the defaults.
func New(chunks []domain.Chunk, k1, b float64, logger *zap.Logger) *Index {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b <= 0 {
		b = DefaultB
	}

	sorted := make([]domain.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ChunkID < sorted[j].ChunkID })

	idx := &Index{
		k1:     k1,
		b:      b,
		docs:   make([]document, 0, len(sorted)),
		df:     make(map[string]int),
		logger: logger,
	}

	var totalLen int
	for _, c := range sorted {
		terms := Tokenize(c.Text)
		tf := make(map[string]int, len(terms))
		for _, term := range terms {
			tf[term]++
		}
		for term := range tf {
			idx.df[term]++
		}
		idx.docs = append(idx.docs, document{chunkID: c.ChunkID, length: len(terms), tf: tf})
		totalLen += len(terms)
	}
	if len(idx.docs) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(idx.docs))
	}

	logger.Debug("Lexical index built",
		zap.Int("documents", len(idx.docs)),
		zap.Int("terms", len(idx.df)),
		zap.Float64("avg_doc_len", idx.avgLen),
	)
	return idx
}

// Search scores the corpus against the query and returns up to limit hits,
// ordered score descending, ties broken by chunk ID ascending. Zero-score
// documents are omitted.
func (idx *Index) Search(query string, limit int) []domain.Hit {
	terms := uniqueSorted(Tokenize(query))
	if len(terms) == 0 || len(idx.docs) == 0 {
		return nil
	}

	scores := make([]float64, len(idx.docs))
	n := float64(len(idx.docs))

	for _, term := range terms {
		df, ok := idx.df[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for i := range idx.docs {
			tf := float64(idx.docs[i].tf[term])
			if tf == 0 {
				continue
			}
			norm := idx.k1 * (1 - idx.b + idx.b*float64(idx.docs[i].length)/idx.avgLen)
			scores[i] += idf * tf * (idx.k1 + 1) / (tf + norm)
		}
	}

	hits := make([]domain.Hit, 0, len(idx.docs))
	for i := range idx.docs {
		if scores[i] > 0 {
			hits = append(hits, domain.Hit{ChunkID: idx.docs[i].chunkID, Score: scores[i]})
		}
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
	return hits
}

// Tokenize lowercases and splits on non-alphanumeric runes. No locale
// transforms: the same text always yields the same tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniqueSorted(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
