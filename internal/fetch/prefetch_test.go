package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

type mockEmbedder struct {
	mu     sync.Mutex
	calls  map[string]int
	failOn string
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{calls: make(map[string]int)}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls[text]++
	m.mu.Unlock()
	if text == m.failOn {
		return domain.EmbeddingResult{}, errors.New("provider down")
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

func chunks(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, txt := range texts {
		out[i] = domain.Chunk{ChunkID: txt, ThemeCode: "t", PageNo: 1, Text: txt}
	}
	return out
}

func TestWarm_AllChunks(t *testing.T) {
	embedder := newMockEmbedder()
	p := New(embedder, Config{Workers: 2, RPS: 1000, Burst: 100}, zap.NewNop())

	stats, err := p.Warm(context.Background(), chunks("a", "b", "c"))
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if stats.Warmed != 3 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 3 warmed", stats)
	}
	for _, text := range []string{"a", "b", "c"} {
		if embedder.calls[text] != 1 {
			t.Errorf("chunk %q embedded %d times, want 1", text, embedder.calls[text])
		}
	}
}

func TestWarm_FailureCancels(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.failOn = "b"
	p := New(embedder, Config{Workers: 1, RPS: 1000, Burst: 100}, zap.NewNop())

	stats, err := p.Warm(context.Background(), chunks("a", "b", "c"))
	if err == nil {
		t.Fatal("expected error from failing chunk")
	}
	if stats.Failed == 0 {
		t.Errorf("stats = %+v, want at least one failure", stats)
	}
}

func TestWarm_Empty(t *testing.T) {
	p := New(newMockEmbedder(), Config{}, zap.NewNop())
	stats, err := p.Warm(context.Background(), nil)
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if stats.Warmed != 0 {
		t.Errorf("stats = %+v, want empty", stats)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Workers != DefaultWorkers || cfg.RPS != DefaultRPS ||
		cfg.Burst != DefaultBurst || cfg.Timeout != DefaultTimeout {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
