package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/canonical"
	"github.com/kailas-cloud/stagegate/internal/domain"
	"github.com/kailas-cloud/stagegate/internal/store"
)

// ProviderParams identify the provider request shape. They are part of every
// cache key, so a model or dimension change re-keys the whole cache.
type ProviderParams struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// Entry is the persisted cache value: one JSON object per key.
type Entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	FetchedAt string          `json:"fetched_at"`
	Online    bool            `json:"online"`
	Provider  string          `json:"provider"`
}

// kvStore is the consumer interface for the cache backend (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
}

// ledger is the consumer interface for the audit trail.
type ledger interface {
	Append(phase, key string, online bool) error
}

// CachedEmbedder is the only path to the embedding provider. In REPLAY mode
// it holds no provider at all, so reaching the network is structurally
// impossible.
type CachedEmbedder struct {
	inner      domain.Embedder // nil in replay mode
	store      kvStore
	ledger     ledger
	mode       Mode
	params     ProviderParams
	cacheTotal *prometheus.CounterVec
	now        func() time.Time
	logger     *zap.Logger
}

// NewCachedEmbedder wires the cache decorator.
// FETCH requires a provider; REPLAY rejects one.
// cacheTotal is a counter vec with labels (mode, result), passed explicitly.
func NewCachedEmbedder(
	mode Mode, inner domain.Embedder, s kvStore, l ledger,
	params ProviderParams, cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) (*CachedEmbedder, error) {
	switch mode {
	case ModeFetch:
		if inner == nil {
			return nil, fmt.Errorf("fetch mode requires an embedding provider")
		}
	case ModeReplay:
		if inner != nil {
			return nil, fmt.Errorf("replay mode must not hold an embedding provider")
		}
	default:
		return nil, fmt.Errorf("unknown cache mode %q", mode)
	}
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		ledger:     l,
		mode:       mode,
		params:     params,
		cacheTotal: cacheTotal,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// Key derives the content-addressed cache key for a text. Canonicalized
// serialization makes the key order-independent: same content + same params
// always hash identically.
func (c *CachedEmbedder) Key(text string) (string, error) {
	return canonical.Hash(map[string]any{
		"provider_params": c.params,
		"content":         text,
	})
}

// Embed returns the cached vector or, in FETCH mode, calls the provider and
// persists the result. Every access appends exactly one ledger record.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key, err := c.Key(text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("derive cache key: %w", err)
	}

	vec, found, err := c.lookup(ctx, key)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if found {
		c.incCache("hit")
		if err := c.ledger.Append(string(c.mode), key, false); err != nil {
			return domain.EmbeddingResult{}, err
		}
		return domain.EmbeddingResult{Embedding: vec.Dims}, nil
	}

	c.incCache("miss")

	if c.mode == ModeReplay {
		// Fail closed: the miss is still audited.
		if err := c.ledger.Append(string(ModeReplay), key, false); err != nil {
			return domain.EmbeddingResult{}, err
		}
		return domain.EmbeddingResult{}, &domain.CacheMissError{Key: key}
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed via provider: %w", err)
	}

	if err := c.persist(ctx, key, result.Embedding); err != nil {
		return domain.EmbeddingResult{}, err
	}
	if err := c.ledger.Append(string(ModeFetch), key, true); err != nil {
		return domain.EmbeddingResult{}, err
	}

	c.logger.Debug("Embedding fetched and cached",
		zap.String("key", key),
		zap.Int("dimensions", len(result.Embedding)),
	)
	return result, nil
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) (domain.EmbeddingVector, bool, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return domain.EmbeddingVector{}, false, nil
		}
		return domain.EmbeddingVector{}, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.EmbeddingVector{}, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	var vec domain.EmbeddingVector
	if err := json.Unmarshal(entry.Value, &vec); err != nil {
		return domain.EmbeddingVector{}, false, fmt.Errorf("decode cached vector %s: %w", key, err)
	}
	return vec, true, nil
}

// persist writes the entry with SetNX: concurrent writers for the same key
// store value-identical bytes, so losing the race is not an error.
func (c *CachedEmbedder) persist(ctx context.Context, key string, embedding []float32) error {
	value, err := json.Marshal(domain.EmbeddingVector{Dims: embedding, ModelID: c.params.Model})
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	entry, err := json.Marshal(Entry{
		Key:       key,
		Value:     value,
		FetchedAt: c.now().UTC().Format(time.RFC3339),
		Online:    true,
		Provider:  c.params.Provider,
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if _, err := c.store.SetNX(ctx, key, entry); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(string(c.mode), result).Inc()
	}
}
