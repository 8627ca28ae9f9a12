package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSerialization signals a value the canonical hasher cannot encode.
	ErrSerialization = errors.New("serialization error")
	// ErrCacheMiss signals a REPLAY-mode cache miss (fail-closed, never re-fetched).
	ErrCacheMiss = errors.New("cache miss")
	// ErrEmbeddingUnavailable signals that no vector could be supplied for a chunk.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrParityViolation signals evidence citing a chunk outside the fused top-k.
	ErrParityViolation = errors.New("parity violation")
	// ErrRubricNotFound signals a theme with no rubric definition (configuration error).
	ErrRubricNotFound = errors.New("rubric not found")
	// ErrDeterminismMismatch signals divergent repeated runs in the verification harness.
	ErrDeterminismMismatch = errors.New("determinism mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// CacheMissError wraps ErrCacheMiss with the content-addressed key that missed.
type CacheMissError struct {
	Key string
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("%s: key %s not in cache (replay mode is cache-only)", ErrCacheMiss.Error(), e.Key)
}

func (e *CacheMissError) Unwrap() error { return ErrCacheMiss }

// EmbeddingUnavailableError wraps ErrEmbeddingUnavailable with the chunk and cause.
type EmbeddingUnavailableError struct {
	ChunkID string
	Err     error
}

func (e *EmbeddingUnavailableError) Error() string {
	return fmt.Sprintf("%s: chunk %s: %v", ErrEmbeddingUnavailable.Error(), e.ChunkID, e.Err)
}

func (e *EmbeddingUnavailableError) Unwrap() error { return e.Err }

// Is reports a match against both the sentinel and the wrapped cause chain.
func (e *EmbeddingUnavailableError) Is(target error) bool {
	return target == ErrEmbeddingUnavailable
}

// ParityViolationError wraps ErrParityViolation with the theme and offending chunk.
type ParityViolationError struct {
	Theme   string
	ChunkID string
}

func (e *ParityViolationError) Error() string {
	return fmt.Sprintf("%s: theme %s cites chunk %s outside the fused top-k",
		ErrParityViolation.Error(), e.Theme, e.ChunkID)
}

func (e *ParityViolationError) Unwrap() error { return ErrParityViolation }

// RubricNotFoundError wraps ErrRubricNotFound with the unconfigured theme.
type RubricNotFoundError struct {
	Theme string
}

func (e *RubricNotFoundError) Error() string {
	return fmt.Sprintf("%s: no rubric definition for theme %s", ErrRubricNotFound.Error(), e.Theme)
}

func (e *RubricNotFoundError) Unwrap() error { return ErrRubricNotFound }

// DeterminismMismatchError wraps ErrDeterminismMismatch with the divergent hashes.
type DeterminismMismatchError struct {
	Hashes []string
}

func (e *DeterminismMismatchError) Error() string {
	return fmt.Sprintf("%s: %d runs produced non-identical hashes %v",
		ErrDeterminismMismatch.Error(), len(e.Hashes), e.Hashes)
}

func (e *DeterminismMismatchError) Unwrap() error { return ErrDeterminismMismatch }
