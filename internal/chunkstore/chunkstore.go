// Package chunkstore loads the chunk corpus from a JSONL file, one chunk per
// line, and returns it in deterministic order.
package chunkstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// Scanner buffer cap for long chunk lines.
const maxLineBytes = 1 << 20

// Load reads and validates the corpus. Chunks come back sorted by chunk ID so
// every downstream consumer sees the same order regardless of file layout.
func Load(path string) ([]domain.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var chunks []domain.Chunk
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var c domain.Chunk
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("corpus line %d: %w", lineNo, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("corpus line %d: %w", lineNo, err)
		}
		if _, dup := seen[c.ChunkID]; dup {
			return nil, fmt.Errorf("corpus line %d: duplicate chunk id %s", lineNo, c.ChunkID)
		}
		seen[c.ChunkID] = struct{}{}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkID < chunks[j].ChunkID })
	return chunks, nil
}
