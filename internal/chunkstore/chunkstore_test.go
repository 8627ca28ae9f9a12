package chunkstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCorpus(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestLoad_SortedByChunkID(t *testing.T) {
	path := writeCorpus(t,
		`{"chunk_id":"c2","doc_id":"d1","theme_code":"climate","page_no":2,"text":"reduction target"}`,
		``,
		`{"chunk_id":"c1","doc_id":"d1","theme_code":"climate","page_no":1,"text":"climate policy"}`,
	)

	chunks, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if chunks[0].ChunkID != "c1" || chunks[1].ChunkID != "c2" {
		t.Errorf("corpus not sorted: %s, %s", chunks[0].ChunkID, chunks[1].ChunkID)
	}
}

func TestLoad_DuplicateID(t *testing.T) {
	path := writeCorpus(t,
		`{"chunk_id":"c1","theme_code":"climate","page_no":1,"text":"a"}`,
		`{"chunk_id":"c1","theme_code":"climate","page_no":2,"text":"b"}`,
	)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate chunk id") {
		t.Errorf("expected duplicate error, got %v", err)
	}
}

func TestLoad_InvalidLine(t *testing.T) {
	path := writeCorpus(t, `{"chunk_id":"c1"`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected line-numbered parse error, got %v", err)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeCorpus(t, `{"chunk_id":"c1","theme_code":"climate","page_no":0,"text":"a"}`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "page number") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}
