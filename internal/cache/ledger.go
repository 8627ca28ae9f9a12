package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LedgerRecord is one append-only audit line, written once per cache access
// and never mutated. REPLAY audits assert that no record has online=true.
type LedgerRecord struct {
	Phase     string `json:"phase"`
	Key       string `json:"key"`
	Online    bool   `json:"online"`
	Timestamp string `json:"timestamp"`
}

// Ledger appends JSONL records to a local file. Appends are serialized by a
// mutex; each record is flushed as a full line.
type Ledger struct {
	mu  sync.Mutex
	f   *os.File
	now func() time.Time
}

// OpenLedger opens (or creates) the ledger file in append mode.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return &Ledger{f: f, now: time.Now}, nil
}

// Append writes one record. Errors are fatal for the access being audited.
func (l *Ledger) Append(phase, key string, online bool) error {
	rec := LedgerRecord{
		Phase:     phase,
		Key:       key,
		Online:    online,
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal ledger record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append ledger record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	return l.f.Close()
}
