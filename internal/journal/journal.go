// Package journal writes an append-only JSONL record of link attempts, so
// an operator can reconstruct what the daemon wired and why a link is or
// is not present.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Results a link attempt can have.
const (
	ResultLinked        = "linked"
	ResultAlreadyLinked = "already-linked"
	ResultFailed        = "failed"
)

// Entry is one link attempt.
type Entry struct {
	Timestamp    string `json:"ts"`
	RunID        string `json:"run_id"`
	Output       string `json:"output"`
	OutputClient string `json:"output_client,omitempty"`
	Input        string `json:"input"`
	InputClient  string `json:"input_client,omitempty"`
	Result       string `json:"result"`
	Error        string `json:"error,omitempty"`
}

// Journal is an append-only JSONL file. Every entry is synced so a crash
// loses at most the entry being written.
type Journal struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// Open opens (or creates) a journal file for appending.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("journal: open file: %w", err)
	}
	return &Journal{path: path, file: file}, nil
}

// Record appends one entry, stamping the timestamp if unset.
func (j *Journal) Record(entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("journal: marshal entry: %w", err)
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("journal: write entry: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("journal: sync: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
