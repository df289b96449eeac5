package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONLJournal appends one JSON object per line to a file.
type JSONLJournal struct {
	path string
	f    *os.File
}

// OpenJSONL opens (or creates) the log at path for appending.
func OpenJSONL(path string) (*JSONLJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trade log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trade log: %w", err)
	}
	return &JSONLJournal{path: path, f: f}, nil
}

// Path returns the file location.
func (j *JSONLJournal) Path() string {
	return j.path
}

func (j *JSONLJournal) RecordTrade(_ context.Context, rec TradeRecord) error {
	return j.append(rec)
}

func (j *JSONLJournal) RecordEvent(_ context.Context, rec EventRecord) error {
	return j.append(rec)
}

// append writes the whole line with a single Write call.
func (j *JSONLJournal) append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal journal line: %w", err)
	}
	line = append(line, '\n')
	if _, err := j.f.Write(line); err != nil {
		return fmt.Errorf("failed to append journal line: %w", err)
	}
	return nil
}

func (j *JSONLJournal) Close() error {
	return j.f.Close()
}

// ReadJSONL decodes every line of a trade log into raw maps. Trade lines
// carry "order_id", event lines carry "event".
func ReadJSONL(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			return nil, fmt.Errorf("malformed journal line %d: %w", len(lines)+1, err)
		}
		lines = append(lines, m)
	}
	return lines, sc.Err()
}
