package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jihopark/mathshorts/internal/content"
)

const storeVersion = 1

type storeData struct {
	Version int                 `json:"version"`
	Runs    []content.RunResult `json:"runs"`
}

// Store persists completed run results as a JSON file, for the status
// command and the gateway run listing.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a run-history store under <workspace>/state/runs.json.
func NewStore(workspace string) *Store {
	return &Store{path: filepath.Join(workspace, "state", "runs.json")}
}

// Append records one completed run.
func (s *Store) Append(result content.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadLocked()
	if err != nil {
		return err
	}
	data.Runs = append(data.Runs, result)
	return s.saveLocked(data)
}

// List returns all recorded runs, newest first.
func (s *Store) List() ([]content.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	runs := append([]content.RunResult{}, data.Runs...)
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].FinishedAt.After(runs[j].FinishedAt)
	})
	return runs, nil
}

func (s *Store) loadLocked() (storeData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return storeData{Version: storeVersion, Runs: []content.RunResult{}}, nil
		}
		return storeData{}, fmt.Errorf("read run history: %w", err)
	}

	var data storeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return storeData{}, fmt.Errorf("parse run history: %w", err)
	}
	if data.Runs == nil {
		data.Runs = []content.RunResult{}
	}
	return data, nil
}

// saveLocked writes through a temp file and rename so a concurrent reader
// never observes a partially written history.
func (s *Store) saveLocked(data storeData) error {
	data.Version = storeVersion

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create run history dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "runs-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp run history: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(encoded); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp run history: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp run history: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp run history: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace run history: %w", err)
	}
	return nil
}
