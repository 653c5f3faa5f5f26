package approval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	storeVersion    = 1
	ticketsFileMode = 0644
	ticketsDirMode  = 0755
	startingID      = int64(1)
)

type fileData struct {
	Version int      `json:"version"`
	NextID  int64    `json:"next_id"`
	Tickets []Ticket `json:"tickets"`
}

// Store persists approval tickets to disk so the deadline-based auto-approval
// guarantee survives process restarts.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a ticket store under <workspace>/state/tickets.json.
func NewStore(workspace string) *Store {
	return &Store{path: filepath.Join(workspace, "state", "tickets.json")}
}

// Load reads persisted data from disk.
func (s *Store) Load() (fileData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultFileData(), nil
		}
		return fileData{}, fmt.Errorf("read ticket store: %w", err)
	}

	var parsed fileData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fileData{}, fmt.Errorf("parse ticket store: %w", err)
	}
	return normalizeFileData(parsed), nil
}

// Save writes persisted data to disk atomically.
func (s *Store) Save(data fileData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeFileData(data)

	encoded, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ticket store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), ticketsDirMode); err != nil {
		return fmt.Errorf("create ticket store dir: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmpFile, err := os.CreateTemp(dir, "tickets-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ticket store: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(encoded); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp ticket store: %w", err)
	}
	if err := tmpFile.Chmod(ticketsFileMode); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp ticket store: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp ticket store: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		if removeErr := os.Remove(s.path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("replace ticket store: rename failed (%v), remove failed (%v)", err, removeErr)
		}
		if retryErr := os.Rename(tmpPath, s.path); retryErr != nil {
			return fmt.Errorf("replace ticket store after remove: %w", retryErr)
		}
	}
	return nil
}

func defaultFileData() fileData {
	return fileData{
		Version: storeVersion,
		NextID:  startingID,
		Tickets: []Ticket{},
	}
}

func normalizeFileData(data fileData) fileData {
	if data.Version <= 0 {
		data.Version = storeVersion
	}
	if data.Tickets == nil {
		data.Tickets = []Ticket{}
	}
	if data.NextID <= 0 {
		data.NextID = nextIDFromTickets(data.Tickets)
	}
	return data
}

func nextIDFromTickets(tickets []Ticket) int64 {
	maxID := int64(0)
	for _, t := range tickets {
		id, err := strconv.ParseInt(t.ID, 10, 64)
		if err != nil {
			continue
		}
		if id > maxID {
			maxID = id
		}
	}
	if maxID < startingID {
		return startingID
	}
	return maxID + 1
}
