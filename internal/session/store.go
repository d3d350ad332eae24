package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fakeyudi/wtg/internal/config"
)

// ErrNoSession is returned by Load when no record exists for the id.
var ErrNoSession = errors.New("no such session")

// Store persists session records to disk.
type Store interface {
	Save(r *Record) error
	Load(id string) (*Record, error) // returns ErrNoSession if none exists
	Delete(id string) error
	List() ([]*Record, error) // oldest first
	Prune() ([]*Record, error)
}

// diskStore keeps one JSON file per session in the XDG data directory.
type diskStore struct {
	dir string
}

// NewStore returns a Store backed by the XDG data directory.
// Path: $XDG_DATA_HOME/wtg/sessions or ~/.local/share/wtg/sessions
func NewStore() (Store, error) {
	dir := filepath.Join(config.DataDir(), "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskStore{dir: dir}, nil
}

func (d *diskStore) path(id string) string {
	return filepath.Join(d.dir, id+".json")
}

// Save marshals r to JSON and writes it atomically via a temp file + os.Rename.
func (d *diskStore) Save(r *Record) (err error) {
	if r.ID == "" || strings.ContainsAny(r.ID, `/\`) {
		return fmt.Errorf("invalid session id %q", r.ID)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to persist session record: %w", err)
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(d.dir, "session-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist session record: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist session record: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist session record: %w", err)
	}
	if err = os.Rename(tmpName, d.path(r.ID)); err != nil {
		return fmt.Errorf("failed to persist session record: %w", err)
	}
	return nil
}

// Load reads the record of session id.
func (d *diskStore) Load(id string) (*Record, error) {
	data, err := os.ReadFile(d.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSession, id)
		}
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse session record %s: %w", id, err)
	}
	return &r, nil
}

// Delete removes the record of session id. Deleting a missing record is not
// an error.
func (d *diskStore) Delete(id string) error {
	if err := os.Remove(d.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return nil
}

// List returns every record, oldest first. Unparseable files are skipped.
func (d *diskStore) List() ([]*Record, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var records []*Record
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() {
			continue
		}
		r, err := d.Load(id)
		if err != nil {
			continue
		}
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartTime.Before(records[j].StartTime)
	})
	return records, nil
}

// Prune deletes the records of sessions whose shell is gone and returns them.
func (d *diskStore) Prune() ([]*Record, error) {
	records, err := d.List()
	if err != nil {
		return nil, err
	}
	var stale []*Record
	for _, r := range records {
		if r.Alive() {
			continue
		}
		if err := d.Delete(r.ID); err != nil {
			return stale, err
		}
		stale = append(stale, r)
	}
	return stale, nil
}
