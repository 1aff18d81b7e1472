// Package manifest persists the per-document fingerprints used to skip
// unchanged files between ingestion passes.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Entry is the fingerprint of an ingested document.
type Entry struct {
	MtimeNs  int64  `json:"mtime_ns"`
	Size     int64  `json:"size"`
	Filename string `json:"filename"`
}

// Manifest maps doc ids to the fingerprint they had when last ingested
// successfully.
type Manifest struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
}

// Load reads the manifest at path. A missing or unreadable file yields an
// empty manifest, which makes the next pass re-ingest everything.
func Load(path string) *Manifest {
	m := &Manifest{path: path, entries: map[string]Entry{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Cannot read manifest, starting empty")
		}
		return m
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Corrupt manifest, starting empty")
		return m
	}
	if entries != nil {
		m.entries = entries
	}
	return m
}

// Path returns the file backing the manifest.
func (m *Manifest) Path() string {
	return m.path
}

// IsUnchanged reports whether docID was recorded with exactly this
// modification time and size.
func (m *Manifest) IsUnchanged(docID string, mtimeNs, size int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[docID]
	return ok && e.MtimeNs == mtimeNs && e.Size == size
}

func (m *Manifest) Get(docID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[docID]
	return e, ok
}

func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// Record stores the fingerprint of docID and rewrites the manifest file.
func (m *Manifest) Record(docID string, mtimeNs, size int64, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[docID] = Entry{MtimeNs: mtimeNs, Size: size, Filename: filename}
	return m.save()
}

// Forget drops the fingerprint of docID and rewrites the manifest file.
func (m *Manifest) Forget(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[docID]; !ok {
		return nil
	}
	delete(m.entries, docID)
	return m.save()
}

// save writes through a temp file and rename so a crash never leaves a
// truncated manifest behind.
func (m *Manifest) save() error {
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling manifest: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("replacing manifest %s: %w", m.path, err)
	}
	return nil
}
