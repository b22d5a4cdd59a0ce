/*
Package session saves advising sessions to disk and exports them.

Each saved session is one JSON file in the sessions directory holding the
advisor snapshot plus the model and consultation type it ran with.
*/
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/advisor"
)

// ErrNotFound is returned for a session name with no saved file.
var ErrNotFound = errors.New("session not found")

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Record is a saved session.
type Record struct {
	Name    string           `json:"name"`
	SavedAt time.Time        `json:"timestamp"`
	Type    string           `json:"session_type"`
	Model   string           `json:"active_model"`
	Preset  *Preset          `json:"preset,omitempty"`
	Advisor advisor.Snapshot `json:"advisor"`
}

// Info summarizes a saved session for listing.
type Info struct {
	Name    string    `json:"name"`
	SavedAt time.Time `json:"timestamp"`
	Type    string    `json:"type"`
	Model   string    `json:"model"`
}

// Manager stores sessions under a directory.
type Manager struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
	now    func() time.Time
}

// NewManager creates dir if needed.
func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Manager{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the sessions directory.
func (m *Manager) Dir() string { return m.dir }

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name+".json")
}

func checkName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid session name %q", name)
	}
	return nil
}

// Save writes rec under rec.Name, replacing any earlier save.
func (m *Manager) Save(rec Record) (string, error) {
	if err := checkName(rec.Name); err != nil {
		return "", err
	}
	if rec.Type == "" {
		rec.Type = TypeGeneral
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = m.now()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	path := m.path(rec.Name)
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	m.logger.Debug("Saved session", zap.String("name", rec.Name), zap.String("path", path))
	return path, nil
}

// Load reads a saved session.
func (m *Manager) Load(name string) (Record, error) {
	if err := checkName(name); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read(m.path(name))
}

func (m *Manager) read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), ".json"))
		}
		return Record{}, fmt.Errorf("failed to read session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	return rec, nil
}

// List returns the saved sessions, newest first. Unreadable files are
// skipped.
func (m *Manager) List() ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(m.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(matches))
	for _, path := range matches {
		if strings.HasSuffix(path, exportSuffix+".json") {
			continue
		}
		rec, err := m.read(path)
		if err != nil {
			m.logger.Warn("Skipping unreadable session", zap.String("path", path), zap.Error(err))
			continue
		}
		infos = append(infos, Info{
			Name:    strings.TrimSuffix(filepath.Base(path), ".json"),
			SavedAt: rec.SavedAt,
			Type:    rec.Type,
			Model:   rec.Model,
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].SavedAt.After(infos[j].SavedAt)
	})
	return infos, nil
}

// Delete removes a saved session.
func (m *Manager) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace session: %w", err)
	}
	return nil
}
