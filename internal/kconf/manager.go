package kconf

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type state int

const (
	stateNew state = iota
	stateValidated
	stateLoaded
	stateMerged
	statePersisted
)

func (s state) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateValidated:
		return "validated"
	case stateLoaded:
		return "loaded"
	case stateMerged:
		return "merged"
	case statePersisted:
		return "persisted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome describes what Save wrote.
type Outcome struct {
	Path    string
	Digest  string // hex SHA-256 of the written content
	Changed bool   // content differs from what Read found
	Created bool   // the file did not exist before
}

// ReadStats summarizes what Read found on disk.
type ReadStats struct {
	Lines     int // non-blank lines
	Skipped   int // malformed lines ignored
	Retained  int // keys kept in the store
	Discarded int // keys dropped by the reset policy
}

// Manager merges a declarative batch into one KConfig file.
// Operations must be called in order: Validate, Read, Run, Save.
type Manager struct {
	path    string
	policy  Policy
	state   state
	entries []Entry
	store   *Store

	// persistent[groupKey][key] marks keys declared KeepPersistent.
	persistent map[string]map[string]bool

	original []byte
	existed  bool
	stats    ReadStats
}

// NewManager returns a Manager for the file at path.
func NewManager(path string, policy Policy) *Manager {
	return &Manager{
		path:   path,
		policy: policy,
		store:  NewStore(),
	}
}

// Path returns the target file path.
func (m *Manager) Path() string { return m.path }

// Policy returns the file policy.
func (m *Manager) Policy() Policy { return m.policy }

// Store exposes the working store. It is empty until Read has run.
func (m *Manager) Store() *Store { return m.store }

// Stats returns what Read found.
func (m *Manager) Stats() ReadStats { return m.stats }

// Entries returns the validated declarations.
func (m *Manager) Entries() []Entry { return m.entries }

func (m *Manager) expect(s state) error {
	if m.state != s {
		return fmt.Errorf("%w: %s: expected state %s, got %s", ErrState, m.path, s, m.state)
	}
	return nil
}

// Validate checks the declarations for this file. No I/O happens here.
// On failure the error is a ValidationErrors and the Manager stays unusable.
func (m *Manager) Validate(groups map[string]map[string]Descriptor) error {
	if err := m.expect(stateNew); err != nil {
		return err
	}

	entries, err := Validate(m.path, groups, m.policy)
	if err != nil {
		return err
	}

	m.entries = entries
	m.persistent = make(map[string]map[string]bool)
	for _, e := range entries {
		if _, ok := e.Setting.(KeepPersistent); !ok {
			continue
		}
		gk := e.Group.Key()
		if m.persistent[gk] == nil {
			m.persistent[gk] = make(map[string]bool)
		}
		m.persistent[gk][e.Key] = true
	}

	m.state = stateValidated
	return nil
}

// Read loads the existing file into the store. A missing file yields an
// empty store. Malformed lines are skipped. With Policy.Reset, only keys
// declared persistent are kept.
func (m *Manager) Read() error {
	if err := m.expect(stateValidated); err != nil {
		return err
	}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		m.state = stateLoaded
		return nil
	case err != nil:
		return fmt.Errorf("read %s: %w", m.path, err)
	}
	m.original = data
	m.existed = true

	var current GroupPath
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		m.stats.Lines++

		// A repeated header starts the group over; only its last block counts.
		if IsHeader(line) {
			current = ParseHeader(line)
			m.store.ClearGroup(current)
			continue
		}

		key, value, ok := ParseLine(line)
		if !ok {
			m.stats.Skipped++
			continue
		}

		if m.policy.Reset && !m.persistent[current.Key()][key] {
			m.stats.Discarded++
			continue
		}
		m.store.Set(current, key, value)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", m.path, err)
	}

	m.stats.Retained = m.store.Len()
	m.state = stateLoaded
	return nil
}

// Run applies the declarations to the store. Persistent entries are left
// as Read found them.
func (m *Manager) Run() error {
	if err := m.expect(stateLoaded); err != nil {
		return err
	}
	m.state = stateMerged

	for _, e := range m.entries {
		switch s := e.Setting.(type) {
		case Remove:
			m.store.Delete(e.Group, e.Key)
		case Set:
			m.store.Set(e.Group, e.Key, ConfigValue{
				Value:       Escape(s.Value),
				HasValue:    true,
				Immutable:   s.Immutable,
				ShellExpand: s.ShellExpand,
			})
		case KeepPersistent:
		}
	}
	return nil
}

// Render returns the file content Save would write.
func (m *Manager) Render() ([]byte, error) {
	if err := m.expect(stateMerged); err != nil {
		return nil, err
	}
	return m.store.Render(), nil
}

// Save writes the merged store to disk in a single pass, creating parent
// directories as needed.
func (m *Manager) Save() (Outcome, error) {
	content, err := m.Render()
	if err != nil {
		return Outcome{}, err
	}

	if err := writeFile(m.path, content); err != nil {
		return Outcome{}, err
	}
	m.state = statePersisted

	return m.outcome(content), nil
}

// Preview returns the Outcome Save would produce without writing.
func (m *Manager) Preview() (Outcome, []byte, error) {
	content, err := m.Render()
	if err != nil {
		return Outcome{}, nil, err
	}
	return m.outcome(content), content, nil
}

func (m *Manager) outcome(content []byte) Outcome {
	return Outcome{
		Path:    m.path,
		Digest:  Digest(content),
		Changed: !m.existed || !bytes.Equal(m.original, content),
		Created: !m.existed,
	}
}

// Digest returns the hex SHA-256 of file content.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// writeFile replaces path with data via a temporary file in the same
// directory. The existing file mode is kept; new files get 0644.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	mode := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}
	committed = true

	return nil
}
