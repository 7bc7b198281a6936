// Package artifact writes hand-off files into a run's output directory.
package artifact

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes files relative to an output directory and refuses paths that escape it.
type Store struct {
	guard *PathGuard
}

// NewStore creates the output directory if needed and returns a store rooted at it.
func NewStore(outDir string) (*Store, error) {
	if outDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	guard, err := NewPathGuard(outDir)
	if err != nil {
		return nil, err
	}
	return &Store{guard: guard}, nil
}

// Root returns the absolute output directory.
func (s *Store) Root() string {
	return s.guard.BaseDir
}

// Path resolves rel inside the output directory.
func (s *Store) Path(rel string) (string, error) {
	return s.guard.Resolve(rel)
}

// WriteFile writes content to rel, creating parent directories.
func (s *Store) WriteFile(rel string, content []byte) (string, error) {
	resolved, err := s.prepare(rel)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(resolved, content, 0o644); err != nil {
		return "", err
	}
	return resolved, nil
}

// WriteJSON writes v as indented JSON.
func (s *Store) WriteJSON(rel string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", rel, err)
	}
	return s.WriteFile(rel, append(data, '\n'))
}

// WriteJSONLines writes n JSON documents, one per line, produced by item(i).
func (s *Store) WriteJSONLines(rel string, n int, item func(i int) any) (string, error) {
	resolved, err := s.prepare(rel)
	if err != nil {
		return "", err
	}
	f, err := os.Create(resolved)
	if err != nil {
		return "", err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := 0; i < n; i++ {
		if err := enc.Encode(item(i)); err != nil {
			f.Close()
			return "", fmt.Errorf("encode %s line %d: %w", rel, i+1, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return resolved, nil
}

// Remove deletes rel if it exists.
func (s *Store) Remove(rel string) error {
	resolved, err := s.guard.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) prepare(rel string) (string, error) {
	resolved, err := s.guard.Resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", err
	}
	return resolved, nil
}
