// Package storage persists simulation runs in a single JSON file.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/san-kum/loopsim/internal/run"
)

const runsFile = "runs.json"

// Store is a directory holding runs.json. Every mutation rewrites the file
// atomically.
type Store struct {
	baseDir string
	mu      sync.Mutex
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Path() string {
	return filepath.Join(s.baseDir, runsFile)
}

func (s *Store) read() (*run.Collection, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return run.NewCollection()
		}
		return nil, err
	}

	var runs []*run.SimulationRun
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", s.Path(), err)
	}
	c, err := run.NewCollection(runs...)
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", s.Path(), err)
	}
	return c, nil
}

func (s *Store) write(c *run.Collection) error {
	if err := s.Init(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.Runs(), "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.Path(), bytes.NewReader(data))
}

// update loads the collection, applies fn and writes it back.
func (s *Store) update(fn func(c *run.Collection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return s.write(c)
}

// Save appends r. A run with the same name yields run.ErrDuplicateRun.
func (s *Store) Save(r *run.SimulationRun) error {
	return s.update(func(c *run.Collection) error {
		return c.Add(r)
	})
}

// List returns all stored runs in the order they were saved.
func (s *Store) List() ([]*run.SimulationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read()
	if err != nil {
		return nil, err
	}
	return c.Runs(), nil
}

func (s *Store) Load(name string) (*run.SimulationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read()
	if err != nil {
		return nil, err
	}
	return c.Get(name)
}

func (s *Store) Delete(name string) error {
	return s.update(func(c *run.Collection) error {
		return c.Delete(name)
	})
}

func (s *Store) Rename(oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("storage: empty run name")
	}
	return s.update(func(c *run.Collection) error {
		return c.Rename(oldName, newName)
	})
}
