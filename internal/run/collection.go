package run

import (
	"errors"
	"fmt"
)

var (
	ErrRunNotFound  = errors.New("run: not found")
	ErrDuplicateRun = errors.New("run: name already in use")
)

// Collection is an ordered set of runs keyed by name.
type Collection struct {
	runs []*SimulationRun
}

// NewCollection fails with ErrDuplicateRun if two runs share a name.
func NewCollection(runs ...*SimulationRun) (*Collection, error) {
	c := &Collection{}
	for _, r := range runs {
		if err := c.Add(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collection) Add(r *SimulationRun) error {
	if c.index(r.Name()) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateRun, r.Name())
	}
	c.runs = append(c.runs, r)
	return nil
}

func (c *Collection) Get(name string) (*SimulationRun, error) {
	i := c.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, name)
	}
	return c.runs[i], nil
}

func (c *Collection) Delete(name string) error {
	i := c.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrRunNotFound, name)
	}
	c.runs = append(c.runs[:i], c.runs[i+1:]...)
	return nil
}

func (c *Collection) Rename(oldName, newName string) error {
	r, err := c.Get(oldName)
	if err != nil {
		return err
	}
	if oldName != newName && c.index(newName) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateRun, newName)
	}
	r.Rename(newName)
	return nil
}

// Runs returns the runs in insertion order.
func (c *Collection) Runs() []*SimulationRun {
	return append([]*SimulationRun(nil), c.runs...)
}

func (c *Collection) Len() int { return len(c.runs) }

func (c *Collection) index(name string) int {
	for i, r := range c.runs {
		if r.Name() == name {
			return i
		}
	}
	return -1
}
