// Package catalog provides the coding task catalog offered during interviews.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/ashureev/interviewer/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed tasks.yaml
var defaultTasks []byte

// ErrEmpty is returned when a catalog source contains no tasks.
var ErrEmpty = errors.New("catalog has no tasks")

// TestCase is a single expression evaluated against the candidate's code.
// Expected is a Python literal.
type TestCase struct {
	Expr     string `yaml:"expr" json:"expr"`
	Expected string `yaml:"expected" json:"expected"`
}

// Entry is a catalog task together with its level and test cases.
type Entry struct {
	ID          string       `yaml:"id" json:"task_id"`
	Level       domain.Level `yaml:"level" json:"level"`
	Title       string       `yaml:"title" json:"title"`
	Description string       `yaml:"description" json:"description"`
	Template    string       `yaml:"template" json:"template"`
	Tests       []TestCase   `yaml:"tests" json:"-"`
}

// Task converts the entry to the task shape shown to the candidate.
func (e Entry) Task() domain.Task {
	return domain.Task{ID: e.ID, Description: e.Description, StarterCode: e.Template}
}

type file struct {
	Tasks []Entry `yaml:"tasks"`
}

// Catalog is an immutable, ordered set of tasks.
type Catalog struct {
	entries []Entry
	byID    map[string]int
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultTasks)
}

// Load reads a catalog from path, or the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(f.Tasks) == 0 {
		return nil, ErrEmpty
	}

	c := &Catalog{
		entries: make([]Entry, 0, len(f.Tasks)),
		byID:    make(map[string]int, len(f.Tasks)),
	}
	for _, e := range f.Tasks {
		if e.ID == "" {
			return nil, fmt.Errorf("task %q: missing id", e.Title)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("task %q: duplicate id", e.ID)
		}
		if !e.Level.Valid() {
			return nil, fmt.Errorf("task %q: invalid level %d", e.ID, e.Level)
		}
		c.byID[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Get returns the entry with the given id.
func (c *Catalog) Get(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// List returns all entries in catalog order.
func (c *Catalog) List() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Random returns a uniformly chosen task.
func (c *Catalog) Random() domain.Task {
	return c.entries[rand.IntN(len(c.entries))].Task()
}

// RandomByLevel returns a uniformly chosen task of the given level.
func (c *Catalog) RandomByLevel(level domain.Level) (domain.Task, bool) {
	var candidates []int
	for i, e := range c.entries {
		if e.Level == level {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return domain.Task{}, false
	}
	return c.entries[candidates[rand.IntN(len(candidates))]].Task(), true
}
