package levels

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/sokoban-game/game/engine"
)

var (
	ErrInvalidLevel = errors.New("invalid level")
)

const (
	SourceBuiltin = "builtin"
	SourceFile    = "file"
	SourceMemory  = "memory"
)

// Info summarizes a catalog entry for listings
type Info struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Filename    string `json:"filename,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Boxes       int    `json:"boxes"`
	Goals       int    `json:"goals"`
}

type entry struct {
	level    *engine.Level
	source   string
	filename string
}

// Catalog holds the level templates: the built-in levels overlaid with any
// *.json level files found in dir. A file whose id matches a built-in level
// replaces it.
type Catalog struct {
	dir     string
	entries map[int]*entry
	mu      sync.RWMutex
}

// NewCatalog creates a catalog. An empty dir serves the built-in levels only.
func NewCatalog(dir string) (*Catalog, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("levels directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("levels path is not a directory: %s", dir)
		}
	}

	c := &Catalog{dir: dir}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// Template returns a copy of the level with the given id
func (c *Catalog) Template(id int) (*engine.Level, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("level %d: %w", id, engine.ErrLevelNotFound)
	}
	return cloneLevel(e.level), nil
}

// IDs returns every level id in ascending order
func (c *Catalog) IDs() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// First returns the lowest level id, or 0 for an empty catalog
func (c *Catalog) First() int {
	ids := c.IDs()
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}

// List returns a summary of every level, ordered by id
func (c *Catalog) List() []*Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]*Info, 0, len(c.entries))
	for _, e := range c.entries {
		infos = append(infos, describe(e))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Save validates level and adds it to the catalog, replacing any level with
// the same id. With a levels directory the level is also written to disk.
func (c *Catalog) Save(level *engine.Level) error {
	if _, err := engine.ValidateLevel(level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	e := &entry{level: cloneLevel(level), source: SourceMemory}
	if c.dir != "" {
		e.source = SourceFile
		e.filename = fmt.Sprintf("level_%03d.json", level.ID)

		data, err := json.MarshalIndent(level, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal level: %w", err)
		}
		if err := os.WriteFile(filepath.Join(c.dir, e.filename), data, 0644); err != nil {
			return fmt.Errorf("failed to write level file: %w", err)
		}
	}

	c.mu.Lock()
	c.entries[level.ID] = e
	c.mu.Unlock()

	log.WithFields(log.Fields{"level": level.ID, "source": e.source}).Info("level saved")
	return nil
}

// Refresh rebuilds the catalog from the built-in levels and the levels directory.
// Unreadable or invalid files are skipped with a warning.
func (c *Catalog) Refresh() error {
	entries := make(map[int]*entry)
	for _, level := range builtinLevels() {
		entries[level.ID] = &entry{level: level, source: SourceBuiltin}
	}

	if c.dir != "" {
		files, err := os.ReadDir(c.dir)
		if err != nil {
			return fmt.Errorf("failed to read levels directory: %w", err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			level, err := LoadFile(filepath.Join(c.dir, f.Name()))
			if err != nil {
				log.WithError(err).WithField("file", f.Name()).Warn("skipping level file")
				continue
			}
			entries[level.ID] = &entry{level: level, source: SourceFile, filename: f.Name()}
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	log.WithFields(log.Fields{"levels": len(entries), "dir": c.dir}).Debug("level catalog loaded")
	return nil
}

// LoadFile reads and validates a single level file
func LoadFile(path string) (*engine.Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}

	var level engine.Level
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidLevel, filepath.Base(path), err)
	}
	if _, err := engine.ValidateLevel(&level); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	return &level, nil
}

// ResolveLevelID turns an externally supplied level parameter into a catalog
// id. Empty, non-numeric and unknown values fall back to the first level.
func ResolveLevelID(raw string, c engine.Catalog) int {
	ids := c.IDs()
	if len(ids) == 0 {
		return 0
	}
	sort.Ints(ids)

	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return ids[0]
	}
	for _, known := range ids {
		if known == id {
			return id
		}
	}
	return ids[0]
}

func describe(e *entry) *Info {
	info := &Info{
		ID:          e.level.ID,
		Name:        e.level.Name,
		Description: e.level.Description,
		Source:      e.source,
		Filename:    e.filename,
	}
	if g, err := engine.NewGridFromLayout(e.level.Layout); err == nil {
		info.Width = g.Width()
		info.Height = g.Height()
		info.Boxes = g.Count(engine.Box) + g.Count(engine.BoxOnGoal)
		info.Goals = engine.CountGoals(g)
	}
	return info
}

func cloneLevel(level *engine.Level) *engine.Level {
	clone := *level
	clone.Layout = append([]string(nil), level.Layout...)
	return &clone
}
