package voices

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

type Config struct {
	Dir     string            `yaml:"dir"`
	Watch   bool              `yaml:"watch"`
	Aliases map[string]string `yaml:"aliases"`
}

// Voice is a named reference-audio asset used for zero-shot cloning.
// Immutable once constructed; replaced wholesale on re-scan.
type Voice struct {
	ID     string
	Path   string
	Format string
}

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("voice %q not found", e.ID)
}

var supportedExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".flac": {},
	".m4a":  {},
	".ogg":  {},
	".opus": {},
}

type snapshot struct {
	voices    map[string]Voice
	ids       []string // lexicographic, for deterministic listings
	degraded  bool
	scannedAt time.Time
}

// Catalog maps voice identifiers to reference audio files found in a
// directory. Readers hold an immutable snapshot; Refresh builds a new one
// off to the side and publishes it with a single pointer swap. Scanning is
// never done on the request path.
type Catalog struct {
	dir  string
	snap atomic.Pointer[snapshot]
}

func NewCatalog(cfg *Config) *Catalog {
	c := &Catalog{
		dir: cfg.Dir,
	}

	c.snap.Store(&snapshot{voices: map[string]Voice{}})

	return c
}

// Refresh re-scans the voice directory and atomically replaces the current
// snapshot. A missing directory yields an empty, degraded catalog rather
// than an error: cloning still works with client-uploaded reference audio.
func (c *Catalog) Refresh() error {
	next := &snapshot{
		voices:    map[string]Voice{},
		scannedAt: time.Now(),
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			next.degraded = true
			c.snap.Store(next)

			return nil
		}

		return fmt.Errorf("failed to read voice directory %s: %w", c.dir, err)
	}

	// os.ReadDir returns entries sorted by filename, so on duplicate stems
	// the lexicographically later file wins.
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := supportedExtensions[ext]; !ok {
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))

		// emotion reference assets are not speaker voices
		if strings.Contains(strings.ToLower(stem), "emo_") {
			continue
		}

		absPath, err := filepath.Abs(filepath.Join(c.dir, name))
		if err != nil {
			return fmt.Errorf("failed to resolve voice path %s: %w", name, err)
		}

		next.voices[stem] = Voice{
			ID:     stem,
			Path:   absPath,
			Format: strings.TrimPrefix(ext, "."),
		}
	}

	next.ids = make([]string, 0, len(next.voices))
	for id := range next.voices {
		next.ids = append(next.ids, id)
	}
	sort.Strings(next.ids)

	c.snap.Store(next)

	return nil
}

// Resolve is a pure lookup against the current snapshot, no I/O.
func (c *Catalog) Resolve(id string) (Voice, bool) {
	v, ok := c.snap.Load().voices[id]

	return v, ok
}

// List returns voices in lexicographic identifier order.
func (c *Catalog) List() []Voice {
	snap := c.snap.Load()

	out := make([]Voice, 0, len(snap.ids))
	for _, id := range snap.ids {
		out = append(out, snap.voices[id])
	}

	return out
}

func (c *Catalog) Len() int {
	return len(c.snap.Load().ids)
}

// Scanned reports whether at least one scan completed, even an empty one.
func (c *Catalog) Scanned() bool {
	return !c.snap.Load().scannedAt.IsZero()
}

// Degraded reports whether the last scan found the directory missing.
func (c *Catalog) Degraded() bool {
	return c.snap.Load().degraded
}
