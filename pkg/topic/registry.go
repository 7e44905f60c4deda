package topic

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry holds all loaded topics.
type Registry struct {
	mu        sync.RWMutex
	topics    map[string]*Topic
	topicsDir string
}

// NewRegistry creates an empty registry for the given directory.
func NewRegistry(topicsDir string) *Registry {
	return &Registry{
		topics:    make(map[string]*Topic),
		topicsDir: topicsDir,
	}
}

// Load scans the topics directory; every subdirectory holding a manifest.yaml
// is one topic. The previous set is replaced only if every manifest parses.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.topicsDir)
	if err != nil {
		return fmt.Errorf("read topics dir %s: %w", r.topicsDir, err)
	}

	loaded := make(map[string]*Topic)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.topicsDir, entry.Name())
		path := filepath.Join(dir, "manifest.yaml")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := LoadManifest(path)
		if err != nil {
			return fmt.Errorf("load topic %s: %w", entry.Name(), err)
		}
		if _, dup := loaded[m.ID]; dup {
			slog.Warn("duplicate topic id, later directory wins", "topic", m.ID, "dir", dir)
		}
		loaded[m.ID] = New(m, dir)
	}

	r.mu.Lock()
	r.topics = loaded
	r.mu.Unlock()
	return nil
}

// Reload reloads all manifests from disk.
func (r *Registry) Reload() error {
	return r.Load()
}

// Add registers a topic directly; used by tests and by callers that build
// manifests in code.
func (r *Registry) Add(t *Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[t.ID()] = t
}

// Get returns a topic by ID.
func (r *Registry) Get(id string) (*Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.topics[id]
	return t, ok
}

// All returns every topic sorted by ID.
func (r *Registry) All() []*Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Topic, 0, len(r.topics))
	for _, t := range r.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// List returns metadata for all topics, sorted by ID.
func (r *Registry) List() []Info {
	all := r.All()
	infos := make([]Info, len(all))
	for i, t := range all {
		infos[i] = t.Info()
	}
	return infos
}

// Count returns the number of loaded topics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}
