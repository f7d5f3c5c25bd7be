package pattern

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/object"
)

// Library loads and serves pattern documents from a directory of
// *.pattern.json files. Loading replaces the whole set atomically, so a
// reload never exposes a half-read state.
type Library struct {
	dir    string
	logger *zap.Logger

	mu       sync.RWMutex
	patterns map[string]map[string]*Pattern // name -> version -> pattern
}

// NewLibrary creates a Library over dir. Call Load before serving.
func NewLibrary(dir string, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		dir:      dir,
		logger:   logger,
		patterns: make(map[string]map[string]*Pattern),
	}
}

// Load reads every *.pattern.json under the library directory. Documents
// that fail to parse or lack name/version/root are logged and skipped, so
// one broken file never empties the library.
func (l *Library) Load() error {
	files, err := filepath.Glob(filepath.Join(l.dir, "*.pattern.json"))
	if err != nil {
		return fmt.Errorf("failed to scan pattern directory %s: %w", l.dir, err)
	}

	loaded := make(map[string]map[string]*Pattern)
	for _, file := range files {
		p, err := readPattern(file)
		if err != nil {
			l.logger.Warn("skipping pattern file",
				zap.String("file", file),
				zap.Error(err))
			continue
		}

		versions, ok := loaded[p.Name]
		if !ok {
			versions = make(map[string]*Pattern)
			loaded[p.Name] = versions
		}
		if _, exists := versions[p.Version]; exists {
			l.logger.Warn("duplicate pattern version, keeping later file",
				zap.String("pattern", p.Name),
				zap.String("version", p.Version),
				zap.String("file", file))
		}
		versions[p.Version] = p
	}

	l.mu.Lock()
	l.patterns = loaded
	l.mu.Unlock()

	l.logger.Info("pattern library loaded",
		zap.String("dir", l.dir),
		zap.Int("patterns", len(loaded)))
	return nil
}

func readPattern(file string) (*Pattern, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var p Pattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid pattern document: %w", err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("pattern document missing name")
	}
	if p.Version == "" {
		return nil, fmt.Errorf("pattern %s missing version", p.Name)
	}
	if p.Root == nil {
		return nil, fmt.Errorf("pattern %s missing root node", p.Name)
	}
	return &p, nil
}

// Get returns the named pattern. When the requested version is absent the
// first available version (sorted order) is substituted and a warning is
// logged; callers relying on exact versions must check the result's
// Version field.
func (l *Library) Get(name, version string) (*Pattern, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	versions, ok := l.patterns[name]
	if !ok || len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPatternNotFound, name)
	}

	if p, ok := versions[version]; ok {
		return p, nil
	}

	available := make([]string, 0, len(versions))
	for v := range versions {
		available = append(available, v)
	}
	sort.Strings(available)

	substituted := versions[available[0]]
	l.logger.Warn("pattern version substituted",
		zap.String("pattern", name),
		zap.String("requested", version),
		zap.String("substituted", substituted.Version))
	return substituted, nil
}

// List returns one Info per loaded pattern version, sorted by name then
// version.
func (l *Library) List() []Info {
	l.mu.RLock()
	defer l.mu.RUnlock()

	infos := make([]Info, 0, len(l.patterns))
	for _, versions := range l.patterns {
		for _, p := range versions {
			infos = append(infos, Info{
				Name:        p.Name,
				Version:     p.Version,
				Description: p.Description,
			})
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Name != infos[j].Name {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].Version < infos[j].Version
	})
	return infos
}

// Validate checks a built container against the pattern's full rule set:
// every require-one node must be represented, and every rule's count
// bounds and property assertions must hold. The build step never runs
// this; callers invoke it explicitly and honor the boolean.
func (l *Library) Validate(name, version string, container *object.Instance) (bool, error) {
	p, err := l.Get(name, version)
	if err != nil {
		return false, err
	}
	if container == nil {
		return false, fmt.Errorf("cannot validate nil container")
	}

	elements := collectElements(container)

	for _, node := range requireOneNodes(p.Root) {
		if len(elements[strings.ToLower(node.Type)]) == 0 {
			l.logger.Debug("require-one node unsatisfied",
				zap.String("pattern", p.Name),
				zap.String("type", node.Type))
			return false, nil
		}
	}

	for _, rule := range p.Rules {
		matched := elements[strings.ToLower(rule.Type)]
		if len(matched) < rule.Min {
			return false, nil
		}
		if rule.Max > 0 && len(matched) > rule.Max {
			return false, nil
		}
		if rule.Property == "" {
			continue
		}
		for _, el := range matched {
			value, err := el.GetProperty(rule.Property)
			if err != nil || !reflect.DeepEqual(value, rule.Value) {
				return false, nil
			}
		}
	}

	return true, nil
}

// collectElements gathers every descendant of the container, keyed by
// lower-cased type name. The container itself is not counted; rules
// describe what a build put inside it.
func collectElements(container *object.Instance) map[string][]*object.Instance {
	elements := make(map[string][]*object.Instance)
	seen := make(map[string]bool)

	var walk func(in *object.Instance)
	walk = func(in *object.Instance) {
		if seen[in.UID()] {
			return
		}
		seen[in.UID()] = true
		for _, col := range in.Descriptor().Collections {
			children, err := in.Collection(col.Name)
			if err != nil {
				continue
			}
			for _, child := range children {
				key := strings.ToLower(child.Type())
				elements[key] = append(elements[key], child)
				walk(child)
			}
		}
	}
	walk(container)
	return elements
}

// requireOneNodes lists every non-container node flagged RequireOne.
func requireOneNodes(root *Node) []*Node {
	var nodes []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.RequireOne && !n.IsContainer() {
			nodes = append(nodes, n)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)
	return nodes
}
