package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/metaforge-dev/metaforge/internal/schema"
)

// MemoryProvider is the in-process reference backend: descriptor tables,
// enum sets, and instance storage held in maps. It backs local development,
// scaffolded sample projects, and tests. SetOffline lets callers simulate a
// backend outage.
type MemoryProvider struct {
	mu        sync.RWMutex
	types     map[string]*schema.TypeDescriptor
	details   map[string][]schema.PropertyDetail
	enums     map[string][]string
	instances map[string]map[string]*InstanceRecord
	offline   bool
}

// Seed is the JSON-loadable bootstrap shape for a MemoryProvider.
type Seed struct {
	Types   []*schema.TypeDescriptor           `json:"types"`
	Details map[string][]schema.PropertyDetail `json:"details,omitempty"`
	Enums   map[string][]string                `json:"enums,omitempty"`
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *MemoryProvider {
	return &MemoryProvider{
		types:     make(map[string]*schema.TypeDescriptor),
		details:   make(map[string][]schema.PropertyDetail),
		enums:     make(map[string][]string),
		instances: make(map[string]map[string]*InstanceRecord),
	}
}

// NewMemoryFromSeed creates a provider pre-populated from a seed.
func NewMemoryFromSeed(seed *Seed) *MemoryProvider {
	p := NewMemory()
	p.ApplySeed(seed)
	return p
}

// NewMemoryFromSeedFile loads a JSON seed file and builds a provider from it.
func NewMemoryFromSeedFile(path string) (*MemoryProvider, error) {
	seed, err := LoadSeedFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryFromSeed(seed), nil
}

// LoadSeedFile parses a JSON seed document from disk. The same file feeds
// a memory provider at startup or a SQL provider through ImportSeed.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

// ApplySeed merges a seed into the provider.
func (p *MemoryProvider) ApplySeed(seed *Seed) {
	if seed == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range seed.Types {
		p.types[t.Name] = t.Clone()
	}
	for name, details := range seed.Details {
		p.details[name] = append([]schema.PropertyDetail(nil), details...)
	}
	for name, values := range seed.Enums {
		p.enums[name] = append([]string(nil), values...)
	}
}

// RegisterType adds or replaces a type descriptor.
func (p *MemoryProvider) RegisterType(desc *schema.TypeDescriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types[desc.Name] = desc.Clone()
}

// RegisterEnum adds or replaces a backend enum set.
func (p *MemoryProvider) RegisterEnum(name string, values []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enums[name] = append([]string(nil), values...)
}

// SetPropertyDetails sets the batched detail records for a type.
func (p *MemoryProvider) SetPropertyDetails(typeName string, details []schema.PropertyDetail) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.details[typeName] = append([]schema.PropertyDetail(nil), details...)
}

// SetOffline toggles simulated backend unavailability. While offline every
// operation returns ErrUnavailable.
func (p *MemoryProvider) SetOffline(offline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = offline
}

func (p *MemoryProvider) checkOnline() error {
	if p.offline {
		return fmt.Errorf("memory provider offline: %w", ErrUnavailable)
	}
	return nil
}

// TypeNames returns all registered type names, sorted.
func (p *MemoryProvider) TypeNames(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.checkOnline(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(p.types))
	for name := range p.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DescribeType resolves a type name to a copy of its descriptor.
func (p *MemoryProvider) DescribeType(ctx context.Context, name string) (*schema.TypeDescriptor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.checkOnline(); err != nil {
		return nil, err
	}
	desc, ok := p.types[name]
	if !ok {
		return nil, fmt.Errorf("type %s: %w", name, ErrNotFound)
	}
	return desc.Clone(), nil
}

// PropertyDetails returns the batched detail set for a type. Types without
// registered details get an empty set, not an error: detail metadata is
// optional in real backends too.
func (p *MemoryProvider) PropertyDetails(ctx context.Context, typeName string) ([]schema.PropertyDetail, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.checkOnline(); err != nil {
		return nil, err
	}
	if _, ok := p.types[typeName]; !ok {
		return nil, fmt.Errorf("type %s: %w", typeName, ErrNotFound)
	}
	return append([]schema.PropertyDetail(nil), p.details[typeName]...), nil
}

// EnumValues returns the candidates of a registered enum.
func (p *MemoryProvider) EnumValues(ctx context.Context, enumName string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.checkOnline(); err != nil {
		return nil, err
	}
	values, ok := p.enums[enumName]
	if !ok {
		return nil, fmt.Errorf("enum %s: %w", enumName, ErrNotFound)
	}
	return append([]string(nil), values...), nil
}

// SaveInstance stores a deep copy of the record.
func (p *MemoryProvider) SaveInstance(ctx context.Context, rec *InstanceRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkOnline(); err != nil {
		return err
	}
	if rec == nil || rec.Type == "" || rec.Name == "" {
		return fmt.Errorf("instance record requires type and name")
	}
	byName, ok := p.instances[rec.Type]
	if !ok {
		byName = make(map[string]*InstanceRecord)
		p.instances[rec.Type] = byName
	}
	byName[rec.Name] = rec.Clone()
	return nil
}

// LoadInstance retrieves a deep copy of a stored record.
func (p *MemoryProvider) LoadInstance(ctx context.Context, typeName, name string) (*InstanceRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.checkOnline(); err != nil {
		return nil, err
	}
	byName, ok := p.instances[typeName]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", typeName, name, ErrNotFound)
	}
	rec, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", typeName, name, ErrNotFound)
	}
	return rec.Clone(), nil
}

// DeleteInstance removes a stored record. Returns false when the record was
// not there to begin with.
func (p *MemoryProvider) DeleteInstance(ctx context.Context, typeName, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkOnline(); err != nil {
		return false, err
	}
	byName, ok := p.instances[typeName]
	if !ok {
		return false, nil
	}
	if _, ok := byName[name]; !ok {
		return false, nil
	}
	delete(byName, name)
	return true, nil
}

// ListInstances returns the stored instance names for a type, sorted.
func (p *MemoryProvider) ListInstances(ctx context.Context, typeName string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.checkOnline(); err != nil {
		return nil, err
	}
	byName := p.instances[typeName]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
