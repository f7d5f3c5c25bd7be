// Package catalog exposes the type system to the rest of the daemon. It
// sits between the metadata provider and every caller that needs type
// information, memoizing descriptors, property details, and enum candidate
// sets in an injected cache so each is fetched from the provider at most
// once per TTL window.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/cache"
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/schema"
)

var (
	// ErrTypeNotFound is returned when a type is not known to the provider
	ErrTypeNotFound = errors.New("type not found")

	// ErrEnumNotFound is returned when an enum has no registered candidate set
	ErrEnumNotFound = errors.New("enum not found")
)

// Cache keys. Values are JSON so memory and Redis backends behave the same.
const (
	keyTypeList = "catalog:types"
	keyType     = "catalog:type:"
	keyDetails  = "catalog:details:"
	keyEnum     = "catalog:enum:"
)

// Config holds catalog tuning knobs
type Config struct {
	// TTL bounds how long catalog entries are served without consulting
	// the provider. Zero means the cache backend's default.
	TTL time.Duration
}

// Catalog answers type system queries from cache, falling back to the
// metadata provider on miss. Safe for concurrent use.
type Catalog struct {
	meta   provider.Metadata
	store  cache.Cache
	logger *zap.Logger
	ttl    time.Duration
}

// New creates a catalog over the given provider and cache
func New(meta provider.Metadata, store cache.Cache, logger *zap.Logger) *Catalog {
	return NewWithConfig(meta, store, logger, Config{})
}

// NewWithConfig creates a catalog with explicit tuning
func NewWithConfig(meta provider.Metadata, store cache.Cache, logger *zap.Logger, cfg Config) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		meta:   meta,
		store:  store,
		logger: logger,
		ttl:    cfg.TTL,
	}
}

// ListTypes returns the sorted names of all public constructible types.
// Internal plumbing types and non-constructible types are filtered out.
// The first call hydrates the descriptor cache as a side effect.
func (c *Catalog) ListTypes(ctx context.Context) ([]string, error) {
	var names []string
	if ok := c.getJSON(ctx, keyTypeList, &names); ok {
		return names, nil
	}

	all, err := c.meta.TypeNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list types: %w", err)
	}

	names = make([]string, 0, len(all))
	for _, name := range all {
		if schema.IsInternalTypeName(name) {
			continue
		}

		desc, err := c.GetType(ctx, name)
		if err != nil {
			if errors.Is(err, ErrTypeNotFound) {
				// Provider listed a type it can no longer describe; skip it
				// rather than failing the whole listing.
				c.logger.Warn("type listed but not describable", zap.String("type", name))
				continue
			}
			return nil, err
		}

		if !desc.Constructible {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	c.setJSON(ctx, keyTypeList, names)
	return names, nil
}

// GetType returns the descriptor for name. Unknown types yield
// ErrTypeNotFound. Each call returns a fresh copy; mutating the result does
// not affect the catalog.
func (c *Catalog) GetType(ctx context.Context, name string) (*schema.TypeDescriptor, error) {
	var desc schema.TypeDescriptor
	if ok := c.getJSON(ctx, keyType+name, &desc); ok {
		return &desc, nil
	}

	fetched, err := c.meta.DescribeType(ctx, name)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, name)
		}
		return nil, fmt.Errorf("failed to describe type %s: %w", name, err)
	}

	c.setJSON(ctx, keyType+name, fetched)
	return fetched, nil
}

// PropertyDetails returns all recorded property details for typeName,
// keyed by property name. The provider is asked for the whole set in one
// call; per-property lookups afterwards are cache hits. A known type with
// no details returns an empty map.
func (c *Catalog) PropertyDetails(ctx context.Context, typeName string) (map[string]schema.PropertyDetail, error) {
	var details map[string]schema.PropertyDetail
	if ok := c.getJSON(ctx, keyDetails+typeName, &details); ok {
		return details, nil
	}

	fetched, err := c.meta.PropertyDetails(ctx, typeName)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, typeName)
		}
		return nil, fmt.Errorf("failed to load property details for %s: %w", typeName, err)
	}

	details = make(map[string]schema.PropertyDetail, len(fetched))
	for _, d := range fetched {
		details[d.Property] = d
	}

	c.setJSON(ctx, keyDetails+typeName, details)
	return details, nil
}

// PropertyDetail returns the detail recorded for one property of typeName.
// The boolean reports whether a detail exists; absence is not an error.
func (c *Catalog) PropertyDetail(ctx context.Context, typeName, property string) (schema.PropertyDetail, bool, error) {
	details, err := c.PropertyDetails(ctx, typeName)
	if err != nil {
		return schema.PropertyDetail{}, false, err
	}

	d, ok := details[property]
	return d, ok, nil
}

// EnumCandidates returns the candidate value list registered under name.
// Unknown enums yield ErrEnumNotFound.
func (c *Catalog) EnumCandidates(ctx context.Context, name string) ([]string, error) {
	var values []string
	if ok := c.getJSON(ctx, keyEnum+name, &values); ok {
		return values, nil
	}

	fetched, err := c.meta.EnumValues(ctx, name)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEnumNotFound, name)
		}
		return nil, fmt.Errorf("failed to load enum %s: %w", name, err)
	}

	c.setJSON(ctx, keyEnum+name, fetched)
	return fetched, nil
}

// Invalidate drops every cached catalog entry. The next query for each
// entry goes back to the provider.
func (c *Catalog) Invalidate(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// getJSON loads and decodes a cached value. Decode failures are treated as
// misses so a stale or corrupt entry heals itself on the next set.
func (c *Catalog) getJSON(ctx context.Context, key string, out interface{}) bool {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// setJSON encodes and stores a cache value. Failures are logged and
// swallowed; the catalog still works, it just re-fetches next time.
func (c *Catalog) setJSON(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
