// Package provider defines the boundary to the external metadata/storage
// backend: the component that owns the authoritative schema for every object
// kind and persists object instances. The engine consumes this boundary and
// never assumes anything about the backend beyond it.
package provider

import (
	"context"
	"errors"

	"github.com/metaforge-dev/metaforge/internal/schema"
)

// Common provider error types
var (
	// ErrNotFound is returned when a type, enum, or instance does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned when the backend cannot be reached. Every
	// implementation wraps connectivity failures in this sentinel so callers
	// receive a typed outcome instead of a raw transport error.
	ErrUnavailable = errors.New("metadata provider unavailable")
)

// Metadata supplies type descriptors and enum candidate sets.
type Metadata interface {
	// TypeNames returns the names of every kind the backend knows about,
	// including internal/helper kinds. Filtering is the catalog's job.
	TypeNames(ctx context.Context) ([]string, error)

	// DescribeType resolves one type name to its descriptor.
	DescribeType(ctx context.Context, name string) (*schema.TypeDescriptor, error)

	// PropertyDetails returns label/description details for every property
	// of the type in one batched call. Implementations must not require one
	// round trip per property.
	PropertyDetails(ctx context.Context, typeName string) ([]schema.PropertyDetail, error)

	// EnumValues returns the candidate values of a backend-registered enum.
	EnumValues(ctx context.Context, enumName string) ([]string, error)
}

// Store persists and retrieves object instances. Write ordering across
// concurrent mutations is the backend's concern; the engine passes calls
// through.
type Store interface {
	SaveInstance(ctx context.Context, rec *InstanceRecord) error
	LoadInstance(ctx context.Context, typeName, name string) (*InstanceRecord, error)
	DeleteInstance(ctx context.Context, typeName, name string) (bool, error)
	ListInstances(ctx context.Context, typeName string) ([]string, error)
}

// Provider combines the metadata and storage halves of the backend.
type Provider interface {
	Metadata
	Store
}

// InstanceRecord is the neutral persisted shape of an object instance:
// a property map plus named collections of child records. Records nest;
// the object layer converts them to live instances.
type InstanceRecord struct {
	Type        string                       `json:"type"`
	Name        string                       `json:"name"`
	Properties  map[string]any               `json:"properties,omitempty"`
	Collections map[string][]*InstanceRecord `json:"collections,omitempty"`
}

// Clone returns a deep copy of the record tree.
func (r *InstanceRecord) Clone() *InstanceRecord {
	if r == nil {
		return nil
	}
	cp := &InstanceRecord{Type: r.Type, Name: r.Name}
	if r.Properties != nil {
		cp.Properties = make(map[string]any, len(r.Properties))
		for k, v := range r.Properties {
			cp.Properties[k] = v
		}
	}
	if r.Collections != nil {
		cp.Collections = make(map[string][]*InstanceRecord, len(r.Collections))
		for name, items := range r.Collections {
			cloned := make([]*InstanceRecord, len(items))
			for i, item := range items {
				cloned[i] = item.Clone()
			}
			cp.Collections[name] = cloned
		}
	}
	return cp
}
