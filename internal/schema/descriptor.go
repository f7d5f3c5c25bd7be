// Package schema defines the descriptor value types shared by the provider
// boundary, the type catalog, and the object layer. Descriptors are immutable
// once published: the catalog hands out copies, never cached pointers into
// mutable state.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// PropertyKind classifies how a property's value behaves.
type PropertyKind int

const (
	// KindScalar is a single-valued property (string, number, bool, date...).
	KindScalar PropertyKind = iota
	// KindEnum is a property restricted to a fixed candidate set.
	KindEnum
	// KindCollection is a multi-valued property holding child elements.
	KindCollection
)

// String returns the string representation of the property kind.
func (k PropertyKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindEnum:
		return "enum"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// ParsePropertyKind converts a string to a PropertyKind.
func ParsePropertyKind(s string) (PropertyKind, error) {
	switch s {
	case "scalar":
		return KindScalar, nil
	case "enum":
		return KindEnum, nil
	case "collection":
		return KindCollection, nil
	default:
		return 0, fmt.Errorf("unknown property kind: %s", s)
	}
}

// MarshalText implements encoding.TextMarshaler so descriptors serialize
// with readable kinds.
func (k PropertyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PropertyKind) UnmarshalText(text []byte) error {
	parsed, err := ParsePropertyKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PropertyDescriptor describes a single member of a type.
type PropertyDescriptor struct {
	Name        string       `json:"name"`
	Kind        PropertyKind `json:"kind"`
	DataType    string       `json:"data_type"`             // e.g. "string", "int", "ReportStatusEnum"
	Nullable    bool         `json:"nullable"`
	ReadOnly    bool         `json:"read_only"`
	Label       string       `json:"label,omitempty"`
	Description string       `json:"description,omitempty"`
	EnumValues  []string     `json:"enum_values,omitempty"` // inline candidates for KindEnum
}

// CollectionDescriptor describes a multi-valued member holding child elements.
type CollectionDescriptor struct {
	Name        string `json:"name"`
	ElementType string `json:"element_type"`
}

// ParameterDescriptor describes one creation parameter for a type.
type ParameterDescriptor struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Format      string `json:"format,omitempty"` // regexp the value must match
	Description string `json:"description,omitempty"`
}

// TypeDescriptor is the full schema for one object kind. Created by a
// metadata provider, cached by the catalog, read by everything else.
type TypeDescriptor struct {
	Name            string                 `json:"name"`
	Namespace       string                 `json:"namespace,omitempty"`
	BaseType        string                 `json:"base_type,omitempty"`
	Constructible   bool                   `json:"constructible"`
	Properties      []PropertyDescriptor   `json:"properties"`
	Collections     []CollectionDescriptor `json:"collections,omitempty"`
	Parameters      []ParameterDescriptor  `json:"parameters,omitempty"`
	ChildCollection string                 `json:"child_collection,omitempty"`
}

// PropertyDetail is one entry of the batched label/description lookup a
// provider answers per type. Fetching these one property at a time is the
// dominant metadata cost, so providers must return the whole set in a
// single call.
type PropertyDetail struct {
	Property    string `json:"property"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// Property finds a property descriptor by name.
func (t *TypeDescriptor) Property(name string) (*PropertyDescriptor, bool) {
	for i := range t.Properties {
		if t.Properties[i].Name == name {
			return &t.Properties[i], true
		}
	}
	return nil, false
}

// Collection finds a collection descriptor by name.
func (t *TypeDescriptor) Collection(name string) (*CollectionDescriptor, bool) {
	for i := range t.Collections {
		if t.Collections[i].Name == name {
			return &t.Collections[i], true
		}
	}
	return nil, false
}

// Parameter finds a creation parameter by name.
func (t *TypeDescriptor) Parameter(name string) (*ParameterDescriptor, bool) {
	for i := range t.Parameters {
		if t.Parameters[i].Name == name {
			return &t.Parameters[i], true
		}
	}
	return nil, false
}

// RequiredParameters returns the names of all required creation parameters,
// sorted for deterministic error reporting.
func (t *TypeDescriptor) RequiredParameters() []string {
	var required []string
	for _, p := range t.Parameters {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	sort.Strings(required)
	return required
}

// ChildCollectionName returns the collection new child elements attach to:
// the explicitly declared one, or the first declared collection.
func (t *TypeDescriptor) ChildCollectionName() string {
	if t.ChildCollection != "" {
		return t.ChildCollection
	}
	if len(t.Collections) > 0 {
		return t.Collections[0].Name
	}
	return ""
}

// Clone returns a deep copy. The catalog clones descriptors on the way out
// so callers cannot mutate cached state.
func (t *TypeDescriptor) Clone() *TypeDescriptor {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Properties = make([]PropertyDescriptor, len(t.Properties))
	for i, p := range t.Properties {
		cp.Properties[i] = p
		if p.EnumValues != nil {
			cp.Properties[i].EnumValues = append([]string(nil), p.EnumValues...)
		}
	}
	if t.Collections != nil {
		cp.Collections = append([]CollectionDescriptor(nil), t.Collections...)
	}
	if t.Parameters != nil {
		cp.Parameters = append([]ParameterDescriptor(nil), t.Parameters...)
	}
	return &cp
}

// internalSuffixes marks helper kinds the catalog never lists: base classes,
// helper types, and the per-kind collection wrappers some backends emit.
var internalSuffixes = []string{"Base", "Helper", "Collection"}

// IsInternalTypeName reports whether a type name denotes an internal or
// helper kind that ListTypes must filter out.
func IsInternalTypeName(name string) bool {
	if name == "" {
		return true
	}
	for _, suffix := range internalSuffixes {
		if strings.HasSuffix(name, suffix) && name != suffix {
			return true
		}
	}
	return false
}
