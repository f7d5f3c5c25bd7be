package object

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/schema"
)

// Instance is a live object: a type descriptor plus current property values
// and child collections. Instances form trees; AppendToCollection refuses
// edges that would close a cycle, so serialization always terminates.
//
// An Instance is not safe for concurrent mutation. The factory hands each
// request its own tree.
type Instance struct {
	descriptor  *schema.TypeDescriptor
	uid         string
	name        string
	properties  map[string]interface{}
	collections map[string][]*Instance
}

// newInstance builds an empty instance of the given type. Every instance
// carries a uid so traversals can recognize revisits regardless of names.
func newInstance(desc *schema.TypeDescriptor, name string) *Instance {
	return &Instance{
		descriptor:  desc,
		uid:         uuid.NewString(),
		name:        name,
		properties:  make(map[string]interface{}),
		collections: make(map[string][]*Instance),
	}
}

// Type returns the instance's type name
func (in *Instance) Type() string {
	return in.descriptor.Name
}

// Descriptor returns the descriptor the instance was built from
func (in *Instance) Descriptor() *schema.TypeDescriptor {
	return in.descriptor
}

// UID returns the process-unique identity of this instance
func (in *Instance) UID() string {
	return in.uid
}

// Name returns the instance name
func (in *Instance) Name() string {
	return in.name
}

// Path returns the qualified "Type/name" form used in logs and artifacts
func (in *Instance) Path() string {
	return in.descriptor.Name + "/" + in.name
}

// GetProperty returns the current value of a declared property. Properties
// never written return nil without error.
func (in *Instance) GetProperty(name string) (interface{}, error) {
	prop, ok := in.descriptor.Property(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, in.descriptor.Name, name)
	}
	return in.properties[prop.Name], nil
}

// SetProperty writes a declared property. Read-only properties reject
// writes; enum properties with inline candidates reject values outside the
// candidate set.
func (in *Instance) SetProperty(name string, value interface{}) error {
	prop, ok := in.descriptor.Property(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, in.descriptor.Name, name)
	}
	if prop.ReadOnly {
		return fmt.Errorf("%w: %s.%s", ErrReadOnlyProperty, in.descriptor.Name, name)
	}

	if prop.Kind == schema.KindEnum && len(prop.EnumValues) > 0 && value != nil {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("property %s.%s: enum value must be a string, got %T",
				in.descriptor.Name, name, value)
		}
		if !containsFold(prop.EnumValues, str) {
			return fmt.Errorf("property %s.%s: %q is not one of %s",
				in.descriptor.Name, name, str, strings.Join(prop.EnumValues, ", "))
		}
	}

	in.properties[prop.Name] = value
	return nil
}

// setInitial writes a property during construction, before the instance is
// visible to callers. Read-only properties are writable here; they are
// frozen only once the object exists.
func (in *Instance) setInitial(name string, value interface{}) error {
	prop, ok := in.descriptor.Property(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, in.descriptor.Name, name)
	}
	in.properties[prop.Name] = value
	return nil
}

// Properties returns a copy of the current property values
func (in *Instance) Properties() map[string]interface{} {
	out := make(map[string]interface{}, len(in.properties))
	for k, v := range in.properties {
		out[k] = v
	}
	return out
}

// Collection returns the members of a declared collection. The returned
// slice is a copy; the members are shared.
func (in *Instance) Collection(name string) ([]*Instance, error) {
	coll, ok := in.descriptor.Collection(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownCollection, in.descriptor.Name, name)
	}

	members := in.collections[coll.Name]
	out := make([]*Instance, len(members))
	copy(out, members)
	return out, nil
}

// AppendToCollection adds a child to a declared collection. The child's
// type must match the collection's element type, and the edge must not
// close a cycle.
func (in *Instance) AppendToCollection(name string, child *Instance) error {
	coll, ok := in.descriptor.Collection(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownCollection, in.descriptor.Name, name)
	}
	if child == nil {
		return fmt.Errorf("collection %s.%s: nil child", in.descriptor.Name, name)
	}
	if coll.ElementType != "" && !strings.EqualFold(child.descriptor.Name, coll.ElementType) {
		return fmt.Errorf("collection %s.%s holds %s elements, got %s",
			in.descriptor.Name, name, coll.ElementType, child.descriptor.Name)
	}
	if child.contains(in.uid) {
		return fmt.Errorf("collection %s.%s: adding %s would create a cycle",
			in.descriptor.Name, name, child.Path())
	}

	in.collections[coll.Name] = append(in.collections[coll.Name], child)
	return nil
}

// AddChild adds a child to the type's default child collection
func (in *Instance) AddChild(child *Instance) error {
	collName := in.descriptor.ChildCollectionName()
	if collName == "" {
		return fmt.Errorf("type %s has no child collection", in.descriptor.Name)
	}
	return in.AppendToCollection(collName, child)
}

// contains reports whether uid identifies this instance or any instance in
// its subtree.
func (in *Instance) contains(uid string) bool {
	if in.uid == uid {
		return true
	}
	for _, members := range in.collections {
		for _, child := range members {
			if child.contains(uid) {
				return true
			}
		}
	}
	return false
}

// Validate checks the instance tree against its descriptors: enum values
// must be within inline candidate sets and collection members must match
// their declared element types.
func (in *Instance) Validate() error {
	for _, prop := range in.descriptor.Properties {
		value, ok := in.properties[prop.Name]
		if !ok || value == nil {
			continue
		}
		if prop.Kind == schema.KindEnum && len(prop.EnumValues) > 0 {
			str, isStr := value.(string)
			if !isStr || !containsFold(prop.EnumValues, str) {
				return fmt.Errorf("property %s.%s: %v is not one of %s",
					in.descriptor.Name, prop.Name, value, strings.Join(prop.EnumValues, ", "))
			}
		}
	}

	for collName, members := range in.collections {
		coll, ok := in.descriptor.Collection(collName)
		for _, child := range members {
			if ok && coll.ElementType != "" && !strings.EqualFold(child.descriptor.Name, coll.ElementType) {
				return fmt.Errorf("collection %s.%s holds %s elements, got %s",
					in.descriptor.Name, collName, coll.ElementType, child.descriptor.Name)
			}
			if err := child.Validate(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Record serializes the instance tree into the provider's storage form
func (in *Instance) Record() *provider.InstanceRecord {
	rec := &provider.InstanceRecord{
		Type:       in.descriptor.Name,
		Name:       in.name,
		Properties: in.Properties(),
	}

	if len(in.collections) > 0 {
		rec.Collections = make(map[string][]*provider.InstanceRecord, len(in.collections))
		for collName, members := range in.collections {
			children := make([]*provider.InstanceRecord, 0, len(members))
			for _, child := range members {
				children = append(children, child.Record())
			}
			rec.Collections[collName] = children
		}
	}

	return rec
}

// containsFold reports whether values contains s, case-insensitively
func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
