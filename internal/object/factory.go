// Package object implements the object layer: live instances of cataloged
// types and the factory that creates, loads, saves, and deletes them
// against the instance store.
package object

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/catalog"
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/schema"
)

// Factory creates and resolves object instances. All type knowledge comes
// from the catalog; all persistence goes through the store. Safe for
// concurrent use.
type Factory struct {
	catalog *catalog.Catalog
	store   provider.Store
	logger  *zap.Logger

	// Compiled parameter format patterns, keyed by the pattern source.
	patternsMu sync.RWMutex
	patterns   map[string]*regexp.Regexp
}

// CreateResult reports what a creation produced
type CreateResult struct {
	// Instance is the newly created live object
	Instance *Instance
	// Artifacts lists the qualified names of everything created
	Artifacts []string
	// Diagnostics carries non-fatal notices, such as defaults applied
	Diagnostics []string
}

// NewFactory creates a factory over the given catalog and store
func NewFactory(cat *catalog.Catalog, store provider.Store, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		catalog:  cat,
		store:    store,
		logger:   logger,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Create validates params against the type's declared parameters and, only
// if every check passes, constructs a new instance. A failed validation
// reports all failures at once and leaves no trace: no instance, no store
// write, no partial state.
//
// Parameter handling: "name" (case-insensitive) becomes the instance name;
// any other parameter whose name matches a declared property
// (case-insensitive) initializes that property. Optional parameters with
// declared defaults are filled in before mapping.
func (f *Factory) Create(ctx context.Context, typeName string, params map[string]interface{}) (*CreateResult, error) {
	desc, err := f.catalog.GetType(ctx, typeName)
	if err != nil {
		return nil, err
	}
	if !desc.Constructible {
		return nil, fmt.Errorf("%w: type %s is not constructible", ErrValidationFailed, typeName)
	}

	merged, defaulted, verr := f.validateParams(desc, params)
	if verr != nil {
		return nil, verr
	}

	name := instanceName(desc, merged)
	inst := newInstance(desc, name)

	for paramName, value := range merged {
		if strings.EqualFold(paramName, "name") {
			continue
		}
		if prop := matchProperty(desc, paramName); prop != "" {
			if err := inst.setInitial(prop, value); err != nil {
				return nil, fmt.Errorf("failed to initialize %s.%s: %w", typeName, prop, err)
			}
		}
	}

	result := &CreateResult{
		Instance:  inst,
		Artifacts: []string{inst.Path()},
	}
	if len(defaulted) > 0 {
		sort.Strings(defaulted)
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("defaults applied: %s", strings.Join(defaulted, ", ")))
	}

	f.logger.Debug("object created",
		zap.String("type", typeName),
		zap.String("name", name))

	return result, nil
}

// GetExisting loads a stored object and rebuilds it as a live instance
// tree. The object is re-resolved from the store on every call; nothing is
// cached between calls.
func (f *Factory) GetExisting(ctx context.Context, typeName, name string) (*Instance, error) {
	rec, err := f.store.LoadInstance(ctx, typeName, name)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, typeName, name)
		}
		return nil, fmt.Errorf("failed to load %s/%s: %w", typeName, name, err)
	}

	return f.fromRecord(ctx, rec)
}

// Save validates the instance tree and writes it to the store, replacing
// any previous state under the same (type, name) key.
func (f *Factory) Save(ctx context.Context, inst *Instance) error {
	if inst == nil {
		return errors.New("cannot save nil instance")
	}
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if err := f.store.SaveInstance(ctx, inst.Record()); err != nil {
		return fmt.Errorf("failed to save %s: %w", inst.Path(), err)
	}

	f.logger.Debug("object saved", zap.String("object", inst.Path()))
	return nil
}

// Delete removes a stored object. Deleting an object that does not exist
// is an error so callers can distinguish "gone" from "never there".
func (f *Factory) Delete(ctx context.Context, typeName, name string) error {
	deleted, err := f.store.DeleteInstance(ctx, typeName, name)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", typeName, name, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, typeName, name)
	}

	f.logger.Debug("object deleted",
		zap.String("type", typeName),
		zap.String("name", name))
	return nil
}

// DeleteCascade would remove an object and everything referencing it.
// Dependency tracking across stored objects does not exist yet, so the
// operation is registered but always refuses.
func (f *Factory) DeleteCascade(ctx context.Context, typeName, name string) error {
	return fmt.Errorf("%w: deleteObjectCascade for %s/%s", ErrCascadeNotImplemented, typeName, name)
}

// validateParams checks params against the descriptor's declared
// parameters. It returns the merged parameter set (declared defaults
// filled in), the names of parameters that were defaulted, and a
// ValidationError carrying every failure if any check failed.
func (f *Factory) validateParams(desc *schema.TypeDescriptor, params map[string]interface{}) (map[string]interface{}, []string, error) {
	var fieldErrors []FieldError

	// Unknown parameters first, in sorted order for stable messages.
	var unknown []string
	for name := range params {
		if _, ok := desc.Parameter(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   name,
			Message: fmt.Sprintf("unknown parameter for type %s", desc.Name),
		})
	}

	merged := make(map[string]interface{}, len(desc.Parameters))
	var defaulted []string

	for _, p := range desc.Parameters {
		value, present := params[p.Name]
		if !present || value == nil || value == "" {
			if p.Required {
				fieldErrors = append(fieldErrors, FieldError{
					Field:   p.Name,
					Message: "is required",
				})
				continue
			}
			if p.Default != nil {
				merged[p.Name] = p.Default
				defaulted = append(defaulted, p.Name)
			}
			continue
		}

		if p.Format != "" {
			str, ok := value.(string)
			if !ok {
				fieldErrors = append(fieldErrors, FieldError{
					Field:   p.Name,
					Message: fmt.Sprintf("must be a string, got %T", value),
				})
				continue
			}

			re, err := f.compileFormat(p.Format)
			if err != nil {
				return nil, nil, fmt.Errorf("type %s parameter %s has invalid format %q: %w",
					desc.Name, p.Name, p.Format, err)
			}
			if !re.MatchString(str) {
				fieldErrors = append(fieldErrors, FieldError{
					Field:   p.Name,
					Message: fmt.Sprintf("must match %s", p.Format),
				})
				continue
			}
		}

		merged[p.Name] = value
	}

	if len(fieldErrors) > 0 {
		return nil, nil, &ValidationError{Errors: fieldErrors}
	}
	return merged, defaulted, nil
}

// compileFormat returns the compiled regexp for a parameter format,
// memoizing across calls.
func (f *Factory) compileFormat(format string) (*regexp.Regexp, error) {
	f.patternsMu.RLock()
	re, ok := f.patterns[format]
	f.patternsMu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(format)
	if err != nil {
		return nil, err
	}

	f.patternsMu.Lock()
	f.patterns[format] = re
	f.patternsMu.Unlock()
	return re, nil
}

// fromRecord rebuilds a live instance tree from its stored form.
func (f *Factory) fromRecord(ctx context.Context, rec *provider.InstanceRecord) (*Instance, error) {
	desc, err := f.catalog.GetType(ctx, rec.Type)
	if err != nil {
		return nil, fmt.Errorf("stored object %s/%s: %w", rec.Type, rec.Name, err)
	}

	inst := newInstance(desc, rec.Name)
	for name, value := range rec.Properties {
		// Stored properties are trusted; descriptors may have gained or
		// lost members since the object was saved. Unknown names are
		// dropped with a log line rather than failing the load.
		if err := inst.setInitial(name, value); err != nil {
			f.logger.Warn("dropping stored property unknown to descriptor",
				zap.String("object", rec.Type+"/"+rec.Name),
				zap.String("property", name))
		}
	}

	for collName, children := range rec.Collections {
		for _, childRec := range children {
			child, err := f.fromRecord(ctx, childRec)
			if err != nil {
				return nil, err
			}
			if err := inst.AppendToCollection(collName, child); err != nil {
				return nil, fmt.Errorf("stored object %s/%s: %w", rec.Type, rec.Name, err)
			}
		}
	}

	return inst, nil
}

// instanceName picks the name for a new instance: the "name" parameter if
// given, otherwise a generated lowercase-type-plus-suffix name.
func instanceName(desc *schema.TypeDescriptor, merged map[string]interface{}) string {
	for paramName, value := range merged {
		if strings.EqualFold(paramName, "name") {
			if str, ok := value.(string); ok && str != "" {
				return str
			}
		}
	}
	return strings.ToLower(desc.Name) + "-" + uuid.NewString()[:8]
}

// matchProperty finds the declared property a parameter initializes, by
// case-insensitive name match. Returns "" when no property matches.
func matchProperty(desc *schema.TypeDescriptor, paramName string) string {
	for _, prop := range desc.Properties {
		if strings.EqualFold(prop.Name, paramName) {
			return prop.Name
		}
	}
	return ""
}
