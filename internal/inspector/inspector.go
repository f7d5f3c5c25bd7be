// Package inspector produces bounded, display-ready views of stored
// objects: properties with resolved labels and enum candidates,
// collections with capped identifier lists, and inline error entries in
// place of call-level failures. Every call carries its own traversal
// guard, so cyclic or deeply nested record graphs truncate instead of
// recursing without bound.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/catalog"
	"github.com/metaforge-dev/metaforge/internal/object"
	"github.com/metaforge-dev/metaforge/internal/schema"
)

// Config bounds one inspection call.
type Config struct {
	// MaxItems stops collection enumeration; the reported count is the cap,
	// flagged as capped, never an estimate.
	MaxItems int
	// MaxIdentifiers bounds the identifier list of each collection.
	MaxIdentifiers int
	// MaxDepth bounds the traversal depth, counting the inspected object
	// itself as level one.
	MaxDepth int
}

// DefaultConfig returns the standard inspection bounds.
func DefaultConfig() Config {
	return Config{
		MaxItems:       1000,
		MaxIdentifiers: 50,
		MaxDepth:       5,
	}
}

// identifierFields is the preference order for human-readable item
// identifiers. The first declared property with a non-empty string value
// wins; items with none fall back to their type name.
var identifierFields = [...]string{"Name", "Label", "Title", "Key", "Id", "Description"}

// Inspector reads stored objects into Reports. It never returns an error:
// load failures become {Found:false, Error:reason} and per-member read
// failures become inline entries, so callers always get a well-formed view.
type Inspector struct {
	catalog *catalog.Catalog
	factory *object.Factory
	config  Config
	logger  *zap.Logger
}

// New creates an Inspector with the default bounds.
func New(cat *catalog.Catalog, factory *object.Factory, logger *zap.Logger) *Inspector {
	return NewWithConfig(cat, factory, DefaultConfig(), logger)
}

// NewWithConfig creates an Inspector with explicit bounds. Zero fields
// fall back to the defaults.
func NewWithConfig(cat *catalog.Catalog, factory *object.Factory, config Config, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.MaxItems <= 0 {
		config.MaxItems = defaults.MaxItems
	}
	if config.MaxIdentifiers <= 0 {
		config.MaxIdentifiers = defaults.MaxIdentifiers
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = defaults.MaxDepth
	}
	return &Inspector{
		catalog: cat,
		factory: factory,
		config:  config,
		logger:  logger,
	}
}

// Inspect loads one object and reads it according to opts. The zero
// Options value selects the full view.
func (i *Inspector) Inspect(ctx context.Context, typeName, name string, opts Options) *Report {
	report := &Report{Type: typeName, Name: name}

	if _, err := i.catalog.GetType(ctx, typeName); err != nil {
		if errors.Is(err, catalog.ErrTypeNotFound) {
			report.Error = fmt.Sprintf("Unknown object type: %s", typeName)
		} else {
			report.Error = err.Error()
		}
		return report
	}

	inst, err := i.factory.GetExisting(ctx, typeName, name)
	if err != nil {
		if errors.Is(err, object.ErrObjectNotFound) {
			report.Error = fmt.Sprintf("Object not found: %s/%s", typeName, name)
		} else {
			report.Error = err.Error()
		}
		return report
	}

	report.Found = true
	report.Name = inst.Name()
	desc := inst.Descriptor()

	trav := newTraversal(i.config.MaxDepth)
	if !trav.enter(inst.UID()) {
		report.Truncated = true
		return report
	}
	defer trav.leave(inst.UID())

	switch opts.Mode {
	case ModeSummary:
		report.PropertiesCount = len(desc.Properties)
		report.Collections = make(map[string]*CollectionView, len(desc.Collections))
		for _, col := range desc.Collections {
			view := i.collectionView(inst, col, ModeSummary, trav)
			report.Collections[col.Name] = view
			report.CollectionsTotal += view.Count
		}

	case ModeProperties:
		report.Properties = i.propertyViews(ctx, inst, i.details(ctx, typeName))
		report.PropertiesCount = len(report.Properties)

	case ModeCollection:
		report.Collections = make(map[string]*CollectionView, 1)
		col, ok := desc.Collection(opts.Collection)
		if !ok {
			report.Collections[opts.Collection] = &CollectionView{
				Error: fmt.Sprintf("unknown collection: %s", opts.Collection),
			}
			return report
		}
		view := i.collectionView(inst, *col, ModeCollection, trav)
		report.Collections[col.Name] = view
		report.CollectionsTotal = view.Count

	default:
		report.Properties = i.propertyViews(ctx, inst, i.details(ctx, typeName))
		report.PropertiesCount = len(report.Properties)
		report.Collections = make(map[string]*CollectionView, len(desc.Collections))
		for _, col := range desc.Collections {
			view := i.collectionView(inst, col, ModeFull, trav)
			report.Collections[col.Name] = view
			report.CollectionsTotal += view.Count
			if view.Capped {
				report.Truncated = true
			}
		}
	}

	return report
}

// details fetches the batched label/description set for a type. Details
// are cosmetic, so a failed lookup degrades to declaration-only views
// instead of failing the inspection.
func (i *Inspector) details(ctx context.Context, typeName string) map[string]schema.PropertyDetail {
	details, err := i.catalog.PropertyDetails(ctx, typeName)
	if err != nil {
		i.logger.Warn("property details unavailable",
			zap.String("type", typeName),
			zap.Error(err))
		return nil
	}
	return details
}

func (i *Inspector) propertyViews(ctx context.Context, inst *object.Instance, details map[string]schema.PropertyDetail) []PropertyView {
	desc := inst.Descriptor()
	views := make([]PropertyView, 0, len(desc.Properties))
	for _, prop := range desc.Properties {
		view := PropertyView{
			Name:        prop.Name,
			Label:       prop.Label,
			Description: prop.Description,
			Kind:        prop.Kind.String(),
			Nullable:    prop.Nullable,
			ReadOnly:    prop.ReadOnly,
		}
		if detail, ok := details[prop.Name]; ok {
			if detail.Label != "" {
				view.Label = detail.Label
			}
			if detail.Description != "" {
				view.Description = detail.Description
			}
		}

		value, err := inst.GetProperty(prop.Name)
		if err != nil {
			view.Error = err.Error()
		} else {
			view.Value = value
		}

		view.EnumValues = i.enumCandidates(ctx, desc.Name, prop)
		views = append(views, view)
	}
	return views
}

// collectionView reads one collection under the given mode. ModeSummary
// counts without touching items, ModeCollection enumerates everything,
// and ModeFull applies both caps.
func (i *Inspector) collectionView(inst *object.Instance, col schema.CollectionDescriptor, mode Mode, trav *traversal) *CollectionView {
	view := &CollectionView{ElementType: col.ElementType}

	items, err := inst.Collection(col.Name)
	if err != nil {
		view.Error = err.Error()
		return view
	}

	switch mode {
	case ModeSummary:
		view.Count = len(items)

	case ModeCollection:
		view.Count = len(items)
		view.Items = make([]string, 0, len(items))
		for _, item := range items {
			view.Items = append(view.Items, i.identify(item, trav))
		}

	default:
		count := len(items)
		if count > i.config.MaxItems {
			count = i.config.MaxItems
			view.Capped = true
		}
		view.Count = count

		limit := count
		if limit > i.config.MaxIdentifiers {
			limit = i.config.MaxIdentifiers
			view.Capped = true
		}
		view.Items = make([]string, 0, limit+1)
		for _, item := range items[:limit] {
			view.Items = append(view.Items, i.identify(item, trav))
		}
		if view.Capped {
			view.Items = append(view.Items, TruncationMarker)
		}
	}

	return view
}

// identify picks a human-readable identifier for one collection item.
// Items past the depth budget, or already on the descent path, yield the
// truncation marker instead of being read.
func (i *Inspector) identify(item *object.Instance, trav *traversal) string {
	if item == nil {
		return "(nil)"
	}
	if !trav.enter(item.UID()) {
		return TruncationMarker
	}
	defer trav.leave(item.UID())

	desc := item.Descriptor()
	for _, field := range identifierFields {
		if _, ok := desc.Property(field); !ok {
			continue
		}
		value, err := item.GetProperty(field)
		if err != nil || value == nil {
			continue
		}
		if s, ok := value.(string); ok && s != "" {
			return s
		}
	}
	return item.Type()
}

// enumCandidates resolves the candidate list for an enum-like property.
// Inline candidates win outright. Otherwise, for properties declared as
// enums or typed with an Enum-suffixed data type, the backend enum
// registry is probed under a few conventional names.
func (i *Inspector) enumCandidates(ctx context.Context, typeName string, prop schema.PropertyDescriptor) []string {
	if len(prop.EnumValues) > 0 {
		return append([]string(nil), prop.EnumValues...)
	}
	if prop.Kind != schema.KindEnum && !strings.HasSuffix(prop.DataType, "Enum") {
		return nil
	}

	for _, name := range enumNameCandidates(typeName, prop) {
		values, err := i.catalog.EnumCandidates(ctx, name)
		if err == nil && len(values) > 0 {
			return values
		}
		if err != nil && !errors.Is(err, catalog.ErrEnumNotFound) {
			i.logger.Warn("enum discovery failed",
				zap.String("type", typeName),
				zap.String("property", prop.Name),
				zap.String("candidate", name),
				zap.Error(err))
			return nil
		}
	}
	return nil
}

// enumNameCandidates lists registry names to probe, most specific first:
// the declared data type, the data type with the conventional "Enum"
// suffix stripped, then variants built from the owning type and property
// names.
func enumNameCandidates(typeName string, prop schema.PropertyDescriptor) []string {
	raw := []string{
		prop.DataType,
		strings.TrimSuffix(prop.DataType, "Enum"),
		typeName + prop.Name,
		prop.Name,
		prop.Name + "Enum",
	}

	seen := make(map[string]bool, len(raw))
	candidates := make([]string, 0, len(raw))
	for _, name := range raw {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		candidates = append(candidates, name)
	}
	return candidates
}
