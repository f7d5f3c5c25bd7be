// Package providertest supplies a canonical seeded MemoryProvider used by
// tests across the engine packages: a small form-designer schema with
// constructible, internal, and enum-bearing kinds.
package providertest

import (
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/schema"
)

// Seed returns the canonical test seed.
func Seed() *provider.Seed {
	return &provider.Seed{
		Types: []*schema.TypeDescriptor{
			{
				Name:          "Form",
				Namespace:     "app",
				Constructible: true,
				Properties: []schema.PropertyDescriptor{
					{Name: "Title", Kind: schema.KindScalar, DataType: "string"},
					{Name: "Caption", Kind: schema.KindScalar, DataType: "string", Nullable: true},
				},
				Collections: []schema.CollectionDescriptor{
					{Name: "Items", ElementType: "Field"},
					{Name: "Sections", ElementType: "Section"},
				},
				Parameters: []schema.ParameterDescriptor{
					{Name: "name", Required: true, Format: `^[A-Za-z][A-Za-z0-9_]*$`},
					{Name: "title", Required: false, Default: "Untitled form"},
				},
				ChildCollection: "Items",
			},
			{
				Name:          "Section",
				Namespace:     "app",
				Constructible: true,
				Properties: []schema.PropertyDescriptor{
					{Name: "Label", Kind: schema.KindScalar, DataType: "string"},
				},
				Collections: []schema.CollectionDescriptor{
					{Name: "Items", ElementType: "Field"},
				},
				Parameters: []schema.ParameterDescriptor{
					{Name: "name", Required: true},
				},
				ChildCollection: "Items",
			},
			{
				Name:          "Field",
				Namespace:     "app",
				Constructible: true,
				Properties: []schema.PropertyDescriptor{
					{Name: "Name", Kind: schema.KindScalar, DataType: "string"},
					{Name: "Kind", Kind: schema.KindEnum, DataType: "FieldKind", EnumValues: []string{"Text", "Number", "Date"}},
					{Name: "Required", Kind: schema.KindScalar, DataType: "bool"},
					{Name: "Placeholder", Kind: schema.KindScalar, DataType: "string", Nullable: true},
				},
				Parameters: []schema.ParameterDescriptor{
					{Name: "name", Required: true},
				},
			},
			{
				Name:          "Report",
				Namespace:     "app",
				Constructible: true,
				Properties: []schema.PropertyDescriptor{
					{Name: "Name", Kind: schema.KindScalar, DataType: "string"},
					// Status has no inline candidates; the inspector discovers
					// them through the backend enum registry by name.
					{Name: "Status", Kind: schema.KindScalar, DataType: "ReportStatusEnum"},
					{Name: "CreatedBy", Kind: schema.KindScalar, DataType: "string", ReadOnly: true},
				},
				Collections: []schema.CollectionDescriptor{
					{Name: "Rows", ElementType: "Field"},
				},
				Parameters: []schema.ParameterDescriptor{
					{Name: "name", Required: true},
					{Name: "status", Required: false, Default: "Draft"},
				},
				ChildCollection: "Rows",
			},
			// Internal kinds the catalog must filter out of ListTypes.
			{Name: "ElementBase", Namespace: "app", Constructible: false},
			{Name: "FieldCollection", Namespace: "app", Constructible: true},
			{Name: "LayoutHelper", Namespace: "app", Constructible: true},
			// Known but not constructible.
			{Name: "Workspace", Namespace: "app", Constructible: false},
		},
		Details: map[string][]schema.PropertyDetail{
			"Form": {
				{Property: "Title", Label: "Form title", Description: "Shown in the designer header"},
			},
			"Field": {
				{Property: "Name", Label: "Field name"},
				{Property: "Kind", Label: "Field kind", Description: "Input control family"},
			},
		},
		Enums: map[string][]string{
			"FieldKind":    {"Text", "Number", "Date"},
			"ReportStatus": {"Draft", "Review", "Final"},
		},
	}
}

// New returns a MemoryProvider populated with the canonical seed.
func New() *provider.MemoryProvider {
	return provider.NewMemoryFromSeed(Seed())
}
