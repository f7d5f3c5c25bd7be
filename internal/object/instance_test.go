package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaforge-dev/metaforge/internal/provider/providertest"
	"github.com/metaforge-dev/metaforge/internal/schema"
)

func descriptorFor(t *testing.T, name string) *schema.TypeDescriptor {
	t.Helper()
	for _, desc := range providertest.Seed().Types {
		if desc.Name == name {
			return desc
		}
	}
	t.Fatalf("seed has no type %s", name)
	return nil
}

func TestInstance_Properties(t *testing.T) {
	form := newInstance(descriptorFor(t, "Form"), "contact")

	// Unset declared property reads as nil.
	value, err := form.GetProperty("Title")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, form.SetProperty("Title", "Contact us"))
	value, err = form.GetProperty("Title")
	require.NoError(t, err)
	assert.Equal(t, "Contact us", value)

	_, err = form.GetProperty("Nope")
	assert.ErrorIs(t, err, ErrUnknownProperty)

	err = form.SetProperty("Nope", "x")
	assert.ErrorIs(t, err, ErrUnknownProperty)
}

func TestInstance_ReadOnlyProperty(t *testing.T) {
	report := newInstance(descriptorFor(t, "Report"), "weekly")

	err := report.SetProperty("CreatedBy", "alice")
	assert.ErrorIs(t, err, ErrReadOnlyProperty)

	// Construction-time initialization may write read-only properties.
	require.NoError(t, report.setInitial("CreatedBy", "alice"))
	value, err := report.GetProperty("CreatedBy")
	require.NoError(t, err)
	assert.Equal(t, "alice", value)
}

func TestInstance_EnumProperty(t *testing.T) {
	field := newInstance(descriptorFor(t, "Field"), "email")

	require.NoError(t, field.SetProperty("Kind", "Text"))

	// Candidate matching ignores case.
	require.NoError(t, field.SetProperty("Kind", "number"))

	err := field.SetProperty("Kind", "Banana")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Banana")

	err = field.SetProperty("Kind", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a string")
}

func TestInstance_Collections(t *testing.T) {
	form := newInstance(descriptorFor(t, "Form"), "contact")
	field := newInstance(descriptorFor(t, "Field"), "email")

	require.NoError(t, form.AppendToCollection("Items", field))

	items, err := form.Collection("Items")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "email", items[0].Name())

	_, err = form.Collection("Nope")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestInstance_CollectionElementType(t *testing.T) {
	form := newInstance(descriptorFor(t, "Form"), "contact")
	section := newInstance(descriptorFor(t, "Section"), "basics")

	// Items holds Field elements; a Section does not belong there.
	err := form.AppendToCollection("Items", section)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Field")

	require.NoError(t, form.AppendToCollection("Sections", section))
}

func TestInstance_AddChildUsesChildCollection(t *testing.T) {
	form := newInstance(descriptorFor(t, "Form"), "contact")
	field := newInstance(descriptorFor(t, "Field"), "email")

	require.NoError(t, form.AddChild(field))

	items, err := form.Collection("Items")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// A type without collections cannot take children.
	leaf := newInstance(descriptorFor(t, "Field"), "name")
	err = leaf.AddChild(newInstance(descriptorFor(t, "Field"), "inner"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no child collection")
}

func TestInstance_CycleRejected(t *testing.T) {
	node := &schema.TypeDescriptor{
		Name:          "Node",
		Constructible: true,
		Collections: []schema.CollectionDescriptor{
			{Name: "Children", ElementType: "Node"},
		},
	}

	a := newInstance(node, "a")
	b := newInstance(node, "b")

	require.NoError(t, a.AppendToCollection("Children", b))

	// b -> a would close the loop a -> b -> a.
	err := b.AppendToCollection("Children", a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")

	// Self-edges are the smallest cycle.
	err = a.AppendToCollection("Children", a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestInstance_Record(t *testing.T) {
	form := newInstance(descriptorFor(t, "Form"), "contact")
	require.NoError(t, form.SetProperty("Title", "Contact us"))

	field := newInstance(descriptorFor(t, "Field"), "email")
	require.NoError(t, field.SetProperty("Kind", "Text"))
	require.NoError(t, form.AddChild(field))

	rec := form.Record()
	assert.Equal(t, "Form", rec.Type)
	assert.Equal(t, "contact", rec.Name)
	assert.Equal(t, "Contact us", rec.Properties["Title"])
	require.Len(t, rec.Collections["Items"], 1)
	assert.Equal(t, "email", rec.Collections["Items"][0].Name)
	assert.Equal(t, "Text", rec.Collections["Items"][0].Properties["Kind"])
}

func TestInstance_Validate(t *testing.T) {
	field := newInstance(descriptorFor(t, "Field"), "email")
	require.NoError(t, field.setInitial("Kind", "Text"))
	assert.NoError(t, field.Validate())

	require.NoError(t, field.setInitial("Kind", "Banana"))
	assert.Error(t, field.Validate())

	// Validation recurses into collections.
	form := newInstance(descriptorFor(t, "Form"), "contact")
	bad := newInstance(descriptorFor(t, "Field"), "age")
	require.NoError(t, bad.setInitial("Kind", "Banana"))
	require.NoError(t, form.AddChild(bad))
	assert.Error(t, form.Validate())
}
