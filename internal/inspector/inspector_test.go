package inspector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/cache"
	"github.com/metaforge-dev/metaforge/internal/catalog"
	"github.com/metaforge-dev/metaforge/internal/object"
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/provider/providertest"
)

func newTestInspector(t *testing.T, cfgs ...Config) (*Inspector, *object.Factory, *provider.MemoryProvider) {
	t.Helper()

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })

	p := providertest.New()
	cat := catalog.New(p, mc, zap.NewNop())
	f := object.NewFactory(cat, p, zap.NewNop())

	cfg := DefaultConfig()
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	return NewWithConfig(cat, f, cfg, zap.NewNop()), f, p
}

// buildForm stores a Form with the given number of named fields and
// labeled sections.
func buildForm(t *testing.T, f *object.Factory, name string, fields, sections int) {
	t.Helper()
	ctx := context.Background()

	result, err := f.Create(ctx, "Form", map[string]interface{}{
		"name":  name,
		"title": "Contact us",
	})
	require.NoError(t, err)
	form := result.Instance

	for i := 0; i < fields; i++ {
		fr, err := f.Create(ctx, "Field", map[string]interface{}{"name": fmt.Sprintf("f%04d", i)})
		require.NoError(t, err)
		require.NoError(t, fr.Instance.SetProperty("Name", fmt.Sprintf("field-%04d", i)))
		require.NoError(t, form.AppendToCollection("Items", fr.Instance))
	}
	for i := 0; i < sections; i++ {
		sr, err := f.Create(ctx, "Section", map[string]interface{}{"name": fmt.Sprintf("s%d", i)})
		require.NoError(t, err)
		require.NoError(t, sr.Instance.SetProperty("Label", fmt.Sprintf("Section %d", i)))
		require.NoError(t, form.AppendToCollection("Sections", sr.Instance))
	}

	require.NoError(t, f.Save(ctx, form))
}

func propertyByName(t *testing.T, views []PropertyView, name string) PropertyView {
	t.Helper()
	for _, v := range views {
		if v.Name == name {
			return v
		}
	}
	t.Fatalf("property %s not in view", name)
	return PropertyView{}
}

func TestInspect_Full(t *testing.T) {
	ins, f, _ := newTestInspector(t)
	buildForm(t, f, "contact", 3, 1)

	report := ins.Inspect(context.Background(), "Form", "contact", Options{})
	require.True(t, report.Found)
	assert.Empty(t, report.Error)
	assert.Equal(t, "Form", report.Type)
	assert.Equal(t, "contact", report.Name)
	assert.False(t, report.Truncated)

	assert.Equal(t, 2, report.PropertiesCount)
	title := propertyByName(t, report.Properties, "Title")
	assert.Equal(t, "Contact us", title.Value)
	assert.Equal(t, "Form title", title.Label)
	assert.Equal(t, "Shown in the designer header", title.Description)
	assert.Equal(t, "scalar", title.Kind)

	// Caption has no stored value and no registered detail.
	caption := propertyByName(t, report.Properties, "Caption")
	assert.Nil(t, caption.Value)
	assert.Empty(t, caption.Label)
	assert.True(t, caption.Nullable)

	require.Contains(t, report.Collections, "Items")
	items := report.Collections["Items"]
	assert.Equal(t, "Field", items.ElementType)
	assert.Equal(t, 3, items.Count)
	assert.False(t, items.Capped)
	assert.Equal(t, []string{"field-0000", "field-0001", "field-0002"}, items.Items)

	require.Contains(t, report.Collections, "Sections")
	sections := report.Collections["Sections"]
	assert.Equal(t, 1, sections.Count)
	assert.Equal(t, []string{"Section 0"}, sections.Items)

	assert.Equal(t, 4, report.CollectionsTotal)
}

func TestInspect_InlineEnum(t *testing.T) {
	ins, f, _ := newTestInspector(t)
	ctx := context.Background()

	fr, err := f.Create(ctx, "Field", map[string]interface{}{"name": "email"})
	require.NoError(t, err)
	require.NoError(t, fr.Instance.SetProperty("Kind", "Text"))
	require.NoError(t, f.Save(ctx, fr.Instance))

	report := ins.Inspect(ctx, "Field", "email", Options{Mode: ModeProperties})
	require.True(t, report.Found)

	kind := propertyByName(t, report.Properties, "Kind")
	assert.Equal(t, "enum", kind.Kind)
	assert.Equal(t, "Text", kind.Value)
	assert.Equal(t, []string{"Text", "Number", "Date"}, kind.EnumValues)
	assert.Equal(t, "Field kind", kind.Label)
	assert.Equal(t, "Input control family", kind.Description)
}

func TestInspect_EnumDiscoveryByName(t *testing.T) {
	ins, f, _ := newTestInspector(t)
	ctx := context.Background()

	// Report.Status declares the data type "ReportStatusEnum" with no inline
	// candidates; the registry holds the set under "ReportStatus".
	rr, err := f.Create(ctx, "Report", map[string]interface{}{"name": "weekly"})
	require.NoError(t, err)
	require.NoError(t, f.Save(ctx, rr.Instance))

	report := ins.Inspect(ctx, "Report", "weekly", Options{Mode: ModeProperties})
	require.True(t, report.Found)

	status := propertyByName(t, report.Properties, "Status")
	assert.Equal(t, "Draft", status.Value)
	assert.Equal(t, []string{"Draft", "Review", "Final"}, status.EnumValues)

	createdBy := propertyByName(t, report.Properties, "CreatedBy")
	assert.True(t, createdBy.ReadOnly)
	assert.Nil(t, createdBy.Value)
	assert.Nil(t, createdBy.EnumValues)
}

func TestInspect_UnknownType(t *testing.T) {
	ins, _, _ := newTestInspector(t)

	report := ins.Inspect(context.Background(), "Widget", "any", Options{})
	assert.False(t, report.Found)
	assert.Equal(t, "Unknown object type: Widget", report.Error)
	assert.Empty(t, report.Properties)
	assert.Empty(t, report.Collections)
}

func TestInspect_ObjectMissing(t *testing.T) {
	ins, _, _ := newTestInspector(t)

	report := ins.Inspect(context.Background(), "Form", "ghost", Options{})
	assert.False(t, report.Found)
	assert.Equal(t, "Object not found: Form/ghost", report.Error)
}

func TestInspect_ProviderUnavailable(t *testing.T) {
	ins, _, p := newTestInspector(t)
	p.SetOffline(true)

	report := ins.Inspect(context.Background(), "Form", "contact", Options{})
	assert.False(t, report.Found)
	assert.Contains(t, report.Error, "unavailable")
}

func TestInspect_SummaryMatchesDetailedCounts(t *testing.T) {
	ins, f, _ := newTestInspector(t)
	buildForm(t, f, "contact", 7, 2)
	ctx := context.Background()

	summary := ins.Inspect(ctx, "Form", "contact", Options{Mode: ModeSummary})
	require.True(t, summary.Found)
	assert.Empty(t, summary.Properties)
	for _, view := range summary.Collections {
		assert.Empty(t, view.Items)
	}

	detailed := ins.Inspect(ctx, "Form", "contact", Options{Mode: ModeProperties})
	assert.Equal(t, detailed.PropertiesCount, summary.PropertiesCount)

	total := 0
	for name := range summary.Collections {
		one := ins.Inspect(ctx, "Form", "contact", Options{Mode: ModeCollection, Collection: name})
		require.True(t, one.Found)
		view := one.Collections[name]
		assert.Equal(t, summary.Collections[name].Count, view.Count)
		assert.Len(t, view.Items, view.Count)
		total += view.Count
	}
	assert.Equal(t, summary.CollectionsTotal, total)
}

func TestInspect_EnumerationCap(t *testing.T) {
	ins, f, _ := newTestInspector(t)
	buildForm(t, f, "bulk", 1200, 0)
	ctx := context.Background()

	report := ins.Inspect(ctx, "Form", "bulk", Options{})
	require.True(t, report.Found)
	assert.True(t, report.Truncated)

	items := report.Collections["Items"]
	require.NotNil(t, items)
	assert.Equal(t, 1000, items.Count)
	assert.True(t, items.Capped)
	require.Len(t, items.Items, 51)
	assert.Equal(t, TruncationMarker, items.Items[50])
	assert.Equal(t, "field-0000", items.Items[0])
}

func TestInspect_SingleCollectionUncapped(t *testing.T) {
	ins, f, _ := newTestInspector(t)
	buildForm(t, f, "bulk", 1200, 0)
	ctx := context.Background()

	report := ins.Inspect(ctx, "Form", "bulk", Options{Mode: ModeCollection, Collection: "Items"})
	require.True(t, report.Found)
	assert.False(t, report.Truncated)

	items := report.Collections["Items"]
	require.NotNil(t, items)
	assert.Equal(t, 1200, items.Count)
	assert.False(t, items.Capped)
	require.Len(t, items.Items, 1200)
	assert.Equal(t, "field-1199", items.Items[1199])
}

func TestInspect_IdentifierCapIndependentOfCount(t *testing.T) {
	ins, f, _ := newTestInspector(t, Config{MaxItems: 10, MaxIdentifiers: 3})
	buildForm(t, f, "medium", 5, 0)

	report := ins.Inspect(context.Background(), "Form", "medium", Options{})
	items := report.Collections["Items"]
	require.NotNil(t, items)

	// Five entries fit the enumeration cap, but only three identifiers are
	// listed before the marker.
	assert.Equal(t, 5, items.Count)
	assert.True(t, items.Capped)
	assert.Equal(t, []string{"field-0000", "field-0001", "field-0002", TruncationMarker}, items.Items)
	assert.True(t, report.Truncated)
}

func TestInspect_DepthGuard(t *testing.T) {
	ins, f, _ := newTestInspector(t, Config{MaxDepth: 1})
	buildForm(t, f, "shallow", 2, 0)

	report := ins.Inspect(context.Background(), "Form", "shallow", Options{})
	require.True(t, report.Found)

	items := report.Collections["Items"]
	require.NotNil(t, items)
	assert.Equal(t, 2, items.Count)
	assert.Equal(t, []string{TruncationMarker, TruncationMarker}, items.Items)
}

func TestInspect_UnknownCollection(t *testing.T) {
	ins, f, _ := newTestInspector(t)
	buildForm(t, f, "contact", 1, 0)

	report := ins.Inspect(context.Background(), "Form", "contact", Options{Mode: ModeCollection, Collection: "Attachments"})
	require.True(t, report.Found)

	view := report.Collections["Attachments"]
	require.NotNil(t, view)
	assert.Equal(t, "unknown collection: Attachments", view.Error)
	assert.Zero(t, view.Count)
}

func TestInspect_IdentifierFallsBackToTypeName(t *testing.T) {
	ins, f, _ := newTestInspector(t)
	ctx := context.Background()

	result, err := f.Create(ctx, "Form", map[string]interface{}{"name": "plain"})
	require.NoError(t, err)
	fr, err := f.Create(ctx, "Field", map[string]interface{}{"name": "anon"})
	require.NoError(t, err)
	// No Name property value set on the field.
	require.NoError(t, result.Instance.AppendToCollection("Items", fr.Instance))
	require.NoError(t, f.Save(ctx, result.Instance))

	report := ins.Inspect(ctx, "Form", "plain", Options{})
	items := report.Collections["Items"]
	require.NotNil(t, items)
	assert.Equal(t, []string{"Field"}, items.Items)
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
	}{
		{"", ModeFull},
		{"full", ModeFull},
		{"summary", ModeSummary},
		{"SUMMARY", ModeSummary},
		{"properties", ModeProperties},
		{"properties-only", ModeProperties},
		{"collection", ModeCollection},
	}
	for _, tc := range cases {
		mode, err := ParseMode(tc.in)
		require.NoError(t, err, "mode %q", tc.in)
		assert.Equal(t, tc.want, mode, "mode %q", tc.in)
	}

	_, err := ParseMode("everything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown inspect mode")
}

func TestTraversal(t *testing.T) {
	trav := newTraversal(2)

	require.True(t, trav.enter("a"))
	assert.False(t, trav.enter("a"), "revisiting a path entry must be refused")

	require.True(t, trav.enter("b"))
	assert.False(t, trav.enter("c"), "depth budget is spent")

	trav.leave("b")
	require.True(t, trav.enter("c"), "leaving frees the budget")
	trav.leave("c")
	trav.leave("a")

	require.True(t, trav.enter("a"), "a fresh descent may revisit")
}
