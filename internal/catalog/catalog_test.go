package catalog

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/cache"
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/provider/providertest"
)

func newTestCatalog(t *testing.T) (*Catalog, *provider.MemoryProvider) {
	t.Helper()

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })

	p := providertest.New()
	return New(p, mc, zap.NewNop()), p
}

func TestListTypes_FiltersInternalAndNonConstructible(t *testing.T) {
	c, _ := newTestCatalog(t)

	names, err := c.ListTypes(context.Background())
	if err != nil {
		t.Fatalf("ListTypes failed: %v", err)
	}

	want := []string{"Field", "Form", "Report", "Section"}
	if len(names) != len(want) {
		t.Fatalf("ListTypes count: got %d (%v), want %d", len(names), names, len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("ListTypes[%d]: got %s, want %s", i, names[i], name)
		}
	}
}

func TestListTypes_ServedFromCache(t *testing.T) {
	c, p := newTestCatalog(t)
	ctx := context.Background()

	if _, err := c.ListTypes(ctx); err != nil {
		t.Fatalf("ListTypes failed: %v", err)
	}

	// With the provider gone, the cached listing still answers.
	p.SetOffline(true)

	names, err := c.ListTypes(ctx)
	if err != nil {
		t.Fatalf("cached ListTypes failed: %v", err)
	}
	if len(names) != 4 {
		t.Errorf("cached ListTypes count: got %d, want 4", len(names))
	}
}

func TestListTypes_ProviderUnavailable(t *testing.T) {
	c, p := newTestCatalog(t)
	p.SetOffline(true)

	_, err := c.ListTypes(context.Background())
	if err == nil {
		t.Fatal("expected error from offline provider")
	}
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestGetType(t *testing.T) {
	c, _ := newTestCatalog(t)

	desc, err := c.GetType(context.Background(), "Form")
	if err != nil {
		t.Fatalf("GetType failed: %v", err)
	}

	if desc.Name != "Form" {
		t.Errorf("descriptor name: got %s, want Form", desc.Name)
	}
	if desc.ChildCollectionName() != "Items" {
		t.Errorf("child collection: got %s, want Items", desc.ChildCollectionName())
	}
}

func TestGetType_NotFound(t *testing.T) {
	c, _ := newTestCatalog(t)

	_, err := c.GetType(context.Background(), "Gadget")
	if !errors.Is(err, ErrTypeNotFound) {
		t.Errorf("expected ErrTypeNotFound, got %v", err)
	}
}

func TestGetType_CopyIsolation(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	first, err := c.GetType(ctx, "Form")
	if err != nil {
		t.Fatalf("GetType failed: %v", err)
	}
	first.Properties[0].Name = "Mutated"

	second, err := c.GetType(ctx, "Form")
	if err != nil {
		t.Fatalf("GetType failed: %v", err)
	}
	if second.Properties[0].Name != "Title" {
		t.Errorf("mutation leaked into catalog: got %s", second.Properties[0].Name)
	}
}

func TestGetType_ServedFromCache(t *testing.T) {
	c, p := newTestCatalog(t)
	ctx := context.Background()

	if _, err := c.GetType(ctx, "Field"); err != nil {
		t.Fatalf("GetType failed: %v", err)
	}

	p.SetOffline(true)

	desc, err := c.GetType(ctx, "Field")
	if err != nil {
		t.Fatalf("cached GetType failed: %v", err)
	}
	if desc.Name != "Field" {
		t.Errorf("descriptor name: got %s, want Field", desc.Name)
	}
}

func TestPropertyDetails_BatchedPerType(t *testing.T) {
	c, p := newTestCatalog(t)
	ctx := context.Background()

	details, err := c.PropertyDetails(ctx, "Field")
	if err != nil {
		t.Fatalf("PropertyDetails failed: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("details count: got %d, want 2", len(details))
	}

	// The whole set was fetched up front; individual lookups must not go
	// back to the provider.
	p.SetOffline(true)

	d, ok, err := c.PropertyDetail(ctx, "Field", "Kind")
	if err != nil {
		t.Fatalf("PropertyDetail failed: %v", err)
	}
	if !ok {
		t.Fatal("expected detail for Field.Kind")
	}
	if d.Label != "Field kind" {
		t.Errorf("detail label: got %s, want Field kind", d.Label)
	}

	// Absent detail on a cached type is not an error.
	_, ok, err = c.PropertyDetail(ctx, "Field", "Placeholder")
	if err != nil {
		t.Fatalf("PropertyDetail failed: %v", err)
	}
	if ok {
		t.Error("expected no detail for Field.Placeholder")
	}
}

func TestPropertyDetails_EmptyForTypeWithoutDetails(t *testing.T) {
	c, _ := newTestCatalog(t)

	details, err := c.PropertyDetails(context.Background(), "Section")
	if err != nil {
		t.Fatalf("PropertyDetails failed: %v", err)
	}
	if len(details) != 0 {
		t.Errorf("details count: got %d, want 0", len(details))
	}
}

func TestPropertyDetails_UnknownType(t *testing.T) {
	c, _ := newTestCatalog(t)

	_, err := c.PropertyDetails(context.Background(), "Gadget")
	if !errors.Is(err, ErrTypeNotFound) {
		t.Errorf("expected ErrTypeNotFound, got %v", err)
	}
}

func TestEnumCandidates(t *testing.T) {
	c, _ := newTestCatalog(t)

	values, err := c.EnumCandidates(context.Background(), "ReportStatus")
	if err != nil {
		t.Fatalf("EnumCandidates failed: %v", err)
	}

	want := []string{"Draft", "Review", "Final"}
	if len(values) != len(want) {
		t.Fatalf("candidates count: got %d, want %d", len(values), len(want))
	}
	for i, v := range want {
		if values[i] != v {
			t.Errorf("candidate[%d]: got %s, want %s", i, values[i], v)
		}
	}
}

func TestEnumCandidates_NotFound(t *testing.T) {
	c, _ := newTestCatalog(t)

	_, err := c.EnumCandidates(context.Background(), "NoSuchEnum")
	if !errors.Is(err, ErrEnumNotFound) {
		t.Errorf("expected ErrEnumNotFound, got %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	c, p := newTestCatalog(t)
	ctx := context.Background()

	if _, err := c.ListTypes(ctx); err != nil {
		t.Fatalf("ListTypes failed: %v", err)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	// The cache is empty again, so the offline provider is consulted and
	// its failure surfaces.
	p.SetOffline(true)
	if _, err := c.ListTypes(ctx); err == nil {
		t.Error("expected error after invalidation with offline provider")
	}
}
