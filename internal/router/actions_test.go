package router

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/auth"
	"github.com/metaforge-dev/metaforge/internal/cache"
	"github.com/metaforge-dev/metaforge/internal/catalog"
	"github.com/metaforge-dev/metaforge/internal/inspector"
	"github.com/metaforge-dev/metaforge/internal/object"
	"github.com/metaforge-dev/metaforge/internal/pattern"
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/provider/providertest"
	"github.com/metaforge-dev/metaforge/internal/schema"
	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

const contactFormPattern = `{
	"name": "contact_form",
	"version": "1.0",
	"description": "Two-field contact form",
	"root": {
		"type": "Container",
		"children": [
			{"type": "Field", "requireOne": true, "restrictions": [{"property": "Kind", "value": "Text"}]},
			{"type": "Field", "restrictions": [{"property": "Kind", "value": "Text"}]}
		]
	},
	"rules": [
		{"type": "Field", "min": 2, "max": 3}
	]
}`

func newTestRouter(t *testing.T) (*Router, *provider.MemoryProvider) {
	t.Helper()

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })

	p := providertest.New()
	cat := catalog.New(p, mc, zap.NewNop())
	factory := object.NewFactory(cat, p, zap.NewNop())
	ins := inspector.New(cat, factory, zap.NewNop())

	dir := t.TempDir()
	path := filepath.Join(dir, "contact_form.pattern.json")
	require.NoError(t, os.WriteFile(path, []byte(contactFormPattern), 0o644))

	lib := pattern.NewLibrary(dir, zap.NewNop())
	require.NoError(t, lib.Load())
	builder := pattern.NewBuilder(factory, zap.NewNop())

	r := New(zap.NewNop())
	RegisterBuiltins(r, cat, factory, ins, lib, builder)
	return r, p
}

func call(t *testing.T, r *Router, req *protocol.Request) *protocol.Response {
	t.Helper()
	if req.ID == "" {
		req.ID = "test"
	}
	return r.Dispatch(context.Background(), req)
}

func TestPingAction(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{Action: "ping"})
	require.True(t, resp.Success)
	assert.Equal(t, map[string]any{"pong": true}, resp.Data)
}

func TestListTypesAction(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{Action: "listTypes"})
	require.True(t, resp.Success, resp.Error)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"Field", "Form", "Report", "Section"}, data["types"])
}

func TestGetTypeInfoAction(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{Action: "getTypeInfo", ObjectType: "Form"})
	require.True(t, resp.Success, resp.Error)

	desc, ok := resp.Data.(*schema.TypeDescriptor)
	require.True(t, ok)
	assert.Equal(t, "Form", desc.Name)
	assert.True(t, desc.Constructible)
}

func TestGetTypeInfoUnknownType(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{Action: "getTypeInfo", ObjectType: "Widget"})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "not found: "), resp.Error)
	assert.Contains(t, resp.Error, "Widget")
}

func TestGetTypeInfoMissingObjectType(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{Action: "getTypeInfo"})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "validation: "), resp.Error)
}

func TestGetPropertyDetailsAction(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{Action: "getPropertyDetails", ObjectType: "Form"})
	require.True(t, resp.Success, resp.Error)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	details, ok := data["details"].(map[string]schema.PropertyDetail)
	require.True(t, ok)
	assert.Equal(t, "Form title", details["Title"].Label)
}

func TestCreateObjectAction(t *testing.T) {
	r, p := newTestRouter(t)

	resp := call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})
	require.True(t, resp.Success, resp.Error)

	data, ok := resp.Data.(createData)
	require.True(t, ok)
	assert.Equal(t, "contact", data.Name)
	assert.Equal(t, "Form", data.Type)
	assert.NotEmpty(t, data.Artifacts)

	rec, err := p.LoadInstance(context.Background(), "Form", "contact")
	require.NoError(t, err)
	assert.Equal(t, "contact", rec.Name)
}

func TestCreateObjectValidationFailure(t *testing.T) {
	r, p := newTestRouter(t)

	resp := call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "9starts_with_digit"},
	})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "validation: "), resp.Error)

	names, err := p.ListInstances(context.Background(), "Form")
	require.NoError(t, err)
	assert.Empty(t, names, "failed create must not persist anything")
}

func TestGetObjectAction(t *testing.T) {
	r, _ := newTestRouter(t)

	call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})

	resp := call(t, r, &protocol.Request{
		Action:     "getObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})
	require.True(t, resp.Success, resp.Error)

	rec, ok := resp.Data.(*provider.InstanceRecord)
	require.True(t, ok)
	assert.Equal(t, "Form", rec.Type)
	assert.Equal(t, "contact", rec.Name)
}

func TestGetObjectMissing(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{
		Action:     "getObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "ghost"},
	})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "not found: "), resp.Error)
	assert.Contains(t, resp.Error, "Form/ghost")
}

func TestSaveObjectAction(t *testing.T) {
	r, p := newTestRouter(t)

	call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})

	resp := call(t, r, &protocol.Request{
		Action:     "saveObject",
		ObjectType: "Form",
		Parameters: map[string]any{
			"name":       "contact",
			"properties": map[string]any{"Title": "Contact us"},
		},
	})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, map[string]any{"saved": true}, resp.Data)

	rec, err := p.LoadInstance(context.Background(), "Form", "contact")
	require.NoError(t, err)
	assert.Equal(t, "Contact us", rec.Properties["Title"])
}

func TestSaveObjectRejectsBadProperties(t *testing.T) {
	r, p := newTestRouter(t)

	call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact", "title": "Original"},
	})

	resp := call(t, r, &protocol.Request{
		Action:     "saveObject",
		ObjectType: "Form",
		Parameters: map[string]any{
			"name": "contact",
			"properties": map[string]any{
				"Title": "Changed",
				"Bogus": "nope",
			},
		},
	})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "validation: "), resp.Error)

	rec, err := p.LoadInstance(context.Background(), "Form", "contact")
	require.NoError(t, err)
	assert.Equal(t, "Original", rec.Properties["Title"], "rejected save must not persist")
}

func TestDeleteObjectAction(t *testing.T) {
	r, _ := newTestRouter(t)

	call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})

	resp := call(t, r, &protocol.Request{
		Action:     "deleteObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, map[string]any{"deleted": true}, resp.Data)

	resp = call(t, r, &protocol.Request{
		Action:     "deleteObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "not found: "), resp.Error)
}

func TestDeleteObjectCascadeNotImplemented(t *testing.T) {
	r, _ := newTestRouter(t)

	call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})

	resp := call(t, r, &protocol.Request{
		Action:     "deleteObjectCascade",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "not implemented: "), resp.Error)
}

func TestInspectObjectAction(t *testing.T) {
	r, _ := newTestRouter(t)

	call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact", "title": "Contact us"},
	})

	resp := call(t, r, &protocol.Request{
		Action:     "inspectObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})
	require.True(t, resp.Success, resp.Error)

	report, ok := resp.Data.(*inspector.Report)
	require.True(t, ok)
	assert.True(t, report.Found)
	assert.Equal(t, "Form", report.Type)
	assert.Equal(t, "contact", report.Name)
}

func TestInspectObjectUnknownType(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{
		Action:     "inspectObject",
		ObjectType: "Widget",
		Parameters: map[string]any{"name": "anything"},
	})
	// The report itself carries the failure; the envelope still succeeds.
	require.True(t, resp.Success, resp.Error)

	report, ok := resp.Data.(*inspector.Report)
	require.True(t, ok)
	assert.False(t, report.Found)
	assert.Equal(t, "Unknown object type: Widget", report.Error)
}

func TestInspectObjectBadMode(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{
		Action:     "inspectObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact", "mode": "sideways"},
	})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "validation: "), resp.Error)
	assert.Contains(t, resp.Error, "sideways")
}

func TestListPatternsAction(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := call(t, r, &protocol.Request{Action: "listPatterns"})
	require.True(t, resp.Success, resp.Error)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	infos, ok := data["patterns"].([]pattern.Info)
	require.True(t, ok)
	require.Len(t, infos, 1)
	assert.Equal(t, "contact_form", infos[0].Name)
	assert.Equal(t, "1.0", infos[0].Version)
}

func TestBuildAndValidatePatternActions(t *testing.T) {
	r, p := newTestRouter(t)

	call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})

	resp := call(t, r, &protocol.Request{
		Action:     "buildPattern",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact", "pattern": "contact_form"},
	})
	require.True(t, resp.Success, resp.Error)

	data, ok := resp.Data.(buildData)
	require.True(t, ok)
	assert.Equal(t, "contact_form", data.Pattern)
	assert.Equal(t, "1.0", data.Version)
	require.NotNil(t, data.Report)
	assert.Equal(t, 2, data.Report.Created)
	assert.False(t, data.Report.Partial)

	rec, err := p.LoadInstance(context.Background(), "Form", "contact")
	require.NoError(t, err)
	assert.Len(t, rec.Collections["Items"], 2, "built elements must be persisted")

	resp = call(t, r, &protocol.Request{
		Action:     "validatePattern",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact", "pattern": "contact_form"},
	})
	require.True(t, resp.Success, resp.Error)

	verdict, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, verdict["valid"])
}

func TestBuildPatternUnknownPattern(t *testing.T) {
	r, _ := newTestRouter(t)

	call(t, r, &protocol.Request{
		Action:     "createObject",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact"},
	})

	resp := call(t, r, &protocol.Request{
		Action:     "buildPattern",
		ObjectType: "Form",
		Parameters: map[string]any{"name": "contact", "pattern": "wizard"},
	})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "not found: "), resp.Error)
}

func TestAuthenticateAction(t *testing.T) {
	r, _ := newTestRouter(t)
	hash, err := auth.HashAccessKey("letmein")
	require.NoError(t, err)
	RegisterAuthActions(r, auth.New(hash, "secret", time.Hour, zap.NewNop()))

	resp := call(t, r, &protocol.Request{
		Action:     "authenticate",
		Parameters: map[string]any{"accessKey": "letmein"},
	})
	require.True(t, resp.Success, resp.Error)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])
	assert.NotEmpty(t, data["expiresAt"])

	resp = call(t, r, &protocol.Request{
		Action:     "authenticate",
		Parameters: map[string]any{"accessKey": "wrong"},
	})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "validation: "), resp.Error)
}

func TestActionsFailWhenProviderOffline(t *testing.T) {
	r, p := newTestRouter(t)
	p.SetOffline(true)

	resp := call(t, r, &protocol.Request{Action: "listTypes"})
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "provider unavailable: "), resp.Error)
}
