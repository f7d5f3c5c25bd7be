package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/catalog"
	"github.com/metaforge-dev/metaforge/internal/object"
	"github.com/metaforge-dev/metaforge/internal/pattern"
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

func TestDispatchCaseInsensitive(t *testing.T) {
	r := New(zap.NewNop())
	r.Register("getThing", func(ctx context.Context, req *protocol.Request) (any, error) {
		return "thing", nil
	})

	for _, action := range []string{"getThing", "getthing", "GETTHING", "GetThing"} {
		resp := r.Dispatch(context.Background(), &protocol.Request{ID: "1", Action: action})
		require.True(t, resp.Success, "action spelling %q should resolve", action)
		assert.Equal(t, "thing", resp.Data)
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	r := New(zap.NewNop())

	resp := r.Dispatch(context.Background(), &protocol.Request{ID: "req-9", Action: "frobnicate"})
	assert.False(t, resp.Success)
	assert.Equal(t, "req-9", resp.ID)
	assert.Equal(t, "unknown action: frobnicate", resp.Error)
	assert.GreaterOrEqual(t, resp.ProcessingTimeMs, int64(0))
}

func TestDispatchRecoversPanic(t *testing.T) {
	r := New(zap.NewNop())
	r.Register("explode", func(ctx context.Context, req *protocol.Request) (any, error) {
		panic("boom")
	})

	var resp *protocol.Response
	require.NotPanics(t, func() {
		resp = r.Dispatch(context.Background(), &protocol.Request{ID: "req-1", Action: "explode"})
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "req-1", resp.ID)
	assert.Equal(t, "internal: boom", resp.Error)
	assert.Nil(t, resp.Data)
}

func TestDispatchEchoesID(t *testing.T) {
	r := New(zap.NewNop())
	r.Register("echo", func(ctx context.Context, req *protocol.Request) (any, error) {
		return nil, nil
	})

	for _, id := range []string{"a", "b", "c-123"} {
		resp := r.Dispatch(context.Background(), &protocol.Request{ID: id, Action: "echo"})
		assert.Equal(t, id, resp.ID)
	}
}

func TestDispatchNilRequest(t *testing.T) {
	r := New(zap.NewNop())

	resp := r.Dispatch(context.Background(), nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "internal: nil request", resp.Error)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := New(zap.NewNop())
	noop := func(ctx context.Context, req *protocol.Request) (any, error) { return nil, nil }

	r.Register("listTypes", noop)
	require.Panics(t, func() { r.Register("LISTTYPES", noop) })
}

func TestActionsSorted(t *testing.T) {
	r := New(zap.NewNop())
	noop := func(ctx context.Context, req *protocol.Request) (any, error) { return nil, nil }
	r.Register("zeta", noop)
	r.Register("Alpha", noop)
	r.Register("mid", noop)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Actions())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		prefix string
	}{
		{"type not found", fmt.Errorf("%w: Widget", catalog.ErrTypeNotFound), "not found: "},
		{"enum not found", fmt.Errorf("%w: Mood", catalog.ErrEnumNotFound), "not found: "},
		{"object not found", fmt.Errorf("%w: Form/ghost", object.ErrObjectNotFound), "not found: "},
		{"pattern not found", fmt.Errorf("%w: wizard", pattern.ErrPatternNotFound), "not found: "},
		{"validation", &object.ValidationError{Errors: []object.FieldError{{Field: "name", Message: "missing"}}}, "validation: "},
		{"unknown property", fmt.Errorf("%w: Bogus", object.ErrUnknownProperty), "validation: "},
		{"read-only property", fmt.Errorf("%w: CreatedBy", object.ErrReadOnlyProperty), "validation: "},
		{"provider down", fmt.Errorf("listing failed: %w", provider.ErrUnavailable), "provider unavailable: "},
		{"cascade", fmt.Errorf("%w: deleteObjectCascade", object.ErrCascadeNotImplemented), "not implemented: "},
		{"deadline", context.DeadlineExceeded, "timeout: "},
		{"anything else", errors.New("disk on fire"), "internal: "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := classify(tc.err)
			assert.Equal(t, tc.prefix+tc.err.Error(), msg)
		})
	}
}
