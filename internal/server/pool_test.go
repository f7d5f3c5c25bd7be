package server

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/router"
	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

func TestPoolProcessesSubmittedTasks(t *testing.T) {
	r := router.New(zap.NewNop())
	r.Register("echo", func(ctx context.Context, req *protocol.Request) (any, error) {
		return req.Parameters, nil
	})

	p := NewPool(r, 4, 16, zap.NewNop())
	p.Start()

	out := make(chan *protocol.Response, 10)
	for i := 0; i < 10; i++ {
		p.Submit(task{
			ctx: context.Background(),
			req: &protocol.Request{
				ID:         fmt.Sprintf("task-%d", i),
				Action:     "echo",
				Parameters: map[string]any{"n": i},
			},
			reply: func(resp *protocol.Response) { out <- resp },
		})
	}

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		select {
		case resp := <-out:
			assert.True(t, resp.Success)
			seen[resp.ID] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for responses")
		}
	}
	require.Len(t, seen, 10)

	p.Stop()

	stats := p.Stats()
	assert.Equal(t, 4, stats.Workers)
	assert.Equal(t, int64(10), stats.Processed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestPoolCountsFailures(t *testing.T) {
	p := NewPool(router.New(zap.NewNop()), 1, 4, zap.NewNop())
	p.Start()

	got := make(chan *protocol.Response, 1)
	p.Submit(task{
		ctx:   context.Background(),
		req:   &protocol.Request{ID: "fail-1", Action: "missing"},
		reply: func(resp *protocol.Response) { got <- resp },
	})

	resp := <-got
	assert.False(t, resp.Success)

	p.Stop()
	assert.Equal(t, int64(1), p.Stats().Failed)
}

func TestPoolDefaults(t *testing.T) {
	p := NewPool(router.New(zap.NewNop()), 0, 0, nil)
	assert.Equal(t, DefaultWorkers, p.Stats().Workers)
}
