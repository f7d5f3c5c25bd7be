package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/auth"
	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) *protocol.Response {
	t.Helper()

	var out protocol.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return &out
}

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t, Config{HTTPAddr: "127.0.0.1:0"})

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", s.HTTPAddr()))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string    `json:"status"`
		Pool   PoolStats `json:"pool"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, DefaultWorkers, body.Pool.Workers)
}

func TestActionEndpoint(t *testing.T) {
	s := startTestServer(t, Config{HTTPAddr: "127.0.0.1:0"})
	base := "http://" + s.HTTPAddr()

	resp := postJSON(t, base+"/api/actions/listTypes", map[string]any{"id": "http-1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "http-1", env.ID)
	assert.True(t, env.Success)
	types := env.Data.(map[string]any)["types"].([]any)
	assert.Len(t, types, 4)
}

func TestActionEndpointAssignsID(t *testing.T) {
	s := startTestServer(t, Config{HTTPAddr: "127.0.0.1:0"})

	// No body at all: the action comes from the URL and the server
	// assigns a correlation ID.
	resp, err := http.Post(fmt.Sprintf("http://%s/api/actions/ping", s.HTTPAddr()), "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.ID)
}

func TestActionEndpointNotFoundStatus(t *testing.T) {
	s := startTestServer(t, Config{HTTPAddr: "127.0.0.1:0"})
	base := "http://" + s.HTTPAddr()

	resp := postJSON(t, base+"/api/actions/getTypeInfo", map[string]any{
		"id":         "http-404",
		"objectType": "Widget",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "not found: ")
}

func TestActionEndpointValidationStatus(t *testing.T) {
	s := startTestServer(t, Config{HTTPAddr: "127.0.0.1:0"})
	base := "http://" + s.HTTPAddr()

	resp := postJSON(t, base+"/api/actions/getTypeInfo", map[string]any{"id": "http-400"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "validation: ")
}

func TestActionEndpointRejectsBadBody(t *testing.T) {
	s := startTestServer(t, Config{HTTPAddr: "127.0.0.1:0"})

	resp, err := http.Post(fmt.Sprintf("http://%s/api/actions/ping", s.HTTPAddr()), "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTypesEndpoint(t *testing.T) {
	s := startTestServer(t, Config{HTTPAddr: "127.0.0.1:0"})

	resp, err := http.Get(fmt.Sprintf("http://%s/api/types", s.HTTPAddr()))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	types := env.Data.(map[string]any)["types"].([]any)
	assert.Equal(t, []any{"Field", "Form", "Report", "Section"}, types)
}

func TestStatusForMapsErrorPrefixes(t *testing.T) {
	tests := []struct {
		name string
		resp *protocol.Response
		want int
	}{
		{"success", &protocol.Response{Success: true}, http.StatusOK},
		{"not found", &protocol.Response{Error: "not found: type Widget"}, http.StatusNotFound},
		{"validation", &protocol.Response{Error: "validation: bad name"}, http.StatusBadRequest},
		{"provider unavailable", &protocol.Response{Error: "provider unavailable: offline"}, http.StatusServiceUnavailable},
		{"not implemented", &protocol.Response{Error: "not implemented: cascade delete"}, http.StatusNotImplemented},
		{"timeout", &protocol.Response{Error: "timeout: context deadline exceeded"}, http.StatusGatewayTimeout},
		{"unknown action", &protocol.Response{Error: "unknown action: frobnicate"}, http.StatusNotFound},
		{"internal", &protocol.Response{Error: "internal: boom"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.resp))
		})
	}
}

func TestTokenEndpointDisabledWithoutAuth(t *testing.T) {
	s := startTestServer(t, Config{HTTPAddr: "127.0.0.1:0"})

	resp := postJSON(t, fmt.Sprintf("http://%s/api/token", s.HTTPAddr()), map[string]any{"accessKey": "anything"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthProtectsActionEndpoints(t *testing.T) {
	hash, err := auth.HashAccessKey("letmein")
	require.NoError(t, err)
	svc := auth.New(hash, "test-secret", time.Hour, zap.NewNop())

	s := startTestServerWith(t, Config{HTTPAddr: "127.0.0.1:0"}, newTestRouter(t), svc)
	base := "http://" + s.HTTPAddr()

	// Health stays open.
	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Actions do not.
	resp, err = http.Get(base + "/api/types")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong key is rejected.
	resp = postJSON(t, base+"/api/token", map[string]any{"accessKey": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Right key yields a token.
	resp = postJSON(t, base+"/api/token", map[string]any{"accessKey": "letmein"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var issued struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expiresAt"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&issued))
	require.NotEmpty(t, issued.Token)
	assert.NotEmpty(t, issued.ExpiresAt)

	// The token opens the gate.
	req, err := http.NewRequest(http.MethodGet, base+"/api/types", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+issued.Token)

	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()

	assert.Equal(t, http.StatusOK, authed.StatusCode)
	env := decodeEnvelope(t, authed)
	assert.True(t, env.Success)
}
