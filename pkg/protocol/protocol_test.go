package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestWireFields(t *testing.T) {
	raw := `{"id":"req-1","action":"inspectObject","objectType":"Form","parameters":{"name":"contact"}}`

	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if req.ID != "req-1" || req.Action != "inspectObject" || req.ObjectType != "Form" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Parameters["name"] != "contact" {
		t.Fatalf("expected name parameter, got %v", req.Parameters)
	}
}

func TestResponseAlwaysCarriesProcessingTime(t *testing.T) {
	out, err := json.Marshal(Response{ID: "req-1", Success: true})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	if !strings.Contains(string(out), `"processingTimeMs":0`) {
		t.Fatalf("expected processingTimeMs even at zero, got %s", out)
	}
	if strings.Contains(string(out), `"error"`) {
		t.Fatalf("success response should omit error, got %s", out)
	}
	if strings.Contains(string(out), `"data"`) {
		t.Fatalf("response without data should omit the field, got %s", out)
	}
}
