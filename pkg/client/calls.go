package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// callInto performs a call and decodes the data payload into out. A
// failure envelope becomes an *APIError; out may be nil when the caller
// only cares about success.
func (c *Client) callInto(ctx context.Context, action, objectType string, params map[string]any, out any) error {
	resp, err := c.Call(ctx, action, objectType, params)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{Message: resp.Error}
	}
	if out == nil {
		return nil
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode response data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return nil
}

// Ping checks that the daemon is answering.
func (c *Client) Ping(ctx context.Context) error {
	return c.callInto(ctx, "ping", "", nil, nil)
}

// ListTypes returns the names of every externally constructible type.
func (c *Client) ListTypes(ctx context.Context) ([]string, error) {
	var out struct {
		Types []string `json:"types"`
	}
	if err := c.callInto(ctx, "listTypes", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Types, nil
}

// GetType returns the full descriptor for one type.
func (c *Client) GetType(ctx context.Context, typeName string) (*TypeInfo, error) {
	var out TypeInfo
	if err := c.callInto(ctx, "getTypeInfo", typeName, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPropertyDetails returns the label/description set for one type,
// keyed by property name.
func (c *Client) GetPropertyDetails(ctx context.Context, typeName string) (map[string]PropertyDetail, error) {
	var out struct {
		Details map[string]PropertyDetail `json:"details"`
	}
	if err := c.callInto(ctx, "getPropertyDetails", typeName, nil, &out); err != nil {
		return nil, err
	}
	return out.Details, nil
}

// Create creates and persists a new object from creation parameters.
func (c *Client) Create(ctx context.Context, typeName string, params map[string]any) (*CreateResult, error) {
	var out CreateResult
	if err := c.callInto(ctx, "createObject", typeName, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get loads the stored record of an existing object.
func (c *Client) Get(ctx context.Context, typeName, name string) (*ObjectRecord, error) {
	var out ObjectRecord
	err := c.callInto(ctx, "getObject", typeName, map[string]any{"name": name}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Save applies property updates to an existing object. All updates are
// validated together; on failure nothing is persisted.
func (c *Client) Save(ctx context.Context, typeName, name string, properties map[string]any) error {
	return c.callInto(ctx, "saveObject", typeName, map[string]any{
		"name":       name,
		"properties": properties,
	}, nil)
}

// Delete removes an existing object.
func (c *Client) Delete(ctx context.Context, typeName, name string) error {
	return c.callInto(ctx, "deleteObject", typeName, map[string]any{"name": name}, nil)
}

// Inspect returns the bounded inspection report for an object. mode is
// one of "summary", "properties", "full"; empty selects the server
// default. A missing object is not an error: the report comes back with
// Found false and its own Error text.
func (c *Client) Inspect(ctx context.Context, typeName, name, mode string) (*InspectionReport, error) {
	params := map[string]any{"name": name}
	if mode != "" {
		params["mode"] = mode
	}

	var out InspectionReport
	if err := c.callInto(ctx, "inspectObject", typeName, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InspectCollection returns the bounded report focused on one collection
// of an object, listing member identifiers up to the server's cap.
func (c *Client) InspectCollection(ctx context.Context, typeName, name, collection string) (*InspectionReport, error) {
	params := map[string]any{
		"name":       name,
		"mode":       "collection",
		"collection": collection,
	}

	var out InspectionReport
	if err := c.callInto(ctx, "inspectObject", typeName, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPatterns returns every loaded pattern version.
func (c *Client) ListPatterns(ctx context.Context) ([]PatternInfo, error) {
	var out struct {
		Patterns []PatternInfo `json:"patterns"`
	}
	if err := c.callInto(ctx, "listPatterns", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Patterns, nil
}

// BuildPattern materializes a pattern into the existing container object
// of the given type and name. version may be empty for the library
// default. A partial build is still a success; check the report.
func (c *Client) BuildPattern(ctx context.Context, patternName, version, typeName, name string) (*BuildResult, error) {
	params := map[string]any{
		"pattern": patternName,
		"name":    name,
	}
	if version != "" {
		params["version"] = version
	}

	var out BuildResult
	if err := c.callInto(ctx, "buildPattern", typeName, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidatePattern checks an existing container against a pattern's rules.
func (c *Client) ValidatePattern(ctx context.Context, patternName, version, typeName, name string) (bool, error) {
	params := map[string]any{
		"pattern": patternName,
		"name":    name,
	}
	if version != "" {
		params["version"] = version
	}

	var out struct {
		Valid bool `json:"valid"`
	}
	if err := c.callInto(ctx, "validatePattern", typeName, params, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// Authenticate exchanges an access key for a session token to use with
// the HTTP and WebSocket gateways.
func (c *Client) Authenticate(ctx context.Context, accessKey string) (string, time.Time, error) {
	var out struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expiresAt"`
	}
	err := c.callInto(ctx, "authenticate", "", map[string]any{"accessKey": accessKey}, &out)
	if err != nil {
		return "", time.Time{}, err
	}

	expires, err := time.Parse(time.RFC3339, out.ExpiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to parse token expiry: %w", err)
	}
	return out.Token, expires, nil
}
