package router

import (
	"context"
	"sort"
	"time"

	"github.com/metaforge-dev/metaforge/internal/auth"
	"github.com/metaforge-dev/metaforge/internal/catalog"
	"github.com/metaforge-dev/metaforge/internal/inspector"
	"github.com/metaforge-dev/metaforge/internal/object"
	"github.com/metaforge-dev/metaforge/internal/pattern"
	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

// RegisterBuiltins wires the full built-in action set against the given
// subsystems. Server setup calls this once at startup.
func RegisterBuiltins(r *Router, cat *catalog.Catalog, factory *object.Factory, ins *inspector.Inspector, lib *pattern.Library, builder *pattern.Builder) {
	r.Register("ping", pingAction)
	RegisterCatalogActions(r, cat)
	RegisterObjectActions(r, factory)
	RegisterInspectorActions(r, ins)
	RegisterPatternActions(r, lib, builder, factory)
}

func pingAction(ctx context.Context, req *protocol.Request) (any, error) {
	return map[string]any{"pong": true}, nil
}

// RegisterCatalogActions wires the type discovery actions.
func RegisterCatalogActions(r *Router, cat *catalog.Catalog) {
	r.Register("listTypes", func(ctx context.Context, req *protocol.Request) (any, error) {
		names, err := cat.ListTypes(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"types": names}, nil
	})

	r.Register("getTypeInfo", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, err := requireType(req)
		if err != nil {
			return nil, err
		}
		return cat.GetType(ctx, typeName)
	})

	r.Register("getPropertyDetails", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, err := requireType(req)
		if err != nil {
			return nil, err
		}
		details, err := cat.PropertyDetails(ctx, typeName)
		if err != nil {
			return nil, err
		}
		return map[string]any{"details": details}, nil
	})
}

type createData struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Artifacts   []string `json:"artifacts,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// RegisterObjectActions wires the object lifecycle actions. createObject
// both constructs and persists; a validation failure happens before any
// store write, so a failed create leaves nothing behind.
func RegisterObjectActions(r *Router, factory *object.Factory) {
	r.Register("createObject", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, err := requireType(req)
		if err != nil {
			return nil, err
		}
		res, err := factory.Create(ctx, typeName, req.Parameters)
		if err != nil {
			return nil, err
		}
		if err := factory.Save(ctx, res.Instance); err != nil {
			return nil, err
		}
		return createData{
			Name:        res.Instance.Name(),
			Type:        res.Instance.Type(),
			Artifacts:   res.Artifacts,
			Diagnostics: res.Diagnostics,
		}, nil
	})

	r.Register("getObject", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, name, err := requireTypeAndName(req)
		if err != nil {
			return nil, err
		}
		inst, err := factory.GetExisting(ctx, typeName, name)
		if err != nil {
			return nil, err
		}
		return inst.Record(), nil
	})

	r.Register("saveObject", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, name, err := requireTypeAndName(req)
		if err != nil {
			return nil, err
		}
		inst, err := factory.GetExisting(ctx, typeName, name)
		if err != nil {
			return nil, err
		}

		props, _ := req.Parameters["properties"].(map[string]any)
		var fieldErrs []object.FieldError
		for key, value := range props {
			if err := inst.SetProperty(key, value); err != nil {
				fieldErrs = append(fieldErrs, object.FieldError{Field: key, Message: err.Error()})
			}
		}
		if len(fieldErrs) > 0 {
			sort.Slice(fieldErrs, func(i, j int) bool { return fieldErrs[i].Field < fieldErrs[j].Field })
			return nil, &object.ValidationError{Errors: fieldErrs}
		}

		if err := factory.Save(ctx, inst); err != nil {
			return nil, err
		}
		return map[string]any{"saved": true}, nil
	})

	r.Register("deleteObject", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, name, err := requireTypeAndName(req)
		if err != nil {
			return nil, err
		}
		if err := factory.Delete(ctx, typeName, name); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": true}, nil
	})

	r.Register("deleteObjectCascade", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, name, err := requireTypeAndName(req)
		if err != nil {
			return nil, err
		}
		return nil, factory.DeleteCascade(ctx, typeName, name)
	})
}

// RegisterInspectorActions wires inspectObject. The report is the data
// even when the target is missing; its Found flag and Error field tell
// the caller what happened, and the envelope stays successful.
func RegisterInspectorActions(r *Router, ins *inspector.Inspector) {
	r.Register("inspectObject", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, name, err := requireTypeAndName(req)
		if err != nil {
			return nil, err
		}
		mode, err := inspector.ParseMode(stringParam(req, "mode"))
		if err != nil {
			return nil, &object.ValidationError{Errors: []object.FieldError{
				{Field: "mode", Message: err.Error()},
			}}
		}
		opts := inspector.Options{
			Mode:       mode,
			Collection: stringParam(req, "collection"),
		}
		return ins.Inspect(ctx, typeName, name, opts), nil
	})
}

type buildData struct {
	Pattern string               `json:"pattern"`
	Version string               `json:"version"`
	Report  *pattern.BuildReport `json:"report"`
}

// RegisterPatternActions wires the pattern actions. buildPattern loads
// the target container, materializes the pattern into it, and persists
// the result; a partial build still succeeds and reports what was
// skipped. validatePattern is the separate enforcement step.
func RegisterPatternActions(r *Router, lib *pattern.Library, builder *pattern.Builder, factory *object.Factory) {
	r.Register("listPatterns", func(ctx context.Context, req *protocol.Request) (any, error) {
		return map[string]any{"patterns": lib.List()}, nil
	})

	r.Register("buildPattern", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, name, err := requireTypeAndName(req)
		if err != nil {
			return nil, err
		}
		patternName, err := requireString(req, "pattern")
		if err != nil {
			return nil, err
		}

		container, err := factory.GetExisting(ctx, typeName, name)
		if err != nil {
			return nil, err
		}
		pat, err := lib.Get(patternName, stringParam(req, "version"))
		if err != nil {
			return nil, err
		}
		report, err := builder.Build(ctx, container, pat.Root)
		if err != nil {
			return nil, err
		}
		if err := factory.Save(ctx, container); err != nil {
			return nil, err
		}
		return buildData{Pattern: pat.Name, Version: pat.Version, Report: report}, nil
	})

	r.Register("validatePattern", func(ctx context.Context, req *protocol.Request) (any, error) {
		typeName, name, err := requireTypeAndName(req)
		if err != nil {
			return nil, err
		}
		patternName, err := requireString(req, "pattern")
		if err != nil {
			return nil, err
		}

		container, err := factory.GetExisting(ctx, typeName, name)
		if err != nil {
			return nil, err
		}
		pat, err := lib.Get(patternName, stringParam(req, "version"))
		if err != nil {
			return nil, err
		}
		valid, err := lib.Validate(pat.Name, pat.Version, container)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"valid":   valid,
			"pattern": pat.Name,
			"version": pat.Version,
		}, nil
	})
}

// RegisterAuthActions wires the authenticate action, which exchanges an
// access key for a session token. Only wired when auth is enabled.
func RegisterAuthActions(r *Router, svc *auth.Service) {
	r.Register("authenticate", func(ctx context.Context, req *protocol.Request) (any, error) {
		key, err := requireString(req, "accessKey")
		if err != nil {
			return nil, err
		}
		token, expires, err := svc.Authenticate(key)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"token":     token,
			"expiresAt": expires.UTC().Format(time.RFC3339),
		}, nil
	})
}

// stringParam reads an optional string parameter, empty when absent or
// not a string.
func stringParam(req *protocol.Request, key string) string {
	if req.Parameters == nil {
		return ""
	}
	s, _ := req.Parameters[key].(string)
	return s
}

func requireString(req *protocol.Request, key string) (string, error) {
	s := stringParam(req, key)
	if s == "" {
		return "", &object.ValidationError{Errors: []object.FieldError{
			{Field: key, Message: "required parameter missing"},
		}}
	}
	return s, nil
}

func requireType(req *protocol.Request) (string, error) {
	if req.ObjectType == "" {
		return "", &object.ValidationError{Errors: []object.FieldError{
			{Field: "objectType", Message: "required field missing"},
		}}
	}
	return req.ObjectType, nil
}

func requireTypeAndName(req *protocol.Request) (string, string, error) {
	typeName, err := requireType(req)
	if err != nil {
		return "", "", err
	}
	name, err := requireString(req, "name")
	if err != nil {
		return "", "", err
	}
	return typeName, name, nil
}
