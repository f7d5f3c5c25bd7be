package scaffold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	tmpl := &Template{
		Name:    "custom",
		Version: "1.0.0",
		Files:   []*File{{TargetPath: "a.txt", Content: "x"}},
	}
	require.NoError(t, r.Register(tmpl))

	got, err := r.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, tmpl, got)

	assert.True(t, r.Exists("custom"))
	assert.False(t, r.Exists("missing"))

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	tmpl := &Template{
		Name:    "custom",
		Version: "1.0.0",
		Files:   []*File{{TargetPath: "a.txt", Content: "x"}},
	}
	require.NoError(t, r.Register(tmpl))
	assert.Error(t, r.Register(tmpl))
}

func TestRegistryRejectsInvalidTemplate(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(&Template{Name: "broken"}))
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(&Template{
			Name:    name,
			Version: "1.0.0",
			Files:   []*File{{TargetPath: "a.txt", Content: "x"}},
		}))
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestRegisterBuiltins(t *testing.T) {
	require.NoError(t, RegisterBuiltins())
	// Registering again must not fail on the already-present entries.
	require.NoError(t, RegisterBuiltins())

	reg := DefaultRegistry()
	for _, name := range []string{"standard", "postgres", "service"} {
		assert.True(t, reg.Exists(name), "missing builtin template %s", name)
	}
}

func TestBuiltinTemplatesValidate(t *testing.T) {
	for _, tmpl := range []*Template{
		NewStandardTemplate(),
		NewPostgresTemplate(),
		NewServiceTemplate(),
	} {
		assert.NoError(t, tmpl.Validate(), "template %s", tmpl.Name)
	}
}
