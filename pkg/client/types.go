package client

// Client-side views of the server payloads. These mirror the wire JSON
// rather than importing server types, so the package stays usable without
// dragging daemon internals into a consumer's build.

// APIError is a failure envelope turned into an error. The message keeps
// the server's taxonomy prefix ("not found: ", "validation: ", ...).
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Property describes one member of a type.
type Property struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	DataType    string   `json:"data_type"`
	Nullable    bool     `json:"nullable"`
	ReadOnly    bool     `json:"read_only"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	EnumValues  []string `json:"enum_values,omitempty"`
}

// Collection describes a multi-valued member.
type Collection struct {
	Name        string `json:"name"`
	ElementType string `json:"element_type"`
}

// Parameter describes one creation parameter.
type Parameter struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description,omitempty"`
}

// TypeInfo is the full description of one object type.
type TypeInfo struct {
	Name            string       `json:"name"`
	Namespace       string       `json:"namespace,omitempty"`
	BaseType        string       `json:"base_type,omitempty"`
	Constructible   bool         `json:"constructible"`
	Properties      []Property   `json:"properties"`
	Collections     []Collection `json:"collections,omitempty"`
	Parameters      []Parameter  `json:"parameters,omitempty"`
	ChildCollection string       `json:"child_collection,omitempty"`
}

// PropertyDetail is one entry of the per-type label/description lookup.
type PropertyDetail struct {
	Property    string `json:"property"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// CreateResult reports a successful createObject.
type CreateResult struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Artifacts   []string `json:"artifacts,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// ObjectRecord is the stored form of an object, collections included.
type ObjectRecord struct {
	Type        string                     `json:"type"`
	Name        string                     `json:"name"`
	Properties  map[string]any             `json:"properties,omitempty"`
	Collections map[string][]*ObjectRecord `json:"collections,omitempty"`
}

// PropertyView is one property of an inspection report.
type PropertyView struct {
	Name        string   `json:"name"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Value       any      `json:"value"`
	Kind        string   `json:"kind"`
	Nullable    bool     `json:"nullable"`
	ReadOnly    bool     `json:"readOnly"`
	EnumValues  []string `json:"enumValues,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// CollectionView is one collection of an inspection report.
type CollectionView struct {
	ElementType string   `json:"elementType"`
	Count       int      `json:"count"`
	Capped      bool     `json:"capped,omitempty"`
	Items       []string `json:"items,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// InspectionReport is the bounded view returned by inspectObject. Found
// false means the target did not resolve; Error then says why.
type InspectionReport struct {
	Found            bool                       `json:"found"`
	Error            string                     `json:"error,omitempty"`
	Type             string                     `json:"type"`
	Name             string                     `json:"name"`
	Properties       []PropertyView             `json:"properties,omitempty"`
	Collections      map[string]*CollectionView `json:"collections,omitempty"`
	PropertiesCount  int                        `json:"propertiesCount"`
	CollectionsTotal int                        `json:"collectionsTotal"`
	Truncated        bool                       `json:"truncated,omitempty"`
}

// PatternInfo summarizes one loaded pattern version.
type PatternInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// SkippedNode records one pattern node that could not be materialized.
type SkippedNode struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// BuildReport tallies a pattern build. Partial means some nodes were
// skipped while the rest were created.
type BuildReport struct {
	Created      int           `json:"created"`
	CreatedNames []string      `json:"createdNames,omitempty"`
	Skipped      []SkippedNode `json:"skipped,omitempty"`
	Partial      bool          `json:"partial"`
}

// BuildResult reports a buildPattern call.
type BuildResult struct {
	Pattern string       `json:"pattern"`
	Version string       `json:"version"`
	Report  *BuildReport `json:"report"`
}
