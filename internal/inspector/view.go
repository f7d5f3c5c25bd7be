package inspector

import (
	"fmt"
	"strings"
)

// Mode selects how much of an object an inspection reads.
type Mode int

const (
	// ModeFull reads properties and every collection, subject to the
	// configured enumeration and identifier caps.
	ModeFull Mode = iota
	// ModeSummary reads counts only: number of declared properties and the
	// true size of each collection. No identifier extraction, no property
	// detail lookups.
	ModeSummary
	// ModeProperties reads every property in full detail and skips
	// collections entirely.
	ModeProperties
	// ModeCollection reads one named collection without caps.
	ModeCollection
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeSummary:
		return "summary"
	case ModeProperties:
		return "properties"
	case ModeCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// ParseMode converts a wire name to a Mode. The empty string selects
// ModeFull so callers can omit the field.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "full":
		return ModeFull, nil
	case "summary":
		return ModeSummary, nil
	case "properties", "properties-only":
		return ModeProperties, nil
	case "collection":
		return ModeCollection, nil
	default:
		return 0, fmt.Errorf("unknown inspect mode: %s", s)
	}
}

// Options selects the access mode for one inspection. Collection names the
// target collection and is only consulted when Mode is ModeCollection.
type Options struct {
	Mode       Mode
	Collection string
}

// TruncationMarker is appended as the last identifier of a capped
// collection, and substituted for identifiers past the depth guard.
const TruncationMarker = "... (truncated)"

// Report is the bounded view of one object. When the object cannot be
// resolved, Found is false and Error carries the reason; the remaining
// fields describe whatever the selected mode read.
type Report struct {
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

// PropertyView is one scalar member of the inspected object. A property
// that fails to read reports the failure in Error and never aborts the
// surrounding inspection.
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

// CollectionView is one collection member. Count is exact up to the
// enumeration cap; past the cap it reports the cap itself, flagged by
// Capped, never an estimate. Items holds human-readable identifiers up to
// the identifier cap, with TruncationMarker appended when anything was cut.
type CollectionView struct {
	ElementType string   `json:"elementType"`
	Count       int      `json:"count"`
	Capped      bool     `json:"capped,omitempty"`
	Items       []string `json:"items,omitempty"`
	Error       string   `json:"error,omitempty"`
}
