package ui

import (
	"reflect"
	"testing"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1       string
		s2       string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"Form", "Frm", 1},
		{"Field", "Feld", 1},
		{"Report", "Repot", 1},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			result := LevenshteinDistance(tt.s1, tt.s2)
			if result != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d; want %d", tt.s1, tt.s2, result, tt.expected)
			}
		})
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{"Field", "Form", "Report", "Section"}

	tests := []struct {
		name     string
		target   string
		expected []string
	}{
		{
			name:     "close typo",
			target:   "Frm",
			expected: []string{"Form"},
		},
		{
			name:     "case insensitive",
			target:   "form",
			expected: []string{"Form"},
		},
		{
			name:     "no match within distance",
			target:   "Dashboard",
			expected: []string{},
		},
		{
			name:     "exact match first",
			target:   "Field",
			expected: []string{"Field"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindSimilar(tt.target, candidates)
			if len(result) == 0 && len(tt.expected) == 0 {
				return
			}
			if len(result) > 0 && result[0] != tt.expected[0] {
				t.Errorf("FindSimilar(%q) = %v; want first match %q", tt.target, result, tt.expected[0])
			}
			if len(result) == 0 && len(tt.expected) > 0 {
				t.Errorf("FindSimilar(%q) = none; want %v", tt.target, tt.expected)
			}
		})
	}
}

func TestFindSimilarOrdersByDistance(t *testing.T) {
	candidates := []string{"Fields", "Field", "Felt"}

	result := FindSimilar("Field", candidates)
	expected := []string{"Field", "Fields", "Felt"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("FindSimilar ordering = %v; want %v", result, expected)
	}
}

func TestFindSimilarCapsSuggestions(t *testing.T) {
	candidates := []string{"aaa", "aab", "aba", "abb", "baa"}

	result := FindSimilar("aaa", candidates)
	if len(result) > DefaultMaxSuggestions {
		t.Errorf("FindSimilar returned %d suggestions; cap is %d", len(result), DefaultMaxSuggestions)
	}
}
