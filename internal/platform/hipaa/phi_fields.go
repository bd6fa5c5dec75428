package hipaa

import (
	"strings"
	"unicode/utf8"
)

// PHIFieldConfig maps a resource type to the fields that carry Protected
// Health Information.
type PHIFieldConfig struct {
	// ResourceType is the resource name (e.g. "Patient").
	ResourceType string
	// Fields lists the field names that contain PHI.
	Fields []string
}

// DefaultPHIFields returns the PHI field configuration for patient records.
// Dates and room numbers are operational data and are left readable.
func DefaultPHIFields() []PHIFieldConfig {
	return []PHIFieldConfig{
		{
			ResourceType: "Patient",
			Fields: []string{
				"name",      // direct identifier
				"history",   // free-text clinical notes
				"condition", // diagnosis
			},
		},
	}
}

// PHIFieldPaths returns a flat set of "<ResourceType>.<field>" strings for fast
// look-up. Example key: "Patient.name".
func PHIFieldPaths() map[string]bool {
	configs := DefaultPHIFields()
	paths := make(map[string]bool, 4)
	for _, c := range configs {
		for _, f := range c.Fields {
			paths[c.ResourceType+"."+f] = true
		}
	}
	return paths
}

// IsPHI reports whether field of resourceType is configured as PHI.
func IsPHI(resourceType, field string) bool {
	return PHIFieldPaths()[resourceType+"."+field]
}

// MaskName keeps the first letter of every word and replaces the rest with
// '*', so "Jane Doe" becomes "J*** D**".
func MaskName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(r) + strings.Repeat("*", utf8.RuneCountInString(w[size:]))
	}
	return strings.Join(words, " ")
}

// MaskText replaces free text with a fixed marker that only reveals whether
// a value was present.
func MaskText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return "[redacted]"
}
