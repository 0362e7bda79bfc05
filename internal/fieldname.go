package internal

import "strings"

// FieldPrefix namespaces metric, dimension and filter field names on the wire.
const FieldPrefix = "ga:"

// DateDimension is the wire name of the calendar date dimension.
const DateDimension = FieldPrefix + "date"

// WithPrefix returns name with the namespace prefix, adding it only when missing.
func WithPrefix(name string) string {
	if strings.HasPrefix(name, FieldPrefix) {
		return name
	}
	return FieldPrefix + name
}

// RemovePrefix returns name without the namespace prefix. Names without it are
// returned unchanged.
func RemovePrefix(name string) string {
	return strings.TrimPrefix(name, FieldPrefix)
}

func removePrefixes(names []string) []string {
	result := make([]string, len(names))
	for i, name := range names {
		result[i] = RemovePrefix(name)
	}
	return result
}

func withPrefixes(names []string) []string {
	result := make([]string, len(names))
	for i, name := range names {
		result[i] = WithPrefix(name)
	}
	return result
}
