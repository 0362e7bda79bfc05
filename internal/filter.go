package internal

import (
	"fmt"
	"strings"
)

// Filter operators understood by the remote filter grammar.
const (
	OpEquals         = "=="
	OpNotEquals      = "!="
	OpGreater        = ">"
	OpLess           = "<"
	OpGreaterOrEqual = ">="
	OpLessOrEqual    = "<="
	OpMatchesRegex   = "=~"
	OpNotRegex       = "!~"
	OpContains       = "=@"
	OpNotContains    = "!@"
)

// Boolean separators of the remote filter grammar. The remote service binds OR
// tighter than AND; composed filters are never parenthesised.
const (
	FilterAnd = ";"
	FilterOr  = ","
)

// SortSeparator joins sort terms.
const SortSeparator = ","

// BuildFilterTerm renders a single filter term as prefixed field, operator and
// value. The value is not escaped.
func BuildFilterTerm(field, operator, value string) (string, error) {
	if isBlank(field) {
		return "", fmt.Errorf("%w: filter field must be specified", ErrInvalidArgument)
	}
	if isBlank(operator) {
		return "", fmt.Errorf("%w: filter operator must be specified", ErrInvalidArgument)
	}
	if isBlank(value) {
		return "", fmt.Errorf("%w: filter value must be specified", ErrInvalidArgument)
	}
	return WithPrefix(field) + operator + value, nil
}

// BuildSortTerm renders a single sort term, prefixed with "-" when descending.
func BuildSortTerm(field string, descending bool) (string, error) {
	if isBlank(field) {
		return "", fmt.Errorf("%w: sort field must be specified", ErrInvalidArgument)
	}
	if descending {
		return "-" + WithPrefix(field), nil
	}
	return WithPrefix(field), nil
}

// appendFilterTerm joins term onto an existing flat filter expression.
func appendFilterTerm(filter, separator, term string) string {
	if isBlank(filter) {
		return term
	}
	return filter + separator + term
}

func appendSortTerm(sort, term string) string {
	if isBlank(sort) {
		return term
	}
	return sort + SortSeparator + term
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
