package models

import (
	"strings"
)

const FilterFieldUser = "user"

type FilterPredicate struct {
	Field string
	Value string
}

func (p FilterPredicate) String() string {
	return p.Field + ":" + p.Value
}

// ParseFilter splits a stored "field:value" string. The second result is
// false when the string has no field part.
func ParseFilter(raw string) (FilterPredicate, bool) {
	field, value, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || field == "" {
		return FilterPredicate{}, false
	}

	return FilterPredicate{
		Field: strings.ToLower(strings.TrimSpace(field)),
		Value: strings.TrimSpace(value),
	}, true
}
