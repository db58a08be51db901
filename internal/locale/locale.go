package locale

import "strings"

// FilterKind discriminates the locale filter variants.
type FilterKind int

const (
	// KindAny matches every stored locale tag (wildcard).
	KindAny FilterKind = iota
	// KindTag matches by case-insensitive equality or dash-delimited
	// prefix in either direction ("en" matches "en-GB" and vice versa).
	KindTag
)

// Filter is a locale matching predicate. The zero value matches everything.
// Wildcards are modeled explicitly rather than as magic sentinel strings.
type Filter struct {
	kind FilterKind
	tag  string // Lowercased, only set for KindTag
}

// Any returns a filter that matches all locale tags.
func Any() Filter {
	return Filter{kind: KindAny}
}

// Tag returns a filter for a concrete locale tag. Empty or "*" inputs are
// treated as wildcards.
func Tag(tag string) Filter {
	tag = strings.TrimSpace(tag)
	if tag == "" || tag == "*" {
		return Any()
	}
	return Filter{kind: KindTag, tag: strings.ToLower(tag)}
}

// Parse is an alias of Tag kept for call-site readability when the input
// comes from an external request.
func Parse(tag string) Filter {
	return Tag(tag)
}

// Kind returns the filter variant.
func (f Filter) Kind() FilterKind {
	return f.kind
}

// IsAny reports whether the filter is a wildcard.
func (f Filter) IsAny() bool {
	return f.kind == KindAny
}

// String returns the concrete tag, or "*" for a wildcard.
func (f Filter) String() string {
	if f.kind == KindAny {
		return "*"
	}
	return f.tag
}

// Matches reports whether a stored locale tag satisfies the filter.
// Matching is case-insensitive equality, or prefix match where the shorter
// tag is a dash-delimited prefix of the longer.
func (f Filter) Matches(stored string) bool {
	if f.kind == KindAny {
		return true
	}

	stored = strings.ToLower(strings.TrimSpace(stored))
	if stored == f.tag {
		return true
	}

	if strings.HasPrefix(stored, f.tag+"-") {
		return true
	}
	if strings.HasPrefix(f.tag, stored+"-") {
		return true
	}

	return false
}

// SQL compiles the filter into a WHERE-clause fragment over the given
// column, mirroring Matches. Returns an empty clause for wildcards.
func (f Filter) SQL(column string) (clause string, args []interface{}) {
	if f.kind == KindAny {
		return "", nil
	}

	clause = "(LOWER(" + column + ") = ? OR LOWER(" + column + ") LIKE ? OR ? LIKE LOWER(" + column + ") || '-%')"
	args = []interface{}{f.tag, f.tag + "-%", f.tag}
	return clause, args
}
