package services

import "strings"

// ProcedureMatcher expands a procedure query (MS-DRG code or free text) into
// case-insensitive ILIKE patterns against procedure descriptions. Patterns
// are OR-combined by the caller.
type ProcedureMatcher struct {
	synonyms SynonymTable
}

// NewProcedureMatcher creates a new procedure matcher
func NewProcedureMatcher(synonyms SynonymTable) *ProcedureMatcher {
	return &ProcedureMatcher{synonyms: synonyms}
}

// BuildPatterns returns the match patterns for a query. An empty or
// whitespace query yields an empty set, which callers reject before any
// data access.
func (m *ProcedureMatcher) BuildPatterns(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if isNumeric(query) {
		return numericPatterns(query)
	}

	return m.textPatterns(query)
}

// Terms returns the free-text search terms for a query, used by the
// full-text index path. Numeric codes pass through unchanged.
func (m *ProcedureMatcher) Terms(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if isNumeric(query) {
		return []string{query}
	}

	terms := []string{}
	seen := map[string]struct{}{}
	add := func(term string) {
		term = strings.ToLower(term)
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, token := range strings.Fields(query) {
		token = strings.ToLower(token)
		if len(token) <= 2 {
			continue
		}
		add(token)
		for _, syn := range m.synonyms[token] {
			add(syn)
		}
	}

	return terms
}

// numericPatterns matches descriptions that begin with the code followed by
// a space or hyphen, and the same boundary-delimited pair anywhere in the
// text. A bare contains pattern would let "470" match "4700 - ...".
func numericPatterns(code string) []string {
	return []string{
		code + " %",
		code + "-%",
		"%" + code + " %",
		"%" + code + "-%",
	}
}

func (m *ProcedureMatcher) textPatterns(query string) []string {
	patterns := []string{}
	seen := map[string]struct{}{}
	add := func(pattern string) {
		if _, ok := seen[pattern]; ok {
			return
		}
		seen[pattern] = struct{}{}
		patterns = append(patterns, pattern)
	}

	for _, token := range strings.Fields(query) {
		token = strings.ToLower(token)
		if len(token) <= 2 {
			continue
		}

		add("%" + token + "%")

		for _, syn := range m.synonyms[token] {
			add("%" + strings.ToLower(syn) + "%")
		}

		// Truncated prefix tolerates trailing misspellings in longer terms.
		if len(token) > 4 {
			add("%" + token[:5] + "%")
		}
	}

	return patterns
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
