package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// matchesAny mimics ILIKE pattern matching for the pattern shapes the
// matcher produces (leading/trailing % with a literal core).
func matchesAny(patterns []string, text string) bool {
	lower := strings.ToLower(text)
	for _, pattern := range patterns {
		p := strings.ToLower(pattern)
		core := strings.Trim(p, "%")
		switch {
		case strings.HasPrefix(p, "%") && strings.HasSuffix(p, "%"):
			if strings.Contains(lower, core) {
				return true
			}
		case strings.HasSuffix(p, "%"):
			if strings.HasPrefix(lower, core) {
				return true
			}
		case strings.HasPrefix(p, "%"):
			if strings.HasSuffix(lower, core) {
				return true
			}
		default:
			if lower == core {
				return true
			}
		}
	}
	return false
}

func TestBuildPatterns_NumericCodeBoundary(t *testing.T) {
	matcher := NewProcedureMatcher(DefaultSynonymTable())
	patterns := matcher.BuildPatterns("470")

	assert.True(t, matchesAny(patterns, "470 - Major Joint Replacement w/o MCC"))
	assert.True(t, matchesAny(patterns, "DRG 470 - Major Joint Replacement"))
	assert.False(t, matchesAny(patterns, "4700 - Something Else"))
	assert.False(t, matchesAny(patterns, "1470 - Unrelated Procedure"))
}

func TestBuildPatterns_TextTokenization(t *testing.T) {
	matcher := NewProcedureMatcher(DefaultSynonymTable())
	patterns := matcher.BuildPatterns("knee replacement")

	assert.Contains(t, patterns, "%knee%")
	assert.Contains(t, patterns, "%replacement%")
	// Synonyms from the static table.
	assert.Contains(t, patterns, "%joint%")
	assert.Contains(t, patterns, "%arthroplasty%")
	// Truncated prefix for the long token.
	assert.Contains(t, patterns, "%repla%")
}

func TestBuildPatterns_DropsShortTokens(t *testing.T) {
	matcher := NewProcedureMatcher(DefaultSynonymTable())
	patterns := matcher.BuildPatterns("mri of knee")

	assert.Contains(t, patterns, "%mri%")
	assert.Contains(t, patterns, "%knee%")
	for _, p := range patterns {
		assert.NotEqual(t, "%of%", p)
	}
}

func TestBuildPatterns_EmptyQuery(t *testing.T) {
	matcher := NewProcedureMatcher(DefaultSynonymTable())

	assert.Empty(t, matcher.BuildPatterns(""))
	assert.Empty(t, matcher.BuildPatterns("   "))
}

func TestBuildPatterns_NoDuplicates(t *testing.T) {
	matcher := NewProcedureMatcher(DefaultSynonymTable())
	patterns := matcher.BuildPatterns("knee hip")

	seen := map[string]int{}
	for _, p := range patterns {
		seen[p]++
	}
	for p, count := range seen {
		assert.Equal(t, 1, count, "duplicate pattern %q", p)
	}
}

func TestTerms_ExpandsSynonyms(t *testing.T) {
	matcher := NewProcedureMatcher(DefaultSynonymTable())
	terms := matcher.Terms("heart surgery")

	assert.Contains(t, terms, "heart")
	assert.Contains(t, terms, "cardiac")
	assert.Contains(t, terms, "surgical")
}

func TestTerms_NumericPassthrough(t *testing.T) {
	matcher := NewProcedureMatcher(DefaultSynonymTable())
	assert.Equal(t, []string{"470"}, matcher.Terms("470"))
}
