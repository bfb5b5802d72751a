package services

import (
	"strings"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

// IntentClassifier labels a question with a ranking intent by checking
// ordered keyword groups; the first group with a hit wins.
type IntentClassifier struct{}

// NewIntentClassifier creates a new intent classifier
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{}
}

var intentKeywordGroups = []struct {
	intent   entities.Intent
	keywords []string
}{
	{entities.IntentCheapest, []string{"cheapest", "lowest cost", "most affordable", "least expensive", "budget"}},
	{entities.IntentBestRated, []string{"best rated", "highest rated", "top rated", "best quality", "highest quality"}},
	{entities.IntentNearest, []string{"nearest", "closest", "nearby", "close to", "near me"}},
}

var secondaryKeywordGroups = []struct {
	intent   entities.Intent
	keywords []string
}{
	{entities.IntentCheapest, []string{"cheap", "cost", "price", "affordable", "expensive"}},
	{entities.IntentBestRated, []string{"rated", "rating", "quality", "best"}},
	{entities.IntentNearest, []string{"near", "close", "distance"}},
}

// Classify returns the intent for a question, defaulting to value when no
// keyword group matches.
func (c *IntentClassifier) Classify(question string) entities.Intent {
	lower := strings.ToLower(question)

	for _, group := range intentKeywordGroups {
		for _, keyword := range group.keywords {
			if strings.Contains(lower, keyword) {
				return group.intent
			}
		}
	}

	for _, group := range secondaryKeywordGroups {
		for _, keyword := range group.keywords {
			if strings.Contains(lower, keyword) {
				return group.intent
			}
		}
	}

	return entities.IntentValue
}
