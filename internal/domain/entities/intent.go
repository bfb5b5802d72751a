package entities

// Intent is the caller's inferred ranking preference, derived per request
// from question text and never persisted.
type Intent string

const (
	// IntentCheapest orders by average covered charges ascending
	IntentCheapest Intent = "cheapest"

	// IntentBestRated orders by average rating descending
	IntentBestRated Intent = "best_rated"

	// IntentNearest orders by distance ascending
	IntentNearest Intent = "nearest"

	// IntentValue orders by the composite value score (the default)
	IntentValue Intent = "value"
)

// ParseIntent maps a string to a known intent, defaulting to value.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentCheapest, IntentBestRated, IntentNearest, IntentValue:
		return Intent(s)
	}
	return IntentValue
}
