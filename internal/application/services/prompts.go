package services

import (
	"fmt"
	"strings"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

const querySystemPrompt = "You are a healthcare data assistant. Respond only with a single JSON object, no explanations."

const narrateSystemPrompt = "You are a helpful healthcare assistant. Provide clear, accurate answers based on hospital data."

const querySchemaDescription = `The data set holds hospital provider records with these queryable fields:
- procedure_patterns: list of case-insensitive substring patterns (ILIKE syntax, % wildcards) matched against the MS-DRG procedure description, e.g. "470 - Major Joint Replacement w/o MCC"
- zip: exact 5-digit provider ZIP code
- zip_prefix: leading digits of the provider ZIP code
- city: provider city name
- state: two-letter provider state
- min_rating: minimum average quality rating on a 1-10 scale
- order_by: one of "cost_asc", "rating_desc", "zip_asc", or "" for composite value ranking
- limit: maximum rows, 1-50

Common MS-DRG codes:
- 470: Major Joint Replacement (knee, hip)
- 247: Percutaneous Cardiovascular Procedure
- 292: Heart Failure & Shock
- 690: Kidney & Urinary Tract Infections`

// queryHints are the deterministic extractions embedded in the first
// completion prompt.
type queryHints struct {
	Zip       string
	City      string
	RadiusKm  float64
	Procedure string
}

func buildQueryPrompt(question string, hints queryHints, intent entities.Intent) string {
	var b strings.Builder

	b.WriteString("Convert the question below into a JSON filter request for a hospital pricing database.\n\n")
	b.WriteString(querySchemaDescription)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nExtracted hints:\n")

	if hints.Zip != "" {
		fmt.Fprintf(&b, "- ZIP code mentioned: %s\n", hints.Zip)
	}
	if hints.City != "" {
		fmt.Fprintf(&b, "- City mentioned: %s\n", hints.City)
	}
	if hints.RadiusKm > 0 {
		fmt.Fprintf(&b, "- Distance constraint: about %.0f km (no radius field exists; prefer zip or zip_prefix)\n", hints.RadiusKm)
	}
	if hints.Procedure != "" {
		fmt.Fprintf(&b, "- Procedure terms: %s\n", hints.Procedure)
	}

	fmt.Fprintf(&b, "- Detected ranking intent: %s\n", intent)

	b.WriteString("\nRules:\n")
	b.WriteString("1. Return only the JSON object with keys procedure_patterns, zip, zip_prefix, city, state, min_rating, order_by, limit. Omit keys you do not need.\n")
	b.WriteString("2. Use ILIKE patterns with % wildcards for procedure_patterns.\n")

	switch intent {
	case entities.IntentCheapest:
		b.WriteString("3. The user wants the lowest cost: set order_by to \"cost_asc\".\n")
	case entities.IntentBestRated:
		b.WriteString("3. The user wants the best rated: set order_by to \"rating_desc\".\n")
	case entities.IntentNearest:
		b.WriteString("3. The user wants nearby results: filter by zip or zip_prefix and set order_by to \"zip_asc\".\n")
	default:
		b.WriteString("3. The user wants overall value: leave order_by empty.\n")
	}

	b.WriteString("4. Keep limit between 10 and 50.\n\nJSON:")
	return b.String()
}

func buildNarratePrompt(question, dataJSON string) string {
	var b strings.Builder

	b.WriteString("Based on the following hospital records, provide a natural, helpful answer to the user's question.\n\n")
	b.WriteString("User Question: ")
	b.WriteString(question)
	b.WriteString("\n\nRecords:\n")
	b.WriteString(dataJSON)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("1. Provide a direct, conversational answer.\n")
	b.WriteString("2. Include specific hospital names, costs, and ratings when relevant.\n")
	b.WriteString("3. Format costs as currency (e.g. $25,000) and ratings out of 10 (e.g. rating: 8.5/10).\n")
	b.WriteString("4. Keep the response concise but informative.\n")
	b.WriteString("5. Do not mention technical details like queries or field names.\n\nAnswer:")
	return b.String()
}
