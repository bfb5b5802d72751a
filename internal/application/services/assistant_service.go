package services

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
)

// Canned answers for the assistant's terminal states.
const (
	msgOutOfScope    = "I can only help with hospital pricing and quality information. Please ask about medical procedures, costs, or hospital ratings."
	msgNotUnderstood = "I couldn't understand your question. Please try asking about specific procedures, costs, or hospital ratings."
	msgNoResults     = "I couldn't find any data matching your criteria. Please try a different search."
	msgProcessingErr = "I encountered an error processing your question. Please try rephrasing it."
	msgNarrateFailed = "I found some results but had trouble formatting the answer. Please try rephrasing your question."
)

// AskOutcome labels the terminal state of one question.
type AskOutcome string

const (
	OutcomeAnswered  AskOutcome = "answered"
	OutcomeRejected  AskOutcome = "rejected"
	OutcomeNoResults AskOutcome = "no_results"
	OutcomeDegraded  AskOutcome = "degraded"
)

// AskResult is the assistant's response to one question.
type AskResult struct {
	ID       string                         `json:"id"`
	Answer   string                         `json:"answer"`
	Outcome  AskOutcome                     `json:"outcome"`
	Intent   entities.Intent                `json:"intent"`
	Query    *repositories.FetchRequest     `json:"query,omitempty"`
	DataUsed []*entities.ProviderWithRating `json:"data_used,omitempty"`
}

const (
	maxDataUsed        = 10
	defaultAskLimit    = 25
	maxAskLimit        = 50
	interpCacheSeconds = 24 * 60 * 60
	milesToKm          = 1.60934
)

var healthcareKeywords = []string{
	"hospital", "provider", "doctor", "medical", "surgery", "procedure",
	"drg", "cost", "price", "cheap", "expensive", "rating", "quality",
	"treatment", "cardiac", "heart", "knee", "hip", "replacement",
	"emergency", "discharge", "medicare", "patient", "clinic",
}

var mutationVerbs = []string{
	"insert", "update", "delete", "drop", "alter", "truncate", "create", "grant",
}

// genericQueryTerms are question words that carry no procedure signal and
// are excluded when building patterns from a raw question.
var genericQueryTerms = map[string]struct{}{
	"hospital": {}, "hospitals": {}, "provider": {}, "providers": {},
	"doctor": {}, "doctors": {}, "clinic": {}, "clinics": {},
	"show": {}, "find": {}, "which": {}, "what": {}, "who": {}, "where": {},
	"the": {}, "for": {}, "with": {}, "near": {}, "nearby": {}, "best": {},
	"good": {}, "cheapest": {}, "lowest": {}, "highest": {}, "rated": {},
	"rating": {}, "ratings": {}, "cost": {}, "costs": {}, "price": {},
	"prices": {}, "medical": {}, "please": {}, "around": {}, "within": {},
	"miles": {}, "offering": {},
}

var (
	zipPattern      = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	distancePattern = regexp.MustCompile(`(?i)within\s+(\d+(?:\.\d+)?)\s*(miles?|mi|kilometers?|km)`)
	drgCodePattern  = regexp.MustCompile(`(?i)\bdrg\s*(\d{3})\b`)
)

// generatedQuery is the JSON shape the completion service is asked for.
type generatedQuery struct {
	ProcedurePatterns []string `json:"procedure_patterns"`
	Zip               string   `json:"zip"`
	ZipPrefix         string   `json:"zip_prefix"`
	City              string   `json:"city"`
	State             string   `json:"state"`
	MinRating         float64  `json:"min_rating"`
	OrderBy           string   `json:"order_by"`
	Limit             int      `json:"limit"`
}

// AssistantService answers natural-language questions about hospital pricing
// and quality. The completion service is treated as untrusted: its output is
// parsed into a structured filter request and validated against an
// allow-list, never executed as raw text. Every external failure degrades to
// a canned answer.
type AssistantService struct {
	repo       repositories.ProviderRepository
	completion providers.CompletionProvider
	cache      providers.CacheProvider
	matcher    *ProcedureMatcher
	classifier *IntentClassifier
	ranker     *RankingService
	cities     CityTable
	categories CategoryTable
}

// NewAssistantService creates a new assistant service. completion and cache
// may be nil; the assistant then answers from deterministic hints alone,
// uncached.
func NewAssistantService(
	repo repositories.ProviderRepository,
	completion providers.CompletionProvider,
	cache providers.CacheProvider,
	matcher *ProcedureMatcher,
	classifier *IntentClassifier,
	ranker *RankingService,
	cities CityTable,
	categories CategoryTable,
) *AssistantService {
	return &AssistantService{
		repo:       repo,
		completion: completion,
		cache:      cache,
		matcher:    matcher,
		classifier: classifier,
		ranker:     ranker,
		cities:     cities,
		categories: categories,
	}
}

// Ask answers one natural-language question.
func (s *AssistantService) Ask(ctx context.Context, question string) *AskResult {
	result := &AskResult{ID: uuid.New().String()}
	question = strings.TrimSpace(question)

	if !s.inScope(question) {
		result.Answer = msgOutOfScope
		result.Outcome = OutcomeRejected
		return result
	}

	hints := s.extractHints(question)
	intent := s.classifier.Classify(question)
	result.Intent = intent

	req, ok := s.interpret(ctx, question, hints, intent)
	if !ok {
		req, ok = s.hintRequest(question, hints, intent)
		if !ok {
			result.Answer = msgNotUnderstood
			result.Outcome = OutcomeDegraded
			return result
		}
	}
	result.Query = &req

	rows, err := s.repo.FetchByRequest(ctx, req)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("question", question).
			Msg("assistant fetch failed")
		result.Answer = msgProcessingErr
		result.Outcome = OutcomeDegraded
		return result
	}

	if len(rows) == 0 {
		rows = s.fallbackSearch(ctx, question, hints, req)
	}
	if len(rows) == 0 {
		result.Answer = msgNoResults
		result.Outcome = OutcomeNoResults
		return result
	}

	if intent == entities.IntentValue {
		rows = s.rankByComposite(rows)
	}
	if len(rows) > maxDataUsed {
		rows = rows[:maxDataUsed]
	}
	result.DataUsed = rows

	result.Answer = s.narrate(ctx, question, rows)
	result.Outcome = OutcomeAnswered
	return result
}

// ExamplePrompts lists questions the assistant is designed to handle.
func (s *AssistantService) ExamplePrompts() []string {
	return []string{
		"Who is the cheapest for DRG 470 within 25 miles of 10001?",
		"What are the best rated hospitals for heart surgery in New York?",
		"Show me hospitals with lowest cost for knee replacement",
		"Which providers have the highest ratings for cardiac procedures?",
		"Find hospitals near ZIP code 10032 with good ratings",
		"What's the average cost for major joint replacement in NYC?",
		"Compare costs between hospitals for DRG 470",
		"Which hospital has the best value (cost vs rating) for knee surgery?",
	}
}

func (s *AssistantService) inScope(question string) bool {
	lower := strings.ToLower(question)
	for _, keyword := range healthcareKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func (s *AssistantService) extractHints(question string) queryHints {
	hints := queryHints{}
	lower := strings.ToLower(question)

	if m := zipPattern.FindStringSubmatch(question); m != nil {
		hints.Zip = m[1]
	}

	if m := distancePattern.FindStringSubmatch(question); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			if strings.HasPrefix(strings.ToLower(m[2]), "mi") {
				value *= milesToKm
			}
			hints.RadiusKm = value
		}
	}

	for name, stored := range s.cities {
		if strings.Contains(lower, name) {
			hints.City = stored
			break
		}
	}

	if m := drgCodePattern.FindStringSubmatch(question); m != nil {
		hints.Procedure = m[1]
	} else {
		terms := []string{}
		for _, token := range strings.Fields(lower) {
			if _, ok := s.matcher.synonyms[token]; ok {
				terms = append(terms, token)
			}
		}
		hints.Procedure = strings.Join(terms, " ")
	}

	return hints
}

// interpret asks the completion service for a structured query and
// validates it. A cached interpretation is reused when present.
func (s *AssistantService) interpret(ctx context.Context, question string, hints queryHints, intent entities.Intent) (repositories.FetchRequest, bool) {
	if s.completion == nil {
		return repositories.FetchRequest{}, false
	}

	cacheKey := "assistant:interp:" + strings.ToLower(question)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			if req, ok := s.parseGenerated(ctx, string(cached), intent); ok {
				return req, true
			}
		}
	}

	raw, err := s.completion.Complete(ctx, querySystemPrompt, buildQueryPrompt(question, hints, intent))
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Msg("query generation failed, using extracted hints")
		return repositories.FetchRequest{}, false
	}

	req, ok := s.parseGenerated(ctx, raw, intent)
	if !ok {
		return repositories.FetchRequest{}, false
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, []byte(raw), interpCacheSeconds); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache interpretation")
		}
	}
	return req, true
}

// parseGenerated turns completion output into a validated FetchRequest.
// Output containing mutation verbs, unknown fields, or an order outside the
// allow-list is discarded.
func (s *AssistantService) parseGenerated(ctx context.Context, raw string, intent entities.Intent) (repositories.FetchRequest, bool) {
	logger := observability.LoggerFromContext(ctx)

	lower := strings.ToLower(raw)
	for _, verb := range mutationVerbs {
		if strings.Contains(lower, verb) {
			logger.Warn().Str("verb", verb).Msg("generated query contained a mutation verb, discarding")
			return repositories.FetchRequest{}, false
		}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var gen generatedQuery
	if err := dec.Decode(&gen); err != nil {
		logger.Warn().Err(err).Msg("generated query did not parse as a filter request")
		return repositories.FetchRequest{}, false
	}

	order := repositories.OrderBy(gen.OrderBy)
	if !order.Valid() {
		logger.Warn().Str("order_by", gen.OrderBy).Msg("generated query used an unknown ordering")
		return repositories.FetchRequest{}, false
	}
	if order == repositories.OrderByNone {
		order = intentOrder(intent)
	}

	if gen.Zip != "" && !zipFormat.MatchString(gen.Zip) {
		return repositories.FetchRequest{}, false
	}
	if gen.MinRating < 0 || gen.MinRating > 10 {
		return repositories.FetchRequest{}, false
	}

	limit := gen.Limit
	if limit <= 0 {
		limit = defaultAskLimit
	}
	if limit > maxAskLimit {
		limit = maxAskLimit
	}

	req := repositories.FetchRequest{
		ProcedurePatterns: gen.ProcedurePatterns,
		Zip:               gen.Zip,
		ZipPrefix:         gen.ZipPrefix,
		City:              gen.City,
		State:             gen.State,
		MinRating:         gen.MinRating,
		OrderBy:           order,
		Limit:             limit,
	}

	if !hasFilter(req) {
		return repositories.FetchRequest{}, false
	}
	return req, true
}

// hintRequest builds a deterministic request from the extracted hints when
// the completion service is unavailable or its output was rejected.
func (s *AssistantService) hintRequest(question string, hints queryHints, intent entities.Intent) (repositories.FetchRequest, bool) {
	req := repositories.FetchRequest{
		Zip:     hints.Zip,
		City:    hints.City,
		OrderBy: intentOrder(intent),
		Limit:   defaultAskLimit,
	}

	if hints.Procedure != "" {
		req.ProcedurePatterns = s.matcher.BuildPatterns(hints.Procedure)
	} else {
		kept := []string{}
		for _, token := range strings.Fields(strings.ToLower(question)) {
			token = strings.Trim(token, "?.,!")
			if _, generic := genericQueryTerms[token]; generic {
				continue
			}
			kept = append(kept, token)
		}
		req.ProcedurePatterns = s.matcher.BuildPatterns(strings.Join(kept, " "))
	}

	if !hasFilter(req) {
		return repositories.FetchRequest{}, false
	}
	return req, true
}

// fallbackSearch retries with progressively broader filters: wider ZIP
// prefix, then named city, then procedure category. The original ordering is
// kept on every attempt.
func (s *AssistantService) fallbackSearch(ctx context.Context, question string, hints queryHints, original repositories.FetchRequest) []*entities.ProviderWithRating {
	logger := observability.LoggerFromContext(ctx)

	attempts := []repositories.FetchRequest{}

	if original.Zip != "" {
		broader := original
		broader.Zip = ""
		broader.ZipPrefix = original.Zip[:3]
		attempts = append(attempts, broader)
	}

	if hints.City != "" {
		byCity := repositories.FetchRequest{
			ProcedurePatterns: original.ProcedurePatterns,
			City:              hints.City,
			OrderBy:           original.OrderBy,
			Limit:             original.Limit,
		}
		attempts = append(attempts, byCity)
	}

	if patterns := s.categories.CategoryFor(question); patterns != nil {
		byCategory := repositories.FetchRequest{
			ProcedurePatterns: patterns,
			OrderBy:           original.OrderBy,
			Limit:             original.Limit,
		}
		attempts = append(attempts, byCategory)
	}

	for _, attempt := range attempts {
		rows, err := s.repo.FetchByRequest(ctx, attempt)
		if err != nil {
			logger.Warn().Err(err).Msg("fallback fetch failed")
			continue
		}
		if len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// rankByComposite orders rows by the composite value score. Distance is
// unknown on this path, so the ranking uses its 50 km default.
func (s *AssistantService) rankByComposite(rows []*entities.ProviderWithRating) []*entities.ProviderWithRating {
	results := make([]*entities.SearchResult, len(rows))
	byKey := make(map[string]*entities.ProviderWithRating, len(rows))
	for i, row := range rows {
		results[i] = entities.NewSearchResult(row)
		byKey[row.ProviderID+"|"+row.ProcedureDescription] = row
	}

	s.ranker.Rank(results, entities.IntentValue)

	ordered := make([]*entities.ProviderWithRating, len(results))
	for i, r := range results {
		ordered[i] = byKey[r.ProviderID+"|"+r.ProcedureDescription]
	}
	return ordered
}

func (s *AssistantService) narrate(ctx context.Context, question string, rows []*entities.ProviderWithRating) string {
	if s.completion == nil {
		return s.templatedAnswer(rows)
	}

	sample := rows
	if len(sample) > 5 {
		sample = sample[:5]
	}
	dataJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return msgNarrateFailed
	}

	answer, err := s.completion.Complete(ctx, narrateSystemPrompt, buildNarratePrompt(question, string(dataJSON)))
	if err != nil || strings.TrimSpace(answer) == "" {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Msg("answer narration failed")
		return msgNarrateFailed
	}
	return strings.TrimSpace(answer)
}

// templatedAnswer is the deterministic narration used when no completion
// service is configured.
func (s *AssistantService) templatedAnswer(rows []*entities.ProviderWithRating) string {
	top := rows[0]
	var b strings.Builder

	b.WriteString("Top match: ")
	b.WriteString(top.Name)
	b.WriteString(" in ")
	b.WriteString(top.City)
	b.WriteString(", ")
	b.WriteString(top.State)
	b.WriteString(" for ")
	b.WriteString(top.ProcedureDescription)
	b.WriteString(", average covered charge $")
	b.WriteString(strconv.FormatFloat(top.AverageCoveredCharge, 'f', 2, 64))
	if top.AverageRating != nil {
		b.WriteString(", rating ")
		b.WriteString(strconv.FormatFloat(*top.AverageRating, 'f', 1, 64))
		b.WriteString("/10")
	}
	if len(rows) > 1 {
		b.WriteString(". ")
		b.WriteString(strconv.Itoa(len(rows) - 1))
		b.WriteString(" more result(s) matched.")
	}
	return b.String()
}

func intentOrder(intent entities.Intent) repositories.OrderBy {
	switch intent {
	case entities.IntentCheapest:
		return repositories.OrderByCostAsc
	case entities.IntentBestRated:
		return repositories.OrderByRatingDesc
	case entities.IntentNearest:
		return repositories.OrderByZipAsc
	}
	return repositories.OrderByNone
}

func hasFilter(req repositories.FetchRequest) bool {
	return len(req.ProcedurePatterns) > 0 ||
		req.Zip != "" ||
		req.ZipPrefix != "" ||
		req.City != "" ||
		req.State != "" ||
		req.MinRating > 0
}
