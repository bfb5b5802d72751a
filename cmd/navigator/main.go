package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/costnav/healthcare-cost-navigator/internal/adapters/cache"
	"github.com/costnav/healthcare-cost-navigator/internal/adapters/database"
	"github.com/costnav/healthcare-cost-navigator/internal/adapters/search"
	"github.com/costnav/healthcare-cost-navigator/internal/application/services"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/openai"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/postgres"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/redis"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/typesense"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
	"github.com/costnav/healthcare-cost-navigator/pkg/config"
)

const usage = `Usage: navigator <command> [flags]

Commands:
  search      Search providers by procedure and ZIP radius
  ask         Ask a natural-language question about hospital pricing
  top-rated   List the best-rated providers
  provider    Show all procedure rows for one provider
  examples    Print example questions the assistant can handle
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger("healthcare-cost-navigator", os.Getenv("APP_ENV"))
	logger := observability.GetLogger()

	ctx := context.Background()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
		}
	}

	app, err := buildApp(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}
	defer app.close()

	if err := run(ctx, app, os.Args[1], os.Args[2:]); err != nil {
		logger.Fatal().Err(err).Msg("command failed")
	}
}

type application struct {
	searchService *services.ProviderSearchService
	assistant     *services.AssistantService

	pgClient    *postgres.Client
	redisClient *redis.Client
}

func (a *application) close() {
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	if a.pgClient != nil {
		a.pgClient.Close()
	}
}

// buildApp wires clients and services. Postgres is required; Redis,
// Typesense, and the completion service are optional and their absence
// degrades the relevant features.
func buildApp(ctx context.Context, cfg *config.Config) (*application, error) {
	logger := observability.GetLogger()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	app := &application{pgClient: pgClient}
	repo := database.NewProviderAdapter(pgClient)

	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, continuing without caching")
	} else {
		app.redisClient = redisClient
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	var searchRepo repositories.ProviderSearchRepository
	if cfg.Typesense.URL != "" {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			logger.Warn().Err(err).Msg("typesense unavailable, using data store matching only")
		} else if err := tsClient.InitSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("typesense schema init failed, using data store matching only")
		} else {
			searchRepo = search.NewTypesenseAdapter(tsClient)
		}
	}

	var completion providers.CompletionProvider
	if cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			logger.Warn().Err(err).Msg("completion service unavailable, assistant will use hints only")
		} else {
			completion = client
		}
	}

	matcher := services.NewProcedureMatcher(services.DefaultSynonymTable())
	ranker := services.NewRankingService()
	resolver := services.NewGeoResolver(services.DefaultZipTable(), services.DefaultRegionTable(), repo, cacheProvider)

	app.searchService = services.NewProviderSearchService(repo, searchRepo, resolver, matcher, ranker, &cfg.Search)
	app.assistant = services.NewAssistantService(
		repo,
		completion,
		cacheProvider,
		matcher,
		services.NewIntentClassifier(),
		ranker,
		services.DefaultCityTable(),
		services.DefaultCategoryTable(),
	)

	return app, nil
}

func run(ctx context.Context, app *application, command string, args []string) error {
	switch command {
	case "search":
		fs := flag.NewFlagSet("search", flag.ExitOnError)
		drg := fs.String("drg", "", "MS-DRG code or procedure description")
		zip := fs.String("zip", "", "search center ZIP code")
		radius := fs.Float64("radius", 0, "radius in km (default from config)")
		limit := fs.Int("limit", 0, "maximum results")
		fs.Parse(args)

		results, err := app.searchService.Search(ctx, services.SearchParams{
			ProcedureQuery: *drg,
			Zip:            *zip,
			RadiusKm:       *radius,
			Limit:          *limit,
		})
		if err != nil {
			return err
		}
		return printJSON(results)

	case "ask":
		fs := flag.NewFlagSet("ask", flag.ExitOnError)
		question := fs.String("q", "", "natural-language question")
		fs.Parse(args)

		return printJSON(app.assistant.Ask(ctx, *question))

	case "top-rated":
		fs := flag.NewFlagSet("top-rated", flag.ExitOnError)
		drg := fs.String("drg", "", "optional MS-DRG code or procedure description")
		limit := fs.Int("limit", 0, "maximum results")
		fs.Parse(args)

		results, err := app.searchService.TopRated(ctx, *drg, *limit)
		if err != nil {
			return err
		}
		return printJSON(results)

	case "provider":
		fs := flag.NewFlagSet("provider", flag.ExitOnError)
		id := fs.String("id", "", "provider identifier")
		fs.Parse(args)

		rows, err := app.searchService.GetProvider(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(rows)

	case "examples":
		return printJSON(app.assistant.ExamplePrompts())

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
