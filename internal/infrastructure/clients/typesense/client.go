package typesense

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/costnav/healthcare-cost-navigator/pkg/config"
	"github.com/costnav/healthcare-cost-navigator/pkg/retry"
)

// ProceduresCollection is the index of provider procedure rows.
const ProceduresCollection = "provider_procedures"

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig()
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Printf("Typesense connection attempt %d failed: %v. Retrying in %v...", attempt, err, nextDelay)
		},
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the provider procedures collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == ProceduresCollection {
			return nil
		}
	}

	schema := &api.CollectionSchema{
		Name: ProceduresCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "provider_id", Type: "string", Facet: pointer.True()},
			{Name: "provider_name", Type: "string"},
			{Name: "city", Type: "string", Facet: pointer.True()},
			{Name: "state", Type: "string", Facet: pointer.True()},
			{Name: "zip_code", Type: "string"},
			{Name: "procedure", Type: "string"},
			{Name: "total_discharges", Type: "int32"},
			{Name: "average_covered_charges", Type: "float", Facet: pointer.True()},
			{Name: "average_total_payments", Type: "float"},
			{Name: "average_medicare_payments", Type: "float"},
			{Name: "average_rating", Type: "float", Optional: pointer.True()},
			{Name: "location", Type: "geopoint", Optional: pointer.True()},
		},
	}

	_, err = c.client.Collections().Create(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}
