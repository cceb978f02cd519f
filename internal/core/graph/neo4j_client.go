package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/somshekargr/studybuddy/internal/config"
)

type Neo4jClient struct {
	driver neo4j.DriverWithContext
}

var _ QueryExecutor = (*Neo4jClient)(nil)

// NewNeo4jClient opens the process-wide driver and verifies connectivity.
// Closed once at shutdown via Close.
func NewNeo4jClient(ctx context.Context, cfg *config.Config) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jClient{driver: driver}, nil
}

func (c *Neo4jClient) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.driver, query, params,
		neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("cypher exec: %w", err)
	}

	rows := make([]map[string]any, 0, len(result.Records))
	for _, rec := range result.Records {
		row := make(map[string]any, len(rec.Keys))
		for _, k := range rec.Keys {
			v, _ := rec.Get(k)
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	if c.driver != nil {
		return c.driver.Close(ctx)
	}
	return nil
}
