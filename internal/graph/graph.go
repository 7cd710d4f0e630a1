package graph

import (
	"context"
	"fmt"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/arangodb"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/config"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

// Store is the graph half of the dual-store upsert. A POI node is keyed by
// model.POI.UID and linked LOCATED_IN its destination node.
type Store interface {
	EnsureSchema(ctx context.Context) error
	UpsertPOI(ctx context.Context, poi model.POI) error
	// CountByDestination counts POI nodes per destination slug. Slugs with
	// no destination node yet are omitted.
	CountByDestination(ctx context.Context, slugs []string) ([]model.DestinationCount, error)
	Close(ctx context.Context) error
}

// New connects the backend selected in cfg.
func New(ctx context.Context, cfg config.GraphConfig) (Store, error) {
	switch cfg.Backend {
	case config.GraphBackendNeo4j:
		return NewNeo4jStore(ctx, cfg.Neo4j)
	case config.GraphBackendArangoDB:
		client, err := arangodb.New(ctx, arangodb.Config{
			URL:      cfg.ArangoDB.URL,
			Username: cfg.ArangoDB.Username,
			Password: cfg.ArangoDB.Password,
			Database: cfg.ArangoDB.Database,
		})
		if err != nil {
			return nil, err
		}
		return NewArangoStore(client), nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.Backend)
	}
}
