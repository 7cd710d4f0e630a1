package arangodb

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

type Client interface {
	// Setup operations
	EnsureDatabase(ctx context.Context) error
	EnsureCollections(ctx context.Context) error
	EnsureGraph(ctx context.Context) error

	// Write operations
	UpsertPOI(ctx context.Context, doc POIDocument) error

	// Read operations
	CountByDestination(ctx context.Context, keys []string) ([]DestinationCount, error)

	Close() error
}

type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("arangodb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("arangodb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("arangodb database name is required")
	}
	return nil
}

type client struct {
	arangoClient arangodb.Client
	db           arangodb.Database
	cfg          Config
}

func New(ctx context.Context, cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arangodb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))

	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}

	return &client{
		arangoClient: arangodb.NewClient(conn),
		cfg:          cfg,
	}, nil
}

func (c *client) Close() error {
	return nil
}

func (c *client) EnsureDatabase(ctx context.Context) error {
	start := time.Now()

	exists, err := c.arangoClient.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}

	if !exists {
		if _, err := c.arangoClient.CreateDatabase(ctx, c.cfg.Database, nil); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		slog.InfoContext(ctx, "arangodb database created",
			"database", c.cfg.Database,
			"duration_ms", time.Since(start).Milliseconds())
	}

	db, err := c.arangoClient.GetDatabase(ctx, c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("get database: %w", err)
	}
	c.db = db

	return nil
}

func (c *client) EnsureCollections(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	for _, name := range []string{CollectionPOIs, CollectionDestination} {
		if err := c.ensureCollection(ctx, name, false); err != nil {
			return err
		}
	}
	return c.ensureCollection(ctx, CollectionLocatedIn, true)
}

func (c *client) ensureCollection(ctx context.Context, name string, isEdge bool) error {
	exists, err := c.db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s exists: %w", name, err)
	}
	if exists {
		return nil
	}

	colType := arangodb.CollectionTypeDocument
	if isEdge {
		colType = arangodb.CollectionTypeEdge
	}

	if _, err := c.db.CreateCollectionV2(ctx, name, &arangodb.CreateCollectionPropertiesV2{Type: &colType}); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	slog.InfoContext(ctx, "arangodb collection created",
		"collection", name,
		"is_edge", isEdge)

	return nil
}

func (c *client) EnsureGraph(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	exists, err := c.db.GraphExists(ctx, GraphName)
	if err != nil {
		return fmt.Errorf("check graph exists: %w", err)
	}
	if exists {
		return nil
	}

	graphDef := &arangodb.GraphDefinition{
		Name: GraphName,
		EdgeDefinitions: []arangodb.EdgeDefinition{
			{Collection: CollectionLocatedIn, From: []string{CollectionPOIs}, To: []string{CollectionDestination}},
		},
	}

	if _, err := c.db.CreateGraph(ctx, GraphName, graphDef, nil); err != nil {
		return fmt.Errorf("create graph: %w", err)
	}

	slog.InfoContext(ctx, "arangodb graph created", "graph", GraphName)
	return nil
}

// Provider metrics refresh on every write; fields an editor may have curated
// keep their stored value, and categories accumulate.
const upsertPOIQuery = `
	UPSERT { _key: @key }
	INSERT MERGE(@doc, { _key: @key, created_at: DATE_ISO8601(DATE_NOW()), updated_at: DATE_ISO8601(DATE_NOW()) })
	UPDATE {
		name:          NOT_NULL(OLD.name, @doc.name),
		address:       NOT_NULL(OLD.address, @doc.address),
		website:       NOT_NULL(OLD.website, @doc.website),
		phone:         NOT_NULL(OLD.phone, @doc.phone),
		lat:           @doc.lat,
		lng:           @doc.lng,
		rating:        NOT_NULL(@doc.rating, OLD.rating),
		review_count:  NOT_NULL(@doc.review_count, OLD.review_count),
		price_tier:    NOT_NULL(@doc.price_tier, OLD.price_tier),
		opening_hours: NOT_NULL(@doc.opening_hours, OLD.opening_hours),
		categories:    UNION_DISTINCT(NOT_NULL(OLD.categories, []), @doc.categories),
		updated_at:    DATE_ISO8601(DATE_NOW())
	}
	IN pois`

const upsertDestinationQuery = `
	UPSERT { _key: @key }
	INSERT { _key: @key, name: @name }
	UPDATE {}
	IN destinations`

const linkQuery = `
	UPSERT { _key: @key }
	INSERT { _key: @key, _from: @from, _to: @to }
	UPDATE {}
	IN located_in`

// UpsertPOI merges the POI document, its destination node and the
// LOCATED_IN edge between them. Every key is derived from stable names,
// so repeating the call never creates duplicates.
func (c *client) UpsertPOI(ctx context.Context, doc POIDocument) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}

	start := time.Now()
	poiKey := makeKey(doc.UID)
	destKey := doc.DestinationKey
	if destKey == "" {
		destKey = makeKey("destination:" + doc.Destination)
	}

	if doc.Categories == nil {
		doc.Categories = []string{}
	}

	steps := []struct {
		name  string
		query string
		vars  map[string]any
	}{
		{"poi", upsertPOIQuery, map[string]any{"key": poiKey, "doc": doc}},
		{"destination", upsertDestinationQuery, map[string]any{"key": destKey, "name": doc.Destination}},
		{"located_in", linkQuery, map[string]any{
			"key":  makeEdgeKey(doc.UID, destKey),
			"from": CollectionPOIs + "/" + poiKey,
			"to":   CollectionDestination + "/" + destKey,
		}},
	}

	for _, step := range steps {
		cursor, err := c.db.Query(ctx, step.query, &arangodb.QueryOptions{BindVars: step.vars})
		if err != nil {
			return fmt.Errorf("upsert %s for %s: %w", step.name, doc.UID, err)
		}
		cursor.Close()
	}

	slog.DebugContext(ctx, "arangodb poi upserted",
		"uid", doc.UID,
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

// CountByDestination counts located_in edges per destination document.
// Keys that have no destination document yet are left out.
func (c *client) CountByDestination(ctx context.Context, keys []string) ([]DestinationCount, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if len(keys) == 0 {
		return nil, nil
	}

	query := `
		FOR d IN destinations
			FILTER d._key IN @keys
			LET n = LENGTH(FOR e IN located_in FILTER e._to == d._id RETURN 1)
			SORT d.name
			RETURN { destination: d.name, key: d._key, pois: n }
	`

	cursor, err := c.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]any{"keys": keys},
	})
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	var results []DestinationCount
	for cursor.HasMore() {
		var doc DestinationCount
		if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		results = append(results, doc)
	}
	return results, nil
}

func makeKey(name string) string {
	hash := md5.Sum([]byte(name))
	return hex.EncodeToString(hash[:])[:16]
}

func makeEdgeKey(from, to string) string {
	return makeKey(from + "->" + to)
}
