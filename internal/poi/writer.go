package poi

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/id"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/graph"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/places"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/store"
)

// Writer performs the dual-store upsert: the relational row plus its job
// link, then the graph node plus its destination edge. Both sides merge on
// the provider place id, so a replayed write changes nothing.
type Writer struct {
	pois  store.POIStore
	graph graph.Store
}

func NewWriter(pois store.POIStore, g graph.Store) *Writer {
	return &Writer{pois: pois, graph: g}
}

func (w *Writer) Upsert(ctx context.Context, jobID int64, destination string, categories []string, details *places.PlaceDetails) (*model.POI, error) {
	sc := logger.StartSpan(ctx, "poi.upsert")
	defer sc.End()
	ctx = sc.Context()

	p := Normalize(details, categories, destination)
	p.ID = id.New()
	sc.SetAttributes(attribute.String("poi.uid", p.UID()))

	rowID, err := w.pois.Upsert(ctx, &p)
	if err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("relational upsert: %w", err)
	}
	p.ID = rowID

	if err := w.pois.LinkJob(ctx, jobID, rowID, p.Categories); err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("relational link: %w", err)
	}

	if err := w.graph.UpsertPOI(ctx, p); err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("graph upsert: %w", err)
	}

	slog.DebugContext(ctx, "poi upserted",
		"uid", p.UID(),
		"poi_id", p.ID,
		"categories", p.Categories)

	return &p, nil
}
