package predictions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/internal/source/historic"
	"github.com/flightfusion/fusion/internal/store/predictionstore"
	"github.com/flightfusion/fusion/pkg/logger"
)

type fakeHistoricStore struct {
	graphs map[int64]*historic.PredictedFlightGraph
	errs   map[int64]error
}

func (f *fakeHistoricStore) FetchByPlanID(ctx context.Context, planID int64) (*historic.PredictedFlightGraph, error) {
	if err, ok := f.errs[planID]; ok {
		return nil, err
	}
	return f.graphs[planID], nil
}

func mustLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return l
}

func TestIngestCounters(t *testing.T) {
	hist := &fakeHistoricStore{
		graphs: map[int64]*historic.PredictedFlightGraph{
			1: {InstanceID: 1, Indicative: "TAM3886", Route: []historic.RoutePoint{
				{Indicative: "SBSP", ElementType: "AERODROME", HasLatLon: true, Latitude: -23.4, Longitude: -46.4},
				{Indicative: "SBRJ", ElementType: "AERODROME", HasLatLon: true, Latitude: -22.9, Longitude: -43.1},
			}},
			// planId 2 has no graph: not found.
		},
		errs: map[int64]error{
			3: fmt.Errorf("wrapped: %w", errors.New("could not deserialize payload")),
			4: errors.New("connection reset"),
		},
	}

	store, err := predictionstore.Open(":memory:", mustLogger(t))
	if err != nil {
		t.Fatalf("open predictionstore: %v", err)
	}
	defer store.Close()

	ing := New(hist, store, mustLogger(t))
	ing.sleep = func(time.Duration) {} // keep the test fast

	result, err := ing.Ingest(context.Background(), []int64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if result.TotalRequested != 4 {
		t.Fatalf("TotalRequested = %d, want 4", result.TotalRequested)
	}
	if result.TotalExtracted != 1 {
		t.Fatalf("TotalExtracted = %d, want 1", result.TotalExtracted)
	}
	if result.TotalNotFound != 2 {
		t.Fatalf("TotalNotFound = %d, want 2 (missing planId 2 + deserialization fault on 3)", result.TotalNotFound)
	}
	if result.TotalErrors != 1 {
		t.Fatalf("TotalErrors = %d, want 1", result.TotalErrors)
	}

	saved, err := store.FindByInstanceID(context.Background(), 1)
	if err != nil || saved == nil {
		t.Fatalf("expected saved predicted flight: %v", err)
	}
	if saved.TotalRouteElements != 2 {
		t.Fatalf("TotalRouteElements = %d, want 2", saved.TotalRouteElements)
	}
}

func TestIngestCountsZeroInstanceIDAsError(t *testing.T) {
	hist := &fakeHistoricStore{
		graphs: map[int64]*historic.PredictedFlightGraph{
			5: {InstanceID: 0, Indicative: "TAM0000"},
		},
	}

	store, err := predictionstore.Open(":memory:", mustLogger(t))
	if err != nil {
		t.Fatalf("open predictionstore: %v", err)
	}
	defer store.Close()

	ing := New(hist, store, mustLogger(t))
	ing.sleep = func(time.Duration) {}

	result, err := ing.Ingest(context.Background(), []int64{5})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.TotalErrors != 1 {
		t.Fatalf("TotalErrors = %d, want 1", result.TotalErrors)
	}
	if result.TotalExtracted != 0 {
		t.Fatalf("TotalExtracted = %d, want 0", result.TotalExtracted)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("Count = %d, want 0 (instanceId=0 must not be persisted)", count)
	}
}

func TestFlattenCoordinateFallback(t *testing.T) {
	graph := &historic.PredictedFlightGraph{
		InstanceID: 7,
		Route: []historic.RoutePoint{
			{Indicative: "SBSP", ElementType: "AERODROME", HasLatLon: true, Latitude: -23.4, Longitude: -46.4},
			{Indicative: "WPT1", ElementType: "WAYPOINT", HasLatLon: false, CoordinateText: "-23.0, -45.0"},
		},
	}

	pf := Flatten(graph)
	if len(pf.RouteElements) != 2 {
		t.Fatalf("len(RouteElements) = %d, want 2", len(pf.RouteElements))
	}
	el := pf.RouteElements[1]
	if el.Latitude != -23.0 || el.Longitude != -45.0 {
		t.Fatalf("fallback coordinate parse = (%v,%v), want (-23.0,-45.0)", el.Latitude, el.Longitude)
	}
	if len(pf.RouteSegments) != 1 {
		t.Fatalf("len(RouteSegments) = %d, want 1", len(pf.RouteSegments))
	}
}

func TestFlattenAppliesDefaultsWhenMissing(t *testing.T) {
	graph := &historic.PredictedFlightGraph{
		InstanceID: 9,
		Route: []historic.RoutePoint{
			{Indicative: "SBSP", ElementType: "AERODROME", HasLatLon: true, Latitude: -23.4, Longitude: -46.4},
		},
	}
	pf := Flatten(graph)
	el := pf.RouteElements[0]
	if el.LevelMeters == 0 {
		t.Fatalf("expected default LevelMeters to be populated")
	}
	if el.SpeedMeterPerSecond == 0 {
		t.Fatalf("expected default SpeedMeterPerSecond to be populated")
	}

	var _ model.RouteElement = el
}
