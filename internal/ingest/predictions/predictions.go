// Package predictions implements the prediction ingester (C7): given a set
// of planIds, it walks the historic store's lazily-loaded object graph and
// flattens each one into a normalized PredictedFlight document.
package predictions

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flightfusion/fusion/internal/geodesy"
	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/internal/source/historic"
	"github.com/flightfusion/fusion/internal/store/predictionstore"
	"github.com/flightfusion/fusion/pkg/logger"
)

// batchPaceEvery and batchPaceDelay implement the ≈50ms-per-10-items
// backpressure the historic store needs; see spec §4.7.
const (
	batchPaceEvery = 10
	batchPaceDelay = 50 * time.Millisecond
)

// Result aggregates one Ingest invocation across all requested planIds.
type Result struct {
	TotalRequested int
	TotalExtracted int
	TotalNotFound  int
	TotalErrors    int
}

// Ingester is the C7 prediction ingester.
type Ingester struct {
	historic historic.Store
	store    *predictionstore.Store
	log      *logger.Logger
	sleep    func(time.Duration)
}

// New builds an Ingester against the given historic store client and
// prediction document store.
func New(hist historic.Store, store *predictionstore.Store, log *logger.Logger) *Ingester {
	return &Ingester{historic: hist, store: store, log: log.Named("ingest.predictions"), sleep: time.Sleep}
}

// Ingest fetches and normalizes a PredictedFlight for every planId and
// returns aggregate counts. A per-planId fetch error is counted, logged,
// and does not abort the batch. Within each pacing batch, planIds are
// fetched concurrently (bounded by an errgroup) so the 50ms delay paces
// batches of requests rather than single items; the successfully flattened
// documents from a batch are then persisted together through the store's
// SaveAll, so its per-item-fallback path is actually exercised by normal
// ingestion rather than only by tests.
func (in *Ingester) Ingest(ctx context.Context, planIDs []int64) (Result, error) {
	var result Result
	var mu sync.Mutex
	result.TotalRequested = len(planIDs)

	for batchStart := 0; batchStart < len(planIDs); batchStart += batchPaceEvery {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		batchEnd := min(batchStart+batchPaceEvery, len(planIDs))
		batch := planIDs[batchStart:batchEnd]

		var toSave []*model.PredictedFlight
		g, gctx := errgroup.WithContext(ctx)
		for _, planID := range batch {
			planID := planID
			g.Go(func() error {
				in.fetchOne(gctx, planID, &mu, &result, &toSave)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}

		if len(toSave) > 0 {
			saveResult := in.store.SaveAll(ctx, toSave)
			result.TotalExtracted += saveResult.Persisted
			for planID, err := range saveResult.Failed {
				result.TotalErrors++
				in.log.Warn("save predicted flight failed", logger.Int64("planId", planID), logger.Error(err))
			}
		}

		if batchEnd < len(planIDs) {
			in.sleep(batchPaceDelay)
		}
	}

	return result, nil
}

// fetchOne fetches and flattens a single planId's prediction, updating
// result under mu and appending the flattened document to toSave on
// success. It never returns an error: per-planId failures are counted, not
// propagated, so one bad planId cannot abort the batch. The actual
// persistence happens afterward, batched across the whole pacing group via
// the store's per-item-fallback SaveAll.
func (in *Ingester) fetchOne(ctx context.Context, planID int64, mu *sync.Mutex, result *Result, toSave *[]*model.PredictedFlight) {
	graph, err := in.historic.FetchByPlanID(ctx, planID)

	mu.Lock()
	defer mu.Unlock()

	switch {
	case err != nil && isDeserializationFault(err):
		result.TotalNotFound++
	case err != nil:
		result.TotalErrors++
		in.log.Warn("fetch prediction graph failed", logger.Int64("planId", planID), logger.Error(err))
	case graph == nil:
		result.TotalNotFound++
	default:
		pf := Flatten(graph)
		if pf.InstanceID == 0 {
			result.TotalErrors++
			in.log.Warn("predicted flight missing instanceId", logger.Int64("planId", planID))
			return
		}
		*toSave = append(*toSave, pf)
	}
}

// isDeserializationFault unwraps err looking for a link that names a
// deserialization failure; such faults are treated as "not found" per the
// serialization-fault policy.
func isDeserializationFault(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := strings.ToLower(e.Error())
		if strings.Contains(msg, "could not deserialize") || strings.Contains(msg, "deserialization") {
			return true
		}
	}
	return false
}

const (
	defaultSpeedKnots  = 450
	defaultLevelFeet   = 350 * 100
	feetToMetersC7     = 0.3048
	knotsToMetersPerSec = 0.514444
)

// Flatten converts a historic store's object graph into a normalized
// PredictedFlight document: scalar attributes carry over directly, and each
// RoutePoint becomes a RouteElement (coordinates from the primary lat/lon
// pair first, the textual coordinate as fallback) joined into sequential
// RouteSegments.
func Flatten(graph *historic.PredictedFlightGraph) *model.PredictedFlight {
	pf := &model.PredictedFlight{
		InstanceID:               graph.InstanceID,
		RouteID:                  graph.RouteID,
		Indicative:               graph.Indicative,
		AircraftType:             graph.AircraftType,
		Airline:                  graph.Airline,
		StartPointIndicative:     graph.StartPointIndicative,
		EndPointIndicative:       graph.EndPointIndicative,
		CruiseLevel:              graph.CruiseLevel,
		CruiseSpeed:              graph.CruiseSpeed,
		Time:                     graph.Time,
		FlightPlanDate:           graph.FlightPlanDate,
		CurrentDateTimeOfArrival: graph.CurrentDateTimeOfArrival,
	}

	pf.RouteElements = make([]model.RouteElement, 0, len(graph.Route))
	for _, rp := range graph.Route {
		el := model.RouteElement{
			Indicative:     rp.Indicative,
			ElementType:    model.RouteElementType(rp.ElementType),
			EETMinutes:     rp.EETMinutes,
			SequenceNumber: rp.SequenceNumber,
			CoordinateText: rp.CoordinateText,
		}

		if rp.HasLatLon {
			el.Latitude = rp.Latitude
			el.Longitude = rp.Longitude
		} else if lat, lon, ok := parseCoordinateText(rp.CoordinateText); ok {
			el.Latitude = lat
			el.Longitude = lon
		}

		el.SpeedMeterPerSecond = rp.SpeedMPS
		if el.SpeedMeterPerSecond == 0 {
			el.SpeedMeterPerSecond = defaultSpeedKnots * knotsToMetersPerSec
		}

		el.LevelMeters = rp.LevelMeters
		if el.LevelMeters == 0 {
			el.LevelMeters = defaultLevelFeet * feetToMetersC7
		}
		el.Altitude = rp.Altitude

		pf.RouteElements = append(pf.RouteElements, el)
	}
	pf.TotalRouteElements = len(pf.RouteElements)

	pf.RouteSegments = make([]model.RouteSegment, 0, max(0, len(pf.RouteElements)-1))
	for i := 0; i+1 < len(pf.RouteElements); i++ {
		a, b := pf.RouteElements[i], pf.RouteElements[i+1]
		pf.RouteSegments = append(pf.RouteSegments, model.RouteSegment{
			ID:         int64(i),
			Distance:   geodesy.DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude),
			ElementAID: i,
			ElementBID: i + 1,
		})
	}

	return pf
}

// parseCoordinateText parses the historic store's free-form textual
// coordinate fallback, expected as "lat,lon" in decimal degrees.
func parseCoordinateText(text string) (lat, lon float64, ok bool) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	latF, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lonF, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return latF, lonF, true
}
