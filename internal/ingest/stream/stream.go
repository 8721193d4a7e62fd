// Package stream implements the streaming ingester (C6), the central state
// machine: it consumes ReplayPath packets, creates Flights from intentions,
// groups real-path points by indicative, disambiguates duplicate
// indicatives, and appends deduplicated tracking points.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/flightfusion/fusion/internal/ingest/deserialize"
	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/internal/source/replay"
	"github.com/flightfusion/fusion/internal/store/flightstore"
	"github.com/flightfusion/fusion/pkg/logger"
)

const disambiguationToleranceMs = 30 * 60 * 1000

// ProcessingResult is returned per packet and aggregated by the caller.
type ProcessingResult struct {
	NewFlights     int
	UpdatedFlights int
	Message        string
}

// Totals aggregates ProcessingResult across a whole stream invocation, plus
// the non-fatal counters the audit record needs.
type Totals struct {
	NewFlights       int
	UpdatedFlights   int
	PacketsProcessed int
	PacketsSkipped   int
	PointsDiscarded  int
}

// Message renders a short human-readable summary for audit records and API
// responses.
func (t Totals) Message() string {
	return fmt.Sprintf("packets=%d skipped=%d newFlights=%d updatedFlights=%d discardedPoints=%d",
		t.PacketsProcessed, t.PacketsSkipped, t.NewFlights, t.UpdatedFlights, t.PointsDiscarded)
}

// Ingester is the C6 state machine.
type Ingester struct {
	flights *flightstore.Store
	log     *logger.Logger
}

// New builds an Ingester against the given flight store.
func New(flights *flightstore.Store, log *logger.Logger) *Ingester {
	return &Ingester{flights: flights, log: log.Named("ingest.stream")}
}

// Run consumes src until it is exhausted, ctx is cancelled (cooperative
// cancellation checked between packets), or a fatal store error occurs.
// Deserialization failures and per-point/indicative issues are non-fatal:
// they are logged and counted, and the stream continues.
func (in *Ingester) Run(ctx context.Context, src replay.Stream) (Totals, error) {
	var totals Totals

	for {
		select {
		case <-ctx.Done():
			return totals, nil
		default:
		}

		pkt, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return totals, nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return totals, nil
			}
			return totals, fmt.Errorf("replay stream read failed: %w", err)
		}

		rp, err := deserialize.Deserialize(pkt.Raw, pkt.StoredAt)
		if err != nil {
			totals.PacketsSkipped++
			in.log.Warn("skipping undeserializable packet", logger.Error(err))
			continue
		}

		result, discarded, err := in.processPacket(ctx, rp)
		if err != nil {
			return totals, fmt.Errorf("processing packet: %w", err)
		}

		totals.NewFlights += result.NewFlights
		totals.UpdatedFlights += result.UpdatedFlights
		totals.PacketsProcessed++
		totals.PointsDiscarded += discarded
	}
}

// processPacket runs the intentions-then-real-path order for one packet.
func (in *Ingester) processPacket(ctx context.Context, rp model.ReplayPath) (ProcessingResult, int, error) {
	var result ProcessingResult

	for _, intention := range rp.ListFlightIntention {
		if intention.PlanID == 0 {
			continue
		}
		existing, err := in.flights.FindByPlanID(ctx, intention.PlanID)
		if err != nil {
			return result, 0, err
		}
		if existing == nil {
			f := &model.Flight{
				PlanID:              intention.PlanID,
				Indicative:          intention.Indicative,
				FlightIntention:     intention,
				LastPacketTimestamp: rp.PacketStoredTimestamp,
			}
			if err := in.flights.Upsert(ctx, f); err != nil {
				return result, 0, err
			}
			result.NewFlights++
		} else {
			existing.LastPacketTimestamp = rp.PacketStoredTimestamp
			if err := in.flights.Upsert(ctx, existing); err != nil {
				return result, 0, err
			}
			// Touching lastPacketTimestamp alone does not count as an
			// "updated" flight; only a real-path append below does.
		}
	}

	groups := groupByIndicativeSafe(rp.ListRealPath)
	discarded := 0
	for indicative, points := range groups {
		candidates, err := in.flights.FindAllByIndicative(ctx, indicative)
		if err != nil {
			return result, discarded, err
		}

		var target *model.Flight
		switch len(candidates) {
		case 0:
			in.log.Info("discarding real-path group: no matching flight", logger.String("indicative", indicative))
			discarded += len(points)
			continue
		case 1:
			target = candidates[0]
		default:
			target = disambiguate(candidates, rp.PacketStoredTimestamp)
			if target == nil {
				in.log.Info("discarding ambiguous real-path group", logger.String("indicative", indicative), logger.Int("candidates", len(candidates)))
				discarded += len(points)
				continue
			}
		}

		appended := appendTrackingPoints(target, points, rp.PacketStoredTimestamp)
		target.TotalTrackingPoints = len(target.TrackingPoints)
		if appended > 0 {
			target.HasTrackingData = true
		}
		target.LastPacketTimestamp = rp.PacketStoredTimestamp
		if err := in.flights.Upsert(ctx, target); err != nil {
			return result, discarded, err
		}
		if appended > 0 {
			result.UpdatedFlights++
		}
	}

	result.Message = fmt.Sprintf("new=%d updated=%d discardedPoints=%d", result.NewFlights, result.UpdatedFlights, discarded)
	return result, discarded, nil
}

func groupByIndicativeSafe(points []model.RealPathPoint) map[string][]model.RealPathPoint {
	groups := make(map[string][]model.RealPathPoint)
	for _, p := range points {
		ind := strings.TrimSpace(p.IndicativeSafe)
		if ind == "" {
			continue
		}
		groups[ind] = append(groups[ind], p)
	}
	return groups
}

// disambiguate implements the spec's (candidates, packetTs) -> Option<Flight>
// algorithm: prefer a containing window, else the nearest window within a
// 30-minute hard tolerance, else discard.
func disambiguate(candidates []*model.Flight, packetTs time.Time) *model.Flight {
	type windowed struct {
		flight     *model.Flight
		departure  time.Time
		arrival    time.Time
		hasWindow  bool
	}

	windows := make([]windowed, 0, len(candidates))
	for _, c := range candidates {
		dep, derr := time.Parse(time.RFC3339, c.FlightPlanDate)
		arr, aerr := time.Parse(time.RFC3339, c.CurrentDateTimeOfArrival)
		windows = append(windows, windowed{flight: c, departure: dep, arrival: arr, hasWindow: derr == nil && aerr == nil})
	}

	for _, w := range windows {
		if w.hasWindow && !packetTs.Before(w.departure) && !packetTs.After(w.arrival) {
			return w.flight
		}
	}

	var best *model.Flight
	bestDistance := math.MaxFloat64
	for _, w := range windows {
		if !w.hasWindow {
			continue
		}
		var distanceMs float64
		switch {
		case packetTs.Before(w.departure):
			distanceMs = w.departure.Sub(packetTs).Seconds() * 1000
		case packetTs.After(w.arrival):
			distanceMs = packetTs.Sub(w.arrival).Seconds() * 1000
		default:
			distanceMs = 0
		}
		if distanceMs > disambiguationToleranceMs {
			continue
		}
		if distanceMs < bestDistance {
			bestDistance = distanceMs
			best = w.flight
		}
	}

	return best
}

// appendTrackingPoints converts and appends points not already present
// under the enhanced dedup key, and returns the number appended.
func appendTrackingPoints(f *model.Flight, points []model.RealPathPoint, packetTs time.Time) int {
	existing := make(map[model.EnhancedDedupKey]bool, len(f.TrackingPoints))
	for _, tp := range f.TrackingPoints {
		existing[tp.EnhancedKey()] = true
	}

	appended := 0
	for _, p := range points {
		tp := model.TrackingPoint{
			Timestamp:      packetTs,
			Latitude:       p.Latitude,
			Longitude:      p.Longitude,
			FlightLevel:    p.FlightLevel,
			Speed:          p.TrackSpeed,
			IndicativeSafe: p.IndicativeSafe,
			DetectorSource: p.DetectorSource,
		}
		key := tp.EnhancedKey()
		if existing[key] {
			continue
		}
		existing[key] = true
		f.TrackingPoints = append(f.TrackingPoints, tp)
		appended++
	}
	return appended
}
