package historic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/flightfusion/fusion/internal/store/sqliteutil"
	"github.com/flightfusion/fusion/pkg/logger"
)

// SQLClient is a concrete Store reading the historic store's relational
// schema (flight_plans joined with route_elements) through the same
// pure-Go sqlite driver the document store uses. The historic store proper
// is an external system (see §1); this client is this repository's side of
// that boundary, substitutable by any other Store implementation.
type SQLClient struct {
	db  *sql.DB
	log *logger.Logger
}

// OpenSQLClient opens the historic store database at dsn.
func OpenSQLClient(dsn string, log *logger.Logger) (*SQLClient, error) {
	db, err := sqliteutil.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open historic store: %w", err)
	}
	return &SQLClient{db: db, log: log.Named("source.historic")}, nil
}

// Close closes the underlying database handle.
func (c *SQLClient) Close() error { return c.db.Close() }

// FetchByPlanID loads the flight_plans row for planID plus its ordered
// route_elements, assembling the lazily-loaded object graph. A missing
// flight_plans row is reported as (nil, nil), matching the "not found"
// contract; any query or scan failure is returned as an error whose message
// begins "could not deserialize", which the C7 ingester also treats as
// "not found".
func (c *SQLClient) FetchByPlanID(ctx context.Context, planID int64) (*PredictedFlightGraph, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT instance_id, route_id, indicative, aircraft_type, airline,
		       start_point_indicative, end_point_indicative, cruise_level, cruise_speed,
		       flight_time, flight_plan_date, current_date_time_of_arrival
		FROM flight_plans WHERE plan_id = ?
	`, planID)

	var g PredictedFlightGraph
	err := row.Scan(&g.InstanceID, &g.RouteID, &g.Indicative, &g.AircraftType, &g.Airline,
		&g.StartPointIndicative, &g.EndPointIndicative, &g.CruiseLevel, &g.CruiseSpeed,
		&g.Time, &g.FlightPlanDate, &g.CurrentDateTimeOfArrival)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not deserialize flight_plans row for plan %d: %w", planID, err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT indicative, element_type, has_lat_lon, latitude, longitude, coordinate_text,
		       level_meters, altitude, speed_mps, eet_minutes, sequence_number
		FROM route_elements WHERE route_id = ? ORDER BY sequence_number
	`, g.RouteID)
	if err != nil {
		return nil, fmt.Errorf("could not deserialize route_elements for plan %d: %w", planID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p RoutePoint
		var hasLatLon int
		if err := rows.Scan(&p.Indicative, &p.ElementType, &hasLatLon, &p.Latitude, &p.Longitude,
			&p.CoordinateText, &p.LevelMeters, &p.Altitude, &p.SpeedMPS, &p.EETMinutes, &p.SequenceNumber); err != nil {
			return nil, fmt.Errorf("could not deserialize route_elements row for plan %d: %w", planID, err)
		}
		p.HasLatLon = hasLatLon != 0
		g.Route = append(g.Route, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not deserialize route_elements for plan %d: %w", planID, err)
	}

	return &g, nil
}
