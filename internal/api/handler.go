// Package api is the REST boundary (C13): it orchestrates the ingestion and
// analytics pipelines behind JSON endpoints, wraps every invocation in a
// C12 audit record, and is the only layer that converts a classified error
// into an HTTP status.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/flightfusion/fusion/internal/audit"
	"github.com/flightfusion/fusion/internal/ingest/predictions"
	"github.com/flightfusion/fusion/internal/ingest/stream"
	"github.com/flightfusion/fusion/internal/match"
	"github.com/flightfusion/fusion/internal/simulate"
	"github.com/flightfusion/fusion/internal/source/historic"
	"github.com/flightfusion/fusion/internal/source/replay"
	"github.com/flightfusion/fusion/internal/store/flightstore"
	"github.com/flightfusion/fusion/internal/store/predictionstore"
	"github.com/flightfusion/fusion/pkg/logger"
)

// ReplayStreamOpener opens a scoped replay stream for a process-step-1
// invocation. It is supplied by main, which knows how to point it at the
// configured replay store connection for a date/time window.
type ReplayStreamOpener func(ctx context.Context, date string, startTime, endTime *string) (replay.Stream, error)

// Handler wires every analytics and ingestion component behind the REST
// surface.
type Handler struct {
	flights     *flightstore.Store
	predictions *predictionstore.Store
	auditLog    *audit.Log
	historic    historic.Store
	simulator   simulate.Simulator
	openReplay  ReplayStreamOpener
	defaultDate string
	log         *logger.Logger
}

// Deps bundles Handler's collaborators.
type Deps struct {
	Flights         *flightstore.Store
	Predictions     *predictionstore.Store
	AuditLog        *audit.Log
	Historic        historic.Store
	Simulator       simulate.Simulator
	OpenReplay      ReplayStreamOpener
	DefaultDate     string
	Logger          *logger.Logger
}

// NewHandler builds a Handler from its collaborators.
func NewHandler(d Deps) *Handler {
	return &Handler{
		flights:     d.Flights,
		predictions: d.Predictions,
		auditLog:    d.AuditLog,
		historic:    d.Historic,
		simulator:   d.Simulator,
		openReplay:  d.OpenReplay,
		defaultDate: d.DefaultDate,
		log:         d.Logger.Named("api"),
	}
}

// streamIngester builds a fresh C6 ingester bound to this handler's flight
// store; it carries no state between invocations.
func (h *Handler) streamIngester() *stream.Ingester {
	return stream.New(h.flights, h.log)
}

// predictionIngester builds a fresh C7 ingester.
func (h *Handler) predictionIngester() *predictions.Ingester {
	return predictions.New(h.historic, h.predictions, h.log)
}

// loadQualifiedPairs reads every Flight and PredictedFlight and reduces them
// to the geographically valid matched pairs the KPI and trajectory-accuracy
// engines consume.
func (h *Handler) loadQualifiedPairs(ctx context.Context) ([]match.Pair, error) {
	flights, err := h.flights.FindAll(ctx, 0, 1_000_000)
	if err != nil {
		return nil, err
	}
	preds, err := h.predictions.FindAll(ctx, 0, 1_000_000)
	if err != nil {
		return nil, err
	}
	return match.QualifiedMatches(preds, flights), nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}
