package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/signalsfoundry/constellation-tracker/internal/catalog"
	"github.com/signalsfoundry/constellation-tracker/internal/delivery"
	"github.com/signalsfoundry/constellation-tracker/internal/logging"
	"github.com/signalsfoundry/constellation-tracker/internal/observability"
)

const (
	dataSourceName = "CelesTrak"
	serviceVersion = "1.0.0"
)

// Server exposes the tracker over HTTP: REST queries, an SSE stream, and
// a WebSocket live stream.
type Server struct {
	registry  *catalog.Registry
	coord     *delivery.Coordinator
	collector *observability.TrackerCollector
	log       logging.Logger

	// frameDelay paces the bounded SSE stream; the live WebSocket stream
	// uses a per-connection StreamClock instead.
	frameDelay time.Duration
}

// NewServer wires the HTTP surface to its collaborators. collector may be
// nil in tests.
func NewServer(registry *catalog.Registry, coord *delivery.Coordinator, collector *observability.TrackerCollector, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		registry:   registry,
		coord:      coord,
		collector:  collector,
		log:        log,
		frameDelay: delivery.DefaultFrameInterval,
	}
}

// Router assembles the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware)
	if s.collector != nil {
		r.Use(s.collector.Middleware)
	}

	r.Get("/", s.handleRoot)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/scenarios", s.handleListScenarios)
	r.Get("/api/scenarios/{scenarioID}", s.handleGetScenario)
	r.Get("/api/scenarios/{scenarioID}/satellites", s.handleListSatellites)
	r.Get("/api/scenarios/{scenarioID}/positions", s.handlePositions)
	r.Get("/api/scenarios/{scenarioID}/positions/stream", s.handleStreamSSE)
	r.Get("/api/compare", s.handleCompare)
	r.Get("/ws/positions/{scenarioID}", s.handleLiveWS)

	return r
}

// requestIDMiddleware attaches a request id to the context and echoes it
// back to the client.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := logging.EnsureRequestID(r.Context())
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware mirrors the permissive CORS policy the service has
// always shipped with; the tracker is a public read-only API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     "Satellite Constellation Tracker",
		"version":     serviceVersion,
		"data_source": dataSourceName,
		"endpoints": map[string]string{
			"scenarios":  "/api/scenarios",
			"satellites": "/api/scenarios/{id}/satellites",
			"positions":  "/api/scenarios/{id}/positions",
			"stream":     "/api/scenarios/{id}/positions/stream",
			"live":       "/ws/positions/{id}",
			"compare":    "/api/compare",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarioListResponse{Scenarios: s.registry.List()})
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenarioID")
	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "Scenario not found")
		return
	}

	// Materialize so the satellite count reflects current upstream data.
	if _, err := s.registry.Materialize(r.Context(), id); err != nil && !errors.Is(err, catalog.ErrUnknownScenario) {
		s.log.Warn(r.Context(), "scenario refresh failed",
			logging.String("scenario_id", id),
			logging.String("error", err.Error()),
		)
	}

	scenario, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found")
		return
	}
	writeJSON(w, http.StatusOK, scenario)
}

func (s *Server) handleListSatellites(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenarioID")

	list, err := s.coord.ListSatellites(r.Context(), id)
	if err != nil {
		s.writeCoordinatorError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, satelliteListResponse{
		ScenarioID: list.ScenarioID,
		Count:      list.Count,
		Satellites: list.Satellites,
		Meta: meta{
			ComputationTimeMs: roundMs(list.Elapsed),
			DataSource:        dataSourceName,
		},
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenarioID")
	q := r.URL.Query()

	offset, err := floatParam(q.Get("time_offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid time_offset parameter")
		return
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	chunkSize, err := intParam(q.Get("chunk_size"), 0)
	if err != nil || chunkSize < 0 {
		writeError(w, http.StatusBadRequest, "invalid chunk_size parameter")
		return
	}
	chunkIndex, err := intParam(q.Get("chunk_index"), 0)
	if err != nil || chunkIndex < 0 {
		writeError(w, http.StatusBadRequest, "invalid chunk_index parameter")
		return
	}

	var set delivery.PositionSet
	if chunkSize > 0 {
		set, err = s.coord.PositionsPage(r.Context(), id, offset, chunkSize, chunkIndex)
	} else {
		set, err = s.coord.Positions(r.Context(), id, offset, limit)
	}
	if err != nil {
		s.writeCoordinatorError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, positionsResponse{
		ScenarioID:    set.ScenarioID,
		Timestamp:     set.Timestamp.UTC().Format(time.RFC3339Nano),
		TimeOffsetSec: set.TimeOffsetSec,
		Count:         set.Count,
		Positions:     set.Positions,
		ChunkSize:     set.ChunkSize,
		ChunkIndex:    set.ChunkIndex,
		TotalChunks:   set.TotalChunks,
		TotalCount:    set.TotalCount,
		Meta: meta{
			ComputationTimeMs: roundMs(set.Elapsed),
			DataSource:        dataSourceName,
			Propagator:        "SGP4/two-body",
		},
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rawIDs := q.Get("scenario_ids")
	if rawIDs == "" {
		writeError(w, http.StatusBadRequest, "scenario_ids parameter is required")
		return
	}
	ids := make([]string, 0)
	for _, id := range strings.Split(rawIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	metric := delivery.CompareMetric(q.Get("metric"))
	if metric == "" {
		metric = delivery.MetricCount
	}
	offset, err := floatParam(q.Get("time_offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid time_offset parameter")
		return
	}

	cmp, err := s.coord.Compare(r.Context(), ids, metric, offset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, compareResponse{
		Metric:     cmp.Metric,
		Comparison: cmp.Scenarios,
		Meta:       meta{ComputationTimeMs: roundMs(cmp.Elapsed)},
	})
}

func (s *Server) writeCoordinatorError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrUnknownScenario) {
		writeError(w, http.StatusNotFound, "Scenario not found")
		return
	}
	s.log.Error(r.Context(), "request failed", logging.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func floatParam(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func roundMs(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000
	return float64(int(ms*100+0.5)) / 100
}
