package api

import (
	"encoding/json"
	"net/http"

	"github.com/signalsfoundry/constellation-tracker/internal/delivery"
	"github.com/signalsfoundry/constellation-tracker/model"
)

// meta is the `_meta` block attached to computed responses, mirroring the
// shape clients already consume.
type meta struct {
	ComputationTimeMs float64 `json:"computation_time_ms"`
	DataSource        string  `json:"data_source,omitempty"`
	Propagator        string  `json:"propagator,omitempty"`
}

type scenarioListResponse struct {
	Scenarios []model.Scenario `json:"scenarios"`
}

type satelliteListResponse struct {
	ScenarioID string                      `json:"scenario_id"`
	Count      int                         `json:"count"`
	Satellites []delivery.SatelliteSummary `json:"satellites"`
	Meta       meta                        `json:"_meta"`
}

type positionsResponse struct {
	ScenarioID    string                 `json:"scenario_id"`
	Timestamp     string                 `json:"timestamp"`
	TimeOffsetSec float64                `json:"time_offset_seconds"`
	Count         int                    `json:"count"`
	Positions     []model.PositionSample `json:"positions"`

	ChunkSize   int `json:"chunk_size,omitempty"`
	ChunkIndex  int `json:"chunk_index,omitempty"`
	TotalChunks int `json:"total_chunks,omitempty"`
	TotalCount  int `json:"total_count,omitempty"`

	Meta meta `json:"_meta"`
}

type compareResponse struct {
	Metric     delivery.CompareMetric                `json:"metric"`
	Comparison map[string]delivery.ScenarioAggregate `json:"comparison"`
	Meta       meta                                  `json:"_meta"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
