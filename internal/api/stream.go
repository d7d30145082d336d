package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/constellation-tracker/internal/delivery"
	"github.com/signalsfoundry/constellation-tracker/internal/logging"
)

const (
	defaultStreamDuration = 60 * time.Second
	defaultStreamStep     = time.Second
	maxStreamDuration     = time.Hour
)

// handleStreamSSE serves the bounded time-stepped stream as Server-Sent
// Events: one `data:` record per frame.
//
// GET /api/scenarios/{id}/positions/stream?duration=60&step=1
func (s *Server) handleStreamSSE(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenarioID")
	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "Scenario not found")
		return
	}

	q := r.URL.Query()
	durationSec, err := floatParam(q.Get("duration"), defaultStreamDuration.Seconds())
	if err != nil || durationSec <= 0 {
		writeError(w, http.StatusBadRequest, "invalid duration parameter")
		return
	}
	stepSec, err := floatParam(q.Get("step"), defaultStreamStep.Seconds())
	if err != nil || stepSec <= 0 {
		writeError(w, http.StatusBadRequest, "invalid step parameter")
		return
	}

	duration := time.Duration(durationSec * float64(time.Second))
	if duration > maxStreamDuration {
		duration = maxStreamDuration
	}
	step := time.Duration(stepSec * float64(time.Second))

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if s.collector != nil {
		s.collector.StreamStarted()
		defer s.collector.StreamEnded()
	}
	ctx, log := logging.WithRequestLogger(r.Context(), s.log)
	log.Info(ctx, "sse stream connected",
		logging.String("scenario_id", id),
		logging.Float64("duration_seconds", duration.Seconds()),
		logging.Float64("step_seconds", step.Seconds()),
	)

	sink := func(frame delivery.Frame) error {
		payload, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := s.coord.StreamFrames(ctx, id, duration, step, s.frameDelay, sink); err != nil &&
		!errors.Is(err, context.Canceled) {
		log.Warn(ctx, "sse stream ended with error",
			logging.String("scenario_id", id),
			logging.String("error", err.Error()),
		)
	}
}

// controlMessage is the client-to-server WebSocket payload: jump the
// stream to a new offset and/or pause frame advancement.
type controlMessage struct {
	TimeOffsetSec *float64 `json:"time_offset,omitempty"`
	Command       string   `json:"command,omitempty"` // "pause" | "resume"
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 32 * 1024,
	// The REST surface is already fully open; the socket follows suit.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleLiveWS serves the continuous live stream over a WebSocket. The
// server pushes one frame per tick; the client may push controlMessage
// payloads to jump or pause. The stream runs until the connection closes.
//
// GET /ws/positions/{id}
func (s *Server) handleLiveWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenarioID")
	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "Scenario not found")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if s.collector != nil {
		s.collector.StreamStarted()
		defer s.collector.StreamEnded()
	}
	ctx, log := logging.WithRequestLogger(ctx, s.log)
	log.Info(ctx, "live stream connected", logging.String("scenario_id", id))

	clock := delivery.NewStreamClock(s.frameDelay)

	// Control reader: a read error means the client went away, which
	// cancels the frame loop.
	go func() {
		defer cancel()
		for {
			var msg controlMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.applyControl(ctx, id, clock, msg)
		}
	}()

	sink := func(frame delivery.Frame) error {
		return conn.WriteJSON(frame)
	}

	err = s.coord.StreamLive(ctx, id, clock, sink)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn(ctx, "live stream ended with error",
			logging.String("scenario_id", id),
			logging.String("error", err.Error()),
		)
	}
	log.Info(ctx, "live stream disconnected", logging.String("scenario_id", id))
}

func (s *Server) applyControl(ctx context.Context, scenarioID string, clock *delivery.StreamClock, msg controlMessage) {
	if msg.TimeOffsetSec != nil {
		clock.JumpTo(time.Duration(*msg.TimeOffsetSec * float64(time.Second)))
		s.log.Debug(ctx, "live stream jump",
			logging.String("scenario_id", scenarioID),
			logging.Float64("time_offset_seconds", *msg.TimeOffsetSec),
		)
	}

	switch msg.Command {
	case "pause":
		clock.Pause()
	case "resume":
		clock.Resume()
	case "":
	default:
		s.log.Debug(ctx, "ignoring unknown stream command",
			logging.String("scenario_id", scenarioID),
			logging.String("command", msg.Command),
		)
	}
}
