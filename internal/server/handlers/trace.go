package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v4"
	"github.com/nats-io/nats.go"

	"sourcetrace/internal/adapter/storage"
	"sourcetrace/internal/domain/tracking"
	"sourcetrace/internal/service/tracer"
)

// TraceHandler handles trace-related HTTP requests
type TraceHandler struct {
	client      tracking.SourceClient
	provider    tracking.SimilarityProvider
	config      tracking.Config
	store       *storage.ResultStore
	natsConn    *nats.Conn
	eventsTopic string
}

// NewTraceHandler creates a new trace handler
func NewTraceHandler(
	client tracking.SourceClient,
	provider tracking.SimilarityProvider,
	cfg tracking.Config,
	store *storage.ResultStore,
	natsConn *nats.Conn,
	eventsTopic string,
) *TraceHandler {
	return &TraceHandler{
		client:      client,
		provider:    provider,
		config:      cfg,
		store:       store,
		natsConn:    natsConn,
		eventsTopic: eventsTopic,
	}
}

// traceRequest is the POST body for running a trace. Budget and
// similarity threshold override the configured defaults when positive.
type traceRequest struct {
	Input        string  `json:"input"`
	Kind         string  `json:"kind,omitempty"`
	Budget       int     `json:"budget,omitempty"`
	SimThreshold float64 `json:"sim_threshold,omitempty"`
}

// RunTrace runs a tracing session and returns the completed result
func (h *TraceHandler) RunTrace(w http.ResponseWriter, r *http.Request) {
	var req traceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg := h.config
	if req.Budget > 0 {
		cfg.Budget = req.Budget
	}
	if req.SimThreshold > 0 && req.SimThreshold <= 1 {
		cfg.SimThreshold = req.SimThreshold
	}

	kind := tracking.Kind(req.Kind)
	if kind == "" {
		kind = tracking.KindAuto
	}

	h.publishEvent(fmt.Sprintf("%s.started", h.eventsTopic), map[string]interface{}{
		"type":  "trace_started",
		"input": req.Input,
		"time":  time.Now().UTC(),
	})

	engine := tracer.NewEngine(h.client, h.provider, cfg)
	result, err := engine.Trace(r.Context(), req.Input, kind)
	if err != nil {
		h.publishEvent(fmt.Sprintf("%s.failed", h.eventsTopic), map[string]interface{}{
			"type":  "trace_failed",
			"input": req.Input,
			"error": err.Error(),
			"time":  time.Now().UTC(),
		})
		if failure, ok := tracking.FailureOf(err); ok {
			switch failure.Reason {
			case tracking.ReasonInvalidInput:
				respondWithError(w, http.StatusBadRequest, "Invalid trace input", nil)
			case tracking.ReasonNoDataFound:
				respondWithError(w, http.StatusNotFound, "No data found for input", nil)
			default:
				respondWithError(w, http.StatusInternalServerError, "Trace failed", err)
			}
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Trace failed", err)
		return
	}

	if h.store != nil {
		if err := h.store.SaveResult(r.Context(), result); err != nil {
			log.Printf("failed to save trace result %s: %v", result.ID, err)
		}
	}

	h.publishEvent(fmt.Sprintf("%s.%s.completed", h.eventsTopic, result.ID), map[string]interface{}{
		"type":       "trace_completed",
		"trace_id":   result.ID,
		"confidence": result.Confidence,
		"chain_size": len(result.Chain),
		"calls_used": result.CallsUsed,
		"time":       time.Now().UTC(),
	})

	respondWithJSON(w, http.StatusOK, result)
}

// GetTrace returns a stored trace result by ID
func (h *TraceHandler) GetTrace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing trace ID", nil)
		return
	}

	if h.store == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Result storage not configured", nil)
		return
	}

	result, err := h.store.GetResult(r.Context(), id)
	if err != nil {
		if pgxNoRows(err) {
			respondWithError(w, http.StatusNotFound, "Trace not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to get trace", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ListTraces returns summaries of recently completed traces
func (h *TraceHandler) ListTraces(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Result storage not configured", nil)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	summaries, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list traces", err)
		return
	}

	respondWithJSON(w, http.StatusOK, summaries)
}

// publishEvent publishes a trace lifecycle event; NATS being down never
// blocks the request path
func (h *TraceHandler) publishEvent(topic string, event map[string]interface{}) {
	if h.natsConn == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal event for %s: %v", topic, err)
		return
	}

	if err := h.natsConn.Publish(topic, data); err != nil {
		log.Printf("failed to publish event to %s: %v", topic, err)
	}
}

func pgxNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}

	if err != nil && code >= 500 {
		log.Printf("HTTP %d: %s: %v", code, message, err)
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}
