package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"sourcetrace/internal/domain/tracking"
)

// ResultStore persists finished tracing sessions
type ResultStore struct {
	db *pgxpool.Pool
}

// NewResultStore creates a new result store
func NewResultStore(db *pgxpool.Pool) *ResultStore {
	return &ResultStore{
		db: db,
	}
}

// SaveResult saves a tracking result to storage
func (s *ResultStore) SaveResult(ctx context.Context, r *tracking.Result) error {
	query := `
		INSERT INTO trace_results (
			id, input, kind, original_post, chain, clusters, graph,
			origin_candidates, confidence, calls_used,
			timeline_stats, influence_stats, processing_time_ms, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14
		)
		ON CONFLICT (id) DO UPDATE
		SET
			original_post = $4,
			chain = $5,
			clusters = $6,
			graph = $7,
			origin_candidates = $8,
			confidence = $9,
			calls_used = $10,
			timeline_stats = $11,
			influence_stats = $12,
			processing_time_ms = $13,
			completed_at = $14
	`

	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now().UTC()
	}

	originalJSON, err := json.Marshal(r.OriginalPost)
	if err != nil {
		return fmt.Errorf("error marshaling original post: %w", err)
	}

	chainJSON, err := json.Marshal(r.Chain)
	if err != nil {
		return fmt.Errorf("error marshaling chain: %w", err)
	}

	clustersJSON, err := json.Marshal(r.Clusters)
	if err != nil {
		return fmt.Errorf("error marshaling clusters: %w", err)
	}

	graphJSON, err := json.Marshal(r.Graph)
	if err != nil {
		return fmt.Errorf("error marshaling graph: %w", err)
	}

	candidatesJSON, err := json.Marshal(r.OriginCandidates)
	if err != nil {
		return fmt.Errorf("error marshaling origin candidates: %w", err)
	}

	timelineJSON, err := json.Marshal(r.Timeline)
	if err != nil {
		return fmt.Errorf("error marshaling timeline stats: %w", err)
	}

	influenceJSON, err := json.Marshal(r.Influence)
	if err != nil {
		return fmt.Errorf("error marshaling influence stats: %w", err)
	}

	_, err = s.db.Exec(
		ctx,
		query,
		r.ID,
		r.Input,
		string(r.Kind),
		originalJSON,
		chainJSON,
		clustersJSON,
		graphJSON,
		candidatesJSON,
		r.Confidence,
		r.CallsUsed,
		timelineJSON,
		influenceJSON,
		r.ProcessingTime.Milliseconds(),
		r.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// GetResult retrieves a tracking result by ID
func (s *ResultStore) GetResult(ctx context.Context, id string) (*tracking.Result, error) {
	query := `
		SELECT
			id, input, kind, original_post, chain, clusters, graph,
			origin_candidates, confidence, calls_used,
			timeline_stats, influence_stats, processing_time_ms, completed_at
		FROM trace_results
		WHERE id = $1
	`

	var r tracking.Result
	var kind string
	var processingMs int64
	var originalJSON, chainJSON, clustersJSON, graphJSON, candidatesJSON, timelineJSON, influenceJSON []byte

	err := s.db.QueryRow(ctx, query, id).Scan(
		&r.ID,
		&r.Input,
		&kind,
		&originalJSON,
		&chainJSON,
		&clustersJSON,
		&graphJSON,
		&candidatesJSON,
		&r.Confidence,
		&r.CallsUsed,
		&timelineJSON,
		&influenceJSON,
		&processingMs,
		&r.CompletedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("error querying result: %w", err)
	}

	r.Kind = tracking.Kind(kind)
	r.ProcessingTime = time.Duration(processingMs) * time.Millisecond

	if err := json.Unmarshal(originalJSON, &r.OriginalPost); err != nil {
		return nil, fmt.Errorf("error unmarshaling original post: %w", err)
	}

	if err := json.Unmarshal(chainJSON, &r.Chain); err != nil {
		return nil, fmt.Errorf("error unmarshaling chain: %w", err)
	}

	if err := json.Unmarshal(clustersJSON, &r.Clusters); err != nil {
		return nil, fmt.Errorf("error unmarshaling clusters: %w", err)
	}

	if err := json.Unmarshal(graphJSON, &r.Graph); err != nil {
		return nil, fmt.Errorf("error unmarshaling graph: %w", err)
	}

	if err := json.Unmarshal(candidatesJSON, &r.OriginCandidates); err != nil {
		return nil, fmt.Errorf("error unmarshaling origin candidates: %w", err)
	}

	if err := json.Unmarshal(timelineJSON, &r.Timeline); err != nil {
		return nil, fmt.Errorf("error unmarshaling timeline stats: %w", err)
	}

	if err := json.Unmarshal(influenceJSON, &r.Influence); err != nil {
		return nil, fmt.Errorf("error unmarshaling influence stats: %w", err)
	}

	return &r, nil
}

// ResultSummary is a lightweight listing row for stored traces
type ResultSummary struct {
	ID          string
	Input       string
	Kind        tracking.Kind
	Confidence  float64
	ChainLength int
	CallsUsed   int
	CompletedAt time.Time
}

// ListRecent returns summaries of the most recently completed traces
func (s *ResultStore) ListRecent(ctx context.Context, limit int) ([]ResultSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			id, input, kind, confidence, jsonb_array_length(chain), calls_used, completed_at
		FROM trace_results
		ORDER BY completed_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var summaries []ResultSummary
	for rows.Next() {
		var summary ResultSummary
		var kind string

		err := rows.Scan(
			&summary.ID,
			&summary.Input,
			&kind,
			&summary.Confidence,
			&summary.ChainLength,
			&summary.CallsUsed,
			&summary.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning result: %w", err)
		}

		summary.Kind = tracking.Kind(kind)
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return summaries, nil
}
