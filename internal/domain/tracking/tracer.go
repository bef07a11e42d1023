package tracking

import (
	"context"
	"time"

	"sourcetrace/internal/domain/post"
)

// SourceClient defines the interface a social platform connector must
// implement. Connectors are injected by the caller; the engine never
// talks to a platform API directly.
type SourceClient interface {
	// Platform returns the platform name, e.g. "twitter"
	Platform() string

	// FetchPostByID returns a single post, or nil if it does not exist
	FetchPostByID(ctx context.Context, id string) (*post.Post, error)

	// FetchTimeline returns up to maxResults recent posts for a handle
	FetchTimeline(ctx context.Context, handle string, maxResults int) ([]post.Post, error)

	// SearchTerm returns up to maxResults posts matching a search term,
	// restricted to posts before the given time when before is non-nil
	SearchTerm(ctx context.Context, term string, maxResults int, before *time.Time) ([]post.Post, error)
}

// SimilarityProvider computes text similarity scores in [0,1].
// Implementations may be backed by embeddings, TF-IDF or simpler models;
// the engine only depends on this interface.
type SimilarityProvider interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
	SimilarityMatrix(ctx context.Context, texts []string) ([][]float64, error)
}

// Tracer traces a piece of content back to its earliest identifiable source
type Tracer interface {
	// Trace runs one tracing session for the given input. It returns a
	// *Failure error for unusable input or an empty first fetch; budget
	// exhaustion mid-trace yields a partial Result, not an error.
	Trace(ctx context.Context, input string, kind Kind) (*Result, error)
}
