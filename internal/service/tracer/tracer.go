package tracer

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"sourcetrace/internal/domain/post"
	"sourcetrace/internal/domain/tracking"
	"sourcetrace/internal/service/cluster"
	"sourcetrace/internal/service/graph"
	"sourcetrace/internal/service/similarity"
	"sourcetrace/internal/service/source"
)

// Engine implements tracking.Tracer. It holds only the injected
// collaborators and configuration; every Trace call builds a fresh
// session (gateway, oracle, detector) so budgets and caches are never
// shared across invocations.
type Engine struct {
	client   tracking.SourceClient
	provider tracking.SimilarityProvider
	config   tracking.Config
}

// session is the per-invocation working set
type session struct {
	gateway  *source.Gateway
	oracle   *similarity.Oracle
	detector *cluster.Detector
	builder  *graph.Builder
	config   tracking.Config
}

// NewEngine creates a tracing engine
func NewEngine(client tracking.SourceClient, provider tracking.SimilarityProvider, cfg tracking.Config) *Engine {
	return &Engine{
		client:   client,
		provider: provider,
		config:   cfg,
	}
}

// Trace runs one tracing session. Budget exhaustion and platform errors
// mid-trace degrade to partial results; only unusable input and an empty
// first fetch surface as *tracking.Failure.
func (e *Engine) Trace(ctx context.Context, input string, kind tracking.Kind) (*tracking.Result, error) {
	start := time.Now()

	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &tracking.Failure{Reason: tracking.ReasonInvalidInput, Input: input}
	}

	if kind == tracking.KindAuto || kind == "" {
		kind = detectKind(input)
	}

	oracle := similarity.NewOracle(e.provider)
	s := &session{
		gateway:  source.NewGateway(e.client, e.config),
		oracle:   oracle,
		detector: cluster.NewDetector(oracle, e.config.Weights),
		builder:  graph.NewBuilder(e.config.Weights),
		config:   e.config,
	}

	var (
		chain    []post.Post
		clusters []tracking.Cluster
		err      error
	)

	switch kind {
	case tracking.KindPostURL:
		chain, err = s.tracePost(ctx, input)
	case tracking.KindHandle:
		chain, err = s.traceHandle(ctx, input)
	case tracking.KindHashtag:
		chain, clusters, err = s.traceHashtag(ctx, input)
	default:
		return nil, &tracking.Failure{Reason: tracking.ReasonInvalidInput, Input: input}
	}
	if err != nil {
		return nil, err
	}

	g, candidates := s.builder.Build(chain, clusters)

	result := &tracking.Result{
		ID:               uuid.New().String(),
		Input:            input,
		Kind:             kind,
		OriginalPost:     s.selectOriginal(kind, chain),
		Chain:            chain,
		Clusters:         clusters,
		Graph:            g,
		OriginCandidates: candidates,
		Confidence:       confidence(kind, chain),
		CallsUsed:        s.gateway.CallsUsed(),
		Timeline:         timelineStats(chain),
		Influence:        influenceStats(chain),
		ProcessingTime:   time.Since(start),
		CompletedAt:      time.Now().UTC(),
	}

	log.Printf("trace %s completed: kind=%s chain=%d calls=%d confidence=%.2f",
		result.ID, kind, len(chain), result.CallsUsed, result.Confidence)

	return result, nil
}

// tracePost resolves a post URL and traces back from that post
func (s *session) tracePost(ctx context.Context, input string) ([]post.Post, error) {
	id, ok := source.ExtractPostID(input)
	if !ok {
		return nil, &tracking.Failure{Reason: tracking.ReasonInvalidInput, Input: input}
	}

	target, err := s.gateway.FetchPostByID(ctx, id)
	if err != nil || target == nil {
		return nil, &tracking.Failure{Reason: tracking.ReasonNoDataFound, Input: input}
	}

	return s.reverseTrace(ctx, *target), nil
}

// traceHandle fetches a handle's timeline, picks the top third of posts by
// engagement as viral candidates and traces each one back
func (s *session) traceHandle(ctx context.Context, input string) ([]post.Post, error) {
	handle := strings.TrimPrefix(input, "@")

	posts, err := s.gateway.FetchTimeline(ctx, handle, s.config.TimelineSize)
	if err != nil || len(posts) == 0 {
		return nil, &tracking.Failure{Reason: tracking.ReasonNoDataFound, Input: input}
	}

	var merged []post.Post
	for _, candidate := range viralCandidates(posts) {
		merged = append(merged, s.reverseTrace(ctx, candidate)...)
	}

	return dedupeSort(merged), nil
}

// traceHashtag searches the tag, clusters the results and orders members
// within each cluster chronologically
func (s *session) traceHashtag(ctx context.Context, input string) ([]post.Post, []tracking.Cluster, error) {
	term := input
	if !strings.HasPrefix(term, "#") {
		term = "#" + term
	}

	posts, err := s.gateway.SearchTerm(ctx, term, s.config.SearchSize, nil)
	if err != nil || len(posts) == 0 {
		return nil, nil, &tracking.Failure{Reason: tracking.ReasonNoDataFound, Input: input}
	}

	clusters := s.detector.DetectClusters(ctx, posts, s.config.HashtagSimThreshold, s.config.MinClusterSize)
	if len(clusters) == 0 {
		// Every post was noise; keep the raw batch as the best available chain
		return dedupeSort(posts), nil, nil
	}

	byID := make(map[string]post.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	var chain []post.Post
	for _, c := range clusters {
		for _, id := range c.MemberPostIDs {
			chain = append(chain, byID[id])
		}
	}

	return dedupeSort(chain), clusters, nil
}

// reverseTrace walks back from a target post: follow its repost/quote
// reference directly, then search for earlier content whose similarity is
// at or above the threshold, matching the inclusive cut the cluster
// detector uses. Gateway failures leave the chain partial, never empty.
func (s *session) reverseTrace(ctx context.Context, target post.Post) []post.Post {
	posts := []post.Post{target}

	if refID, ok := target.RepostedID(); ok {
		original, err := s.gateway.FetchPostByID(ctx, refID)
		if err != nil {
			log.Printf("skipping referenced post %s: %v", refID, err)
		} else if original != nil {
			posts = append([]post.Post{*original}, posts...)
		}
	}

	if query := searchQuery(target.Content); query != "" {
		before := target.Timestamp
		results, err := s.gateway.SearchTerm(ctx, query, s.config.SearchSize, &before)
		if err != nil {
			log.Printf("skipping similarity search for %s: %v", target.ID, err)
		}
		for _, r := range results {
			if !r.Timestamp.Before(target.Timestamp) {
				continue
			}
			if s.oracle.Similarity(ctx, target.Content, r.Content) >= s.config.SimThreshold {
				posts = append(posts, r)
			}
		}
	}

	return dedupeSort(posts)
}

// selectOriginal picks the chain element most likely to be the source.
// Post traces take the earliest element; handle and hashtag traces score
// influence and originality, ties broken by earliest timestamp.
func (s *session) selectOriginal(kind tracking.Kind, chain []post.Post) *post.Post {
	if len(chain) == 0 {
		return nil
	}
	if kind == tracking.KindPostURL {
		return &chain[0]
	}

	w := s.config.Weights
	engagementCap := w.InfluenceEngagementCap
	if engagementCap <= 0 {
		engagementCap = 1000
	}

	best := 0
	bestScore := -1.0
	for i, p := range chain {
		influence := float64(p.EngagementSum()) / engagementCap
		if influence > 1 {
			influence = 1
		}
		originality := 1.0
		if !p.IsRepost() {
			originality = 2.0
		}

		score := w.OriginalInfluence*influence + w.OriginalRecency*1.0 + w.OriginalOriginality*originality
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	return &chain[best]
}

// viralCandidates returns the top third of posts by engagement, at least one
func viralCandidates(posts []post.Post) []post.Post {
	sorted := make([]post.Post, len(posts))
	copy(sorted, posts)

	sort.SliceStable(sorted, func(i, j int) bool {
		ei, ej := sorted[i].EngagementSum(), sorted[j].EngagementSum()
		if ei != ej {
			return ei > ej
		}
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})

	count := len(sorted) / 3
	if count < 1 {
		count = 1
	}
	return sorted[:count]
}

// dedupeSort removes duplicate post ids and orders the chain by timestamp
// ascending, ties broken by id
func dedupeSort(posts []post.Post) []post.Post {
	seen := make(map[string]bool, len(posts))
	unique := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		unique = append(unique, p)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if !unique[i].Timestamp.Equal(unique[j].Timestamp) {
			return unique[i].Timestamp.Before(unique[j].Timestamp)
		}
		return unique[i].ID < unique[j].ID
	})

	return unique
}

// detectKind classifies raw input: @handle, #hashtag, post URL, otherwise
// a handle
func detectKind(input string) tracking.Kind {
	switch {
	case strings.HasPrefix(input, "@"):
		return tracking.KindHandle
	case strings.HasPrefix(input, "#"):
		return tracking.KindHashtag
	case strings.Contains(input, "twitter.com") || strings.Contains(input, "x.com"):
		return tracking.KindPostURL
	case strings.HasPrefix(input, "http"):
		return tracking.KindPostURL
	default:
		return tracking.KindHandle
	}
}

var noisePattern = regexp.MustCompile(`https?://\S+|@\w+|#\w+`)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "can": true, "this": true, "that": true,
	"these": true, "those": true,
}

// searchQuery extracts the top key terms from content as an OR query
func searchQuery(content string) string {
	cleaned := noisePattern.ReplaceAllString(content, "")

	var terms []string
	for _, word := range strings.Fields(strings.ToLower(cleaned)) {
		if len(word) > 3 && !stopWords[word] {
			terms = append(terms, word)
			if len(terms) == 3 {
				break
			}
		}
	}

	return strings.Join(terms, " OR ")
}

var _ tracking.Tracer = (*Engine)(nil)
