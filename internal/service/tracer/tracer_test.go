package tracer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sourcetrace/internal/domain/post"
	"sourcetrace/internal/domain/tracking"
)

// scriptedClient serves canned platform data for engine tests
type scriptedClient struct {
	posts     map[string]*post.Post
	timelines map[string][]post.Post
	searches  []post.Post
}

func (c *scriptedClient) Platform() string { return "twitter" }

func (c *scriptedClient) FetchPostByID(ctx context.Context, id string) (*post.Post, error) {
	return c.posts[id], nil
}

func (c *scriptedClient) FetchTimeline(ctx context.Context, handle string, maxResults int) ([]post.Post, error) {
	return c.timelines[handle], nil
}

func (c *scriptedClient) SearchTerm(ctx context.Context, term string, maxResults int, before *time.Time) ([]post.Post, error) {
	return c.searches, nil
}

// keywordProvider scores 0.9 when both texts share a topic keyword
type keywordProvider struct{}

func (keywordProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	for _, topic := range []string{"eclipse", "weather"} {
		if strings.Contains(a, topic) && strings.Contains(b, topic) {
			return 0.9, nil
		}
	}
	return 0, nil
}

func (keywordProvider) SimilarityMatrix(ctx context.Context, texts []string) ([][]float64, error) {
	return nil, nil
}

// zeroProvider never finds any similarity
type zeroProvider struct{}

func (zeroProvider) Similarity(ctx context.Context, a, b string) (float64, error) { return 0, nil }
func (zeroProvider) SimilarityMatrix(ctx context.Context, texts []string) ([][]float64, error) {
	return nil, nil
}

func fastConfig() tracking.Config {
	cfg := tracking.DefaultConfig()
	cfg.RateLimit = tracking.RateLimitConfig{Count: 1000, Window: time.Second}
	return cfg
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 1, hour, minute, 0, 0, time.UTC)
}

func eclipsePost(id, author string, ts time.Time) post.Post {
	return post.Post{
		ID:           id,
		Platform:     "twitter",
		AuthorID:     author,
		AuthorHandle: author,
		Content:      "massive solar eclipse report " + id,
		Timestamp:    ts,
	}
}

func TestTracePostURL(t *testing.T) {
	target := eclipsePost("100", "bob", at(10, 0))
	target.References = []post.Reference{{Kind: post.ReferenceRepost, TargetPostID: "50"}}
	original := eclipsePost("50", "alice", at(9, 0))

	earlier := eclipsePost("10", "carol", at(8, 0))
	later := eclipsePost("200", "dan", at(11, 0))
	unrelated := post.Post{
		ID: "20", Platform: "twitter", AuthorID: "erin",
		Content: "completely unrelated cats", Timestamp: at(8, 30),
	}

	client := &scriptedClient{
		posts:    map[string]*post.Post{"100": &target, "50": &original},
		searches: []post.Post{earlier, later, unrelated},
	}

	engine := NewEngine(client, keywordProvider{}, fastConfig())
	result, err := engine.Trace(context.Background(), "https://twitter.com/bob/status/100", tracking.KindAuto)
	require.NoError(t, err)

	assert.Equal(t, tracking.KindPostURL, result.Kind)

	// Chain ordered oldest first: similar earlier post, referenced
	// original, the target itself; later and unrelated posts excluded
	require.Len(t, result.Chain, 3)
	assert.Equal(t, "10", result.Chain[0].ID)
	assert.Equal(t, "50", result.Chain[1].ID)
	assert.Equal(t, "100", result.Chain[2].ID)

	require.NotNil(t, result.OriginalPost)
	assert.Equal(t, "10", result.OriginalPost.ID)

	// One lookup each for target and reference, one search
	assert.Equal(t, 3, result.CallsUsed)

	// 0.8 base + 0.15 for three links + 0.1 for one repost, clamped
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)

	require.NotNil(t, result.Graph)
	assert.Len(t, result.Graph.Nodes, 3)
	assert.Len(t, result.OriginCandidates, 3)

	assert.Equal(t, 3, result.Timeline.TotalPosts)
	assert.InDelta(t, 2.0, result.Timeline.TimeSpanHours, 1e-9)
	assert.NotEmpty(t, result.ID)
	assert.False(t, result.CompletedAt.IsZero())
}

func TestTraceHandle(t *testing.T) {
	timeline := make([]post.Post, 0, 6)
	for i := 0; i < 6; i++ {
		p := post.Post{
			ID:           string(rune('a' + i)),
			Platform:     "twitter",
			AuthorID:     "alice",
			AuthorHandle: "alice",
			Content:      "hi all",
			Timestamp:    at(9, i*5),
			Engagement:   map[string]int{"likes": 60 - i*10},
		}
		timeline = append(timeline, p)
	}

	client := &scriptedClient{timelines: map[string][]post.Post{"alice": timeline}}
	engine := NewEngine(client, zeroProvider{}, fastConfig())

	result, err := engine.Trace(context.Background(), "@alice", tracking.KindAuto)
	require.NoError(t, err)

	assert.Equal(t, tracking.KindHandle, result.Kind)

	// Top third of six timeline posts by engagement
	require.Len(t, result.Chain, 2)
	assert.Equal(t, "a", result.Chain[0].ID)
	assert.Equal(t, "b", result.Chain[1].ID)

	require.NotNil(t, result.OriginalPost)
	assert.Equal(t, "a", result.OriginalPost.ID)

	assert.Equal(t, 1, result.CallsUsed)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
}

func TestTraceHashtagClusters(t *testing.T) {
	batch := []post.Post{
		{ID: "e1", Platform: "twitter", AuthorID: "a1", Content: "eclipse one", Timestamp: at(8, 0)},
		{ID: "w1", Platform: "twitter", AuthorID: "a2", Content: "weather one", Timestamp: at(8, 10)},
		{ID: "e2", Platform: "twitter", AuthorID: "a3", Content: "eclipse two", Timestamp: at(8, 20)},
		{ID: "w2", Platform: "twitter", AuthorID: "a4", Content: "weather two", Timestamp: at(8, 30)},
	}

	client := &scriptedClient{searches: batch}
	engine := NewEngine(client, keywordProvider{}, fastConfig())

	result, err := engine.Trace(context.Background(), "#viral", tracking.KindAuto)
	require.NoError(t, err)

	assert.Equal(t, tracking.KindHashtag, result.Kind)
	require.Len(t, result.Clusters, 2)
	assert.Equal(t, []string{"e1", "e2"}, result.Clusters[0].MemberPostIDs)
	assert.Equal(t, []string{"w1", "w2"}, result.Clusters[1].MemberPostIDs)

	require.Len(t, result.Chain, 4)
	assert.Equal(t, "e1", result.Chain[0].ID)
	assert.Equal(t, "w2", result.Chain[3].ID)

	assert.InDelta(t, 0.6+0.05*4, result.Confidence, 1e-9)
}

func TestTraceHashtagFallbackWithoutClusters(t *testing.T) {
	batch := []post.Post{
		{ID: "x1", Platform: "twitter", AuthorID: "a1", Content: "alpha", Timestamp: at(8, 10)},
		{ID: "x2", Platform: "twitter", AuthorID: "a2", Content: "beta", Timestamp: at(8, 0)},
	}

	client := &scriptedClient{searches: batch}
	engine := NewEngine(client, zeroProvider{}, fastConfig())

	result, err := engine.Trace(context.Background(), "#quiet", tracking.KindHashtag)
	require.NoError(t, err)

	assert.Empty(t, result.Clusters)
	require.Len(t, result.Chain, 2)
	assert.Equal(t, "x2", result.Chain[0].ID)
}

func TestTraceInvalidInputs(t *testing.T) {
	engine := NewEngine(&scriptedClient{}, zeroProvider{}, fastConfig())

	cases := []struct {
		name  string
		input string
		kind  tracking.Kind
	}{
		{"empty input", "   ", tracking.KindAuto},
		{"unknown kind", "something", "bogus"},
		{"url without status id", "https://twitter.com/alice", tracking.KindPostURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Trace(context.Background(), tc.input, tc.kind)
			failure, ok := tracking.FailureOf(err)
			require.True(t, ok)
			assert.Equal(t, tracking.ReasonInvalidInput, failure.Reason)
		})
	}
}

func TestTraceNoDataFound(t *testing.T) {
	engine := NewEngine(&scriptedClient{}, zeroProvider{}, fastConfig())

	cases := []struct {
		name  string
		input string
		kind  tracking.Kind
	}{
		{"missing post", "https://twitter.com/bob/status/404", tracking.KindPostURL},
		{"empty timeline", "@nobody", tracking.KindHandle},
		{"empty search", "#deadtag", tracking.KindHashtag},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Trace(context.Background(), tc.input, tc.kind)
			failure, ok := tracking.FailureOf(err)
			require.True(t, ok)
			assert.Equal(t, tracking.ReasonNoDataFound, failure.Reason)
		})
	}
}

func TestTraceBudgetExhaustionDegradesToPartialChain(t *testing.T) {
	target := eclipsePost("100", "bob", at(10, 0))
	target.References = []post.Reference{{Kind: post.ReferenceRepost, TargetPostID: "50"}}
	original := eclipsePost("50", "alice", at(9, 0))

	client := &scriptedClient{
		posts:    map[string]*post.Post{"100": &target, "50": &original},
		searches: []post.Post{eclipsePost("10", "carol", at(8, 0))},
	}

	cfg := fastConfig()
	cfg.Budget = 1

	engine := NewEngine(client, keywordProvider{}, cfg)
	result, err := engine.Trace(context.Background(), "https://twitter.com/bob/status/100", tracking.KindPostURL)
	require.NoError(t, err)

	// Only the target lookup fits the budget; the reference fetch and
	// the similarity search are abandoned
	require.Len(t, result.Chain, 1)
	assert.Equal(t, "100", result.Chain[0].ID)
	assert.Equal(t, 1, result.CallsUsed)
}

func TestTraceIncludesExactThresholdMatches(t *testing.T) {
	target := eclipsePost("100", "bob", at(10, 0))

	client := &scriptedClient{
		posts:    map[string]*post.Post{"100": &target},
		searches: []post.Post{eclipsePost("10", "carol", at(8, 0))},
	}

	// keywordProvider scores eclipse pairs at exactly 0.9; a threshold of
	// 0.9 must still admit them
	cfg := fastConfig()
	cfg.SimThreshold = 0.9

	engine := NewEngine(client, keywordProvider{}, cfg)
	result, err := engine.Trace(context.Background(), "100", tracking.KindPostURL)
	require.NoError(t, err)

	require.Len(t, result.Chain, 2)
	assert.Equal(t, "10", result.Chain[0].ID)
}

func TestTraceDeduplicatesChain(t *testing.T) {
	target := eclipsePost("100", "bob", at(10, 0))

	client := &scriptedClient{
		posts: map[string]*post.Post{"100": &target},
		// The search echoes the target itself plus one earlier post
		searches: []post.Post{target, eclipsePost("10", "carol", at(8, 0))},
	}

	engine := NewEngine(client, keywordProvider{}, fastConfig())
	result, err := engine.Trace(context.Background(), "100", tracking.KindPostURL)
	require.NoError(t, err)

	require.Len(t, result.Chain, 2)
	assert.Equal(t, "10", result.Chain[0].ID)
	assert.Equal(t, "100", result.Chain[1].ID)
}

func TestDetectKind(t *testing.T) {
	cases := []struct {
		input string
		want  tracking.Kind
	}{
		{"@alice", tracking.KindHandle},
		{"#breaking", tracking.KindHashtag},
		{"https://twitter.com/a/status/1", tracking.KindPostURL},
		{"https://x.com/a/status/1", tracking.KindPostURL},
		{"http://example.com/post", tracking.KindPostURL},
		{"plainname", tracking.KindHandle},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, detectKind(tc.input), tc.input)
	}
}

func TestViralCandidates(t *testing.T) {
	posts := []post.Post{
		{ID: "low", Engagement: map[string]int{"likes": 1}, Timestamp: at(8, 0)},
		{ID: "high", Engagement: map[string]int{"likes": 100}, Timestamp: at(8, 1)},
		{ID: "mid", Engagement: map[string]int{"likes": 50}, Timestamp: at(8, 2)},
	}

	top := viralCandidates(posts)
	require.Len(t, top, 1)
	assert.Equal(t, "high", top[0].ID)

	// A single post is always its own candidate
	top = viralCandidates(posts[:1])
	require.Len(t, top, 1)
	assert.Equal(t, "low", top[0].ID)
}

func TestSearchQuery(t *testing.T) {
	query := searchQuery("The massive eclipse is visible https://t.co/x #eclipse @nasa today")
	assert.Equal(t, "massive OR eclipse OR visible", query)

	assert.Equal(t, "", searchQuery("a an the is"))
	assert.Equal(t, "", searchQuery(""))
}
