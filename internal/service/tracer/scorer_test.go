package tracer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sourcetrace/internal/domain/post"
	"sourcetrace/internal/domain/tracking"
)

func TestConfidenceEmptyChain(t *testing.T) {
	assert.Equal(t, 0.0, confidence(tracking.KindPostURL, nil))
}

func TestConfidenceBaseByKind(t *testing.T) {
	chain := []post.Post{{ID: "1"}}

	assert.InDelta(t, 0.85, confidence(tracking.KindPostURL, chain), 1e-9)
	assert.InDelta(t, 0.75, confidence(tracking.KindHandle, chain), 1e-9)
	assert.InDelta(t, 0.65, confidence(tracking.KindHashtag, chain), 1e-9)
}

func TestConfidenceBoostsCapAndClamp(t *testing.T) {
	// 10 posts, all reposts: length boost and repost boost both cap at 0.2
	var chain []post.Post
	for i := 0; i < 10; i++ {
		chain = append(chain, post.Post{
			ID:         string(rune('a' + i)),
			References: []post.Reference{{Kind: post.ReferenceRepost, TargetPostID: "x"}},
		})
	}

	assert.Equal(t, 1.0, confidence(tracking.KindPostURL, chain))
	assert.InDelta(t, 0.6+0.2+0.2, confidence(tracking.KindHashtag, chain), 1e-9)
}

func TestTimelineStats(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	chain := []post.Post{
		{ID: "1", Timestamp: base},
		{ID: "2", Timestamp: base.Add(30 * time.Minute)},
		{ID: "3", Timestamp: base.Add(4 * time.Hour)},
	}

	stats := timelineStats(chain)

	assert.Equal(t, 3, stats.TotalPosts)
	assert.InDelta(t, 4.0, stats.TimeSpanHours, 1e-9)
	assert.InDelta(t, 0.75, stats.SpreadVelocity, 1e-9)
	assert.Equal(t, base, stats.FirstPostTime)
	assert.Equal(t, base.Add(4*time.Hour), stats.LastPostTime)

	// Two posts in the 09:00 hour, one at 13:00
	assert.Equal(t, map[int]int{9: 2, 13: 1}, stats.HourlyDistribution)
	assert.Equal(t, 9, stats.PeakActivityHour)

	// Intervals of 30 and 210 minutes
	assert.InDelta(t, 120.0, stats.AvgIntervalMinutes, 1e-9)
}

func TestTimelineStatsShortSpanVelocity(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	chain := []post.Post{
		{ID: "1", Timestamp: base},
		{ID: "2", Timestamp: base.Add(10 * time.Minute)},
	}

	// Spans under an hour measure velocity against one full hour
	stats := timelineStats(chain)
	assert.InDelta(t, 2.0, stats.SpreadVelocity, 1e-9)
}

func TestTimelineStatsEmpty(t *testing.T) {
	stats := timelineStats(nil)
	assert.Equal(t, 0, stats.TotalPosts)
	assert.Empty(t, stats.HourlyDistribution)
}

func TestInfluenceStats(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	chain := []post.Post{
		{
			ID: "1", Platform: "twitter", AuthorID: "alice", AuthorHandle: "alice",
			Timestamp: base, Engagement: map[string]int{"likes": 100},
		},
		{
			ID: "2", Platform: "twitter", AuthorID: "alice", AuthorHandle: "alice",
			Timestamp: base.Add(time.Hour), Engagement: map[string]int{"likes": 50},
			References: []post.Reference{{Kind: post.ReferenceRepost, TargetPostID: "x"}},
		},
		{
			ID: "3", Platform: "twitter", AuthorID: "bob", AuthorHandle: "bob",
			Timestamp: base.Add(2 * time.Hour), Engagement: map[string]int{"likes": 30},
		},
	}

	stats := influenceStats(chain)

	assert.Equal(t, 180, stats.TotalEngagement)
	assert.InDelta(t, 60.0, stats.AvgEngagement, 1e-9)
	assert.Equal(t, 2, stats.UniqueAuthors)

	require.Contains(t, stats.Authors, "twitter:alice")
	alice := stats.Authors["twitter:alice"]
	assert.Equal(t, 2, alice.PostCount)
	assert.Equal(t, 150, alice.TotalEngagement)
	assert.InDelta(t, 75.0, alice.AvgEngagement, 1e-9)
	assert.Greater(t, alice.InfluenceScore, stats.Authors["twitter:bob"].InfluenceScore)

	// One repost against two originals
	assert.InDelta(t, 0.5, stats.ViralCoefficient, 1e-9)
}

func TestInfluenceStatsEmpty(t *testing.T) {
	stats := influenceStats(nil)
	assert.Equal(t, 0, stats.TotalEngagement)
	assert.Empty(t, stats.Authors)
}
