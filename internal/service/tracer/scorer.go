package tracer

import (
	"math"

	"sourcetrace/internal/domain/post"
	"sourcetrace/internal/domain/tracking"
)

// confidence scores how trustworthy a finished chain is: a base per input
// kind, boosted by chain length and by the number of reposts in the chain,
// clamped to [0,1]
func confidence(kind tracking.Kind, chain []post.Post) float64 {
	if len(chain) == 0 {
		return 0
	}

	base := map[tracking.Kind]float64{
		tracking.KindPostURL: 0.8,
		tracking.KindHandle:  0.7,
		tracking.KindHashtag: 0.6,
	}[kind]

	score := base +
		math.Min(0.05*float64(len(chain)), 0.2) +
		math.Min(0.1*float64(repostCount(chain)), 0.2)

	return math.Max(0, math.Min(score, 1))
}

// timelineStats describes the temporal shape of the chain. The chain is
// already ordered by timestamp ascending.
func timelineStats(chain []post.Post) tracking.TimelineStats {
	stats := tracking.TimelineStats{
		TotalPosts:         len(chain),
		HourlyDistribution: make(map[int]int),
	}
	if len(chain) == 0 {
		return stats
	}

	stats.FirstPostTime = chain[0].Timestamp
	stats.LastPostTime = chain[len(chain)-1].Timestamp
	stats.TimeSpanHours = stats.LastPostTime.Sub(stats.FirstPostTime).Hours()
	stats.SpreadVelocity = float64(len(chain)) / math.Max(stats.TimeSpanHours, 1)

	for _, p := range chain {
		stats.HourlyDistribution[p.Timestamp.Hour()]++
	}
	peakHour, peakCount := 0, -1
	for hour := 0; hour < 24; hour++ {
		if count := stats.HourlyDistribution[hour]; count > peakCount {
			peakHour, peakCount = hour, count
		}
	}
	stats.PeakActivityHour = peakHour

	if len(chain) > 1 {
		totalMinutes := 0.0
		for i := 1; i < len(chain); i++ {
			totalMinutes += chain[i].Timestamp.Sub(chain[i-1].Timestamp).Minutes()
		}
		stats.AvgIntervalMinutes = totalMinutes / float64(len(chain)-1)
	}

	return stats
}

// influenceStats aggregates engagement per author across the chain
func influenceStats(chain []post.Post) tracking.InfluenceStats {
	stats := tracking.InfluenceStats{
		Authors: make(map[string]tracking.AuthorInfluence),
	}
	if len(chain) == 0 {
		return stats
	}

	for _, p := range chain {
		engagement := p.EngagementSum()
		stats.TotalEngagement += engagement

		author := stats.Authors[p.AuthorKey()]
		author.Handle = p.AuthorHandle
		author.TotalEngagement += engagement
		author.PostCount++
		stats.Authors[p.AuthorKey()] = author
	}

	for key, author := range stats.Authors {
		author.AvgEngagement = float64(author.TotalEngagement) / float64(author.PostCount)
		author.InfluenceScore = author.AvgEngagement * math.Log(float64(author.PostCount)+1)
		stats.Authors[key] = author
	}

	stats.AvgEngagement = float64(stats.TotalEngagement) / float64(len(chain))
	stats.UniqueAuthors = len(stats.Authors)

	reposts := repostCount(chain)
	originals := len(chain) - reposts
	stats.ViralCoefficient = float64(reposts) / math.Max(float64(originals), 1)

	return stats
}

func repostCount(chain []post.Post) int {
	count := 0
	for _, p := range chain {
		if p.IsRepost() {
			count++
		}
	}
	return count
}
