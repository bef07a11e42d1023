package tracking

import "time"

// RateLimitConfig bounds how fast the gateway may call a platform,
// independently of the session budget
type RateLimitConfig struct {
	Count  int
	Window time.Duration
}

// Weights holds the scoring constants of the engine. The values below are
// inherited defaults, not physical laws; callers may tune them.
type Weights struct {
	// Origin score per graph node
	OriginDegree      float64
	OriginBetweenness float64
	OriginCloseness   float64

	// Original-post selection for handle/hashtag traces
	OriginalInfluence   float64
	OriginalRecency     float64
	OriginalOriginality float64

	// Cluster evidence strength
	EvidenceSimilarity float64
	EvidenceVolume     float64
	EvidenceGeographic float64
	EvidenceTemporal   float64

	// Engagement sum at which a post counts as fully influential
	InfluenceEngagementCap float64
}

// Config holds the per-session tuning knobs of a tracing run
type Config struct {
	Budget              int
	SimThreshold        float64
	HashtagSimThreshold float64
	MinClusterSize      int
	TimelineSize        int
	SearchSize          int
	RateLimit           RateLimitConfig
	Weights             Weights
}

// DefaultWeights returns the stock scoring constants
func DefaultWeights() Weights {
	return Weights{
		OriginDegree:           0.4,
		OriginBetweenness:      0.3,
		OriginCloseness:        0.3,
		OriginalInfluence:      0.4,
		OriginalRecency:        0.3,
		OriginalOriginality:    0.3,
		EvidenceSimilarity:     0.4,
		EvidenceVolume:         0.2,
		EvidenceGeographic:     0.2,
		EvidenceTemporal:       0.2,
		InfluenceEngagementCap: 1000,
	}
}

// DefaultConfig returns the stock session configuration
func DefaultConfig() Config {
	return Config{
		Budget:              50,
		SimThreshold:        0.7,
		HashtagSimThreshold: 0.6,
		MinClusterSize:      2,
		TimelineSize:        20,
		SearchSize:          10,
		RateLimit: RateLimitConfig{
			Count:  100,
			Window: 15 * time.Minute,
		},
		Weights: DefaultWeights(),
	}
}
