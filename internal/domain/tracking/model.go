package tracking

import (
	"time"

	"sourcetrace/internal/domain/post"
)

// Kind identifies how a tracing input should be interpreted
type Kind string

const (
	KindPostURL Kind = "post_url"
	KindHandle  Kind = "handle"
	KindHashtag Kind = "hashtag"
	KindAuto    Kind = "auto"
)

// EdgeKind classifies an edge in the propagation graph
type EdgeKind string

const (
	EdgeReference    EdgeKind = "reference"
	EdgeMention      EdgeKind = "mention"
	EdgeCooccurrence EdgeKind = "cluster_cooccurrence"
)

// Node represents an author in the propagation graph
type Node struct {
	AuthorID     string
	AuthorHandle string
	Platform     string
	PostCount    int
	EarliestPost time.Time
	Degree       float64
	Betweenness  float64
	Closeness    float64
	OriginScore  float64
}

// Edge represents a directed interaction between two authors
type Edge struct {
	From      string
	To        string
	Kind      EdgeKind
	Weight    float64
	Timestamp time.Time
}

// Graph is the directed propagation graph built per tracing session.
// Nodes are keyed by the author key (platform:author_id).
type Graph struct {
	Nodes map[string]*Node
	Edges []Edge
}

// OriginCandidate ranks an author as a likely source of the traced content
type OriginCandidate struct {
	AuthorID       string
	AuthorHandle   string
	OriginScore    float64
	EarliestPostID string
	InfluenceScore float64
}

// ClusterInfluence aggregates engagement across a cluster's members
type ClusterInfluence struct {
	TotalEngagement int
	UniqueAuthors   int
	AuthorDiversity float64
}

// Cluster groups near-duplicate posts detected in one batch
type Cluster struct {
	ID                  string
	MemberPostIDs       []string
	AvgSimilarity       float64
	EarliestPostID      string
	GeographicSpreadKm  float64
	TemporalSpreadHours float64
	Influence           ClusterInfluence
	EvidenceStrength    float64
}

// TimelineStats describes the temporal shape of a propagation chain
type TimelineStats struct {
	TotalPosts         int
	TimeSpanHours      float64
	SpreadVelocity     float64
	AvgIntervalMinutes float64
	PeakActivityHour   int
	HourlyDistribution map[int]int
	FirstPostTime      time.Time
	LastPostTime       time.Time
}

// AuthorInfluence aggregates one author's contribution to a chain
type AuthorInfluence struct {
	Handle          string
	TotalEngagement int
	PostCount       int
	AvgEngagement   float64
	InfluenceScore  float64
}

// InfluenceStats describes engagement across a propagation chain
type InfluenceStats struct {
	TotalEngagement  int
	AvgEngagement    float64
	UniqueAuthors    int
	Authors          map[string]AuthorInfluence
	ViralCoefficient float64
}

// Result is the output aggregate of one tracing session
type Result struct {
	ID               string
	Input            string
	Kind             Kind
	OriginalPost     *post.Post
	Chain            []post.Post
	Clusters         []Cluster
	Graph            *Graph
	OriginCandidates []OriginCandidate
	Confidence       float64
	CallsUsed        int
	Timeline         TimelineStats
	Influence        InfluenceStats
	ProcessingTime   time.Duration
	CompletedAt      time.Time
}
