package cluster

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"

	"sourcetrace/internal/domain/post"
	"sourcetrace/internal/domain/tracking"
	"sourcetrace/internal/service/similarity"
)

// Detector groups a batch of posts into near-duplicate clusters. Posts are
// neighbors when their similarity meets the threshold; connected components
// of the neighbor relation become clusters, and components smaller than the
// minimum size are discarded as noise.
type Detector struct {
	oracle  *similarity.Oracle
	weights tracking.Weights
}

// NewDetector creates a cluster detector for one tracing session
func NewDetector(oracle *similarity.Oracle, weights tracking.Weights) *Detector {
	return &Detector{
		oracle:  oracle,
		weights: weights,
	}
}

// DetectClusters partitions a batch of posts into clusters. A batch smaller
// than minClusterSize yields no clusters.
func (d *Detector) DetectClusters(ctx context.Context, posts []post.Post, simThreshold float64, minClusterSize int) []tracking.Cluster {
	if minClusterSize < 1 {
		minClusterSize = 1
	}
	if len(posts) < minClusterSize {
		return nil
	}

	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = p.Content
	}
	matrix := d.oracle.SimilarityMatrix(ctx, texts)

	// Union posts transitively through the neighbor relation
	parent := make([]int, len(posts))
	for i := range parent {
		parent[i] = i
	}
	for i := 0; i < len(posts); i++ {
		for j := i + 1; j < len(posts); j++ {
			if matrix[i][j] >= simThreshold {
				union(parent, i, j)
			}
		}
	}

	components := make(map[int][]int)
	for i := range posts {
		root := find(parent, i)
		components[root] = append(components[root], i)
	}

	var clusters []tracking.Cluster
	for _, members := range components {
		if len(members) < minClusterSize {
			continue
		}
		clusters = append(clusters, d.buildCluster(posts, members, matrix))
	}

	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.EarliestPostID != b.EarliestPostID {
			ta := postByID(posts, a.EarliestPostID).Timestamp
			tb := postByID(posts, b.EarliestPostID).Timestamp
			if !ta.Equal(tb) {
				return ta.Before(tb)
			}
		}
		return a.EarliestPostID < b.EarliestPostID
	})

	return clusters
}

func (d *Detector) buildCluster(posts []post.Post, members []int, matrix [][]float64) tracking.Cluster {
	// Deterministic member order: timestamp ascending, then id
	sort.Slice(members, func(i, j int) bool {
		a, b := posts[members[i]], posts[members[j]]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})

	memberIDs := make([]string, len(members))
	for i, idx := range members {
		memberIDs[i] = posts[idx].ID
	}

	c := tracking.Cluster{
		ID:             uuid.New().String(),
		MemberPostIDs:  memberIDs,
		EarliestPostID: memberIDs[0],
	}

	// Mean of pairwise similarities, self-pairs excluded
	if len(members) > 1 {
		sum := 0.0
		pairs := 0
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				sum += matrix[members[i]][members[j]]
				pairs++
			}
		}
		c.AvgSimilarity = sum / float64(pairs)
	} else {
		c.AvgSimilarity = 1.0
	}

	c.GeographicSpreadKm = maxPairwiseDistanceKm(posts, members)

	first := posts[members[0]].Timestamp
	last := posts[members[len(members)-1]].Timestamp
	c.TemporalSpreadHours = last.Sub(first).Hours()

	authors := make(map[string]struct{})
	totalEngagement := 0
	for _, idx := range members {
		authors[posts[idx].AuthorKey()] = struct{}{}
		totalEngagement += posts[idx].EngagementSum()
	}
	c.Influence = tracking.ClusterInfluence{
		TotalEngagement: totalEngagement,
		UniqueAuthors:   len(authors),
		AuthorDiversity: float64(len(authors)) / float64(len(members)),
	}

	w := d.weights
	c.EvidenceStrength = w.EvidenceSimilarity*c.AvgSimilarity +
		w.EvidenceVolume*math.Min(float64(len(members))/10, 1) +
		w.EvidenceGeographic*math.Min(c.GeographicSpreadKm/1000, 1) +
		w.EvidenceTemporal*math.Min(c.TemporalSpreadHours/24, 1)

	return c
}

// maxPairwiseDistanceKm returns the greatest distance between any two
// located members, or 0 when fewer than two members carry locations
func maxPairwiseDistanceKm(posts []post.Post, members []int) float64 {
	var located []*post.Location
	for _, idx := range members {
		if posts[idx].Location != nil {
			located = append(located, posts[idx].Location)
		}
	}

	maxKm := 0.0
	for i := 0; i < len(located); i++ {
		for j := i + 1; j < len(located); j++ {
			if km := distanceKm(*located[i], *located[j]); km > maxKm {
				maxKm = km
			}
		}
	}
	return maxKm
}

// distanceKm applies the Haversine formula for distance on a sphere
func distanceKm(a, b post.Location) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func postByID(posts []post.Post, id string) post.Post {
	for _, p := range posts {
		if p.ID == id {
			return p
		}
	}
	return post.Post{}
}

func find(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}

func union(parent []int, a, b int) {
	ra, rb := find(parent, a), find(parent, b)
	if ra != rb {
		parent[rb] = ra
	}
}
