package graph

import (
	"math"
	"sort"
	"strings"

	"sourcetrace/internal/domain/post"
	"sourcetrace/internal/domain/tracking"
)

// Builder constructs the directed propagation graph for one tracing
// session: a node per author, edges for explicit references, resolvable
// mentions and cluster co-membership. After construction it computes
// centrality per node and ranks origin candidates.
type Builder struct {
	weights tracking.Weights
}

// NewBuilder creates a propagation graph builder
func NewBuilder(weights tracking.Weights) *Builder {
	return &Builder{weights: weights}
}

// Build assembles the graph from a post batch and any clusters detected
// over it, and returns the ranked origin candidates alongside. A graph
// with zero edges is valid; centrality defaults to 0.
func (b *Builder) Build(posts []post.Post, clusters []tracking.Cluster) (*tracking.Graph, []tracking.OriginCandidate) {
	g := &tracking.Graph{
		Nodes: make(map[string]*tracking.Node),
	}

	byID := make(map[string]post.Post, len(posts))
	authorOf := make(map[string]string, len(posts))
	earliestPostID := make(map[string]string)
	totalEngagement := make(map[string]int)
	handleToAuthor := make(map[string]string)

	for _, p := range posts {
		byID[p.ID] = p
		key := p.AuthorKey()
		authorOf[p.ID] = key

		node, ok := g.Nodes[key]
		if !ok {
			node = &tracking.Node{
				AuthorID:     p.AuthorID,
				AuthorHandle: p.AuthorHandle,
				Platform:     p.Platform,
				EarliestPost: p.Timestamp,
			}
			g.Nodes[key] = node
			earliestPostID[key] = p.ID
		}
		node.PostCount++
		totalEngagement[key] += p.EngagementSum()

		if p.Timestamp.Before(node.EarliestPost) ||
			(p.Timestamp.Equal(node.EarliestPost) && p.ID < earliestPostID[key]) {
			node.EarliestPost = p.Timestamp
			earliestPostID[key] = p.ID
		}

		if p.AuthorHandle != "" {
			handle := strings.ToLower(p.AuthorHandle)
			if existing, ok := handleToAuthor[handle]; !ok || key < existing {
				handleToAuthor[handle] = key
			}
		}
	}

	// Explicit reference edges, weighted by the referencing post's engagement
	referenced := make(map[[2]string]bool)
	for _, p := range posts {
		from := authorOf[p.ID]
		for _, ref := range p.References {
			target, ok := byID[ref.TargetPostID]
			if !ok {
				continue
			}
			to := authorOf[target.ID]
			if from == to {
				continue
			}
			g.Edges = append(g.Edges, tracking.Edge{
				From:      from,
				To:        to,
				Kind:      tracking.EdgeReference,
				Weight:    math.Log10(math.Max(float64(p.EngagementSum()), 1) + 1),
				Timestamp: p.Timestamp,
			})
			referenced[[2]string{from, to}] = true
			referenced[[2]string{to, from}] = true
		}
	}

	// Mention edges for handles resolvable within the batch
	for _, p := range posts {
		from := authorOf[p.ID]
		for _, mention := range p.Mentions {
			to, ok := handleToAuthor[strings.ToLower(strings.TrimPrefix(mention, "@"))]
			if !ok || from == to {
				continue
			}
			g.Edges = append(g.Edges, tracking.Edge{
				From:      from,
				To:        to,
				Kind:      tracking.EdgeMention,
				Weight:    0.5,
				Timestamp: p.Timestamp,
			})
		}
	}

	// Cluster co-membership edges between authors with no explicit reference
	for _, c := range clusters {
		authors := make([]string, 0, len(c.MemberPostIDs))
		seen := make(map[string]bool)
		for _, id := range c.MemberPostIDs {
			key, ok := authorOf[id]
			if !ok || seen[key] {
				continue
			}
			seen[key] = true
			authors = append(authors, key)
		}

		for i := 0; i < len(authors); i++ {
			for j := i + 1; j < len(authors); j++ {
				a, bk := authors[i], authors[j]
				if referenced[[2]string{a, bk}] {
					continue
				}
				from, to := a, bk
				if g.Nodes[bk].EarliestPost.Before(g.Nodes[a].EarliestPost) {
					from, to = bk, a
				}
				g.Edges = append(g.Edges, tracking.Edge{
					From:      from,
					To:        to,
					Kind:      tracking.EdgeCooccurrence,
					Weight:    c.AvgSimilarity,
					Timestamp: g.Nodes[to].EarliestPost,
				})
			}
		}
	}

	b.computeCentrality(g)

	candidates := b.rankOrigins(g, earliestPostID, totalEngagement)
	return g, candidates
}

// rankOrigins scores every node and sorts descending by origin score,
// breaking ties by earliest authored post, then by smaller author id
func (b *Builder) rankOrigins(g *tracking.Graph, earliestPostID map[string]string, totalEngagement map[string]int) []tracking.OriginCandidate {
	w := b.weights

	engagementCap := w.InfluenceEngagementCap
	if engagementCap <= 0 {
		engagementCap = 1000
	}

	type scored struct {
		candidate tracking.OriginCandidate
		node      *tracking.Node
	}

	ranked := make([]scored, 0, len(g.Nodes))
	for _, key := range sortedNodeKeys(g) {
		node := g.Nodes[key]
		node.OriginScore = w.OriginDegree*node.Degree +
			w.OriginBetweenness*node.Betweenness +
			w.OriginCloseness*node.Closeness

		ranked = append(ranked, scored{
			candidate: tracking.OriginCandidate{
				AuthorID:       node.AuthorID,
				AuthorHandle:   node.AuthorHandle,
				OriginScore:    node.OriginScore,
				EarliestPostID: earliestPostID[key],
				InfluenceScore: math.Min(float64(totalEngagement[key])/engagementCap, 1),
			},
			node: node,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].candidate.OriginScore != ranked[j].candidate.OriginScore {
			return ranked[i].candidate.OriginScore > ranked[j].candidate.OriginScore
		}
		if !ranked[i].node.EarliestPost.Equal(ranked[j].node.EarliestPost) {
			return ranked[i].node.EarliestPost.Before(ranked[j].node.EarliestPost)
		}
		return ranked[i].candidate.AuthorID < ranked[j].candidate.AuthorID
	})

	candidates := make([]tracking.OriginCandidate, len(ranked))
	for i, s := range ranked {
		candidates[i] = s.candidate
	}
	return candidates
}

func sortedNodeKeys(g *tracking.Graph) []string {
	keys := make([]string, 0, len(g.Nodes))
	for key := range g.Nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
