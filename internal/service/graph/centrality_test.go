package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sourcetrace/internal/domain/post"
	"sourcetrace/internal/domain/tracking"
)

func TestCentralityOnPathGraph(t *testing.T) {
	// a -> b -> c via reply chains
	pa := authoredPost("p1", "a", 0)
	pb := authoredPost("p2", "b", 10)
	pb.References = []post.Reference{{Kind: post.ReferenceReply, TargetPostID: "p3"}}
	pc := authoredPost("p3", "c", 20)
	pc.References = []post.Reference{{Kind: post.ReferenceReply, TargetPostID: "p1"}}

	// Edges point b -> c -> a; b is the only source, a the only sink
	g, _ := NewBuilder(tracking.DefaultWeights()).Build([]post.Post{pa, pb, pc}, nil)
	require.Len(t, g.Nodes, 3)

	a := g.Nodes["twitter:a"]
	b := g.Nodes["twitter:b"]
	c := g.Nodes["twitter:c"]

	// Degree: endpoints have one incident edge, the middle node two
	assert.InDelta(t, 0.25, a.Degree, 1e-9)
	assert.InDelta(t, 0.25, b.Degree, 1e-9)
	assert.InDelta(t, 0.5, c.Degree, 1e-9)

	// Only c lies on a shortest path between other nodes (b -> a),
	// normalized by (n-1)(n-2) = 2
	assert.InDelta(t, 0.5, c.Betweenness, 1e-9)
	assert.Equal(t, 0.0, a.Betweenness)
	assert.Equal(t, 0.0, b.Betweenness)

	// Closeness: b reaches both others at distances 1 and 2
	assert.InDelta(t, 2.0/3.0*1.0, b.Closeness, 1e-9)
	// c reaches only a at distance 1
	assert.InDelta(t, 1.0*0.5, c.Closeness, 1e-9)
	assert.Equal(t, 0.0, a.Closeness)
}

func TestCentralityDuplicateEdgesCollapse(t *testing.T) {
	p1 := authoredPost("p1", "alice", 0)
	p2 := authoredPost("p2", "bob", 10)
	p2.References = []post.Reference{{Kind: post.ReferenceRepost, TargetPostID: "p1"}}
	p3 := authoredPost("p3", "bob", 20)
	p3.References = []post.Reference{{Kind: post.ReferenceQuote, TargetPostID: "p1"}}

	g, _ := NewBuilder(tracking.DefaultWeights()).Build([]post.Post{p1, p2, p3}, nil)

	// Two reference edges exist but adjacency counts bob -> alice once,
	// so each of the two nodes has a single incident edge
	assert.Len(t, g.Edges, 2)
	assert.InDelta(t, 0.5, g.Nodes["twitter:alice"].Degree, 1e-9)
	assert.InDelta(t, 0.5, g.Nodes["twitter:bob"].Degree, 1e-9)
}

func TestCentralitySingleNode(t *testing.T) {
	p := post.Post{
		ID:        "p1",
		Platform:  "twitter",
		AuthorID:  "solo",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	g, candidates := NewBuilder(tracking.DefaultWeights()).Build([]post.Post{p}, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, 0.0, g.Nodes["twitter:solo"].Degree)
	assert.Equal(t, 0.0, candidates[0].OriginScore)
}
