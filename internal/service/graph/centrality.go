package graph

import (
	"sourcetrace/internal/domain/tracking"
)

// computeCentrality fills in degree, betweenness and closeness centrality
// for every node. Multi-edges collapse into simple adjacency first; all
// three measures are normalized to [0,1] and default to 0 for graphs too
// small to rank.
func (b *Builder) computeCentrality(g *tracking.Graph) {
	keys := sortedNodeKeys(g)
	n := len(keys)
	if n < 2 {
		return
	}

	index := make(map[string]int, n)
	for i, key := range keys {
		index[key] = i
	}

	out := make([][]int, n)
	inDegree := make([]int, n)
	outSeen := make([]map[int]bool, n)
	for i := range outSeen {
		outSeen[i] = make(map[int]bool)
	}

	for _, e := range g.Edges {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom || !okTo || from == to || outSeen[from][to] {
			continue
		}
		outSeen[from][to] = true
		out[from] = append(out[from], to)
		inDegree[to]++
	}

	degree := degreeCentrality(out, inDegree, n)
	betweenness := betweennessCentrality(out, n)
	closeness := closenessCentrality(out, n)

	for i, key := range keys {
		node := g.Nodes[key]
		node.Degree = degree[i]
		node.Betweenness = betweenness[i]
		node.Closeness = closeness[i]
	}
}

// degreeCentrality is (in+out) / (2*(n-1)) per node
func degreeCentrality(out [][]int, inDegree []int, n int) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = float64(len(out[i])+inDegree[i]) / float64(2*(n-1))
	}
	return scores
}

// betweennessCentrality runs Brandes' accumulation over shortest paths,
// normalized by (n-1)(n-2) for directed graphs
func betweennessCentrality(out [][]int, n int) []float64 {
	scores := make([]float64, n)
	if n < 3 {
		return scores
	}

	for s := 0; s < n; s++ {
		// BFS from s recording predecessors and path counts
		stack := make([]int, 0, n)
		preds := make([][]int, n)
		sigma := make([]float64, n)
		dist := make([]int, n)
		for i := range dist {
			dist[i] = -1
		}
		sigma[s] = 1
		dist[s] = 0

		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range out[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		// Accumulate dependencies in reverse BFS order
		delta := make([]float64, n)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				scores[w] += delta[w]
			}
		}
	}

	norm := float64((n - 1) * (n - 2))
	for i := range scores {
		scores[i] /= norm
	}
	return scores
}

// closenessCentrality is the inverse mean shortest-path distance over the
// reachable set, scaled by the reachable fraction
func closenessCentrality(out [][]int, n int) []float64 {
	scores := make([]float64, n)

	for s := 0; s < n; s++ {
		dist := make([]int, n)
		for i := range dist {
			dist[i] = -1
		}
		dist[s] = 0

		total := 0
		reached := 0
		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range out[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					total += dist[w]
					reached++
					queue = append(queue, w)
				}
			}
		}

		if reached > 0 && total > 0 {
			scores[s] = float64(reached) / float64(total) * float64(reached) / float64(n-1)
		}
	}

	return scores
}
