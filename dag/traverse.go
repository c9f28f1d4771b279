package dag

import (
	"primedag/models"
	"primedag/repository"
)

// CalculateCumulativeWeight sums the node's own weight plus the weight
// of every node reachable through its children, each counted exactly
// once, using an explicit worklist instead of recursion.
func (g *Graph) CalculateCumulativeWeight(id string) (int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.nodes[id]; !ok {
		return 0, repository.ErrNotFound
	}
	return g.cumulativeWeightLocked(id), nil
}

func (g *Graph) cumulativeWeightLocked(id string) int64 {
	visited := map[string]struct{}{id: {}}
	stack := []string{id}
	var sum int64
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := g.nodes[cur]
		sum += node.Weight
		for _, cid := range node.Children {
			if _, seen := visited[cid]; seen {
				continue
			}
			visited[cid] = struct{}{}
			stack = append(stack, cid)
		}
	}
	return sum
}

// CalculateDepth returns 1 for a parentless node, otherwise one more
// than the deepest parent, memoized over an explicit worklist.
func (g *Graph) CalculateDepth(id string) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.nodes[id]; !ok {
		return 0, repository.ErrNotFound
	}
	memo := make(map[string]int)
	return g.depthLocked(id, memo), nil
}

func (g *Graph) depthLocked(id string, memo map[string]int) int {
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		if _, done := memo[cur]; done {
			stack = stack[:len(stack)-1]
			continue
		}
		node := g.nodes[cur]
		ready := true
		deepest := 0
		for _, pid := range node.Transaction.Parents {
			d, ok := memo[pid]
			if !ok {
				ready = false
				stack = append(stack, pid)
				continue
			}
			if d > deepest {
				deepest = d
			}
		}
		if ready {
			memo[cur] = deepest + 1
		}
	}
	return memo[id]
}

// UpdateConfidenceScores recomputes the confidence of every pending
// node and promotes those above the confirmation threshold. Status
// changes are handed to the persistence queue and not awaited.
func (g *Graph) UpdateConfidenceScores() {
	g.mu.Lock()
	var promoted []statusUpdate
	for id, node := range g.nodes {
		if node.Status != models.StatusPending {
			continue
		}
		cw := g.cumulativeWeightLocked(id)
		confidence := 0.4*clamp01(float64(cw)/1000) +
			0.4*(node.QuantumScore/100) +
			0.2*clamp01(float64(len(node.Children))/10)
		node.Confidence = confidence
		if confidence > confirmThreshold {
			node.Status = models.StatusConfirmed
			delete(g.tips, id)
			promoted = append(promoted, statusUpdate{
				id:         id,
				status:     models.StatusConfirmed,
				confidence: confidence,
			})
		}
	}
	g.mu.Unlock()

	for _, u := range promoted {
		g.enqueueStatusUpdate(u)
	}
}

// GetDagStats snapshots the graph shape: node count, maximum depth,
// tip count, and average branching factor.
func (g *Graph) GetDagStats() models.DagStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := models.DagStats{
		NodeCount: len(g.nodes),
		TipCount:  len(g.tips),
	}

	memo := make(map[string]int)
	totalChildren := 0
	for id, node := range g.nodes {
		if d := g.depthLocked(id, memo); d > stats.MaxDepth {
			stats.MaxDepth = d
		}
		totalChildren += len(node.Children)
	}
	if stats.NodeCount > 1 {
		stats.AvgBranchFactor = float64(totalChildren) / float64(stats.NodeCount-1)
	}
	return stats
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
