package opt

// NearestNeighbor builds a tour over all nodes of cost starting at start, repeatedly
// moving to the cheapest unvisited node. Ties go to the lowest index.
func NearestNeighbor(cost [][]float64, start int) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	visited := make([]bool, n)
	order := make([]int, 0, n)
	cur := start
	visited[cur] = true
	order = append(order, cur)
	for len(order) < n {
		next := -1
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if next == -1 || cost[cur][j] < cost[cur][next] {
				next = j
			}
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}
	return order
}

// ImproveOrder2Opt applies a simple 2-opt heuristic to reduce total path cost.
// The first node stays in place.
func ImproveOrder2Opt(cost [][]float64, order []int, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	best := append([]int(nil), order...)
	bestCost := PathCost(cost, best)
	n := len(order)
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 1; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				newOrder := twoOptSwap(best, i, k)
				c := PathCost(cost, newOrder)
				if c+1e-3 < bestCost {
					best = newOrder
					bestCost = c
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

// PathCost sums cost along consecutive nodes of order (open path).
func PathCost(cost [][]float64, order []int) float64 {
	total := 0.0
	for i := 0; i < len(order)-1; i++ {
		total += cost[order[i]][order[i+1]]
	}
	return total
}
