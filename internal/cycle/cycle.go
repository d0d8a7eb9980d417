// Package cycle finds circular dependencies among distributions that
// never reached the installed state. Edges follow requirements: A -> B
// iff a package A requires is provided by B.
package cycle

import "sort"

type node struct {
	distfile  string
	distvname string
	provides  []string
	requires  []string
}

// Detector accumulates (distfile, provides, requires) triples, then
// reports every distribution sitting on a strongly-connected component
// of size > 1, or on a self-loop.
type Detector struct {
	nodes     []node
	byDist    map[string]int
	providers map[string][]int // package -> providing node ids
	adj       [][]int
	finalized bool
}

// New creates an empty detector.
func New() *Detector {
	return &Detector{
		byDist:    make(map[string]int),
		providers: make(map[string][]int),
	}
}

// Add registers one distribution and its dependency interface.
func (d *Detector) Add(distfile, distvname string, provides, requires []string) {
	if _, ok := d.byDist[distfile]; ok {
		return
	}
	id := len(d.nodes)
	d.byDist[distfile] = id
	d.nodes = append(d.nodes, node{
		distfile:  distfile,
		distvname: distvname,
		provides:  provides,
		requires:  requires,
	})
	for _, pkg := range provides {
		d.providers[pkg] = append(d.providers[pkg], id)
	}
}

// Finalize builds the dependency graph. Add must not be called after.
func (d *Detector) Finalize() {
	d.adj = make([][]int, len(d.nodes))
	for i, n := range d.nodes {
		seen := make(map[int]bool)
		for _, pkg := range n.requires {
			for _, to := range d.providers[pkg] {
				if !seen[to] {
					seen[to] = true
					d.adj[i] = append(d.adj[i], to)
				}
			}
		}
		sort.Ints(d.adj[i])
	}
	d.finalized = true
}

// Detect returns, for every distribution on a cycle, the cycle path as a
// sequence of distvnames ending where it starts. Within a cycle the
// lexicographically smallest rotation is reported, so the output is
// deterministic regardless of insertion order.
func (d *Detector) Detect() map[string][]string {
	if !d.finalized {
		d.Finalize()
	}

	result := make(map[string][]string)
	for _, scc := range d.tarjan() {
		if len(scc) == 1 && !d.hasEdge(scc[0], scc[0]) {
			continue
		}
		members := make(map[int]bool, len(scc))
		for _, id := range scc {
			members[id] = true
		}
		for _, id := range scc {
			if path := d.cycleFrom(id, members); path != nil {
				result[d.nodes[id].distfile] = canonical(path)
			}
		}
	}
	return result
}

func (d *Detector) hasEdge(from, to int) bool {
	for _, v := range d.adj[from] {
		if v == to {
			return true
		}
	}
	return false
}

// cycleFrom finds a shortest cycle through start inside the component,
// returned as distvnames with the start repeated at the end.
func (d *Detector) cycleFrom(start int, members map[int]bool) []string {
	prev := make(map[int]int)
	queue := []int{start}
	visited := map[int]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range d.adj[cur] {
			if next == start {
				path := []int{cur}
				for at := cur; at != start; at = prev[at] {
					path = append(path, prev[at])
				}
				names := make([]string, 0, len(path)+1)
				for i := len(path) - 1; i >= 0; i-- {
					names = append(names, d.nodes[path[i]].distvname)
				}
				names = append(names, d.nodes[start].distvname)
				return names
			}
			if members[next] && !visited[next] {
				visited[next] = true
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// canonical rotates a cycle path (whose last element repeats the first)
// to its lexicographically smallest rotation.
func canonical(path []string) []string {
	ring := path[:len(path)-1]
	best := 0
	for i := 1; i < len(ring); i++ {
		if rotationLess(ring, i, best) {
			best = i
		}
	}
	out := make([]string, 0, len(path))
	for i := 0; i < len(ring); i++ {
		out = append(out, ring[(best+i)%len(ring)])
	}
	out = append(out, ring[best])
	return out
}

func rotationLess(ring []string, a, b int) bool {
	for i := 0; i < len(ring); i++ {
		x := ring[(a+i)%len(ring)]
		y := ring[(b+i)%len(ring)]
		if x != y {
			return x < y
		}
	}
	return false
}

// tarjan returns the strongly-connected components of the graph.
func (d *Detector) tarjan() [][]int {
	n := len(d.nodes)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var (
		counter int
		stack   []int
		sccs    [][]int
		visit   func(v int)
	)
	visit = func(v int) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range d.adj[v] {
			if index[w] == -1 {
				visit(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && index[w] < lowlink[v] {
				lowlink[v] = index[w]
			}
		}

		if lowlink[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			visit(v)
		}
	}
	return sccs
}
