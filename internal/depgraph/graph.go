// Package depgraph records which signatures each declaration consulted
// while being checked. The reverse index answers "who must be rechecked
// when X changes".
package depgraph

import (
	"sort"
	"sync"
)

// Edge is one "From depended on To" fact.
type Edge struct {
	From string
	To   string
}

// Graph is an edge set safe for concurrent writers; checker goroutines feed
// it through the variance.DepSink contract.
type Graph struct {
	mu      sync.Mutex
	forward map[string]map[string]struct{}
	reverse map[string]map[string]struct{}
	count   int
}

func New() *Graph {
	return &Graph{
		forward: make(map[string]map[string]struct{}),
		reverse: make(map[string]map[string]struct{}),
	}
}

// Depend records one edge. Self-edges and repeats are collapsed.
func (g *Graph) Depend(from, to string) {
	if from == to || from == "" || to == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	fwd := g.forward[from]
	if fwd == nil {
		fwd = make(map[string]struct{})
		g.forward[from] = fwd
	}
	if _, dup := fwd[to]; dup {
		return
	}
	fwd[to] = struct{}{}
	rev := g.reverse[to]
	if rev == nil {
		rev = make(map[string]struct{})
		g.reverse[to] = rev
	}
	rev[from] = struct{}{}
	g.count++
}

// Len returns the number of distinct edges.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Edges returns all edges ordered by (From, To).
func (g *Graph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Edge, 0, g.count)
	for from, tos := range g.forward {
		for to := range tos {
			out = append(out, Edge{From: from, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// DependenciesOf returns the sorted names the declaration consulted.
func (g *Graph) DependenciesOf(from string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedKeys(g.forward[from])
}

// Dependents returns the sorted names that consulted the declaration.
func (g *Graph) Dependents(to string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedKeys(g.reverse[to])
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
