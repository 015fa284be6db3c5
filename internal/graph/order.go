package graph

import (
	"sort"
	"strings"
)

// successors returns link targets of id that are registered, sorted.
func (g *Graph) successors(id string) []string {
	var out []string
	for _, to := range g.Links(id) {
		if g.Has(to) {
			out = append(out, to)
		}
	}
	return out
}

// TopologicalOrder orders registered artifacts so every link source comes
// before its target. Ties break by id. It returns nil when the links
// contain a cycle. Links to unregistered ids are ignored.
func (g *Graph) TopologicalOrder() []string {
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = 0
	}
	for id := range g.nodes {
		for _, to := range g.successors(id) {
			indegree[to]++
		}
	}

	var ready []string
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, to := range g.successors(id) {
			indegree[to]--
			if indegree[to] == 0 {
				ready = insertSorted(ready, to)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil
	}
	return order
}

func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// Cycles returns the cycles found by a depth-first search over links,
// visiting roots and successors in id order. Each cycle starts at its
// lowest id and appears once.
func (g *Graph) Cycles() [][]string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.nodes))
	var (
		stack  []string
		cycles [][]string
		seen   = make(map[string]bool)
	)

	var visit func(id string)
	visit = func(id string) {
		state[id] = onStack
		stack = append(stack, id)
		for _, to := range g.successors(id) {
			switch state[to] {
			case unvisited:
				visit(to)
			case onStack:
				start := len(stack) - 1
				for stack[start] != to {
					start--
				}
				c := rotateToMin(stack[start:])
				key := joinKey(c)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, c)
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
	}

	for _, id := range g.IDs() {
		if state[id] == unvisited {
			visit(id)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return joinKey(cycles[i]) < joinKey(cycles[j]) })
	return cycles
}

// HasCycle reports whether the links contain any cycle.
func (g *Graph) HasCycle() bool {
	return g.TopologicalOrder() == nil
}

func rotateToMin(path []string) []string {
	lo := 0
	for i, id := range path {
		if id < path[lo] {
			lo = i
		}
	}
	out := make([]string, 0, len(path))
	out = append(out, path[lo:]...)
	out = append(out, path[:lo]...)
	return out
}

func joinKey(c []string) string {
	return strings.Join(c, "\x00")
}
