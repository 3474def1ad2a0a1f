package coloring

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// Graph is an undirected graph over comparable vertices
type Graph[V cmp.Ordered] struct {
	adjacency map[V]map[V]struct{}
}

func NewGraph[V cmp.Ordered](vertices ...V) *Graph[V] {
	graph := &Graph[V]{adjacency: make(map[V]map[V]struct{})}
	for _, v := range vertices {
		graph.AddVertex(v)
	}
	return graph
}

func (graph *Graph[V]) AddVertex(v V) {
	if _, ok := graph.adjacency[v]; !ok {
		graph.adjacency[v] = make(map[V]struct{})
	}
}

func (graph *Graph[V]) AddEdge(a, b V) {
	graph.AddVertex(a)
	graph.AddVertex(b)
	if a == b {
		return
	}
	graph.adjacency[a][b] = struct{}{}
	graph.adjacency[b][a] = struct{}{}
}

func (graph *Graph[V]) HasEdge(a, b V) bool {
	_, ok := graph.adjacency[a][b]
	return ok
}

func (graph *Graph[V]) Degree(v V) int {
	return len(graph.adjacency[v])
}

// Vertices returns every vertex, sorted
func (graph *Graph[V]) Vertices() []V {
	vertices := lo.Keys(graph.adjacency)
	slices.Sort(vertices)
	return vertices
}

// Edges returns each edge once as a sorted pair, sorted
func (graph *Graph[V]) Edges() [][2]V {
	edges := [][2]V{}
	for _, a := range graph.Vertices() {
		for b := range graph.adjacency[a] {
			if a < b {
				edges = append(edges, [2]V{a, b})
			}
		}
	}
	slices.SortFunc(edges, func(x, y [2]V) int {
		return cmp.Or(cmp.Compare(x[0], y[0]), cmp.Compare(x[1], y[1]))
	})
	return edges
}

// Greedy colors the graph visiting vertices by descending degree (ties broken by vertex order) and giving
// each the smallest color unused by its already colored neighbours. Colors start at 0.
func Greedy[V cmp.Ordered](graph *Graph[V]) map[V]int {
	vertices := graph.Vertices()
	slices.SortStableFunc(vertices, func(a, b V) int {
		return cmp.Compare(graph.Degree(b), graph.Degree(a))
	})

	colors := make(map[V]int, len(vertices))
	for _, v := range vertices {
		used := map[int]bool{}
		for neighbour := range graph.adjacency[v] {
			if color, ok := colors[neighbour]; ok {
				used[color] = true
			}
		}
		color := 0
		for used[color] {
			color++
		}
		colors[v] = color
	}
	return colors
}

// Classes groups vertices by color, each class sorted, classes ordered by color
func Classes[V cmp.Ordered](colors map[V]int) [][]V {
	if len(colors) == 0 {
		return [][]V{}
	}
	classes := make([][]V, lo.Max(lo.Values(colors))+1)
	for v, color := range colors {
		classes[color] = append(classes[color], v)
	}
	for _, class := range classes {
		slices.Sort(class)
	}
	return classes
}

// LargestClass is the size of the biggest set of vertices sharing a color, i.e. of pairwise non-adjacent
// vertices found by the coloring
func LargestClass[V cmp.Ordered](colors map[V]int) int {
	return lo.Max(lo.Map(Classes(colors), func(class []V, _ int) int { return len(class) }))
}
