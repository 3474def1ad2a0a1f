package coloring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreedy(t *testing.T) {
	t.Run("Proper coloring", func(t *testing.T) {
		// Arrange: a 5-cycle needs 3 colors
		graph := NewGraph[int]()
		for i := range 5 {
			graph.AddEdge(i, (i+1)%5)
		}

		// Act
		colors := Greedy(graph)

		// Assert
		for _, edge := range graph.Edges() {
			assert.NotEqual(t, colors[edge[0]], colors[edge[1]], "edge %v", edge)
		}
		assert.Len(t, Classes(colors), 3)
	})

	t.Run("Highest degree first", func(t *testing.T) {
		// Arrange: a star centered on 9
		graph := NewGraph(1, 2, 3, 9)
		graph.AddEdge(9, 1)
		graph.AddEdge(9, 2)
		graph.AddEdge(9, 3)

		// Act
		colors := Greedy(graph)

		// Assert
		assert.Equal(t, 0, colors[9])
		assert.Equal(t, [][]int{{9}, {1, 2, 3}}, Classes(colors))
		assert.Equal(t, 3, LargestClass(colors))
	})

	t.Run("Isolated vertices share a color", func(t *testing.T) {
		// Arrange
		graph := NewGraph(4, 5, 6)

		// Act
		colors := Greedy(graph)

		// Assert
		assert.Equal(t, map[int]int{4: 0, 5: 0, 6: 0}, colors)
		assert.Equal(t, 3, LargestClass(colors))
	})

	t.Run("Empty graph", func(t *testing.T) {
		// Act
		colors := Greedy(NewGraph[int]())

		// Assert
		assert.Empty(t, colors)
		assert.Equal(t, 0, LargestClass(colors))
	})
}

func TestGraph(t *testing.T) {
	// Arrange
	graph := NewGraph[string]()

	// Act
	graph.AddEdge("b", "a")
	graph.AddEdge("a", "b")
	graph.AddEdge("c", "c")

	// Assert
	assert.True(t, graph.HasEdge("a", "b"))
	assert.False(t, graph.HasEdge("c", "c"))
	assert.Equal(t, [][2]string{{"a", "b"}}, graph.Edges())
	assert.Equal(t, []string{"a", "b", "c"}, graph.Vertices())
}
