package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	// Arrange
	var collector Collector

	// Act
	collector.Warn("r1", "Dependency", "course %v depends on itself", 4)
	collector.Warn("", "Snapshot", "no working date")

	// Assert
	warnings := collector.Warnings()
	assert.Equal(t, 2, collector.Len())
	assert.Equal(t, Warning{RuleID: "r1", Kind: "Dependency", Message: "course 4 depends on itself"}, warnings[0])
	assert.Equal(t, "Dependency[r1]: course 4 depends on itself", warnings[0].String())
	assert.Equal(t, "Snapshot: no working date", warnings[1].String())
}
