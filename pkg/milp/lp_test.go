package milp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteLP(t *testing.T) {
	// Arrange
	model := NewModel("lp")
	x := model.NewBool("x")
	y := model.NewBool("y")
	z := model.NewInt("z", 0, 4)
	model.AddConstraint(Expr(x, y).Minus(Expr(z).Scale(2)), LessEqual, 1, testTag)
	model.AddToGenericCost(Expr(y).Scale(3), 0)

	// Act
	var builder strings.Builder
	err := WriteLP(&builder, model)

	// Assert
	assert.NoError(t, err)
	lp := builder.String()
	assert.Contains(t, lp, "Minimize\n obj: 0 x0 + 3 x1 + 0 x2\n")
	assert.Contains(t, lp, " c0: 1 x0 + 1 x1 - 2 x2 <= 1\n")
	assert.Contains(t, lp, " 0 <= x2 <= 4\n")
	assert.Contains(t, lp, "Binaries\n x0 x1 \n")
	assert.Contains(t, lp, "Generals\n x2 \n")
	assert.True(t, strings.HasSuffix(lp, "End\n"))
}

func TestWriteLPWithoutConstraints(t *testing.T) {
	// Arrange
	model := NewModel("empty")
	model.NewBool("x")

	// Act
	var builder strings.Builder
	err := WriteLP(&builder, model)

	// Assert
	assert.NoError(t, err)
	assert.Contains(t, builder.String(), " dummy: x0 >= 0\n")
}
