package milp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinExpr(t *testing.T) {
	t.Run("Builders do not mutate their operands", func(t *testing.T) {
		// Arrange
		a := Expr(0, 1)
		b := Expr(1, 2)

		// Act
		sum := a.Plus(b)
		difference := a.Minus(b)
		scaled := a.Scale(3)

		// Assert
		assert.Equal(t, 2, a.Len())
		assert.Equal(t, 2, b.Len())
		assert.Equal(t, 2.0, sum.Coef(1))
		assert.Equal(t, 0.0, difference.Coef(1))
		assert.Equal(t, 2, difference.Len(), "cancelled terms are removed")
		assert.Equal(t, 3.0, scaled.Coef(0))
	})

	t.Run("Constants are carried through sums", func(t *testing.T) {
		// Arrange
		expr := Expr(0)
		expr.AddConstant(2)

		// Act
		result := Sum(expr, Constant(3), Expr(0).Scale(-1))

		// Assert
		assert.True(t, result.IsConstant())
		assert.Equal(t, 5.0, result.Constant())
	})

	t.Run("Evaluation and bounds", func(t *testing.T) {
		// Arrange
		expr := Expr(0).Minus(Expr(1).Scale(2))
		expr.AddConstant(1)

		// Act
		value := expr.Eval([]float64{1, 1})
		minimum, maximum := expr.Bounds([]float64{0, 0}, []float64{1, 1})

		// Assert
		assert.Equal(t, 0.0, value)
		assert.Equal(t, -1.0, minimum)
		assert.Equal(t, 2.0, maximum)
	})

	t.Run("Terms are sorted by variable", func(t *testing.T) {
		// Arrange
		expr := Expr(4, 2, 7)

		// Act
		terms := expr.Terms()

		// Assert
		assert.Equal(t, []Term{{Var: 2, Coef: 1}, {Var: 4, Coef: 1}, {Var: 7, Coef: 1}}, terms)
		assert.Equal(t, "1 x2 + 1 x4 + 1 x7", expr.String())
	})
}
