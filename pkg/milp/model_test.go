package milp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testTag = Tag{Kind: "test", Rule: "r"}

// Enumerates every assignment of the first n variables
func assignments(n int) [][]float64 {
	result := [][]float64{}
	for mask := range 1 << n {
		values := make([]float64, n)
		for i := range n {
			if mask&(1<<i) != 0 {
				values[i] = 1
			}
		}
		result = append(result, values)
	}
	return result
}

func TestAddFloor(t *testing.T) {
	for floor := 0; floor <= 4; floor++ {
		// Arrange
		model := NewModel("floor")
		xs := []Var{model.NewBool("a"), model.NewBool("b"), model.NewBool("c")}

		// Act
		y := model.AddFloor(Expr(xs...), float64(floor), 3, "y", testTag)

		// Assert
		for _, values := range assignments(3) {
			sum := values[0] + values[1] + values[2]
			for _, yValue := range []float64{0, 1} {
				full := append(append([]float64{}, values...), yValue)
				feasible := len(model.Check(full)) == 0
				if sum >= float64(floor) {
					// y is forced to one
					assert.Equal(t, yValue == 1, feasible, "floor=%v sum=%v y=%v", floor, sum, yValue)
				} else if floor > 0 {
					// y is free, minimization drives it to zero
					assert.True(t, feasible, "floor=%v sum=%v y=%v", floor, sum, yValue)
				}
			}
		}
		assert.Equal(t, Var(3), y)
	}
}

func TestAddConjunct(t *testing.T) {
	// Arrange
	model := NewModel("conjunct")
	a, b := model.NewBool("a"), model.NewBool("b")

	// Act
	c := model.AddConjunct(a, b, "c", testTag)

	// Assert
	for _, values := range assignments(3) {
		feasible := len(model.Check(values)) == 0
		conjunct := values[a] == 1 && values[b] == 1
		assert.Equal(t, conjunct == (values[c] == 1), feasible, "values=%v", values)
	}
}

func TestAddConstraint(t *testing.T) {
	t.Run("Constants move to the right-hand side", func(t *testing.T) {
		// Arrange
		model := NewModel("constraint")
		x := model.NewBool("x")
		expr := Expr(x)
		expr.AddConstant(2)

		// Act
		model.AddConstraint(expr, LessEqual, 3, testTag)

		// Assert
		assert.Equal(t, 1, model.NumConstraints())
		assert.Equal(t, 1.0, model.Constraints()[0].RHS)
		assert.Equal(t, 0.0, model.Constraints()[0].Expr.Constant())
	})

	t.Run("Trivial constant constraints are dropped", func(t *testing.T) {
		// Arrange
		model := NewModel("constraint")

		// Act
		model.AddConstraint(Constant(0), LessEqual, 1, testTag)

		// Assert
		assert.Zero(t, model.NumConstraints())
	})

	t.Run("Impossible constant constraints are kept as violated", func(t *testing.T) {
		// Arrange
		model := NewModel("constraint")

		// Act
		model.AddConstraint(Constant(2), LessEqual, 1, testTag)

		// Assert
		assert.Len(t, model.Violated(), 1)
		assert.Len(t, model.Check(nil), 1)
	})
}

func TestCosts(t *testing.T) {
	// Arrange
	model := NewModel("costs")
	x, y := model.NewBool("x"), model.NewBool("y")

	// Act
	model.AddToTutorCost(3, Expr(x).Scale(2), 1)
	model.AddToTutorCost(3, Expr(y), 1)
	model.AddToGroupCost(5, Expr(y), AllPeriods)
	model.AddToGenericCost(Constant(1), 1)

	// Assert
	assert.Equal(t, 3, model.Costs().Len())
	assert.Equal(t, 2.0, model.Objective().Coef(x))
	assert.Equal(t, 2.0, model.Objective().Coef(y))
	assert.Equal(t, 1.0, model.Objective().Constant())
	assert.Equal(t, []BucketValue{
		{Bucket: Bucket{Owner: TutorOwner, Id: 3, Period: 1}, Value: 3},
		{Bucket: Bucket{Owner: GroupOwner, Id: 5, Period: AllPeriods}, Value: 1},
		{Bucket: Bucket{Owner: GenericOwner, Period: 1}, Value: 1},
	}, model.Costs().Evaluate([]float64{1, 1}))
}

func TestCostBucketsGet(t *testing.T) {
	// Arrange
	model := NewModel("costs")
	x, y := model.NewBool("x"), model.NewBool("y")
	model.AddToTutorCost(3, Expr(x), 1)
	bucket := Bucket{Owner: TutorOwner, Id: 3, Period: 1}

	// Act
	got := model.Costs().Get(bucket)
	got.AddTerm(y, 4)

	// Assert
	stored := model.Costs().Get(bucket)
	assert.Equal(t, 1, stored.Len())
	assert.Zero(t, stored.Coef(y))
	assert.Zero(t, model.Objective().Coef(y))
	assert.True(t, model.Costs().Get(Bucket{Owner: GroupOwner, Id: 3, Period: 1}).IsConstant())
}

func TestRestrict(t *testing.T) {
	// Arrange
	model := NewModel("restrict")
	x := model.NewBool("x")
	model.AddConstraint(Expr(x), Equal, 1, Tag{Kind: "one"})
	model.AddConstraint(Expr(x), Equal, 0, Tag{Kind: "zero"})
	model.AddToGenericCost(Expr(x), 0)

	// Act
	restricted := model.Restrict(func(tag Tag) bool { return tag.Kind == "one" })

	// Assert
	assert.Equal(t, 1, restricted.NumConstraints())
	assert.Equal(t, 1, restricted.NumVars())
	assert.Zero(t, restricted.Costs().Len())
	assert.Equal(t, 2, model.NumConstraints())
}
