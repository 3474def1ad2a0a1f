package milp

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Var is a handle on a model variable
type Var int

type Term struct {
	Var  Var
	Coef float64
}

// LinExpr is a linear expression Σ coef·var + constant.
// The exported builders never mutate their operands; AddTerm and AddExpr do.
type LinExpr struct {
	terms    map[Var]float64
	constant float64
}

// Expr returns the sum of the given variables
func Expr(vars ...Var) LinExpr {
	expr := LinExpr{}
	for _, v := range vars {
		expr.AddTerm(v, 1)
	}
	return expr
}

func Constant(value float64) LinExpr {
	return LinExpr{constant: value}
}

// Sum returns a fresh expression holding the sum of all given expressions
func Sum(exprs ...LinExpr) LinExpr {
	result := LinExpr{}
	for _, expr := range exprs {
		result.AddExpr(expr, 1)
	}
	return result
}

func (expr *LinExpr) AddTerm(v Var, coef float64) {
	if coef == 0 {
		return
	}
	if expr.terms == nil {
		expr.terms = make(map[Var]float64)
	}
	value := expr.terms[v] + coef
	if value == 0 {
		delete(expr.terms, v)
		return
	}
	expr.terms[v] = value
}

func (expr *LinExpr) AddExpr(other LinExpr, factor float64) {
	for v, coef := range other.terms {
		expr.AddTerm(v, coef*factor)
	}
	expr.constant += other.constant * factor
}

func (expr *LinExpr) AddConstant(value float64) {
	expr.constant += value
}

func (expr LinExpr) Plus(other LinExpr) LinExpr {
	return Sum(expr, other)
}

func (expr LinExpr) Minus(other LinExpr) LinExpr {
	result := Sum(expr)
	result.AddExpr(other, -1)
	return result
}

func (expr LinExpr) Scale(factor float64) LinExpr {
	result := LinExpr{}
	result.AddExpr(expr, factor)
	return result
}

func (expr LinExpr) Constant() float64 {
	return expr.constant
}

func (expr LinExpr) Len() int {
	return len(expr.terms)
}

// IsConstant checks whether the expression holds no variable
func (expr LinExpr) IsConstant() bool {
	return len(expr.terms) == 0
}

func (expr LinExpr) Coef(v Var) float64 {
	return expr.terms[v]
}

// Terms returns the expression's terms sorted by variable
func (expr LinExpr) Terms() []Term {
	terms := lo.MapToSlice(expr.terms, func(v Var, coef float64) Term { return Term{Var: v, Coef: coef} })
	slices.SortFunc(terms, func(a, b Term) int { return int(a.Var) - int(b.Var) })
	return terms
}

func (expr LinExpr) Eval(values []float64) float64 {
	result := expr.constant
	for v, coef := range expr.terms {
		result += coef * values[v]
	}
	return result
}

// Bounds returns the smallest and greatest values the expression can take given variables' bounds
func (expr LinExpr) Bounds(lower, upper []float64) (float64, float64) {
	minimum, maximum := expr.constant, expr.constant
	for v, coef := range expr.terms {
		if coef > 0 {
			minimum += coef * lower[v]
			maximum += coef * upper[v]
		} else {
			minimum += coef * upper[v]
			maximum += coef * lower[v]
		}
	}
	return minimum, maximum
}

func (expr LinExpr) String() string {
	var builder strings.Builder
	for i, term := range expr.Terms() {
		if i > 0 {
			builder.WriteString(" + ")
		}
		fmt.Fprintf(&builder, "%v x%d", formatNumber(term.Coef), term.Var)
	}
	if expr.constant != 0 || len(expr.terms) == 0 {
		if len(expr.terms) > 0 {
			builder.WriteString(" + ")
		}
		builder.WriteString(formatNumber(expr.constant))
	}
	return builder.String()
}

func formatNumber(value float64) string {
	if value == math.Trunc(value) && math.Abs(value) < 1e15 {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%.12g", value)
}
