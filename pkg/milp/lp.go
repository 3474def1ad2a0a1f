package milp

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

const lpTermsPerLine = 8

func lpVarName(v Var) string {
	return fmt.Sprintf("x%d", v)
}

// WriteLP writes the model in CPLEX LP format. Variables are named x<index> and every variable
// appears in the objective in index order, so that column-ordered solution formats map back directly.
func WriteLP(w io.Writer, model *Model) error {
	writer := bufio.NewWriter(w)

	fmt.Fprintf(writer, "\\ Model %v: %d variables, %d constraints\n", model.Name(), model.NumVars(), model.NumConstraints())
	writer.WriteString("Minimize\n obj:")
	objective := model.Objective()
	for v := range model.NumVars() {
		writeLPTerm(writer, objective.Coef(Var(v)), Var(v), v == 0, v)
	}
	writer.WriteString("\n")

	writer.WriteString("Subject To\n")
	for i, constraint := range model.Constraints() {
		fmt.Fprintf(writer, " c%d:", i)
		for j, term := range constraint.Expr.Terms() {
			writeLPTerm(writer, term.Coef, term.Var, j == 0, j)
		}
		fmt.Fprintf(writer, " %v %v\n", lpRelation(constraint.Relation), formatNumber(constraint.RHS))
	}
	for i, constraint := range model.Violated() {
		// Keep constant infeasible constraints visible to the solver through a zero-coefficient term
		fmt.Fprintf(writer, " v%d: 0 %v %v %v\n", i, lpVarName(0), lpRelation(constraint.Relation), formatNumber(constraint.RHS))
	}
	if len(model.Constraints())+len(model.Violated()) == 0 {
		fmt.Fprintf(writer, " dummy: %v >= 0\n", lpVarName(0))
	}

	writer.WriteString("Bounds\n")
	for v := range model.NumVars() {
		if model.VarKind(Var(v)) == Integer {
			lower, upper := model.VarBounds(Var(v))
			fmt.Fprintf(writer, " %v <= %v <= %v\n", formatNumber(lower), lpVarName(Var(v)), formatNumber(upper))
		}
	}

	writeLPSection(writer, model, "Binaries", Binary)
	writeLPSection(writer, model, "Generals", Integer)
	writer.WriteString("End\n")

	return writer.Flush()
}

func writeLPTerm(writer *bufio.Writer, coef float64, v Var, first bool, position int) {
	if position > 0 && position%lpTermsPerLine == 0 {
		writer.WriteString("\n   ")
	}
	sign := "+"
	if coef < 0 {
		sign = "-"
	}
	if first && sign == "+" {
		fmt.Fprintf(writer, " %v %v", formatNumber(math.Abs(coef)), lpVarName(v))
		return
	}
	fmt.Fprintf(writer, " %v %v %v", sign, formatNumber(math.Abs(coef)), lpVarName(v))
}

func writeLPSection(writer *bufio.Writer, model *Model, section string, kind VarKind) {
	count := 0
	for v := range model.NumVars() {
		if model.VarKind(Var(v)) != kind {
			continue
		}
		if count == 0 {
			fmt.Fprintf(writer, "%v\n", section)
		}
		if count%lpTermsPerLine == 0 {
			writer.WriteString(" ")
		}
		fmt.Fprintf(writer, "%v ", lpVarName(Var(v)))
		if count++; count%lpTermsPerLine == 0 {
			writer.WriteString("\n")
		}
	}
	if count%lpTermsPerLine != 0 {
		writer.WriteString("\n")
	}
}

func lpRelation(relation Relation) string {
	return relation.String()
}
