/*
Copyright © 2015-2022 Leo Antunes <leo@costela.net>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/
package kernel

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const delta = 0.0000001

var inf = math.Inf(1)

func nonNegative(n int) (lower, upper []float64) {
	lower = make([]float64, n)
	upper = make([]float64, n)
	for j := range upper {
		upper[j] = inf
	}

	return lower, upper
}

// min 2x1 + 3x2 - 2x3 + 3x4
// 3x1 + 2x2 + 2x3 + x4 <= 4
//       4x2 + 3x3 + x4 >= 3
func sampleProblem() *Problem {
	lower, upper := nonNegative(4)

	return &Problem{
		Cost: []float64{2, 3, -2, 3},
		A: mat.NewDense(2, 4, []float64{
			3, 2, 2, 1,
			0, 4, 3, 1,
		}),
		RowLower: []float64{-inf, 3},
		RowUpper: []float64{4, inf},
		Lower:    lower,
		Upper:    upper,
	}
}

func TestSolveLP(t *testing.T) {
	sol, err := Solve(context.Background(), sampleProblem(), DefaultSettings())
	require.NoError(t, err)

	assert.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, -4, sol.Objective, delta)
	for j, want := range []float64{0, 0, 2, 0} {
		assert.InDelta(t, want, sol.X[j], delta)
	}
	assert.InDelta(t, 4, sol.Activity[0], delta)
	assert.InDelta(t, 6, sol.Activity[1], delta)
	assert.InDelta(t, -1, sol.Duals[0], delta)
	assert.InDelta(t, 0, sol.Duals[1], delta)
	for j, want := range []float64{5, 5, 0, 4} {
		assert.InDelta(t, want, sol.ReducedCosts[j], delta)
	}
	assert.Equal(t, 1, sol.Count)
	assert.Equal(t, []int{2}, sol.Basis)
}

func TestSolveBoundedAndFreeColumns(t *testing.T) {
	// min x - y, -2 <= x <= 5 (free otherwise), y <= 3, x + y >= 1
	p := &Problem{
		Cost:     []float64{1, -1},
		A:        mat.NewDense(1, 2, []float64{1, 1}),
		RowLower: []float64{1},
		RowUpper: []float64{inf},
		Lower:    []float64{-2, -inf},
		Upper:    []float64{5, 3},
	}

	sol, err := Solve(context.Background(), p, DefaultSettings())
	require.NoError(t, err)

	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, -2, sol.X[0], delta)
	assert.InDelta(t, 3, sol.X[1], delta)
	assert.InDelta(t, -5, sol.Objective, delta)
}

func TestSolveRangeRow(t *testing.T) {
	// max x  <=>  min -x, 2 <= 2x <= 6
	p := &Problem{
		Cost:     []float64{-1},
		A:        mat.NewDense(1, 1, []float64{2}),
		RowLower: []float64{2},
		RowUpper: []float64{6},
		Lower:    []float64{0},
		Upper:    []float64{inf},
	}

	sol, err := Solve(context.Background(), p, DefaultSettings())
	require.NoError(t, err)

	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 3, sol.X[0], delta)
	assert.InDelta(t, -0.5, sol.Duals[0], delta)
}

func TestSolveInfeasible(t *testing.T) {
	// x = 4 and 2x = 2
	p := &Problem{
		Cost:     []float64{1},
		A:        mat.NewDense(2, 1, []float64{1, 2}),
		RowLower: []float64{4, 2},
		RowUpper: []float64{4, 2},
		Lower:    []float64{0},
		Upper:    []float64{inf},
	}

	sol, err := Solve(context.Background(), p, DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, Infeasible, sol.Status)
	assert.False(t, sol.Status.HasSolution())
}

func TestSolveRedundantEqualities(t *testing.T) {
	// x + y = 2 stated twice
	lower, upper := nonNegative(2)
	p := &Problem{
		Cost:     []float64{1, 2},
		A:        mat.NewDense(2, 2, []float64{1, 1, 2, 2}),
		RowLower: []float64{2, 4},
		RowUpper: []float64{2, 4},
		Lower:    lower,
		Upper:    upper,
	}

	sol, err := Solve(context.Background(), p, DefaultSettings())
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 2, sol.X[0], delta)
	assert.InDelta(t, 0, sol.X[1], delta)
}

func TestSolveUnbounded(t *testing.T) {
	lower, upper := nonNegative(2)
	p := &Problem{
		Cost:     []float64{-1, 0},
		A:        mat.NewDense(1, 2, []float64{1, -1}),
		RowLower: []float64{-inf},
		RowUpper: []float64{1},
		Lower:    lower,
		Upper:    upper,
	}

	sol, err := Solve(context.Background(), p, DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, Unbounded, sol.Status)
}

func TestSolveEmpty(t *testing.T) {
	p := &Problem{Cost: []float64{1}, Lower: []float64{1}, Upper: []float64{inf}}

	sol, err := Solve(context.Background(), p, DefaultSettings())
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 1, sol.X[0], delta)
	assert.InDelta(t, 1, sol.Objective, delta)
}

func TestValidate(t *testing.T) {
	p := sampleProblem()
	p.RowUpper = p.RowUpper[:1]

	_, err := Solve(context.Background(), p, DefaultSettings())
	assert.Error(t, err)
}

// max x1 + 2x2 + 3x3 + x4
// -x1 + x2 + x3 + 10x4 <= 20
// x1 - 3x2 + x3 <= 30
// x2 - 3.5x4 = 0
// x1 <= 40, 2 <= x4 <= 3, x4 integer
func mipProblem() *Problem {
	return &Problem{
		Cost: []float64{-1, -2, -3, -1},
		A: mat.NewDense(3, 4, []float64{
			-1, 1, 1, 10,
			1, -3, 1, 0,
			0, 1, 0, -3.5,
		}),
		RowLower: []float64{-inf, -inf, 0},
		RowUpper: []float64{20, 30, 0},
		Lower:    []float64{0, 0, 0, 2},
		Upper:    []float64{40, inf, inf, 3},
		Integer:  []bool{false, false, false, true},
	}
}

func TestSolveMIP(t *testing.T) {
	sol, err := Solve(context.Background(), mipProblem(), DefaultSettings())
	require.NoError(t, err)

	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, -122.5, sol.Objective, delta)
	for j, want := range []float64{40, 10.5, 19.5, 3} {
		assert.InDelta(t, want, sol.X[j], delta)
	}
}

func TestSolveMIPSelections(t *testing.T) {
	for _, sel := range []Selection{SelectFirst, SelectGap, SelectRange, SelectFraction, SelectPseudoCost} {
		for _, breadth := range []bool{false, true} {
			s := DefaultSettings()
			s.Selection = sel
			s.BreadthFirst = breadth
			s.CeilingFirst = false

			sol, err := Solve(context.Background(), knapsack(), s)
			require.NoError(t, err)
			require.Equal(t, Optimal, sol.Status)
			assert.InDelta(t, -20, sol.Objective, delta, "selection %d", sel)
		}
	}
}

// max 5a + 4b, 6a + 4b <= 24, a + 2b <= 6, a and b integer and
// non-negative. The relaxation is fractional at (3, 1.5).
func knapsack() *Problem {
	lower, upper := nonNegative(2)

	return &Problem{
		Cost: []float64{-5, -4},
		A: mat.NewDense(2, 2, []float64{
			6, 4,
			1, 2,
		}),
		RowLower: []float64{-inf, -inf},
		RowUpper: []float64{24, 6},
		Lower:    lower,
		Upper:    upper,
		Integer:  []bool{true, true},
	}
}

func TestSolveNoIntegerSolution(t *testing.T) {
	// 2x = 1 with x integer
	p := &Problem{
		Cost:     []float64{1},
		A:        mat.NewDense(1, 1, []float64{2}),
		RowLower: []float64{1},
		RowUpper: []float64{1},
		Lower:    []float64{0},
		Upper:    []float64{inf},
		Integer:  []bool{true},
	}

	sol, err := Solve(context.Background(), p, DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, NoFeasibleFound, sol.Status)
}

func fourBinaries() *Problem {
	return &Problem{
		Cost:     []float64{-100, -100, -100, -100},
		A:        mat.NewDense(1, 4, []float64{1, 1, 1, 1}),
		RowLower: []float64{-inf},
		RowUpper: []float64{2},
		Lower:    []float64{0, 0, 0, 0},
		Upper:    []float64{1, 1, 1, 1},
		Integer:  []bool{true, true, true, true},
		SOS: []SOS{
			{Type: 1, Priority: 1, Columns: []int{0, 1}, Weights: []float64{0, 1}},
			{Type: 1, Priority: 1, Columns: []int{2, 3}, Weights: []float64{0, 1}},
		},
	}
}

func TestSolveSOS(t *testing.T) {
	sol, err := Solve(context.Background(), fourBinaries(), DefaultSettings())
	require.NoError(t, err)

	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, -200, sol.Objective, delta)
	assert.InDelta(t, 1, sol.X[0]+sol.X[1], delta)
	assert.InDelta(t, 1, sol.X[2]+sol.X[3], delta)
	assert.Equal(t, 1, sol.Count)
}

// max x + y, x + y <= 1.5, x and y binary: (1, 0) and (0, 1) are both optimal
func twoOptima() *Problem {
	return &Problem{
		Cost:     []float64{-1, -1},
		A:        mat.NewDense(1, 2, []float64{1, 1}),
		RowLower: []float64{-inf},
		RowUpper: []float64{1.5},
		Lower:    []float64{0, 0},
		Upper:    []float64{1, 1},
		Integer:  []bool{true, true},
	}
}

func TestSolutionLimit(t *testing.T) {
	sol, err := Solve(context.Background(), twoOptima(), DefaultSettings())
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, -1, sol.Objective, delta)
	assert.Equal(t, 1, sol.Count)

	s := DefaultSettings()
	s.SolutionLimit = 3

	sol, err = Solve(context.Background(), twoOptima(), s)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, -1, sol.Objective, delta)
	assert.Equal(t, 2, sol.Count)
}

func TestSolveSemiContinuous(t *testing.T) {
	// min -x with x semi-continuous: x = 0 or 2 <= x <= 5, and x <= 1.5
	p := &Problem{
		Cost:           []float64{-1},
		A:              mat.NewDense(1, 1, []float64{1}),
		RowLower:       []float64{-inf},
		RowUpper:       []float64{1.5},
		Lower:          []float64{2},
		Upper:          []float64{5},
		SemiContinuous: []bool{true},
	}

	sol, err := Solve(context.Background(), p, DefaultSettings())
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 0, sol.X[0], delta)

	p.RowUpper[0] = 3
	sol, err = Solve(context.Background(), p, DefaultSettings())
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 3, sol.X[0], delta)
}

func TestBreakAtFirst(t *testing.T) {
	s := DefaultSettings()
	s.BreakAtFirst = true

	sol, err := Solve(context.Background(), knapsack(), s)
	require.NoError(t, err)
	assert.Equal(t, BranchBreak, sol.Status)
	assert.True(t, sol.Status.HasSolution())
}

func TestDepthLimit(t *testing.T) {
	s := DefaultSettings()
	s.DepthLimit = 1

	sol, err := Solve(context.Background(), knapsack(), s)
	require.NoError(t, err)
	assert.Contains(t, []Status{FeasibleFound, NoFeasibleFound, Optimal}, sol.Status)
}

func TestAbort(t *testing.T) {
	s := DefaultSettings()
	s.Abort = func() bool { return true }

	sol, err := Solve(context.Background(), knapsack(), s)
	require.NoError(t, err)
	assert.Equal(t, Aborted, sol.Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err = Solve(ctx, knapsack(), DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, Aborted, sol.Status)
}

func TestAbortAfterSolution(t *testing.T) {
	s := DefaultSettings()
	found := false
	s.Logf = func(format string, v ...interface{}) { found = true }
	s.Abort = func() bool { return found }

	sol, err := Solve(context.Background(), knapsack(), s)
	require.NoError(t, err)
	assert.Contains(t, []Status{Suboptimal, Optimal}, sol.Status)
	assert.True(t, sol.Status.HasSolution())
}

func TestPresolve(t *testing.T) {
	// x fixed at 2, y only bounded, one singleton row on z
	p := &Problem{
		Cost: []float64{1, 1, -1},
		A: mat.NewDense(2, 3, []float64{
			1, 0, 0,
			0, 0, 2,
		}),
		RowLower: []float64{-inf, -inf},
		RowUpper: []float64{10, 8},
		Lower:    []float64{2, 1, 0},
		Upper:    []float64{2, 4, inf},
	}

	s := DefaultSettings()
	s.PresolveRows = true
	s.PresolveColumns = true

	sol, err := Solve(context.Background(), p, s)
	require.NoError(t, err)

	require.True(t, sol.Status.HasSolution())
	assert.InDelta(t, 2, sol.X[0], delta)
	assert.InDelta(t, 1, sol.X[1], delta)
	assert.InDelta(t, 4, sol.X[2], delta)
	assert.InDelta(t, -1, sol.Objective, delta)
	assert.InDelta(t, 8, sol.Activity[1], delta)
}

func TestPresolveEverything(t *testing.T) {
	p := &Problem{
		Cost:     []float64{1},
		A:        mat.NewDense(1, 1, []float64{1}),
		RowLower: []float64{-inf},
		RowUpper: []float64{inf},
		Lower:    []float64{3},
		Upper:    []float64{3},
	}

	s := DefaultSettings()
	s.PresolveRows = true
	s.PresolveColumns = true

	sol, err := Solve(context.Background(), p, s)
	require.NoError(t, err)
	assert.Equal(t, Presolved, sol.Status)
	assert.InDelta(t, 3, sol.X[0], delta)
	assert.InDelta(t, 3, sol.Objective, delta)
}

func TestIndependentRows(t *testing.T) {
	a := [][]float64{
		{1, 1, 0},
		{0, 0, 0},
		{2, 2, 0},
		{0, 1, 1},
	}

	keep, ok := independentRows(a, []float64{1, 0, 2, 3})
	require.True(t, ok)
	assert.Equal(t, []int{0, 3}, keep)

	_, ok = independentRows(a, []float64{1, 0, 3, 3})
	assert.False(t, ok)
}

func TestSolveRelaxationWarmStart(t *testing.T) {
	p := sampleProblem()

	cold := solveRelaxation(p, p.Lower, p.Upper, nil)
	require.Equal(t, Optimal, cold.status)
	assert.False(t, cold.warm)
	require.Equal(t, []int{2}, cold.basis)

	warm := solveRelaxation(p, p.Lower, p.Upper, cold.basis)
	require.Equal(t, Optimal, warm.status)
	assert.True(t, warm.warm)
	assert.InDelta(t, cold.objective, warm.objective, delta)
	assert.Equal(t, cold.basis, warm.basis)

	// x1 alone with the slack of the second row gives a negative slack
	fallback := solveRelaxation(p, p.Lower, p.Upper, []int{0})
	require.Equal(t, Optimal, fallback.status)
	assert.False(t, fallback.warm)
	assert.InDelta(t, -4, fallback.objective, delta)

	ignored := solveRelaxation(p, p.Lower, p.Upper, []int{-1, 7})
	require.Equal(t, Optimal, ignored.status)
	assert.False(t, ignored.warm)
}

type logLines []string

func (l *logLines) logf(format string, v ...interface{}) {
	*l = append(*l, fmt.Sprintf(format, v...))
}

func (l logLines) containing(sub string) int {
	count := 0
	for _, line := range l {
		if strings.Contains(line, sub) {
			count++
		}
	}

	return count
}

func TestSolveWithBasis(t *testing.T) {
	var lines logLines
	s := DefaultSettings()
	s.Basis = []int{2}
	s.Trace = true
	s.Logf = lines.logf

	sol, err := Solve(context.Background(), sampleProblem(), s)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, -4, sol.Objective, delta)
	assert.Equal(t, []int{2}, sol.Basis)

	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "relaxation 1: optimal, objective -"), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], "(warm start)"), lines[0])
}

func TestSolveTraceAndDebug(t *testing.T) {
	var quiet logLines
	s := DefaultSettings()
	s.Logf = quiet.logf

	sol, err := Solve(context.Background(), knapsack(), s)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.Zero(t, quiet.containing("relaxation "))
	assert.Zero(t, quiet.containing("branch at depth"))

	var traced logLines
	s.Trace = true
	s.Logf = traced.logf

	sol, err = Solve(context.Background(), knapsack(), s)
	require.NoError(t, err)
	assert.Equal(t, sol.Iterations, traced.containing("relaxation "))
	assert.Equal(t, 1, traced.containing("relaxation 1: optimal, objective -2"))
	assert.Equal(t, sol.Iterations, traced.containing("(cold start)"))
	assert.Zero(t, traced.containing("branch at depth"))

	var debugged logLines
	s.Trace = false
	s.Debug = true
	s.Logf = debugged.logf

	_, err = Solve(context.Background(), knapsack(), s)
	require.NoError(t, err)
	assert.Zero(t, debugged.containing("relaxation "))
	assert.Equal(t, 1, debugged.containing("branch at depth 0 on column 1 = "))
	assert.Equal(t, 1, debugged.containing("<= 1 or >= 2, ceiling first"))
}

func TestSolveDebugSOS(t *testing.T) {
	// max x + y with x, y in [0, 1] and at most one of them non-zero
	p := &Problem{
		Cost:     []float64{-1, -1},
		A:        mat.NewDense(1, 2, []float64{1, 1}),
		RowLower: []float64{-inf},
		RowUpper: []float64{2},
		Lower:    []float64{0, 0},
		Upper:    []float64{1, 1},
		SOS:      []SOS{{Type: 1, Priority: 3, Columns: []int{0, 1}, Weights: []float64{1, 2}}},
	}

	var lines logLines
	s := DefaultSettings()
	s.Debug = true
	s.Logf = lines.logf

	sol, err := Solve(context.Background(), p, s)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, -1, sol.Objective, delta)
	assert.Equal(t, 1, lines.containing("branch at depth 0 on SOS1 set with priority 3: split after member 1"))
}

func TestKeptColumns(t *testing.T) {
	red := &reduction{cols: []int{1, 3}}

	assert.Equal(t, []int{1, 0}, red.keptColumns([]int{3, 2, 1}))
	assert.Nil(t, red.keptColumns(nil))
	assert.Nil(t, red.keptColumns([]int{0}))
}
