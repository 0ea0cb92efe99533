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

package lpmodel

import (
	"fmt"
	"time"
)

/* Types */

type SolveStatus int

const (
	SolutionNotRun           SolveStatus = -1
	SolutionNoMemory         SolveStatus = -2
	SolutionOptimal          SolveStatus = 0
	SolutionSuboptimal       SolveStatus = 1
	SolutionInfeasible       SolveStatus = 2
	SolutionUnbounded        SolveStatus = 3
	SolutionDegenerate       SolveStatus = 4
	SolutionNumericalFailure SolveStatus = 5
	SolutionUserAbort        SolveStatus = 6
	SolutionTimeout          SolveStatus = 7
	SolutionPresolved        SolveStatus = 9
	SolutionBranchCutFail    SolveStatus = 10
	SolutionBranchCutBreak   SolveStatus = 11
	SolutionFeasibleFound    SolveStatus = 12
	SolutionNoFeasibleFound  SolveStatus = 13
)

// String returns the description of a solve status.
func (s SolveStatus) String() string {
	switch s {
	case SolutionNotRun:
		return "solve not yet performed"
	case SolutionNoMemory:
		return "Out of memory"
	case SolutionOptimal:
		return "OPTIMAL solution"
	case SolutionSuboptimal:
		return "SUB-OPTIMAL solution"
	case SolutionInfeasible:
		return "Model is primal INFEASIBLE"
	case SolutionUnbounded:
		return "Model is primal UNBOUNDED"
	case SolutionDegenerate:
		return "DEGENERATE situation"
	case SolutionNumericalFailure:
		return "Numerical failure encountered"
	case SolutionUserAbort:
		return "User-requested termination"
	case SolutionTimeout:
		return "Termination due to timeout"
	case SolutionPresolved:
		return "Model solved or simplified by presolve"
	case SolutionBranchCutFail:
		return "B&B routine failed"
	case SolutionBranchCutBreak:
		return "B&B routine terminated"
	case SolutionFeasibleFound:
		return "Feasible B&B solution found"
	case SolutionNoFeasibleFound:
		return "No feasible B&B solution found"
	default:
		return fmt.Sprintf("undefined status %d", int(s))
	}
}

func (s SolveStatus) successful() bool {
	return s == SolutionOptimal || s == SolutionSuboptimal || s == SolutionPresolved
}

// SolveError is returned by Solve for statuses other than
// SolutionOptimal, SolutionSuboptimal and SolutionPresolved.
type SolveError SolveStatus

const (
	ErrBranchCutBreak   = SolveError(SolutionBranchCutBreak)
	ErrBranchCutFail    = SolveError(SolutionBranchCutFail)
	ErrFeasibleFound    = SolveError(SolutionFeasibleFound)
	ErrModelDegenerate  = SolveError(SolutionDegenerate)
	ErrModelInfeasible  = SolveError(SolutionInfeasible)
	ErrModelUnbounded   = SolveError(SolutionUnbounded)
	ErrNoFeasibleFound  = SolveError(SolutionNoFeasibleFound)
	ErrNoMemory         = SolveError(SolutionNoMemory)
	ErrNumericalFailure = SolveError(SolutionNumericalFailure)
	ErrTimeout          = SolveError(SolutionTimeout)
	ErrUserAbort        = SolveError(SolutionUserAbort)
)

// Error returns a string representation of the given error value.
func (e SolveError) Error() string {
	switch e {
	case ErrBranchCutBreak:
		return "branch-and-bound stopped at breakpoint"
	case ErrBranchCutFail:
		return "branch-and-bound failure"
	case ErrFeasibleFound:
		return "feasible solution found, optimality not proven"
	case ErrModelDegenerate:
		return "model is degenerate"
	case ErrModelInfeasible:
		return "model is infeasible"
	case ErrModelUnbounded:
		return "model is unbounded"
	case ErrNoFeasibleFound:
		return "no feasible solution found"
	case ErrNoMemory:
		return "ran out of memory while solving"
	case ErrNumericalFailure:
		return "numerical failure while solving"
	case ErrTimeout:
		return "timeout occurred before any integer solution could be found"
	case ErrUserAbort:
		return "aborted by user abort function"
	default:
		panic("unrecognized error")
	}
}

// Status returns the solve status the error stands for.
func (e SolveError) Status() SolveStatus {
	return SolveStatus(e)
}

// Timing is the time spent in the phases of a solve. Total is the sum of
// Load, Presolve and Simplex; Elapsed is the time until the reported
// solution was found.
type Timing struct {
	Load     time.Duration
	Presolve time.Duration
	Simplex  time.Duration
	Total    time.Duration
	Elapsed  time.Duration
}

// SolveResult is the outcome of one solve. It does not change when the
// model is modified or solved again.
type SolveResult struct {
	status    SolveStatus
	objective float64

	primals      []float64 // by column
	reducedCosts []float64 // by column
	activities   []float64 // by row
	duals        []float64 // by row

	count      int
	iterations int
	nodes      int
	timing     Timing

	cols map[*column]int // column index of each variable at solve time
}

/* Result-related functions */

// Status reports if the solution is optimal (SolutionOptimal) or
// not (any other status)
func (res SolveResult) Status() SolveStatus {
	return res.status
}

// ObjectiveValue returns the value of the objective function for
// this optimization result. This value is only optimal if Status
// also returns SolutionOptimal.
func (res SolveResult) ObjectiveValue() float64 {
	return res.objective
}

// Value returns the computed value of the given variable for this
// optimization result.
// This is a shorthand for PrimalValue.
func (res SolveResult) Value(v *Variable) float64 {
	return res.PrimalValue(v)
}

// PrimalValue returns the computed value of the given variable for
// this optimization result, or 0 if the variable was not part of the
// solved model.
func (res SolveResult) PrimalValue(v *Variable) float64 {
	if col, ok := res.cols[v.col]; ok && len(res.primals) > 0 {
		return res.primals[col-1]
	}

	return 0
}

// DualValue returns the dual value (reduced cost) of the given variable in
// this optimization result.
func (res SolveResult) DualValue(v *Variable) float64 {
	if col, ok := res.cols[v.col]; ok && len(res.reducedCosts) > 0 {
		return res.reducedCosts[col-1]
	}

	return 0
}

func (res SolveResult) hasValues() error {
	if res.primals == nil {
		return fmt.Errorf("%s: %w", res.status, ErrNotSolved)
	}

	return nil
}

// Primal returns the value of the column at index col.
func (res SolveResult) Primal(col int) (float64, error) {
	return res.at(res.primals, col, "column")
}

// ReducedCost returns the reduced cost of the column at index col.
func (res SolveResult) ReducedCost(col int) (float64, error) {
	return res.at(res.reducedCosts, col, "column")
}

// RowActivity returns the value of the left-hand side of a row.
func (res SolveResult) RowActivity(row int) (float64, error) {
	return res.at(res.activities, row, "row")
}

// Dual returns the dual value of a row: the change of the objective
// value per unit increase of its right-hand side.
func (res SolveResult) Dual(row int) (float64, error) {
	return res.at(res.duals, row, "row")
}

func (res SolveResult) at(values []float64, index int, axis string) (float64, error) {
	if err := res.hasValues(); err != nil {
		return 0, err
	}
	if index < 1 || index > len(values) {
		return 0, fmt.Errorf("%s %d: %w", axis, index, ErrIndexOutOfRange)
	}

	return values[index-1], nil
}

// Primals returns the values of all columns, in column order.
func (res SolveResult) Primals() []float64 {
	return append([]float64(nil), res.primals...)
}

// RowActivities returns the values of all rows, in row order.
func (res SolveResult) RowActivities() []float64 {
	return append([]float64(nil), res.activities...)
}

// Duals returns the dual values of all rows, in row order.
func (res SolveResult) Duals() []float64 {
	return append([]float64(nil), res.duals...)
}

// ReducedCosts returns the reduced costs of all columns, in column order.
func (res SolveResult) ReducedCosts() []float64 {
	return append([]float64(nil), res.reducedCosts...)
}

// PrimalResult addresses objective, rows and columns with a single index:
// 0 is the objective value, 1 to rows the row activities and the
// following ones the column values.
func (res SolveResult) PrimalResult(index int) (float64, error) {
	if err := res.hasValues(); err != nil {
		return 0, err
	}

	switch rows := len(res.activities); {
	case index == 0:
		return res.objective, nil
	case index >= 1 && index <= rows:
		return res.activities[index-1], nil
	case index > rows && index <= rows+len(res.primals):
		return res.primals[index-rows-1], nil
	default:
		return 0, fmt.Errorf("result index %d: %w", index, ErrIndexOutOfRange)
	}
}

// DualResult is PrimalResult for dual values: 1 to rows are the row duals,
// the following ones the reduced costs. Index 0 always yields 1.
func (res SolveResult) DualResult(index int) (float64, error) {
	if err := res.hasValues(); err != nil {
		return 0, err
	}

	switch rows := len(res.duals); {
	case index == 0:
		return 1, nil
	case index >= 1 && index <= rows:
		return res.duals[index-1], nil
	case index > rows && index <= rows+len(res.reducedCosts):
		return res.reducedCosts[index-rows-1], nil
	default:
		return 0, fmt.Errorf("result index %d: %w", index, ErrIndexOutOfRange)
	}
}

// SolutionCount returns the number of equally good solutions found,
// never more than the solution limit.
func (res SolveResult) SolutionCount() int {
	return res.count
}

func (res SolveResult) Timing() Timing {
	return res.timing
}

// Iterations returns the number of linear relaxations solved.
func (res SolveResult) Iterations() int {
	return res.iterations
}

// Nodes returns the number of branch-and-bound nodes explored.
func (res SolveResult) Nodes() int {
	return res.nodes
}

/* Model-level result functions */

// Status returns the status of the last solve, or SolutionNotRun if the
// model was changed since.
func (model *Model) Status() SolveStatus {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.status
}

func (model *Model) StatusText() string {
	return model.Status().String()
}

// Result returns the result of the last solve. It fails with ErrNotSolved
// if the model was never solved or changed since.
func (model *Model) Result() (*SolveResult, error) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if model.result == nil {
		return nil, ErrNotSolved
	}

	return model.result, nil
}

func (model *Model) ObjectiveValue() (float64, error) {
	res, err := model.Result()
	if err != nil {
		return 0, err
	}
	if err := res.hasValues(); err != nil {
		return 0, err
	}

	return res.ObjectiveValue(), nil
}

func (model *Model) Primal(col int) (float64, error) {
	res, err := model.Result()
	if err != nil {
		return 0, err
	}

	return res.Primal(col)
}

func (model *Model) Dual(row int) (float64, error) {
	res, err := model.Result()
	if err != nil {
		return 0, err
	}

	return res.Dual(row)
}

// PrimalSolution returns the values of all columns of the last solve.
func (model *Model) PrimalSolution() ([]float64, error) {
	res, err := model.Result()
	if err != nil {
		return nil, err
	}
	if err := res.hasValues(); err != nil {
		return nil, err
	}

	return res.Primals(), nil
}

func (model *Model) PrimalResult(index int) (float64, error) {
	res, err := model.Result()
	if err != nil {
		return 0, err
	}

	return res.PrimalResult(index)
}

func (model *Model) DualResult(index int) (float64, error) {
	res, err := model.Result()
	if err != nil {
		return 0, err
	}

	return res.DualResult(index)
}

// SolutionCount returns the number of equally good solutions of the last
// solve, 0 if there is none.
func (model *Model) SolutionCount() int {
	res, err := model.Result()
	if err != nil {
		return 0
	}

	return res.SolutionCount()
}

// Timing returns the timing of the last solve.
func (model *Model) Timing() (Timing, error) {
	res, err := model.Result()
	if err != nil {
		return Timing{}, err
	}

	return res.Timing(), nil
}
