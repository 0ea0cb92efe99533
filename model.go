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

/*
Package lpmodel is a library for modelling and solving linear and
mixed-integer programming problems in pure Go.

As an example of the API, the model of the following problem:

    Maximize:
      z = x1 + 2 x2 - 3 x3
    With:
      0 <= x1 <= 40
      5 <= x3 <= 11
    Subject to:
      0 <= - x1 + x2 + 5.3 x3 <= 10
      -inf <= 2 x1 - 5 x2 + 3 x3 <= 20
      x2 - 8 x3 = 0

can be expressed with lpmodel like this:

	package main

	import (
		"fmt"
		"math"

		"github.com/costela/lpmodel"
	)

	func main() {
		model, _ := lpmodel.NewModel("some model", lpmodel.Maximize)
		x1, _ := model.AddVariable("x1")
		x1.SetBounds(0, 40)
		x2, _ := model.AddVariable("x2")
		x2.SetObjectiveCoefficient(2)
		// alternatively, all information pertaining can be given at once:
		x3, _ := model.AddDefinedVariable("x3", lpmodel.ContinuousVariable, -3, 5, 11)

		model.AddConstraint(0, 10, []*lpmodel.Variable{x1, x2, x3}, []float64{-1, 1, 5.3})
		model.AddConstraint(math.Inf(-1), 20, []*lpmodel.Variable{x1, x2, x3}, []float64{2, -5, 3})
		model.AddConstraint(0, 0, []*lpmodel.Variable{x2, x3}, []float64{1, -8})

		result, _ := model.Solve() // you should check for errors

		fmt.Printf("solution optimal? %t\n", result.Status() == lpmodel.SolutionOptimal)
		fmt.Printf("z = %f\n", result.ObjectiveValue())
		fmt.Printf("x1 = %f\n", result.Value(x1))
	}

Models can also be addressed by index, the way LP and MPS files describe
them: rows and columns are numbered from 1, row 0 is the objective function
and column 0 the right-hand side. ReadLP and ReadMPS load such models,
Model.WriteLP and Model.WriteMPS write them back.
*/
package lpmodel

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync"
)

// Infinity is the magnitude from which bounds and right-hand sides are
// treated as infinite.
const Infinity = 1e30

/* Types */

type Model struct {
	mu sync.RWMutex

	name      string
	direction direction
	matrix    *SparseMatrix
	rowNames  *NameTable
	colNames  *NameTable
	rows      []*constraint
	vars      []*Variable
	sos       []*sosSet
	objConst  float64

	opts   options
	logger Logger
	abort  func() bool
	output io.Writer

	status   SolveStatus
	result   *SolveResult
	basis    []int
	rowScale []float64
	colScale []float64
}

type direction int

const (
	Minimize direction = iota
	Maximize
)

func (d direction) String() string {
	if d == Maximize {
		return "maximize"
	}

	return "minimize"
}

/* Model related functions */

// NewModel instantiates a new linear programming model, providing a
// name (purely informational) and a optimization direction (either
// Minimize or Maximize)
func NewModel(name string, dir direction, opts ...Option) (*Model, error) {
	return newModel(name, dir, 0, 0, opts)
}

// NewModelSize instantiates a minimization model that already has the given
// number of empty rows and columns. The rows are free rows with a zero
// right-hand side, the columns continuous with bounds [0, +Inf).
func NewModelSize(name string, rows, columns int, opts ...Option) (*Model, error) {
	if rows < 0 || columns < 0 {
		return nil, fmt.Errorf("model size %dx%d: %w", rows, columns, ErrInvalidValue)
	}

	return newModel(name, Minimize, rows, columns, opts)
}

func newModel(name string, dir direction, rows, columns int, opts []Option) (*Model, error) {
	if dir != Minimize && dir != Maximize {
		return nil, fmt.Errorf("direction %d: %w", dir, ErrInvalidValue)
	}

	model := &Model{
		name:      name,
		direction: dir,
		matrix:    NewSparseMatrix(rows, columns),
		rowNames:  NewNameTable("R"),
		colNames:  NewNameTable("C"),
		opts:      defaultOptions(),
		logger:    noopLogger{},
		output:    os.Stdout,
		status:    SolutionNotRun,
	}

	for i := 1; i <= rows; i++ {
		model.rows = append(model.rows, &constraint{relation: FreeRow, rng: math.Inf(1)})
		model.rowNames.Append("")
	}
	for j := 1; j <= columns; j++ {
		model.vars = append(model.vars, &Variable{model: model, col: newColumn(j)})
		model.colNames.Append("")
	}

	for _, opt := range opts {
		if err := opt(model); err != nil {
			return nil, fmt.Errorf("applying model option: %w", err)
		}
	}

	return model, nil
}

// Clone returns a copy of the model. Options, logger and abort function
// are shared with the copy; the solve state is not.
func (model *Model) Clone() *Model {
	model.mu.Lock()
	defer model.mu.Unlock()

	newModel := &Model{
		name:      model.name,
		direction: model.direction,
		matrix:    model.matrix.Clone(),
		rowNames:  model.rowNames.Clone(),
		colNames:  model.colNames.Clone(),
		rows:      make([]*constraint, len(model.rows)),
		vars:      make([]*Variable, len(model.vars)),
		objConst:  model.objConst,
		opts:      model.opts,
		logger:    model.logger,
		abort:     model.abort,
		output:    model.output,
		status:    SolutionNotRun,
		basis:     append([]int(nil), model.basis...),
	}

	for i, r := range model.rows {
		c := *r
		newModel.rows[i] = &c
	}

	cols := make(map[*column]*column, len(model.vars))
	for i, v := range model.vars {
		c := *v.col
		cols[v.col] = &c
		newModel.vars[i] = &Variable{model: newModel, col: &c}
	}

	for _, s := range model.sos {
		newModel.sos = append(newModel.sos, s.clone(cols))
	}

	return newModel
}

// invalidate drops the retained solve result. It must be called with the
// write lock held by every operation changing the model's data.
func (model *Model) invalidate() {
	model.result = nil
	model.status = SolutionNotRun
	model.rowScale = nil
	model.colScale = nil
}

// Name returns the name provided upon instantiation of a model
func (model *Model) Name() string {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.name
}

func (model *Model) SetName(name string) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.name = name
}

// SetDirection changes the direction of the model's optimization
func (model *Model) SetDirection(dir direction) {
	model.mu.Lock()
	defer model.mu.Unlock()

	if dir != Maximize {
		dir = Minimize
	}
	if dir != model.direction {
		model.direction = dir
		model.invalidate()
	}
}

// Direction returns the model's current optimization direction
func (model *Model) Direction() direction {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.direction
}

func (model *Model) SetMaximize() {
	model.SetDirection(Maximize)
}

func (model *Model) SetMinimize() {
	model.SetDirection(Minimize)
}

func (model *Model) IsMaximize() bool {
	return model.Direction() == Maximize
}

// RowCount returns the number of constraint rows, not counting the
// objective function.
func (model *Model) RowCount() int {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return len(model.rows)
}

func (model *Model) ColumnCount() int {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return len(model.vars)
}

// OriginalRowCount returns the number of rows of the model before
// presolve. Presolve works on a copy, so this is always RowCount.
func (model *Model) OriginalRowCount() int {
	return model.RowCount()
}

// OriginalColumnCount returns the number of columns of the model before
// presolve. Presolve works on a copy, so this is always ColumnCount.
func (model *Model) OriginalColumnCount() int {
	return model.ColumnCount()
}

// NonZeros returns the number of nonzero constraint coefficients, the
// objective function excluded.
func (model *Model) NonZeros() int {
	model.mu.Lock()
	defer model.mu.Unlock()

	return model.matrix.NonZeros()
}

// SetRowMode switches the row building mode of the coefficient matrix and
// returns the previous mode. Adding many constraints is faster in row mode;
// results are the same either way.
func (model *Model) SetRowMode(enabled bool) bool {
	model.mu.Lock()
	defer model.mu.Unlock()

	return model.matrix.SetRowMode(enabled)
}

/* Matrix-related functions */

// Element returns the coefficient at (row, col). Row 0 is the objective
// function. The value is never affected by scaling.
func (model *Model) Element(row, col int) (float64, error) {
	model.mu.Lock()
	defer model.mu.Unlock()

	value, err := model.matrix.Get(row, col)
	if err != nil {
		return 0, fmt.Errorf("element (%d, %d): %w", row, col, err)
	}

	return value, nil
}

// SetElement stores value at (row, col); a zero removes the coefficient.
func (model *Model) SetElement(row, col int, value float64) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	return model.setElement(row, col, value)
}

func (model *Model) setElement(row, col int, value float64) error {
	if err := model.matrix.Set(row, col, value); err != nil {
		return fmt.Errorf("element (%d, %d): %w", row, col, err)
	}
	model.invalidate()

	return nil
}

// Row returns a row as a dense slice indexed by column. Element 0 holds
// the right-hand side of the row, or the objective constant for row 0.
func (model *Model) Row(row int) ([]float64, error) {
	model.mu.Lock()
	defer model.mu.Unlock()

	entries, err := model.matrix.Row(row)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", row, err)
	}

	values := make([]float64, len(model.vars)+1)
	values[0] = model.rightHandSide(row)
	for _, e := range entries {
		values[e.Column] = e.Value
	}

	return values, nil
}

// Column returns a column as a dense slice indexed by row, element 0
// being the objective function coefficient. Column 0, the right-hand
// side, cannot be retrieved this way.
func (model *Model) Column(col int) ([]float64, error) {
	model.mu.Lock()
	defer model.mu.Unlock()

	values, err := model.matrix.Column(col)
	if err != nil {
		return nil, fmt.Errorf("column %d: %w", col, err)
	}

	return values, nil
}

/* Objective-related functions */

// SetObjective replaces the objective function with one coefficient per
// column, in column order.
func (model *Model) SetObjective(coefs []float64) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	if len(coefs) != len(model.vars) {
		return fmt.Errorf("objective with %d coefficients for %d columns: %w", len(coefs), len(model.vars), ErrDimensionMismatch)
	}

	cols := make([]int, len(coefs))
	for i := range cols {
		cols[i] = i + 1
	}

	return model.setObjective(cols, coefs)
}

// SetObjectiveSparse replaces the objective function with the given
// coefficients; the other columns get a zero coefficient.
func (model *Model) SetObjectiveSparse(cols []int, coefs []float64) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	return model.setObjective(cols, coefs)
}

// SetObjectiveFromString parses a whitespace separated list of
// coefficients, one per column, and sets it as the objective function.
func (model *Model) SetObjectiveFromString(expr string) error {
	coefs, err := parseDense(expr)
	if err != nil {
		return err
	}

	return model.SetObjective(coefs)
}

func (model *Model) setObjective(cols []int, coefs []float64) error {
	entries, err := model.sparseRow(cols, coefs)
	if err != nil {
		return fmt.Errorf("objective: %w", err)
	}

	for j := 1; j <= len(model.vars); j++ {
		if err := model.matrix.Set(0, j, entries[j]); err != nil {
			return fmt.Errorf("objective: %w", err)
		}
	}
	model.invalidate()

	return nil
}

func (model *Model) SetObjectiveCoefficient(col int, coef float64) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	return model.setElement(0, col, coef)
}

func (model *Model) ObjectiveCoefficient(col int) (float64, error) {
	return model.Element(0, col)
}

// SetObjectiveFunction defines the objective function for the model as
// a slice of coefficients and a slice of its respective variables.
// E.g.: an objective function of the form 2x+3y is passed as:
//   SetObjectiveFunction([]float64{2,3}, []*Variable{x, y})
// Where x and y are the return values of one of the Add*Variable
// functions. Variables not given keep their coefficient.
func (model *Model) SetObjectiveFunction(coefs []float64, vars []*Variable) error {
	if len(vars) != len(coefs) {
		return fmt.Errorf("inconsistent number of variables and coefficients: %d != %d: %w", len(vars), len(coefs), ErrDimensionMismatch)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	for _, v := range vars {
		if model.mustIndex(v) == 0 {
			return ErrDeletedVariable
		}
	}

	for i, v := range vars {
		if err := model.matrix.Set(0, v.col.index, coefs[i]); err != nil {
			return fmt.Errorf("objective coefficient of %d: %w", v.col.index, err)
		}
	}
	model.invalidate()

	return nil
}

/* Name-related functions */

func (model *Model) SetRowName(row int, name string) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	if err := model.rowNames.SetName(row, name); err != nil {
		return fmt.Errorf("naming row %d: %w", row, err)
	}

	return nil
}

// RowName returns the name of a row; unnamed rows are called "R<index>".
func (model *Model) RowName(row int) (string, bool) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if row == 0 {
		return "R0", true
	}

	return model.rowNames.Name(row)
}

func (model *Model) OriginalRowName(row int) (string, bool) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.rowNames.OriginalName(row)
}

// RowIndex returns the lowest index of the rows called name.
func (model *Model) RowIndex(name string) (int, bool) {
	model.mu.Lock()
	defer model.mu.Unlock()

	return model.rowNames.IndexOf(name)
}

func (model *Model) SetColumnName(col int, name string) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	if err := model.colNames.SetName(col, name); err != nil {
		return fmt.Errorf("naming column %d: %w", col, err)
	}

	return nil
}

// ColumnName returns the name of a column; unnamed columns are called
// "C<index>".
func (model *Model) ColumnName(col int) (string, bool) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.colNames.Name(col)
}

func (model *Model) OriginalColumnName(col int) (string, bool) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.colNames.OriginalName(col)
}

// ColumnIndex returns the lowest index of the columns called name.
func (model *Model) ColumnIndex(name string) (int, bool) {
	model.mu.Lock()
	defer model.mu.Unlock()

	return model.colNames.IndexOf(name)
}

/* helpers */

// sparseRow validates a sparse coefficient list and returns it keyed by
// column. Repeated columns are summed.
func (model *Model) sparseRow(cols []int, coefs []float64) (map[int]float64, error) {
	if len(cols) != len(coefs) {
		return nil, fmt.Errorf("%d columns and %d coefficients: %w", len(cols), len(coefs), ErrDimensionMismatch)
	}

	entries := make(map[int]float64, len(cols))
	for i, col := range cols {
		if col < 1 || col > len(model.vars) {
			return nil, fmt.Errorf("column %d: %w", col, ErrIndexOutOfRange)
		}
		if err := checkValue(coefs[i]); err != nil {
			return nil, fmt.Errorf("coefficient of column %d: %w", col, err)
		}
		entries[col] += coefs[i]
	}

	return entries, nil
}

// normalizeInf maps values beyond Infinity to the matching infinity.
func normalizeInf(v float64) float64 {
	switch {
	case v >= Infinity:
		return math.Inf(1)
	case v <= -Infinity:
		return math.Inf(-1)
	default:
		return v
	}
}
