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
	"math"
)

type VariableType int

const (
	ContinuousVariable VariableType = iota
	IntegerVariable
	BinaryVariable
	SemiContinuousVariable
)

func (t VariableType) String() string {
	switch t {
	case ContinuousVariable:
		return "continuous"
	case IntegerVariable:
		return "integer"
	case BinaryVariable:
		return "binary"
	case SemiContinuousVariable:
		return "semi-continuous"
	default:
		return fmt.Sprintf("VariableType(%d)", int(t))
	}
}

func (t VariableType) valid() bool {
	return t >= ContinuousVariable && t <= SemiContinuousVariable
}

// column holds the attributes of one model column. index is the current
// 1-based position of the column, or 0 once it has been deleted.
type column struct {
	index int
	lower float64
	upper float64
	kind  VariableType
}

func newColumn(index int) *column {
	return &column{index: index, upper: math.Inf(1)}
}

func (c *column) integer() bool {
	return c.kind == IntegerVariable || c.kind == BinaryVariable
}

// Variable is a handle on a model column. It stays valid across the
// deletion of other columns: its index follows the renumbering.
type Variable struct {
	model *Model
	col   *column
}

/* Variable-related functions (model variables, as opposed to Go variables) */

// Index returns the current 1-based column index of the variable, or false
// if the variable has been deleted.
func (v *Variable) Index() (int, bool) {
	v.model.mu.RLock()
	defer v.model.mu.RUnlock()

	return v.col.index, v.col.index > 0
}

func (v *Variable) Name() string {
	v.model.mu.RLock()
	defer v.model.mu.RUnlock()

	name, _ := v.model.colNames.Name(v.col.index)

	return name
}

func (v *Variable) SetName(name string) error {
	v.model.mu.Lock()
	defer v.model.mu.Unlock()

	if v.col.index == 0 {
		return ErrDeletedVariable
	}

	return v.model.colNames.SetName(v.col.index, name)
}

func (v *Variable) Type() VariableType {
	v.model.mu.RLock()
	defer v.model.mu.RUnlock()

	return v.col.kind
}

// SetType changes the type of the variable. Setting BinaryVariable also
// sets the bounds to [0, 1].
func (v *Variable) SetType(varType VariableType) error {
	v.model.mu.Lock()
	defer v.model.mu.Unlock()

	if v.col.index == 0 {
		return ErrDeletedVariable
	}

	return v.model.setVariableType(v.col.index, varType, true)
}

// SetBounds sets the boundaries for the given variable.
// To remove a bound, pass math.Inf(-1) or math.Inf(1).
func (v *Variable) SetBounds(lower, upper float64) error {
	v.model.mu.Lock()
	defer v.model.mu.Unlock()

	if v.col.index == 0 {
		return ErrDeletedVariable
	}

	return v.model.setBounds(v.col.index, lower, upper)
}

func (v *Variable) Bounds() (lower, upper float64) {
	v.model.mu.RLock()
	defer v.model.mu.RUnlock()

	return v.col.lower, v.col.upper
}

func (v *Variable) SetObjectiveCoefficient(coef float64) error {
	v.model.mu.Lock()
	defer v.model.mu.Unlock()

	if v.col.index == 0 {
		return ErrDeletedVariable
	}

	return v.model.setElement(0, v.col.index, coef)
}

func (v *Variable) Coefficient() float64 {
	v.model.mu.Lock()
	defer v.model.mu.Unlock()

	if v.col.index == 0 {
		return 0
	}

	coef, _ := v.model.matrix.Get(0, v.col.index)

	return coef
}

// mustIndex returns the index of v in model, panicking if v belongs to
// another model.
func (model *Model) mustIndex(v *Variable) int {
	if v.model != model {
		panic("variable used with a model it does not belong to")
	}

	return v.col.index
}

/* Column-related functions */

// Variables returns a new slice with the model's variables. Changes to the
// slice will not be reflected in the model.
func (model *Model) Variables() []*Variable {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return append([]*Variable(nil), model.vars...)
}

// Variable returns the handle of the column at index col.
func (model *Model) Variable(col int) (*Variable, bool) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if col < 1 || col > len(model.vars) {
		return nil, false
	}

	return model.vars[col-1], true
}

// AddVariable adds a variable to the linear programming model and
// returns a reference to it.
// A freshly instantiated variable has the default type of
// ContinuousVariable, no bounds and an objective coefficient of 1.
//
// A variable is bound to its model. Using a variable created in one model
// with a different model panics.
//
// Empty names are replaced by the column's default name.
func (model *Model) AddVariable(name string) (*Variable, error) {
	return model.AddDefinedVariable(name, ContinuousVariable, 1, math.Inf(-1), math.Inf(1))
}

// AddBinaryVariable is a convenience function for adding a single
// named binary variable to the model, with a default coefficient of 1.
func (model *Model) AddBinaryVariable(name string) (*Variable, error) {
	return model.AddDefinedVariable(name, BinaryVariable, 1, 0, 1)
}

// AddIntegerVariable is a convenience function for adding a single
// named unbounded integer variable to the model, with a default
// objective coefficient of 1.
func (model *Model) AddIntegerVariable(name string) (*Variable, error) {
	return model.AddDefinedVariable(name, IntegerVariable, 1, math.Inf(-1), math.Inf(1))
}

// AddDefinedVariable add a variable to the linear programming model
// with its attributes passed as arguments.
// If varType is BinaryVariable, the bounds are ignored.
func (model *Model) AddDefinedVariable(name string, varType VariableType, coefficient, lowerBound, upperBound float64) (*Variable, error) {
	if !varType.valid() {
		return nil, fmt.Errorf("variable type %d: %w", varType, ErrInvalidType)
	}
	if err := checkValue(coefficient); err != nil {
		return nil, fmt.Errorf("objective coefficient: %w", err)
	}
	lowerBound, upperBound = normalizeInf(lowerBound), normalizeInf(upperBound)
	if varType == BinaryVariable {
		lowerBound, upperBound = 0, 1
	}
	if err := checkBounds(lowerBound, upperBound); err != nil {
		return nil, err
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	col, err := model.matrix.AppendColumn(map[int]float64{0: coefficient})
	if err != nil {
		return nil, fmt.Errorf("adding variable: %w", err)
	}

	v := &Variable{model: model, col: newColumn(col)}
	v.col.kind = varType
	v.col.lower, v.col.upper = lowerBound, upperBound
	model.vars = append(model.vars, v)
	model.colNames.Append(name)
	model.columnsChanged()

	return v, nil
}

// AddColumn appends a column given densely by row: values[0] is the
// objective function coefficient, followed by one coefficient per
// constraint row. The new column is continuous with bounds [0, +Inf).
func (model *Model) AddColumn(values []float64) (int, error) {
	model.mu.Lock()
	defer model.mu.Unlock()

	if len(values) != len(model.rows)+1 {
		return 0, fmt.Errorf("column with %d values for %d rows: %w", len(values), len(model.rows), ErrDimensionMismatch)
	}

	entries := make(map[int]float64, len(values))
	for row, value := range values {
		entries[row] = value
	}

	col, err := model.matrix.AppendColumn(entries)
	if err != nil {
		return 0, fmt.Errorf("adding column: %w", err)
	}
	model.vars = append(model.vars, &Variable{model: model, col: newColumn(col)})
	model.colNames.Append("")
	model.columnsChanged()

	return col, nil
}

// AddColumnFromString appends a column given as a whitespace separated
// list of values, see AddColumn.
func (model *Model) AddColumnFromString(expr string) (int, error) {
	values, err := parseDense(expr)
	if err != nil {
		return 0, err
	}

	return model.AddColumn(values)
}

// DeleteColumn removes a column. The columns after it, their names and
// their Variable handles move down by one; the handle of the deleted column
// becomes unusable.
func (model *Model) DeleteColumn(col int) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	if err := model.checkColumn(col); err != nil {
		return err
	}

	if err := model.matrix.DeleteColumn(col); err != nil {
		return fmt.Errorf("deleting column %d: %w", col, err)
	}
	if err := model.colNames.Remove(col); err != nil {
		panic(fmt.Sprintf("column names out of sync with column %d: %v", col, err))
	}

	deleted := model.vars[col-1].col
	deleted.index = 0
	model.vars = append(model.vars[:col-1], model.vars[col:]...)
	for _, v := range model.vars[col-1:] {
		v.col.index--
	}
	for _, s := range model.sos {
		s.removeColumn(deleted)
	}
	model.columnsChanged()

	return nil
}

// columnsChanged is invalidate for changes in the set of columns, which
// also make the basis hint meaningless.
func (model *Model) columnsChanged() {
	model.basis = nil
	model.invalidate()
}

func (model *Model) checkColumn(col int) error {
	if col < 1 || col > len(model.vars) {
		return fmt.Errorf("column %d: %w", col, ErrIndexOutOfRange)
	}

	return nil
}

/* Bound-related functions */

func checkBounds(lower, upper float64) error {
	if math.IsNaN(lower) || math.IsNaN(upper) {
		return fmt.Errorf("bounds: %w", ErrInvalidValue)
	}
	if lower > upper || math.IsInf(lower, 1) || math.IsInf(upper, -1) {
		return fmt.Errorf("bounds [%g, %g]: %w", lower, upper, ErrInvalidBounds)
	}

	return nil
}

// SetBounds sets the bounds of a column. Pass math.Inf(-1) or math.Inf(1)
// (or anything beyond ±Infinity) to remove a bound. Moving a binary column
// away from [0, 1] turns it into an integer column.
func (model *Model) SetBounds(col int, lower, upper float64) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	return model.setBounds(col, lower, upper)
}

func (model *Model) setBounds(col int, lower, upper float64) error {
	if err := model.checkColumn(col); err != nil {
		return err
	}
	lower, upper = normalizeInf(lower), normalizeInf(upper)
	if err := checkBounds(lower, upper); err != nil {
		return err
	}

	c := model.vars[col-1].col
	c.lower, c.upper = lower, upper
	if c.kind == BinaryVariable && (lower != 0 || upper != 1) {
		c.kind = IntegerVariable
	}
	model.invalidate()

	return nil
}

func (model *Model) Bounds(col int) (lower, upper float64, err error) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if err := model.checkColumn(col); err != nil {
		return 0, 0, err
	}
	c := model.vars[col-1].col

	return c.lower, c.upper, nil
}

func (model *Model) SetLowerBound(col int, lower float64) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	if err := model.checkColumn(col); err != nil {
		return err
	}

	return model.setBounds(col, lower, model.vars[col-1].col.upper)
}

func (model *Model) SetUpperBound(col int, upper float64) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	if err := model.checkColumn(col); err != nil {
		return err
	}

	return model.setBounds(col, model.vars[col-1].col.lower, upper)
}

func (model *Model) LowerBound(col int) (float64, error) {
	lower, _, err := model.Bounds(col)

	return lower, err
}

func (model *Model) UpperBound(col int) (float64, error) {
	_, upper, err := model.Bounds(col)

	return upper, err
}

// SetUnbounded makes a column free.
func (model *Model) SetUnbounded(col int) error {
	return model.SetBounds(col, math.Inf(-1), math.Inf(1))
}

/* Type-related functions */

// SetVariableType sets (enabled) or clears the type of a column. Clearing
// only has an effect when the column currently has that type, and makes it
// continuous; binary columns count as integer ones. Setting
// BinaryVariable also sets the bounds to [0, 1].
func (model *Model) SetVariableType(col int, varType VariableType, enabled bool) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	if err := model.checkColumn(col); err != nil {
		return err
	}

	return model.setVariableType(col, varType, enabled)
}

func (model *Model) setVariableType(col int, varType VariableType, enabled bool) error {
	if !varType.valid() {
		return fmt.Errorf("variable type %d: %w", varType, ErrInvalidType)
	}

	c := model.vars[col-1].col
	switch {
	case enabled:
		c.kind = varType
		if varType == BinaryVariable {
			c.lower, c.upper = 0, 1
		}
	case c.kind == varType, varType == IntegerVariable && c.kind == BinaryVariable:
		c.kind = ContinuousVariable
	default:
		return nil
	}
	model.invalidate()

	return nil
}

func (model *Model) SetInteger(col int, enabled bool) error {
	return model.SetVariableType(col, IntegerVariable, enabled)
}

func (model *Model) SetBinary(col int, enabled bool) error {
	return model.SetVariableType(col, BinaryVariable, enabled)
}

func (model *Model) SetSemiContinuous(col int, enabled bool) error {
	return model.SetVariableType(col, SemiContinuousVariable, enabled)
}

func (model *Model) VariableType(col int) (VariableType, error) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if err := model.checkColumn(col); err != nil {
		return ContinuousVariable, err
	}

	return model.vars[col-1].col.kind, nil
}

// IsInteger reports whether a column is integer or binary.
func (model *Model) IsInteger(col int) bool {
	t, err := model.VariableType(col)

	return err == nil && (t == IntegerVariable || t == BinaryVariable)
}

func (model *Model) IsBinary(col int) bool {
	t, err := model.VariableType(col)

	return err == nil && t == BinaryVariable
}

func (model *Model) IsSemiContinuous(col int) bool {
	t, err := model.VariableType(col)

	return err == nil && t == SemiContinuousVariable
}

// appendColumn adds an empty continuous column with bounds [0, +Inf).
// The caller holds the write lock.
func (model *Model) appendColumn(name string) int {
	col, err := model.matrix.AppendColumn(nil)
	if err != nil {
		panic(fmt.Sprintf("appending empty column: %v", err))
	}
	model.vars = append(model.vars, &Variable{model: model, col: newColumn(col)})
	model.colNames.Append(name)
	model.columnsChanged()

	return col
}
