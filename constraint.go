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
	"sort"
	"strconv"
	"strings"
)

// Relation is the relational operator of a constraint row.
type Relation int

const (
	FreeRow Relation = iota
	LessOrEqual
	GreaterOrEqual
	Equal
)

func (r Relation) String() string {
	switch r {
	case FreeRow:
		return "free"
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

func (r Relation) valid() bool {
	return r >= FreeRow && r <= Equal
}

// constraint holds the attributes of one row. rng is the width of the
// interval the row activity may move in from rhs, +Inf when the row has
// no range.
type constraint struct {
	relation Relation
	rhs      float64
	rng      float64
}

// bounds returns the interval the row activity is restricted to.
func (c *constraint) bounds() (lower, upper float64) {
	switch c.relation {
	case LessOrEqual:
		return c.rhs - c.rng, c.rhs
	case GreaterOrEqual:
		return c.rhs, c.rhs + c.rng
	case Equal:
		return c.rhs, c.rhs
	default:
		return math.Inf(-1), math.Inf(1)
	}
}

// setBounds restricts the row activity to [lower, upper], keeping the
// relation where the interval allows it. lower <= upper must hold.
func (c *constraint) setBounds(lower, upper float64) {
	c.rng = math.Inf(1)
	switch {
	case math.IsInf(lower, -1) && math.IsInf(upper, 1):
		c.relation, c.rhs = FreeRow, 0
	case lower == upper:
		c.relation, c.rhs = Equal, lower
	case math.IsInf(lower, -1):
		c.relation, c.rhs = LessOrEqual, upper
	case math.IsInf(upper, 1):
		c.relation, c.rhs = GreaterOrEqual, lower
	case c.relation == LessOrEqual:
		c.rhs, c.rng = upper, upper-lower
	default:
		c.relation, c.rhs, c.rng = GreaterOrEqual, lower, upper-lower
	}
}

/* Constraint-related functions */

// AddConstraint adds a constraint to the model as a lower and an upper
// bounds, a slice of variables and a slice of their respective
// coefficients. Pass math.Inf(-1) or math.Inf(1) for a missing bound.
func (model *Model) AddConstraint(lower, upper float64, vars []*Variable, coefs []float64) error {
	if len(vars) != len(coefs) {
		return fmt.Errorf("inconsistent number of variables and coefficients: %d != %d: %w", len(vars), len(coefs), ErrDimensionMismatch)
	}

	lower, upper = normalizeInf(lower), normalizeInf(upper)
	if math.IsNaN(lower) || math.IsNaN(upper) {
		return fmt.Errorf("constraint bounds: %w", ErrInvalidValue)
	}
	if lower > upper {
		return fmt.Errorf("constraint bounds [%g, %g]: %w", lower, upper, ErrInvalidBounds)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	cols := make([]int, len(vars))
	for i, v := range vars {
		if cols[i] = model.mustIndex(v); cols[i] == 0 {
			return ErrDeletedVariable
		}
	}

	c := &constraint{rng: math.Inf(1)}
	switch {
	case math.IsInf(lower, 0) && math.IsInf(upper, 0):
		c.relation = FreeRow
	case math.IsInf(lower, 0):
		c.relation, c.rhs = LessOrEqual, upper
	case math.IsInf(upper, 0):
		c.relation, c.rhs = GreaterOrEqual, lower
	case upper == lower:
		c.relation, c.rhs = Equal, upper
	default:
		c.relation, c.rhs, c.rng = GreaterOrEqual, lower, upper-lower
	}

	_, err := model.addRow("", cols, coefs, c)

	return err
}

// AddConstraintSparse appends a row with the given coefficients, relation
// and right-hand side and returns its index.
func (model *Model) AddConstraintSparse(cols []int, coefs []float64, rel Relation, rhs float64) (int, error) {
	return model.AddNamedConstraint("", cols, coefs, rel, rhs)
}

// AddNamedConstraint is AddConstraintSparse for a named row.
func (model *Model) AddNamedConstraint(name string, cols []int, coefs []float64, rel Relation, rhs float64) (int, error) {
	if !rel.valid() {
		return 0, fmt.Errorf("relation %d: %w", rel, ErrInvalidRelation)
	}

	rhs = normalizeInf(rhs)
	if math.IsNaN(rhs) {
		return 0, fmt.Errorf("right-hand side: %w", ErrInvalidValue)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	return model.addRow(name, cols, coefs, &constraint{relation: rel, rhs: rhs, rng: math.Inf(1)})
}

// AddConstraintDense appends a row given as one coefficient per column.
func (model *Model) AddConstraintDense(coefs []float64, rel Relation, rhs float64) (int, error) {
	if n := model.ColumnCount(); len(coefs) != n {
		return 0, fmt.Errorf("constraint with %d coefficients for %d columns: %w", len(coefs), n, ErrDimensionMismatch)
	}

	cols := make([]int, len(coefs))
	for i := range cols {
		cols[i] = i + 1
	}

	return model.AddConstraintSparse(cols, coefs, rel, rhs)
}

// AddConstraintFromString appends a row given as a whitespace separated
// list of coefficients, one per column, e.g. "3 2 2 1".
func (model *Model) AddConstraintFromString(expr string, rel Relation, rhs float64) (int, error) {
	coefs, err := parseDense(expr)
	if err != nil {
		return 0, err
	}

	return model.AddConstraintDense(coefs, rel, rhs)
}

func (model *Model) addRow(name string, cols []int, coefs []float64, c *constraint) (int, error) {
	entries, err := model.sparseRow(cols, coefs)
	if err != nil {
		return 0, fmt.Errorf("adding constraint: %w", err)
	}
	if name != "" && strings.TrimSpace(name) != name {
		return 0, fmt.Errorf("constraint name %q: %w", name, ErrInvalidName)
	}

	index, err := model.matrix.AppendRow(entries)
	if err != nil {
		return 0, fmt.Errorf("adding constraint: %w", err)
	}
	model.rows = append(model.rows, c)
	model.rowNames.Append(name)
	model.invalidate()

	return index, nil
}

// DeleteConstraint removes a row. The rows after it move up by one,
// names included.
func (model *Model) DeleteConstraint(row int) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	if err := model.checkRow(row); err != nil {
		return err
	}

	if err := model.matrix.DeleteRow(row); err != nil {
		return fmt.Errorf("deleting row %d: %w", row, err)
	}
	model.rows = append(model.rows[:row-1], model.rows[row:]...)
	if err := model.rowNames.Remove(row); err != nil {
		panic(fmt.Sprintf("row names out of sync with row %d: %v", row, err))
	}
	model.invalidate()

	return nil
}

func (model *Model) checkRow(row int) error {
	if row < 1 || row > len(model.rows) {
		return fmt.Errorf("row %d: %w", row, ErrIndexOutOfRange)
	}

	return nil
}

/* Row attribute functions */

// SetRightHandSide changes the right-hand side of a row. Row 0 sets the
// constant of the objective function, which is only possible once the
// model has constraint rows.
func (model *Model) SetRightHandSide(row int, value float64) error {
	value = normalizeInf(value)
	if math.IsNaN(value) {
		return fmt.Errorf("right-hand side: %w", ErrInvalidValue)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	if row == 0 && len(model.rows) > 0 {
		if math.IsInf(value, 0) {
			return fmt.Errorf("objective constant: %w", ErrInvalidValue)
		}
		model.objConst = value
		model.invalidate()

		return nil
	}

	if err := model.checkRow(row); err != nil {
		return err
	}
	model.rows[row-1].rhs = value
	model.invalidate()

	return nil
}

func (model *Model) RightHandSide(row int) (float64, error) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if row != 0 {
		if err := model.checkRow(row); err != nil {
			return 0, err
		}
	}

	return model.rightHandSide(row), nil
}

func (model *Model) rightHandSide(row int) float64 {
	if row == 0 {
		return model.objConst
	}

	return model.rows[row-1].rhs
}

// SetRange turns a row into a double-bounded one: the activity may move
// away from the right-hand side by at most |delta|, downwards for a
// LessOrEqual row and upwards otherwise. An infinite delta removes the
// range. Setting a range on an Equal row makes it a GreaterOrEqual one.
func (model *Model) SetRange(row int, delta float64) error {
	delta = math.Abs(normalizeInf(delta))
	if math.IsNaN(delta) {
		return fmt.Errorf("range: %w", ErrInvalidValue)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	if err := model.checkRow(row); err != nil {
		return err
	}

	c := model.rows[row-1]
	switch c.relation {
	case FreeRow:
		return fmt.Errorf("range on free row %d: %w", row, ErrInvalidRelation)
	case Equal:
		if delta == 0 {
			return nil
		}
		c.relation = GreaterOrEqual
	}
	c.rng = delta
	model.invalidate()

	return nil
}

// RowBounds returns the interval the activity of a row is restricted to.
func (model *Model) RowBounds(row int) (lower, upper float64, err error) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if err := model.checkRow(row); err != nil {
		return 0, 0, err
	}
	lower, upper = model.rows[row-1].bounds()

	return lower, upper, nil
}

// SetRelation changes the relational operator of a row, dropping its
// range.
func (model *Model) SetRelation(row int, rel Relation) error {
	if !rel.valid() {
		return fmt.Errorf("relation %d: %w", rel, ErrInvalidRelation)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	if err := model.checkRow(row); err != nil {
		return err
	}
	model.rows[row-1].relation = rel
	model.rows[row-1].rng = math.Inf(1)
	model.invalidate()

	return nil
}

func (model *Model) Relation(row int) (Relation, error) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if err := model.checkRow(row); err != nil {
		return FreeRow, err
	}

	return model.rows[row-1].relation, nil
}

/* SOS-related functions */

// sosSet is a special ordered set. Its members are column handles, so it
// follows column renumbering.
type sosSet struct {
	name     string
	sosType  int
	priority int
	cols     []*column
	weights  []float64
}

func (s *sosSet) clone(cols map[*column]*column) *sosSet {
	c := &sosSet{
		name:     s.name,
		sosType:  s.sosType,
		priority: s.priority,
		weights:  append([]float64(nil), s.weights...),
	}
	for _, col := range s.cols {
		c.cols = append(c.cols, cols[col])
	}

	return c
}

// removeColumn drops a deleted column from the set.
func (s *sosSet) removeColumn(col *column) {
	for i, c := range s.cols {
		if c == col {
			s.cols = append(s.cols[:i], s.cols[i+1:]...)
			s.weights = append(s.weights[:i], s.weights[i+1:]...)

			return
		}
	}
}

// AddSOS adds a special ordered set of type 1 (at most one member nonzero)
// or type 2 (at most two adjacent members nonzero) and returns the number
// of sets in the model. Members are ordered by weight; nil weights number
// them 1, 2, ... in the given order. Sets with a lower priority are
// branched on first.
func (model *Model) AddSOS(name string, sosType, priority int, cols []int, weights []float64) (int, error) {
	if sosType != 1 && sosType != 2 {
		return 0, fmt.Errorf("SOS type %d: %w", sosType, ErrInvalidValue)
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("SOS %q without columns: %w", name, ErrInvalidValue)
	}
	if weights == nil {
		weights = make([]float64, len(cols))
		for i := range weights {
			weights[i] = float64(i + 1)
		}
	}
	if len(weights) != len(cols) {
		return 0, fmt.Errorf("SOS with %d columns and %d weights: %w", len(cols), len(weights), ErrDimensionMismatch)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	s := &sosSet{name: name, sosType: sosType, priority: priority}
	seen := make(map[int]bool, len(cols))
	for i, col := range cols {
		if col < 1 || col > len(model.vars) {
			return 0, fmt.Errorf("SOS column %d: %w", col, ErrIndexOutOfRange)
		}
		if err := checkValue(weights[i]); err != nil {
			return 0, fmt.Errorf("SOS weight of column %d: %w", col, err)
		}
		if seen[col] {
			return 0, fmt.Errorf("SOS column %d given twice: %w", col, ErrInvalidValue)
		}
		seen[col] = true
		s.cols = append(s.cols, model.vars[col-1].col)
		s.weights = append(s.weights, weights[i])
	}
	model.sos = append(model.sos, s)
	model.invalidate()

	return len(model.sos), nil
}

// SOSCount returns the number of special ordered sets in the model.
func (model *Model) SOSCount() int {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return len(model.sos)
}

// sortedSOS returns the sets ordered by priority, for writers.
func (model *Model) sortedSOS() []*sosSet {
	sets := append([]*sosSet(nil), model.sos...)
	sort.SliceStable(sets, func(i, j int) bool { return sets[i].priority < sets[j].priority })

	return sets
}

// parseDense parses a whitespace separated list of numbers.
func parseDense(expr string) ([]float64, error) {
	fields := strings.Fields(expr)
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("coefficient %q: %w", f, ErrParse)
		}
		values[i] = normalizeInf(v)
	}

	return values, nil
}
