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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelSize(t *testing.T) {
	model, err := NewModelSize("sized", 2, 3)
	require.NoError(t, err)

	assert.Equal(t, 2, model.RowCount())
	assert.Equal(t, 3, model.ColumnCount())
	assert.Equal(t, model.RowCount(), model.OriginalRowCount())
	assert.Equal(t, model.ColumnCount(), model.OriginalColumnCount())
	assert.False(t, model.IsMaximize())

	rel, err := model.Relation(1)
	require.NoError(t, err)
	assert.Equal(t, FreeRow, rel)

	lower, upper, err := model.Bounds(3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lower)
	assert.Equal(t, math.Inf(1), upper)

	_, err = NewModelSize("bad", -1, 0)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestElements(t *testing.T) {
	model := sampleModel(t)

	v, err := model.Element(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = model.Element(0, 3)
	require.NoError(t, err)
	assert.Equal(t, -2.0, v)

	require.NoError(t, model.SetElement(2, 1, 7))
	v, err = model.Element(2, 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, 8, model.NonZeros())

	_, err = model.Element(3, 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, model.SetElement(1, 5, 1), ErrIndexOutOfRange)
}

func TestRowAndColumn(t *testing.T) {
	model := sampleModel(t)

	row, err := model.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 3, 2, 2, 1}, row)

	row, err = model.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 3, -2, 3}, row)

	col, err := model.Column(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 4}, col)

	_, err = model.Column(0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = model.Row(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestObjective(t *testing.T) {
	model := sampleModel(t)

	require.NoError(t, model.SetObjectiveCoefficient(1, 9))
	coef, err := model.ObjectiveCoefficient(1)
	require.NoError(t, err)
	assert.Equal(t, 9.0, coef)

	require.NoError(t, model.SetObjectiveSparse([]int{4}, []float64{1}))
	row, err := model.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, row)

	assert.ErrorIs(t, model.SetObjective([]float64{1, 2}), ErrDimensionMismatch)
	assert.ErrorIs(t, model.SetObjectiveFromString("1 2 x 4"), ErrParse)
}

func TestDirection(t *testing.T) {
	model := sampleModel(t)

	_, err := model.Solve()
	require.NoError(t, err)
	assert.Equal(t, SolutionOptimal, model.Status())

	model.SetMaximize()
	assert.True(t, model.IsMaximize())
	assert.Equal(t, SolutionNotRun, model.Status(), "changing the direction invalidates the result")

	_, err = model.Solve()
	require.NoError(t, err)
	obj, err := model.ObjectiveValue()
	require.NoError(t, err)
	assert.InDelta(t, 12, obj, delta)

	// setting the same direction keeps the result
	model.SetMaximize()
	assert.Equal(t, SolutionOptimal, model.Status())

	model.SetMinimize()
	assert.Equal(t, "minimize", model.Direction().String())
}

func TestRowAndColumnNames(t *testing.T) {
	model := sampleModel(t)

	name, ok := model.RowName(1)
	require.True(t, ok)
	assert.Equal(t, "R1", name)
	name, _ = model.RowName(0)
	assert.Equal(t, "R0", name)

	require.NoError(t, model.SetRowName(2, "demand"))
	index, ok := model.RowIndex("demand")
	require.True(t, ok)
	assert.Equal(t, 2, index)
	original, _ := model.OriginalRowName(2)
	assert.Equal(t, "R2", original)

	require.NoError(t, model.SetColumnName(3, "z"))
	name, _ = model.ColumnName(3)
	assert.Equal(t, "z", name)
	index, ok = model.ColumnIndex("z")
	require.True(t, ok)
	assert.Equal(t, 3, index)
	index, ok = model.ColumnIndex("C4")
	require.True(t, ok)
	assert.Equal(t, 4, index)

	_, ok = model.ColumnIndex("nope")
	assert.False(t, ok)
	assert.ErrorIs(t, model.SetColumnName(9, "x"), ErrIndexOutOfRange)
}

func TestAddColumn(t *testing.T) {
	model := sampleModel(t)

	col, err := model.AddColumnFromString("3 2 2")
	require.NoError(t, err)
	assert.Equal(t, 5, col)

	values, err := model.Column(5)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 2}, values)

	_, err = model.AddColumn([]float64{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDeleteColumn(t *testing.T) {
	model, err := NewModel("delete", Minimize)
	require.NoError(t, err)

	x, _ := model.AddDefinedVariable("x", ContinuousVariable, 1, 0, 1)
	y, _ := model.AddDefinedVariable("y", ContinuousVariable, 2, 0, 2)
	z, _ := model.AddDefinedVariable("z", ContinuousVariable, 3, 0, 3)
	require.NoError(t, model.AddConstraint(1, math.Inf(1), []*Variable{x, y, z}, []float64{1, 1, 1}))
	_, err = model.AddSOS("s", 1, 1, []int{1, 2, 3}, nil)
	require.NoError(t, err)

	require.NoError(t, model.DeleteColumn(2))
	assert.Equal(t, 2, model.ColumnCount())

	_, ok := y.Index()
	assert.False(t, ok)
	assert.ErrorIs(t, y.SetBounds(0, 1), ErrDeletedVariable)

	index, ok := z.Index()
	require.True(t, ok)
	assert.Equal(t, 2, index)
	assert.Equal(t, "z", z.Name())
	assert.Equal(t, 3.0, z.Coefficient())

	row, err := model.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, row)

	res, err := model.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Value(x), delta)
	assert.InDelta(t, 0, res.Value(z), delta)
	assert.InDelta(t, 0, res.Value(y), delta, "deleted variables have no value")

	assert.ErrorIs(t, model.DeleteColumn(3), ErrIndexOutOfRange)
}

func TestDeleteConstraint(t *testing.T) {
	model := sampleModel(t)
	require.NoError(t, model.SetRowName(2, "second"))

	require.NoError(t, model.DeleteConstraint(1))
	assert.Equal(t, 1, model.RowCount())
	assert.Equal(t, 3, model.NonZeros())

	name, _ := model.RowName(1)
	assert.Equal(t, "second", name)

	assert.ErrorIs(t, model.DeleteConstraint(2), ErrIndexOutOfRange)
}

func TestForeignVariablePanics(t *testing.T) {
	a, _ := NewModel("a", Minimize)
	b, _ := NewModel("b", Minimize)
	x, _ := a.AddVariable("x")

	assert.Panics(t, func() {
		b.AddConstraint(0, 1, []*Variable{x}, []float64{1})
	})
}
