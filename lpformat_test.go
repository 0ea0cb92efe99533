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
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLPFile(t *testing.T) {
	model, err := ReadLPFile(filepath.Join("testdata", "model.lp"))
	require.NoError(t, err)

	assert.Equal(t, 3, model.RowCount())
	assert.Equal(t, 2, model.ColumnCount())
	assert.True(t, model.IsMaximize())

	column, err := model.Column(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{143, 120, 110, 1}, column)

	name, _ := model.ColumnName(2)
	assert.Equal(t, "y", name)

	res, err := model.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 6315.625, res.ObjectiveValue(), delta)
	assert.InDeltaSlice(t, []float64{21.875, 53.125}, res.Primals(), delta)

	_, err = ReadLPFile(filepath.Join("testdata", "missing.lp"))
	assert.Error(t, err)
}

func TestReadLP(t *testing.T) {
	src := `
// objective with a constant
min: 2a + 3b - c + 4;

c1: a + b >= 2;
c2: 3 a + 2 b - c <= 10 + 2;
-5 <= a - b <= 8;
R4: 12 >= a + c >= 1;
c5: 2 b = 3;
c2: >= -4;

/* bounds */
a <= 4;
-b >= -10;
-1 <= c <= 8;
3 d >= 6;

int a;
sec c;
free e;
bin f;
`
	model, err := ReadLP(strings.NewReader(src))
	require.NoError(t, err)

	assert.False(t, model.IsMaximize())
	assert.Equal(t, 5, model.RowCount())
	assert.Equal(t, 6, model.ColumnCount())
	assert.Equal(t, 4.0, model.objConst)

	obj, err := model.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 2, 3, -1, 0, 0, 0}, obj)

	row, ok := model.RowIndex("c2")
	require.True(t, ok)
	assert.Equal(t, 2, row)
	lower, upper, err := model.RowBounds(row)
	require.NoError(t, err)
	assert.Equal(t, -4.0, lower)
	assert.Equal(t, 12.0, upper)
	rel, _ := model.Relation(row)
	assert.Equal(t, LessOrEqual, rel)

	// unlabeled ranges get default names
	name, _ := model.RowName(3)
	assert.Equal(t, "R3", name)
	lower, upper, _ = model.RowBounds(3)
	assert.Equal(t, -5.0, lower)
	assert.Equal(t, 8.0, upper)
	rel, _ = model.Relation(3)
	assert.Equal(t, GreaterOrEqual, rel)

	lower, upper, _ = model.RowBounds(4)
	assert.Equal(t, 1.0, lower)
	assert.Equal(t, 12.0, upper)
	rel, _ = model.Relation(4)
	assert.Equal(t, LessOrEqual, rel)

	rel, _ = model.Relation(5)
	assert.Equal(t, Equal, rel)
	rhs, _ := model.RightHandSide(5)
	assert.Equal(t, 3.0, rhs)

	bounds := func(name string) (float64, float64) {
		col, ok := model.ColumnIndex(name)
		require.True(t, ok, name)
		l, u, err := model.Bounds(col)
		require.NoError(t, err)

		return l, u
	}
	l, u := bounds("a")
	assert.Equal(t, 0.0, l)
	assert.Equal(t, 4.0, u)
	l, u = bounds("b")
	assert.Equal(t, 0.0, l)
	assert.Equal(t, 10.0, u)
	l, u = bounds("c")
	assert.Equal(t, -1.0, l)
	assert.Equal(t, 8.0, u)
	l, u = bounds("d")
	assert.Equal(t, 2.0, l)
	assert.True(t, math.IsInf(u, 1))
	l, u = bounds("e")
	assert.True(t, math.IsInf(l, -1))
	assert.True(t, math.IsInf(u, 1))
	l, u = bounds("f")
	assert.Equal(t, 0.0, l)
	assert.Equal(t, 1.0, u)

	col, _ := model.ColumnIndex("a")
	assert.True(t, model.IsInteger(col))
	col, _ = model.ColumnIndex("c")
	assert.True(t, model.IsSemiContinuous(col))
	col, _ = model.ColumnIndex("f")
	assert.True(t, model.IsBinary(col))
}

func TestReadLPConstraintsOnly(t *testing.T) {
	// a first statement with a relation is a constraint, not an objective
	model, err := ReadLP(strings.NewReader("c1: x + y >= 2;"))
	require.NoError(t, err)

	assert.Equal(t, 1, model.RowCount())
	obj, _ := model.Row(0)
	assert.Equal(t, []float64{0, 0, 0}, obj)

	model, err = ReadLP(strings.NewReader("maximise: 3x;\nR1: x <= 4;"))
	require.NoError(t, err)
	assert.True(t, model.IsMaximize())
	assert.Equal(t, 1, model.RowCount())

	res, err := model.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 12, res.ObjectiveValue(), delta)
}

func TestReadLPSOS(t *testing.T) {
	src := `max: x + 2y + 3z;
c1: x + y + z <= 40;
x <= 40; y <= 30; z <= 30;

sos1
s1: x:5,y:10,z:15 <= 2;
`
	model, err := ReadLP(strings.NewReader(src))
	require.NoError(t, err)

	require.Equal(t, 1, model.SOSCount())
	s := model.sos[0]
	assert.Equal(t, "s1", s.name)
	assert.Equal(t, 1, s.sosType)
	assert.Equal(t, 2, s.priority)
	assert.Equal(t, []float64{5, 10, 15}, s.weights)

	res, err := model.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 90, res.ObjectiveValue(), delta)
}

func TestReadLPErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
	}{
		{"bad character", "max: 3x # 2y;"},
		{"unterminated comment", "max: x; /* bounds"},
		{"missing semicolon", "max: x"},
		{"duplicate label", "max: x;\nc1: x + y <= 2;\nc1: x - y >= 1;"},
		{"unknown row", "max: x;\nc9: <= 4;"},
		{"mixed range", "max: x;\n1 <= x + y >= 3;"},
		{"infeasible bounds", "max: x;\nx >= 5;\nx <= 2;"},
		{"dangling sign", "max: x +;"},
		{"bad section", "max: x;\nint x 3;"},
		{"bad sos type", "max: x;\nsos1\ns1: x:1 >= 2;"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			model, err := ReadLP(strings.NewReader(tc.src))
			assert.ErrorIs(t, err, ErrParse)
			assert.Nil(t, model)
		})
	}

	_, err := ReadLP(strings.NewReader("max: x;\n\nc1: x + y <= 2;\nc1: x <= 1;"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
}

func TestWriteLP(t *testing.T) {
	model := sampleModel(t)
	require.NoError(t, model.SetRowName(2, "demand"))

	var buf bytes.Buffer
	require.NoError(t, model.WriteLP(&buf))

	out := buf.String()
	assert.Contains(t, out, "/* sample */")
	assert.Contains(t, out, "min: +2 C1 +3 C2 -2 C3 +3 C4;")
	assert.Contains(t, out, "+3 C1 +2 C2 +2 C3 +1 C4 <= 4;")
	assert.Contains(t, out, "demand: +4 C2 +3 C3 +1 C4 >= 3;")
}

func TestWriteLPRoundTrip(t *testing.T) {
	model, err := NewModel("round trip", Maximize)
	require.NoError(t, err)

	x, _ := model.AddDefinedVariable("x", IntegerVariable, 3, -2, 10)
	y, _ := model.AddDefinedVariable("y", ContinuousVariable, 2, math.Inf(-1), 6)
	z, _ := model.AddDefinedVariable("z", BinaryVariable, -1, 0, 1)
	w, _ := model.AddDefinedVariable("w", SemiContinuousVariable, 1, 2, 8)
	v, _ := model.AddDefinedVariable("v", ContinuousVariable, 0, 5, 5)
	vars := []*Variable{x, y, z, w, v}

	require.NoError(t, model.AddConstraint(math.Inf(-1), 20, vars, []float64{1, 1, 1, 1, 1}))
	require.NoError(t, model.AddConstraint(-4, 9, []*Variable{x, y}, []float64{1, -1}))
	require.NoError(t, model.AddConstraint(3, 3, []*Variable{z, w}, []float64{2, 1}))
	require.NoError(t, model.AddConstraint(1, math.Inf(1), []*Variable{y}, []float64{1}))
	_, err = model.AddConstraintSparse(nil, nil, FreeRow, 0)
	require.NoError(t, err)
	row, err := model.AddConstraintSparse([]int{1, 4}, []float64{1, 2}, LessOrEqual, 12)
	require.NoError(t, err)
	require.NoError(t, model.SetRange(row, -10))
	_, err = model.AddSOS("s1", 1, 1, []int{3, 4}, []float64{1, 2})
	require.NoError(t, err)
	require.NoError(t, model.SetRightHandSide(0, -7))

	path := filepath.Join(t.TempDir(), "model.lp")
	require.NoError(t, model.WriteLPFile(path))

	read, err := ReadLPFile(path)
	require.NoError(t, err)

	assertEquivalent(t, model, read)
}

// assertEquivalent compares the structure of two models.
func assertEquivalent(t *testing.T, expected, actual *Model) {
	t.Helper()

	require.Equal(t, expected.RowCount(), actual.RowCount())
	require.Equal(t, expected.ColumnCount(), actual.ColumnCount())
	assert.Equal(t, expected.Direction(), actual.Direction())
	assert.Equal(t, expected.objConst, actual.objConst)

	for row := 0; row <= expected.RowCount(); row++ {
		e, err := expected.Row(row)
		require.NoError(t, err)
		a, err := actual.Row(row)
		require.NoError(t, err)
		assert.Equal(t, e, a, "row %d", row)
		if row == 0 {
			continue
		}

		eRel, _ := expected.Relation(row)
		aRel, _ := actual.Relation(row)
		assert.Equal(t, eRel, aRel, "relation of row %d", row)
		el, eu, _ := expected.RowBounds(row)
		al, au, _ := actual.RowBounds(row)
		assert.Equal(t, el, al, "lower bound of row %d", row)
		assert.Equal(t, eu, au, "upper bound of row %d", row)
	}

	for col := 1; col <= expected.ColumnCount(); col++ {
		eName, _ := expected.ColumnName(col)
		aName, _ := actual.ColumnName(col)
		assert.Equal(t, eName, aName)

		eType, _ := expected.VariableType(col)
		aType, _ := actual.VariableType(col)
		assert.Equal(t, eType, aType, "type of %s", eName)

		el, eu, _ := expected.Bounds(col)
		al, au, _ := actual.Bounds(col)
		assert.Equal(t, el, al, "lower bound of %s", eName)
		assert.Equal(t, eu, au, "upper bound of %s", eName)
	}

	require.Equal(t, expected.SOSCount(), actual.SOSCount())
	for i, s := range expected.sos {
		a := actual.sos[i]
		assert.Equal(t, s.name, a.name)
		assert.Equal(t, s.sosType, a.sosType)
		assert.Equal(t, s.priority, a.priority)
		assert.Equal(t, s.weights, a.weights)
		for k, col := range s.cols {
			assert.Equal(t, col.index, a.cols[k].index)
		}
	}
}
