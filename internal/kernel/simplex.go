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
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	simplexTolerance = 1e-10
	zeroTolerance    = 1e-9
	feasTolerance    = 1e-7
)

var errSimplexPanic = errors.New("simplex panicked")

// relaxation is the outcome of solving one linear relaxation.
type relaxation struct {
	status    Status
	objective float64
	x         []float64
	activity  []float64
	duals     []float64
	basis     []int
	warm      bool // started from the hinted basis
}

type columnKind int

const (
	fixedColumn    columnKind = iota // x = offset
	shiftedColumn                    // x = offset + y
	mirroredColumn                   // x = offset - y
	splitColumn                      // x = y - y'
)

type stdColumn struct {
	kind   columnKind
	y, y2  int
	offset float64
}

// standardForm is a relaxation rewritten as min c·y, A y = b, y >= 0.
type standardForm struct {
	c      []float64
	a      [][]float64
	b      []float64
	cols   []stdColumn
	rowOf  []int // general row -> standard row, -1 for free rows
	offset float64
}

// standardize rewrites p with the column bounds lower/upper into standard
// form. Finite lower bounds are shifted to zero, columns bounded only from
// above are mirrored, free columns are split in two and finite upper bounds
// become extra rows. Every inequality gets a slack column.
func standardize(p *Problem, lower, upper []float64) (*standardForm, Status) {
	m, n := p.Dims()
	sf := &standardForm{
		cols:   make([]stdColumn, n),
		rowOf:  make([]int, m),
		offset: p.Offset,
	}

	width := 0
	var bounded []int // general columns needing an upper bound row
	for j := 0; j < n; j++ {
		lo, up := lower[j], upper[j]
		if lo > up+feasTolerance {
			return nil, Infeasible
		}

		switch {
		case isFinite(lo) && isFinite(up) && up-lo <= zeroTolerance:
			sf.cols[j] = stdColumn{kind: fixedColumn, offset: lo}
		case isFinite(lo):
			sf.cols[j] = stdColumn{kind: shiftedColumn, y: width, offset: lo}
			width++
			if isFinite(up) {
				bounded = append(bounded, j)
			}
		case isFinite(up):
			sf.cols[j] = stdColumn{kind: mirroredColumn, y: width, offset: up}
			width++
		default:
			sf.cols[j] = stdColumn{kind: splitColumn, y: width, y2: width + 1}
			width += 2
		}
	}

	slacks := len(bounded)
	for i := 0; i < m; i++ {
		lo, up := p.RowLower[i], p.RowUpper[i]
		if lo > up+feasTolerance {
			return nil, Infeasible
		}
		switch {
		case isFinite(lo) && isFinite(up) && up-lo > zeroTolerance:
			slacks += 2
		case isFinite(lo) != isFinite(up):
			slacks++
		}
	}
	width += slacks

	sf.c = make([]float64, width)
	for j, col := range sf.cols {
		cost := p.Cost[j]
		switch col.kind {
		case fixedColumn:
			sf.offset += cost * col.offset
		case shiftedColumn:
			sf.c[col.y] = cost
			sf.offset += cost * col.offset
		case mirroredColumn:
			sf.c[col.y] = -cost
			sf.offset += cost * col.offset
		case splitColumn:
			sf.c[col.y] = cost
			sf.c[col.y2] = -cost
		}
	}

	slack := width - slacks
	addRow := func(row []float64, rhs float64) int {
		sf.a = append(sf.a, row)
		sf.b = append(sf.b, rhs)
		return len(sf.a) - 1
	}

	for i := 0; i < m; i++ {
		lo, up := p.RowLower[i], p.RowUpper[i]
		if !isFinite(lo) && !isFinite(up) {
			sf.rowOf[i] = -1
			continue
		}

		row := make([]float64, width)
		constant := 0.0
		for j, col := range sf.cols {
			v := p.element(i, j)
			if v == 0 {
				continue
			}
			switch col.kind {
			case fixedColumn:
				constant += v * col.offset
			case shiftedColumn:
				row[col.y] += v
				constant += v * col.offset
			case mirroredColumn:
				row[col.y] -= v
				constant += v * col.offset
			case splitColumn:
				row[col.y] += v
				row[col.y2] -= v
			}
		}

		switch {
		case isFinite(lo) && isFinite(up) && up-lo <= zeroTolerance:
			sf.rowOf[i] = addRow(row, up-constant)
		case isFinite(lo) && isFinite(up):
			row[slack] = -1
			sf.rowOf[i] = addRow(row, lo-constant)
			rangeRow := make([]float64, width)
			rangeRow[slack] = 1
			rangeRow[slack+1] = 1
			addRow(rangeRow, up-lo)
			slack += 2
		case isFinite(lo):
			row[slack] = -1
			sf.rowOf[i] = addRow(row, lo-constant)
			slack++
		default:
			row[slack] = 1
			sf.rowOf[i] = addRow(row, up-constant)
			slack++
		}
	}

	for _, j := range bounded {
		row := make([]float64, width)
		row[sf.cols[j].y] = 1
		row[slack] = 1
		addRow(row, upper[j]-lower[j])
		slack++
	}

	return sf, Optimal
}

// solveRelaxation solves the linear relaxation of p restricted to the given
// column bounds. The simplex starts from the columns in hint when they can be
// completed to a feasible basis, and from scratch otherwise.
func solveRelaxation(p *Problem, lower, upper []float64, hint []int) relaxation {
	sf, status := standardize(p, lower, upper)
	if status != Optimal {
		return relaxation{status: status}
	}

	y, rowDuals, warm, status := sf.solve(hint)
	if status != Optimal {
		return relaxation{status: status}
	}

	m, n := p.Dims()
	res := relaxation{
		status:   Optimal,
		x:        make([]float64, n),
		activity: make([]float64, m),
		duals:    make([]float64, m),
		warm:     warm,
	}

	for j, col := range sf.cols {
		switch col.kind {
		case fixedColumn:
			res.x[j] = col.offset
		case shiftedColumn:
			res.x[j] = col.offset + y[col.y]
		case mirroredColumn:
			res.x[j] = col.offset - y[col.y]
		case splitColumn:
			res.x[j] = y[col.y] - y[col.y2]
		}

		if lo, up := lower[j], upper[j]; res.x[j]-lo > zeroTolerance && up-res.x[j] > zeroTolerance {
			res.basis = append(res.basis, j)
		}
	}

	for i, std := range sf.rowOf {
		if std >= 0 {
			res.duals[i] = rowDuals[std]
		}
	}

	res.evaluate(p)

	return res
}

// evaluate recomputes the objective and row activities from x.
func (res *relaxation) evaluate(p *Problem) {
	m, n := p.Dims()
	res.objective = floats.Dot(p.Cost, res.x) + p.Offset
	for i := 0; i < m; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += p.element(i, j) * res.x[j]
		}
		res.activity[i] = sum
	}
}

// reducedCosts returns c - Aᵀy for the duals of res.
func (res *relaxation) reducedCosts(p *Problem) []float64 {
	m, n := p.Dims()
	d := make([]float64, n)
	copy(d, p.Cost)
	for i := 0; i < m; i++ {
		if res.duals[i] == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			d[j] -= p.element(i, j) * res.duals[i]
		}
	}

	return d
}

// solve runs the simplex on the standard form and returns y and the duals
// of the standard rows. warm reports whether the simplex started from the
// basis built around the general columns in hint.
func (sf *standardForm) solve(hint []int) (y, duals []float64, warm bool, status Status) {
	width := len(sf.c)
	y = make([]float64, width)
	duals = make([]float64, len(sf.a))

	// gonum rejects all-zero columns: they either make the problem unbounded
	// or sit at zero.
	var cols []int
	for k := 0; k < width; k++ {
		zero := true
		for _, row := range sf.a {
			if row[k] != 0 {
				zero = false
				break
			}
		}
		if !zero {
			cols = append(cols, k)
			continue
		}
		if sf.c[k] < -zeroTolerance {
			return nil, nil, false, Unbounded
		}
	}

	rows, consistent := independentRows(sf.a, sf.b)
	if !consistent {
		return nil, nil, false, Infeasible
	}
	if len(rows) == 0 {
		return y, duals, false, Optimal
	}

	a := mat.NewDense(len(rows), len(cols), nil)
	b := make([]float64, len(rows))
	c := make([]float64, len(cols))
	for r, i := range rows {
		for k, col := range cols {
			a.Set(r, k, sf.a[i][col])
		}
		b[r] = sf.b[i]
	}
	for k, col := range cols {
		c[k] = sf.c[col]
	}

	var (
		x   []float64
		err error
	)
	if initial := sf.initialBasis(hint, cols, a, b); initial != nil {
		_, x, err = runSimplex(c, a, b, initial)
		warm = err == nil
	}
	if !warm {
		_, x, err = runSimplex(c, a, b, nil)
	}
	switch {
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible):
		return nil, nil, false, Infeasible
	case errors.Is(err, lp.ErrUnbounded):
		return nil, nil, false, Unbounded
	case errors.Is(err, lp.ErrSingular):
		return nil, nil, false, Degenerate
	default:
		return nil, nil, false, NumericalFailure
	}

	for k, col := range cols {
		y[col] = math.Max(x[k], 0)
	}

	if rowDuals := simplexDuals(a, c, x); rowDuals != nil {
		for r, i := range rows {
			duals[i] = rowDuals[r]
		}
	}

	return y, duals, warm, Optimal
}

// initialBasis completes the general columns in hint to a basis of a, whose
// columns are the standard columns listed in cols. Hinted columns are taken
// first, then the others from the last one, so slacks fill the remaining
// rows. It returns nil when hint is empty or the basis is singular or
// infeasible.
func (sf *standardForm) initialBasis(hint, cols []int, a *mat.Dense, b []float64) []int {
	if len(hint) == 0 {
		return nil
	}
	m, n := a.Dims()

	position := make(map[int]int, len(cols))
	for k, col := range cols {
		position[col] = k
	}

	seen := make([]bool, n)
	order := make([]int, 0, n)
	push := func(k int) {
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}
	for _, j := range hint {
		if j < 0 || j >= len(sf.cols) || sf.cols[j].kind == fixedColumn {
			continue
		}
		if k, ok := position[sf.cols[j].y]; ok {
			push(k)
		}
	}
	if len(order) == 0 {
		return nil
	}
	for k := n - 1; k >= 0; k-- {
		push(k)
	}

	basis := independentColumns(a, order)
	if basis == nil {
		return nil
	}

	ab := mat.NewDense(m, m, nil)
	col := make([]float64, m)
	for r, k := range basis {
		mat.Col(col, k, a)
		ab.SetCol(r, col)
	}
	var xb mat.VecDense
	if err := xb.SolveVec(ab, mat.NewVecDense(m, b)); err != nil {
		return nil
	}
	for _, v := range xb.RawVector().Data {
		if v < 0 {
			return nil
		}
	}

	return basis
}

func runSimplex(c []float64, a *mat.Dense, b []float64, initial []int) (f float64, x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errSimplexPanic, r)
		}
	}()

	return lp.Simplex(c, a, b, simplexTolerance, initial)
}

// independentRows returns the indices of a maximal linearly independent
// subset of the rows of a, found by Gaussian elimination. It reports false
// if a dependent row contradicts the rows it depends on.
func independentRows(a [][]float64, b []float64) ([]int, bool) {
	type pivot struct {
		row []float64
		rhs float64
		col int
	}

	var (
		pivots []pivot
		keep   []int
	)
	for i, orig := range a {
		row := make([]float64, len(orig))
		copy(row, orig)
		rhs := b[i]
		scale := math.Max(floats.Norm(row, math.Inf(1)), 1)

		for _, p := range pivots {
			if f := row[p.col]; f != 0 {
				factor := f / p.row[p.col]
				floats.AddScaled(row, -factor, p.row)
				rhs -= factor * p.rhs
			}
		}

		col, largest := -1, 0.0
		for k, v := range row {
			if math.Abs(v) > largest {
				col, largest = k, math.Abs(v)
			}
		}

		if largest <= zeroTolerance*scale {
			if math.Abs(rhs) > feasTolerance*math.Max(1, math.Abs(b[i])) {
				return nil, false
			}
			continue
		}

		pivots = append(pivots, pivot{row: row, rhs: rhs, col: col})
		keep = append(keep, i)
	}

	return keep, true
}

// simplexDuals recovers the duals of min c·x, Ax = b from an optimal x by
// choosing a basis that contains every positive column and solving
// Bᵀy = c_B. It returns nil when no nonsingular basis can be formed.
func simplexDuals(a *mat.Dense, c, x []float64) []float64 {
	m, n := a.Dims()

	order := make([]int, 0, n)
	for k := 0; k < n; k++ {
		if x[k] > zeroTolerance {
			order = append(order, k)
		}
	}
	for k := n - 1; k >= 0; k-- {
		if x[k] <= zeroTolerance {
			order = append(order, k)
		}
	}

	basis := independentColumns(a, order)
	if basis == nil {
		return nil
	}

	col := make([]float64, m)
	bt := mat.NewDense(m, m, nil)
	cb := make([]float64, m)
	for r, k := range basis {
		mat.Col(col, k, a)
		bt.SetRow(r, col)
		cb[r] = c[k]
	}

	var y mat.VecDense
	if err := y.SolveVec(bt, mat.NewVecDense(m, cb)); err != nil {
		return nil
	}

	return y.RawVector().Data
}

// independentColumns picks columns of a in the given order, skipping those
// that depend on the ones already picked, until there is one per row. It
// returns nil if the columns do not span the rows.
func independentColumns(a *mat.Dense, order []int) []int {
	m, _ := a.Dims()

	var (
		basis []int
		ortho [][]float64
	)
	col := make([]float64, m)
	for _, k := range order {
		if len(basis) == m {
			break
		}
		mat.Col(col, k, a)
		norm := floats.Norm(col, 2)
		if norm == 0 {
			continue
		}
		r := make([]float64, m)
		copy(r, col)
		for _, q := range ortho {
			floats.AddScaled(r, -floats.Dot(q, r), q)
		}
		rn := floats.Norm(r, 2)
		if rn <= zeroTolerance*norm {
			continue
		}
		floats.Scale(1/rn, r)
		ortho = append(ortho, r)
		basis = append(basis, k)
	}
	if len(basis) < m {
		return nil
	}

	return basis
}
