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
	"math"

	"gonum.org/v1/gonum/mat"
)

// reduction records what presolve removed from a problem so that a solution
// of the reduced problem can be expanded back.
type reduction struct {
	original *Problem
	rows     []int     // original indices of the kept rows
	cols     []int     // original indices of the kept columns
	values   []float64 // values of removed columns, by original index
}

// presolve removes empty and free rows and row singletons (rows) as well as
// fixed and empty continuous columns (cols), until nothing changes. Integer,
// semi-continuous and SOS columns are only ever tightened, never removed.
func presolve(p *Problem, rows, cols bool, logf func(string, ...interface{})) (*Problem, *reduction, Status) {
	m, n := p.Dims()

	lower := append([]float64(nil), p.Lower...)
	upper := append([]float64(nil), p.Upper...)
	rowLower := append([]float64(nil), p.RowLower...)
	rowUpper := append([]float64(nil), p.RowUpper...)
	rowAlive := make([]bool, m)
	colAlive := make([]bool, n)
	values := make([]float64, n)
	for i := range rowAlive {
		rowAlive[i] = true
	}
	for j := range colAlive {
		colAlive[j] = true
	}

	protected := make([]bool, n)
	for j := 0; j < n; j++ {
		protected[j] = p.integer(j) || p.semiContinuous(j)
	}
	for _, s := range p.SOS {
		for _, j := range s.Columns {
			protected[j] = true
		}
	}

	removeColumn := func(j int, v float64) {
		colAlive[j] = false
		values[j] = v
		for i := 0; i < m; i++ {
			if a := p.element(i, j); a != 0 && rowAlive[i] {
				rowLower[i] -= a * v
				rowUpper[i] -= a * v
			}
		}
	}

	for pass, changed := 0, true; changed && pass < 20; pass++ {
		changed = false

		if cols {
			for j := 0; j < n; j++ {
				if !colAlive[j] || protected[j] {
					continue
				}
				if lower[j] > upper[j]+feasTolerance {
					return nil, nil, Infeasible
				}
				if isFinite(lower[j]) && upper[j]-lower[j] <= zeroTolerance {
					removeColumn(j, lower[j])
					changed = true
					continue
				}

				empty := true
				for i := 0; i < m && empty; i++ {
					empty = !rowAlive[i] || p.element(i, j) == 0
				}
				if !empty {
					continue
				}

				var v float64
				switch c := p.Cost[j]; {
				case c > 0:
					v = lower[j]
				case c < 0:
					v = upper[j]
				default:
					v = math.Max(lower[j], math.Min(upper[j], 0))
				}
				if !isFinite(v) {
					return nil, nil, Unbounded
				}
				removeColumn(j, v)
				changed = true
			}
		}

		if rows {
			for i := 0; i < m; i++ {
				if !rowAlive[i] {
					continue
				}
				if !isFinite(rowLower[i]) && !isFinite(rowUpper[i]) {
					rowAlive[i] = false
					changed = true
					continue
				}

				count, single := 0, -1
				for j := 0; j < n; j++ {
					if colAlive[j] && p.element(i, j) != 0 {
						count++
						single = j
					}
				}

				switch count {
				case 0:
					if rowLower[i] > feasTolerance || rowUpper[i] < -feasTolerance {
						return nil, nil, Infeasible
					}
					rowAlive[i] = false
					changed = true
				case 1:
					a := p.element(i, single)
					lo, up := rowLower[i]/a, rowUpper[i]/a
					if a < 0 {
						lo, up = up, lo
					}
					if p.integer(single) {
						lo = math.Ceil(lo - feasTolerance)
						up = math.Floor(up + feasTolerance)
					}
					if p.semiContinuous(single) {
						// tightening would lose the x = 0 alternative
						continue
					}
					lower[single] = math.Max(lower[single], lo)
					upper[single] = math.Min(upper[single], up)
					if lower[single] > upper[single]+feasTolerance {
						return nil, nil, Infeasible
					}
					rowAlive[i] = false
					changed = true
				}
			}
		}
	}

	red := &reduction{original: p, values: values}
	for i, alive := range rowAlive {
		if alive {
			red.rows = append(red.rows, i)
		}
	}
	for j, alive := range colAlive {
		if alive {
			red.cols = append(red.cols, j)
		}
	}

	if logf != nil {
		logf("presolve removed %d rows and %d columns", m-len(red.rows), n-len(red.cols))
	}

	reduced := &Problem{
		Cost:     make([]float64, len(red.cols)),
		Offset:   p.Offset,
		RowLower: make([]float64, len(red.rows)),
		RowUpper: make([]float64, len(red.rows)),
		Lower:    make([]float64, len(red.cols)),
		Upper:    make([]float64, len(red.cols)),
	}
	if p.Integer != nil {
		reduced.Integer = make([]bool, len(red.cols))
	}
	if p.SemiContinuous != nil {
		reduced.SemiContinuous = make([]bool, len(red.cols))
	}

	position := make([]int, n)
	for k, j := range red.cols {
		position[j] = k
		reduced.Cost[k] = p.Cost[j]
		reduced.Lower[k] = lower[j]
		reduced.Upper[k] = upper[j]
		if p.Integer != nil {
			reduced.Integer[k] = p.Integer[j]
		}
		if p.SemiContinuous != nil {
			reduced.SemiContinuous[k] = p.SemiContinuous[j]
		}
	}
	for j := 0; j < n; j++ {
		if !colAlive[j] {
			reduced.Offset += p.Cost[j] * values[j]
		}
	}
	for r, i := range red.rows {
		reduced.RowLower[r] = rowLower[i]
		reduced.RowUpper[r] = rowUpper[i]
	}
	if len(red.rows) > 0 && len(red.cols) > 0 {
		reduced.A = mat.NewDense(len(red.rows), len(red.cols), nil)
		for r, i := range red.rows {
			for k, j := range red.cols {
				reduced.A.Set(r, k, p.element(i, j))
			}
		}
	}
	for _, s := range p.SOS {
		t := SOS{Type: s.Type, Priority: s.Priority, Weights: s.Weights}
		for _, j := range s.Columns {
			t.Columns = append(t.Columns, position[j])
		}
		reduced.SOS = append(reduced.SOS, t)
	}

	return reduced, red, Optimal
}

// empty reports whether presolve removed the whole problem.
func (red *reduction) empty() bool {
	return len(red.cols) == 0 && len(red.rows) == 0
}

// expand maps a solution of the reduced problem back to the original one.
func (red *reduction) expand(sol *Solution) {
	if !sol.Status.HasSolution() {
		return
	}

	p := red.original
	m, n := p.Dims()

	res := relaxation{
		x:        make([]float64, n),
		activity: make([]float64, m),
		duals:    make([]float64, m),
	}
	copy(res.x, red.values)
	for k, j := range red.cols {
		res.x[j] = sol.X[k]
	}
	for r, i := range red.rows {
		res.duals[i] = sol.Duals[r]
	}
	res.evaluate(p)

	basis := make([]int, 0, len(sol.Basis))
	for _, k := range sol.Basis {
		basis = append(basis, red.cols[k])
	}

	sol.X = res.x
	sol.Activity = res.activity
	sol.Duals = res.duals
	sol.ReducedCosts = res.reducedCosts(p)
	sol.Objective = res.objective
	sol.Basis = basis
}

// keptColumns maps original column indices onto the reduced problem,
// dropping the columns presolve removed.
func (red *reduction) keptColumns(orig []int) []int {
	if len(orig) == 0 {
		return nil
	}

	kept := make(map[int]int, len(red.cols))
	for k, j := range red.cols {
		kept[j] = k
	}

	var cols []int
	for _, j := range orig {
		if k, ok := kept[j]; ok {
			cols = append(cols, k)
		}
	}

	return cols
}
