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

	"gonum.org/v1/gonum/floats"
)

// ScaleMode selects how the coefficient matrix is scaled before solving:
// one of the base modes, optionally combined with flags.
type ScaleMode int

const (
	ScaleNone       ScaleMode = 0
	ScaleExtreme    ScaleMode = 1
	ScaleRange      ScaleMode = 2
	ScaleMean       ScaleMode = 3
	ScaleGeometric  ScaleMode = 4
	ScaleCurtisReid ScaleMode = 7

	ScaleQuadratic   ScaleMode = 8
	ScaleLogarithmic ScaleMode = 16
	ScalePower2      ScaleMode = 32
	ScaleEquilibrate ScaleMode = 64
	ScaleIntegers    ScaleMode = 128
	ScaleDynUpdate   ScaleMode = 256
	ScaleRowsOnly    ScaleMode = 512
	ScaleColsOnly    ScaleMode = 1024

	scaleBaseMask ScaleMode = 7
)

// DefaultScaling is the scaling mode of new models.
const DefaultScaling = ScaleGeometric | ScaleEquilibrate | ScaleIntegers

const (
	scaleLoops       = 20
	scaleConvergence = 1e-3
)

func (m ScaleMode) base() ScaleMode {
	return m & scaleBaseMask
}

func (m ScaleMode) has(flag ScaleMode) bool {
	return m&flag != 0
}

// SetScaling changes the scaling mode used by the next solve.
func (model *Model) SetScaling(mode ScaleMode) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.scaling = mode
}

func (model *Model) Scaling() ScaleMode {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.scaling
}

// Unscale discards the scale factors of the last solve. Coefficients read
// from the model are never scaled, so this only affects ScaleFactors.
func (model *Model) Unscale() {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.rowScale = nil
	model.colScale = nil
}

// ScaleFactors returns the row and column factors applied by the last
// solve, indexed from 0 for row and column 1. Without scaling every factor
// is 1.
func (model *Model) ScaleFactors() (rows, cols []float64) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	rows = ones(len(model.rows))
	cols = ones(len(model.vars))
	if len(model.rowScale) == len(rows) && len(model.colScale) == len(cols) {
		copy(rows, model.rowScale)
		copy(cols, model.colScale)
	}

	return rows, cols
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}

	return v
}

// scaler computes scale factors r and c such that the matrix with entries
// r[i]·a[i][j]·c[j] has magnitudes close to 1. Fixed columns keep a factor
// of 1.
type scaler struct {
	mode  ScaleMode
	a     [][]float64 // dense constraint rows
	fixed []bool
}

func (s *scaler) factors() (r, c []float64) {
	m := len(s.a)
	n := len(s.fixed)
	r, c = ones(m), ones(n)
	if s.mode.base() == ScaleNone || m == 0 || n == 0 {
		return r, c
	}

	scaleRows := !s.mode.has(ScaleColsOnly)
	scaleCols := !s.mode.has(ScaleRowsOnly)

	for loop := 0; loop < scaleLoops; loop++ {
		change := 0.0
		if scaleRows {
			for i := 0; i < m; i++ {
				f := s.factor(s.rowValues(i, r, c))
				r[i] *= f
				change = math.Max(change, math.Abs(math.Log(f)))
			}
		}
		if scaleCols {
			for j := 0; j < n; j++ {
				if s.fixed[j] {
					continue
				}
				f := s.factor(s.colValues(j, r, c))
				c[j] *= f
				change = math.Max(change, math.Abs(math.Log(f)))
			}
		}
		if s.mode.base() == ScaleExtreme || change < scaleConvergence {
			break
		}
	}

	if s.mode.has(ScaleEquilibrate) && scaleCols {
		for j := 0; j < n; j++ {
			if s.fixed[j] {
				continue
			}
			if values := s.colValues(j, r, c); len(values) > 0 {
				c[j] /= floats.Max(values)
			}
		}
	}

	if s.mode.has(ScalePower2) {
		power2(r)
		for j := range c {
			if !s.fixed[j] {
				c[j] = math.Exp2(math.Round(math.Log2(c[j])))
			}
		}
	}

	return r, c
}

// rowValues returns the nonzero magnitudes of row i under the current
// factors.
func (s *scaler) rowValues(i int, r, c []float64) []float64 {
	values := make([]float64, 0, len(s.a[i]))
	for j, a := range s.a[i] {
		if a != 0 {
			values = append(values, math.Abs(r[i]*a*c[j]))
		}
	}

	return values
}

func (s *scaler) colValues(j int, r, c []float64) []float64 {
	values := make([]float64, 0, len(s.a))
	for i := range s.a {
		if a := s.a[i][j]; a != 0 {
			values = append(values, math.Abs(r[i]*a*c[j]))
		}
	}

	return values
}

// factor returns the multiplier that brings the given magnitudes closest to
// 1 according to the scaling mode.
func (s *scaler) factor(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}

	lo, hi := floats.Min(values), floats.Max(values)
	var f float64
	switch {
	case s.mode.base() == ScaleCurtisReid, s.mode.has(ScaleLogarithmic):
		logs := make([]float64, len(values))
		for k, v := range values {
			logs[k] = math.Log(v)
		}
		f = math.Exp(-floats.Sum(logs) / float64(len(logs)))
	case s.mode.has(ScaleQuadratic):
		f = 1 / math.Sqrt(floats.Dot(values, values)/float64(len(values)))
	case s.mode.base() == ScaleExtreme:
		f = 1 / hi
	case s.mode.base() == ScaleRange:
		f = 2 / (lo + hi)
	case s.mode.base() == ScaleMean:
		f = float64(len(values)) / floats.Sum(values)
	default:
		f = 1 / math.Sqrt(lo*hi)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return 1
	}

	return f
}

func power2(v []float64) {
	for i := range v {
		v[i] = math.Exp2(math.Round(math.Log2(v[i])))
	}
}
