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

// Package kernel solves linear and mixed-integer programs in general form.
//
// Linear relaxations are handed to gonum's simplex implementation after
// conversion to standard form; integer, semi-continuous and SOS restrictions
// are enforced by a depth-first branch-and-bound search on top of it.
package kernel

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Problem is a minimisation problem
//
//	minimise    Cost·x + Offset
//	subject to  RowLower <= A x <= RowUpper
//	            Lower <= x <= Upper
//
// Infinite bounds are given as ±Inf.
type Problem struct {
	Cost   []float64
	Offset float64
	A      *mat.Dense

	RowLower, RowUpper []float64
	Lower, Upper       []float64

	Integer        []bool
	SemiContinuous []bool // x = 0 or Lower <= x <= Upper
	SOS            []SOS
}

// SOS is a special ordered set: at most Type (1 or 2) of its columns may be
// nonzero, and for type 2 they must be adjacent in weight order.
type SOS struct {
	Type     int
	Priority int
	Columns  []int // 0-based
	Weights  []float64
}

// Dims returns the number of rows and columns.
func (p *Problem) Dims() (rows, cols int) {
	return len(p.RowLower), len(p.Cost)
}

// Validate checks the problem dimensions.
func (p *Problem) Validate() error {
	m, n := p.Dims()
	switch {
	case len(p.RowUpper) != m:
		return fmt.Errorf("row bounds: %d lower, %d upper", m, len(p.RowUpper))
	case len(p.Lower) != n || len(p.Upper) != n:
		return fmt.Errorf("column bounds: %d/%d for %d columns", len(p.Lower), len(p.Upper), n)
	case p.Integer != nil && len(p.Integer) != n:
		return fmt.Errorf("integer flags: %d for %d columns", len(p.Integer), n)
	case p.SemiContinuous != nil && len(p.SemiContinuous) != n:
		return fmt.Errorf("semi-continuous flags: %d for %d columns", len(p.SemiContinuous), n)
	}

	if m > 0 || n > 0 {
		if p.A == nil {
			if m > 0 && n > 0 {
				return fmt.Errorf("missing constraint matrix")
			}
		} else if r, c := p.A.Dims(); r != m || c != n {
			return fmt.Errorf("constraint matrix is %dx%d, expected %dx%d", r, c, m, n)
		}
	}

	for _, s := range p.SOS {
		if s.Type != 1 && s.Type != 2 {
			return fmt.Errorf("unsupported SOS type %d", s.Type)
		}
		if len(s.Weights) != len(s.Columns) {
			return fmt.Errorf("SOS with %d columns and %d weights", len(s.Columns), len(s.Weights))
		}
		for _, j := range s.Columns {
			if j < 0 || j >= n {
				return fmt.Errorf("SOS column %d out of range", j)
			}
		}
	}

	return nil
}

// isMIP reports whether branch-and-bound is needed.
func (p *Problem) isMIP() bool {
	if len(p.SOS) > 0 {
		return true
	}
	for j := range p.Cost {
		if p.integer(j) || p.semiContinuous(j) {
			return true
		}
	}

	return false
}

func (p *Problem) integer(j int) bool {
	return p.Integer != nil && p.Integer[j]
}

func (p *Problem) semiContinuous(j int) bool {
	return p.SemiContinuous != nil && p.SemiContinuous[j]
}

// element returns A[i][j], tolerating a nil matrix for empty problems.
func (p *Problem) element(i, j int) float64 {
	if p.A == nil {
		return 0
	}

	return p.A.At(i, j)
}

// Status is the outcome of a kernel solve.
type Status int

const (
	Optimal          Status = iota
	Suboptimal              // search interrupted after an integer solution was found
	Infeasible              // the (root) relaxation is infeasible
	Unbounded               // the (root) relaxation is unbounded
	Degenerate              // the constraint matrix is singular for the simplex
	NumericalFailure        // the simplex failed numerically on the root relaxation
	Aborted                 // interrupted before any solution was found
	Presolved               // every column was fixed by presolve
	BranchFailed            // a relaxation below the root failed and no solution was found
	BranchBreak             // stopped by break-at-first or break-at-value
	FeasibleFound           // an integer solution was found but optimality was not proven
	NoFeasibleFound         // the relaxation is feasible but no integer solution was found
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Suboptimal:
		return "suboptimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case Degenerate:
		return "degenerate"
	case NumericalFailure:
		return "numerical failure"
	case Aborted:
		return "aborted"
	case Presolved:
		return "presolved"
	case BranchFailed:
		return "branch failed"
	case BranchBreak:
		return "branch break"
	case FeasibleFound:
		return "feasible found"
	case NoFeasibleFound:
		return "no feasible found"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// HasSolution reports whether a Solution with this status carries values.
func (s Status) HasSolution() bool {
	switch s {
	case Optimal, Suboptimal, Presolved, BranchBreak, FeasibleFound:
		return true
	default:
		return false
	}
}

// Solution is the result of a kernel solve. The value slices are only
// populated when Status.HasSolution().
type Solution struct {
	Status    Status
	Objective float64

	X            []float64 // by column
	Activity     []float64 // A x, by row
	Duals        []float64 // by row
	ReducedCosts []float64 // by column

	// Basis lists the columns that were basic in the final relaxation.
	Basis []int

	Count      int // distinct solutions with the best objective
	Iterations int // linear relaxations solved
	Nodes      int // branch-and-bound nodes explored

	Presolve time.Duration // part of Elapsed spent in presolve
	Improved time.Duration // time until the reported solution was found
	Elapsed  time.Duration
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
