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
	"context"
	"math"
	"sort"
	"time"
)

// Selection picks the column to branch on among the fractional ones.
type Selection int

const (
	SelectFirst      Selection = iota // lowest index
	SelectGap                         // fraction closest to one half
	SelectRange                       // widest bounds
	SelectFraction                    // largest fractional part
	SelectPseudoCost                  // largest objective weight times distance to integrality
)

// Settings control a solve.
type Settings struct {
	// PresolveRows and PresolveColumns enable the presolve reductions.
	PresolveRows, PresolveColumns bool

	IntTolerance   float64
	AbsGap, RelGap float64

	// DepthLimit bounds the branch-and-bound depth. Negative values are
	// relative to the number of branching columns; zero means no limit.
	DepthLimit int

	Selection     Selection
	ReverseSelect bool // prefer the last candidate instead of the first
	CeilingFirst  bool
	AutoCeiling   bool // branch towards the nearest integer first
	ReverseBranch bool
	BreadthFirst  bool

	// SolutionLimit caps the number of equally good solutions collected.
	SolutionLimit int

	BreakAtFirst bool
	BreakAtValue float64 // stop at an integer solution at or below this value

	// Basis lists general columns to start the root relaxation from. It is
	// ignored when it cannot be completed to a feasible basis.
	Basis []int

	// Abort is polled before every relaxation.
	Abort func() bool

	Logf  func(format string, v ...interface{})
	Trace bool // log every relaxation
	Debug bool // log every branch
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		IntTolerance:  1e-7,
		AbsGap:        1e-11,
		RelGap:        1e-9,
		DepthLimit:    -50,
		CeilingFirst:  true,
		SolutionLimit: 1,
		BreakAtValue:  math.Inf(-1),
	}
}

// Solve minimises p. The context and Settings.Abort are checked between
// relaxations; a single relaxation is never interrupted.
func Solve(ctx context.Context, p *Problem, s Settings) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.SolutionLimit < 1 {
		s.SolutionLimit = 1
	}
	if s.Logf == nil {
		s.Logf = func(string, ...interface{}) {}
	}

	start := time.Now()

	target, red := p, (*reduction)(nil)
	if s.PresolveRows || s.PresolveColumns {
		reduced, r, status := presolve(p, s.PresolveRows, s.PresolveColumns, s.Logf)
		if status != Optimal {
			elapsed := time.Since(start)

			return &Solution{Status: status, Presolve: elapsed, Elapsed: elapsed}, nil
		}
		target, red = reduced, r
		s.Basis = red.keptColumns(s.Basis)
	}
	presolved := time.Since(start)

	var sol *Solution
	if red != nil && red.empty() {
		sol = &Solution{Status: Presolved, Count: 1}
	} else {
		sv := newSearch(target, s, start)
		sol = sv.run(ctx)
	}

	if red != nil {
		red.expand(sol)
	}
	sol.Presolve = presolved
	sol.Elapsed = time.Since(start)
	if sol.Status.HasSolution() && sol.Improved == 0 {
		sol.Improved = sol.Elapsed
	}
	if sol.Improved < presolved {
		sol.Improved = presolved
	}

	return sol, nil
}

type node struct {
	lower, upper []float64
	depth        int
	bound        float64
	relax        *relaxation
}

type search struct {
	p     *Problem
	s     Settings
	start time.Time

	best     *relaxation
	improved time.Duration
	found    [][]float64

	sets     []SOS // sorted by priority, columns in weight order
	maxDepth int

	iterations, nodes  int
	interrupted, broke bool
	truncated, failed  bool
}

func newSearch(p *Problem, s Settings, start time.Time) *search {
	sv := &search{p: p, s: s, start: start}

	branching := 0
	for j := range p.Cost {
		if p.integer(j) || p.semiContinuous(j) {
			branching++
		}
	}
	for _, set := range p.SOS {
		branching += len(set.Columns)

		idx := make([]int, len(set.Columns))
		for k := range idx {
			idx[k] = k
		}
		sort.SliceStable(idx, func(a, b int) bool { return set.Weights[idx[a]] < set.Weights[idx[b]] })
		sorted := SOS{Type: set.Type, Priority: set.Priority}
		for _, k := range idx {
			sorted.Columns = append(sorted.Columns, set.Columns[k])
			sorted.Weights = append(sorted.Weights, set.Weights[k])
		}
		sv.sets = append(sv.sets, sorted)
	}
	sort.SliceStable(sv.sets, func(a, b int) bool { return sv.sets[a].Priority < sv.sets[b].Priority })

	switch {
	case s.DepthLimit < 0:
		if branching == 0 {
			branching = 1
		}
		sv.maxDepth = -s.DepthLimit * branching
	default:
		sv.maxDepth = s.DepthLimit
	}

	return sv
}

func (sv *search) stop(ctx context.Context) bool {
	if ctx.Err() != nil || (sv.s.Abort != nil && sv.s.Abort()) {
		sv.interrupted = true
	}

	return sv.interrupted
}

func (sv *search) relax(lower, upper []float64, hint []int) *relaxation {
	sv.iterations++
	res := solveRelaxation(sv.p, lower, upper, hint)
	if sv.s.Trace {
		start := "cold"
		if res.warm {
			start = "warm"
		}
		sv.s.Logf("relaxation %d: %s, objective %g (%s start)", sv.iterations, res.status, res.objective, start)
	}

	return &res
}

func (sv *search) run(ctx context.Context) *Solution {
	if sv.stop(ctx) {
		return sv.solution()
	}

	lower := append([]float64(nil), sv.p.Lower...)
	upper := append([]float64(nil), sv.p.Upper...)
	for j := range lower {
		if sv.p.semiContinuous(j) && lower[j] > 0 {
			lower[j] = 0
		}
	}

	root := sv.relax(lower, upper, sv.s.Basis)
	if root.status != Optimal {
		return &Solution{Status: root.status, Iterations: sv.iterations}
	}
	if !sv.p.isMIP() {
		sv.best = root
		sv.found = [][]float64{root.x}
		return sv.solution()
	}

	open := []*node{{lower: lower, upper: upper, bound: root.objective, relax: root}}
	for len(open) > 0 {
		var n *node
		if sv.s.BreadthFirst {
			n, open = open[0], open[1:]
		} else {
			n, open = open[len(open)-1], open[:len(open)-1]
		}

		if sv.prune(n.bound) {
			continue
		}
		if sv.stop(ctx) {
			break
		}
		sv.nodes++

		res := n.relax
		if res == nil {
			res = sv.relax(n.lower, n.upper, nil)
		}
		switch res.status {
		case Optimal:
		case Infeasible, Unbounded:
			continue
		default:
			sv.failed = true
			continue
		}
		if sv.prune(res.objective) {
			continue
		}

		children := sv.branch(n, res)
		if children == nil {
			sv.record(res)
			if sv.broke {
				break
			}
			continue
		}
		if sv.maxDepth > 0 && n.depth >= sv.maxDepth {
			sv.truncated = true
			continue
		}

		if sv.s.BreadthFirst {
			open = append(open, children[0], children[1])
		} else {
			open = append(open, children[1], children[0])
		}
	}

	return sv.solution()
}

func (sv *search) gap() float64 {
	if sv.best == nil {
		return 0
	}

	return math.Max(sv.s.AbsGap, sv.s.RelGap*math.Abs(sv.best.objective))
}

// prune reports whether a node bounded below by bound cannot improve on the
// incumbent, or contribute another equally good solution while the
// solution limit allows collecting them.
func (sv *search) prune(bound float64) bool {
	if sv.best == nil {
		return false
	}

	if len(sv.found) < sv.s.SolutionLimit {
		return bound > sv.best.objective+sv.gap()
	}

	return bound >= sv.best.objective-sv.gap()
}

func (sv *search) record(res *relaxation) {
	for j := range res.x {
		if sv.p.integer(j) {
			res.x[j] = math.Round(res.x[j])
		}
	}
	res.evaluate(sv.p)

	switch {
	case sv.best == nil || res.objective < sv.best.objective-sv.gap():
		sv.best = res
		sv.found = [][]float64{res.x}
		sv.improved = time.Since(sv.start)
		sv.s.Logf("improved solution %g after %d nodes", res.objective, sv.nodes)
	case math.Abs(res.objective-sv.best.objective) <= sv.gap() && len(sv.found) < sv.s.SolutionLimit:
		for _, x := range sv.found {
			if sameSolution(x, res.x) {
				return
			}
		}
		sv.found = append(sv.found, res.x)
		sv.s.Logf("equal solution %d found after %d nodes", len(sv.found), sv.nodes)
	}

	if sv.s.BreakAtFirst || sv.best.objective <= sv.s.BreakAtValue {
		sv.broke = true
	}
}

func sameSolution(a, b []float64) bool {
	for j := range a {
		if math.Abs(a[j]-b[j]) > feasTolerance {
			return false
		}
	}

	return true
}

// branch returns the two children of n, the first one to be explored first,
// or nil if res satisfies every integrality, semi-continuity and SOS
// restriction.
func (sv *search) branch(n *node, res *relaxation) []*node {
	if j, f := sv.selectInteger(n, res.x); j >= 0 {
		down, up := n.child(res.objective), n.child(res.objective)
		down.upper[j] = math.Floor(res.x[j])
		up.lower[j] = math.Ceil(res.x[j])

		ceiling := sv.s.CeilingFirst
		if sv.s.AutoCeiling {
			ceiling = f > 0.5
		}
		if sv.s.ReverseBranch {
			ceiling = !ceiling
		}
		if sv.s.Debug {
			first := "floor"
			if ceiling {
				first = "ceiling"
			}
			sv.s.Logf("branch at depth %d on column %d = %g: <= %g or >= %g, %s first",
				n.depth, j, res.x[j], down.upper[j], up.lower[j], first)
		}
		if ceiling {
			return []*node{up, down}
		}
		return []*node{down, up}
	}

	for j, x := range res.x {
		if !sv.p.semiContinuous(j) {
			continue
		}
		threshold := sv.p.Lower[j]
		if threshold <= 0 || n.lower[j] >= threshold {
			continue
		}
		if x > sv.s.IntTolerance && x < threshold-feasTolerance {
			zero, on := n.child(res.objective), n.child(res.objective)
			zero.lower[j], zero.upper[j] = 0, 0
			on.lower[j] = threshold
			if sv.s.Debug {
				sv.s.Logf("branch at depth %d on semi-continuous column %d = %g: 0 or >= %g",
					n.depth, j, x, threshold)
			}
			return []*node{zero, on}
		}
	}

	for _, set := range sv.sets {
		first, last, count := -1, -1, 0
		for k, j := range set.Columns {
			if math.Abs(res.x[j]) > sv.s.IntTolerance {
				if first < 0 {
					first = k
				}
				last = k
				count++
			}
		}
		if count <= 1 || (set.Type == 2 && count == 2 && last == first+1) {
			continue
		}

		// left keeps the columns up to the split, right the ones after it
		split := first
		if set.Type == 2 {
			split = first + 1
		}
		left, right := n.child(res.objective), n.child(res.objective)
		for k, j := range set.Columns {
			if k > split {
				left.lower[j], left.upper[j] = math.Max(left.lower[j], 0), 0
			}
			if k <= split-set.Type+1 {
				right.lower[j], right.upper[j] = math.Max(right.lower[j], 0), 0
			}
		}
		if sv.s.Debug {
			sv.s.Logf("branch at depth %d on SOS%d set with priority %d: split after member %d",
				n.depth, set.Type, set.Priority, split+1)
		}
		return []*node{left, right}
	}

	return nil
}

// selectInteger returns the integer column to branch on and its fractional
// part, or -1 if every integer column is integral.
func (sv *search) selectInteger(n *node, x []float64) (int, float64) {
	best, bestScore, bestFrac := -1, math.Inf(-1), 0.0
	for j := range x {
		if !sv.p.integer(j) {
			continue
		}
		f := x[j] - math.Floor(x[j])
		if f <= sv.s.IntTolerance || f >= 1-sv.s.IntTolerance {
			continue
		}

		var score float64
		switch sv.s.Selection {
		case SelectGap:
			score = -math.Abs(f - 0.5)
		case SelectRange:
			score = n.upper[j] - n.lower[j]
		case SelectFraction:
			score = f
		case SelectPseudoCost:
			score = math.Abs(sv.p.Cost[j]) * math.Min(f, 1-f)
		}

		if best < 0 || score > bestScore || (sv.s.ReverseSelect && score == bestScore) {
			best, bestScore, bestFrac = j, score, f
		}
	}

	return best, bestFrac
}

func (n *node) child(bound float64) *node {
	return &node{
		lower: append([]float64(nil), n.lower...),
		upper: append([]float64(nil), n.upper...),
		depth: n.depth + 1,
		bound: bound,
	}
}

func (sv *search) solution() *Solution {
	sol := &Solution{
		Iterations: sv.iterations,
		Nodes:      sv.nodes,
		Count:      len(sv.found),
		Improved:   sv.improved,
	}

	switch {
	case sv.interrupted && sv.best == nil:
		sol.Status = Aborted
	case sv.interrupted:
		sol.Status = Suboptimal
	case sv.broke:
		sol.Status = BranchBreak
	case sv.best == nil && sv.failed:
		sol.Status = BranchFailed
	case sv.best == nil:
		sol.Status = NoFeasibleFound
	case sv.truncated || sv.failed:
		sol.Status = FeasibleFound
	default:
		sol.Status = Optimal
	}

	if sv.best != nil {
		sol.Objective = sv.best.objective
		sol.X = sv.best.x
		sol.Activity = sv.best.activity
		sol.Duals = sv.best.duals
		sol.ReducedCosts = sv.best.reducedCosts(sv.p)
		sol.Basis = sv.best.basis
	}

	return sol
}
