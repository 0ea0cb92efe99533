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
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/costela/lpmodel/internal/kernel"
)

// SimplexType names the simplex variants used in the two solve phases.
type SimplexType int

const (
	SimplexPrimalPrimal SimplexType = 5
	SimplexDualPrimal   SimplexType = 6
	SimplexPrimalDual   SimplexType = 9
	SimplexDualDual     SimplexType = 10
)

func (t SimplexType) valid() bool {
	switch t {
	case SimplexPrimalPrimal, SimplexDualPrimal, SimplexPrimalDual, SimplexDualDual:
		return true
	default:
		return false
	}
}

// BranchRule selects the branching column of the branch-and-bound search:
// one of the Node*Select rules, optionally combined with Node*Mode flags.
type BranchRule int

const (
	NodeFirstSelect        BranchRule = 0
	NodeGapSelect          BranchRule = 1
	NodeRangeSelect        BranchRule = 2
	NodeFractionSelect     BranchRule = 3
	NodePseudoCostSelect   BranchRule = 4
	NodePseudoNonIntSelect BranchRule = 5
	NodePseudoRatioSelect  BranchRule = 6
	NodeUserSelect         BranchRule = 7
	NodeWeightReverseMode  BranchRule = 8
	NodeBranchReverseMode  BranchRule = 16
	NodeGreedyMode         BranchRule = 32
	NodePseudoCostMode     BranchRule = 64
	NodeDepthFirstMode     BranchRule = 128
	NodeRandomizeMode      BranchRule = 256
	NodeGUBMode            BranchRule = 512
	NodeDynamicMode        BranchRule = 1024
	NodeRestartMode        BranchRule = 2048
	NodeBreadthFirstMode   BranchRule = 4096
	NodeAutoOrder          BranchRule = 8192
	NodeRCostFixing        BranchRule = 16384
	NodeStrongInit         BranchRule = 32768
	nodeSelectMask         BranchRule = 7
)

// BranchMode is the direction a branching column is explored in first.
type BranchMode int

const (
	BranchCeiling BranchMode = iota
	BranchFloor
	BranchAutomatic
)

// Presolve is a set of presolve reductions. Only the row and column
// reductions change how a model is solved; presolve never alters the model
// itself.
type Presolve int

const (
	PresolveNone        Presolve = 0
	PresolveRows        Presolve = 1
	PresolveCols        Presolve = 2
	PresolveLinDep      Presolve = 4
	PresolveSOS         Presolve = 32
	PresolveReduceMIP   Presolve = 64
	PresolveKnapsack    Presolve = 128
	PresolveElimEq2     Presolve = 256
	PresolveImpliedFree Presolve = 512
	PresolveReduceGCD   Presolve = 1024
	PresolveProbeFix    Presolve = 2048
	PresolveProbeReduce Presolve = 4096
	PresolveRowDominate Presolve = 8192
	PresolveColDominate Presolve = 16384
	PresolveMergeRows   Presolve = 32768
	PresolveImpliedSlk  Presolve = 65536
	PresolveColFixDual  Presolve = 131072
	PresolveBounds      Presolve = 262144
	PresolveDuals       Presolve = 524288
	PresolveSensDuals   Presolve = 1048576
)

type options struct {
	verbosity Verbosity
	trace     bool
	debug     bool

	timeout       time.Duration
	scaling       ScaleMode
	simplexType   SimplexType
	branchRule    BranchRule
	floorFirst    BranchMode
	depthLimit    int
	presolve      Presolve
	solutionLimit int
	absGap        float64
	relGap        float64
	epsInt        float64
	breakAtFirst  bool
	breakAtValue  float64 // NaN when unset
}

func defaultOptions() options {
	return options{
		scaling:       DefaultScaling,
		simplexType:   SimplexDualPrimal,
		branchRule:    NodeFirstSelect,
		floorFirst:    BranchCeiling,
		depthLimit:    -50,
		solutionLimit: 1,
		absGap:        1e-11,
		relGap:        1e-9,
		epsInt:        1e-7,
		breakAtValue:  math.NaN(),
	}
}

/* Option-related functions */

func (model *Model) SetVerbosity(level Verbosity) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.verbosity = level
}

func (model *Model) Verbosity() Verbosity {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.verbosity
}

// SetDebug enables logging of every branch-and-bound decision.
func (model *Model) SetDebug(enabled bool) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.debug = enabled
}

func (model *Model) IsDebug() bool {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.debug
}

// SetTrace enables logging of every linear relaxation.
func (model *Model) SetTrace(enabled bool) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.trace = enabled
}

func (model *Model) IsTrace() bool {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.trace
}

// SetTimeout limits the duration of a solve; zero removes the limit.
func (model *Model) SetTimeout(timeout time.Duration) {
	model.mu.Lock()
	defer model.mu.Unlock()

	if timeout < 0 {
		timeout = 0
	}
	model.opts.timeout = timeout
}

func (model *Model) Timeout() time.Duration {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.timeout
}

func (model *Model) SetSimplexType(t SimplexType) error {
	if !t.valid() {
		return fmt.Errorf("simplex type %d: %w", t, ErrInvalidValue)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.simplexType = t

	return nil
}

func (model *Model) SimplexType() SimplexType {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.simplexType
}

func (model *Model) SetBranchRule(rule BranchRule) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.branchRule = rule
}

func (model *Model) BranchRule() BranchRule {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.branchRule
}

func (model *Model) SetFloorFirst(mode BranchMode) error {
	if mode < BranchCeiling || mode > BranchAutomatic {
		return fmt.Errorf("branch mode %d: %w", mode, ErrInvalidValue)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.floorFirst = mode

	return nil
}

func (model *Model) FloorFirst() BranchMode {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.floorFirst
}

// SetDepthLimit bounds the branch-and-bound depth. Negative limits are
// relative to the number of integer columns, zero removes the limit.
func (model *Model) SetDepthLimit(limit int) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.depthLimit = limit
}

func (model *Model) DepthLimit() int {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.depthLimit
}

func (model *Model) SetPresolve(flags Presolve) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.presolve = flags
}

func (model *Model) Presolve() Presolve {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.presolve
}

// SetSolutionLimit sets how many equally good solutions the search
// collects before it stops looking.
func (model *Model) SetSolutionLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("solution limit %d: %w", limit, ErrInvalidValue)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.solutionLimit = limit

	return nil
}

func (model *Model) SolutionLimit() int {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.solutionLimit
}

// SetMIPGap sets the absolute and relative gaps under which a
// branch-and-bound node is not worth exploring.
func (model *Model) SetMIPGap(absolute, relative float64) error {
	if !(absolute >= 0) || !(relative >= 0) {
		return fmt.Errorf("mip gap %g/%g: %w", absolute, relative, ErrInvalidValue)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.absGap, model.opts.relGap = absolute, relative

	return nil
}

func (model *Model) MIPGap() (absolute, relative float64) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.absGap, model.opts.relGap
}

// SetEpsInt sets the tolerance within which a value counts as integer.
func (model *Model) SetEpsInt(eps float64) error {
	if !(eps > 0) || eps >= 0.5 {
		return fmt.Errorf("integer tolerance %g: %w", eps, ErrInvalidValue)
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.epsInt = eps

	return nil
}

func (model *Model) EpsInt() float64 {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.epsInt
}

// SetBreakAtFirst stops the branch-and-bound search at the first integer
// solution found.
func (model *Model) SetBreakAtFirst(enabled bool) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.breakAtFirst = enabled
}

func (model *Model) BreakAtFirst() bool {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return model.opts.breakAtFirst
}

// SetBreakAtValue stops the branch-and-bound search at the first integer
// solution at least as good as value.
func (model *Model) SetBreakAtValue(value float64) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.opts.breakAtValue = normalizeInf(value)
}

// BreakAtValue returns the break value, or the infinity no solution can
// reach when none was set.
func (model *Model) BreakAtValue() float64 {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if math.IsNaN(model.opts.breakAtValue) {
		if model.direction == Maximize {
			return math.Inf(1)
		}

		return math.Inf(-1)
	}

	return model.opts.breakAtValue
}

// PutAbortFunc installs a function polled during solves; returning true
// aborts the solve. The function must not call methods of the model.
func (model *Model) PutAbortFunc(abort func() bool) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.abort = abort
}

// SetOutput redirects the Print* reports; nil discards them.
func (model *Model) SetOutput(w io.Writer) {
	model.mu.Lock()
	defer model.mu.Unlock()

	if w == nil {
		w = io.Discard
	}
	model.output = w
}

// ResetToInitialBasis forgets the basis of the last solve.
func (model *Model) ResetToInitialBasis() {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.basis = nil
}

// SetBasis sets the columns the next solve starts its first relaxation from.
// A basis that cannot be completed to a feasible one is ignored.
func (model *Model) SetBasis(cols []int) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	seen := make(map[int]bool, len(cols))
	for _, col := range cols {
		if err := model.checkColumn(col); err != nil {
			return err
		}
		if seen[col] {
			return fmt.Errorf("column %d repeated in basis: %w", col, ErrInvalidValue)
		}
		seen[col] = true
	}

	model.basis = append([]int(nil), cols...)

	return nil
}

// Basis returns the columns that were basic in the last solved relaxation,
// or the ones given to SetBasis.
func (model *Model) Basis() []int {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return append([]int(nil), model.basis...)
}

/* Solve-related functions */

// Solve attempts to find an optimal solution to the model.
// Information about the solution can be queried from the returned
// SolveResult value, which is returned even when err is not nil.
// err is nil for SolutionOptimal, SolutionSuboptimal and SolutionPresolved
// and a SolveError otherwise.
func (model *Model) Solve() (*SolveResult, error) {
	return model.SolveWithContext(context.Background())
}

// SolveWithContext is Solve with a context. If the context is cancelled or
// times out before a solution is found, the search is aborted and the
// context error is returned.
// Note that if some solution has already been found, res.Status() will be
// SolutionSuboptimal and err nil.
func (model *Model) SolveWithContext(ctx context.Context) (*SolveResult, error) {
	model.mu.Lock()
	defer model.mu.Unlock()

	start := time.Now()

	solveCtx := ctx
	if model.opts.timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, model.opts.timeout)
		defer cancel()
	}

	prob, rowScale, colScale := model.problem()
	load := time.Since(start)

	model.logf(Normal, "solving %q: %d rows, %d columns, %d nonzeros", model.name, len(model.rows), len(model.vars), model.matrix.NonZeros())
	model.logf(Detailed, "simplex type %d, scaling %d, presolve %d", model.opts.simplexType, model.opts.scaling, model.opts.presolve)

	sol, err := kernel.Solve(solveCtx, prob, model.settings())
	if err != nil {
		panic(fmt.Sprintf("inconsistent model data: %v", err))
	}

	res := model.newResult(sol, rowScale, colScale, load)

	var solveErr error
	switch sol.Status {
	case kernel.Optimal:
		res.status = SolutionOptimal
	case kernel.Suboptimal:
		res.status = SolutionSuboptimal
	case kernel.Presolved:
		res.status = SolutionPresolved
	case kernel.Infeasible:
		res.status = SolutionInfeasible
	case kernel.Unbounded:
		res.status = SolutionUnbounded
	case kernel.Degenerate:
		res.status = SolutionDegenerate
	case kernel.NumericalFailure:
		res.status = SolutionNumericalFailure
	case kernel.BranchFailed:
		res.status = SolutionBranchCutFail
	case kernel.BranchBreak:
		res.status = SolutionBranchCutBreak
	case kernel.FeasibleFound:
		res.status = SolutionFeasibleFound
	case kernel.NoFeasibleFound:
		res.status = SolutionNoFeasibleFound
	case kernel.Aborted:
		switch {
		case ctx.Err() != nil:
			res.status = SolutionUserAbort
			solveErr = ctx.Err()
		case solveCtx.Err() != nil:
			res.status = SolutionTimeout
		default:
			res.status = SolutionUserAbort
		}
	default:
		panic(fmt.Sprintf("unrecognized result %v", sol.Status))
	}

	if solveErr == nil && !res.status.successful() {
		solveErr = SolveError(res.status)
	}

	model.status = res.status
	model.result = res
	model.rowScale, model.colScale = rowScale, colScale
	if sol.Basis != nil {
		model.basis = model.basis[:0]
		for _, j := range sol.Basis {
			model.basis = append(model.basis, j+1)
		}
	}

	model.logf(Normal, "%s after %d relaxations and %d nodes in %v", res.status, res.iterations, res.nodes, res.timing.Total)

	return res, solveErr
}

// problem builds the kernel problem from the model, scaled according to
// the scaling mode. Maximisation problems are negated.
func (model *Model) problem() (p *kernel.Problem, rowScale, colScale []float64) {
	m, n := len(model.rows), len(model.vars)
	sign := 1.0
	if model.direction == Maximize {
		sign = -1
	}

	p = &kernel.Problem{
		Cost:           make([]float64, n),
		Offset:         sign * model.objConst,
		RowLower:       make([]float64, m),
		RowUpper:       make([]float64, m),
		Lower:          make([]float64, n),
		Upper:          make([]float64, n),
		Integer:        make([]bool, n),
		SemiContinuous: make([]bool, n),
	}

	dense := make([][]float64, m)
	for i := range dense {
		dense[i] = make([]float64, n)
		entries, _ := model.matrix.Row(i + 1)
		for _, e := range entries {
			dense[i][e.Column-1] = e.Value
		}
		p.RowLower[i], p.RowUpper[i] = model.rows[i].bounds()
	}

	objective, _ := model.matrix.Row(0)
	for _, e := range objective {
		p.Cost[e.Column-1] = sign * e.Value
	}

	anyInteger := false
	for j, v := range model.vars {
		p.Lower[j], p.Upper[j] = v.col.lower, v.col.upper
		p.Integer[j] = v.col.integer()
		p.SemiContinuous[j] = v.col.kind == SemiContinuousVariable
		anyInteger = anyInteger || p.Integer[j]
	}

	s := scaler{mode: model.opts.scaling, a: dense, fixed: make([]bool, n)}
	// columns stay unscaled as soon as one of them is integer
	if anyInteger {
		s.mode |= ScaleRowsOnly
	}
	copy(s.fixed, p.Integer)
	rowScale, colScale = s.factors()

	for i, row := range dense {
		for j := range row {
			row[j] *= rowScale[i] * colScale[j]
		}
		p.RowLower[i] *= rowScale[i]
		p.RowUpper[i] *= rowScale[i]
	}
	for j := range p.Cost {
		p.Cost[j] *= colScale[j]
		p.Lower[j] /= colScale[j]
		p.Upper[j] /= colScale[j]
	}

	if m > 0 && n > 0 {
		p.A = mat.NewDense(m, n, nil)
		for i, row := range dense {
			p.A.SetRow(i, row)
		}
	}

	for _, set := range model.sos {
		sos := kernel.SOS{Type: set.sosType, Priority: set.priority, Weights: append([]float64(nil), set.weights...)}
		for _, c := range set.cols {
			sos.Columns = append(sos.Columns, c.index-1)
		}
		p.SOS = append(p.SOS, sos)
	}

	return p, rowScale, colScale
}

// settings translates the model options for the kernel.
func (model *Model) settings() kernel.Settings {
	s := kernel.DefaultSettings()

	s.PresolveRows = model.opts.presolve&PresolveRows != 0
	s.PresolveColumns = model.opts.presolve&PresolveCols != 0
	s.IntTolerance = model.opts.epsInt
	s.AbsGap, s.RelGap = model.opts.absGap, model.opts.relGap
	s.DepthLimit = model.opts.depthLimit
	s.SolutionLimit = model.opts.solutionLimit
	s.BreakAtFirst = model.opts.breakAtFirst

	if v := model.opts.breakAtValue; !math.IsNaN(v) {
		if model.direction == Maximize {
			v = -v
		}
		s.BreakAtValue = v
	}

	switch model.opts.branchRule & nodeSelectMask {
	case NodeGapSelect:
		s.Selection = kernel.SelectGap
	case NodeRangeSelect:
		s.Selection = kernel.SelectRange
	case NodeFractionSelect:
		s.Selection = kernel.SelectFraction
	case NodePseudoCostSelect, NodePseudoNonIntSelect, NodePseudoRatioSelect:
		s.Selection = kernel.SelectPseudoCost
	default:
		s.Selection = kernel.SelectFirst
	}
	s.ReverseSelect = model.opts.branchRule&NodeWeightReverseMode != 0
	s.ReverseBranch = model.opts.branchRule&NodeBranchReverseMode != 0
	s.BreadthFirst = model.opts.branchRule&NodeBreadthFirstMode != 0

	s.CeilingFirst = model.opts.floorFirst == BranchCeiling
	s.AutoCeiling = model.opts.floorFirst == BranchAutomatic

	if abort := model.abort; abort != nil {
		s.Abort = abort
	}

	for _, col := range model.basis {
		s.Basis = append(s.Basis, col-1)
	}

	s.Logf = func(format string, v ...interface{}) {
		model.logf(Detailed, format, v...)
	}
	s.Trace = model.opts.trace
	s.Debug = model.opts.debug

	return s
}

// newResult converts a kernel solution back to the model's scale, sign and
// indexing.
func (model *Model) newResult(sol *kernel.Solution, rowScale, colScale []float64, load time.Duration) *SolveResult {
	res := &SolveResult{
		status:     SolutionNotRun,
		count:      sol.Count,
		iterations: sol.Iterations,
		nodes:      sol.Nodes,
		cols:       make(map[*column]int, len(model.vars)),
	}

	res.timing = Timing{
		Load:     load,
		Presolve: sol.Presolve,
		Simplex:  sol.Elapsed - sol.Presolve,
		Elapsed:  load + sol.Improved,
	}
	res.timing.Total = res.timing.Load + res.timing.Presolve + res.timing.Simplex

	for _, v := range model.vars {
		res.cols[v.col] = v.col.index
	}

	if !sol.Status.HasSolution() {
		res.count = 0

		return res
	}

	sign := 1.0
	if model.direction == Maximize {
		sign = -1
	}

	res.objective = sign * sol.Objective
	res.primals = make([]float64, len(sol.X))
	res.reducedCosts = make([]float64, len(sol.X))
	for j := range sol.X {
		res.primals[j] = sol.X[j] * colScale[j]
		res.reducedCosts[j] = sign * sol.ReducedCosts[j] / colScale[j]
	}
	res.activities = make([]float64, len(sol.Activity))
	res.duals = make([]float64, len(sol.Duals))
	for i := range sol.Activity {
		res.activities[i] = sol.Activity[i] / rowScale[i]
		res.duals[i] = sign * sol.Duals[i] * rowScale[i]
	}

	return res
}
