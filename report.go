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
	"bufio"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

/* Report functions */

// PrintObjective writes the objective value of the last solve to the
// model output.
func (model *Model) PrintObjective() error {
	return model.report(func(w *bufio.Writer, res *SolveResult) {
		fmt.Fprintf(w, "\nValue of objective function: %.8f\n", res.objective)
	})
}

// PrintSolution writes the value of every column of the last solve,
// columns entries per line.
func (model *Model) PrintSolution(columns int) error {
	return model.report(func(w *bufio.Writer, res *SolveResult) {
		fmt.Fprint(w, "\nActual values of the variables:\n")
		model.printValues(w, res.primals, columns, func(j int) string {
			name, _ := model.colNames.Name(j)

			return name
		})
	})
}

// PrintConstraints writes the activity of every row of the last solve.
func (model *Model) PrintConstraints(columns int) error {
	return model.report(func(w *bufio.Writer, res *SolveResult) {
		fmt.Fprint(w, "\nActual values of the constraints:\n")
		model.printValues(w, res.activities, columns, func(i int) string {
			name, _ := model.rowNames.Name(i)

			return name
		})
	})
}

// PrintDuals writes the reduced costs of the columns and the dual values
// of the rows of the last solve.
func (model *Model) PrintDuals() error {
	return model.report(func(w *bufio.Writer, res *SolveResult) {
		fmt.Fprint(w, "\nDual value\n")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 33))
		for j, v := range res.reducedCosts {
			name, _ := model.colNames.Name(j + 1)
			fmt.Fprintf(w, "%-20s %12.6g\n", name, clean(v))
		}
		for i, v := range res.duals {
			name, _ := model.rowNames.Name(i + 1)
			fmt.Fprintf(w, "%-20s %12.6g\n", name, clean(v))
		}
	})
}

func (model *Model) report(print func(*bufio.Writer, *SolveResult)) error {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if model.result == nil {
		return ErrNotSolved
	}
	if err := model.result.hasValues(); err != nil {
		return err
	}

	w := bufio.NewWriter(model.output)
	print(w, model.result)

	return errors.Wrap(w.Flush(), "printing report")
}

func (model *Model) printValues(w *bufio.Writer, values []float64, columns int, name func(int) string) {
	if columns < 1 {
		columns = 1
	}

	for k, v := range values {
		fmt.Fprintf(w, "%-20s %12.6g", name(k+1), clean(v))
		if (k+1)%columns == 0 || k == len(values)-1 {
			fmt.Fprint(w, "\n")
		} else {
			fmt.Fprint(w, "    ")
		}
	}
}

// clean hides rounding noise around zero.
func clean(v float64) float64 {
	if math.Abs(v) < 1e-11 {
		return 0
	}

	return v
}
