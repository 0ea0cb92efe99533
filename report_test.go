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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintReports(t *testing.T) {
	model := sampleModel(t)
	var out bytes.Buffer
	model.SetOutput(&out)

	assert.ErrorIs(t, model.PrintObjective(), ErrNotSolved)
	assert.Zero(t, out.Len())

	_, err := model.Solve()
	require.NoError(t, err)

	require.NoError(t, model.PrintObjective())
	assert.Equal(t, "\nValue of objective function: -4.00000000\n", out.String())

	out.Reset()
	require.NoError(t, model.PrintSolution(1))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Actual values of the variables:", lines[0])
	assert.Equal(t, "C3", strings.Fields(lines[3])[0])
	assert.Equal(t, "2", strings.Fields(lines[3])[1])

	out.Reset()
	require.NoError(t, model.PrintSolution(2))
	lines = strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 3, "two values per line")

	out.Reset()
	require.NoError(t, model.PrintConstraints(1))
	assert.Contains(t, out.String(), "Actual values of the constraints:")
	assert.Equal(t, []string{"R2", "6"}, strings.Fields(strings.Split(strings.TrimSpace(out.String()), "\n")[2]))

	out.Reset()
	require.NoError(t, model.PrintDuals())
	lines = strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, []string{"C1", "5"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"R1", "-1"}, strings.Fields(lines[6]))
}

func TestPrintDiscarded(t *testing.T) {
	model := sampleModel(t)
	model.SetOutput(nil)

	_, err := model.Solve()
	require.NoError(t, err)
	assert.NoError(t, model.PrintSolution(4))
}
