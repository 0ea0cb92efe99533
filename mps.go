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
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type mpsFormat int

const (
	fixedMPS mpsFormat = iota
	freeMPS
)

/* MPS format reading */

// ReadMPS reads a model in fixed MPS format. Fields are separated by
// whitespace, so names must not contain spaces. On failure no model is
// returned.
func ReadMPS(r io.Reader, opts ...Option) (*Model, error) {
	return readMPS(r, fixedMPS, opts)
}

// ReadFreeMPS reads a model in free MPS format.
func ReadFreeMPS(r io.Reader, opts ...Option) (*Model, error) {
	return readMPS(r, freeMPS, opts)
}

func ReadMPSFile(path string, opts ...Option) (*Model, error) {
	return readMPSFile(path, fixedMPS, opts)
}

func ReadFreeMPSFile(path string, opts ...Option) (*Model, error) {
	return readMPSFile(path, freeMPS, opts)
}

func readMPSFile(path string, format mpsFormat, opts []Option) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	model, err := readMPS(f, format, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	return model, nil
}

type mpsReader struct {
	model  *Model
	format mpsFormat

	section   string
	objective string // name of the objective row
	rows      map[string]int
	cols      map[string]int
	integer   bool // inside an INTORG/INTEND marker pair
	sos       []*mpsSOS
}

type mpsSOS struct {
	name     string
	sosType  int
	priority int
	cols     []int
	weights  []float64
}

func readMPS(r io.Reader, format mpsFormat, opts []Option) (*Model, error) {
	model, err := NewModel("", Minimize, opts...)
	if err != nil {
		return nil, err
	}

	mr := &mpsReader{
		model:  model,
		format: format,
		rows:   make(map[string]int),
		cols:   make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "*") {
			continue
		}

		done, err := mr.line(line, text)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading MPS model")
	}

	for _, s := range mr.sos {
		if _, err := model.AddSOS(s.name, s.sosType, s.priority, s.cols, s.weights); err != nil {
			return nil, errors.Wrapf(ErrParse, "SOS %q: %v", s.name, err)
		}
	}

	model.logf(Normal, "read MPS model %q with %d rows and %d columns", model.name, len(model.rows), len(model.vars))

	return model, nil
}

// line handles one non-comment line and reports whether ENDATA was seen.
func (mr *mpsReader) line(n int, text string) (bool, error) {
	fields := strings.Fields(text)

	if text[0] != ' ' && text[0] != '\t' {
		mr.section = strings.ToUpper(fields[0])
		switch mr.section {
		case "NAME":
			if mr.format == fixedMPS && len(text) > 4 {
				mr.model.name = strings.TrimSpace(text[4:])
			} else if len(fields) > 1 {
				mr.model.name = fields[1]
			}
		case "OBJSENSE":
			if len(fields) > 1 {
				return false, mr.objSense(n, fields[1])
			}
		case "ENDATA":
			return true, nil
		case "ROWS", "COLUMNS", "RHS", "RANGES", "BOUNDS", "SOS", "OBJSENCE":
		default:
			return false, parseErrorf(n, "unknown section %q", fields[0])
		}

		return false, nil
	}

	switch mr.section {
	case "OBJSENSE", "OBJSENCE":
		return false, mr.objSense(n, fields[0])
	case "ROWS":
		return false, mr.row(n, fields)
	case "COLUMNS":
		return false, mr.column(n, fields)
	case "RHS":
		return false, mr.rhs(n, fields)
	case "RANGES":
		return false, mr.ranges(n, fields)
	case "BOUNDS":
		return false, mr.bound(n, fields)
	case "SOS":
		return false, mr.sosLine(n, fields)
	default:
		return false, parseErrorf(n, "data outside of a section")
	}
}

func (mr *mpsReader) objSense(n int, sense string) error {
	switch strings.ToUpper(sense) {
	case "MAX", "MAXIMIZE", "MAXIMISE":
		mr.model.direction = Maximize
	case "MIN", "MINIMIZE", "MINIMISE":
		mr.model.direction = Minimize
	default:
		return parseErrorf(n, "unknown objective sense %q", sense)
	}

	return nil
}

func parseMPSNumber(n int, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, parseErrorf(n, "invalid number %q", s)
	}

	return normalizeInf(v), nil
}

func (mr *mpsReader) row(n int, fields []string) error {
	if len(fields) != 2 {
		return parseErrorf(n, "expected row type and name")
	}

	name := fields[1]
	if _, ok := mr.rows[name]; ok || name == mr.objective {
		return parseErrorf(n, "duplicate row %q", name)
	}

	c := &constraint{rng: math.Inf(1)}
	switch strings.ToUpper(fields[0]) {
	case "N":
		if mr.objective == "" {
			mr.objective = name

			return nil
		}
		c.relation = FreeRow
	case "L":
		c.relation = LessOrEqual
	case "G":
		c.relation = GreaterOrEqual
	case "E":
		c.relation = Equal
	default:
		return parseErrorf(n, "unknown row type %q", fields[0])
	}

	row, err := mr.model.addRow(name, nil, nil, c)
	if err != nil {
		return parseErrorf(n, "%v", err)
	}
	mr.rows[name] = row

	return nil
}

// rowIndex resolves a row name; the objective row is row 0.
func (mr *mpsReader) rowIndex(n int, name string) (int, error) {
	if name == mr.objective {
		return 0, nil
	}
	if row, ok := mr.rows[name]; ok {
		return row, nil
	}

	return 0, parseErrorf(n, "unknown row %q", name)
}

func (mr *mpsReader) column(n int, fields []string) error {
	if len(fields) >= 3 && strings.Trim(fields[1], "'") == "MARKER" {
		switch strings.Trim(fields[2], "'") {
		case "INTORG":
			mr.integer = true
		case "INTEND":
			mr.integer = false
		default:
			return parseErrorf(n, "unknown marker %q", fields[2])
		}

		return nil
	}

	if len(fields) != 3 && len(fields) != 5 {
		return parseErrorf(n, "expected a column name and one or two row entries")
	}

	name := fields[0]
	col, ok := mr.cols[name]
	if !ok {
		col = mr.model.appendColumn(name)
		mr.cols[name] = col
		if mr.integer {
			mr.model.vars[col-1].col.kind = IntegerVariable
		}
	}

	for k := 1; k+1 < len(fields); k += 2 {
		row, err := mr.rowIndex(n, fields[k])
		if err != nil {
			return err
		}
		value, err := parseMPSNumber(n, fields[k+1])
		if err != nil {
			return err
		}
		if err := mr.model.matrix.Set(row, col, value); err != nil {
			return parseErrorf(n, "coefficient of %s in %s: %v", name, fields[k], err)
		}
	}

	return nil
}

// pairs strips the optional vector name of RHS and RANGES lines and
// returns the (row, value) pairs.
func pairs(n int, fields []string) ([]string, error) {
	if len(fields)%2 == 1 {
		fields = fields[1:]
	}
	if len(fields) != 2 && len(fields) != 4 {
		return nil, parseErrorf(n, "expected one or two row entries")
	}

	return fields, nil
}

func (mr *mpsReader) rhs(n int, fields []string) error {
	fields, err := pairs(n, fields)
	if err != nil {
		return err
	}

	for k := 0; k < len(fields); k += 2 {
		row, err := mr.rowIndex(n, fields[k])
		if err != nil {
			return err
		}
		value, err := parseMPSNumber(n, fields[k+1])
		if err != nil {
			return err
		}

		if row == 0 {
			mr.model.objConst = -value
		} else {
			mr.model.rows[row-1].rhs = value
		}
	}

	return nil
}

func (mr *mpsReader) ranges(n int, fields []string) error {
	fields, err := pairs(n, fields)
	if err != nil {
		return err
	}

	for k := 0; k < len(fields); k += 2 {
		row, err := mr.rowIndex(n, fields[k])
		if err != nil {
			return err
		}
		if row == 0 {
			return parseErrorf(n, "range on the objective function")
		}
		value, err := parseMPSNumber(n, fields[k+1])
		if err != nil {
			return err
		}

		c := mr.model.rows[row-1]
		switch c.relation {
		case LessOrEqual, GreaterOrEqual:
			c.rng = math.Abs(value)
		case Equal:
			if value < 0 {
				c.relation = LessOrEqual
			} else if value > 0 {
				c.relation = GreaterOrEqual
			}
			c.rng = math.Abs(value)
			if value == 0 {
				c.rng = math.Inf(1)
			}
		default:
			return parseErrorf(n, "range on free row %q", fields[k])
		}
	}

	return nil
}

func (mr *mpsReader) bound(n int, fields []string) error {
	if len(fields) < 2 {
		return parseErrorf(n, "expected bound type and column")
	}

	kind := strings.ToUpper(fields[0])
	fields = fields[1:]

	needsValue := false
	switch kind {
	case "UP", "LO", "FX", "LI", "UI":
		needsValue = true
	case "FR", "MI", "PL", "BV", "SC":
	default:
		return parseErrorf(n, "unknown bound type %q", kind)
	}

	// drop the optional bound vector name
	switch {
	case needsValue && len(fields) == 3, !needsValue && len(fields) == 3:
		fields = fields[1:]
	case !needsValue && len(fields) == 2:
		if _, known := mr.cols[fields[1]]; known {
			fields = fields[1:]
		}
	}

	name := fields[0]
	col, ok := mr.cols[name]
	if !ok {
		return parseErrorf(n, "bound on unknown column %q", name)
	}

	value := math.NaN()
	if len(fields) > 1 {
		v, err := parseMPSNumber(n, fields[1])
		if err != nil {
			return err
		}
		value = v
	} else if needsValue {
		return parseErrorf(n, "bound %s on %q without value", kind, name)
	}

	c := mr.model.vars[col-1].col
	lower, upper := c.lower, c.upper
	switch kind {
	case "UP", "UI":
		upper = value
		if value < 0 && lower == 0 {
			lower = math.Inf(-1)
		}
	case "LO", "LI":
		lower = value
	case "FX":
		lower, upper = value, value
	case "FR":
		lower, upper = math.Inf(-1), math.Inf(1)
	case "MI":
		lower = math.Inf(-1)
	case "PL":
		upper = math.Inf(1)
	case "BV":
		lower, upper = 0, 1
		c.kind = BinaryVariable
	case "SC":
		upper = math.Inf(1)
		if !math.IsNaN(value) {
			upper = value
		}
		c.kind = SemiContinuousVariable
	}
	if kind == "LI" || kind == "UI" {
		c.kind = IntegerVariable
	}

	if err := checkBounds(lower, upper); err != nil {
		return parseErrorf(n, "bounds of %q: %v", name, err)
	}
	c.lower, c.upper = lower, upper

	return nil
}

func (mr *mpsReader) sosLine(n int, fields []string) error {
	if len(fields) >= 3 && strings.ToUpper(fields[1]) == "SOS" {
		sosType := 0
		switch strings.ToUpper(fields[0]) {
		case "S1":
			sosType = 1
		case "S2":
			sosType = 2
		default:
			return parseErrorf(n, "unknown SOS type %q", fields[0])
		}

		s := &mpsSOS{name: fields[2], sosType: sosType, priority: len(mr.sos) + 1}
		if len(fields) > 3 {
			p, err := strconv.Atoi(fields[3])
			if err != nil {
				return parseErrorf(n, "invalid SOS priority %q", fields[3])
			}
			s.priority = p
		}
		mr.sos = append(mr.sos, s)

		return nil
	}

	if len(mr.sos) == 0 {
		return parseErrorf(n, "SOS member before SOS header")
	}
	s := mr.sos[len(mr.sos)-1]

	if len(fields) == 3 {
		fields = fields[1:]
	}
	if len(fields) != 2 {
		return parseErrorf(n, "expected SOS column and weight")
	}

	col, ok := mr.cols[fields[0]]
	if !ok {
		return parseErrorf(n, "SOS member %q is not a column", fields[0])
	}
	weight, err := parseMPSNumber(n, fields[1])
	if err != nil {
		return err
	}
	s.cols = append(s.cols, col)
	s.weights = append(s.weights, weight)

	return nil
}

/* MPS format writing */

// WriteMPS writes the model in fixed MPS format.
func (model *Model) WriteMPS(w io.Writer) error {
	return model.writeMPS(w, fixedMPS)
}

// WriteFreeMPS writes the model in free MPS format.
func (model *Model) WriteFreeMPS(w io.Writer) error {
	return model.writeMPS(w, freeMPS)
}

func (model *Model) WriteMPSFile(path string) error {
	return writeFile(path, model.WriteMPS)
}

func (model *Model) WriteFreeMPSFile(path string) error {
	return writeFile(path, model.WriteFreeMPS)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}

	if err := write(f); err != nil {
		f.Close()

		return errors.Wrapf(err, "writing %s", path)
	}

	return errors.Wrapf(f.Close(), "closing %s", path)
}

type mpsWriter struct {
	w      *bufio.Writer
	format mpsFormat
	err    error
}

// entry writes one data line made of up to six fields.
func (mw *mpsWriter) entry(fields ...string) {
	if mw.err != nil {
		return
	}

	var line string
	if mw.format == freeMPS {
		line = " " + strings.Join(fields, " ")
	} else {
		for len(fields) < 6 {
			fields = append(fields, "")
		}
		line = strings.TrimRight(fmt.Sprintf(" %-2s %-8s  %-8s  %12s   %-8s  %12s", fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]), " ")
	}
	_, mw.err = mw.w.WriteString(line + "\n")
}

func (mw *mpsWriter) header(s string) {
	if mw.err != nil {
		return
	}
	_, mw.err = mw.w.WriteString(s + "\n")
}

func (model *Model) writeMPS(w io.Writer, format mpsFormat) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	bw := bufio.NewWriter(w)
	mw := &mpsWriter{w: bw, format: format}

	rowName := func(i int) string {
		if i == 0 {
			return "R0"
		}
		name, _ := model.rowNames.Name(i)

		return name
	}
	colName := func(j int) string {
		name, _ := model.colNames.Name(j)

		return name
	}

	name := model.name
	if name == "" {
		name = "Unnamed"
	}
	mw.header("*<meta creator='lpmodel'>")
	mw.header("NAME                " + name)
	if model.direction == Maximize {
		mw.header("OBJSENSE")
		mw.entry("", "MAX")
	}

	mw.header("ROWS")
	mw.entry("N", rowName(0))
	for i, c := range model.rows {
		kind := "N"
		switch c.relation {
		case LessOrEqual:
			kind = "L"
		case GreaterOrEqual:
			kind = "G"
		case Equal:
			kind = "E"
		}
		mw.entry(kind, rowName(i+1))
	}

	mw.header("COLUMNS")
	inMarker := false
	for j, v := range model.vars {
		integer := v.col.kind == IntegerVariable
		if integer != inMarker {
			marker := "'INTEND'"
			if integer {
				marker = "'INTORG'"
			}
			mw.entry("", "MARKER", "'MARKER'", "", marker)
			inMarker = integer
		}

		values, _ := model.matrix.Column(j + 1)
		var line []string
		for i, value := range values {
			if value == 0 {
				continue
			}
			line = append(line, rowName(i), formatNumber(value))
			if len(line) == 4 {
				mw.entry(append([]string{"", colName(j + 1)}, line...)...)
				line = nil
			}
		}
		if len(line) > 0 {
			mw.entry(append([]string{"", colName(j + 1)}, line...)...)
		}
		if len(values) == 0 || allZero(values) {
			// keep empty columns in the model
			mw.entry("", colName(j+1), rowName(0), "0")
		}
	}
	if inMarker {
		mw.entry("", "MARKER", "'MARKER'", "", "'INTEND'")
	}

	mw.header("RHS")
	if model.objConst != 0 {
		mw.entry("", "RHS", rowName(0), formatNumber(-model.objConst))
	}
	for i, c := range model.rows {
		if c.relation != FreeRow && c.rhs != 0 {
			mw.entry("", "RHS", rowName(i+1), formatNumber(c.rhs))
		}
	}

	ranged := false
	for i, c := range model.rows {
		if c.relation == FreeRow || c.relation == Equal || math.IsInf(c.rng, 1) {
			continue
		}
		if !ranged {
			mw.header("RANGES")
			ranged = true
		}
		mw.entry("", "RGS", rowName(i+1), formatNumber(c.rng))
	}

	bounded := false
	bound := func(kind string, col int, value ...string) {
		if !bounded {
			mw.header("BOUNDS")
			bounded = true
		}
		mw.entry(append([]string{kind, "BND", colName(col)}, value...)...)
	}
	for j, v := range model.vars {
		c := v.col
		switch {
		case c.kind == BinaryVariable:
			bound("BV", j+1)
		case c.kind == SemiContinuousVariable:
			if c.lower != 0 {
				bound("LO", j+1, formatNumber(c.lower))
			}
			bound("SC", j+1, formatNumber(c.upper))
		case c.lower == c.upper:
			bound("FX", j+1, formatNumber(c.lower))
		case math.IsInf(c.lower, -1) && math.IsInf(c.upper, 1):
			bound("FR", j+1)
		default:
			if math.IsInf(c.lower, -1) {
				bound("MI", j+1)
			} else if c.lower != 0 {
				bound("LO", j+1, formatNumber(c.lower))
			}
			if !math.IsInf(c.upper, 1) {
				bound("UP", j+1, formatNumber(c.upper))
			}
		}
	}

	if len(model.sos) > 0 {
		mw.header("SOS")
		for k, s := range model.sortedSOS() {
			name := s.name
			if name == "" {
				name = "SOS" + strconv.Itoa(k+1)
			}
			mw.entry("S"+strconv.Itoa(s.sosType), "SOS", name, strconv.Itoa(s.priority))
			for i, col := range s.cols {
				mw.entry("", name, colName(col.index), formatNumber(s.weights[i]))
			}
		}
	}

	mw.header("ENDATA")

	if mw.err != nil {
		return errors.Wrap(mw.err, "writing MPS model")
	}

	return errors.Wrap(bw.Flush(), "writing MPS model")
}

func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}

	return true
}
