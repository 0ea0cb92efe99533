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
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

/* LP format reading */

// ReadLP reads a model in LP format: an objective function such as
// "max: 143 x + 60 y;", followed by constraints ("c1: 120 x + 210 y <= 15000;",
// "-5 <= x + y <= 10;"), bounds on single variables ("x <= 4;",
// "-1 <= y <= 8;") and the sections int, bin, sec, free, sos1 and sos2.
// On failure no model is returned.
func ReadLP(r io.Reader, opts ...Option) (*Model, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading LP model")
	}

	model, err := NewModel("", Minimize, opts...)
	if err != nil {
		return nil, err
	}

	toks, err := lexLP(string(src))
	if err != nil {
		return nil, err
	}

	p := &lpParser{
		toks:   toks,
		model:  model,
		cols:   make(map[string]int),
		labels: make(map[string]bool),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}

	model.logf(Normal, "read LP model with %d rows and %d columns", len(model.rows), len(model.vars))

	return model, nil
}

// ReadLPFile reads a model in LP format from the file at path.
func ReadLPFile(path string, opts ...Option) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	model, err := ReadLP(f, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	return model, nil
}

type lpTokenKind int

const (
	lpEOF lpTokenKind = iota
	lpNumber
	lpIdent
	lpColon
	lpComma
	lpSemicolon
	lpSign
	lpRelation
)

type lpToken struct {
	kind  lpTokenKind
	text  string
	value float64
	line  int
}

func (t lpToken) String() string {
	if t.kind == lpEOF {
		return "end of input"
	}

	return strconv.Quote(t.text)
}

func parseErrorf(line int, format string, args ...interface{}) error {
	return errors.Wrapf(ErrParse, "line %d: "+format, append([]interface{}{line}, args...)...)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c) || strings.IndexByte("[]{}.&#$%~'@^", c) >= 0
}

// lexLP splits LP source into tokens, dropping comments.
func lexLP(src string) ([]lpToken, error) {
	var toks []lpToken
	line := 1

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, parseErrorf(line, "unterminated comment")
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 4
		case c == ':':
			toks = append(toks, lpToken{kind: lpColon, text: ":", line: line})
			i++
		case c == ',':
			toks = append(toks, lpToken{kind: lpComma, text: ",", line: line})
			i++
		case c == ';':
			toks = append(toks, lpToken{kind: lpSemicolon, text: ";", line: line})
			i++
		case c == '+' || c == '-':
			toks = append(toks, lpToken{kind: lpSign, text: string(c), line: line})
			i++
		case c == '<' || c == '>' || c == '=':
			start := i
			i++
			if i < len(src) && strings.IndexByte("<>=", src[i]) >= 0 {
				i++
			}
			op := src[start:i]
			switch {
			case strings.Contains(op, "<"):
				op = "<="
			case strings.Contains(op, ">"):
				op = ">="
			default:
				op = "="
			}
			toks = append(toks, lpToken{kind: lpRelation, text: op, line: line})
		case isDigit(c) || c == '.' && i+1 < len(src) && isDigit(src[i+1]):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					for i = j; i < len(src) && isDigit(src[i]); i++ {
					}
				}
			}
			value, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, parseErrorf(line, "invalid number %q", src[start:i])
			}
			toks = append(toks, lpToken{kind: lpNumber, text: src[start:i], value: value, line: line})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentChar(src[i]) {
				i++
			}
			toks = append(toks, lpToken{kind: lpIdent, text: src[start:i], line: line})
		default:
			return nil, parseErrorf(line, "unexpected character %q", c)
		}
	}

	return append(toks, lpToken{kind: lpEOF, line: line}), nil
}

type lpTerm struct {
	name string
	coef float64
}

type lpParser struct {
	toks []lpToken
	pos  int

	model  *Model
	cols   map[string]int
	labels map[string]bool

	objective bool // objective function seen
	sosType   int  // inside a sos1/sos2 section
}

func (p *lpParser) peek(offset int) lpToken {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[p.pos+offset]
}

// statement returns the tokens up to the next semicolon, consuming it.
func (p *lpParser) statement() ([]lpToken, error) {
	start := p.pos
	for p.toks[p.pos].kind != lpSemicolon {
		if p.toks[p.pos].kind == lpEOF {
			return nil, parseErrorf(p.toks[p.pos].line, "missing ';' after statement")
		}
		p.pos++
	}
	p.pos++

	return p.toks[start : p.pos-1], nil
}

func (p *lpParser) parse() error {
	for p.peek(0).kind != lpEOF {
		if t := p.peek(0); t.kind == lpIdent {
			next := p.peek(1).kind
			switch strings.ToLower(t.text) {
			case "sos1", "sos2":
				if next == lpIdent || next == lpEOF {
					p.sosType = int(t.text[3] - '0')
					p.objective = true
					p.pos++

					continue
				}
			case "int", "bin", "sec", "free":
				if next == lpIdent || next == lpSemicolon {
					p.pos++
					stmt, err := p.statement()
					if err != nil {
						return err
					}
					p.sosType = 0
					p.objective = true
					if err := p.declare(strings.ToLower(t.text), stmt); err != nil {
						return err
					}

					continue
				}
			}
		}

		stmt, err := p.statement()
		if err != nil {
			return err
		}
		if len(stmt) == 0 {
			p.objective = true

			continue
		}

		switch {
		case !p.objective:
			p.objective = true
			if hasRelation(stmt) {
				err = p.constraint(stmt)
			} else {
				err = p.objectiveFunction(stmt)
			}
		case p.sosType > 0:
			err = p.sos(stmt)
		default:
			err = p.constraint(stmt)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func hasRelation(stmt []lpToken) bool {
	for _, t := range stmt {
		if t.kind == lpRelation {
			return true
		}
	}

	return false
}

// column returns the index of the named column, creating it on first use.
func (p *lpParser) column(name string) int {
	if col, ok := p.cols[name]; ok {
		return col
	}

	col := p.model.appendColumn(name)
	p.cols[name] = col

	return col
}

// expression parses a linear expression into its variable terms, in order
// of first appearance, and its constant part.
func (p *lpParser) expression(toks []lpToken) ([]lpTerm, float64, error) {
	var terms []lpTerm
	constant := 0.0
	index := make(map[string]int)

	for i := 0; i < len(toks); {
		coef := 1.0
		numbered := false
		for ; i < len(toks) && toks[i].kind == lpSign; i++ {
			if toks[i].text == "-" {
				coef = -coef
			}
		}
		for ; i < len(toks) && toks[i].kind == lpNumber; i++ {
			coef *= toks[i].value
			numbered = true
		}

		if i < len(toks) && toks[i].kind == lpIdent {
			name := toks[i].text
			if k, ok := index[name]; ok {
				terms[k].coef += coef
			} else {
				index[name] = len(terms)
				terms = append(terms, lpTerm{name: name, coef: coef})
			}
			i++

			continue
		}

		if !numbered {
			if i < len(toks) {
				return nil, 0, parseErrorf(toks[i].line, "unexpected %v in expression", toks[i])
			}

			return nil, 0, parseErrorf(toks[i-1].line, "expression ends with a sign")
		}
		constant += coef
	}

	return terms, constant, nil
}

func (p *lpParser) objectiveFunction(stmt []lpToken) error {
	if len(stmt) >= 2 && stmt[0].kind == lpIdent && stmt[1].kind == lpColon {
		switch strings.ToLower(stmt[0].text) {
		case "max", "maximize", "maximise", "maximum":
			p.model.direction = Maximize
		case "min", "minimize", "minimise", "minimum":
			p.model.direction = Minimize
		}
		stmt = stmt[2:]
	}

	terms, constant, err := p.expression(stmt)
	if err != nil {
		return err
	}

	for _, t := range terms {
		if err := p.model.matrix.Set(0, p.column(t.name), t.coef); err != nil {
			return parseErrorf(stmt[0].line, "objective coefficient of %s: %v", t.name, err)
		}
	}
	p.model.objConst = constant

	return nil
}

func (p *lpParser) constraint(stmt []lpToken) error {
	line := stmt[0].line

	label := ""
	if len(stmt) >= 2 && stmt[0].kind == lpIdent && stmt[1].kind == lpColon {
		label = stmt[0].text
		stmt = stmt[2:]
	}

	var parts [][]lpToken
	var ops []string
	current := []lpToken{}
	for _, t := range stmt {
		if t.kind == lpRelation {
			parts = append(parts, current)
			ops = append(ops, t.text)
			current = []lpToken{}

			continue
		}
		current = append(current, t)
	}
	parts = append(parts, current)

	switch len(ops) {
	case 1:
		if len(parts[0]) == 0 {
			if label == "" {
				return parseErrorf(line, "relation without left-hand side")
			}

			return p.updateRow(line, label, ops[0], parts[1])
		}

		lhs, lc, err := p.expression(parts[0])
		if err != nil {
			return err
		}
		rhs, rc, err := p.expression(parts[1])
		if err != nil {
			return err
		}
		for _, t := range rhs {
			lhs = append(lhs, lpTerm{name: t.name, coef: -t.coef})
		}
		terms := mergeTerms(lhs)
		constant := rc - lc

		if label == "" && len(terms) == 1 {
			return p.bound(line, terms[0], ops[0], constant)
		}

		lower, upper := math.Inf(-1), math.Inf(1)
		rel := GreaterOrEqual
		switch ops[0] {
		case "<=":
			upper, rel = constant, LessOrEqual
		case ">=":
			lower = constant
		default:
			lower, upper, rel = constant, constant, Equal
		}

		return p.addRow(line, label, terms, lower, upper, rel)
	case 2:
		if ops[0] != ops[1] || ops[0] == "=" {
			return parseErrorf(line, "invalid range %s ... %s", ops[0], ops[1])
		}

		first, a, err := p.expression(parts[0])
		if err != nil {
			return err
		}
		terms, c, err := p.expression(parts[1])
		if err != nil {
			return err
		}
		last, b, err := p.expression(parts[2])
		if err != nil {
			return err
		}
		if len(first) > 0 || len(last) > 0 {
			return parseErrorf(line, "range limits must be constants")
		}

		lower, upper, rel := a-c, b-c, GreaterOrEqual
		if ops[0] == ">=" {
			lower, upper, rel = upper, lower, LessOrEqual
		}

		if label == "" && len(terms) == 1 {
			if err := p.bound(line, terms[0], ">=", lower); err != nil {
				return err
			}

			return p.bound(line, terms[0], "<=", upper)
		}

		return p.addRow(line, label, terms, lower, upper, rel)
	default:
		return parseErrorf(line, "expected one or two relational operators, found %d", len(ops))
	}
}

// mergeTerms sums repeated variables, keeping the first appearance order.
func mergeTerms(terms []lpTerm) []lpTerm {
	merged := make([]lpTerm, 0, len(terms))
	index := make(map[string]int, len(terms))
	for _, t := range terms {
		if k, ok := index[t.name]; ok {
			merged[k].coef += t.coef

			continue
		}
		index[t.name] = len(merged)
		merged = append(merged, t)
	}

	return merged
}

func (p *lpParser) addRow(line int, label string, terms []lpTerm, lower, upper float64, rel Relation) error {
	if label == "" && len(terms) == 0 {
		return parseErrorf(line, "constraint without variables")
	}
	if label != "" && p.labels[label] {
		return parseErrorf(line, "duplicate constraint name %q", label)
	}

	lower, upper = normalizeInf(lower), normalizeInf(upper)
	if lower > upper || math.IsInf(lower, 1) || math.IsInf(upper, -1) {
		return parseErrorf(line, "constraint bounds [%g, %g] cannot be met", lower, upper)
	}

	cols := make([]int, len(terms))
	coefs := make([]float64, len(terms))
	for i, t := range terms {
		cols[i] = p.column(t.name)
		coefs[i] = t.coef
	}

	c := &constraint{relation: rel}
	c.setBounds(lower, upper)
	if _, err := p.model.addRow(label, cols, coefs, c); err != nil {
		return parseErrorf(line, "%v", err)
	}
	if label != "" {
		p.labels[label] = true
	}

	return nil
}

// updateRow handles "name: <= value;", which sets one side of an existing
// row.
func (p *lpParser) updateRow(line int, label, op string, toks []lpToken) error {
	row, ok := p.model.rowNames.IndexOf(label)
	if !ok {
		return parseErrorf(line, "unknown constraint %q", label)
	}

	terms, value, err := p.expression(toks)
	if err != nil {
		return err
	}
	if len(terms) > 0 {
		return parseErrorf(line, "right-hand side of %q must be a constant", label)
	}
	value = normalizeInf(value)

	c := p.model.rows[row-1]
	lower, upper := c.bounds()
	switch op {
	case "<=":
		upper = value
	case ">=":
		lower = value
	default:
		lower, upper = value, value
	}
	if lower > upper {
		return parseErrorf(line, "constraint %q bounds [%g, %g] cannot be met", label, lower, upper)
	}
	c.setBounds(lower, upper)

	return nil
}

// bound applies "coef name op value" to the bounds of a column.
func (p *lpParser) bound(line int, t lpTerm, op string, value float64) error {
	if t.coef == 0 {
		return parseErrorf(line, "bound on %s with zero coefficient", t.name)
	}

	value = normalizeInf(value / t.coef)
	if t.coef < 0 {
		switch op {
		case "<=":
			op = ">="
		case ">=":
			op = "<="
		}
	}

	c := p.model.vars[p.column(t.name)-1].col
	lower, upper := c.lower, c.upper
	switch op {
	case "<=":
		upper = value
	case ">=":
		lower = value
	default:
		lower, upper = value, value
	}
	if err := checkBounds(lower, upper); err != nil {
		return parseErrorf(line, "%s: %v", t.name, err)
	}
	c.lower, c.upper = lower, upper

	return nil
}

// declare handles the int, bin, sec and free sections.
func (p *lpParser) declare(section string, stmt []lpToken) error {
	for _, t := range stmt {
		switch t.kind {
		case lpComma:
			continue
		case lpIdent:
		default:
			return parseErrorf(t.line, "unexpected %v in %s section", t, section)
		}

		c := p.model.vars[p.column(t.text)-1].col
		switch section {
		case "int":
			if c.kind != BinaryVariable {
				c.kind = IntegerVariable
			}
		case "bin":
			c.kind = BinaryVariable
			c.lower, c.upper = 0, 1
		case "sec":
			c.kind = SemiContinuousVariable
		case "free":
			c.lower, c.upper = math.Inf(-1), math.Inf(1)
		}
	}

	return nil
}

// sos handles "name: x1:5,x2:6,x3:7 <= 2;" inside a sos1 or sos2 section.
// The numbers after the colons are weights, the one after "<=" the
// priority.
func (p *lpParser) sos(stmt []lpToken) error {
	line := stmt[0].line
	if len(stmt) < 3 || stmt[0].kind != lpIdent || stmt[1].kind != lpColon {
		return parseErrorf(line, "expected a named SOS definition")
	}

	name := stmt[0].text
	var cols []int
	var weights []float64
	priority := len(p.model.sos) + 1

	number := func(i int) (float64, int, error) {
		sign := 1.0
		if i < len(stmt) && stmt[i].kind == lpSign {
			if stmt[i].text == "-" {
				sign = -1
			}
			i++
		}
		if i >= len(stmt) || stmt[i].kind != lpNumber {
			return 0, i, parseErrorf(line, "expected a number in SOS %q", name)
		}

		return sign * stmt[i].value, i + 1, nil
	}

	for i := 2; i < len(stmt); {
		switch t := stmt[i]; t.kind {
		case lpIdent:
			cols = append(cols, p.column(t.text))
			weight := float64(len(cols))
			i++
			if i < len(stmt) && stmt[i].kind == lpColon {
				var err error
				if weight, i, err = number(i + 1); err != nil {
					return err
				}
			}
			weights = append(weights, weight)
		case lpComma:
			i++
		case lpRelation:
			if t.text != "<=" {
				return parseErrorf(line, "unexpected %v in SOS %q", t, name)
			}
			value, next, err := number(i + 1)
			if err != nil {
				return err
			}
			if next != len(stmt) {
				return parseErrorf(line, "unexpected %v after SOS %q", stmt[next], name)
			}
			priority = int(value)
			i = next
		default:
			return parseErrorf(line, "unexpected %v in SOS %q", t, name)
		}
	}

	if _, err := p.model.AddSOS(name, p.sosType, priority, cols, weights); err != nil {
		return parseErrorf(line, "SOS %q: %v", name, err)
	}

	return nil
}

/* LP format writing */

// WriteLP writes the model in LP format. Reading the output back with
// ReadLP yields an equivalent model.
func (model *Model) WriteLP(w io.Writer) error {
	model.mu.Lock()
	defer model.mu.Unlock()

	bw := bufio.NewWriter(w)
	lw := &lpWriter{w: bw, model: model}
	lw.write()
	if lw.err != nil {
		return errors.Wrap(lw.err, "writing LP model")
	}

	return errors.Wrap(bw.Flush(), "writing LP model")
}

// WriteLPFile writes the model in LP format to the file at path.
func (model *Model) WriteLPFile(path string) error {
	return writeFile(path, model.WriteLP)
}

type lpWriter struct {
	w     *bufio.Writer
	model *Model
	err   error
}

func (lw *lpWriter) print(s ...string) {
	for _, part := range s {
		if lw.err != nil {
			return
		}
		_, lw.err = lw.w.WriteString(part)
	}
}

// formatNumber formats v so that it parses back to the same value.
func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "1e+30"
	case math.IsInf(v, -1):
		return "-1e+30"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

func formatCoef(v float64) string {
	if math.Signbit(v) {
		return "-" + formatNumber(-v)
	}

	return "+" + formatNumber(v)
}

func (lw *lpWriter) colName(col int) string {
	name, _ := lw.model.colNames.Name(col)

	return name
}

// expression writes the terms of a row; rows without terms are written as
// a zero constant.
func (lw *lpWriter) expression(entries []Entry) {
	if len(entries) == 0 {
		lw.print("0")

		return
	}

	for i, e := range entries {
		if i > 0 {
			lw.print(" ")
		}
		lw.print(formatCoef(e.Value), " ", lw.colName(e.Column))
	}
}

func (lw *lpWriter) write() {
	model := lw.model

	if model.name != "" {
		lw.print("/* ", model.name, " */\n\n")
	}

	lw.print("/* Objective function */\n")
	if model.direction == Maximize {
		lw.print("max:")
	} else {
		lw.print("min:")
	}
	for j := 1; j <= len(model.vars); j++ {
		coef, _ := model.matrix.Get(0, j)
		lw.print(" ", formatCoef(coef), " ", lw.colName(j))
	}
	if model.objConst != 0 {
		lw.print(" ", formatCoef(model.objConst))
	}
	lw.print(";\n")

	if len(model.rows) > 0 {
		lw.print("\n/* Constraints */\n")
	}
	named := model.rowNames.HasNames()
	for i, c := range model.rows {
		entries, _ := model.matrix.Row(i + 1)
		if (named && !model.rowNames.IsDefault(i+1)) || len(entries) <= 1 {
			name, _ := model.rowNames.Name(i + 1)
			lw.print(name, ": ")
		}

		lower, upper := c.bounds()
		switch {
		case c.relation == FreeRow:
			lw.expression(entries)
			lw.print(" >= ", formatNumber(math.Inf(-1)))
		case c.relation == Equal:
			lw.expression(entries)
			lw.print(" = ", formatNumber(c.rhs))
		case !math.IsInf(c.rng, 1) && c.relation == LessOrEqual:
			lw.print(formatNumber(upper), " >= ")
			lw.expression(entries)
			lw.print(" >= ", formatNumber(lower))
		case !math.IsInf(c.rng, 1):
			lw.print(formatNumber(lower), " <= ")
			lw.expression(entries)
			lw.print(" <= ", formatNumber(upper))
		case c.relation == LessOrEqual:
			lw.expression(entries)
			lw.print(" <= ", formatNumber(c.rhs))
		default:
			lw.expression(entries)
			lw.print(" >= ", formatNumber(c.rhs))
		}
		lw.print(";\n")
	}

	lw.writeDeclarations()
}

func (lw *lpWriter) writeDeclarations() {
	model := lw.model

	var ints, bins, secs []string
	first := true
	for j, v := range model.vars {
		name := lw.colName(j + 1)
		c := v.col
		switch c.kind {
		case IntegerVariable:
			ints = append(ints, name)
		case BinaryVariable:
			bins = append(bins, name)

			continue
		case SemiContinuousVariable:
			secs = append(secs, name)
		}

		if c.lower == 0 && math.IsInf(c.upper, 1) {
			continue
		}
		if first {
			lw.print("\n")
			first = false
		}

		switch {
		case c.lower == c.upper:
			lw.print(name, " = ", formatNumber(c.lower), ";\n")
		case !math.IsInf(c.lower, 0) && !math.IsInf(c.upper, 0):
			lw.print(formatNumber(c.lower), " <= ", name, " <= ", formatNumber(c.upper), ";\n")
		case c.lower == 0:
			lw.print(name, " <= ", formatNumber(c.upper), ";\n")
		default:
			lw.print(name, " >= ", formatNumber(c.lower), ";\n")
			if !math.IsInf(c.upper, 1) {
				lw.print(name, " <= ", formatNumber(c.upper), ";\n")
			}
		}
	}

	for _, section := range []struct {
		keyword string
		names   []string
	}{{"int", ints}, {"bin", bins}, {"sec", secs}} {
		if len(section.names) > 0 {
			lw.print("\n", section.keyword, " ", strings.Join(section.names, ","), ";\n")
		}
	}

	sosType := 0
	for k, s := range model.sortedSOS() {
		if s.sosType != sosType {
			sosType = s.sosType
			lw.print("\nsos", strconv.Itoa(sosType), "\n")
		}
		name := s.name
		if name == "" {
			name = "SOS" + strconv.Itoa(k+1)
		}
		lw.print(name, ": ")
		for i, col := range s.cols {
			if i > 0 {
				lw.print(",")
			}
			lw.print(lw.colName(col.index), ":", formatNumber(s.weights[i]))
		}
		lw.print(" <= ", strconv.Itoa(s.priority), ";\n")
	}
}
