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
	"sort"
)

// SparseMatrix stores the coefficients of a model. Row 0 holds the
// objective function, rows 1 to Rows() the constraints; columns are
// numbered from 1 to Columns(). Absent entries are zero and zeros are never
// stored.
//
// In row mode, appended rows are collected in a pending buffer and merged
// into the matrix on the next read or when row mode is switched off, which
// makes building a model row by row cheaper. Results are the same in both
// modes.
type SparseMatrix struct {
	rows     []map[int]float64
	columns  int
	nonzeros int

	rowMode bool
	pending []map[int]float64
}

// NewSparseMatrix returns an all-zero matrix with the given number of
// constraint rows and columns.
func NewSparseMatrix(rows, columns int) *SparseMatrix {
	if rows < 0 || columns < 0 {
		panic("negative matrix dimensions")
	}

	m := &SparseMatrix{
		rows:    make([]map[int]float64, rows+1),
		columns: columns,
	}
	for i := range m.rows {
		m.rows[i] = make(map[int]float64)
	}

	return m
}

// Rows returns the number of constraint rows, not counting the objective row.
func (m *SparseMatrix) Rows() int {
	return len(m.rows) - 1 + len(m.pending)
}

func (m *SparseMatrix) Columns() int {
	return m.columns
}

// NonZeros returns the number of nonzero constraint coefficients. The
// objective row is not counted.
func (m *SparseMatrix) NonZeros() int {
	m.flush()

	return m.nonzeros
}

// SetRowMode switches row mode on or off and returns the previous mode.
func (m *SparseMatrix) SetRowMode(enabled bool) bool {
	previous := m.rowMode
	m.rowMode = enabled
	if !enabled {
		m.flush()
	}

	return previous
}

func (m *SparseMatrix) RowMode() bool {
	return m.rowMode
}

func (m *SparseMatrix) flush() {
	if len(m.pending) == 0 {
		return
	}

	for _, row := range m.pending {
		m.rows = append(m.rows, row)
		m.nonzeros += len(row)
	}
	m.pending = nil
}

func (m *SparseMatrix) checkIndex(row, col int) error {
	if row < 0 || row > m.Rows() || col < 1 || col > m.columns {
		return ErrIndexOutOfRange
	}

	return nil
}

func checkValue(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ErrInvalidValue
	}

	return nil
}

// Set stores value at (row, col). Setting zero removes the entry.
func (m *SparseMatrix) Set(row, col int, value float64) error {
	if err := m.checkIndex(row, col); err != nil {
		return err
	}
	if err := checkValue(value); err != nil {
		return err
	}

	m.flush()
	_, exists := m.rows[row][col]
	switch {
	case value == 0 && exists:
		delete(m.rows[row], col)
		if row > 0 {
			m.nonzeros--
		}
	case value != 0:
		m.rows[row][col] = value
		if !exists && row > 0 {
			m.nonzeros++
		}
	}

	return nil
}

// Get returns the value stored at (row, col).
func (m *SparseMatrix) Get(row, col int) (float64, error) {
	if err := m.checkIndex(row, col); err != nil {
		return 0, err
	}

	m.flush()

	return m.rows[row][col], nil
}

// AppendRow adds a constraint row at the bottom of the matrix and returns
// its index. Zero entries are skipped.
func (m *SparseMatrix) AppendRow(entries map[int]float64) (int, error) {
	row := make(map[int]float64, len(entries))
	for col, value := range entries {
		if col < 1 || col > m.columns {
			return 0, ErrIndexOutOfRange
		}
		if err := checkValue(value); err != nil {
			return 0, err
		}
		if value != 0 {
			row[col] = value
		}
	}

	if m.rowMode {
		m.pending = append(m.pending, row)
	} else {
		m.rows = append(m.rows, row)
		m.nonzeros += len(row)
	}

	return m.Rows(), nil
}

// InsertRow adds an empty constraint row at index at, moving the rows at
// and after it down by one. at may be Rows()+1 to append.
func (m *SparseMatrix) InsertRow(at int) error {
	m.flush()
	if at < 1 || at > len(m.rows) {
		return ErrIndexOutOfRange
	}

	m.rows = append(m.rows, nil)
	copy(m.rows[at+1:], m.rows[at:])
	m.rows[at] = make(map[int]float64)

	return nil
}

// DeleteRow removes a constraint row; the rows after it move up by one.
func (m *SparseMatrix) DeleteRow(index int) error {
	m.flush()
	if index < 1 || index >= len(m.rows) {
		return ErrIndexOutOfRange
	}

	m.nonzeros -= len(m.rows[index])
	m.rows = append(m.rows[:index], m.rows[index+1:]...)

	return nil
}

// AppendColumn adds a column at the right of the matrix. values is keyed by
// row, row 0 being the objective.
func (m *SparseMatrix) AppendColumn(values map[int]float64) (int, error) {
	m.flush()
	for row, value := range values {
		if row < 0 || row >= len(m.rows) {
			return 0, ErrIndexOutOfRange
		}
		if err := checkValue(value); err != nil {
			return 0, err
		}
	}

	m.columns++
	for row, value := range values {
		if value == 0 {
			continue
		}
		m.rows[row][m.columns] = value
		if row > 0 {
			m.nonzeros++
		}
	}

	return m.columns, nil
}

// InsertColumn adds an empty column at index at, renumbering the columns at
// and after it. at may be Columns()+1 to append.
func (m *SparseMatrix) InsertColumn(at int) error {
	m.flush()
	if at < 1 || at > m.columns+1 {
		return ErrIndexOutOfRange
	}

	for i, row := range m.rows {
		m.rows[i] = shiftColumns(row, at, +1)
	}
	m.columns++

	return nil
}

// DeleteColumn removes a column from every row; the columns after it are
// renumbered down by one.
func (m *SparseMatrix) DeleteColumn(index int) error {
	m.flush()
	if index < 1 || index > m.columns {
		return ErrIndexOutOfRange
	}

	for i, row := range m.rows {
		if _, ok := row[index]; ok {
			delete(row, index)
			if i > 0 {
				m.nonzeros--
			}
		}
		m.rows[i] = shiftColumns(row, index+1, -1)
	}
	m.columns--

	return nil
}

// shiftColumns moves every entry with a column >= from by delta.
func shiftColumns(row map[int]float64, from, delta int) map[int]float64 {
	moved := false
	for col := range row {
		if col >= from {
			moved = true
			break
		}
	}
	if !moved {
		return row
	}

	shifted := make(map[int]float64, len(row))
	for col, value := range row {
		if col >= from {
			col += delta
		}
		shifted[col] = value
	}

	return shifted
}

// Entry is a single nonzero coefficient of a row.
type Entry struct {
	Column int
	Value  float64
}

// Row returns the nonzero entries of a row sorted by column.
func (m *SparseMatrix) Row(index int) ([]Entry, error) {
	m.flush()
	if index < 0 || index >= len(m.rows) {
		return nil, ErrIndexOutOfRange
	}

	entries := make([]Entry, 0, len(m.rows[index]))
	for col, value := range m.rows[index] {
		entries = append(entries, Entry{Column: col, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Column < entries[j].Column })

	return entries, nil
}

// Column returns a column as a dense slice indexed by row, element 0 being
// the objective coefficient.
func (m *SparseMatrix) Column(index int) ([]float64, error) {
	m.flush()
	if index < 1 || index > m.columns {
		return nil, ErrIndexOutOfRange
	}

	values := make([]float64, len(m.rows))
	for i, row := range m.rows {
		values[i] = row[index]
	}

	return values, nil
}

// Clone returns an independent copy of the matrix, row mode included.
func (m *SparseMatrix) Clone() *SparseMatrix {
	m.flush()

	c := &SparseMatrix{
		rows:     make([]map[int]float64, len(m.rows)),
		columns:  m.columns,
		nonzeros: m.nonzeros,
		rowMode:  m.rowMode,
	}
	for i, row := range m.rows {
		c.rows[i] = make(map[int]float64, len(row))
		for col, value := range row {
			c.rows[i][col] = value
		}
	}

	return c
}
