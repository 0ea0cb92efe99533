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

import "errors"

// Errors returned by the model API. They are returned wrapped, so callers
// should compare them using errors.Is.
var (
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidValue      = errors.New("invalid numeric value")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidRelation   = errors.New("invalid constraint relation")
	ErrInvalidBounds     = errors.New("lower bound greater than upper bound")
	ErrInvalidType       = errors.New("invalid variable type")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrParse             = errors.New("parse error")
	ErrNotSolved         = errors.New("model has no current solution")
	ErrDeletedVariable   = errors.New("variable was deleted from its model")
)
