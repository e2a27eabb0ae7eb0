/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package field resolves logical EPQL field names into concrete backend field
// references and converts query literals into typed backend values.
package field

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
)

// Type is the declared value type of a field.
type Type int

const (
	TypeString Type = iota
	TypeNumber
	TypeDate
	TypeBoolean
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "STRING"
	case TypeNumber:
		return "NUMBER"
	case TypeDate:
		return "DATE"
	case TypeBoolean:
		return "BOOLEAN"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType maps a configuration name (STRING, NUMBER, DATE, BOOLEAN) to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "STRING":
		return TypeString, nil
	case "NUMBER":
		return TypeNumber, nil
	case "DATE":
		return TypeDate, nil
	case "BOOLEAN":
		return TypeBoolean, nil
	}
	return 0, fmt.Errorf("unknown field type %q", name)
}

// Supports reports whether op may be applied to a field of type t.
// LIKE is only legal on strings; ordering comparisons are not legal on booleans.
func (t Type) Supports(op ast.Operator) bool {
	switch {
	case op == ast.OpLike:
		return t == TypeString
	case op.IsOrdering():
		return t != TypeBoolean
	}
	return true
}

// dateLayouts are tried in order when converting a DATE literal.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseNumber keeps integer literals exact as int64 and parses everything
// else as float64. An integer outside the int64 range is rejected rather than
// rounded.
func parseNumber(lit ast.Literal) (any, error) {
	text := strings.TrimSpace(lit.Text)
	i, err := strconv.ParseInt(text, 10, 64)
	if err == nil {
		return i, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return nil, fmt.Errorf("%s is out of the integer range", lit)
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%s is not a number", lit)
	}
	return n, nil
}

// Convert turns a query literal into a Go value of the field type:
// string, int64 or float64, time.Time or bool.
func (t Type) Convert(lit ast.Literal) (any, error) {
	switch t {
	case TypeString:
		if lit.Kind == ast.LiteralBoolean {
			return nil, fmt.Errorf("boolean literal %s used on a STRING field", lit)
		}
		return lit.Text, nil
	case TypeNumber:
		if lit.Kind == ast.LiteralBoolean {
			return nil, fmt.Errorf("boolean literal %s used on a NUMBER field", lit)
		}
		return parseNumber(lit)
	case TypeDate:
		if lit.Kind != ast.LiteralString {
			return nil, fmt.Errorf("date values must be quoted, got %s", lit)
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, lit.Text); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("%s is not a date (expected RFC 3339 or yyyy-mm-dd)", lit)
	case TypeBoolean:
		if lit.Kind == ast.LiteralNumber {
			return nil, fmt.Errorf("%s is not a boolean", lit)
		}
		b, err := strconv.ParseBool(strings.ToLower(lit.Text))
		if err != nil {
			return nil, fmt.Errorf("%s is not a boolean", lit)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported field type %s", t)
}
