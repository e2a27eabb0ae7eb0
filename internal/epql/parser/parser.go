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

// Package parser turns EPQL text into an ast.Query.
//
// Accepted statements look like
//
//	Select Catalog WHERE CatalogCode='SNAPITUP'
//	FIND Category WHERE CategoryName[en] LIKE 'Sho*' OR (Hidden = FALSE AND Created >= '2024-01-01')
//	FIND Product WHERE Price[en][USD] BETWEEN (10, *) ORDER BY ProductCode DESC LIMIT 50
//	FIND CmUser
//
// Parsing is purely syntactic: field names and operator/type compatibility are
// checked later against the entity configuration. A failed parse never yields a
// partial tree.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
)

// Parse parses one EPQL statement.
func Parse(text string) (*ast.Query, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &epqlerrors.ParseError{Query: text, Line: 1, Column: 1, Expected: `"SELECT" or "FIND"`}
	}

	g, err := epqlParser.ParseString("", text)
	if err != nil {
		return nil, toParseError(text, err)
	}
	return convertQuery(text, g)
}

func toParseError(text string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return &epqlerrors.ParseError{
			Query:    text,
			Offset:   pos.Offset,
			Line:     pos.Line,
			Column:   pos.Column,
			Expected: perr.Message(),
		}
	}
	return &epqlerrors.ParseError{Query: text, Line: 1, Column: 1, Expected: err.Error()}
}

func convertQuery(text string, g *grammarQuery) (*ast.Query, error) {
	q := &ast.Query{Entity: g.Entity}

	if g.Where != nil {
		where, err := convertOr(text, g.Where)
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	for _, o := range g.Order {
		order := ast.Asc
		if strings.EqualFold(o.Direction, "DESC") {
			order = ast.Desc
		}
		q.OrderBy = append(q.OrderBy, ast.OrderBy{
			Field: ast.FieldRef{Name: o.Field, Params: unquoteParams(o.Params)},
			Order: order,
			Pos:   o.Pos.Offset,
		})
	}

	if g.Limit != nil {
		n, err := strconv.Atoi(g.Limit.Value)
		if err != nil || n <= 0 {
			return nil, &epqlerrors.ParseError{
				Query:    text,
				Offset:   g.Limit.Pos.Offset,
				Line:     g.Limit.Pos.Line,
				Column:   g.Limit.Pos.Column,
				Expected: fmt.Sprintf("positive integer after LIMIT, got %q", g.Limit.Value),
			}
		}
		q.Limit = n
	}
	return q, nil
}

func convertOr(text string, g *grammarOr) (ast.Term, error) {
	acc, err := convertAnd(text, g.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range g.Right {
		right, err := convertAnd(text, r)
		if err != nil {
			return nil, err
		}
		acc = &ast.Conjunction{Op: ast.Or, Left: acc, Right: right}
	}
	return acc, nil
}

func convertAnd(text string, g *grammarAnd) (ast.Term, error) {
	acc, err := convertUnary(text, g.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range g.Right {
		right, err := convertUnary(text, r)
		if err != nil {
			return nil, err
		}
		acc = &ast.Conjunction{Op: ast.And, Left: acc, Right: right}
	}
	return acc, nil
}

func convertUnary(text string, g *grammarUnary) (ast.Term, error) {
	switch {
	case g.Not != nil:
		inner, err := convertUnary(text, g.Not)
		if err != nil {
			return nil, err
		}
		return &ast.Negation{Inner: inner}, nil
	case g.Group != nil:
		return convertOr(text, g.Group)
	case g.Term != nil:
		return convertTerm(text, g.Term)
	}
	return nil, &epqlerrors.ParseError{Query: text, Line: 1, Column: 1, Expected: "term"}
}

func convertTerm(text string, g *grammarTerm) (ast.Term, error) {
	ref := ast.FieldRef{Name: g.Field, Params: unquoteParams(g.Params)}

	if g.Between != nil {
		r := &ast.Range{Field: ref, Pos: g.Pos.Offset}
		if !g.Between.Lower.Open {
			lit := convertValue(g.Between.Lower.Value)
			r.Lower = &lit
		}
		if !g.Between.Upper.Open {
			lit := convertValue(g.Between.Upper.Value)
			r.Upper = &lit
		}
		return r, nil
	}

	op, ok := ast.ParseOperator(g.Compare.Operator)
	if !ok {
		return nil, &epqlerrors.ParseError{
			Query:    text,
			Offset:   g.Pos.Offset,
			Line:     g.Pos.Line,
			Column:   g.Pos.Column,
			Expected: fmt.Sprintf("comparison operator, got %q", g.Compare.Operator),
		}
	}
	return &ast.Comparison{
		Field:    ref,
		Operator: op,
		Value:    convertValue(g.Compare.Value),
		Pos:      g.Pos.Offset,
	}, nil
}

func convertValue(g *grammarValue) ast.Literal {
	switch {
	case g.String != nil:
		return ast.StringLiteral(unquote(*g.String))
	case g.Number != nil:
		return ast.NumberLiteral(*g.Number)
	case g.Boolean != nil:
		return ast.BooleanLiteral(strings.EqualFold(*g.Boolean, "TRUE"))
	}
	return ast.StringLiteral("")
}

func unquoteParams(params []string) []string {
	if len(params) == 0 {
		return nil
	}
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = unquote(p)
	}
	return out
}

// unquote strips single quotes and collapses doubled quotes.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}
