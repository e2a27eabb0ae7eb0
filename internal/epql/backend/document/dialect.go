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

// Package document compiles EPQL terms into MongoDB filter documents and runs
// them with the official mongo driver.
package document

import (
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// Clause wraps a filter document.
type Clause struct {
	Filter bson.D
}

func (Clause) Backend() native.Backend { return native.BackendDocument }

// Dialect is the default sub-query builder and combiner for document entities.
type Dialect struct{}

// NewDialect returns the document dialect.
func NewDialect() Dialect { return Dialect{} }

func (Dialect) Backend() native.Backend { return native.BackendDocument }

var comparisonOperators = map[ast.Operator]string{
	ast.OpEqual:        "$eq",
	ast.OpNotEqual:     "$ne",
	ast.OpLess:         "$lt",
	ast.OpLessEqual:    "$lte",
	ast.OpGreater:      "$gt",
	ast.OpGreaterEqual: "$gte",
}

// Build turns one resolved leaf into a field filter.
func (Dialect) Build(t native.ResolvedTerm) (native.Clause, error) {
	path := t.Field.Expression

	if t.IsRange() {
		if t.Lower == nil && t.Upper == nil {
			return native.MatchAll{For: native.BackendDocument}, nil
		}
		cond := bson.D{}
		if t.Lower != nil {
			cond = append(cond, bson.E{Key: "$gte", Value: t.Lower})
		}
		if t.Upper != nil {
			cond = append(cond, bson.E{Key: "$lte", Value: t.Upper})
		}
		return Clause{Filter: bson.D{{Key: path, Value: cond}}}, nil
	}

	if t.Operator == ast.OpLike {
		s, ok := t.Value.(string)
		if !ok {
			return nil, &epqlerrors.BuildError{
				Kind:     epqlerrors.TypeMismatch,
				Cause:    epqlerrors.PhaseParse,
				Field:    t.Field.Name,
				Operator: t.Operator.String(),
				Offset:   -1,
				Detail:   fmt.Sprintf("LIKE needs a string pattern, got %T", t.Value),
			}
		}
		return Clause{Filter: bson.D{{Key: path, Value: bson.D{{Key: "$regex", Value: primitive.Regex{Pattern: RegexPattern(s)}}}}}}, nil
	}

	op, ok := comparisonOperators[t.Operator]
	if !ok {
		return nil, &epqlerrors.BuildError{
			Kind:     epqlerrors.UnsupportedOperator,
			Cause:    epqlerrors.PhaseBuild,
			Field:    t.Field.Name,
			Operator: t.Operator.String(),
			Offset:   -1,
		}
	}
	return Clause{Filter: bson.D{{Key: path, Value: bson.D{{Key: op, Value: t.Value}}}}}, nil
}

// RegexPattern translates an EPQL wildcard pattern into an anchored regular
// expression: * matches any run, ? a single character.
func RegexPattern(s string) string {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range s {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}

func (Dialect) And(left, right native.Clause) (native.Clause, error) {
	l, err := filter(left)
	if err != nil {
		return nil, err
	}
	r, err := filter(right)
	if err != nil {
		return nil, err
	}
	return Clause{Filter: bson.D{{Key: "$and", Value: bson.A{l, r}}}}, nil
}

func (Dialect) Or(left, right native.Clause) (native.Clause, error) {
	l, err := filter(left)
	if err != nil {
		return nil, err
	}
	r, err := filter(right)
	if err != nil {
		return nil, err
	}
	return Clause{Filter: bson.D{{Key: "$or", Value: bson.A{l, r}}}}, nil
}

// Not uses $nor, which negates a whole sub-document.
func (Dialect) Not(inner native.Clause) (native.Clause, error) {
	f, err := filter(inner)
	if err != nil {
		return nil, err
	}
	return Clause{Filter: bson.D{{Key: "$nor", Value: bson.A{f}}}}, nil
}

func filter(c native.Clause) (bson.D, error) {
	switch v := c.(type) {
	case Clause:
		return v.Filter, nil
	case native.MatchAll:
		return bson.D{}, nil
	}
	return nil, fmt.Errorf("document: cannot combine %T clause", c)
}

// Filter returns the top-level filter of q; an empty document selects all.
func Filter(q *native.Query) (bson.D, error) {
	if q.Where == nil {
		return bson.D{}, nil
	}
	return filter(q.Where)
}

// Sort returns the sort document of q.
func Sort(q *native.Query) bson.D {
	sort := bson.D{}
	for _, s := range q.Sorts {
		dir := 1
		if s.Order == ast.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: s.Expression, Value: dir})
	}
	return sort
}

// Projection returns the projection document that keeps only identifier fields.
func Projection(q *native.Query) bson.D {
	proj := bson.D{}
	hasID := false
	for _, s := range q.Root.Select {
		if s == "_id" {
			hasID = true
		}
		proj = append(proj, bson.E{Key: s, Value: 1})
	}
	if !hasID {
		proj = append(proj, bson.E{Key: "_id", Value: 0})
	}
	return proj
}

// Render returns the find command of q as relaxed extended JSON.
func (Dialect) Render(q *native.Query) (string, error) {
	if q.Backend != native.BackendDocument {
		return "", fmt.Errorf("document: query for %s backend", q.Backend)
	}
	f, err := Filter(q)
	if err != nil {
		return "", err
	}
	cmd := bson.D{
		{Key: "find", Value: q.Root.Source},
		{Key: "filter", Value: f},
		{Key: "projection", Value: Projection(q)},
	}
	if len(q.Sorts) > 0 {
		cmd = append(cmd, bson.E{Key: "sort", Value: Sort(q)})
	}
	if q.Limit > 0 {
		cmd = append(cmd, bson.E{Key: "limit", Value: q.Limit})
	}
	out, err := bson.MarshalExtJSON(cmd, false, false)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
