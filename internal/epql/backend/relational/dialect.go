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

// Package relational compiles EPQL terms into goqu expressions and runs the
// resulting SELECT statements against PostgreSQL.
package relational

import (
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	// postgres dialect for goqu
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/field"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// SQLDialect is the goqu dialect used for rendering.
const SQLDialect = "postgres"

// Clause wraps a goqu boolean expression.
type Clause struct {
	Expr exp.Expression
}

func (Clause) Backend() native.Backend { return native.BackendRelational }

// Dialect is the default sub-query builder and combiner for relational entities.
type Dialect struct{}

// NewDialect returns the relational dialect.
func NewDialect() Dialect { return Dialect{} }

func (Dialect) Backend() native.Backend { return native.BackendRelational }

// Build turns one resolved leaf into a column predicate.
func (Dialect) Build(t native.ResolvedTerm) (native.Clause, error) {
	if t.IsRange() && t.Lower == nil && t.Upper == nil {
		return native.MatchAll{For: native.BackendRelational}, nil
	}
	e, err := buildExpression(t)
	if err != nil {
		return nil, err
	}
	return Clause{Expr: e}, nil
}

func buildExpression(t native.ResolvedTerm) (exp.Expression, error) {
	col := goqu.I(t.Field.Expression)

	if t.IsRange() {
		switch {
		case t.Lower != nil && t.Upper != nil:
			return col.Between(goqu.Range(t.Lower, t.Upper)), nil
		case t.Lower != nil:
			return col.Gte(t.Lower), nil
		default:
			return col.Lte(t.Upper), nil
		}
	}

	switch t.Operator {
	case ast.OpEqual:
		return col.Eq(t.Value), nil
	case ast.OpNotEqual:
		return col.Neq(t.Value), nil
	case ast.OpLess:
		return col.Lt(t.Value), nil
	case ast.OpLessEqual:
		return col.Lte(t.Value), nil
	case ast.OpGreater:
		return col.Gt(t.Value), nil
	case ast.OpGreaterEqual:
		return col.Gte(t.Value), nil
	case ast.OpLike:
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
		return col.Like(LikePattern(s)), nil
	}
	return nil, &epqlerrors.BuildError{
		Kind:     epqlerrors.UnsupportedOperator,
		Cause:    epqlerrors.PhaseBuild,
		Field:    t.Field.Name,
		Operator: t.Operator.String(),
		Offset:   -1,
	}
}

// LikePattern translates an EPQL wildcard pattern (* and ?) into SQL LIKE syntax,
// escaping the characters LIKE treats specially.
func LikePattern(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			sb.WriteRune('\\')
			sb.WriteRune(r)
		case '*':
			sb.WriteRune('%')
		case '?':
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (Dialect) And(left, right native.Clause) (native.Clause, error) {
	l, err := expression(left)
	if err != nil {
		return nil, err
	}
	r, err := expression(right)
	if err != nil {
		return nil, err
	}
	return Clause{Expr: goqu.And(l, r)}, nil
}

func (Dialect) Or(left, right native.Clause) (native.Clause, error) {
	l, err := expression(left)
	if err != nil {
		return nil, err
	}
	r, err := expression(right)
	if err != nil {
		return nil, err
	}
	return Clause{Expr: goqu.Or(l, r)}, nil
}

func (Dialect) Not(inner native.Clause) (native.Clause, error) {
	e, err := expression(inner)
	if err != nil {
		return nil, err
	}
	return Clause{Expr: goqu.L("NOT (?)", e)}, nil
}

func expression(c native.Clause) (exp.Expression, error) {
	switch v := c.(type) {
	case Clause:
		return v.Expr, nil
	case native.MatchAll:
		return goqu.L("TRUE"), nil
	}
	return nil, fmt.Errorf("relational: cannot combine %T clause", c)
}

// Dataset builds the SELECT statement of a compiled query.
func Dataset(q *native.Query) (*goqu.SelectDataset, error) {
	if q.Backend != native.BackendRelational {
		return nil, fmt.Errorf("relational: query for %s backend", q.Backend)
	}

	from := goqu.T(q.Root.Source)
	var ds *goqu.SelectDataset
	if q.Root.Alias != "" {
		ds = goqu.Dialect(SQLDialect).From(from.As(q.Root.Alias))
	} else {
		ds = goqu.Dialect(SQLDialect).From(from)
	}

	for _, j := range q.Root.Joins {
		var table exp.Expression = goqu.T(j.Table)
		if j.Alias != "" {
			table = goqu.T(j.Table).As(j.Alias)
		}
		ds = ds.LeftJoin(table, goqu.On(goqu.I(j.Left).Eq(goqu.I(j.Right))))
	}

	cols := make([]interface{}, 0, len(q.Root.Select))
	for _, s := range q.Root.Select {
		cols = append(cols, goqu.I(s))
	}
	ds = ds.Select(cols...)

	if q.Where != nil {
		e, err := expression(q.Where)
		if err != nil {
			return nil, err
		}
		ds = ds.Where(e)
	}

	if len(q.Sorts) > 0 {
		order := make([]exp.OrderedExpression, 0, len(q.Sorts))
		for _, s := range q.Sorts {
			var key exp.Orderable = goqu.I(s.Expression)
			if s.Key != nil {
				c, ok := s.Key.(Clause)
				if !ok {
					return nil, fmt.Errorf("relational: cannot order by %T", s.Key)
				}
				if key, ok = c.Expr.(exp.Orderable); !ok {
					return nil, fmt.Errorf("relational: cannot order by %T", c.Expr)
				}
			}
			if s.Order == ast.Desc {
				order = append(order, key.Desc())
			} else {
				order = append(order, key.Asc())
			}
		}
		ds = ds.Order(order...)
	}

	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}
	return ds, nil
}

// Render returns the SQL text of q with values interpolated.
func (Dialect) Render(q *native.Query) (string, error) {
	ds, err := Dataset(q)
	if err != nil {
		return "", err
	}
	sqlQuery, _, err := ds.ToSQL()
	if err != nil {
		return "", err
	}
	return sqlQuery, nil
}

// LocalizedValue is a sub-query builder for properties stored one row per
// locale in a side table. The predicate becomes a correlated EXISTS so the
// root query never returns a record twice.
type LocalizedValue struct {
	Table        string // side table, e.g. "tcategoryldf"
	ForeignKey   string // side table column pointing at the root, e.g. "tcategoryldf.category_uid"
	RootKey      string // root column it references, e.g. "cat.uidpk"
	LocaleColumn string // side table locale column, e.g. "tcategoryldf.locale"
}

func (LocalizedValue) Backend() native.Backend { return native.BackendRelational }

func (l LocalizedValue) Build(t native.ResolvedTerm) (native.Clause, error) {
	where := []exp.Expression{goqu.I(l.ForeignKey).Eq(goqu.I(l.RootKey))}
	if t.Field.Locale != "" {
		where = append(where, goqu.I(l.LocaleColumn).Eq(t.Field.Locale))
	}
	if !t.IsRange() || t.Lower != nil || t.Upper != nil {
		e, err := buildExpression(t)
		if err != nil {
			return nil, err
		}
		where = append(where, e)
	}
	ds := goqu.Dialect(SQLDialect).From(goqu.T(l.Table)).Select(goqu.V(1)).Where(goqu.And(where...))
	return Clause{Expr: goqu.L("EXISTS (?)", ds)}, nil
}

// BuildSort orders by the side table value of the resolved locale through a
// correlated scalar sub-select, since the side table is never joined.
func (l LocalizedValue) BuildSort(f field.Resolved, order ast.SortOrder) (native.Sort, error) {
	where := []exp.Expression{goqu.I(l.ForeignKey).Eq(goqu.I(l.RootKey))}
	if f.Locale != "" {
		where = append(where, goqu.I(l.LocaleColumn).Eq(f.Locale))
	}
	ds := goqu.Dialect(SQLDialect).From(goqu.T(l.Table)).
		Select(goqu.MIN(goqu.I(f.Expression))).
		Where(goqu.And(where...))
	return native.Sort{
		Expression: f.Expression,
		Order:      order,
		Key:        Clause{Expr: goqu.L("?", ds)},
	}, nil
}
