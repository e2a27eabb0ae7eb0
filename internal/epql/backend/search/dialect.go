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

// Package search compiles EPQL terms into Elasticsearch queries and runs them
// with the olivere/elastic client.
package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olivere/elastic/v7"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// IDField selects the document id instead of a source field.
const IDField = "_id"

// NegationMode decides how != and NOT are expressed.
type NegationMode string

const (
	// MatchAllExcept wraps the negated query in a bool query that also matches
	// every document, so a negation standing alone still scores all hits.
	MatchAllExcept NegationMode = "matchAllExcept"
	// MustNot emits a bare must_not clause.
	MustNot NegationMode = "mustNot"
)

// ParseNegationMode maps a configuration value to a NegationMode. Empty means MatchAllExcept.
func ParseNegationMode(s string) (NegationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "matchallexcept":
		return MatchAllExcept, nil
	case "mustnot":
		return MustNot, nil
	}
	return "", fmt.Errorf("unknown search negation mode %q", s)
}

// Clause wraps an elastic query.
type Clause struct {
	Query elastic.Query
}

func (Clause) Backend() native.Backend { return native.BackendSearch }

// Dialect is the default sub-query builder and combiner for search entities.
type Dialect struct {
	Negation NegationMode
}

// NewDialect returns a search dialect using mode for negations.
func NewDialect(mode NegationMode) Dialect {
	if mode == "" {
		mode = MatchAllExcept
	}
	return Dialect{Negation: mode}
}

func (Dialect) Backend() native.Backend { return native.BackendSearch }

// Build turns one resolved leaf into a term, wildcard or range query.
func (d Dialect) Build(t native.ResolvedTerm) (native.Clause, error) {
	name := t.Field.Expression

	if t.IsRange() {
		if t.Lower == nil && t.Upper == nil {
			return native.MatchAll{For: native.BackendSearch}, nil
		}
		rq := elastic.NewRangeQuery(name)
		if t.Lower != nil {
			rq = rq.Gte(value(t.Lower))
		}
		if t.Upper != nil {
			rq = rq.Lte(value(t.Upper))
		}
		return Clause{Query: rq}, nil
	}

	v := value(t.Value)
	switch t.Operator {
	case ast.OpEqual:
		return Clause{Query: elastic.NewTermQuery(name, v)}, nil
	case ast.OpNotEqual:
		return Clause{Query: d.negate(elastic.NewTermQuery(name, v))}, nil
	case ast.OpLess:
		return Clause{Query: elastic.NewRangeQuery(name).Lt(v)}, nil
	case ast.OpLessEqual:
		return Clause{Query: elastic.NewRangeQuery(name).Lte(v)}, nil
	case ast.OpGreater:
		return Clause{Query: elastic.NewRangeQuery(name).Gt(v)}, nil
	case ast.OpGreaterEqual:
		return Clause{Query: elastic.NewRangeQuery(name).Gte(v)}, nil
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
		return Clause{Query: elastic.NewWildcardQuery(name, s)}, nil
	}
	return nil, &epqlerrors.BuildError{
		Kind:     epqlerrors.UnsupportedOperator,
		Cause:    epqlerrors.PhaseBuild,
		Field:    t.Field.Name,
		Operator: t.Operator.String(),
		Offset:   -1,
	}
}

// value converts typed values into what the search engine accepts in JSON.
func value(v any) any {
	if ts, ok := v.(time.Time); ok {
		return ts.UTC().Format(time.RFC3339)
	}
	return v
}

func (d Dialect) negate(q elastic.Query) elastic.Query {
	if d.Negation == MustNot {
		return elastic.NewBoolQuery().MustNot(q)
	}
	return elastic.NewBoolQuery().Must(elastic.NewMatchAllQuery()).MustNot(q)
}

func (Dialect) And(left, right native.Clause) (native.Clause, error) {
	l, err := query(left)
	if err != nil {
		return nil, err
	}
	r, err := query(right)
	if err != nil {
		return nil, err
	}
	return Clause{Query: elastic.NewBoolQuery().Must(l, r)}, nil
}

func (Dialect) Or(left, right native.Clause) (native.Clause, error) {
	l, err := query(left)
	if err != nil {
		return nil, err
	}
	r, err := query(right)
	if err != nil {
		return nil, err
	}
	return Clause{Query: elastic.NewBoolQuery().Should(l, r).MinimumNumberShouldMatch(1)}, nil
}

func (d Dialect) Not(inner native.Clause) (native.Clause, error) {
	q, err := query(inner)
	if err != nil {
		return nil, err
	}
	return Clause{Query: d.negate(q)}, nil
}

func query(c native.Clause) (elastic.Query, error) {
	switch v := c.(type) {
	case Clause:
		return v.Query, nil
	case native.MatchAll:
		return elastic.NewMatchAllQuery(), nil
	}
	return nil, fmt.Errorf("search: cannot combine %T clause", c)
}

// SearchSource builds the request body of a compiled query.
func SearchSource(q *native.Query) (*elastic.SearchSource, error) {
	if q.Backend != native.BackendSearch {
		return nil, fmt.Errorf("search: query for %s backend", q.Backend)
	}

	var root elastic.Query = elastic.NewMatchAllQuery()
	if q.Where != nil {
		w, err := query(q.Where)
		if err != nil {
			return nil, err
		}
		root = w
	}
	ss := elastic.NewSearchSource().Query(root)

	var includes []string
	for _, s := range q.Root.Select {
		if s != IDField {
			includes = append(includes, s)
		}
	}
	if len(includes) > 0 {
		ss = ss.FetchSourceIncludeExclude(includes, nil)
	} else {
		ss = ss.FetchSource(false)
	}

	for _, s := range q.Sorts {
		ss = ss.SortBy(elastic.NewFieldSort(s.Expression).Order(s.Order == ast.Asc))
	}
	if q.Limit > 0 {
		ss = ss.Size(q.Limit)
	}
	return ss, nil
}

// Render returns the JSON request body of q.
func (Dialect) Render(q *native.Query) (string, error) {
	ss, err := SearchSource(q)
	if err != nil {
		return "", err
	}
	src, err := ss.Source()
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(src)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
