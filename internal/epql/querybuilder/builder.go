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

// Package querybuilder assembles a complete native query from a parsed EPQL
// statement and the configuration of its root entity.
//
// Each leaf is resolved through its field descriptor and handed to the field's
// sub-query builder (or the dialect default). The resulting clauses are
// combined bottom-up following the shape of the parsed tree, which already
// encodes AND-before-OR precedence. A correction pass then folds trivially true
// clauses away and checks that no predicate was lost.
package querybuilder

import (
	"errors"
	"fmt"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/configuration"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/field"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// Builder is the complete query builder. It holds no per-query state and is
// safe for concurrent use.
type Builder struct {
	dialects     map[native.Backend]native.Dialect
	defaultLimit int
}

// New returns a builder that uses one dialect per backend. defaultLimit applies
// when a statement has no LIMIT; 0 leaves results unbounded.
func New(defaultLimit int, dialects ...native.Dialect) *Builder {
	b := &Builder{dialects: make(map[native.Backend]native.Dialect, len(dialects)), defaultLimit: defaultLimit}
	for _, d := range dialects {
		b.dialects[d.Backend()] = d
	}
	return b
}

// Dialect returns the dialect registered for backend.
func (b *Builder) Dialect(backend native.Backend) (native.Dialect, bool) {
	d, ok := b.dialects[backend]
	return d, ok
}

// Compile looks up the root entity of q in reg and builds the native query.
func (b *Builder) Compile(q *ast.Query, reg *configuration.Registry) (*native.Query, error) {
	cfg, ok := reg.ConfigurationFor(q.Entity)
	if !ok {
		return nil, &epqlerrors.BuildError{
			Kind:   epqlerrors.UnknownEntity,
			Cause:  epqlerrors.PhaseConfiguration,
			Entity: q.Entity,
			Offset: -1,
			Detail: "no configuration registered for entity",
		}
	}
	return b.Build(q, cfg)
}

// Build turns q into a native query for cfg.
func (b *Builder) Build(q *ast.Query, cfg *configuration.EntityConfiguration) (*native.Query, error) {
	dialect, ok := b.dialects[cfg.Backend()]
	if !ok {
		return nil, &epqlerrors.ConfigurationError{
			Entity: cfg.Name(),
			Reason: fmt.Sprintf("no dialect registered for backend %q", cfg.Backend()),
		}
	}

	out := &native.Query{
		Entity:    cfg.Name(),
		Backend:   cfg.Backend(),
		Root:      cfg.Root(),
		Limit:     q.Limit,
		FetchType: cfg.FetchType(),
	}
	if out.Limit == 0 {
		out.Limit = b.defaultLimit
	}

	if q.Where != nil {
		tb := &termBuilder{cfg: cfg, dialect: dialect}
		where, err := ast.Fold[native.Clause](q.Where, tb)
		if err != nil {
			return nil, err
		}
		where, err = checkProcessedQuery(cfg, q.Where, where, tb.leaves)
		if err != nil {
			return nil, err
		}
		out.Where = where
	}

	sorts, err := buildSorts(q, cfg)
	if err != nil {
		return nil, err
	}
	out.Sorts = sorts
	return out, nil
}

// checkProcessedQuery is the correction pass over a built predicate. A predicate
// that reduced to match-all collapses to "select all"; a leaf count mismatch
// means a predicate was dropped, which is never silently accepted.
func checkProcessedQuery(cfg *configuration.EntityConfiguration, tree ast.Term, where native.Clause, built int) (native.Clause, error) {
	if want := len(ast.Leaves(tree)); built != want {
		return nil, &epqlerrors.BuildError{
			Kind:   epqlerrors.EmptyClause,
			Cause:  epqlerrors.PhaseBuild,
			Entity: cfg.Name(),
			Offset: -1,
			Detail: fmt.Sprintf("built %d of %d predicates", built, want),
		}
	}
	if where == nil || native.IsMatchAll(where) {
		return nil, nil
	}
	return where, nil
}

func buildSorts(q *ast.Query, cfg *configuration.EntityConfiguration) ([]native.Sort, error) {
	seen := make(map[string]struct{})
	var sorts []native.Sort

	for _, o := range q.OrderBy {
		d, ok := cfg.Field(o.Field.Name)
		if !ok {
			return nil, unknownField(cfg, o.Field.Name, o.Pos)
		}
		resolved, err := d.Resolver.Resolve(d.Target(), field.Context{Params: o.Field.Params})
		if err != nil {
			return nil, resolutionFailed(cfg, o.Field.Name, o.Pos, err)
		}
		sort := native.Sort{Expression: resolved.Expression, Order: o.Order}
		key := resolved.Expression
		if sb, ok := d.SubQuery.(native.SortBuilder); ok {
			if sort, err = sb.BuildSort(resolved, o.Order); err != nil {
				return nil, &epqlerrors.BuildError{
					Kind:   epqlerrors.UnsupportedOperator,
					Cause:  epqlerrors.PhaseBuild,
					Entity: cfg.Name(),
					Field:  d.Name,
					Offset: o.Pos,
					Detail: "field cannot be sorted",
					Err:    err,
				}
			}
			// side-table keys differ per locale
			key = resolved.Expression + "[" + resolved.Locale + "]"
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sorts = append(sorts, sort)
	}

	for _, s := range cfg.SortFields() {
		if _, dup := seen[s.Expression]; dup {
			continue
		}
		seen[s.Expression] = struct{}{}
		sorts = append(sorts, native.Sort{Expression: s.Expression, Order: s.Order})
	}
	return sorts, nil
}

// termBuilder folds a term tree into native clauses.
type termBuilder struct {
	cfg     *configuration.EntityConfiguration
	dialect native.Dialect
	leaves  int
}

func (tb *termBuilder) VisitComparison(c *ast.Comparison) (native.Clause, error) {
	d, ok := tb.cfg.Field(c.Field.Name)
	if !ok {
		return nil, unknownField(tb.cfg, c.Field.Name, c.Pos)
	}
	if !d.Type.Supports(c.Operator) {
		return nil, &epqlerrors.BuildError{
			Kind:     epqlerrors.TypeMismatch,
			Cause:    epqlerrors.PhaseParse,
			Entity:   tb.cfg.Name(),
			Field:    d.Name,
			Operator: c.Operator.String(),
			Offset:   c.Pos,
			Detail:   fmt.Sprintf("operator not allowed on %s field", d.Type),
		}
	}
	resolved, err := d.Resolver.Resolve(d.Target(), field.Context{Params: c.Field.Params})
	if err != nil {
		return nil, resolutionFailed(tb.cfg, d.Name, c.Pos, err)
	}
	value, err := d.Type.Convert(c.Value)
	if err != nil {
		return nil, typeMismatch(tb.cfg, d, c.Operator.String(), c.Pos, err)
	}
	return tb.build(d, native.ResolvedTerm{
		Field:    resolved,
		Type:     d.Type,
		Operator: c.Operator,
		Value:    value,
		Term:     c,
	})
}

func (tb *termBuilder) VisitRange(r *ast.Range) (native.Clause, error) {
	d, ok := tb.cfg.Field(r.Field.Name)
	if !ok {
		return nil, unknownField(tb.cfg, r.Field.Name, r.Pos)
	}
	if d.Type == field.TypeBoolean {
		return nil, &epqlerrors.BuildError{
			Kind:     epqlerrors.TypeMismatch,
			Cause:    epqlerrors.PhaseParse,
			Entity:   tb.cfg.Name(),
			Field:    d.Name,
			Operator: "BETWEEN",
			Offset:   r.Pos,
			Detail:   "range not allowed on BOOLEAN field",
		}
	}
	resolved, err := d.Resolver.Resolve(d.Target(), field.Context{Params: r.Field.Params})
	if err != nil {
		return nil, resolutionFailed(tb.cfg, d.Name, r.Pos, err)
	}
	term := native.ResolvedTerm{Field: resolved, Type: d.Type, Term: r}
	if r.Lower != nil {
		if term.Lower, err = d.Type.Convert(*r.Lower); err != nil {
			return nil, typeMismatch(tb.cfg, d, "BETWEEN", r.Pos, err)
		}
	}
	if r.Upper != nil {
		if term.Upper, err = d.Type.Convert(*r.Upper); err != nil {
			return nil, typeMismatch(tb.cfg, d, "BETWEEN", r.Pos, err)
		}
	}
	return tb.build(d, term)
}

func (tb *termBuilder) VisitConjunction(op ast.BoolOp, left, right native.Clause) (native.Clause, error) {
	switch op {
	case ast.And:
		if native.IsMatchAll(left) {
			return right, nil
		}
		if native.IsMatchAll(right) {
			return left, nil
		}
		return tb.dialect.And(left, right)
	case ast.Or:
		if native.IsMatchAll(left) || native.IsMatchAll(right) {
			return native.MatchAll{For: tb.cfg.Backend()}, nil
		}
		return tb.dialect.Or(left, right)
	}
	return nil, fmt.Errorf("unsupported conjunction %s", op)
}

func (tb *termBuilder) VisitNegation(inner native.Clause) (native.Clause, error) {
	clause, err := tb.dialect.Not(inner)
	if err != nil {
		var be *epqlerrors.BuildError
		if errors.As(err, &be) {
			if be.Entity == "" {
				be.Entity = tb.cfg.Name()
			}
			return nil, be
		}
		return nil, &epqlerrors.BuildError{
			Kind:   epqlerrors.UnsupportedNegation,
			Cause:  epqlerrors.PhaseBuild,
			Entity: tb.cfg.Name(),
			Offset: -1,
			Err:    err,
		}
	}
	return clause, nil
}

func (tb *termBuilder) build(d configuration.FieldDescriptor, term native.ResolvedTerm) (native.Clause, error) {
	var builder native.SubQueryBuilder = tb.dialect
	if d.SubQuery != nil {
		builder = d.SubQuery
	}

	clause, err := builder.Build(term)
	if err != nil {
		var be *epqlerrors.BuildError
		if errors.As(err, &be) {
			if be.Entity == "" {
				be.Entity = tb.cfg.Name()
			}
			if be.Field == "" {
				be.Field = d.Name
			}
			if be.Offset < 0 {
				be.Offset = term.Term.Offset()
			}
			return nil, be
		}
		return nil, &epqlerrors.BuildError{
			Kind:   epqlerrors.UnsupportedOperator,
			Cause:  epqlerrors.PhaseBuild,
			Entity: tb.cfg.Name(),
			Field:  d.Name,
			Offset: term.Term.Offset(),
			Err:    err,
		}
	}
	if clause == nil {
		return nil, &epqlerrors.BuildError{
			Kind:   epqlerrors.EmptyClause,
			Cause:  epqlerrors.PhaseBuild,
			Entity: tb.cfg.Name(),
			Field:  d.Name,
			Offset: term.Term.Offset(),
			Detail: "sub-query builder produced no clause",
		}
	}
	if clause.Backend() != tb.cfg.Backend() {
		return nil, &epqlerrors.BuildError{
			Kind:   epqlerrors.EmptyClause,
			Cause:  epqlerrors.PhaseConfiguration,
			Entity: tb.cfg.Name(),
			Field:  d.Name,
			Offset: term.Term.Offset(),
			Detail: fmt.Sprintf("clause for backend %q in a %q query", clause.Backend(), tb.cfg.Backend()),
		}
	}
	tb.leaves++
	return clause, nil
}

func unknownField(cfg *configuration.EntityConfiguration, name string, offset int) error {
	return &epqlerrors.BuildError{
		Kind:   epqlerrors.UnknownField,
		Cause:  epqlerrors.PhaseParse,
		Entity: cfg.Name(),
		Field:  name,
		Offset: offset,
		Detail: "field is not configured for this entity",
	}
}

func resolutionFailed(cfg *configuration.EntityConfiguration, name string, offset int, err error) error {
	return &epqlerrors.BuildError{
		Kind:   epqlerrors.Resolution,
		Cause:  epqlerrors.PhaseResolution,
		Entity: cfg.Name(),
		Field:  name,
		Offset: offset,
		Err:    err,
	}
}

func typeMismatch(cfg *configuration.EntityConfiguration, d configuration.FieldDescriptor, op string, offset int, err error) error {
	return &epqlerrors.BuildError{
		Kind:     epqlerrors.TypeMismatch,
		Cause:    epqlerrors.PhaseParse,
		Entity:   cfg.Name(),
		Field:    d.Name,
		Operator: op,
		Offset:   offset,
		Err:      err,
	}
}
