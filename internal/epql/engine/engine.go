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

// Package engine is the query façade of the EPQL compiler. It parses EPQL
// text, looks up the entity configuration, builds the native query and runs
// it on the executor registered for the entity's backend.
//
// An Engine holds only startup-time state and is safe for concurrent use.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epcommerce/epql-go-components/internal/common/logger"
	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/configuration"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
	"github.com/epcommerce/epql-go-components/internal/epql/parser"
	"github.com/epcommerce/epql-go-components/internal/epql/querybuilder"
)

// Engine compiles and runs EPQL queries.
type Engine struct {
	registry  *configuration.Registry
	builder   *querybuilder.Builder
	executors map[native.Backend]native.Executor
}

// New creates an Engine. Backends without an executor can still be compiled
// and explained; searching them fails with a configuration error.
func New(registry *configuration.Registry, builder *querybuilder.Builder, executors ...native.Executor) *Engine {
	e := &Engine{
		registry:  registry,
		builder:   builder,
		executors: make(map[native.Backend]native.Executor, len(executors)),
	}
	for _, ex := range executors {
		e.executors[ex.Backend()] = ex
	}
	return e
}

// Registry returns the entity configurations the engine compiles against.
func (e *Engine) Registry() *configuration.Registry { return e.registry }

// QueryType identifies what a query returns: the entity and its fetch type.
type QueryType struct {
	Entity    string           `json:"entity"`
	FetchType native.FetchType `json:"fetchType"`
}

// Identifier is the set of result identifier types.
type Identifier interface {
	int64 | string | native.CompoundGUID
}

// SearchResult is the typed outcome of Search.
type SearchResult[T Identifier] struct {
	QueryType QueryType `json:"queryType"`
	Results   []T       `json:"results"`
}

// Result is the untyped outcome of Run, holding whichever identifiers the
// entity declares.
type Result struct {
	QueryType QueryType
	Set       *native.ResultSet
}

// Identifiers returns the populated identifier slice of r.
func (r *Result) Identifiers() any {
	switch r.Set.FetchType {
	case native.FetchUID:
		return nonNil(r.Set.UIDs)
	case native.FetchCompoundGUID:
		return nonNil(r.Set.Compound)
	}
	return nonNil(r.Set.GUIDs)
}

// Explanation describes how a query compiles without running it.
type Explanation struct {
	QueryType QueryType      `json:"queryType"`
	Backend   native.Backend `json:"backend"`
	EPQL      string         `json:"epql"`
	Native    string         `json:"native"`
}

// Parse parses text without resolving it against any entity.
func (e *Engine) Parse(text string) (*ast.Query, error) {
	q, err := parser.Parse(text)
	if err != nil {
		return nil, wrap(text, "", err)
	}
	return q, nil
}

// Compile parses text and builds the native query for its entity.
func (e *Engine) Compile(text string) (*native.Query, error) {
	q, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	nq, err := e.builder.Compile(q, e.registry)
	if err != nil {
		return nil, wrap(text, q.Entity, err)
	}
	return nq, nil
}

// Explain compiles text and renders the native query in backend syntax.
func (e *Engine) Explain(text string) (*Explanation, error) {
	q, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	nq, err := e.builder.Compile(q, e.registry)
	if err != nil {
		return nil, wrap(text, q.Entity, err)
	}
	dialect, ok := e.builder.Dialect(nq.Backend)
	if !ok {
		return nil, wrap(text, nq.Entity, &epqlerrors.ConfigurationError{
			Entity: nq.Entity,
			Reason: fmt.Sprintf("no dialect registered for backend %s", nq.Backend),
		})
	}
	rendered, err := dialect.Render(nq)
	if err != nil {
		return nil, &epqlerrors.QueryError{Phase: epqlerrors.PhaseBuild, Entity: nq.Entity, Query: text, Err: err}
	}
	return &Explanation{
		QueryType: QueryType{Entity: nq.Entity, FetchType: nq.FetchType},
		Backend:   nq.Backend,
		EPQL:      q.String(),
		Native:    rendered,
	}, nil
}

// Run compiles and executes text, returning identifiers of the entity's
// declared fetch type.
func (e *Engine) Run(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	nq, err := e.Compile(text)
	if err != nil {
		return nil, err
	}
	rs, err := e.execute(ctx, text, nq)
	if err != nil {
		return nil, err
	}
	logger.LogQuery(nq.Entity, text, rs.Len(), time.Since(start))
	return &Result{QueryType: QueryType{Entity: nq.Entity, FetchType: nq.FetchType}, Set: rs}, nil
}

// Search compiles and executes text, returning identifiers of type T.
//
// When the entity declares a fetch type other than the one T stands for, the
// result is empty rather than an error and the backend is not queried.
// QueryType always reports what the entity declares.
func Search[T Identifier](ctx context.Context, e *Engine, text string) (*SearchResult[T], error) {
	start := time.Now()
	nq, err := e.Compile(text)
	if err != nil {
		return nil, err
	}

	result := &SearchResult[T]{
		QueryType: QueryType{Entity: nq.Entity, FetchType: nq.FetchType},
		Results:   []T{},
	}
	expected := FetchTypeOf[T]()
	if nq.FetchType != expected {
		logger.LogWarning(fmt.Sprintf("entity %s returns %s identifiers but %s were requested, returning no results",
			nq.Entity, nq.FetchType, expected))
		return result, nil
	}

	rs, err := e.execute(ctx, text, nq)
	if err != nil {
		return nil, err
	}
	result.Results = identifiers[T](rs)
	logger.LogQuery(nq.Entity, text, len(result.Results), time.Since(start))
	return result, nil
}

// SearchUIDs runs text against an entity with numeric identifiers.
func (e *Engine) SearchUIDs(ctx context.Context, text string) ([]int64, error) {
	r, err := Search[int64](ctx, e, text)
	if err != nil {
		return nil, err
	}
	return r.Results, nil
}

// SearchGUIDs runs text against an entity with string identifiers.
func (e *Engine) SearchGUIDs(ctx context.Context, text string) ([]string, error) {
	r, err := Search[string](ctx, e, text)
	if err != nil {
		return nil, err
	}
	return r.Results, nil
}

// SearchCompoundGUIDs runs text against an entity with compound identifiers.
func (e *Engine) SearchCompoundGUIDs(ctx context.Context, text string) ([]native.CompoundGUID, error) {
	r, err := Search[native.CompoundGUID](ctx, e, text)
	if err != nil {
		return nil, err
	}
	return r.Results, nil
}

// FetchTypeOf returns the fetch type that identifier type T stands for.
func FetchTypeOf[T Identifier]() native.FetchType {
	var zero T
	switch any(zero).(type) {
	case int64:
		return native.FetchUID
	case native.CompoundGUID:
		return native.FetchCompoundGUID
	}
	return native.FetchGUID
}

func (e *Engine) execute(ctx context.Context, text string, nq *native.Query) (*native.ResultSet, error) {
	ex, ok := e.executors[nq.Backend]
	if !ok {
		return nil, &epqlerrors.QueryError{
			Phase:  epqlerrors.PhaseConfiguration,
			Entity: nq.Entity,
			Query:  text,
			Err: &epqlerrors.ConfigurationError{
				Entity: nq.Entity,
				Reason: fmt.Sprintf("no executor registered for backend %s", nq.Backend),
			},
		}
	}

	rs, err := ex.Execute(ctx, nq)
	if err != nil {
		logger.LogError("execute "+nq.Entity, err)
		return nil, &epqlerrors.QueryError{Phase: epqlerrors.PhaseExecution, Entity: nq.Entity, Query: text, Err: err}
	}
	if rs == nil {
		rs = native.NewResultSet(nq.FetchType)
	}
	if rs.FetchType != nq.FetchType {
		return nil, &epqlerrors.QueryError{
			Phase:  epqlerrors.PhaseExecution,
			Entity: nq.Entity,
			Query:  text,
			Err:    fmt.Errorf("executor returned %s identifiers for a %s query", rs.FetchType, nq.FetchType),
		}
	}
	return rs, nil
}

func identifiers[T Identifier](rs *native.ResultSet) []T {
	var out any
	switch rs.FetchType {
	case native.FetchUID:
		out = rs.UIDs
	case native.FetchCompoundGUID:
		out = rs.Compound
	default:
		out = rs.GUIDs
	}
	ids, ok := out.([]T)
	if !ok || ids == nil {
		return []T{}
	}
	return ids
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// wrap turns a compiler error into a QueryError tagged with the phase that
// produced it.
func wrap(text, entity string, err error) error {
	var qe *epqlerrors.QueryError
	if errors.As(err, &qe) {
		return err
	}

	phase := epqlerrors.PhaseBuild
	var (
		pe *epqlerrors.ParseError
		ce *epqlerrors.ConfigurationError
		re *epqlerrors.ResolutionError
		be *epqlerrors.BuildError
	)
	switch {
	case errors.As(err, &pe):
		phase = epqlerrors.PhaseParse
	case errors.As(err, &be):
		if be.Kind == epqlerrors.Resolution {
			phase = epqlerrors.PhaseResolution
		}
	case errors.As(err, &re):
		phase = epqlerrors.PhaseResolution
	case errors.As(err, &ce):
		phase = epqlerrors.PhaseConfiguration
	}
	return &epqlerrors.QueryError{Phase: phase, Entity: entity, Query: text, Err: err}
}
