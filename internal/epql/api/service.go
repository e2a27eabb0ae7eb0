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

package api

import (
	"context"
	"net/http"

	"github.com/epcommerce/epql-go-components/internal/common"
	"github.com/epcommerce/epql-go-components/internal/epql/configuration"
	"github.com/epcommerce/epql-go-components/internal/epql/engine"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// QueryAPIService implements QueryAPIServicer on top of an engine.
type QueryAPIService struct {
	engine *engine.Engine
}

// NewQueryAPIService creates a service backed by e.
func NewQueryAPIService(e *engine.Engine) *QueryAPIService {
	return &QueryAPIService{engine: e}
}

// SearchResponse is the body of /query/search.
type SearchResponse struct {
	QueryType engine.QueryType `json:"queryType"`
	Results   any              `json:"results"`
}

// EntityDescription is one element of the /entities body.
type EntityDescription struct {
	Name      string           `json:"name"`
	Backend   native.Backend   `json:"backend"`
	FetchType native.FetchType `json:"fetchType"`
	Fields    []string         `json:"fields"`
}

func (s *QueryAPIService) Search(ctx context.Context, req QueryRequest) (ImplResponse, error) {
	r, err := s.engine.Run(ctx, req.Query)
	if err != nil {
		return Response(http.StatusInternalServerError, nil), err
	}
	return Response(http.StatusOK, SearchResponse{QueryType: r.QueryType, Results: r.Identifiers()}), nil
}

func (s *QueryAPIService) SearchUIDs(ctx context.Context, req QueryRequest) (ImplResponse, error) {
	return search[int64](ctx, s.engine, req)
}

func (s *QueryAPIService) SearchGUIDs(ctx context.Context, req QueryRequest) (ImplResponse, error) {
	return search[string](ctx, s.engine, req)
}

func (s *QueryAPIService) SearchCompoundGUIDs(ctx context.Context, req QueryRequest) (ImplResponse, error) {
	return search[native.CompoundGUID](ctx, s.engine, req)
}

func (s *QueryAPIService) Explain(_ context.Context, req QueryRequest) (ImplResponse, error) {
	explained, err := s.engine.Explain(req.Query)
	if err != nil {
		return Response(http.StatusInternalServerError, nil), err
	}
	return Response(http.StatusOK, explained), nil
}

func (s *QueryAPIService) GetEntities(_ context.Context) (ImplResponse, error) {
	reg := s.engine.Registry()
	out := make([]EntityDescription, 0, len(reg.Entities()))
	for _, name := range reg.Entities() {
		cfg, _ := reg.ConfigurationFor(name)
		out = append(out, describe(cfg))
	}
	return Response(http.StatusOK, out), nil
}

func (s *QueryAPIService) GetEntity(_ context.Context, name string) (ImplResponse, error) {
	cfg, ok := s.engine.Registry().ConfigurationFor(name)
	if !ok {
		return Response(http.StatusNotFound, nil), common.NewErrNotFound("entity " + name)
	}
	return Response(http.StatusOK, describe(cfg)), nil
}

func describe(cfg *configuration.EntityConfiguration) EntityDescription {
	fields := make([]string, 0, len(cfg.Fields()))
	for _, d := range cfg.Fields() {
		fields = append(fields, d.Name)
	}
	return EntityDescription{
		Name:      cfg.Name(),
		Backend:   cfg.Backend(),
		FetchType: cfg.FetchType(),
		Fields:    fields,
	}
}

func search[T engine.Identifier](ctx context.Context, e *engine.Engine, req QueryRequest) (ImplResponse, error) {
	r, err := engine.Search[T](ctx, e, req.Query)
	if err != nil {
		return Response(http.StatusInternalServerError, nil), err
	}
	return Response(http.StatusOK, r), nil
}
