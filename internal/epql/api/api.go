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

// Package api exposes the EPQL engine over HTTP.
//
// All query endpoints take a JSON body {"query": "<EPQL text>"}:
//
//	POST /query/search         identifiers of the entity's declared fetch type
//	POST /query/uids           numeric identifiers, empty for other entities
//	POST /query/guids          string identifiers, empty for other entities
//	POST /query/compound-guids compound identifiers, empty for other entities
//	POST /query/explain        the compiled native query, not executed
//	GET  /entities             the configured entities
//	GET  /entities/{name}      one entity, 404 when it is not configured
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/epcommerce/epql-go-components/internal/auth"
	"github.com/epcommerce/epql-go-components/internal/common/logger"
)

// QueryAPIServicer defines the actions behind the query endpoints.
type QueryAPIServicer interface {
	Search(context.Context, QueryRequest) (ImplResponse, error)
	SearchUIDs(context.Context, QueryRequest) (ImplResponse, error)
	SearchGUIDs(context.Context, QueryRequest) (ImplResponse, error)
	SearchCompoundGUIDs(context.Context, QueryRequest) (ImplResponse, error)
	Explain(context.Context, QueryRequest) (ImplResponse, error)
	GetEntities(context.Context) (ImplResponse, error)
	GetEntity(context.Context, string) (ImplResponse, error)
}

// QueryAPIController binds http requests to a QueryAPIServicer and writes
// the service results to the http response.
type QueryAPIController struct {
	service      QueryAPIServicer
	errorHandler ErrorHandler
}

// QueryAPIOption configures a QueryAPIController.
type QueryAPIOption func(*QueryAPIController)

// WithQueryAPIErrorHandler injects an ErrorHandler into the controller.
func WithQueryAPIErrorHandler(h ErrorHandler) QueryAPIOption {
	return func(c *QueryAPIController) {
		c.errorHandler = h
	}
}

// NewQueryAPIController creates a controller for s.
func NewQueryAPIController(s QueryAPIServicer, opts ...QueryAPIOption) *QueryAPIController {
	controller := &QueryAPIController{
		service:      s,
		errorHandler: DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(controller)
	}
	return controller
}

// Routes returns all the api routes for the QueryAPIController.
func (c *QueryAPIController) Routes() Routes {
	return Routes{
		"Search": Route{
			strings.ToUpper("Post"),
			"/query/search",
			c.Search,
		},
		"SearchUIDs": Route{
			strings.ToUpper("Post"),
			"/query/uids",
			c.SearchUIDs,
		},
		"SearchGUIDs": Route{
			strings.ToUpper("Post"),
			"/query/guids",
			c.SearchGUIDs,
		},
		"SearchCompoundGUIDs": Route{
			strings.ToUpper("Post"),
			"/query/compound-guids",
			c.SearchCompoundGUIDs,
		},
		"Explain": Route{
			strings.ToUpper("Post"),
			"/query/explain",
			c.Explain,
		},
		"GetEntities": Route{
			strings.ToUpper("Get"),
			"/entities",
			c.GetEntities,
		},
		"GetEntity": Route{
			strings.ToUpper("Get"),
			"/entities/{name}",
			c.GetEntity,
		},
	}
}

// Search - runs an EPQL query and returns the entity's identifiers
func (c *QueryAPIController) Search(w http.ResponseWriter, r *http.Request) {
	c.handleQuery(w, r, c.service.Search)
}

// SearchUIDs - runs an EPQL query expecting numeric identifiers
func (c *QueryAPIController) SearchUIDs(w http.ResponseWriter, r *http.Request) {
	c.handleQuery(w, r, c.service.SearchUIDs)
}

// SearchGUIDs - runs an EPQL query expecting string identifiers
func (c *QueryAPIController) SearchGUIDs(w http.ResponseWriter, r *http.Request) {
	c.handleQuery(w, r, c.service.SearchGUIDs)
}

// SearchCompoundGUIDs - runs an EPQL query expecting compound identifiers
func (c *QueryAPIController) SearchCompoundGUIDs(w http.ResponseWriter, r *http.Request) {
	c.handleQuery(w, r, c.service.SearchCompoundGUIDs)
}

// Explain - compiles an EPQL query and returns the native query
func (c *QueryAPIController) Explain(w http.ResponseWriter, r *http.Request) {
	c.handleQuery(w, r, c.service.Explain)
}

// GetEntities - lists the configured entities
func (c *QueryAPIController) GetEntities(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.GetEntities(r.Context())
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetEntity - describes one configured entity
func (c *QueryAPIController) GetEntity(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.GetEntity(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

func (c *QueryAPIController) handleQuery(w http.ResponseWriter, r *http.Request, op func(context.Context, QueryRequest) (ImplResponse, error)) {
	req, err := decodeQueryRequest(w, r)
	if err != nil {
		c.errorHandler(w, r, err, nil)
		return
	}
	if sub := auth.Subject(r.Context()); sub != "" {
		logger.LogDebug(fmt.Sprintf("query from %s: %s", sub, req.Query))
	}
	result, err := op(r.Context(), req)
	// If an error occurred, encode the error with the status code
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	// If no error, encode the body and the result code
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}
