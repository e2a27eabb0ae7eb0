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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epcommerce/epql-go-components/internal/common"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/document"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/relational"
	searchbackend "github.com/epcommerce/epql-go-components/internal/epql/backend/search"
	"github.com/epcommerce/epql-go-components/internal/epql/engine"
	"github.com/epcommerce/epql-go-components/internal/epql/entities"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
	"github.com/epcommerce/epql-go-components/internal/epql/querybuilder"
)

type stubExecutor struct {
	backend native.Backend
	result  *native.ResultSet
	err     error
}

func (s stubExecutor) Backend() native.Backend { return s.backend }

func (s stubExecutor) Execute(context.Context, *native.Query) (*native.ResultSet, error) {
	return s.result, s.err
}

func newServer(t *testing.T, executors ...native.Executor) *httptest.Server {
	t.Helper()
	reg, err := entities.DefaultRegistry()
	require.NoError(t, err)
	builder := querybuilder.New(0, relational.NewDialect(), searchbackend.NewDialect(searchbackend.MatchAllExcept), document.NewDialect())
	e := engine.New(reg, builder, executors...)

	r := chi.NewRouter()
	Register(r, NewQueryAPIController(NewQueryAPIService(e)), NewDocumentationController("/"))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.CorrelationHeader, "corr-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestSearchGUIDsEndpoint(t *testing.T) {
	srv := newServer(t, stubExecutor{backend: native.BackendRelational, result: &native.ResultSet{
		FetchType: native.FetchGUID,
		GUIDs:     []string{"CAT-1"},
	}})

	resp, body := post(t, srv, "/query/guids", `{"query":"Select Catalog WHERE CatalogCode='SNAPITUP'"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"entity": "Catalog", "fetchType": "GUID"}, body["queryType"])
	assert.Equal(t, []any{"CAT-1"}, body["results"])
}

func TestSearchEndpointUsesDeclaredFetchType(t *testing.T) {
	srv := newServer(t, stubExecutor{backend: native.BackendRelational, result: &native.ResultSet{
		FetchType: native.FetchUID,
		UIDs:      []int64{3, 4},
	}})

	resp, body := post(t, srv, "/query/search", `{"query":"FIND TaxCode"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "UID", body["queryType"].(map[string]any)["fetchType"])
	assert.Equal(t, []any{float64(3), float64(4)}, body["results"])
}

func TestSearchEndpointFetchTypeMismatch(t *testing.T) {
	srv := newServer(t, stubExecutor{backend: native.BackendRelational, result: &native.ResultSet{
		FetchType: native.FetchGUID,
		GUIDs:     []string{"CAT-1"},
	}})

	resp, body := post(t, srv, "/query/uids", `{"query":"FIND Catalog"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, body["results"])
	assert.Equal(t, "GUID", body["queryType"].(map[string]any)["fetchType"])
}

func TestCompoundGUIDsEndpoint(t *testing.T) {
	srv := newServer(t, stubExecutor{backend: native.BackendSearch, result: &native.ResultSet{
		FetchType: native.FetchCompoundGUID,
		Compound:  []native.CompoundGUID{native.NewCompoundGUID("P1", "S1")},
	}})

	resp, body := post(t, srv, "/query/compound-guids", `{"query":"FIND ProductSku"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{[]any{"P1", "S1"}}, body["results"])
}

func TestExplainEndpoint(t *testing.T) {
	srv := newServer(t)

	resp, body := post(t, srv, "/query/explain", `{"query":"FIND CmUser"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "relational", body["backend"])
	assert.Equal(t, "FIND CmUser", body["epql"])
	assert.Contains(t, body["native"], `ORDER BY "cm"."guid" ASC`)
}

func TestQueryEndpointErrors(t *testing.T) {
	srv := newServer(t, stubExecutor{backend: native.BackendRelational, err: errors.New("connection refused")})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed body", `{"query":`, http.StatusBadRequest, "EPQL-REQUEST-INVALID"},
		{"empty query", `{"query":""}`, http.StatusBadRequest, "EPQL-REQUEST-INVALID"},
		{"unknown property", `{"epql":"FIND Catalog"}`, http.StatusBadRequest, "EPQL-REQUEST-INVALID"},
		{"syntax error", `{"query":"FIND"}`, http.StatusBadRequest, "EPQL-PARSE-SYNTAX"},
		{"unknown field", `{"query":"FIND Catalog WHERE Colour = 'red'"}`, http.StatusBadRequest, "EPQL-BUILD-UNKNOWNFIELD"},
		{"unknown entity", `{"query":"FIND Warehouse"}`, http.StatusBadRequest, "EPQL-BUILD-UNKNOWNENTITY"},
		{"missing locale", `{"query":"FIND Category WHERE CategoryName = 'Shoes'"}`, http.StatusBadRequest, "EPQL-RESOLVE-MISSINGPARAM"},
		{"backend failure", `{"query":"FIND Catalog"}`, http.StatusInternalServerError, "EPQL-QUERY-EXECUTION"},
		{"body too large", `{"query":"FIND Catalog WHERE CatalogCode = '` + strings.Repeat("x", maxQueryBody) + `'"}`, http.StatusRequestEntityTooLarge, "EPQL-REQUEST-TOOLARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, "/query/guids", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, "corr-1", body["correlationId"])
			assert.Equal(t, "corr-1", resp.Header.Get(common.CorrelationHeader))
			assert.NotEmpty(t, body["timestamp"])
		})
	}
}

func TestGetEntities(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/entities")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []EntityDescription
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	names := make([]string, 0, len(out))
	for _, d := range out {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "Catalog")
	assert.Contains(t, names, "ProductSku")
}

func TestGetEntity(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/entities/taxcode")
	require.NoError(t, err)
	var entity EntityDescription
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entity))
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "TaxCode", entity.Name)
	assert.Equal(t, native.FetchUID, entity.FetchType)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/entities/Warehouse", nil)
	require.NoError(t, err)
	req.Header.Set(common.CorrelationHeader, "corr-2")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "EPQL-REQUEST-NOTFOUND", body["code"])
	assert.Equal(t, "corr-2", body["correlationId"])
}

func TestDocumentationRoutes(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/openapi.yaml")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "openapi: 3.0.3")
	assert.Contains(t, string(body), "/query/compound-guids")

	resp, err = http.Get(srv.URL + "/swagger/index.html")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "swagger-ui")
}

func TestDocumentationURLFollowsBasePath(t *testing.T) {
	assert.Equal(t, "/openapi.yaml", NewDocumentationController("/").documentURL)
	assert.Equal(t, "/epql/openapi.yaml", NewDocumentationController("/epql").documentURL)
}
