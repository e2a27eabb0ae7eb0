//go:build integration

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

package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epcommerce/epql-go-components/internal/common/testenv"
)

type searchResponse struct {
	QueryType struct {
		Entity    string `json:"entity"`
		FetchType string `json:"fetchType"`
	} `json:"queryType"`
	Results []json.RawMessage `json:"results"`
}

func search(t *testing.T, endpoint, query string) searchResponse {
	t.Helper()
	data := testenv.PostJSONExpect(t, baseURL+endpoint, map[string]string{"query": query}, http.StatusOK)
	var out searchResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func guids(t *testing.T, r searchResponse) []string {
	t.Helper()
	out := make([]string, 0, len(r.Results))
	for _, raw := range r.Results {
		var s string
		require.NoError(t, json.Unmarshal(raw, &s))
		out = append(out, s)
	}
	return out
}

func TestCatalogGUIDs(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"by code", "Select Catalog WHERE CatalogCode='SNAPITUP'", []string{"CAT-SNAP"}},
		{"or", "FIND Catalog WHERE CatalogCode = 'MOBEE' OR CatalogCode = 'OUTLET'", []string{"CAT-MOBEE", "CAT-OUTLET"}},
		{"not", "FIND Catalog WHERE NOT CatalogCode = 'SNAPITUP'", []string{"CAT-MOBEE", "CAT-OUTLET"}},
		{"like", "FIND Catalog WHERE CatalogCode LIKE 'MO*'", []string{"CAT-MOBEE"}},
		{"order and limit", "FIND Catalog ORDER BY CatalogCode DESC LIMIT 2", []string{"CAT-SNAP", "CAT-OUTLET"}},
		{"no match", "FIND Catalog WHERE CatalogCode = 'MISSING'", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := search(t, "/query/guids", tt.query)
			assert.Equal(t, "Catalog", r.QueryType.Entity)
			assert.Equal(t, "GUID", r.QueryType.FetchType)
			assert.Equal(t, tt.want, guids(t, r))
		})
	}
}

func TestLocalizedCategoryName(t *testing.T) {
	r := search(t, "/query/guids", "FIND Category WHERE CategoryName[en] = 'Shoes' AND CatalogCode = 'SNAPITUP'")
	assert.Equal(t, []string{"CATEGORY-SHOES"}, guids(t, r))

	r = search(t, "/query/guids", "FIND Category WHERE CategoryName[de] = 'Shoes'")
	assert.Empty(t, r.Results)
}

func TestTaxCodeUIDs(t *testing.T) {
	r := search(t, "/query/uids", "FIND TaxCode WHERE TaxCode = 'NONE' OR TaxCode = 'GOODS'")
	require.Len(t, r.Results, 2)
	assert.JSONEq(t, "100", string(r.Results[0]))
	assert.JSONEq(t, "102", string(r.Results[1]))

	// TaxCode declares UIDs, so a GUID search yields nothing.
	r = search(t, "/query/guids", "FIND TaxCode")
	assert.Equal(t, "UID", r.QueryType.FetchType)
	assert.Empty(t, r.Results)
}

func TestQueryErrors(t *testing.T) {
	data, status, err := testenv.PostJSONRaw(baseURL+"/query/guids", map[string]string{"query": "FIND Category WHERE CategoryName = 'Shoes'"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "EPQL-RESOLVE-MISSINGPARAM", body["code"])
}

func TestEntitiesAndDocumentation(t *testing.T) {
	data := testenv.GetExpect(t, baseURL+"/entities", http.StatusOK)
	assert.Contains(t, string(data), "ProductSku")

	data = testenv.GetExpect(t, baseURL+"/openapi.yaml", http.StatusOK)
	assert.Contains(t, string(data), "openapi: 3.0.3")
}
