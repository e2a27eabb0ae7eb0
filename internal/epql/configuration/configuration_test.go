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

package configuration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/field"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

type stubBuilder struct{ backend native.Backend }

func (s stubBuilder) Backend() native.Backend { return s.backend }
func (s stubBuilder) Build(native.ResolvedTerm) (native.Clause, error) {
	return native.MatchAll{For: s.backend}, nil
}

func catalogRoot() native.Root {
	return native.Root{Source: "catalog", Alias: "c", Select: []string{"c.code"}}
}

func TestBuilderDefaults(t *testing.T) {
	cfg, err := NewEntity("Catalog", native.BackendRelational, catalogRoot()).
		ConfigureField("CatalogCode", "c.code", field.NonLocalized, field.TypeString, nil).
		AddSortField("c.code", ast.Asc).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "Catalog", cfg.Name())
	assert.Equal(t, native.FetchGUID, cfg.FetchType())
	d, ok := cfg.Field("CatalogCode")
	require.True(t, ok)
	assert.Equal(t, "c.code", d.Expression)
	_, ok = cfg.Field("catalogcode")
	assert.False(t, ok, "field names are case-sensitive")
}

func TestSortFieldsKeepRegistrationOrder(t *testing.T) {
	cfg := NewEntity("Product", native.BackendSearch, native.Root{Source: "product", Select: []string{"_id"}}).
		AddSortField("b", ast.Desc).
		AddSortField("a", ast.Asc).
		AddSortField("c", ast.Asc).
		MustBuild()

	assert.Equal(t, []SortField{{"b", ast.Desc}, {"a", ast.Asc}, {"c", ast.Asc}}, cfg.SortFields())

	// callers cannot mutate the configuration through the returned slice
	sorts := cfg.SortFields()
	sorts[0].Expression = "changed"
	assert.Equal(t, "b", cfg.SortFields()[0].Expression)
}

func TestDuplicateFieldIsConfigurationError(t *testing.T) {
	_, err := NewEntity("Catalog", native.BackendRelational, catalogRoot()).
		ConfigureField("CatalogCode", "c.code", field.NonLocalized, field.TypeString, nil).
		ConfigureField("CatalogCode", "c.other", field.NonLocalized, field.TypeString, nil).
		Build()

	var ce *epqlerrors.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "CatalogCode", ce.Field)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		want    string
	}{
		{
			name:    "missing source",
			builder: NewEntity("X", native.BackendRelational, native.Root{Select: []string{"x.guid"}}),
			want:    "query root source",
		},
		{
			name:    "uid selects one column",
			builder: NewEntity("X", native.BackendRelational, native.Root{Source: "x", Select: []string{"a", "b"}}).SetFetchType(native.FetchUID),
			want:    "exactly one field",
		},
		{
			name:    "compound selects several columns",
			builder: NewEntity("X", native.BackendRelational, native.Root{Source: "x", Select: []string{"a"}}).SetFetchType(native.FetchCompoundGUID),
			want:    "at least two fields",
		},
		{
			name:    "joins only relational",
			builder: NewEntity("X", native.BackendSearch, native.Root{Source: "x", Select: []string{"_id"}, Joins: []native.Join{{Table: "y"}}}),
			want:    "joins are only supported",
		},
		{
			name: "override must match backend",
			builder: NewEntity("X", native.BackendRelational, native.Root{Source: "x", Select: []string{"x.guid"}}).
				ConfigureField("F", "x.f", field.NonLocalized, field.TypeString, stubBuilder{backend: native.BackendSearch}),
			want: "cannot serve",
		},
		{
			name: "empty expression",
			builder: NewEntity("X", native.BackendRelational, native.Root{Source: "x", Select: []string{"x.guid"}}).
				ConfigureField("F", " ", field.NonLocalized, field.TypeString, nil),
			want: "backend expression",
		},
		{
			name:    "unknown backend",
			builder: NewEntity("X", native.Backend("solr"), native.Root{Source: "x", Select: []string{"guid"}}),
			want:    "unknown backend",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRegistry(t *testing.T) {
	catalog := NewEntity("Catalog", native.BackendRelational, catalogRoot()).MustBuild()
	users := NewEntity("CmUser", native.BackendDocument, native.Root{Source: "cmusers", Select: []string{"guid"}}).MustBuild()

	reg, err := NewRegistry(catalog, users)
	require.NoError(t, err)

	got, ok := reg.ConfigurationFor("catalog")
	require.True(t, ok)
	assert.Same(t, catalog, got)
	_, ok = reg.ConfigurationFor("Store")
	assert.False(t, ok)

	assert.Equal(t, []string{"Catalog", "CmUser"}, reg.Entities())
	assert.Equal(t, []native.Backend{native.BackendDocument, native.BackendRelational}, reg.Backends())

	_, err = NewRegistry(catalog, NewEntity("CATALOG", native.BackendRelational, catalogRoot()).MustBuild())
	var ce *epqlerrors.ConfigurationError
	require.True(t, errors.As(err, &ce))
}
