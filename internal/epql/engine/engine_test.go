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

package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epcommerce/epql-go-components/internal/common/logger"
	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/document"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/relational"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/search"
	"github.com/epcommerce/epql-go-components/internal/epql/configuration"
	"github.com/epcommerce/epql-go-components/internal/epql/entities"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/field"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
	"github.com/epcommerce/epql-go-components/internal/epql/querybuilder"
)

// fakeExecutor returns a canned result set and records the queries it ran.
type fakeExecutor struct {
	backend native.Backend
	result  *native.ResultSet
	err     error
	ran     []*native.Query
}

func (f *fakeExecutor) Backend() native.Backend { return f.backend }

func (f *fakeExecutor) Execute(_ context.Context, q *native.Query) (*native.ResultSet, error) {
	f.ran = append(f.ran, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newBuilder() *querybuilder.Builder {
	return querybuilder.New(0, relational.NewDialect(), search.NewDialect(search.MatchAllExcept), document.NewDialect())
}

func defaultEngine(t *testing.T, executors ...native.Executor) *Engine {
	t.Helper()
	reg, err := entities.DefaultRegistry()
	require.NoError(t, err)
	return New(reg, newBuilder(), executors...)
}

func TestCompileCatalogByCode(t *testing.T) {
	cfg, err := configuration.NewEntity("Catalog", native.BackendRelational, native.Root{
		Source: "Catalog",
		Alias:  "c",
		Select: []string{"c.code"},
	}).
		ConfigureField("CatalogCode", "c.code", field.NonLocalized, field.TypeString, nil).
		AddSortField("c.code", ast.Asc).
		Build()
	require.NoError(t, err)
	reg, err := configuration.NewRegistry(cfg)
	require.NoError(t, err)
	e := New(reg, newBuilder())

	nq, err := e.Compile("Select Catalog WHERE CatalogCode='SNAPITUP'")
	require.NoError(t, err)
	assert.Equal(t, []native.Sort{{Expression: "c.code", Order: ast.Asc}}, nq.Sorts)

	explained, err := e.Explain("Select Catalog WHERE CatalogCode='SNAPITUP'")
	require.NoError(t, err)
	assert.Equal(t, native.BackendRelational, explained.Backend)
	assert.Equal(t, QueryType{Entity: "Catalog", FetchType: native.FetchGUID}, explained.QueryType)
	assert.Contains(t, explained.Native, `SELECT "c"."code" FROM "Catalog" AS "c"`)
	assert.Contains(t, explained.Native, `"c"."code" = 'SNAPITUP'`)
	assert.Contains(t, explained.Native, `ORDER BY "c"."code" ASC`)
	assert.Equal(t, "FIND Catalog WHERE CatalogCode = 'SNAPITUP'", explained.EPQL)
}

func TestCompileSelectAll(t *testing.T) {
	e := defaultEngine(t)

	nq, err := e.Compile("FIND CmUser")
	require.NoError(t, err)
	assert.Nil(t, nq.Where)
	assert.Equal(t, native.FetchGUID, nq.FetchType)
	assert.Equal(t, []native.Sort{{Expression: "cm.guid", Order: ast.Asc}}, nq.Sorts)

	explained, err := e.Explain("FIND CmUser")
	require.NoError(t, err)
	assert.NotContains(t, explained.Native, "WHERE")
}

func TestCompileLocalizedFieldWithoutLocale(t *testing.T) {
	e := defaultEngine(t)

	_, err := e.Compile("Select Category WHERE CategoryName='Shoes'")
	require.Error(t, err)

	var re *epqlerrors.ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, epqlerrors.MissingParameter, re.Kind)
	assert.Equal(t, "locale", re.Parameter)

	var qe *epqlerrors.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, epqlerrors.PhaseResolution, qe.Phase)
	assert.Equal(t, "Category", qe.Entity)
	assert.True(t, epqlerrors.IsClientError(err))
}

func TestExplainSortOnLocalizedCategoryName(t *testing.T) {
	e := defaultEngine(t)

	explained, err := e.Explain("FIND Category ORDER BY CategoryName[en]")
	require.NoError(t, err)
	assert.Contains(t, explained.Native, `ORDER BY (SELECT MIN("tcategoryldf"."display_name") FROM "tcategoryldf" WHERE`)
	assert.Contains(t, explained.Native, `"tcategoryldf"."category_uid" = "cat"."uidpk"`)
	assert.Contains(t, explained.Native, `"tcategoryldf"."locale" = 'en'`)
	assert.NotContains(t, explained.Native, `ORDER BY "tcategoryldf"."display_name"`)
}

func TestExplainKeepsLargeIntegersExact(t *testing.T) {
	e := defaultEngine(t)

	explained, err := e.Explain("FIND Store WHERE StoreState = 9007199254740993")
	require.NoError(t, err)
	assert.Contains(t, explained.Native, `"s"."store_state" = 9007199254740993`)
}

func TestCompileErrors(t *testing.T) {
	e := defaultEngine(t)

	tests := []struct {
		name  string
		query string
		phase epqlerrors.Phase
		code  string
	}{
		{"unknown field", "FIND Catalog WHERE ProductCode = 'X'", epqlerrors.PhaseBuild, "EPQL-BUILD-UNKNOWNFIELD"},
		{"unknown entity", "FIND Warehouse", epqlerrors.PhaseBuild, "EPQL-BUILD-UNKNOWNENTITY"},
		{"syntax", "FIND Catalog WHERE", epqlerrors.PhaseParse, "EPQL-PARSE-SYNTAX"},
		{"type mismatch", "FIND Catalog WHERE Master LIKE 'x*'", epqlerrors.PhaseBuild, "EPQL-BUILD-TYPEMISMATCH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Compile(tt.query)
			require.Error(t, err)
			var qe *epqlerrors.QueryError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, tt.phase, qe.Phase)
			assert.Equal(t, tt.query, qe.Query)
			assert.Equal(t, tt.code, epqlerrors.CodeOf(err))
		})
	}

	_, err := e.Compile("FIND Catalog WHERE ProductCode = 'X'")
	var be *epqlerrors.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, epqlerrors.UnknownField, be.Kind)
	assert.Equal(t, "ProductCode", be.Field)
}

func TestSearchGUIDs(t *testing.T) {
	ex := &fakeExecutor{backend: native.BackendRelational, result: &native.ResultSet{
		FetchType: native.FetchGUID,
		GUIDs:     []string{"G-1", "G-2"},
	}}
	e := defaultEngine(t, ex)

	guids, err := e.SearchGUIDs(context.Background(), "FIND Catalog WHERE CatalogCode = 'SNAPITUP'")
	require.NoError(t, err)
	assert.Equal(t, []string{"G-1", "G-2"}, guids)
	require.Len(t, ex.ran, 1)
	assert.Equal(t, "Catalog", ex.ran[0].Entity)
}

func TestSearchUIDs(t *testing.T) {
	ex := &fakeExecutor{backend: native.BackendRelational, result: &native.ResultSet{
		FetchType: native.FetchUID,
		UIDs:      []int64{42},
	}}
	e := defaultEngine(t, ex)

	uids, err := e.SearchUIDs(context.Background(), "FIND TaxCode WHERE TaxCode = 'GOODS'")
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, uids)
}

func TestSearchCompoundGUIDs(t *testing.T) {
	ex := &fakeExecutor{backend: native.BackendSearch, result: &native.ResultSet{
		FetchType: native.FetchCompoundGUID,
		Compound:  []native.CompoundGUID{native.NewCompoundGUID("P1", "S1")},
	}}
	e := defaultEngine(t, ex)

	r, err := Search[native.CompoundGUID](context.Background(), e, "FIND ProductSku")
	require.NoError(t, err)
	assert.Equal(t, QueryType{Entity: "ProductSku", FetchType: native.FetchCompoundGUID}, r.QueryType)
	assert.Equal(t, []native.CompoundGUID{native.NewCompoundGUID("P1", "S1")}, r.Results)
}

func TestSearchFetchTypeMismatchReturnsEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	ex := &fakeExecutor{backend: native.BackendRelational, result: &native.ResultSet{FetchType: native.FetchGUID, GUIDs: []string{"G"}}}
	e := defaultEngine(t, ex)

	uids, err := e.SearchUIDs(context.Background(), "FIND Catalog")
	require.NoError(t, err)
	assert.Empty(t, uids)
	assert.NotNil(t, uids)
	assert.Empty(t, ex.ran, "backend must not be queried")
	assert.Contains(t, buf.String(), "WARN")

	r, err := Search[native.CompoundGUID](context.Background(), e, "FIND Catalog")
	require.NoError(t, err)
	assert.Equal(t, native.FetchGUID, r.QueryType.FetchType)
	assert.Empty(t, r.Results)
}

func TestSearchWithoutExecutor(t *testing.T) {
	e := defaultEngine(t)

	_, err := e.SearchGUIDs(context.Background(), "FIND Shopper")
	var qe *epqlerrors.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, epqlerrors.PhaseConfiguration, qe.Phase)
	var ce *epqlerrors.ConfigurationError
	assert.True(t, errors.As(err, &ce))
	assert.False(t, epqlerrors.IsClientError(err))
}

func TestSearchExecutionFailure(t *testing.T) {
	ex := &fakeExecutor{backend: native.BackendRelational, err: errors.New("connection refused")}
	e := defaultEngine(t, ex)

	_, err := e.SearchGUIDs(context.Background(), "FIND Catalog")
	var qe *epqlerrors.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, epqlerrors.PhaseExecution, qe.Phase)
	assert.Equal(t, "EPQL-QUERY-EXECUTION", epqlerrors.CodeOf(err))
}

func TestSearchRejectsWrongResultShape(t *testing.T) {
	ex := &fakeExecutor{backend: native.BackendRelational, result: &native.ResultSet{FetchType: native.FetchUID, UIDs: []int64{1}}}
	e := defaultEngine(t, ex)

	_, err := e.SearchGUIDs(context.Background(), "FIND Catalog")
	var qe *epqlerrors.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, epqlerrors.PhaseExecution, qe.Phase)
}

func TestRunUsesDeclaredFetchType(t *testing.T) {
	ex := &fakeExecutor{backend: native.BackendRelational, result: &native.ResultSet{FetchType: native.FetchUID, UIDs: []int64{3, 4}}}
	e := defaultEngine(t, ex)

	r, err := e.Run(context.Background(), "FIND TaxCode")
	require.NoError(t, err)
	assert.Equal(t, QueryType{Entity: "TaxCode", FetchType: native.FetchUID}, r.QueryType)
	assert.Equal(t, []int64{3, 4}, r.Identifiers())

	ex.result = nil
	r, err = e.Run(context.Background(), "FIND TaxCode")
	require.NoError(t, err)
	assert.Equal(t, []int64{}, r.Identifiers())
}

func TestSearchAgainstRelationalExecutor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "c"."guid" FROM "tcatalog" AS "c"`) + `.*` + regexp.QuoteMeta(`ORDER BY "c"."code" ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"guid"}).AddRow("CAT-1"))

	e := defaultEngine(t, relational.NewExecutor(db))
	guids, err := e.SearchGUIDs(context.Background(), "Select Catalog WHERE CatalogCode='SNAPITUP'")
	require.NoError(t, err)
	assert.Equal(t, []string{"CAT-1"}, guids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchTypeOf(t *testing.T) {
	assert.Equal(t, native.FetchUID, FetchTypeOf[int64]())
	assert.Equal(t, native.FetchGUID, FetchTypeOf[string]())
	assert.Equal(t, native.FetchCompoundGUID, FetchTypeOf[native.CompoundGUID]())
}
