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

package querybuilder

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/configuration"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/field"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
	"github.com/epcommerce/epql-go-components/internal/epql/parser"
)

// textClause renders clauses as plain strings so tests can compare shapes.
type textClause string

func (textClause) Backend() native.Backend { return native.BackendRelational }

type textDialect struct{}

func (textDialect) Backend() native.Backend { return native.BackendRelational }

func (textDialect) Build(t native.ResolvedTerm) (native.Clause, error) {
	if t.IsRange() {
		switch {
		case t.Lower == nil && t.Upper == nil:
			return native.MatchAll{For: native.BackendRelational}, nil
		case t.Lower == nil:
			return textClause(fmt.Sprintf("%s <= %v", t.Field.Expression, t.Upper)), nil
		case t.Upper == nil:
			return textClause(fmt.Sprintf("%s >= %v", t.Field.Expression, t.Lower)), nil
		}
		return textClause(fmt.Sprintf("%s >= %v AND %s <= %v", t.Field.Expression, t.Lower, t.Field.Expression, t.Upper)), nil
	}
	return textClause(fmt.Sprintf("%s %s %v", t.Field.Expression, t.Operator, t.Value)), nil
}

func (textDialect) And(l, r native.Clause) (native.Clause, error) {
	return textClause(fmt.Sprintf("(%s AND %s)", l, r)), nil
}

func (textDialect) Or(l, r native.Clause) (native.Clause, error) {
	return textClause(fmt.Sprintf("(%s OR %s)", l, r)), nil
}

func (textDialect) Not(c native.Clause) (native.Clause, error) {
	if native.IsMatchAll(c) {
		return textClause("FALSE"), nil
	}
	return textClause(fmt.Sprintf("NOT (%s)", c)), nil
}

func (textDialect) Render(q *native.Query) (string, error) {
	if q.Where == nil {
		return "", nil
	}
	return fmt.Sprint(q.Where), nil
}

// failingBuilder rejects every term.
type failingBuilder struct{}

func (failingBuilder) Backend() native.Backend { return native.BackendRelational }
func (failingBuilder) Build(native.ResolvedTerm) (native.Clause, error) {
	return nil, errors.New("operator not supported here")
}

// nilBuilder produces no clause.
type nilBuilder struct{}

func (nilBuilder) Backend() native.Backend { return native.BackendRelational }
func (nilBuilder) Build(native.ResolvedTerm) (native.Clause, error) { return nil, nil }

func catalogConfig(t *testing.T) *configuration.EntityConfiguration {
	t.Helper()
	cfg, err := configuration.NewEntity("Catalog", native.BackendRelational, native.Root{
		Source: "catalog",
		Alias:  "c",
		Select: []string{"c.guid"},
	}).
		ConfigureField("CatalogCode", "c.code", field.NonLocalized, field.TypeString, nil).
		ConfigureField("CatalogName", "c.name_{locale}", field.Localized, field.TypeString, nil).
		ConfigureField("Price", "c.price_{currency}", field.Localized, field.TypeNumber, nil).
		ConfigureField("Master", "c.master", field.NonLocalized, field.TypeBoolean, nil).
		ConfigureField("Created", "c.created", field.NonLocalized, field.TypeDate, nil).
		ConfigureField("Broken", "c.broken", field.NonLocalized, field.TypeString, failingBuilder{}).
		ConfigureField("Hollow", "c.hollow", field.NonLocalized, field.TypeString, nilBuilder{}).
		AddSortField("c.code", ast.Asc).
		Build()
	require.NoError(t, err)
	return cfg
}

func compile(t *testing.T, text string) (*native.Query, error) {
	t.Helper()
	q, err := parser.Parse(text)
	require.NoError(t, err)
	return New(100, textDialect{}).Build(q, catalogConfig(t))
}

func TestBuildSingleEquality(t *testing.T) {
	nq, err := compile(t, "Select Catalog WHERE CatalogCode='SNAPITUP'")
	require.NoError(t, err)

	assert.Equal(t, "Catalog", nq.Entity)
	assert.Equal(t, native.BackendRelational, nq.Backend)
	assert.Equal(t, "catalog", nq.Root.Source)
	assert.Equal(t, textClause("c.code = SNAPITUP"), nq.Where)
	assert.Equal(t, []native.Sort{{Expression: "c.code", Order: ast.Asc}}, nq.Sorts)
	assert.Equal(t, 100, nq.Limit)
	assert.Equal(t, native.FetchGUID, nq.FetchType)
}

func TestBuildFollowsTreeShape(t *testing.T) {
	nq, err := compile(t, "FIND Catalog WHERE CatalogCode = 'A' OR CatalogCode = 'B' AND Master = TRUE")
	require.NoError(t, err)
	assert.Equal(t, textClause("(c.code = A OR (c.code = B AND c.master = true))"), nq.Where)
}

func TestBuildResolvesLocalizedFields(t *testing.T) {
	nq, err := compile(t, "FIND Catalog WHERE CatalogName[en] LIKE 'Sho*' AND Price[de][EUR] > 10")
	require.NoError(t, err)
	assert.Equal(t, textClause("(c.name_en LIKE Sho* AND c.price_EUR > 10)"), nq.Where)
}

func TestBuildSelectAll(t *testing.T) {
	nq, err := compile(t, "FIND Catalog")
	require.NoError(t, err)
	assert.Nil(t, nq.Where)

	nq, err = compile(t, "FIND Catalog WHERE Created BETWEEN (*, *)")
	require.NoError(t, err)
	assert.Nil(t, nq.Where, "an unbounded range collapses to select-all")
}

func TestBuildFoldsMatchAll(t *testing.T) {
	nq, err := compile(t, "FIND Catalog WHERE Created BETWEEN (*, *) AND CatalogCode = 'A'")
	require.NoError(t, err)
	assert.Equal(t, textClause("c.code = A"), nq.Where)

	nq, err = compile(t, "FIND Catalog WHERE Created BETWEEN (*, *) OR CatalogCode = 'A'")
	require.NoError(t, err)
	assert.Nil(t, nq.Where)

	nq, err = compile(t, "FIND Catalog WHERE NOT Created BETWEEN (*, *)")
	require.NoError(t, err)
	assert.Equal(t, textClause("FALSE"), nq.Where)
}

func TestBuildRangeIsInclusive(t *testing.T) {
	lower, err := compile(t, "FIND Catalog WHERE Price[en][USD] BETWEEN (10, *)")
	require.NoError(t, err)
	gte, err := compile(t, "FIND Catalog WHERE Price[en][USD] >= 10")
	require.NoError(t, err)
	assert.Equal(t, gte.Where, lower.Where)

	upper, err := compile(t, "FIND Catalog WHERE Price[en][USD] BETWEEN (*, 20)")
	require.NoError(t, err)
	lte, err := compile(t, "FIND Catalog WHERE Price[en][USD] <= 20")
	require.NoError(t, err)
	assert.Equal(t, lte.Where, upper.Where)
}

func TestBuildSortsAndLimit(t *testing.T) {
	nq, err := compile(t, "FIND Catalog WHERE Master = TRUE ORDER BY CatalogName[fr] DESC, CatalogCode DESC LIMIT 5")
	require.NoError(t, err)
	assert.Equal(t, []native.Sort{
		{Expression: "c.name_fr", Order: ast.Desc},
		{Expression: "c.code", Order: ast.Desc},
	}, nq.Sorts, "query sort wins over the configured sort on the same expression")
	assert.Equal(t, 5, nq.Limit)
}

// sortingBuilder orders its field through a custom key.
type sortingBuilder struct {
	textDialect
	err error
}

func (b sortingBuilder) BuildSort(f field.Resolved, order ast.SortOrder) (native.Sort, error) {
	if b.err != nil {
		return native.Sort{}, b.err
	}
	return native.Sort{Expression: f.Expression, Order: order, Key: textClause("key(" + f.Expression + "," + f.Locale + ")")}, nil
}

func TestBuildSortUsesSubQuerySortKey(t *testing.T) {
	cfg, err := configuration.NewEntity("Catalog", native.BackendRelational, native.Root{Source: "catalog", Alias: "c", Select: []string{"c.guid"}}).
		ConfigureField("Label", "ldf.label", field.Localized, field.TypeString, sortingBuilder{}).
		ConfigureField("Rank", "c.rank", field.NonLocalized, field.TypeNumber, sortingBuilder{err: errors.New("no order")}).
		AddSortField("c.code", ast.Asc).
		Build()
	require.NoError(t, err)
	b := New(0, textDialect{})

	q, err := parser.Parse("FIND Catalog ORDER BY Label[en] DESC, Label[de], Label[en]")
	require.NoError(t, err)
	nq, err := b.Build(q, cfg)
	require.NoError(t, err)
	assert.Equal(t, []native.Sort{
		{Expression: "ldf.label", Order: ast.Desc, Key: textClause("key(ldf.label,en)")},
		{Expression: "ldf.label", Order: ast.Asc, Key: textClause("key(ldf.label,de)")},
		{Expression: "c.code", Order: ast.Asc},
	}, nq.Sorts)

	q, err = parser.Parse("FIND Catalog ORDER BY Rank")
	require.NoError(t, err)
	_, err = b.Build(q, cfg)
	var be *epqlerrors.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "Rank", be.Field)
	assert.Equal(t, epqlerrors.UnsupportedOperator, be.Kind)
}

func TestBuildIsDeterministic(t *testing.T) {
	text := "FIND Catalog WHERE NOT (CatalogCode LIKE 'A?' OR Created >= '2024-01-01') AND Price[en][USD] BETWEEN (1, 2)"
	a, err := compile(t, text)
	require.NoError(t, err)
	b, err := compile(t, text)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		kind  epqlerrors.BuildKind
		cause epqlerrors.Phase
		field string
	}{
		{name: "unknown field", text: "FIND Catalog WHERE Nope = 'x'", kind: epqlerrors.UnknownField, cause: epqlerrors.PhaseParse, field: "Nope"},
		{name: "field names are case sensitive", text: "FIND Catalog WHERE catalogcode = 'x'", kind: epqlerrors.UnknownField, cause: epqlerrors.PhaseParse, field: "catalogcode"},
		{name: "unknown sort field", text: "FIND Catalog ORDER BY Nope", kind: epqlerrors.UnknownField, cause: epqlerrors.PhaseParse, field: "Nope"},
		{name: "like on number", text: "FIND Catalog WHERE Price[en][USD] LIKE '1*'", kind: epqlerrors.TypeMismatch, cause: epqlerrors.PhaseParse, field: "Price"},
		{name: "ordering on boolean", text: "FIND Catalog WHERE Master > TRUE", kind: epqlerrors.TypeMismatch, cause: epqlerrors.PhaseParse, field: "Master"},
		{name: "range on boolean", text: "FIND Catalog WHERE Master BETWEEN (FALSE, TRUE)", kind: epqlerrors.TypeMismatch, cause: epqlerrors.PhaseParse, field: "Master"},
		{name: "bad date", text: "FIND Catalog WHERE Created = 'yesterday'", kind: epqlerrors.TypeMismatch, cause: epqlerrors.PhaseParse, field: "Created"},
		{name: "missing locale", text: "FIND Catalog WHERE CatalogName = 'x'", kind: epqlerrors.Resolution, cause: epqlerrors.PhaseResolution, field: "CatalogName"},
		{name: "missing currency", text: "FIND Catalog WHERE Price[en] = 1", kind: epqlerrors.Resolution, cause: epqlerrors.PhaseResolution, field: "Price"},
		{name: "unexpected parameter", text: "FIND Catalog WHERE CatalogCode[en] = 'x'", kind: epqlerrors.Resolution, cause: epqlerrors.PhaseResolution, field: "CatalogCode"},
		{name: "builder failure", text: "FIND Catalog WHERE Broken = 'x'", kind: epqlerrors.UnsupportedOperator, cause: epqlerrors.PhaseBuild, field: "Broken"},
		{name: "nil clause", text: "FIND Catalog WHERE Hollow = 'x'", kind: epqlerrors.EmptyClause, cause: epqlerrors.PhaseBuild, field: "Hollow"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nq, err := compile(t, tc.text)
			require.Nil(t, nq)
			var be *epqlerrors.BuildError
			require.True(t, errors.As(err, &be), "expected BuildError, got %v", err)
			assert.Equal(t, tc.kind, be.Kind)
			assert.Equal(t, tc.cause, be.Cause)
			assert.Equal(t, tc.field, be.Field)
			assert.Equal(t, "Catalog", be.Entity)
			assert.Equal(t, strings.Index(tc.text, tc.field), be.Offset)
		})
	}
}

func TestResolutionErrorIsWrapped(t *testing.T) {
	_, err := compile(t, "FIND Catalog WHERE CatalogName = 'x'")
	var re *epqlerrors.ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, epqlerrors.MissingParameter, re.Kind)
	assert.Equal(t, "locale", re.Parameter)
}

func TestCompileUnknownEntity(t *testing.T) {
	reg, err := configuration.NewRegistry(catalogConfig(t))
	require.NoError(t, err)
	q, err := parser.Parse("FIND Widget WHERE A = 1")
	require.NoError(t, err)

	_, err = New(0, textDialect{}).Compile(q, reg)
	var be *epqlerrors.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, epqlerrors.UnknownEntity, be.Kind)
	assert.Equal(t, "Widget", be.Entity)

	q, err = parser.Parse("FIND catalog")
	require.NoError(t, err)
	nq, err := New(0, textDialect{}).Compile(q, reg)
	require.NoError(t, err)
	assert.Equal(t, "Catalog", nq.Entity)
	assert.Zero(t, nq.Limit)
}

func TestBuildWithoutDialect(t *testing.T) {
	q, err := parser.Parse("FIND Catalog")
	require.NoError(t, err)
	_, err = New(0).Build(q, catalogConfig(t))
	var ce *epqlerrors.ConfigurationError
	require.True(t, errors.As(err, &ce))
}
