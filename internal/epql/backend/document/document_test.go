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

package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/configuration"
	fieldpkg "github.com/epcommerce/epql-go-components/internal/epql/field"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
	"github.com/epcommerce/epql-go-components/internal/epql/parser"
	"github.com/epcommerce/epql-go-components/internal/epql/querybuilder"
)

func shopper(t *testing.T, fetch native.FetchType, sel ...string) *configuration.EntityConfiguration {
	t.Helper()
	cfg, err := configuration.NewEntity("Shopper", native.BackendDocument, native.Root{
		Source: "shoppers",
		Select: sel,
	}).
		ConfigureField("Email", "email", fieldpkg.NonLocalized, fieldpkg.TypeString, nil).
		ConfigureField("Points", "loyalty.points", fieldpkg.NonLocalized, fieldpkg.TypeNumber, nil).
		ConfigureField("Nickname", "nick.{locale}", fieldpkg.Localized, fieldpkg.TypeString, nil).
		AddSortField("email", ast.Desc).
		SetFetchType(fetch).
		Build()
	require.NoError(t, err)
	return cfg
}

func compile(t *testing.T, cfg *configuration.EntityConfiguration, text string) *native.Query {
	t.Helper()
	q, err := parser.Parse(text)
	require.NoError(t, err)
	nq, err := querybuilder.New(50, NewDialect()).Build(q, cfg)
	require.NoError(t, err)
	return nq
}

func render(t *testing.T, text string) string {
	t.Helper()
	out, err := NewDialect().Render(compile(t, shopper(t, native.FetchGUID, "guid"), text))
	require.NoError(t, err)
	return out
}

func TestRenderFindCommand(t *testing.T) {
	out := render(t, "FIND Shopper WHERE Email = 'a@b.c'")
	assert.Contains(t, out, `"find":"shoppers"`)
	assert.Contains(t, out, `"filter":{"email":{"$eq":"a@b.c"}}`)
	assert.Contains(t, out, `"projection":{"guid":1,"_id":0}`)
	assert.Contains(t, out, `"sort":{"email":-1}`)
	assert.Contains(t, out, `"limit":50`)
}

func TestRenderOperators(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "FIND Shopper WHERE Email != 'x'", want: `{"email":{"$ne":"x"}}`},
		{text: "FIND Shopper WHERE Points < 5", want: `{"loyalty.points":{"$lt":`},
		{text: "FIND Shopper WHERE Points BETWEEN (1, 9)", want: `{"loyalty.points":{"$gte":`},
		{text: "FIND Shopper WHERE Nickname[de] LIKE 'Bo?'", want: `"nick.de":{"$regex":{"$regularExpression":{"pattern":"^Bo.$"`},
		{text: "FIND Shopper WHERE Email = 'a' OR Email = 'b'", want: `{"$or":[{"email":{"$eq":"a"}},{"email":{"$eq":"b"}}]}`},
		{text: "FIND Shopper WHERE Email = 'a' AND Points > 1", want: `{"$and":[{"email":{"$eq":"a"}}`},
		{text: "FIND Shopper WHERE NOT Email = 'a'", want: `{"$nor":[{"email":{"$eq":"a"}}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			assert.Contains(t, render(t, tc.text), tc.want)
		})
	}
}

func TestRenderSelectAll(t *testing.T) {
	assert.Contains(t, render(t, "FIND Shopper WHERE Points BETWEEN (*, *)"), `"filter":{}`)
}

func TestRegexPattern(t *testing.T) {
	assert.Equal(t, `^A\.b.*.$`, RegexPattern("A.b*?"))
	assert.Equal(t, `^\(x\)$`, RegexPattern("(x)"))
}

func TestExecute(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("guids", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "epql.shoppers", mtest.FirstBatch,
			bson.D{{Key: "guid", Value: "S-1"}},
			bson.D{{Key: "guid", Value: "S-2"}},
		))
		nq := compile(t, shopper(t, native.FetchGUID, "guid"), "FIND Shopper WHERE Email LIKE '*@example.com'")
		rs, err := NewExecutor(mt.DB).Execute(context.Background(), nq)
		require.NoError(mt, err)
		assert.Equal(mt, []string{"S-1", "S-2"}, rs.GUIDs)
	})

	mt.Run("uids", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "epql.shoppers", mtest.FirstBatch,
			bson.D{{Key: "uid", Value: int64(41)}},
		))
		nq := compile(t, shopper(t, native.FetchUID, "uid"), "FIND Shopper")
		rs, err := NewExecutor(mt.DB).Execute(context.Background(), nq)
		require.NoError(mt, err)
		assert.Equal(mt, []int64{41}, rs.UIDs)
	})

	mt.Run("compound", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "epql.shoppers", mtest.FirstBatch,
			bson.D{{Key: "store", Value: "EU"}, {Key: "loyalty", Value: bson.D{{Key: "card", Value: "C9"}}}},
		))
		nq := compile(t, shopper(t, native.FetchCompoundGUID, "store", "loyalty.card"), "FIND Shopper")
		rs, err := NewExecutor(mt.DB).Execute(context.Background(), nq)
		require.NoError(mt, err)
		require.Len(mt, rs.Compound, 1)
		assert.Equal(mt, []string{"EU", "C9"}, rs.Compound[0].Parts)
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad filter"}))
		nq := compile(t, shopper(t, native.FetchGUID, "guid"), "FIND Shopper")
		_, err := NewExecutor(mt.DB).Execute(context.Background(), nq)
		require.Error(mt, err)
	})
}
