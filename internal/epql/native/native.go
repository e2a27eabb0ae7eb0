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

// Package native holds the backend-neutral shape of a compiled EPQL query and
// the strategy interfaces each backend implements.
//
// A compiled query is a Root (where the records live), an optional Clause tree
// expressed in backend syntax, a sort list, a limit and the fetch type that
// decides how result identifiers are materialised.
package native

import (
	"context"
	"fmt"
	"strings"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/field"
)

// Backend names the engine that owns an entity.
type Backend string

const (
	BackendRelational Backend = "relational"
	BackendSearch     Backend = "search"
	BackendDocument   Backend = "document"
)

// ParseBackend maps a configuration name to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case BackendRelational:
		return BackendRelational, nil
	case BackendSearch:
		return BackendSearch, nil
	case BackendDocument:
		return BackendDocument, nil
	}
	return "", fmt.Errorf("unknown backend %q", name)
}

// FetchType is the shape of result identifiers a query returns.
type FetchType int

const (
	FetchGUID FetchType = iota
	FetchUID
	FetchCompoundGUID
)

func (f FetchType) String() string {
	switch f {
	case FetchUID:
		return "UID"
	case FetchGUID:
		return "GUID"
	case FetchCompoundGUID:
		return "COMPOUND_GUID"
	}
	return fmt.Sprintf("FetchType(%d)", int(f))
}

// MarshalText renders the fetch type by name in JSON output.
func (f FetchType) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses a fetch type name.
func (f *FetchType) UnmarshalText(text []byte) error {
	parsed, err := ParseFetchType(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFetchType maps UID, GUID or COMPOUND_GUID to a FetchType. Empty means GUID.
func ParseFetchType(name string) (FetchType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "GUID":
		return FetchGUID, nil
	case "UID":
		return FetchUID, nil
	case "COMPOUND_GUID", "COMPOUNDGUID":
		return FetchCompoundGUID, nil
	}
	return 0, fmt.Errorf("unknown fetch type %q", name)
}

// Join is an extra relation joined to a relational root.
type Join struct {
	Table string
	Alias string
	Left  string // column of the joined table
	Right string // column of the root or an earlier join
}

// Root is the query prefix: where records are read from and which fields make
// up a result identifier.
//
// Source is the table, index or collection. Alias only applies to relational
// roots. Select lists the identifier fields; UID and GUID roots select exactly
// one, compound roots select two or more.
type Root struct {
	Source string
	Alias  string
	Joins  []Join
	Select []string
}

// Clause is a native query fragment produced by a SubQueryBuilder or by
// combining fragments with a Dialect.
type Clause interface {
	Backend() Backend
}

// ResolvedTerm is a leaf of the term tree after field resolution: the concrete
// backend field plus typed value(s). It lives only while a query is built.
type ResolvedTerm struct {
	Field    field.Resolved
	Type     field.Type
	Operator ast.Operator // meaningful when Term is a *ast.Comparison
	Value    any          // Comparison value
	Lower    any          // Range lower bound, nil when open
	Upper    any          // Range upper bound, nil when open
	Term     ast.Leaf     // the original leaf
}

// IsRange reports whether the term came from a BETWEEN leaf.
func (t ResolvedTerm) IsRange() bool {
	_, ok := t.Term.(*ast.Range)
	return ok
}

// SubQueryBuilder turns one resolved leaf into a native clause.
type SubQueryBuilder interface {
	Backend() Backend
	Build(term ResolvedTerm) (Clause, error)
}

// SortBuilder is implemented by sub-query builders whose field cannot be
// ordered by its plain expression, such as values held in a side table.
type SortBuilder interface {
	BuildSort(f field.Resolved, order ast.SortOrder) (Sort, error)
}

// Dialect is the full strategy of one backend: its default sub-query builder,
// the boolean combiner and the renderer used for explain output.
type Dialect interface {
	SubQueryBuilder
	And(left, right Clause) (Clause, error)
	Or(left, right Clause) (Clause, error)
	Not(inner Clause) (Clause, error)
	Render(q *Query) (string, error)
}

// MatchAll is the backend-neutral "trivially true" clause. Sub-query builders
// return it for terms without any bound; the query builder folds it away.
type MatchAll struct {
	For Backend
}

func (m MatchAll) Backend() Backend { return m.For }

// IsMatchAll reports whether c is a MatchAll clause.
func IsMatchAll(c Clause) bool {
	_, ok := c.(MatchAll)
	return ok
}

// Sort is one ORDER BY entry on a resolved backend expression.
type Sort struct {
	Expression string
	Order      ast.SortOrder
	// Key orders by a backend-native expression instead of Expression when set.
	Key Clause
}

// Query is a fully compiled, backend-native query ready for execution.
type Query struct {
	Entity    string
	Backend   Backend
	Root      Root
	Where     Clause // nil selects every record of the entity
	Sorts     []Sort
	Limit     int
	FetchType FetchType
}

// Executor runs a compiled query against the backend that owns it.
type Executor interface {
	Backend() Backend
	Execute(ctx context.Context, q *Query) (*ResultSet, error)
}
