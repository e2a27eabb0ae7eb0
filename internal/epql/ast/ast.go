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

// Package ast defines the abstract term tree produced by the EPQL parser.
//
// A query is a root entity, an optional predicate tree and an optional list of
// sort entries. The predicate tree is a closed sum type: every node is one of
// *Comparison, *Range, *Conjunction or *Negation. Conjunctions are binary and
// left-associative; AND binds tighter than OR, which the parser encodes in the
// shape of the tree so later stages never re-derive precedence.
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is the comparison operator of a Comparison leaf.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpLike
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

var operatorSymbols = map[Operator]string{
	OpEqual:        "=",
	OpNotEqual:     "!=",
	OpLike:         "LIKE",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
}

func (o Operator) String() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// ParseOperator maps an operator symbol as written in EPQL text to an Operator.
// Keyword operators are matched case-insensitively.
func ParseOperator(symbol string) (Operator, bool) {
	switch strings.ToUpper(strings.TrimSpace(symbol)) {
	case "=":
		return OpEqual, true
	case "!=", "<>":
		return OpNotEqual, true
	case "LIKE":
		return OpLike, true
	case "<":
		return OpLess, true
	case "<=":
		return OpLessEqual, true
	case ">":
		return OpGreater, true
	case ">=":
		return OpGreaterEqual, true
	}
	return 0, false
}

// IsOrdering reports whether the operator compares by order (<, <=, >, >=).
func (o Operator) IsOrdering() bool {
	return o == OpLess || o == OpLessEqual || o == OpGreater || o == OpGreaterEqual
}

// BoolOp joins the two sides of a Conjunction.
type BoolOp int

const (
	And BoolOp = iota
	Or
)

func (b BoolOp) String() string {
	if b == Or {
		return "OR"
	}
	return "AND"
}

// LiteralKind tells how a literal was written in the query text.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBoolean
)

// Literal is an untyped value as written in the query. It is converted to the
// declared field type during resolution, not during parsing.
type Literal struct {
	Kind LiteralKind
	Text string
}

// StringLiteral returns a quoted string literal.
func StringLiteral(s string) Literal { return Literal{Kind: LiteralString, Text: s} }

// NumberLiteral returns a numeric literal.
func NumberLiteral(s string) Literal { return Literal{Kind: LiteralNumber, Text: s} }

// BooleanLiteral returns a TRUE/FALSE literal.
func BooleanLiteral(b bool) Literal {
	return Literal{Kind: LiteralBoolean, Text: strconv.FormatBool(b)}
}

func (l Literal) String() string {
	switch l.Kind {
	case LiteralString:
		return "'" + strings.ReplaceAll(l.Text, "'", "''") + "'"
	case LiteralBoolean:
		return strings.ToUpper(l.Text)
	default:
		return l.Text
	}
}

// FieldRef names a logical field plus the bracketed context parameters that
// followed it, e.g. CategoryName[en] or Price[en][USD].
type FieldRef struct {
	Name   string
	Params []string
}

func (f FieldRef) String() string {
	var sb strings.Builder
	sb.WriteString(f.Name)
	for _, p := range f.Params {
		sb.WriteString("[")
		sb.WriteString(p)
		sb.WriteString("]")
	}
	return sb.String()
}

// Term is a node of the predicate tree.
type Term interface {
	term()
	String() string
}

// Leaf is a Term that references a field: *Comparison or *Range.
type Leaf interface {
	Term
	FieldRef() FieldRef
	// Offset is the byte offset of the field token in the query text.
	Offset() int
}

// Comparison is a single field/operator/value predicate.
type Comparison struct {
	Field    FieldRef
	Operator Operator
	Value    Literal
	Pos      int
}

func (*Comparison) term() {}

func (c *Comparison) FieldRef() FieldRef { return c.Field }
func (c *Comparison) Offset() int { return c.Pos }

func (c *Comparison) String() string {
	return c.Field.String() + " " + c.Operator.String() + " " + c.Value.String()
}

// Range is a two-bound predicate. A nil bound is open; both bounds are inclusive.
type Range struct {
	Field FieldRef
	Lower *Literal
	Upper *Literal
	Pos   int
}

func (*Range) term() {}

func (r *Range) FieldRef() FieldRef { return r.Field }
func (r *Range) Offset() int { return r.Pos }

func (r *Range) String() string {
	bound := func(l *Literal) string {
		if l == nil {
			return "*"
		}
		return l.String()
	}
	return r.Field.String() + " BETWEEN (" + bound(r.Lower) + ", " + bound(r.Upper) + ")"
}

// Conjunction joins two terms with AND or OR.
type Conjunction struct {
	Op    BoolOp
	Left  Term
	Right Term
}

func (*Conjunction) term() {}

func (c *Conjunction) String() string {
	return "(" + c.Left.String() + " " + c.Op.String() + " " + c.Right.String() + ")"
}

// Negation inverts its inner term.
type Negation struct {
	Inner Term
}

func (*Negation) term() {}

func (n *Negation) String() string {
	return "NOT (" + n.Inner.String() + ")"
}

// SortOrder is the direction of an ORDER BY entry or a configured sort field.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

func (s SortOrder) String() string {
	if s == Desc {
		return "DESC"
	}
	return "ASC"
}

// OrderBy is a query-level sort entry.
type OrderBy struct {
	Field FieldRef
	Order SortOrder
	Pos   int
}

// Query is the parsed form of one EPQL statement.
type Query struct {
	Entity  string
	Where   Term // nil when the statement has no WHERE clause
	OrderBy []OrderBy
	Limit   int // 0 means no limit was given
}

func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("FIND ")
	sb.WriteString(q.Entity)
	if q.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.Where.String())
	}
	for i, o := range q.OrderBy {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(o.Field.String())
		sb.WriteString(" ")
		sb.WriteString(o.Order.String())
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.Limit))
	}
	return sb.String()
}
