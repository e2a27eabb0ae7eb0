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

package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The grammar nests or -> and -> unary so that AND binds tighter than OR
// without any precedence climbing in the converter.
type (
	grammarQuery struct {
		Pos    lexer.Position
		Verb   string          `@("SELECT" | "FIND")`
		Entity string          `@Ident`
		Where  *grammarOr      `( "WHERE" @@ )?`
		Order  []*grammarOrder `( "ORDER" "BY" @@ ( "," @@ )* )?`
		Limit  *grammarLimit   `( "LIMIT" @@ )?`
	}

	grammarOr struct {
		Left  *grammarAnd   `@@`
		Right []*grammarAnd `( "OR" @@ )*`
	}

	grammarAnd struct {
		Left  *grammarUnary   `@@`
		Right []*grammarUnary `( "AND" @@ )*`
	}

	grammarUnary struct {
		Not   *grammarUnary `  "NOT" @@`
		Group *grammarOr    `| "(" @@ ")"`
		Term  *grammarTerm  `| @@`
	}

	grammarTerm struct {
		Pos     lexer.Position
		Field   string          `@Ident`
		Params  []string        `( "[" @( Ident | String | Number ) "]" )*`
		Between *grammarRange   `( "BETWEEN" @@`
		Compare *grammarCompare `| @@ )`
	}

	grammarRange struct {
		Lower *grammarBound `"(" @@ ","`
		Upper *grammarBound `@@ ")"`
	}

	grammarBound struct {
		Open  bool          `  @"*"`
		Value *grammarValue `| @@`
	}

	grammarCompare struct {
		Operator string        `@( Operator | "LIKE" )`
		Value    *grammarValue `@@`
	}

	grammarValue struct {
		String  *string `  @String`
		Number  *string `| @Number`
		Boolean *string `| @( "TRUE" | "FALSE" )`
	}

	grammarOrder struct {
		Pos       lexer.Position
		Field     string   `@Ident`
		Params    []string `( "[" @( Ident | String | Number ) "]" )*`
		Direction string   `@( "ASC" | "DESC" )?`
	}

	grammarLimit struct {
		Pos   lexer.Position
		Value string `@Number`
	}
)

var (
	epqlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "String", Pattern: `'(?:[^']|'')*'`},
		{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.\-]*`},
		{Name: "Operator", Pattern: `!=|<>|<=|>=|=|<|>`},
		{Name: "Punct", Pattern: `[()\[\],*]`},
	})

	epqlParser = participle.MustBuild[grammarQuery](
		participle.Lexer(epqlLexer),
		participle.Elide("Whitespace"),
		participle.CaseInsensitive("Ident"),
		participle.UseLookahead(2),
	)
)
