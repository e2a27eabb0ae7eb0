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

package ast

import "fmt"

// Visitor folds a term tree bottom-up into a value of type R.
type Visitor[R any] interface {
	VisitComparison(c *Comparison) (R, error)
	VisitRange(r *Range) (R, error)
	VisitConjunction(op BoolOp, left, right R) (R, error)
	VisitNegation(inner R) (R, error)
}

// Fold walks t depth-first, left before right, and combines the results with v.
// The first error stops the walk.
func Fold[R any](t Term, v Visitor[R]) (R, error) {
	var zero R
	switch n := t.(type) {
	case *Comparison:
		return v.VisitComparison(n)
	case *Range:
		return v.VisitRange(n)
	case *Conjunction:
		left, err := Fold(n.Left, v)
		if err != nil {
			return zero, err
		}
		right, err := Fold(n.Right, v)
		if err != nil {
			return zero, err
		}
		return v.VisitConjunction(n.Op, left, right)
	case *Negation:
		inner, err := Fold(n.Inner, v)
		if err != nil {
			return zero, err
		}
		return v.VisitNegation(inner)
	case nil:
		return zero, fmt.Errorf("ast: cannot fold a nil term")
	default:
		return zero, fmt.Errorf("ast: unsupported term type %T", t)
	}
}

// Leaves returns the field-referencing leaves of t in query order.
func Leaves(t Term) []Leaf {
	var out []Leaf
	var walk func(Term)
	walk = func(n Term) {
		switch x := n.(type) {
		case *Comparison:
			out = append(out, x)
		case *Range:
			out = append(out, x)
		case *Conjunction:
			walk(x.Left)
			walk(x.Right)
		case *Negation:
			walk(x.Inner)
		}
	}
	walk(t)
	return out
}
