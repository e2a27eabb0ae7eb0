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

package field

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
)

// Resolver is the tagged resolver variant attached to every field descriptor.
type Resolver int

const (
	// NonLocalized fields take no context parameters.
	NonLocalized Resolver = iota
	// Localized fields need a locale and accept an optional currency.
	Localized
)

const (
	localePlaceholder   = "{locale}"
	currencyPlaceholder = "{currency}"
)

func (r Resolver) String() string {
	switch r {
	case NonLocalized:
		return "nonLocalized"
	case Localized:
		return "localized"
	}
	return fmt.Sprintf("Resolver(%d)", int(r))
}

// ParseResolver maps a configuration name to a Resolver.
func ParseResolver(name string) (Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "nonlocalized", "non-localized", "non_localized":
		return NonLocalized, nil
	case "localized":
		return Localized, nil
	}
	return 0, fmt.Errorf("unknown field resolver %q", name)
}

// Target is the configured side of a resolution: the logical name and the
// backend expression, which may contain {locale} and {currency} placeholders.
type Target struct {
	Name       string
	Expression string
}

// Context carries the bracketed parameters written after the field name.
type Context struct {
	Params []string
}

// Resolved is a concrete backend field reference.
type Resolved struct {
	Name       string // logical field name
	Expression string // backend column, index field or document path
	Locale     string // canonical BCP 47 tag, empty for non-localized fields
	Currency   string // ISO 4217 code, empty when not given
}

// Resolve maps target plus ctx to a concrete backend field. It is pure and
// never touches a backend.
func (r Resolver) Resolve(target Target, ctx Context) (Resolved, error) {
	switch r {
	case NonLocalized:
		return resolveNonLocalized(target, ctx)
	case Localized:
		return resolveLocalized(target, ctx)
	}
	return Resolved{}, fmt.Errorf("unsupported resolver %s for field %s", r, target.Name)
}

func resolveNonLocalized(target Target, ctx Context) (Resolved, error) {
	if len(ctx.Params) > 0 {
		return Resolved{}, &epqlerrors.ResolutionError{
			Kind:      epqlerrors.UnexpectedParameter,
			Field:     target.Name,
			Parameter: ctx.Params[0],
		}
	}
	return Resolved{Name: target.Name, Expression: target.Expression}, nil
}

func resolveLocalized(target Target, ctx Context) (Resolved, error) {
	if len(ctx.Params) == 0 || strings.TrimSpace(ctx.Params[0]) == "" {
		return Resolved{}, &epqlerrors.ResolutionError{
			Kind:      epqlerrors.MissingParameter,
			Field:     target.Name,
			Parameter: "locale",
		}
	}
	if len(ctx.Params) > 2 {
		return Resolved{}, &epqlerrors.ResolutionError{
			Kind:      epqlerrors.UnexpectedParameter,
			Field:     target.Name,
			Parameter: ctx.Params[2],
		}
	}

	tag, err := language.Parse(ctx.Params[0])
	if err != nil {
		return Resolved{}, &epqlerrors.ResolutionError{
			Kind:      epqlerrors.InvalidParameter,
			Field:     target.Name,
			Parameter: ctx.Params[0],
		}
	}
	out := Resolved{Name: target.Name, Locale: tag.String()}

	if len(ctx.Params) == 2 {
		unit, err := currency.ParseISO(ctx.Params[1])
		if err != nil {
			return Resolved{}, &epqlerrors.ResolutionError{
				Kind:      epqlerrors.InvalidParameter,
				Field:     target.Name,
				Parameter: ctx.Params[1],
			}
		}
		out.Currency = unit.String()
	}

	if strings.Contains(target.Expression, currencyPlaceholder) && out.Currency == "" {
		return Resolved{}, &epqlerrors.ResolutionError{
			Kind:      epqlerrors.MissingParameter,
			Field:     target.Name,
			Parameter: "currency",
		}
	}

	out.Expression = strings.NewReplacer(
		localePlaceholder, out.Locale,
		currencyPlaceholder, out.Currency,
	).Replace(target.Expression)
	return out, nil
}
