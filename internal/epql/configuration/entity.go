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

// Package configuration holds the per-entity field configuration of the EPQL
// compiler and the registry that maps entity names to it.
//
// Configurations are built once at startup through Builder and are read-only
// afterwards, so a Registry can be shared by concurrent queries without locking.
package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/field"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// FieldDescriptor maps a logical field to its backend expression.
type FieldDescriptor struct {
	Name       string
	Expression string
	Type       field.Type
	Resolver   field.Resolver
	// SubQuery overrides the dialect's default builder for this field. Nil uses the default.
	SubQuery native.SubQueryBuilder
}

// Target returns the resolver input for this descriptor.
func (d FieldDescriptor) Target() field.Target {
	return field.Target{Name: d.Name, Expression: d.Expression}
}

// SortField is a configured default sort entry on a backend expression.
type SortField struct {
	Expression string
	Order      ast.SortOrder
}

// EntityConfiguration describes one searchable entity type.
type EntityConfiguration struct {
	name      string
	backend   native.Backend
	root      native.Root
	fields    map[string]FieldDescriptor
	fieldSeq  []string
	sorts     []SortField
	fetchType native.FetchType
}

func (c *EntityConfiguration) Name() string { return c.name }
func (c *EntityConfiguration) Backend() native.Backend { return c.backend }
func (c *EntityConfiguration) FetchType() native.FetchType { return c.fetchType }

// Root returns a copy of the query root.
func (c *EntityConfiguration) Root() native.Root {
	root := c.root
	root.Joins = append([]native.Join(nil), c.root.Joins...)
	root.Select = append([]string(nil), c.root.Select...)
	return root
}

// Field looks up a logical field by its exact name.
func (c *EntityConfiguration) Field(name string) (FieldDescriptor, bool) {
	d, ok := c.fields[name]
	return d, ok
}

// Fields returns all descriptors in registration order.
func (c *EntityConfiguration) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(c.fieldSeq))
	for _, name := range c.fieldSeq {
		out = append(out, c.fields[name])
	}
	return out
}

// SortFields returns the configured sort entries in registration order.
func (c *EntityConfiguration) SortFields() []SortField {
	return append([]SortField(nil), c.sorts...)
}

// Builder assembles an EntityConfiguration. Errors are collected and reported
// together by Build.
type Builder struct {
	cfg  *EntityConfiguration
	errs []error
}

// NewEntity starts the configuration of an entity served by backend from root.
func NewEntity(name string, backend native.Backend, root native.Root) *Builder {
	return &Builder{cfg: &EntityConfiguration{
		name:      strings.TrimSpace(name),
		backend:   backend,
		root:      root,
		fields:    make(map[string]FieldDescriptor),
		fetchType: native.FetchGUID,
	}}
}

// ConfigureField registers a logical field. Registering the same name twice is a
// configuration error.
func (b *Builder) ConfigureField(name, expression string, resolver field.Resolver, fieldType field.Type, subQuery native.SubQueryBuilder) *Builder {
	switch {
	case name == "":
		b.fail("", "field name must not be empty")
	case strings.TrimSpace(expression) == "":
		b.fail(name, "backend expression must not be empty")
	case b.hasField(name):
		b.fail(name, "field registered twice")
	case subQuery != nil && subQuery.Backend() != b.cfg.backend:
		b.fail(name, fmt.Sprintf("sub-query builder for backend %q cannot serve a %q entity", subQuery.Backend(), b.cfg.backend))
	default:
		b.cfg.fields[name] = FieldDescriptor{
			Name:       name,
			Expression: expression,
			Type:       fieldType,
			Resolver:   resolver,
			SubQuery:   subQuery,
		}
		b.cfg.fieldSeq = append(b.cfg.fieldSeq, name)
	}
	return b
}

// AddSortField appends a default sort entry. Entries keep registration order.
func (b *Builder) AddSortField(expression string, order ast.SortOrder) *Builder {
	if strings.TrimSpace(expression) == "" {
		b.fail("", "sort expression must not be empty")
		return b
	}
	b.cfg.sorts = append(b.cfg.sorts, SortField{Expression: expression, Order: order})
	return b
}

// SetFetchType sets the result identifier shape. The default is GUID.
func (b *Builder) SetFetchType(fetchType native.FetchType) *Builder {
	b.cfg.fetchType = fetchType
	return b
}

// Build validates the collected configuration and returns it.
func (b *Builder) Build() (*EntityConfiguration, error) {
	cfg := b.cfg
	if cfg.name == "" {
		b.fail("", "entity name must not be empty")
	}
	if _, err := native.ParseBackend(string(cfg.backend)); err != nil {
		b.fail("", err.Error())
	}
	if strings.TrimSpace(cfg.root.Source) == "" {
		b.fail("", "query root source must not be empty")
	}
	switch cfg.fetchType {
	case native.FetchUID, native.FetchGUID:
		if len(cfg.root.Select) != 1 {
			b.fail("", fmt.Sprintf("fetch type %s selects exactly one field, got %d", cfg.fetchType, len(cfg.root.Select)))
		}
	case native.FetchCompoundGUID:
		if len(cfg.root.Select) < 2 {
			b.fail("", fmt.Sprintf("fetch type %s selects at least two fields, got %d", cfg.fetchType, len(cfg.root.Select)))
		}
	default:
		b.fail("", fmt.Sprintf("unknown fetch type %d", int(cfg.fetchType)))
	}
	if len(cfg.root.Joins) > 0 && cfg.backend != native.BackendRelational {
		b.fail("", "joins are only supported by the relational backend")
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return cfg, nil
}

// MustBuild is Build for static wiring that cannot fail at runtime.
func (b *Builder) MustBuild() *EntityConfiguration {
	cfg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (b *Builder) hasField(name string) bool {
	_, ok := b.cfg.fields[name]
	return ok
}

func (b *Builder) fail(fieldName, reason string) {
	b.errs = append(b.errs, &epqlerrors.ConfigurationError{Entity: b.cfg.name, Field: fieldName, Reason: reason})
}
