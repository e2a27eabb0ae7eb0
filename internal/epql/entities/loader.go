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

package entities

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/relational"
	"github.com/epcommerce/epql-go-components/internal/epql/configuration"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/field"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

//go:embed entities.schema.json
var schemaJSON string

// Definitions is the root of an entity definition file.
type Definitions struct {
	Entities []EntityDefinition `yaml:"entities"`
}

// EntityDefinition declares one searchable entity.
type EntityDefinition struct {
	Name      string            `yaml:"name"`
	Backend   string            `yaml:"backend"`
	FetchType string            `yaml:"fetchType"`
	Root      RootDefinition    `yaml:"root"`
	Fields    []FieldDefinition `yaml:"fields"`
	Sort      []SortDefinition  `yaml:"sort"`
}

// RootDefinition is the query root of an entity.
type RootDefinition struct {
	Source string           `yaml:"source"`
	Alias  string           `yaml:"alias"`
	Select []string         `yaml:"select"`
	Joins  []JoinDefinition `yaml:"joins"`
}

// JoinDefinition is an extra relational table joined to the root.
type JoinDefinition struct {
	Table string `yaml:"table"`
	Alias string `yaml:"alias"`
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// FieldDefinition maps a logical field to its backend expression.
type FieldDefinition struct {
	Name       string              `yaml:"name"`
	Expression string              `yaml:"expression"`
	Type       string              `yaml:"type"`
	Resolver   string              `yaml:"resolver"`
	SubQuery   *SubQueryDefinition `yaml:"subQuery"`
}

// SubQueryDefinition selects a non-default sub-query builder for a field.
type SubQueryDefinition struct {
	Kind         string `yaml:"kind"`
	Table        string `yaml:"table"`
	ForeignKey   string `yaml:"foreignKey"`
	RootKey      string `yaml:"rootKey"`
	LocaleColumn string `yaml:"localeColumn"`
}

// SortDefinition is a default sort entry.
type SortDefinition struct {
	Expression string `yaml:"expression"`
	Order      string `yaml:"order"`
}

// LoadFile reads, validates and builds the entity definitions at path.
func LoadFile(path string) ([]*configuration.EntityConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity definitions: %w", err)
	}
	return Load(data)
}

// Load validates YAML entity definitions against the embedded schema and builds
// one configuration per entity.
func Load(data []byte) ([]*configuration.EntityConfiguration, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode entity definitions: %w", err)
	}
	return Build(defs)
}

// Validate checks YAML entity definitions against the embedded JSON schema.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode entity definitions: %w", err)
	}

	compiled, err := gojsonschema.NewSchemaLoader().Compile(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("compile entity schema: %w", err)
	}
	result, err := compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("entity schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return &epqlerrors.ConfigurationError{Reason: "entity definitions invalid: " + strings.Join(msgs, "; ")}
	}
	return nil
}

// Build turns decoded definitions into entity configurations.
func Build(defs Definitions) ([]*configuration.EntityConfiguration, error) {
	out := make([]*configuration.EntityConfiguration, 0, len(defs.Entities))
	for _, def := range defs.Entities {
		cfg, err := buildEntity(def)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func buildEntity(def EntityDefinition) (*configuration.EntityConfiguration, error) {
	backend, err := native.ParseBackend(def.Backend)
	if err != nil {
		return nil, &epqlerrors.ConfigurationError{Entity: def.Name, Reason: err.Error()}
	}
	fetchType, err := native.ParseFetchType(def.FetchType)
	if err != nil {
		return nil, &epqlerrors.ConfigurationError{Entity: def.Name, Reason: err.Error()}
	}

	root := native.Root{
		Source: def.Root.Source,
		Alias:  def.Root.Alias,
		Select: def.Root.Select,
	}
	for _, j := range def.Root.Joins {
		root.Joins = append(root.Joins, native.Join{Table: j.Table, Alias: j.Alias, Left: j.Left, Right: j.Right})
	}

	b := configuration.NewEntity(def.Name, backend, root).SetFetchType(fetchType)
	for _, f := range def.Fields {
		fieldType, err := field.ParseType(f.Type)
		if err != nil {
			return nil, &epqlerrors.ConfigurationError{Entity: def.Name, Field: f.Name, Reason: err.Error()}
		}
		resolver, err := field.ParseResolver(f.Resolver)
		if err != nil {
			return nil, &epqlerrors.ConfigurationError{Entity: def.Name, Field: f.Name, Reason: err.Error()}
		}
		sub, err := subQueryBuilder(f.SubQuery)
		if err != nil {
			return nil, &epqlerrors.ConfigurationError{Entity: def.Name, Field: f.Name, Reason: err.Error()}
		}
		b.ConfigureField(f.Name, f.Expression, resolver, fieldType, sub)
	}
	for _, s := range def.Sort {
		order := ast.Asc
		if strings.EqualFold(s.Order, "DESC") {
			order = ast.Desc
		}
		b.AddSortField(s.Expression, order)
	}
	return b.Build()
}

func subQueryBuilder(def *SubQueryDefinition) (native.SubQueryBuilder, error) {
	if def == nil {
		return nil, nil
	}
	switch def.Kind {
	case "localizedValue":
		if def.Table == "" || def.ForeignKey == "" || def.RootKey == "" || def.LocaleColumn == "" {
			return nil, fmt.Errorf("localizedValue needs table, foreignKey, rootKey and localeColumn")
		}
		return relational.LocalizedValue{
			Table:        def.Table,
			ForeignKey:   def.ForeignKey,
			RootKey:      def.RootKey,
			LocaleColumn: def.LocaleColumn,
		}, nil
	}
	return nil, fmt.Errorf("unknown sub-query kind %q", def.Kind)
}
