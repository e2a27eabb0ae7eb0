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

package configuration

import (
	"sort"
	"strings"

	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// Registry maps entity names to their configuration. Lookups ignore case.
type Registry struct {
	entities map[string]*EntityConfiguration
}

// NewRegistry registers every configuration exactly once.
func NewRegistry(configs ...*EntityConfiguration) (*Registry, error) {
	r := &Registry{entities: make(map[string]*EntityConfiguration, len(configs))}
	for _, cfg := range configs {
		if cfg == nil {
			return nil, &epqlerrors.ConfigurationError{Reason: "nil entity configuration"}
		}
		key := strings.ToLower(cfg.Name())
		if _, dup := r.entities[key]; dup {
			return nil, &epqlerrors.ConfigurationError{Entity: cfg.Name(), Reason: "entity registered twice"}
		}
		r.entities[key] = cfg
	}
	return r, nil
}

// ConfigurationFor returns the configuration of entity, if registered.
func (r *Registry) ConfigurationFor(entity string) (*EntityConfiguration, bool) {
	cfg, ok := r.entities[strings.ToLower(strings.TrimSpace(entity))]
	return cfg, ok
}

// Entities returns the registered entity names, sorted.
func (r *Registry) Entities() []string {
	names := make([]string, 0, len(r.entities))
	for _, cfg := range r.entities {
		names = append(names, cfg.Name())
	}
	sort.Strings(names)
	return names
}

// Backends returns the distinct backends the registered entities use, sorted.
func (r *Registry) Backends() []native.Backend {
	seen := map[native.Backend]struct{}{}
	for _, cfg := range r.entities {
		seen[cfg.Backend()] = struct{}{}
	}
	out := make([]native.Backend, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
