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

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olivere/elastic/v7"

	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// Executor runs compiled search queries with an elastic client.
type Executor struct {
	client *elastic.Client
}

// NewExecutor returns an executor backed by client.
func NewExecutor(client *elastic.Client) *Executor {
	return &Executor{client: client}
}

func (*Executor) Backend() native.Backend { return native.BackendSearch }

// Execute runs q against the index named by its root and reads the identifier
// fields from each hit.
func (e *Executor) Execute(ctx context.Context, q *native.Query) (*native.ResultSet, error) {
	ss, err := SearchSource(q)
	if err != nil {
		return nil, err
	}
	res, err := e.client.Search(q.Root.Source).SearchSource(ss).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: query %s: %w", q.Entity, err)
	}

	out := native.NewResultSet(q.FetchType)
	if res.Hits == nil {
		return out, nil
	}
	for _, hit := range res.Hits.Hits {
		doc, err := decodeSource(hit.Source)
		if err != nil {
			return nil, fmt.Errorf("search: decode hit %s: %w", hit.Id, err)
		}
		parts := make([]string, len(q.Root.Select))
		for i, f := range q.Root.Select {
			if f == IDField {
				parts[i] = hit.Id
				continue
			}
			v, ok := lookup(doc, f)
			if !ok {
				return nil, fmt.Errorf("search: hit %s has no field %s", hit.Id, f)
			}
			parts[i] = v
		}
		if err := out.Add(parts...); err != nil {
			return nil, fmt.Errorf("search: hit %s: %w", hit.Id, err)
		}
	}
	return out, nil
}

func decodeSource(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// lookup follows a dotted path through nested objects.
func lookup(doc map[string]any, path string) (string, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[key]; !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}
