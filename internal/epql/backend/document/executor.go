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
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// Executor runs compiled document queries against one database.
type Executor struct {
	db *mongo.Database
}

// NewExecutor returns an executor reading collections of db.
func NewExecutor(db *mongo.Database) *Executor {
	return &Executor{db: db}
}

func (*Executor) Backend() native.Backend { return native.BackendDocument }

// Execute runs q as a find on the collection named by its root.
func (e *Executor) Execute(ctx context.Context, q *native.Query) (*native.ResultSet, error) {
	f, err := Filter(q)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetProjection(Projection(q))
	if len(q.Sorts) > 0 {
		opts.SetSort(Sort(q))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := e.db.Collection(q.Root.Source).Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("document: find %s: %w", q.Entity, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("document: read %s: %w", q.Entity, err)
	}

	out := native.NewResultSet(q.FetchType)
	for _, doc := range docs {
		parts := make([]string, len(q.Root.Select))
		for i, path := range q.Root.Select {
			v, ok := lookup(doc, path)
			if !ok {
				return nil, fmt.Errorf("document: %s result has no field %s", q.Entity, path)
			}
			parts[i] = v
		}
		if err := out.Add(parts...); err != nil {
			return nil, fmt.Errorf("document: %s: %w", q.Entity, err)
		}
	}
	return out, nil
}

// lookup follows a dotted path and renders the value as text.
func lookup(doc bson.M, path string) (string, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		next, ok := field(cur, key)
		if !ok {
			return "", false
		}
		cur = next
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case primitive.ObjectID:
		return v.Hex(), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

func field(v any, key string) (any, bool) {
	switch m := v.(type) {
	case bson.M:
		x, ok := m[key]
		return x, ok
	case map[string]any:
		x, ok := m[key]
		return x, ok
	case bson.D:
		for _, e := range m {
			if e.Key == key {
				return e.Value, true
			}
		}
	}
	return nil, false
}
