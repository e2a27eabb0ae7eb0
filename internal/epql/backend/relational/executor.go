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

package relational

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// Executor runs compiled relational queries over a database/sql pool.
type Executor struct {
	db *sql.DB
}

// NewExecutor returns an executor backed by db.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

func (*Executor) Backend() native.Backend { return native.BackendRelational }

// Execute runs q and materialises the selected identifier columns.
func (e *Executor) Execute(ctx context.Context, q *native.Query) (*native.ResultSet, error) {
	ds, err := Dataset(q)
	if err != nil {
		return nil, err
	}
	sqlQuery, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("relational: render %s: %w", q.Entity, err)
	}

	rows, err := e.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("relational: query %s: %w", q.Entity, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := native.NewResultSet(q.FetchType)
	for rows.Next() {
		switch q.FetchType {
		case native.FetchUID:
			var uid int64
			if err := rows.Scan(&uid); err != nil {
				return nil, fmt.Errorf("relational: scan uid: %w", err)
			}
			out.UIDs = append(out.UIDs, uid)
		case native.FetchGUID:
			var guid sql.NullString
			if err := rows.Scan(&guid); err != nil {
				return nil, fmt.Errorf("relational: scan guid: %w", err)
			}
			if !guid.Valid {
				return nil, fmt.Errorf("relational: %s: identifier column %s is NULL", q.Entity, q.Root.Select[0])
			}
			out.GUIDs = append(out.GUIDs, guid.String)
		case native.FetchCompoundGUID:
			parts := make([]sql.NullString, len(q.Root.Select))
			dest := make([]any, len(parts))
			for i := range parts {
				dest[i] = &parts[i]
			}
			if err := rows.Scan(dest...); err != nil {
				return nil, fmt.Errorf("relational: scan compound guid: %w", err)
			}
			values := make([]string, len(parts))
			for i, p := range parts {
				if !p.Valid {
					return nil, fmt.Errorf("relational: %s: identifier column %s is NULL", q.Entity, q.Root.Select[i])
				}
				values[i] = p.String
			}
			out.Compound = append(out.Compound, native.NewCompoundGUID(values...))
		default:
			return nil, fmt.Errorf("relational: unsupported fetch type %s", q.FetchType)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relational: iterate %s: %w", q.Entity, err)
	}
	return out, nil
}
