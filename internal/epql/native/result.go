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

package native

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CompoundGUIDSeparator joins the parts of a compound identifier in its string form.
const CompoundGUIDSeparator = "|"

// CompoundGUID is an identifier made of several fields, e.g. a product code and
// a SKU code. Parts keep the order of Root.Select.
type CompoundGUID struct {
	Parts []string
}

// NewCompoundGUID builds a compound identifier from its parts.
func NewCompoundGUID(parts ...string) CompoundGUID {
	return CompoundGUID{Parts: append([]string(nil), parts...)}
}

func (c CompoundGUID) String() string {
	return strings.Join(c.Parts, CompoundGUIDSeparator)
}

// MarshalJSON renders the identifier as its parts array.
func (c CompoundGUID) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Parts)
}

// ResultSet holds the identifiers an executor materialised. Exactly one slice
// is populated, chosen by FetchType.
type ResultSet struct {
	FetchType FetchType
	UIDs      []int64
	GUIDs     []string
	Compound  []CompoundGUID
}

// Len returns the number of identifiers in the set.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	switch r.FetchType {
	case FetchUID:
		return len(r.UIDs)
	case FetchCompoundGUID:
		return len(r.Compound)
	}
	return len(r.GUIDs)
}

// NewResultSet returns an empty set for fetchType.
func NewResultSet(fetchType FetchType) *ResultSet {
	return &ResultSet{FetchType: fetchType}
}

// Add appends one identifier given as its textual parts. UID and GUID sets take
// exactly one part; UIDs must parse as integers.
func (r *ResultSet) Add(parts ...string) error {
	switch r.FetchType {
	case FetchUID:
		if len(parts) != 1 {
			return fmt.Errorf("UID result needs one value, got %d", len(parts))
		}
		uid, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("UID result %q is not an integer", parts[0])
		}
		r.UIDs = append(r.UIDs, uid)
	case FetchGUID:
		if len(parts) != 1 {
			return fmt.Errorf("GUID result needs one value, got %d", len(parts))
		}
		r.GUIDs = append(r.GUIDs, parts[0])
	case FetchCompoundGUID:
		r.Compound = append(r.Compound, NewCompoundGUID(parts...))
	default:
		return fmt.Errorf("unsupported fetch type %s", r.FetchType)
	}
	return nil
}
