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

// Package epqlerrors provides the typed error taxonomy of the EPQL compiler.
//
// Every error produced while compiling or running a query is one of the types
// below and can be matched with errors.As. Error codes follow the EPQL-<AREA>-<REASON>
// convention and are surfaced unchanged by the REST layer.
package epqlerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase is the stage of query handling that caused an error.
type Phase int

const (
	PhaseParse Phase = iota
	PhaseConfiguration
	PhaseResolution
	PhaseBuild
	PhaseExecution
)

func (p Phase) String() string {
	switch p {
	case PhaseParse:
		return "parse"
	case PhaseConfiguration:
		return "configuration"
	case PhaseResolution:
		return "resolution"
	case PhaseBuild:
		return "build"
	case PhaseExecution:
		return "execution"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ParseError reports malformed EPQL text. No partial tree is ever returned with it.
type ParseError struct {
	Query    string
	Offset   int // byte offset into Query
	Line     int
	Column   int
	Expected string // what the parser expected at Offset
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("EPQL-PARSE-SYNTAX %d:%d (offset %d): %s", e.Line, e.Column, e.Offset, e.Expected)
}

// Code returns the stable error code.
func (e *ParseError) Code() string { return "EPQL-PARSE-SYNTAX" }

// ConfigurationError is raised while building entity configurations at startup.
type ConfigurationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("EPQL-CONFIG-INVALID")
	if e.Entity != "" {
		sb.WriteString(" entity ")
		sb.WriteString(e.Entity)
	}
	if e.Field != "" {
		sb.WriteString(" field ")
		sb.WriteString(e.Field)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	return sb.String()
}

func (e *ConfigurationError) Code() string { return "EPQL-CONFIG-INVALID" }

// ResolutionKind classifies a ResolutionError.
type ResolutionKind int

const (
	MissingParameter ResolutionKind = iota
	UnexpectedParameter
	InvalidParameter
)

func (k ResolutionKind) String() string {
	switch k {
	case MissingParameter:
		return "MissingParameter"
	case UnexpectedParameter:
		return "UnexpectedParameter"
	case InvalidParameter:
		return "InvalidParameter"
	}
	return fmt.Sprintf("ResolutionKind(%d)", int(k))
}

// ResolutionError reports a field whose context parameters do not fit its resolver.
type ResolutionError struct {
	Kind      ResolutionKind
	Field     string
	Parameter string // "locale", "currency" or the offending raw value
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case MissingParameter:
		return fmt.Sprintf("EPQL-RESOLVE-MISSINGPARAM field %s requires parameter %q", e.Field, e.Parameter)
	case UnexpectedParameter:
		return fmt.Sprintf("EPQL-RESOLVE-UNEXPECTEDPARAM field %s does not accept parameter %q", e.Field, e.Parameter)
	default:
		return fmt.Sprintf("EPQL-RESOLVE-INVALIDPARAM field %s has invalid parameter %q", e.Field, e.Parameter)
	}
}

func (e *ResolutionError) Code() string {
	switch e.Kind {
	case MissingParameter:
		return "EPQL-RESOLVE-MISSINGPARAM"
	case UnexpectedParameter:
		return "EPQL-RESOLVE-UNEXPECTEDPARAM"
	}
	return "EPQL-RESOLVE-INVALIDPARAM"
}

// BuildKind classifies a BuildError.
type BuildKind int

const (
	UnknownEntity BuildKind = iota
	UnknownField
	TypeMismatch
	UnsupportedOperator
	UnsupportedNegation
	Resolution
	EmptyClause
)

func (k BuildKind) String() string {
	switch k {
	case UnknownEntity:
		return "UnknownEntity"
	case UnknownField:
		return "UnknownField"
	case TypeMismatch:
		return "TypeMismatch"
	case UnsupportedOperator:
		return "UnsupportedOperator"
	case UnsupportedNegation:
		return "UnsupportedNegation"
	case Resolution:
		return "Resolution"
	case EmptyClause:
		return "EmptyClause"
	}
	return fmt.Sprintf("BuildKind(%d)", int(k))
}

// BuildError reports a term that cannot be turned into a native clause.
// Cause tells whether the query text, the entity configuration or the
// resolver context is at fault.
type BuildError struct {
	Kind     BuildKind
	Cause    Phase
	Entity   string
	Field    string
	Operator string
	Offset   int // byte offset of the offending term, -1 when unknown
	Detail   string
	Err      error
}

func (e *BuildError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code())
	if e.Entity != "" {
		sb.WriteString(" entity ")
		sb.WriteString(e.Entity)
	}
	if e.Field != "" {
		sb.WriteString(" field ")
		sb.WriteString(e.Field)
	}
	if e.Operator != "" {
		sb.WriteString(" operator ")
		sb.WriteString(e.Operator)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at offset %d", e.Offset)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *BuildError) Unwrap() error { return e.Err }

func (e *BuildError) Code() string {
	switch e.Kind {
	case UnknownEntity:
		return "EPQL-BUILD-UNKNOWNENTITY"
	case UnknownField:
		return "EPQL-BUILD-UNKNOWNFIELD"
	case TypeMismatch:
		return "EPQL-BUILD-TYPEMISMATCH"
	case UnsupportedOperator:
		return "EPQL-BUILD-UNSUPPORTEDOP"
	case UnsupportedNegation:
		return "EPQL-BUILD-UNSUPPORTEDNEGATION"
	case Resolution:
		return "EPQL-BUILD-RESOLUTION"
	}
	return "EPQL-BUILD-EMPTYCLAUSE"
}

// QueryError is returned by the engine façade. It wraps any compiler error or a
// backend execution failure.
type QueryError struct {
	Phase  Phase
	Entity string
	Query  string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("EPQL-QUERY-%s entity %s: %v", strings.ToUpper(e.Phase.String()), e.Entity, e.Err)
	}
	return fmt.Sprintf("EPQL-QUERY-%s: %v", strings.ToUpper(e.Phase.String()), e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// coder is implemented by every error type in this package.
type coder interface {
	Code() string
}

// CodeOf returns the EPQL error code of the innermost typed error in err's chain.
// Backend failures without a typed cause map to EPQL-QUERY-EXECUTION.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Code()
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return "EPQL-QUERY-" + strings.ToUpper(qe.Phase.String())
	}
	return "EPQL-QUERY-EXECUTION"
}

// IsClientError reports whether err was caused by the query text or its context
// rather than by configuration or a backend failure.
func IsClientError(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return true
	}
	var re *ResolutionError
	if errors.As(err, &re) {
		return true
	}
	var be *BuildError
	if errors.As(err, &be) {
		return be.Cause != PhaseConfiguration || be.Kind == UnknownEntity
	}
	return false
}
