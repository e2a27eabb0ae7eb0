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

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/epcommerce/epql-go-components/internal/common"
	"github.com/epcommerce/epql-go-components/internal/epql/epqlerrors"
)

// Route defines the parameters for an API endpoint.
type Route struct {
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// Routes is a map of defined API endpoints keyed by operation name.
type Routes map[string]Route

// Router defines the required methods for retrieving API routes.
type Router interface {
	Routes() Routes
}

// ImplResponse is a service result: status code and the body to encode.
type ImplResponse struct {
	Code int
	Body interface{}
}

// Response returns an ImplResponse with status and body.
func Response(code int, body interface{}) ImplResponse {
	return ImplResponse{Code: code, Body: body}
}

// ErrorHandler writes err to w. result holds whatever the service produced
// before failing.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error, result *ImplResponse)

// Register adds the routes of every router to r.
func Register(r chi.Router, routers ...Router) {
	for _, api := range routers {
		for _, rt := range api.Routes() {
			r.Method(rt.Method, rt.Pattern, rt.HandlerFunc)
		}
	}
}

// EncodeJSONResponse encodes i as JSON with status, 200 OK when status is nil.
func EncodeJSONResponse(i interface{}, status *int, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if status != nil {
		w.WriteHeader(*status)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if i == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(i)
}

// maxQueryBody bounds the accepted request body size.
const maxQueryBody = 64 << 10

// QueryRequest is the body of every query endpoint.
type QueryRequest struct {
	Query string `json:"query"`
}

func decodeQueryRequest(w http.ResponseWriter, r *http.Request) (QueryRequest, error) {
	var req QueryRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, fmt.Errorf("request body too large: %w", err)
		}
		return req, common.NewErrBadRequest(fmt.Sprintf("read request body: %v", err))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, common.NewErrBadRequest("request body is empty")
	}
	if err := common.UnmarshalAndDisallowUnknownFields(body, &req); err != nil {
		return req, common.NewErrBadRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Query == "" {
		return req, common.NewErrBadRequest("query must not be empty")
	}
	return req, nil
}

// DefaultErrorHandler maps EPQL errors to JSON error bodies. Errors caused by
// the query text answer 400, configuration and backend failures 500.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error, _ *ImplResponse) {
	status := http.StatusInternalServerError
	code := epqlerrors.CodeOf(err)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
		code = "EPQL-REQUEST-TOOLARGE"
	case common.IsErrBadRequest(err):
		status = http.StatusBadRequest
		code = "EPQL-REQUEST-INVALID"
	case common.IsErrNotFound(err):
		status = http.StatusNotFound
		code = "EPQL-REQUEST-NOTFOUND"
	case epqlerrors.IsClientError(err):
		status = http.StatusBadRequest
	}

	correlationID := common.CorrelationID(r)
	w.Header().Set(common.CorrelationHeader, correlationID)
	messageType := "Error"
	if status >= http.StatusInternalServerError {
		messageType = "Exception"
	}
	common.WriteError(w, status, common.NewErrorHandler(messageType, err, code, correlationID, common.GetCurrentTimestamp()))
}
