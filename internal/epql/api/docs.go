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
	_ "embed"
	"net/http"
	"path"

	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// DocumentationController serves the OpenAPI description of the query API and
// a Swagger UI that renders it.
type DocumentationController struct {
	documentURL string
}

// NewDocumentationController creates a controller for an API mounted at base.
func NewDocumentationController(base string) *DocumentationController {
	return &DocumentationController{documentURL: path.Join("/", base, "openapi.yaml")}
}

// Routes returns all the api routes for the DocumentationController.
func (c *DocumentationController) Routes() Routes {
	return Routes{
		"GetOpenAPI": Route{
			http.MethodGet,
			"/openapi.yaml",
			c.GetOpenAPI,
		},
		"GetSwaggerUI": Route{
			http.MethodGet,
			"/swagger/*",
			httpSwagger.Handler(httpSwagger.URL(c.documentURL)),
		},
	}
}

// GetOpenAPI - returns the OpenAPI document
func (c *DocumentationController) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}
