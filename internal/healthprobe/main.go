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

// Package main provides a static health probe for the EPQL service image.
//
// Without arguments it requests {contextPath}/health on the local service.
// With --explain it compiles a query through POST {contextPath}/query/explain,
// which also fails when the entity registry cannot compile the query. The
// probe accepts the wget flags used by container HEALTHCHECK lines.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort    = "5080"
	defaultTimeout = 5 * time.Second
)

type probeOptions struct {
	url     string
	explain string // EPQL query compiled instead of the health check
	quiet   bool
	spider  bool
	output  string
	debug   bool
	timeout time.Duration
}

func main() {
	options, err := parseOptions(os.Args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if options.url == "" {
		options.url = buildDefaultURL(options.explain != "")
	}

	if options.debug {
		_, _ = fmt.Fprintf(os.Stderr, "healthprobe url=%s explain=%q timeout=%s\n", options.url, options.explain, options.timeout)
	}

	if err := runProbe(options); err != nil {
		if !options.quiet {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}

func parseOptions(args []string) (probeOptions, error) {
	options := probeOptions{
		output:  "-",
		timeout: defaultTimeout,
	}

	if filepath.Base(args[0]) == "healthprobe" {
		options.quiet = true
	}

	rest := args[1:]
	for len(rest) > 0 {
		arg := rest[0]
		rest = rest[1:]

		switch {
		case arg == "--quiet" || arg == "-q":
			options.quiet = true
		case arg == "--spider":
			options.spider = true
		case arg == "--debug":
			options.debug = true
		case arg == "--explain":
			if len(rest) == 0 {
				return options, errors.New("EPQLPROBE-PARSE-MISSINGQUERY")
			}
			options.explain = rest[0]
			rest = rest[1:]
		case strings.HasPrefix(arg, "--explain="):
			options.explain = strings.TrimPrefix(arg, "--explain=")
		case arg == "--tries":
			if len(rest) == 0 {
				return options, errors.New("EPQLPROBE-PARSE-MISSINGTRIES")
			}
			rest = rest[1:]
		case strings.HasPrefix(arg, "--tries="):
			continue
		case arg == "--output-document" || arg == "-O":
			if len(rest) == 0 {
				return options, errors.New("EPQLPROBE-PARSE-MISSINGOUTPUT")
			}
			options.output = rest[0]
			rest = rest[1:]
		case strings.HasPrefix(arg, "--output-document="):
			options.output = strings.TrimPrefix(arg, "--output-document=")
		case arg == "--timeout":
			if len(rest) == 0 {
				return options, errors.New("EPQLPROBE-PARSE-MISSINGTIMEOUT")
			}
			seconds, err := strconv.Atoi(rest[0])
			if err != nil || seconds <= 0 {
				return options, errors.New("EPQLPROBE-PARSE-INVALIDTIMEOUT")
			}
			options.timeout = time.Duration(seconds) * time.Second
			rest = rest[1:]
		case strings.HasPrefix(arg, "-"):
			continue
		default:
			options.url = arg
		}
	}

	if options.explain != "" && strings.TrimSpace(options.explain) == "" {
		return options, errors.New("EPQLPROBE-PARSE-MISSINGQUERY")
	}
	if !options.spider && options.output == "" {
		options.output = "-"
	}

	return options, nil
}

// buildDefaultURL targets the local service from SERVER_PORT and
// SERVER_CONTEXTPATH, the same variables the service configuration reads.
func buildDefaultURL(explain bool) string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = defaultPort
	}
	endpoint := "/health"
	if explain {
		endpoint = "/query/explain"
	}
	contextPath := strings.TrimRight(os.Getenv("SERVER_CONTEXTPATH"), "/")
	return fmt.Sprintf("http://127.0.0.1:%s%s%s", port, contextPath, endpoint)
}

func request(client *http.Client, options probeOptions) (*http.Response, error) {
	if options.explain == "" {
		return client.Get(options.url)
	}
	body, err := json.Marshal(map[string]string{"query": options.explain})
	if err != nil {
		return nil, err
	}
	return client.Post(options.url, "application/json", strings.NewReader(string(body)))
}

func runProbe(options probeOptions) error {
	client := &http.Client{Timeout: options.timeout}

	response, err := request(client, options)
	if err != nil {
		return fmt.Errorf("EPQLPROBE-RUN-REQUESTFAILED: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("EPQLPROBE-RUN-UNHEALTHYSTATUS: %d", response.StatusCode)
	}

	if options.spider {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}

	if options.output == "-" {
		if _, err = io.Copy(os.Stdout, response.Body); err != nil {
			return fmt.Errorf("EPQLPROBE-RUN-WRITESTDOUTFAILED: %w", err)
		}
		return nil
	}

	file, err := os.Create(options.output)
	if err != nil {
		return fmt.Errorf("EPQLPROBE-RUN-CREATEOUTPUTFAILED: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err = io.Copy(file, response.Body); err != nil {
		return fmt.Errorf("EPQLPROBE-RUN-WRITEOUTPUTFAILED: %w", err)
	}
	return nil
}
