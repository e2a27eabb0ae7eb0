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

// Package testenv runs integration suites against a service started with
// docker compose (or podman compose) and provides small HTTP helpers for the
// tests that call it.
package testenv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"testing"
	"time"
)

// ComposeOptions configures RunComposeTestMain.
type ComposeOptions struct {
	ComposeFile string

	UpArgs   []string
	DownArgs []string

	// SkipDown leaves the stack running after the tests for inspection.
	SkipDown bool
	// FailIfComposeMissing turns a missing compose engine into a failure
	// instead of running the tests against whatever is already listening.
	FailIfComposeMissing bool

	HealthURL     string
	HealthTimeout time.Duration
}

// RunComposeTestMain starts the compose stack, waits for HealthURL, runs the
// tests and tears the stack down again. Use it from TestMain.
func RunComposeTestMain(m *testing.M, options ComposeOptions) int {
	opts := normalizeComposeOptions(options)

	engine, baseArgs, err := FindCompose()
	if err != nil {
		fmt.Println("compose engine not found:", err)
		if opts.FailIfComposeMissing {
			return 1
		}
		return m.Run()
	}

	run := func(args ...string) error {
		cmdArgs := append([]string{}, baseArgs...)
		cmdArgs = append(cmdArgs, "-f", opts.ComposeFile)
		cmdArgs = append(cmdArgs, args...)
		return RunCompose(context.Background(), engine, cmdArgs...)
	}
	down := func() {
		if opts.SkipDown {
			return
		}
		fmt.Println("Stopping Docker Compose...")
		if err := run(opts.DownArgs...); err != nil {
			fmt.Printf("Failed to stop Docker Compose: %v\n", err)
		}
	}

	fmt.Println("Starting Docker Compose...")
	if err := run(opts.UpArgs...); err != nil {
		fmt.Printf("Failed to start Docker Compose: %v\n", err)
		return 1
	}

	if opts.HealthURL != "" {
		if err := WaitForHealth(opts.HealthURL, opts.HealthTimeout); err != nil {
			fmt.Printf("Health check failed: %v\n", err)
			down()
			return 1
		}
	}

	code := m.Run()
	down()
	return code
}

func normalizeComposeOptions(options ComposeOptions) ComposeOptions {
	if options.ComposeFile == "" {
		options.ComposeFile = "docker_compose/docker_compose.yml"
	}
	if len(options.UpArgs) == 0 {
		options.UpArgs = []string{"up", "-d", "--build"}
	}
	if len(options.DownArgs) == 0 {
		options.DownArgs = []string{"down", "-v"}
	}
	if options.HealthTimeout <= 0 {
		options.HealthTimeout = 2 * time.Minute
	}
	return options
}

// FindCompose returns the compose engine binary and its leading arguments.
func FindCompose() (bin string, args []string, err error) {
	if _, e := exec.LookPath("docker"); e == nil {
		return "docker", []string{"compose"}, nil
	}
	if _, e := exec.LookPath("podman"); e == nil {
		return "podman", []string{"compose"}, nil
	}
	return "", nil, errors.New("neither docker nor podman found on PATH")
}

// RunCompose runs the engine with args, streaming its output.
func RunCompose(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// WaitForHealth polls url until it answers 200 or timeout passes.
func WaitForHealth(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := time.Second
	client := HTTPClient()

	for {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("service not healthy at %s within %s", url, timeout)
		}
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff += 500 * time.Millisecond
		}
	}
}

// HTTPClient is the client used by the helpers.
func HTTPClient() *http.Client { return &http.Client{Timeout: 20 * time.Second} }

// PostJSONRaw posts body as JSON and returns the response body and status.
func PostJSONRaw(url string, body any) (data []byte, status int, err error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	resp, err := HTTPClient().Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err = io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

// PostJSONExpect posts body and fails t unless the status is expect.
func PostJSONExpect(t testing.TB, url string, body any, expect int) []byte {
	t.Helper()
	data, st, err := PostJSONRaw(url, body)
	if err != nil {
		t.Fatalf("POST %s error: %v", url, err)
	}
	if st != expect {
		t.Fatalf("POST %s expected %d got %d: %s", url, expect, st, string(data))
	}
	return data
}

// GetExpect fetches url and fails t unless the status is expect.
func GetExpect(t testing.TB, url string, expect int) []byte {
	t.Helper()
	resp, err := HTTPClient().Get(url)
	if err != nil {
		t.Fatalf("GET %s error: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("GET %s read error: %v", url, err)
	}
	if resp.StatusCode != expect {
		t.Fatalf("GET %s expected %d got %d: %s", url, expect, resp.StatusCode, string(data))
	}
	return data
}
