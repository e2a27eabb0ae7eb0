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

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/bootstrap"
	"github.com/epcommerce/epql-go-components/internal/epql/engine"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
	"github.com/epcommerce/epql-go-components/internal/epql/parser"
)

// NewParseCommand creates the parse command. It needs no configuration.
func NewParseCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a query and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parser.Parse(args[0])
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"entity": q.Entity,
					"epql":   q.String(),
					"leaves": leafCount(q.Where),
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), q.String())
			return err
		},
	}
}

func leafCount(t ast.Term) int {
	if t == nil {
		return 0
	}
	return len(ast.Leaves(t))
}

// NewExplainCommand creates the explain command. It compiles against the
// configured entities without connecting to any backend.
func NewExplainCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <query>",
		Short: "Compile a query and print the native backend query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			e, err := bootstrap.Compiler(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			explained, err := e.Explain(args[0])
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), explained)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "-- %s (%s, %s)\n%s\n",
				explained.QueryType.Entity, explained.Backend, explained.QueryType.FetchType, explained.Native)
			return err
		},
	}
}

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Fetch string // auto | uids | guids | compound
}

// NewSearchCommand creates the search command. It connects the enabled
// backends and runs the query.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a query and print the matching identifiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			e, backends, err := bootstrap.NewEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backends.Close(cmd.Context())
			return runSearch(cmd, e, opts.Fetch, args[0], opts.Format)
		},
	}

	cmd.Flags().StringVar(&opts.Fetch, "fetch", "auto", "expected identifiers (auto|uids|guids|compound)")
	return cmd
}

func runSearch(cmd *cobra.Command, e *engine.Engine, fetch, query, format string) error {
	var (
		queryType engine.QueryType
		lines     []string
		results   any
	)
	switch strings.ToLower(fetch) {
	case "auto":
		r, err := e.Run(cmd.Context(), query)
		if err != nil {
			return err
		}
		queryType, results = r.QueryType, r.Identifiers()
		lines = resultLines(r.Set)
	case "uids":
		r, err := engine.Search[int64](cmd.Context(), e, query)
		if err != nil {
			return err
		}
		queryType, results = r.QueryType, r.Results
		for _, uid := range r.Results {
			lines = append(lines, fmt.Sprint(uid))
		}
	case "guids":
		r, err := engine.Search[string](cmd.Context(), e, query)
		if err != nil {
			return err
		}
		queryType, results, lines = r.QueryType, r.Results, r.Results
	case "compound":
		r, err := engine.Search[native.CompoundGUID](cmd.Context(), e, query)
		if err != nil {
			return err
		}
		queryType, results = r.QueryType, r.Results
		for _, id := range r.Results {
			lines = append(lines, id.String())
		}
	default:
		return fmt.Errorf("invalid fetch %q: must be one of auto, uids, guids, compound", fetch)
	}

	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"queryType": queryType, "results": results})
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return err
		}
	}
	return nil
}

func resultLines(rs *native.ResultSet) []string {
	lines := make([]string, 0, rs.Len())
	switch rs.FetchType {
	case native.FetchUID:
		for _, uid := range rs.UIDs {
			lines = append(lines, fmt.Sprint(uid))
		}
	case native.FetchCompoundGUID:
		for _, id := range rs.Compound {
			lines = append(lines, id.String())
		}
	default:
		lines = append(lines, rs.GUIDs...)
	}
	return lines
}

// NewEntitiesCommand creates the entities command.
func NewEntitiesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the configured entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			reg, err := bootstrap.Registry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			type entity struct {
				Name      string           `json:"name"`
				Backend   native.Backend   `json:"backend"`
				FetchType native.FetchType `json:"fetchType"`
			}
			out := make([]entity, 0, len(reg.Entities()))
			for _, name := range reg.Entities() {
				c, _ := reg.ConfigurationFor(name)
				out = append(out, entity{Name: c.Name(), Backend: c.Backend(), FetchType: c.FetchType()})
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			for _, e := range out {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-10s %s\n", e.Name, e.Backend, e.FetchType); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
