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

// Command epqlservice starts the EPQL query HTTP service.
//
// It loads configuration, builds the entity registry, connects the enabled
// backends (PostgreSQL, Elasticsearch, MongoDB), registers the query API
// routes and serves them. Query routes require an OIDC bearer token when
// oidc.enabled is set. CORS and a health endpoint are enabled via common
// helpers.
//
// Flags:
//
//	-config  Path to service configuration file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/epcommerce/epql-go-components/internal/auth"
	"github.com/epcommerce/epql-go-components/internal/common"
	"github.com/epcommerce/epql-go-components/internal/epql/api"
	"github.com/epcommerce/epql-go-components/internal/epql/bootstrap"
)

func runServer(ctx context.Context, configPath string) error {
	log.Default().Println("Loading EPQL Service...")
	log.Default().Println("Config Path:", configPath)

	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		log.Printf("❌ Failed to load config: %v", err)
		return err
	}

	// === Main Router ===
	r := chi.NewRouter()

	// --- CORS ---
	common.AddCors(r, cfg)

	// --- Health Endpoint (public) ---
	common.AddHealthEndpoint(r, cfg)

	// === Engine and backends ===
	e, backends, err := bootstrap.NewEngine(ctx, cfg)
	if err != nil {
		log.Printf("❌ Backend setup failed: %v", err)
		return err
	}
	defer backends.Close(context.Background())
	log.Println("✅ EPQL engine ready")

	queryCtrl := api.NewQueryAPIController(api.NewQueryAPIService(e))

	base := common.NormalizeBasePath(cfg.Server.ContextPath)

	// === API Subrouter ===
	apiRouter := chi.NewRouter()
	if cfg.OIDC.Enabled {
		verifier, err := auth.NewOIDC(ctx, cfg.OIDC)
		if err != nil {
			log.Printf("❌ OIDC setup failed: %v", err)
			return err
		}
		apiRouter.Group(func(protected chi.Router) {
			protected.Use(verifier.Middleware)
			api.Register(protected, queryCtrl)
		})
	} else {
		log.Println("⚠️ OIDC disabled, query endpoints are public")
		api.Register(apiRouter, queryCtrl)
	}
	// --- Documentation (public) ---
	api.Register(apiRouter, api.NewDocumentationController(base))
	r.Mount(base, apiRouter)

	// === Start Server ===
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("▶️ EPQL Service listening on %s (contextPath=%q)\n", addr, cfg.Server.ContextPath)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := ""
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()
	if err := runServer(ctx, configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
