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

// Package bootstrap assembles an EPQL engine from the service configuration:
// entity registry, dialects and one executor per enabled backend.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/olivere/elastic/v7"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/epcommerce/epql-go-components/internal/common"
	"github.com/epcommerce/epql-go-components/internal/common/logger"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/document"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/relational"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/search"
	"github.com/epcommerce/epql-go-components/internal/epql/configuration"
	"github.com/epcommerce/epql-go-components/internal/epql/engine"
	"github.com/epcommerce/epql-go-components/internal/epql/entities"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
	"github.com/epcommerce/epql-go-components/internal/epql/querybuilder"
)

// Registry loads the entity definitions named by cfg.EPQL.EntitiesPath, a
// local file or an s3:// URI, or the built-in commerce entities when no path
// is configured.
func Registry(ctx context.Context, cfg *common.Config) (*configuration.Registry, error) {
	path := cfg.EPQL.EntitiesPath
	if path == "" {
		return entities.DefaultRegistry()
	}
	configs, err := loadDefinitions(ctx, cfg, path)
	if err != nil {
		return nil, err
	}
	logger.LogInfo(fmt.Sprintf("loaded %d entity definitions from %s", len(configs), path))
	return configuration.NewRegistry(configs...)
}

// Builder creates the query builder with all three dialects.
func Builder(cfg common.EPQLConfig) (*querybuilder.Builder, error) {
	mode, err := search.ParseNegationMode(cfg.SearchNegation)
	if err != nil {
		return nil, fmt.Errorf("epql.searchNegation: %w", err)
	}
	return querybuilder.New(cfg.DefaultLimit, relational.NewDialect(), search.NewDialect(mode), document.NewDialect()), nil
}

// Compiler returns an engine without executors. It compiles and explains
// queries but cannot run them.
func Compiler(ctx context.Context, cfg *common.Config) (*engine.Engine, error) {
	reg, err := Registry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	builder, err := Builder(cfg.EPQL)
	if err != nil {
		return nil, err
	}
	return engine.New(reg, builder), nil
}

// Backends holds the clients opened for the enabled backends.
type Backends struct {
	DB      *sql.DB
	Elastic *elastic.Client
	Mongo   *mongo.Client
	MongoDB *mongo.Database
}

// Executors returns one executor per connected backend.
func (b *Backends) Executors() []native.Executor {
	var out []native.Executor
	if b.DB != nil {
		out = append(out, relational.NewExecutor(b.DB))
	}
	if b.Elastic != nil {
		out = append(out, search.NewExecutor(b.Elastic))
	}
	if b.MongoDB != nil {
		out = append(out, document.NewExecutor(b.MongoDB))
	}
	return out
}

// Close releases every opened client.
func (b *Backends) Close(ctx context.Context) {
	if b.DB != nil {
		logger.LogError("close postgres", b.DB.Close())
	}
	if b.Elastic != nil {
		b.Elastic.Stop()
	}
	if b.Mongo != nil {
		logger.LogError("close mongo", b.Mongo.Disconnect(ctx))
	}
}

// Connect opens the enabled backends concurrently. On failure every client
// opened so far is closed again.
func Connect(ctx context.Context, cfg *common.Config) (*Backends, error) {
	b := &Backends{}
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Postgres.Enabled {
		g.Go(func() error {
			db, err := common.InitializeDatabase(gctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			b.DB = db
			return nil
		})
	}
	if cfg.Elastic.Enabled {
		g.Go(func() error {
			client, err := common.InitializeElastic(cfg.Elastic)
			if err != nil {
				return err
			}
			b.Elastic = client
			return nil
		})
	}
	if cfg.Mongo.Enabled {
		g.Go(func() error {
			client, db, err := common.InitializeMongo(gctx, cfg.Mongo)
			if err != nil {
				return err
			}
			b.Mongo, b.MongoDB = client, db
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		b.Close(context.Background())
		return nil, err
	}
	return b, nil
}

// NewEngine builds the registry and dialects, connects the enabled backends
// and returns a ready engine. The caller closes the returned Backends.
func NewEngine(ctx context.Context, cfg *common.Config) (*engine.Engine, *Backends, error) {
	reg, err := Registry(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	builder, err := Builder(cfg.EPQL)
	if err != nil {
		return nil, nil, err
	}
	backends, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	executors := backends.Executors()
	connected := make(map[native.Backend]bool, len(executors))
	for _, ex := range executors {
		connected[ex.Backend()] = true
	}
	for _, backend := range reg.Backends() {
		if !connected[backend] {
			logger.LogWarning(fmt.Sprintf("backend %s is not enabled, its entities can be explained but not searched", backend))
		}
	}
	logger.LogInfo(fmt.Sprintf("%d entities registered: %v", len(reg.Entities()), reg.Entities()))

	return engine.New(reg, builder, executors...), backends, nil
}
