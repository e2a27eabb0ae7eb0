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

// Package common provides configuration management, backend client
// initialization and HTTP endpoint utilities for the EPQL components. It
// includes support for YAML configuration files, environment variable
// overrides, CORS setup, health endpoints, and PostgreSQL, Elasticsearch,
// MongoDB and S3 clients.
// nolint:all
package common

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// Config represents the complete configuration structure of the EPQL service.
// It combines server settings, the three backend connections, CORS policy
// and the query compiler settings.
type Config struct {
	Server     ServerConfig   `mapstructure:"server" json:"server"`     // HTTP server configuration
	Postgres   PostgresConfig `mapstructure:"postgres" json:"postgres"` // PostgreSQL database settings
	Elastic    ElasticConfig  `mapstructure:"elastic" json:"elastic"`   // Elasticsearch settings
	Mongo      MongoConfig    `mapstructure:"mongo" json:"mongo"`       // MongoDB settings
	S3         S3Config       `mapstructure:"s3" json:"s3"`             // Object store for s3:// entity definitions
	OIDC       OIDCConfig     `mapstructure:"oidc" json:"oidc"`         // Bearer token verification for the query API
	CorsConfig CorsConfig     `mapstructure:"cors" json:"cors"`         // CORS policy configuration
	EPQL       EPQLConfig     `mapstructure:"epql" json:"epql"`         // Query compiler settings
}

// ServerConfig contains HTTP server configuration parameters.
type ServerConfig struct {
	Host        string `mapstructure:"host" json:"host"`               // Listen address
	Port        int    `mapstructure:"port" json:"port"`               // HTTP server port (default: 5080)
	ContextPath string `mapstructure:"contextPath" json:"contextPath"` // Base path for all endpoints
}

// PostgresConfig contains PostgreSQL database connection parameters.
// It includes connection pooling settings for optimal performance.
type PostgresConfig struct {
	Enabled                bool   `mapstructure:"enabled" json:"enabled"`                               // Connect at startup
	Driver                 string `mapstructure:"driver" json:"driver"`                                 // database/sql driver: pq or pgx
	Host                   string `mapstructure:"host" json:"host"`                                     // Database host address
	Port                   int    `mapstructure:"port" json:"port"`                                     // Database port (default: 5432)
	User                   string `mapstructure:"user" json:"user"`                                     // Database username
	Password               string `mapstructure:"password" json:"password"`                             // Database password
	DBName                 string `mapstructure:"dbname" json:"dbname"`                                 // Database name
	MaxOpenConnections     int    `mapstructure:"maxOpenConnections" json:"maxOpenConnections"`         // Maximum open connections
	MaxIdleConnections     int    `mapstructure:"maxIdleConnections" json:"maxIdleConnections"`         // Maximum idle connections
	ConnMaxLifetimeMinutes int    `mapstructure:"connMaxLifetimeMinutes" json:"connMaxLifetimeMinutes"` // Connection lifetime in minutes
}

// ElasticConfig contains the Elasticsearch cluster settings.
type ElasticConfig struct {
	Enabled  bool     `mapstructure:"enabled" json:"enabled"`   // Connect at startup
	URLs     []string `mapstructure:"urls" json:"urls"`         // Node URLs
	Username string   `mapstructure:"username" json:"username"` // Basic auth user
	Password string   `mapstructure:"password" json:"password"` // Basic auth password
	Sniff    bool     `mapstructure:"sniff" json:"sniff"`       // Discover cluster nodes
}

// MongoConfig contains the MongoDB connection settings.
type MongoConfig struct {
	Enabled        bool   `mapstructure:"enabled" json:"enabled"`               // Connect at startup
	URI            string `mapstructure:"uri" json:"uri"`                       // Connection string
	Database       string `mapstructure:"database" json:"database"`             // Database holding entity collections
	TimeoutSeconds int    `mapstructure:"timeoutSeconds" json:"timeoutSeconds"` // Connect and ping timeout
}

// S3Config contains the object store settings used when the entity
// definitions path is an s3:// URI. Empty credentials use the default AWS
// credential chain.
type S3Config struct {
	Region          string `mapstructure:"region" json:"region"`                   // AWS region
	Endpoint        string `mapstructure:"endpoint" json:"endpoint"`               // Custom endpoint, e.g. MinIO
	AccessKeyID     string `mapstructure:"accessKeyId" json:"accessKeyId"`         // Static access key
	SecretAccessKey string `mapstructure:"secretAccessKey" json:"secretAccessKey"` // Static secret key
	UsePathStyle    bool   `mapstructure:"usePathStyle" json:"usePathStyle"`       // Path-style addressing
}

// OIDCConfig enables bearer token checks on the query endpoints. Health and
// API documentation stay public.
type OIDCConfig struct {
	Enabled  bool     `mapstructure:"enabled" json:"enabled"`   // Require tokens
	Issuer   string   `mapstructure:"issuer" json:"issuer"`     // Provider URL used for discovery
	Audience string   `mapstructure:"audience" json:"audience"` // Expected aud claim
	Scopes   []string `mapstructure:"scopes" json:"scopes"`     // Scopes every token must carry
}

// CorsConfig contains Cross-Origin Resource Sharing (CORS) policy settings.
type CorsConfig struct {
	AllowedOrigins   []string `mapstructure:"allowedOrigins" json:"allowedOrigins"`     // Allowed origin domains
	AllowedMethods   []string `mapstructure:"allowedMethods" json:"allowedMethods"`     // Allowed HTTP methods
	AllowedHeaders   []string `mapstructure:"allowedHeaders" json:"allowedHeaders"`     // Allowed request headers
	AllowCredentials bool     `mapstructure:"allowCredentials" json:"allowCredentials"` // Allow credentials in requests
}

// EPQLConfig contains the query compiler settings.
type EPQLConfig struct {
	EntitiesPath   string `mapstructure:"entitiesPath" json:"entitiesPath"`     // YAML entity definitions; empty uses built-ins
	DefaultLimit   int    `mapstructure:"defaultLimit" json:"defaultLimit"`     // Limit applied when a query has none; 0 = unlimited
	SearchNegation string `mapstructure:"searchNegation" json:"searchNegation"` // matchAllExcept | mustNot
}

// LoadConfig loads the configuration from YAML files and environment variables.
//
// The function supports multiple configuration sources with the following precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file (if provided)
// 3. Default values (lowest priority)
//
// Environment variables should use underscore notation (e.g., SERVER_PORT for server.port).
//
// Parameters:
//   - configPath: Path to the YAML configuration file. If empty, only environment
//     variables and defaults will be used.
//
// Returns:
//   - *Config: Loaded configuration structure
//   - error: Error if configuration loading fails
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		log.Printf("📁 Loading config from file: %s", configPath)
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Println("📁 No config file provided, loading from environment variables only")
	}

	// Override config with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	log.Println("✅ Configuration loaded successfully")
	PrintConfiguration(cfg)
	return cfg, nil
}

// setDefaults configures default values that let the service start against
// local development backends.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5080)
	v.SetDefault("server.contextPath", "")

	// PostgreSQL defaults
	v.SetDefault("postgres.enabled", true)
	v.SetDefault("postgres.driver", "pq")
	v.SetDefault("postgres.host", "db")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "admin")
	v.SetDefault("postgres.password", "admin123")
	v.SetDefault("postgres.dbname", "commerce")
	v.SetDefault("postgres.maxOpenConnections", 50)
	v.SetDefault("postgres.maxIdleConnections", 50)
	v.SetDefault("postgres.connMaxLifetimeMinutes", 5)

	// Elasticsearch defaults
	v.SetDefault("elastic.enabled", false)
	v.SetDefault("elastic.urls", []string{"http://localhost:9200"})
	v.SetDefault("elastic.username", "")
	v.SetDefault("elastic.password", "")
	v.SetDefault("elastic.sniff", false)

	// MongoDB defaults
	v.SetDefault("mongo.enabled", false)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "commerce")
	v.SetDefault("mongo.timeoutSeconds", 10)

	// S3 defaults
	v.SetDefault("s3.region", "eu-central-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.accessKeyId", "")
	v.SetDefault("s3.secretAccessKey", "")
	v.SetDefault("s3.usePathStyle", false)

	// OIDC defaults
	v.SetDefault("oidc.enabled", false)
	v.SetDefault("oidc.issuer", "")
	v.SetDefault("oidc.audience", "")
	v.SetDefault("oidc.scopes", []string{})

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"*"})
	v.SetDefault("cors.allowCredentials", true)

	// EPQL defaults
	v.SetDefault("epql.entitiesPath", "")
	v.SetDefault("epql.defaultLimit", 0)
	v.SetDefault("epql.searchNegation", "matchAllExcept")
}

// PrintConfiguration prints the current configuration to the console with sensitive data redacted.
//
// The output is formatted as pretty-printed JSON with the following redactions:
//   - Database host, username, and password are replaced with "****"
//   - Elasticsearch password and the MongoDB URI are replaced with "****"
//   - S3 access keys are replaced with "****"
func PrintConfiguration(cfg *Config) {
	log.Printf("📜 Loaded configuration:\n%s", redactedJSON(cfg))
}

func redactedJSON(cfg *Config) string {
	// Create a copy of the config to avoid modifying the original
	cfgCopy := *cfg

	if cfg.Postgres.Host != "" {
		cfgCopy.Postgres.Host = "****"
		cfgCopy.Postgres.User = "****"
		cfgCopy.Postgres.Password = "****"
	}
	if cfg.Elastic.Password != "" {
		cfgCopy.Elastic.Password = "****"
	}
	if cfg.Mongo.URI != "" {
		cfgCopy.Mongo.URI = "****"
	}
	if cfg.S3.SecretAccessKey != "" {
		cfgCopy.S3.AccessKeyID = "****"
		cfgCopy.S3.SecretAccessKey = "****"
	}

	configJSON, err := json.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		return fmt.Sprintf("unable to marshal configuration to JSON: %v", err)
	}
	return string(configJSON)
}

// AddCors configures Cross-Origin Resource Sharing (CORS) middleware for the router.
//
// Parameters:
//   - r: Chi router to configure with CORS middleware
//   - config: Configuration containing CORS policy settings
func AddCors(r *chi.Mux, config *Config) {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.CorsConfig.AllowedOrigins,
		AllowedMethods:   config.CorsConfig.AllowedMethods,
		AllowedHeaders:   config.CorsConfig.AllowedHeaders,
		AllowCredentials: config.CorsConfig.AllowCredentials,
	})
	r.Use(c.Handler)
}
