// Package config provides configuration management for the nebula-ml service.
//
// # Key Features
//
// - ServiceConfig: one structure covering store, cache, server, logging and observability
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults through NewServiceConfig and validation through Validate
//
// # Usage
//
//	cfg := config.NewServiceConfig()
//	if err := config.Load("nebula-ml.yaml", cfg); err != nil {
//		log.Fatal(err)
//	}
//
// # Environment Variables
//
// Any value may reference the environment:
//
//	store:
//	  backend: postgres
//	  postgres_dsn: ${NEBULA_ML_PG_DSN}
//
// Command line flags and NEBULA_ML_* variables bound by the CLI take
// precedence over file values.
package config
