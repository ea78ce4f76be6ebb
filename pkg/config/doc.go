// Package config loads application configuration from environment variables.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for struct-tag parsing. Load caches one parsed
// value per configuration type for the life of the process; Parse bypasses
// the cache and Reset clears it, which keeps tests independent.
//
// Packages in this module declare their own tagged Config structs
// (authapi.Config, session.Config, redis.Config, httpserver.Config) and the
// binaries compose them:
//
//	var cfg struct {
//	    API     authapi.Config
//	    Session session.Config
//	}
//	config.MustLoad(&cfg)
package config
