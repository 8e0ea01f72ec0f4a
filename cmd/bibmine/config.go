// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/bibmine/internal/auth"
	"github.com/pdiddy/bibmine/internal/search"
	"github.com/pdiddy/bibmine/internal/secrets"
	"github.com/pdiddy/bibmine/pkg/types"
)

const envPrefix = "BIBMINE"

// configureViper enables BIBMINE_* environment overrides and registers
// defaults so every key is visible to Unmarshal.
func configureViper(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.path", "data/bibmine.db")
	v.SetDefault("store.busy_timeout", 5*time.Second)

	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.user_agent", "bibmine/"+version)
	v.SetDefault("search.max_retries", 5)
	v.SetDefault("search.requests_per_second", 1.0)
	v.SetDefault("search.max_results", 20)
	v.SetDefault("search.backends", []string{
		search.BackendArxiv,
		search.BackendOpenAlex,
		search.BackendSemanticScholar,
	})
	v.SetDefault("search.openalex_email", "")
	v.SetDefault("search.semantic_scholar_api_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "bibmine")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.metric_interval", 30*time.Second)
}

// loadConfig decodes v into a Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	for i, b := range c.Search.Backends {
		c.Search.Backends[i] = strings.TrimSpace(b)
	}
	return c, nil
}

// applySecrets fills credentials the config left empty from the secrets
// directory and appends token bindings from the api-tokens file.
func applySecrets(c *types.Config, s secrets.Set) error {
	if c.Search.OpenAlexEmail == "" {
		c.Search.OpenAlexEmail, _ = s.Get(secrets.OpenAlexEmail)
	}
	if c.Search.SemanticScholarAPIKey == "" {
		c.Search.SemanticScholarAPIKey, _ = s.Get(secrets.SemanticScholarAPIKey)
	}
	if data, ok := s.Get(secrets.APITokens); ok {
		tokens, err := auth.ParseTokens(data)
		if err != nil {
			return fmt.Errorf("parsing %s secret: %w", secrets.APITokens, err)
		}
		c.Auth.Tokens = append(c.Auth.Tokens, tokens...)
	}
	return nil
}
