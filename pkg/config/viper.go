package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/intents/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the INTENTS_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (INTENTS_API_LISTEN, INTENTS_SNAPSHOT_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: INTENTS_API_LISTEN, INTENTS_SOURCE_TARGET, etc.
	v.SetEnvPrefix("INTENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)

	// Classifier
	v.SetDefault("classifier.normalize", *d.Classifier.Normalize)
	v.SetDefault("classifier.reload_concurrency", d.Classifier.ReloadConcurrency)

	// Snapshot
	v.SetDefault("snapshot.provider", d.Snapshot.Provider)
	v.SetDefault("snapshot.target", d.Snapshot.Target)
	v.SetDefault("snapshot.timeout", d.Snapshot.Timeout)
	v.SetDefault("snapshot.api_key", d.Snapshot.APIKey)

	// Source
	v.SetDefault("source.provider", d.Source.Provider)
	v.SetDefault("source.target", d.Source.Target)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// MCP
	v.SetDefault("mcp.enabled", *d.MCP.Enabled)
}

// FromViper materializes the effective configuration (flags, env, file,
// defaults) held by v.
func FromViper(v *viper.Viper) *Config {
	normalize := v.GetBool("classifier.normalize")
	mcpEnabled := v.GetBool("mcp.enabled")

	return &Config{
		Version: v.GetInt("version"),
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			Timeout:    v.GetString("embedding.timeout"),
		},
		Classifier: ClassifierConfig{
			Normalize:         &normalize,
			ReloadConcurrency: v.GetUint("classifier.reload_concurrency"),
		},
		Snapshot: SnapshotConfig{
			Provider: v.GetString("snapshot.provider"),
			Target:   v.GetString("snapshot.target"),
			Timeout:  v.GetString("snapshot.timeout"),
			APIKey:   v.GetString("snapshot.api_key"),
		},
		Source: SourceConfig{
			Provider: v.GetString("source.provider"),
			Target:   v.GetString("source.target"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetStringSlice("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		MCP: MCPConfig{
			Enabled: &mcpEnabled,
		},
	}
}
