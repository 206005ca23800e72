package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent intents configuration stored as
// config.toml in the .intents/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	API        APIConfig        `toml:"api"`
	Client     ClientConfig     `toml:"client"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Classifier ClassifierConfig `toml:"classifier"`
	Snapshot   SnapshotConfig   `toml:"snapshot"`
	Source     SourceConfig     `toml:"source"`
	Events     EventsConfig     `toml:"events"`
	MCP        MCPConfig        `toml:"mcp"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to the running
// API server (e.g. intents query). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	Timeout    string `toml:"timeout,omitempty"`
}

// ClassifierConfig holds store and reload settings.
type ClassifierConfig struct {
	// Normalize is a pointer so an explicit false survives default merging.
	Normalize         *bool `toml:"normalize,omitempty"`
	ReloadConcurrency uint  `toml:"reload_concurrency,omitempty"`
}

// SnapshotConfig selects where the store is persisted.
type SnapshotConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Timeout  string `toml:"timeout,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// SourceConfig selects the relational reload source. An empty provider
// disables reload.
type SourceConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EventsConfig selects the event stream trained events are published to.
// An empty provider disables publishing.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Enabled *bool `toml:"enabled,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) **bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == nil {
				return ""
			}
			return strconv.FormatBool(**field(c))
		},
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = &b
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen":         stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target":  stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions",
		func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.timeout": durationKey("embedding.timeout",
		func(c *Config) *string { return &c.Embedding.Timeout }),
	"classifier.normalize": boolKey("classifier.normalize",
		func(c *Config) **bool { return &c.Classifier.Normalize }),
	"classifier.reload_concurrency": uintKey("classifier.reload_concurrency",
		func(c *Config) *uint { return &c.Classifier.ReloadConcurrency }),
	"snapshot.provider": stringKey(func(c *Config) *string { return &c.Snapshot.Provider }),
	"snapshot.target":   stringKey(func(c *Config) *string { return &c.Snapshot.Target }),
	"snapshot.timeout": durationKey("snapshot.timeout",
		func(c *Config) *string { return &c.Snapshot.Timeout }),
	"snapshot.api_key": stringKey(func(c *Config) *string { return &c.Snapshot.APIKey }),
	"source.provider":  stringKey(func(c *Config) *string { return &c.Source.Provider }),
	"source.target":    stringKey(func(c *Config) *string { return &c.Source.Target }),
	"events.provider":  stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = nil
			for b := range strings.SplitSeq(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					c.Events.Brokers = append(c.Events.Brokers, b)
				}
			}
			return nil
		},
	},
	"events.topic": stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"mcp.enabled": boolKey("mcp.enabled",
		func(c *Config) **bool { return &c.MCP.Enabled }),
}

// orderedConfigKeys lists configKeys in TOML section order.
var orderedConfigKeys = []string{
	"api.listen",
	"client.api_target",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.timeout",
	"classifier.normalize",
	"classifier.reload_concurrency",
	"snapshot.provider",
	"snapshot.target",
	"snapshot.timeout",
	"snapshot.api_key",
	"source.provider",
	"source.target",
	"events.provider",
	"events.brokers",
	"events.topic",
	"mcp.enabled",
}
