package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on both "intents query" and "intents reload").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "api.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen         = "api-listen"
	FlagAPITarget         = "api-target"
	FlagEmbeddingProv     = "embedding-provider"
	FlagEmbeddingTgt      = "embedding-target"
	FlagEmbeddingModel    = "embedding-model"
	FlagEmbeddingDims     = "embedding-dimensions"
	FlagEmbeddingTimeout  = "embedding-timeout"
	FlagNormalize         = "normalize"
	FlagReloadConcurrency = "reload-concurrency"
	FlagSnapshotProv      = "snapshot-provider"
	FlagSnapshotTgt       = "snapshot-target"
	FlagSourceProv        = "source-provider"
	FlagSourceTgt         = "source-target"
	FlagEventsProv        = "events-provider"
	FlagEventsBrokers     = "events-brokers"
	FlagEventsTopic       = "events-topic"
	FlagMCPEnabled        = "mcp"
)

// Flags is the default registry shared by every intents command.
var Flags = FlagSet{
	FlagAPIListen:         {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:         {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "Intents API server URL"},
	FlagEmbeddingProv:     {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider type (e.g., ollama)"},
	FlagEmbeddingTgt:      {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:    {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:     {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagEmbeddingTimeout:  {Name: "embedding-timeout", ViperKey: "embedding.timeout", Description: "Timeout for a single embedding call"},
	FlagNormalize:         {Name: "normalize", ViperKey: "classifier.normalize", Description: "Store an accent-stripped companion embedding per question"},
	FlagReloadConcurrency: {Name: "reload-concurrency", ViperKey: "classifier.reload_concurrency", Description: "Systems embedded in parallel during reload"},
	FlagSnapshotProv:      {Name: "snapshot-provider", ViperKey: "snapshot.provider", Description: "Snapshot provider (file, sqlite, postgres, qdrant)"},
	FlagSnapshotTgt:       {Name: "snapshot-target", ViperKey: "snapshot.target", Description: "Snapshot path, DSN, or address"},
	FlagSourceProv:        {Name: "source-provider", ViperKey: "source.provider", Description: "Reload source provider (postgres, sqlite); empty disables reload"},
	FlagSourceTgt:         {Name: "source-target", ViperKey: "source.target", Description: "Reload source DSN or database path"},
	FlagEventsProv:        {Name: "events-provider", ViperKey: "events.provider", Description: "Event stream provider (kafka); empty disables publishing"},
	FlagEventsBrokers:     {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma-separated Kafka broker addresses"},
	FlagEventsTopic:       {Name: "events-topic", ViperKey: "events.topic", Description: "Topic trained events are published to"},
	FlagMCPEnabled:        {Name: "mcp", ViperKey: "mcp.enabled", Description: "Serve MCP tools at /mcp"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a string slice flag on cmd from the given FlagSet.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *[]string) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultStringSlice(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringSliceVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringSliceVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}

// defaultStringSlice returns the default string slice for a viper key from NewDefaultConfig.
func defaultStringSlice(viperKey string) []string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetStringSlice(viperKey)
}
