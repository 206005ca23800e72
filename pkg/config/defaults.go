package config

const (
	defaultAPIListen       = ":7000"
	defaultClientAPITarget = "http://localhost:7000"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "paraphrase-multilingual"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingTimeout    = "30s"

	defaultReloadConcurrency = 4

	defaultSnapshotProvider = "file"
	defaultSnapshotTimeout  = "30s"

	defaultEventsTopic = "intents.trained"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			Timeout:    defaultEmbeddingTimeout,
		},
		Classifier: ClassifierConfig{
			Normalize:         boolPtr(true),
			ReloadConcurrency: defaultReloadConcurrency,
		},
		Snapshot: SnapshotConfig{
			Provider: defaultSnapshotProvider,
			Timeout:  defaultSnapshotTimeout,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
		MCP: MCPConfig{
			Enabled: boolPtr(true),
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
