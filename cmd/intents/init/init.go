// Package initcmder provides the init command for initializing a local
// .intents directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/intents/pkg/config"
)

const (
	dirName = ".intents"

	remoteFetchTimeout = 15 * time.Second
)

const initLongDesc string = `Initialize a new .intents/ directory in the current working directory.

Creates a local .intents/ directory that takes precedence over the default
~/.intents/ directory for configuration and the model snapshot, and writes a
config.toml into it.

Use --preset to start from a deployment preset (local, sqlite, postgres,
qdrant) or from a config.toml fetched over HTTP(S).

Examples:
  intents init
  intents init --preset postgres
  intents init --preset https://example.com/intents/config.toml`

const initShortDesc string = "Initialize a local .intents/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Preset name or URL of a config.toml to initialize from")

	return cmd
}

func (c *initCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	cfg, err := c.resolveConfig(cmd.Context())
	if err != nil {
		return err
	}

	info, statErr := os.Stat(dir)
	exists := statErr == nil && info.IsDir()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .intents directory: %w", err)
	}

	configPath := filepath.Join(dir, "config.toml")
	_, cfgErr := os.Stat(configPath)
	// Re-running without a preset leaves an existing config alone.
	if c.preset != "" || os.IsNotExist(cfgErr) {
		configer, err := config.NewConfiger(dir)
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}
		if err := configer.SaveConfig(cfg); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	}

	if exists {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
		return nil
	}

	fmt.Fprintf(out, "Initialized .intents directory: %s\n", dir)
	return nil
}

func (c *initCommander) resolveConfig(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchRemoteConfig(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, remoteFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
