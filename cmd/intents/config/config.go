// Package configcmder provides the config command for managing persistent
// intents configuration stored in the .intents/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent intents configuration.

Configuration is stored as config.toml in the .intents/ directory and provides
default values for command flags. CLI flags and INTENTS_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, client.api_target,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.timeout,
  classifier.normalize, classifier.reload_concurrency,
  snapshot.provider, snapshot.target, snapshot.timeout, snapshot.api_key,
  source.provider, source.target,
  events.provider, events.brokers, events.topic,
  mcp.enabled

Use subcommands to get, set, or list configuration values:
  intents config set <key> <value>    Set a configuration value
  intents config get <key>...         Get configuration values
  intents config list                 List configuration values by section

Examples:
  intents config set snapshot.provider sqlite
  intents config set events.brokers kafka-1:9092,kafka-2:9092
  intents config get embedding.model
  intents config list`

const configShortDesc string = "Manage persistent intents configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
