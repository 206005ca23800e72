// Package intentscmder is the root of the intents command tree.
package intentscmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/intents/cmd/intents/config"
	initcmder "github.com/papercomputeco/intents/cmd/intents/init"
	querycmder "github.com/papercomputeco/intents/cmd/intents/query"
	reloadcmder "github.com/papercomputeco/intents/cmd/intents/reload"
	servecmder "github.com/papercomputeco/intents/cmd/intents/serve"
	versioncmder "github.com/papercomputeco/intents/cmd/version"
)

const intentsLongDesc string = `Intents is a nearest-neighbor intent classifier for chatbots.

Train it with labeled example questions per chatbot system, then ask it which
intents an incoming question most likely belongs to.

Run the service using:
  intents serve                 Run the API server (REST and MCP)
  intents query <question>      Classify a question against a running server
  intents reload                Rebuild the model from the relational source`

const intentsShortDesc string = "Intents - chatbot intent classification"

func NewIntentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "intents",
		Short:        intentsShortDesc,
		Long:         intentsLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("config-dir", "", "Override the .intents/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(reloadcmder.NewReloadCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
