package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/intents/pkg/cliui"
	"github.com/papercomputeco/intents/pkg/config"
)

const getLongDesc string = `Get one or more configuration values.

Keys use dotted notation matching the TOML section structure. With --raw
only the values are printed, one per line, so the output can be used in
scripts.

Examples:
  intents config get snapshot.provider
  intents config get embedding.model embedding.dimensions
  export SNAPSHOT_TARGET=$(intents config get --raw snapshot.target)`

const getShortDesc string = "Get configuration values"

func newGetCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get <key>...",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(cmd.OutOrStdout(), args, configDir, raw)
		},
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print bare values without styling")

	return cmd
}

func runGet(out io.Writer, keys []string, configDir string, raw bool) error {
	for _, key := range keys {
		if !config.IsValidConfigKey(key) {
			return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
				key, strings.Join(config.ValidConfigKeys(), ", "))
		}
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !raw {
		printTarget(out, cfger.GetTarget())
	}

	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		if raw {
			fmt.Fprintln(out, value)
			continue
		}
		if value == "" {
			value = cliui.DimStyle.Render("<not set>")
		} else {
			value = cliui.ValueStyle.Render(value)
		}
		fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render(key), value)
	}

	if !raw {
		fmt.Fprintln(out)
	}
	return nil
}
