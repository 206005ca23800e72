package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/intents/pkg/cliui"
	"github.com/papercomputeco/intents/pkg/config"
)

const listLongDesc string = `List configuration values grouped by section.

Every known key is shown with the value intents would use from
config.toml, or <not set>. Secrets such as snapshot.api_key are masked;
use "intents config get --raw" to read them.

Examples:
  intents config list
  intents config list --section snapshot`

const listShortDesc string = "List configuration values"

// secretKeys are masked in list output.
var secretKeys = map[string]bool{
	"snapshot.api_key": true,
}

func newListCmd() *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir, section)
		},
	}

	cmd.Flags().StringVar(&section, "section", "", "Only list keys in this section (e.g. snapshot)")

	return cmd
}

func runList(out io.Writer, configDir, section string) error {
	keys := sectionKeys(section)
	if len(keys) == 0 {
		return fmt.Errorf("unknown config section: %q", section)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(out, cfger.GetTarget())

	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	current := ""
	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		if s, _, _ := strings.Cut(key, "."); s != current {
			current = s
			fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("["+s+"]"))
		}

		padded := fmt.Sprintf("%-*s", width, key)
		fmt.Fprintf(out, "    %s  %s\n", cliui.KeyStyle.Render(padded), renderValue(key, value))
	}
	fmt.Fprintln(out)

	return nil
}

// sectionKeys returns the valid keys under section, or every key when
// section is empty. Keys keep their configured order.
func sectionKeys(section string) []string {
	all := config.ValidConfigKeys()
	if section == "" {
		return all
	}

	keys := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, section+".") {
			keys = append(keys, k)
		}
	}
	return keys
}

func renderValue(key, value string) string {
	switch {
	case value == "":
		return cliui.DimStyle.Render("<not set>")
	case secretKeys[key]:
		return cliui.DimStyle.Render("<redacted>")
	default:
		return cliui.ValueStyle.Render(value)
	}
}

func printTarget(out io.Writer, target string) {
	if target == "" {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
		return
	}
	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(target),
	)
}
