// Package reloadcmder provides the reload command that rebuilds the model
// from the relational source and persists it.
package reloadcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	classifierutils "github.com/papercomputeco/intents/pkg/classifier/utils"
	"github.com/papercomputeco/intents/pkg/cliui"
	"github.com/papercomputeco/intents/pkg/config"
)

type reloadCommander struct {
	configDir string
	debug     bool
	logJSON   bool

	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingTimeout  string
	normalize         bool
	reloadConcurrency uint
	snapshotProvider  string
	snapshotTarget    string
	sourceProvider    string
	sourceTarget      string

	cfg    *config.Config
	logger *slog.Logger
}

var reloadFlags = []string{
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingTimeout,
	config.FlagNormalize,
	config.FlagReloadConcurrency,
	config.FlagSnapshotProv,
	config.FlagSnapshotTgt,
	config.FlagSourceProv,
	config.FlagSourceTgt,
}

const reloadLongDesc string = `Rebuild the model from the relational source.

Lists every system's default-version questions from the configured source
(source.provider, source.target), embeds them, and replaces the persisted
snapshot with the result. A running server picks the new snapshot up on its
next restart.

Examples:
  intents reload --source-provider sqlite --source-target chatbot.db
  intents reload --source-provider postgres --source-target postgres://localhost/chatbot`

const reloadShortDesc string = "Rebuild the model from the relational source"

func NewReloadCmd() *cobra.Command {
	cmder := &reloadCommander{}

	cmd := &cobra.Command{
		Use:   "reload",
		Short: reloadShortDesc,
		Long:  reloadLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, reloadFlags)
			cmder.cfg = config.FromViper(v)

			if cmder.cfg.Source.Provider == "" {
				return errors.New("no reload source configured: set source.provider and source.target")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.logJSON, _ = cmd.Flags().GetBool("log-json")
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTimeout, &cmder.embeddingTimeout)
	config.AddBoolFlag(cmd, config.Flags, config.FlagNormalize, &cmder.normalize)
	config.AddUintFlag(cmd, config.Flags, config.FlagReloadConcurrency, &cmder.reloadConcurrency)
	config.AddStringFlag(cmd, config.Flags, config.FlagSnapshotProv, &cmder.snapshotProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagSnapshotTgt, &cmder.snapshotTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagSourceProv, &cmder.sourceProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagSourceTgt, &cmder.sourceTarget)

	return cmd
}

func (c *reloadCommander) run(ctx context.Context, w io.Writer) error {
	c.logger = cliui.NewLogger(c.debug, c.logJSON)

	cl, err := classifierutils.NewClassifier(ctx, &classifierutils.NewClassifierOpts{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer cl.Close()

	fmt.Fprintln(w)
	err = cliui.Step(w, "Rebuilding model from "+c.cfg.Source.Provider, func() error {
		return cl.Reload(ctx)
	})
	if err != nil {
		return err
	}

	systems := cl.Systems()
	questions := 0
	for _, s := range systems {
		questions += s.Questions
	}

	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Snapshot saved:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%d systems, %d questions", len(systems), questions)),
	)

	return nil
}
