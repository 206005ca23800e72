// Package servecmder provides the serve command that runs the intents API.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/intents/api"
	"github.com/papercomputeco/intents/api/mcp"
	classifierutils "github.com/papercomputeco/intents/pkg/classifier/utils"
	"github.com/papercomputeco/intents/pkg/cliui"
	"github.com/papercomputeco/intents/pkg/config"
	"github.com/papercomputeco/intents/pkg/intent"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// termination signal.
const shutdownTimeout = 10 * time.Second

type ServeCommander struct {
	configDir string
	debug     bool
	logJSON   bool
	logFile   string

	// flag targets; effective values are read back through viper
	listen            string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	embeddingTimeout  string
	normalize         bool
	reloadConcurrency uint
	snapshotProvider  string
	snapshotTarget    string
	sourceProvider    string
	sourceTarget      string
	eventsProvider    string
	eventsBrokers     []string
	eventsTopic       string
	mcpEnabled        bool

	cfg    *config.Config
	logger *slog.Logger
}

// serveFlags are the registry keys bound for the serve command.
var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEmbeddingTimeout,
	config.FlagNormalize,
	config.FlagReloadConcurrency,
	config.FlagSnapshotProv,
	config.FlagSnapshotTgt,
	config.FlagSourceProv,
	config.FlagSourceTgt,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
	config.FlagMCPEnabled,
}

const serveLongDesc string = `Run the intents API server.

On startup the last snapshot is restored. When it is missing or unreadable
the model is rebuilt from the configured reload source, or starts empty.

Routes:
  POST /chatbot/train           Apply add/edit/delete batches
  POST /chatbot/query           Best intent for a question
  POST /chatbot/query/:top_k    Up to top_k distinct intents
  GET  /chatbot/systems         Trained systems
  GET  /debug/vars              Counters
  /mcp                          MCP tools (classify_intent, list_systems)

Configuration precedence: flags, then INTENTS_* environment variables, then
.intents/config.toml, then defaults.

Examples:
  intents serve
  intents serve --listen :7000 --snapshot-provider sqlite --snapshot-target intents.db
  intents serve --source-provider postgres --source-target postgres://localhost/chatbot`

const serveShortDesc string = "Run the intents API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.logJSON, _ = cmd.Flags().GetBool("log-json")

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTimeout, &cmder.embeddingTimeout)
	config.AddBoolFlag(cmd, config.Flags, config.FlagNormalize, &cmder.normalize)
	config.AddUintFlag(cmd, config.Flags, config.FlagReloadConcurrency, &cmder.reloadConcurrency)
	config.AddStringFlag(cmd, config.Flags, config.FlagSnapshotProv, &cmder.snapshotProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagSnapshotTgt, &cmder.snapshotTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagSourceProv, &cmder.sourceProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagSourceTgt, &cmder.sourceTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProv, &cmder.eventsProvider)
	config.AddStringSliceFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.eventsTopic)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMCPEnabled, &cmder.mcpEnabled)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	c.logger = cliui.NewLogger(c.debug, c.logJSON)
	if c.logFile != "" {
		l, f, err := cliui.TeeToFile(c.logger, c.logFile, c.debug)
		if err != nil {
			return err
		}
		defer f.Close()
		c.logger = l
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cl, err := classifierutils.NewClassifier(ctx, &classifierutils.NewClassifierOpts{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := cl.Close(); err != nil {
			c.logger.Warn("closing classifier", "error", err)
		}
	}()

	logLoadResult(c.logger, cl.Load(ctx))

	apiConfig := api.Config{
		ListenAddr: c.cfg.API.Listen,
	}

	if c.cfg.MCP.Enabled != nil && *c.cfg.MCP.Enabled {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Classifier: cl,
			Logger:     c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	apiServer, err := api.NewServer(apiConfig, cl, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return apiServer.Shutdown(shutdownCtx)
}

// logLoadResult reports what the server starts with. A persistence error
// means the model was rebuilt and is live even though the snapshot is stale.
func logLoadResult(logger *slog.Logger, err error) {
	switch {
	case err == nil:
	case errors.Is(err, intent.ErrPersistence):
		logger.Warn("model reloaded but snapshot not persisted, serving the reloaded model",
			"error", err,
		)
	default:
		logger.Error("reload failed, serving with an empty model",
			"error", err,
		)
	}
}
