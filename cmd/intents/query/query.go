// Package querycmder provides the query command for classifying a question
// against a running intents server.
package querycmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/intents/api"
	"github.com/papercomputeco/intents/pkg/cliui"
	"github.com/papercomputeco/intents/pkg/config"
	"github.com/papercomputeco/intents/pkg/utils"
)

var (
	rankStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	intentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// requestTimeout bounds a single query round trip.
const requestTimeout = 60 * time.Second

type queryCommander struct {
	question  string
	systemID  string
	sessionID string
	topK      int
	quiet     bool

	apiTarget string
}

const queryLongDesc string = `Classify a question via the intents API.

Ranks the trained intents of a chatbot system against the question and prints
up to --top distinct intents, best first, with their confidence in [0, 1].
Requires a running intents server.

Use --quiet to output only intent IDs, one per line.

Example:
  intents query "how do I pay my bill" --system bank
  intents query "horario de apertura" --system bank --top 5
  intents query "opening hours" --system shop --api-target http://localhost:7000 --quiet`

const queryShortDesc string = "Classify a question"

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString("client.api_target")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.systemID, "system", "s", "", "Chatbot system to classify against")
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Session ID echoed back by the server")
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 3, "Number of distinct intents to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only intent IDs, one per line")
	_ = cmd.MarkFlagRequired("system")

	return cmd
}

func (c *queryCommander) run(ctx context.Context, w io.Writer) error {
	results, err := QueryAPI(ctx, c.apiTarget, api.QueryRequest{
		SessionID:    c.sessionID,
		SystemID:     c.systemID,
		QuestionText: c.question,
	}, c.topK)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		if !c.quiet {
			fmt.Fprintln(w, "No intents found.")
		}
		return nil
	}

	if c.quiet {
		for _, r := range results {
			fmt.Fprintln(w, r.PredictedIntent.IntentID)
		}
		return nil
	}

	fmt.Fprintf(w, "\n%s %s %s\n\n",
		headerStyle.Render("Intents for"),
		intentStyle.Render(fmt.Sprintf("%q", utils.Truncate(c.question, 60))),
		dimStyle.Render("("+c.systemID+")"),
	)

	for i, r := range results {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.ScoreBar(r.PredictedIntent.Confidence, 20),
			intentStyle.Render(r.PredictedIntent.IntentID),
		)
	}
	fmt.Fprintln(w)

	return nil
}

// QueryAPI calls POST /chatbot/query/:top_k on the intents API and returns
// the parsed predictions.
func QueryAPI(ctx context.Context, apiTarget string, req api.QueryRequest, topK int) ([]api.QueryResponse, error) {
	queryURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	queryURL = queryURL.JoinPath("chatbot", "query", strconv.Itoa(topK))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, queryURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to intents API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("query failed (HTTP %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("query failed (HTTP %d): %s", resp.StatusCode, string(raw))
	}

	var out []api.QueryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	return out, nil
}
