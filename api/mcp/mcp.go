// Package mcp provides an MCP (Model Context Protocol) server exposing the
// intent classifier as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/utils"
)

// Classifier is the subset of the classifier the tools call.
type Classifier interface {
	Query(ctx context.Context, systemID, question string, topK int) ([]intent.Prediction, error)
	Systems() []intent.SystemInfo
}

type Config struct {
	// Classifier answers classify_intent and list_systems.
	Classifier Classifier

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the classifier tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "intents",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Classifier == nil {
			return nil, errors.New("classifier is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        classifyToolName,
			Description: classifyDescription,
		}, s.handleClassify)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        listSystemsToolName,
			Description: listSystemsDescription,
		}, s.handleListSystems)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
