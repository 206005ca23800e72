package api

import (
	"context"
	"errors"
	"expvar"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/intents/pkg/classifier"
	"github.com/papercomputeco/intents/pkg/intent"
)

// Service is the classifier surface the API serves.
type Service interface {
	Train(ctx context.Context, batches []intent.Batch) (*classifier.TrainResult, error)
	Query(ctx context.Context, systemID, question string, topK int) ([]intent.Prediction, error)
	Systems() []intent.SystemInfo
}

// Server is the API server for training and querying intents
type Server struct {
	config  Config
	service Service
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server around the given classifier service.
func NewServer(config Config, service Service, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, errors.New("classifier service is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	bodyLimit := config.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
	})

	s := &Server{
		config:  config,
		service: service,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/debug/vars", adaptor.HTTPHandler(expvar.Handler()))

	chatbot := app.Group("/chatbot")
	chatbot.Post("/train", s.handleTrain)
	chatbot.Post("/query", s.handleQuery)
	chatbot.Post("/query/:top_k", s.handleQueryTopK)
	chatbot.Get("/systems", s.handleSystems)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp", s.config.MCPHandler != nil,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server, waiting for in-flight
// requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
