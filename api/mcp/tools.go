package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/utils"
)

var (
	classifyToolName    = "classify_intent"
	classifyDescription = "Classify a user question against a chatbot system's trained intents. Returns the most likely intents, best first, each with a confidence between 0 and 1."

	listSystemsToolName    = "list_systems"
	listSystemsDescription = "List the chatbot systems that have been trained, with their question and intent counts."
)

// defaultTopK is used when a classify request omits top_k.
const defaultTopK = 3

// ClassifyInput represents the input arguments for the classify tool.
type ClassifyInput struct {
	SystemID string `json:"system_id" jsonschema:"the chatbot system whose intents to rank"`
	Question string `json:"question" jsonschema:"the user question to classify"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of distinct intents to return (default: 3)"`
}

// ClassifyOutput represents the output of the classify tool.
type ClassifyOutput struct {
	SystemID    string              `json:"system_id"`
	Question    string              `json:"question"`
	Predictions []intent.Prediction `json:"predictions"`
}

// ListSystemsInput is empty; list_systems takes no arguments.
type ListSystemsInput struct{}

// ListSystemsOutput represents the output of the list_systems tool.
type ListSystemsOutput struct {
	Systems []intent.SystemInfo `json:"systems"`
	Count   int                 `json:"count"`
}

// handleClassify processes a classify request.
func (s *Server) handleClassify(ctx context.Context, _ *mcp.CallToolRequest, input ClassifyInput) (*mcp.CallToolResult, ClassifyOutput, error) {
	logger := s.config.Logger

	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	logger.Debug("MCP classify request",
		"system_id", input.SystemID,
		"question", utils.Truncate(input.Question, 80),
		"top_k", topK,
	)

	predictions, err := s.config.Classifier.Query(ctx, input.SystemID, input.Question, topK)
	if err != nil {
		logger.Warn("MCP classify failed",
			"system_id", input.SystemID,
			"error", err,
		)
		return errorResult(fmt.Sprintf("Failed to classify question: %v", err)), ClassifyOutput{}, nil
	}

	output := ClassifyOutput{
		SystemID:    input.SystemID,
		Question:    input.Question,
		Predictions: predictions,
	}

	return textResult(output)
}

// handleListSystems lists every trained system.
func (s *Server) handleListSystems(_ context.Context, _ *mcp.CallToolRequest, _ ListSystemsInput) (*mcp.CallToolResult, ListSystemsOutput, error) {
	systems := s.config.Classifier.Systems()

	output := ListSystemsOutput{
		Systems: systems,
		Count:   len(systems),
	}

	return textResult(output)
}

// textResult serializes structured output into a TextContent block as well,
// for clients that only read text content.
func textResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
