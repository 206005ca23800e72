package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/intents/pkg/intent"
)

// QueryRequest is the body of the query endpoints.
type QueryRequest struct {
	SessionID    string `json:"SessionID"`
	SystemID     string `json:"SystemID"`
	QuestionText string `json:"QuestionText"`
}

// PredictedIntent is one ranked intent echoed back with the caller's session.
type PredictedIntent struct {
	IntentID   string  `json:"IntentID"`
	SessionID  string  `json:"SessionID"`
	Confidence float64 `json:"Confidence"`
}

// QueryResponse wraps a single prediction.
type QueryResponse struct {
	PredictedIntent PredictedIntent `json:"PredictedIntent"`
}

// trainSuccess is the body returned by a successful train.
const trainSuccess = "Success"

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleTrain applies a list of batches. A single batch object is accepted
// in place of a one-element list.
func (s *Server) handleTrain(c *fiber.Ctx) error {
	batches, err := decodeBatches(c.Body())
	if err != nil {
		return s.fail(c, err)
	}

	if _, err := s.service.Train(c.UserContext(), batches); err != nil {
		return s.fail(c, err)
	}

	return c.JSON(trainSuccess)
}

// handleQuery returns the single best intent.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	req, err := decodeQuery(c.Body())
	if err != nil {
		return s.fail(c, err)
	}

	predictions, err := s.service.Query(c.UserContext(), req.SystemID, req.QuestionText, 1)
	if err != nil {
		return s.fail(c, err)
	}
	if len(predictions) == 0 {
		return s.fail(c, fmt.Errorf("%w: no prediction for system %q", intent.ErrEmptyCorpus, req.SystemID))
	}

	return c.JSON(QueryResponse{PredictedIntent: predicted(predictions[0], req.SessionID)})
}

// handleQueryTopK returns up to top_k distinct intents, best first.
func (s *Server) handleQueryTopK(c *fiber.Ctx) error {
	topK, err := strconv.Atoi(c.Params("top_k"))
	if err != nil {
		return s.fail(c, fmt.Errorf("%w: top_k must be an integer", intent.ErrValidation))
	}

	req, err := decodeQuery(c.Body())
	if err != nil {
		return s.fail(c, err)
	}

	predictions, err := s.service.Query(c.UserContext(), req.SystemID, req.QuestionText, topK)
	if err != nil {
		return s.fail(c, err)
	}

	out := make([]QueryResponse, 0, len(predictions))
	for _, p := range predictions {
		out = append(out, QueryResponse{PredictedIntent: predicted(p, req.SessionID)})
	}

	return c.JSON(out)
}

// handleSystems lists every trained system.
func (s *Server) handleSystems(c *fiber.Ctx) error {
	return c.JSON(s.service.Systems())
}

func predicted(p intent.Prediction, sessionID string) PredictedIntent {
	return PredictedIntent{
		IntentID:   p.IntentID,
		SessionID:  sessionID,
		Confidence: p.Confidence,
	}
}

// Request bodies are decoded as JSON whatever their Content-Type, since
// chatbot clients often post text/plain or nothing at all. BodyParser would
// reject those and cannot take a lone batch in place of a list.
func decodeBatches(body []byte) ([]intent.Batch, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty request body", intent.ErrValidation)
	}

	if body[0] != '[' {
		var b intent.Batch
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, fmt.Errorf("%w: decoding batch: %w", intent.ErrValidation, err)
		}
		return []intent.Batch{b}, nil
	}

	var batches []intent.Batch
	if err := json.Unmarshal(body, &batches); err != nil {
		return nil, fmt.Errorf("%w: decoding batches: %w", intent.ErrValidation, err)
	}
	return batches, nil
}

func decodeQuery(body []byte) (QueryRequest, error) {
	var req QueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("%w: decoding query: %w", intent.ErrValidation, err)
	}
	return req, nil
}
