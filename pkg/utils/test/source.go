package testutils

import (
	"context"

	"github.com/papercomputeco/intents/pkg/intent"
)

// MockSource serves a fixed list of source questions.
type MockSource struct {
	Questions []intent.SourceQuestion
	Err       error
	Calls     int
}

func NewMockSource(questions ...intent.SourceQuestion) *MockSource {
	return &MockSource{Questions: questions}
}

func (m *MockSource) ListDefaultVersionQuestions(_ context.Context) ([]intent.SourceQuestion, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Questions, nil
}

func (m *MockSource) Close() error {
	return nil
}
