// Package source reads the relational source of truth used to rebuild the
// intent store from scratch.
package source

import (
	"context"

	"github.com/papercomputeco/intents/pkg/intent"
)

// DefaultVersionQuestionsQuery selects, for every system, the questions of
// its default version. The query uses no placeholders so it runs unchanged on
// PostgreSQL and SQLite.
const DefaultVersionQuestionsQuery = `
SELECT q.system_id, q.question_id, q.question_text, q.intent_id
FROM chatbot_questions q
JOIN chatbot_systems s
  ON s.system_id = q.system_id
 AND s.default_version = q.version
ORDER BY q.system_id, q.question_id`

// Driver lists the training questions of every system's default version.
type Driver interface {
	// ListDefaultVersionQuestions returns the questions ordered by system
	// ID, then question ID.
	ListDefaultVersionQuestions(ctx context.Context) ([]intent.SourceQuestion, error)

	// Close releases any resources held by the driver.
	Close() error
}
