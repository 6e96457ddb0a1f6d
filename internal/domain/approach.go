package domain

// Approach is the resolution strategy chosen for a single /ask question.
type Approach string

const (
	// ApproachRetrieval answers from semantic nearest-neighbor search.
	ApproachRetrieval Approach = "retrieval"
	// ApproachGeneratedQuery answers by running a model-authored read-only query.
	ApproachGeneratedQuery Approach = "generated_query"
)

// Known reports whether the approach is one the router can execute.
func (a Approach) Known() bool {
	return a == ApproachRetrieval || a == ApproachGeneratedQuery
}

// ApproachDecision is the model's choice of strategy for one question.
// It lives for a single router invocation and is never persisted.
type ApproachDecision struct {
	Approach  Approach `json:"approach"`
	QueryText string   `json:"query_text,omitempty"`
}
