// Package ask answers questions about the archived chat history. A router
// first asks the model to pick an approach, then grounds the final answer in
// either semantic retrieval or a generated read-only SQL query.
package ask

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/attache-hq/attache/internal/domain"
	"github.com/attache-hq/attache/internal/llm"
	"github.com/attache-hq/attache/internal/logging"
	"github.com/attache-hq/attache/internal/store"
)

// Terminal router errors. Execution failures of a generated query are not
// terminal; they go back to the model as tool output instead.
var (
	// ErrNoDecision means the model did not produce the forced approach call.
	ErrNoDecision = errors.New("model did not decide on an approach")
	// ErrUnrecognizedApproach means the decision named an unknown approach.
	ErrUnrecognizedApproach = errors.New("unrecognized approach")
)

const routerInstructions = "You answer questions about an archived chat history stored in a SQL database " +
	"with a single table chat_messages(id, channel, author, content, posted_at). " +
	"First decide how to ground your answer by calling decide_approach: choose 'retrieval' " +
	"for questions about what was said or discussed, and 'generated_query' with a SELECT " +
	"statement in query_text for questions that need counting, filtering, or aggregation. " +
	"After receiving the tool output, answer the question concisely using only that data."

const decideApproachSchema = `{
	"type": "object",
	"properties": {
		"approach": {
			"type": "string",
			"enum": ["retrieval", "generated_query"],
			"description": "How to ground the answer"
		},
		"query_text": {
			"type": "string",
			"description": "The SELECT statement to run when approach is generated_query"
		}
	},
	"required": ["approach"]
}`

// Answer is the outcome of routing one question. Transcript carries the
// full message exchange of the turn for observability.
type Answer struct {
	Text       string            `json:"answer"`
	Approach   domain.Approach   `json:"approach"`
	QueryText  string            `json:"queryText,omitempty"`
	Transcript []llm.ChatMessage `json:"chat_history"`
}

// Router decides between retrieval and generated-query grounding and
// produces the final answer.
type Router struct {
	completer llm.ChatCompleter
	search    *Searcher
	chats     *store.ChatStore
	topK      int
	log       *logging.Logger
}

// NewRouter creates a question router.
func NewRouter(completer llm.ChatCompleter, search *Searcher, chats *store.ChatStore, topK int, log *logging.Logger) *Router {
	if topK <= 0 {
		topK = 5
	}
	return &Router{
		completer: completer,
		search:    search,
		chats:     chats,
		topK:      topK,
		log:       log.Sub("ask"),
	}
}

// Ask routes the question through an approach decision and returns the
// grounded answer.
func (r *Router) Ask(ctx context.Context, question string) (*Answer, error) {
	messages := []llm.ChatMessage{
		{Role: domain.RoleSystem, Content: routerInstructions},
		{Role: domain.RoleUser, Content: question},
	}

	decision, call, err := r.decide(ctx, messages)
	if err != nil {
		return nil, err
	}

	r.log.Info().Str("approach", string(decision.Approach)).Msg("approach decided")

	output, err := r.ground(ctx, question, decision)
	if err != nil {
		return nil, err
	}

	// Feed the grounding data back as the tool's output and let the model
	// answer in natural language.
	messages = append(messages,
		llm.ChatMessage{Role: domain.RoleAssistant, Call: call},
		llm.ChatMessage{Role: domain.RoleTool, Content: output, ToolCallID: call.ID},
	)

	resp, err := r.completer.Complete(ctx, llm.ChatRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("answering question: %w", err)
	}

	transcript := append(messages, llm.ChatMessage{Role: domain.RoleAssistant, Content: resp.Content})
	return &Answer{
		Text:       resp.Content,
		Approach:   decision.Approach,
		QueryText:  decision.QueryText,
		Transcript: transcript,
	}, nil
}

// decide forces the approach-decision function call and parses its result.
func (r *Router) decide(ctx context.Context, messages []llm.ChatMessage) (domain.ApproachDecision, *llm.FunctionCall, error) {
	resp, err := r.completer.Complete(ctx, llm.ChatRequest{
		Messages: messages,
		Functions: []llm.FunctionSpec{{
			Name:        "decide_approach",
			Description: "Choose how to ground the answer to the user's question.",
			Parameters:  json.RawMessage(decideApproachSchema),
		}},
		ForceFunction: "decide_approach",
	})
	if err != nil {
		return domain.ApproachDecision{}, nil, fmt.Errorf("deciding approach: %w", err)
	}
	if len(resp.Calls) == 0 {
		return domain.ApproachDecision{}, nil, ErrNoDecision
	}

	call := resp.Calls[0]
	var decision domain.ApproachDecision
	if err := json.Unmarshal(call.Arguments, &decision); err != nil {
		return domain.ApproachDecision{}, nil, fmt.Errorf("%w: %v", ErrNoDecision, err)
	}
	if !decision.Approach.Known() {
		return domain.ApproachDecision{}, nil, fmt.Errorf("%w: %q", ErrUnrecognizedApproach, decision.Approach)
	}
	return decision, &call, nil
}

// ground produces the tool output string for the chosen approach. A failing
// generated query is rendered as an error payload rather than aborting, so
// the model can still respond.
func (r *Router) ground(ctx context.Context, question string, decision domain.ApproachDecision) (string, error) {
	switch decision.Approach {
	case domain.ApproachRetrieval:
		results, err := r.search.Search(ctx, question, r.topK)
		if err != nil {
			return "", err
		}
		return marshalOutput(results), nil

	case domain.ApproachGeneratedQuery:
		if err := ValidateReadOnly(decision.QueryText); err != nil {
			r.log.Warn().Err(err).Msg("generated query rejected")
			return marshalOutput(map[string]string{"error": err.Error()}), nil
		}
		rows, err := r.chats.QueryReadOnly(ctx, decision.QueryText)
		if err != nil {
			r.log.Warn().Err(err).Msg("generated query failed")
			return marshalOutput(map[string]string{"error": err.Error()}), nil
		}
		return marshalOutput(rows), nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedApproach, decision.Approach)
	}
}

func marshalOutput(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"encoding grounding data failed"}`
	}
	return string(data)
}
