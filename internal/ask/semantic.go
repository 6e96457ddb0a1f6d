package ask

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/attache-hq/attache/internal/llm"
	"github.com/attache-hq/attache/internal/store"
)

// ScoredMessage pairs an archived chat message with its similarity to the
// question.
type ScoredMessage struct {
	Message store.ChatMessage `json:"message"`
	Score   float64           `json:"score"`
}

// Searcher ranks archived chat messages against a question by embedding
// similarity.
type Searcher struct {
	embedder llm.Embedder
	chats    *store.ChatStore
}

// NewSearcher creates a semantic searcher.
func NewSearcher(embedder llm.Embedder, chats *store.ChatStore) *Searcher {
	return &Searcher{embedder: embedder, chats: chats}
}

// Search embeds the question and returns the topK most similar messages,
// best first. Fewer than topK stored messages yields fewer results.
func (s *Searcher) Search(ctx context.Context, question string, topK int) ([]ScoredMessage, error) {
	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	msgs, err := s.chats.ListEmbedded(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredMessage, 0, len(msgs))
	for _, msg := range msgs {
		score := cosineSimilarity(queryVec, msg.Embedding)
		scored = append(scored, ScoredMessage{Message: msg, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
