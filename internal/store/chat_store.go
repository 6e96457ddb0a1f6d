package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one archived chat-server message, optionally carrying a
// precomputed embedding vector for semantic search.
type ChatMessage struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	PostedAt  time.Time `json:"postedAt"`
	Embedding []float32 `json:"-"`
}

// ChatStore reads and writes archived chat messages. Ingestion itself
// happens out of process; this store is the query side.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a chat store using the given database.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

// Insert adds a message row. A missing ID is assigned.
func (s *ChatStore) Insert(ctx context.Context, msg ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.PostedAt.IsZero() {
		msg.PostedAt = time.Now()
	}

	var embedding any
	if len(msg.Embedding) > 0 {
		embedding = EncodeVector(msg.Embedding)
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO chat_messages (id, channel, author, content, posted_at, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Channel, msg.Author, msg.Content,
		msg.PostedAt.UTC().Format(time.DateTime), embedding,
	)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

// ListEmbedded returns all messages that carry an embedding vector.
func (s *ChatStore) ListEmbedded(ctx context.Context) ([]ChatMessage, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, channel, author, content, posted_at, embedding
		 FROM chat_messages WHERE embedding IS NOT NULL`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing embedded messages: %w", err)
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		var postedAt string
		var blob []byte
		if err := rows.Scan(&msg.ID, &msg.Channel, &msg.Author, &msg.Content, &postedAt, &blob); err != nil {
			s.db.log.Warn().Err(err).Msg("skipping unreadable chat row")
			continue
		}
		msg.PostedAt, _ = time.Parse(time.DateTime, postedAt)
		vec, err := DecodeVector(blob)
		if err != nil {
			s.db.log.Warn().Err(err).Str("id", msg.ID).Msg("skipping message with bad embedding")
			continue
		}
		msg.Embedding = vec
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// QueryReadOnly executes an arbitrary read-only statement against the
// database and returns the rows as column-keyed maps. The caller is
// responsible for having validated the statement as read-only.
func (s *ChatStore) QueryReadOnly(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := s.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGenericRows(rows)
}

// scanGenericRows reads all rows into column-keyed maps.
func scanGenericRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// EncodeVector packs a float32 vector into little-endian bytes for BLOB storage.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector unpacks a BLOB produced by EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
