// Package database persists indexed chunks and situations in Postgres with
// pgvector, as an alternative backend to the in-process flat index.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"hockey-rules-rag/internal/models"
)

// DB represents the database connection.
type DB struct {
	Pool *pgxpool.Pool
	dim  int
}

// NewDB creates a new database connection for embeddings of the given
// dimension.
func NewDB(connStr string, dim int) (*DB, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool, dim: dim}, nil
}

// Initialize sets up the database tables and indices.
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS rule_chunks (
            id SERIAL PRIMARY KEY,
            rule_id TEXT NOT NULL,
            rule_title TEXT,
            subrule_title TEXT,
            chunk_text TEXT NOT NULL,
            embedding vector(%d) NOT NULL
        )
    `, db.dim))
	if err != nil {
		return fmt.Errorf("failed to create rule_chunks table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS situations (
            id SERIAL PRIMARY KEY,
            rule_id TEXT NOT NULL,
            situation_id TEXT NOT NULL,
            question TEXT NOT NULL,
            answer TEXT NOT NULL,
            rule_reference TEXT[],
            embedding vector(%d) NOT NULL
        )
    `, db.dim))
	if err != nil {
		return fmt.Errorf("failed to create situations table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS rule_chunks_embedding_idx ON rule_chunks
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS rule_chunks_rule_id_idx ON rule_chunks (rule_id);
		CREATE INDEX IF NOT EXISTS situations_rule_id_idx ON situations (rule_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create additional indices: %w", err)
	}

	return nil
}

// StoreChunk stores one indexed rule chunk with its embedding.
func (db *DB) StoreChunk(ctx context.Context, chunk models.ChunkMeta, embedding []float64) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO rule_chunks (rule_id, rule_title, subrule_title, chunk_text, embedding)
        VALUES ($1, $2, $3, $4, $5)
    `,
		chunk.RuleID,
		chunk.RuleTitle,
		chunk.SubruleTitle,
		chunk.ChunkText,
		embedding)

	return err
}

// StoreSituation stores one situation with its question embedding.
func (db *DB) StoreSituation(ctx context.Context, situation models.SituationEntry, embedding []float64) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO situations (rule_id, situation_id, question, answer, rule_reference, embedding)
        VALUES ($1, $2, $3, $4, $5, $6)
    `,
		situation.RuleID,
		situation.SituationID,
		situation.Question,
		situation.Answer,
		situation.RuleReference,
		embedding)

	return err
}

// SearchChunks finds the chunks closest to the query embedding, with cosine
// similarity derived from pgvector's cosine distance.
func (db *DB) SearchChunks(ctx context.Context, embedding []float64, limit int) ([]models.ChunkHit, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT rule_id, 1 - (embedding <=> $1) AS similarity
		FROM rule_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar chunks: %w", err)
	}
	defer rows.Close()

	var hits []models.ChunkHit
	for rows.Next() {
		var hit models.ChunkHit
		if err := rows.Scan(&hit.RuleID, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return hits, nil
}

// SearchSituations finds the situations whose questions are closest to the
// query embedding.
func (db *DB) SearchSituations(ctx context.Context, embedding []float64, limit int) ([]models.Situation, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT rule_id, situation_id, question, answer, rule_reference,
		       1 - (embedding <=> $1) AS similarity
		FROM situations
		ORDER BY embedding <=> $1
		LIMIT $2
	`, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar situations: %w", err)
	}
	defer rows.Close()

	var situations []models.Situation
	for rows.Next() {
		var s models.Situation
		if err := rows.Scan(&s.RuleID, &s.SituationID, &s.Question, &s.Answer, &s.RuleReference, &s.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		situations = append(situations, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return situations, nil
}

// Close closes the database connection.
func (db *DB) Close() {
	db.Pool.Close()
}
