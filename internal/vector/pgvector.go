// Package vector implements the vector index boundary on Postgres with the
// pgvector extension. Points live in a single table keyed by (collection,
// point id); the retrieval plane queries them by cosine distance.
package vector

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorClient stores embedding points in the vector_points table.
type PgVectorClient struct {
	pool *pgxpool.Pool
}

// NewPgVectorClient creates a new PgVectorClient instance
func NewPgVectorClient(pool *pgxpool.Pool) *PgVectorClient {
	return &PgVectorClient{pool: pool}
}

// Upsert writes a point; re-upserting the same (collection, point id)
// replaces the vector and payload.
func (c *PgVectorClient) Upsert(ctx context.Context, collection, pointID string, vector []float32, payload map[string]any) error {
	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return err
		}
	}

	_, err := c.pool.Exec(ctx,
		`INSERT INTO vector_points (collection, point_id, embedding, payload, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (collection, point_id)
		 DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload, updated_at = NOW()`,
		collection, pointID, pgvector.NewVector(vector), raw,
	)
	return err
}

// Delete removes a point; deleting a missing point is not an error.
func (c *PgVectorClient) Delete(ctx context.Context, collection, pointID string) error {
	_, err := c.pool.Exec(ctx,
		`DELETE FROM vector_points WHERE collection = $1 AND point_id = $2`,
		collection, pointID)
	return err
}

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	PointID string
	Score   float64
	Payload map[string]any
}

// Search returns up to limit points of the collection ordered by cosine
// similarity to the query vector, filtered by minScore.
func (c *PgVectorClient) Search(ctx context.Context, collection string, query []float32, limit int, minScore float64) ([]SearchResult, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT point_id, 1 - (embedding <=> $2) AS score, payload
		 FROM vector_points
		 WHERE collection = $1 AND 1 - (embedding <=> $2) >= $3
		 ORDER BY embedding <=> $2
		 LIMIT $4`,
		collection, pgvector.NewVector(query), minScore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var raw []byte
		if err := rows.Scan(&r.PointID, &r.Score, &raw); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &r.Payload); err != nil {
				return nil, err
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
