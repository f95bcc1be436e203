package pgx

import (
	"context"

	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/store"

	"github.com/pgvector/pgvector-go"
)

// GetEmbeddings implements store.EmbeddingCache.
func (s *DBStorage) GetEmbeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	rows, err := s.conn.Query(ctx, `
		SELECT content_hash, embedding
		FROM embedding_cache
		WHERE model = $1 AND content_hash = ANY($2)`,
		model, hashes,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			hash string
			vec  pgvector.Vector
		)
		if err := rows.Scan(&hash, &vec); err != nil {
			return nil, err
		}
		out[hash] = vec.Slice()
	}
	return out, rows.Err()
}

// PutEmbeddings implements store.EmbeddingCache. Existing entries are
// overwritten.
func (s *DBStorage) PutEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	hashes := make([]string, 0, len(vectors))
	for h := range vectors {
		hashes = append(hashes, h)
	}

	err := store.ChunkRange(len(hashes), s.batchSize, func(start, end int) error {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		part := hashes[start:end]
		embeddings := make([]pgvector.Vector, 0, len(part))
		for _, h := range part {
			embeddings = append(embeddings, pgvector.NewVector(vectors[h]))
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO embedding_cache (model, content_hash, embedding)
			SELECT $1, h, e
			FROM unnest($2::text[], $3::vector[]) AS t(h, e)
			ON CONFLICT (model, content_hash) DO UPDATE SET embedding = EXCLUDED.embedding, created_at = now()`,
			model, part, embeddings,
		)
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return err
	}
	logger.Debug("embeddings cached", "model", model, "count", len(hashes))
	return nil
}
