package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/imdb-ratings/internal/domain"
	"github.com/Clark-Hu/imdb-ratings/internal/store"
)

// RatingsRepository persists IMDb ratings keyed by imdb_id.
type RatingsRepository struct {
	store *store.Store
	pool  *pgxpool.Pool
}

const upsertBatchQuery = `
    INSERT INTO imdb_ratings (imdb_id, rating, num_votes, updated_at)
    SELECT t.imdb_id, t.rating, t.num_votes, now()
    FROM unnest($1::text[], $2::float8[], $3::int8[]) AS t(imdb_id, rating, num_votes)
    ON CONFLICT (imdb_id)
    DO UPDATE SET rating = EXCLUDED.rating,
                  num_votes = EXCLUDED.num_votes,
                  updated_at = now()
`

// EnsureSchema creates the ratings table and index if they do not exist.
func (r *RatingsRepository) EnsureSchema(ctx context.Context) error {
	return r.store.EnsureSchema(ctx)
}

// UpsertBatch writes every rating in one statement, inserting new ids and
// overwriting rating, num_votes and updated_at for existing ones. The
// statement either applies the whole batch or none of it. It returns the
// number of rows affected.
func (r *RatingsRepository) UpsertBatch(ctx context.Context, batch []domain.Rating) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	ids, ratings, votes := splitColumns(batch)
	tag, err := r.pool.Exec(ctx, upsertBatchQuery, ids, ratings, votes)
	if err != nil {
		return 0, fmt.Errorf("upsert %d ratings: %w", len(ids), err)
	}
	return tag.RowsAffected(), nil
}

// GetByID reads a single rating by primary key.
func (r *RatingsRepository) GetByID(ctx context.Context, id string) (domain.Rating, error) {
	const query = `
        SELECT imdb_id, rating::float8, num_votes::int8, updated_at
        FROM imdb_ratings
        WHERE imdb_id = $1
    `

	var rating domain.Rating
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rating.ID,
		&rating.Rating,
		&rating.Votes,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// splitColumns turns a batch into parallel arrays for unnest. Postgres rejects
// an ON CONFLICT statement that touches the same key twice, so a repeated id
// keeps only its last occurrence.
func splitColumns(batch []domain.Rating) ([]string, []float64, []int64) {
	pos := make(map[string]int, len(batch))
	ids := make([]string, 0, len(batch))
	ratings := make([]float64, 0, len(batch))
	votes := make([]int64, 0, len(batch))

	for _, item := range batch {
		if i, ok := pos[item.ID]; ok {
			ratings[i] = item.Rating
			votes[i] = item.Votes
			continue
		}
		pos[item.ID] = len(ids)
		ids = append(ids, item.ID)
		ratings = append(ratings, item.Rating)
		votes = append(votes, item.Votes)
	}
	return ids, ratings, votes
}
