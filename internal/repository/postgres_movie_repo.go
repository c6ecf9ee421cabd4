package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/masato/filmnote/internal/model"
)

// PostgresMovieRepo はPostgreSQLを使用した映画リポジトリ。
type PostgresMovieRepo struct {
	db *sql.DB
}

// NewPostgresMovieRepo はPostgresMovieRepoを生成する。
func NewPostgresMovieRepo(db *sql.DB) *PostgresMovieRepo {
	return &PostgresMovieRepo{db: db}
}

const movieColumns = `id, title, story_line, release_date, status, genres, tags, poster_url, trailer_url, language, created_at, updated_at`

// FindByID は指定IDの映画を取得する。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByID(ctx context.Context, id string) (*model.Movie, error) {
	movie := &model.Movie{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`,
		id,
	).Scan(
		&movie.ID, &movie.Title, &movie.StoryLine, &movie.ReleaseDate,
		&movie.Status, pq.Array(&movie.Genres), pq.Array(&movie.Tags),
		&movie.PosterURL, &movie.TrailerURL, &movie.Language,
		&movie.CreatedAt, &movie.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find movie by ID: %w", err)
	}

	return movie, nil
}

// ListPublic は公開中の映画をrelease_date降順で取得する。
func (r *PostgresMovieRepo) ListPublic(ctx context.Context, limit, offset int) ([]*model.Movie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies
		 WHERE status = 'public'
		 ORDER BY release_date DESC, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list public movies: %w", err)
	}
	defer rows.Close()

	var movies []*model.Movie
	for rows.Next() {
		movie := &model.Movie{}
		if err := rows.Scan(
			&movie.ID, &movie.Title, &movie.StoryLine, &movie.ReleaseDate,
			&movie.Status, pq.Array(&movie.Genres), pq.Array(&movie.Tags),
			&movie.PosterURL, &movie.TrailerURL, &movie.Language,
			&movie.CreatedAt, &movie.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan movie row: %w", err)
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movie rows: %w", err)
	}

	return movies, nil
}

// Create は映画を作成する。
func (r *PostgresMovieRepo) Create(ctx context.Context, movie *model.Movie) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (id, title, story_line, release_date, status, genres, tags, poster_url, trailer_url, language, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		movie.ID, movie.Title, movie.StoryLine, movie.ReleaseDate,
		movie.Status, pq.Array(movie.Genres), pq.Array(movie.Tags),
		movie.PosterURL, movie.TrailerURL, movie.Language,
		movie.CreatedAt, movie.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}
	return nil
}

// Update は映画情報を上書き更新する。
func (r *PostgresMovieRepo) Update(ctx context.Context, movie *model.Movie) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE movies
		 SET title = $1, story_line = $2, release_date = $3, status = $4,
		     genres = $5, tags = $6, poster_url = $7, trailer_url = $8,
		     language = $9, updated_at = now()
		 WHERE id = $10`,
		movie.Title, movie.StoryLine, movie.ReleaseDate, movie.Status,
		pq.Array(movie.Genres), pq.Array(movie.Tags),
		movie.PosterURL, movie.TrailerURL, movie.Language,
		movie.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update movie: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("movie not found: %s", movie.ID)
	}
	return nil
}

// DeleteByID は指定IDの映画を削除する。関連レビューはCASCADE削除される。
func (r *PostgresMovieRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM movies WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("movie not found: %s", id)
	}
	return nil
}

// Count は登録映画数を返す。
func (r *PostgresMovieRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM movies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count movies: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ MovieRepository = (*PostgresMovieRepo)(nil)
