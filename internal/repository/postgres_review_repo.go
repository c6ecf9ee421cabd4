package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/masato/filmnote/internal/model"
)

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

const reviewColumns = `id, owner_id, movie_id, content, rating, created_at, updated_at`

func scanReview(row *sql.Row) (*model.Review, error) {
	review := &model.Review{}
	err := row.Scan(
		&review.ID, &review.OwnerID, &review.MovieID,
		&review.Content, &review.Rating, &review.CreatedAt, &review.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return review, nil
}

// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find review by ID: %w", err)
	}
	return review, nil
}

// FindByOwnerAndMovie はユーザーIDと映画IDでレビューを検索する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByOwnerAndMovie(ctx context.Context, ownerID, movieID string) (*model.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE owner_id = $1 AND movie_id = $2`,
		ownerID, movieID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find review by owner and movie: %w", err)
	}
	return review, nil
}

// ListByMovie は映画のレビュー一覧を投稿者名付きで取得する。
func (r *PostgresReviewRepo) ListByMovie(ctx context.Context, movieID string) ([]model.ReviewWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.owner_id, r.movie_id, r.content, r.rating, r.created_at, r.updated_at, u.name
		 FROM reviews r
		 JOIN users u ON u.id = r.owner_id
		 WHERE r.movie_id = $1
		 ORDER BY r.created_at DESC`,
		movieID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by movie: %w", err)
	}
	defer rows.Close()

	var reviews []model.ReviewWithOwner
	for rows.Next() {
		var rv model.ReviewWithOwner
		if err := rows.Scan(
			&rv.ID, &rv.OwnerID, &rv.MovieID, &rv.Content,
			&rv.Rating, &rv.CreatedAt, &rv.UpdatedAt, &rv.OwnerName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review rows: %w", err)
	}

	return reviews, nil
}

// Create はレビューを作成する。
// (owner_id, movie_id)のユニーク制約違反はそのまま返す
// （呼び出し側がIsUniqueViolationで判定する）。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, owner_id, movie_id, content, rating, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		review.ID, review.OwnerID, review.MovieID,
		review.Content, review.Rating, review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// Update はレビューの内容と評点を更新する。
func (r *PostgresReviewRepo) Update(ctx context.Context, review *model.Review) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reviews SET content = $1, rating = $2, updated_at = now() WHERE id = $3`,
		review.Content, review.Rating, review.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("review not found: %s", review.ID)
	}
	return nil
}

// DeleteByID は指定IDのレビューを削除する。
func (r *PostgresReviewRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reviews WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

// AverageRatingByMovie は映画の平均評点とレビュー件数を返す。
// レビューが存在しない場合は(0, 0)を返す。
func (r *PostgresReviewRepo) AverageRatingByMovie(ctx context.Context, movieID string) (float64, int, error) {
	var avg sql.NullFloat64
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT avg(rating), count(*) FROM reviews WHERE movie_id = $1`,
		movieID,
	).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	if !avg.Valid {
		return 0, 0, nil
	}
	return avg.Float64, count, nil
}

// Count は全レビュー数を返す。
func (r *PostgresReviewRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM reviews`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
