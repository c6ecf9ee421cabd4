package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/masato/filmnote/internal/model"
)

// PostgresEmailTokenRepo はPostgreSQLを使用したメール認証トークンリポジトリ。
type PostgresEmailTokenRepo struct {
	db *sql.DB
}

// NewPostgresEmailTokenRepo はPostgresEmailTokenRepoを生成する。
func NewPostgresEmailTokenRepo(db *sql.DB) *PostgresEmailTokenRepo {
	return &PostgresEmailTokenRepo{db: db}
}

// FindByOwner は指定ユーザーの未消費トークンを取得する。見つからない場合はnilを返す。
func (r *PostgresEmailTokenRepo) FindByOwner(ctx context.Context, ownerID string) (*model.EmailToken, error) {
	token := &model.EmailToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, token_hash, created_at FROM email_tokens WHERE owner_id = $1`,
		ownerID,
	).Scan(&token.ID, &token.OwnerID, &token.TokenHash, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find email token: %w", err)
	}

	return token, nil
}

// Create はトークンを作成する。
// owner_idのユニーク制約違反はそのまま返す（呼び出し側がIsUniqueViolationで判定する）。
func (r *PostgresEmailTokenRepo) Create(ctx context.Context, token *model.EmailToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_tokens (id, owner_id, token_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		token.ID, token.OwnerID, token.TokenHash, token.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert email token: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのトークンを削除する。
func (r *PostgresEmailTokenRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_tokens WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete email token: %w", err)
	}
	return nil
}

// DeleteOlderThan は指定時刻より前に作成されたトークンを一括削除し、削除件数を返す。
// 期限切れ掃除ジョブから使用する。
func (r *PostgresEmailTokenRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM email_tokens WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale email tokens: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ EmailTokenRepository = (*PostgresEmailTokenRepo)(nil)
