// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/masato/filmnote/internal/model"
)

// ErrDuplicate系の判定はIsUniqueViolationで行う（uniqueviolation.go参照）。

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレス重複の場合はユニーク制約違反のエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateVerified は指定ユーザーのis_verifiedを更新する。
	UpdateVerified(ctx context.Context, id string, verified bool) error

	// UpdatePasswordHash は指定ユーザーのパスワードハッシュを差し替える。
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error

	// Count は登録ユーザー数を返す。
	Count(ctx context.Context) (int, error)
}

// EmailTokenRepository はメール認証OTPトークンの永続化インターフェース。
// owner_idのユニーク制約により、同一ユーザーへの同時発行は片方だけが成功する。
type EmailTokenRepository interface {
	// FindByOwner は指定ユーザーの未消費トークンを取得する。見つからない場合はnilを返す。
	FindByOwner(ctx context.Context, ownerID string) (*model.EmailToken, error)

	// Create はトークンを作成する。
	// 同一ユーザーのトークンが既に存在する場合はユニーク制約違反のエラーを返す。
	Create(ctx context.Context, token *model.EmailToken) error

	// DeleteByID は指定IDのトークンを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteOlderThan は指定時刻より前に作成されたトークンを一括削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResetTokenRepository はパスワードリセットトークンの永続化インターフェース。
type ResetTokenRepository interface {
	// FindByOwner は指定ユーザーの未消費トークンを取得する。見つからない場合はnilを返す。
	FindByOwner(ctx context.Context, ownerID string) (*model.ResetToken, error)

	// Create はトークンを作成する。
	// 同一ユーザーのトークンが既に存在する場合はユニーク制約違反のエラーを返す。
	Create(ctx context.Context, token *model.ResetToken) error

	// DeleteByID は指定IDのトークンを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteOlderThan は指定時刻より前に作成されたトークンを一括削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MovieRepository は映画データの永続化インターフェース。
type MovieRepository interface {
	// FindByID は指定IDの映画を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Movie, error)

	// ListPublic は公開中の映画をrelease_date降順で取得する。
	ListPublic(ctx context.Context, limit, offset int) ([]*model.Movie, error)

	// Create は映画を作成する。
	Create(ctx context.Context, movie *model.Movie) error

	// Update は映画情報を上書き更新する。
	Update(ctx context.Context, movie *model.Movie) error

	// DeleteByID は指定IDの映画を削除する。関連レビューはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// Count は登録映画数を返す。
	Count(ctx context.Context) (int, error)
}

// ReviewRepository はレビューデータの永続化インターフェース。
type ReviewRepository interface {
	// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Review, error)

	// FindByOwnerAndMovie はユーザーIDと映画IDでレビューを検索する。見つからない場合はnilを返す。
	FindByOwnerAndMovie(ctx context.Context, ownerID, movieID string) (*model.Review, error)

	// ListByMovie は映画のレビュー一覧を投稿者名付きで取得する。
	ListByMovie(ctx context.Context, movieID string) ([]model.ReviewWithOwner, error)

	// Create はレビューを作成する。
	// 同一ユーザー・同一映画のレビューが既に存在する場合はユニーク制約違反のエラーを返す。
	Create(ctx context.Context, review *model.Review) error

	// Update はレビューの内容と評点を更新する。
	Update(ctx context.Context, review *model.Review) error

	// DeleteByID は指定IDのレビューを削除する。
	DeleteByID(ctx context.Context, id string) error

	// AverageRatingByMovie は映画の平均評点とレビュー件数を返す。
	// レビューが存在しない場合は(0, 0)を返す。
	AverageRatingByMovie(ctx context.Context, movieID string) (float64, int, error)

	// Count は全レビュー数を返す。
	Count(ctx context.Context) (int, error)
}
