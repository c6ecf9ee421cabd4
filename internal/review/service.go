// Package review は映画レビューのドメインロジックを提供する。
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/masato/filmnote/internal/model"
	"github.com/masato/filmnote/internal/repository"
	"github.com/masato/filmnote/internal/security"
)

// maxContentLength はレビュー本文の最大文字数（サニタイズ後に評価）。
const maxContentLength = 4000

// Summary は映画ごとの評点集計。
type Summary struct {
	AverageRating float64
	ReviewCount   int
}

// Service は映画レビューのサービス層。
// 投稿はメール認証済みユーザーに限定し、本文は保存前にサニタイズする。
// 「同一ユーザーは同一映画に1件」の不変条件は(owner_id, movie_id)の
// ユニーク制約で保証する。
type Service struct {
	reviewRepo repository.ReviewRepository
	movieRepo  repository.MovieRepository
	userRepo   repository.UserRepository
	sanitizer  security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	reviewRepo repository.ReviewRepository,
	movieRepo repository.MovieRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		reviewRepo: reviewRepo,
		movieRepo:  movieRepo,
		userRepo:   userRepo,
		sanitizer:  sanitizer,
	}
}

// Create はレビューを投稿する。
// 未認証ユーザーはForbidden、非公開・不存在の映画はNotFound、
// 同一映画への二重投稿はConflictになる。
func (s *Service) Create(ctx context.Context, ownerID, movieID, content string, rating int) (*model.Review, error) {
	user, err := s.userRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if !user.IsVerified {
		return nil, model.NewNotVerifiedError()
	}

	movie, err := s.movieRepo.FindByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	if movie == nil || movie.Status != model.MovieStatusPublic {
		return nil, model.NewMovieNotFoundError()
	}

	content, err = s.normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	now := time.Now()
	review := &model.Review{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		MovieID:   movieID,
		Content:   content,
		Rating:    rating,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewAlreadyReviewedError()
		}
		return nil, fmt.Errorf("レビューの保存に失敗しました: %w", err)
	}

	return review, nil
}

// Update はレビューの本文と評点を更新する。投稿者本人のみが更新できる。
func (s *Service) Update(ctx context.Context, reviewID, requesterID, content string, rating int) (*model.Review, error) {
	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("レビューの取得に失敗しました: %w", err)
	}
	if review == nil {
		return nil, model.NewReviewNotFoundError()
	}
	if review.OwnerID != requesterID {
		return nil, model.NewForbiddenError()
	}

	content, err = s.normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	review.Content = content
	review.Rating = rating

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("レビューの更新に失敗しました: %w", err)
	}

	return review, nil
}

// Delete はレビューを削除する。投稿者本人または管理者のみが削除できる。
func (s *Service) Delete(ctx context.Context, reviewID, requesterID string) error {
	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("レビューの取得に失敗しました: %w", err)
	}
	if review == nil {
		return model.NewReviewNotFoundError()
	}

	if review.OwnerID != requesterID {
		requester, err := s.userRepo.FindByID(ctx, requesterID)
		if err != nil {
			return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
		}
		if requester == nil || requester.Role != model.RoleAdmin {
			return model.NewForbiddenError()
		}
	}

	if err := s.reviewRepo.DeleteByID(ctx, reviewID); err != nil {
		return fmt.Errorf("レビューの削除に失敗しました: %w", err)
	}
	return nil
}

// ListByMovie は映画のレビュー一覧を投稿者名付きで返す。
func (s *Service) ListByMovie(ctx context.Context, movieID string) ([]model.ReviewWithOwner, error) {
	movie, err := s.movieRepo.FindByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	if movie == nil {
		return nil, model.NewMovieNotFoundError()
	}

	reviews, err := s.reviewRepo.ListByMovie(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}
	return reviews, nil
}

// SummaryByMovie は映画の平均評点とレビュー件数を返す。
// レビューが1件もない場合は平均0、件数0を返す。
func (s *Service) SummaryByMovie(ctx context.Context, movieID string) (*Summary, error) {
	movie, err := s.movieRepo.FindByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	if movie == nil {
		return nil, model.NewMovieNotFoundError()
	}

	avg, count, err := s.reviewRepo.AverageRatingByMovie(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("評点集計の取得に失敗しました: %w", err)
	}

	return &Summary{AverageRating: avg, ReviewCount: count}, nil
}

// normalizeContent は本文をサニタイズし、長さを検証する。
func (s *Service) normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return "", model.NewInvalidInputError("レビュー本文を入力してください。")
	}
	if len([]rune(content)) > maxContentLength {
		return "", model.NewInvalidInputError(fmt.Sprintf("レビュー本文は%d文字以内で入力してください。", maxContentLength))
	}
	return content, nil
}

func validateRating(rating int) error {
	if rating < 0 || rating > 10 {
		return model.NewInvalidInputError("評点は0〜10で入力してください。")
	}
	return nil
}
