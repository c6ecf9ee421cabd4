// Package movie は映画カタログ管理のドメインロジックを提供する。
package movie

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/masato/filmnote/internal/model"
	"github.com/masato/filmnote/internal/repository"
	"github.com/masato/filmnote/internal/security"
)

// maxListLimit は一覧取得の1ページ最大件数。
const maxListLimit = 50

// defaultListLimit は一覧取得のデフォルト件数。
const defaultListLimit = 20

// probeTimeout はポスターURL到達性チェックのタイムアウト。
const probeTimeout = 5 * time.Second

// Service は映画カタログのサービス層。
// 登録・更新は管理者のみが行う想定で、権限判定はハンドラー側のミドルウェアが担う。
type Service struct {
	movieRepo repository.MovieRepository
	urlGuard  security.MediaURLGuardService
	probe     *http.Client
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(movieRepo repository.MovieRepository, urlGuard security.MediaURLGuardService) *Service {
	return &Service{
		movieRepo: movieRepo,
		urlGuard:  urlGuard,
		probe:     urlGuard.NewSafeClient(probeTimeout),
	}
}

// CreateInput は映画登録の入力。
type CreateInput struct {
	Title       string
	StoryLine   string
	ReleaseDate time.Time
	Status      model.MovieStatus
	Genres      []string
	Tags        []string
	PosterURL   string
	TrailerURL  string
	Language    string
}

// Create は映画を登録する。
// ポスター・予告編URLはSSRF防止の観点で検証する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Movie, error) {
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	now := time.Now()
	movie := &model.Movie{
		ID:          uuid.New().String(),
		Title:       in.Title,
		StoryLine:   in.StoryLine,
		ReleaseDate: in.ReleaseDate,
		Status:      in.Status,
		Genres:      in.Genres,
		Tags:        in.Tags,
		PosterURL:   in.PosterURL,
		TrailerURL:  in.TrailerURL,
		Language:    in.Language,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.movieRepo.Create(ctx, movie); err != nil {
		return nil, fmt.Errorf("映画の登録に失敗しました: %w", err)
	}

	return movie, nil
}

// Update は映画情報を更新する。
func (s *Service) Update(ctx context.Context, id string, in CreateInput) (*model.Movie, error) {
	movie, err := s.movieRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	if movie == nil {
		return nil, model.NewMovieNotFoundError()
	}

	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	movie.Title = in.Title
	movie.StoryLine = in.StoryLine
	movie.ReleaseDate = in.ReleaseDate
	movie.Status = in.Status
	movie.Genres = in.Genres
	movie.Tags = in.Tags
	movie.PosterURL = in.PosterURL
	movie.TrailerURL = in.TrailerURL
	movie.Language = in.Language

	if err := s.movieRepo.Update(ctx, movie); err != nil {
		return nil, fmt.Errorf("映画の更新に失敗しました: %w", err)
	}

	return movie, nil
}

// Get は映画を1件取得する。
// 非公開作品は管理者以外に見せない（isAdmin=falseならNotFound扱い）。
func (s *Service) Get(ctx context.Context, id string, isAdmin bool) (*model.Movie, error) {
	movie, err := s.movieRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	if movie == nil {
		return nil, model.NewMovieNotFoundError()
	}
	if movie.Status != model.MovieStatusPublic && !isAdmin {
		return nil, model.NewMovieNotFoundError()
	}
	return movie, nil
}

// ListPublic は公開中の映画一覧をページングして返す。
func (s *Service) ListPublic(ctx context.Context, limit, offset int) ([]*model.Movie, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	movies, err := s.movieRepo.ListPublic(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("映画一覧の取得に失敗しました: %w", err)
	}
	return movies, nil
}

// Delete は映画を削除する。関連レビューはDB側のCASCADEで削除される。
func (s *Service) Delete(ctx context.Context, id string) error {
	movie, err := s.movieRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	if movie == nil {
		return model.NewMovieNotFoundError()
	}

	if err := s.movieRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("映画の削除に失敗しました: %w", err)
	}
	return nil
}

func (s *Service) validateInput(in *CreateInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.NewInvalidInputError("タイトルを入力してください。")
	}
	if in.Status == "" {
		in.Status = model.MovieStatusPrivate
	}
	if in.Status != model.MovieStatusPublic && in.Status != model.MovieStatusPrivate {
		return model.NewInvalidInputError("公開状態の値が正しくありません。")
	}
	if err := s.urlGuard.ValidateURL(in.PosterURL); err != nil {
		return model.NewInvalidInputError("ポスターURLが不正です。")
	}
	if err := s.urlGuard.ValidateURL(in.TrailerURL); err != nil {
		return model.NewInvalidInputError("予告編URLが不正です。")
	}
	return nil
}

// ProbePosterURL はポスターURLの到達性をSSRF防止クライアントで確認する。
// 管理画面からの事前チェック用であり、登録の成否には影響しない。
func (s *Service) ProbePosterURL(ctx context.Context, rawURL string) error {
	if err := s.urlGuard.ValidateURL(rawURL); err != nil {
		return model.NewInvalidInputError("ポスターURLが不正です。")
	}
	if rawURL == "" {
		return model.NewInvalidInputError("ポスターURLを入力してください。")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return model.NewInvalidInputError("ポスターURLが不正です。")
	}

	resp, err := s.probe.Do(req)
	if err != nil {
		return model.NewInvalidInputError("ポスターURLに到達できません。")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return model.NewInvalidInputError(fmt.Sprintf("ポスターURLの確認に失敗しました（HTTP %d）。", resp.StatusCode))
	}
	return nil
}
