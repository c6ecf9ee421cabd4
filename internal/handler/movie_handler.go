package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/masato/filmnote/internal/middleware"
	"github.com/masato/filmnote/internal/model"
	"github.com/masato/filmnote/internal/movie"
	"github.com/masato/filmnote/internal/review"
)

// MovieServiceInterface は映画カタログサービスのインターフェース。
type MovieServiceInterface interface {
	Create(ctx context.Context, in movie.CreateInput) (*model.Movie, error)
	Update(ctx context.Context, id string, in movie.CreateInput) (*model.Movie, error)
	Get(ctx context.Context, id string, isAdmin bool) (*model.Movie, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*model.Movie, error)
	Delete(ctx context.Context, id string) error
	ProbePosterURL(ctx context.Context, rawURL string) error
}

// RatingSummaryInterface は映画詳細に添える評点集計のインターフェース。
type RatingSummaryInterface interface {
	SummaryByMovie(ctx context.Context, movieID string) (*review.Summary, error)
}

// MovieHandler は映画カタログ関連のHTTPハンドラー。
type MovieHandler struct {
	service    MovieServiceInterface
	summaries  RatingSummaryInterface
	userFinder middleware.UserFinder
}

// NewMovieHandler はMovieHandlerの新しいインスタンスを生成する。
func NewMovieHandler(service MovieServiceInterface, summaries RatingSummaryInterface, userFinder middleware.UserFinder) *MovieHandler {
	return &MovieHandler{service: service, summaries: summaries, userFinder: userFinder}
}

// movieRequest は映画の登録・更新の入力。
type movieRequest struct {
	Title       string   `json:"title"`
	StoryLine   string   `json:"storyLine"`
	ReleaseDate string   `json:"releaseDate"` // YYYY-MM-DD
	Status      string   `json:"status"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	PosterURL   string   `json:"posterUrl"`
	TrailerURL  string   `json:"trailerUrl"`
	Language    string   `json:"language"`
}

func (req *movieRequest) toCreateInput() (movie.CreateInput, error) {
	in := movie.CreateInput{
		Title:      req.Title,
		StoryLine:  req.StoryLine,
		Status:     model.MovieStatus(req.Status),
		Genres:     req.Genres,
		Tags:       req.Tags,
		PosterURL:  req.PosterURL,
		TrailerURL: req.TrailerURL,
		Language:   req.Language,
	}
	if req.ReleaseDate != "" {
		releaseDate, err := time.Parse("2006-01-02", req.ReleaseDate)
		if err != nil {
			return movie.CreateInput{}, model.NewInvalidInputError("公開日はYYYY-MM-DD形式で指定してください。")
		}
		in.ReleaseDate = releaseDate
	}
	return in, nil
}

// movieResponse は映画情報のAPI表現。
type movieResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	StoryLine   string   `json:"storyLine"`
	ReleaseDate string   `json:"releaseDate"`
	Status      string   `json:"status"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	PosterURL   string   `json:"posterUrl,omitempty"`
	TrailerURL  string   `json:"trailerUrl,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// movieDetailResponse は映画詳細のAPI表現。評点の集計値を含む。
type movieDetailResponse struct {
	movieResponse
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

func toMovieResponse(m *model.Movie) movieResponse {
	releaseDate := ""
	if !m.ReleaseDate.IsZero() {
		releaseDate = m.ReleaseDate.Format("2006-01-02")
	}
	return movieResponse{
		ID:          m.ID,
		Title:       m.Title,
		StoryLine:   m.StoryLine,
		ReleaseDate: releaseDate,
		Status:      string(m.Status),
		Genres:      m.Genres,
		Tags:        m.Tags,
		PosterURL:   m.PosterURL,
		TrailerURL:  m.TrailerURL,
		Language:    m.Language,
	}
}

// isAdminRequester はリクエスト元ユーザーが管理者かを判定する。
// 未認証・取得失敗時はfalseを返す（閲覧範囲が狭まる方向にしか倒れない）。
func (h *MovieHandler) isAdminRequester(r *http.Request) bool {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		return false
	}
	user, err := h.userFinder.FindByID(r.Context(), userID)
	if err != nil || user == nil {
		return false
	}
	return user.Role == model.RoleAdmin
}

// List は公開中の映画一覧をページング付きで返す。
// GET /api/movies?limit=20&offset=0
func (h *MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	movies, err := h.service.ListPublic(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]movieResponse, 0, len(movies))
	for _, m := range movies {
		responses = append(responses, toMovieResponse(m))
	}

	writeData(w, http.StatusOK, responses)
}

// Get は映画詳細を評点集計付きで返す。
// 非公開の映画は管理者のみ閲覧できる。
// GET /api/movies/{movieID}
func (h *MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")

	m, err := h.service.Get(r.Context(), movieID, h.isAdminRequester(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	summary, err := h.summaries.SummaryByMovie(r.Context(), movieID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, movieDetailResponse{
		movieResponse: toMovieResponse(m),
		AverageRating: summary.AverageRating,
		ReviewCount:   summary.ReviewCount,
	})
}

// Create は映画を登録する。管理者専用。
// POST /api/movies
func (h *MovieHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req movieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	in, err := req.toCreateInput()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	m, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, toMovieResponse(m))
}

// Update は映画情報を上書き更新する。管理者専用。
// PATCH /api/movies/{movieID}
func (h *MovieHandler) Update(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")

	var req movieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	in, err := req.toCreateInput()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	m, err := h.service.Update(r.Context(), movieID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, toMovieResponse(m))
}

type probePosterRequest struct {
	PosterURL string `json:"posterUrl"`
}

// ProbePoster はポスターURLの到達性を事前確認する。管理者専用。
// POST /api/movies/probe-poster
func (h *MovieHandler) ProbePoster(w http.ResponseWriter, r *http.Request) {
	var req probePosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	if err := h.service.ProbePosterURL(r.Context(), req.PosterURL); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMsg(w, http.StatusOK, "ポスターURLに到達できました。")
}

// Delete は映画を削除する。関連レビューも連動して削除される。管理者専用。
// DELETE /api/movies/{movieID}
func (h *MovieHandler) Delete(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")

	if err := h.service.Delete(r.Context(), movieID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMsg(w, http.StatusOK, "映画を削除しました。")
}
