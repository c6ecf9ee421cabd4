package handler

import (
	"context"
	"net/http"
)

// Counter は件数集計のインターフェース。各リポジトリのCountが満たす。
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// AdminHandler は管理者向け統計のHTTPハンドラー。
type AdminHandler struct {
	users   Counter
	movies  Counter
	reviews Counter
}

// NewAdminHandler はAdminHandlerの新しいインスタンスを生成する。
func NewAdminHandler(users, movies, reviews Counter) *AdminHandler {
	return &AdminHandler{users: users, movies: movies, reviews: reviews}
}

type statsResponse struct {
	UserCount   int `json:"userCount"`
	MovieCount  int `json:"movieCount"`
	ReviewCount int `json:"reviewCount"`
}

// Stats は登録ユーザー・映画・レビューの件数を返す。管理者専用。
// GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userCount, err := h.users.Count(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	movieCount, err := h.movies.Count(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	reviewCount, err := h.reviews.Count(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, statsResponse{
		UserCount:   userCount,
		MovieCount:  movieCount,
		ReviewCount: reviewCount,
	})
}
