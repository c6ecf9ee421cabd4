package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/masato/filmnote/internal/middleware"
	"github.com/masato/filmnote/internal/model"
)

// ReviewServiceInterface はレビューサービスのインターフェース。
type ReviewServiceInterface interface {
	Create(ctx context.Context, ownerID, movieID, content string, rating int) (*model.Review, error)
	Update(ctx context.Context, reviewID, requesterID, content string, rating int) (*model.Review, error)
	Delete(ctx context.Context, reviewID, requesterID string) error
	ListByMovie(ctx context.Context, movieID string) ([]model.ReviewWithOwner, error)
}

// ReviewHandler はレビュー関連のHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerの新しいインスタンスを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

type reviewRequest struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

// reviewResponse はレビューのAPI表現。
type reviewResponse struct {
	ID        string `json:"id"`
	MovieID   string `json:"movieId"`
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName,omitempty"`
	Content   string `json:"content"`
	Rating    int    `json:"rating"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func toReviewResponse(rv *model.Review) reviewResponse {
	return reviewResponse{
		ID:      rv.ID,
		MovieID: rv.MovieID,
		OwnerID: rv.OwnerID,
		Content: rv.Content,
		Rating:  rv.Rating,
	}
}

// Create は映画にレビューを投稿する。メール認証済みユーザーのみ。
// POST /api/movies/{movieID}/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "認証が必要です。")
		return
	}
	movieID := chi.URLParam(r, "movieID")

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	rv, err := h.service.Create(r.Context(), userID, movieID, req.Content, req.Rating)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, toReviewResponse(rv))
}

// Update は自分のレビューを更新する。
// PATCH /api/reviews/{reviewID}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "認証が必要です。")
		return
	}
	reviewID := chi.URLParam(r, "reviewID")

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	rv, err := h.service.Update(r.Context(), reviewID, userID, req.Content, req.Rating)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, toReviewResponse(rv))
}

// Delete は自分のレビューを削除する。管理者は任意のレビューを削除できる。
// DELETE /api/reviews/{reviewID}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "認証が必要です。")
		return
	}
	reviewID := chi.URLParam(r, "reviewID")

	if err := h.service.Delete(r.Context(), reviewID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMsg(w, http.StatusOK, "レビューを削除しました。")
}

// ListByMovie は映画のレビュー一覧を投稿者名付きで返す。
// GET /api/movies/{movieID}/reviews
func (h *ReviewHandler) ListByMovie(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")

	reviews, err := h.service.ListByMovie(r.Context(), movieID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		resp := toReviewResponse(&rv.Review)
		resp.OwnerName = rv.OwnerName
		resp.CreatedAt = rv.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
		responses = append(responses, resp)
	}

	writeData(w, http.StatusOK, responses)
}
