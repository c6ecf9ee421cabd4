package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/masato/filmnote/internal/model"
)

// --- モック定義 ---

// mockReviewService はReviewServiceInterfaceのモック実装。
type mockReviewService struct {
	createFn      func(ctx context.Context, ownerID, movieID, content string, rating int) (*model.Review, error)
	updateFn      func(ctx context.Context, reviewID, requesterID, content string, rating int) (*model.Review, error)
	deleteFn      func(ctx context.Context, reviewID, requesterID string) error
	listByMovieFn func(ctx context.Context, movieID string) ([]model.ReviewWithOwner, error)
}

func (m *mockReviewService) Create(ctx context.Context, ownerID, movieID, content string, rating int) (*model.Review, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerID, movieID, content, rating)
	}
	return nil, nil
}

func (m *mockReviewService) Update(ctx context.Context, reviewID, requesterID, content string, rating int) (*model.Review, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, reviewID, requesterID, content, rating)
	}
	return nil, nil
}

func (m *mockReviewService) Delete(ctx context.Context, reviewID, requesterID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, reviewID, requesterID)
	}
	return nil
}

func (m *mockReviewService) ListByMovie(ctx context.Context, movieID string) ([]model.ReviewWithOwner, error) {
	if m.listByMovieFn != nil {
		return m.listByMovieFn(ctx, movieID)
	}
	return nil, nil
}

func testReview() *model.Review {
	return &model.Review{
		ID:      "review-1",
		OwnerID: "user-123",
		MovieID: "movie-1",
		Content: "<p>傑作。何度観ても新しい発見がある。</p>",
		Rating:  9,
	}
}

// --- POST /api/movies/{movieID}/reviews テスト ---

func TestReviewHandler_Create_Success(t *testing.T) {
	svc := &mockReviewService{
		createFn: func(ctx context.Context, ownerID, movieID, content string, rating int) (*model.Review, error) {
			if ownerID != "user-123" {
				t.Errorf("ownerID = %q, want %q", ownerID, "user-123")
			}
			if movieID != "movie-1" {
				t.Errorf("movieID = %q, want %q", movieID, "movie-1")
			}
			if rating != 9 {
				t.Errorf("rating = %d, want %d", rating, 9)
			}
			return testReview(), nil
		},
	}
	h := NewReviewHandler(svc)

	body := jsonBody(t, map[string]any{"content": "<p>傑作。何度観ても新しい発見がある。</p>", "rating": 9})
	req := httptest.NewRequest(http.MethodPost, "/api/movies/movie-1/reviews", body)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "movieID", "movie-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestReviewHandler_Create_Unauthenticated(t *testing.T) {
	h := NewReviewHandler(&mockReviewService{})

	body := jsonBody(t, map[string]any{"content": "良い", "rating": 7})
	req := httptest.NewRequest(http.MethodPost, "/api/movies/movie-1/reviews", body)
	req = withChiURLParam(req, "movieID", "movie-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestReviewHandler_Create_UnverifiedUser(t *testing.T) {
	svc := &mockReviewService{
		createFn: func(ctx context.Context, ownerID, movieID, content string, rating int) (*model.Review, error) {
			return nil, model.NewNotVerifiedError()
		},
	}
	h := NewReviewHandler(svc)

	body := jsonBody(t, map[string]any{"content": "良い", "rating": 7})
	req := httptest.NewRequest(http.MethodPost, "/api/movies/movie-1/reviews", body)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "movieID", "movie-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestReviewHandler_Create_Duplicate(t *testing.T) {
	svc := &mockReviewService{
		createFn: func(ctx context.Context, ownerID, movieID, content string, rating int) (*model.Review, error) {
			return nil, model.NewAlreadyReviewedError()
		},
	}
	h := NewReviewHandler(svc)

	body := jsonBody(t, map[string]any{"content": "良い", "rating": 7})
	req := httptest.NewRequest(http.MethodPost, "/api/movies/movie-1/reviews", body)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "movieID", "movie-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// --- PATCH /api/reviews/{reviewID} テスト ---

func TestReviewHandler_Update_Forbidden(t *testing.T) {
	svc := &mockReviewService{
		updateFn: func(ctx context.Context, reviewID, requesterID, content string, rating int) (*model.Review, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewReviewHandler(svc)

	body := jsonBody(t, map[string]any{"content": "書き換え", "rating": 3})
	req := httptest.NewRequest(http.MethodPatch, "/api/reviews/review-1", body)
	req = withUserID(req, "other-user")
	req = withChiURLParam(req, "reviewID", "review-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestReviewHandler_Update_Success(t *testing.T) {
	svc := &mockReviewService{
		updateFn: func(ctx context.Context, reviewID, requesterID, content string, rating int) (*model.Review, error) {
			if reviewID != "review-1" {
				t.Errorf("reviewID = %q, want %q", reviewID, "review-1")
			}
			if requesterID != "user-123" {
				t.Errorf("requesterID = %q, want %q", requesterID, "user-123")
			}
			updated := testReview()
			updated.Rating = rating
			updated.Content = content
			return updated, nil
		},
	}
	h := NewReviewHandler(svc)

	body := jsonBody(t, map[string]any{"content": "再評価した。", "rating": 10})
	req := httptest.NewRequest(http.MethodPatch, "/api/reviews/review-1", body)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "reviewID", "review-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeEnvelope(t, w)
	data := result["data"].(map[string]any)
	if data["rating"] != float64(10) {
		t.Errorf("rating = %v, want %v", data["rating"], 10)
	}
}

// --- DELETE /api/reviews/{reviewID} テスト ---

func TestReviewHandler_Delete_Success(t *testing.T) {
	var gotReviewID, gotRequesterID string
	svc := &mockReviewService{
		deleteFn: func(ctx context.Context, reviewID, requesterID string) error {
			gotReviewID = reviewID
			gotRequesterID = requesterID
			return nil
		},
	}
	h := NewReviewHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/reviews/review-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "reviewID", "review-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotReviewID != "review-1" || gotRequesterID != "user-123" {
		t.Errorf("delete called with (%q, %q), want (%q, %q)", gotReviewID, gotRequesterID, "review-1", "user-123")
	}
}

// --- GET /api/movies/{movieID}/reviews テスト ---

func TestReviewHandler_ListByMovie_Success(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockReviewService{
		listByMovieFn: func(ctx context.Context, movieID string) ([]model.ReviewWithOwner, error) {
			rv := testReview()
			rv.CreatedAt = now
			return []model.ReviewWithOwner{{Review: *rv, OwnerName: "山田太郎"}}, nil
		},
	}
	h := NewReviewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/movie-1/reviews", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "movieID", "movie-1")
	w := httptest.NewRecorder()

	h.ListByMovie(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeEnvelope(t, w)
	reviews := result["data"].([]any)
	if len(reviews) != 1 {
		t.Fatalf("reviews length = %d, want 1", len(reviews))
	}
	first := reviews[0].(map[string]any)
	if first["ownerName"] != "山田太郎" {
		t.Errorf("ownerName = %v, want %q", first["ownerName"], "山田太郎")
	}
	if first["createdAt"] != "2026-08-01T12:00:00Z" {
		t.Errorf("createdAt = %v, want %q", first["createdAt"], "2026-08-01T12:00:00Z")
	}
}

func TestReviewHandler_ListByMovie_MovieNotFound(t *testing.T) {
	svc := &mockReviewService{
		listByMovieFn: func(ctx context.Context, movieID string) ([]model.ReviewWithOwner, error) {
			return nil, model.NewMovieNotFoundError()
		},
	}
	h := NewReviewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/missing/reviews", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "movieID", "missing")
	w := httptest.NewRecorder()

	h.ListByMovie(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
