package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/masato/filmnote/internal/middleware"
	"github.com/masato/filmnote/internal/model"
)

// --- テストヘルパー ---

// withUserID はテスト用に認証済みユーザーIDをコンテキストへ注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeEnvelope はレスポンスボディを統一エンベロープとしてパースするヘルパー。
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("failed to encode request body: %v", err)
	}
	return buf
}

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn           func(ctx context.Context, name, email, password string) (*model.User, error)
	signInFn             func(ctx context.Context, email, password string) (string, *model.User, error)
	issueOTPFn           func(ctx context.Context, userID string) error
	verifyEmailFn        func(ctx context.Context, userID, submittedOTP string) (string, *model.User, error)
	requestResetFn       func(ctx context.Context, email string) error
	validateResetTokenFn func(ctx context.Context, userID, secret string) (bool, error)
	resetPasswordFn      func(ctx context.Context, userID, newPassword, secret string) error
}

func (m *mockAuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, name, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (string, *model.User, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return "", nil, nil
}

func (m *mockAuthService) IssueOTP(ctx context.Context, userID string) error {
	if m.issueOTPFn != nil {
		return m.issueOTPFn(ctx, userID)
	}
	return nil
}

func (m *mockAuthService) VerifyEmail(ctx context.Context, userID, submittedOTP string) (string, *model.User, error) {
	if m.verifyEmailFn != nil {
		return m.verifyEmailFn(ctx, userID, submittedOTP)
	}
	return "", nil, nil
}

func (m *mockAuthService) RequestReset(ctx context.Context, email string) error {
	if m.requestResetFn != nil {
		return m.requestResetFn(ctx, email)
	}
	return nil
}

func (m *mockAuthService) ValidateResetToken(ctx context.Context, userID, secret string) (bool, error) {
	if m.validateResetTokenFn != nil {
		return m.validateResetTokenFn(ctx, userID, secret)
	}
	return false, nil
}

func (m *mockAuthService) ResetPassword(ctx context.Context, userID, newPassword, secret string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(ctx, userID, newPassword, secret)
	}
	return nil
}

func testUser() *model.User {
	return &model.User{
		ID:         "user-123",
		Name:       "山田太郎",
		Email:      "taro@example.com",
		IsVerified: false,
		Role:       model.RoleUser,
	}
}

// --- POST /api/users テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, name, email, password string) (*model.User, error) {
			if name != "山田太郎" {
				t.Errorf("name = %q, want %q", name, "山田太郎")
			}
			if email != "taro@example.com" {
				t.Errorf("email = %q, want %q", email, "taro@example.com")
			}
			return testUser(), nil
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{
		"name":     "山田太郎",
		"email":    "taro@example.com",
		"password": "secret-pass-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	result := decodeEnvelope(t, w)
	data, ok := result["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data object in response")
	}
	if data["id"] != "user-123" {
		t.Errorf("data.id = %v, want %q", data["id"], "user-123")
	}
	if _, exists := data["passwordHash"]; exists {
		t.Error("response must not expose password hash")
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, name, email, password string) (*model.User, error) {
			return nil, model.NewEmailTakenError()
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{
		"name":     "山田太郎",
		"email":    "taro@example.com",
		"password": "secret-pass-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	result := decodeEnvelope(t, w)
	if result["error"] == nil || result["error"] == "" {
		t.Error("expected error message in response")
	}
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Register_InternalErrorIsGeneric(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, name, email, password string) (*model.User, error) {
			return nil, errors.New("pq: connection refused")
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"name": "a", "email": "a@example.com", "password": "secret-pass-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	result := decodeEnvelope(t, w)
	errMsg, _ := result["error"].(string)
	if strings.Contains(errMsg, "pq:") {
		t.Errorf("internal error detail leaked to client: %q", errMsg)
	}
}

// --- POST /api/users/sign-in テスト ---

func TestAuthHandler_SignIn_Success(t *testing.T) {
	svc := &mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (string, *model.User, error) {
			return "jwt-token", testUser(), nil
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"email": "taro@example.com", "password": "secret-pass-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/sign-in", body)
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeEnvelope(t, w)
	data, ok := result["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data object in response")
	}
	if data["token"] != "jwt-token" {
		t.Errorf("data.token = %v, want %q", data["token"], "jwt-token")
	}
	user, ok := data["user"].(map[string]any)
	if !ok {
		t.Fatal("expected user object in response")
	}
	if user["email"] != "taro@example.com" {
		t.Errorf("user.email = %v, want %q", user["email"], "taro@example.com")
	}
}

func TestAuthHandler_SignIn_WrongPassword(t *testing.T) {
	svc := &mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (string, *model.User, error) {
			return "", nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"email": "taro@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/sign-in", body)
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- POST /api/users/verify-email テスト ---

func TestAuthHandler_VerifyEmail_Success(t *testing.T) {
	svc := &mockAuthService{
		verifyEmailFn: func(ctx context.Context, userID, submittedOTP string) (string, *model.User, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			if submittedOTP != "123456" {
				t.Errorf("OTP = %q, want %q", submittedOTP, "123456")
			}
			verified := testUser()
			verified.IsVerified = true
			return "jwt-token", verified, nil
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"userId": "user-123", "OTP": "123456"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/verify-email", body)
	w := httptest.NewRecorder()

	h.VerifyEmail(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeEnvelope(t, w)
	data := result["data"].(map[string]any)
	user := data["user"].(map[string]any)
	if user["isVerified"] != true {
		t.Error("expected isVerified = true after verification")
	}
}

func TestAuthHandler_VerifyEmail_WrongOTP(t *testing.T) {
	svc := &mockAuthService{
		verifyEmailFn: func(ctx context.Context, userID, submittedOTP string) (string, *model.User, error) {
			return "", nil, model.NewInvalidOTPError()
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"userId": "user-123", "OTP": "000000"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/verify-email", body)
	w := httptest.NewRecorder()

	h.VerifyEmail(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- POST /api/users/resend-otp テスト ---

func TestAuthHandler_ResendOTP_AlreadyIssued(t *testing.T) {
	svc := &mockAuthService{
		issueOTPFn: func(ctx context.Context, userID string) error {
			return model.NewTokenAlreadyIssuedError()
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"userId": "user-123"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/resend-otp", body)
	w := httptest.NewRecorder()

	h.ResendOTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestAuthHandler_ResendOTP_Success(t *testing.T) {
	called := false
	svc := &mockAuthService{
		issueOTPFn: func(ctx context.Context, userID string) error {
			called = true
			return nil
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"userId": "user-123"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/resend-otp", body)
	w := httptest.NewRecorder()

	h.ResendOTP(w, req)

	if !called {
		t.Error("expected IssueOTP to be called")
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeEnvelope(t, w)
	if result["msg"] == nil {
		t.Error("expected msg in response")
	}
}

// --- POST /api/users/forgot-password テスト ---

func TestAuthHandler_ForgotPassword_UnknownEmail(t *testing.T) {
	svc := &mockAuthService{
		requestResetFn: func(ctx context.Context, email string) error {
			return model.NewEmailNotFoundError(email)
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"email": "nobody@example.com"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/forgot-password", body)
	w := httptest.NewRecorder()

	h.ForgotPassword(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- POST /api/users/verify-reset-token テスト ---

func TestAuthHandler_VerifyResetToken(t *testing.T) {
	tests := []struct {
		name      string
		valid     bool
		wantValid bool
	}{
		{name: "有効なトークン", valid: true, wantValid: true},
		{name: "無効なトークン", valid: false, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				validateResetTokenFn: func(ctx context.Context, userID, secret string) (bool, error) {
					return tt.valid, nil
				},
			}
			h := NewAuthHandler(svc)

			body := jsonBody(t, map[string]string{"userId": "user-123", "token": "secret"})
			req := httptest.NewRequest(http.MethodPost, "/api/users/verify-reset-token", body)
			w := httptest.NewRecorder()

			h.VerifyResetToken(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
			result := decodeEnvelope(t, w)
			data := result["data"].(map[string]any)
			if data["valid"] != tt.wantValid {
				t.Errorf("data.valid = %v, want %v", data["valid"], tt.wantValid)
			}
		})
	}
}

// --- POST /api/users/reset-password テスト ---

func TestAuthHandler_ResetPassword_SamePassword(t *testing.T) {
	svc := &mockAuthService{
		resetPasswordFn: func(ctx context.Context, userID, newPassword, secret string) error {
			return model.NewSamePasswordError()
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{
		"userId":      "user-123",
		"token":       "secret",
		"newPassword": "same-as-before",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/users/reset-password", body)
	w := httptest.NewRecorder()

	h.ResetPassword(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestAuthHandler_ResetPassword_Success(t *testing.T) {
	var gotNewPassword, gotSecret string
	svc := &mockAuthService{
		resetPasswordFn: func(ctx context.Context, userID, newPassword, secret string) error {
			gotNewPassword = newPassword
			gotSecret = secret
			return nil
		},
	}
	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{
		"userId":      "user-123",
		"token":       "reset-secret",
		"newPassword": "brand-new-pass",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/users/reset-password", body)
	w := httptest.NewRecorder()

	h.ResetPassword(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotNewPassword != "brand-new-pass" {
		t.Errorf("newPassword = %q, want %q", gotNewPassword, "brand-new-pass")
	}
	if gotSecret != "reset-secret" {
		t.Errorf("secret = %q, want %q", gotSecret, "reset-secret")
	}
}
