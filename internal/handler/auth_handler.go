package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/masato/filmnote/internal/model"
)

// AuthServiceInterface は認証・アカウント管理サービスのインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (string, *model.User, error)
	IssueOTP(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, userID, submittedOTP string) (string, *model.User, error)
	RequestReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, userID, secret string) (bool, error)
	ResetPassword(ctx context.Context, userID, newPassword, secret string) error
}

// AuthHandler は認証・アカウント管理関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// userResponse はユーザー情報のAPI表現。パスワードハッシュは決して含めない。
type userResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
	Role       string `json:"role"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		IsVerified: user.IsVerified,
		Role:       string(user.Role),
	}
}

// sessionResponse はサインイン・メール認証成功時のAPI表現。
type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register は新規ユーザーを登録し、確認用OTPメールの送信を開始する。
// POST /api/users
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	user, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, toUserResponse(user))
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn はメールアドレスとパスワードでサインインし、セッショントークンを返す。
// POST /api/users/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	token, user, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, sessionResponse{Token: token, User: toUserResponse(user)})
}

type verifyEmailRequest struct {
	UserID string `json:"userId"`
	OTP    string `json:"OTP"`
}

// VerifyEmail はOTPを照合してメールアドレスを認証済みにする。
// 成功時はそのままサインインさせるため、セッショントークンを返す。
// POST /api/users/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	token, user, err := h.service.VerifyEmail(r.Context(), req.UserID, req.OTP)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, sessionResponse{Token: token, User: toUserResponse(user)})
}

type resendOTPRequest struct {
	UserID string `json:"userId"`
}

// ResendOTP は確認用OTPを再発行する。
// 未消費トークンが残っている場合は409を返し、再発行のクールダウンとして機能する。
// POST /api/users/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req resendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	if err := h.service.IssueOTP(r.Context(), req.UserID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMsg(w, http.StatusOK, "確認コードを送信しました。メールをご確認ください。")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword はパスワードリセット用のリンクをメールで送信する。
// POST /api/users/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	if err := h.service.RequestReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMsg(w, http.StatusOK, "パスワードリセット用のリンクを送信しました。メールをご確認ください。")
}

type verifyResetTokenRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type verifyResetTokenResponse struct {
	Valid bool `json:"valid"`
}

// VerifyResetToken はリセットトークンの有効性を消費せずに確認する。
// フロントエンドがリセット画面の表示可否を判断するために使う。
// POST /api/users/verify-reset-token
func (h *AuthHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req verifyResetTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	valid, err := h.service.ValidateResetToken(r.Context(), req.UserID, req.Token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, verifyResetTokenResponse{Valid: valid})
}

type resetPasswordRequest struct {
	UserID      string `json:"userId"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword はリセットトークンを消費してパスワードを更新する。
// POST /api/users/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です。")
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.UserID, req.NewPassword, req.Token); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMsg(w, http.StatusOK, "パスワードを変更しました。新しいパスワードでサインインしてください。")
}
