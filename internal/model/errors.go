package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind は業務エラーの閉じた分類を表す。
// ハンドラー層でHTTPステータスへの写像に使用する。
type ErrorKind string

const (
	// KindNotFound は参照先エンティティが存在しないことを示す。
	KindNotFound ErrorKind = "not_found"
	// KindConflict は状態の衝突（認証済み・トークン発行済み・同一パスワード等）を示す。
	KindConflict ErrorKind = "conflict"
	// KindInvalidInput はリクエスト内容の形式不正を示す。
	KindInvalidInput ErrorKind = "invalid_input"
	// KindInvalidCredentials はサインイン時の認証失敗を示す。
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	// KindInvalidOTP はOTP不一致を示す。トークンは消費されない。
	KindInvalidOTP ErrorKind = "invalid_otp"
	// KindForbidden は権限不足を示す。
	KindForbidden ErrorKind = "forbidden"
	// KindInternal はストア・署名等の予期しない内部失敗を示す。
	// 詳細はログにのみ記録し、利用者には汎用メッセージを返す。
	KindInternal ErrorKind = "internal"
)

// APIError は利用者に返してよい業務エラーを表す。
// 生の内部エラーは決して保持しない。
type APIError struct {
	Kind    ErrorKind
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// HTTPStatus はエラー分類に対応するHTTPステータスコードを返す。
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindInvalidOTP:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// AsAPIError はエラーチェーンからAPIErrorを取り出す。
// 業務エラーでない場合はnilとfalseを返す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{Kind: KindNotFound, Message: "ユーザーが見つかりません。"}
}

// NewEmailNotFoundError は指定メールアドレスのユーザーが存在しないエラーを生成する。
func NewEmailNotFoundError(email string) *APIError {
	return &APIError{Kind: KindNotFound, Message: fmt.Sprintf("メールアドレス %s のユーザーが見つかりません。", email)}
}

// NewTokenNotFoundError は未消費トークンが存在しないエラーを生成する。
// 期限切れトークンも存在しない扱いにする。
func NewTokenNotFoundError() *APIError {
	return &APIError{Kind: KindNotFound, Message: "有効なトークンが見つかりません。再発行してください。"}
}

// NewAlreadyVerifiedError は認証済みユーザーへの再認証要求エラーを生成する。
func NewAlreadyVerifiedError() *APIError {
	return &APIError{Kind: KindConflict, Message: "このユーザーは既にメール認証済みです。"}
}

// NewTokenAlreadyIssuedError は未消費トークンが既に存在するエラーを生成する。
// 再発行のクールダウンとして機能する。
func NewTokenAlreadyIssuedError() *APIError {
	return &APIError{Kind: KindConflict, Message: "トークンは発行済みです。しばらく待ってから再度お試しください。"}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{Kind: KindConflict, Message: "このメールアドレスは既に登録されています。"}
}

// NewSamePasswordError は新旧パスワード同一エラーを生成する。
func NewSamePasswordError() *APIError {
	return &APIError{Kind: KindConflict, Message: "新しいパスワードは現在のパスワードと異なる必要があります。"}
}

// NewInvalidOTPError はOTP不一致エラーを生成する。
func NewInvalidOTPError() *APIError {
	return &APIError{Kind: KindInvalidOTP, Message: "OTPが正しくありません。"}
}

// NewInvalidCredentialsError はサインイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{Kind: KindInvalidCredentials, Message: "メールアドレスまたはパスワードが正しくありません。"}
}

// NewInvalidInputError は入力不正エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{Kind: KindInvalidInput, Message: reason}
}

// NewMovieNotFoundError は映画未検出エラーを生成する。
func NewMovieNotFoundError() *APIError {
	return &APIError{Kind: KindNotFound, Message: "指定された映画が見つかりません。"}
}

// NewReviewNotFoundError はレビュー未検出エラーを生成する。
func NewReviewNotFoundError() *APIError {
	return &APIError{Kind: KindNotFound, Message: "指定されたレビューが見つかりません。"}
}

// NewAlreadyReviewedError は同一映画への二重レビューエラーを生成する。
func NewAlreadyReviewedError() *APIError {
	return &APIError{Kind: KindConflict, Message: "この映画には既にレビューを投稿済みです。"}
}

// NewNotVerifiedError は未認証ユーザーによる操作エラーを生成する。
func NewNotVerifiedError() *APIError {
	return &APIError{Kind: KindForbidden, Message: "先にメール認証を完了してください。"}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{Kind: KindForbidden, Message: "この操作を行う権限がありません。"}
}

// NewInternalError は内部エラーの利用者向け表現を生成する。
// 原因となったエラーは呼び出し側でログに記録すること。
func NewInternalError() *APIError {
	return &APIError{Kind: KindInternal, Message: "内部エラーが発生しました。しばらく待ってから再度お試しください。"}
}
