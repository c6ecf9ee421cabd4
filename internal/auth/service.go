// Package auth はアカウント検証と資格情報回復のドメインロジックを提供する。
//
// メール認証OTPの発行・照合、パスワードリセットトークンの発行・消費、
// サインイン時のセッション資格情報発行を担当する。
// 「ユーザーごとに未消費トークンは高々1件」という不変条件は、
// サービス層のロックではなくトークンテーブルのowner_idユニーク制約で保証する。
// 複数インスタンスで動作するため、これが唯一の同時実行制御機構である。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	appmail "github.com/masato/filmnote/internal/mail"
	"github.com/masato/filmnote/internal/metrics"
	"github.com/masato/filmnote/internal/model"
	"github.com/masato/filmnote/internal/repository"
	"github.com/masato/filmnote/internal/token"
)

// otpLength はメール認証に使用するワンタイムコードの桁数。
const otpLength = 6

// resetTokenBytes はリセットトークンの乱数バイト長。hex表現で64文字になる。
const resetTokenBytes = 32

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// Service はアカウント検証・資格情報回復のサービス層。
type Service struct {
	userRepo       repository.UserRepository
	emailTokenRepo repository.EmailTokenRepository
	resetTokenRepo repository.ResetTokenRepository
	mailer         appmail.Mailer
	issuer         *token.Issuer
	collector      metrics.MetricsCollector
	logger         *slog.Logger

	tokenTTL          time.Duration
	resetPasswordBase string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	emailTokenRepo repository.EmailTokenRepository,
	resetTokenRepo repository.ResetTokenRepository,
	mailer appmail.Mailer,
	issuer *token.Issuer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	tokenTTL time.Duration,
	resetPasswordBase string,
) *Service {
	return &Service{
		userRepo:          userRepo,
		emailTokenRepo:    emailTokenRepo,
		resetTokenRepo:    resetTokenRepo,
		mailer:            mailer,
		issuer:            issuer,
		collector:         collector,
		logger:            logger,
		tokenTTL:          tokenTTL,
		resetPasswordBase: resetPasswordBase,
	}
}

// NormalizeEmail はメールアドレスを保存・検索用に正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register は新規ユーザーを作成し、メール認証OTPを発行する。
// メールアドレスの一意性はusersテーブルのユニーク制約で保証され、
// 衝突した場合はConflictを返す。
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewInvalidInputError("名前を入力してください。")
	}

	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewInvalidInputError("メールアドレスの形式が正しくありません。")
	}

	if len(password) < minPasswordLength {
		return nil, model.NewInvalidInputError(fmt.Sprintf("パスワードは%d文字以上で入力してください。", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		IsVerified:   false,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	// 登録直後のOTP発行。行き違いで発行済みならそのまま成功扱いにする。
	if err := s.IssueOTP(ctx, user.ID); err != nil {
		if apiErr, ok := model.AsAPIError(err); !ok || apiErr.Kind != model.KindConflict {
			return nil, err
		}
	}

	return user, nil
}

// SignIn はメールアドレスとパスワードを照合し、セッション資格情報を発行する。
// 存在しないユーザーに対してはパスワード照合を行わずNotFoundを返す。
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *model.User, error) {
	email = NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		s.collector.RecordSignIn(false)
		return "", nil, model.NewEmailNotFoundError(email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.collector.RecordSignIn(false)
		return "", nil, model.NewInvalidCredentialsError()
	}

	session, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("セッション資格情報の発行に失敗しました: %w", err)
	}

	s.collector.RecordSignIn(true)
	return session, user, nil
}

// IssueOTP は未認証ユーザーにメール認証OTPを発行し、メールで配送する。
// 未消費トークンが既に存在する場合はConflictを返す（再発行クールダウン）。
// 期限切れトークンは存在しない扱いにして削除し、新規発行する。
func (s *Service) IssueOTP(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}
	if user.IsVerified {
		return model.NewAlreadyVerifiedError()
	}

	existing, err := s.emailTokenRepo.FindByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("トークンの取得に失敗しました: %w", err)
	}
	if existing != nil {
		if time.Now().Before(existing.ExpiredAt(s.tokenTTL)) {
			return model.NewTokenAlreadyIssuedError()
		}
		if err := s.emailTokenRepo.DeleteByID(ctx, existing.ID); err != nil {
			return fmt.Errorf("期限切れトークンの削除に失敗しました: %w", err)
		}
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("OTPの生成に失敗しました: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("OTPのハッシュ化に失敗しました: %w", err)
	}

	// 作成時刻はTTL判定の基準になるため、サービス側で必ず設定する
	emailToken := &model.EmailToken{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		TokenHash: string(hash),
		CreatedAt: time.Now(),
	}

	if err := s.emailTokenRepo.Create(ctx, emailToken); err != nil {
		// 同時発行のレースではユニーク制約で片方だけが成功する
		if repository.IsUniqueViolation(err) {
			return model.NewTokenAlreadyIssuedError()
		}
		return fmt.Errorf("トークンの保存に失敗しました: %w", err)
	}

	s.collector.RecordOTPIssued()
	s.sendMail("otp", func() error {
		return s.mailer.SendOTP(user.Email, user.Name, otp)
	})

	return nil
}

// VerifyEmail は提出されたOTPを照合し、一致すればユーザーを認証済みにする。
// 成功時はトークンを削除し、ウェルカムメールを送信し、セッション資格情報を返す。
// 不一致の場合はトークンを消費せずInvalidOTPを返す（再試行可能）。
func (s *Service) VerifyEmail(ctx context.Context, userID, submittedOTP string) (string, *model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return "", nil, model.NewUserNotFoundError()
	}
	if user.IsVerified {
		return "", nil, model.NewAlreadyVerifiedError()
	}

	emailToken, err := s.emailTokenRepo.FindByOwner(ctx, userID)
	if err != nil {
		return "", nil, fmt.Errorf("トークンの取得に失敗しました: %w", err)
	}
	if emailToken == nil {
		return "", nil, model.NewTokenNotFoundError()
	}
	if time.Now().After(emailToken.ExpiredAt(s.tokenTTL)) {
		if err := s.emailTokenRepo.DeleteByID(ctx, emailToken.ID); err != nil {
			s.logger.Error("期限切れトークンの削除に失敗", slog.String("error", err.Error()))
		}
		return "", nil, model.NewTokenNotFoundError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(emailToken.TokenHash), []byte(submittedOTP)); err != nil {
		s.collector.RecordOTPVerified(false)
		return "", nil, model.NewInvalidOTPError()
	}

	if err := s.userRepo.UpdateVerified(ctx, userID, true); err != nil {
		return "", nil, fmt.Errorf("認証状態の更新に失敗しました: %w", err)
	}
	user.IsVerified = true

	// 認証済みへの遷移後はトークン削除の失敗で巻き戻さない。
	// 残骸は掃除ワーカーが回収する。
	if err := s.emailTokenRepo.DeleteByID(ctx, emailToken.ID); err != nil {
		s.logger.Error("認証済みトークンの削除に失敗", slog.String("error", err.Error()))
	}

	session, err := s.issuer.Issue(userID)
	if err != nil {
		return "", nil, fmt.Errorf("セッション資格情報の発行に失敗しました: %w", err)
	}

	s.collector.RecordOTPVerified(true)

	// ウェルカムメールは応答をブロックしない
	go s.sendMail("welcome", func() error {
		return s.mailer.SendWelcome(user.Email, user.Name)
	})

	return session, user, nil
}

// RequestReset はパスワードリセットトークンを発行し、リセットリンクをメールで配送する。
// 未消費トークンが既に存在する場合はConflictを返す（再発行クールダウン）。
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewEmailNotFoundError(email)
	}

	existing, err := s.resetTokenRepo.FindByOwner(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("トークンの取得に失敗しました: %w", err)
	}
	if existing != nil {
		if time.Now().Before(existing.ExpiredAt(s.tokenTTL)) {
			return model.NewTokenAlreadyIssuedError()
		}
		if err := s.resetTokenRepo.DeleteByID(ctx, existing.ID); err != nil {
			return fmt.Errorf("期限切れトークンの削除に失敗しました: %w", err)
		}
	}

	secret, err := generateResetSecret()
	if err != nil {
		return fmt.Errorf("リセットトークンの生成に失敗しました: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("リセットトークンのハッシュ化に失敗しました: %w", err)
	}

	// 作成時刻はTTL判定の基準になるため、サービス側で必ず設定する
	resetToken := &model.ResetToken{
		ID:        uuid.New().String(),
		OwnerID:   user.ID,
		TokenHash: string(hash),
		CreatedAt: time.Now(),
	}

	if err := s.resetTokenRepo.Create(ctx, resetToken); err != nil {
		if repository.IsUniqueViolation(err) {
			return model.NewTokenAlreadyIssuedError()
		}
		return fmt.Errorf("トークンの保存に失敗しました: %w", err)
	}

	s.collector.RecordResetRequested()
	link := s.buildResetLink(user.ID, secret)
	s.sendMail("reset_link", func() error {
		return s.mailer.SendResetLink(user.Email, user.Name, link)
	})

	return nil
}

// ValidateResetToken はリセットトークンの有効性を検証する。
// リセットフォームの表示可否判定に使用し、状態は一切変更しない。
func (s *Service) ValidateResetToken(ctx context.Context, userID, secret string) (bool, error) {
	resetToken, err := s.resetTokenRepo.FindByOwner(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("トークンの取得に失敗しました: %w", err)
	}
	if resetToken == nil {
		return false, nil
	}
	if time.Now().After(resetToken.ExpiredAt(s.tokenTTL)) {
		return false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(resetToken.TokenHash), []byte(secret)); err != nil {
		return false, nil
	}
	return true, nil
}

// ResetPassword はリセットトークンを消費してパスワードを差し替える。
// 新パスワードが現在のパスワードと同一の場合はConflictを返し、トークンは残る。
// 成功時はトークンを削除し、変更完了メールを送信する。
func (s *Service) ResetPassword(ctx context.Context, userID, newPassword, secret string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		s.collector.RecordResetCompleted(false)
		return model.NewUserNotFoundError()
	}

	resetToken, err := s.resetTokenRepo.FindByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("トークンの取得に失敗しました: %w", err)
	}
	if resetToken == nil {
		s.collector.RecordResetCompleted(false)
		return model.NewTokenNotFoundError()
	}
	if time.Now().After(resetToken.ExpiredAt(s.tokenTTL)) {
		if err := s.resetTokenRepo.DeleteByID(ctx, resetToken.ID); err != nil {
			s.logger.Error("期限切れトークンの削除に失敗", slog.String("error", err.Error()))
		}
		s.collector.RecordResetCompleted(false)
		return model.NewTokenNotFoundError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(resetToken.TokenHash), []byte(secret)); err != nil {
		s.collector.RecordResetCompleted(false)
		return model.NewTokenNotFoundError()
	}

	if len(newPassword) < minPasswordLength {
		return model.NewInvalidInputError(fmt.Sprintf("パスワードは%d文字以上で入力してください。", minPasswordLength))
	}

	// サインインと同じ照合プリミティブで新旧同一を検出する。
	// 同一の場合トークンは消費されず、別のパスワードで再試行できる。
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(newPassword)); err == nil {
		s.collector.RecordResetCompleted(false)
		return model.NewSamePasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}

	// 資格情報の差し替え後はトークン削除の失敗で巻き戻さない
	if err := s.resetTokenRepo.DeleteByID(ctx, resetToken.ID); err != nil {
		s.logger.Error("消費済みトークンの削除に失敗", slog.String("error", err.Error()))
	}

	s.collector.RecordResetCompleted(true)

	// 変更完了メールは応答をブロックしない
	go s.sendMail("password_changed", func() error {
		return s.mailer.SendPasswordChanged(user.Email, user.Name)
	})

	return nil
}

// sendMail はメール送信を実行し、結果をログとメトリクスに記録する。
// 送信失敗は呼び出し元の操作結果に伝播させない。
func (s *Service) sendMail(kind string, send func() error) {
	if err := send(); err != nil {
		s.logger.Error("メール送信に失敗",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		s.collector.RecordMailOutcome(kind, false)
		return
	}
	s.collector.RecordMailOutcome(kind, true)
}

// buildResetLink はリセットフォームへのリンクを組み立てる。
func (s *Service) buildResetLink(userID, secret string) string {
	return fmt.Sprintf("%s?userId=%s&token=%s", s.resetPasswordBase, url.QueryEscape(userID), url.QueryEscape(secret))
}

// generateOTP は暗号論的乱数から6桁の数字OTPを生成する。
// 先頭桁が0になることも許容する（常に6文字にゼロ埋め）。
func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n), nil
}

// generateResetSecret は暗号論的乱数からURL安全な不透明トークンを生成する。
func generateResetSecret() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
