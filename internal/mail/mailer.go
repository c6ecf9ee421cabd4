// Package mail はSMTP経由のトランザクションメール送信を提供する。
package mail

import (
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/masato/filmnote/internal/config"
)

// Mailer はアカウント検証・資格情報回復フローのメール送信インターフェース。
// 呼び出し側は送信失敗をAPI応答に伝播させず、ログに残すだけにする。
type Mailer interface {
	SendOTP(to, name, code string) error
	SendResetLink(to, name, link string) error
	SendWelcome(to, name string) error
	SendPasswordChanged(to, name string) error
}

// SMTPMailer はgomailによるMailer実装。
type SMTPMailer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewSMTPMailer は新しいSMTPMailerを作成する。
func NewSMTPMailer(cfg *config.Config, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger,
	}
}

var _ Mailer = (*SMTPMailer)(nil)

// SendOTP はメールアドレス確認用のワンタイムコードを送信する。
func (m *SMTPMailer) SendOTP(to, name, code string) error {
	return m.send(m.cfg.MailFromVerify, to, "【FilmNote】メールアドレスの確認", buildOTPBody(name, code))
}

// SendResetLink はパスワード再設定リンクを送信する。
func (m *SMTPMailer) SendResetLink(to, name, link string) error {
	return m.send(m.cfg.MailFromSecurity, to, "【FilmNote】パスワード再設定のご案内", buildResetLinkBody(name, link))
}

// SendWelcome はメールアドレス確認完了後のウェルカムメールを送信する。
func (m *SMTPMailer) SendWelcome(to, name string) error {
	return m.send(m.cfg.MailFromVerify, to, "【FilmNote】ようこそ", buildWelcomeBody(name))
}

// SendPasswordChanged はパスワード変更完了の通知を送信する。
func (m *SMTPMailer) SendPasswordChanged(to, name string) error {
	return m.send(m.cfg.MailFromSecurity, to, "【FilmNote】パスワードが変更されました", buildPasswordChangedBody(name))
}

func (m *SMTPMailer) send(from, to, subject, body string) error {
	if m.cfg.SMTPHost == "" || m.cfg.SMTPUser == "" {
		m.logger.Warn("smtp config missing, skip mail", slog.String("subject", subject))
		return nil
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.SMTPUser, m.cfg.SMTPPass)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info("mail sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}

func buildOTPBody(name, code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>FilmNote メールアドレス確認</h2>
    <p>%s さん</p>
    <p>以下のワンタイムコードを入力して、メールアドレスの確認を完了してください。</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 3px;">%s</div>
    <p>コードの有効期限は1時間です。心当たりがない場合はこのメールを破棄してください。</p>
  </div>
</body>
</html>`, name, code)
}

func buildResetLinkBody(name, link string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>FilmNote パスワード再設定</h2>
    <p>%s さん</p>
    <p>以下のリンクからパスワードを再設定できます。</p>
    <p><a href="%s" target="_blank" style="display: inline-block; padding: 12px 20px; background: #0f172a; color: #fff; text-decoration: none; border-radius: 8px; font-weight: bold;">パスワードを再設定する</a></p>
    <p>リンクの有効期限は1時間です。心当たりがない場合はこのメールを破棄してください。パスワードは変更されません。</p>
  </div>
</body>
</html>`, name, link)
}

func buildWelcomeBody(name string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>FilmNote へようこそ</h2>
    <p>%s さん</p>
    <p>メールアドレスの確認が完了しました。レビューの投稿をお楽しみください。</p>
  </div>
</body>
</html>`, name)
}

func buildPasswordChangedBody(name string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>FilmNote パスワード変更のお知らせ</h2>
    <p>%s さん</p>
    <p>アカウントのパスワードが変更されました。心当たりがない場合は、直ちにパスワードの再設定を行ってください。</p>
  </div>
</body>
</html>`, name)
}
