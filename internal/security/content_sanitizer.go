// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザーが投稿するレビュー本文をサニタイズし、
// XSS攻撃などのセキュリティリスクから他の閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 限られたインライン装飾タグのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はレビュー本文のサニタイズ機能のインターフェースを定義する。
// レビューの保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize はレビュー本文をサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, blockquote, strong, em, code）のみを通過させ、
	// script, iframe, style, a, imgタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// レビュー本文はテキスト主体であり、リンクや画像の埋め込みは不要なため、
// フィードリーダー向けより狭い許可リストを採用する:
//   - 許可タグ: p, br, blockquote, strong, em, code
//   - 禁止タグ: script, iframe, style, a, img および全てのon*イベント属性
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// 許可リストに含めないタグは自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されない
	p.AllowElements(
		"p", "br", "blockquote",
		"strong", "em", "code",
	)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はレビュー本文をサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
