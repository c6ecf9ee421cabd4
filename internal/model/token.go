package model

import "time"

// EmailToken はメール認証用OTPの未消費レコードを表す。
// OwnerIDにはDB側でユニーク制約がかかっており、同一ユーザーに対して
// 未消費トークンは常に高々1件しか存在しない。
// TokenHashにはOTPのbcryptハッシュのみを格納する。
type EmailToken struct {
	ID        string
	OwnerID   string
	TokenHash string
	CreatedAt time.Time
}

// ResetToken はパスワードリセット用トークンの未消費レコードを表す。
// EmailTokenと同じく、ユーザーごとに高々1件の不変条件を
// OwnerIDのユニーク制約で保証する。
type ResetToken struct {
	ID        string
	OwnerID   string
	TokenHash string
	CreatedAt time.Time
}

// ExpiredAt は作成時刻とTTLからトークンの失効時刻を返す。
func (t *EmailToken) ExpiredAt(ttl time.Duration) time.Time {
	return t.CreatedAt.Add(ttl)
}

// ExpiredAt は作成時刻とTTLからトークンの失効時刻を返す。
func (t *ResetToken) ExpiredAt(ttl time.Duration) time.Time {
	return t.CreatedAt.Add(ttl)
}
