// Package token はセッション資格情報（JWT）の発行と検証を提供する。
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims はセッション資格情報のクレームを表す。
// 外部の認証コラボレーターが消費するため、形は {userId, exp} で固定する。
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// Issuer は署名付きセッション資格情報を発行する。
// 内部状態を持たず、(userID, 現在時刻, 秘密鍵)の純関数として動作する。
type Issuer struct {
	secret   []byte
	validity time.Duration
}

// NewIssuer はIssuerを生成する。
// validityはセッションの有効期間（デフォルト運用では7日）。
func NewIssuer(secret string, validity time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		validity: validity,
	}
}

// Issue は指定ユーザーのHS256署名付きJWTを発行する。
func (i *Issuer) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Verify は署名と有効期限を検証し、クレームのユーザーIDを返す。
// 署名方式はHS256のみを受け付ける。
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}

	if !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("invalid session token")
	}

	return claims.UserID, nil
}
