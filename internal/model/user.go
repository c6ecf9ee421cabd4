// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限区分を表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者。映画の登録・編集と統計閲覧ができる。
	RoleAdmin Role = "admin"
)

// User はサービス利用ユーザーを表す。
// PasswordHashにはbcryptハッシュのみを格納する。平文は保存しない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsVerified   bool
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
