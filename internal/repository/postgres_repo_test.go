package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
)

// 各PostgresリポジトリがインターフェースをAPIとして満たすことを検証

func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

func TestPostgresEmailTokenRepo_ImplementsInterface(t *testing.T) {
	var _ EmailTokenRepository = (*PostgresEmailTokenRepo)(nil)
}

func TestPostgresResetTokenRepo_ImplementsInterface(t *testing.T) {
	var _ ResetTokenRepository = (*PostgresResetTokenRepo)(nil)
}

func TestPostgresMovieRepo_ImplementsInterface(t *testing.T) {
	var _ MovieRepository = (*PostgresMovieRepo)(nil)
}

func TestPostgresReviewRepo_ImplementsInterface(t *testing.T) {
	var _ ReviewRepository = (*PostgresReviewRepo)(nil)
}

// 各リポジトリのコンストラクタが正しく初期化されることを検証

func TestNewRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Error("expected non-nil user repo")
	}
	if NewPostgresEmailTokenRepo(nil) == nil {
		t.Error("expected non-nil email token repo")
	}
	if NewPostgresResetTokenRepo(nil) == nil {
		t.Error("expected non-nil reset token repo")
	}
	if NewPostgresMovieRepo(nil) == nil {
		t.Error("expected non-nil movie repo")
	}
	if NewPostgresReviewRepo(nil) == nil {
		t.Error("expected non-nil review repo")
	}
}

// IsUniqueViolationがpqのunique_violationのみを検出することを検証
func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pq.Error{Code: "23505"}
	if !IsUniqueViolation(uniqueErr) {
		t.Error("expected unique violation to be detected")
	}

	otherPqErr := &pq.Error{Code: "23503"} // foreign_key_violation
	if IsUniqueViolation(otherPqErr) {
		t.Error("expected foreign key violation not to be detected as unique violation")
	}

	if IsUniqueViolation(errors.New("plain error")) {
		t.Error("expected plain error not to be detected as unique violation")
	}

	if IsUniqueViolation(nil) {
		t.Error("expected nil not to be detected as unique violation")
	}
}

// ラップされたユニーク制約違反もerrors.As経由で検出できることを検証
func TestIsUniqueViolation_Wrapped(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &pq.Error{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Error("expected wrapped unique violation to be detected")
	}
}
