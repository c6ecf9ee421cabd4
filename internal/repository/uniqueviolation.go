package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolationCode はPostgreSQLのunique_violationエラーコード。
const uniqueViolationCode = "23505"

// IsUniqueViolation はエラーがユニーク制約違反かどうかを判定する。
// トークンの同時発行レースやメールアドレス重複の検出に使用し、
// サービス層でConflict系の業務エラーに写像する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
