package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgreSQLのエラーコード
const (
	pqUniqueViolation = "23505"
)

// isUniqueViolation はユニーク制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

// validUUID はidがUUID形式かどうかを返す。
// uuid型カラムに不正な文字列を渡すとクエリ自体がエラーになるため、事前に判定する。
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
