package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE нарушений ограничений целостности
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == uniqueViolationCode
}

// isForeignKeyViolation проверяет нарушение внешнего ключа (23503),
// например удаление головоломки, на которую ссылаются решения (ON DELETE RESTRICT)
func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == foreignKeyViolationCode
}

// pgErrorCode извлекает SQLSTATE из ошибки драйвера или возвращает пустую строку
func pgErrorCode(err error) string {
	if err == nil {
		return ""
	}
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
