package repositories

import (
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// jsonbValue converts a value to JSONB format for database insertion.
// Returns nil for nil maps/slices to store NULL in the database.
func jsonbValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return nil
		}
		return val
	default:
		return v
	}
}

// jsonUnmarshal unmarshals JSONB data from the database.
func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
