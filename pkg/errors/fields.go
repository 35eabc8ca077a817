package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// pgInfo is what we keep from a Postgres error for logs, whichever driver raised it.
type pgInfo struct {
	code, constraint, table, detail, message string
}

func postgresInfo(err error) (pgInfo, bool) {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return pgInfo{pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail, pgxErr.Message}, true
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return pgInfo{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail, pqErr.Message}, true
	}
	return pgInfo{}, false
}

// PGCode returns the SQLSTATE of a Postgres error in err's chain, or "".
func PGCode(err error) string {
	info, _ := postgresInfo(err)
	return info.code
}

// PGConstraint returns the violated constraint name, or "".
func PGConstraint(err error) string {
	info, _ := postgresInfo(err)
	return info.constraint
}

// LogFields flattens err into structured log fields: typed code and reason,
// the unwrap chain, and Postgres diagnostics when present.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = typed.Code()
		if typed.Reason() != "" {
			fields["error_reason"] = typed.Reason()
		}
	}

	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	if info, ok := postgresInfo(err); ok {
		fields["pg_code"] = info.code
		fields["pg_message"] = info.message
		if info.constraint != "" {
			fields["pg_constraint"] = info.constraint
		}
		if info.table != "" {
			fields["pg_table"] = info.table
		}
		if info.detail != "" {
			fields["pg_detail"] = info.detail
		}
	}
	return fields
}
