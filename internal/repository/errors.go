// Package repository contains the SQL data access layer.  Each repository
// wraps a *sql.DB and issues every logical operation as a single statement
// or a single transaction.  The sentinel values below let higher layers
// tell failure scenarios apart without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row does not exist or, for owner-scoped
// lookups, exists but belongs to someone else.  Both cases are reported
// identically so callers cannot tell the two apart.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint rejects a write, such as
// favoriting the same tour twice.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering an email already in use.
var ErrEmailExists = errors.New("email already exists")

// ErrHasChildren is returned when deleting a feedback that still has replies.
var ErrHasChildren = errors.New("feedback has replies")

// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidTransition is returned when a booking status change is not
// allowed from the current status.
var ErrInvalidTransition = errors.New("invalid booking status transition")

// ReferenceError reports ids in a request that do not match existing rows.
// Field is the JSON field that carried the ids.
type ReferenceError struct {
	Field string
}

func (e *ReferenceError) Error() string { return fmt.Sprintf("unknown reference in %s", e.Field) }

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// isDuplicate reports whether err is a MySQL unique-key violation.
func isDuplicate(err error) bool { return mysqlCode(err) == mysqlDuplicateEntry }

// isRowReferenced reports a delete rejected by a RESTRICT foreign key.
func isRowReferenced(err error) bool { return mysqlCode(err) == mysqlRowIsReferenced }

// isMissingReference reports an insert whose foreign key has no target row.
func isMissingReference(err error) bool { return mysqlCode(err) == mysqlNoReferencedRow }

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// maxInIDs bounds one IN (...) list well below the 65,535 placeholders a
// MySQL prepared statement accepts.
const maxInIDs = 1000

// chunkIDs splits ids into runs of at most size.
func chunkIDs(ids []uint64, size int) [][]uint64 {
	var out [][]uint64
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func idArgs(ids []uint64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// likePattern wraps term for a substring LIKE match, escaping wildcards.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

// uniqueIDs drops zero and repeated ids, keeping order.
func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
