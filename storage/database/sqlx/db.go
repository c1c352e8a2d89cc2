package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// pqErrorCode returns the SQLSTATE code and constraint name of a Postgres error, if any.
func pqErrorCode(err error) (code, constraint string) {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// where accumulates "?" conditions; the query is rebound to the driver's bindvars before use.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders an ORDER BY clause from the orderings on allowed columns, falling back to def.
func orderBy(ordering []core.DBOrdering, allowed []string, def ...core.DBOrdering) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		for _, field := range allowed {
			if ord.Field == field {
				orderList = append(orderList, ord.String())
				break
			}
		}
	}
	if len(orderList) == 0 {
		for _, ord := range def {
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
