package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/assoc/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=field,-other` ("-" for descending), keeping only the allowed fields.
func (ord *Ordering) Bind(ctx echo.Context, allowed []string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !isAllowed(field, allowed) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func isAllowed(field string, allowed []string) bool {
	for _, a := range allowed {
		if a == field {
			return true
		}
	}
	return false
}
