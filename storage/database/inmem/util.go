package inmemdb

import (
	"time"

	"github.com/pkg/errors"
)

// errForeignKey mirrors the FOREIGN KEY ... ON DELETE RESTRICT constraints of the SQL schema.
func errForeignKey(column string) error {
	return errors.Errorf("foreign key violation on %s", column)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// compareTimePtr sorts nil last, like NULLS LAST.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compareTime(*a, *b)
}
