package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	notFound := NewNotFoundError("exam schedule not found")
	assert.True(t, IsNotFound(errors.Wrap(notFound, "getting schedule")))
	assert.False(t, IsNotFound(errors.New("lol")))

	shutdown := NewShutdownError("integrity issue")
	assert.True(t, IsShutdown(errors.Wrap(shutdown, "lol")))
	assert.False(t, IsShutdown(notFound))

	assert.Equal(t, "exam schedule is full (max 2 applicants)", NewCapacityError(2).Error())

	conflict := NewConflictError(3, "%d application(s) are active", 3)
	assert.Equal(t, "3 application(s) are active", conflict.Error())
	assert.Equal(t, 3, conflict.(*ConflictError).Count)

	fldErr := NewFieldError("status", "cannot change status").(*ValidationError)
	assert.Equal(t, "cannot change status", fldErr.Error())
	assert.Equal(t, []FieldError{{Field: "status", Error: "cannot change status"}}, fldErr.Fields)

	assert.Equal(t, "name: taken", ValidationError{Fields: []FieldError{{Field: "name", Error: "taken"}}}.Error())
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Jakarta", CleanString("  Jakarta\n"))
	assert.Equal(t, "jakarta", CleanString("  Jakarta\n", true))

	blank := "   "
	assert.Nil(t, CleanStringPtr(&blank))
	assert.Nil(t, CleanStringPtr(nil))
	s := " Hall A "
	assert.Equal(t, "Hall A", *CleanStringPtr(&s))
}

func TestDBOrdering_String(t *testing.T) {
	assert.Equal(t, "exam_date ASC", DBOrdering{Field: "exam_date", Ascending: true}.String())
	assert.Equal(t, "exam_date DESC", DBOrdering{Field: "exam_date"}.String())
}
