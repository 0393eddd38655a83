package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Validation("x"), KindValidation},
		{Authentication("x"), KindAuthentication},
		{Forbidden("x"), KindForbidden},
		{NotFound("x"), KindNotFound},
		{InvalidState("x"), KindInvalidState},
		{Internal("x", errors.New("boom")), KindInternal},
		{errors.New("plain"), KindInternal},
		{fmt.Errorf("wrapped: %w", Forbidden("nope")), KindForbidden},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, KindOf(c.err), c.err.Error())
	}
}

func TestInternalUnwrap(t *testing.T) {
	err := Internal("load item", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "load item", err.Error())
}

func TestSortedPair(t *testing.T) {
	a, b := SortedPair("b-user", "a-user")
	assert.Equal(t, "a-user", a)
	assert.Equal(t, "b-user", b)
	a2, b2 := SortedPair("a-user", "b-user")
	assert.Equal(t, a, a2)
	assert.Equal(t, b, b2)
}

func TestRoleIsStaff(t *testing.T) {
	assert.False(t, RoleStudent.IsStaff())
	assert.True(t, RoleStaff.IsStaff())
	assert.True(t, RoleAdmin.IsStaff())
	assert.False(t, Role("root").Valid())
}
