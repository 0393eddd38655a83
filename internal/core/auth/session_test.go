package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound-api/internal/domain"
)

type userMap map[string]*domain.User

func (m userMap) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func TestResolveUsesStoredRole(t *testing.T) {
	j := newJWTer()
	users := userMap{"u1": {ID: "u1", Role: domain.RoleStudent}}

	// token 签发时是 staff，之后被降级
	tok, err := j.Issue("u1", "staff")
	require.NoError(t, err)
	c, err := j.Parse(tok)
	require.NoError(t, err)

	s, err := Resolve(context.Background(), users, c)
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, domain.RoleStudent, s.Role)
	assert.False(t, s.IsStaff())
}

func TestResolveMissingUser(t *testing.T) {
	_, err := Resolve(context.Background(), userMap{}, &Claims{UID: "gone"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = Resolve(context.Background(), userMap{}, &Claims{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
