package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/gym-manager/internal/domain"
)

func TestRegisterCreatesProfileForRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	member, err := f.auth.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@gym.test", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, member.User.Role)
	require.NotNil(t, member.Member)
	assert.Nil(t, member.Trainer)

	trainer, err := f.auth.Register(ctx, RegisterInput{Name: "Bo", Email: "bo@gym.test", Password: "secret123", Role: domain.RoleTrainer})
	require.NoError(t, err)
	require.NotNil(t, trainer.Trainer)
	assert.Equal(t, trainer.User.ID, trainer.Trainer.UserID)

	_, err = f.auth.Register(ctx, RegisterInput{Name: "Eve", Email: "eve@gym.test", Password: "secret123", Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, ErrValidation, "admins cannot self-register")

	_, err = f.auth.Register(ctx, RegisterInput{Name: "Ana2", Email: "ANA@gym.test", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = f.auth.Register(ctx, RegisterInput{Name: "Short", Email: "short@gym.test", Password: "123"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEmailMustBeBareAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, email := range []string{"Bob <bob@gym.test>", "bob", "bob@", "@gym.test"} {
		_, err := f.auth.Register(ctx, RegisterInput{Name: "Bob", Email: email, Password: "secret123"})
		assert.ErrorIs(t, err, ErrValidation, email)
	}

	_, err := f.auth.EnsureAdmin(ctx, "", "Root <root@gym.test>", "secret123")
	assert.ErrorIs(t, err, ErrValidation)

	account, err := f.auth.Register(ctx, RegisterInput{Name: "Bob", Email: " Bob@Gym.Test ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "bob@gym.test", account.User.Email)

	_, err = f.admin.UpdateMember(ctx, account.Member.ID, MemberUpdate{
		UserUpdate: UserUpdate{Email: strPtr("Bob <bob2@gym.test>")},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.auth.Login(ctx, "bob@gym.test", "secret123")
	require.NoError(t, err)
}

func TestLoginAndMe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.auth.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@gym.test", Password: "secret123"})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "ana@gym.test", "wrong-password")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, err = f.auth.Login(ctx, "nobody@gym.test", "secret123")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, err = f.auth.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrValidation)

	res, err := f.auth.Login(ctx, " Ana@Gym.Test ", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.ExpiresAt.After(res.User.CreatedAt))

	me, err := f.auth.Me(ctx, res.User.ID)
	require.NoError(t, err)
	require.NotNil(t, me.Member)
	assert.Equal(t, res.User.ID, me.Member.UserID)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.auth.EnsureAdmin(ctx, "", "root@gym.test", "secret123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.auth.EnsureAdmin(ctx, "", "root@gym.test", "other-password")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := f.auth.Login(ctx, "root@gym.test", "secret123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.User.Role)
	assert.Equal(t, "Administrator", res.User.Name)
}
