package users

import (
	"context"
	"testing"

	"github.com/docgate/docgate/internal/models"
	"github.com/stretchr/testify/require"
)

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryUserRepository())

	ident, err := svc.SignUp(ctx, "rob@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, ident.UID)
	require.Equal(t, "rob@example.com", ident.Email)

	again, err := svc.SignIn(ctx, "rob@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, ident.UID, again.UID, "uid must be stable across sign-ins")

	_, err = svc.SignIn(ctx, "rob@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryUserRepository())

	_, err := svc.SignUp(ctx, "rob@example.com", "pw1")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "ROB@example.com", "pw2")
	require.ErrorIs(t, err, ErrEmailTaken, "emails are case-insensitive")
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryUserRepository())

	ident, err := svc.SignUp(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	got, err := svc.Current(ctx, ident.UID)
	require.NoError(t, err)
	require.Equal(t, ident.Email, got.Email)

	none, err := svc.Current(ctx, "unknown-uid")
	require.NoError(t, err)
	require.Nil(t, none)

	anon, err := svc.Current(ctx, "")
	require.NoError(t, err)
	require.Nil(t, anon)
}

func TestSubscribeObservesStateChanges(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryUserRepository())

	var events []*models.Identity
	svc.Subscribe(func(ident *models.Identity) { events = append(events, ident) })

	ident, err := svc.SignUp(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	svc.SignOut()
	_, err = svc.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	require.Len(t, events, 3)
	require.Equal(t, ident.UID, events[0].UID)
	require.Nil(t, events[1])
	require.Equal(t, ident.UID, events[2].UID)
}

func TestPasswordHashNeverEmptyOrPlaintext(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	svc := NewService(repo)

	ident, err := svc.SignUp(ctx, "a@b.c", "secretpw")
	require.NoError(t, err)

	u, err := repo.GetByUID(ctx, ident.UID)
	require.NoError(t, err)
	require.NotEmpty(t, u.PasswordHash)
	require.NotEqual(t, "secretpw", string(u.PasswordHash))
}
