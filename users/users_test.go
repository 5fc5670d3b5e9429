package users_test

import (
	"testing"

	apperrors "github.com/jrsteele09/go-platform-console/internal/errors"
	"github.com/jrsteele09/go-platform-console/users"
	fakeuserrepo "github.com/jrsteele09/go-platform-console/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidateRegistration(t *testing.T) {
	valid := users.Registration{
		Email:     "jane@example.com",
		Password:  "Passw0rdOK",
		FirstName: "Jane",
		LastName:  "Doe",
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, users.ValidateRegistration(valid))
	})

	tests := []struct {
		name   string
		mutate func(r *users.Registration)
		msg    string
	}{
		{"bad email", func(r *users.Registration) { r.Email = "not-an-email" }, "invalid email format"},
		{"missing first name", func(r *users.Registration) { r.FirstName = " " }, "first name is required"},
		{"missing last name", func(r *users.Registration) { r.LastName = "" }, "last name is required"},
		{"short password", func(r *users.Registration) { r.Password = "Ab1" }, "at least 8 characters"},
		{"no upper", func(r *users.Registration) { r.Password = "password1" }, "uppercase"},
		{"no number", func(r *users.Registration) { r.Password = "Passwordx" }, "number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := users.ValidateRegistration(r)
			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrValidation)
			require.Contains(t, err.Error(), tt.msg)

			var verr *users.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Reason, tt.msg)
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	require.NoError(t, users.ValidateCredentials(users.Credentials{Email: "a@b.c", Password: "x"}))
	require.ErrorIs(t, users.ValidateCredentials(users.Credentials{Password: "x"}), apperrors.ErrValidation)
	require.ErrorIs(t, users.ValidateCredentials(users.Credentials{Email: "a@b.c"}), apperrors.ErrValidation)
}

func TestUser_Roles(t *testing.T) {
	admin := &users.User{ID: "1", Email: "root@example.com", Role: users.RoleAdmin}
	client := &users.User{ID: "2", Email: "c@example.com", FirstName: "Cal", LastName: "Ent", Role: users.RoleClient}

	require.True(t, admin.IsAdmin())
	require.False(t, client.IsAdmin())
	require.True(t, client.HasRole(users.RoleAdmin, users.RoleClient))
	require.False(t, (*users.User)(nil).HasRole(users.RoleClient))
	require.Equal(t, "root@example.com", admin.DisplayName())
	require.Equal(t, "Cal Ent", client.DisplayName())
	require.False(t, users.RoleType("owner").Valid())
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Secret123")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("Secret123", hash))
	require.False(t, users.CheckPasswordHash("secret123", hash))
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: "Mixed@Example.com", Role: users.RoleClient}
	require.NoError(t, repo.Upsert(u, "hash"))
	require.NotEmpty(t, u.ID)

	got, hash, err := repo.GetByEmail("mixed@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "hash", hash)

	_, err = repo.GetByID("missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestUser_IsResolvable(t *testing.T) {
	var nilUser *users.User
	require.False(t, nilUser.IsResolvable())
	require.False(t, (&users.User{}).IsResolvable())
	require.False(t, (&users.User{ID: " ", Role: users.RoleClient}).IsResolvable())
	require.False(t, (&users.User{ID: "u-1", Role: "owner"}).IsResolvable())
	require.True(t, (&users.User{ID: "u-1", Role: users.RoleAdmin}).IsResolvable())
	require.True(t, (&users.User{ID: "u-1", Role: users.RoleClient}).IsResolvable())
}
