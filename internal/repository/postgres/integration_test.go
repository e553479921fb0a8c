//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mraskin/userdir-server/internal/model"
	repo "github.com/mraskin/userdir-server/internal/repository/postgres"
	"github.com/mraskin/userdir-server/internal/testutil"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "userdir_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/userdir_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newUserFields(firstName string) model.NewUser {
	return model.NewUser{
		FirstName:   firstName,
		LastName:    "Lee",
		Email:       firstName + "@x.com",
		Phone:       "555",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)

	ann, err := ur.InsertUser(ctx, newUserFields("Ann"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ann.ID)
	assert.False(t, ann.CreatedAt.IsZero())
	assert.Empty(t, ann.Followers)
	assert.Empty(t, ann.Following)
	assert.Empty(t, ann.ProfilePicture)

	bo, err := ur.InsertUser(ctx, newUserFields("Bo"))
	require.NoError(t, err)

	t.Run("list_orders_newest_first", func(t *testing.T) {
		users, err := ur.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, bo.ID, users[0].ID)
		assert.Equal(t, ann.ID, users[1].ID)
	})

	t.Run("patch_sends_only_present_fields", func(t *testing.T) {
		phone := "777"
		picture := "https://cdn.example/ann.png"
		err := ur.PatchUser(ctx, ann.ID, model.UserPatch{Phone: &phone, ProfilePicture: &picture})
		require.NoError(t, err)

		users, err := ur.ListUsers(ctx)
		require.NoError(t, err)
		got := findUser(t, users, ann.ID)
		assert.Equal(t, "777", got.Phone)
		assert.Equal(t, picture, got.ProfilePicture)
		assert.Equal(t, "Ann", got.FirstName)
	})

	t.Run("explicit_empty_profile_picture_clears", func(t *testing.T) {
		empty := ""
		err := ur.PatchUser(ctx, ann.ID, model.UserPatch{ProfilePicture: &empty})
		require.NoError(t, err)

		users, err := ur.ListUsers(ctx)
		require.NoError(t, err)
		assert.Empty(t, findUser(t, users, ann.ID).ProfilePicture)
	})

	t.Run("patch_follow_lists", func(t *testing.T) {
		following := []uuid.UUID{bo.ID}
		followers := []uuid.UUID{ann.ID}
		require.NoError(t, ur.PatchUser(ctx, ann.ID, model.UserPatch{Following: &following}))
		require.NoError(t, ur.PatchUser(ctx, bo.ID, model.UserPatch{Followers: &followers}))

		users, err := ur.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bo.ID}, findUser(t, users, ann.ID).Following)
		assert.Equal(t, []uuid.UUID{ann.ID}, findUser(t, users, bo.ID).Followers)
	})

	t.Run("patch_missing_id_is_not_found", func(t *testing.T) {
		phone := "000"
		err := ur.PatchUser(ctx, uuid.New(), model.UserPatch{Phone: &phone})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("delete_is_idempotent", func(t *testing.T) {
		victim, err := ur.InsertUser(ctx, newUserFields("Cy"))
		require.NoError(t, err)

		require.NoError(t, ur.DeleteUser(ctx, victim.ID))
		require.NoError(t, ur.DeleteUser(ctx, victim.ID))
	})
}

func TestListener_NotifiesOnTableChange(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	listener := repo.NewListener(conn, testutil.MakeNoopLogger())

	changes := make(chan struct{}, 8)
	unsubscribe, err := listener.Subscribe(ctx, func() {
		changes <- struct{}{}
	})
	require.NoError(t, err)
	defer unsubscribe()

	user, err := ur.InsertUser(ctx, newUserFields("Dee"))
	require.NoError(t, err)

	select {
	case <-changes:
	case <-time.After(10 * time.Second):
		t.Fatal("expected a change notification after insert")
	}

	require.NoError(t, ur.DeleteUser(ctx, user.ID))

	select {
	case <-changes:
	case <-time.After(10 * time.Second):
		t.Fatal("expected a change notification after delete")
	}
}

func findUser(t *testing.T, users []model.User, id uuid.UUID) model.User {
	t.Helper()
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	t.Fatalf("user %s not found", id)
	return model.User{}
}
