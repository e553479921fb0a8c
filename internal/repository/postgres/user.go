package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mraskin/userdir-server/internal/model"
)

var _ model.UserGateway = (*UserRepository)(nil)

// UserRepository is the sole boundary between the process and the users
// table. It translates between the snake_case wire shape and model.User.
type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

const userColumns = `id, first_name, last_name, email, phone, date_of_birth, profile_picture, followers, following, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	var picture *string

	err := row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Phone,
		&user.DateOfBirth, &picture, &user.Followers, &user.Following, &user.CreatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	if picture != nil {
		user.ProfilePicture = *picture
	}

	return user, nil
}

// ListUsers returns all users ordered newest first.
func (r *UserRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, model.NewBackendError("list users", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, model.NewBackendError("scan user row", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewBackendError("list users", err)
	}

	return users, nil
}

// InsertUser creates a row with server-assigned id, created_at and empty
// follow lists, and returns the stored user.
func (r *UserRepository) InsertUser(ctx context.Context, fields model.NewUser) (model.User, error) {
	query := `INSERT INTO users (first_name, last_name, email, phone, date_of_birth, profile_picture)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING ` + userColumns

	var picture *string
	if fields.ProfilePicture != "" {
		picture = &fields.ProfilePicture
	}

	user, err := scanUser(r.db.QueryRow(ctx, query,
		fields.FirstName, fields.LastName, fields.Email, fields.Phone,
		fields.DateOfBirth, picture,
	))
	if err != nil {
		return model.User{}, model.NewBackendError("insert user", err)
	}

	return user, nil
}

// PatchUser updates only the fields present in the patch. An explicit empty
// ProfilePicture writes NULL. Patching a missing id returns ErrNotFound.
func (r *UserRepository) PatchUser(ctx context.Context, id uuid.UUID, patch model.UserPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	set := make([]string, 0, 8)
	args := make([]any, 0, 9)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.DateOfBirth != nil {
		add("date_of_birth", *patch.DateOfBirth)
	}
	if patch.ProfilePicture != nil {
		if *patch.ProfilePicture == "" {
			add("profile_picture", nil)
		} else {
			add("profile_picture", *patch.ProfilePicture)
		}
	}
	if patch.Followers != nil {
		add("followers", *patch.Followers)
	}
	if patch.Following != nil {
		add("following", *patch.Following)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return model.NewBackendError("patch user", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

// DeleteUser removes a row. Deleting an already-absent id is success:
// delete is idempotent at this layer.
func (r *UserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return model.NewBackendError("delete user", err)
	}

	return nil
}
