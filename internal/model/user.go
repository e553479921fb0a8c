package model

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// UserGateway defines persistence operations for directory users. It is the
// sole boundary to the backing table; callers never touch the database
// directly.
type UserGateway interface {
	ListUsers(ctx context.Context) ([]User, error)
	InsertUser(ctx context.Context, fields NewUser) (User, error)
	PatchUser(ctx context.Context, id uuid.UUID, patch UserPatch) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Unsubscribe stops delivery of change notifications.
type Unsubscribe func()

// ChangeFeed delivers table change notifications. The callback carries no
// payload; subscribers re-fetch to learn the new state.
type ChangeFeed interface {
	Subscribe(ctx context.Context, onChange func()) (Unsubscribe, error)
}

// AvatarStorage defines object storage operations for profile pictures.
type AvatarStorage interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// User represents one directory entry.
type User struct {
	ID             uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	DateOfBirth    time.Time
	ProfilePicture string
	Followers      []uuid.UUID
	Following      []uuid.UUID
	CreatedAt      time.Time
}

// NewUser carries the caller-supplied fields for user creation. ID,
// CreatedAt and the follow lists are assigned server-side.
type NewUser struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	DateOfBirth    time.Time
	ProfilePicture string
}

// UserPatch is a partial field update. A nil field is omitted and left
// unchanged server-side. An explicit empty ProfilePicture clears the stored
// value.
type UserPatch struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	DateOfBirth    *time.Time
	ProfilePicture *string
	Followers      *[]uuid.UUID
	Following      *[]uuid.UUID
}

// IsEmpty reports whether the patch carries no fields at all.
func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.Phone == nil && p.DateOfBirth == nil && p.ProfilePicture == nil &&
		p.Followers == nil && p.Following == nil
}
