package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mraskin/userdir-server/internal/logger"
	"github.com/mraskin/userdir-server/internal/model"
)

const dateLayout = "2006-01-02"

// Upload limit for profile pictures.
const maxAvatarBytes = 5 << 20

// DirectoryService defines business operations for the user directory.
type DirectoryService interface {
	Users() ([]model.User, bool)
	GetUser(id uuid.UUID) (model.User, bool)
	Create(ctx context.Context, fields model.NewUser) (model.User, error)
	Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) error
	Remove(ctx context.Context, id uuid.UUID) error
	Follow(ctx context.Context, userID, targetID uuid.UUID) error
	Unfollow(ctx context.Context, userID, targetID uuid.UUID) error
	SetProfilePicture(ctx context.Context, id uuid.UUID, contentType string, reader io.Reader, size int64) (string, error)
	ProfilePictureStream(ctx context.Context, key string) (io.ReadCloser, error)
}

// Users handles HTTP endpoints for the user directory.
type Users struct {
	directory DirectoryService
	logger    *logger.Logger
}

// NewUsers creates a new Users handler.
func NewUsers(directory DirectoryService, logger *logger.Logger) *Users {
	return &Users{
		directory: directory,
		logger:    logger,
	}
}

type userResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	DateOfBirth    string    `json:"dateOfBirth"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Followers      []string  `json:"followers"`
	Following      []string  `json:"following"`
	CreatedAt      time.Time `json:"createdAt"`
}

type listUsersResponse struct {
	Users   []userResponse `json:"users"`
	Loading bool           `json:"loading"`
}

func convertUser(u model.User) userResponse {
	return userResponse{
		ID:             u.ID.String(),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Phone:          u.Phone,
		DateOfBirth:    u.DateOfBirth.Format(dateLayout),
		ProfilePicture: u.ProfilePicture,
		Followers:      convertIDs(u.Followers),
		Following:      convertIDs(u.Following),
		CreatedAt:      u.CreatedAt,
	}
}

func convertIDs(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

// List returns the replica and the loading flag.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	users, loading := h.directory.Users()

	resp := listUsersResponse{
		Users:   make([]userResponse, 0, len(users)),
		Loading: loading,
	}
	for _, u := range users {
		resp.Users = append(resp.Users, convertUser(u))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single user from the replica, possibly stale.
func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, ok := h.directory.GetUser(id)
	if !ok {
		writeError(w, h.logger, model.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, convertUser(user))
}

type createUserRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	DateOfBirth    string `json:"dateOfBirth"`
	ProfilePicture string `json:"profilePicture"`
}

// Create inserts a new user and returns the stored row.
func (h *Users) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, &model.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	fields := model.NewUser{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		ProfilePicture: req.ProfilePicture,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			writeError(w, h.logger, &model.ValidationError{Field: "dateOfBirth", Reason: "must be a YYYY-MM-DD date"})
			return
		}
		fields.DateOfBirth = dob
	}

	user, err := h.directory.Create(r.Context(), fields)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, convertUser(user))
}

type updateUserRequest struct {
	FirstName      *string   `json:"firstName"`
	LastName       *string   `json:"lastName"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	DateOfBirth    *string   `json:"dateOfBirth"`
	ProfilePicture *string   `json:"profilePicture"`
	Followers      *[]string `json:"followers"`
	Following      *[]string `json:"following"`
}

// Update applies a partial field patch. Absent fields stay unchanged; an
// explicit empty profilePicture clears the stored value.
func (h *Users) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, &model.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	patch := model.UserPatch{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		ProfilePicture: req.ProfilePicture,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(dateLayout, *req.DateOfBirth)
		if err != nil {
			writeError(w, h.logger, &model.ValidationError{Field: "dateOfBirth", Reason: "must be a YYYY-MM-DD date"})
			return
		}
		patch.DateOfBirth = &dob
	}
	if req.Followers != nil {
		ids, err := parseIDs(*req.Followers, "followers")
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		patch.Followers = &ids
	}
	if req.Following != nil {
		ids, err := parseIDs(*req.Following, "following")
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		patch.Following = &ids
	}

	if err := h.directory.Update(r.Context(), id, patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a user. Deleting an already-deleted id succeeds.
func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.directory.Remove(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Follow records that {id} follows {targetID}.
func (h *Users) Follow(w http.ResponseWriter, r *http.Request) {
	userID, targetID, err := pathPair(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.directory.Follow(r.Context(), userID, targetID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unfollow removes the follow link between {id} and {targetID}.
func (h *Users) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, targetID, err := pathPair(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.directory.Unfollow(r.Context(), userID, targetID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type avatarResponse struct {
	ProfilePicture string `json:"profilePicture"`
}

// UploadAvatar stores a multipart profile picture and patches the user.
func (h *Users) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, h.logger, &model.ValidationError{Field: "avatar", Reason: "malformed multipart body"})
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, h.logger, &model.ValidationError{Field: "avatar", Reason: "missing file"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := h.directory.SetProfilePicture(r.Context(), id, contentType, file, header.Size)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, avatarResponse{ProfilePicture: url})
}

// GetAvatar streams a stored profile picture.
func (h *Users) GetAvatar(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, h.logger, model.ErrNotFound)
		return
	}

	reader, err := h.directory.ProfilePictureStream(r.Context(), key)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer reader.Close()

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error("avatar stream interrupted", "key", key, "error", err)
	}
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &model.ValidationError{Field: name, Reason: "must be a valid UUID"}
	}
	return id, nil
}

func pathPair(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := pathID(r, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	targetID, err := pathID(r, "targetID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, targetID, nil
}

func parseIDs(raw []string, field string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, &model.ValidationError{Field: field, Reason: "must contain valid UUIDs"}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
