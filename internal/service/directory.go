package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mraskin/userdir-server/internal/logger"
	"github.com/mraskin/userdir-server/internal/model"
)

// Directory maintains an authoritative in-memory replica of all users and
// exposes domain-level mutations built on the persistence gateway.
//
// Mutations never touch the replica directly: they stage writes through the
// gateway and rely on the change notification to trigger a full-replace
// Refresh. The replica is only ever swapped wholesale, which keeps reads
// consistent without incremental merging.
type Directory struct {
	gateway model.UserGateway
	feed    model.ChangeFeed
	avatars model.AvatarStorage
	logger  *logger.Logger

	mu      sync.RWMutex
	users   []model.User
	loading bool

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}

	unsubscribe model.Unsubscribe

	now func() time.Time
}

func NewDirectory(
	gateway model.UserGateway,
	feed model.ChangeFeed,
	avatars model.AvatarStorage,
	logger *logger.Logger,
) *Directory {
	return &Directory{
		gateway:  gateway,
		feed:     feed,
		avatars:  avatars,
		logger:   logger,
		loading:  true,
		watchers: make(map[chan struct{}]struct{}),
		now:      time.Now,
	}
}

// Start performs the initial refresh and subscribes to change
// notifications. A failed initial refresh is logged, not fatal: the replica
// stays in the loading state until a later refresh succeeds.
func (d *Directory) Start(ctx context.Context) error {
	if err := d.Refresh(ctx); err != nil {
		d.logger.Error("initial refresh failed", "error", err)
	}

	unsubscribe, err := d.feed.Subscribe(ctx, func() {
		if err := d.Refresh(ctx); err != nil {
			d.logger.Error("refresh after change notification failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to changes: %w", err)
	}
	d.unsubscribe = unsubscribe

	return nil
}

// Stop unsubscribes from change notifications. In-flight requests are not
// cancelled; a refresh completing afterwards still swaps the replica under
// the lock, which is harmless.
func (d *Directory) Stop() {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
}

// Refresh replaces the whole replica with the gateway's current view. On
// failure the replica is left untouched and the error is returned.
func (d *Directory) Refresh(ctx context.Context) error {
	users, err := d.gateway.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	d.mu.Lock()
	d.users = users
	d.loading = false
	d.mu.Unlock()

	d.notifyWatchers()
	return nil
}

// Users returns a copy of the replica and whether the first successful
// refresh is still pending.
func (d *Directory) Users() ([]model.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.users), d.loading
}

// GetUser looks up a user in the replica. The result may be stale relative
// to the backing table.
func (d *Directory) GetUser(id uuid.UUID) (model.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

// Create validates the fields and inserts a new user. The replica is not
// optimistically updated; the change notification triggers the refresh.
func (d *Directory) Create(ctx context.Context, fields model.NewUser) (model.User, error) {
	if err := model.ValidateNewUser(fields, d.now()); err != nil {
		return model.User{}, err
	}

	user, err := d.gateway.InsertUser(ctx, fields)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	d.logger.Debug("user created", "user_id", user.ID)
	return user, nil
}

// Update validates the present patch fields and applies them.
func (d *Directory) Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) error {
	if err := model.ValidateUserPatch(patch); err != nil {
		return err
	}

	if err := d.gateway.PatchUser(ctx, id, patch); err != nil {
		return fmt.Errorf("failed to patch user: %w", err)
	}

	return nil
}

// Remove deletes a user. Removing an already-deleted id succeeds. Stored
// references to the deleted id in other users' follow lists are not cleaned
// up. The user's stored avatar is deleted best-effort.
func (d *Directory) Remove(ctx context.Context, id uuid.UUID) error {
	if err := d.gateway.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if d.avatars != nil {
		if err := d.avatars.Delete(ctx, id.String()); err != nil {
			d.logger.Debug("avatar cleanup failed", "user_id", id, "error", err)
		}
	}

	return nil
}

// Follow records that userID follows targetID by patching both rows
// concurrently. If either user is missing from the replica it returns
// ErrStaleUser without any backend call. Each side is deduplicated
// independently; when both sides already hold the link this is a no-op.
//
// The two patches are independent: a failure of one side is not rolled
// back, so a partial failure leaves asymmetric follow state until a
// corrective follow/unfollow.
func (d *Directory) Follow(ctx context.Context, userID, targetID uuid.UUID) error {
	user, ok := d.GetUser(userID)
	target, targetOK := d.GetUser(targetID)
	if !ok || !targetOK {
		return model.ErrStaleUser
	}

	patches := make([]rowPatch, 0, 2)
	if !slices.Contains(user.Following, targetID) {
		following := append(slices.Clone(user.Following), targetID)
		patches = append(patches, rowPatch{id: userID, patch: model.UserPatch{Following: &following}})
	}
	if !slices.Contains(target.Followers, userID) {
		followers := append(slices.Clone(target.Followers), userID)
		patches = append(patches, rowPatch{id: targetID, patch: model.UserPatch{Followers: &followers}})
	}

	return d.patchPair(ctx, patches)
}

// Unfollow is the mirror of Follow: it filters targetID out of userID's
// following list and userID out of targetID's followers list. Sides that do
// not hold the link are skipped.
func (d *Directory) Unfollow(ctx context.Context, userID, targetID uuid.UUID) error {
	user, ok := d.GetUser(userID)
	target, targetOK := d.GetUser(targetID)
	if !ok || !targetOK {
		return model.ErrStaleUser
	}

	patches := make([]rowPatch, 0, 2)
	if slices.Contains(user.Following, targetID) {
		following := slices.DeleteFunc(slices.Clone(user.Following), func(id uuid.UUID) bool {
			return id == targetID
		})
		patches = append(patches, rowPatch{id: userID, patch: model.UserPatch{Following: &following}})
	}
	if slices.Contains(target.Followers, userID) {
		followers := slices.DeleteFunc(slices.Clone(target.Followers), func(id uuid.UUID) bool {
			return id == userID
		})
		patches = append(patches, rowPatch{id: targetID, patch: model.UserPatch{Followers: &followers}})
	}

	return d.patchPair(ctx, patches)
}

type rowPatch struct {
	id    uuid.UUID
	patch model.UserPatch
}

// patchPair issues the row patches concurrently. A plain errgroup without
// context derivation: one side failing must not cancel the other, since the
// surviving write stays applied either way.
func (d *Directory) patchPair(ctx context.Context, patches []rowPatch) error {
	g := new(errgroup.Group)
	for _, p := range patches {
		g.Go(func() error {
			if err := d.gateway.PatchUser(ctx, p.id, p.patch); err != nil {
				d.logger.Error("follow state patch failed", "user_id", p.id, "error", err)
				return fmt.Errorf("failed to patch user %s: %w", p.id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// SetProfilePicture stores the uploaded image keyed by user id, then
// patches the user's profilePicture to the served URL. Returns the URL.
func (d *Directory) SetProfilePicture(ctx context.Context, id uuid.UUID, contentType string, reader io.Reader, size int64) (string, error) {
	key := id.String()
	if err := d.avatars.Upload(ctx, key, contentType, reader, size); err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}

	url := "/api/v1/avatars/" + key
	if err := d.gateway.PatchUser(ctx, id, model.UserPatch{ProfilePicture: &url}); err != nil {
		if cleanupErr := d.avatars.Delete(ctx, key); cleanupErr != nil {
			d.logger.Debug("orphan avatar cleanup failed", "key", key, "error", cleanupErr)
		}
		return "", fmt.Errorf("failed to patch profile picture: %w", err)
	}

	return url, nil
}

// ProfilePictureStream returns the stored avatar object for a key.
func (d *Directory) ProfilePictureStream(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := d.avatars.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	return reader, nil
}

// Watch returns a coalesced change signal: the channel receives after every
// successful refresh until ctx is cancelled. Slow receivers miss
// intermediate signals, never block the store.
func (d *Directory) Watch(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	d.watchMu.Lock()
	d.watchers[ch] = struct{}{}
	d.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		d.watchMu.Lock()
		delete(d.watchers, ch)
		d.watchMu.Unlock()
	}()

	return ch
}

func (d *Directory) notifyWatchers() {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	for ch := range d.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
