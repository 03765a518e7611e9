package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/repository"
	"github.com/spec-kit/storefront/internal/storage"
	apperrors "github.com/spec-kit/storefront/pkg/util/errorutil"
)

// DefaultMaxImageBytes caps profile image uploads.
const DefaultMaxImageBytes = 1 << 20

var allowedImageTypes = []string{"image/png", "image/jpeg"}

// UpdateProfileInput carries optional profile changes. When SetProfileImage
// is true, ProfileImageURL replaces the stored value; nil or blank clears it.
type UpdateProfileInput struct {
	Name            *string
	SetProfileImage bool
	ProfileImageURL *string
}

type nameField struct {
	Name string `json:"name" validate:"min=1,max=100"`
}

type imageURLField struct {
	ProfileImageURL string `json:"profileImageUrl" validate:"http_url,max=2048"`
}

// ProfileService manages the signed-in user's profile and image.
type ProfileService struct {
	users         repository.UserRepository
	store         storage.BlobStore
	pending       storage.PendingUploads
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	maxImageBytes int64
}

// ProfileDependencies groups collaborators. Store and Pending may be nil.
type ProfileDependencies struct {
	UserRepo      repository.UserRepository
	Store         storage.BlobStore
	Pending       storage.PendingUploads
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	MaxImageBytes int64
}

// NewProfileService builds the service.
func NewProfileService(deps ProfileDependencies) *ProfileService {
	if deps.Dispatcher == nil {
		deps.Dispatcher = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MaxImageBytes <= 0 {
		deps.MaxImageBytes = DefaultMaxImageBytes
	}
	return &ProfileService{
		users:         deps.UserRepo,
		store:         deps.Store,
		pending:       deps.Pending,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		maxImageBytes: deps.MaxImageBytes,
	}
}

// Get returns the user's profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.load(ctx, userID)
}

// Update applies name and image URL changes. Replacing or clearing an image
// the user uploaded deletes the old blob.
func (s *ProfileService) Update(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error) {
	var (
		checks []any
		name   nameField
		image  imageURLField
	)
	if in.Name != nil {
		name.Name = strings.TrimSpace(*in.Name)
		checks = append(checks, name)
	}
	if in.SetProfileImage && in.ProfileImageURL != nil {
		image.ProfileImageURL = strings.TrimSpace(*in.ProfileImageURL)
		if image.ProfileImageURL != "" {
			checks = append(checks, image)
		}
	}
	if err := validateStruct(checks...); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		changed []string
		oldURL  string
	)
	if user.ProfileImageURL != nil {
		oldURL = *user.ProfileImageURL
	}
	if in.Name != nil {
		user.Name = name.Name
		changed = append(changed, "name")
	}
	if in.SetProfileImage {
		user.ProfileImageURL = nil
		if image.ProfileImageURL != "" {
			user.ProfileImageURL = &image.ProfileImageURL
		}
		changed = append(changed, "profileImageUrl")
	}
	if len(changed) == 0 {
		return user, nil
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	if in.SetProfileImage && oldURL != "" && oldURL != image.ProfileImageURL {
		s.removeOwnedBlob(ctx, user.ID, oldURL)
	}

	s.publish(ctx, events.New(events.EventProfileUpdated, user.ID, events.ProfileUpdatedPayload{Fields: changed}))
	return user, nil
}

// ReplaceImage stores a new PNG or JPEG and points the profile at it. The
// previous image is deleted only after the profile record is updated.
func (s *ProfileService) ReplaceImage(ctx context.Context, userID string, r io.Reader) (*domain.User, error) {
	if s.store == nil {
		return nil, apperrors.NewUnavailable("Profile image storage is not configured")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxImageBytes+1))
	if err != nil {
		return nil, apperrors.NewValidationError("Unable to read upload", nil)
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("File is empty", nil)
	}
	if int64(len(data)) > s.maxImageBytes {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("File size must be at most %s", humanBytes(s.maxImageBytes)), nil)
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return nil, apperrors.NewValidationError("Only PNG and JPEG images are allowed",
			map[string]string{"detected": mtype.String()})
	}

	key := storage.ProfileImageKey(user.ID, mtype.Extension())
	s.track(ctx, key)

	url, err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mtype.String())
	if err != nil {
		s.resolve(ctx, key)
		return nil, apperrors.NewInternalError(err)
	}

	var oldURL string
	if user.ProfileImageURL != nil {
		oldURL = *user.ProfileImageURL
	}
	user.ProfileImageURL = &url
	if err := s.save(ctx, user); err != nil {
		s.logger.Warn("profile image uploaded but profile not updated",
			zap.String("user_id", user.ID), zap.String("key", key), zap.Error(err))
		return nil, err
	}
	s.resolve(ctx, key)

	if oldURL != "" {
		s.removeOwnedBlob(ctx, user.ID, oldURL)
	}

	s.publish(ctx, events.New(events.EventProfileImageReplaced, user.ID, events.ProfileImagePayload{
		NewURL: url,
		OldURL: oldURL,
	}))
	return user, nil
}

// RemoveImage clears the profile image and deletes its blob.
func (s *ProfileService) RemoveImage(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ProfileImageURL == nil {
		return nil, apperrors.NewNotFound("profile image")
	}

	oldURL := *user.ProfileImageURL
	user.ProfileImageURL = nil
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.removeOwnedBlob(ctx, user.ID, oldURL)
	s.publish(ctx, events.New(events.EventProfileImageRemoved, user.ID, events.ProfileImagePayload{OldURL: oldURL}))
	return user, nil
}

func (s *ProfileService) load(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func (s *ProfileService) save(ctx context.Context, user *domain.User) error {
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("User")
		}
		return apperrors.NewInternalError(err)
	}
	return nil
}

// removeOwnedBlob deletes url from the store when it lives under the user's
// own prefix. Failures are logged; the profile is already consistent.
func (s *ProfileService) removeOwnedBlob(ctx context.Context, userID, url string) {
	if s.store == nil {
		return
	}
	key, ok := s.store.KeyFromURL(url)
	if !ok || storage.OwnerOfKey(key) != userID {
		return
	}
	if err := s.store.Remove(ctx, key); err != nil {
		s.logger.Warn("failed to delete old profile image", zap.String("key", key), zap.Error(err))
	}
}

func (s *ProfileService) track(ctx context.Context, key string) {
	if s.pending == nil {
		return
	}
	if err := s.pending.Track(ctx, key); err != nil {
		s.logger.Warn("failed to record pending upload", zap.String("key", key), zap.Error(err))
	}
}

func (s *ProfileService) resolve(ctx context.Context, key string) {
	if s.pending == nil {
		return
	}
	if err := s.pending.Resolve(ctx, key); err != nil {
		s.logger.Warn("failed to resolve pending upload", zap.String("key", key), zap.Error(err))
	}
}

func (s *ProfileService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func humanBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
