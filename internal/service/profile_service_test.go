package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/repository"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0}, 64)...)
	gifBytes  = append([]byte("GIF89a"), bytes.Repeat([]byte{0}, 64)...)
)

type profileFixture struct {
	svc     *ProfileService
	repo    *repository.MemoryUserRepository
	store   *fakeBlobStore
	pending *fakePending
	user    *domain.User
	events  []events.EventType
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()
	f := &profileFixture{
		repo:    repository.NewMemoryUserRepository(),
		store:   newFakeBlobStore(),
		pending: newFakePending(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventProfileUpdated, events.EventProfileImageReplaced, events.EventProfileImageRemoved} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e.Type)
			return nil
		})
	}
	f.svc = NewProfileService(ProfileDependencies{
		UserRepo:   f.repo,
		Store:      f.store,
		Pending:    f.pending,
		Dispatcher: dispatcher,
	})

	f.user = &domain.User{Name: "Ana", Email: "a@x.com", Role: domain.RoleCustomer}
	require.NoError(t, f.repo.Create(context.Background(), f.user))
	return f
}

func strPtr(s string) *string { return &s }

func TestProfileGet(t *testing.T) {
	f := newProfileFixture(t)

	user, err := f.svc.Get(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)

	_, err = f.svc.Get(context.Background(), "missing")
	requireDomainError(t, err, http.StatusNotFound)
}

func TestProfileUpdateName(t *testing.T) {
	f := newProfileFixture(t)

	user, err := f.svc.Update(context.Background(), f.user.ID, UpdateProfileInput{Name: strPtr("  Ana Maria ")})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", user.Name)
	assert.Equal(t, []events.EventType{events.EventProfileUpdated}, f.events)

	_, err = f.svc.Update(context.Background(), f.user.ID, UpdateProfileInput{Name: strPtr("   ")})
	de := requireDomainError(t, err, http.StatusBadRequest)
	details := de.Details.([]FieldError)
	assert.Equal(t, "name", details[0].Field)
}

func TestProfileUpdateImageURL(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	user, err := f.svc.Update(ctx, f.user.ID, UpdateProfileInput{
		SetProfileImage: true,
		ProfileImageURL: strPtr("https://cdn.example.com/a.png"),
	})
	require.NoError(t, err)
	require.NotNil(t, user.ProfileImageURL)
	assert.Equal(t, "https://cdn.example.com/a.png", *user.ProfileImageURL)

	user, err = f.svc.Update(ctx, f.user.ID, UpdateProfileInput{SetProfileImage: true})
	require.NoError(t, err)
	assert.Nil(t, user.ProfileImageURL)

	_, err = f.svc.Update(ctx, f.user.ID, UpdateProfileInput{SetProfileImage: true, ProfileImageURL: strPtr("not a url")})
	requireDomainError(t, err, http.StatusBadRequest)
}

func TestProfileUpdateWithoutChangesAndMissingUser(t *testing.T) {
	f := newProfileFixture(t)

	user, err := f.svc.Update(context.Background(), f.user.ID, UpdateProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	assert.Empty(t, f.events)

	_, err = f.svc.Update(context.Background(), "missing", UpdateProfileInput{Name: strPtr("Bo")})
	requireDomainError(t, err, http.StatusNotFound)
}

func TestReplaceImageStoresAndDeletesPrevious(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	first, err := f.svc.ReplaceImage(ctx, f.user.ID, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	require.NotNil(t, first.ProfileImageURL)
	firstURL := *first.ProfileImageURL
	assert.True(t, strings.HasPrefix(firstURL, fakeBaseURL+"/"+f.user.ID+"/"))
	assert.True(t, strings.HasSuffix(firstURL, ".png"))

	second, err := f.svc.ReplaceImage(ctx, f.user.ID, bytes.NewReader(jpegBytes))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(*second.ProfileImageURL, ".jpg"))

	keys := f.store.keys()
	require.Len(t, keys, 1)
	assert.Equal(t, *second.ProfileImageURL, f.store.URL(keys[0]))
	assert.Equal(t, "image/jpeg", f.store.types[keys[0]])
	assert.Equal(t, 0, f.pending.size())

	stored, err := f.repo.GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, *second.ProfileImageURL, *stored.ProfileImageURL)
	assert.Equal(t, []events.EventType{events.EventProfileImageReplaced, events.EventProfileImageReplaced}, f.events)
}

func TestReplaceImageKeepsForeignPreviousImage(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()
	foreign := fakeBaseURL + "/someone-else/1.png"
	f.store.objects["someone-else/1.png"] = pngBytes

	_, err := f.svc.Update(ctx, f.user.ID, UpdateProfileInput{SetProfileImage: true, ProfileImageURL: &foreign})
	require.NoError(t, err)

	_, err = f.svc.ReplaceImage(ctx, f.user.ID, bytes.NewReader(pngBytes))
	require.NoError(t, err)

	assert.Empty(t, f.store.removed)
	assert.Contains(t, f.store.keys(), "someone-else/1.png")
}

func TestUpdateImageURLDeletesOwnedBlob(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	uploaded, err := f.svc.ReplaceImage(ctx, f.user.ID, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	ownURL := *uploaded.ProfileImageURL

	_, err = f.svc.Update(ctx, f.user.ID, UpdateProfileInput{SetProfileImage: true, ProfileImageURL: &ownURL})
	require.NoError(t, err)
	assert.Len(t, f.store.keys(), 1)

	_, err = f.svc.Update(ctx, f.user.ID, UpdateProfileInput{SetProfileImage: true})
	require.NoError(t, err)

	assert.Empty(t, f.store.keys())
	assert.Len(t, f.store.removed, 1)
	assert.Equal(t, 0, f.pending.size())
}

func TestUpdateImageURLKeepsForeignBlob(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()
	foreign := fakeBaseURL + "/someone-else/1.png"
	f.store.objects["someone-else/1.png"] = pngBytes

	_, err := f.svc.Update(ctx, f.user.ID, UpdateProfileInput{SetProfileImage: true, ProfileImageURL: &foreign})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, f.user.ID, UpdateProfileInput{SetProfileImage: true, ProfileImageURL: strPtr("https://cdn.example.com/b.png")})
	require.NoError(t, err)

	assert.Empty(t, f.store.removed)
	assert.Contains(t, f.store.keys(), "someone-else/1.png")
}

func TestReplaceImageRejectsBadUploads(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()
	tooBig := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{1}, DefaultMaxImageBytes)...)

	for name, data := range map[string][]byte{"empty": nil, "gif": gifBytes, "text": []byte("hello world"), "too big": tooBig} {
		_, err := f.svc.ReplaceImage(ctx, f.user.ID, bytes.NewReader(data))
		requireDomainError(t, err, http.StatusBadRequest)
		assert.Empty(t, f.store.keys(), name)
	}
}

func TestReplaceImageAcceptsExactlyMaxBytes(t *testing.T) {
	f := newProfileFixture(t)
	data := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{1}, DefaultMaxImageBytes-len(pngBytes))...)
	require.Len(t, data, DefaultMaxImageBytes)

	_, err := f.svc.ReplaceImage(context.Background(), f.user.ID, bytes.NewReader(data))

	assert.NoError(t, err)
}

func TestReplaceImageUploadFailure(t *testing.T) {
	f := newProfileFixture(t)
	f.store.putErr = errors.New("bucket offline")

	_, err := f.svc.ReplaceImage(context.Background(), f.user.ID, bytes.NewReader(pngBytes))

	de := requireDomainError(t, err, http.StatusInternalServerError)
	assert.Equal(t, "internal server error", de.Message)
	assert.Equal(t, 0, f.pending.size())
}

func TestReplaceImageLeavesPendingWhenProfileVanishes(t *testing.T) {
	f := newProfileFixture(t)
	f.svc.users = vanishingRepo{UserRepository: f.repo}

	_, err := f.svc.ReplaceImage(context.Background(), f.user.ID, bytes.NewReader(pngBytes))

	requireDomainError(t, err, http.StatusNotFound)
	assert.Len(t, f.store.keys(), 1)
	assert.Equal(t, 1, f.pending.size())
}

func TestReplaceImageWithoutStore(t *testing.T) {
	f := newProfileFixture(t)
	svc := NewProfileService(ProfileDependencies{UserRepo: f.repo})

	_, err := svc.ReplaceImage(context.Background(), f.user.ID, bytes.NewReader(pngBytes))

	requireDomainError(t, err, http.StatusServiceUnavailable)
}

func TestRemoveImage(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	_, err := f.svc.RemoveImage(ctx, f.user.ID)
	requireDomainError(t, err, http.StatusNotFound)

	_, err = f.svc.ReplaceImage(ctx, f.user.ID, bytes.NewReader(pngBytes))
	require.NoError(t, err)

	user, err := f.svc.RemoveImage(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, user.ProfileImageURL)
	assert.Empty(t, f.store.keys())
}

// vanishingRepo simulates the account being deleted between upload and update.
type vanishingRepo struct {
	repository.UserRepository
}

func (vanishingRepo) Update(context.Context, *domain.User) error {
	return repository.ErrNotFound
}
