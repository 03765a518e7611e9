package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/storefront/internal/config"
	apperrors "github.com/spec-kit/storefront/pkg/util/errorutil"
)

const fakeBaseURL = "http://blobs.test/profile-images"

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
	removed []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlobStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return f.URL(key), nil
}

func (f *fakeBlobStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeBlobStore) URL(key string) string {
	return fakeBaseURL + "/" + key
}

func (f *fakeBlobStore) KeyFromURL(rawURL string) (string, bool) {
	key := strings.TrimPrefix(rawURL, fakeBaseURL+"/")
	return key, key != rawURL && key != ""
}

func (f *fakeBlobStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	return out
}

type fakePending struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newFakePending() *fakePending {
	return &fakePending{entries: map[string]time.Time{}}
}

func (p *fakePending) Track(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = time.Now()
	return nil
}

func (p *fakePending) Resolve(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
	return nil
}

func (p *fakePending) Stale(_ context.Context, olderThan time.Time, _ int64) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for k, at := range p.entries {
		if !at.After(olderThan) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (p *fakePending) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenTTLHours: 7 * 24,
		BcryptCost:    bcrypt.MinCost,
	}
}

func requireDomainError(t *testing.T, err error, status int) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %T: %v", err, err)
	require.Equal(t, status, de.HTTPStatus, de.Message)
	return de
}
