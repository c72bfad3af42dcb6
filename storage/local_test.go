package storage

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), "http://localhost:3000/", []byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestLocalStorage_PutAccessDelete(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	key, err := s.Put(ctx, []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "fractals/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	raw, err := s.AccessURL(ctx, key, 5*time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/blobs/"+key, u.Path)
	assert.NoError(t, s.Verify(key, u.Query().Get("token")))

	path, err := s.Path(key)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Path(key)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting again is not an error
	assert.NoError(t, s.Delete(ctx, key))
}

func TestLocalStorage_DistinctKeys(t *testing.T) {
	s := newTestLocal(t)
	a, err := s.Put(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	b, err := s.Put(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLocalStorage_VerifyRejects(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	key, err := s.Put(ctx, []byte("x"), "image/png")
	require.NoError(t, err)

	raw, err := s.AccessURL(ctx, key, time.Minute)
	require.NoError(t, err)
	u, _ := url.Parse(raw)
	token := u.Query().Get("token")

	other, err := s.Put(ctx, []byte("y"), "image/png")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Verify(other, token), ErrInvalidToken)
	assert.ErrorIs(t, s.Verify(key, "garbage"), ErrInvalidToken)

	expired, err := s.AccessURL(ctx, key, -time.Minute)
	require.NoError(t, err)
	u, _ = url.Parse(expired)
	assert.ErrorIs(t, s.Verify(key, u.Query().Get("token")), ErrInvalidToken)

	forged, err := NewLocalStorage(t.TempDir(), "http://localhost:3000", []byte("other-secret"))
	require.NoError(t, err)
	raw, err = forged.AccessURL(ctx, key, time.Minute)
	require.NoError(t, err)
	u, _ = url.Parse(raw)
	assert.ErrorIs(t, s.Verify(key, u.Query().Get("token")), ErrInvalidToken)
}

func TestLocalStorage_PathTraversal(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	for _, attempt := range []string{"../../../etc/passwd", "..", "", "/etc/passwd", "fractals/../../x", "a b"} {
		t.Run(attempt, func(t *testing.T) {
			_, err := s.Path(attempt)
			assert.Error(t, err)
			assert.Error(t, s.Delete(ctx, attempt))
			_, err = s.AccessURL(ctx, attempt, time.Minute)
			assert.Error(t, err)
		})
	}
}

func TestNewLocalStorage_RequiresSecret(t *testing.T) {
	_, err := NewLocalStorage(t.TempDir(), "http://localhost", nil)
	assert.Error(t, err)
}
