package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T, maxSize int64) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "/media", maxSize, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestLocalStore_Save(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 1024)

	t.Run("saves file and returns url", func(t *testing.T) {
		url, err := store.Save(ctx, "pothole.jpg", strings.NewReader("jpeg bytes"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "/media/"))
		assert.True(t, strings.HasSuffix(url, "_pothole.jpg"))

		stored := filepath.Join(store.baseDir, strings.TrimPrefix(url, "/media/"))
		content, err := os.ReadFile(stored)
		require.NoError(t, err)
		assert.Equal(t, "jpeg bytes", string(content))
	})

	t.Run("same name never collides", func(t *testing.T) {
		url1, err := store.Save(ctx, "report.pdf", strings.NewReader("one"))
		require.NoError(t, err)
		url2, err := store.Save(ctx, "report.pdf", strings.NewReader("two"))
		require.NoError(t, err)
		assert.NotEqual(t, url1, url2)
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		big := strings.Repeat("x", 2048)
		_, err := store.Save(ctx, "huge.bin", strings.NewReader(big))
		assert.Error(t, err)
	})

	t.Run("strips path traversal", func(t *testing.T) {
		url, err := store.Save(ctx, "../../etc/passwd", strings.NewReader("nope"))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(url, "_passwd"))

		// Nothing escaped the base directory
		_, err = os.Stat(filepath.Join(store.baseDir, "..", "etc"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"my photo.jpg", "my_photo.jpg"},
		{"dir/sub/file.png", "file.png"},
		{"..\\..\\evil.exe", "evil.exe"},
		{"..", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in), tt.in)
	}
}
