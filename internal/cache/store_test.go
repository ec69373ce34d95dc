package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var testTags = []Tag{"a", "i", "mi", "cf"}

func TestStorePutAndGet(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()

	payloads := map[Tag][]byte{
		"a":  []byte("<html>article</html>"),
		"i":  {0x89, 0x50, 0x4e, 0x47, 0x00, 0xff},
		"mi": {},
	}
	for tag, payload := range payloads {
		require.NoError(t, store.Put(ctx, "da39a3ee5e6b4b0d3255bfef95601890afd80709", tag, payload, PutOptions{}))
	}
	for tag, payload := range payloads {
		got, err := store.Get(ctx, "da39a3ee5e6b4b0d3255bfef95601890afd80709", tag)
		require.NoError(t, err)
		require.True(t, bytes.Equal(payload, got), "tag %s payload mismatch", tag)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t, 10)

	_, err := store.Get(context.Background(), "missing", "a")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, store.Exists("missing", "a"))
	require.True(t, store.CreatedAt("missing", "a").Equal(time.Unix(0, 0)))
}

func TestStoreSameKeyDifferentTagsAreDistinct(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", "a", []byte("article"), PutOptions{}))
	_, err := store.Get(ctx, "k1", "i")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "k1", "i", []byte("image"), PutOptions{}))
	got, err := store.Get(ctx, "k1", "a")
	require.NoError(t, err)
	require.Equal(t, "article", string(got))
}

func TestStoreOverwrite(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", "a", []byte("first version, longer"), PutOptions{}))
	require.NoError(t, store.Put(ctx, "k1", "a", []byte("second"), PutOptions{}))

	got, err := store.Get(ctx, "k1", "a")
	require.NoError(t, err)
	require.Equal(t, "second", string(got))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "overwrite must not leave temp files or versions behind")
}

func TestStorePutSucceedsWhenTouchFails(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	store := newTestStore(t, 10, WithLogger(logger))
	store.chtimes = func(string, time.Time, time.Time) error {
		return errors.New("read-only mtime")
	}

	require.NoError(t, store.Put(context.Background(), "k1", "a", []byte("landed"), PutOptions{}))

	got, err := store.Get(context.Background(), "k1", "a")
	require.NoError(t, err)
	require.Equal(t, "landed", string(got))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "cache_touch_failed", entry.Message)
	require.Equal(t, "k1", entry.Data["key"])
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", "cf", []byte("data"), PutOptions{}))
	require.NoError(t, store.Remove(ctx, "k1", "cf"))
	require.False(t, store.Exists("k1", "cf"))

	_, err := store.Get(ctx, "k1", "cf")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, store.Remove(ctx, "k1", "cf"), ErrNotFound)
}

func TestStoreCreatedAtTracksPut(t *testing.T) {
	store := newTestStore(t, 10)
	modTime := time.Now().Add(-time.Hour).Truncate(time.Second)

	require.NoError(t, store.Put(context.Background(), "k1", "a", []byte("x"), PutOptions{ModTime: modTime}))
	require.True(t, store.CreatedAt("k1", "a").Equal(modTime))

	entry, err := store.Stat("k1", "a")
	require.NoError(t, err)
	require.Equal(t, int64(1), entry.SizeBytes)
	require.Equal(t, filepath.Join(store.Dir(), "k1.a"), entry.FilePath)
}

func TestStoreIgnoresDirectories(t *testing.T) {
	store := newTestStore(t, 10)
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "k1.a"), 0o755))

	_, err := store.Get(context.Background(), "k1", "a")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, store.Exists("k1", "a"))
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()

	for _, key := range []Key{"", "../escape", "a/b", "with.dot", "space key"} {
		err := store.Put(ctx, key, "a", []byte("x"), PutOptions{})
		require.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
	require.ErrorIs(t, store.Put(ctx, "k1", "../a", []byte("x"), PutOptions{}), ErrInvalidTag)
}

func TestStoreConfigureCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	store := NewStore(WithRecognizedTags(testTags...))
	require.False(t, store.Configured())

	require.NoError(t, store.Configure(root, 15))
	require.True(t, store.Configured())
	require.Equal(t, filepath.Join(root, DefaultDirName), store.Dir())
	require.Equal(t, 15.0, store.MaxSize())

	info, err := os.Stat(store.Dir())
	require.NoError(t, err)
	require.True(t, info.IsDir())

	// 目录已存在时再次配置应当直接成功，且不影响已有条目。
	require.NoError(t, store.Put(context.Background(), "k1", "a", []byte("keep"), PutOptions{}))
	require.NoError(t, store.Configure(root, 20))
	require.Equal(t, 20.0, store.MaxSize())
	got, err := store.Get(context.Background(), "k1", "a")
	require.NoError(t, err)
	require.Equal(t, "keep", string(got))
}

func TestStoreConfigureWithCustomDirName(t *testing.T) {
	root := t.TempDir()
	store, err := Open(root, 1, WithDirName("artifacts"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "artifacts"), store.Dir())
}

func TestStoreUnconfiguredBehavesAsEmpty(t *testing.T) {
	// root 是普通文件，无法在其下创建目录。
	root := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o600))

	store := NewStore(WithRecognizedTags(testTags...))
	require.Error(t, store.Configure(root, 10))
	require.False(t, store.Configured())

	ctx := context.Background()
	_, err := store.Get(ctx, "k1", "a")
	require.ErrorIs(t, err, ErrNotConfigured)
	require.ErrorIs(t, store.Put(ctx, "k1", "a", []byte("x"), PutOptions{}), ErrNotConfigured)
	require.ErrorIs(t, store.Remove(ctx, "k1", "a"), ErrNotConfigured)
	require.False(t, store.Exists("k1", "a"))
	require.True(t, store.CreatedAt("k1", "a").Equal(time.Unix(0, 0)))
	require.Zero(t, store.Size())
	require.Empty(t, store.Dir())

	_, err = store.Purge(ctx)
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = store.Shrink(ctx, 1)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestStoreReconfigureAfterFailureRecovers(t *testing.T) {
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, nil, 0o600))

	store := NewStore()
	require.Error(t, store.Configure(blocked, 10))
	require.NoError(t, store.Configure(t.TempDir(), 10))
	require.True(t, store.Configured())
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	store := newTestStore(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, "k1", "a", []byte("x"), PutOptions{})
	require.True(t, errors.Is(err, context.Canceled))
	require.False(t, store.Exists("k1", "a"))
}

// newTestStore returns a configured Store backed by a temporary directory.
func newTestStore(t *testing.T, maxSizeMB float64, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithRecognizedTags(testTags...)}, opts...)
	store, err := Open(t.TempDir(), maxSizeMB, opts...)
	require.NoError(t, err)
	return store
}
