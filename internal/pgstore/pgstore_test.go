package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/workspace"
)

var _ workspace.Store = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("HARBOR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("HARBOR_TEST_DATABASE_URL not set")
	}
	s, err := Open(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestOpen_EmptyURL(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := "harbor-test-" + t.Name()
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM harbor_kv WHERE key = $1`, key)
	})

	_, ok, err := s.Load(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Save(ctx, key, "one"))
	require.NoError(t, s.Save(ctx, key, "two"))
	require.NoError(t, s.Save(ctx, key, "two"))

	v, ok, err := s.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "two", v)
}
