package filestore_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	porterrors "github.com/jrsteele09/go-portal-client/internal/errors"
	"github.com/jrsteele09/go-portal-client/sessions"
	"github.com/jrsteele09/go-portal-client/sessions/filestore"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store, err := filestore.New(path)
	require.NoError(t, err)

	t.Run("missing file loads empty", func(t *testing.T) {
		record, err := store.Load(ctx)
		require.NoError(t, err)
		require.True(t, record.IsEmpty())
	})

	t.Run("save then load", func(t *testing.T) {
		want := sessions.Record{User: json.RawMessage(`{"id":1,"role":"STUDENT","first_name":"Ali"}`), AccessToken: "tok123"}
		require.NoError(t, store.Save(ctx, want))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		require.JSONEq(t, string(want.User), string(got.User))
		require.Equal(t, "tok123", got.AccessToken)

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Clear(ctx))
		record, err := store.Load(ctx)
		require.NoError(t, err)
		require.True(t, record.IsEmpty())
	})

	t.Run("corrupt file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		_, err := store.Load(ctx)
		require.ErrorIs(t, err, porterrors.ErrCorruptRecord)
	})
}

func TestFileStore_RequiresPath(t *testing.T) {
	_, err := filestore.New("")
	require.Error(t, err)
}
