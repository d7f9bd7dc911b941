package gmail

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := FileTokenStore{Path: path}

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Save(testToken()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "refresh", tok.RefreshToken)
	assert.True(t, tok.Expiry.Equal(testToken().Expiry))
}

func TestFileTokenStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))
	_, err := FileTokenStore{Path: path}.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}

func TestFileTokenStoreSaveFails(t *testing.T) {
	store := FileTokenStore{Path: filepath.Join(t.TempDir(), "missing", "token.json")}
	assert.Error(t, store.Save(testToken()))

	if _, err := os.Stat("/dev/full"); err == nil {
		assert.Error(t, FileTokenStore{Path: "/dev/full"}.Save(testToken()),
			"write errors on a full device are reported")
	}
}

func TestKeyringTokenStore(t *testing.T) {
	store := &KeyringTokenStore{Ring: keyring.NewArrayKeyring(nil)}

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Save(testToken()))
	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
}

func TestOpenTokenStore(t *testing.T) {
	s, err := openTokenStore("", "token.json")
	require.NoError(t, err)
	assert.Equal(t, FileTokenStore{Path: "token.json"}, s)

	_, err = openTokenStore("vault", "token.json")
	assert.Error(t, err)
}
