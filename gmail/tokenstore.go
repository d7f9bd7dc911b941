package gmail

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	keyringService  = "gmailparse"
	keyringTokenKey = "oauth-token"
)

// ErrNoToken means the store holds no token yet.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists the browser flow token between runs.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
}

// FileTokenStore keeps the token as JSON in a file readable only by the owner.
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) Load() (*oauth2.Token, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", s.Path, err)
	}
	return tok, nil
}

func (s FileTokenStore) Save(tok *oauth2.Token) (err error) {
	log.Info().Str("module", "gmail").Str("path", s.Path).Msg("Saving OAuth token")
	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to save oauth token: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("unable to save oauth token: %w", cerr)
		}
	}()
	return json.NewEncoder(f).Encode(tok)
}

// KeyringTokenStore keeps the token in the system keyring.
type KeyringTokenStore struct {
	Ring keyring.Keyring
}

// OpenKeyringTokenStore opens the platform keyring, falling back to an
// encrypted file under ~/.config/gmailparse.
func OpenKeyringTokenStore() (*KeyringTokenStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/gmailparse/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("gmailparse-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &KeyringTokenStore{Ring: ring}, nil
}

func (s *KeyringTokenStore) Load() (*oauth2.Token, error) {
	item, err := s.Ring.Get(keyringTokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("getting token: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(item.Data, tok); err != nil {
		return nil, fmt.Errorf("decode keyring token: %w", err)
	}
	return tok, nil
}

func (s *KeyringTokenStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	err = s.Ring.Set(keyring.Item{
		Key:         keyringTokenKey,
		Data:        data,
		Label:       "gmailparse OAuth token",
		Description: "Gmail API refresh and access token",
	})
	if err != nil {
		return fmt.Errorf("setting token: %w", err)
	}
	return nil
}

// openTokenStore picks the store named by kind: "file" or "keyring".
func openTokenStore(kind, tokenFile string) (TokenStore, error) {
	switch kind {
	case "", "file":
		return FileTokenStore{Path: tokenFile}, nil
	case "keyring":
		return OpenKeyringTokenStore()
	default:
		return nil, fmt.Errorf("token store %q not one of: file, keyring", kind)
	}
}
